package ui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yaaa-term/yaaa/internal/clipboard"
	"github.com/yaaa-term/yaaa/internal/config"
	"github.com/yaaa-term/yaaa/internal/session"
	"github.com/yaaa-term/yaaa/internal/terminal"
)

type fakeBackend struct {
	total     uint64
	alt       bool
	offset    uint64
	rows      uint64
	lines     []string
	selected  string
	input     []byte
	discarded int
	closed    int
	resized   [][2]int
}

func (b *fakeBackend) TotalLineCount() uint64 { return b.total }
func (b *fakeBackend) IsAlternateScreen() bool { return b.alt }
func (b *fakeBackend) DisplayOffset() uint64 { return b.offset }
func (b *fakeBackend) ViewportLineCount() uint64 { return b.rows }
func (b *fakeBackend) ScrollToBottom() { b.offset = 0 }
func (b *fakeBackend) ScrollToTop() { b.offset = b.total - min(b.total, b.rows) }
func (b *fakeBackend) DiscardHistory() { b.discarded++ }
func (b *fakeBackend) SelectedText() string { return b.selected }
func (b *fakeBackend) VisibleLines() []string { return b.lines }

func (b *fakeBackend) ScrollLines(delta int) {
	b.offset = uint64(max(0, int(b.offset)+delta))
}

func (b *fakeBackend) SendInput(p []byte) error {
	b.input = append(b.input, p...)
	return nil
}

func (b *fakeBackend) Resize(rows, cols int) error {
	b.resized = append(b.resized, [2]int{rows, cols})
	return nil
}

func (b *fakeBackend) Close() error {
	b.closed++
	return nil
}

type fakeSpawner struct {
	mu       sync.Mutex
	fail     map[string]bool
	shells   []string
	backends map[uint64]*fakeBackend
}

func newFakeSpawner(failing ...string) *fakeSpawner {
	s := &fakeSpawner{fail: make(map[string]bool), backends: make(map[uint64]*fakeBackend)}
	for _, f := range failing {
		s.fail[f] = true
	}
	return s
}

func (s *fakeSpawner) Spawn(ctx context.Context, opts terminal.SpawnOptions) (terminal.Backend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shells = append(s.shells, opts.Shell)
	if s.fail[opts.Shell] {
		return nil, errors.New("exec: not found")
	}
	b := &fakeBackend{total: 24, rows: 24}
	s.backends[opts.TabID] = b
	return b, nil
}

type memStore struct {
	saved int
	snap  session.Snapshot
}

func (m *memStore) LoadGroups() (session.Snapshot, bool) { return m.snap, m.saved > 0 }

func (m *memStore) SaveGroups(s session.Snapshot) error {
	m.snap = s
	m.saved++
	return nil
}

type fakeClipboard struct {
	copied string
	paste  string
	err    error
}

func (c *fakeClipboard) Copy(text string) (*clipboard.CopyResult, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.copied = text
	return &clipboard.CopyResult{Method: "fake", ByteSize: len(text), LineCount: 1}, nil
}

func (c *fakeClipboard) Paste() (string, error) {
	return c.paste, c.err
}

type fakeInstance struct {
	primary   bool
	instances int
	calls     int
}

func (f *fakeInstance) Heartbeat() (bool, error) {
	f.calls++
	return f.primary, nil
}

func (f *fakeInstance) AliveInstances() (int, error) { return f.instances, nil }

type testHome struct {
	*Home
	spawner *fakeSpawner
	events  chan terminal.Event
	store   *memStore
	board   *fakeClipboard
}

func newTestHome(t *testing.T, failing ...string) *testHome {
	t.Helper()
	sp := newFakeSpawner(failing...)
	events := make(chan terminal.Event, 16)
	ws := session.NewWorkspace(session.Options{
		Spawner:  sp,
		Prober:   session.ProberFunc(func(string) bool { return true }),
		Env:      session.ShellEnv{InteractiveShell: "/bin/zsh", DefaultShell: "/usr/bin/bash"},
		ShellCmd: "/bin/zsh",
		AgentCmd: "opencode",
		Rows:     24,
		Cols:     80,
	})
	store := &memStore{}
	clip := &fakeClipboard{}
	h := NewHome(Deps{
		Workspace: ws,
		Router:    session.NewRouter(events),
		Autosaver: session.NewAutosaver(store, ws.Snapshot, 1000),
		Clipboard: clip,
		Settings:  config.Defaults(),
		Paths:     config.PathsAt(t.TempDir()),
	})
	h.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return &testHome{Home: h, spawner: sp, events: events, store: store, board: clip}
}

// run executes cmd and feeds back the messages the UI reacts to. Ticks
// are not run.
func (th *testHome) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			th.run(c)
		}
	case tabSpawnedMsg, clipboardMsg, heartbeatMsg:
		_, next := th.Update(msg)
		th.run(next)
	}
}

// collectMsgs runs cmd and returns every message it yields, flattening
// batches.
func collectMsgs(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collectMsgs(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func (th *testHome) press(msg tea.KeyMsg) {
	_, cmd := th.Update(msg)
	th.run(cmd)
}

func (th *testHome) frame() {
	th.onFrame(th.now())
}

func alt(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}, Alt: true}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// addProject opens a group for dir through the add-project dialog.
func (th *testHome) addProject(t *testing.T, dir string) {
	t.Helper()
	th.press(alt('p'))
	if !th.dialog.IsVisible() {
		t.Fatal("add project dialog should be visible")
	}
	th.dialog.input.SetValue(dir)
	th.dialog.refilter()
	th.press(tea.KeyMsg{Type: tea.KeyEnter})
}

func (th *testHome) activeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	tab, ok := th.ws.Active()
	if !ok {
		t.Fatal("no active tab")
	}
	return th.spawner.backends[tab.ID]
}
