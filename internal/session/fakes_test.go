package session

import (
	"context"
	"errors"
	"sync"

	"github.com/yaaa-term/yaaa/internal/terminal"
)

const testDefaultShell = "/usr/bin/bash"

var testEnv = ShellEnv{InteractiveShell: "/bin/zsh", DefaultShell: testDefaultShell}

// fakeBackend is a scriptable terminal.Backend.
type fakeBackend struct {
	total     uint64
	alt       bool
	offset    uint64
	rows      uint64
	input     []byte
	text      string
	closed    int
	toBottom  int
	discarded int
	resized   [][2]int
}

func (b *fakeBackend) TotalLineCount() uint64 { return b.total }
func (b *fakeBackend) IsAlternateScreen() bool { return b.alt }
func (b *fakeBackend) DisplayOffset() uint64 { return b.offset }
func (b *fakeBackend) ViewportLineCount() uint64 { return b.rows }
func (b *fakeBackend) ScrollToBottom() { b.toBottom++; b.offset = 0 }
func (b *fakeBackend) ScrollToTop() { b.offset = b.total }
func (b *fakeBackend) ScrollLines(delta int) { b.offset = uint64(max(0, int(b.offset)+delta)) }
func (b *fakeBackend) DiscardHistory() { b.discarded++ }
func (b *fakeBackend) SelectedText() string { return b.text }
func (b *fakeBackend) VisibleLines() []string { return nil }

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

var errSpawn = errors.New("exec: no such file")

// fakeSpawner records every spawn and fails for shells in fail.
type fakeSpawner struct {
	mu       sync.Mutex
	fail     map[string]bool
	calls    []terminal.SpawnOptions
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
	s.calls = append(s.calls, opts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.fail[opts.Shell] {
		return nil, errSpawn
	}
	b := &fakeBackend{total: 24, rows: 24}
	s.backends[opts.TabID] = b
	return b, nil
}

func (s *fakeSpawner) shells() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.calls))
	for _, c := range s.calls {
		out = append(out, c.Shell)
	}
	return out
}

// recordingProber resolves the names in ok and records every probe.
type recordingProber struct {
	ok     map[string]bool
	probed []string
}

func newProber(resolvable ...string) *recordingProber {
	p := &recordingProber{ok: make(map[string]bool)}
	for _, r := range resolvable {
		p.ok[r] = true
	}
	return p
}

func (p *recordingProber) Resolves(name string) bool {
	p.probed = append(p.probed, name)
	return p.ok[name]
}

var allResolve = ProberFunc(func(string) bool { return true })

func newTestWorkspace(sp *fakeSpawner) *Workspace {
	return NewWorkspace(Options{
		Spawner:    sp,
		Prober:     allResolve,
		Env:        testEnv,
		ShellCmd:   "/bin/zsh",
		AgentCmd:   "opencode",
		LoginShell: true,
		Rows:       24,
		Cols:       80,
	})
}

// memStore is an in-memory Store.
type memStore struct {
	snap  Snapshot
	saved int
	err   error
}

func (m *memStore) LoadGroups() (Snapshot, bool) {
	return m.snap, m.saved > 0
}

func (m *memStore) SaveGroups(s Snapshot) error {
	if m.err != nil {
		return m.err
	}
	m.snap = s
	m.saved++
	return nil
}
