package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"

	"github.com/yaaa-term/yaaa/internal/logging"
)

var ptyLog = logging.ForComponent(logging.CompTerminal)

const readBufferSize = 32 * 1024

// PTYSpawner starts shells on pseudo terminals. Every backend it creates
// publishes its events on the shared channel.
type PTYSpawner struct {
	events       chan<- Event
	historyLimit int
	env          []string
}

// NewPTYSpawner creates a spawner publishing to events.
func NewPTYSpawner(events chan<- Event, historyLimit int) *PTYSpawner {
	return &PTYSpawner{
		events:       events,
		historyLimit: historyLimit,
		env:          append(os.Environ(), "TERM=xterm-256color", "COLORTERM=truecolor"),
	}
}

// Spawn starts opts.Shell with opts.Args in opts.Dir. The process is not
// bound to ctx; ctx only aborts a spawn that has not started yet.
func (s *PTYSpawner) Spawn(ctx context.Context, opts SpawnOptions) (Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Rows <= 0 {
		opts.Rows = 24
	}
	if opts.Cols <= 0 {
		opts.Cols = 80
	}

	cmd := exec.Command(opts.Shell, opts.Args...)
	cmd.Dir = opts.Dir
	cmd.Env = s.env

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(opts.Rows), Cols: uint16(opts.Cols)})
	if err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", opts.Shell, err)
	}

	b := &ptyBackend{
		tabID:  opts.TabID,
		cmd:    cmd,
		ptmx:   ptmx,
		screen:     NewScreen(opts.Rows, opts.Cols, s.historyLimit),
		events:     s.events,
		titleReady: make(chan struct{}, 1),
		exited:     make(chan struct{}),
		closed:     make(chan struct{}),
	}
	go b.readLoop()
	go b.deliverLoop()

	ptyLog.Info("pty_started",
		slog.Uint64("tab_id", opts.TabID),
		slog.String("shell", opts.Shell),
		slog.String("dir", opts.Dir),
		slog.Int("pid", cmd.Process.Pid),
	)
	return b, nil
}

type ptyBackend struct {
	tabID  uint64
	cmd    *exec.Cmd
	ptmx   *os.File
	events chan<- Event

	mu     sync.Mutex
	screen *Screen
	// pendingTitle is the newest title not yet handed to deliverLoop.
	pendingTitle string
	hasTitle     bool

	titleReady chan struct{}
	exited     chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

// readLoop feeds PTY output into the screen. It never waits on the event
// channel: titles are coalesced and handed to deliverLoop.
func (b *ptyBackend) readLoop() {
	buf := make([]byte, readBufferSize)
	for {
		n, err := b.ptmx.Read(buf)
		if n > 0 {
			b.mu.Lock()
			titles := b.screen.Write(buf[:n])
			if len(titles) > 0 {
				b.pendingTitle = titles[len(titles)-1]
				b.hasTitle = true
			}
			b.mu.Unlock()
			if len(titles) > 0 {
				select {
				case b.titleReady <- struct{}{}:
				default:
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				ptyLog.Debug("pty_read_ended", slog.Uint64("tab_id", b.tabID), slog.String("error", err.Error()))
			}
			break
		}
	}

	exitCode := 0
	if err := b.cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
	}
	ptyLog.Info("pty_exited", slog.Uint64("tab_id", b.tabID), slog.Int("exit_code", exitCode))
	close(b.exited)
}

// deliverLoop publishes title changes and finally the exit event. Only the
// newest title is sent, and only when it differs from the last one sent.
func (b *ptyBackend) deliverLoop() {
	var last string
	var sent bool
	flush := func() {
		b.mu.Lock()
		title, ok := b.pendingTitle, b.hasTitle
		b.hasTitle = false
		b.mu.Unlock()
		if !ok || (sent && title == last) {
			return
		}
		b.publish(Event{TabID: b.tabID, Kind: EventTitle, Title: title})
		last, sent = title, true
	}
	for {
		select {
		case <-b.titleReady:
			flush()
		case <-b.exited:
			flush()
			b.publish(Event{TabID: b.tabID, Kind: EventExited})
			return
		case <-b.closed:
			return
		}
	}
}

// publish delivers ev unless the backend was closed by the workspace, in
// which case nobody is interested any more.
func (b *ptyBackend) publish(ev Event) {
	if b.events == nil {
		return
	}
	select {
	case b.events <- ev:
	case <-b.closed:
	}
}

func (b *ptyBackend) TotalLineCount() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.screen.TotalLineCount()
}

func (b *ptyBackend) IsAlternateScreen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.screen.IsAlternateScreen()
}

func (b *ptyBackend) DisplayOffset() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.screen.DisplayOffset()
}

func (b *ptyBackend) ViewportLineCount() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.screen.ViewportLineCount()
}

func (b *ptyBackend) ScrollToBottom() {
	b.mu.Lock()
	b.screen.ScrollToBottom()
	b.mu.Unlock()
}

func (b *ptyBackend) ScrollToTop() {
	b.mu.Lock()
	b.screen.ScrollToTop()
	b.mu.Unlock()
}

func (b *ptyBackend) ScrollLines(delta int) {
	b.mu.Lock()
	b.screen.ScrollLines(delta)
	b.mu.Unlock()
}

func (b *ptyBackend) DiscardHistory() {
	b.mu.Lock()
	b.screen.DiscardHistory()
	b.mu.Unlock()
}

func (b *ptyBackend) SendInput(p []byte) error {
	_, err := b.ptmx.Write(p)
	return err
}

func (b *ptyBackend) SelectedText() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.screen.Text()
}

func (b *ptyBackend) VisibleLines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.screen.VisibleLines()
}

func (b *ptyBackend) Resize(rows, cols int) error {
	b.mu.Lock()
	cur, curCols := b.screen.Size()
	if cur == rows && curCols == cols {
		b.mu.Unlock()
		return nil
	}
	b.screen.Resize(rows, cols)
	b.mu.Unlock()
	return pty.Setsize(b.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

// Close kills the process and closes the PTY. It does not wait for the read
// loop; the exit event it would publish is dropped.
func (b *ptyBackend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.closed)
		if b.cmd.Process != nil {
			_ = b.cmd.Process.Kill()
		}
		err = b.ptmx.Close()
		ptyLog.Debug("pty_closed", slog.Uint64("tab_id", b.tabID))
	})
	return err
}
