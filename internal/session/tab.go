package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/yaaa-term/yaaa/internal/logging"
	"github.com/yaaa-term/yaaa/internal/platform"
	"github.com/yaaa-term/yaaa/internal/terminal"
)

var sessionLog = logging.ForComponent(logging.CompSession)

// TabSpec is everything needed to start a tab's process. Building one does
// not touch the OS, so it can be prepared on the UI goroutine and spawned
// elsewhere.
type TabSpec struct {
	ID         uint64
	Kind       Kind
	Dir        string
	Command    string
	LoginShell bool
	Rows       int
	Cols       int
	Env        ShellEnv
}

// Tab is one running shell or agent process and its display bookkeeping.
type Tab struct {
	ID    uint64
	Kind  Kind
	Title string
	// Shell is the executable that was actually spawned.
	Shell string

	Scroll                ScrollStatePair
	WasAlternateLastFrame bool
	JustCreated           bool

	backend terminal.Backend
}

func defaultTitle(id uint64) string {
	return "tab: " + strconv.FormatUint(id, 10)
}

// NewTab resolves the shell for spec and spawns it. A failed spawn of a
// non-default shell is retried once with the default shell; if that fails
// too the returned error wraps ErrFatalSpawn. No tab is returned on error.
func NewTab(ctx context.Context, spec TabSpec, spawner terminal.Spawner, probe Prober) (*Tab, error) {
	shell := ResolveShell(spec.Command, spec.Kind, probe, spec.Env)
	def := spec.Env.defaultShell()

	backend, err := spawner.Spawn(ctx, spawnOptions(spec, shell))
	if err != nil {
		if shell == def || ctx.Err() != nil {
			return nil, fatalSpawn(spec.ID, shell, err)
		}
		sessionLog.Warn("spawn_failed_retrying_default",
			slog.Uint64("tab", spec.ID),
			slog.String("shell", shell),
			slog.String("default", def),
			slog.String("error", err.Error()))

		shell = def
		backend, err = spawner.Spawn(ctx, spawnOptions(spec, shell))
		if err != nil {
			return nil, fatalSpawn(spec.ID, shell, err)
		}
	}

	sessionLog.Info("tab_spawned",
		slog.Uint64("tab", spec.ID),
		slog.String("kind", spec.Kind.String()),
		slog.String("shell", shell),
		slog.String("dir", spec.Dir))

	return &Tab{
		ID:          spec.ID,
		Kind:        spec.Kind,
		Title:       defaultTitle(spec.ID),
		Shell:       shell,
		JustCreated: true,
		backend:     backend,
	}, nil
}

func spawnOptions(spec TabSpec, shell string) terminal.SpawnOptions {
	var args []string
	if spec.LoginShell {
		args = platform.LoginArgs(shell)
	}
	return terminal.SpawnOptions{
		TabID: spec.ID,
		Shell: shell,
		Args:  args,
		Dir:   spec.Dir,
		Rows:  spec.Rows,
		Cols:  spec.Cols,
	}
}

func fatalSpawn(id uint64, shell string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("spawn tab %d: %w", id, err)
	}
	sessionLog.Error("spawn_fatal",
		slog.Uint64("tab", id),
		slog.String("shell", shell),
		slog.String("error", err.Error()))
	return fmt.Errorf("%w: tab %d with %s: %v", ErrFatalSpawn, id, shell, err)
}

// Backend returns the live terminal handle.
func (t *Tab) Backend() terminal.Backend {
	return t.backend
}

// Activity reports what an agent's terminal title says it is doing.
func (t *Tab) Activity() terminal.Activity {
	return terminal.AnalyzeTitle(t.Title)
}

// ConsumeJustCreated reports whether this is the tab's first rendered frame
// and clears the flag.
func (t *Tab) ConsumeJustCreated() bool {
	if !t.JustCreated {
		return false
	}
	t.JustCreated = false
	return true
}

// Close releases the backend. It does not wait for the process to exit.
func (t *Tab) Close() error {
	if t.backend == nil {
		return nil
	}
	return t.backend.Close()
}
