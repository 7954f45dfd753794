// Package terminal holds the process side of a tab: spawning a shell on a
// PTY, keeping its output as scrollback lines, and reporting exit and title
// changes back to the workspace.
package terminal

import "context"

// Backend is a running terminal session as seen by the workspace.
type Backend interface {
	// TotalLineCount is the number of lines in the active buffer, history included.
	TotalLineCount() uint64
	IsAlternateScreen() bool
	// DisplayOffset is how many lines the view is scrolled up from the bottom.
	DisplayOffset() uint64
	ViewportLineCount() uint64

	ScrollToBottom()
	ScrollToTop()
	// ScrollLines scrolls by delta lines; positive moves toward history.
	ScrollLines(delta int)
	// DiscardHistory drops every line above the viewport.
	DiscardHistory()

	SendInput(p []byte) error
	SelectedText() string
	VisibleLines() []string
	Resize(rows, cols int) error

	// Close kills the process and releases the PTY without waiting.
	Close() error
}

// SpawnOptions describes the process to start for a tab.
type SpawnOptions struct {
	TabID uint64
	Shell string
	Args  []string
	Dir   string
	Rows  int
	Cols  int
}

// Spawner starts backends.
type Spawner interface {
	Spawn(ctx context.Context, opts SpawnOptions) (Backend, error)
}

// EventKind discriminates backend events.
type EventKind int

const (
	EventExited EventKind = iota
	EventTitle
)

func (k EventKind) String() string {
	switch k {
	case EventExited:
		return "exited"
	case EventTitle:
		return "title"
	default:
		return "unknown"
	}
}

// Event is published by a backend and consumed by the workspace router.
type Event struct {
	TabID uint64
	Kind  EventKind
	Title string
}
