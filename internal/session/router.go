package session

import (
	"log/slog"

	"github.com/yaaa-term/yaaa/internal/logging"
	"github.com/yaaa-term/yaaa/internal/terminal"
)

// DefaultDrainBudget is how many backend events are applied per frame.
const DefaultDrainBudget = 1

// Router applies backend events to the workspace. Backends publish on a
// shared channel; the UI goroutine drains it once per frame.
type Router struct {
	events <-chan terminal.Event
}

func NewRouter(events <-chan terminal.Event) *Router {
	return &Router{events: events}
}

// Drain applies at most budget pending events without blocking and returns
// how many were taken off the channel. A budget below one means one.
func (r *Router) Drain(ws *Workspace, budget int) int {
	if budget <= 0 {
		budget = DefaultDrainBudget
	}
	n := 0
	for n < budget {
		select {
		case ev, ok := <-r.events:
			if !ok {
				return n
			}
			n++
			r.apply(ws, ev)
		default:
			return n
		}
	}
	return n
}

func (r *Router) apply(ws *Workspace, ev terminal.Event) {
	if _, ok := ws.Tab(ev.TabID); !ok {
		sessionLog.Debug("event_for_unknown_tab",
			slog.Uint64("tab", ev.TabID),
			slog.String("kind", ev.Kind.String()))
		return
	}
	logging.Count(logging.CompSession, "event_"+ev.Kind.String())

	switch ev.Kind {
	case terminal.EventExited:
		sessionLog.Info("tab_exited", slog.Uint64("tab", ev.TabID))
		_ = ws.RemoveTab(ev.TabID)
	case terminal.EventTitle:
		_ = ws.SetTitle(ev.TabID, ev.Title)
	}
}
