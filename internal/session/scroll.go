package session

import (
	"log/slog"

	"github.com/yaaa-term/yaaa/internal/logging"
)

var scrollLog = logging.ForComponent(logging.CompScroll)

const (
	// DefaultClearRatio is the fraction of the previous line count below
	// which a drop is treated as a screen clear.
	DefaultClearRatio = 0.1
	// DefaultBottomTolerance is how far, in layout units, the content may
	// extend below the viewport before the user counts as scrolled up.
	DefaultBottomTolerance = 10.0
	// RowHeight converts terminal rows into layout units.
	RowHeight = 16.0
)

// ScrollState is the per-buffer bookkeeping carried between frames.
type ScrollState struct {
	LastLineCount  uint64
	UserScrolledUp bool
}

// ScrollStatePair keeps separate state for the normal and alternate buffers.
type ScrollStatePair struct {
	Normal    ScrollState
	Alternate ScrollState
}

// Current returns the state for the buffer selected by alt.
func (p *ScrollStatePair) Current(alt bool) *ScrollState {
	if alt {
		return &p.Alternate
	}
	return &p.Normal
}

// Heuristic holds the tunables of the scroll-state inference.
type Heuristic struct {
	ClearRatio      float64
	BottomTolerance float64
}

func DefaultHeuristic() Heuristic {
	return Heuristic{ClearRatio: DefaultClearRatio, BottomTolerance: DefaultBottomTolerance}
}

func (h Heuristic) ratio() float64 {
	if h.ClearRatio <= 0 || h.ClearRatio >= 1 {
		return DefaultClearRatio
	}
	return h.ClearRatio
}

// DetectClear reports whether current dropped strictly below ratio of last.
// A zero last count never triggers.
func DetectClear(last, current uint64, ratio float64) bool {
	if last == 0 {
		return false
	}
	return float64(current) < float64(last)*ratio
}

// Observation is what one Observe call saw and did.
type Observation struct {
	Total        uint64
	Alternate    bool
	ModeSwitched bool
	Cleared      bool
}

// Observe runs the per-frame scroll bookkeeping for the tab. On a clear it
// snaps the backend to the bottom and drops its history.
func (t *Tab) Observe(h Heuristic) Observation {
	b := t.backend
	total := b.TotalLineCount()
	alt := b.IsAlternateScreen()

	obs := Observation{
		Total:        total,
		Alternate:    alt,
		ModeSwitched: alt != t.WasAlternateLastFrame,
		Cleared:      !alt && DetectClear(t.Scroll.Normal.LastLineCount, total, h.ratio()),
	}

	if obs.Cleared || obs.ModeSwitched {
		st := t.Scroll.Current(alt)
		st.LastLineCount = total
		st.UserScrolledUp = false

		if obs.Cleared {
			scrollLog.Debug("clear_detected",
				slog.Uint64("tab", t.ID),
				slog.Uint64("total", total))
			logging.Count(logging.CompScroll, "clear_detected")
			b.ScrollToBottom()
			b.DiscardHistory()
		}
	}

	t.Scroll.Current(alt).LastLineCount = total
	t.WasAlternateLastFrame = alt
	return obs
}

// Layout is the rendered geometry used to decide whether the user scrolled
// away from the live tail.
type Layout struct {
	ContentBottom  float64
	ViewportBottom float64
}

// LayoutFromOffset builds a Layout for a view scrolled offset rows up from
// the bottom.
func LayoutFromOffset(offset uint64, rowHeight float64) Layout {
	return Layout{ContentBottom: float64(offset) * rowHeight}
}

// UpdateScrolledUp recomputes UserScrolledUp for the normal buffer after
// layout. The alternate buffer is left alone.
func (t *Tab) UpdateScrolledUp(layout Layout, h Heuristic) {
	if t.WasAlternateLastFrame {
		return
	}
	t.Scroll.Normal.UserScrolledUp = layout.ContentBottom-layout.ViewportBottom >= h.BottomTolerance
}

// resetDisplayedScroll re-pins the buffer currently on screen.
func (t *Tab) resetDisplayedScroll() {
	alt := t.WasAlternateLastFrame
	if t.backend != nil {
		alt = t.backend.IsAlternateScreen()
	}
	t.Scroll.Current(alt).UserScrolledUp = false
}
