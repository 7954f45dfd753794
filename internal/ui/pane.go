package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/yaaa-term/yaaa/internal/session"
)

// paneLines returns the backend's visible lines cut to width and padded
// to exactly height rows.
func paneLines(tab *session.Tab, width, height int) []string {
	if height <= 0 {
		return nil
	}
	var src []string
	if b := tab.Backend(); b != nil {
		src = b.VisibleLines()
	}
	if len(src) > height {
		src = src[len(src)-height:]
	}
	out := make([]string, height)
	for i := range out {
		if i < len(src) {
			out[i] = ansi.Truncate(src[i], width, "")
		}
	}
	return out
}

// debugLine summarizes the scroll position of the tab.
// Top and Bottom are the first and last visible line numbers.
func debugLine(tab *session.Tab) string {
	b := tab.Backend()
	if b == nil {
		return ""
	}
	total := b.TotalLineCount()
	view := b.ViewportLineCount()
	offset := b.DisplayOffset()
	var top, bottom uint64
	if total > 0 {
		if end := total - min(total, offset); end > 0 {
			bottom = end - 1
		}
		if bottom+1 > view {
			top = bottom + 1 - view
		}
	}
	return fmt.Sprintf("Lines: %d | Top: %d | Bottom: %d | View: %d", total, top, bottom, view)
}

// paneView is everything renderPane needs beyond the tab.
type paneView struct {
	width     int
	height    int
	showLines bool
	showFPS   bool
	fps       float64
}

// renderPane draws the header, the terminal body and the optional debug line.
func renderPane(tab *session.Tab, label string, v paneView) string {
	if v.width <= 0 || v.height <= 0 {
		return ""
	}
	if tab == nil {
		body := PaneEmptyStyle.Render(noActiveTabHint)
		return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center, body)
	}

	header := label + "  " + tab.Title
	if tab.Scroll.Current(tab.WasAlternateLastFrame).UserScrolledUp {
		badge := ScrolledBadgeStyle.Render("SCROLLED")
		header = ansi.Truncate(header, max(0, v.width-lipgloss.Width(badge)-3), "…")
		header = PaneHeaderStyle.Render(header) + " " + badge
	} else {
		header = PaneHeaderStyle.Render(ansi.Truncate(header, max(0, v.width-2), "…"))
	}

	var footer string
	if v.showLines || v.showFPS {
		var parts []string
		if v.showLines {
			parts = append(parts, debugLine(tab))
		}
		if v.showFPS {
			parts = append(parts, fmt.Sprintf("FPS: %.0f", v.fps))
		}
		footer = DebugLineStyle.Width(v.width).Render(ansi.Truncate(strings.Join(parts, " | "), v.width, ""))
	}

	bodyHeight := v.height - 1
	if footer != "" {
		bodyHeight--
	}
	lines := []string{header}
	lines = append(lines, paneLines(tab, v.width, bodyHeight)...)
	if footer != "" {
		lines = append(lines, footer)
	}
	return strings.Join(lines, "\n")
}

// paneBodySize is the terminal grid size left for a pane of the given
// outer size.
func paneBodySize(width, height int, showDebug bool) (rows, cols int) {
	rows = height - 1
	if showDebug {
		rows--
	}
	return max(1, rows), max(1, width)
}

// fpsCounter measures frames per second over a sliding one second window.
type fpsCounter struct {
	frames []time.Time
}

func (f *fpsCounter) frame(now time.Time) {
	f.frames = append(f.frames, now)
	cutoff := now.Add(-time.Second)
	i := 0
	for i < len(f.frames) && !f.frames[i].After(cutoff) {
		i++
	}
	f.frames = f.frames[i:]
}

func (f *fpsCounter) rate() float64 {
	return float64(len(f.frames))
}
