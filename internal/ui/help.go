package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpOverlay shows keyboard shortcuts in a modal
type HelpOverlay struct {
	visible      bool
	keys         KeyMap
	width        int
	height       int
	scrollOffset int // Current scroll position for small screens
}

func NewHelpOverlay(keys KeyMap) *HelpOverlay {
	return &HelpOverlay{keys: keys}
}

func (h *HelpOverlay) Show() {
	h.visible = true
	h.scrollOffset = 0
}

func (h *HelpOverlay) Hide() {
	h.visible = false
}

func (h *HelpOverlay) IsVisible() bool {
	return h.visible
}

// SetSize sets the dimensions for centering
func (h *HelpOverlay) SetSize(width, height int) {
	h.width = width
	h.height = height
}

// Update scrolls with the arrow keys; any other key closes the overlay.
func (h *HelpOverlay) Update(msg tea.KeyMsg) *HelpOverlay {
	if !h.visible {
		return h
	}
	switch msg.String() {
	case "down", "j":
		h.scrollOffset++
	case "up", "k":
		if h.scrollOffset > 0 {
			h.scrollOffset--
		}
	default:
		h.Hide()
	}
	return h
}

func (h *HelpOverlay) lines() []string {
	var lines []string
	for i, sec := range h.keys.sections() {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, HelpSectionStyle.Render(sec.title))
		for _, b := range sec.bindings {
			hb := b.Help()
			lines = append(lines, "  "+HelpKeyStyle.Render(padRight(hb.Key, 12))+HelpDescStyle.Render(hb.Desc))
		}
	}
	return lines
}

// View renders the help overlay
func (h *HelpOverlay) View() string {
	if !h.visible {
		return ""
	}

	lines := h.lines()
	// Leave room for the border, padding, title and footer.
	maxBody := len(lines)
	if h.height > 0 {
		maxBody = max(3, h.height-8)
	}
	maxOffset := max(0, len(lines)-maxBody)
	h.scrollOffset = min(h.scrollOffset, maxOffset)
	body := lines[h.scrollOffset:min(len(lines), h.scrollOffset+maxBody)]

	footer := DimStyle.Render("Any other key closes")
	if maxOffset > 0 {
		footer = DimStyle.Render("Up/Down scroll · any other key closes")
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		DialogTitleStyle.Render("Hotkeys"),
		strings.Join(body, "\n"),
		"",
		footer,
	)
	return centerOverlay(DialogBoxStyle.Render(content), h.width, h.height)
}

func padRight(s string, n int) string {
	if w := lipgloss.Width(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}
