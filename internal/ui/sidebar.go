package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/yaaa-term/yaaa/internal/session"
	"github.com/yaaa-term/yaaa/internal/terminal"
)

const noActiveTabHint = "No active tab. Select a group and add a tab."

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// renderSidebar draws the group and tab list. frame drives the working
// spinner.
func renderSidebar(ws *session.Workspace, width, height, frame int) string {
	inner := max(1, width-3) // border + padding
	var lines []string
	lines = append(lines, SidebarTitleStyle.Render("PROJECTS"), "")

	activeGroup, hasGroup := ws.ActiveGroup()
	activeTab, hasTab := ws.Active()

	groups := ws.Groups()
	if len(groups) == 0 {
		lines = append(lines, SidebarHintStyle.Render(wrapText("No projects. Press Alt+p to add one.", inner)))
	}

	for _, g := range groups {
		name := runewidth.Truncate(g.Name, inner-2, "…")
		if hasGroup && g.ID == activeGroup.ID {
			lines = append(lines, GroupNameActiveStyle.Render("▾ "+name))
		} else {
			lines = append(lines, GroupNameStyle.Render("▸ "+name))
		}
		for _, id := range g.TabIDs {
			lines = append(lines, renderTabItem(ws, id, inner, hasTab && id == activeTab.ID, frame))
		}
	}

	if !hasTab {
		lines = append(lines, "", SidebarHintStyle.Render(wrapText(noActiveTabHint, inner)))
	}

	if height > 0 && len(lines) > height {
		lines = lines[:height]
	}
	content := strings.Join(lines, "\n")
	return SidebarStyle.Width(width - 1).Height(max(1, height)).Render(content)
}

func renderTabItem(ws *session.Workspace, tabID uint64, width int, active bool, frame int) string {
	label := ws.TabLabel(tabID)
	marker := " "
	if tab, ok := ws.Tab(tabID); ok {
		switch tab.Activity() {
		case terminal.ActivityWorking:
			marker = ActivityWorkingStyle.Render(spinnerFrames[frame%len(spinnerFrames)])
		case terminal.ActivityDone:
			marker = ActivityDoneStyle.Render("✓")
		}
	}
	label = runewidth.Truncate(label, max(1, width-4), "…")
	if active {
		return "  " + marker + " " + TabItemActiveStyle.Render(label)
	}
	return "  " + marker + " " + TabItemStyle.Render(label)
}

// wrapText breaks s into lines no wider than width, on spaces.
func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	var out []string
	var line string
	for _, word := range strings.Fields(s) {
		switch {
		case line == "":
			line = word
		case lipgloss.Width(line)+1+lipgloss.Width(word) <= width:
			line += " " + word
		default:
			out = append(out, line)
			line = word
		}
	}
	if line != "" {
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
