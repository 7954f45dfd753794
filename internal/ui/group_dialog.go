package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/yaaa-term/yaaa/internal/session"
)

// GroupDialogMode represents the dialog mode
type GroupDialogMode int

const (
	GroupDialogAddProject GroupDialogMode = iota
	GroupDialogRename
)

// maxRecentShown limits the suggestion list in the add-project dialog.
const maxRecentShown = 8

// GroupDialogResult is what the user submitted.
type GroupDialogResult struct {
	Mode    GroupDialogMode
	GroupID uint64
	Value   string
}

// GroupDialog handles adding a project directory as a group and renaming
// an existing group.
type GroupDialog struct {
	visible       bool
	mode          GroupDialogMode
	input         textinput.Model
	groupID       uint64
	recent        *session.RecentProjects
	matches       []session.RecentProject
	selected      int // -1 means the typed text
	validationErr string
	width         int
	height        int
}

func NewGroupDialog() *GroupDialog {
	ti := textinput.New()
	ti.CharLimit = 4096
	ti.Width = 48
	return &GroupDialog{input: ti, selected: -1}
}

// ShowAddProject opens the dialog with a path prompt and the recent
// projects list.
func (g *GroupDialog) ShowAddProject(recent *session.RecentProjects, initial string) {
	g.visible = true
	g.mode = GroupDialogAddProject
	g.recent = recent
	g.validationErr = ""
	g.input.Placeholder = "Project directory"
	g.input.CharLimit = 4096
	g.input.SetValue(initial)
	g.input.CursorEnd()
	g.input.Focus()
	g.refilter()
}

// ShowRename opens the dialog prefilled with the group's current name.
func (g *GroupDialog) ShowRename(groupID uint64, name string) {
	g.visible = true
	g.mode = GroupDialogRename
	g.groupID = groupID
	g.recent = nil
	g.matches = nil
	g.selected = -1
	g.validationErr = ""
	g.input.Placeholder = "Group name"
	g.input.CharLimit = MaxNameLength
	g.input.SetValue(name)
	g.input.CursorEnd()
	g.input.Focus()
}

func (g *GroupDialog) Hide() {
	g.visible = false
	g.input.Blur()
}

func (g *GroupDialog) IsVisible() bool {
	return g.visible
}

func (g *GroupDialog) Mode() GroupDialogMode {
	return g.mode
}

func (g *GroupDialog) SetSize(width, height int) {
	g.width = width
	g.height = height
}

func (g *GroupDialog) refilter() {
	g.selected = -1
	if g.recent == nil {
		g.matches = nil
		return
	}
	g.matches = g.recent.Filter(strings.TrimSpace(g.input.Value()))
	if len(g.matches) > maxRecentShown {
		g.matches = g.matches[:maxRecentShown]
	}
}

// Validate checks the current value and returns an error message or "".
func (g *GroupDialog) Validate() string {
	value := strings.TrimSpace(g.value())
	switch g.mode {
	case GroupDialogRename:
		if value == "" {
			return "Name cannot be empty"
		}
	case GroupDialogAddProject:
		if value == "" {
			return "Enter a directory"
		}
	}
	return ""
}

func (g *GroupDialog) value() string {
	if g.selected >= 0 && g.selected < len(g.matches) {
		return g.matches[g.selected].Path
	}
	return g.input.Value()
}

// Update handles a key. It returns a result when the user submitted a
// valid value.
func (g *GroupDialog) Update(msg tea.KeyMsg) (*GroupDialogResult, tea.Cmd) {
	if !g.visible {
		return nil, nil
	}
	switch msg.String() {
	case "esc":
		g.Hide()
		return nil, nil
	case "enter":
		if errMsg := g.Validate(); errMsg != "" {
			g.validationErr = errMsg
			return nil, nil
		}
		res := &GroupDialogResult{Mode: g.mode, GroupID: g.groupID, Value: strings.TrimSpace(g.value())}
		g.Hide()
		return res, nil
	case "down", "ctrl+n":
		if len(g.matches) > 0 {
			g.selected = min(g.selected+1, len(g.matches)-1)
		}
		return nil, nil
	case "up", "ctrl+p":
		if g.selected >= 0 {
			g.selected--
		}
		return nil, nil
	case "tab":
		if g.selected >= 0 && g.selected < len(g.matches) {
			g.input.SetValue(g.matches[g.selected].Path)
			g.input.CursorEnd()
			g.refilter()
		}
		return nil, nil
	}

	before := g.input.Value()
	var cmd tea.Cmd
	g.input, cmd = g.input.Update(msg)
	if g.input.Value() != before {
		g.validationErr = ""
		if g.mode == GroupDialogAddProject {
			g.refilter()
		}
	}
	return nil, cmd
}

func (g *GroupDialog) View() string {
	if !g.visible {
		return ""
	}

	title := "Add project"
	if g.mode == GroupDialogRename {
		title = "Rename group"
	}

	parts := []string{DialogTitleStyle.Render(title), g.input.View()}
	if g.validationErr != "" {
		parts = append(parts, ErrorStyle.Render(g.validationErr))
	}

	if g.mode == GroupDialogAddProject && len(g.matches) > 0 {
		parts = append(parts, "", DimStyle.Render("Recent projects"))
		width := max(20, g.input.Width)
		for i, m := range g.matches {
			line := runewidth.Truncate(m.Path, width, "…")
			if i == g.selected {
				parts = append(parts, DialogSelectedStyle.Render("› "+line))
			} else {
				parts = append(parts, DialogItemStyle.Render("  "+line))
			}
		}
	}

	hint := "Enter confirm · Esc cancel"
	if g.mode == GroupDialogAddProject {
		hint = "Enter open · Up/Down recent · Tab complete · Esc cancel"
	}
	parts = append(parts, "", DimStyle.Render(hint))

	box := DialogBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
	return centerOverlay(box, g.width, g.height)
}
