package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ConfirmDialog asks before removing a group and killing its tabs.
type ConfirmDialog struct {
	visible   bool
	groupID   uint64
	groupName string
	tabCount  int
	width     int
	height    int
}

func NewConfirmDialog() *ConfirmDialog {
	return &ConfirmDialog{}
}

// ShowRemoveGroup opens the dialog for a group.
func (c *ConfirmDialog) ShowRemoveGroup(groupID uint64, name string, tabCount int) {
	c.visible = true
	c.groupID = groupID
	c.groupName = name
	c.tabCount = tabCount
}

func (c *ConfirmDialog) Hide() {
	c.visible = false
}

func (c *ConfirmDialog) IsVisible() bool {
	return c.visible
}

func (c *ConfirmDialog) SetSize(width, height int) {
	c.width = width
	c.height = height
}

// Update handles y/n/enter/esc. It reports whether the user confirmed and
// the group the answer applies to.
func (c *ConfirmDialog) Update(msg tea.KeyMsg) (confirmed bool, groupID uint64) {
	switch msg.String() {
	case "y", "Y", "enter":
		c.Hide()
		return true, c.groupID
	case "n", "N", "esc":
		c.Hide()
	}
	return false, c.groupID
}

func (c *ConfirmDialog) View() string {
	if !c.visible {
		return ""
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(colors.Red).MarginBottom(1).
		Render("Remove group?")
	warning := lipgloss.NewStyle().Foreground(colors.Yellow).MarginBottom(1).
		Render(fmt.Sprintf("%q and its %d tab(s) will be closed.", c.groupName, c.tabCount))

	yes := lipgloss.NewStyle().Foreground(colors.Bg).Background(colors.Red).Padding(0, 2).Bold(true).
		Render("y Remove")
	no := lipgloss.NewStyle().Foreground(colors.Bg).Background(colors.Accent).Padding(0, 2).Bold(true).
		Render("n Cancel")
	buttons := lipgloss.JoinHorizontal(lipgloss.Center, yes, "  ", no, "  ", DimStyle.Render("(Esc to cancel)"))

	box := DialogBoxStyle.BorderForeground(colors.Red).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, warning, "", buttons),
	)
	return centerOverlay(box, c.width, c.height)
}
