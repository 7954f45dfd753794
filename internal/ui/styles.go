package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme represents the current color scheme
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

var currentTheme = ThemeDark

type palette struct {
	Bg, Surface, Border, Text, TextDim  lipgloss.Color
	Accent, Purple, Cyan, Green, Yellow lipgloss.Color
	Orange, Red                         lipgloss.Color
}

// Dark Theme - Tokyo Night
var darkColors = palette{
	Bg:      lipgloss.Color("#1a1b26"),
	Surface: lipgloss.Color("#24283b"),
	Border:  lipgloss.Color("#414868"),
	Text:    lipgloss.Color("#c0caf5"),
	TextDim: lipgloss.Color("#787fa0"),
	Accent:  lipgloss.Color("#7aa2f7"),
	Purple:  lipgloss.Color("#bb9af7"),
	Cyan:    lipgloss.Color("#7dcfff"),
	Green:   lipgloss.Color("#9ece6a"),
	Yellow:  lipgloss.Color("#e0af68"),
	Orange:  lipgloss.Color("#ff9e64"),
	Red:     lipgloss.Color("#f7768e"),
}

// Light Theme - Tokyo Night Light variant
var lightColors = palette{
	Bg:      lipgloss.Color("#d5d6db"),
	Surface: lipgloss.Color("#e9e9ec"),
	Border:  lipgloss.Color("#9699a3"),
	Text:    lipgloss.Color("#343b58"),
	TextDim: lipgloss.Color("#6a6d7c"),
	Accent:  lipgloss.Color("#34548a"),
	Purple:  lipgloss.Color("#7847bd"),
	Cyan:    lipgloss.Color("#166775"),
	Green:   lipgloss.Color("#485e30"),
	Yellow:  lipgloss.Color("#8f5e15"),
	Orange:  lipgloss.Color("#965027"),
	Red:     lipgloss.Color("#8c4351"),
}

// Active colors, set by InitTheme.
var colors palette

// InitTheme sets the active palette. Anything but "light" is dark.
// Must be called before any UI rendering.
func InitTheme(theme string) {
	if theme == string(ThemeLight) {
		currentTheme = ThemeLight
		colors = lightColors
	} else {
		currentTheme = ThemeDark
		colors = darkColors
	}
	initStyles()
}

// CurrentTheme returns the active theme.
func CurrentTheme() Theme {
	return currentTheme
}

func init() {
	InitTheme(string(ThemeDark))
}

var (
	DimStyle     lipgloss.Style
	ErrorStyle   lipgloss.Style
	SuccessStyle lipgloss.Style
	WarningStyle lipgloss.Style
)

// Sidebar
var (
	SidebarStyle          lipgloss.Style
	SidebarTitleStyle     lipgloss.Style
	GroupNameStyle        lipgloss.Style
	GroupNameActiveStyle  lipgloss.Style
	TabItemStyle          lipgloss.Style
	TabItemActiveStyle    lipgloss.Style
	ActivityWorkingStyle  lipgloss.Style
	ActivityDoneStyle     lipgloss.Style
	SidebarHintStyle      lipgloss.Style
	SidebarSelectionStyle lipgloss.Style
)

// Terminal pane and status bar
var (
	PaneHeaderStyle    lipgloss.Style
	PaneEmptyStyle     lipgloss.Style
	StatusBarStyle     lipgloss.Style
	StatusKeyStyle     lipgloss.Style
	DebugLineStyle     lipgloss.Style
	ScrolledBadgeStyle lipgloss.Style
)

// Dialogs
var (
	DialogBoxStyle      lipgloss.Style
	DialogTitleStyle    lipgloss.Style
	DialogItemStyle     lipgloss.Style
	DialogSelectedStyle lipgloss.Style
	HelpKeyStyle        lipgloss.Style
	HelpDescStyle       lipgloss.Style
	HelpSectionStyle    lipgloss.Style
)

// MaxNameLength caps group names typed into dialogs.
const MaxNameLength = 50

// SidebarWidth is the sidebar's width including its border.
const SidebarWidth = 28

// initStyles rebuilds every style from the active palette.
func initStyles() {
	DimStyle = lipgloss.NewStyle().Foreground(colors.TextDim)
	ErrorStyle = lipgloss.NewStyle().Foreground(colors.Red).Bold(true)
	SuccessStyle = lipgloss.NewStyle().Foreground(colors.Green).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(colors.Yellow).Bold(true)

	SidebarStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder(), false, true, false, false).
		BorderForeground(colors.Border).
		Padding(0, 1)
	SidebarTitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(colors.Accent)
	GroupNameStyle = lipgloss.NewStyle().
		Foreground(colors.Text).
		Bold(true)
	GroupNameActiveStyle = lipgloss.NewStyle().
		Foreground(colors.Cyan).
		Bold(true)
	TabItemStyle = lipgloss.NewStyle().
		Foreground(colors.TextDim)
	TabItemActiveStyle = lipgloss.NewStyle().
		Foreground(colors.Bg).
		Background(colors.Accent).
		Bold(true)
	ActivityWorkingStyle = lipgloss.NewStyle().Foreground(colors.Yellow)
	ActivityDoneStyle = lipgloss.NewStyle().Foreground(colors.Green)
	SidebarHintStyle = lipgloss.NewStyle().
		Foreground(colors.TextDim).
		Italic(true)
	SidebarSelectionStyle = lipgloss.NewStyle().Foreground(colors.Purple)

	PaneHeaderStyle = lipgloss.NewStyle().
		Foreground(colors.Accent).
		Background(colors.Surface).
		Bold(true).
		Padding(0, 1)
	PaneEmptyStyle = lipgloss.NewStyle().
		Foreground(colors.TextDim).
		Italic(true)
	StatusBarStyle = lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface).
		Padding(0, 1)
	StatusKeyStyle = lipgloss.NewStyle().
		Foreground(colors.Accent).
		Background(colors.Surface).
		Bold(true)
	DebugLineStyle = lipgloss.NewStyle().
		Foreground(colors.Orange).
		Background(colors.Surface)
	ScrolledBadgeStyle = lipgloss.NewStyle().
		Foreground(colors.Bg).
		Background(colors.Yellow).
		Padding(0, 1)

	DialogBoxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colors.Accent).
		Padding(1, 2)
	DialogTitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(colors.Accent).
		MarginBottom(1)
	DialogItemStyle = lipgloss.NewStyle().Foreground(colors.Text)
	DialogSelectedStyle = lipgloss.NewStyle().
		Foreground(colors.Bg).
		Background(colors.Purple)
	HelpKeyStyle = lipgloss.NewStyle().
		Foreground(colors.Cyan).
		Bold(true)
	HelpDescStyle = lipgloss.NewStyle().Foreground(colors.Text)
	HelpSectionStyle = lipgloss.NewStyle().
		Foreground(colors.Purple).
		Bold(true)
}

// centerOverlay places a rendered box in the middle of a width x height
// area.
func centerOverlay(box string, width, height int) string {
	if width <= 0 || height <= 0 {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
