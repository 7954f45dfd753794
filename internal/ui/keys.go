package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap holds the workspace shortcuts. Everything else typed while the
// terminal pane has focus goes to the active tab's process, so every
// shortcut uses a modifier.
type KeyMap struct {
	NextTab     key.Binding
	PrevTab     key.Binding
	NewTerminal key.Binding
	NewAgent    key.Binding
	CloseTab    key.Binding
	NextGroup   key.Binding
	PrevGroup   key.Binding
	AddProject  key.Binding
	RenameGroup key.Binding
	RemoveGroup key.Binding
	ScrollUp    key.Binding
	ScrollDown  key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	ScrollTop   key.Binding
	ScrollEnd   key.Binding
	Copy        key.Binding
	Paste       key.Binding
	Sidebar     key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the built-in bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextTab:     key.NewBinding(key.WithKeys("alt+]"), key.WithHelp("Alt+]", "Next tab")),
		PrevTab:     key.NewBinding(key.WithKeys("alt+["), key.WithHelp("Alt+[", "Previous tab")),
		NewTerminal: key.NewBinding(key.WithKeys("alt+n"), key.WithHelp("Alt+n", "New terminal tab")),
		NewAgent:    key.NewBinding(key.WithKeys("alt+a"), key.WithHelp("Alt+a", "New agent tab")),
		CloseTab:    key.NewBinding(key.WithKeys("alt+w"), key.WithHelp("Alt+w", "Close tab")),
		NextGroup:   key.NewBinding(key.WithKeys("alt+down", "alt+j"), key.WithHelp("Alt+j", "Next group")),
		PrevGroup:   key.NewBinding(key.WithKeys("alt+up", "alt+k"), key.WithHelp("Alt+k", "Previous group")),
		AddProject:  key.NewBinding(key.WithKeys("alt+p"), key.WithHelp("Alt+p", "Add project")),
		RenameGroup: key.NewBinding(key.WithKeys("alt+r"), key.WithHelp("Alt+r", "Rename group")),
		RemoveGroup: key.NewBinding(key.WithKeys("alt+g"), key.WithHelp("Alt+g", "Remove group")),
		ScrollUp:    key.NewBinding(key.WithKeys("shift+up"), key.WithHelp("Shift+Up", "Scroll up one line")),
		ScrollDown:  key.NewBinding(key.WithKeys("shift+down"), key.WithHelp("Shift+Down", "Scroll down one line")),
		PageUp:      key.NewBinding(key.WithKeys("shift+pgup", "alt+pgup"), key.WithHelp("Shift+PgUp", "Scroll up one page")),
		PageDown:    key.NewBinding(key.WithKeys("shift+pgdown", "alt+pgdown"), key.WithHelp("Shift+PgDn", "Scroll down one page")),
		ScrollTop:   key.NewBinding(key.WithKeys("alt+u"), key.WithHelp("Alt+u", "Scroll to top")),
		ScrollEnd:   key.NewBinding(key.WithKeys("alt+d"), key.WithHelp("Alt+d", "Scroll to bottom")),
		Copy:        key.NewBinding(key.WithKeys("alt+c"), key.WithHelp("Alt+c", "Copy visible text")),
		Paste:       key.NewBinding(key.WithKeys("alt+v"), key.WithHelp("Alt+v", "Paste clipboard")),
		Sidebar:     key.NewBinding(key.WithKeys("alt+b"), key.WithHelp("Alt+b", "Toggle sidebar")),
		Help:        key.NewBinding(key.WithKeys("alt+?", "alt+h"), key.WithHelp("Alt+?", "Show hotkeys")),
		Quit:        key.NewBinding(key.WithKeys("alt+q"), key.WithHelp("Alt+q", "Quit")),
	}
}

// helpSection groups bindings for the help overlay.
type helpSection struct {
	title    string
	bindings []key.Binding
}

func (k KeyMap) sections() []helpSection {
	return []helpSection{
		{title: "TABS", bindings: []key.Binding{k.NextTab, k.PrevTab, k.NewTerminal, k.NewAgent, k.CloseTab}},
		{title: "GROUPS", bindings: []key.Binding{k.NextGroup, k.PrevGroup, k.AddProject, k.RenameGroup, k.RemoveGroup}},
		{title: "SCROLLING", bindings: []key.Binding{k.ScrollUp, k.ScrollDown, k.PageUp, k.PageDown, k.ScrollTop, k.ScrollEnd}},
		{title: "OTHER", bindings: []key.Binding{k.Copy, k.Paste, k.Sidebar, k.Help, k.Quit}},
	}
}

// keyBytes translates a key press into the bytes a terminal would send.
// It returns nil for keys with no terminal encoding.
func keyBytes(msg tea.KeyMsg) []byte {
	var out []byte
	switch msg.Type {
	case tea.KeyRunes:
		out = []byte(string(msg.Runes))
		if msg.Paste {
			return append([]byte("\x1b[200~"), append(out, []byte("\x1b[201~")...)...)
		}
	case tea.KeySpace:
		out = []byte{' '}
	case tea.KeyUp:
		out = []byte("\x1b[A")
	case tea.KeyDown:
		out = []byte("\x1b[B")
	case tea.KeyRight:
		out = []byte("\x1b[C")
	case tea.KeyLeft:
		out = []byte("\x1b[D")
	case tea.KeyHome:
		out = []byte("\x1b[H")
	case tea.KeyEnd:
		out = []byte("\x1b[F")
	case tea.KeyPgUp:
		out = []byte("\x1b[5~")
	case tea.KeyPgDown:
		out = []byte("\x1b[6~")
	case tea.KeyDelete:
		out = []byte("\x1b[3~")
	case tea.KeyInsert:
		out = []byte("\x1b[2~")
	case tea.KeyShiftTab:
		out = []byte("\x1b[Z")
	default:
		// Control keys, enter, tab, esc and backspace carry their byte value.
		if (msg.Type >= 0 && msg.Type < 0x20) || msg.Type == 0x7f {
			out = []byte{byte(msg.Type)}
		}
	}
	if out == nil {
		return nil
	}
	if msg.Alt {
		out = append([]byte{0x1b}, out...)
	}
	return out
}
