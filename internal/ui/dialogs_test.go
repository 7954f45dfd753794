package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yaaa-term/yaaa/internal/session"
)

func TestGroupDialogRenameValidation(t *testing.T) {
	d := NewGroupDialog()
	d.ShowRename(7, "old")
	d.input.SetValue("   ")

	res, _ := d.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if res != nil {
		t.Fatal("empty name should not submit")
	}
	if !d.IsVisible() || !strings.Contains(d.View(), "cannot be empty") {
		t.Error("dialog should stay open with a validation error")
	}

	d.input.SetValue("  new name ")
	res, _ = d.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if res == nil || res.GroupID != 7 || res.Value != "new name" || res.Mode != GroupDialogRename {
		t.Errorf("result = %+v", res)
	}
	if d.IsVisible() {
		t.Error("submit should close the dialog")
	}
}

func TestGroupDialogEscCancels(t *testing.T) {
	d := NewGroupDialog()
	d.ShowRename(1, "x")
	res, _ := d.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if res != nil || d.IsVisible() {
		t.Error("esc should close without a result")
	}
}

func TestGroupDialogRecentSelection(t *testing.T) {
	recent := session.NewRecentProjects([]session.RecentProject{
		{Name: "api", Path: "/src/api"},
		{Name: "web", Path: "/src/web"},
		{Name: "docs", Path: "/home/docs"},
	}, nil)

	d := NewGroupDialog()
	d.ShowAddProject(recent, "")
	if len(d.matches) != 3 {
		t.Fatalf("empty query should list every recent project, got %d", len(d.matches))
	}

	d.input.SetValue("src")
	d.refilter()
	if len(d.matches) != 2 {
		t.Fatalf("matches for src = %d, want 2", len(d.matches))
	}

	d.Update(tea.KeyMsg{Type: tea.KeyDown})
	res, _ := d.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if res == nil || !strings.HasPrefix(res.Value, "/src/") {
		t.Errorf("selected recent project should be submitted, got %+v", res)
	}
}

func TestGroupDialogTabCompletes(t *testing.T) {
	recent := session.NewRecentProjects([]session.RecentProject{{Name: "api", Path: "/src/api"}}, nil)
	d := NewGroupDialog()
	d.ShowAddProject(recent, "")

	d.Update(tea.KeyMsg{Type: tea.KeyDown})
	d.Update(tea.KeyMsg{Type: tea.KeyTab})
	if d.input.Value() != "/src/api" {
		t.Errorf("tab should copy the selection into the input, got %q", d.input.Value())
	}
	if d.selected != -1 {
		t.Error("completion should reset the selection")
	}
}

func TestConfirmDialog(t *testing.T) {
	c := NewConfirmDialog()
	c.ShowRemoveGroup(3, "api", 2)
	if !strings.Contains(c.View(), `"api"`) {
		t.Error("view should name the group")
	}

	ok, id := c.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	if ok || !c.IsVisible() {
		t.Error("unrelated keys should keep the dialog open")
	}
	ok, id = c.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	if !ok || id != 3 || c.IsVisible() {
		t.Errorf("y should confirm group 3, got ok=%v id=%d", ok, id)
	}
}

func TestHelpOverlayScroll(t *testing.T) {
	h := NewHelpOverlay(DefaultKeyMap())
	h.SetSize(80, 12)
	h.Show()

	h.Update(tea.KeyMsg{Type: tea.KeyDown})
	if h.scrollOffset != 1 || !h.IsVisible() {
		t.Error("down should scroll")
	}
	view := h.View()
	if !strings.Contains(view, "scroll") {
		t.Error("small screens should show the scroll hint")
	}

	h.Update(tea.KeyMsg{Type: tea.KeyUp})
	h.Update(tea.KeyMsg{Type: tea.KeyUp})
	if h.scrollOffset != 0 {
		t.Errorf("offset = %d, want 0", h.scrollOffset)
	}
}

func TestFPSCounter(t *testing.T) {
	var f fpsCounter
	now := time.Unix(100, 0)
	for i := 0; i < 30; i++ {
		f.frame(now.Add(time.Duration(i) * 33 * time.Millisecond))
	}
	if got := f.rate(); got < 29 || got > 30 {
		t.Errorf("rate = %v, want about 30", got)
	}
	f.frame(now.Add(5 * time.Second))
	if got := f.rate(); got != 1 {
		t.Errorf("rate after a pause = %v, want 1", got)
	}
}
