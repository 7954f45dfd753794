package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugLine(t *testing.T) {
	th := newTestHome(t)
	th.addProject(t, t.TempDir())
	tab, ok := th.ws.Active()
	require.True(t, ok)
	b := th.activeBackend(t)

	tests := []struct {
		name   string
		total  uint64
		offset uint64
		want   string
	}{
		{"at bottom", 100, 0, "Lines: 100 | Top: 76 | Bottom: 99 | View: 24"},
		{"scrolled", 100, 10, "Lines: 100 | Top: 66 | Bottom: 89 | View: 24"},
		{"short history", 10, 0, "Lines: 10 | Top: 0 | Bottom: 9 | View: 24"},
		{"empty", 0, 0, "Lines: 0 | Top: 0 | Bottom: 0 | View: 24"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b.total, b.offset = tt.total, tt.offset
			assert.Equal(t, tt.want, debugLine(tab))
		})
	}
}

func TestPaneLinesPadsAndTruncates(t *testing.T) {
	th := newTestHome(t)
	th.addProject(t, t.TempDir())
	tab, _ := th.ws.Active()
	b := th.activeBackend(t)
	b.lines = []string{"one", "two", "a very long line indeed"}

	lines := paneLines(tab, 6, 5)
	require.Len(t, lines, 5)
	assert.Equal(t, "one", lines[0])
	assert.Equal(t, "a very", lines[2])
	assert.Empty(t, lines[4])

	lines = paneLines(tab, 10, 2)
	assert.Equal(t, []string{"two", "a very lon"}, lines)
}

func TestRenderPaneFooter(t *testing.T) {
	th := newTestHome(t)
	th.addProject(t, t.TempDir())
	tab, _ := th.ws.Active()

	out := renderPane(tab, "1. Terminal", paneView{width: 80, height: 10, showFPS: true, fps: 30})
	assert.Contains(t, out, "FPS: 30")
	assert.NotContains(t, out, "Lines:")
	assert.Len(t, strings.Split(out, "\n"), 10)

	out = renderPane(nil, "", paneView{width: 80, height: 10})
	assert.Contains(t, out, noActiveTabHint)
}

func TestSidebarActivityMarkers(t *testing.T) {
	th := newTestHome(t)
	th.addProject(t, t.TempDir())
	tab, _ := th.ws.Active()

	tab.Title = "⠹ Editing files"
	out := renderSidebar(th.ws, SidebarWidth, 30, 2)
	assert.Contains(t, out, spinnerFrames[2])

	tab.Title = "✳ Task complete"
	out = renderSidebar(th.ws, SidebarWidth, 30, 0)
	assert.Contains(t, out, "✓")

	tab.Title = "zsh"
	out = renderSidebar(th.ws, SidebarWidth, 30, 0)
	assert.NotContains(t, out, "✓")
	assert.NotContains(t, out, spinnerFrames[0])
}

func TestPaneBodySize(t *testing.T) {
	rows, cols := paneBodySize(80, 20, false)
	assert.Equal(t, 19, rows)
	assert.Equal(t, 80, cols)

	rows, _ = paneBodySize(80, 20, true)
	assert.Equal(t, 18, rows)

	rows, cols = paneBodySize(0, 0, true)
	assert.Equal(t, 1, rows)
	assert.Equal(t, 1, cols)
}
