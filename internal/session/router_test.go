package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaaa-term/yaaa/internal/terminal"
)

func TestRouterDrainsOnePerTickByDefault(t *testing.T) {
	ws := newTestWorkspace(newFakeSpawner())
	gid := ws.CreateGroup("/a")
	a := mustTab(t, ws, gid, KindTerminal)
	b := mustTab(t, ws, gid, KindTerminal)

	events := make(chan terminal.Event, 8)
	events <- terminal.Event{TabID: a, Kind: terminal.EventTitle, Title: "htop"}
	events <- terminal.Event{TabID: b, Kind: terminal.EventExited}
	r := NewRouter(events)

	assert.Equal(t, 1, r.Drain(ws, 0))
	ta, _ := ws.Tab(a)
	assert.Equal(t, "htop", ta.Title)
	_, ok := ws.Tab(b)
	assert.True(t, ok, "second event waits for the next tick")

	assert.Equal(t, 1, r.Drain(ws, 1))
	_, ok = ws.Tab(b)
	assert.False(t, ok)

	assert.Equal(t, 0, r.Drain(ws, 1), "empty channel does not block")
}

func TestRouterBudget(t *testing.T) {
	ws := newTestWorkspace(newFakeSpawner())
	gid := ws.CreateGroup("/a")
	ids := []uint64{mustTab(t, ws, gid, KindTerminal), mustTab(t, ws, gid, KindTerminal), mustTab(t, ws, gid, KindTerminal)}

	events := make(chan terminal.Event, 8)
	for _, id := range ids {
		events <- terminal.Event{TabID: id, Kind: terminal.EventExited}
	}
	r := NewRouter(events)

	assert.Equal(t, 2, r.Drain(ws, 2))
	assert.Equal(t, 1, ws.TabCount())
	assert.Equal(t, 1, r.Drain(ws, 10))
	assert.Equal(t, 0, ws.TabCount())
	assert.Empty(t, ws.Groups(), "last exit cascades to the group")
}

func TestRouterIgnoresUnknownTabs(t *testing.T) {
	ws := newTestWorkspace(newFakeSpawner())
	gid := ws.CreateGroup("/a")
	a := mustTab(t, ws, gid, KindTerminal)

	events := make(chan terminal.Event, 4)
	events <- terminal.Event{TabID: 99, Kind: terminal.EventExited}
	events <- terminal.Event{TabID: 98, Kind: terminal.EventTitle, Title: "x"}
	r := NewRouter(events)

	assert.Equal(t, 2, r.Drain(ws, 5))
	_, ok := ws.Tab(a)
	require.True(t, ok)
	assert.Equal(t, 1, ws.TabCount())
}

func TestRouterClosedChannel(t *testing.T) {
	ws := newTestWorkspace(newFakeSpawner())
	events := make(chan terminal.Event)
	close(events)
	assert.Equal(t, 0, NewRouter(events).Drain(ws, 3))
}
