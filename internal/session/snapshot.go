package session

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
)

// Snapshot is the persisted topology of a workspace: groups in ascending id
// order, each with its tabs in display order. Live processes and scroll
// state are not part of it.
type Snapshot struct {
	Groups []GroupSnapshot `json:"groups" yaml:"groups"`
}

type GroupSnapshot struct {
	ID   uint64          `json:"id" yaml:"id"`
	Name string          `json:"name" yaml:"name"`
	Path string          `json:"path" yaml:"path"`
	Tabs []TabDescriptor `json:"tabs" yaml:"tabs"`
}

type TabDescriptor struct {
	ID   uint64 `json:"id" yaml:"id"`
	Kind Kind   `json:"kind" yaml:"kind"`
}

// TabCount sums the tabs over all groups.
func (s Snapshot) TabCount() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Tabs)
	}
	return n
}

// Snapshot projects the current workspace.
func (w *Workspace) Snapshot() Snapshot {
	groups := w.Groups()
	snap := Snapshot{Groups: make([]GroupSnapshot, 0, len(groups))}
	for _, g := range groups {
		gs := GroupSnapshot{ID: g.ID, Name: g.Name, Path: g.Path, Tabs: make([]TabDescriptor, 0, len(g.TabIDs))}
		for _, id := range g.TabIDs {
			t, ok := w.tabs[id]
			if !ok {
				continue
			}
			gs.Tabs = append(gs.Tabs, TabDescriptor{ID: id, Kind: t.Kind})
		}
		snap.Groups = append(snap.Groups, gs)
	}
	return snap
}

// Restore replaces the workspace contents with snap, spawning every tab
// under its recorded id. Spawn failures are collected and returned; they
// never stop the restore. Id counters move past every id in snap. When cwd
// is set and no group has that path, a group with one terminal tab is
// created for it and made active; otherwise the lowest-id group is active.
func (w *Workspace) Restore(ctx context.Context, snap Snapshot, cwd string) []error {
	w.Clear()

	var errs []error
	seenTabs := make(map[uint64]bool)
	cwdFound := false

	for _, gs := range snap.Groups {
		w.bumpGroupID(gs.ID)
		if _, dup := w.groups[gs.ID]; dup {
			errs = append(errs, fmt.Errorf("restore group %d: duplicate id", gs.ID))
			continue
		}
		name := gs.Name
		if name == "" {
			name = groupName(gs.Path)
		}
		g := &Group{ID: gs.ID, Name: name, Path: gs.Path}
		w.insertGroup(g)
		if cwd != "" && samePath(gs.Path, cwd) {
			cwdFound = true
		}

		for _, td := range gs.Tabs {
			w.bumpTabID(td.ID)
			if seenTabs[td.ID] {
				errs = append(errs, fmt.Errorf("restore tab %d: duplicate id", td.ID))
				continue
			}
			seenTabs[td.ID] = true

			tab, err := w.Spawn(ctx, w.specFor(td.ID, g, td.Kind))
			if err != nil {
				errs = append(errs, fmt.Errorf("restore tab %d in group %d: %w", td.ID, g.ID, err))
				continue
			}
			w.tabs[tab.ID] = tab
			g.TabIDs = append(g.TabIDs, tab.ID)
		}
	}

	w.activateLowest()

	if cwd != "" && !cwdFound {
		gid := w.CreateGroup(cwd)
		if _, err := w.CreateTab(ctx, gid, KindTerminal); err != nil {
			errs = append(errs, fmt.Errorf("start tab for %s: %w", cwd, err))
		}
	}

	sessionLog.Info("workspace_restored",
		slog.Int("groups", len(w.groups)),
		slog.Int("tabs", len(w.tabs)),
		slog.Int("errors", len(errs)))
	return errs
}

func (w *Workspace) bumpGroupID(id uint64) {
	if id >= w.nextGroupID {
		w.nextGroupID = id + 1
	}
}

func (w *Workspace) bumpTabID(id uint64) {
	if id >= w.nextTabID {
		w.nextTabID = id + 1
	}
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
