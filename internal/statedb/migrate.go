package statedb

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// legacyGroup mirrors the groups.json written by earlier yaaa releases.
// Two shapes exist in the wild: "tabs" with per-tab kind information, and the
// older "tab_ids" list where every tab is a terminal.
type legacyGroup struct {
	ID     uint64      `json:"id"`
	Name   string      `json:"name"`
	Path   string      `json:"path"`
	Tabs   []legacyTab `json:"tabs"`
	TabIDs []uint64    `json:"tab_ids"`
}

type legacyTab struct {
	ID      uint64 `json:"id"`
	IsAgent bool   `json:"is_agent"`
	Kind    string `json:"kind,omitempty"`
}

type legacyRecent struct {
	Projects []struct {
		Name string `json:"name"`
		Path string `json:"path"`
	} `json:"projects"`
}

func (t legacyTab) kind() string {
	switch t.Kind {
	case "agent", "terminal":
		return t.Kind
	}
	if t.IsAgent {
		return "agent"
	}
	return "terminal"
}

// MigrateFromJSON reads a legacy groups.json and stores it as the workspace.
// Returns the number of groups and tabs migrated.
func MigrateFromJSON(jsonPath string, db *StateDB) (int, int, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, 0, fmt.Errorf("read json: %w", err)
	}

	var groups []legacyGroup
	if err := json.Unmarshal(data, &groups); err != nil {
		return 0, 0, fmt.Errorf("parse json: %w", err)
	}

	rows := make([]*GroupRow, 0, len(groups))
	seenGroups := make(map[uint64]bool)
	seenTabs := make(map[uint64]bool)
	tabCount := 0

	for i, g := range groups {
		// Duplicate ids would violate the primary key; first one wins.
		if seenGroups[g.ID] {
			continue
		}
		seenGroups[g.ID] = true

		row := &GroupRow{ID: g.ID, Name: g.Name, Path: g.Path, Order: i}
		add := func(id uint64, kind string) {
			if seenTabs[id] {
				return
			}
			seenTabs[id] = true
			row.Tabs = append(row.Tabs, TabRow{ID: id, Kind: kind, Order: len(row.Tabs)})
			tabCount++
		}
		for _, t := range g.Tabs {
			add(t.ID, t.kind())
		}
		for _, id := range g.TabIDs {
			add(id, "terminal")
		}
		rows = append(rows, row)
	}

	if err := db.SaveWorkspace(rows); err != nil {
		return 0, 0, fmt.Errorf("save workspace: %w", err)
	}
	return len(rows), tabCount, nil
}

// MigrateRecentFromJSON imports a legacy recent_projects.json, keeping its
// newest-first order. Returns the number of projects imported.
func MigrateRecentFromJSON(jsonPath string, db *StateDB) (int, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("read json: %w", err)
	}

	var recent legacyRecent
	if err := json.Unmarshal(data, &recent); err != nil {
		return 0, fmt.Errorf("parse json: %w", err)
	}

	// Newest entry is first in the file; give it the latest timestamp.
	base := time.Now()
	n := 0
	for i, p := range recent.Projects {
		if p.Path == "" || n >= MaxRecentProjects {
			continue
		}
		at := base.Add(-time.Duration(i) * time.Millisecond)
		if err := db.TouchRecent(p.Path, p.Name, at); err != nil {
			return n, fmt.Errorf("save recent %s: %w", p.Path, err)
		}
		n++
	}
	return n, nil
}
