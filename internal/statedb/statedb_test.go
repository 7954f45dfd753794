package statedb

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *StateDB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "state.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleWorkspace() []*GroupRow {
	return []*GroupRow{
		{ID: 1, Name: "api", Path: "/src/api", Order: 0, Tabs: []TabRow{
			{ID: 1, Kind: "terminal", Order: 0},
			{ID: 4, Kind: "agent", Order: 1},
		}},
		{ID: 3, Name: "web", Path: "/src/web", Order: 1, Tabs: []TabRow{
			{ID: 2, Kind: "terminal", Order: 0},
		}},
	}
}

func TestOpenClosePersists(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")

	db1, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db1.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := db1.SaveWorkspace(sampleWorkspace()); err != nil {
		t.Fatalf("SaveWorkspace: %v", err)
	}
	db1.Close()

	db2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	defer db2.Close()
	if err := db2.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	groups, err := db2.LoadWorkspace()
	if err != nil {
		t.Fatalf("LoadWorkspace: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(groups))
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	v, err := db.GetMeta("schema_version")
	if err != nil {
		t.Fatalf("GetMeta: %v", err)
	}
	if v != fmt.Sprintf("%d", SchemaVersion) {
		t.Errorf("schema_version = %q", v)
	}
}

func TestSaveLoadWorkspaceOrder(t *testing.T) {
	db := newTestDB(t)

	if err := db.SaveWorkspace(sampleWorkspace()); err != nil {
		t.Fatalf("SaveWorkspace: %v", err)
	}
	groups, err := db.LoadWorkspace()
	if err != nil {
		t.Fatalf("LoadWorkspace: %v", err)
	}

	if groups[0].ID != 1 || groups[1].ID != 3 {
		t.Fatalf("groups not ascending by id: %d, %d", groups[0].ID, groups[1].ID)
	}
	if groups[0].Name != "api" || groups[0].Path != "/src/api" {
		t.Errorf("unexpected group: %+v", groups[0])
	}
	if len(groups[0].Tabs) != 2 {
		t.Fatalf("expected 2 tabs, got %d", len(groups[0].Tabs))
	}
	if groups[0].Tabs[0].ID != 1 || groups[0].Tabs[1].ID != 4 {
		t.Errorf("tab order lost: %+v", groups[0].Tabs)
	}
	if groups[0].Tabs[1].Kind != "agent" {
		t.Errorf("tab kind lost: %+v", groups[0].Tabs[1])
	}
}

func TestSaveWorkspaceReplacesPrevious(t *testing.T) {
	db := newTestDB(t)

	if err := db.SaveWorkspace(sampleWorkspace()); err != nil {
		t.Fatalf("SaveWorkspace: %v", err)
	}
	if err := db.SaveWorkspace([]*GroupRow{{ID: 9, Name: "only", Path: "/only"}}); err != nil {
		t.Fatalf("SaveWorkspace: %v", err)
	}

	groups, err := db.LoadWorkspace()
	if err != nil {
		t.Fatalf("LoadWorkspace: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != 9 {
		t.Fatalf("expected only group 9, got %+v", groups)
	}
	if len(groups[0].Tabs) != 0 {
		t.Errorf("stale tabs survived: %+v", groups[0].Tabs)
	}
}

func TestIsEmptyDistinguishesSavedEmptyWorkspace(t *testing.T) {
	db := newTestDB(t)

	empty, err := db.IsEmpty()
	if err != nil {
		t.Fatalf("IsEmpty: %v", err)
	}
	if !empty {
		t.Fatal("fresh database should be empty")
	}

	if err := db.SaveWorkspace(nil); err != nil {
		t.Fatalf("SaveWorkspace: %v", err)
	}
	empty, err = db.IsEmpty()
	if err != nil {
		t.Fatalf("IsEmpty: %v", err)
	}
	if empty {
		t.Error("saved empty workspace should not count as never saved")
	}
}

func TestRecentProjectsMRU(t *testing.T) {
	db := newTestDB(t)
	base := time.Now()

	for i := 0; i < MaxRecentProjects+5; i++ {
		p := fmt.Sprintf("/p/%02d", i)
		if err := db.TouchRecent(p, filepath.Base(p), base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("TouchRecent: %v", err)
		}
	}
	// Re-touch an old survivor so it jumps to the front.
	if err := db.TouchRecent("/p/10", "10", base.Add(time.Hour)); err != nil {
		t.Fatalf("TouchRecent: %v", err)
	}

	recent, err := db.LoadRecent()
	if err != nil {
		t.Fatalf("LoadRecent: %v", err)
	}
	if len(recent) != MaxRecentProjects {
		t.Fatalf("expected %d recent projects, got %d", MaxRecentProjects, len(recent))
	}
	if recent[0].Path != "/p/10" {
		t.Errorf("most recent = %s, want /p/10", recent[0].Path)
	}
	for _, r := range recent {
		if r.Path == "/p/00" {
			t.Error("oldest project should have been trimmed")
		}
	}

	if err := db.RemoveRecent("/p/10"); err != nil {
		t.Fatalf("RemoveRecent: %v", err)
	}
	recent, _ = db.LoadRecent()
	if recent[0].Path == "/p/10" {
		t.Error("RemoveRecent did not remove entry")
	}
}

func TestHeartbeatAndPrimary(t *testing.T) {
	db := newTestDB(t)

	if err := db.RegisterInstance(); err != nil {
		t.Fatalf("RegisterInstance: %v", err)
	}
	if err := db.Heartbeat(); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	n, err := db.AliveInstanceCount(30 * time.Second)
	if err != nil {
		t.Fatalf("AliveInstanceCount: %v", err)
	}
	if n != 1 {
		t.Errorf("alive = %d, want 1", n)
	}

	primary, err := db.ElectPrimary(30 * time.Second)
	if err != nil {
		t.Fatalf("ElectPrimary: %v", err)
	}
	if !primary {
		t.Fatal("sole instance should become primary")
	}

	// A second process sharing the database loses the election.
	other := &StateDB{db: db.db, pid: db.pid + 1}
	if err := other.RegisterInstance(); err != nil {
		t.Fatalf("RegisterInstance: %v", err)
	}
	primary, err = other.ElectPrimary(30 * time.Second)
	if err != nil {
		t.Fatalf("ElectPrimary: %v", err)
	}
	if primary {
		t.Error("second instance should not become primary")
	}

	if err := db.UnregisterInstance(); err != nil {
		t.Fatalf("UnregisterInstance: %v", err)
	}
	primary, err = other.ElectPrimary(30 * time.Second)
	if err != nil {
		t.Fatalf("ElectPrimary: %v", err)
	}
	if !primary {
		t.Error("second instance should take over after primary leaves")
	}
}

func TestConcurrentAccess(t *testing.T) {
	db := newTestDB(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, _ = db.LoadWorkspace()
				_, _ = db.LoadRecent()
			}
		}()
	}
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				_ = db.SaveWorkspace([]*GroupRow{{ID: uint64(idx + 1), Name: "g", Path: "/g"}})
				_ = db.Heartbeat()
			}
		}(i)
	}
	wg.Wait()

	// Whatever interleaving happened, each save replaced the whole workspace.
	groups, err := db.LoadWorkspace()
	if err != nil {
		t.Fatalf("LoadWorkspace: %v", err)
	}
	if len(groups) > 1 {
		t.Errorf("expected at most one group after racing saves, got %d", len(groups))
	}
}

func TestMigrateFromJSON(t *testing.T) {
	db := newTestDB(t)
	jsonPath := filepath.Join(t.TempDir(), "groups.json")
	content := `[
		{"id": 2, "name": "api", "path": "/src/api", "tabs": [
			{"id": 5, "is_agent": false},
			{"id": 7, "is_agent": true}
		]},
		{"id": 1, "name": "old", "path": "/src/old", "tab_ids": [3]},
		{"id": 4, "name": "empty", "path": "/src/empty", "tabs": []}
	]`
	if err := os.WriteFile(jsonPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	g, tabs, err := MigrateFromJSON(jsonPath, db)
	if err != nil {
		t.Fatalf("MigrateFromJSON: %v", err)
	}
	if g != 3 || tabs != 3 {
		t.Errorf("migrated %d groups, %d tabs; want 3, 3", g, tabs)
	}

	groups, err := db.LoadWorkspace()
	if err != nil {
		t.Fatalf("LoadWorkspace: %v", err)
	}
	if groups[0].ID != 1 || groups[0].Tabs[0].Kind != "terminal" {
		t.Errorf("tab_ids shape not imported: %+v", groups[0])
	}
	if groups[1].Tabs[1].Kind != "agent" {
		t.Errorf("is_agent not mapped to agent kind: %+v", groups[1].Tabs)
	}
	if len(groups[2].Tabs) != 0 {
		t.Errorf("empty group should stay empty: %+v", groups[2])
	}
}

func TestMigrateFromJSONBadInput(t *testing.T) {
	db := newTestDB(t)
	jsonPath := filepath.Join(t.TempDir(), "groups.json")
	if err := os.WriteFile(jsonPath, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := MigrateFromJSON(jsonPath, db); err == nil {
		t.Fatal("expected parse error")
	}
	if _, _, err := MigrateFromJSON(filepath.Join(t.TempDir(), "missing.json"), db); err == nil {
		t.Fatal("expected read error")
	}
}

func TestMigrateRecentFromJSON(t *testing.T) {
	db := newTestDB(t)
	jsonPath := filepath.Join(t.TempDir(), "recent_projects.json")
	content := `{"projects": [
		{"name": "newest", "path": "/a"},
		{"name": "older", "path": "/b"}
	]}`
	if err := os.WriteFile(jsonPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	n, err := MigrateRecentFromJSON(jsonPath, db)
	if err != nil {
		t.Fatalf("MigrateRecentFromJSON: %v", err)
	}
	if n != 2 {
		t.Errorf("imported %d, want 2", n)
	}
	recent, err := db.LoadRecent()
	if err != nil {
		t.Fatalf("LoadRecent: %v", err)
	}
	if recent[0].Path != "/a" || recent[1].Path != "/b" {
		t.Errorf("order not preserved: %+v", recent)
	}
}
