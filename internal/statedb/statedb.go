package statedb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SchemaVersion tracks the current database schema version.
// Bump this when adding migrations.
const SchemaVersion = 1

// MaxRecentProjects caps the recent_projects table.
const MaxRecentProjects = 20

// metaWorkspaceSaved is set on every SaveWorkspace so an intentionally empty
// workspace can be told apart from "never saved".
const metaWorkspaceSaved = "workspace_saved_at"

// StateDB wraps a SQLite database for workspace persistence.
// Thread-safe for concurrent use from multiple goroutines within one process.
// Multiple OS processes can safely read/write via WAL mode + busy timeout.
type StateDB struct {
	db  *sql.DB
	pid int
}

// GroupRow represents a group row together with its ordered tabs.
type GroupRow struct {
	ID    uint64
	Name  string
	Path  string
	Order int
	Tabs  []TabRow
}

// TabRow represents a tab row. Kind is "terminal" or "agent".
type TabRow struct {
	ID    uint64
	Kind  string
	Order int
}

// RecentRow is one entry of the recent projects list.
type RecentRow struct {
	Path   string
	Name   string
	UsedAt time.Time
}

// Open creates or opens a SQLite database at dbPath with WAL mode and busy timeout.
func Open(dbPath string) (*StateDB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("statedb: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("statedb: open: %w", err)
	}

	// WAL mode: allows concurrent readers while writing
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("statedb: wal mode: %w", err)
	}

	// Busy timeout: wait up to 5s if another yaaa process holds a lock
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("statedb: busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("statedb: foreign keys: %w", err)
	}

	return &StateDB{db: db, pid: os.Getpid()}, nil
}

// Close checkpoints WAL and closes the database.
func (s *StateDB) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// Migrate creates tables if they don't exist and runs any pending migrations.
func (s *StateDB) Migrate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("statedb: begin migrate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []struct {
		name string
		sql  string
	}{
		{"metadata", `
			CREATE TABLE IF NOT EXISTS metadata (
				key   TEXT PRIMARY KEY,
				value TEXT NOT NULL
			)`},
		{"groups", `
			CREATE TABLE IF NOT EXISTS groups (
				id         INTEGER PRIMARY KEY,
				name       TEXT NOT NULL,
				path       TEXT NOT NULL,
				sort_order INTEGER NOT NULL DEFAULT 0
			)`},
		{"tabs", `
			CREATE TABLE IF NOT EXISTS tabs (
				id         INTEGER PRIMARY KEY,
				group_id   INTEGER NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
				kind       TEXT NOT NULL DEFAULT 'terminal',
				sort_order INTEGER NOT NULL DEFAULT 0
			)`},
		{"recent_projects", `
			CREATE TABLE IF NOT EXISTS recent_projects (
				path    TEXT PRIMARY KEY,
				name    TEXT NOT NULL,
				used_at INTEGER NOT NULL
			)`},
		{"heartbeats", `
			CREATE TABLE IF NOT EXISTS instance_heartbeats (
				pid        INTEGER PRIMARY KEY,
				started    INTEGER NOT NULL,
				heartbeat  INTEGER NOT NULL,
				is_primary INTEGER NOT NULL DEFAULT 0
			)`},
	}
	for _, st := range stmts {
		if _, err := tx.Exec(st.sql); err != nil {
			return fmt.Errorf("statedb: create %s: %w", st.name, err)
		}
	}

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)`,
		fmt.Sprintf("%d", SchemaVersion),
	); err != nil {
		return fmt.Errorf("statedb: set schema version: %w", err)
	}

	return tx.Commit()
}

// IsEmpty reports whether a workspace was never saved to this database.
func (s *StateDB) IsEmpty() (bool, error) {
	saved, err := s.GetMeta(metaWorkspaceSaved)
	if err != nil {
		return false, err
	}
	return saved == "", nil
}

// --- Workspace ---

// SaveWorkspace replaces all groups and tabs in a single transaction.
func (s *StateDB) SaveWorkspace(groups []*GroupRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("statedb: begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Clear and re-insert (simpler than diff; the topology is small)
	if _, err := tx.Exec("DELETE FROM tabs"); err != nil {
		return fmt.Errorf("statedb: clear tabs: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM groups"); err != nil {
		return fmt.Errorf("statedb: clear groups: %w", err)
	}

	groupStmt, err := tx.Prepare(`INSERT INTO groups (id, name, path, sort_order) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer groupStmt.Close()

	tabStmt, err := tx.Prepare(`INSERT INTO tabs (id, group_id, kind, sort_order) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer tabStmt.Close()

	for _, g := range groups {
		if _, err := groupStmt.Exec(int64(g.ID), g.Name, g.Path, g.Order); err != nil {
			return fmt.Errorf("statedb: insert group %d: %w", g.ID, err)
		}
		for _, t := range g.Tabs {
			if _, err := tabStmt.Exec(int64(t.ID), int64(g.ID), t.Kind, t.Order); err != nil {
				return fmt.Errorf("statedb: insert tab %d: %w", t.ID, err)
			}
		}
	}

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)",
		metaWorkspaceSaved, fmt.Sprintf("%d", time.Now().UnixNano()),
	); err != nil {
		return fmt.Errorf("statedb: mark saved: %w", err)
	}

	return tx.Commit()
}

// LoadWorkspace returns all groups ascending by id, each with its tabs in
// sort_order.
func (s *StateDB) LoadWorkspace() ([]*GroupRow, error) {
	rows, err := s.db.Query(`SELECT id, name, path, sort_order FROM groups ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*GroupRow
	byID := make(map[uint64]*GroupRow)
	for rows.Next() {
		g := &GroupRow{}
		var id int64
		if err := rows.Scan(&id, &g.Name, &g.Path, &g.Order); err != nil {
			return nil, err
		}
		g.ID = uint64(id)
		byID[g.ID] = g
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tabRows, err := s.db.Query(`SELECT id, group_id, kind, sort_order FROM tabs ORDER BY group_id, sort_order, id`)
	if err != nil {
		return nil, err
	}
	defer tabRows.Close()

	for tabRows.Next() {
		var id, groupID int64
		var t TabRow
		if err := tabRows.Scan(&id, &groupID, &t.Kind, &t.Order); err != nil {
			return nil, err
		}
		t.ID = uint64(id)
		if g, ok := byID[uint64(groupID)]; ok {
			g.Tabs = append(g.Tabs, t)
		}
	}
	return result, tabRows.Err()
}

// --- Recent projects ---

// TouchRecent records path as most recently used and trims the list to
// MaxRecentProjects.
func (s *StateDB) TouchRecent(path, name string, at time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO recent_projects (path, name, used_at) VALUES (?, ?, ?)`,
		path, name, at.UnixNano(),
	); err != nil {
		return fmt.Errorf("statedb: touch recent: %w", err)
	}
	if _, err := tx.Exec(`
		DELETE FROM recent_projects WHERE path NOT IN (
			SELECT path FROM recent_projects ORDER BY used_at DESC LIMIT ?
		)`, MaxRecentProjects); err != nil {
		return fmt.Errorf("statedb: trim recent: %w", err)
	}
	return tx.Commit()
}

// LoadRecent returns recent projects newest first.
func (s *StateDB) LoadRecent() ([]RecentRow, error) {
	rows, err := s.db.Query(`SELECT path, name, used_at FROM recent_projects ORDER BY used_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RecentRow
	for rows.Next() {
		var r RecentRow
		var usedAt int64
		if err := rows.Scan(&r.Path, &r.Name, &usedAt); err != nil {
			return nil, err
		}
		r.UsedAt = time.Unix(0, usedAt)
		result = append(result, r)
	}
	return result, rows.Err()
}

// RemoveRecent drops path from the recent list.
func (s *StateDB) RemoveRecent(path string) error {
	_, err := s.db.Exec("DELETE FROM recent_projects WHERE path = ?", path)
	return err
}

// --- Heartbeat ---

// RegisterInstance records this process as a running yaaa instance.
func (s *StateDB) RegisterInstance() error {
	now := time.Now().Unix()
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO instance_heartbeats (pid, started, heartbeat, is_primary)
		VALUES (?, ?, ?, 0)
	`, s.pid, now, now)
	return err
}

// Heartbeat updates the heartbeat timestamp for this process.
func (s *StateDB) Heartbeat() error {
	_, err := s.db.Exec(
		"UPDATE instance_heartbeats SET heartbeat = ? WHERE pid = ?",
		time.Now().Unix(), s.pid,
	)
	return err
}

// UnregisterInstance removes this process from the heartbeat table.
func (s *StateDB) UnregisterInstance() error {
	_, err := s.db.Exec("DELETE FROM instance_heartbeats WHERE pid = ?", s.pid)
	return err
}

// AliveInstanceCount returns how many instances have a heartbeat newer than timeout.
func (s *StateDB) AliveInstanceCount(timeout time.Duration) (int, error) {
	var count int
	cutoff := time.Now().Add(-timeout).Unix()
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM instance_heartbeats WHERE heartbeat >= ?", cutoff,
	).Scan(&count)
	return count, err
}

// ElectPrimary attempts to make this instance the primary, the only one that
// writes the workspace. Returns true if this instance is (or already was) primary.
func (s *StateDB) ElectPrimary(timeout time.Duration) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("statedb: begin elect: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cutoff := time.Now().Add(-timeout).Unix()

	if _, err := tx.Exec(
		"UPDATE instance_heartbeats SET is_primary = 0 WHERE heartbeat < ? AND is_primary = 1",
		cutoff,
	); err != nil {
		return false, fmt.Errorf("statedb: clear stale primary: %w", err)
	}

	var existingPID int
	err = tx.QueryRow(
		"SELECT pid FROM instance_heartbeats WHERE is_primary = 1 AND heartbeat >= ? LIMIT 1",
		cutoff,
	).Scan(&existingPID)
	if err == nil {
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("statedb: commit elect: %w", err)
		}
		return existingPID == s.pid, nil
	}

	if _, err := tx.Exec(
		"UPDATE instance_heartbeats SET is_primary = 1 WHERE pid = ?",
		s.pid,
	); err != nil {
		return false, fmt.Errorf("statedb: claim primary: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("statedb: commit elect: %w", err)
	}
	return true, nil
}

// --- Metadata ---

// SetMeta sets a key-value pair in the metadata table.
func (s *StateDB) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta gets a value from the metadata table. Returns "" if not found.
func (s *StateDB) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}
