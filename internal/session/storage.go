package session

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/yaaa-term/yaaa/internal/config"
	"github.com/yaaa-term/yaaa/internal/logging"
	"github.com/yaaa-term/yaaa/internal/statedb"
)

var storageLog = logging.ForComponent(logging.CompStorage)

// HeartbeatTimeout is how long an instance may go without a heartbeat
// before another one takes over as primary.
const HeartbeatTimeout = 30 * time.Second

// Store loads and saves workspace snapshots. A failed or empty load means
// "no prior state".
type Store interface {
	LoadGroups() (Snapshot, bool)
	SaveGroups(Snapshot) error
}

// Storage persists workspace state in SQLite.
// Thread-safe with mutex protection for concurrent access within a single process.
// Multiple processes share data via SQLite WAL mode.
type Storage struct {
	db     *statedb.StateDB
	dbPath string
	mu     sync.Mutex
}

// OpenStorage opens state.db under paths, creating tables as needed. Legacy
// groups.json and recent_projects.json files are imported once into an empty
// database and renamed to *.migrated.
func OpenStorage(paths config.Paths) (*Storage, error) {
	return openStorage(paths, true)
}

// OpenStorageForRead opens state.db like OpenStorage but leaves legacy JSON
// files alone. Commands that only inspect state use it.
func OpenStorageForRead(paths config.Paths) (*Storage, error) {
	return openStorage(paths, false)
}

func openStorage(paths config.Paths, importLegacy bool) (*Storage, error) {
	if err := os.MkdirAll(paths.StateDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	dbPath := paths.StateDB()
	db, err := statedb.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate state database: %w", err)
	}

	if importLegacy {
		importLegacyGroups(paths.LegacyGroups(), db)
		importLegacyRecent(paths.LegacyRecent(), db)
	}

	return &Storage{db: db, dbPath: dbPath}, nil
}

func importLegacyGroups(jsonPath string, db *statedb.StateDB) {
	if _, err := os.Stat(jsonPath); err != nil {
		return
	}
	empty, err := db.IsEmpty()
	if err != nil || !empty {
		return
	}
	nGroups, nTabs, err := statedb.MigrateFromJSON(jsonPath, db)
	if err != nil {
		// Continue with an empty database rather than failing completely
		storageLog.Warn("json_migration_failed",
			slog.String("file", jsonPath),
			slog.String("error", err.Error()))
		return
	}
	storageLog.Info("migrated_from_json",
		slog.Int("groups", nGroups),
		slog.Int("tabs", nTabs))
	renameMigrated(jsonPath)
}

func importLegacyRecent(jsonPath string, db *statedb.StateDB) {
	if _, err := os.Stat(jsonPath); err != nil {
		return
	}
	existing, err := db.LoadRecent()
	if err != nil || len(existing) > 0 {
		return
	}
	n, err := statedb.MigrateRecentFromJSON(jsonPath, db)
	if err != nil {
		storageLog.Warn("recent_migration_failed",
			slog.String("file", jsonPath),
			slog.String("error", err.Error()))
		return
	}
	storageLog.Info("migrated_recent_from_json", slog.Int("projects", n))
	renameMigrated(jsonPath)
}

func renameMigrated(path string) {
	if err := os.Rename(path, path+".migrated"); err != nil {
		storageLog.Warn("json_rename_failed", slog.String("error", err.Error()))
	}
}

// Path returns the database path this storage is using.
func (s *Storage) Path() string {
	return s.dbPath
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// LoadGroups returns the saved snapshot. The boolean is false when nothing
// was saved yet or the database could not be read.
func (s *Storage) LoadGroups() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	empty, err := s.db.IsEmpty()
	if err != nil {
		storageLog.Warn("load_groups_failed", slog.String("error", err.Error()))
		return Snapshot{}, false
	}
	if empty {
		return Snapshot{}, false
	}

	rows, err := s.db.LoadWorkspace()
	if err != nil {
		storageLog.Warn("load_groups_failed", slog.String("error", err.Error()))
		return Snapshot{}, false
	}

	snap := Snapshot{Groups: make([]GroupSnapshot, 0, len(rows))}
	for _, r := range rows {
		gs := GroupSnapshot{ID: r.ID, Name: r.Name, Path: r.Path, Tabs: make([]TabDescriptor, 0, len(r.Tabs))}
		for _, t := range r.Tabs {
			gs.Tabs = append(gs.Tabs, TabDescriptor{ID: t.ID, Kind: ParseKind(t.Kind)})
		}
		snap.Groups = append(snap.Groups, gs)
	}
	return snap, true
}

// SaveGroups replaces the stored snapshot.
func (s *Storage) SaveGroups(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]*statedb.GroupRow, 0, len(snap.Groups))
	for i, g := range snap.Groups {
		row := &statedb.GroupRow{ID: g.ID, Name: g.Name, Path: g.Path, Order: i}
		for j, t := range g.Tabs {
			row.Tabs = append(row.Tabs, statedb.TabRow{ID: t.ID, Kind: t.Kind.String(), Order: j})
		}
		rows = append(rows, row)
	}
	if err := s.db.SaveWorkspace(rows); err != nil {
		return fmt.Errorf("save workspace: %w", err)
	}
	storageLog.Debug("workspace_saved",
		slog.Int("groups", len(snap.Groups)),
		slog.Int("tabs", snap.TabCount()))
	return nil
}

// LoadRecent returns the recent projects, newest first.
func (s *Storage) LoadRecent() ([]RecentProject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.LoadRecent()
	if err != nil {
		return nil, fmt.Errorf("load recent projects: %w", err)
	}
	out := make([]RecentProject, 0, len(rows))
	for _, r := range rows {
		out = append(out, RecentProject{Name: r.Name, Path: r.Path, UsedAt: r.UsedAt})
	}
	return out, nil
}

func (s *Storage) TouchRecent(p RecentProject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.TouchRecent(p.Path, p.Name, p.UsedAt)
}

func (s *Storage) RemoveRecent(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.RemoveRecent(path)
}

// Register records this process in the heartbeat table and reports whether
// it is the primary instance, the only one allowed to save the workspace.
func (s *Storage) Register() (bool, error) {
	if err := s.db.RegisterInstance(); err != nil {
		return false, fmt.Errorf("register instance: %w", err)
	}
	return s.db.ElectPrimary(HeartbeatTimeout)
}

// Heartbeat refreshes this instance and re-runs the primary election, so a
// secondary takes over once the primary goes away.
func (s *Storage) Heartbeat() (bool, error) {
	if err := s.db.Heartbeat(); err != nil {
		return false, fmt.Errorf("heartbeat: %w", err)
	}
	return s.db.ElectPrimary(HeartbeatTimeout)
}

// AliveInstances counts the instances with a recent heartbeat, this one
// included.
func (s *Storage) AliveInstances() (int, error) {
	n, err := s.db.AliveInstanceCount(HeartbeatTimeout)
	if err != nil {
		return 0, fmt.Errorf("count instances: %w", err)
	}
	return n, nil
}

func (s *Storage) Unregister() {
	if err := s.db.UnregisterInstance(); err != nil {
		storageLog.Debug("unregister_failed", slog.String("error", err.Error()))
	}
}

// expandTilde expands a leading ~ to the home directory. Paths that would
// escape the home directory are returned unchanged.
func expandTilde(path string) string {
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return path
	}
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	cleaned := filepath.Clean(filepath.Join(home, path[2:]))
	if !strings.HasPrefix(cleaned, home) {
		storageLog.Warn("path_traversal_detected", slog.String("path", path))
		return path
	}
	return cleaned
}

// NormalizeProjectPath expands ~ and makes path absolute.
func NormalizeProjectPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("empty project path")
	}
	abs, err := filepath.Abs(expandTilde(path))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return abs, nil
}
