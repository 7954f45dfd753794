package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnvConfigDir overrides the configuration directory when set.
const EnvConfigDir = "YAAA_CONFIG_DIR"

const (
	SettingsFileName = "config.toml"
	StateDBFileName  = "state.db"
	LegacyGroupsFile = "groups.json"
	LegacyRecentFile = "recent_projects.json"
	appDirName       = "yaaa"
)

// Paths locates every file yaaa reads or writes. It is built once in main
// and passed to the components that need it.
type Paths struct {
	ConfigDir string
	StateDir  string
}

// DefaultPaths resolves the directories from YAAA_CONFIG_DIR, falling back to
// the OS user config directory.
func DefaultPaths() (Paths, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return PathsAt(dir), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("failed to resolve user config dir: %w", err)
	}
	return PathsAt(filepath.Join(base, appDirName)), nil
}

// PathsAt places config and state in the same directory.
func PathsAt(dir string) Paths {
	return Paths{ConfigDir: dir, StateDir: dir}
}

// Ensure creates both directories.
func (p Paths) Ensure() error {
	for _, dir := range []string{p.ConfigDir, p.StateDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func (p Paths) SettingsFile() string { return filepath.Join(p.ConfigDir, SettingsFileName) }
func (p Paths) StateDB() string { return filepath.Join(p.StateDir, StateDBFileName) }
func (p Paths) LegacyGroups() string { return filepath.Join(p.StateDir, LegacyGroupsFile) }
func (p Paths) LegacyRecent() string { return filepath.Join(p.StateDir, LegacyRecentFile) }
func (p Paths) LogDir() string { return p.StateDir }
