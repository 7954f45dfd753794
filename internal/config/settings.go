package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	dark "github.com/thiagokokada/dark-mode-go"
)

const (
	DefaultShellCmd = "/usr/bin/bash"
	DefaultAgentCmd = "opencode"

	DefaultClearRatio      = 0.1
	DefaultBottomTolerance = 10.0
	DefaultDrainPerTick    = 1
	DefaultAutosavePerSec  = 1.0
)

// Settings is the decoded config.toml.
type Settings struct {
	// DefaultShellCmd is spawned for terminal tabs (default: /usr/bin/bash)
	DefaultShellCmd string `toml:"default_shell_cmd"`

	// DefaultAgentCmd is spawned for agent tabs (default: opencode)
	DefaultAgentCmd string `toml:"default_agent_cmd"`

	// RunAsLoginShell passes --login to spawned shells (default: true)
	RunAsLoginShell *bool `toml:"run_as_login_shell,omitempty"`

	// ShowTerminalLines shows the scroll debug line under the terminal (default: true)
	ShowTerminalLines *bool `toml:"show_terminal_lines,omitempty"`

	// ShowFPS shows the frame rate in the status bar (default: true)
	ShowFPS *bool `toml:"show_fps,omitempty"`

	// ShowSidebar shows the project sidebar (default: true)
	ShowSidebar *bool `toml:"show_sidebar,omitempty"`

	// Theme is "dark", "light" or "system" (default: dark)
	Theme string `toml:"theme"`

	Scroll      ScrollSettings      `toml:"scroll"`
	Events      EventSettings       `toml:"events"`
	Persistence PersistenceSettings `toml:"persistence"`
	Logs        LogSettings         `toml:"logs"`
}

// ScrollSettings tunes the scrollback heuristic.
type ScrollSettings struct {
	// ClearRatio: a line count below last*ClearRatio counts as a screen clear (default: 0.1)
	ClearRatio float64 `toml:"clear_ratio"`

	// BottomTolerance is how far from the bottom still counts as "at bottom" (default: 10)
	BottomTolerance float64 `toml:"bottom_tolerance"`
}

type EventSettings struct {
	// DrainPerTick is how many backend events are handled per frame (default: 1)
	DrainPerTick int `toml:"drain_per_tick"`
}

type PersistenceSettings struct {
	// AutosavePerSecond limits snapshot writes (default: 1)
	AutosavePerSecond float64 `toml:"autosave_per_second"`
}

type LogSettings struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// Defaults returns the settings used when no config file exists.
func Defaults() Settings {
	s := Settings{}
	s.applyDefaults()
	return s
}

func boolPtr(b bool) *bool { return &b }

func (s *Settings) applyDefaults() {
	if s.DefaultShellCmd == "" {
		s.DefaultShellCmd = DefaultShellCmd
	}
	if s.DefaultAgentCmd == "" {
		s.DefaultAgentCmd = DefaultAgentCmd
	}
	if s.RunAsLoginShell == nil {
		s.RunAsLoginShell = boolPtr(true)
	}
	if s.ShowTerminalLines == nil {
		s.ShowTerminalLines = boolPtr(true)
	}
	if s.ShowFPS == nil {
		s.ShowFPS = boolPtr(true)
	}
	if s.ShowSidebar == nil {
		s.ShowSidebar = boolPtr(true)
	}
	switch s.Theme {
	case "dark", "light", "system":
	default:
		s.Theme = "dark"
	}
	if s.Scroll.ClearRatio <= 0 || s.Scroll.ClearRatio >= 1 {
		s.Scroll.ClearRatio = DefaultClearRatio
	}
	if s.Scroll.BottomTolerance <= 0 {
		s.Scroll.BottomTolerance = DefaultBottomTolerance
	}
	if s.Events.DrainPerTick <= 0 {
		s.Events.DrainPerTick = DefaultDrainPerTick
	}
	if s.Persistence.AutosavePerSecond <= 0 {
		s.Persistence.AutosavePerSecond = DefaultAutosavePerSec
	}
	if s.Logs.Level == "" {
		s.Logs.Level = "info"
	}
	if s.Logs.Format == "" {
		s.Logs.Format = "json"
	}
	if s.Logs.MaxSizeMB <= 0 {
		s.Logs.MaxSizeMB = 10
	}
	if s.Logs.MaxBackups <= 0 {
		s.Logs.MaxBackups = 3
	}
}

func (s Settings) LoginShell() bool { return s.RunAsLoginShell == nil || *s.RunAsLoginShell }
func (s Settings) TerminalLinesShown() bool { return s.ShowTerminalLines == nil || *s.ShowTerminalLines }
func (s Settings) FPSShown() bool { return s.ShowFPS == nil || *s.ShowFPS }
func (s Settings) SidebarShown() bool { return s.ShowSidebar == nil || *s.ShowSidebar }

// ResolveTheme maps "system" to "dark" or "light" using the OS setting.
// Detection failures fall back to dark.
func (s Settings) ResolveTheme() string {
	if s.Theme != "system" {
		if s.Theme == "light" {
			return "light"
		}
		return "dark"
	}
	isDark, err := dark.IsDarkMode()
	if err != nil || isDark {
		return "dark"
	}
	return "light"
}

// Load reads config.toml. A missing file yields defaults. A parse error yields
// defaults plus the error so the caller can show it.
func Load(paths Paths) (Settings, error) {
	path := paths.SettingsFile()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}

	var s Settings
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return Defaults(), fmt.Errorf("config.toml parse error: %w", err)
	}
	s.applyDefaults()
	return s, nil
}

// Save writes settings to config.toml atomically: temp file, fsync, rename.
func Save(paths Paths, s Settings) error {
	path := paths.SettingsFile()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# yaaa configuration\n")
	buf.WriteString("# Changes are picked up while yaaa is running.\n\n")
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := syncFile(tmpPath); err != nil {
		configLog.Warn("config_fsync_failed", "error", err.Error())
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize config save: %w", err)
	}
	return nil
}

func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
