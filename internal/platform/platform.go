package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// Platform represents the detected platform
type Platform string

const (
	PlatformMacOS   Platform = "macos"
	PlatformLinux   Platform = "linux"
	PlatformWSL     Platform = "wsl"
	PlatformWindows Platform = "windows"
	PlatformUnknown Platform = "unknown"
)

// FallbackShell is spawned when nothing else resolves.
const FallbackShell = "/usr/bin/bash"

// WindowsShell is the interactive shell assumed on Windows hosts.
const WindowsShell = "cmd.exe"

var (
	detectOnce sync.Once
	detected   Platform
)

// Detect returns the current platform. The result is computed once.
func Detect() Platform {
	detectOnce.Do(func() {
		detected = detect(runtime.GOOS, os.Getenv, os.ReadFile)
	})
	return detected
}

func detect(goos string, getenv func(string) string, readFile func(string) ([]byte, error)) Platform {
	switch goos {
	case "darwin":
		return PlatformMacOS
	case "windows":
		return PlatformWindows
	case "linux":
		if getenv("WSL_DISTRO_NAME") != "" {
			return PlatformWSL
		}
		// /proc/version carries "microsoft" on both WSL generations.
		if data, err := readFile("/proc/version"); err == nil &&
			strings.Contains(strings.ToLower(string(data)), "microsoft") {
			return PlatformWSL
		}
		return PlatformLinux
	default:
		return PlatformUnknown
	}
}

// IsWSL returns true if running under the Windows Subsystem for Linux
func IsWSL() bool {
	return Detect() == PlatformWSL
}

// String returns a human-readable platform name
func (p Platform) String() string {
	switch p {
	case PlatformMacOS:
		return "macOS"
	case PlatformLinux:
		return "Linux"
	case PlatformWSL:
		return "WSL"
	case PlatformWindows:
		return "Windows"
	default:
		return "Unknown"
	}
}

// InteractiveShell returns the user's shell as reported by the OS: $SHELL on
// unix, %ComSpec% on Windows. Empty when nothing is set.
func InteractiveShell(getenv func(string) string) string {
	if runtime.GOOS == "windows" {
		return getenv("ComSpec")
	}
	return getenv("SHELL")
}

// DefaultShell is the OS default shell used as the last resolver candidate.
func DefaultShell() string {
	if runtime.GOOS == "windows" {
		return WindowsShell
	}
	return FallbackShell
}

// LoginArgs returns the arguments that make shell start as a login shell.
// cmd.exe and PowerShell have no login mode.
func LoginArgs(shell string) []string {
	base := strings.ToLower(filepath.Base(shell))
	switch strings.TrimSuffix(base, ".exe") {
	case "cmd", "powershell", "pwsh":
		return nil
	}
	return []string{"--login"}
}

// CheckFsnotifySupport returns a warning when path lives on a filesystem where
// fsnotify is unreliable (9p, nfs, cifs, sshfs). Empty means fine.
func CheckFsnotifySupport(path string) string {
	if runtime.GOOS != "linux" {
		return ""
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	mounts, err := os.ReadFile("/proc/mounts")
	if err != nil {
		return ""
	}
	return fsnotifyWarning(absPath, string(mounts))
}

func fsnotifyWarning(absPath, mounts string) string {
	// Longest matching mountpoint wins. Format: device mountpoint fstype ...
	var matchedMount, fsType string
	for _, line := range strings.Split(mounts, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		if strings.HasPrefix(absPath, fields[1]) && len(fields[1]) > len(matchedMount) {
			matchedMount = fields[1]
			fsType = fields[2]
		}
	}

	switch {
	case fsType == "9p":
		return "config dir on 9p mount (WSL Windows filesystem): live config reload disabled"
	case fsType == "nfs" || fsType == "nfs4":
		return "config dir on NFS mount: live config reload may be unreliable"
	case fsType == "cifs" || fsType == "smbfs":
		return "config dir on CIFS/SMB mount: live config reload may be unreliable"
	case strings.HasPrefix(fsType, "fuse.sshfs"):
		return "config dir on SSHFS mount: live config reload disabled"
	}
	return ""
}
