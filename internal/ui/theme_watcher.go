package ui

import (
	"context"
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	dark "github.com/thiagokokada/dark-mode-go"
)

// themeChangedMsg carries the OS appearance after it changed.
type themeChangedMsg struct {
	dark bool
}

// ThemeWatcher follows the OS dark mode setting while theme = "system".
type ThemeWatcher struct {
	changes   chan bool // true=dark, newest wins
	done      chan struct{}
	closeOnce sync.Once
}

// NewThemeWatcher starts watching. It returns nil when the OS offers no
// way to watch (caller keeps the theme it resolved at startup).
func NewThemeWatcher(parent context.Context) *ThemeWatcher {
	ctx, cancel := context.WithCancel(parent)

	events, errs, err := dark.WatchDarkMode(ctx)
	if err != nil {
		cancel()
		uiLog.Warn("theme_watcher_init_failed", slog.String("error", err.Error()))
		return nil
	}

	tw := &ThemeWatcher{
		changes: make(chan bool, 1),
		done:    make(chan struct{}),
	}
	go tw.loop(cancel, events, errs)
	return tw
}

func (tw *ThemeWatcher) loop(cancel context.CancelFunc, events <-chan bool, errs <-chan error) {
	defer cancel()
	for {
		select {
		case <-tw.done:
			return
		case isDark, ok := <-events:
			if !ok {
				return
			}
			select {
			case <-tw.changes:
			default:
			}
			tw.changes <- isDark
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				uiLog.Warn("theme_watcher_error", slog.String("error", err.Error()))
			}
		}
	}
}

// wait returns a command that delivers the next change.
func (tw *ThemeWatcher) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case isDark := <-tw.changes:
			return themeChangedMsg{dark: isDark}
		case <-tw.done:
			return nil
		}
	}
}

// Close stops the watcher. Safe to call multiple times.
func (tw *ThemeWatcher) Close() {
	tw.closeOnce.Do(func() {
		close(tw.done)
	})
}
