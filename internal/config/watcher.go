package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yaaa-term/yaaa/internal/logging"
)

var configLog = logging.ForComponent(logging.CompConfig)

const reloadDebounce = 100 * time.Millisecond

// Reload is delivered after config.toml changes on disk.
type Reload struct {
	Settings Settings
	Err      error
}

// Watcher reloads config.toml when it changes. The directory is watched
// instead of the file so editors that replace the file on save still trigger.
type Watcher struct {
	paths   Paths
	watcher *fsnotify.Watcher
	out     chan Reload

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher. Call Start to begin watching.
func NewWatcher(paths Paths) (*Watcher, error) {
	if err := os.MkdirAll(paths.ConfigDir, 0o700); err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		paths:   paths,
		watcher: fw,
		out:     make(chan Reload, 1),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Reloads returns the channel that receives reloaded settings. Only the
// latest pending reload is kept.
func (w *Watcher) Reloads() <-chan Reload {
	return w.out
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.paths.ConfigDir); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	target := filepath.Clean(w.paths.SettingsFile())
	var (
		debounce *time.Timer
		mu       sync.Mutex
	)

	for {
		select {
		case <-w.ctx.Done():
			mu.Lock()
			if debounce != nil {
				debounce.Stop()
			}
			mu.Unlock()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}

			mu.Lock()
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, w.reload)
			mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			configLog.Warn("config_watcher_error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) reload() {
	if w.ctx.Err() != nil {
		return
	}
	s, err := Load(w.paths)
	if err != nil {
		configLog.Warn("config_reload_failed", slog.String("error", err.Error()))
	} else {
		configLog.Info("config_reloaded", slog.String("path", w.paths.SettingsFile()))
	}

	r := Reload{Settings: s, Err: err}
	// Drop a stale pending reload so the newest one wins.
	select {
	case <-w.out:
	default:
	}
	select {
	case w.out <- r:
	default:
	}
}

// Stop shuts down the watcher.
func (w *Watcher) Stop() {
	w.cancel()
	_ = w.watcher.Close()
	w.wg.Wait()
}
