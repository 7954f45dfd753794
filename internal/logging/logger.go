package logging

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Component names used as the "component" attribute on every record.
const (
	CompSession  = "session"
	CompStorage  = "storage"
	CompScroll   = "scroll"
	CompTerminal = "terminal"
	CompUI       = "ui"
	CompConfig   = "config"
)

// LogFileName is the rotated log file inside Config.LogDir.
const LogFileName = "debug.log"

// Config holds logging configuration.
type Config struct {
	// LogDir is the directory for log files (usually the yaaa state dir)
	LogDir string

	// Level is the minimum log level: "debug", "info", "warn", "error"
	Level string

	// Format is "json" (default) or "text"
	Format string

	// MaxSizeMB is the max size in MB before rotation (default: 10)
	MaxSizeMB int

	// MaxBackups is rotated files to keep (default: 3)
	MaxBackups int

	// MaxAgeDays is days to keep rotated files (default: 14)
	MaxAgeDays int

	// Compress rotated files
	Compress bool

	// TailLines is how many recent records are kept in memory for crash reports (default: 500)
	TailLines int

	// SummaryIntervalSecs is how often aggregated per-frame events are flushed (default: 30)
	SummaryIntervalSecs int

	// Debug forces logging on even without an explicit LogDir.
	Debug bool
}

var (
	globalLogger *slog.Logger
	globalTail   *Tail
	globalSum    *Summarizer
	globalMu     sync.RWMutex
	rotator      *lumberjack.Logger
)

// Init installs the process-wide logger. Without Debug and LogDir every record
// is discarded, which keeps the TUI's own terminal clean.
func Init(cfg Config) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 3
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = 14
	}
	if cfg.TailLines <= 0 {
		cfg.TailLines = 500
	}
	if cfg.SummaryIntervalSecs <= 0 {
		cfg.SummaryIntervalSecs = 30
	}

	if !cfg.Debug && cfg.LogDir == "" {
		globalLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))
		globalTail = NewTail(16)
		globalSum = NewSummarizer(nil, cfg.SummaryIntervalSecs)
		return
	}

	rotator = &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, LogFileName),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	globalTail = NewTail(cfg.TailLines)

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	out := io.MultiWriter(rotator, globalTail)

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	globalLogger = slog.New(handler)

	globalSum = NewSummarizer(globalLogger, cfg.SummaryIntervalSecs)
	globalSum.Start()
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Logger returns the global logger. Safe to call before Init.
func Logger() *slog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger == nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return globalLogger
}

// ForComponent returns a logger tagged with component=name. The handler is
// looked up at log time, so package-level loggers created before Init still
// reach the real output.
func ForComponent(name string) *slog.Logger {
	return slog.New(&componentHandler{component: name})
}

type componentHandler struct {
	component string
	attrs     []slog.Attr
	group     string
}

func (h *componentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return Logger().Handler().Enabled(ctx, level)
}

func (h *componentHandler) Handle(ctx context.Context, r slog.Record) error {
	handler := Logger().Handler().WithAttrs([]slog.Attr{slog.String("component", h.component)})
	if len(h.attrs) > 0 {
		handler = handler.WithAttrs(h.attrs)
	}
	if h.group != "" {
		handler = handler.WithGroup(h.group)
	}
	return handler.Handle(ctx, r)
}

func (h *componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &componentHandler{component: h.component, attrs: merged, group: h.group}
}

func (h *componentHandler) WithGroup(name string) slog.Handler {
	return &componentHandler{component: h.component, attrs: h.attrs, group: name}
}

// Count records one occurrence of a high-frequency event (for example one per
// frame). Occurrences are summarized periodically instead of logged one by one.
func Count(component, event string, fields ...slog.Attr) {
	globalMu.RLock()
	sum := globalSum
	globalMu.RUnlock()
	if sum != nil {
		sum.Count(component, event, fields...)
	}
}

// DumpTail writes the most recent log records to path.
func DumpTail(path string) error {
	globalMu.RLock()
	tail := globalTail
	globalMu.RUnlock()
	if tail == nil {
		return nil
	}
	return tail.DumpToFile(path)
}

// Shutdown flushes summaries and closes the log file.
func Shutdown() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalSum != nil {
		globalSum.Stop()
		globalSum = nil
	}
	if rotator != nil {
		_ = rotator.Close()
		rotator = nil
	}
	globalLogger = nil
	globalTail = nil
}
