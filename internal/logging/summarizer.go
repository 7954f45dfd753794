package logging

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

type summaryKey struct {
	component string
	event     string
}

type summaryEntry struct {
	count  int64
	fields []slog.Attr
}

// Summarizer counts repeated events and emits one "event_summary" record per
// event kind every interval. The scroll heuristic and the event router run
// every frame; logging each occurrence would flood the log.
type Summarizer struct {
	logger   *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	entries map[summaryKey]*summaryEntry

	stop    chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// NewSummarizer creates a summarizer. A nil logger drops everything.
func NewSummarizer(logger *slog.Logger, intervalSecs int) *Summarizer {
	if intervalSecs <= 0 {
		intervalSecs = 30
	}
	return &Summarizer{
		logger:   logger,
		interval: time.Duration(intervalSecs) * time.Second,
		entries:  make(map[summaryKey]*summaryEntry),
		stop:     make(chan struct{}),
	}
}

// Start runs the periodic flush in the background.
func (s *Summarizer) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Flush()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop ends the background loop and flushes what is left.
func (s *Summarizer) Stop() {
	s.stopped.Do(func() { close(s.stop) })
	s.wg.Wait()
	s.Flush()
}

// Count adds one occurrence. The most recent non-empty fields are kept.
func (s *Summarizer) Count(component, event string, fields ...slog.Attr) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := summaryKey{component: component, event: event}
	e, ok := s.entries[k]
	if !ok {
		e = &summaryEntry{}
		s.entries[k] = e
	}
	e.count++
	if len(fields) > 0 {
		e.fields = fields
	}
}

// Flush emits and resets the pending counts.
func (s *Summarizer) Flush() {
	s.mu.Lock()
	if len(s.entries) == 0 {
		s.mu.Unlock()
		return
	}
	pending := s.entries
	s.entries = make(map[summaryKey]*summaryEntry)
	s.mu.Unlock()

	if s.logger == nil {
		return
	}

	keys := make([]summaryKey, 0, len(pending))
	for k := range pending {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].component != keys[j].component {
			return keys[i].component < keys[j].component
		}
		return keys[i].event < keys[j].event
	})

	for _, k := range keys {
		e := pending[k]
		args := []any{
			slog.String("component", k.component),
			slog.String("event", k.event),
			slog.Int64("count", e.count),
			slog.Int("window_seconds", int(s.interval.Seconds())),
		}
		for _, f := range e.fields {
			args = append(args, f)
		}
		s.logger.Info("event_summary", args...)
	}
}
