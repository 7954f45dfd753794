package logging

import (
	"bytes"
	"os"
	"sync"
)

// Tail keeps the last N log records in memory. It implements io.Writer and
// treats every newline-terminated chunk as one record; slog handlers write
// exactly one record per Write call.
type Tail struct {
	mu      sync.Mutex
	records [][]byte
	next    int
	filled  bool
}

// NewTail creates a tail holding up to n records.
func NewTail(n int) *Tail {
	if n <= 0 {
		n = 500
	}
	return &Tail{records: make([][]byte, n)}
}

// Write stores p as a record, evicting the oldest one when full.
func (t *Tail) Write(p []byte) (int, error) {
	rec := make([]byte, len(p))
	copy(rec, p)
	if len(rec) == 0 || rec[len(rec)-1] != '\n' {
		rec = append(rec, '\n')
	}

	t.mu.Lock()
	t.records[t.next] = rec
	t.next++
	if t.next == len(t.records) {
		t.next = 0
		t.filled = true
	}
	t.mu.Unlock()
	return len(p), nil
}

// Len returns the number of records currently held.
func (t *Tail) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.filled {
		return len(t.records)
	}
	return t.next
}

// Bytes returns the held records oldest first.
func (t *Tail) Bytes() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	var buf bytes.Buffer
	if t.filled {
		for _, rec := range t.records[t.next:] {
			buf.Write(rec)
		}
	}
	for _, rec := range t.records[:t.next] {
		buf.Write(rec)
	}
	return buf.Bytes()
}

// DumpToFile writes the held records to path.
func (t *Tail) DumpToFile(path string) error {
	return os.WriteFile(path, t.Bytes(), 0o600)
}
