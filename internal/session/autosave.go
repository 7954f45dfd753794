package session

import (
	"log/slog"

	"golang.org/x/time/rate"
)

// Autosaver writes the workspace snapshot after topology changes, at most
// perSecond times a second. Writes that are rate limited stay pending
// until the next Tick or Flush.
type Autosaver struct {
	store    Store
	snapshot func() Snapshot
	limiter  *rate.Limiter
	dirty    bool
	enabled  bool
}

func NewAutosaver(store Store, snapshot func() Snapshot, perSecond float64) *Autosaver {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &Autosaver{
		store:    store,
		snapshot: snapshot,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
		enabled:  true,
	}
}

// SetEnabled turns saving on or off. A secondary instance runs disabled so
// it never overwrites the primary's workspace.
func (a *Autosaver) SetEnabled(on bool) {
	a.enabled = on
}

func (a *Autosaver) Enabled() bool {
	return a.enabled
}

// MarkDirty records that the topology changed.
func (a *Autosaver) MarkDirty() {
	a.dirty = true
}

func (a *Autosaver) Dirty() bool {
	return a.dirty
}

// Tick saves if something changed and the limiter allows it. It reports
// whether a save happened.
func (a *Autosaver) Tick() bool {
	if !a.dirty || !a.enabled || !a.limiter.Allow() {
		return false
	}
	return a.save()
}

// Flush saves any pending change regardless of the rate limit.
func (a *Autosaver) Flush() bool {
	if !a.dirty || !a.enabled {
		return false
	}
	return a.save()
}

func (a *Autosaver) save() bool {
	if err := a.store.SaveGroups(a.snapshot()); err != nil {
		// Stays dirty so the next tick retries.
		storageLog.Warn("autosave_failed", slog.String("error", err.Error()))
		return false
	}
	a.dirty = false
	return true
}
