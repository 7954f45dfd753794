package session

import (
	"log/slog"
	"slices"
	"time"

	"github.com/sahilm/fuzzy"
)

// MaxRecentProjects caps the recent projects list.
const MaxRecentProjects = 20

// RecentProject is a directory the user opened as a group.
type RecentProject struct {
	Name   string
	Path   string
	UsedAt time.Time
}

// RecentStore persists recent project changes.
type RecentStore interface {
	TouchRecent(RecentProject) error
	RemoveRecent(path string) error
}

// RecentProjects is the most-recently-used project list, newest first and
// unique by path.
type RecentProjects struct {
	items []RecentProject
	store RecentStore
	now   func() time.Time
}

// NewRecentProjects wraps items loaded from store. store may be nil.
func NewRecentProjects(items []RecentProject, store RecentStore) *RecentProjects {
	r := &RecentProjects{store: store, now: time.Now}
	for _, it := range items {
		if slices.ContainsFunc(r.items, func(p RecentProject) bool { return p.Path == it.Path }) {
			continue
		}
		r.items = append(r.items, it)
	}
	if len(r.items) > MaxRecentProjects {
		r.items = r.items[:MaxRecentProjects]
	}
	return r
}

// Add moves path to the front of the list.
func (r *RecentProjects) Add(path string) {
	p := RecentProject{Name: groupName(path), Path: path, UsedAt: r.now()}
	r.items = slices.DeleteFunc(r.items, func(it RecentProject) bool { return it.Path == path })
	r.items = slices.Insert(r.items, 0, p)
	if len(r.items) > MaxRecentProjects {
		r.items = r.items[:MaxRecentProjects]
	}
	if r.store != nil {
		if err := r.store.TouchRecent(p); err != nil {
			storageLog.Warn("recent_save_failed", slog.String("error", err.Error()))
		}
	}
}

func (r *RecentProjects) Remove(path string) {
	r.items = slices.DeleteFunc(r.items, func(it RecentProject) bool { return it.Path == path })
	if r.store != nil {
		if err := r.store.RemoveRecent(path); err != nil {
			storageLog.Warn("recent_remove_failed", slog.String("error", err.Error()))
		}
	}
}

// Items returns a copy of the list, newest first.
func (r *RecentProjects) Items() []RecentProject {
	return slices.Clone(r.items)
}

func (r *RecentProjects) Len() int {
	return len(r.items)
}

type recentPaths []RecentProject

func (p recentPaths) String(i int) string { return p[i].Path }
func (p recentPaths) Len() int { return len(p) }

// Filter fuzzy-matches query against project paths, best match first. An
// empty query returns the whole list.
func (r *RecentProjects) Filter(query string) []RecentProject {
	if query == "" {
		return r.Items()
	}
	matches := fuzzy.FindFrom(query, recentPaths(r.items))
	out := make([]RecentProject, 0, len(matches))
	for _, m := range matches {
		out = append(out, r.items[m.Index])
	}
	return out
}
