package session

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/yaaa-term/yaaa/internal/terminal"
)

// Group is a named project directory holding an ordered list of tabs.
type Group struct {
	ID     uint64
	Name   string
	Path   string
	TabIDs []uint64
}

// Options configures how a Workspace starts tabs.
type Options struct {
	Spawner terminal.Spawner
	Prober  Prober
	Env     ShellEnv

	ShellCmd   string
	AgentCmd   string
	LoginShell bool

	Rows int
	Cols int
}

// Workspace owns every group and tab. It is not safe for concurrent use;
// the UI goroutine drives it. Active selections are ids that are validated
// on read.
type Workspace struct {
	groups map[uint64]*Group
	tabs   map[uint64]*Tab

	activeGroupID  uint64
	hasActiveGroup bool
	activeTabID    uint64
	hasActiveTab   bool

	nextGroupID uint64
	nextTabID   uint64

	opts Options
}

// NewWorkspace creates an empty workspace.
func NewWorkspace(opts Options) *Workspace {
	if opts.Prober == nil {
		opts.Prober = NewLookPathProber()
	}
	return &Workspace{
		groups:      make(map[uint64]*Group),
		tabs:        make(map[uint64]*Tab),
		nextGroupID: 1,
		nextTabID:   1,
		opts:        opts,
	}
}

// SetCommands applies new shell settings to tabs created from now on.
func (w *Workspace) SetCommands(shellCmd, agentCmd string, loginShell bool) {
	w.opts.ShellCmd = shellCmd
	w.opts.AgentCmd = agentCmd
	w.opts.LoginShell = loginShell
	if p, ok := w.opts.Prober.(*LookPathProber); ok {
		p.Forget()
	}
}

// Resize sets the size used for new tabs and resizes every live one.
func (w *Workspace) Resize(rows, cols int) {
	w.opts.Rows = rows
	w.opts.Cols = cols
	for _, t := range w.tabs {
		if err := t.backend.Resize(rows, cols); err != nil {
			sessionLog.Debug("tab_resize_failed",
				slog.Uint64("tab", t.ID),
				slog.String("error", err.Error()))
		}
	}
}

func groupName(path string) string {
	trimmed := strings.TrimRight(path, `/\`)
	if trimmed == "" {
		return path
	}
	name := filepath.Base(trimmed)
	if name == "." || name == "" {
		return path
	}
	return name
}

// CreateGroup adds an empty group for path and makes it active. It does not
// start any tab.
func (w *Workspace) CreateGroup(path string) uint64 {
	id := w.nextGroupID
	w.nextGroupID++
	w.insertGroup(&Group{ID: id, Name: groupName(path), Path: path})
	w.activeGroupID, w.hasActiveGroup = id, true
	w.hasActiveTab = false
	sessionLog.Info("group_created", slog.Uint64("group", id), slog.String("path", path))
	return id
}

func (w *Workspace) insertGroup(g *Group) {
	w.groups[g.ID] = g
}

// CreateTab starts a tab of kind in the group and makes it active. The tab
// id is consumed even when the call fails.
func (w *Workspace) CreateTab(ctx context.Context, groupID uint64, kind Kind) (uint64, error) {
	spec, err := w.PrepareTab(groupID, kind)
	if err != nil {
		return spec.ID, err
	}
	tab, err := w.Spawn(ctx, spec)
	if err != nil {
		return spec.ID, err
	}
	if err := w.CommitTab(groupID, tab); err != nil {
		return spec.ID, err
	}
	return spec.ID, nil
}

// PrepareTab allocates a tab id and builds the spawn spec for it. The id is
// consumed even if the group does not exist.
func (w *Workspace) PrepareTab(groupID uint64, kind Kind) (TabSpec, error) {
	id := w.nextTabID
	w.nextTabID++

	g, ok := w.groups[groupID]
	if !ok {
		return TabSpec{ID: id, Kind: kind}, fmt.Errorf("create tab %d in group %d: %w", id, groupID, ErrGroupNotFound)
	}
	return w.specFor(id, g, kind), nil
}

func (w *Workspace) specFor(id uint64, g *Group, kind Kind) TabSpec {
	cmd := w.opts.ShellCmd
	if kind == KindAgent {
		cmd = w.opts.AgentCmd
	}
	return TabSpec{
		ID:         id,
		Kind:       kind,
		Dir:        g.Path,
		Command:    cmd,
		LoginShell: w.opts.LoginShell,
		Rows:       w.opts.Rows,
		Cols:       w.opts.Cols,
		Env:        w.opts.Env,
	}
}

// Spawn starts the process for spec. It only reads settings fixed at
// construction, so hosts may call it from a background goroutine.
func (w *Workspace) Spawn(ctx context.Context, spec TabSpec) (*Tab, error) {
	return NewTab(ctx, spec, w.opts.Spawner, w.opts.Prober)
}

// CommitTab registers a spawned tab in its group and makes it active. If
// the group vanished while the tab was spawning, the tab is closed.
func (w *Workspace) CommitTab(groupID uint64, tab *Tab) error {
	g, ok := w.groups[groupID]
	if !ok {
		_ = tab.Close()
		return fmt.Errorf("commit tab %d to group %d: %w", tab.ID, groupID, ErrGroupNotFound)
	}
	w.tabs[tab.ID] = tab
	g.TabIDs = append(g.TabIDs, tab.ID)
	w.activeGroupID, w.hasActiveGroup = groupID, true
	w.activeTabID, w.hasActiveTab = tab.ID, true
	return nil
}

func (w *Workspace) groupOf(tabID uint64) (*Group, int) {
	for _, g := range w.groups {
		if i := slices.Index(g.TabIDs, tabID); i >= 0 {
			return g, i
		}
	}
	return nil, -1
}

// RemoveTab closes the tab and removes it from its group. A group left
// without tabs is removed too. When the active tab goes, the group's last
// remaining tab becomes active.
func (w *Workspace) RemoveTab(tabID uint64) error {
	tab, ok := w.tabs[tabID]
	if !ok {
		return fmt.Errorf("remove tab %d: %w", tabID, ErrTabNotFound)
	}
	wasActive := w.hasActiveTab && w.activeTabID == tabID

	delete(w.tabs, tabID)
	closeTab(tab)

	g, pos := w.groupOf(tabID)
	if g == nil {
		if wasActive {
			w.hasActiveTab = false
		}
		return nil
	}
	g.TabIDs = slices.Delete(g.TabIDs, pos, pos+1)

	if len(g.TabIDs) == 0 {
		if wasActive {
			w.hasActiveTab = false
		}
		return w.RemoveGroup(g.ID)
	}

	if wasActive {
		w.activeTabID = g.TabIDs[len(g.TabIDs)-1]
		w.activeGroupID, w.hasActiveGroup = g.ID, true
	}
	return nil
}

// RemoveGroup closes every tab in the group and removes it. If it was the
// active group, the lowest-id remaining group becomes active.
func (w *Workspace) RemoveGroup(groupID uint64) error {
	g, ok := w.groups[groupID]
	if !ok {
		return fmt.Errorf("remove group %d: %w", groupID, ErrGroupNotFound)
	}
	for _, id := range g.TabIDs {
		if t, ok := w.tabs[id]; ok {
			delete(w.tabs, id)
			closeTab(t)
		}
		if w.hasActiveTab && w.activeTabID == id {
			w.hasActiveTab = false
		}
	}
	delete(w.groups, groupID)
	sessionLog.Info("group_removed", slog.Uint64("group", groupID))

	if w.hasActiveGroup && w.activeGroupID == groupID {
		w.hasActiveGroup = false
		w.hasActiveTab = false
		w.activateLowest()
	}
	return nil
}

// activateLowest selects the lowest-id group and its first tab, if any.
func (w *Workspace) activateLowest() {
	groups := w.Groups()
	if len(groups) == 0 {
		w.hasActiveGroup = false
		w.hasActiveTab = false
		return
	}
	g := groups[0]
	w.activeGroupID, w.hasActiveGroup = g.ID, true
	if len(g.TabIDs) > 0 {
		w.activeTabID, w.hasActiveTab = g.TabIDs[0], true
	} else {
		w.hasActiveTab = false
	}
}

func closeTab(t *Tab) {
	if err := t.Close(); err != nil {
		sessionLog.Debug("tab_close_failed",
			slog.Uint64("tab", t.ID),
			slog.String("error", err.Error()))
	}
}

// SetActiveTab makes the tab and its group active and re-pins the view.
func (w *Workspace) SetActiveTab(tabID uint64) error {
	tab, ok := w.tabs[tabID]
	if !ok {
		return fmt.Errorf("activate tab %d: %w", tabID, ErrTabNotFound)
	}
	g, _ := w.groupOf(tabID)
	if g == nil {
		return fmt.Errorf("activate tab %d: %w", tabID, ErrGroupNotFound)
	}
	w.activeTabID, w.hasActiveTab = tabID, true
	w.activeGroupID, w.hasActiveGroup = g.ID, true
	tab.resetDisplayedScroll()
	return nil
}

// SetActiveGroup selects a group and its first tab.
func (w *Workspace) SetActiveGroup(groupID uint64) error {
	g, ok := w.groups[groupID]
	if !ok {
		return fmt.Errorf("activate group %d: %w", groupID, ErrGroupNotFound)
	}
	if len(g.TabIDs) > 0 {
		return w.SetActiveTab(g.TabIDs[0])
	}
	w.activeGroupID, w.hasActiveGroup = groupID, true
	w.hasActiveTab = false
	return nil
}

// CycleNext moves to the next tab of the active group, wrapping around.
func (w *Workspace) CycleNext() {
	w.cycle(1)
}

// CyclePrev moves to the previous tab of the active group, wrapping around.
func (w *Workspace) CyclePrev() {
	w.cycle(-1)
}

func (w *Workspace) cycle(step int) {
	g, ok := w.ActiveGroup()
	if !ok || len(g.TabIDs) < 2 {
		return
	}
	cur := 0
	if w.hasActiveTab {
		if i := slices.Index(g.TabIDs, w.activeTabID); i >= 0 {
			cur = i
		}
	}
	n := len(g.TabIDs)
	next := ((cur+step)%n + n) % n
	_ = w.SetActiveTab(g.TabIDs[next])
}

// RenameGroup changes a group's display name.
func (w *Workspace) RenameGroup(groupID uint64, name string) error {
	g, ok := w.groups[groupID]
	if !ok {
		return fmt.Errorf("rename group %d: %w", groupID, ErrGroupNotFound)
	}
	g.Name = name
	return nil
}

// SetTitle records the terminal title reported by a tab.
func (w *Workspace) SetTitle(tabID uint64, title string) error {
	t, ok := w.tabs[tabID]
	if !ok {
		return fmt.Errorf("set title of tab %d: %w", tabID, ErrTabNotFound)
	}
	t.Title = title
	return nil
}

// Clear closes every tab and empties the workspace. Id counters are kept.
func (w *Workspace) Clear() {
	for id, t := range w.tabs {
		delete(w.tabs, id)
		closeTab(t)
	}
	clear(w.groups)
	w.hasActiveGroup = false
	w.hasActiveTab = false
}

// Active returns the active tab. A stale id reads as no selection.
func (w *Workspace) Active() (*Tab, bool) {
	if !w.hasActiveTab {
		return nil, false
	}
	t, ok := w.tabs[w.activeTabID]
	return t, ok
}

// ActiveGroup returns the active group.
func (w *Workspace) ActiveGroup() (*Group, bool) {
	if !w.hasActiveGroup {
		return nil, false
	}
	g, ok := w.groups[w.activeGroupID]
	return g, ok
}

// Groups returns all groups in ascending id order.
func (w *Workspace) Groups() []*Group {
	out := make([]*Group, 0, len(w.groups))
	for _, g := range w.groups {
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b *Group) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

func (w *Workspace) Group(id uint64) (*Group, bool) {
	g, ok := w.groups[id]
	return g, ok
}

func (w *Workspace) Tab(id uint64) (*Tab, bool) {
	t, ok := w.tabs[id]
	return t, ok
}

// TabCount is the number of live tabs.
func (w *Workspace) TabCount() int {
	return len(w.tabs)
}

// TabLabel is "<n>. Terminal" or "<n>. Agent", numbered by position in
// the owning group.
func (w *Workspace) TabLabel(tabID uint64) string {
	t, ok := w.tabs[tabID]
	if !ok {
		return ""
	}
	pos := 0
	if g, i := w.groupOf(tabID); g != nil {
		pos = i
	}
	return strconv.Itoa(pos+1) + ". " + t.Kind.Label()
}
