package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yaaa-term/yaaa/internal/clipboard"
	"github.com/yaaa-term/yaaa/internal/config"
	"github.com/yaaa-term/yaaa/internal/logging"
	"github.com/yaaa-term/yaaa/internal/session"
)

var uiLog = logging.ForComponent(logging.CompUI)

const (
	// frameInterval paces the frame loop (about 30 frames a second).
	frameInterval = 33 * time.Millisecond

	// heartbeatInterval is how often the instance heartbeat is refreshed.
	heartbeatInterval = 10 * time.Second

	// statusTTL is how long a status message stays in the status bar.
	statusTTL = 5 * time.Second
)

// Minimum terminal size; below this only a notice is drawn.
const (
	minTerminalWidth  = 40
	minTerminalHeight = 8
)

// Clipboard is the system clipboard as seen by the UI.
type Clipboard interface {
	Copy(text string) (*clipboard.CopyResult, error)
	Paste() (string, error)
}

// Heartbeater refreshes this instance's liveness record and reports
// whether it is the primary instance.
type Heartbeater interface {
	Heartbeat() (bool, error)
	AliveInstances() (int, error)
}

// Deps wires the Home model to the rest of the application. Only
// Workspace and Router are required.
type Deps struct {
	Workspace *session.Workspace
	Router    *session.Router
	Autosaver *session.Autosaver
	Recent    *session.RecentProjects
	Instance  Heartbeater
	Clipboard Clipboard
	Watcher   *config.Watcher

	Settings config.Settings
	Paths    config.Paths

	// InitialErrors are shown once at startup (config and restore failures).
	InitialErrors []error
}

type frameMsg time.Time

type tabSpawnedMsg struct {
	groupID uint64
	spec    session.TabSpec
	tab     *session.Tab
	err     error
}

type heartbeatMsg struct {
	primary bool
	// instances is the number of live instances, 0 when unknown.
	instances int
	err       error
}

type configReloadMsg config.Reload

type clipboardMsg struct {
	copied *clipboard.CopyResult
	paste  string
	pasted bool
	err    error
}

// Home is the main bubbletea model: sidebar, terminal pane and status bar.
type Home struct {
	ws        *session.Workspace
	router    *session.Router
	autosaver *session.Autosaver
	recent    *session.RecentProjects
	instance  Heartbeater
	clip      Clipboard
	watcher   *config.Watcher
	themes    *ThemeWatcher

	newThemeWatcher func(context.Context) *ThemeWatcher

	settings config.Settings
	paths    config.Paths
	keys     KeyMap

	help    *HelpOverlay
	confirm *ConfirmDialog
	dialog  *GroupDialog

	width       int
	height      int
	showSidebar bool

	frame         int
	fps           fpsCounter
	lastHeartbeat time.Time
	primary       bool
	instances     int

	status      string
	statusErr   bool
	statusUntil time.Time

	// spawning counts tabs whose process is being started in the background.
	spawning int

	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
}

// NewHome builds the model. It does not start any goroutine except the OS
// theme watcher when the theme follows the system.
func NewHome(deps Deps) *Home {
	ctx, cancel := context.WithCancel(context.Background())
	keys := DefaultKeyMap()
	h := &Home{
		ws:          deps.Workspace,
		router:      deps.Router,
		autosaver:   deps.Autosaver,
		recent:      deps.Recent,
		instance:    deps.Instance,
		clip:        deps.Clipboard,
		watcher:     deps.Watcher,
		settings:    deps.Settings,
		paths:       deps.Paths,
		keys:        keys,
		help:        NewHelpOverlay(keys),
		confirm:     NewConfirmDialog(),
		dialog:      NewGroupDialog(),
		showSidebar: deps.Settings.SidebarShown(),
		primary:     true,
		ctx:         ctx,
		cancel:      cancel,
		now:         time.Now,

		newThemeWatcher: NewThemeWatcher,
	}
	if h.recent == nil {
		h.recent = session.NewRecentProjects(nil, nil)
	}
	InitTheme(deps.Settings.ResolveTheme())
	if deps.Settings.Theme == "system" {
		h.themes = h.newThemeWatcher(ctx)
	}
	if len(deps.InitialErrors) > 0 {
		h.setError(errors.Join(deps.InitialErrors...))
	}
	return h
}

func (h *Home) Init() tea.Cmd {
	cmds := []tea.Cmd{h.tick(), h.waitReload()}
	if h.themes != nil {
		cmds = append(cmds, h.themes.wait())
	}
	if h.instance != nil {
		h.lastHeartbeat = h.now()
		cmds = append(cmds, h.heartbeat())
	}
	return tea.Batch(cmds...)
}

func (h *Home) tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (h *Home) waitReload() tea.Cmd {
	if h.watcher == nil {
		return nil
	}
	ch := h.watcher.Reloads()
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return nil
		}
		return configReloadMsg(r)
	}
}

func (h *Home) heartbeat() tea.Cmd {
	inst := h.instance
	return func() tea.Msg {
		primary, err := inst.Heartbeat()
		if err != nil {
			return heartbeatMsg{err: err}
		}
		n, err := inst.AliveInstances()
		if err != nil {
			uiLog.Debug("instance_count_failed", slog.String("error", err.Error()))
		}
		return heartbeatMsg{primary: primary, instances: n}
	}
}

func (h *Home) setStatus(s string) {
	h.status = s
	h.statusErr = false
	h.statusUntil = h.now().Add(statusTTL)
}

func (h *Home) setError(err error) {
	h.status = err.Error()
	h.statusErr = true
	h.statusUntil = h.now().Add(statusTTL)
}

func (h *Home) markDirty() {
	if h.autosaver != nil {
		h.autosaver.MarkDirty()
	}
}

func (h *Home) showDebug() bool {
	return h.settings.TerminalLinesShown() || h.settings.FPSShown()
}

// paneSize is the outer size of the terminal pane.
func (h *Home) paneSize() (width, height int) {
	width = h.width
	if h.showSidebar {
		width -= SidebarWidth
	}
	return max(1, width), max(1, h.height-1)
}

// gridSize is the terminal grid available to tabs.
func (h *Home) gridSize() (rows, cols int) {
	w, ht := h.paneSize()
	return paneBodySize(w, ht, h.showDebug())
}

func (h *Home) resize() {
	if h.width == 0 || h.height == 0 {
		return
	}
	rows, cols := h.gridSize()
	h.ws.Resize(rows, cols)
	h.help.SetSize(h.width, h.height)
	h.confirm.SetSize(h.width, h.height)
	h.dialog.SetSize(h.width, h.height)
}

func (h *Home) heuristic() session.Heuristic {
	hr := session.DefaultHeuristic()
	if r := h.settings.Scroll.ClearRatio; r > 0 && r < 1 {
		hr.ClearRatio = r
	}
	if tol := h.settings.Scroll.BottomTolerance; tol > 0 {
		hr.BottomTolerance = tol
	}
	return hr
}

func (h *Home) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h.width = msg.Width
		h.height = msg.Height
		h.resize()
		return h, nil

	case frameMsg:
		cmd := h.onFrame(time.Time(msg))
		return h, tea.Batch(h.tick(), cmd)

	case tabSpawnedMsg:
		h.onTabSpawned(msg)
		return h, nil

	case heartbeatMsg:
		if msg.err != nil {
			uiLog.Warn("heartbeat_failed", slog.String("error", msg.err.Error()))
			return h, nil
		}
		if msg.primary != h.primary {
			uiLog.Info("primary_changed", slog.Bool("primary", msg.primary))
		}
		h.primary = msg.primary
		h.instances = msg.instances
		if h.autosaver != nil {
			h.autosaver.SetEnabled(msg.primary)
		}
		return h, nil

	case configReloadMsg:
		return h, h.applyReload(config.Reload(msg))

	case themeChangedMsg:
		if h.settings.Theme == "system" {
			if msg.dark {
				InitTheme(string(ThemeDark))
			} else {
				InitTheme(string(ThemeLight))
			}
		}
		if h.themes != nil {
			return h, h.themes.wait()
		}
		return h, nil

	case clipboardMsg:
		h.onClipboard(msg)
		return h, nil

	case tea.KeyMsg:
		return h.handleKey(msg)
	}
	return h, nil
}

// onFrame runs one tick of the workspace: drain backend events, run the
// scroll heuristic for the active tab and autosave.
func (h *Home) onFrame(now time.Time) tea.Cmd {
	h.frame++
	h.fps.frame(now)

	tabsBefore, groupsBefore := h.ws.TabCount(), len(h.ws.Groups())
	if h.router.Drain(h.ws, h.settings.Events.DrainPerTick) > 0 {
		if h.ws.TabCount() != tabsBefore || len(h.ws.Groups()) != groupsBefore {
			h.markDirty()
		}
	}

	if tab, ok := h.ws.Active(); ok {
		heur := h.heuristic()
		if tab.ConsumeJustCreated() && h.width > 0 {
			rows, cols := h.gridSize()
			if err := tab.Backend().Resize(rows, cols); err != nil {
				uiLog.Debug("resize_failed", slog.Uint64("tab", tab.ID), slog.String("error", err.Error()))
			}
		}
		tab.Observe(heur)
		layout := session.LayoutFromOffset(tab.Backend().DisplayOffset(), session.RowHeight)
		tab.UpdateScrolledUp(layout, heur)
	}

	if h.autosaver != nil {
		h.autosaver.Tick()
	}

	if h.status != "" && now.After(h.statusUntil) {
		h.status = ""
	}

	if h.instance != nil && now.Sub(h.lastHeartbeat) >= heartbeatInterval {
		h.lastHeartbeat = now
		return h.heartbeat()
	}
	return nil
}

// applyReload takes over reloaded settings and returns the commands that
// keep listening for reloads and, once enabled, OS theme changes.
func (h *Home) applyReload(r config.Reload) tea.Cmd {
	if r.Err != nil {
		h.setError(fmt.Errorf("config: %w", r.Err))
		return h.waitReload()
	}
	h.settings = r.Settings
	h.ws.SetCommands(r.Settings.DefaultShellCmd, r.Settings.DefaultAgentCmd, r.Settings.LoginShell())
	h.showSidebar = r.Settings.SidebarShown()
	var watchTheme tea.Cmd
	if r.Settings.Theme == "system" && h.themes == nil {
		h.themes = h.newThemeWatcher(h.ctx)
		if h.themes != nil {
			watchTheme = h.themes.wait()
		}
	}
	InitTheme(r.Settings.ResolveTheme())
	h.resize()
	h.setStatus("Settings reloaded")
	return tea.Batch(h.waitReload(), watchTheme)
}

// spawnTab allocates a tab in groupID and starts its process off the UI
// goroutine. The result arrives as tabSpawnedMsg.
func (h *Home) spawnTab(groupID uint64, kind session.Kind) tea.Cmd {
	spec, err := h.ws.PrepareTab(groupID, kind)
	if err != nil {
		h.setError(err)
		return nil
	}
	if h.width > 0 {
		spec.Rows, spec.Cols = h.gridSize()
	}
	h.spawning++
	ws, ctx := h.ws, h.ctx
	return func() tea.Msg {
		tab, err := ws.Spawn(ctx, spec)
		return tabSpawnedMsg{groupID: groupID, spec: spec, tab: tab, err: err}
	}
}

func (h *Home) onTabSpawned(msg tabSpawnedMsg) {
	h.spawning = max(0, h.spawning-1)
	if msg.err != nil {
		h.reportSpawnError(msg.spec, msg.err)
		return
	}
	if err := h.ws.CommitTab(msg.groupID, msg.tab); err != nil {
		h.setError(err)
		return
	}
	h.markDirty()
}

func (h *Home) reportSpawnError(spec session.TabSpec, err error) {
	if !errors.Is(err, session.ErrFatalSpawn) {
		h.setError(err)
		return
	}
	uiLog.Error("fatal_spawn", slog.Uint64("tab", spec.ID), slog.String("error", err.Error()))
	crash := filepath.Join(h.paths.LogDir(), fmt.Sprintf("crash-%d.log", h.now().Unix()))
	if dumpErr := logging.DumpTail(crash); dumpErr != nil {
		uiLog.Warn("crash_dump_failed", slog.String("error", dumpErr.Error()))
		h.setError(err)
		return
	}
	h.setError(fmt.Errorf("%w (log: %s)", err, crash))
}

func (h *Home) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case h.help.IsVisible():
		h.help.Update(msg)
		return h, nil
	case h.confirm.IsVisible():
		if ok, gid := h.confirm.Update(msg); ok {
			if err := h.ws.RemoveGroup(gid); err != nil {
				h.setError(err)
			} else {
				h.markDirty()
			}
		}
		return h, nil
	case h.dialog.IsVisible():
		res, cmd := h.dialog.Update(msg)
		if res != nil {
			return h, tea.Batch(cmd, h.applyDialog(*res))
		}
		return h, cmd
	}

	if cmd, handled := h.handleBinding(msg); handled {
		return h, cmd
	}

	tab, ok := h.ws.Active()
	if !ok || tab.JustCreated {
		// A tab takes input only after its first frame sized it.
		return h, nil
	}
	if b := keyBytes(msg); b != nil {
		if err := tab.Backend().SendInput(b); err != nil {
			uiLog.Debug("send_input_failed", slog.Uint64("tab", tab.ID), slog.String("error", err.Error()))
		}
	}
	return h, nil
}

func (h *Home) handleBinding(msg tea.KeyMsg) (tea.Cmd, bool) {
	k := h.keys
	switch {
	case key.Matches(msg, k.Quit):
		return tea.Quit, true
	case key.Matches(msg, k.Help):
		h.help.SetSize(h.width, h.height)
		h.help.Show()
	case key.Matches(msg, k.Sidebar):
		h.showSidebar = !h.showSidebar
		h.resize()
	case key.Matches(msg, k.NextTab):
		h.ws.CycleNext()
	case key.Matches(msg, k.PrevTab):
		h.ws.CyclePrev()
	case key.Matches(msg, k.NextGroup):
		h.cycleGroup(1)
	case key.Matches(msg, k.PrevGroup):
		h.cycleGroup(-1)
	case key.Matches(msg, k.NewTerminal):
		return h.newTab(session.KindTerminal), true
	case key.Matches(msg, k.NewAgent):
		return h.newTab(session.KindAgent), true
	case key.Matches(msg, k.CloseTab):
		if tab, ok := h.ws.Active(); ok {
			if err := h.ws.RemoveTab(tab.ID); err != nil {
				h.setError(err)
			} else {
				h.markDirty()
			}
		}
	case key.Matches(msg, k.AddProject):
		initial := ""
		if g, ok := h.ws.ActiveGroup(); ok {
			initial = g.Path
		}
		h.dialog.SetSize(h.width, h.height)
		h.dialog.ShowAddProject(h.recent, initial)
	case key.Matches(msg, k.RenameGroup):
		if g, ok := h.ws.ActiveGroup(); ok {
			h.dialog.SetSize(h.width, h.height)
			h.dialog.ShowRename(g.ID, g.Name)
		}
	case key.Matches(msg, k.RemoveGroup):
		if g, ok := h.ws.ActiveGroup(); ok {
			h.confirm.SetSize(h.width, h.height)
			h.confirm.ShowRemoveGroup(g.ID, g.Name, len(g.TabIDs))
		}
	case key.Matches(msg, k.ScrollUp, k.ScrollDown, k.PageUp, k.PageDown, k.ScrollTop, k.ScrollEnd):
		h.scroll(msg)
	case key.Matches(msg, k.Copy):
		return h.copyVisible(), true
	case key.Matches(msg, k.Paste):
		return h.paste(), true
	default:
		return nil, false
	}
	return nil, true
}

func (h *Home) newTab(kind session.Kind) tea.Cmd {
	g, ok := h.ws.ActiveGroup()
	if !ok {
		h.setStatus("Add a project first (Alt+p)")
		return nil
	}
	return h.spawnTab(g.ID, kind)
}

func (h *Home) cycleGroup(step int) {
	groups := h.ws.Groups()
	if len(groups) == 0 {
		return
	}
	cur := 0
	if g, ok := h.ws.ActiveGroup(); ok {
		for i, gg := range groups {
			if gg.ID == g.ID {
				cur = i
				break
			}
		}
	}
	n := len(groups)
	next := ((cur+step)%n + n) % n
	_ = h.ws.SetActiveGroup(groups[next].ID)
}

func (h *Home) scroll(msg tea.KeyMsg) {
	tab, ok := h.ws.Active()
	if !ok {
		return
	}
	b := tab.Backend()
	rows, _ := h.gridSize()
	k := h.keys
	switch {
	case key.Matches(msg, k.ScrollUp):
		b.ScrollLines(1)
	case key.Matches(msg, k.ScrollDown):
		b.ScrollLines(-1)
	case key.Matches(msg, k.PageUp):
		b.ScrollLines(rows)
	case key.Matches(msg, k.PageDown):
		b.ScrollLines(-rows)
	case key.Matches(msg, k.ScrollTop):
		b.ScrollToTop()
	case key.Matches(msg, k.ScrollEnd):
		b.ScrollToBottom()
	}
}

// applyDialog acts on a submitted group dialog.
func (h *Home) applyDialog(res GroupDialogResult) tea.Cmd {
	switch res.Mode {
	case GroupDialogRename:
		if err := h.ws.RenameGroup(res.GroupID, res.Value); err != nil {
			h.setError(err)
			return nil
		}
		h.markDirty()
		return nil

	case GroupDialogAddProject:
		path, err := session.NormalizeProjectPath(res.Value)
		if err != nil {
			h.setError(err)
			return nil
		}
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			// Stale recent entries are dropped once they fail.
			h.recent.Remove(path)
			h.setError(fmt.Errorf("not a directory: %s", path))
			return nil
		}
		h.recent.Add(path)
		for _, g := range h.ws.Groups() {
			if filepath.Clean(g.Path) == path {
				_ = h.ws.SetActiveGroup(g.ID)
				return nil
			}
		}
		gid := h.ws.CreateGroup(path)
		h.markDirty()
		return h.spawnTab(gid, session.KindTerminal)
	}
	return nil
}

func (h *Home) copyVisible() tea.Cmd {
	tab, ok := h.ws.Active()
	if !ok || h.clip == nil {
		return nil
	}
	text := tab.Backend().SelectedText()
	if text == "" {
		text = strings.TrimRight(strings.Join(tab.Backend().VisibleLines(), "\n"), " \n")
	}
	clip := h.clip
	return func() tea.Msg {
		res, err := clip.Copy(text)
		return clipboardMsg{copied: res, err: err}
	}
}

func (h *Home) paste() tea.Cmd {
	if _, ok := h.ws.Active(); !ok || h.clip == nil {
		return nil
	}
	clip := h.clip
	return func() tea.Msg {
		text, err := clip.Paste()
		return clipboardMsg{paste: text, pasted: true, err: err}
	}
}

func (h *Home) onClipboard(msg clipboardMsg) {
	if msg.err != nil {
		h.setError(msg.err)
		return
	}
	if msg.copied != nil {
		h.setStatus(fmt.Sprintf("Copied %d line(s) via %s", msg.copied.LineCount, msg.copied.Method))
		return
	}
	if !msg.pasted || msg.paste == "" {
		return
	}
	tab, ok := h.ws.Active()
	if !ok || tab.JustCreated {
		return
	}
	if err := tab.Backend().SendInput(clipboard.BracketedPaste(msg.paste)); err != nil {
		h.setError(err)
	}
}

// Shutdown saves pending changes and releases every tab. Call it once
// after the program exits.
func (h *Home) Shutdown() {
	if h.autosaver != nil {
		h.autosaver.Flush()
	}
	h.ws.Clear()
	if h.themes != nil {
		h.themes.Close()
	}
	if h.watcher != nil {
		h.watcher.Stop()
	}
	h.cancel()
}

func (h *Home) View() string {
	if h.width == 0 || h.height == 0 {
		return ""
	}
	if h.width < minTerminalWidth || h.height < minTerminalHeight {
		return lipgloss.Place(h.width, h.height, lipgloss.Center, lipgloss.Center,
			WarningStyle.Render(fmt.Sprintf("Terminal too small (%dx%d)", h.width, h.height)))
	}

	switch {
	case h.help.IsVisible():
		return h.help.View()
	case h.confirm.IsVisible():
		return h.confirm.View()
	case h.dialog.IsVisible():
		return h.dialog.View()
	}

	pw, ph := h.paneSize()
	tab, _ := h.ws.Active()
	label := ""
	if tab != nil {
		label = h.ws.TabLabel(tab.ID)
	}
	pane := renderPane(tab, label, paneView{
		width:     pw,
		height:    ph,
		showLines: h.settings.TerminalLinesShown(),
		showFPS:   h.settings.FPSShown(),
		fps:       h.fps.rate(),
	})
	body := pane
	if h.showSidebar {
		body = lipgloss.JoinHorizontal(lipgloss.Top, renderSidebar(h.ws, SidebarWidth, ph, h.frame), pane)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, h.statusBar())
}

func (h *Home) statusBar() string {
	var left string
	switch {
	case h.status != "" && h.statusErr:
		left = ErrorStyle.Render(h.status)
	case h.status != "":
		left = SuccessStyle.Render(h.status)
	case h.spawning > 0:
		left = WarningStyle.Render("Starting tab...")
	default:
		left = StatusKeyStyle.Render("Alt+?") + DimStyle.Render(" hotkeys")
	}
	if !h.primary {
		left += DimStyle.Render("  " + readOnlyNotice(h.instances))
	}
	return StatusBarStyle.Width(h.width).MaxHeight(1).Render(left)
}

func readOnlyNotice(instances int) string {
	if instances > 1 {
		return fmt.Sprintf("(read-only: %d instances running, another one owns the workspace)", instances)
	}
	return "(read-only: another instance owns the workspace)"
}
