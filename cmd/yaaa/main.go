package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yaaa-term/yaaa/internal/clipboard"
	"github.com/yaaa-term/yaaa/internal/config"
	"github.com/yaaa-term/yaaa/internal/logging"
	"github.com/yaaa-term/yaaa/internal/platform"
	"github.com/yaaa-term/yaaa/internal/session"
	"github.com/yaaa-term/yaaa/internal/terminal"
	"github.com/yaaa-term/yaaa/internal/ui"
)

// Version is set at build time via -ldflags "-X main.Version=...".
var Version = "dev"

const (
	// historyLimit is the scrollback kept per tab, in lines.
	historyLimit = 10000

	// eventBuffer is the capacity of the backend event channel.
	eventBuffer = 64
)

// globalOptions are the flags shared by every command.
type globalOptions struct {
	debug     bool
	configDir string
}

func (o *globalOptions) paths() (config.Paths, error) {
	if o.configDir != "" {
		return config.PathsAt(o.configDir), nil
	}
	return config.DefaultPaths()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "yaaa",
		Short:         "Terminal workspace for projects, shells and coding agents",
		Long:          "yaaa organizes shells and coding agents into project groups and restores them on the next start.",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "write debug logs to the state directory")
	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "configuration and state directory (default: $"+config.EnvConfigDir+" or the OS config dir)")

	root.AddCommand(newGroupsCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

func runTUI(ctx context.Context, opts *globalOptions) error {
	inFd, outFd := int(os.Stdin.Fd()), int(os.Stdout.Fd())
	if !term.IsTerminal(inFd) || !term.IsTerminal(outFd) {
		return errors.New("yaaa needs an interactive terminal")
	}

	paths, err := opts.paths()
	if err != nil {
		return err
	}
	if err := paths.Ensure(); err != nil {
		return err
	}
	if warning := platform.CheckFsnotifySupport(paths.ConfigDir); warning != "" {
		fmt.Fprintln(os.Stderr, "Warning:", warning)
	}

	settings, cfgErr := config.Load(paths)

	logCfg := logging.Config{
		Level:      settings.Logs.Level,
		Format:     settings.Logs.Format,
		MaxSizeMB:  settings.Logs.MaxSizeMB,
		MaxBackups: settings.Logs.MaxBackups,
		Debug:      opts.debug,
	}
	if opts.debug {
		logCfg.LogDir = paths.LogDir()
	}
	logging.Init(logCfg)
	defer logging.Shutdown()
	log := logging.ForComponent(logging.CompUI)

	initColorProfile()

	store, err := session.OpenStorage(paths)
	if err != nil {
		return err
	}
	defer store.Close()

	primary, err := store.Register()
	if err != nil {
		log.Warn("instance_register_failed", slog.String("error", err.Error()))
		primary = true
	}
	defer store.Unregister()
	log.Info("startup",
		slog.String("version", Version),
		slog.String("state_db", store.Path()),
		slog.Bool("primary", primary))

	cols, rows, err := term.GetSize(outFd)
	if err != nil {
		cols, rows = 80, 24
	}

	events := make(chan terminal.Event, eventBuffer)
	ws := session.NewWorkspace(session.Options{
		Spawner:    terminal.NewPTYSpawner(events, historyLimit),
		Env:        session.DefaultShellEnv(),
		ShellCmd:   settings.DefaultShellCmd,
		AgentCmd:   settings.DefaultAgentCmd,
		LoginShell: settings.LoginShell(),
		Rows:       max(1, rows-3),
		Cols:       max(1, cols-ui.SidebarWidth),
	})

	var startupErrs []error
	if cfgErr != nil {
		startupErrs = append(startupErrs, cfgErr)
	}

	cwd, err := os.Getwd()
	if err != nil {
		log.Warn("getwd_failed", slog.String("error", err.Error()))
		cwd = ""
	}
	snap, _ := store.LoadGroups()
	startupErrs = append(startupErrs, ws.Restore(ctx, snap, cwd)...)

	autosaver := session.NewAutosaver(store, ws.Snapshot, settings.Persistence.AutosavePerSecond)
	autosaver.SetEnabled(primary)
	autosaver.MarkDirty()

	recentItems, err := store.LoadRecent()
	if err != nil {
		log.Warn("recent_load_failed", slog.String("error", err.Error()))
	}
	recent := session.NewRecentProjects(recentItems, store)
	if cwd != "" {
		recent.Add(cwd)
	}

	watcher, err := config.NewWatcher(paths)
	if err == nil {
		if err = watcher.Start(); err != nil {
			watcher.Stop()
			watcher = nil
		}
	}
	if err != nil {
		log.Warn("config_watcher_unavailable", slog.String("error", err.Error()))
	}

	home := ui.NewHome(ui.Deps{
		Workspace:     ws,
		Router:        session.NewRouter(events),
		Autosaver:     autosaver,
		Recent:        recent,
		Instance:      store,
		Clipboard:     clipboard.New(),
		Watcher:       watcher,
		Settings:      settings,
		Paths:         paths,
		InitialErrors: startupErrs,
	})

	p := tea.NewProgram(home, tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()
	home.Shutdown()
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return nil
}
