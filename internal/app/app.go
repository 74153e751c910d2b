// Package app wires the configuration, the song database, the library
// directories, the command dispatcher and the TUI into one program.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"musync/internal/audit"
	"musync/internal/bridge"
	"musync/internal/cache"
	"musync/internal/commands"
	"musync/internal/config"
	"musync/internal/console"
	"musync/internal/library"
	"musync/internal/logging"
	"musync/internal/store"
	"musync/internal/ui"
)

// App is the main application orchestrator.
type App struct {
	config *config.Config

	store      *store.Store
	env        *commands.Env
	console    *console.Console
	state      *bridge.State
	dispatcher *bridge.Dispatcher
	history    *audit.Logger

	program       *tea.Program
	signalCleanup func()
	forceExit     func() bool

	mu           sync.Mutex
	shutdownOnce sync.Once
}

// New validates cfg, opens the database and builds the command environment.
func New(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, NewAppError(ErrCodeConfig, "invalid configuration", err)
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, NewAppError(ErrCodeStore, "failed to open song database", err)
	}

	history, err := OpenHistory(cfg)
	if err != nil {
		logging.Warn("run history not available", "error", err)
		history, _ = audit.NewLogger("", audit.Config{})
	}

	con := console.New()
	state := bridge.NewState()

	a := &App{
		config:     cfg,
		store:      st,
		env:        NewEnv(cfg, st),
		console:    con,
		state:      state,
		dispatcher: bridge.NewDispatcher(con, state),
		history:    history,
	}
	a.dispatcher.SetRecorder(func(r bridge.RunRecord) {
		a.history.Log(audit.FromRun(r))
	})
	return a, nil
}

// OpenHistory opens the run history kept next to the song database.
func OpenHistory(cfg *config.Config) (*audit.Logger, error) {
	return audit.NewLogger(filepath.Dir(cfg.Database.Path), audit.Config{
		Enabled:       cfg.History.Enabled,
		MaxEntries:    cfg.History.MaxEntries,
		RetentionDays: cfg.History.RetentionDays,
	})
}

// NewEnv builds the directories the commands work on. Without a DAP the
// DAP and playlist directories stay nil. Library and DAP share one hash cache.
func NewEnv(cfg *config.Config, st *store.Store) *commands.Env {
	hashes := cache.NewHashCache(cache.DefaultHashEntries)

	env := &commands.Env{
		Library: library.New(cfg.Library.Path, cfg.Library.Patterns...),
		Store:   st,
	}
	env.Library.Hashes = hashes
	if cfg.DAP.Enabled() {
		env.DAP = library.New(cfg.DAP.Path, cfg.Library.Patterns...)
		env.DAP.Hashes = hashes
		env.Playlists = library.New(
			filepath.Join(cfg.DAP.Path, cfg.DAP.PlaylistDir),
			"*"+commands.PlaylistExt,
		)
	}
	return env
}

// Console returns the shared console.
func (a *App) Console() *console.Console {
	return a.console
}

// Dispatcher returns the command dispatcher.
func (a *App) Dispatcher() *bridge.Dispatcher {
	return a.dispatcher
}

// History returns the run history.
func (a *App) History() *audit.Logger {
	return a.history
}

// Start builds the command of kind from the form values and hands it to the
// dispatcher. Invalid commands and rejected starts land on the console.
func (a *App) Start(kind commands.Kind, args commands.Args) error {
	cmd, err := commands.New(kind, args)
	if err != nil {
		a.console.Error(err.Error())
		return err
	}
	return a.dispatcher.Start(a.env.Bind(cmd))
}

// Model builds the TUI model over the app's state and console.
func (a *App) Model() ui.Model {
	return ui.NewModel(ui.Options{
		State:         a.state,
		Console:       a.console,
		Run:           a.Start,
		FrameInterval: a.config.UI.FrameInterval,
		ChoiceLabels:  a.config.UI.ChoiceLabels,
	})
}

// Run starts the TUI and blocks until the operator quits.
func (a *App) Run() error {
	if dir, err := config.Dir(); err == nil {
		if err := logging.EnableFileLogging(dir, logging.ParseLevel(a.config.Logging.Level)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: file logging not available: %v\n", err)
		}
	}
	defer a.Shutdown()

	logging.Info("musync started",
		"version", a.config.Version,
		"library", a.config.Library.Path,
		"dap", a.config.DAP.Path,
		"database", a.store.Path())

	program := tea.NewProgram(a.Model(),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithoutSignalHandler(),
	)
	a.mu.Lock()
	a.program = program
	a.mu.Unlock()

	a.signalCleanup = a.setupSignalHandler()

	if _, err := program.Run(); err != nil {
		return NewAppError(ErrCodeUI, "TUI error", err)
	}
	return nil
}

// Shutdown stops the dispatcher, waiting for a running command up to the
// configured timeout, then closes the database and the log file.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() {
		logging.Debug("starting shutdown")

		// 1. Stop listening for signals
		if a.signalCleanup != nil {
			a.signalCleanup()
		}

		// 2. Abandon any pending choice and wait for the running command
		if !a.dispatcher.Shutdown(a.config.Shutdown.Timeout) {
			logging.Warn("closing database while a command is still running")
		}

		// 3. Close the database and flush the run history
		if err := a.store.Close(); err != nil {
			logging.Warn("error closing database", "error", err)
		}
		if err := a.history.Close(); err != nil {
			logging.Warn("error closing run history", "error", err)
		}

		// 4. The forced-exit timer is no longer needed
		a.mu.Lock()
		if a.forceExit != nil {
			a.forceExit()
		}
		a.mu.Unlock()

		logging.Debug("shutdown complete")
		logging.Close()
	})
}
