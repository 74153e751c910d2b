package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"musync/internal/app"
	"musync/internal/audit"
	"musync/internal/config"
	"musync/internal/library"
	"musync/internal/logging"
	"musync/internal/store"
)

var (
	version = "0.1.0"

	cfgFile  string
	libPath  string
	dapPath  string
	dbPath   string
	logLevel string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(app.ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "musync",
		Short: "Keep a music library, its song database and a portable player in sync",
		Long: `musync keeps three copies of a music collection consistent: the library
on this computer, the song database that records every song with its content
hash, and the mounted digital audio player (DAP).

Run without arguments to open the interactive interface.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runApp,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/musync/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&libPath, "library", "", "music library directory")
	rootCmd.PersistentFlags().StringVar(&dapPath, "dap", "", "mounted player directory")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "song database file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "musync version %s\n", version)
			},
		},
		newInitDBCmd(),
		newPlaylistCmd(),
		newHistoryCmd(),
	)
	return rootCmd
}

// loadConfig loads the config file and environment, then applies flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, app.NewAppError(app.ErrCodeConfig, "failed to load config", err)
	}
	if libPath != "" {
		cfg.Library.Path = libPath
	}
	if dapPath != "" {
		cfg.DAP.Path = dapPath
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	cfg.Version = version
	return cfg, nil
}

func runApp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	return application.Run()
}

// openStore opens the database for a non-interactive subcommand, logging to stderr.
func openStore() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logging.Configure(logging.ParseLevel(cfg.Logging.Level), os.Stderr)

	if cfg.Database.Path == "" {
		return nil, app.NewAppError(app.ErrCodeConfig, "invalid configuration", config.ErrMissingDatabase)
	}
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, app.NewAppError(app.ErrCodeStore, "failed to open song database", err)
	}
	return st, nil
}

func newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create or migrate the song database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			logging.Info("database ready", "path", st.Path())
			fmt.Fprintf(cmd.OutOrStdout(), "database ready: %s\n", st.Path())
			return nil
		},
	}
}

func newPlaylistCmd() *cobra.Command {
	playlistCmd := &cobra.Command{
		Use:   "playlist",
		Short: "Manage playlists in the song database",
	}

	playlistCmd.AddCommand(&cobra.Command{
		Use:   "add <name> <path>...",
		Short: "Append registered songs to a playlist",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			paths := make([]string, 0, len(args)-1)
			for _, p := range args[1:] {
				p = library.Clean(p)
				if _, err := st.Song(ctx, p); err != nil {
					return fmt.Errorf("%s: %w", p, err)
				}
				paths = append(paths, p)
			}
			if err := st.AddToPlaylist(ctx, args[0], paths...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d songs to %s\n", len(paths), args[0])
			return nil
		},
	})

	playlistCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every playlist with its songs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			playlists, err := st.Playlists(ctx)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(playlists))
			for name := range playlists {
				names = append(names, name)
			}
			slices.Sort(names)

			out := cmd.OutOrStdout()
			for _, name := range names {
				fmt.Fprintf(out, "%s (%d)\n", name, len(playlists[name]))
				for _, p := range playlists[name] {
					fmt.Fprintf(out, "  %s\n", p)
				}
			}
			return nil
		},
	})
	return playlistCmd
}

func newHistoryCmd() *cobra.Command {
	var (
		limit  int
		failed bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent command runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logging.Configure(logging.ParseLevel(cfg.Logging.Level), os.Stderr)

			history, err := app.OpenHistory(cfg)
			if err != nil {
				return err
			}
			defer history.Close()

			out := cmd.OutOrStdout()
			shown := 0
			for _, e := range history.GetRecent(history.Len()) {
				if failed && e.Success {
					continue
				}
				printRun(out, e)
				shown++
				if shown == limit {
					break
				}
			}
			if shown == 0 {
				fmt.Fprintln(out, "no runs recorded")
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().BoolVar(&failed, "failed", false, "only show failed runs")
	return cmd
}

func printRun(w io.Writer, e *audit.Entry) {
	status := "ok"
	if !e.Success {
		status = "FAILED"
	}
	fmt.Fprintf(w, "%s  %-6s  %-8s  %s\n",
		e.Timestamp.Local().Format("2006-01-02 15:04:05"), status, e.Duration.Round(time.Millisecond), e.Command)
	if e.Error != "" {
		fmt.Fprintf(w, "    %s\n", e.Error)
	}
}
