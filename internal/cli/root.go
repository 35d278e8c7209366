package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"planner-cli/internal/board"
	"planner-cli/internal/config"
	"planner-cli/internal/format"
	"planner-cli/internal/metrics"
	"planner-cli/internal/model"
	"planner-cli/internal/relay"
	"planner-cli/internal/store"

	"github.com/spf13/cobra"
)

type App struct {
	ConfigFile string
	PrettyJSON bool
	Format     string

	cfg      config.Config
	log      *slog.Logger
	closeLog func() error

	metrics *metrics.Metrics
	relay   *relay.Relay

	mu sync.Mutex
	// changed collects scopes committed by this invocation, for the relay.
	// Long-running commands stream through the relay instead.
	changed   []model.Scope
	streaming bool
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "planner",
		Short:        "Planner board CLI + TUI",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive board
  planner

  # Scriptable commands
  planner lists add --name Inbox
  planner items add "Write report" --list 1
  planner items nudge 7 up
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive board.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app, tuiOptions{})
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loader := config.NewLoader()
		if err := loader.BindFlags(cmd.Root().PersistentFlags(), config.KeyDB, config.KeyColumns, config.KeyLogLevel, config.KeyLogFile, config.KeyRedisURL); err != nil {
			return writeErr(cmd, err)
		}
		cfg, err := loader.Load(app.ConfigFile)
		if err != nil {
			return writeErr(cmd, err)
		}
		log, closeLog, err := cfg.NewLogger(cmd.ErrOrStderr())
		if err != nil {
			return writeErr(cmd, err)
		}
		app.cfg = cfg
		app.log = log
		app.closeLog = closeLog
		app.metrics = metrics.New()
		log.Debug("config loaded", "file", cfg.File, "db", cfg.DB, "columns", cfg.Columns)
		return nil
	}

	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		defer app.shutdown()
		// Tell other open boards about what this command changed.
		app.mu.Lock()
		changed := app.changed
		app.changed = nil
		app.mu.Unlock()
		if app.relay == nil || len(changed) == 0 {
			return nil
		}
		if err := app.relay.Publish(cmd.Context(), changed); err != nil {
			app.log.Warn("relay publish failed", "err", err)
		}
		return nil
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&app.ConfigFile, "config", envOr("PLANNER_CONFIG", ""), "Config file (default: planner.yaml in . or ~/.planner)")
	pf.String("db", "", "Path to the board database")
	pf.Int("columns", 0, "Number of board columns")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.String("log-file", "", "Write logs to this file instead of stderr")
	pf.String("redis-url", "", "Redis URL for sharing changes with other planner processes")
	pf.BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	pf.StringVar(&app.Format, "format", envOr("PLANNER_FORMAT", "json"), "Output format (json|yaml|table)")

	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newListsCmd(app))
	cmd.AddCommand(newItemsCmd(app))
	cmd.AddCommand(newWatchCmd(app))
	cmd.AddCommand(newTUICmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

// openStore opens the configured database. When a relay is configured the
// store's commits are recorded for publishing after the command.
func openStore(ctx context.Context, app *App) (*store.Store, error) {
	st, err := store.Open(ctx, app.cfg.DB, store.WithLogger(app.log))
	if err != nil {
		return nil, err
	}
	if app.cfg.RedisURL != "" && app.relay == nil {
		r, err := relay.Dial(ctx, app.cfg.RedisURL, app.cfg.RedisChannel, relay.WithLogger(app.log))
		if err != nil {
			// Sharing is best effort; local edits still work.
			app.log.Warn("relay unavailable", "err", err)
		} else {
			app.relay = r
		}
	}
	st.OnCommit(func(scopes []model.Scope) {
		app.mu.Lock()
		defer app.mu.Unlock()
		if !app.streaming {
			app.changed = append(app.changed, scopes...)
		}
	})
	return st, nil
}

func openBoard(ctx context.Context, app *App, st *store.Store) *board.Board {
	return board.New(ctx, st,
		board.WithLogger(app.log),
		board.WithMetrics(app.metrics),
		board.WithColumns(app.cfg.Columns),
	)
}

func (app *App) shutdown() {
	if app.relay != nil {
		_ = app.relay.Close()
		app.relay = nil
	}
	if app.closeLog != nil {
		_ = app.closeLog()
		app.closeLog = nil
	}
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), format.Envelope{Data: v}, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

// stream switches the app to relaying commits as they happen and returns
// the relay, if any.
func (app *App) stream() *relay.Relay {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.streaming = true
	return app.relay
}
