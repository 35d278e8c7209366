package cli

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"planner-cli/internal/board"
	"planner-cli/internal/tui"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type tuiOptions struct {
	metricsAddr string
	noColor     bool
}

func newTUICmd(app *App) *cobra.Command {
	var opts tuiOptions
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app, opts)
		},
	}
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", os.Getenv("NO_COLOR") != "", "Render without colors")
	return cmd
}

func runTUI(cmd *cobra.Command, app *App, opts tuiOptions) error {
	// The board owns the terminal; logs only go to a file.
	if app.cfg.LogFile == "" {
		log, closeLog, err := app.cfg.NewLogger(io.Discard)
		if err != nil {
			return writeErr(cmd, err)
		}
		app.log, app.closeLog = log, closeLog
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, app)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer func() { _ = st.Close() }()

	n := tui.NewNotifier()
	b := board.New(ctx, st,
		board.WithLogger(app.log),
		board.WithMetrics(app.metrics),
		board.WithColumns(app.cfg.Columns),
		board.WithOnChange(n.Notify),
	)
	defer b.Close()
	if err := b.MountAll(ctx); err != nil {
		return writeErr(cmd, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if err := runBackground(gctx, g, app, st, opts.metricsAddr); err != nil {
		return writeErr(cmd, err)
	}
	runErr := tui.Run(gctx, b, n, tui.Options{NoColor: opts.noColor, Logger: app.log})
	// gctx ends early only when background work failed.
	failed := gctx.Err() != nil && ctx.Err() == nil
	stop()
	if err := g.Wait(); err != nil && failed {
		runErr = err
	}
	if runErr != nil {
		return writeErr(cmd, runErr)
	}
	return nil
}
