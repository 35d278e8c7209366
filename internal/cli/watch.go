package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"planner-cli/internal/board"
	"planner-cli/internal/model"
	"planner-cli/internal/store"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type scopeChange struct {
	Scope model.Scope `json:"scope"`
	Keys  []string    `json:"keys"`
	At    time.Time   `json:"at"`
}

func newWatchCmd(app *App) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print each list's order whenever it changes (one JSON document per change)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := openStore(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = st.Close() }()

			changes := make(chan model.Scope, 64)
			b := board.New(ctx, st,
				board.WithLogger(app.log),
				board.WithMetrics(app.metrics),
				board.WithColumns(app.cfg.Columns),
				board.WithOnChange(func(s model.Scope) {
					select {
					case changes <- s:
					default:
					}
				}),
			)
			defer b.Close()
			if err := b.MountAll(ctx); err != nil {
				return writeErr(cmd, err)
			}

			g, gctx := errgroup.WithContext(ctx)
			if err := runBackground(gctx, g, app, st, metricsAddr); err != nil {
				return writeErr(cmd, err)
			}
			g.Go(func() error {
				for {
					select {
					case <-gctx.Done():
						return nil
					case s := <-changes:
						if s == (model.Scope{}) {
							continue
						}
						c, err := b.Acquire(s)
						if err != nil {
							return err
						}
						if err := writeOut(cmd, app, scopeChange{Scope: s, Keys: c.Keys(), At: time.Now().UTC()}); err != nil {
							return err
						}
					}
				}
			})
			if err := g.Wait(); err != nil && ctx.Err() == nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}

// runBackground starts the work every long-running command shares: watching
// the database for other writers, the Redis relay, and the metrics endpoint.
func runBackground(ctx context.Context, g *errgroup.Group, app *App, st *store.Store, metricsAddr string) error {
	if err := st.Watch(ctx, app.cfg.WatchDelay); err != nil {
		return err
	}
	if r := app.stream(); r != nil {
		r.Attach(st)
		g.Go(func() error { return r.Run(ctx, st) })
	}
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", app.metrics.Handler())
		srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		app.log.Info("serving metrics", "addr", metricsAddr)
	}
	return nil
}
