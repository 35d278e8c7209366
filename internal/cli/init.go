package cli

import (
	"net/url"

	"github.com/spf13/cobra"
)

func newInitCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the board database",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = st.Close() }()

			return writeOut(cmd, app, map[string]any{
				"db":      st.Path(),
				"columns": app.cfg.Columns,
				"config":  app.cfg.File,
			})
		},
	}
	return cmd
}

func newConfigCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.cfg
			if u, err := url.Parse(cfg.RedisURL); err == nil && cfg.RedisURL != "" {
				cfg.RedisURL = u.Redacted()
			}
			return writeOut(cmd, app, cfg)
		},
	}
}
