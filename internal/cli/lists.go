package cli

import (
	"strings"

	"planner-cli/internal/model"
	"planner-cli/internal/store"

	"github.com/spf13/cobra"
)

func newListsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "lists",
		Aliases: []string{"list", "containers"},
		Short:   "Manage lists (the containers items are ranked in)",
	}
	cmd.AddCommand(newListsAddCmd(app))
	cmd.AddCommand(newListsLsCmd(app))
	cmd.AddCommand(newListsMoveCmd(app))
	cmd.AddCommand(newNudgeCmd(app, model.KindContainer))
	cmd.AddCommand(newListsRenameCmd(app))
	cmd.AddCommand(newRetireCmd(app, model.KindContainer, "archive"))
	cmd.AddCommand(newRetireCmd(app, model.KindContainer, "delete"))
	return cmd
}

func newListsAddCmd(app *App) *cobra.Command {
	var column int
	var name string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a list to the end of a column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if column < 0 || column >= app.cfg.Columns {
				return writeErr(cmd, errInvalidArg("--column", itoa(column), "0.."+itoa(app.cfg.Columns-1)))
			}
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = st.Close() }()

			var n *string
			if strings.TrimSpace(name) != "" {
				n = &name
			}
			c, err := st.CreateContainer(cmd.Context(), column, n)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, c)
		},
	}
	cmd.Flags().IntVar(&column, "column", 0, "Column index")
	cmd.Flags().StringVar(&name, "name", "", "List name (empty = unnamed)")
	return cmd
}

func newListsLsCmd(app *App) *cobra.Command {
	var column int
	var archived bool
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List lists, by column then order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = st.Close() }()

			var out []model.Container
			if column >= 0 {
				out, err = st.ListContainers(cmd.Context(), column, store.ListOptions{IncludeArchived: archived})
			} else {
				for i := 0; i < app.cfg.Columns && err == nil; i++ {
					var cs []model.Container
					cs, err = st.ListContainers(cmd.Context(), i, store.ListOptions{IncludeArchived: archived})
					out = append(out, cs...)
				}
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			if out == nil {
				out = []model.Container{}
			}
			return writeOut(cmd, app, containerRows(out))
		},
	}
	cmd.Flags().IntVar(&column, "column", -1, "Only this column (default: all)")
	cmd.Flags().BoolVar(&archived, "archived", false, "Include archived lists")
	return cmd
}

func newListsMoveCmd(app *App) *cobra.Command {
	var column int
	var index int
	cmd := &cobra.Command{
		Use:   "move <list-id>",
		Short: "Move a list to a position in a column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("list id", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if index < 0 {
				return writeErr(cmd, errInvalidArg("--index", itoa(index), "a non-negative position"))
			}
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = st.Close() }()

			c, err := st.GetContainer(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			if !cmd.Flags().Changed("column") {
				column = c.ColumnIndex
			}
			if column < 0 || column >= app.cfg.Columns {
				return writeErr(cmd, errInvalidArg("--column", itoa(column), "0.."+itoa(app.cfg.Columns-1)))
			}
			from, to := model.Column(c.ColumnIndex), model.Column(column)
			if err := st.Move(cmd.Context(), id, from, to, index); err != nil {
				return writeErr(cmd, err)
			}
			moved, err := st.GetContainer(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, moveResult{Kind: model.KindContainer, ID: id, From: from, To: to, Index: moved.Order})
		},
	}
	cmd.Flags().IntVar(&column, "column", 0, "Destination column (default: current)")
	cmd.Flags().IntVar(&index, "index", 0, "Destination position (clamped to the end)")
	return cmd
}

func newListsRenameCmd(app *App) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "rename <list-id>",
		Short: "Rename a list (empty name = unnamed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("list id", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = st.Close() }()

			if err := st.RenameContainer(cmd.Context(), id, &name); err != nil {
				return writeErr(cmd, err)
			}
			c, err := st.GetContainer(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, c)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name")
	return cmd
}
