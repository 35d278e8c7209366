package cli

import (
	"strconv"
	"strings"

	"planner-cli/internal/model"
	"planner-cli/internal/store"

	"github.com/spf13/cobra"
)

func newItemsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "items",
		Aliases: []string{"item"},
		Short:   "Manage items",
	}
	cmd.AddCommand(newItemsAddCmd(app))
	cmd.AddCommand(newItemsLsCmd(app))
	cmd.AddCommand(newItemsMoveCmd(app))
	cmd.AddCommand(newItemsReorderCmd(app))
	cmd.AddCommand(newNudgeCmd(app, model.KindItem))
	cmd.AddCommand(newItemsStatusCmd(app, "done", model.StatusDone))
	cmd.AddCommand(newItemsStatusCmd(app, "reopen", model.StatusActive))
	cmd.AddCommand(newItemsRenameCmd(app))
	cmd.AddCommand(newRetireCmd(app, model.KindItem, "archive"))
	cmd.AddCommand(newRetireCmd(app, model.KindItem, "delete"))
	return cmd
}

// listFlag parses --list; 0 means the unassigned items.
func listFlag(raw string) (model.ID, error) {
	if strings.TrimSpace(raw) == "" || raw == "0" {
		return 0, nil
	}
	return parseID("--list", raw)
}

func newItemsAddCmd(app *App) *cobra.Command {
	var list string
	cmd := &cobra.Command{
		Use:   "add <text>...",
		Short: "Append an item to a list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := listFlag(list)
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = st.Close() }()

			it, err := st.CreateItem(cmd.Context(), container, strings.Join(args, " "))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, it)
		},
	}
	cmd.Flags().StringVar(&list, "list", "", "List id (default: unassigned)")
	return cmd
}

func newItemsLsCmd(app *App) *cobra.Command {
	var list string
	var archived bool
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List the items of one list in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := listFlag(list)
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = st.Close() }()

			items, err := st.ListItems(cmd.Context(), container, store.ListOptions{IncludeArchived: archived})
			if err != nil {
				return writeErr(cmd, err)
			}
			if items == nil {
				items = []model.Item{}
			}
			return writeOut(cmd, app, itemRows(items))
		},
	}
	cmd.Flags().StringVar(&list, "list", "", "List id (default: unassigned)")
	cmd.Flags().BoolVar(&archived, "archived", false, "Include archived items")
	return cmd
}

func newItemsMoveCmd(app *App) *cobra.Command {
	var list string
	var index int
	cmd := &cobra.Command{
		Use:   "move <item-id>",
		Short: "Move an item to a position in a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("item id", args[0])
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

			it, err := st.GetItem(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			from := model.ItemsOf(0)
			if it.ParentID != nil {
				from = model.ItemsOf(*it.ParentID)
			}
			to := from
			if cmd.Flags().Changed("list") {
				dest, err := listFlag(list)
				if err != nil {
					return writeErr(cmd, err)
				}
				to = model.ItemsOf(dest)
			}
			if err := st.Move(cmd.Context(), id, from, to, index); err != nil {
				return writeErr(cmd, err)
			}
			moved, err := st.GetItem(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, moveResult{Kind: model.KindItem, ID: id, From: from, To: to, Index: moved.Order})
		},
	}
	cmd.Flags().StringVar(&list, "list", "", "Destination list id (default: current; 0 = unassigned)")
	cmd.Flags().IntVar(&index, "index", 0, "Destination position (clamped to the end)")
	return cmd
}

func newItemsReorderCmd(app *App) *cobra.Command {
	var list string
	cmd := &cobra.Command{
		Use:   "reorder <item-id>...",
		Short: "Rewrite a list's order; unlisted items keep their order after the listed ones",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := listFlag(list)
			if err != nil {
				return writeErr(cmd, err)
			}
			ids := make([]model.ID, 0, len(args))
			for _, a := range args {
				id, err := parseID("item id", a)
				if err != nil {
					return writeErr(cmd, err)
				}
				ids = append(ids, id)
			}
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = st.Close() }()

			if err := st.Write(cmd.Context(), model.ItemsOf(container), ids); err != nil {
				return writeErr(cmd, err)
			}
			items, err := st.ListItems(cmd.Context(), container, store.ListOptions{})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, itemRows(items))
		},
	}
	cmd.Flags().StringVar(&list, "list", "", "List id (default: unassigned)")
	return cmd
}

func newItemsStatusCmd(app *App, use string, status model.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <item-id>",
		Short: "Mark an item " + string(status),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("item id", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = st.Close() }()

			if err := st.SetStatus(cmd.Context(), id, status); err != nil {
				return writeErr(cmd, err)
			}
			it, err := st.GetItem(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, it)
		},
	}
}

func newItemsRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <item-id> <text>...",
		Short: "Change an item's text",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("item id", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = st.Close() }()

			if err := st.RenameItem(cmd.Context(), id, strings.Join(args[1:], " ")); err != nil {
				return writeErr(cmd, err)
			}
			it, err := st.GetItem(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, it)
		},
	}
}

func itoa(n int) string { return strconv.Itoa(n) }
