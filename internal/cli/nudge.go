package cli

import (
	"planner-cli/internal/model"

	"github.com/spf13/cobra"
)

// newNudgeCmd moves one item or list a single step, the way the keyboard
// does on the board: across into the neighboring list or column at an edge.
func newNudgeCmd(app *App, kind model.Kind) *cobra.Command {
	noun := "item"
	if kind == model.KindContainer {
		noun = "list"
	}
	return &cobra.Command{
		Use:       "nudge <" + noun + "-id> up|down",
		Short:     "Move a " + noun + " one step up or down",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(model.Up), string(model.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(noun+" id", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			dir, err := model.ParseDirection(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = st.Close() }()
			b := openBoard(cmd.Context(), app, st)
			defer b.Close()

			s, err := b.Nudge(cmd.Context(), kind, id, dir)
			if err != nil {
				return writeErr(cmd, err)
			}
			res := moveResult{Kind: kind, ID: id, From: s.Origin, To: s.Target, Index: s.Index, Created: s.Created}
			return writeOut(cmd, app, res)
		},
	}
}

func newRetireCmd(app *App, kind model.Kind, verb string) *cobra.Command {
	noun := "item"
	if kind == model.KindContainer {
		noun = "list"
	}
	return &cobra.Command{
		Use:   verb + " <" + noun + "-id>",
		Short: verbShort(verb, noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(noun+" id", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = st.Close() }()

			if verb == "archive" {
				err = st.Archive(cmd.Context(), kind, id)
			} else {
				err = st.SoftDelete(cmd.Context(), kind, id)
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"kind": kind, "id": id, verb + "d": true})
		},
	}
}

func verbShort(verb, noun string) string {
	if verb == "archive" {
		return "Archive a " + noun + " (hidden, remaining order closes up)"
	}
	return "Delete a " + noun + " (remaining order closes up)"
}
