package cli

import (
	"strconv"

	"planner-cli/internal/model"
)

type itemRows []model.Item

func (r itemRows) Header() []string { return []string{"ID", "ORDER", "STATUS", "TEXT"} }

func (r itemRows) Rows() [][]string {
	out := make([][]string, 0, len(r))
	for _, it := range r {
		out = append(out, []string{it.ID.String(), strconv.Itoa(it.Order), string(it.Status), it.Text})
	}
	return out
}

type containerRows []model.Container

func (r containerRows) Header() []string { return []string{"ID", "COLUMN", "ORDER", "NAME"} }

func (r containerRows) Rows() [][]string {
	out := make([][]string, 0, len(r))
	for _, c := range r {
		name := c.DisplayName()
		if name == "" {
			name = "(unnamed)"
		}
		out = append(out, []string{c.ID.String(), strconv.Itoa(c.ColumnIndex), strconv.Itoa(c.Order), name})
	}
	return out
}

// moveResult reports where a move or nudge left its subject.
type moveResult struct {
	Kind    model.Kind       `json:"kind"`
	ID      model.ID         `json:"id"`
	From    model.Scope      `json:"from"`
	To      model.Scope      `json:"to"`
	Index   int              `json:"index"`
	Created *model.Container `json:"created,omitempty"`
}
