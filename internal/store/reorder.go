package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"planner-cli/internal/model"
	"planner-cli/internal/reorder"
)

// Write assigns order = index to each id in orderedIDs within scope.
// Members of scope missing from orderedIDs keep their relative order after
// the listed ones. An id outside scope rejects the whole write.
func (s *Store) Write(ctx context.Context, scope model.Scope, orderedIDs []model.ID) error {
	return s.withTx(ctx, "write", func(tx *sql.Tx) ([]model.Scope, error) {
		if err := checkScope(ctx, tx, scope); err != nil {
			return nil, err
		}
		rows, err := scopeRows(ctx, tx, scope)
		if err != nil {
			return nil, err
		}
		member := make(map[model.ID]bool, len(rows))
		for _, r := range rows {
			member[r.id] = true
		}
		listed := make(map[model.ID]bool, len(orderedIDs))
		final := make([]model.ID, 0, len(rows))
		for _, id := range orderedIDs {
			if !member[id] {
				return nil, ScopeMismatchError{Scope: scope, ID: id}
			}
			if listed[id] {
				return nil, ScopeMismatchError{Scope: scope, ID: id, Reason: "listed twice"}
			}
			listed[id] = true
			final = append(final, id)
		}
		for _, r := range rows {
			if !listed[r.id] {
				final = append(final, r.id)
			}
		}
		n, err := s.applyPlan(ctx, tx, rows, reorder.Plan{Scope: scope, IDs: final})
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil
		}
		return []model.Scope{scope}, nil
	})
}

// Move removes id from "from" (closing the gap) and inserts it into "to" at
// destIndex. Both scopes end densely ranked, or neither changes.
func (s *Store) Move(ctx context.Context, id model.ID, from, to model.Scope, destIndex int) error {
	return s.withTx(ctx, "move", func(tx *sql.Tx) ([]model.Scope, error) {
		return s.moveTx(ctx, tx, id, from, to, destIndex)
	})
}

// MoveToNewContainer creates an unnamed container at the end of column and
// moves item id into it as its sole member.
func (s *Store) MoveToNewContainer(ctx context.Context, id model.ID, from model.Scope, column int) (model.Container, error) {
	var created model.Container
	err := s.withTx(ctx, "move-new-container", func(tx *sql.Tx) ([]model.Scope, error) {
		if from.Kind != model.ScopeItems {
			return nil, fmt.Errorf("move-new-container: %s is not an item scope", from)
		}
		c, err := s.createContainerTx(ctx, tx, column, nil)
		if err != nil {
			return nil, err
		}
		created = c
		changed, err := s.moveTx(ctx, tx, id, from, model.ItemsOf(c.ID), 0)
		if err != nil {
			return nil, err
		}
		return append(changed, model.Column(column)), nil
	})
	if err != nil {
		return model.Container{}, err
	}
	return created, nil
}

func (s *Store) moveTx(ctx context.Context, tx *sql.Tx, id model.ID, from, to model.Scope, destIndex int) ([]model.Scope, error) {
	if from.Kind != to.Kind {
		return nil, fmt.Errorf("move: cannot move between %s and %s", from.Kind, to.Kind)
	}
	if err := checkScope(ctx, tx, from); err != nil {
		return nil, err
	}
	if err := checkScope(ctx, tx, to); err != nil {
		return nil, err
	}
	srcRows, err := scopeRows(ctx, tx, from)
	if err != nil {
		return nil, err
	}
	dstRows := srcRows
	if to != from {
		if dstRows, err = scopeRows(ctx, tx, to); err != nil {
			return nil, err
		}
	}

	m, err := reorder.ComputeCrossMove(id,
		reorder.Plan{Scope: from, IDs: rowIDs(srcRows)},
		reorder.Plan{Scope: to, IDs: rowIDs(dstRows)},
		destIndex)
	if errors.Is(err, reorder.ErrNotInSource) {
		return nil, ScopeMismatchError{Scope: from, ID: id}
	}
	if err != nil {
		return nil, err
	}
	if m.NoOp {
		return nil, nil
	}
	if m.SameScope {
		if _, err := s.applyPlan(ctx, tx, srcRows, m.Dest); err != nil {
			return nil, err
		}
		return []model.Scope{from}, nil
	}
	if _, err := s.applyPlan(ctx, tx, srcRows, m.Source); err != nil {
		return nil, err
	}
	if _, err := s.applyPlan(ctx, tx, dstRows, m.Dest); err != nil {
		return nil, err
	}
	return []model.Scope{from, to}, nil
}

// applyPlan writes plan's orders, touching only rows whose order or parent
// changes. prev is the scope's current ranking. It returns the rows updated.
func (s *Store) applyPlan(ctx context.Context, tx *sql.Tx, prev []rankedRow, plan reorder.Plan) (int, error) {
	prevOrd := make(map[model.ID]int, len(prev))
	for _, r := range prev {
		prevOrd[r.id] = r.ord
	}
	now := s.nowMs()
	n := 0
	for i, id := range plan.IDs {
		if o, ok := prevOrd[id]; ok && o == i {
			continue
		}
		var (
			res sql.Result
			err error
		)
		switch plan.Scope.Kind {
		case model.ScopeItems:
			res, err = tx.ExecContext(ctx, `UPDATE items SET ord = ?, parent_id = ?, updated_at_unixms = ? WHERE id = ? AND deleted_at_unixms IS NULL`,
				i, parentArg(plan.Scope.ID), now, int64(id))
		case model.ScopeColumn:
			res, err = tx.ExecContext(ctx, `UPDATE containers SET ord = ?, column_index = ?, updated_at_unixms = ? WHERE id = ? AND deleted_at_unixms IS NULL`,
				i, plan.Scope.ID, now, int64(id))
		default:
			return 0, fmt.Errorf("unknown scope kind: %q", plan.Scope.Kind)
		}
		if err != nil {
			return 0, err
		}
		if affected, err := res.RowsAffected(); err == nil && affected != 1 {
			return 0, ScopeMismatchError{Scope: plan.Scope, ID: id, Reason: "row vanished during write"}
		}
		n++
	}
	return n, nil
}

// renumber closes gaps in scope after a member left it.
func (s *Store) renumber(ctx context.Context, tx *sql.Tx, scope model.Scope) error {
	rows, err := scopeRows(ctx, tx, scope)
	if err != nil {
		return err
	}
	_, err = s.applyPlan(ctx, tx, rows, reorder.Plan{Scope: scope, IDs: rowIDs(rows)})
	return err
}
