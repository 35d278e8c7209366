package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"planner-cli/internal/model"
)

type ListOptions struct {
	// IncludeArchived also returns archived entities (after the ranked ones).
	IncludeArchived bool
}

// ListItems returns the items of container (0 = unassigned) sorted by order.
func (s *Store) ListItems(ctx context.Context, container model.ID, opts ListOptions) ([]model.Item, error) {
	where := `parent_id IS ? AND ` + rankedItem
	if opts.IncludeArchived {
		where = `parent_id IS ? AND deleted_at_unixms IS NULL`
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemCols+` FROM items WHERE `+where+` ORDER BY (archived_at_unixms IS NOT NULL), ord, id`,
		parentArg(int64(container)))
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) GetItem(ctx context.Context, id model.ID) (model.Item, error) {
	return getItem(ctx, s.db, id)
}

func getItem(ctx context.Context, q querier, id model.ID) (model.Item, error) {
	it, err := scanItem(q.QueryRowContext(ctx, `SELECT `+itemCols+` FROM items WHERE id = ? AND deleted_at_unixms IS NULL`, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, NotFoundError{Kind: model.KindItem, ID: id}
	}
	return it, err
}

// CreateItem appends a new active item to container (0 = unassigned).
func (s *Store) CreateItem(ctx context.Context, container model.ID, text string) (model.Item, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Item{}, errors.New("create item: empty text")
	}
	var created model.Item
	scope := model.ItemsOf(container)
	err := s.withTx(ctx, "create-item", func(tx *sql.Tx) ([]model.Scope, error) {
		if err := checkScope(ctx, tx, scope); err != nil {
			return nil, err
		}
		ord, err := nextOrder(ctx, tx, scope)
		if err != nil {
			return nil, err
		}
		now := s.nowMs()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO items(text, parent_id, ord, status, created_at_unixms, updated_at_unixms) VALUES(?, ?, ?, ?, ?, ?)`,
			text, parentArg(scope.ID), ord, string(model.StatusActive), now, now)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		if created, err = getItem(ctx, tx, model.ID(id)); err != nil {
			return nil, err
		}
		return []model.Scope{scope}, nil
	})
	if err != nil {
		return model.Item{}, fmt.Errorf("create item: %w", err)
	}
	return created, nil
}

// SetStatus switches an item between active and done. Use Archive to archive.
func (s *Store) SetStatus(ctx context.Context, id model.ID, status model.Status) error {
	if status != model.StatusActive && status != model.StatusDone {
		return fmt.Errorf("set status: unsupported status %q", status)
	}
	return s.withTx(ctx, "set-status", func(tx *sql.Tx) ([]model.Scope, error) {
		it, err := getItem(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if !it.Ranked() {
			return nil, fmt.Errorf("set status: item %s is archived", id)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE items SET status = ?, updated_at_unixms = ? WHERE id = ?`, string(status), s.nowMs(), int64(id)); err != nil {
			return nil, err
		}
		return []model.Scope{itemScope(it)}, nil
	})
}

func (s *Store) RenameItem(ctx context.Context, id model.ID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("rename item: empty text")
	}
	return s.withTx(ctx, "rename-item", func(tx *sql.Tx) ([]model.Scope, error) {
		it, err := getItem(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE items SET text = ?, updated_at_unixms = ? WHERE id = ?`, text, s.nowMs(), int64(id)); err != nil {
			return nil, err
		}
		return []model.Scope{itemScope(it)}, nil
	})
}

func itemScope(it model.Item) model.Scope {
	if it.ParentID == nil {
		return model.ItemsOf(0)
	}
	return model.ItemsOf(*it.ParentID)
}
