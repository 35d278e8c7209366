package store

import (
	"context"
	"database/sql"
	"fmt"

	"planner-cli/internal/model"
)

// Archive removes an entity from its ranking and closes the gap it leaves.
func (s *Store) Archive(ctx context.Context, kind model.Kind, id model.ID) error {
	return s.retire(ctx, "archive", kind, id, "archived_at_unixms")
}

// SoftDelete marks an entity deleted; it is excluded from every later query.
func (s *Store) SoftDelete(ctx context.Context, kind model.Kind, id model.ID) error {
	return s.retire(ctx, "delete", kind, id, "deleted_at_unixms")
}

func (s *Store) retire(ctx context.Context, op string, kind model.Kind, id model.ID, col string) error {
	return s.withTx(ctx, op, func(tx *sql.Tx) ([]model.Scope, error) {
		now := s.nowMs()
		switch kind {
		case model.KindItem:
			it, err := getItem(ctx, tx, id)
			if err != nil {
				return nil, err
			}
			q := `UPDATE items SET ` + col + ` = ?, updated_at_unixms = ? WHERE id = ?`
			if col == "archived_at_unixms" {
				q = `UPDATE items SET archived_at_unixms = ?, status = 'archived', updated_at_unixms = ? WHERE id = ?`
			}
			if _, err := tx.ExecContext(ctx, q, now, now, int64(id)); err != nil {
				return nil, err
			}
			scope := itemScope(it)
			if err := s.renumber(ctx, tx, scope); err != nil {
				return nil, err
			}
			return []model.Scope{scope}, nil
		case model.KindContainer:
			c, err := getContainer(ctx, tx, id)
			if err != nil {
				return nil, err
			}
			if _, err := tx.ExecContext(ctx, `UPDATE containers SET `+col+` = ?, updated_at_unixms = ? WHERE id = ?`, now, now, int64(id)); err != nil {
				return nil, err
			}
			scope := model.Column(c.ColumnIndex)
			if err := s.renumber(ctx, tx, scope); err != nil {
				return nil, err
			}
			return []model.Scope{scope, model.ItemsOf(id)}, nil
		default:
			return nil, fmt.Errorf("%s: unknown kind %q", op, kind)
		}
	})
}
