package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"planner-cli/internal/model"
)

// ListContainers returns the containers of one column sorted by order.
func (s *Store) ListContainers(ctx context.Context, column int, opts ListOptions) ([]model.Container, error) {
	where := `column_index = ? AND ` + rankedContainer
	if opts.IncludeArchived {
		where = `column_index = ? AND deleted_at_unixms IS NULL`
	}
	return s.queryContainers(ctx,
		`SELECT `+containerCols+` FROM containers WHERE `+where+` ORDER BY (archived_at_unixms IS NOT NULL), ord, id`, column)
}

// AllContainers returns every ranked container, by column then order. This is
// the authoritative container list identity checks are made against.
func (s *Store) AllContainers(ctx context.Context) ([]model.Container, error) {
	return s.queryContainers(ctx,
		`SELECT `+containerCols+` FROM containers WHERE `+rankedContainer+` ORDER BY column_index, ord, id`)
}

func (s *Store) queryContainers(ctx context.Context, query string, args ...any) ([]model.Container, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Container
	for rows.Next() {
		c, err := scanContainer(rows)
		if err != nil {
			return nil, fmt.Errorf("list containers: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetContainer(ctx context.Context, id model.ID) (model.Container, error) {
	return getContainer(ctx, s.db, id)
}

func getContainer(ctx context.Context, q querier, id model.ID) (model.Container, error) {
	c, err := scanContainer(q.QueryRowContext(ctx, `SELECT `+containerCols+` FROM containers WHERE id = ? AND deleted_at_unixms IS NULL`, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Container{}, NotFoundError{Kind: model.KindContainer, ID: id}
	}
	return c, err
}

// CreateContainer appends a container to column. A nil name creates an
// unnamed container.
func (s *Store) CreateContainer(ctx context.Context, column int, name *string) (model.Container, error) {
	var created model.Container
	err := s.withTx(ctx, "create-container", func(tx *sql.Tx) ([]model.Scope, error) {
		c, err := s.createContainerTx(ctx, tx, column, name)
		if err != nil {
			return nil, err
		}
		created = c
		return []model.Scope{model.Column(column)}, nil
	})
	if err != nil {
		return model.Container{}, fmt.Errorf("create container: %w", err)
	}
	return created, nil
}

func (s *Store) createContainerTx(ctx context.Context, tx *sql.Tx, column int, name *string) (model.Container, error) {
	scope := model.Column(column)
	if err := checkScope(ctx, tx, scope); err != nil {
		return model.Container{}, err
	}
	ord, err := nextOrder(ctx, tx, scope)
	if err != nil {
		return model.Container{}, err
	}
	var nameArg any
	if name != nil && strings.TrimSpace(*name) != "" {
		nameArg = strings.TrimSpace(*name)
	}
	now := s.nowMs()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO containers(name, ord, column_index, created_at_unixms, updated_at_unixms) VALUES(?, ?, ?, ?, ?)`,
		nameArg, ord, column, now, now)
	if err != nil {
		return model.Container{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Container{}, err
	}
	return getContainer(ctx, tx, model.ID(id))
}

// RenameContainer sets or clears (nil/blank) a container's name.
func (s *Store) RenameContainer(ctx context.Context, id model.ID, name *string) error {
	return s.withTx(ctx, "rename-container", func(tx *sql.Tx) ([]model.Scope, error) {
		c, err := getContainer(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		var nameArg any
		if name != nil && strings.TrimSpace(*name) != "" {
			nameArg = strings.TrimSpace(*name)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE containers SET name = ?, updated_at_unixms = ? WHERE id = ?`, nameArg, s.nowMs(), int64(id)); err != nil {
			return nil, err
		}
		return []model.Scope{model.Column(c.ColumnIndex)}, nil
	})
}
