package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"planner-cli/internal/model"
)

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS containers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT,
			ord INTEGER NOT NULL,
			column_index INTEGER NOT NULL,
			archived_at_unixms INTEGER,
			deleted_at_unixms INTEGER,
			created_at_unixms INTEGER NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_containers_column ON containers(column_index, ord);`,
		`CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			text TEXT NOT NULL,
			parent_id INTEGER REFERENCES containers(id),
			ord INTEGER NOT NULL,
			status TEXT NOT NULL,
			archived_at_unixms INTEGER,
			deleted_at_unixms INTEGER,
			created_at_unixms INTEGER NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_items_parent ON items(parent_id, ord);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const (
	rankedItem      = `deleted_at_unixms IS NULL AND archived_at_unixms IS NULL AND status != 'archived'`
	rankedContainer = `deleted_at_unixms IS NULL AND archived_at_unixms IS NULL`

	itemCols      = `id, text, parent_id, ord, status, archived_at_unixms, deleted_at_unixms, created_at_unixms, updated_at_unixms`
	containerCols = `id, name, ord, column_index, archived_at_unixms, deleted_at_unixms, created_at_unixms, updated_at_unixms`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(r rowScanner) (model.Item, error) {
	var (
		it                  model.Item
		parent              sql.NullInt64
		status              string
		archived, deleted   sql.NullInt64
		createdMs, updateMs int64
	)
	if err := r.Scan(&it.ID, &it.Text, &parent, &it.Order, &status, &archived, &deleted, &createdMs, &updateMs); err != nil {
		return model.Item{}, err
	}
	if parent.Valid {
		pid := model.ID(parent.Int64)
		it.ParentID = &pid
	}
	it.Status = model.Status(status)
	it.ArchivedAt = msPtr(archived)
	it.DeletedAt = msPtr(deleted)
	it.CreatedAt = time.UnixMilli(createdMs).UTC()
	it.UpdatedAt = time.UnixMilli(updateMs).UTC()
	return it, nil
}

func scanContainer(r rowScanner) (model.Container, error) {
	var (
		c                   model.Container
		name                sql.NullString
		archived, deleted   sql.NullInt64
		createdMs, updateMs int64
	)
	if err := r.Scan(&c.ID, &name, &c.Order, &c.ColumnIndex, &archived, &deleted, &createdMs, &updateMs); err != nil {
		return model.Container{}, err
	}
	if name.Valid {
		n := name.String
		c.Name = &n
	}
	c.ArchivedAt = msPtr(archived)
	c.DeletedAt = msPtr(deleted)
	c.CreatedAt = time.UnixMilli(createdMs).UTC()
	c.UpdatedAt = time.UnixMilli(updateMs).UTC()
	return c, nil
}

func msPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}

// parentArg maps the unassigned pseudo-container (0) to NULL.
func parentArg(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

type rankedRow struct {
	id  model.ID
	ord int
}

// scopeRows returns the ranked members of scope sorted by order, ties by id.
func scopeRows(ctx context.Context, q querier, scope model.Scope) ([]rankedRow, error) {
	var (
		query string
		arg   any
	)
	switch scope.Kind {
	case model.ScopeItems:
		query = `SELECT id, ord FROM items WHERE parent_id IS ? AND ` + rankedItem + ` ORDER BY ord, id`
		arg = parentArg(scope.ID)
	case model.ScopeColumn:
		query = `SELECT id, ord FROM containers WHERE column_index = ? AND ` + rankedContainer + ` ORDER BY ord, id`
		arg = scope.ID
	default:
		return nil, fmt.Errorf("unknown scope kind: %q", scope.Kind)
	}
	rows, err := q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []rankedRow
	for rows.Next() {
		var r rankedRow
		if err := rows.Scan(&r.id, &r.ord); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func rowIDs(rows []rankedRow) []model.ID {
	out := make([]model.ID, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.id)
	}
	return out
}

// checkScope verifies the scope names something that can hold members.
// Archived and deleted containers hold none.
func checkScope(ctx context.Context, q querier, scope model.Scope) error {
	switch scope.Kind {
	case model.ScopeItems:
		if scope.ID == 0 {
			return nil
		}
		var n int
		err := q.QueryRowContext(ctx, `SELECT 1 FROM containers WHERE id = ? AND `+rankedContainer, scope.ID).Scan(&n)
		if errors.Is(err, sql.ErrNoRows) {
			return NotFoundError{Kind: model.KindContainer, ID: model.ID(scope.ID)}
		}
		return err
	case model.ScopeColumn:
		if scope.ID < 0 {
			return fmt.Errorf("invalid column index: %d", scope.ID)
		}
		return nil
	default:
		return fmt.Errorf("unknown scope kind: %q", scope.Kind)
	}
}

func nextOrder(ctx context.Context, q querier, scope model.Scope) (int, error) {
	rows, err := scopeRows(ctx, q, scope)
	if err != nil {
		return 0, err
	}
	next := 0
	for _, r := range rows {
		if r.ord+1 > next {
			next = r.ord + 1
		}
	}
	return next, nil
}
