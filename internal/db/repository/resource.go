package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	internaldb "alpine-bot/internal/db"
	"alpine-bot/internal/domain"
)

// Compile-time check.
var _ domain.ResourceRepository = (*ResourceRepo)(nil)

// ResourceRepo implements domain.ResourceRepository.
type ResourceRepo struct {
	db   *sql.DB
	read *sql.DB
}

// NewResourceRepo creates a ResourceRepo. readDB may be nil.
func NewResourceRepo(writeDB, readDB *sql.DB) *ResourceRepo {
	if readDB == nil {
		readDB = writeDB
	}
	return &ResourceRepo{db: writeDB, read: readDB}
}

// Ensure creates the resource in its initial INACTIVE state if missing. A
// class change resets a state the new class cannot hold.
func (r *ResourceRepo) Ensure(ctx context.Context, group string, class domain.ResourceClass) (*domain.Resource, error) {
	class, err := domain.ParseResourceClass(string(class))
	if err != nil {
		return nil, err
	}

	var res *domain.Resource
	err = internaldb.InTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO resources (group_name, class, state) VALUES (?, ?, ?)
			ON CONFLICT (group_name) DO UPDATE SET class = excluded.class`,
			group, string(class), domain.StateInactive.String()); err != nil {
			return fmt.Errorf("ensure resource %q: %w", group, mapDBError(err))
		}
		cur, err := getResource(ctx, tx, group)
		if err != nil {
			return err
		}
		if !class.States().Contains(cur.State) {
			if _, err := tx.ExecContext(ctx, `
				UPDATE resources SET state = ?, updated_at = datetime('now') WHERE group_name = ?`,
				domain.StateInactive.String(), group); err != nil {
				return err
			}
			cur.State = domain.StateInactive
		}
		res = cur
		return nil
	})
	return res, err
}

// Get returns the resource of group.
func (r *ResourceRepo) Get(ctx context.Context, group string) (*domain.Resource, error) {
	return getResource(ctx, r.read, group)
}

// List returns every resource ordered by group.
func (r *ResourceRepo) List(ctx context.Context) ([]domain.Resource, error) {
	rows, err := r.read.QueryContext(ctx,
		`SELECT group_name, class, state, updated_at FROM resources ORDER BY group_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

// Transition sets the state to `to` only if it is currently `from`.
func (r *ResourceRepo) Transition(ctx context.Context, group string, from, to domain.State) (bool, error) {
	var swapped bool
	err := internaldb.InTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE resources SET state = ?, updated_at = datetime('now')
			WHERE group_name = ? AND state = ?`,
			to.String(), group, from.String())
		if err != nil {
			return fmt.Errorf("transition %q %s -> %s: %w", group, from, to, err)
		}
		if swapped, err = affected(res); err != nil || swapped {
			return err
		}
		_, err = getResource(ctx, tx, group)
		return err
	})
	return swapped, err
}

// Delete removes the resource of group.
func (r *ResourceRepo) Delete(ctx context.Context, group string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM resources WHERE group_name = ?`, group)
	if err != nil {
		return fmt.Errorf("delete resource %q: %w", group, err)
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound("resource %q not found", group)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func getResource(ctx context.Context, db dbtx, group string) (*domain.Resource, error) {
	row := db.QueryRowContext(ctx,
		`SELECT group_name, class, state, updated_at FROM resources WHERE group_name = ?`, group)
	res, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("resource %q not found", group)
	}
	return res, err
}

func scanResource(row rowScanner) (*domain.Resource, error) {
	var res domain.Resource
	var class, state, updated string
	if err := row.Scan(&res.GroupName, &class, &state, &updated); err != nil {
		return nil, err
	}
	st, err := domain.ParseState(state)
	if err != nil {
		return nil, err
	}
	res.Class = domain.ResourceClass(class)
	res.State = st
	res.UpdatedAt = parseTime(updated)
	return &res, nil
}
