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
var _ domain.PermissionRepository = (*PermissionRepo)(nil)

// PermissionRepo implements domain.PermissionRepository.
type PermissionRepo struct {
	db   *sql.DB
	read *sql.DB
	q    *queries
}

// NewPermissionRepo creates a PermissionRepo. readDB may be nil.
func NewPermissionRepo(writeDB, readDB *sql.DB) *PermissionRepo {
	if readDB == nil {
		readDB = writeDB
	}
	return &PermissionRepo{db: writeDB, read: readDB, q: newQueries(writeDB)}
}

// Set upserts the level of p in group, creating the principal if needed.
// created reports whether the principal was new.
func (r *PermissionRepo) Set(ctx context.Context, p domain.PrincipalRef, group string, level int) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}
	if group == "" {
		return false, domain.ErrValidation("group is required")
	}
	var created bool
	err := internaldb.InTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		if created, err = r.q.withTx(tx).upsertPrincipal(ctx, p); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO permission_levels (principal_kind, principal_id, group_name, level)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (principal_kind, principal_id, group_name)
			DO UPDATE SET level = excluded.level, updated_at = datetime('now')`,
			string(p.Kind), p.ID, group, level)
		if err != nil {
			return fmt.Errorf("set permission %s/%s: %w", p, group, err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// Get returns the level of p in group. ok is false when none is stored.
func (r *PermissionRepo) Get(ctx context.Context, p domain.PrincipalRef, group string) (int, bool, error) {
	var level int
	err := r.read.QueryRowContext(ctx, `
		SELECT level FROM permission_levels
		WHERE principal_kind = ? AND principal_id = ? AND group_name = ?`,
		string(p.Kind), p.ID, group).Scan(&level)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return level, true, nil
}

// Remove deletes the level of p in group. A principal left with neither
// entitlements nor permission levels is purged.
func (r *PermissionRepo) Remove(ctx context.Context, p domain.PrincipalRef, group string) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}
	var purged bool
	err := internaldb.InTx(ctx, r.db, func(tx *sql.Tx) error {
		qtx := r.q.withTx(tx)
		res, err := tx.ExecContext(ctx, `
			DELETE FROM permission_levels
			WHERE principal_kind = ? AND principal_id = ? AND group_name = ?`,
			string(p.Kind), p.ID, group)
		if err != nil {
			return fmt.Errorf("remove permission %s/%s: %w", p, group, err)
		}
		if ok, err := affected(res); err != nil || !ok {
			return err
		}

		ents, err := qtx.countEntitlements(ctx, p)
		if err != nil {
			return err
		}
		perms, err := qtx.countPermissions(ctx, p)
		if err != nil {
			return err
		}
		if ents == 0 && perms == 0 {
			purged, err = qtx.deletePrincipal(ctx, p)
		}
		return err
	})
	return purged, err
}

// List returns the stored levels of group, or of every group when group is
// empty.
func (r *PermissionRepo) List(ctx context.Context, group string) ([]domain.PermissionLevel, error) {
	rows, err := r.read.QueryContext(ctx, `
		SELECT principal_kind, principal_id, group_name, level, updated_at
		FROM permission_levels
		WHERE ?1 = '' OR group_name = ?1
		ORDER BY group_name, principal_kind DESC, principal_id`, group)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PermissionLevel
	for rows.Next() {
		var kind, id, updated string
		var pl domain.PermissionLevel
		if err := rows.Scan(&kind, &id, &pl.GroupName, &pl.Level, &updated); err != nil {
			return nil, err
		}
		pl.Principal = domain.PrincipalRef{Kind: domain.PrincipalKind(kind), ID: id}
		pl.UpdatedAt = parseTime(updated)
		out = append(out, pl)
	}
	return out, rows.Err()
}
