package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"alpine-bot/internal/domain"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// queries holds the statements shared by several repositories. Methods run
// against whatever dbtx they are bound to, so a repository can compose them
// inside one transaction via withTx.
type queries struct {
	db dbtx
}

func newQueries(db dbtx) *queries { return &queries{db: db} }

func (q *queries) withTx(tx *sql.Tx) *queries { return &queries{db: tx} }

// upsertPrincipal creates the principal if missing and reports whether it
// was created.
func (q *queries) upsertPrincipal(ctx context.Context, p domain.PrincipalRef) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO principals (kind, id) VALUES (?, ?) ON CONFLICT (kind, id) DO NOTHING`,
		string(p.Kind), p.ID)
	if err != nil {
		return false, fmt.Errorf("upsert principal %s: %w", p, err)
	}
	return affected(res)
}

func (q *queries) deletePrincipal(ctx context.Context, p domain.PrincipalRef) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM principals WHERE kind = ? AND id = ?`, string(p.Kind), p.ID)
	if err != nil {
		return false, fmt.Errorf("delete principal %s: %w", p, err)
	}
	return affected(res)
}

func (q *queries) principalExists(ctx context.Context, p domain.PrincipalRef) (bool, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM principals WHERE kind = ? AND id = ?`, string(p.Kind), p.ID).Scan(&n)
	return n > 0, err
}

func (q *queries) countEntitlements(ctx context.Context, p domain.PrincipalRef) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entitlements WHERE principal_kind = ? AND principal_id = ?`,
		string(p.Kind), p.ID).Scan(&n)
	return n, err
}

func (q *queries) countPermissions(ctx context.Context, p domain.PrincipalRef) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM permission_levels WHERE principal_kind = ? AND principal_id = ?`,
		string(p.Kind), p.ID).Scan(&n)
	return n, err
}

// purgeIfNoEntitlements removes a principal left without entitlements.
// Memberships and permission levels go with it through ON DELETE CASCADE.
func (q *queries) purgeIfNoEntitlements(ctx context.Context, p domain.PrincipalRef) (bool, error) {
	n, err := q.countEntitlements(ctx, p)
	if err != nil {
		return false, fmt.Errorf("count entitlements of %s: %w", p, err)
	}
	if n > 0 {
		return false, nil
	}
	return q.deletePrincipal(ctx, p)
}

// pruneMemberships drops memberships of p in groups where it no longer
// holds any entitlement.
func (q *queries) pruneMemberships(ctx context.Context, p domain.PrincipalRef) error {
	_, err := q.db.ExecContext(ctx, `
		DELETE FROM group_memberships
		WHERE principal_kind = ? AND principal_id = ?
		  AND NOT EXISTS (
		    SELECT 1 FROM entitlements e
		    JOIN commands c ON c.name = e.command_name
		    WHERE e.principal_kind = group_memberships.principal_kind
		      AND e.principal_id = group_memberships.principal_id
		      AND c.group_name = group_memberships.group_name
		  )`, string(p.Kind), p.ID)
	if err != nil {
		return fmt.Errorf("prune memberships of %s: %w", p, err)
	}
	return nil
}

func (q *queries) groupKind(ctx context.Context, name string) (domain.GroupKind, error) {
	var kind string
	err := q.db.QueryRowContext(ctx, `SELECT kind FROM feature_groups WHERE name = ?`, name).Scan(&kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound("group %q not found", name)
		}
		return "", err
	}
	return domain.GroupKind(kind), nil
}

// ensureCommand inserts the command if missing and fails when it is
// already registered under another group.
func (q *queries) ensureCommand(ctx context.Context, name, group string) error {
	if _, err := q.db.ExecContext(ctx,
		`INSERT INTO commands (name, group_name) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`,
		name, group); err != nil {
		return fmt.Errorf("insert command %q: %w", name, err)
	}
	var owner string
	if err := q.db.QueryRowContext(ctx,
		`SELECT group_name FROM commands WHERE name = ?`, name).Scan(&owner); err != nil {
		return fmt.Errorf("lookup command %q: %w", name, err)
	}
	if owner != group {
		return domain.ErrValidation("command %q belongs to group %q, not %q", name, owner, group)
	}
	return nil
}

func (q *queries) insertEntitlement(ctx context.Context, p domain.PrincipalRef, command string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO entitlements (principal_kind, principal_id, command_name) VALUES (?, ?, ?)
		ON CONFLICT (principal_kind, principal_id, command_name) DO NOTHING`,
		string(p.Kind), p.ID, command)
	if err != nil {
		return fmt.Errorf("insert entitlement %s -> %q: %w", p, command, err)
	}
	return nil
}

func (q *queries) deleteEntitlement(ctx context.Context, p domain.PrincipalRef, command string) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM entitlements WHERE principal_kind = ? AND principal_id = ? AND command_name = ?`,
		string(p.Kind), p.ID, command)
	if err != nil {
		return false, fmt.Errorf("delete entitlement %s -> %q: %w", p, command, err)
	}
	return affected(res)
}

// hasDescendantEntitlement reports whether p holds any command below
// ancestor in the dotted hierarchy.
func (q *queries) hasDescendantEntitlement(ctx context.Context, p domain.PrincipalRef, ancestor string) (bool, error) {
	prefix := ancestor + "."
	var n int
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM entitlements
		WHERE principal_kind = ?2 AND principal_id = ?3
		  AND substr(command_name, 1, length(?1)) = ?1`,
		prefix, string(p.Kind), p.ID).Scan(&n)
	return n > 0, err
}

func (q *queries) insertMembership(ctx context.Context, p domain.PrincipalRef, group string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO group_memberships (principal_kind, principal_id, group_name) VALUES (?, ?, ?)
		ON CONFLICT (principal_kind, principal_id, group_name) DO NOTHING`,
		string(p.Kind), p.ID, group)
	if err != nil {
		return fmt.Errorf("insert membership %s -> %q: %w", p, group, err)
	}
	return nil
}

func scanRefs(rows *sql.Rows) ([]domain.PrincipalRef, error) {
	defer rows.Close()
	var out []domain.PrincipalRef
	for rows.Next() {
		var kind, id string
		if err := rows.Scan(&kind, &id); err != nil {
			return nil, err
		}
		out = append(out, domain.PrincipalRef{Kind: domain.PrincipalKind(kind), ID: id})
	}
	return out, rows.Err()
}
