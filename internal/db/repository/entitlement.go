package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	internaldb "alpine-bot/internal/db"
	"alpine-bot/internal/domain"
)

// Compile-time check.
var _ domain.EntitlementRepository = (*EntitlementRepo)(nil)

// EntitlementRepo implements domain.EntitlementRepository. Mutations go to
// the single-writer pool; listings go to the read pool.
type EntitlementRepo struct {
	db   *sql.DB
	read *sql.DB
	q    *queries
}

// NewEntitlementRepo creates an EntitlementRepo. readDB may be nil, in which
// case reads use writeDB.
func NewEntitlementRepo(writeDB, readDB *sql.DB) *EntitlementRepo {
	if readDB == nil {
		readDB = writeDB
	}
	return &EntitlementRepo{db: writeDB, read: readDB, q: newQueries(writeDB)}
}

// RegisterGroup upserts the group and its command tree. Commands already
// registered under a different group are rejected.
func (r *EntitlementRepo) RegisterGroup(ctx context.Context, g domain.Group, commands []string) error {
	if g.Name == "" {
		return domain.ErrValidation("group name is required")
	}
	kind, err := domain.ParseGroupKind(string(g.Kind))
	if err != nil {
		return err
	}
	for _, c := range commands {
		if err := domain.ValidateCommandName(c); err != nil {
			return err
		}
	}

	return internaldb.InTx(ctx, r.db, func(tx *sql.Tx) error {
		qtx := r.q.withTx(tx)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO feature_groups (name, kind) VALUES (?, ?)
			ON CONFLICT (name) DO UPDATE SET kind = excluded.kind`,
			g.Name, string(kind)); err != nil {
			return fmt.Errorf("upsert group %q: %w", g.Name, err)
		}
		for _, c := range commands {
			for _, name := range domain.WithParents(c) {
				if err := qtx.ensureCommand(ctx, name, g.Name); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// GetGroup returns a registered group.
func (r *EntitlementRepo) GetGroup(ctx context.Context, name string) (*domain.Group, error) {
	var g domain.Group
	var kind, created string
	err := r.read.QueryRowContext(ctx,
		`SELECT name, kind, created_at FROM feature_groups WHERE name = ?`, name).
		Scan(&g.Name, &kind, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound("group %q not found", name)
		}
		return nil, mapDBError(err)
	}
	g.Kind = domain.GroupKind(kind)
	g.CreatedAt = parseTime(created)
	return &g, nil
}

// ListGroups returns every registered group ordered by name.
func (r *EntitlementRepo) ListGroups(ctx context.Context) ([]domain.Group, error) {
	rows, err := r.read.QueryContext(ctx,
		`SELECT name, kind, created_at FROM feature_groups ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Group
	for rows.Next() {
		var g domain.Group
		var kind, created string
		if err := rows.Scan(&g.Name, &kind, &created); err != nil {
			return nil, err
		}
		g.Kind = domain.GroupKind(kind)
		g.CreatedAt = parseTime(created)
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetCommand returns a registered command.
func (r *EntitlementRepo) GetCommand(ctx context.Context, name string) (*domain.Command, error) {
	var c domain.Command
	err := r.read.QueryRowContext(ctx,
		`SELECT name, group_name FROM commands WHERE name = ?`, name).Scan(&c.Name, &c.GroupName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound("command %q not found", name)
		}
		return nil, mapDBError(err)
	}
	return &c, nil
}

// ListCommands returns the commands of a group, or of every group when
// group is empty.
func (r *EntitlementRepo) ListCommands(ctx context.Context, group string) ([]domain.Command, error) {
	rows, err := r.read.QueryContext(ctx, `
		SELECT name, group_name FROM commands
		WHERE ?1 = '' OR group_name = ?1
		ORDER BY group_name, name`, group)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Command
	for rows.Next() {
		var c domain.Command
		if err := rows.Scan(&c.Name, &c.GroupName); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCommand removes a command and everything below it. Entitlements go
// with it; holders left with nothing are purged.
func (r *EntitlementRepo) DeleteCommand(ctx context.Context, name string) (domain.PurgeResult, error) {
	var result domain.PurgeResult
	err := internaldb.InTx(ctx, r.db, func(tx *sql.Tx) error {
		qtx := r.q.withTx(tx)
		prefix := name + "."

		rows, err := tx.QueryContext(ctx, `
			SELECT DISTINCT principal_kind, principal_id FROM entitlements
			WHERE command_name = ?1 OR substr(command_name, 1, length(?2)) = ?2`, name, prefix)
		if err != nil {
			return err
		}
		holders, err := scanRefs(rows)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			DELETE FROM commands
			WHERE name = ?1 OR substr(name, 1, length(?2)) = ?2`, name, prefix)
		if err != nil {
			return fmt.Errorf("delete command %q: %w", name, err)
		}
		if ok, err := affected(res); err != nil {
			return err
		} else if !ok {
			return domain.ErrNotFound("command %q not found", name)
		}

		result.Purged, err = settleHolders(ctx, qtx, holders)
		return err
	})
	return result, err
}

// DeleteGroup removes a group with its commands, memberships, permission
// levels and resource. Holders left with nothing are purged.
func (r *EntitlementRepo) DeleteGroup(ctx context.Context, name string) (domain.PurgeResult, error) {
	var result domain.PurgeResult
	err := internaldb.InTx(ctx, r.db, func(tx *sql.Tx) error {
		qtx := r.q.withTx(tx)

		rows, err := tx.QueryContext(ctx, `
			SELECT principal_kind, principal_id FROM group_memberships WHERE group_name = ?`, name)
		if err != nil {
			return err
		}
		holders, err := scanRefs(rows)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM permission_levels WHERE group_name = ?`, name); err != nil {
			return fmt.Errorf("delete permission levels of %q: %w", name, err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM feature_groups WHERE name = ?`, name)
		if err != nil {
			return fmt.Errorf("delete group %q: %w", name, err)
		}
		if ok, err := affected(res); err != nil {
			return err
		} else if !ok {
			return domain.ErrNotFound("group %q not found", name)
		}

		result.Purged, err = settleHolders(ctx, qtx, holders)
		return err
	})
	return result, err
}

func settleHolders(ctx context.Context, q *queries, holders []domain.PrincipalRef) ([]domain.PrincipalRef, error) {
	var purged []domain.PrincipalRef
	for _, p := range holders {
		if err := q.pruneMemberships(ctx, p); err != nil {
			return nil, err
		}
		ok, err := q.purgeIfNoEntitlements(ctx, p)
		if err != nil {
			return nil, err
		}
		if ok {
			purged = append(purged, p)
		}
	}
	return purged, nil
}

// GrantCommand entitles p to command and its parent chain and records the
// group membership. created reports whether the principal was new.
func (r *EntitlementRepo) GrantCommand(ctx context.Context, p domain.PrincipalRef, command, group string) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}
	if err := domain.ValidateCommandName(command); err != nil {
		return false, err
	}

	var created bool
	err := internaldb.InTx(ctx, r.db, func(tx *sql.Tx) error {
		qtx := r.q.withTx(tx)
		if _, err := qtx.groupKind(ctx, group); err != nil {
			return err
		}

		chain := domain.WithParents(command)
		for _, name := range chain {
			if err := qtx.ensureCommand(ctx, name, group); err != nil {
				return err
			}
		}

		var err error
		if created, err = qtx.upsertPrincipal(ctx, p); err != nil {
			return err
		}
		for _, name := range chain {
			if err := qtx.insertEntitlement(ctx, p, name); err != nil {
				return err
			}
		}
		return qtx.insertMembership(ctx, p, group)
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// GrantGroup entitles p to every registered command of group.
func (r *EntitlementRepo) GrantGroup(ctx context.Context, p domain.PrincipalRef, group string) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}

	var created bool
	err := internaldb.InTx(ctx, r.db, func(tx *sql.Tx) error {
		qtx := r.q.withTx(tx)
		if _, err := qtx.groupKind(ctx, group); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx, `SELECT name FROM commands WHERE group_name = ? ORDER BY name`, group)
		if err != nil {
			return err
		}
		names, err := scanStrings(rows)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			return domain.ErrValidation("group %q has no registered commands", group)
		}

		if created, err = qtx.upsertPrincipal(ctx, p); err != nil {
			return err
		}
		for _, name := range names {
			if err := qtx.insertEntitlement(ctx, p, name); err != nil {
				return err
			}
		}
		return qtx.insertMembership(ctx, p, group)
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// RevokeCommand removes one entitlement, then walks its ancestors outward
// removing each until one is still needed by another entitlement of p.
// A principal left with no entitlement is purged.
func (r *EntitlementRepo) RevokeCommand(ctx context.Context, p domain.PrincipalRef, command string) (domain.RevokeResult, error) {
	var result domain.RevokeResult
	if err := p.Validate(); err != nil {
		return result, err
	}

	err := internaldb.InTx(ctx, r.db, func(tx *sql.Tx) error {
		qtx := r.q.withTx(tx)

		ok, err := qtx.deleteEntitlement(ctx, p, command)
		if err != nil || !ok {
			return err
		}
		result.Revoked = append(result.Revoked, command)

		for _, ancestor := range domain.ParentNames(command) {
			needed, err := qtx.hasDescendantEntitlement(ctx, p, ancestor)
			if err != nil {
				return err
			}
			if needed {
				break
			}
			ok, err := qtx.deleteEntitlement(ctx, p, ancestor)
			if err != nil {
				return err
			}
			if ok {
				result.Revoked = append(result.Revoked, ancestor)
			}
		}

		if err := qtx.pruneMemberships(ctx, p); err != nil {
			return err
		}
		result.Purged, err = qtx.purgeIfNoEntitlements(ctx, p)
		return err
	})
	return result, err
}

// RevokeGroup removes every entitlement p holds in group.
func (r *EntitlementRepo) RevokeGroup(ctx context.Context, p domain.PrincipalRef, group string) (domain.RevokeResult, error) {
	var result domain.RevokeResult
	if err := p.Validate(); err != nil {
		return result, err
	}

	err := internaldb.InTx(ctx, r.db, func(tx *sql.Tx) error {
		qtx := r.q.withTx(tx)

		rows, err := tx.QueryContext(ctx, `
			SELECT e.command_name FROM entitlements e
			JOIN commands c ON c.name = e.command_name
			WHERE e.principal_kind = ? AND e.principal_id = ? AND c.group_name = ?`,
			string(p.Kind), p.ID, group)
		if err != nil {
			return err
		}
		names, err := scanStrings(rows)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			return nil
		}
		// Deepest first, matching the order a command-by-command revoke uses.
		sort.Slice(names, func(i, j int) bool {
			if len(names[i]) != len(names[j]) {
				return len(names[i]) > len(names[j])
			}
			return names[i] < names[j]
		})

		for _, name := range names {
			if _, err := qtx.deleteEntitlement(ctx, p, name); err != nil {
				return err
			}
		}
		result.Revoked = names

		if err := qtx.pruneMemberships(ctx, p); err != nil {
			return err
		}
		result.Purged, err = qtx.purgeIfNoEntitlements(ctx, p)
		return err
	})
	return result, err
}

// DeletePrincipal purges p regardless of what it holds.
func (r *EntitlementRepo) DeletePrincipal(ctx context.Context, p domain.PrincipalRef) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}
	return r.q.deletePrincipal(ctx, p)
}

// GetPrincipal returns a stored principal.
func (r *EntitlementRepo) GetPrincipal(ctx context.Context, p domain.PrincipalRef) (*domain.Principal, error) {
	var created string
	err := r.read.QueryRowContext(ctx,
		`SELECT created_at FROM principals WHERE kind = ? AND id = ?`, string(p.Kind), p.ID).Scan(&created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound("principal %s not found", p)
		}
		return nil, mapDBError(err)
	}
	return &domain.Principal{PrincipalRef: p, CreatedAt: parseTime(created)}, nil
}

// ListPrincipals returns every stored principal, users first.
func (r *EntitlementRepo) ListPrincipals(ctx context.Context) ([]domain.Principal, error) {
	rows, err := r.read.QueryContext(ctx,
		`SELECT kind, id, created_at FROM principals ORDER BY kind DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Principal
	for rows.Next() {
		var kind, id, created string
		if err := rows.Scan(&kind, &id, &created); err != nil {
			return nil, err
		}
		out = append(out, domain.Principal{
			PrincipalRef: domain.PrincipalRef{Kind: domain.PrincipalKind(kind), ID: id},
			CreatedAt:    parseTime(created),
		})
	}
	return out, rows.Err()
}

// IsEntitled reports whether p holds command directly.
func (r *EntitlementRepo) IsEntitled(ctx context.Context, p domain.PrincipalRef, command string) (bool, error) {
	var n int
	err := r.read.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM entitlements
		WHERE principal_kind = ? AND principal_id = ? AND command_name = ?`,
		string(p.Kind), p.ID, command).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListPrincipalsForCommand returns every principal entitled to command.
func (r *EntitlementRepo) ListPrincipalsForCommand(ctx context.Context, command string) ([]domain.PrincipalRef, error) {
	rows, err := r.read.QueryContext(ctx, `
		SELECT principal_kind, principal_id FROM entitlements
		WHERE command_name = ? ORDER BY principal_kind DESC, principal_id`, command)
	if err != nil {
		return nil, err
	}
	return scanRefs(rows)
}

// ListCommandsForPrincipal returns the entitlements held by p.
func (r *EntitlementRepo) ListCommandsForPrincipal(ctx context.Context, p domain.PrincipalRef) ([]domain.Entitlement, error) {
	return r.listEntitlements(ctx, `WHERE e.principal_kind = ? AND e.principal_id = ?`, string(p.Kind), p.ID)
}

// ListEntitlements returns every entitlement in the store.
func (r *EntitlementRepo) ListEntitlements(ctx context.Context) ([]domain.Entitlement, error) {
	return r.listEntitlements(ctx, "")
}

func (r *EntitlementRepo) listEntitlements(ctx context.Context, where string, args ...interface{}) ([]domain.Entitlement, error) {
	rows, err := r.read.QueryContext(ctx, `
		SELECT e.principal_kind, e.principal_id, e.command_name, c.group_name, e.granted_at
		FROM entitlements e
		JOIN commands c ON c.name = e.command_name `+where+`
		ORDER BY e.principal_kind DESC, e.principal_id, e.command_name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Entitlement
	for rows.Next() {
		var kind, id, granted string
		var e domain.Entitlement
		if err := rows.Scan(&kind, &id, &e.CommandName, &e.GroupName, &granted); err != nil {
			return nil, err
		}
		e.Principal = domain.PrincipalRef{Kind: domain.PrincipalKind(kind), ID: id}
		e.GrantedAt = parseTime(granted)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListGroupMembers returns the principals holding at least one command of
// group. Notification fanout resolves recipients through it.
func (r *EntitlementRepo) ListGroupMembers(ctx context.Context, group string) ([]domain.PrincipalRef, error) {
	rows, err := r.read.QueryContext(ctx, `
		SELECT principal_kind, principal_id FROM group_memberships
		WHERE group_name = ? ORDER BY principal_kind DESC, principal_id`, group)
	if err != nil {
		return nil, err
	}
	return scanRefs(rows)
}

// ListMemberships returns every group membership.
func (r *EntitlementRepo) ListMemberships(ctx context.Context) ([]domain.GroupMembership, error) {
	rows, err := r.read.QueryContext(ctx, `
		SELECT principal_kind, principal_id, group_name FROM group_memberships
		ORDER BY group_name, principal_kind DESC, principal_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.GroupMembership
	for rows.Next() {
		var kind, id string
		var m domain.GroupMembership
		if err := rows.Scan(&kind, &id, &m.GroupName); err != nil {
			return nil, err
		}
		m.Principal = domain.PrincipalRef{Kind: domain.PrincipalKind(kind), ID: id}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
