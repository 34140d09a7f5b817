package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"alpine-bot/internal/domain"
)

// Compile-time check.
var _ domain.AuditRepository = (*AuditRepo)(nil)

const defaultAuditLimit = 100

// AuditRepo implements domain.AuditRepository.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo creates an AuditRepo.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Insert appends an entry. ID and CreatedAt are filled in when empty.
func (r *AuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if e.ID == "" {
		e.ID = domain.NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, principal, action, target, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Principal, e.Action, e.Target, e.Detail, e.CreatedAt.Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", mapDBError(err))
	}
	return nil
}

// List returns the newest entries first, skipping filter.Offset of them.
func (r *AuditRepo) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, error) {
	var principal, action string
	if filter.Principal != nil {
		principal = *filter.Principal
	}
	if filter.Action != nil {
		action = *filter.Action
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, principal, action, target, detail, created_at FROM audit_log
		WHERE (?1 = '' OR principal = ?1) AND (?2 = '' OR action = ?2)
		ORDER BY created_at DESC, id DESC
		LIMIT ?3 OFFSET ?4`, principal, action, limit, max(filter.Offset, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var created string
		if err := rows.Scan(&e.ID, &e.Principal, &e.Action, &e.Target, &e.Detail, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(created)
		out = append(out, e)
	}
	return out, rows.Err()
}
