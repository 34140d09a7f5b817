package repository

import (
	"context"
	"database/sql"
	"fmt"

	"alpine-bot/internal/domain"
)

// Compile-time check.
var _ domain.AdminRepository = (*AdminRepo)(nil)

// AdminRepo implements domain.AdminRepository.
type AdminRepo struct {
	db *sql.DB
}

// NewAdminRepo creates an AdminRepo.
func NewAdminRepo(db *sql.DB) *AdminRepo {
	return &AdminRepo{db: db}
}

// Add flags userID as admin. Adding an existing admin is a no-op.
func (r *AdminRepo) Add(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrValidation("user id is required")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admins (user_id) VALUES (?) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return fmt.Errorf("add admin %q: %w", userID, err)
	}
	return nil
}

// Remove clears the admin flag of userID.
func (r *AdminRepo) Remove(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM admins WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("remove admin %q: %w", userID, err)
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound("admin %q not found", userID)
	}
	return nil
}

// IsAdmin reports whether userID is flagged as admin.
func (r *AdminRepo) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM admins WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns every admin ordered by user id.
func (r *AdminRepo) List(ctx context.Context) ([]domain.Admin, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, created_at FROM admins ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Admin
	for rows.Next() {
		var a domain.Admin
		var created string
		if err := rows.Scan(&a.UserID, &created); err != nil {
			return nil, err
		}
		a.CreatedAt = parseTime(created)
		out = append(out, a)
	}
	return out, rows.Err()
}
