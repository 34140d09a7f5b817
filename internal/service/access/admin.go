package access

import (
	"context"
	"log/slog"

	"alpine-bot/internal/domain"
)

// AdminService manages admin flags.
type AdminService struct {
	repo   domain.AdminRepository
	audit  domain.AuditRepository
	logger *slog.Logger
}

// NewAdminService creates a new AdminService.
func NewAdminService(repo domain.AdminRepository, audit domain.AuditRepository, logger *slog.Logger) *AdminService {
	return &AdminService{repo: repo, audit: audit, logger: logger.With("component", "admins")}
}

// Add flags userID as admin.
func (s *AdminService) Add(ctx context.Context, userID string) error {
	if err := s.repo.Add(ctx, userID); err != nil {
		return err
	}
	logAudit(ctx, s.audit, s.logger, domain.AuditSetAdmin, domain.User(userID).String(), "")
	return nil
}

// Remove clears the admin flag of userID.
func (s *AdminService) Remove(ctx context.Context, userID string) error {
	if err := s.repo.Remove(ctx, userID); err != nil {
		return err
	}
	logAudit(ctx, s.audit, s.logger, domain.AuditUnsetAdmin, domain.User(userID).String(), "")
	return nil
}

// IsAdmin reports whether userID is an admin.
func (s *AdminService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	return s.repo.IsAdmin(ctx, userID)
}

// List returns every admin.
func (s *AdminService) List(ctx context.Context) ([]domain.Admin, error) {
	return s.repo.List(ctx)
}
