package access

import (
	"context"
	"fmt"
	"log/slog"

	"alpine-bot/internal/domain"
)

// PermissionService manages the ordered permission overlay. A principal
// created by SetPermission gets the welcome message.
type PermissionService struct {
	repo     domain.PermissionRepository
	audit    domain.AuditRepository
	notifier domain.Notifier
	prefix   string
	logger   *slog.Logger
}

// NewPermissionService creates a new PermissionService.
func NewPermissionService(
	repo domain.PermissionRepository,
	audit domain.AuditRepository,
	notifier domain.Notifier,
	prefix string,
	logger *slog.Logger,
) *PermissionService {
	return &PermissionService{
		repo:     repo,
		audit:    audit,
		notifier: notifier,
		prefix:   prefix,
		logger:   logger.With("component", "permissions"),
	}
}

// SetPermission stores the level of p in group.
func (s *PermissionService) SetPermission(ctx context.Context, p domain.PrincipalRef, group string, level int) error {
	created, err := s.repo.Set(ctx, p, group, level)
	if err != nil {
		return err
	}
	logAudit(ctx, s.audit, s.logger, domain.AuditSetPermission, p.String(), fmt.Sprintf("%s=%d", group, level))
	if created {
		welcome(ctx, s.notifier, s.logger, p, group, s.prefix)
	}
	return nil
}

// GetPermission returns the stored level of p in group.
func (s *PermissionService) GetPermission(ctx context.Context, p domain.PrincipalRef, group string) (int, bool, error) {
	return s.repo.Get(ctx, p, group)
}

// RemovePermission deletes the level of p in group. A principal left with
// nothing is purged and, for channels, released.
func (s *PermissionService) RemovePermission(ctx context.Context, p domain.PrincipalRef, group string) (bool, error) {
	purged, err := s.repo.Remove(ctx, p, group)
	if err != nil {
		return false, err
	}
	logAudit(ctx, s.audit, s.logger, domain.AuditRemovePermission, p.String(), group)
	if purged {
		logAudit(ctx, s.audit, s.logger, domain.AuditPurgePrincipal, p.String(), "")
		releaseIfChannel(ctx, s.notifier, s.logger, p)
	}
	return purged, nil
}

// ListPermissions returns stored levels of group, or of every group.
func (s *PermissionService) ListPermissions(ctx context.Context, group string) ([]domain.PermissionLevel, error) {
	return s.repo.List(ctx, group)
}
