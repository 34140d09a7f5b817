package access

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"alpine-bot/internal/domain"
)

// EntitlementService grants and revokes commands. It sends the welcome
// message to new principals and releases channels that get purged.
type EntitlementService struct {
	repo     domain.EntitlementRepository
	audit    domain.AuditRepository
	notifier domain.Notifier
	prefix   string
	logger   *slog.Logger
}

// NewEntitlementService creates a new EntitlementService. notifier may be
// nil when no chat transport is attached (the admin CLI).
func NewEntitlementService(
	repo domain.EntitlementRepository,
	audit domain.AuditRepository,
	notifier domain.Notifier,
	prefix string,
	logger *slog.Logger,
) *EntitlementService {
	return &EntitlementService{
		repo:     repo,
		audit:    audit,
		notifier: notifier,
		prefix:   prefix,
		logger:   logger.With("component", "entitlements"),
	}
}

// RegisterGroup records a group and its command tree.
func (s *EntitlementService) RegisterGroup(ctx context.Context, g domain.Entitled, commands []string) error {
	return s.repo.RegisterGroup(ctx, domain.Group{Name: g.GroupName(), Kind: g.Kind()}, commands)
}

// GrantCommand entitles p to command. A new principal gets the welcome
// message for group.
func (s *EntitlementService) GrantCommand(ctx context.Context, p domain.PrincipalRef, command, group string) (bool, error) {
	created, err := s.repo.GrantCommand(ctx, p, command, group)
	if err != nil {
		return false, err
	}
	logAudit(ctx, s.audit, s.logger, domain.AuditGrantCommand, p.String(), command)
	if created {
		welcome(ctx, s.notifier, s.logger, p, group, s.prefix)
	}
	return created, nil
}

// GrantGroup entitles p to every command of group.
func (s *EntitlementService) GrantGroup(ctx context.Context, p domain.PrincipalRef, group string) (bool, error) {
	created, err := s.repo.GrantGroup(ctx, p, group)
	if err != nil {
		return false, err
	}
	logAudit(ctx, s.audit, s.logger, domain.AuditGrantGroup, p.String(), group)
	if created {
		welcome(ctx, s.notifier, s.logger, p, group, s.prefix)
	}
	return created, nil
}

// RevokeCommand removes command from p with the ancestor cascade.
func (s *EntitlementService) RevokeCommand(ctx context.Context, p domain.PrincipalRef, command string) (domain.RevokeResult, error) {
	res, err := s.repo.RevokeCommand(ctx, p, command)
	if err != nil {
		return res, err
	}
	if len(res.Revoked) > 0 {
		logAudit(ctx, s.audit, s.logger, domain.AuditRevokeCommand, p.String(), strings.Join(res.Revoked, ","))
	}
	s.afterPurge(ctx, p, res.Purged)
	return res, nil
}

// RevokeGroup removes every command p holds in group.
func (s *EntitlementService) RevokeGroup(ctx context.Context, p domain.PrincipalRef, group string) (domain.RevokeResult, error) {
	res, err := s.repo.RevokeGroup(ctx, p, group)
	if err != nil {
		return res, err
	}
	if len(res.Revoked) > 0 {
		logAudit(ctx, s.audit, s.logger, domain.AuditRevokeGroup, p.String(), group)
	}
	s.afterPurge(ctx, p, res.Purged)
	return res, nil
}

// DeletePrincipal purges p and everything it holds.
func (s *EntitlementService) DeletePrincipal(ctx context.Context, p domain.PrincipalRef) error {
	ok, err := s.repo.DeletePrincipal(ctx, p)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound("principal %s not found", p)
	}
	s.afterPurge(ctx, p, true)
	return nil
}

// DeleteCommand removes a registered command and its subtree.
func (s *EntitlementService) DeleteCommand(ctx context.Context, name string) (domain.PurgeResult, error) {
	res, err := s.repo.DeleteCommand(ctx, name)
	if err != nil {
		return res, err
	}
	logAudit(ctx, s.audit, s.logger, domain.AuditDeleteCommand, name, purgedDetail(res))
	for _, p := range res.Purged {
		s.afterPurge(ctx, p, true)
	}
	return res, nil
}

// DeleteGroup removes a registered group with all its records.
func (s *EntitlementService) DeleteGroup(ctx context.Context, name string) (domain.PurgeResult, error) {
	res, err := s.repo.DeleteGroup(ctx, name)
	if err != nil {
		return res, err
	}
	logAudit(ctx, s.audit, s.logger, domain.AuditDeleteGroup, name, purgedDetail(res))
	for _, p := range res.Purged {
		s.afterPurge(ctx, p, true)
	}
	return res, nil
}

// IsEntitled reports whether p holds command.
func (s *EntitlementService) IsEntitled(ctx context.Context, p domain.PrincipalRef, command string) (bool, error) {
	return s.repo.IsEntitled(ctx, p, command)
}

// ListEntitlements returns every entitlement.
func (s *EntitlementService) ListEntitlements(ctx context.Context) ([]domain.Entitlement, error) {
	return s.repo.ListEntitlements(ctx)
}

// ListCommandsForPrincipal returns the entitlements of p.
func (s *EntitlementService) ListCommandsForPrincipal(ctx context.Context, p domain.PrincipalRef) ([]domain.Entitlement, error) {
	return s.repo.ListCommandsForPrincipal(ctx, p)
}

// ListPrincipalsForCommand returns the holders of command.
func (s *EntitlementService) ListPrincipalsForCommand(ctx context.Context, command string) ([]domain.PrincipalRef, error) {
	return s.repo.ListPrincipalsForCommand(ctx, command)
}

// ListPrincipals returns every stored principal.
func (s *EntitlementService) ListPrincipals(ctx context.Context) ([]domain.Principal, error) {
	return s.repo.ListPrincipals(ctx)
}

// ListMemberships returns every group membership.
func (s *EntitlementService) ListMemberships(ctx context.Context) ([]domain.GroupMembership, error) {
	return s.repo.ListMemberships(ctx)
}

// ListGroups returns every registered group.
func (s *EntitlementService) ListGroups(ctx context.Context) ([]domain.Group, error) {
	return s.repo.ListGroups(ctx)
}

// ListCommands returns the registered commands of group, or all of them.
func (s *EntitlementService) ListCommands(ctx context.Context, group string) ([]domain.Command, error) {
	return s.repo.ListCommands(ctx, group)
}

func (s *EntitlementService) afterPurge(ctx context.Context, p domain.PrincipalRef, purged bool) {
	if !purged {
		return
	}
	logAudit(ctx, s.audit, s.logger, domain.AuditPurgePrincipal, p.String(), "")
	s.logger.Info("principal purged", "principal", p.String())
	releaseIfChannel(ctx, s.notifier, s.logger, p)
}

func purgedDetail(res domain.PurgeResult) string {
	if len(res.Purged) == 0 {
		return ""
	}
	names := make([]string, len(res.Purged))
	for i, p := range res.Purged {
		names[i] = p.String()
	}
	return fmt.Sprintf("purged %s", strings.Join(names, ","))
}
