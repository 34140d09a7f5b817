package access

import (
	"context"
	"fmt"
	"log/slog"

	"alpine-bot/internal/domain"
	"alpine-bot/internal/metrics"
)

// Toggles enable or disable commands per invocation context.
type Toggles struct {
	UserCommands    bool
	ChannelCommands bool
}

// Guard makes the allow/deny decision for one invocation.
type Guard struct {
	admins  domain.AdminRepository
	ents    domain.EntitlementRepository
	perms   domain.PermissionRepository
	toggles Toggles
	logger  *slog.Logger
}

// NewGuard creates a Guard.
func NewGuard(
	admins domain.AdminRepository,
	ents domain.EntitlementRepository,
	perms domain.PermissionRepository,
	toggles Toggles,
	logger *slog.Logger,
) *Guard {
	return &Guard{
		admins:  admins,
		ents:    ents,
		perms:   perms,
		toggles: toggles,
		logger:  logger.With("component", "guard"),
	}
}

// Authorize decides whether inv may run spec of group g. Checks run in
// order: context toggle, admin bypass, entitlement of the acting
// principal, then the level check for leveled groups.
func (g *Guard) Authorize(ctx context.Context, inv domain.Invocation, grp domain.Entitled, spec domain.CommandSpec) error {
	if err := inv.Validate(); err != nil {
		return err
	}

	if inv.DirectMessage && !g.toggles.UserCommands {
		metrics.AuthDecisions.WithLabelValues("disabled").Inc()
		return &domain.PermissionError{Message: "direct message commands are disabled"}
	}
	if !inv.DirectMessage && !g.toggles.ChannelCommands {
		metrics.AuthDecisions.WithLabelValues("disabled").Inc()
		return &domain.PermissionError{Message: "channel commands are disabled"}
	}

	admin, err := g.admins.IsAdmin(ctx, inv.UserID)
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if admin {
		metrics.AuthDecisions.WithLabelValues("admin").Inc()
		return nil
	}

	acting := inv.Acting()
	ok, err := g.ents.IsEntitled(ctx, acting, spec.Name)
	if err != nil {
		return fmt.Errorf("check entitlement: %w", err)
	}
	if !ok {
		metrics.AuthDecisions.WithLabelValues("denied").Inc()
		g.logger.Debug("not entitled", "principal", acting.String(), "command", spec.Name)
		return &domain.PermissionError{
			Message: fmt.Sprintf("%s is not entitled to %q", acting, spec.Name),
		}
	}

	if lv, leveled := grp.(domain.Leveled); leveled {
		if req, gated := lv.Requirement(spec.Name); gated {
			if err := g.checkLevel(ctx, inv, grp.GroupName(), req); err != nil {
				return err
			}
		}
	}

	metrics.AuthDecisions.WithLabelValues("allowed").Inc()
	return nil
}

// AssertPermission checks the ordered permission overlay alone: admins
// pass, everyone else needs a stored level for the acting principal that
// meets the threshold of the invocation context.
func (g *Guard) AssertPermission(ctx context.Context, inv domain.Invocation, group string, req domain.LevelRequirement) error {
	if req.User < req.Channel {
		return domain.ErrValidation("user level %d must be >= channel level %d", req.User, req.Channel)
	}
	admin, err := g.admins.IsAdmin(ctx, inv.UserID)
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if admin {
		return nil
	}
	return g.checkLevel(ctx, inv, group, req)
}

func (g *Guard) checkLevel(ctx context.Context, inv domain.Invocation, group string, req domain.LevelRequirement) error {
	acting := inv.Acting()
	level, ok, err := g.perms.Get(ctx, acting, group)
	if err != nil {
		return fmt.Errorf("get permission: %w", err)
	}

	threshold := req.Channel
	if inv.DirectMessage {
		threshold = req.User
	}

	if !ok {
		if !inv.DirectMessage {
			metrics.AuthDecisions.WithLabelValues("misconfigured").Inc()
			g.logger.Warn("channel has no permission level", "channel", inv.ChannelID, "group", group)
			return &domain.ConfigurationError{
				Message: fmt.Sprintf("channel %s has no permission level for %q", inv.ChannelID, group),
				Group:   group,
				Channel: inv.ChannelID,
			}
		}
		metrics.AuthDecisions.WithLabelValues("denied").Inc()
		return &domain.PermissionError{
			Message:         fmt.Sprintf("user %s has no permission level for %q", inv.UserID, group),
			RequiredUser:    req.User,
			RequiredChannel: req.Channel,
		}
	}

	if level >= threshold {
		return nil
	}

	metrics.AuthDecisions.WithLabelValues("denied").Inc()
	perr := &domain.PermissionError{
		Message:         fmt.Sprintf("%s level %d is below %d for %q", acting, level, threshold, group),
		RequiredUser:    req.User,
		RequiredChannel: req.Channel,
	}
	if inv.DirectMessage {
		perr.ActualUser = &level
	} else {
		perr.ActualChannel = &level
	}
	return perr
}
