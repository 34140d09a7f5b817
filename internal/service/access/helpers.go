// Package access implements the entitlement store services, the ordered
// permission overlay and the authorization guard.
package access

import (
	"context"
	"log/slog"

	"alpine-bot/internal/domain"
)

// actorName returns who triggered an operation, for the audit log.
func actorName(ctx context.Context) string {
	if inv, ok := domain.InvocationFromContext(ctx); ok {
		return inv.Invoker().String()
	}
	return "system"
}

func logAudit(ctx context.Context, audit domain.AuditRepository, logger *slog.Logger, action, target, detail string) {
	if audit == nil {
		return
	}
	if err := audit.Insert(ctx, &domain.AuditEntry{
		Principal: actorName(ctx),
		Action:    action,
		Target:    target,
		Detail:    detail,
	}); err != nil {
		logger.Warn("audit insert failed", "action", action, "target", target, "error", err)
	}
}

// welcome greets a principal the store has just created.
func welcome(ctx context.Context, n domain.Notifier, logger *slog.Logger, p domain.PrincipalRef, group, prefix string) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, p, domain.MsgWelcome, domain.GroupParams{Group: group, Prefix: prefix}); err != nil {
		logger.Warn("welcome message failed", "principal", p.String(), "group", group, "error", err)
	}
}

// releaseIfChannel frees platform-side state of a purged channel. Failures
// are logged; the purge itself has already committed.
func releaseIfChannel(ctx context.Context, n domain.Notifier, logger *slog.Logger, p domain.PrincipalRef) {
	if n == nil || p.Kind != domain.PrincipalChannel {
		return
	}
	if err := n.Release(ctx, p); err != nil {
		logger.Warn("release channel failed", "principal", p.String(), "error", err)
	}
}
