package app

import (
	"context"
	"fmt"

	"alpine-bot/internal/domain"
)

// Start runs one reconciliation of every resource, starts the periodic
// reconciler and greets every known principal.
func (a *App) Start(ctx context.Context) {
	for _, g := range a.Registry.Stateful() {
		if _, err := a.Reconciler.ReconcileOnce(ctx, g.GroupName()); err != nil {
			a.logger.Warn("initial reconcile failed", "resource", g.GroupName(), "error", err)
		}
	}
	a.Reconciler.Start()

	if err := a.broadcastStartup(ctx); err != nil {
		a.logger.Warn("startup broadcast failed", "error", err)
	}
}

// Stop halts the reconciler and waits for running ticks.
func (a *App) Stop() {
	a.Reconciler.Stop()
}

func (a *App) broadcastStartup(ctx context.Context) error {
	principals, err := a.Services.Entitlements.ListPrincipals(ctx)
	if err != nil {
		return fmt.Errorf("list principals: %w", err)
	}
	refs := make([]domain.PrincipalRef, len(principals))
	for i, p := range principals {
		refs[i] = p.PrincipalRef
	}
	report := a.Services.Fanout.Broadcast(ctx, refs, domain.MsgStartup,
		domain.GroupParams{Prefix: a.features.Prefix})
	a.logger.Info("startup broadcast", "delivered", report.Delivered, "failed", len(report.Failed))
	return nil
}
