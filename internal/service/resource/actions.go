package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"alpine-bot/internal/domain"
	"alpine-bot/internal/metrics"
)

// StateProber reconciles a resource on demand. Reconciler implements it.
type StateProber interface {
	ReconcileOnce(ctx context.Context, group string) (domain.State, error)
	Spec(group string) (domain.ResourceSpec, bool)
}

// Actions launches manual operations on resources. Launches are fire and
// forget; only wake waits, polling until the resource answers.
type Actions struct {
	runner    domain.ActionRunner
	prober    StateProber
	states    *StateGuard
	cooldowns *Cooldowns
	notifier  domain.Notifier
	logger    *slog.Logger
}

// NewActions creates an Actions service. notifier receives progress
// messages for the acting principal and may be nil.
func NewActions(
	runner domain.ActionRunner,
	prober StateProber,
	states *StateGuard,
	cooldowns *Cooldowns,
	notifier domain.Notifier,
	logger *slog.Logger,
) *Actions {
	return &Actions{
		runner:    runner,
		prober:    prober,
		states:    states,
		cooldowns: cooldowns,
		notifier:  notifier,
		logger:    logger.With("component", "actions"),
	}
}

// Run performs the action of a command behind its cooldown. Commands
// without an action do nothing.
func (a *Actions) Run(ctx context.Context, inv domain.Invocation, grp domain.Stateful, spec domain.CommandSpec) error {
	if spec.Action == "" {
		return nil
	}
	res := grp.Resource()
	if err := a.cooldowns.Reserve(spec.Name, inv.Invoker(), res.Cooldown); err != nil {
		return err
	}

	name := grp.GroupName()
	switch spec.Action {
	case domain.ActionWake:
		return a.Wake(ctx, inv, name)
	case domain.ActionStart:
		if res.Class == domain.ClassCompound && res.Host != "" {
			cur, err := a.states.GetState(ctx, name)
			if err != nil {
				return err
			}
			if cur == domain.StateHostInactive {
				a.progress(ctx, inv, domain.MsgHostInactive, domain.ResourceParams{Resource: res.Host})
				if err := a.Wake(ctx, inv, res.Host); err != nil {
					return err
				}
			}
		}
	}
	return a.launch(ctx, name, spec.Action)
}

// Wake launches the wake script of a resource and polls it every
// WakeCheckInterval, up to WakeMaxAttempts times. A resource that never
// answers fails with a ResourceError; there is no automatic retry.
func (a *Actions) Wake(ctx context.Context, inv domain.Invocation, group string) error {
	spec, ok := a.prober.Spec(group)
	if !ok {
		return domain.ErrNotFound("resource %q is not watched", group)
	}

	cur, err := a.states.GetState(ctx, group)
	if err != nil {
		return err
	}
	if converged(spec.Class, cur) {
		return nil
	}

	if err := a.launch(ctx, group, domain.ActionWake); err != nil {
		return err
	}
	a.progress(ctx, inv, domain.MsgWakeSent, domain.ResourceParams{Resource: group})

	ticker := time.NewTicker(spec.WakeCheckInterval)
	defer ticker.Stop()
	for attempt := 1; attempt <= spec.WakeMaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		state, err := a.prober.ReconcileOnce(ctx, group)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Warn("wake check failed", "resource", group, "attempt", attempt, "error", err)
			continue
		}
		if converged(spec.Class, state) {
			a.logger.Info("resource woke", "resource", group, "attempts", attempt)
			return nil
		}
	}

	a.logger.Warn("wake did not converge", "resource", group, "attempts", spec.WakeMaxAttempts)
	return &domain.ResourceError{
		Resource: group,
		Message:  fmt.Sprintf("no response after %d wake checks", spec.WakeMaxAttempts),
	}
}

func (a *Actions) launch(ctx context.Context, group string, action domain.Action) error {
	if err := a.runner.Run(ctx, group, action); err != nil {
		metrics.ActionLaunches.WithLabelValues(group, string(action), "failed").Inc()
		a.logger.Warn("action launch failed", "resource", group, "action", action, "error", err)
		msg := fmt.Sprintf("launch %s: %v", action, err)
		var rerr *domain.ResourceError
		if errors.As(err, &rerr) {
			msg = rerr.Message
		}
		return &domain.ResourceError{Resource: group, Message: msg, Launch: true}
	}
	metrics.ActionLaunches.WithLabelValues(group, string(action), "launched").Inc()
	a.logger.Info("action launched", "resource", group, "action", action)
	return nil
}

func (a *Actions) progress(ctx context.Context, inv domain.Invocation, id domain.MessageID, params domain.MessageParams) {
	if a.notifier == nil || inv.UserID == "" {
		return
	}
	if err := a.notifier.Notify(ctx, inv.Acting(), id, params); err != nil {
		a.logger.Warn("progress message failed", "to", inv.Acting().String(), "error", err)
	}
}
