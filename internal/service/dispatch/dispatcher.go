// Package dispatch runs an inbound command through every gate: lookup,
// authorization, resource state, cooldown and finally its action.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"alpine-bot/internal/domain"
	"alpine-bot/internal/service/access"
	"alpine-bot/internal/service/resource"
)

// ErrUnknownCommand is returned for names no feature group declares. It
// gets no reply.
var ErrUnknownCommand = errors.New("unknown command")

// Commands resolves command names. feature.Registry implements it.
type Commands interface {
	Lookup(command string) (domain.Entitled, domain.CommandSpec, bool)
}

// Result describes an accepted invocation.
type Result struct {
	Group domain.Entitled
	Spec  domain.CommandSpec
	// Handled is true when the dispatcher already ran the command (a
	// resource action or state query). Otherwise the caller runs its own
	// handler for Spec.
	Handled bool
}

// Dispatcher gates and runs invocations.
type Dispatcher struct {
	commands Commands
	guard    *access.Guard
	states   *resource.StateGuard
	actions  *resource.Actions
	notifier domain.Notifier
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher. notifier receives the replies to the
// acting principal and may be nil.
func NewDispatcher(
	commands Commands,
	guard *access.Guard,
	states *resource.StateGuard,
	actions *resource.Actions,
	notifier domain.Notifier,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		commands: commands,
		guard:    guard,
		states:   states,
		actions:  actions,
		notifier: notifier,
		logger:   logger.With("component", "dispatch"),
	}
}

// Dispatch runs inv. Denials and failures are replied to the acting
// principal and returned.
func (d *Dispatcher) Dispatch(ctx context.Context, inv domain.Invocation) (Result, error) {
	if inv.ID == "" {
		inv.ID = domain.NewID()
	}
	ctx = domain.WithInvocation(ctx, inv)

	res, err := d.dispatch(ctx, inv)
	if err != nil {
		d.logger.Info("invocation rejected", "invocation", inv.ID, "command", inv.Command,
			"user", inv.UserID, "error", err)
		d.replyError(ctx, inv, err)
		return res, err
	}
	return res, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, inv domain.Invocation) (Result, error) {
	if err := inv.Validate(); err != nil {
		return Result{}, err
	}
	grp, spec, ok := d.commands.Lookup(inv.Command)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownCommand, inv.Command)
	}
	res := Result{Group: grp, Spec: spec}

	if err := d.guard.Authorize(ctx, inv, grp, spec); err != nil {
		return res, err
	}

	sg, stateful := grp.(domain.Stateful)
	if !stateful {
		return res, nil
	}
	name := sg.GroupName()
	if err := d.states.AssertState(ctx, name, spec.States); err != nil {
		return res, err
	}

	res.Handled = true
	if spec.Action == "" {
		state, err := d.states.GetState(ctx, name)
		if err != nil {
			return res, err
		}
		d.reply(ctx, inv, domain.MsgResourceState, domain.ResourceParams{Resource: name, State: state})
		return res, nil
	}

	if err := d.actions.Run(ctx, inv, sg, spec); err != nil {
		return res, err
	}
	d.reply(ctx, inv, domain.MsgActionStarted, domain.ActionParams{Resource: name, Action: spec.Action})
	return res, nil
}

// ReplyFor maps a dispatch error to the message shown to the invoker.
func ReplyFor(err error) (domain.MessageID, domain.MessageParams, bool) {
	var (
		perr  *domain.PermissionError
		cfg   *domain.ConfigurationError
		serr  *domain.StateError
		cerr  *domain.CooldownError
		rerr  *domain.ResourceError
		nferr *domain.NotFoundError
	)
	switch {
	case errors.As(err, &perr), errors.As(err, &cfg):
		return domain.MsgNoCommandPermission, domain.NoParams{}, true
	case errors.As(err, &serr):
		return domain.MsgStateUnavailable, domain.StateUnavailableParams{
			Resource: serr.Resource, Actual: serr.Actual, Required: serr.Required,
		}, true
	case errors.As(err, &cerr):
		return domain.MsgCooldown, domain.CooldownParams{
			Command: cerr.Command, Seconds: cerr.RetryAfterSeconds(),
		}, true
	case errors.As(err, &rerr) && rerr.Launch:
		return domain.MsgResourceUnresponsive, domain.ResourceParams{Resource: rerr.Resource}, true
	case errors.As(err, &rerr):
		return domain.MsgWakeFailed, domain.ResourceParams{Resource: rerr.Resource}, true
	case errors.As(err, &nferr):
		return domain.MsgResourceNotFound, domain.NoParams{}, true
	default:
		return 0, nil, false
	}
}

func (d *Dispatcher) replyError(ctx context.Context, inv domain.Invocation, err error) {
	id, params, ok := ReplyFor(err)
	if !ok {
		return
	}
	d.reply(ctx, inv, id, params)
}

func (d *Dispatcher) reply(ctx context.Context, inv domain.Invocation, id domain.MessageID, params domain.MessageParams) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.Notify(ctx, inv.Acting(), id, params); err != nil {
		d.logger.Warn("reply failed", "invocation", inv.ID, "error", err)
	}
}
