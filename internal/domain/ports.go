package domain

import "context"

// Probe checks the liveness of one target of a resource. It never fails:
// an unreachable target is reported as false.
type Probe interface {
	Probe(ctx context.Context, resource string) bool
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(ctx context.Context, resource string) bool

func (f ProbeFunc) Probe(ctx context.Context, resource string) bool { return f(ctx, resource) }

// ActionRunner launches an external start/stop/wake operation. Run returns
// once the operation has been launched, not when it completes.
type ActionRunner interface {
	Run(ctx context.Context, resource string, action Action) error
}

// NotificationChannel delivers text to a principal on the chat platform.
type NotificationChannel interface {
	Send(ctx context.Context, to PrincipalRef, text string) error
	// Release frees platform-side state held for a channel principal
	// (webhooks and the like) once it is purged.
	Release(ctx context.Context, to PrincipalRef) error
}

// Notifier formats a message and delivers it to one principal.
type Notifier interface {
	Notify(ctx context.Context, to PrincipalRef, id MessageID, params MessageParams) error
	Release(ctx context.Context, to PrincipalRef) error
}
