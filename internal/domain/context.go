package domain

import "context"

// Invocation describes one inbound command: who typed it and where.
type Invocation struct {
	ID            string
	UserID        string
	ChannelID     string
	DirectMessage bool
	Command       string
}

// Acting returns the principal whose entitlements and level gate the
// invocation: the user in a direct message, the channel otherwise.
func (i Invocation) Acting() PrincipalRef {
	if i.DirectMessage {
		return User(i.UserID)
	}
	return Channel(i.ChannelID)
}

// Invoker returns the user who typed the command. Cooldowns are keyed on it.
func (i Invocation) Invoker() PrincipalRef { return User(i.UserID) }

// Validate checks that the invocation carries the ids its context needs.
func (i Invocation) Validate() error {
	if i.UserID == "" {
		return ErrValidation("invocation user id is required")
	}
	if !i.DirectMessage && i.ChannelID == "" {
		return ErrValidation("invocation channel id is required outside direct messages")
	}
	if i.Command == "" {
		return ErrValidation("invocation command is required")
	}
	return nil
}

type invocationKey struct{}

// WithInvocation stores an Invocation in the context.
func WithInvocation(ctx context.Context, inv Invocation) context.Context {
	return context.WithValue(ctx, invocationKey{}, inv)
}

// InvocationFromContext extracts the Invocation from the context.
func InvocationFromContext(ctx context.Context) (Invocation, bool) {
	inv, ok := ctx.Value(invocationKey{}).(Invocation)
	return inv, ok
}
