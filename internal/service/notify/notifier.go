package notify

import (
	"context"

	"alpine-bot/internal/domain"
)

// Compile-time check.
var _ domain.Notifier = (*Notifier)(nil)

// Notifier renders a message and sends it through a NotificationChannel.
type Notifier struct {
	channel   domain.NotificationChannel
	formatter *Formatter
}

// NewNotifier creates a Notifier.
func NewNotifier(channel domain.NotificationChannel, formatter *Formatter) *Notifier {
	return &Notifier{channel: channel, formatter: formatter}
}

// Notify renders id with params and delivers it to one principal.
func (n *Notifier) Notify(ctx context.Context, to domain.PrincipalRef, id domain.MessageID, params domain.MessageParams) error {
	return n.channel.Send(ctx, to, n.formatter.Format(id, params))
}

// Release frees the platform-side state of a principal.
func (n *Notifier) Release(ctx context.Context, to domain.PrincipalRef) error {
	return n.channel.Release(ctx, to)
}
