package notify

import (
	"context"
	"log/slog"

	"alpine-bot/internal/domain"
)

// Compile-time check.
var _ domain.NotificationChannel = (*LogChannel)(nil)

// LogChannel is a NotificationChannel that writes every message to the
// log. The daemon uses it when no chat transport is attached.
type LogChannel struct {
	logger *slog.Logger
}

// NewLogChannel creates a LogChannel.
func NewLogChannel(logger *slog.Logger) *LogChannel {
	return &LogChannel{logger: logger.With("component", "notify")}
}

func (c *LogChannel) Send(_ context.Context, to domain.PrincipalRef, text string) error {
	c.logger.Info("message", "to", to.String(), "text", text)
	return nil
}

func (c *LogChannel) Release(_ context.Context, to domain.PrincipalRef) error {
	c.logger.Info("released", "to", to.String())
	return nil
}
