package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"alpine-bot/internal/domain"
)

// Compile-time checks.
var (
	_ domain.NotificationChannel = (*fakeChannel)(nil)
	_ MemberLister               = staticMembers(nil)
)

type delivery struct {
	To   domain.PrincipalRef
	Text string
}

type fakeChannel struct {
	mu       sync.Mutex
	sent     []delivery
	failFor  map[domain.PrincipalRef]bool
	released []domain.PrincipalRef
}

var errUnreachable = errors.New("unreachable")

func (c *fakeChannel) Send(_ context.Context, to domain.PrincipalRef, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failFor[to] {
		return errUnreachable
	}
	c.sent = append(c.sent, delivery{To: to, Text: text})
	return nil
}

func (c *fakeChannel) Release(_ context.Context, to domain.PrincipalRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released = append(c.released, to)
	return nil
}

type staticMembers map[string][]domain.PrincipalRef

func (m staticMembers) ListGroupMembers(_ context.Context, group string) ([]domain.PrincipalRef, error) {
	if group == "broken" {
		return nil, errors.New("db down")
	}
	return m[group], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
