package access

import (
	"context"
	"sync"

	"alpine-bot/internal/domain"
)

// Compile-time check.
var _ domain.Notifier = (*fakeNotifier)(nil)

type notification struct {
	To     domain.PrincipalRef
	ID     domain.MessageID
	Params domain.MessageParams
}

type fakeNotifier struct {
	mu       sync.Mutex
	sent     []notification
	released []domain.PrincipalRef
	notifyFn func(to domain.PrincipalRef) error
}

func (f *fakeNotifier) Notify(_ context.Context, to domain.PrincipalRef, id domain.MessageID, params domain.MessageParams) error {
	f.mu.Lock()
	f.sent = append(f.sent, notification{To: to, ID: id, Params: params})
	f.mu.Unlock()
	if f.notifyFn != nil {
		return f.notifyFn(to)
	}
	return nil
}

func (f *fakeNotifier) Release(_ context.Context, to domain.PrincipalRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, to)
	return nil
}

func (f *fakeNotifier) Sent() []notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notification(nil), f.sent...)
}

func (f *fakeNotifier) Released() []domain.PrincipalRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.PrincipalRef(nil), f.released...)
}
