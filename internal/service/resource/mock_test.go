package resource

import (
	"context"
	"errors"
	"sync"

	"alpine-bot/internal/domain"
	"alpine-bot/internal/service/notify"
)

// Compile-time checks.
var (
	_ domain.Probe        = (*switchProbe)(nil)
	_ domain.ActionRunner = (*fakeRunner)(nil)
	_ Broadcaster         = (*fakeBroadcaster)(nil)
	_ domain.Notifier     = (*fakeNotifier)(nil)
)

// switchProbe answers per resource with a value the test flips.
type switchProbe struct {
	mu    sync.Mutex
	up    map[string]bool
	calls int
}

func newSwitchProbe() *switchProbe {
	return &switchProbe{up: make(map[string]bool)}
}

func (p *switchProbe) Set(resource string, up bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.up[resource] = up
}

func (p *switchProbe) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *switchProbe) Probe(ctx context.Context, resource string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if ctx.Err() != nil {
		return false
	}
	return p.up[resource]
}

type launch struct {
	Resource string
	Action   domain.Action
}

type fakeRunner struct {
	mu       sync.Mutex
	launches []launch
	err      error
	onRun    func(resource string, action domain.Action)
}

var errLaunch = errors.New("script missing")

func (r *fakeRunner) Run(_ context.Context, resource string, action domain.Action) error {
	r.mu.Lock()
	if r.err != nil {
		r.mu.Unlock()
		return r.err
	}
	r.launches = append(r.launches, launch{Resource: resource, Action: action})
	hook := r.onRun
	r.mu.Unlock()
	if hook != nil {
		hook(resource, action)
	}
	return nil
}

func (r *fakeRunner) Launches() []launch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]launch(nil), r.launches...)
}

type broadcast struct {
	Group string
	ID    domain.MessageID
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	sent []broadcast
}

// BroadcastToResource drops the message when ctx is done, like a real
// delivery would.
func (b *fakeBroadcaster) BroadcastToResource(ctx context.Context, group string, id domain.MessageID, _ domain.MessageParams) (notify.Report, error) {
	if err := ctx.Err(); err != nil {
		return notify.Report{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, broadcast{Group: group, ID: id})
	return notify.Report{Delivered: 1}, nil
}

func (b *fakeBroadcaster) Sent() []broadcast {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]broadcast(nil), b.sent...)
}

// cancelAfterTransition cancels the tick context once a transition is
// stored, as Stop would in the middle of a tick.
type cancelAfterTransition struct {
	domain.ResourceRepository
	cancel context.CancelFunc
}

func (c *cancelAfterTransition) Transition(ctx context.Context, group string, from, to domain.State) (bool, error) {
	swapped, err := c.ResourceRepository.Transition(ctx, group, from, to)
	c.cancel()
	return swapped, err
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []domain.MessageID
}

func (n *fakeNotifier) Notify(_ context.Context, _ domain.PrincipalRef, id domain.MessageID, _ domain.MessageParams) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, id)
	return nil
}

func (n *fakeNotifier) Release(context.Context, domain.PrincipalRef) error { return nil }

func (n *fakeNotifier) Sent() []domain.MessageID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.MessageID(nil), n.sent...)
}
