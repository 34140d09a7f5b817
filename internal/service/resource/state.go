package resource

import (
	"context"

	"alpine-bot/internal/domain"
)

// StateGuard gates commands on the stored state of a resource.
type StateGuard struct {
	resources domain.ResourceRepository
}

// NewStateGuard creates a StateGuard.
func NewStateGuard(resources domain.ResourceRepository) *StateGuard {
	return &StateGuard{resources: resources}
}

// GetState returns the stored state of a resource.
func (g *StateGuard) GetState(ctx context.Context, group string) (domain.State, error) {
	res, err := g.resources.Get(ctx, group)
	if err != nil {
		return 0, err
	}
	return res.State, nil
}

// AssertState fails with a StateError unless the current state is in
// required. An empty set accepts every state.
func (g *StateGuard) AssertState(ctx context.Context, group string, required domain.StateSet) error {
	if required.Empty() {
		return nil
	}
	cur, err := g.GetState(ctx, group)
	if err != nil {
		return err
	}
	if !required.Contains(cur) {
		return &domain.StateError{Resource: group, Required: required, Actual: cur}
	}
	return nil
}

// List returns every stored resource.
func (g *StateGuard) List(ctx context.Context) ([]domain.Resource, error) {
	return g.resources.List(ctx)
}
