package resource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpine-bot/internal/domain"
)

func TestStateGuard_AssertState(t *testing.T) {
	f := setupResources(t)
	ctx := context.Background()

	require.NoError(t, f.states.AssertState(ctx, "pz", domain.NewStateSet(domain.StateInactive)))
	require.NoError(t, f.states.AssertState(ctx, "pz", 0), "an empty set accepts every state")

	err := f.states.AssertState(ctx, "pz", domain.NewStateSet(domain.StateActive))
	var serr *domain.StateError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "pz", serr.Resource)
	assert.Equal(t, domain.StateInactive, serr.Actual)
	assert.True(t, serr.Required.Contains(domain.StateActive))
}

func TestStateGuard_AssertStateFollowsReconciliation(t *testing.T) {
	f := setupResources(t)
	ctx := context.Background()

	_, err := f.reconciler.ReconcileOnce(ctx, "pz")
	require.NoError(t, err)

	err = f.states.AssertState(ctx, "pz", domain.NewStateSet(domain.StateActive, domain.StateInactive))
	var serr *domain.StateError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, domain.StateHostInactive, serr.Actual)
}

func TestStateGuard_UnknownResource(t *testing.T) {
	f := setupResources(t)

	err := f.states.AssertState(context.Background(), "nope", domain.NewStateSet(domain.StateActive))
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestStateGuard_List(t *testing.T) {
	f := setupResources(t)

	list, err := f.states.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "pc", list[0].GroupName)
	assert.Equal(t, domain.ClassCompound, list[1].Class)
}
