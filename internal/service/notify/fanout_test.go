package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpine-bot/internal/domain"
)

func setupFanout(t *testing.T, ch *fakeChannel, members staticMembers) *Fanout {
	t.Helper()
	f, err := NewFormatter(nil)
	require.NoError(t, err)
	return NewFanout(members, NewNotifier(ch, f), 2, discardLogger())
}

func TestFanout_DeliversToAllMembers(t *testing.T) {
	ch := &fakeChannel{}
	members := staticMembers{"mc": {domain.User("u1"), domain.User("u2"), domain.Channel("c1")}}
	fan := setupFanout(t, ch, members)

	report, err := fan.BroadcastToResource(context.Background(), "mc",
		domain.MsgResourceActive, domain.ResourceParams{Resource: "mc"})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Delivered)
	assert.Empty(t, report.Failed)

	require.Len(t, ch.sent, 3)
	for _, d := range ch.sent {
		assert.Equal(t, "Response received from mc. Server is active.", d.Text)
	}
}

func TestFanout_IsolatesFailedRecipients(t *testing.T) {
	bad := domain.Channel("gone")
	ch := &fakeChannel{failFor: map[domain.PrincipalRef]bool{bad: true}}
	members := staticMembers{"mc": {domain.User("u1"), bad, domain.User("u2")}}
	fan := setupFanout(t, ch, members)

	report, err := fan.BroadcastToResource(context.Background(), "mc",
		domain.MsgResourceInactive, domain.ResourceParams{Resource: "mc"})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Delivered)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, bad, report.Failed[0].To)
	assert.ErrorIs(t, report.Failed[0].Err, errUnreachable)
}

func TestFanout_NoMembers(t *testing.T) {
	ch := &fakeChannel{}
	fan := setupFanout(t, ch, staticMembers{})

	report, err := fan.BroadcastToResource(context.Background(), "empty", domain.MsgStartup, domain.NoParams{})
	require.NoError(t, err)
	assert.Zero(t, report.Delivered)
	assert.Empty(t, ch.sent)
}

func TestFanout_MemberLookupError(t *testing.T) {
	fan := setupFanout(t, &fakeChannel{}, staticMembers{})

	_, err := fan.BroadcastToResource(context.Background(), "broken", domain.MsgStartup, domain.NoParams{})
	require.Error(t, err)
}

func TestNotifier_Release(t *testing.T) {
	ch := &fakeChannel{}
	f, err := NewFormatter(nil)
	require.NoError(t, err)
	n := NewNotifier(ch, f)

	require.NoError(t, n.Release(context.Background(), domain.Channel("c1")))
	assert.Equal(t, []domain.PrincipalRef{domain.Channel("c1")}, ch.released)
}
