package resource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpine-bot/internal/domain"
)

func TestCooldowns_Reserve(t *testing.T) {
	c := NewCooldowns()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	u1 := domain.User("u1")

	require.NoError(t, c.Reserve("mc.start", u1, time.Minute))

	err := c.Reserve("mc.start", u1, time.Minute)
	var cerr *domain.CooldownError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "mc.start", cerr.Command)
	assert.InDelta(t, float64(time.Minute), float64(cerr.RetryAfter), float64(time.Millisecond))

	now = now.Add(30 * time.Second)
	err = c.Reserve("mc.start", u1, time.Minute)
	require.ErrorAs(t, err, &cerr)
	assert.InDelta(t, float64(30*time.Second), float64(cerr.RetryAfter), float64(time.Millisecond))

	now = now.Add(31 * time.Second)
	require.NoError(t, c.Reserve("mc.start", u1, time.Minute))
}

func TestCooldowns_KeyedByCommandAndInvoker(t *testing.T) {
	c := NewCooldowns()
	now := time.Now()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Reserve("mc.start", domain.User("u1"), time.Minute))
	require.NoError(t, c.Reserve("mc.start", domain.User("u2"), time.Minute))
	require.NoError(t, c.Reserve("mc.stop", domain.User("u1"), time.Minute))
	require.Error(t, c.Reserve("mc.stop", domain.User("u1"), time.Minute))
}

func TestCooldowns_ZeroPeriod(t *testing.T) {
	c := NewCooldowns()
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Reserve("pc.wake", domain.User("u1"), 0))
	}
}

func TestCooldownError_RetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 42, (&domain.CooldownError{RetryAfter: 42 * time.Second}).RetryAfterSeconds())
	assert.Equal(t, 1, (&domain.CooldownError{RetryAfter: 10 * time.Millisecond}).RetryAfterSeconds())
}
