package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpine-bot/internal/domain"
)

func TestFormatter_Defaults(t *testing.T) {
	f, err := NewFormatter(nil)
	require.NoError(t, err)

	assert.Equal(t, "Response received from mc. Server is active.",
		f.Format(domain.MsgResourceActive, domain.ResourceParams{Resource: "mc"}))
	assert.Equal(t, "Command on cooldown for 42 seconds.",
		f.Format(domain.MsgCooldown, domain.CooldownParams{Command: "mc.start", Seconds: 42}))
	assert.Equal(t, "Command unavailable in current state: HOST_INACTIVE",
		f.Format(domain.MsgStateUnavailable, domain.StateUnavailableParams{
			Resource: "pz", Actual: domain.StateHostInactive, Required: domain.NewStateSet(domain.StateActive),
		}))
	assert.Equal(t, "You do not have permission for this command.",
		f.Format(domain.MsgNoCommandPermission, nil))
}

func TestFormatter_EveryMessageHasADefault(t *testing.T) {
	f, err := NewFormatter(nil)
	require.NoError(t, err)
	for id := domain.MsgWelcome; id <= domain.MsgResourceUnresponsive; id++ {
		assert.NotEmpty(t, id.Key(), "message %d has no key", id)
		assert.NotContains(t, f.Format(id, domain.NoParams{}), "message ", "message %s has no template", id.Key())
	}
}

func TestFormatter_Overrides(t *testing.T) {
	f, err := NewFormatter(map[string]string{
		"welcome": "Welcome to {group}, use {prefix}help. {unknown} stays.",
	})
	require.NoError(t, err)

	got := f.Format(domain.MsgWelcome, domain.GroupParams{Group: "mc", Prefix: "$"})
	assert.Equal(t, "Welcome to mc, use $help. {unknown} stays.", got)
}

func TestFormatter_OverrideIsNotEvaluated(t *testing.T) {
	f, err := NewFormatter(map[string]string{"startup": `{{ .Secret }} f"{os.environ}"`})
	require.NoError(t, err)
	assert.Equal(t, `{{ .Secret }} f"{os.environ}"`, f.Format(domain.MsgStartup, domain.GroupParams{}))
}

func TestFormatter_UnknownOverride(t *testing.T) {
	_, err := NewFormatter(map[string]string{"nope": "x"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}
