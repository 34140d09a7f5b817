package resource

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"alpine-bot/internal/domain"
	"alpine-bot/internal/metrics"
)

type cooldownKey struct {
	command string
	invoker domain.PrincipalRef
}

// Cooldowns rate limits actions per command and invoker: one launch per
// period. State is in memory and resets on restart.
type Cooldowns struct {
	limiters sync.Map // cooldownKey → *rate.Limiter
	now      func() time.Time
}

// NewCooldowns creates an empty cooldown table.
func NewCooldowns() *Cooldowns {
	return &Cooldowns{now: time.Now}
}

// Reserve consumes the cooldown of command for invoker. It fails with a
// CooldownError carrying the remaining wait when the period has not
// elapsed since the last successful reservation.
func (c *Cooldowns) Reserve(command string, invoker domain.PrincipalRef, period time.Duration) error {
	if period <= 0 {
		return nil
	}
	key := cooldownKey{command: command, invoker: invoker}
	v, _ := c.limiters.LoadOrStore(key, rate.NewLimiter(rate.Every(period), 1))
	limiter := v.(*rate.Limiter)

	now := c.now()
	res := limiter.ReserveN(now, 1)
	if !res.OK() {
		return &domain.CooldownError{Command: command, RetryAfter: period}
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		metrics.CooldownRejections.WithLabelValues(command).Inc()
		return &domain.CooldownError{Command: command, RetryAfter: delay}
	}
	return nil
}
