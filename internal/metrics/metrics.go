// Package metrics registers the Prometheus collectors of the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"alpine-bot/internal/domain"
)

var (
	// AuthDecisions counts guard outcomes by result: allowed, admin,
	// denied, misconfigured, disabled.
	AuthDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alpine_auth_decisions_total",
		Help: "Authorization decisions by result",
	}, []string{"result"})

	// StateTransitions counts persisted resource transitions.
	StateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alpine_resource_transitions_total",
		Help: "Resource state transitions",
	}, []string{"resource", "from", "to"})

	// ResourceState exposes the current state of each resource as the
	// numeric value of its State.
	ResourceState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "alpine_resource_state",
		Help: "Current resource state (1=INACTIVE, 2=ACTIVE, 3=HOST_INACTIVE)",
	}, []string{"resource"})

	// ReconcileDuration observes one reconciliation tick.
	ReconcileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "alpine_reconcile_duration_seconds",
		Help:    "Duration of one reconciliation tick",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"resource"})

	// Notifications counts fanout deliveries by outcome: delivered, failed.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alpine_notifications_total",
		Help: "Notification deliveries by outcome",
	}, []string{"outcome"})

	// ActionLaunches counts launched manual actions.
	ActionLaunches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alpine_action_launches_total",
		Help: "Manual resource actions launched",
	}, []string{"resource", "action", "outcome"})

	// CooldownRejections counts actions refused by a cooldown.
	CooldownRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alpine_cooldown_rejections_total",
		Help: "Actions rejected because of a cooldown",
	}, []string{"command"})
)

// SetState records the current state of a resource.
func SetState(resource string, s domain.State) {
	ResourceState.WithLabelValues(resource).Set(float64(s))
}

// ForgetResource drops the series of a deleted resource.
func ForgetResource(resource string) {
	ResourceState.DeleteLabelValues(resource)
	ReconcileDuration.DeleteLabelValues(resource)
}
