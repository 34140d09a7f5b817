package resource

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"alpine-bot/internal/domain"
	"alpine-bot/internal/metrics"
	"alpine-bot/internal/service/notify"
)

// announceTimeout bounds the audit record and broadcast of a transition that
// has already been stored.
const announceTimeout = 10 * time.Second

// Broadcaster announces a message to the members of a group.
type Broadcaster interface {
	BroadcastToResource(ctx context.Context, group string, id domain.MessageID, params domain.MessageParams) (notify.Report, error)
}

// Probes bundles the liveness checks of every resource.
type Probes struct {
	Host   domain.Probe
	Server domain.Probe
}

type watch struct {
	entry cron.EntryID
	spec  domain.ResourceSpec
}

// Reconciler keeps the stored state of every watched resource in line with
// its probes. Each resource is ticked on its own fixed interval; a tick
// that is still running when the next one is due is skipped.
type Reconciler struct {
	cron         *cron.Cron
	resources    domain.ResourceRepository
	probes       Probes
	fanout       Broadcaster
	audit        domain.AuditRepository
	probeTimeout time.Duration
	logger       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	watched map[string]watch
}

// NewReconciler creates a Reconciler. Call Start to begin ticking.
func NewReconciler(
	resources domain.ResourceRepository,
	probes Probes,
	fanout Broadcaster,
	audit domain.AuditRepository,
	probeTimeout time.Duration,
	logger *slog.Logger,
) *Reconciler {
	logger = logger.With("component", "reconciler")
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		resources:    resources,
		probes:       probes,
		fanout:       fanout,
		audit:        audit,
		probeTimeout: probeTimeout,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
		watched:      make(map[string]watch),
	}
}

// Watch ensures the resource row of a stateful group exists and schedules
// its reconciliation. Watching an already watched group replaces its
// schedule.
func (r *Reconciler) Watch(ctx context.Context, g domain.Stateful) error {
	spec := g.Resource()
	name := g.GroupName()
	if spec.Interval <= 0 {
		return domain.ErrValidation("resource %q: interval must be positive", name)
	}

	res, err := r.resources.Ensure(ctx, name, spec.Class)
	if err != nil {
		return fmt.Errorf("ensure resource %q: %w", name, err)
	}
	metrics.SetState(name, res.State)

	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.watched[name]; ok {
		r.cron.Remove(old.entry)
	}
	entry := r.cron.Schedule(cron.Every(spec.Interval), cron.FuncJob(func() {
		if _, err := r.ReconcileOnce(r.ctx, name); err != nil && r.ctx.Err() == nil {
			r.logger.Warn("reconcile failed", "resource", name, "error", err)
		}
	}))
	r.watched[name] = watch{entry: entry, spec: spec}
	r.logger.Info("watching resource", "resource", name, "class", spec.Class, "interval", spec.Interval)
	return nil
}

// Unwatch stops scheduling a resource. A tick already running finishes.
func (r *Reconciler) Unwatch(group string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.watched[group]
	if !ok {
		return false
	}
	r.cron.Remove(w.entry)
	delete(r.watched, group)
	return true
}

// Spec returns the resource configuration of a watched group.
func (r *Reconciler) Spec(group string) (domain.ResourceSpec, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.watched[group]
	return w.spec, ok
}

// Start begins ticking every watched resource.
func (r *Reconciler) Start() {
	r.cron.Start()
	r.logger.Info("reconciler started")
}

// Stop cancels running ticks and waits for them to return. A cancelled
// tick never persists a transition, but one already stored is still
// announced.
func (r *Reconciler) Stop() {
	r.cancel()
	<-r.cron.Stop().Done()
	r.logger.Info("reconciler stopped")
}

// Remove unwatches a resource and deletes its stored state.
func (r *Reconciler) Remove(ctx context.Context, group string) error {
	r.Unwatch(group)
	if err := r.resources.Delete(ctx, group); err != nil {
		return err
	}
	metrics.ForgetResource(group)
	r.logger.Info("resource removed", "resource", group)
	return nil
}

// ReconcileOnce probes a watched resource, persists a state change with a
// compare-and-swap and announces transitions into or out of ACTIVE. It
// returns the state stored afterwards.
func (r *Reconciler) ReconcileOnce(ctx context.Context, group string) (domain.State, error) {
	spec, ok := r.Spec(group)
	if !ok {
		return 0, domain.ErrNotFound("resource %q is not watched", group)
	}

	start := time.Now()
	defer func() {
		metrics.ReconcileDuration.WithLabelValues(group).Observe(time.Since(start).Seconds())
	}()

	res, err := r.resources.Get(ctx, group)
	if err != nil {
		return 0, err
	}

	hostOK := r.probe(ctx, r.probes.Host, group)
	serverOK := false
	if hostOK && spec.Class == domain.ClassCompound {
		serverOK = r.probe(ctx, r.probes.Server, group)
	}
	if err := ctx.Err(); err != nil {
		return res.State, err
	}

	next := NextState(spec.Class, res.State, hostOK, serverOK)
	if next == res.State {
		return res.State, nil
	}

	swapped, err := r.resources.Transition(ctx, group, res.State, next)
	if err != nil {
		return res.State, fmt.Errorf("transition %q: %w", group, err)
	}
	if !swapped {
		// Another reconciliation got there first; report what it stored.
		cur, err := r.resources.Get(ctx, group)
		if err != nil {
			return 0, err
		}
		return cur.State, nil
	}

	r.logger.Info("resource transition", "resource", group, "from", res.State, "to", next)
	metrics.StateTransitions.WithLabelValues(group, res.State.String(), next.String()).Inc()
	metrics.SetState(group, next)

	// The transition is committed; announce it even if ctx ends now.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), announceTimeout)
	defer cancel()
	r.recordTransition(ctx, group, res.State, next)

	if ShouldNotify(res.State, next) {
		report, err := r.fanout.BroadcastToResource(ctx, group, transitionMessage(next),
			domain.ResourceParams{Resource: group, State: next})
		if err != nil {
			r.logger.Warn("transition broadcast failed", "resource", group, "error", err)
		} else if len(report.Failed) > 0 {
			r.logger.Warn("transition broadcast incomplete", "resource", group,
				"delivered", report.Delivered, "failed", len(report.Failed))
		}
	}
	return next, nil
}

func (r *Reconciler) probe(ctx context.Context, p domain.Probe, group string) bool {
	if p == nil {
		return false
	}
	if r.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.probeTimeout)
		defer cancel()
	}
	return p.Probe(ctx, group)
}

func (r *Reconciler) recordTransition(ctx context.Context, group string, from, to domain.State) {
	if r.audit == nil {
		return
	}
	if err := r.audit.Insert(ctx, &domain.AuditEntry{
		Principal: "system",
		Action:    domain.AuditStateTransition,
		Target:    group,
		Detail:    from.String() + " -> " + to.String(),
	}); err != nil {
		r.logger.Warn("audit insert failed", "resource", group, "error", err)
	}
}

// cronLogger routes scheduler messages to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
