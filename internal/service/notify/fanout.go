package notify

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"alpine-bot/internal/domain"
	"alpine-bot/internal/metrics"
)

// MemberLister resolves the recipients of a group broadcast.
type MemberLister interface {
	ListGroupMembers(ctx context.Context, group string) ([]domain.PrincipalRef, error)
}

// Failure records one recipient that could not be reached.
type Failure struct {
	To  domain.PrincipalRef
	Err error
}

// Report summarizes one fanout.
type Report struct {
	Delivered int
	Failed    []Failure
}

// Fanout delivers a message to many principals concurrently. Each recipient
// is isolated: a failed delivery is logged and counted, never returned.
type Fanout struct {
	members  MemberLister
	notifier domain.Notifier
	limit    int
	logger   *slog.Logger
}

// NewFanout creates a Fanout delivering at most limit messages at once.
func NewFanout(members MemberLister, notifier domain.Notifier, limit int, logger *slog.Logger) *Fanout {
	if limit <= 0 {
		limit = 8
	}
	return &Fanout{
		members:  members,
		notifier: notifier,
		limit:    limit,
		logger:   logger.With("component", "fanout"),
	}
}

// BroadcastToResource sends a message to every member of group. Only the
// member lookup can fail.
func (f *Fanout) BroadcastToResource(ctx context.Context, group string, id domain.MessageID, params domain.MessageParams) (Report, error) {
	recipients, err := f.members.ListGroupMembers(ctx, group)
	if err != nil {
		return Report{}, err
	}
	return f.Broadcast(ctx, recipients, id, params), nil
}

// Broadcast sends a message to the given recipients.
func (f *Fanout) Broadcast(ctx context.Context, recipients []domain.PrincipalRef, id domain.MessageID, params domain.MessageParams) Report {
	var (
		mu     sync.Mutex
		report Report
		g      errgroup.Group
	)
	g.SetLimit(f.limit)

	for _, to := range recipients {
		g.Go(func() error {
			err := f.notifier.Notify(ctx, to, id, params)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed = append(report.Failed, Failure{To: to, Err: err})
				metrics.Notifications.WithLabelValues("failed").Inc()
				f.logger.Warn("notification failed", "to", to.String(), "message", id.Key(), "error", err)
				return nil
			}
			report.Delivered++
			metrics.Notifications.WithLabelValues("delivered").Inc()
			return nil
		})
	}
	_ = g.Wait()

	if len(recipients) > 0 {
		f.logger.Debug("broadcast done", "message", id.Key(),
			"delivered", report.Delivered, "failed", len(report.Failed))
	}
	return report
}
