package resource

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	internaldb "alpine-bot/internal/db"
	"alpine-bot/internal/db/repository"
	"alpine-bot/internal/domain"
	"alpine-bot/internal/feature"
)

type fixture struct {
	resources   *repository.ResourceRepo
	audit       *repository.AuditRepo
	host        *switchProbe
	server      *switchProbe
	runner      *fakeRunner
	broadcaster *fakeBroadcaster
	notifier    *fakeNotifier
	reconciler  *Reconciler
	states      *StateGuard
	cooldowns   *Cooldowns
	actions     *Actions
	groups      map[string]domain.Stateful
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupResources watches two resources: "pc", a simple host with a wake
// script, and "pz", a compound server running on it.
func setupResources(t *testing.T) *fixture {
	t.Helper()
	writeDB, readDB := internaldb.OpenTestSQLite(t)
	logger := discardLogger()
	ctx := context.Background()

	f := &fixture{
		resources:   repository.NewResourceRepo(writeDB, readDB),
		audit:       repository.NewAuditRepo(writeDB),
		host:        newSwitchProbe(),
		server:      newSwitchProbe(),
		runner:      &fakeRunner{},
		broadcaster: &fakeBroadcaster{},
		notifier:    &fakeNotifier{},
		cooldowns:   NewCooldowns(),
		groups: map[string]domain.Stateful{
			"pc": feature.NewStateful("pc", []domain.CommandSpec{
				{Name: "pc.wake", Action: domain.ActionWake},
			}, domain.ResourceSpec{
				Class:             domain.ClassSimple,
				Interval:          time.Hour,
				WakeCheckInterval: 5 * time.Millisecond,
				WakeMaxAttempts:   3,
			}),
			"pz": feature.NewStateful("pz", []domain.CommandSpec{
				{Name: "pz.start", Action: domain.ActionStart,
					States: domain.NewStateSet(domain.StateInactive, domain.StateHostInactive)},
				{Name: "pz.stop", Action: domain.ActionStop, States: domain.NewStateSet(domain.StateActive)},
				{Name: "pz.status"},
			}, domain.ResourceSpec{
				Class:             domain.ClassCompound,
				Host:              "pc",
				Interval:          time.Hour,
				Cooldown:          time.Minute,
				WakeCheckInterval: 5 * time.Millisecond,
				WakeMaxAttempts:   3,
			}),
		},
	}

	f.reconciler = NewReconciler(f.resources, Probes{Host: f.host, Server: f.server},
		f.broadcaster, f.audit, time.Second, logger)
	f.states = NewStateGuard(f.resources)
	f.actions = NewActions(f.runner, f.reconciler, f.states, f.cooldowns, f.notifier, logger)

	ents := repository.NewEntitlementRepo(writeDB, readDB)
	for _, name := range []string{"pc", "pz"} {
		g := f.groups[name]
		require.NoError(t, ents.RegisterGroup(ctx, domain.Group{Name: name, Kind: g.Kind()}, feature.CommandNames(g)))
		require.NoError(t, f.reconciler.Watch(ctx, g))
	}
	t.Cleanup(f.reconciler.Stop)
	return f
}

func (f *fixture) state(t *testing.T, group string) domain.State {
	t.Helper()
	s, err := f.states.GetState(context.Background(), group)
	require.NoError(t, err)
	return s
}

func invocation(command string) domain.Invocation {
	return domain.Invocation{ID: "inv", UserID: "u1", DirectMessage: true, Command: command}
}
