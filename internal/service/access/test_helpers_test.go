package access

import (
	"context"
	"io"
	"log/slog"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	internaldb "alpine-bot/internal/db"
	"alpine-bot/internal/db/repository"
	"alpine-bot/internal/domain"
	"alpine-bot/internal/feature"
)

type fixture struct {
	ents     *EntitlementService
	perms    *PermissionService
	admins   *AdminService
	guard    *Guard
	audit    *repository.AuditRepo
	notifier *fakeNotifier
	groups   map[string]domain.Entitled
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupAccess(t *testing.T, toggles Toggles) *fixture {
	t.Helper()
	writeDB, readDB := internaldb.OpenTestSQLite(t)
	logger := discardLogger()

	entRepo := repository.NewEntitlementRepo(writeDB, readDB)
	permRepo := repository.NewPermissionRepo(writeDB, readDB)
	adminRepo := repository.NewAdminRepo(writeDB)
	auditRepo := repository.NewAuditRepo(writeDB)
	notifier := &fakeNotifier{}

	f := &fixture{
		ents:     NewEntitlementService(entRepo, auditRepo, notifier, "!", logger),
		perms:    NewPermissionService(permRepo, auditRepo, notifier, "!", logger),
		admins:   NewAdminService(adminRepo, auditRepo, logger),
		guard:    NewGuard(adminRepo, entRepo, permRepo, toggles, logger),
		audit:    auditRepo,
		notifier: notifier,
		groups: map[string]domain.Entitled{
			"mc": feature.NewStateful("mc", []domain.CommandSpec{
				{Name: "mc.state"},
				{Name: "mc.start", Levels: domain.LevelRequirement{User: 1, Channel: 0}},
				{Name: "mc.stop", Levels: domain.LevelRequirement{User: 2, Channel: 2}},
			}, domain.ResourceSpec{Class: domain.ClassSimple}),
			"yt": feature.NewBasic("yt", []domain.CommandSpec{{Name: "yt.play"}}),
		},
	}

	ctx := context.Background()
	for _, g := range f.groups {
		require.NoError(t, f.ents.RegisterGroup(ctx, g, feature.CommandNames(g)))
	}
	return f
}

func allToggles() Toggles { return Toggles{UserCommands: true, ChannelCommands: true} }

func dm(user, command string) domain.Invocation {
	return domain.Invocation{ID: domain.NewID(), UserID: user, DirectMessage: true, Command: command}
}

func inChannel(user, channel, command string) domain.Invocation {
	return domain.Invocation{ID: domain.NewID(), UserID: user, ChannelID: channel, Command: command}
}

func (f *fixture) spec(t *testing.T, group, command string) (domain.Entitled, domain.CommandSpec) {
	t.Helper()
	g := f.groups[group]
	spec, ok := g.Command(command)
	require.True(t, ok, command)
	return g, spec
}
