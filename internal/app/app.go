// Package app provides application-level wiring and dependency injection
// for the bot: repositories, services, the feature registry and the
// reconciler.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"alpine-bot/internal/config"
	"alpine-bot/internal/db/repository"
	"alpine-bot/internal/domain"
	"alpine-bot/internal/feature"
	"alpine-bot/internal/runner"
	"alpine-bot/internal/service/access"
	"alpine-bot/internal/service/dispatch"
	"alpine-bot/internal/service/notify"
	"alpine-bot/internal/service/resource"
)

// Deps holds the external dependencies that main() must provide.
type Deps struct {
	Cfg      *config.Config
	Features *config.Features
	WriteDB  *sql.DB
	ReadDB   *sql.DB
	Logger   *slog.Logger

	// Channel delivers messages to the chat platform. Nil logs them.
	Channel domain.NotificationChannel
	// Probes and Runner replace the script runner built from the
	// features file. Tests set them.
	Probes *resource.Probes
	Runner domain.ActionRunner
}

// Services groups the services the daemon and the admin CLI need.
type Services struct {
	Entitlements *access.EntitlementService
	Permissions  *access.PermissionService
	Admins       *access.AdminService
	Guard        *access.Guard
	States       *resource.StateGuard
	Actions      *resource.Actions
	Dispatcher   *dispatch.Dispatcher
	Fanout       *notify.Fanout
	Audit        domain.AuditRepository
}

// App holds the fully-wired application.
type App struct {
	Services   Services
	Registry   *feature.Registry
	Reconciler *resource.Reconciler

	features *config.Features
	logger   *slog.Logger
}

// New wires all repositories and services, registers every feature group
// in the store and watches every resource. Nothing runs until Start.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger

	// === Repositories ===
	entRepo := repository.NewEntitlementRepo(deps.WriteDB, deps.ReadDB)
	permRepo := repository.NewPermissionRepo(deps.WriteDB, deps.ReadDB)
	adminRepo := repository.NewAdminRepo(deps.WriteDB)
	resourceRepo := repository.NewResourceRepo(deps.WriteDB, deps.ReadDB)
	auditRepo := repository.NewAuditRepo(deps.WriteDB)

	// === Messaging ===
	formatter, err := notify.NewFormatter(deps.Features.Messages)
	if err != nil {
		return nil, fmt.Errorf("message overrides: %w", err)
	}
	channel := deps.Channel
	if channel == nil {
		channel = notify.NewLogChannel(logger)
	}
	notifier := notify.NewNotifier(channel, formatter)
	fanout := notify.NewFanout(entRepo, notifier, cfg.NotifyConcurrency, logger)

	// === Feature groups ===
	registry, err := feature.FromFeatures(deps.Features, cfg.ReconcileInterval)
	if err != nil {
		return nil, fmt.Errorf("build feature groups: %w", err)
	}

	// === Access control ===
	entSvc := access.NewEntitlementService(entRepo, auditRepo, notifier, deps.Features.Prefix, logger)
	permSvc := access.NewPermissionService(permRepo, auditRepo, notifier, deps.Features.Prefix, logger)
	adminSvc := access.NewAdminService(adminRepo, auditRepo, logger)
	guard := access.NewGuard(adminRepo, entRepo, permRepo, access.Toggles{
		UserCommands:    cfg.EnableUserCommands,
		ChannelCommands: cfg.EnableChannelCommands,
	}, logger)

	// === Resources ===
	probes := deps.Probes
	actionRunner := deps.Runner
	if probes == nil || actionRunner == nil {
		scripts := runner.FromFeatures(deps.Features, cfg.ScriptsDir, logger)
		if probes == nil {
			probes = &resource.Probes{Host: scripts.HostProbe(), Server: scripts.ServerProbe()}
		}
		if actionRunner == nil {
			actionRunner = scripts
		}
	}
	reconciler := resource.NewReconciler(resourceRepo, *probes, fanout, auditRepo, cfg.ProbeTimeout, logger)
	states := resource.NewStateGuard(resourceRepo)
	actions := resource.NewActions(actionRunner, reconciler, states, resource.NewCooldowns(), notifier, logger)

	dispatcher := dispatch.NewDispatcher(registry, guard, states, actions, notifier, logger)

	a := &App{
		Services: Services{
			Entitlements: entSvc,
			Permissions:  permSvc,
			Admins:       adminSvc,
			Guard:        guard,
			States:       states,
			Actions:      actions,
			Dispatcher:   dispatcher,
			Fanout:       fanout,
			Audit:        auditRepo,
		},
		Registry:   registry,
		Reconciler: reconciler,
		features:   deps.Features,
		logger:     logger.With("component", "app"),
	}

	if err := a.register(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// register records every group's command tree and watches every resource.
func (a *App) register(ctx context.Context) error {
	for _, g := range a.Registry.Groups() {
		if err := a.Services.Entitlements.RegisterGroup(ctx, g, feature.CommandNames(g)); err != nil {
			return fmt.Errorf("register group %q: %w", g.GroupName(), err)
		}
	}
	for _, g := range a.Registry.Stateful() {
		if err := a.Reconciler.Watch(ctx, g); err != nil {
			return err
		}
	}
	a.logger.Info("feature groups registered",
		"groups", len(a.Registry.Groups()), "resources", len(a.Registry.Stateful()))
	return nil
}
