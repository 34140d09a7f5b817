// Package runner executes the probe and action scripts declared in the
// features file.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"alpine-bot/internal/config"
	"alpine-bot/internal/domain"
)

// Compile-time check.
var _ domain.ActionRunner = (*Runner)(nil)

// Scripts holds the argv of every script of one resource.
type Scripts struct {
	Host    []string
	Server  []string
	Actions map[domain.Action][]string
}

// Runner runs scripts as child processes. Relative script paths resolve
// against dir, which is also the working directory of every script.
type Runner struct {
	dir     string
	scripts map[string]Scripts
	logger  *slog.Logger
}

// New creates a Runner for the given resources.
func New(dir string, scripts map[string]Scripts, logger *slog.Logger) *Runner {
	return &Runner{
		dir:     dir,
		scripts: scripts,
		logger:  logger.With("component", "runner"),
	}
}

// FromFeatures collects the scripts of every resource in a features file.
func FromFeatures(f *config.Features, dir string, logger *slog.Logger) *Runner {
	scripts := make(map[string]Scripts)
	for _, g := range f.Groups {
		if g.Resource == nil {
			continue
		}
		s := Scripts{
			Host:    g.Resource.Probes.Host,
			Server:  g.Resource.Probes.Server,
			Actions: make(map[domain.Action][]string, len(g.Resource.Actions)),
		}
		for name, argv := range g.Resource.Actions {
			if action, err := domain.ParseAction(name); err == nil {
				s.Actions[action] = argv
			}
		}
		scripts[g.Name] = s
	}
	return New(dir, scripts, logger)
}

// HostProbe checks whether the host of a resource answers.
func (r *Runner) HostProbe() domain.Probe {
	return domain.ProbeFunc(func(ctx context.Context, resource string) bool {
		return r.probe(ctx, resource, "host", r.scripts[resource].Host)
	})
}

// ServerProbe checks whether the server process of a resource answers.
func (r *Runner) ServerProbe() domain.Probe {
	return domain.ProbeFunc(func(ctx context.Context, resource string) bool {
		return r.probe(ctx, resource, "server", r.scripts[resource].Server)
	})
}

// probe runs argv to completion; exit status 0 means up.
func (r *Runner) probe(ctx context.Context, resource, target string, argv []string) bool {
	if len(argv) == 0 {
		return false
	}
	cmd := exec.CommandContext(ctx, r.resolve(argv[0]), argv[1:]...) //nolint:gosec // argv comes from the features file
	cmd.Dir = r.dir
	err := cmd.Run()
	if err == nil {
		return true
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		r.logger.Warn("probe did not run", "resource", resource, "target", target, "error", err)
	}
	return false
}

// Run launches the script of an action and returns without waiting for it.
// The child outlives ctx; it is reaped in the background.
func (r *Runner) Run(ctx context.Context, resource string, action domain.Action) error {
	argv := r.scripts[resource].Actions[action]
	if len(argv) == 0 {
		return &domain.ResourceError{Resource: resource, Message: "no " + string(action) + " script", Launch: true}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd := exec.Command(r.resolve(argv[0]), argv[1:]...) //nolint:gosec // argv comes from the features file
	cmd.Dir = r.dir
	if err := cmd.Start(); err != nil {
		return err
	}
	pid := cmd.Process.Pid
	r.logger.Info("script started", "resource", resource, "action", action, "pid", pid)

	go func() {
		if err := cmd.Wait(); err != nil {
			r.logger.Warn("script failed", "resource", resource, "action", action, "pid", pid, "error", err)
			return
		}
		r.logger.Debug("script finished", "resource", resource, "action", action, "pid", pid)
	}()
	return nil
}

func (r *Runner) resolve(name string) string {
	if r.dir == "" || filepath.IsAbs(name) || !strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	return filepath.Join(r.dir, name)
}
