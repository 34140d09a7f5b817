package runner

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpine-bot/internal/config"
	"alpine-bot/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755)) //nolint:gosec // test script
}

func TestRunner_Probes(t *testing.T) {
	r := New("", map[string]Scripts{
		"mc": {
			Host:   []string{"sh", "-c", "exit 0"},
			Server: []string{"sh", "-c", "exit 3"},
		},
	}, discardLogger())
	ctx := context.Background()

	assert.True(t, r.HostProbe().Probe(ctx, "mc"))
	assert.False(t, r.ServerProbe().Probe(ctx, "mc"))
	assert.False(t, r.HostProbe().Probe(ctx, "unknown"))
}

func TestRunner_ProbeTimeout(t *testing.T) {
	r := New("", map[string]Scripts{
		"mc": {Host: []string{"sh", "-c", "sleep 5"}},
	}, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	assert.False(t, r.HostProbe().Probe(ctx, "mc"))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRunner_RelativeScripts(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "scripts/ping.sh", "exit 0")
	writeScript(t, dir, "scripts/start.sh", "touch started")

	r := New(dir, map[string]Scripts{
		"mc": {
			Host:    []string{"scripts/ping.sh"},
			Actions: map[domain.Action][]string{domain.ActionStart: {"scripts/start.sh"}},
		},
	}, discardLogger())
	ctx := context.Background()

	assert.True(t, r.HostProbe().Probe(ctx, "mc"))
	require.NoError(t, r.Run(ctx, "mc", domain.ActionStart))
	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "started"))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestRunner_RunReturnsBeforeScriptEnds(t *testing.T) {
	r := New("", map[string]Scripts{
		"mc": {Actions: map[domain.Action][]string{domain.ActionStop: {"sh", "-c", "sleep 2"}}},
	}, discardLogger())

	start := time.Now()
	require.NoError(t, r.Run(context.Background(), "mc", domain.ActionStop))
	assert.Less(t, time.Since(start), time.Second)
}

func TestRunner_MissingScript(t *testing.T) {
	r := New("", map[string]Scripts{"mc": {}}, discardLogger())

	err := r.Run(context.Background(), "mc", domain.ActionWake)
	var rerr *domain.ResourceError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "mc", rerr.Resource)
	assert.True(t, rerr.Launch)

	err = New("", map[string]Scripts{
		"mc": {Actions: map[domain.Action][]string{domain.ActionWake: {"/nonexistent/wake"}}},
	}, discardLogger()).Run(context.Background(), "mc", domain.ActionWake)
	require.Error(t, err)
}

func TestFromFeatures(t *testing.T) {
	f, err := config.ParseFeatures([]byte(`
groups:
  - name: mc
    kind: stateful
    commands:
      - name: start
        action: start
    resource:
      probes:
        host: [sh, -c, "exit 0"]
      actions:
        start: [sh, -c, "true"]
  - name: yt
    commands:
      - name: play
`))
	require.NoError(t, err)

	r := FromFeatures(f, "", discardLogger())
	require.Len(t, r.scripts, 1)
	assert.Equal(t, []string{"sh", "-c", "true"}, r.scripts["mc"].Actions[domain.ActionStart])
	assert.True(t, r.HostProbe().Probe(context.Background(), "mc"))
}
