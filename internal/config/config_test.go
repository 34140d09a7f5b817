package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearBotEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"BOT_DB_PATH", "BOT_FEATURES_FILE", "LISTEN_ADDR", "LOG_LEVEL", "ENV", "SCRIPTS_DIR",
		"ENABLE_USER_COMMANDS", "ENABLE_CHANNEL_COMMANDS", "RECONCILE_INTERVAL",
		"PROBE_TIMEOUT", "NOTIFY_CONCURRENCY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearBotEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "alpine-bot.sqlite", cfg.DBPath)
	assert.Equal(t, "features.yaml", cfg.FeaturesFile)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.EnableUserCommands)
	assert.True(t, cfg.EnableChannelCommands)
	assert.Equal(t, 30*time.Second, cfg.ReconcileInterval)
	assert.Equal(t, 5*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 8, cfg.NotifyConcurrency)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearBotEnv(t)
	t.Setenv("BOT_DB_PATH", "/tmp/bot.sqlite")
	t.Setenv("BOT_FEATURES_FILE", "/etc/bot/features.yaml")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ENABLE_CHANNEL_COMMANDS", "off")
	t.Setenv("RECONCILE_INTERVAL", "45s")
	t.Setenv("PROBE_TIMEOUT", "2s")
	t.Setenv("NOTIFY_CONCURRENCY", "3")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/bot.sqlite", cfg.DBPath)
	assert.Equal(t, "/etc/bot/features.yaml", cfg.FeaturesFile)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.True(t, cfg.EnableUserCommands)
	assert.False(t, cfg.EnableChannelCommands)
	assert.Equal(t, 45*time.Second, cfg.ReconcileInterval)
	assert.Equal(t, 2*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 3, cfg.NotifyConcurrency)
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"RECONCILE_INTERVAL", "soon"},
		{"RECONCILE_INTERVAL", "-5s"},
		{"PROBE_TIMEOUT", "0s"},
		{"NOTIFY_CONCURRENCY", "zero"},
		{"NOTIFY_CONCURRENCY", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearBotEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoadFromEnv_WarnsWhenAllCommandsDisabled(t *testing.T) {
	clearBotEnv(t)
	t.Setenv("ENABLE_USER_COMMANDS", "false")
	t.Setenv("ENABLE_CHANNEL_COMMANDS", "false")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "disabled")
}

func TestLoadFromEnv_ProductionRejectsMemoryDB(t *testing.T) {
	clearBotEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("BOT_DB_PATH", ":memory:")

	_, err := LoadFromEnv()
	require.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		cfg := &Config{LogLevel: in}
		assert.Equal(t, want, cfg.SlogLevel(), in)
	}
}

func TestLoadDotEnv_FileNotFound(t *testing.T) {
	err := LoadDotEnv("/nonexistent/.env")
	assert.NoError(t, err)
}

func TestLoadDotEnv_ParsesKeyValue(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile,
		[]byte("# comment\n\nexport BOT_TEST_KEY=\"test value\"\nBOT_TEST_OTHER='x'\n"), 0o644))
	t.Cleanup(func() {
		_ = os.Unsetenv("BOT_TEST_KEY")
		_ = os.Unsetenv("BOT_TEST_OTHER")
	})

	require.NoError(t, LoadDotEnv(envFile))

	assert.Equal(t, "test value", os.Getenv("BOT_TEST_KEY"))
	assert.Equal(t, "x", os.Getenv("BOT_TEST_OTHER"))
}

func TestLoadDotEnv_EnvVarPrecedence(t *testing.T) {
	t.Setenv("BOT_TEST_PRECEDENCE", "from_env")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("BOT_TEST_PRECEDENCE=from_file\n"), 0o644))

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "from_env", os.Getenv("BOT_TEST_PRECEDENCE"))
}
