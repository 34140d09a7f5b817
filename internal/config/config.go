// Package config handles bot configuration: environment settings and the
// YAML feature definitions.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the process-level settings of the bot daemon and admin CLI.
type Config struct {
	DBPath       string // path to the SQLite store (default "alpine-bot.sqlite")
	FeaturesFile string // path to the YAML feature definitions (default "features.yaml")
	ListenAddr   string // ops HTTP listen address (default ":9090")
	LogLevel     string // log level: debug, info, warn, error (default "info")
	Env          string // environment: "development" (default) or "production"
	ScriptsDir   string // base directory for relative probe/action scripts

	// Feature toggles checked before any entitlement lookup.
	EnableUserCommands    bool
	EnableChannelCommands bool

	ReconcileInterval time.Duration // default probe interval for resources without their own
	ProbeTimeout      time.Duration // upper bound on one probe invocation (default 5s)
	NotifyConcurrency int           // max parallel deliveries per fanout (default 8)

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the bot is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		DBPath:                os.Getenv("BOT_DB_PATH"),
		FeaturesFile:          os.Getenv("BOT_FEATURES_FILE"),
		ListenAddr:            os.Getenv("LISTEN_ADDR"),
		LogLevel:              os.Getenv("LOG_LEVEL"),
		Env:                   os.Getenv("ENV"),
		ScriptsDir:            os.Getenv("SCRIPTS_DIR"),
		EnableUserCommands:    parseBoolEnvDefault("ENABLE_USER_COMMANDS", true),
		EnableChannelCommands: parseBoolEnvDefault("ENABLE_CHANNEL_COMMANDS", true),
	}

	var err error
	if cfg.ReconcileInterval, err = parseDurationEnv("RECONCILE_INTERVAL"); err != nil {
		return nil, err
	}
	if cfg.ProbeTimeout, err = parseDurationEnv("PROBE_TIMEOUT"); err != nil {
		return nil, err
	}
	if v := os.Getenv("NOTIFY_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("NOTIFY_CONCURRENCY must be a positive integer, got %q", v)
		}
		cfg.NotifyConcurrency = n
	}

	// Defaults
	if cfg.DBPath == "" {
		cfg.DBPath = "alpine-bot.sqlite"
	}
	if cfg.FeaturesFile == "" {
		cfg.FeaturesFile = "features.yaml"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":9090"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.ReconcileInterval == 0 {
		cfg.ReconcileInterval = 30 * time.Second
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	if cfg.NotifyConcurrency == 0 {
		cfg.NotifyConcurrency = 8
	}

	if !cfg.EnableUserCommands && !cfg.EnableChannelCommands {
		cfg.Warnings = append(cfg.Warnings, "both user and channel commands are disabled; only admins can run commands")
	}
	if cfg.ReconcileInterval < time.Second {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("RECONCILE_INTERVAL %s is very short", cfg.ReconcileInterval))
	}

	// Production mode: an in-memory or relative store is fatal.
	if cfg.IsProduction() {
		if strings.HasPrefix(cfg.DBPath, ":memory:") {
			return nil, fmt.Errorf("BOT_DB_PATH must point to a file in production (ENV=production)")
		}
	}

	return cfg, nil
}

func parseDurationEnv(key string) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = stripQuotes(strings.TrimSpace(value))
		// Env vars take precedence over the file.
		if _, set := os.LookupEnv(key); !set {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
