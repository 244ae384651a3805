package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"wg-access-bot/internal/constants"
)

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()

	// Set default values
	v.SetDefault("log_level", "info")

	// Define environment variables
	v.BindEnv("WG_BOT_TOKEN")
	v.BindEnv("WG_DATABASE_URL")
	v.BindEnv("WG_PEER_TOOL")
	v.BindEnv("WG_CONFIG_ROOT")
	v.BindEnv("WG_PEER_TIMEOUT")
	v.BindEnv("WG_REQUIRE_TOKEN")
	v.BindEnv("WG_SWEEP_SCHEDULE")
	v.BindEnv("WG_COMPOSE_FILE")
	v.BindEnv("WG_HEALTH_ADDR")
	v.BindEnv("WG_OPS_WEBHOOK_URL")

	cfg := &Config{
		LogLevel: v.GetString("log_level"),
		Telegram: TelegramConfig{
			Token: strings.TrimSpace(v.GetString("WG_BOT_TOKEN")),
		},
		Database: DatabaseConfig{
			URL: strings.TrimSpace(v.GetString("WG_DATABASE_URL")),
		},
		Policy: PolicyConfig{
			RequireToken:  v.GetBool("WG_REQUIRE_TOKEN"),
			SweepSchedule: strings.TrimSpace(v.GetString("WG_SWEEP_SCHEDULE")),
		},
		Lifecycle: LifecycleConfig{
			ComposeFile: strings.TrimSpace(v.GetString("WG_COMPOSE_FILE")),
		},
		Ops: OpsConfig{
			HealthAddr: strings.TrimSpace(v.GetString("WG_HEALTH_ADDR")),
			WebhookURL: strings.TrimSpace(v.GetString("WG_OPS_WEBHOOK_URL")),
		},
	}

	// Parse peer tool command line
	tool := strings.TrimSpace(v.GetString("WG_PEER_TOOL"))
	if tool == "" {
		tool = constants.DefaultPeerTool
	}
	cfg.WireGuard.Tool = strings.Fields(tool)

	// Resolve artifact directory
	configRoot := strings.TrimSpace(v.GetString("WG_CONFIG_ROOT"))
	if configRoot == "" {
		configRoot = "~/wg_config"
	}
	expanded, err := expandHome(configRoot)
	if err != nil {
		return nil, err
	}
	cfg.WireGuard.ConfigRoot = expanded

	// Parse tool timeout
	cfg.WireGuard.Timeout = constants.DefaultPeerTimeout
	if raw := strings.TrimSpace(v.GetString("WG_PEER_TIMEOUT")); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, errors.New("WG_PEER_TIMEOUT must be a duration, e.g. 30s")
		}
		cfg.WireGuard.Timeout = timeout
	}

	if cfg.Policy.SweepSchedule == "" {
		cfg.Policy.SweepSchedule = constants.DefaultSweepSchedule
	}

	// Validate configuration
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Telegram.Token == "" {
		return errors.New("WG_BOT_TOKEN is required")
	}

	if cfg.Database.URL == "" {
		return errors.New("WG_DATABASE_URL is required")
	}

	if len(cfg.WireGuard.Tool) == 0 {
		return errors.New("peer tool command is required")
	}

	if cfg.WireGuard.Timeout <= 0 {
		return errors.New("peer tool timeout must be positive")
	}

	return nil
}

// expandHome resolves a leading ~ against the current user's home directory
func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/")), nil
	}
	return path, nil
}
