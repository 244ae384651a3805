package config

import "time"

// Config represents the application configuration
type Config struct {
	Telegram  TelegramConfig
	Database  DatabaseConfig
	WireGuard WireGuardConfig
	Policy    PolicyConfig
	Lifecycle LifecycleConfig
	Ops       OpsConfig
	LogLevel  string
}

// TelegramConfig holds the Telegram bot configuration
type TelegramConfig struct {
	Token string
}

// DatabaseConfig holds the Postgres connection configuration
type DatabaseConfig struct {
	URL string
}

// WireGuardConfig holds the configuration for the external peer
// management tool and its artifact directory
type WireGuardConfig struct {
	// Tool is the peer management command, possibly with leading
	// arguments, e.g. "docker exec wireguard /app/manage-peer"
	Tool []string
	// ConfigRoot is the directory where the tool writes peer artifacts
	ConfigRoot string
	// Timeout bounds a single tool invocation
	Timeout time.Duration
}

// PolicyConfig holds access policy settings
type PolicyConfig struct {
	// RequireToken gates profile creation on a linked token with a
	// positive balance
	RequireToken bool
	// SweepSchedule is the cron schedule for the enforcement sweep
	SweepSchedule string
}

// LifecycleConfig holds the container lifecycle settings
type LifecycleConfig struct {
	// ComposeFile is the docker compose file managed around the bot's
	// lifetime; empty disables lifecycle management
	ComposeFile string
}

// OpsConfig holds the operational surface settings
type OpsConfig struct {
	// HealthAddr is the listen address of the health server; empty
	// disables it
	HealthAddr string
	// WebhookURL receives JSON events on provisioning failures; empty
	// disables notifications
	WebhookURL string
}
