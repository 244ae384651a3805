package constants

import "time"

const (
	// Profile name validation constants
	MinProfileNameLength = 1
	MaxProfileNameLength = 32

	// Peer naming constants
	PeerIDSeparator = "-"
	PeerDirPrefix   = "peer_"

	// Session constants
	SessionTTL             = 10 * time.Minute
	SessionCleanupInterval = 5 * time.Minute

	// Peer tool constants
	DefaultPeerTimeout = 30 * time.Second
	DefaultPeerTool    = "docker exec wireguard /app/manage-peer"

	// Webhook constants
	WebhookTimeout       = 10 * time.Second
	WebhookRetryCount    = 2
	WebhookRetryWaitTime = 2 * time.Second

	// Sweep constants
	DefaultSweepSchedule = "30 3 * * *"

	// Formatting constants
	TimestampFormat = "2006-01-02 15:04:05"
)
