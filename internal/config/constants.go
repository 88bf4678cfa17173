package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const (
	DefaultSweepInterval = 30 * time.Second
	SweepTimeout         = 30 * time.Second
)

// Realtime delivery
const (
	BroadcastSendTimeout = 2 * time.Second
	HeartbeatInterval    = 30 * time.Second
	WebSocketReadLimit   = 64 << 10
)

// Message listing
const MessageListLimit = 100

// Rate limiting per client IP
const (
	RateLimitWindow             = time.Minute
	SessionCreateLimitPerMin    = 20
	MessageSendLimitPerMin      = 120
	SecretUpgradeAttemptsPerMin = 5
)
