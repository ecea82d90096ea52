package config

import "time"

const (
	DefaultHost             = "0.0.0.0"
	DefaultPort             = 4000
	DefaultDBDriver         = "postgres"
	DefaultJWTTTLMinutes    = 60
	DefaultHeartbeatTimeout = 60 * time.Second
	DefaultSendBuffer       = 256
	DefaultMaxMessageBytes  = 4096
	DefaultWriteTimeout     = 10 * time.Second
	DefaultRetentionDays    = 90
	DefaultCleanupInterval  = 6 * time.Hour
)
