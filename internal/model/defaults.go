package model

import "time"

// Shared defaults used by both the client and stub binaries.
const (
	DefaultAPIURL          = "http://127.0.0.1:8000"
	DefaultTickInterval    = 1 * time.Second
	DefaultRequestTimeout  = 15 * time.Second
	DefaultRefreshCooldown = 30 * time.Minute
	DefaultCacheExpiry     = 24 * time.Hour
	DefaultTimezone        = "America/New_York"
)
