package config

import (
    "time"
)

// RateLimitConfig tunes the fixed-window limiter guarding the booking ops
// endpoint.  Limit requests per Window per client IP; the limiter is a
// courtesy brake on misbehaving clients, not a security boundary.
type RateLimitConfig struct {
    Enabled bool
    Limit   int
    Window  time.Duration
    Prefix  string
}

func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled: getenv("RATE_LIMIT_ENABLED", "true") == "true",
        Limit:   atoi(getenv("RATE_LIMIT_LIMIT", "30")),
        Window:  parseDur(getenv("RATE_LIMIT_WINDOW", "1m")),
        Prefix:  getenv("RATE_LIMIT_PREFIX", "rl"),
    }
    if cfg.Limit < 1 { cfg.Limit = 1 }
    if cfg.Window <= 0 { cfg.Window = time.Minute }
    return cfg
}
