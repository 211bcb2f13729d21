package config

import (
    "time"
)

// CacheConfig tunes the response cache in front of the driver console's
// aggregated GET endpoint.  Every tablet in the fleet polls the same route, so
// a few seconds of shared caching collapses the poll storm into one workbook
// read.  TTL must stay short: a boarding recorded on one tablet should show on
// the others within a poll cycle.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:      getenv("CACHE_ENABLED", "true") == "true",
        TTL:          parseDur(getenv("CACHE_TTL", "3s")),
        Prefix:       getenv("CACHE_PREFIX", "cache"),
        MaxBodyBytes: atoi(getenv("CACHE_MAX_BODY_BYTES", "1048576")),
    }
    if cfg.TTL <= 0 {
        cfg.TTL = 3 * time.Second
    }
    return cfg
}
