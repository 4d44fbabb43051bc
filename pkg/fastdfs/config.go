package fastdfs

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fastdfs-go/fastdfs/pkg/logging"
)

// Config holds the immutable, validated configuration for a Client. Once
// passed to New, a Config is not mutated in place — Reconfigure takes a
// fresh Config and applies only the deltas the pool can safely absorb.
type Config struct {
	TrackerEndpoints []string `json:"tracker_endpoints"`

	MaxConns         int `json:"max_conns"`
	ConnectTimeoutMs int `json:"connect_timeout_ms"`
	NetworkTimeoutMs int `json:"network_timeout_ms"`
	IdleTimeoutMs    int `json:"idle_timeout_ms"`
	RetryCount       int `json:"retry_count"`

	// DiscoveryCachePath, if non-empty, enables the badger-backed discovery
	// hint cache at this directory. Empty disables it entirely.
	DiscoveryCachePath string `json:"discovery_cache_path"`

	ExistenceCacheCapacity uint    `json:"existence_cache_capacity"`
	ExistenceCacheFPRate   float64 `json:"existence_cache_fp_rate"`

	ConfigWatchDebounceMs int `json:"config_watch_debounce_ms"`

	// Logger receives connection, pool, and retry lifecycle events. A nil
	// Logger is replaced by a default info-level stdout logger at New.
	Logger *logging.Logger `json:"-"`
}

// DefaultConfig returns a Config with every optional field at its documented
// default. TrackerEndpoints is left empty — a caller must always supply it.
func DefaultConfig() *Config {
	return &Config{
		MaxConns:               10,
		ConnectTimeoutMs:       5000,
		NetworkTimeoutMs:       30000,
		IdleTimeoutMs:          60000,
		RetryCount:             3,
		DiscoveryCachePath:     "",
		ExistenceCacheCapacity: 10000,
		ExistenceCacheFPRate:   0.01,
		ConfigWatchDebounceMs:  100,
	}
}

// LoadConfig reads a JSON configuration file, layering it over
// DefaultConfig, applies FASTDFS_* environment overrides, validates the
// result, and returns it. A missing file is not itself an error — the
// defaults (plus any environment overrides) are used instead, and they still
// have to pass Validate, which fails unless FASTDFS_TRACKER_ENDPOINTS
// supplies a tracker endpoint.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnvironmentOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	if val := os.Getenv("FASTDFS_TRACKER_ENDPOINTS"); val != "" {
		c.TrackerEndpoints = strings.Split(val, ",")
	}
	if val := os.Getenv("FASTDFS_MAX_CONNS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.MaxConns = n
		}
	}
	if val := os.Getenv("FASTDFS_CONNECT_TIMEOUT_MS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.ConnectTimeoutMs = n
		}
	}
	if val := os.Getenv("FASTDFS_NETWORK_TIMEOUT_MS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.NetworkTimeoutMs = n
		}
	}
	if val := os.Getenv("FASTDFS_IDLE_TIMEOUT_MS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.IdleTimeoutMs = n
		}
	}
	if val := os.Getenv("FASTDFS_RETRY_COUNT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.RetryCount = n
		}
	}
	if val := os.Getenv("FASTDFS_DISCOVERY_CACHE_PATH"); val != "" {
		c.DiscoveryCachePath = val
	}
}

// Validate checks every field required before a Client can be built from c.
// It never mutates c.
func (c *Config) Validate() error {
	if len(c.TrackerEndpoints) == 0 {
		return fmt.Errorf("tracker_endpoints must contain at least one endpoint")
	}
	for _, ep := range c.TrackerEndpoints {
		if ep == "" || !strings.Contains(ep, ":") {
			return fmt.Errorf("invalid tracker endpoint %q: must be host:port", ep)
		}
	}
	if c.MaxConns <= 0 {
		return fmt.Errorf("max_conns must be positive")
	}
	if c.ConnectTimeoutMs <= 0 {
		return fmt.Errorf("connect_timeout_ms must be positive")
	}
	if c.NetworkTimeoutMs <= 0 {
		return fmt.Errorf("network_timeout_ms must be positive")
	}
	if c.IdleTimeoutMs <= 0 {
		return fmt.Errorf("idle_timeout_ms must be positive")
	}
	if c.RetryCount <= 0 {
		return fmt.Errorf("retry_count must be positive")
	}
	if c.ExistenceCacheCapacity == 0 {
		return fmt.Errorf("existence_cache_capacity must be positive")
	}
	if c.ExistenceCacheFPRate <= 0 || c.ExistenceCacheFPRate >= 1 {
		return fmt.Errorf("existence_cache_fp_rate must be in (0, 1)")
	}
	if c.ConfigWatchDebounceMs < 0 {
		return fmt.Errorf("config_watch_debounce_ms must not be negative")
	}
	return nil
}

func (c *Config) connectTimeout() time.Duration { return time.Duration(c.ConnectTimeoutMs) * time.Millisecond }
func (c *Config) networkTimeout() time.Duration { return time.Duration(c.NetworkTimeoutMs) * time.Millisecond }
func (c *Config) idleTimeout() time.Duration    { return time.Duration(c.IdleTimeoutMs) * time.Millisecond }

// SaveToFile writes c as indented JSON, matching LoadConfig's format.
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
