package ratelimit

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig is the limit applied to one route.
type EndpointConfig struct {
	Method string        // HTTP method
	Path   string        // exact path, or a prefix when it ends in "/"
	Limit  int           // requests per Window; 0 or less is unlimited
	Window time.Duration // refill period for Limit
	Burst  int           // defaults to Limit
}

// Environment variables read by LoadConfig.
const (
	EnvEnabled         = "RATE_LIMIT_ENABLED"
	EnvDefaultLimit    = "RATE_LIMIT_DEFAULT_LIMIT"
	EnvDefaultWindow   = "RATE_LIMIT_DEFAULT_WINDOW"
	EnvCleanupInterval = "RATE_LIMIT_CLEANUP_INTERVAL"
	EnvIdleTTL         = "RATE_LIMIT_IDLE_TTL"
	EnvWhitelist       = "RATE_LIMIT_WHITELIST"
	EnvBlacklist       = "RATE_LIMIT_BLACKLIST"
	EnvRefinePerHour   = "RATE_LIMIT_REFINE_PER_HOUR"
)

// DefaultRefinePerHour is the refinement allowance per client when
// RATE_LIMIT_REFINE_PER_HOUR is unset.
const DefaultRefinePerHour = 20

// LoadConfig reads the limiter configuration from the process environment.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(os.Getenv)
}

// LoadConfigFrom reads the limiter configuration through getenv. Malformed
// values are reported instead of falling back to defaults.
func LoadConfigFrom(getenv func(string) string) (*Config, error) {
	r := &envReader{getenv: getenv}

	cfg := &Config{Enabled: r.bool(EnvEnabled, true)}
	if cfg.Enabled {
		cfg.DefaultLimit = r.int(EnvDefaultLimit, 1000)
		cfg.DefaultWindow = r.duration(EnvDefaultWindow, time.Minute)
		cfg.CleanupInterval = r.duration(EnvCleanupInterval, 5*time.Minute)
		cfg.IdleTTL = r.duration(EnvIdleTTL, time.Hour)
		cfg.Whitelist = r.set(EnvWhitelist)
		cfg.Blacklist = r.set(EnvBlacklist)
		cfg.EndpointConfigs = DefaultEndpointConfigs(r.int(EnvRefinePerHour, DefaultRefinePerHour))
	}

	if err := errors.Join(r.errs...); err != nil {
		return nil, fmt.Errorf("invalid rate limit configuration: %w", err)
	}
	return cfg, nil
}

// DefaultEndpointConfigs returns the per-route limits. Routes are priced by
// how many LLM calls one request can make: a refinement runs the whole loop,
// a suggestion batch a few validation rounds and a score a single evaluation.
func DefaultEndpointConfigs(refinePerHour int) []EndpointConfig {
	suggestPerHour := refinePerHour * 3 / 2
	return []EndpointConfig{
		{Method: "POST", Path: "/refine", Limit: refinePerHour, Window: time.Hour, Burst: burstFor(refinePerHour)},
		{Method: "POST", Path: "/refine/stream", Limit: refinePerHour, Window: time.Hour, Burst: burstFor(refinePerHour)},
		{Method: "POST", Path: "/suggest", Limit: suggestPerHour, Window: time.Hour, Burst: burstFor(suggestPerHour)},
		{Method: "POST", Path: "/score", Limit: 60, Window: time.Minute, Burst: 10},
		// Reads fall through to the default limit; /health and /metrics are exempt.
	}
}

// burstFor allows a sixth of the hourly allowance at once.
func burstFor(perHour int) int {
	return max(perHour/6, 1)
}

// envReader collects parse errors so every bad variable is reported at once.
type envReader struct {
	getenv func(string) string
	errs   []error
}

func (r *envReader) parse(key string, fn func(string) error) {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return
	}
	if err := fn(v); err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s=%q: %w", key, v, err))
	}
}

func (r *envReader) int(key string, def int) int {
	out := def
	r.parse(key, func(v string) error {
		n, err := strconv.Atoi(v)
		if err == nil && n < 0 {
			err = errors.New("must not be negative")
		}
		if err == nil {
			out = n
		}
		return err
	})
	return out
}

func (r *envReader) bool(key string, def bool) bool {
	out := def
	r.parse(key, func(v string) error {
		b, err := strconv.ParseBool(v)
		if err == nil {
			out = b
		}
		return err
	})
	return out
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	out := def
	r.parse(key, func(v string) error {
		d, err := time.ParseDuration(v)
		if err == nil {
			out = d
		}
		return err
	})
	return out
}

// set parses a comma-separated list of client IDs.
func (r *envReader) set(key string) map[string]bool {
	out := make(map[string]bool)
	for _, item := range strings.Split(r.getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out[item] = true
		}
	}
	return out
}
