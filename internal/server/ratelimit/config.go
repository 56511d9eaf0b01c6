package ratelimit

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Env variable names read by LoadConfig.
const (
	EnvEnabled         = "RATE_LIMIT_ENABLED"
	EnvDefaultLimit    = "RATE_LIMIT_DEFAULT_LIMIT"
	EnvDefaultWindow   = "RATE_LIMIT_DEFAULT_WINDOW"
	EnvCleanupInterval = "RATE_LIMIT_CLEANUP_INTERVAL"
	EnvPerMinute       = "RATE_LIMIT_PER_MINUTE"
	EnvBurst           = "RATE_LIMIT_BURST"
	EnvExempt          = "RATE_LIMIT_EXEMPT"
)

// EndpointConfig limits one path, or with Prefix one path and everything under it.
// All paths covered by a config share one bucket per client.
type EndpointConfig struct {
	Path   string
	Prefix bool
	Method string
	Limit  int // requests per Window
	Window time.Duration
	Burst  int // defaults to Limit
}

// LoadConfig reads rate limit settings from the process environment.
func LoadConfig() *Config {
	return LoadConfigFrom(os.LookupEnv)
}

// LoadConfigFrom reads rate limit settings through lookup, usually os.LookupEnv.
// Unset or malformed values keep their defaults; malformed ones are reported
// in Config.Warnings.
func LoadConfigFrom(lookup func(string) (string, bool)) *Config {
	env := envReader{lookup: lookup}

	cfg := &Config{
		Enabled:         env.bool(EnvEnabled, true),
		DefaultLimit:    env.int(EnvDefaultLimit, 600),
		DefaultWindow:   env.duration(EnvDefaultWindow, time.Minute),
		CleanupInterval: env.duration(EnvCleanupInterval, 5*time.Minute),
		Exempt:          env.set(EnvExempt),
		EndpointConfigs: DefaultEndpointConfigs(env.int(EnvPerMinute, 30), env.int(EnvBurst, 5)),
	}
	cfg.Warnings = env.warnings
	return cfg
}

// DefaultEndpointConfigs puts /collection and every export under it in one
// bucket; each of those requests costs two calls to the council's site.
func DefaultEndpointConfigs(perMinute, burst int) []EndpointConfig {
	return []EndpointConfig{
		{Path: "/collection", Prefix: true, Method: http.MethodGet, Limit: perMinute, Window: time.Minute, Burst: burst},
	}
}

type envReader struct {
	lookup   func(string) (string, bool)
	warnings []string
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) warn(key, value string, err error) {
	e.warnings = append(e.warnings, fmt.Sprintf("invalid %s %q: %v", key, value, err))
}

func (e *envReader) int(key string, def int) int {
	v, ok := e.get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.warn(key, v, err)
		return def
	}
	return n
}

func (e *envReader) bool(key string, def bool) bool {
	v, ok := e.get(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.warn(key, v, err)
		return def
	}
	return b
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v, ok := e.get(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.warn(key, v, err)
		return def
	}
	return d
}

// set splits a comma-separated list of client addresses.
func (e *envReader) set(key string) map[string]bool {
	out := make(map[string]bool)
	v, _ := e.get(key)
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out[item] = true
		}
	}
	return out
}
