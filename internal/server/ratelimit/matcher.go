package ratelimit

import (
	"net/http"
	"strings"
)

// MatchEndpoint returns the config covering path and method, or nil. Exact
// paths win over prefix configs; a prefix config covers its own path and any
// path below it, so "/collection" covers "/collection/ical" but not "/collections".
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	// Health checks and CORS preflights are never limited
	if (path == "/health" && method == http.MethodGet) || method == http.MethodOptions {
		return &EndpointConfig{}
	}

	for i := range configs {
		config := &configs[i]
		if config.Method == method && config.Path == path {
			return config
		}
	}

	for i := range configs {
		config := &configs[i]
		if config.Method == method && config.Prefix && strings.HasPrefix(path, strings.TrimSuffix(config.Path, "/")+"/") {
			return config
		}
	}

	return nil
}
