// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/collection-day/internal/types"
)

// Defaults used when neither file, environment nor flags set a value.
const (
	DefaultPort           = 8080
	DefaultRequestTimeout = 30 * time.Second
)

// Duration is a time.Duration written as "30s" in config files.
type Duration time.Duration

// UnmarshalText parses a Go duration string, or a bare number of seconds.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := parseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalJSON accepts a duration string or a JSON number of seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return d.UnmarshalText([]byte(s))
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid duration %s: %w", raw, err)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

// UnmarshalYAML accepts the same forms as UnmarshalText.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	return d.UnmarshalText([]byte(node.Value))
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

// Config holds the service defaults. It can be loaded from a JSON or YAML file
// and is then overridden by environment variables and CLI flags.
type Config struct {
	// Default lookup used by the parameterless endpoint
	Council         string `json:"council,omitempty" yaml:"council,omitempty" validate:"max=100"`
	StreetAddress   string `json:"street_address,omitempty" yaml:"street_address,omitempty" validate:"max=200"`
	CollectionTypes string `json:"collection_types,omitempty" yaml:"collection_types,omitempty"`

	// Server
	Port           int      `json:"port,omitempty" yaml:"port,omitempty" validate:"min=0,max=65535"`
	RequestTimeout Duration `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty" validate:"min=0"`

	// Fetching
	// UseBrowser re-fetches a collection page in headless Chrome when the
	// plain HTTP copy has no collection lines. That is a second request to
	// the council's site for the same page.
	UseBrowser bool   `json:"use_browser,omitempty" yaml:"use_browser,omitempty"`
	UserAgent  string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:           DefaultPort,
		RequestTimeout: Duration(DefaultRequestTimeout),
	}
}

// LoadConfig loads configuration from a .json, .yaml or .yml file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Env variable names read by ApplyEnv.
const (
	EnvCouncil         = "COUNCIL"
	EnvStreetAddress   = "STREET_ADDRESS"
	EnvCollectionTypes = "COLLECTION_TYPES"
	EnvPort            = "PORT"
	EnvRequestTimeout  = "REQUEST_TIMEOUT"
	EnvUseBrowser      = "USE_BROWSER"
	EnvUserAgent       = "USER_AGENT"
)

// ApplyEnv overrides fields with any set environment variables. lookup is
// usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}

	if v, ok := get(EnvCouncil); ok {
		c.Council = v
	}
	if v, ok := get(EnvStreetAddress); ok {
		c.StreetAddress = v
	}
	if v, ok := get(EnvCollectionTypes); ok {
		c.CollectionTypes = v
	}
	if v, ok := get(EnvUserAgent); ok {
		c.UserAgent = v
	}
	if v, ok := get(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %v", EnvPort, err)
		}
		c.Port = port
	}
	if v, ok := get(EnvRequestTimeout); ok {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRequestTimeout, err)
		}
		c.RequestTimeout = Duration(d)
	}
	if v, ok := get(EnvUseBrowser); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %v", EnvUseBrowser, err)
		}
		c.UseBrowser = b
	}
	return nil
}

// Validate checks that the configuration has valid values.
// Council and street address are optional; the default lookup reports their
// absence when it is used.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if _, err := types.ParseCollectionTypes(c.CollectionTypes); err != nil {
		return fmt.Errorf("config error: 'collection_types': %w", err)
	}
	return nil
}

// Types returns the parsed collection type filter. Call Validate first.
func (c *Config) Types() types.CollectionType {
	t, err := types.ParseCollectionTypes(c.CollectionTypes)
	if err != nil {
		return types.AllCollectionTypes
	}
	return t
}

// Timeout returns RequestTimeout as a time.Duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout)
}

// HasDefaultLookup reports whether both council and street address are set.
func (c *Config) HasDefaultLookup() bool {
	return c.Council != "" && c.StreetAddress != ""
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values over the built-in defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Council == "" {
		result.Council = defaults.Council
	}
	if result.StreetAddress == "" {
		result.StreetAddress = defaults.StreetAddress
	}
	if result.CollectionTypes == "" {
		result.CollectionTypes = defaults.CollectionTypes
	}
	if result.UserAgent == "" {
		result.UserAgent = defaults.UserAgent
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.RequestTimeout == 0 {
		result.RequestTimeout = defaults.RequestTimeout
	}

	// Bool fields: cannot distinguish unset from false, so true wins
	result.UseBrowser = result.UseBrowser || defaults.UseBrowser

	return result
}

// Load builds the effective configuration: built-in defaults, then the
// optional file at path, then the environment.
func Load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Defaults()
	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return Config{}, err
		}
		cfg = fileCfg.MergeWithDefaults(cfg)
	}
	if lookup != nil {
		if err := cfg.ApplyEnv(lookup); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}
