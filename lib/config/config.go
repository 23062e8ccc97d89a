// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the jules CLI and
// bridge server.
//
// Configuration is loaded from a single file specified by:
//   - JULES_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. The file is optional
// in practice (every field has a default, and the API key can come
// from JULES_API_KEY), but when a path is given it must exist.
//
// The only expansion performed on file values is ${VAR} and
// ${VAR:-default}, so credentials can be referenced from the
// environment instead of written to disk.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/jules/lib/netutil"
)

// Config is the full configuration for the jules tool.
type Config struct {
	// API configures the session service client.
	API APIConfig `yaml:"api"`

	// Refresh configures the background session refresher.
	Refresh RefreshConfig `yaml:"refresh"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`
}

// APIConfig configures the session service client.
type APIConfig struct {
	// BaseURL is the root URL for API requests. Must use HTTPS.
	// Default: the public Jules endpoint.
	BaseURL string `yaml:"base_url"`

	// Key is the API key. The JULES_API_KEY environment variable
	// takes precedence; use "${JULES_API_KEY}" here to make that
	// explicit, or leave both empty and let operations fail with a
	// remediation hint.
	Key string `yaml:"key"`

	// MaxAttempts bounds retries for idempotent operations.
	// Zero uses the client default (3).
	MaxAttempts int `yaml:"max_attempts"`

	// BaseDelay is the wait after the first failed attempt, as a
	// duration string ("1s"). Zero uses the client default.
	BaseDelay string `yaml:"base_delay"`

	// AttemptTimeout bounds a single attempt, as a duration string
	// ("30s"). Zero uses the client default.
	AttemptTimeout string `yaml:"attempt_timeout"`

	// RequestsPerSecond enables client-side request pacing when
	// positive. Default: 0 (unpaced).
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// RefreshConfig configures the background session refresher.
type RefreshConfig struct {
	// Interval between refreshes, as a duration string ("30s").
	// Zero uses the refresher default.
	Interval string `yaml:"interval"`

	// PageSize for session listings. Zero uses the client default.
	PageSize int `yaml:"page_size"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// State is where runtime state is stored, most notably the
	// session snapshot. Default: ~/.cache/jules.
	State string `yaml:"state"`
}

// Default returns the default configuration. Every field is usable
// without a config file; the file overrides, never completes.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		API: APIConfig{
			BaseURL: "https://jules.googleapis.com/v1alpha",
		},
		Refresh: RefreshConfig{
			Interval: "30s",
		},
		Paths: PathsConfig{
			State: filepath.Join(homeDir, ".cache", "jules"),
		},
	}
}

// Load loads configuration from the path in the JULES_CONFIG
// environment variable, or the defaults when it is unset.
func Load() (*Config, error) {
	configPath := os.Getenv("JULES_CONFIG")
	if configPath == "" {
		return Default(), nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. The file is
// the single source of truth: environment variables do not override
// its values, except through explicit ${VAR} references.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// APIKey resolves the API key: JULES_API_KEY wins, then the config
// file value. Empty means unauthenticated.
func (c *Config) APIKey() string {
	if key := os.Getenv("JULES_API_KEY"); key != "" {
		return key
	}
	return c.API.Key
}

// SnapshotPath is where the session snapshot lives.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.Paths.State, "sessions.snapshot")
}

// BaseDelayDuration returns the parsed base delay, or zero when
// unset. Validate guarantees the string parses.
func (a APIConfig) BaseDelayDuration() time.Duration {
	d, _ := time.ParseDuration(a.BaseDelay)
	return d
}

// AttemptTimeoutDuration returns the parsed attempt timeout, or zero
// when unset.
func (a APIConfig) AttemptTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(a.AttemptTimeout)
	return d
}

// IntervalDuration returns the parsed refresh interval, or zero when
// unset.
func (r RefreshConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(r.Interval)
	return d
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// values that commonly reference the environment.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.API.Key = expandVars(c.API.Key, vars)
	c.Paths.State = expandVars(c.Paths.State, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns. Provided
// vars win over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors, reporting all of them
// at once.
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, fmt.Errorf("api.base_url is required"))
	} else if !strings.HasPrefix(c.API.BaseURL, "https://") && !netutil.IsLoopbackURL(c.API.BaseURL) {
		errs = append(errs, fmt.Errorf("api.base_url must use https (got %q); plain http is allowed only for loopback", c.API.BaseURL))
	}

	if c.API.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("api.max_attempts must not be negative"))
	}
	if c.API.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("api.requests_per_second must not be negative"))
	}
	if err := checkDuration("api.base_delay", c.API.BaseDelay); err != nil {
		errs = append(errs, err)
	}
	if err := checkDuration("api.attempt_timeout", c.API.AttemptTimeout); err != nil {
		errs = append(errs, err)
	}

	if err := checkDuration("refresh.interval", c.Refresh.Interval); err != nil {
		errs = append(errs, err)
	}
	if c.Refresh.PageSize < 0 {
		errs = append(errs, fmt.Errorf("refresh.page_size must not be negative"))
	}

	if c.Paths.State == "" {
		errs = append(errs, fmt.Errorf("paths.state is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// checkDuration validates an optional duration string.
func checkDuration(field, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q", field, value)
	}
	if d < 0 {
		return fmt.Errorf("%s must not be negative", field)
	}
	return nil
}
