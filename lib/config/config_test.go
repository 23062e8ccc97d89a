// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

// --- Defaults ---

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.API.BaseURL != "https://jules.googleapis.com/v1alpha" {
		t.Errorf("BaseURL = %q, want the public endpoint", cfg.API.BaseURL)
	}
	if cfg.Refresh.IntervalDuration() != 30*time.Second {
		t.Errorf("refresh interval = %v, want 30s", cfg.Refresh.IntervalDuration())
	}
	if cfg.Paths.State == "" {
		t.Error("Paths.State is empty")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoadWithoutEnvUsesDefaults(t *testing.T) {
	t.Setenv("JULES_CONFIG", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != Default().API.BaseURL {
		t.Errorf("BaseURL = %q, want default", cfg.API.BaseURL)
	}
}

func TestLoadUsesEnvPath(t *testing.T) {
	path := writeConfig(t, "api:\n  max_attempts: 5\n")
	t.Setenv("JULES_CONFIG", path)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.API.MaxAttempts)
	}
}

// --- File loading ---

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://example.test/v1
  key: secret-key
  max_attempts: 4
  base_delay: 500ms
  attempt_timeout: 10s
  requests_per_second: 2.5
refresh:
  interval: 1m
  page_size: 50
paths:
  state: /tmp/jules-test-state
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.API.BaseURL != "https://example.test/v1" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Key != "secret-key" {
		t.Errorf("Key = %q", cfg.API.Key)
	}
	if cfg.API.MaxAttempts != 4 {
		t.Errorf("MaxAttempts = %d", cfg.API.MaxAttempts)
	}
	if cfg.API.BaseDelayDuration() != 500*time.Millisecond {
		t.Errorf("BaseDelay = %v", cfg.API.BaseDelayDuration())
	}
	if cfg.API.AttemptTimeoutDuration() != 10*time.Second {
		t.Errorf("AttemptTimeout = %v", cfg.API.AttemptTimeoutDuration())
	}
	if cfg.API.RequestsPerSecond != 2.5 {
		t.Errorf("RequestsPerSecond = %v", cfg.API.RequestsPerSecond)
	}
	if cfg.Refresh.IntervalDuration() != time.Minute {
		t.Errorf("Interval = %v", cfg.Refresh.IntervalDuration())
	}
	if cfg.Refresh.PageSize != 50 {
		t.Errorf("PageSize = %d", cfg.Refresh.PageSize)
	}
	if cfg.Paths.State != "/tmp/jules-test-state" {
		t.Errorf("State = %q", cfg.Paths.State)
	}
	if got := cfg.SnapshotPath(); got != "/tmp/jules-test-state/sessions.snapshot" {
		t.Errorf("SnapshotPath = %q", got)
	}
}

func TestLoadFilePreservesDefaultsForMissingFields(t *testing.T) {
	path := writeConfig(t, "refresh:\n  page_size: 10\n")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.API.BaseURL != Default().API.BaseURL {
		t.Errorf("BaseURL = %q, want default preserved", cfg.API.BaseURL)
	}
	if cfg.Refresh.PageSize != 10 {
		t.Errorf("PageSize = %d, want 10", cfg.Refresh.PageSize)
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFileMalformed(t *testing.T) {
	path := writeConfig(t, "api: [this is not a mapping\n")
	_, err := LoadFile(path)
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
	if !strings.Contains(err.Error(), "parsing config") {
		t.Errorf("error = %q, want parse context", err)
	}
}

// --- Variable expansion ---

func TestExpandVariables(t *testing.T) {
	t.Setenv("JULES_TEST_KEY", "from-env")
	path := writeConfig(t, `
api:
  key: ${JULES_TEST_KEY}
paths:
  state: ${JULES_TEST_UNSET:-/fallback/state}
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.API.Key != "from-env" {
		t.Errorf("Key = %q, want env value expanded", cfg.API.Key)
	}
	if cfg.Paths.State != "/fallback/state" {
		t.Errorf("State = %q, want default expansion", cfg.Paths.State)
	}
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	path := writeConfig(t, "paths:\n  state: ${HOME}/.local/jules\n")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Paths.State != "/home/tester/.local/jules" {
		t.Errorf("State = %q", cfg.Paths.State)
	}
}

// --- API key resolution ---

func TestAPIKeyEnvWins(t *testing.T) {
	t.Setenv("JULES_API_KEY", "env-key")
	cfg := Default()
	cfg.API.Key = "file-key"
	if got := cfg.APIKey(); got != "env-key" {
		t.Errorf("APIKey = %q, want env-key", got)
	}
}

func TestAPIKeyFallsBackToFile(t *testing.T) {
	t.Setenv("JULES_API_KEY", "")
	cfg := Default()
	cfg.API.Key = "file-key"
	if got := cfg.APIKey(); got != "file-key" {
		t.Errorf("APIKey = %q, want file-key", got)
	}
}

// --- Validation ---

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "plain http base url",
			mutate:  func(c *Config) { c.API.BaseURL = "http://example.test" },
			wantErr: "api.base_url must use https",
		},
		{
			name:    "empty base url",
			mutate:  func(c *Config) { c.API.BaseURL = "" },
			wantErr: "api.base_url is required",
		},
		{
			name:    "negative attempts",
			mutate:  func(c *Config) { c.API.MaxAttempts = -1 },
			wantErr: "api.max_attempts must not be negative",
		},
		{
			name:    "negative pacing",
			mutate:  func(c *Config) { c.API.RequestsPerSecond = -0.5 },
			wantErr: "api.requests_per_second must not be negative",
		},
		{
			name:    "garbage delay",
			mutate:  func(c *Config) { c.API.BaseDelay = "fast" },
			wantErr: `api.base_delay: invalid duration "fast"`,
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.API.AttemptTimeout = "-5s" },
			wantErr: "api.attempt_timeout must not be negative",
		},
		{
			name:    "garbage refresh interval",
			mutate:  func(c *Config) { c.Refresh.Interval = "often" },
			wantErr: `refresh.interval: invalid duration "often"`,
		},
		{
			name:    "negative page size",
			mutate:  func(c *Config) { c.Refresh.PageSize = -10 },
			wantErr: "refresh.page_size must not be negative",
		},
		{
			name:    "empty state path",
			mutate:  func(c *Config) { c.Paths.State = "" },
			wantErr: "paths.state is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAllowsLoopbackHTTP(t *testing.T) {
	t.Parallel()
	for _, baseURL := range []string{
		"http://localhost:8080/v1alpha",
		"http://127.0.0.1:9999",
		"http://[::1]:8080",
	} {
		cfg := Default()
		cfg.API.BaseURL = baseURL
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", baseURL, err)
		}
	}
}

func TestValidateReportsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = "http://insecure"
	cfg.API.MaxAttempts = -1
	cfg.Refresh.Interval = "often"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"api.base_url", "api.max_attempts", "refresh.interval"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestValidateRejectsInvalidLoadedFile(t *testing.T) {
	path := writeConfig(t, "api:\n  base_url: http://plain.test\n")
	_, err := LoadFile(path)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(err.Error(), "must use https") {
		t.Errorf("error = %q", err)
	}
}
