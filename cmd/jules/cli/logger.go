// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// NewCommandLogger creates a structured logger for CLI command
// operations. When stderr is a terminal, uses slog.TextHandler for
// human-readable output. When stderr is piped or redirected (CI,
// scripts, the MCP bridge), uses slog.JSONHandler for
// machine-parseable output.
//
// The level comes from JULES_LOG_LEVEL (debug, info, warn, error),
// defaulting to info. Callers scope the logger with command-specific
// context via With():
//
//	logger := cli.NewCommandLogger().With("command", "session list")
func NewCommandLogger() *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: logLevelFromEnvironment()}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

// logLevelFromEnvironment maps JULES_LOG_LEVEL to a slog level.
// Unknown or empty values mean info.
func logLevelFromEnvironment() slog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("JULES_LOG_LEVEL"))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
