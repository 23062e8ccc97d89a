// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the jules CLI.
//
// The central type is [Command], which represents a named subcommand
// with optional nested [Command.Subcommands], a parameter struct bound
// to flags via struct tags, and a Run function. Commands are assembled
// into a tree in cmd/jules/commands and dispatched via
// [Command.Execute], which handles flag parsing, subcommand routing,
// signal-aware context setup, and structured help output with
// examples.
//
// Commands that set Params are also visible to the MCP bridge in
// cmd/jules/mcp: the parameter struct's json/desc/default/required
// tags produce both the pflag bindings and the JSON Schema the bridge
// advertises, so a command's flag surface and its tool surface can
// never drift apart.
//
// When a user types an unknown subcommand or flag, the framework
// computes Levenshtein edit distance against all known names and
// suggests the closest match (threshold: distance <= 3).
package cli
