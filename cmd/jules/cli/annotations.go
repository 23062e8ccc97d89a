// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

// ToolAnnotations describes behavioral properties of a CLI command
// when exposed as a tool by the MCP bridge. The bridge translates
// these properties into protocol hints that help agents decide which
// tools are safe to call, which can be retried, and which require
// confirmation.
//
// All fields are pointers. A nil field means "unspecified" and the
// MCP defaults apply (not read-only, destructive, not idempotent,
// open-world).
type ToolAnnotations struct {
	// ReadOnly is true when the command only reads state and never
	// modifies it. Agents may call read-only tools freely without
	// confirmation prompts.
	ReadOnly *bool

	// Destructive is true when the command may irreversibly remove
	// or damage data. Agents should require explicit confirmation
	// before calling destructive tools.
	Destructive *bool

	// Idempotent is true when repeated calls with identical arguments
	// produce the same result. Agents may safely retry idempotent
	// tools on transient failures.
	Idempotent *bool

	// OpenWorld is true when the command interacts with entities
	// beyond the local machine. Everything that talks to the remote
	// session service is open-world; purely local commands are not.
	OpenWorld *bool
}

// ReadOnly returns annotations for commands that query state without
// modifying it: list, show, status, diff.
func ReadOnly() *ToolAnnotations {
	return &ToolAnnotations{
		ReadOnly:    boolPointer(true),
		Destructive: boolPointer(false),
		Idempotent:  boolPointer(true),
		OpenWorld:   boolPointer(true),
	}
}

// Idempotent returns annotations for commands that modify state but
// converge to the same result when called repeatedly with identical
// arguments: cancel, apply.
func Idempotent() *ToolAnnotations {
	return &ToolAnnotations{
		ReadOnly:    boolPointer(false),
		Destructive: boolPointer(false),
		Idempotent:  boolPointer(true),
		OpenWorld:   boolPointer(true),
	}
}

// Create returns annotations for commands that create new resources
// and therefore accumulate side effects on repeated calls: delegate.
func Create() *ToolAnnotations {
	return &ToolAnnotations{
		ReadOnly:    boolPointer(false),
		Destructive: boolPointer(false),
		Idempotent:  boolPointer(false),
		OpenWorld:   boolPointer(true),
	}
}

func boolPointer(value bool) *bool {
	return &value
}
