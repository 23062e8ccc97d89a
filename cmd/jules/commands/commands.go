// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete jules CLI command tree. The
// jules binary and the MCP bridge share it as the single source of
// truth: the bridge discovers its tools by walking the same tree the
// terminal user sees, so the two surfaces cannot drift apart.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/jules/cmd/jules/applycmd"
	"github.com/bureau-foundation/jules/cmd/jules/cli"
	delegatecmd "github.com/bureau-foundation/jules/cmd/jules/delegate"
	mcpcmd "github.com/bureau-foundation/jules/cmd/jules/mcp"
	"github.com/bureau-foundation/jules/cmd/jules/sessioncmd"
	"github.com/bureau-foundation/jules/lib/version"
)

// Root builds and returns the complete jules CLI command tree. The
// MCP command is added last, after the tree is constructed, because
// it receives the root pointer for tool discovery.
func Root() *cli.Command {
	root := &cli.Command{
		Name: "jules",
		Description: `jules: delegate coding tasks to remote autonomous sessions.

Hand a task to the Jules service, track the remote agent's progress,
and land the resulting diff on a local branch. Also speaks MCP, so a
local coding agent can delegate through the same commands.`,
		Subcommands: []*cli.Command{
			delegatecmd.Command(),
			sessioncmd.Command(),
			applycmd.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					fmt.Printf("jules %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Delegate a task against the current checkout",
				Command:     `jules delegate "fix the flaky TestRetry timeout"`,
			},
			{
				Description: "See what the remote agents are doing",
				Command:     "jules session list",
			},
			{
				Description: "Land a completed session's changes on a side branch",
				Command:     "jules apply sess-1a2b3c",
			},
			{
				Description: "Serve the delegation tool to a local coding agent",
				Command:     "jules mcp serve",
			},
		},
	}

	// The MCP command walks root.Subcommands for tool discovery, so
	// it is appended after the tree is constructed.
	root.Subcommands = append(root.Subcommands, mcpcmd.Command(root))

	return root
}
