// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"log/slog"

	"github.com/bureau-foundation/jules/cmd/jules/cli"
)

// Command returns the "mcp" command group. The root parameter is the
// top-level CLI command tree, used for tool discovery when the "serve"
// subcommand starts.
func Command(root *cli.Command) *cli.Command {
	return &cli.Command{
		Name:    "mcp",
		Summary: "Model Context Protocol server for agent delegation",
		Description: `MCP server that exposes delegation to the Jules session service as
a tool over newline-delimited JSON-RPC 2.0 on stdin/stdout.

A local coding agent launches this as a subprocess and calls the
delegate_to_jules tool to hand a task to the remote service. Tool
input schemas are generated from the CLI parameter structs, so the
tool surface and the command-line surface cannot drift apart.`,
		Subcommands: []*cli.Command{
			serveCommand(root),
		},
	}
}

func serveCommand(root *cli.Command) *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Summary: "Start MCP server on stdin/stdout",
		Description: `Start a Model Context Protocol server that reads JSON-RPC 2.0
requests from stdin and writes responses to stdout, one message per
line.

The server exposes every CLI command that declares a tool name;
today that is exactly delegate_to_jules. Delegation failures are
reported as tool results with isError and a structured error
category, never as JSON-RPC errors, so the calling agent always
gets something it can reason about.

This command is intended to be launched by MCP-capable clients
(such as coding agent frameworks) as a subprocess.`,
		Usage: "jules mcp serve",
		Examples: []cli.Example{
			{
				Description: "Start MCP server (typically launched by an agent framework)",
				Command:     "jules mcp serve",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			server := NewServer(root, logger)
			return server.Serve(ctx)
		},
	}
}
