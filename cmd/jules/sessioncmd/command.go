// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sessioncmd implements the "jules session" command group:
// listing, inspecting, and cancelling remote delegated sessions.
package sessioncmd

import (
	"github.com/bureau-foundation/jules/cmd/jules/cli"
)

// Command returns the "session" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "session",
		Summary: "Inspect and manage delegated sessions",
		Description: `Work with remote sessions started by "jules delegate".

The session list is reconciled from two sources: sessions delegated
locally are visible immediately (from the state-dir snapshot), and
the remote listing is merged in whenever a command runs. A session
the remote has not indexed yet therefore still appears, and a
listing taken during a remote outage never wipes local knowledge.`,
		Subcommands: []*cli.Command{
			listCommand(),
			activitiesCommand(),
			cancelCommand(),
			diffCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "List sessions, freshest view first",
				Command:     "jules session list",
			},
			{
				Description: "Follow the remote agent's reasoning for a session",
				Command:     "jules session activities sess-1a2b3c",
			},
			{
				Description: "Cancel a running session",
				Command:     "jules session cancel sess-1a2b3c",
			},
			{
				Description: "Print the unified diff a completed session produced",
				Command:     "jules session diff sess-1a2b3c",
			},
		},
	}
}
