// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sessioncmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bureau-foundation/jules/cmd/jules/cli"
	"github.com/bureau-foundation/jules/lib/session"
)

// activitiesParams holds the parameters for the session activities
// command.
type activitiesParams struct {
	cli.JSONOutput
}

func activitiesCommand() *cli.Command {
	var params activitiesParams

	return &cli.Command{
		Name:    "activities",
		Summary: "Show the remote agent's activity log for a session",
		Description: `Print the recorded reasoning and progress steps of a session,
oldest first. Activity history is supplementary: an empty log can
mean the agent has not reported anything yet or that history is
unavailable for the session.`,
		Usage:       "jules session activities [flags] <session-id>",
		Annotations: cli.ReadOnly(),
		Params:      func() any { return &params },
		Output:      func() any { return &[]session.Activity{} },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("exactly one session ID required")
			}
			sessionID := args[0]

			client, _, err := cli.Connect(logger)
			if err != nil {
				return err
			}

			activities := client.Activities(ctx, sessionID)

			if done, err := params.EmitJSON(activities); done {
				return err
			}

			if len(activities) == 0 {
				fmt.Fprintln(os.Stderr, "No activities recorded for this session.")
				return nil
			}

			for _, activity := range activities {
				fmt.Fprintf(os.Stdout, "%s  [%s]\n", activity.CreatedAt.Local().Format("2006-01-02 15:04:05"), activity.Category)
				fmt.Fprintf(os.Stdout, "  %s\n", activity.Content)
			}
			return nil
		},
	}
}
