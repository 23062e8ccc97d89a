// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sessioncmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bureau-foundation/jules/cmd/jules/cli"
)

// cancelParams holds the parameters for the session cancel command.
type cancelParams struct {
	cli.JSONOutput
}

// cancelResult is the output of a successful cancel.
type cancelResult struct {
	Session   string `json:"session"   desc:"cancelled session identifier"`
	Cancelled bool   `json:"cancelled" desc:"always true on success"`
}

func cancelCommand() *cli.Command {
	var params cancelParams

	return &cli.Command{
		Name:    "cancel",
		Summary: "Cancel a running session",
		Description: `Ask the service to cancel a session. The session is removed from
the local view immediately; if the remote still lists it (as
cancelled, or because the cancel raced completion), the next listing
brings the authoritative state back.

Cancelling an already-terminal session is not an error.`,
		Usage:       "jules session cancel [flags] <session-id>",
		Annotations: cli.Idempotent(),
		Params:      func() any { return &params },
		Output:      func() any { return &cancelResult{} },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("exactly one session ID required")
			}
			sessionID := args[0]

			client, cfg, err := cli.Connect(logger)
			if err != nil {
				return err
			}

			if err := client.CancelSession(ctx, sessionID); err != nil {
				return err
			}

			cache := cli.LoadCache(cfg, logger)
			cache.Remove(sessionID)
			cli.SaveCache(cache, cfg, logger)

			logger.Info("session cancelled", "session_id", sessionID)

			if done, err := params.EmitJSON(cancelResult{Session: sessionID, Cancelled: true}); done {
				return err
			}
			fmt.Fprintf(os.Stdout, "Cancelled session %s\n", sessionID)
			return nil
		},
	}
}
