// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sessioncmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/bureau-foundation/jules/cmd/jules/cli"
	"github.com/bureau-foundation/jules/lib/session"
)

// diffParams holds the parameters for the session diff command.
type diffParams struct {
	cli.JSONOutput
}

func diffCommand() *cli.Command {
	var params diffParams

	return &cli.Command{
		Name:    "diff",
		Summary: "Print the diff a completed session produced",
		Description: `Fetch and print the unified diff of a session's changes. Plain
output is the concatenated per-file patches, suitable for piping
into "git apply"; a file summary goes to stderr. Use "jules apply"
to land the changes on a side branch instead of applying by hand.`,
		Usage:       "jules session diff [flags] <session-id>",
		Annotations: cli.ReadOnly(),
		Params:      func() any { return &params },
		Output:      func() any { return &session.Diff{} },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("exactly one session ID required")
			}
			sessionID := args[0]

			client, _, err := cli.Connect(logger)
			if err != nil {
				return err
			}

			diff, err := client.SessionDiff(ctx, sessionID)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(diff); done {
				return err
			}

			if len(diff.Files) == 0 {
				fmt.Fprintln(os.Stderr, "Session produced no changes.")
				return nil
			}

			for _, file := range diff.Files {
				patch := file.Patch
				if patch == "" {
					continue
				}
				fmt.Fprint(os.Stdout, patch)
				if !strings.HasSuffix(patch, "\n") {
					fmt.Fprintln(os.Stdout)
				}
			}

			counts := map[session.FileStatus]int{}
			for _, file := range diff.Files {
				counts[file.Status]++
			}
			fmt.Fprintf(os.Stderr, "%d files: %d added, %d modified, %d deleted\n",
				len(diff.Files), counts[session.FileAdded], counts[session.FileModified], counts[session.FileDeleted])
			return nil
		},
	}
}
