// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package applycmd implements "jules apply", which fetches a
// session's diff and lands it on a local side branch.
package applycmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/bureau-foundation/jules/cmd/jules/cli"
	"github.com/bureau-foundation/jules/lib/git"
)

// exitConflict is returned when some files could not be applied. The
// session branch still holds whatever applied cleanly; scripts use
// the exit code to tell "landed" from "needs attention".
const exitConflict = 2

// applyParams holds the parameters for the apply command.
type applyParams struct {
	cli.JSONOutput
	Dir string `json:"dir" flag:"dir,C" desc:"repository directory" default:"."`
}

// Command returns the "apply" command.
func Command() *cli.Command {
	var params applyParams

	return &cli.Command{
		Name:    "apply",
		Summary: "Land a session's changes on a side branch",
		Description: `Fetch the diff of a completed session and apply it to the local
repository on a branch named jules/<session-id>, as a single commit.
The current branch is left untouched and checked out again when the
command finishes.

The working tree must be clean. Files whose patches no longer apply
(the local tree diverged since the session started) are reported as
conflicts; everything else is still committed to the side branch, so
a partial application is recoverable by inspecting that branch. The
command exits with status 2 when any file conflicted.`,
		Usage: "jules apply [flags] <session-id>",
		Examples: []cli.Example{
			{
				Description: "Land a completed session's diff",
				Command:     "jules apply sess-1a2b3c",
			},
		},
		Annotations: cli.Idempotent(),
		Params:      func() any { return &params },
		Output:      func() any { return &git.ApplyResult{} },
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
			if len(diff.Files) == 0 {
				fmt.Fprintln(os.Stderr, "Session produced no changes; nothing to apply.")
				return nil
			}

			applier := git.NewApplier(git.NewRepository(params.Dir))
			result, err := applier.Apply(ctx, diff)
			if err != nil {
				if errors.Is(err, git.ErrDirtyWorkingTree) {
					return cli.Conflict("%w", err)
				}
				return err
			}

			logger.Info("session diff applied",
				"session_id", sessionID,
				"branch", result.Branch,
				"applied", len(result.Applied),
				"conflicts", len(result.ConflictFiles),
			)

			if done, err := params.EmitJSON(result); done {
				if err != nil {
					return err
				}
			} else {
				printResult(sessionID, result)
			}

			if len(result.ConflictFiles) > 0 {
				return &cli.ExitError{Code: exitConflict}
			}
			return nil
		},
	}
}

// printResult renders the application outcome for a terminal.
func printResult(sessionID string, result git.ApplyResult) {
	if result.Commit != "" {
		fmt.Fprintf(os.Stdout, "Applied %d files from session %s\n", len(result.Applied), sessionID)
		fmt.Fprintf(os.Stdout, "  branch: %s\n", result.Branch)
		fmt.Fprintf(os.Stdout, "  commit: %s\n", result.Commit)
	} else {
		fmt.Fprintf(os.Stdout, "No files from session %s could be applied\n", sessionID)
	}
	if len(result.ConflictFiles) > 0 {
		fmt.Fprintf(os.Stdout, "\nConflicts (local tree diverged):\n")
		for _, path := range result.ConflictFiles {
			fmt.Fprintf(os.Stdout, "  %s\n", path)
		}
		fmt.Fprintf(os.Stdout, "\nResolve by re-delegating against the current tree, or apply the\nremaining hunks by hand from: jules session diff %s\n", sessionID)
	}
}
