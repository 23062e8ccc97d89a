// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package delegate implements "jules delegate", which hands a coding
// task to the remote session service. The command is also exposed
// over MCP as the delegate_to_jules tool.
package delegate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/bureau-foundation/jules/cmd/jules/cli"
	"github.com/bureau-foundation/jules/lib/jules"
	"github.com/bureau-foundation/jules/lib/workspace"
)

// delegateParams holds the parameters for the delegate command. Task
// has no flag tag: on the command line it is positional, over MCP it
// arrives as the required "task" argument.
type delegateParams struct {
	cli.JSONOutput
	Task   string `json:"task" desc:"what the remote agent should do, described in plain language" required:"true"`
	Source string `json:"source" flag:"source" desc:"GitHub repository as owner/repo (default: the origin remote)"`
	Branch string `json:"branch" flag:"branch" desc:"branch the session starts from (default: the current branch)"`
	Title  string `json:"title" flag:"title" desc:"session title (default: derived from the task)"`
}

// delegateResult is the output of a successful delegation.
type delegateResult struct {
	Session string `json:"session" desc:"session identifier for follow-up commands"`
	Title   string `json:"title"   desc:"session title"`
	State   string `json:"state"   desc:"initial lifecycle state"`
	Repo    string `json:"repo"    desc:"repository the session works on, as owner/repo"`
	Branch  string `json:"branch,omitempty" desc:"starting branch; empty means the repository default"`
	Message string `json:"message" desc:"confirmation with follow-up guidance"`
}

// Command returns the "delegate" command.
func Command() *cli.Command {
	var params delegateParams

	return &cli.Command{
		Name:     "delegate",
		ToolName: "delegate_to_jules",
		Summary:  "Delegate a coding task to a remote Jules session",
		Description: `Start a remote autonomous coding session for a task. The remote
agent clones the repository, works on the task, and produces a diff
that can be inspected with "jules session diff" and landed with
"jules apply".

The repository and starting branch are resolved from flags, the
.jules.jsonc profile in the working directory, or the git checkout
(origin remote and current branch), in that order. Delegation
returns as soon as the service accepts the session; it does not wait
for the agent to finish.`,
		Usage: "jules delegate [flags] <task...>",
		Examples: []cli.Example{
			{
				Description: "Delegate a task against the current checkout",
				Command:     `jules delegate "fix the flaky TestRetry timeout"`,
			},
			{
				Description: "Delegate against an explicit repository and branch",
				Command:     `jules delegate --source octo/demo --branch develop "add a health endpoint"`,
			},
		},
		Annotations: cli.Create(),
		Params:      func() any { return &params },
		Output:      func() any { return &delegateResult{} },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			task := strings.TrimSpace(params.Task)
			if task == "" {
				task = strings.TrimSpace(strings.Join(args, " "))
			}
			if task == "" {
				return cli.Validation("task description required")
			}
			return run(ctx, &params, task, logger)
		},
	}
}

func run(ctx context.Context, params *delegateParams, task string, logger *slog.Logger) error {
	client, cfg, err := cli.Connect(logger)
	if err != nil {
		return err
	}

	workCtx, err := workspace.Resolve(ctx, workspace.Options{
		Source: params.Source,
		Branch: params.Branch,
	})
	if err != nil {
		return cli.Validation("%w", err)
	}

	title := strings.TrimSpace(params.Title)
	if title == "" {
		title = workCtx.Title(task)
	}

	created, err := client.CreateSession(ctx, jules.CreateSessionRequest{
		Owner:  workCtx.Owner,
		Repo:   workCtx.Repo,
		Branch: workCtx.Branch,
		Title:  title,
		Prompt: workCtx.Prompt(task),
	})
	if err != nil {
		return err
	}

	// Make the session visible locally before the remote indexes it.
	cache := cli.LoadCache(cfg, logger)
	cache.Insert(created)
	cli.SaveCache(cache, cfg, logger)

	logger.Info("session delegated",
		"session_id", created.ID,
		"repo", workCtx.Owner+"/"+workCtx.Repo,
		"branch", workCtx.Branch,
	)

	result := delegateResult{
		Session: created.ID,
		Title:   created.Title,
		State:   string(created.State),
		Repo:    workCtx.Owner + "/" + workCtx.Repo,
		Branch:  workCtx.Branch,
		Message: fmt.Sprintf("Delegated to Jules as session %s. Check progress with \"jules session list\" and fetch the result with \"jules apply %s\" once completed.", created.ID, created.ID),
	}
	if done, err := params.EmitJSON(result); done {
		return err
	}

	fmt.Fprintf(os.Stdout, "Delegated to Jules: session %s (%s)\n", result.Session, result.State)
	fmt.Fprintf(os.Stdout, "  repo:   %s\n", result.Repo)
	if result.Branch != "" {
		fmt.Fprintf(os.Stdout, "  branch: %s\n", result.Branch)
	}
	fmt.Fprintf(os.Stdout, "  title:  %s\n", result.Title)
	fmt.Fprintf(os.Stdout, "\nTrack it with: jules session list\n")
	return nil
}
