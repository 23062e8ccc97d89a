// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sessioncmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/bureau-foundation/jules/cmd/jules/cli"
	"github.com/bureau-foundation/jules/lib/jules"
)

// listParams holds the parameters for the session list command.
type listParams struct {
	cli.JSONOutput
	All bool `json:"all" flag:"all,a" desc:"include terminal sessions (completed, failed, cancelled)"`
}

// sessionRow is one row in the list output.
type sessionRow struct {
	ID           string    `json:"id"                      desc:"session identifier"`
	State        string    `json:"state"                   desc:"lifecycle state"`
	Title        string    `json:"title,omitempty"         desc:"session title"`
	Branch       string    `json:"branch,omitempty"        desc:"starting branch"`
	CreatedAt    time.Time `json:"created_at"              desc:"creation time"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"    desc:"last remote change"`
	ErrorMessage string    `json:"error_message,omitempty" desc:"failure description for failed sessions"`
}

func listCommand() *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List delegated sessions",
		Description: `List sessions newest first. Running and pending sessions are shown
by default; --all includes terminal ones.

The command refreshes from the remote listing before rendering. When
the remote is unreachable it falls back to the last reconciled local
view and says so on stderr.`,
		Usage:       "jules session list [flags]",
		Annotations: cli.ReadOnly(),
		Params:      func() any { return &params },
		Output:      func() any { return &[]sessionRow{} },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}

			client, cfg, err := cli.Connect(logger)
			if err != nil {
				return err
			}

			cache := cli.LoadCache(cfg, logger)
			refresher := &jules.Refresher{
				Client:   client,
				Cache:    cache,
				PageSize: cfg.Refresh.PageSize,
				Logger:   logger,
			}
			if err := refresher.RefreshOnce(ctx); err != nil {
				logger.Warn("session refresh failed, showing cached view", "error", err)
				fmt.Fprintln(os.Stderr, "warning: remote listing unavailable, showing cached sessions")
			} else {
				cli.SaveCache(cache, cfg, logger)
			}

			rows := make([]sessionRow, 0, cache.Len())
			for _, s := range cache.List() {
				if !params.All && s.State.Terminal() {
					continue
				}
				rows = append(rows, sessionRow{
					ID:           s.ID,
					State:        string(s.State),
					Title:        s.Title,
					Branch:       s.Branch,
					CreatedAt:    s.CreatedAt,
					UpdatedAt:    s.UpdatedAt,
					ErrorMessage: s.ErrorMessage,
				})
			}

			if done, err := params.EmitJSON(rows); done {
				return err
			}

			if len(rows) == 0 {
				fmt.Fprintln(os.Stderr, "No sessions. Delegate one with: jules delegate \"<task>\"")
				return nil
			}

			now := time.Now()
			writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "SESSION\tSTATE\tAGE\tTITLE")
			for _, row := range rows {
				title := row.Title
				if title == "" {
					title = "-"
				}
				if row.ErrorMessage != "" {
					title = fmt.Sprintf("%s (%s)", title, row.ErrorMessage)
				}
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
					row.ID, row.State, formatAge(now, row.CreatedAt), title)
			}
			writer.Flush()
			return nil
		},
	}
}

// formatAge renders the time since t compactly for the table view.
func formatAge(now, t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	age := now.Sub(t)
	switch {
	case age < time.Minute:
		return "now"
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd", int(age.Hours()/24))
	}
}
