// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jules

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bureau-foundation/jules/lib/retry"
	"github.com/bureau-foundation/jules/lib/session"
)

// remoteDiff is the wire shape of a session diff.
type remoteDiff struct {
	Branch string           `json:"branch"`
	Commit string           `json:"commit"`
	Files  []remoteFileDiff `json:"files"`
}

type remoteFileDiff struct {
	Path   string `json:"path"`
	Status string `json:"status"`
	Patch  string `json:"patch"`
}

// SessionDiff fetches the file-level change set of a completed
// session. Not cached: apply it or discard it. Retried on transient
// failures.
func (c *Client) SessionDiff(ctx context.Context, sessionID string) (session.Diff, error) {
	if err := c.requireAuth(); err != nil {
		return session.Diff{}, err
	}
	if sessionID == "" {
		return session.Diff{}, fmt.Errorf("jules: fetching diff: session ID is required")
	}

	path := "/sessions/" + url.PathEscape(sessionID) + "/diff"
	raw, err := retry.Do(ctx, c.policy, "fetch session diff", func(ctx context.Context) ([]byte, error) {
		return c.do(ctx, http.MethodGet, path, nil)
	})
	if err != nil {
		return session.Diff{}, fmt.Errorf("fetching diff for session %s: %w", sessionID, err)
	}

	var remote remoteDiff
	if err := json.Unmarshal(raw, &remote); err != nil {
		return session.Diff{}, fmt.Errorf("jules: decoding diff response: %w", err)
	}

	diff := session.Diff{
		SessionID: sessionID,
		Branch:    remote.Branch,
		Commit:    remote.Commit,
		Files:     make([]session.FileDiff, 0, len(remote.Files)),
	}
	for _, file := range remote.Files {
		diff.Files = append(diff.Files, session.FileDiff{
			Path:   file.Path,
			Status: mapFileStatus(file.Status),
			Patch:  file.Patch,
		})
	}
	return diff, nil
}

// mapFileStatus normalizes the remote file status vocabulary. Unknown
// values count as modified, the least destructive interpretation.
func mapFileStatus(remote string) session.FileStatus {
	switch strings.ToLower(strings.TrimSpace(remote)) {
	case "added", "created", "new":
		return session.FileAdded
	case "deleted", "removed":
		return session.FileDeleted
	default:
		return session.FileModified
	}
}
