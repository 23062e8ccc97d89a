// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jules

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bureau-foundation/jules/lib/retry"
	"github.com/bureau-foundation/jules/lib/session"
)

// remoteActivity is the wire shape of an activity entry.
type remoteActivity struct {
	Name        string    `json:"name"`
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	Type        string    `json:"type"`
	CreateTime  time.Time `json:"createTime"`
}

// Activities returns the activity log of a session, oldest first as
// the service reports it. The fetch is best-effort: activity history
// is supplementary context, so any failure (network, auth, parse) is
// logged and an empty slice returned rather than failing the caller's
// primary operation.
func (c *Client) Activities(ctx context.Context, sessionID string) []session.Activity {
	raw, err := c.fetchActivities(ctx, sessionID)
	if err != nil {
		c.logger.Debug("activity fetch failed",
			"session_id", sessionID,
			"error", err,
		)
		return nil
	}
	return raw
}

func (c *Client) fetchActivities(ctx context.Context, sessionID string) ([]session.Activity, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}
	if sessionID == "" {
		return nil, fmt.Errorf("jules: fetching activities: session ID is required")
	}

	path := "/sessions/" + url.PathEscape(sessionID) + "/activities"
	raw, err := retry.Do(ctx, c.policy, "fetch activities", func(ctx context.Context) ([]byte, error) {
		return c.do(ctx, http.MethodGet, path, nil)
	})
	if err != nil {
		return nil, err
	}

	remotes, err := parseActivityList(raw)
	if err != nil {
		return nil, err
	}

	activities := make([]session.Activity, 0, len(remotes))
	for _, remote := range remotes {
		id := remote.ID
		if id == "" {
			id = idFromName(remote.Name)
		}
		content := remote.Description
		if content == "" {
			content = remote.Content
		}
		activities = append(activities, session.Activity{
			ID:        id,
			SessionID: sessionID,
			Content:   content,
			Category:  mapCategory(remote.Type),
			CreatedAt: remote.CreateTime,
		})
	}
	return activities, nil
}

// parseActivityList mirrors the listing-shape tolerance of
// parseSessionList for the activities endpoint.
func parseActivityList(raw []byte) ([]remoteActivity, error) {
	var wrapper struct {
		Activities []remoteActivity `json:"activities"`
		Items      []remoteActivity `json:"items"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil {
		if wrapper.Activities != nil {
			return wrapper.Activities, nil
		}
		if wrapper.Items != nil {
			return wrapper.Items, nil
		}
	}

	var bare []remoteActivity
	if err := json.Unmarshal(raw, &bare); err == nil && bare != nil {
		return bare, nil
	}

	return nil, fmt.Errorf("jules: activity listing has none of the known shapes (activities, items, bare array)")
}
