// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bureau-foundation/jules/lib/retry"
	"github.com/bureau-foundation/jules/lib/session"
)

// CreateSessionRequest names the repository, branch, and task for a
// new session.
type CreateSessionRequest struct {
	// Owner and Repo identify the GitHub repository. Required.
	Owner string
	Repo  string

	// Branch is the starting branch. Empty lets the service use the
	// repository default.
	Branch string

	// Title is the human-readable session title. Empty lets the
	// service derive one from the prompt.
	Title string

	// Prompt is the task text. Required.
	Prompt string
}

// remoteSession is the wire shape of a session resource.
type remoteSession struct {
	Name          string               `json:"name"`
	ID            string               `json:"id"`
	Title         string               `json:"title"`
	Prompt        string               `json:"prompt"`
	State         string               `json:"state"`
	CreateTime    time.Time            `json:"createTime"`
	UpdateTime    time.Time            `json:"updateTime"`
	ErrorMessage  string               `json:"errorMessage"`
	SourceContext *remoteSourceContext `json:"sourceContext"`
}

type remoteSourceContext struct {
	Source            string                   `json:"source"`
	GithubRepoContext *remoteGithubRepoContext `json:"githubRepoContext"`
}

type remoteGithubRepoContext struct {
	StartingBranch string `json:"startingBranch"`
}

// CreateSession starts a new remote session for the given repository
// and task. Exactly one attempt is made: a create whose response was
// lost may still have started a session remotely, and a retry would
// start a duplicate. Callers that want the session visible locally
// insert the returned value into the cache.
//
// A 404 means the service cannot see the repository and surfaces as
// *RepoAccessError carrying the owner and repo.
func (c *Client) CreateSession(ctx context.Context, request CreateSessionRequest) (session.Session, error) {
	if err := c.requireAuth(); err != nil {
		return session.Session{}, err
	}
	if request.Owner == "" || request.Repo == "" {
		return session.Session{}, fmt.Errorf("jules: creating session: owner and repo are required")
	}
	if strings.TrimSpace(request.Prompt) == "" {
		return session.Session{}, fmt.Errorf("jules: creating session: prompt is required")
	}

	body := struct {
		Prompt        string `json:"prompt"`
		Title         string `json:"title,omitempty"`
		SourceContext struct {
			Source            string `json:"source"`
			GithubRepoContext struct {
				StartingBranch string `json:"startingBranch,omitempty"`
			} `json:"githubRepoContext"`
		} `json:"sourceContext"`
	}{
		Prompt: request.Prompt,
		Title:  request.Title,
	}
	body.SourceContext.Source = fmt.Sprintf("sources/github/%s/%s", request.Owner, request.Repo)
	body.SourceContext.GithubRepoContext.StartingBranch = request.Branch

	raw, err := c.do(ctx, http.MethodPost, "/sessions", body)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			return session.Session{}, &RepoAccessError{Owner: request.Owner, Repo: request.Repo}
		}
		return session.Session{}, fmt.Errorf("creating session for %s/%s: %w", request.Owner, request.Repo, err)
	}

	var remote remoteSession
	if err := json.Unmarshal(raw, &remote); err != nil {
		return session.Session{}, fmt.Errorf("jules: decoding create response: %w", err)
	}

	created := c.toSession(remote)
	if created.ID == "" {
		return session.Session{}, fmt.Errorf("jules: create response carried no session ID")
	}

	// The create response is sparse; backfill what the caller already
	// knows so the optimistic cache entry is presentable.
	if created.Title == "" {
		created.Title = request.Title
	}
	if created.Prompt == "" {
		created.Prompt = request.Prompt
	}
	if created.Branch == "" {
		created.Branch = request.Branch
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = c.clock.Now()
	}

	c.logger.Info("session created",
		"session_id", created.ID,
		"repository", request.Owner+"/"+request.Repo,
		"state", string(created.State),
	)
	return created, nil
}

// ListSessions returns up to pageSize sessions from the remote
// listing, newest first. A non-positive pageSize uses the default.
// Retried on transient failures.
func (c *Client) ListSessions(ctx context.Context, pageSize int) ([]session.Session, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	path := fmt.Sprintf("/sessions?pageSize=%d", pageSize)
	raw, err := retry.Do(ctx, c.policy, "list sessions", func(ctx context.Context) ([]byte, error) {
		return c.do(ctx, http.MethodGet, path, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	remotes, err := parseSessionList(raw)
	if err != nil {
		return nil, err
	}

	sessions := make([]session.Session, 0, len(remotes))
	for _, remote := range remotes {
		converted := c.toSession(remote)
		if converted.ID == "" {
			c.logger.Debug("skipping listed session without ID", "name", remote.Name)
			continue
		}
		sessions = append(sessions, converted)
	}
	// The service usually orders the listing already, but the ordering
	// callers see must not depend on that.
	session.SortNewestFirst(sessions)
	return sessions, nil
}

// CancelSession asks the service to cancel a session. Idempotent on
// the remote side, so transient failures are retried. The caller
// removes the session from the cache after success.
func (c *Client) CancelSession(ctx context.Context, sessionID string) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	if sessionID == "" {
		return fmt.Errorf("jules: cancelling session: session ID is required")
	}

	path := "/sessions/" + url.PathEscape(sessionID) + ":cancel"
	_, err := retry.Do(ctx, c.policy, "cancel session", func(ctx context.Context) ([]byte, error) {
		return c.do(ctx, http.MethodPost, path, struct{}{})
	})
	if err != nil {
		return fmt.Errorf("cancelling session %s: %w", sessionID, err)
	}

	c.logger.Info("session cancelled", "session_id", sessionID)
	return nil
}

// parseSessionList decodes a session listing. The service has shipped
// three shapes: {"sessions": [...]}, {"items": [...]}, and a bare
// array. They are tried in that order; a body matching none of them
// is an error, never an empty result.
func parseSessionList(raw []byte) ([]remoteSession, error) {
	var wrapper struct {
		Sessions []remoteSession `json:"sessions"`
		Items    []remoteSession `json:"items"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil {
		if wrapper.Sessions != nil {
			return wrapper.Sessions, nil
		}
		if wrapper.Items != nil {
			return wrapper.Items, nil
		}
	}

	var bare []remoteSession
	if err := json.Unmarshal(raw, &bare); err == nil && bare != nil {
		return bare, nil
	}

	return nil, fmt.Errorf("jules: session listing has none of the known shapes (sessions, items, bare array)")
}

// toSession converts a wire session to the local model.
func (c *Client) toSession(remote remoteSession) session.Session {
	id := remote.ID
	if id == "" {
		id = idFromName(remote.Name)
	}

	converted := session.Session{
		ID:           id,
		Title:        remote.Title,
		Prompt:       remote.Prompt,
		State:        mapState(remote.State),
		CreatedAt:    remote.CreateTime,
		UpdatedAt:    remote.UpdateTime,
		ErrorMessage: remote.ErrorMessage,
	}
	if remote.SourceContext != nil && remote.SourceContext.GithubRepoContext != nil {
		converted.Branch = remote.SourceContext.GithubRepoContext.StartingBranch
	}
	return converted
}

// idFromName extracts the session ID from a resource name like
// "sessions/abc123". Unqualified names pass through unchanged.
func idFromName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}
