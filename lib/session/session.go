// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session holds the local model of remote delegated coding
// sessions: the session and activity types, the reconciling cache
// that is the single source of truth for session state, and snapshot
// persistence so sessions delegated by one invocation are visible to
// the next before the remote service has indexed them.
//
// The package is pure data: no network, no API client. The client
// package feeds it sessions parsed from API responses; commands and
// the bridge server query it.
//
// # Reconciliation
//
// Remote listings are authoritative but lag behind creation: a
// session created moments ago may be missing from a listing for a
// while, and a listing taken during an outage may be empty. The cache
// therefore merges listings instead of replacing its contents, with
// two protections: an empty listing never wipes a non-empty cache,
// and sessions the remote has never listed survive merges until the
// remote starts reporting them. See [Cache.Merge].
package session

import "time"

// State is the local lifecycle state of a session. The remote service
// has a wider vocabulary; the client maps it onto these five values.
type State string

const (
	// StatePending means the session has been created but the remote
	// agent has not started working. Unknown remote states also land
	// here: a session in an unrecognized state is treated as not yet
	// started rather than failed.
	StatePending State = "pending"

	// StateRunning means the remote agent is planning or executing.
	StateRunning State = "running"

	// StateCompleted means the agent finished and a diff may be
	// available.
	StateCompleted State = "completed"

	// StateFailed means the agent gave up or the service reported an
	// error.
	StateFailed State = "failed"

	// StateCancelled means the session was cancelled before
	// completion.
	StateCancelled State = "cancelled"
)

// Terminal reports whether the state is final. Terminal sessions
// never transition again.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Session is one remote delegated coding task. Created locally the
// moment a create call succeeds (with only the fields the create
// response carries) and overwritten field-by-field as listings report
// the authoritative view.
type Session struct {
	// ID is the opaque session identifier, unique within the cache.
	ID string `json:"id"`

	// Title is the human-readable session title.
	Title string `json:"title,omitempty"`

	// Prompt is the task text the session was created with.
	Prompt string `json:"prompt,omitempty"`

	// State is the local lifecycle state.
	State State `json:"state"`

	// Branch is the repository branch the session started from.
	Branch string `json:"branch,omitempty"`

	// CreatedAt orders sessions newest-first in listings.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the last time the remote reported a change. Zero
	// when the remote never reported one.
	UpdatedAt time.Time `json:"updated_at,omitempty"`

	// ErrorMessage carries the remote failure description for failed
	// sessions, already sanitized by the client.
	ErrorMessage string `json:"error_message,omitempty"`
}

// Category classifies an activity entry.
type Category string

const (
	CategoryPlanning  Category = "planning"
	CategoryExecuting Category = "executing"
	CategoryReviewing Category = "reviewing"
	CategoryCompleted Category = "completed"
)

// Activity is one recorded unit of the remote agent's reasoning or
// progress. Activities are immutable once fetched; a re-fetch may
// return a superset of what an earlier fetch returned.
type Activity struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Content   string    `json:"content"`
	Category  Category  `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// FileStatus describes what happened to a file in a session diff.
type FileStatus string

const (
	FileAdded    FileStatus = "added"
	FileModified FileStatus = "modified"
	FileDeleted  FileStatus = "deleted"
)

// FileDiff is the change to a single file within a session diff.
// Patch is a unified-diff fragment for the file.
type FileDiff struct {
	Path   string     `json:"path"`
	Status FileStatus `json:"status"`
	Patch  string     `json:"patch"`
}

// Diff is the file-level change set produced by a completed session.
// Fetched on demand and never cached: the caller applies or discards
// it immediately.
type Diff struct {
	SessionID string     `json:"session_id"`
	Branch    string     `json:"branch,omitempty"`
	Commit    string     `json:"commit,omitempty"`
	Files     []FileDiff `json:"files"`
}
