// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"slices"
	"strings"
	"sync"
)

// Cache is the reconciled view of all known sessions. It is the
// single source of truth: commands and the bridge server read from
// it, the API client inserts into it after creates, and the refresher
// merges remote listings into it.
//
// Safe for concurrent use. Every mutation bumps a sequence number so
// that a merge computed from a listing taken at sequence s can be
// discarded when the cache has moved past s (see [Cache.MergeAt]).
type Cache struct {
	mu       sync.Mutex
	sessions map[string]Session

	// listed records IDs that have appeared in at least one remote
	// listing. A session absent from a non-empty listing is removed
	// only if it was listed before: the remote once knew it, so its
	// absence now is authoritative. Unlisted sessions are local-only
	// creations the remote has not indexed yet and survive the merge.
	listed map[string]struct{}

	seq uint64
}

// NewCache returns an empty cache ready for use.
func NewCache() *Cache {
	return &Cache{
		sessions: make(map[string]Session),
		listed:   make(map[string]struct{}),
	}
}

// Insert adds or replaces a session. Used for optimistic registration
// immediately after a successful create, before any listing reports
// the session.
func (c *Cache) Insert(s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[s.ID] = s
	c.seq++
}

// Remove deletes a session. Used after a successful cancel. No-op if
// the session is not present.
func (c *Cache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sessions[id]; !ok {
		return
	}
	delete(c.sessions, id)
	delete(c.listed, id)
	c.seq++
}

// Get returns a session by ID. The second return value is false if
// the session is not present.
func (c *Cache) Get(id string) (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[id]
	return s, ok
}

// List returns all sessions newest-first (by CreatedAt, ties broken
// by ID). The returned slice is owned by the caller.
func (c *Cache) List() []Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		result = append(result, s)
	}
	SortNewestFirst(result)
	return result
}

// Len returns the number of cached sessions.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Seq returns the current sequence number. Capture it before a list
// call and pass it to [Cache.MergeAt] to discard the merge if the
// cache changed underneath the in-flight listing.
func (c *Cache) Seq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Merge reconciles a remote listing into the cache:
//
//  1. An empty listing never wipes a non-empty cache. The remote
//     briefly reports no sessions right after creation and during
//     recovery; treating that as truth would discard everything.
//  2. Cached sessions absent from the listing are preserved if the
//     remote has never listed them (local-only, not yet indexed), and
//     removed if it has (the remote once knew the session, so its
//     absence is authoritative).
//  3. Listed sessions replace their cached versions wholesale.
//
// Merging the same listing twice yields the same state.
func (c *Cache) Merge(remote []Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mergeLocked(remote)
}

// MergeAt applies Merge only if the cache still has sequence seq.
// Returns false, leaving the cache untouched, when a mutation landed
// after the listing was captured: the listing is stale and the next
// refresh tick will reconcile instead.
func (c *Cache) MergeAt(seq uint64, remote []Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq != seq {
		return false
	}
	c.mergeLocked(remote)
	return true
}

func (c *Cache) mergeLocked(remote []Session) {
	if len(remote) == 0 && len(c.sessions) > 0 {
		return
	}

	next := make(map[string]Session, len(remote))
	for _, s := range remote {
		next[s.ID] = s
		c.listed[s.ID] = struct{}{}
	}
	for id, s := range c.sessions {
		if _, inRemote := next[id]; inRemote {
			continue
		}
		if _, wasListed := c.listed[id]; wasListed {
			continue
		}
		next[id] = s
	}

	c.sessions = next
	c.seq++
}

// SortNewestFirst orders sessions by CreatedAt descending, ties
// broken by ID, in place.
func SortNewestFirst(sessions []Session) {
	slices.SortFunc(sessions, func(a, b Session) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
