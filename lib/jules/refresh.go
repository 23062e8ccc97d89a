// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jules

import (
	"context"
	"log/slog"
	"time"

	"github.com/bureau-foundation/jules/lib/clock"
	"github.com/bureau-foundation/jules/lib/session"
)

// defaultRefreshInterval spaces periodic session listings. Sessions
// run for minutes, so half-minute freshness is plenty.
const defaultRefreshInterval = 30 * time.Second

// Refresher keeps a cache reconciled with the remote listing. One
// goroutine runs [Refresher.Run]; everything else reads the cache.
type Refresher struct {
	// Client performs the listings. Required.
	Client *Client

	// Cache receives the merged listings. Required.
	Cache *session.Cache

	// Interval between refreshes. Defaults to
	// defaultRefreshInterval.
	Interval time.Duration

	// PageSize for listings. Non-positive uses the client default.
	PageSize int

	// Clock drives the ticker. Defaults to the client's clock.
	Clock clock.Clock

	// Logger defaults to the client's logger.
	Logger *slog.Logger
}

// Run refreshes the cache on a ticker until ctx is cancelled. A
// refresh that fails is logged and the loop continues; the cache
// keeps serving its last reconciled view. Refreshes run inline in
// the loop, so a tick that fires mid-refresh is dropped rather than
// queued.
func (r *Refresher) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	clk := r.Clock
	if clk == nil {
		clk = r.Client.clock
	}
	logger := r.Logger
	if logger == nil {
		logger = r.Client.logger
	}

	ticker := clk.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.RefreshOnce(ctx); err != nil {
				logger.Warn("session refresh failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// RefreshOnce lists sessions and merges them into the cache with
// sequence guarding: a listing that raced with a local mutation is
// discarded, and the next tick reconciles instead. Commands that want
// a fresh view before reading call this directly.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	seq := r.Cache.Seq()
	sessions, err := r.Client.ListSessions(ctx, r.PageSize)
	if err != nil {
		return err
	}

	if !r.Cache.MergeAt(seq, sessions) {
		logger := r.Logger
		if logger == nil {
			logger = r.Client.logger
		}
		logger.Debug("discarding stale session listing", "captured_seq", seq)
	}
	return nil
}
