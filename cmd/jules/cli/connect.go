// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/bureau-foundation/jules/lib/config"
	"github.com/bureau-foundation/jules/lib/jules"
	"github.com/bureau-foundation/jules/lib/session"
)

// Connect loads the configuration and creates an authenticated
// session service client from it. Used by every command that talks
// to the remote service.
//
// A missing API key is not an error here: the client raises an
// *jules.AuthError with remediation guidance on first use, which
// reads better at the point of failure than at startup.
func Connect(logger *slog.Logger) (*jules.Client, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, Validation("loading configuration: %w", err)
	}

	client, err := jules.NewClient(jules.Config{
		BaseURL:           cfg.API.BaseURL,
		APIKey:            cfg.APIKey(),
		MaxAttempts:       cfg.API.MaxAttempts,
		BaseDelay:         cfg.API.BaseDelayDuration(),
		AttemptTimeout:    cfg.API.AttemptTimeoutDuration(),
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Logger:            logger,
	})
	if err != nil {
		return nil, nil, Internal("creating session client: %w", err)
	}
	return client, cfg, nil
}

// LoadCache returns the session cache restored from the configured
// snapshot file. A missing snapshot is normal (first run, cleaned
// state dir) and yields an empty cache; an unreadable or corrupt one
// is logged and likewise yields an empty cache, because the remote
// listing is authoritative and will repopulate it.
func LoadCache(cfg *config.Config, logger *slog.Logger) *session.Cache {
	cache := session.NewCache()
	if err := cache.Load(cfg.SnapshotPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("session snapshot unreadable, starting empty",
			"path", cfg.SnapshotPath(),
			"error", err,
		)
	}
	return cache
}

// SaveCache persists the cache to the configured snapshot file.
// Failure is logged, not returned: the operation that changed the
// cache already succeeded remotely, and losing the local snapshot
// only delays visibility until the next listing.
func SaveCache(cache *session.Cache, cfg *config.Config, logger *slog.Logger) {
	if err := cache.Save(cfg.SnapshotPath()); err != nil {
		logger.Warn("saving session snapshot failed",
			"path", cfg.SnapshotPath(),
			"error", err,
		)
	}
}
