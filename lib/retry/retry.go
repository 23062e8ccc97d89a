// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package retry provides a bounded retry envelope for transient
// failures when talking to the remote session service. Network blips,
// rate limits, and brief server outages resolve within a few seconds;
// retrying with exponential backoff rides them out without blocking
// the caller for long.
//
// The envelope is deliberately small: a fixed number of attempts, a
// per-attempt timeout, and a caller-supplied predicate deciding which
// errors are worth retrying. Everything else (error classification,
// request construction) belongs to the caller.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bureau-foundation/jules/lib/clock"
)

const (
	// DefaultMaxAttempts is the number of times Do tries before giving
	// up. Three attempts with exponential backoff (1s, 2s) covers brief
	// rate limits and server hiccups without stalling interactive use.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the wait after the first failed attempt. Each
	// subsequent wait doubles.
	DefaultBaseDelay = 1 * time.Second

	// DefaultAttemptTimeout bounds a single attempt. A hung connection
	// counts as a failed attempt rather than blocking the envelope.
	DefaultAttemptTimeout = 30 * time.Second
)

// Policy configures the retry envelope. The zero value is usable: it
// resolves to the package defaults with no retryable errors beyond
// per-attempt timeouts.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the
	// first. Defaults to DefaultMaxAttempts. Values below 1 are
	// treated as 1.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt. The wait before
	// attempt n+1 is BaseDelay * 2^(n-1). Defaults to DefaultBaseDelay.
	BaseDelay time.Duration

	// AttemptTimeout bounds each individual attempt. The operation's
	// context is derived with this deadline. Defaults to
	// DefaultAttemptTimeout; negative disables the per-attempt
	// deadline.
	AttemptTimeout time.Duration

	// Retryable reports whether a failed attempt should be retried.
	// A nil predicate retries nothing. Timeouts of the per-attempt
	// deadline are retried regardless, as long as the caller's own
	// context is still live.
	Retryable func(error) bool

	// Clock provides time operations. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives a warning per retried failure. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.AttemptTimeout == 0 {
		p.AttemptTimeout = DefaultAttemptTimeout
	}
	if p.Clock == nil {
		p.Clock = clock.Real()
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	return p
}

// Do runs fn under the policy's retry envelope. Each attempt gets a
// context derived from ctx with the per-attempt timeout. On success
// the result is returned immediately. Non-retryable failures are
// returned immediately. When all attempts fail, the error from the
// last attempt is returned, not a synthetic "retries exhausted" error,
// so the caller sees what the service actually said.
//
// Cancelling ctx stops the envelope between attempts and during
// backoff waits.
func Do[T any](ctx context.Context, policy Policy, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	policy = policy.withDefaults()

	var zero T
	var lastError error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := policy.BaseDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-policy.Clock.After(backoff):
			}
		}

		result, err := attemptOnce(ctx, policy.AttemptTimeout, fn)
		if err == nil {
			return result, nil
		}
		lastError = err

		if !policy.retryable(ctx, err) {
			return zero, err
		}

		policy.Logger.Warn("transient failure, retrying",
			"operation", operation,
			"attempt", attempt+1,
			"max_attempts", policy.MaxAttempts,
			"error", err,
		)
	}
	return zero, lastError
}

// attemptOnce runs fn with the per-attempt deadline applied.
func attemptOnce[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}

// retryable reports whether err warrants another attempt. A
// per-attempt deadline expiry is transient when the caller's own
// context is still live: the next attempt gets a fresh deadline.
func (p Policy) retryable(parent context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return true
	}
	if parent.Err() != nil {
		return false
	}
	return p.Retryable != nil && p.Retryable(err)
}
