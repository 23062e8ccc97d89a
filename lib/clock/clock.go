// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for the bridge's backoff, pacing, and
// polling logic. Production code uses [Real]; tests use [Fake] to
// drive retry schedules and refresh ticks deterministically instead
// of sleeping.
package clock

import "time"

// Clock provides the time operations the bridge schedules against.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time after
	// duration d elapses.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker delivering ticks every d. Panics if
	// d <= 0, matching time.NewTicker.
	NewTicker(d time.Duration) *Ticker
}

// Ticker wraps a periodic tick channel with stop/reset controls. It
// mirrors the shape of time.Ticker so callers can switch between the
// real and fake implementations without code changes.
type Ticker struct {
	C <-chan time.Time

	stopFunc  func()
	resetFunc func(time.Duration)
}

// Stop turns off the ticker. Stop does not close C.
func (t *Ticker) Stop() { t.stopFunc() }

// Reset changes the ticker interval to d. The next tick arrives after
// the new interval.
func (t *Ticker) Reset(d time.Duration) { t.resetFunc(d) }
