// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jules

import (
	"strings"

	"github.com/bureau-foundation/jules/lib/session"
)

// mapState converts the remote state vocabulary to the local
// five-state model. Matching is case-insensitive and treats "-" and
// "_" as equivalent. Unknown values map to pending: a session in a
// state this client does not know about has not observably started
// or finished, and must never be reported as failed or make the
// listing error.
func mapState(remote string) session.State {
	normalized := strings.ToLower(strings.TrimSpace(remote))
	normalized = strings.ReplaceAll(normalized, "-", "_")

	switch normalized {
	case "queued", "pending", "state_unspecified", "":
		return session.StatePending
	case "planning", "awaiting_plan_approval", "waiting_for_approval", "in_progress", "paused":
		return session.StateRunning
	case "completed", "finished", "succeeded":
		return session.StateCompleted
	case "failed", "error":
		return session.StateFailed
	case "cancelled", "canceled":
		return session.StateCancelled
	default:
		return session.StatePending
	}
}

// mapCategory converts a remote activity type to the local category.
// The remote labels planning, review, and completion explicitly;
// everything else is progress while executing.
func mapCategory(remote string) session.Category {
	normalized := strings.ToLower(strings.TrimSpace(remote))
	normalized = strings.ReplaceAll(normalized, "-", "_")

	switch normalized {
	case "planning", "plan", "plan_generated":
		return session.CategoryPlanning
	case "reviewing", "review", "review_requested":
		return session.CategoryReviewing
	case "completed", "session_completed", "finished":
		return session.CategoryCompleted
	default:
		return session.CategoryExecuting
	}
}
