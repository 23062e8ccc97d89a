// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jules

import (
	"errors"
	"fmt"
)

// APIError represents a non-2xx response from the session service.
// Message is a fixed, status-keyed description safe to surface to
// users and across the tool protocol; the raw response body is kept
// in Detail for logs and diagnostics only and never appears in
// Error().
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Message is the sanitized error description.
	Message string

	// Detail is the raw response body. Internal: log it, never
	// surface it.
	Detail string
}

func (err *APIError) Error() string {
	return fmt.Sprintf("jules: HTTP %d: %s", err.StatusCode, err.Message)
}

// RepoAccessError means the session service cannot see the repository
// a create referred to: it does not exist, or the Jules GitHub app is
// not installed for it. Returned instead of a generic 404 so callers
// can name the repository in remediation guidance.
type RepoAccessError struct {
	Owner string
	Repo  string
}

func (err *RepoAccessError) Error() string {
	return fmt.Sprintf("jules: repository %s/%s is not accessible to Jules (is the Jules GitHub app installed for it?)", err.Owner, err.Repo)
}

// AuthError means no usable API credentials. Raised before any
// network I/O when the key is absent. Hint names the remediation.
type AuthError struct {
	Hint string
}

func (err *AuthError) Error() string {
	return "jules: not authenticated: " + err.Hint
}

// TransportError wraps a failure that never produced an HTTP
// response: DNS, dial, TLS, or timeout. Always worth retrying.
type TransportError struct {
	// Op labels the request, e.g. "GET /sessions".
	Op  string
	Err error
}

func (err *TransportError) Error() string {
	return fmt.Sprintf("jules: %s: %v", err.Op, err.Err)
}

func (err *TransportError) Unwrap() error {
	return err.Err
}

// IsNotFound reports whether err is a 404 from the session service,
// including the distinguished repository-access form.
func IsNotFound(err error) bool {
	var repoErr *RepoAccessError
	if errors.As(err, &repoErr) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

// IsUnauthenticated reports whether err means missing or rejected
// credentials.
func IsUnauthenticated(err error) bool {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 401
}

// IsRateLimited reports whether err is a 429 from the session service.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 429
}

// IsRetryable reports whether err is transient: a transport-level
// failure, 429 (rate limit), or 503 (service unavailable). Everything
// else, other 5xx included, is terminal. A 500 repeats identically on
// every attempt, and the service uses 503 for "try again".
func IsRetryable(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode == 503
	}
	return false
}

// statusMessage returns the fixed sanitized message for an HTTP
// status. Raw bodies never leak into these.
func statusMessage(status int) string {
	switch status {
	case 400:
		return "the session service rejected the request"
	case 401:
		return "the session service rejected the API credentials"
	case 403:
		return "the API credentials lack permission for this operation"
	case 404:
		return "the requested resource was not found"
	case 429:
		return "the session service is rate limiting requests"
	case 503:
		return "the session service is temporarily unavailable"
	default:
		if status >= 500 {
			return "the session service reported an internal error"
		}
		return "the session service returned an unexpected response"
	}
}
