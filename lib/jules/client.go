// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jules

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bureau-foundation/jules/lib/clock"
	"github.com/bureau-foundation/jules/lib/netutil"
	"github.com/bureau-foundation/jules/lib/retry"
	"github.com/bureau-foundation/jules/lib/version"
)

// defaultBaseURL is the base URL for the public Jules session API.
const defaultBaseURL = "https://jules.googleapis.com/v1alpha"

// apiKeyHeader carries the API key on every request.
const apiKeyHeader = "X-Goog-Api-Key"

// defaultPageSize bounds session listings when the caller does not
// choose one.
const defaultPageSize = 100

// Config holds configuration for creating a session API Client.
type Config struct {
	// BaseURL is the root URL for API requests. Defaults to the
	// public Jules endpoint. Must use HTTPS unless it points at a
	// loopback address.
	BaseURL string

	// APIKey authenticates requests. May be empty at construction
	// time: operations fail with an *AuthError before any network
	// I/O when no key is present, so a bridge server can start
	// without credentials and report the problem per call.
	APIKey string

	// HTTPClient is used for all HTTP requests. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Clock provides time operations for retry backoff and request
	// pacing. Defaults to clock.Real().
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// MaxAttempts, BaseDelay, and AttemptTimeout tune the retry
	// envelope for reads and cancels. Zero values take the retry
	// package defaults (3 attempts, 1s base delay, 30s per attempt).
	MaxAttempts    int
	BaseDelay      time.Duration
	AttemptTimeout time.Duration

	// RequestsPerSecond enables client-side request pacing when
	// positive. Zero disables pacing.
	RequestsPerSecond float64

	// UserAgent overrides the default "jules/<version>" user agent.
	UserAgent string
}

// Client is a typed Jules session API client with API key
// authentication, bounded retry for idempotent operations, optional
// request pacing, and structured error mapping.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	clock      clock.Clock
	logger     *slog.Logger
	policy     retry.Policy
	pacer      *rate.Limiter
	userAgent  string
}

// NewClient creates a session API client from the given
// configuration. Returns an error for a non-HTTPS base URL, with a
// loopback exception matching config validation. A missing API key is
// not a construction error; see [Config.APIKey].
func NewClient(config Config) (*Client, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	if !strings.HasPrefix(baseURL, "https://") && !netutil.IsLoopbackURL(baseURL) {
		return nil, fmt.Errorf("jules: API client requires HTTPS (got %q); plain http is allowed only for loopback", baseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = "jules/" + version.Short()
	}

	var pacer *rate.Limiter
	if config.RequestsPerSecond > 0 {
		pacer = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     config.APIKey,
		httpClient: httpClient,
		clock:      clk,
		logger:     logger,
		policy: retry.Policy{
			MaxAttempts:    config.MaxAttempts,
			BaseDelay:      config.BaseDelay,
			AttemptTimeout: config.AttemptTimeout,
			Retryable:      IsRetryable,
			Clock:          clk,
			Logger:         logger,
		},
		pacer:     pacer,
		userAgent: userAgent,
	}, nil
}

// requireAuth fails fast when no API key is configured. Checked at
// the top of every operation so no request is attempted, and no retry
// budget burned, without credentials.
func (c *Client) requireAuth() error {
	if c.apiKey == "" {
		return &AuthError{Hint: "set JULES_API_KEY or api.key in the config file"}
	}
	return nil
}

// do executes one HTTP request and returns the response body. Failures
// that never produced a response come back as *TransportError; non-2xx
// responses as *APIError with a sanitized message. One call is one
// attempt; retry policy belongs to the callers.
func (c *Client) do(ctx context.Context, method, path string, requestBody any) ([]byte, error) {
	operation := method + " " + requestPath(path)

	if c.pacer != nil {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("jules: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("jules: creating request: %w", err)
	}
	request.Header.Set(apiKeyHeader, c.apiKey)
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", c.userAgent)
	if bodyReader != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, &TransportError{Op: operation, Err: err}
	}
	defer response.Body.Close()

	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("jules: reading response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		detail := strings.TrimSpace(string(body))
		c.logger.Debug("session service error",
			"operation", operation,
			"status", response.StatusCode,
			"detail", detail,
		)
		return nil, &APIError{
			StatusCode: response.StatusCode,
			Message:    statusMessage(response.StatusCode),
			Detail:     detail,
		}
	}

	return body, nil
}

// requestPath strips the query string for operation labels so logged
// operations stay stable across page sizes.
func requestPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
