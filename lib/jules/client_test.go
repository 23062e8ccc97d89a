// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jules

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newTestClient creates a Client backed by the given TLS test server.
func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

// emptyListing responds to any request with an empty session listing.
func emptyListing() http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		writer.Write([]byte(`{"sessions":[]}`))
	}
}

func TestNewClientHTTPSEnforcement(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "http://jules.googleapis.com"})
	if err == nil {
		t.Fatal("expected error for HTTP URL")
	}
	want := `jules: API client requires HTTPS (got "http://jules.googleapis.com"); plain http is allowed only for loopback`
	if got := err.Error(); got != want {
		t.Errorf("unexpected error: %s", got)
	}
}

func TestNewClientAllowsLoopbackHTTP(t *testing.T) {
	for _, baseURL := range []string{
		"http://localhost:8080/v1alpha",
		"http://127.0.0.1:9999",
		"http://[::1]:8080",
	} {
		if _, err := NewClient(Config{BaseURL: baseURL}); err != nil {
			t.Errorf("NewClient(%q): %v", baseURL, err)
		}
	}
}

func TestNewClientTrimsTrailingSlash(t *testing.T) {
	var requestPath string
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		requestPath = request.URL.Path
		writer.Write([]byte(`{"sessions":[]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{
		BaseURL:    server.URL + "/",
		APIKey:     "test-key",
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.ListSessions(context.Background(), 10); err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if requestPath != "/sessions" {
		t.Errorf("request path = %q, want %q", requestPath, "/sessions")
	}
}

func TestClientHeaderInjection(t *testing.T) {
	var apiKey, userAgent, accept string
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		apiKey = request.Header.Get("X-Goog-Api-Key")
		userAgent = request.Header.Get("User-Agent")
		accept = request.Header.Get("Accept")
		writer.Write([]byte(`{"sessions":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	if _, err := client.ListSessions(context.Background(), 10); err != nil {
		t.Fatalf("ListSessions: %v", err)
	}

	if apiKey != "test-key" {
		t.Errorf("X-Goog-Api-Key = %q, want %q", apiKey, "test-key")
	}
	if !strings.HasPrefix(userAgent, "jules/") {
		t.Errorf("User-Agent = %q, want jules/<version>", userAgent)
	}
	if accept != "application/json" {
		t.Errorf("Accept = %q, want application/json", accept)
	}
}

func TestMissingAPIKeyFailsBeforeNetwork(t *testing.T) {
	requestCount := 0
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		requestCount++
		writer.Write([]byte(`{}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient without key: %v", err)
	}

	ctx := context.Background()

	_, err = client.CreateSession(ctx, CreateSessionRequest{Owner: "octo", Repo: "hello", Prompt: "fix bug"})
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("CreateSession error = %v, want *AuthError", err)
	}
	if !strings.Contains(authErr.Hint, "JULES_API_KEY") {
		t.Errorf("AuthError hint = %q, want it to name JULES_API_KEY", authErr.Hint)
	}

	if _, err := client.ListSessions(ctx, 10); !IsUnauthenticated(err) {
		t.Errorf("ListSessions error = %v, want unauthenticated", err)
	}
	if err := client.CancelSession(ctx, "abc123"); !IsUnauthenticated(err) {
		t.Errorf("CancelSession error = %v, want unauthenticated", err)
	}
	if _, err := client.SessionDiff(ctx, "abc123"); !IsUnauthenticated(err) {
		t.Errorf("SessionDiff error = %v, want unauthenticated", err)
	}
	if activities := client.Activities(ctx, "abc123"); len(activities) != 0 {
		t.Errorf("Activities without key = %d entries, want 0", len(activities))
	}

	if requestCount != 0 {
		t.Errorf("requests reached the server = %d, want 0 (auth must fail before network I/O)", requestCount)
	}
}

func TestSanitizedErrorsRetainDetailInternally(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusBadRequest)
		writer.Write([]byte(`{"error":{"message":"internal field validation exploded at line 400"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.ListSessions(context.Background(), 10)
	if err == nil {
		t.Fatal("expected error for 400 response")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError in chain", err)
	}
	if strings.Contains(err.Error(), "exploded") {
		t.Errorf("surfaced error leaked the raw body: %q", err.Error())
	}
	if !strings.Contains(apiErr.Detail, "exploded") {
		t.Errorf("Detail = %q, want it to retain the raw body", apiErr.Detail)
	}
}
