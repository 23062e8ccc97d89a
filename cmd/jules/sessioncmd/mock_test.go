// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sessioncmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/jules/lib/session"
)

// apiTestState provides a mock session service for session CLI tests.
// It serves the listing, activities, diff, and cancel endpoints and
// records cancels for verification.
type apiTestState struct {
	mu sync.Mutex

	// sessions are the remote session objects returned by the listing,
	// in wire shape.
	sessions []map[string]any

	// activities maps session ID to wire-shape activity entries.
	activities map[string][]map[string]any

	// diffs maps session ID to a wire-shape diff response.
	diffs map[string]map[string]any

	// cancelled records the session IDs that received a cancel call.
	cancelled []string

	// listFails makes the listing endpoint return 500, simulating a
	// remote outage.
	listFails bool
}

func newAPITestState() *apiTestState {
	return &apiTestState{
		activities: make(map[string][]map[string]any),
		diffs:      make(map[string]map[string]any),
	}
}

// addSession registers a remote session for the listing endpoint.
func (s *apiTestState) addSession(id, state, title, branch string, created time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = append(s.sessions, map[string]any{
		"name":       "sessions/" + id,
		"id":         id,
		"title":      title,
		"state":      state,
		"createTime": created.UTC().Format(time.RFC3339),
		"updateTime": created.UTC().Format(time.RFC3339),
		"sourceContext": map[string]any{
			"source": "sources/github/octo/demo",
			"githubRepoContext": map[string]any{
				"startingBranch": branch,
			},
		},
	})
}

// addActivity registers an activity entry for a session.
func (s *apiTestState) addActivity(sessionID, activityType, description string, created time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activities[sessionID] = append(s.activities[sessionID], map[string]any{
		"name":        fmt.Sprintf("sessions/%s/activities/act-%d", sessionID, len(s.activities[sessionID])+1),
		"description": description,
		"type":        activityType,
		"createTime":  created.UTC().Format(time.RFC3339),
	})
}

// setDiff registers the diff response for a session.
func (s *apiTestState) setDiff(sessionID, branch string, files ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if files == nil {
		files = []map[string]any{}
	}
	s.diffs[sessionID] = map[string]any{
		"branch": branch,
		"commit": "abc123def",
		"files":  files,
	}
}

func (s *apiTestState) handler() http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		path := request.URL.Path

		s.mu.Lock()
		defer s.mu.Unlock()

		switch {
		case request.Method == http.MethodGet && path == "/sessions":
			if s.listFails {
				http.Error(writer, `{"error":"internal"}`, http.StatusInternalServerError)
				return
			}
			writer.Header().Set("Content-Type", "application/json")
			json.NewEncoder(writer).Encode(map[string]any{"sessions": s.sessions})

		case request.Method == http.MethodPost && strings.HasSuffix(path, ":cancel"):
			id := strings.TrimSuffix(strings.TrimPrefix(path, "/sessions/"), ":cancel")
			if !s.hasSession(id) {
				http.Error(writer, `{"error":"session not found"}`, http.StatusNotFound)
				return
			}
			s.cancelled = append(s.cancelled, id)
			writer.Header().Set("Content-Type", "application/json")
			fmt.Fprint(writer, `{}`)

		case request.Method == http.MethodGet && strings.HasSuffix(path, "/activities"):
			id := strings.TrimSuffix(strings.TrimPrefix(path, "/sessions/"), "/activities")
			entries := s.activities[id]
			if entries == nil {
				entries = []map[string]any{}
			}
			writer.Header().Set("Content-Type", "application/json")
			json.NewEncoder(writer).Encode(map[string]any{"activities": entries})

		case request.Method == http.MethodGet && strings.HasSuffix(path, "/diff"):
			id := strings.TrimSuffix(strings.TrimPrefix(path, "/sessions/"), "/diff")
			diff, exists := s.diffs[id]
			if !exists {
				http.Error(writer, `{"error":"diff not found"}`, http.StatusNotFound)
				return
			}
			writer.Header().Set("Content-Type", "application/json")
			json.NewEncoder(writer).Encode(diff)

		default:
			http.Error(writer, fmt.Sprintf(`{"error":"unknown: %s %s"}`, request.Method, path), http.StatusNotFound)
		}
	})
}

// hasSession reports whether id is in the listing. Callers hold mu.
func (s *apiTestState) hasSession(id string) bool {
	for _, remote := range s.sessions {
		if remote["id"] == id {
			return true
		}
	}
	return false
}

// startTestServer starts the mock session service and points the CLI
// configuration at it via JULES_CONFIG and JULES_API_KEY. Returns the
// state directory, where the session snapshot lives.
func startTestServer(t *testing.T, state *apiTestState) string {
	t.Helper()

	server := httptest.NewServer(state.handler())
	t.Cleanup(server.Close)

	stateDir := t.TempDir()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configYAML := fmt.Sprintf("api:\n  base_url: %s\n  max_attempts: 1\npaths:\n  state: %s\n", server.URL, stateDir)
	if err := os.WriteFile(configPath, []byte(configYAML), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	t.Setenv("JULES_CONFIG", configPath)
	t.Setenv("JULES_API_KEY", "test-key")

	return stateDir
}

// seedSnapshot writes a session snapshot into the state directory, as
// if a previous command had cached these sessions.
func seedSnapshot(t *testing.T, stateDir string, sessions ...session.Session) {
	t.Helper()

	cache := session.NewCache()
	for _, s := range sessions {
		cache.Insert(s)
	}
	if err := cache.Save(filepath.Join(stateDir, "sessions.snapshot")); err != nil {
		t.Fatalf("seeding snapshot: %v", err)
	}
}

// loadSnapshot reads the snapshot back for assertions.
func loadSnapshot(t *testing.T, stateDir string) *session.Cache {
	t.Helper()

	cache := session.NewCache()
	if err := cache.Load(filepath.Join(stateDir, "sessions.snapshot")); err != nil {
		t.Fatalf("loading snapshot: %v", err)
	}
	return cache
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureOutput runs fn while capturing everything written to stdout.
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	saved := os.Stdout
	os.Stdout = writer

	outputChan := make(chan string, 1)
	go func() {
		data, _ := io.ReadAll(reader)
		outputChan <- string(data)
	}()

	runErr := fn()

	os.Stdout = saved
	writer.Close()
	output := <-outputChan
	reader.Close()

	return output, runErr
}
