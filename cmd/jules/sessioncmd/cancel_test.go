// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sessioncmd

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/jules/lib/session"
)

func TestCancelSession(t *testing.T) {
	state := newAPITestState()
	state.addSession("sess-1", "IN_PROGRESS", "Fix login bug", "main", time.Now())
	startTestServer(t, state)

	cmd := cancelCommand()
	if err := cmd.FlagSet().Parse(nil); err != nil {
		t.Fatalf("flag parse: %v", err)
	}
	output, err := captureOutput(t, func() error {
		return cmd.Run(context.Background(), []string{"sess-1"}, testLogger())
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if !strings.Contains(output, "Cancelled session sess-1") {
		t.Errorf("output = %q, want cancellation confirmation", output)
	}

	state.mu.Lock()
	cancelled := append([]string(nil), state.cancelled...)
	state.mu.Unlock()
	if len(cancelled) != 1 || cancelled[0] != "sess-1" {
		t.Errorf("service received cancels %v, want [sess-1]", cancelled)
	}
}

func TestCancelSessionRemovesFromCache(t *testing.T) {
	state := newAPITestState()
	state.addSession("sess-1", "IN_PROGRESS", "Fix login bug", "main", time.Now())
	stateDir := startTestServer(t, state)

	seedSnapshot(t, stateDir,
		session.Session{ID: "sess-1", State: session.StateRunning, CreatedAt: time.Now()},
		session.Session{ID: "sess-2", State: session.StateRunning, CreatedAt: time.Now()},
	)

	cmd := cancelCommand()
	if err := cmd.FlagSet().Parse(nil); err != nil {
		t.Fatalf("flag parse: %v", err)
	}
	if _, err := captureOutput(t, func() error {
		return cmd.Run(context.Background(), []string{"sess-1"}, testLogger())
	}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	cache := loadSnapshot(t, stateDir)
	if _, exists := cache.Get("sess-1"); exists {
		t.Error("cancelled session still in snapshot")
	}
	if _, exists := cache.Get("sess-2"); !exists {
		t.Error("unrelated session removed from snapshot")
	}
}

func TestCancelSessionUnknown(t *testing.T) {
	state := newAPITestState()
	startTestServer(t, state)

	cmd := cancelCommand()
	if err := cmd.FlagSet().Parse(nil); err != nil {
		t.Fatalf("flag parse: %v", err)
	}
	_, err := captureOutput(t, func() error {
		return cmd.Run(context.Background(), []string{"sess-nope"}, testLogger())
	})
	if err == nil {
		t.Fatal("expected error for unknown session")
	}
	if !strings.Contains(err.Error(), "cancelling session sess-nope") {
		t.Errorf("error = %q, want it to name the session", err)
	}
}

func TestCancelSessionRequiresArgument(t *testing.T) {
	cmd := cancelCommand()
	err := cmd.Run(context.Background(), nil, testLogger())
	if err == nil {
		t.Fatal("expected error for missing session ID")
	}
	if !strings.Contains(err.Error(), "session ID") {
		t.Errorf("error = %q, want it to mention the session ID", err)
	}
}
