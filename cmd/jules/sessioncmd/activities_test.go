// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sessioncmd

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestSessionActivities(t *testing.T) {
	state := newAPITestState()
	state.addActivity("sess-1", "PLAN_GENERATED", "Outlined a three-step fix", time.Now().Add(-20*time.Minute))
	state.addActivity("sess-1", "PROGRESS_UPDATE", "Adjusted the retry timeout", time.Now().Add(-10*time.Minute))
	startTestServer(t, state)

	cmd := activitiesCommand()
	if err := cmd.FlagSet().Parse(nil); err != nil {
		t.Fatalf("flag parse: %v", err)
	}
	output, err := captureOutput(t, func() error {
		return cmd.Run(context.Background(), []string{"sess-1"}, testLogger())
	})
	if err != nil {
		t.Fatalf("activities: %v", err)
	}

	if !strings.Contains(output, "Outlined a three-step fix") {
		t.Errorf("output missing first activity:\n%s", output)
	}
	if !strings.Contains(output, "Adjusted the retry timeout") {
		t.Errorf("output missing second activity:\n%s", output)
	}
	if !strings.Contains(output, "[planning]") {
		t.Errorf("output missing planning category:\n%s", output)
	}
}

func TestSessionActivitiesEmpty(t *testing.T) {
	state := newAPITestState()
	startTestServer(t, state)

	cmd := activitiesCommand()
	if err := cmd.FlagSet().Parse(nil); err != nil {
		t.Fatalf("flag parse: %v", err)
	}
	output, err := captureOutput(t, func() error {
		return cmd.Run(context.Background(), []string{"sess-quiet"}, testLogger())
	})
	if err != nil {
		t.Fatalf("activities on empty log: %v", err)
	}
	if strings.TrimSpace(output) != "" {
		t.Errorf("expected no stdout for empty log, got %q", output)
	}
}

func TestSessionActivitiesJSON(t *testing.T) {
	state := newAPITestState()
	state.addActivity("sess-1", "PLAN_GENERATED", "Outlined a fix", time.Now())
	startTestServer(t, state)

	cmd := activitiesCommand()
	if err := cmd.FlagSet().Parse([]string{"--json"}); err != nil {
		t.Fatalf("flag parse: %v", err)
	}
	output, err := captureOutput(t, func() error {
		return cmd.Run(context.Background(), []string{"sess-1"}, testLogger())
	})
	if err != nil {
		t.Fatalf("activities --json: %v", err)
	}
	if !strings.Contains(output, `"Outlined a fix"`) {
		t.Errorf("JSON output missing activity content:\n%s", output)
	}
}

func TestSessionActivitiesRequiresArgument(t *testing.T) {
	cmd := activitiesCommand()
	err := cmd.Run(context.Background(), nil, testLogger())
	if err == nil {
		t.Fatal("expected error for missing session ID")
	}
	if !strings.Contains(err.Error(), "session ID") {
		t.Errorf("error = %q, want it to mention the session ID", err)
	}
}
