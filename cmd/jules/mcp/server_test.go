// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/bureau-foundation/jules/cmd/jules/cli"
	"github.com/bureau-foundation/jules/lib/jules"
)

// testResponse is a JSON-RPC 2.0 response for test assertions. Result
// is kept as raw JSON so each test can unmarshal it into the expected type.
type testResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *testRPCError   `json:"error"`
}

type testRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// testCommandTree returns a command tree for MCP server tests. Each
// call creates fresh parameter variables, so tests are independent.
func testCommandTree() *cli.Command {
	type echoParams struct {
		Message string `json:"message" desc:"message to echo" required:"true"`
	}
	type failParams struct {
		Reason string `json:"reason" flag:"reason" desc:"failure reason" default:"boom"`
	}
	type formatParams struct {
		cli.JSONOutput
		Value string `json:"value" flag:"value" desc:"value to print"`
	}
	type formatOutput struct {
		Value string `json:"value" desc:"the value"`
	}
	type emptyParams struct{}

	var echoP echoParams
	var failP failParams
	var formatP formatParams
	var panicP emptyParams
	var hiddenP emptyParams

	return &cli.Command{
		Name: "test",
		Subcommands: []*cli.Command{
			{
				Name:        "echo",
				ToolName:    "test_echo",
				Summary:     "Echo a message",
				Description: "Echo the provided message to stdout.",
				Params:      func() any { return &echoP },
				Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
					fmt.Println(echoP.Message)
					return nil
				},
			},
			{
				Name:     "fail",
				ToolName: "test_fail",
				Summary:  "Always fails with a reason",
				Params:   func() any { return &failP },
				Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
					fmt.Print("partial")
					return cli.Transient("intentional failure: %s", failP.Reason)
				},
			},
			{
				Name:     "format",
				ToolName: "test_format",
				Summary:  "Conditional JSON output",
				Params:   func() any { return &formatP },
				Output:   func() any { return &formatOutput{} },
				Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
					if done, err := formatP.EmitJSON(formatOutput{Value: formatP.Value}); done {
						return err
					}
					fmt.Printf("VALUE: %s", formatP.Value)
					return nil
				},
			},
			{
				Name:     "panic",
				ToolName: "test_panic",
				Summary:  "Panics during execution",
				Params:   func() any { return &panicP },
				Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
					panic("deliberate test panic")
				},
			},
			{
				// Params and Run but no ToolName: CLI-only.
				Name:    "hidden",
				Summary: "Not exposed over MCP",
				Params:  func() any { return &hiddenP },
				Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
					return nil
				},
			},
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// initMessages returns the initialize request and initialized
// notification that start every MCP session.
func initMessages() []map[string]any {
	return []map[string]any{
		{
			"jsonrpc": "2.0",
			"id":      0,
			"method":  "initialize",
			"params": map[string]any{
				"protocolVersion": protocolVersion,
				"capabilities":    map[string]any{},
				"clientInfo":      map[string]any{"name": "test", "version": "1.0"},
			},
		},
		{
			"jsonrpc": "2.0",
			"method":  "notifications/initialized",
		},
	}
}

// mcpSession sends a sequence of JSON-RPC messages to a fresh MCP
// server and returns the responses. Notifications produce no response.
func mcpSession(t *testing.T, root *cli.Command, messages ...map[string]any) []testResponse {
	t.Helper()

	var input bytes.Buffer
	for _, msg := range messages {
		data, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("marshal message: %v", err)
		}
		input.Write(data)
		input.WriteByte('\n')
	}
	return runSession(t, root, &input)
}

// rawSession is mcpSession for pre-encoded lines, used to exercise
// parse errors that a marshaled map cannot produce.
func rawSession(t *testing.T, root *cli.Command, lines ...string) []testResponse {
	t.Helper()
	return runSession(t, root, strings.NewReader(strings.Join(lines, "\n")+"\n"))
}

func runSession(t *testing.T, root *cli.Command, input io.Reader) []testResponse {
	t.Helper()

	var output bytes.Buffer
	server := NewServer(root, testLogger())
	if err := server.Run(context.Background(), input, &output); err != nil {
		t.Fatalf("server.Run: %v", err)
	}

	var responses []testResponse
	scanner := bufio.NewScanner(&output)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var resp testResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			t.Fatalf("unmarshal response: %v\nraw: %s", err, line)
		}
		responses = append(responses, resp)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanning output: %v", err)
	}

	return responses
}

func TestNewServer_ToolDiscovery(t *testing.T) {
	root := testCommandTree()
	server := NewServer(root, testLogger())

	// Should discover the four commands with a ToolName.
	// Should NOT discover: test hidden (no ToolName).
	if len(server.tools) != 4 {
		t.Fatalf("expected 4 tools, got %d", len(server.tools))
	}

	expected := []string{"test_echo", "test_fail", "test_format", "test_panic"}
	for i, name := range expected {
		if server.tools[i].name != name {
			t.Errorf("tools[%d].name = %q, want %q", i, server.tools[i].name, name)
		}
	}

	// Verify schemas were generated.
	for _, discovered := range server.tools {
		if discovered.inputSchema == nil {
			t.Errorf("tool %q has nil inputSchema", discovered.name)
		}
	}

	// Verify map lookup works.
	for _, name := range expected {
		if _, ok := server.toolsByName[name]; !ok {
			t.Errorf("toolsByName missing %q", name)
		}
	}
}

func TestServer_Initialize(t *testing.T) {
	root := testCommandTree()
	responses := mcpSession(t, root, initMessages()...)

	// Only the initialize request produces a response.
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}

	resp := responses[0]
	if resp.Error != nil {
		t.Fatalf("unexpected error: code=%d message=%q", resp.Error.Code, resp.Error.Message)
	}

	var result initializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}

	if result.ProtocolVersion != protocolVersion {
		t.Errorf("protocolVersion = %q, want %q", result.ProtocolVersion, protocolVersion)
	}
	if result.ServerInfo.Name != "jules" {
		t.Errorf("serverInfo.name = %q, want %q", result.ServerInfo.Name, "jules")
	}
	if result.Capabilities.Tools == nil {
		t.Error("capabilities.tools is nil, expected non-nil")
	}
}

func TestServer_InitializeOtherVersion(t *testing.T) {
	// The server answers with its own protocol version and lets the
	// client decide; a mismatched request version is not an error.
	root := testCommandTree()
	responses := mcpSession(t, root, map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]any{},
			"clientInfo":      map[string]any{"name": "test"},
		},
	})

	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if responses[0].Error != nil {
		t.Fatalf("unexpected error: %v", responses[0].Error)
	}

	var result initializeResult
	if err := json.Unmarshal(responses[0].Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.ProtocolVersion != protocolVersion {
		t.Errorf("protocolVersion = %q, want server's own %q", result.ProtocolVersion, protocolVersion)
	}
}

func TestServer_Ping(t *testing.T) {
	root := testCommandTree()
	messages := append(initMessages(), map[string]any{
		"jsonrpc": "2.0",
		"id":      7,
		"method":  "ping",
	})

	responses := mcpSession(t, root, messages...)
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses (init + ping), got %d", len(responses))
	}

	resp := responses[1]
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
	if string(resp.ID) != "7" {
		t.Errorf("ping response ID = %s, want 7", resp.ID)
	}
	if string(resp.Result) != `{"pong":true}` {
		t.Errorf("ping result = %s, want {\"pong\":true}", resp.Result)
	}
}

func TestServer_ToolsList(t *testing.T) {
	root := testCommandTree()
	messages := append(initMessages(), map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/list",
	})

	responses := mcpSession(t, root, messages...)
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}

	resp := responses[1]
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	var result toolsListResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}

	if len(result.Tools) != 4 {
		t.Fatalf("expected 4 tools, got %d", len(result.Tools))
	}

	names := make(map[string]bool)
	for _, discovered := range result.Tools {
		names[discovered.Name] = true
	}
	for _, expected := range []string{"test_echo", "test_fail", "test_format", "test_panic"} {
		if !names[expected] {
			t.Errorf("missing tool %q in tools/list", expected)
		}
	}
	if names["test_hidden"] || names["hidden"] {
		t.Error("command without ToolName leaked into tools/list")
	}

	// Verify each tool has a non-nil inputSchema.
	for _, discovered := range result.Tools {
		if discovered.InputSchema == nil {
			t.Errorf("tool %q has nil inputSchema", discovered.Name)
		}
	}
}

func TestServer_ToolsCall(t *testing.T) {
	root := testCommandTree()
	messages := append(initMessages(), map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      "test_echo",
			"arguments": map[string]any{"message": "hello world"},
		},
	})

	responses := mcpSession(t, root, messages...)
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}

	resp := responses[1]
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	var result toolsCallResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}

	if result.IsError {
		t.Error("isError should be false")
	}
	if len(result.Content) != 1 {
		t.Fatalf("expected 1 content block, got %d", len(result.Content))
	}
	// fmt.Println adds a trailing newline.
	if result.Content[0].Text != "hello world\n" {
		t.Errorf("content text = %q, want %q", result.Content[0].Text, "hello world\n")
	}
}

func TestServer_ToolsCallMissingRequiredArgument(t *testing.T) {
	root := testCommandTree()
	messages := append(initMessages(), map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      "test_echo",
			"arguments": map[string]any{},
		},
	})

	responses := mcpSession(t, root, messages...)
	resp := responses[1]
	if resp.Error == nil {
		t.Fatal("expected Invalid Params for missing required argument")
	}
	if resp.Error.Code != codeInvalidParams {
		t.Errorf("error code = %d, want %d", resp.Error.Code, codeInvalidParams)
	}
	if !strings.Contains(resp.Error.Message, "missing required argument: message") {
		t.Errorf("error message = %q, want it to name the missing argument", resp.Error.Message)
	}
}

func TestServer_ToolsCallEmptyRequiredArgument(t *testing.T) {
	// An empty required string is as undeliverable as an absent one.
	root := testCommandTree()
	messages := append(initMessages(), map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      "test_echo",
			"arguments": map[string]any{"message": ""},
		},
	})

	responses := mcpSession(t, root, messages...)
	resp := responses[1]
	if resp.Error == nil {
		t.Fatal("expected Invalid Params for empty required argument")
	}
	if resp.Error.Code != codeInvalidParams {
		t.Errorf("error code = %d, want %d", resp.Error.Code, codeInvalidParams)
	}
}

func TestServer_ToolsCallDefaults(t *testing.T) {
	root := testCommandTree()
	// Call fail with no arguments. Reason should default to "boom"
	// via the FlagSet() default registration.
	messages := append(initMessages(), map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      "test_fail",
			"arguments": map[string]any{},
		},
	})

	responses := mcpSession(t, root, messages...)
	resp := responses[1]
	if resp.Error != nil {
		t.Fatalf("unexpected JSON-RPC error: %v", resp.Error)
	}

	var result toolsCallResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}

	if !result.IsError {
		t.Error("expected isError=true (tool returns error)")
	}

	var errorText string
	for _, block := range result.Content {
		if strings.Contains(block.Text, "intentional failure") {
			errorText = block.Text
		}
	}
	if errorText == "" {
		t.Fatal("no error content block found")
	}
	if !strings.Contains(errorText, "boom") {
		t.Errorf("error text = %q, want it to contain 'boom' (default)", errorText)
	}
}

func TestServer_ToolsCallError(t *testing.T) {
	root := testCommandTree()
	messages := append(initMessages(), map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      "test_fail",
			"arguments": map[string]any{"reason": "test error"},
		},
	})

	responses := mcpSession(t, root, messages...)
	resp := responses[1]
	if resp.Error != nil {
		t.Fatalf("unexpected JSON-RPC error: %v", resp.Error)
	}

	var result toolsCallResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}

	if !result.IsError {
		t.Error("expected isError=true")
	}
	// Two content blocks: partial stdout and the error.
	if len(result.Content) < 2 {
		t.Fatalf("expected at least 2 content blocks, got %d", len(result.Content))
	}
	if result.Content[0].Text != "partial" {
		t.Errorf("first content = %q, want %q", result.Content[0].Text, "partial")
	}
	if !strings.Contains(result.Content[1].Text, "test error") {
		t.Errorf("error content = %q, want it to contain 'test error'", result.Content[1].Text)
	}

	// The ToolError category travels as structured metadata.
	if result.ErrorInfo == nil {
		t.Fatal("expected errorInfo on tool failure")
	}
	if result.ErrorInfo.Category != "transient" {
		t.Errorf("errorInfo.category = %q, want transient", result.ErrorInfo.Category)
	}
	if !result.ErrorInfo.Retryable {
		t.Error("errorInfo.retryable = false, want true for transient")
	}

	// Retryable failures carry try-again guidance alongside the error.
	if !strings.Contains(result.Content[1].Text, "try the call again") {
		t.Errorf("error content = %q, want retry guidance appended", result.Content[1].Text)
	}
}

func TestServer_ToolsCallStructuredContent(t *testing.T) {
	root := testCommandTree()
	messages := append(initMessages(), map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      "test_format",
			"arguments": map[string]any{"value": "hello"},
		},
	})

	responses := mcpSession(t, root, messages...)
	resp := responses[1]
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	var result struct {
		Content           []contentBlock  `json:"content"`
		StructuredContent json.RawMessage `json:"structuredContent"`
		IsError           bool            `json:"isError"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}

	if result.IsError {
		t.Error("expected isError=false")
	}
	if len(result.Content) == 0 {
		t.Fatal("no content blocks")
	}

	// enableJSONOutput forces JSON mode: the text block carries JSON,
	// not the "VALUE: hello" table form.
	output := result.Content[0].Text
	if strings.Contains(output, "VALUE:") {
		t.Errorf("got table output %q, expected JSON (JSON mode should be forced)", output)
	}

	// The declared output schema promotes the JSON into
	// structuredContent.
	var structured struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(result.StructuredContent, &structured); err != nil {
		t.Fatalf("structuredContent is not the declared shape: %v\nraw: %s", err, result.StructuredContent)
	}
	if structured.Value != "hello" {
		t.Errorf("structuredContent.value = %q, want hello", structured.Value)
	}
}

func TestServer_ToolsCallPanicRecovery(t *testing.T) {
	root := testCommandTree()
	messages := append(initMessages(),
		map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"method":  "tools/call",
			"params": map[string]any{
				"name":      "test_panic",
				"arguments": map[string]any{},
			},
		},
		// The server must survive the panic and answer this too.
		map[string]any{
			"jsonrpc": "2.0",
			"id":      2,
			"method":  "ping",
		},
	)

	responses := mcpSession(t, root, messages...)
	if len(responses) != 3 {
		t.Fatalf("expected 3 responses (init, panic, ping), got %d", len(responses))
	}

	panicResp := responses[1]
	if panicResp.Error == nil {
		t.Fatal("expected Internal Error response for panicking tool")
	}
	if panicResp.Error.Code != codeInternalError {
		t.Errorf("error code = %d, want %d", panicResp.Error.Code, codeInternalError)
	}
	if !strings.Contains(panicResp.Error.Message, "deliberate test panic") {
		t.Errorf("error message = %q, want it to carry the panic value", panicResp.Error.Message)
	}
	if string(panicResp.ID) != "1" {
		t.Errorf("panic response ID = %s, want 1 (request must not go unanswered)", panicResp.ID)
	}

	pingResp := responses[2]
	if pingResp.Error != nil {
		t.Fatalf("server did not survive the panic: %v", pingResp.Error)
	}
}

func TestServer_ToolsCallUnknownTool(t *testing.T) {
	root := testCommandTree()
	messages := append(initMessages(), map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name": "nonexistent_tool",
		},
	})

	responses := mcpSession(t, root, messages...)
	resp := responses[1]
	if resp.Error == nil {
		t.Fatal("expected error for unknown tool")
	}
	if resp.Error.Code != codeInvalidParams {
		t.Errorf("error code = %d, want %d", resp.Error.Code, codeInvalidParams)
	}
	if !strings.Contains(resp.Error.Message, "unknown tool") {
		t.Errorf("error message = %q, want it to contain 'unknown tool'", resp.Error.Message)
	}
}

func TestServer_ToolsCallHiddenCommand(t *testing.T) {
	// A command without a ToolName is not callable even though it has
	// Params and Run.
	root := testCommandTree()
	messages := append(initMessages(), map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name": "hidden",
		},
	})

	responses := mcpSession(t, root, messages...)
	resp := responses[1]
	if resp.Error == nil {
		t.Fatal("expected error for CLI-only command")
	}
	if resp.Error.Code != codeInvalidParams {
		t.Errorf("error code = %d, want %d", resp.Error.Code, codeInvalidParams)
	}
}

func TestServer_NotInitialized(t *testing.T) {
	root := testCommandTree()
	// Send tools/call without initializing first.
	responses := mcpSession(t, root, map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      "test_echo",
			"arguments": map[string]any{"message": "hello"},
		},
	})

	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if responses[0].Error == nil {
		t.Fatal("expected error for pre-init tools/call")
	}
	if responses[0].Error.Code != codeInvalidRequest {
		t.Errorf("error code = %d, want %d", responses[0].Error.Code, codeInvalidRequest)
	}
	if !strings.Contains(responses[0].Error.Message, "not initialized") {
		t.Errorf("error message = %q, want it to contain 'not initialized'",
			responses[0].Error.Message)
	}
}

func TestServer_UnknownMethod(t *testing.T) {
	root := testCommandTree()
	messages := append(initMessages(), map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "resources/list",
	})

	responses := mcpSession(t, root, messages...)
	resp := responses[1]
	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != codeMethodNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, codeMethodNotFound)
	}
}

func TestServer_ParseError(t *testing.T) {
	root := testCommandTree()
	responses := rawSession(t, root, `{not json`)

	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	resp := responses[0]
	if resp.Error == nil {
		t.Fatal("expected Parse Error response")
	}
	if resp.Error.Code != codeParseError {
		t.Errorf("error code = %d, want %d", resp.Error.Code, codeParseError)
	}
	if string(resp.ID) != "null" {
		t.Errorf("parse error ID = %s, want null", resp.ID)
	}
}

func TestServer_ParseErrorThenRecovers(t *testing.T) {
	// A garbage line must not poison the stream for later requests.
	root := testCommandTree()
	initLine, err := json.Marshal(initMessages()[0])
	if err != nil {
		t.Fatalf("marshal init: %v", err)
	}
	responses := rawSession(t, root, `{not json`, string(initLine))

	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	if responses[0].Error == nil || responses[0].Error.Code != codeParseError {
		t.Errorf("first response = %+v, want Parse Error", responses[0].Error)
	}
	if responses[1].Error != nil {
		t.Errorf("initialize after garbage failed: %v", responses[1].Error)
	}
}

func TestServer_WrongJSONRPCVersion(t *testing.T) {
	root := testCommandTree()
	responses := mcpSession(t, root, map[string]any{
		"jsonrpc": "1.0",
		"id":      1,
		"method":  "ping",
	})

	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if responses[0].Error == nil {
		t.Fatal("expected error for wrong JSON-RPC version")
	}
	if responses[0].Error.Code != codeInvalidRequest {
		t.Errorf("error code = %d, want %d", responses[0].Error.Code, codeInvalidRequest)
	}
}

func TestServer_NotificationsIgnored(t *testing.T) {
	root := testCommandTree()
	// Initialize, then send notifications. None produce a response.
	messages := append(initMessages(),
		map[string]any{
			"jsonrpc": "2.0",
			"method":  "notifications/cancelled",
			"params":  map[string]any{"requestId": 9, "reason": "user changed their mind"},
		},
		map[string]any{
			"jsonrpc": "2.0",
			"method":  "notifications/progress",
			"params":  map[string]any{"token": "abc"},
		},
	)

	responses := mcpSession(t, root, messages...)
	// Only the initialize request produces a response.
	if len(responses) != 1 {
		t.Fatalf("expected 1 response (init only), got %d", len(responses))
	}
}

func TestMissingRequiredArguments(t *testing.T) {
	schema := &cli.Schema{
		Type:     "object",
		Required: []string{"task"},
	}

	cases := []struct {
		name      string
		arguments string
		missing   bool
	}{
		{"absent", `{}`, true},
		{"null arguments", `null`, true},
		{"no arguments", ``, true},
		{"empty string", `{"task":""}`, true},
		{"provided", `{"task":"fix the bug"}`, false},
		{"whitespace counts as provided", `{"task":" "}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			missing := missingRequiredArguments(schema, json.RawMessage(tc.arguments))
			if tc.missing && len(missing) != 1 {
				t.Errorf("missing = %v, want [task]", missing)
			}
			if !tc.missing && len(missing) != 0 {
				t.Errorf("missing = %v, want none", missing)
			}
		})
	}

	if missing := missingRequiredArguments(nil, nil); missing != nil {
		t.Errorf("nil schema produced %v", missing)
	}
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		category  string
		retryable bool
	}{
		{"tool validation", cli.Validation("bad input"), "validation", false},
		{"tool conflict", cli.Conflict("dirty tree"), "conflict", false},
		{"tool transient", cli.Transient("timeout"), "transient", true},
		{"wrapped tool error", fmt.Errorf("outer: %w", cli.NotFound("gone")), "not_found", false},
		{"auth", &jules.AuthError{Hint: "set JULES_API_KEY"}, "unauthenticated", false},
		{"repo access", &jules.RepoAccessError{Owner: "octo", Repo: "demo"}, "not_found", false},
		{"api 404", &jules.APIError{StatusCode: 404, Message: "not found"}, "not_found", false},
		{"api 403", &jules.APIError{StatusCode: 403, Message: "forbidden"}, "forbidden", false},
		{"api 429", &jules.APIError{StatusCode: 429, Message: "rate limited"}, "transient", true},
		{"transport", &jules.TransportError{Op: "GET /sessions", Err: errors.New("dial tcp: timeout")}, "transient", true},
		{"context deadline", context.DeadlineExceeded, "transient", true},
		{"plain error", errors.New("mystery"), "internal", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info := classifyError(tc.err)
			if info.Category != tc.category {
				t.Errorf("category = %q, want %q", info.Category, tc.category)
			}
			if info.Retryable != tc.retryable {
				t.Errorf("retryable = %v, want %v", info.Retryable, tc.retryable)
			}
		})
	}
}

func TestEnableJSONOutput(t *testing.T) {
	type params struct {
		cli.JSONOutput
		Name string `json:"name" flag:"name" desc:"name"`
	}

	p := &params{Name: "test"}
	enableJSONOutput(p)
	if !p.OutputJSON {
		t.Error("expected OutputJSON to be true after enableJSONOutput")
	}
}

func TestEnableJSONOutput_NoEmbed(t *testing.T) {
	type params struct {
		Name string `json:"name" flag:"name" desc:"name"`
	}

	p := &params{Name: "test"}
	// Must not panic when the params don't support JSON output.
	enableJSONOutput(p)
}
