// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"runtime/debug"
	"strings"

	"github.com/bureau-foundation/jules/cmd/jules/cli"
	"github.com/bureau-foundation/jules/lib/jules"
	"github.com/bureau-foundation/jules/lib/version"
)

// Server is an MCP server that exposes jules CLI commands as tools
// over JSON-RPC 2.0 on newline-delimited stdio.
type Server struct {
	tools       []tool
	toolsByName map[string]*tool
	initialized bool
	logger      *slog.Logger
}

// tool is a CLI command exposed as an MCP tool.
type tool struct {
	name         string
	title        string
	description  string
	annotations  *toolAnnotations
	inputSchema  *cli.Schema
	outputSchema *cli.Schema
	command      *cli.Command
}

// NewServer creates an MCP server by walking the command tree and
// collecting every command that declares a ToolName. Each collected
// command becomes an MCP tool with a JSON Schema derived from its
// parameter struct. Commands without a ToolName stay CLI-only.
func NewServer(root *cli.Command, logger *slog.Logger) *Server {
	s := &Server{logger: logger}

	discoverTools(root, &s.tools)

	s.toolsByName = make(map[string]*tool, len(s.tools))
	for i := range s.tools {
		s.toolsByName[s.tools[i].name] = &s.tools[i]
	}

	return s
}

// Serve starts the MCP server reading from os.Stdin and writing to
// os.Stdout. This is the entry point for "jules mcp serve".
func (s *Server) Serve(ctx context.Context) error {
	return s.Run(ctx, os.Stdin, os.Stdout)
}

// Run processes JSON-RPC 2.0 requests from input and writes responses
// to output until input reaches EOF or ctx is cancelled. Each request
// occupies a single line (newline-delimited JSON-RPC, not
// Content-Length framed). Requests are handled serially in arrival
// order, so every response correlates with its request by ID and no
// two tool executions overlap.
func (s *Server) Run(ctx context.Context, input io.Reader, output io.Writer) error {
	scanner := bufio.NewScanner(input)
	// MCP messages can be large (multi-file diffs in tool results).
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	encoder := json.NewEncoder(output)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			if writeErr := writeError(encoder, json.RawMessage("null"), codeParseError, "parse error: "+err.Error()); writeErr != nil {
				return cli.Internal("writing parse error response: %w", writeErr)
			}
			continue
		}

		if req.JSONRPC != "2.0" {
			if !req.isNotification() {
				if writeErr := writeError(encoder, req.ID, codeInvalidRequest, "unsupported JSON-RPC version"); writeErr != nil {
					return cli.Internal("writing version error response: %w", writeErr)
				}
			}
			continue
		}

		// Notifications have no ID and receive no response.
		if req.isNotification() {
			s.handleNotification(&req)
			continue
		}

		if err := s.dispatch(ctx, encoder, &req); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// handleNotification processes a JSON-RPC notification. Notifications
// never produce a response, so handling is limited to logging.
func (s *Server) handleNotification(req *request) {
	switch req.Method {
	case "notifications/initialized":
		s.logger.Debug("client initialization complete")
	case "notifications/cancelled":
		// Requests are handled serially, so by the time a
		// cancellation arrives the request it names has already been
		// answered. Log it for the operator; the remote session, if
		// one was created, keeps running until cancelled explicitly.
		var params cancelledParams
		if err := json.Unmarshal(req.Params, &params); err == nil {
			s.logger.Info("client cancelled request",
				"request_id", string(params.RequestID),
				"reason", params.Reason,
			)
		}
	default:
		s.logger.Debug("ignoring notification", "method", req.Method)
	}
}

// dispatch routes a JSON-RPC request to the appropriate handler. A
// panic in a handler is recovered and answered with an Internal Error
// response: the bridge must never crash the agent's tool transport or
// leave a request unanswered.
func (s *Server) dispatch(ctx context.Context, encoder *json.Encoder, req *request) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			s.logger.Error("panic while handling request",
				"method", req.Method,
				"panic", recovered,
				"stack", string(debug.Stack()),
			)
			err = writeError(encoder, req.ID, codeInternalError, fmt.Sprintf("internal error: %v", recovered))
		}
	}()

	switch req.Method {
	case "initialize":
		return s.handleInitialize(encoder, req)
	case "ping":
		return s.handlePing(encoder, req)
	case "tools/list":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsList(encoder, req)
	case "tools/call":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsCall(ctx, encoder, req)
	default:
		return writeError(encoder, req.ID, codeMethodNotFound, "unknown method: "+req.Method)
	}
}

func (s *Server) handleInitialize(encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for initialize")
	}

	var params initializeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid initialize params: "+err.Error())
	}

	// The MCP specification has the server respond with its own
	// protocol version and leaves the proceed/abort decision to the
	// client, so a client requesting a different version is never
	// rejected here.
	s.initialized = true
	s.logger.Debug("initialized",
		"client", params.ClientInfo.Name,
		"client_version", params.ClientInfo.Version,
		"requested_protocol", params.ProtocolVersion,
	)

	return writeResult(encoder, req.ID, initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: serverCapabilities{
			Tools: &toolCapability{},
		},
		ServerInfo: serverInfo{
			Name:    "jules",
			Version: version.Short(),
		},
	})
}

func (s *Server) handlePing(encoder *json.Encoder, req *request) error {
	return writeResult(encoder, req.ID, pongResult{Pong: true})
}

func (s *Server) handleToolsList(encoder *json.Encoder, req *request) error {
	descriptions := make([]toolDescription, 0, len(s.tools))
	for _, t := range s.tools {
		descriptions = append(descriptions, toolDescription{
			Name:         t.name,
			Title:        t.title,
			Description:  t.description,
			InputSchema:  t.inputSchema,
			OutputSchema: t.outputSchema,
			Annotations:  t.annotations,
		})
	}
	return writeResult(encoder, req.ID, toolsListResult{Tools: descriptions})
}

func (s *Server) handleToolsCall(ctx context.Context, encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for tools/call")
	}

	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error())
	}

	t, ok := s.toolsByName[params.Name]
	if !ok {
		return writeError(encoder, req.ID, codeInvalidParams, "unknown tool: "+params.Name)
	}

	// Required arguments are a protocol concern: a call that omits
	// one is malformed, not a failed delegation, and is answered with
	// Invalid Params rather than an isError result.
	if missing := missingRequiredArguments(t.inputSchema, params.Arguments); len(missing) > 0 {
		return writeError(encoder, req.ID, codeInvalidParams,
			"missing required argument: "+strings.Join(missing, ", "))
	}

	output, runErr := s.executeTool(ctx, t, params.Arguments)
	result := buildToolResult(output, runErr)

	// When the tool declares an output schema and the call succeeded,
	// parse the captured JSON output into structuredContent. Per the
	// MCP specification, tools with outputSchema MUST return both
	// structuredContent (typed JSON) and a text content block
	// (serialized JSON for backward compatibility).
	if t.outputSchema != nil && !result.IsError && output != "" {
		var structured any
		if parseErr := json.Unmarshal([]byte(output), &structured); parseErr != nil {
			// The command declared an output schema but produced
			// output that doesn't parse as JSON. This is a bug in
			// the command, not a runtime error. Surface it as a
			// tool error so it's visible to both the agent and the
			// operator.
			result.IsError = true
			result.Content = append(result.Content, contentBlock{
				Type: "text",
				Text: fmt.Sprintf("output schema violation: command produced non-JSON output: %v", parseErr),
			})
		} else {
			result.StructuredContent = structured
		}
	}

	return writeResult(encoder, req.ID, result)
}

// missingRequiredArguments returns the names from the schema's
// required list that the argument object omits or supplies as an
// empty string. An empty required string is treated as missing: the
// only required arguments here are task descriptions, and an empty
// task is as undeliverable as an absent one.
func missingRequiredArguments(schema *cli.Schema, arguments json.RawMessage) []string {
	if schema == nil || len(schema.Required) == 0 {
		return nil
	}

	supplied := map[string]json.RawMessage{}
	if len(arguments) > 0 && string(arguments) != "null" {
		// A malformed argument object is reported by the overlay in
		// executeTool; for requiredness it supplies nothing.
		_ = json.Unmarshal(arguments, &supplied)
	}

	var missing []string
	for _, name := range schema.Required {
		value, ok := supplied[name]
		if !ok || string(value) == `""` {
			missing = append(missing, name)
		}
	}
	return missing
}

// buildToolResult assembles a toolsCallResult from captured output
// and an optional run error.
func buildToolResult(output string, runErr error) toolsCallResult {
	result := toolsCallResult{}
	if output != "" {
		result.Content = append(result.Content, contentBlock{
			Type: "text",
			Text: output,
		})
	}
	if runErr != nil {
		result.IsError = true
		result.ErrorInfo = classifyError(runErr)
		text := runErr.Error()
		if result.ErrorInfo.Retryable {
			text += "\nThe service looks temporarily unavailable; try the call again shortly."
		}
		result.Content = append(result.Content, contentBlock{
			Type: "text",
			Text: text,
		})
	}
	// MCP requires at least one content block in the result.
	if len(result.Content) == 0 {
		result.Content = []contentBlock{{Type: "text", Text: ""}}
	}
	return result
}

// classifyError extracts structured error metadata from an error. It
// checks for ToolError first (commands wrap their failures in one),
// then falls back to the session-service error types for failures
// that reach the bridge unwrapped.
func classifyError(err error) *errorInfo {
	var toolErr *cli.ToolError
	if errors.As(err, &toolErr) {
		return &errorInfo{
			Category:  string(toolErr.Category),
			Retryable: toolErr.Category.Retryable(),
		}
	}

	switch {
	case jules.IsUnauthenticated(err):
		return &errorInfo{Category: string(cli.CategoryUnauthenticated)}
	case jules.IsNotFound(err):
		return &errorInfo{Category: string(cli.CategoryNotFound)}
	case jules.IsRetryable(err),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return &errorInfo{Category: string(cli.CategoryTransient), Retryable: true}
	}

	var apiErr *jules.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == 403 {
		return &errorInfo{Category: string(cli.CategoryForbidden)}
	}

	return &errorInfo{Category: string(cli.CategoryInternal)}
}

// executeTool runs a CLI command as an MCP tool, capturing stdout.
// Parameters are zeroed, defaults applied from flag tags, JSON
// arguments overlaid, and JSON output mode forced before execution.
func (s *Server) executeTool(ctx context.Context, t *tool, arguments json.RawMessage) (string, error) {
	// Get the closure-captured params pointer and zero it. This
	// prevents state from a previous call from bleeding through.
	params := t.command.Params()
	reflect.ValueOf(params).Elem().SetZero()

	// Apply defaults from struct tags. FlagSet() triggers flag
	// registration (either from the explicit Flags function or
	// auto-derived from Params), and pflag sets *target = defaultValue
	// during registration. This reuses the existing default-parsing
	// logic rather than duplicating it.
	t.command.FlagSet()

	// Overlay with the JSON arguments from the MCP client.
	if len(arguments) > 0 && string(arguments) != "null" {
		if err := json.Unmarshal(arguments, params); err != nil {
			return "", cli.Validation("invalid arguments: %w", err)
		}
	}

	// Force JSON output when the command supports it. Table formatting
	// is for human terminals; MCP tool output should be structured.
	enableJSONOutput(params)

	logger := s.logger.With("tool", t.name)
	return captureRun(func() error {
		return t.command.Run(ctx, nil, logger)
	})
}

// enableJSONOutput forces JSON output mode on params structs that
// embed [cli.JSONOutput]. Commands produce structured JSON instead
// of tabwriter tables when invoked as MCP tools.
func enableJSONOutput(params any) {
	if j, ok := params.(cli.JSONOutputter); ok {
		j.SetJSONOutput(true)
	}
}

// captureRun executes a Run function while capturing its stdout. A
// goroutine reads from the pipe concurrently to prevent deadlock
// when the command produces more output than the OS pipe buffer.
func captureRun(run func() error) (string, error) {
	reader, writer, err := os.Pipe()
	if err != nil {
		return "", cli.Internal("creating output pipe: %w", err)
	}

	saved := os.Stdout
	os.Stdout = writer

	type capturedOutput struct {
		data []byte
		err  error
	}
	done := make(chan capturedOutput, 1)
	go func() {
		data, readErr := io.ReadAll(reader)
		done <- capturedOutput{data, readErr}
	}()

	// A panicking command must not leave the process writing into a
	// dead pipe: restore stdout before the panic unwinds to the
	// dispatch recover.
	completed := false
	defer func() {
		if !completed {
			os.Stdout = saved
			writer.Close()
			reader.Close()
		}
	}()

	runErr := run()
	completed = true

	// Restore stdout before closing the pipe so that any
	// subsequent writes go to the real output destination.
	os.Stdout = saved
	writer.Close()

	captured := <-done
	reader.Close()

	if captured.err != nil {
		return "", cli.Internal("reading captured output: %w", captured.err)
	}

	return string(captured.data), runErr
}

// discoverTools walks the command tree recursively, collecting
// commands that declare a ToolName along with Params and Run.
func discoverTools(command *cli.Command, tools *[]tool) {
	if command.ToolName != "" && command.Params != nil && command.Run != nil {
		inputSchema, err := cli.ParamsSchema(command.Params())
		if err != nil {
			fmt.Fprintf(os.Stderr, "mcp: skipping %s: input schema error: %v\n",
				command.ToolName, err)
		} else {
			var outputSchema *cli.Schema
			if command.Output != nil {
				outSchema, outErr := cli.OutputSchema(command.Output())
				if outErr != nil {
					fmt.Fprintf(os.Stderr, "mcp: %s: output schema error: %v\n",
						command.ToolName, outErr)
				} else {
					outputSchema = outSchema
				}
			}

			*tools = append(*tools, tool{
				name:         command.ToolName,
				title:        command.Summary,
				description:  toolDescriptionText(command),
				annotations:  resolveAnnotations(command),
				inputSchema:  inputSchema,
				outputSchema: outputSchema,
				command:      command,
			})
		}
	}

	for _, sub := range command.Subcommands {
		discoverTools(sub, tools)
	}
}

// toolDescriptionText returns the best available description for a
// command, preferring the detailed Description over the Summary.
func toolDescriptionText(command *cli.Command) string {
	if command.Description != "" {
		return command.Description
	}
	return command.Summary
}

// resolveAnnotations translates a command's behavioral annotations
// into MCP protocol hints. Returns nil when the command declares
// none, letting MCP clients apply the protocol defaults (destructive,
// non-idempotent, open-world).
func resolveAnnotations(command *cli.Command) *toolAnnotations {
	if command.Annotations == nil {
		return nil
	}
	return &toolAnnotations{
		ReadOnlyHint:    command.Annotations.ReadOnly,
		DestructiveHint: command.Annotations.Destructive,
		IdempotentHint:  command.Annotations.Idempotent,
		OpenWorldHint:   command.Annotations.OpenWorld,
	}
}

// writeResult sends a JSON-RPC 2.0 success response.
func writeResult(encoder *json.Encoder, id json.RawMessage, result any) error {
	return encoder.Encode(response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

// writeError sends a JSON-RPC 2.0 error response.
func writeError(encoder *json.Encoder, id json.RawMessage, code int, message string) error {
	return encoder.Encode(response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: code, Message: message},
	})
}
