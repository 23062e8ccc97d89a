// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcp implements a Model Context Protocol server that exposes
// jules CLI commands as MCP tools over newline-delimited JSON-RPC 2.0
// on stdin/stdout. A local coding agent launches "jules mcp serve" as
// a subprocess and delegates tasks to the remote session service
// through it.
//
// The server discovers tools by walking the CLI command tree and
// collecting commands that declare a [cli.Command.ToolName]. Exposure
// is opt-in: a command without a ToolName never appears in tools/list
// and cannot be called, so the bridge's catalog stays small and
// deliberate. Each exposed command becomes an MCP tool with
// inputSchema generated from the parameter struct's tags via
// [cli.ParamsSchema]. Commands that declare [cli.Command.Output] also
// get an outputSchema reflected from the output type via
// [cli.OutputSchema], and their results include structuredContent
// (parsed JSON) alongside the text content block.
//
// Tool execution failures are application-level results, not protocol
// errors: the response is a protocol success carrying isError plus an
// errorInfo{category, retryable} classification, so the calling agent
// can decide whether to retry, fix its input, or report the failure.
// JSON-RPC errors are reserved for protocol misuse (parse errors,
// unknown methods, missing required arguments).
//
// This package implements the 2025-11-25 MCP protocol specification.
package mcp
