// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package jules provides a typed Go client for the Jules session API,
// the remote service that runs autonomous coding sessions against
// GitHub repositories.
//
// The client authenticates with an API key sent in the X-Goog-Api-Key
// header. Reads and cancels run inside a bounded retry envelope
// (transport failures, attempt timeouts, 429, 503); session creation
// deliberately does not: a create whose response was lost may still
// have started a session remotely, and retrying would start a second
// one. Errors surface as typed values ([APIError], [RepoAccessError],
// [AuthError], [TransportError]) with sanitized messages; raw response
// bodies stay in the APIError Detail field and debug logs.
//
// The client refuses non-HTTPS base URLs except for loopback
// addresses, so the API key is never sent in cleartext off the
// machine.
//
// [Refresher] keeps a [session.Cache] reconciled with the remote by
// listing sessions on a ticker and merging with sequence guarding.
package jules
