// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"net"
	"net/url"
)

// IsLoopbackURL reports whether rawURL points at a loopback address
// (localhost, 127.0.0.0/8, ::1). Plain http is acceptable for such
// addresses: requests never leave the machine, so local proxies and
// test servers do not need TLS.
func IsLoopbackURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
