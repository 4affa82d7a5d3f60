// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

const (
	// MaxRequestSize is the default cap on one encoded request. A
	// worker answers a larger request with a protocol error and closes
	// the connection without reading the rest.
	MaxRequestSize = 10 << 20

	// MaxReadSize caps the bytes one read returns, whatever maxBytes
	// the caller asked for.
	MaxReadSize = 10 << 20

	// MaxResponseSize is the cap a caller applies when decoding a
	// response: a full read plus envelope headroom.
	MaxResponseSize = MaxReadSize + 64<<10

	// DefaultMaxChunk is the read size used when the caller gives no
	// maxBytes.
	DefaultMaxChunk = 16384

	// DefaultListenPort is the worker's default protocol port.
	DefaultListenPort = 13354
)
