// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines the wire contract between a bridge and its
// worker.
//
// Every call is one TCP connection carrying one exchange. The caller
// writes a single CBOR [Request] and half-closes its write side; the
// worker answers with a single CBOR [Response] and closes the
// connection. CBOR values are self-delimiting, so there is no length
// prefix and no terminator byte.
//
// A Request names its [Method] as a string and carries positional
// arguments as raw CBOR values. The string is looked up once, by
// [ParseMethod], and [DecodeOperation] turns the request into a typed
// [Operation] ([Ready], [Connect], [Read], [Write], or [Disconnect])
// after checking argument count and shape. Nothing downstream of the
// decoder sees method names.
//
// A Response carries either data or an error message with an
// [ErrorCode]. The worker produces exactly one Response for every
// request it accepts, including malformed, oversized, and unknown
// ones. [Response.Err] turns the error half back into an [*Error]
// that matches the package sentinels under errors.Is:
//
//	if errors.Is(err, protocol.ErrNotConnected) { ... }
//
// [RoundTrip] performs one exchange from the caller side. It is shared
// by the bridge, the syncsocket-call helper, and tests.
package protocol
