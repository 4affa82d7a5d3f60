// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package worker implements the process that owns the real network
// connection on behalf of a bridge.
//
// A [Worker] listens on a TCP protocol endpoint and answers one
// [protocol.Request] per inbound connection. All connection state lives
// in a [ConnectionState] owned by a single event-loop goroutine. The
// loop selects over three sources:
//
//   - calls: decoded operations submitted by protocol connections,
//     each with a reply channel
//   - transport events: bytes received, connection closed, dial
//     finished, write finished
//   - shutdown: context cancellation (the bridge's kill signal)
//
// Dialing, reading, and writing the real connection happen on helper
// goroutines that never touch state. They post events tagged with the
// transport generation current when they started, and the loop drops
// events whose generation is stale.
//
// Before an operation runs the loop applies the guards in
// [ConnectionState.Guard]: ready and disconnect always pass; a sticky
// last error fails everything else; reads and writes need a completed
// connect; a closed connection fails everything; a second connect is
// rejected.
//
// A blocking read with nothing buffered parks as the single pending
// read and is answered when data or a close arrives. Any later call
// supersedes it: the parked read is answered with a protocol error so
// waits never accumulate when the bridge has given up on one.
//
// Disconnect closes the connection, answers, and ends the loop; Serve
// then drains in-flight responses and returns, and the process exits.
package worker
