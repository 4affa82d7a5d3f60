// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge owns a worker process and gives callers a blocking
// request/response channel to it.
//
// The worker holds a single TCP connection on behalf of callers that
// cannot keep one open themselves. [Bridge.Start] spawns the worker
// with its listen configuration and polls its ready method until it
// answers or the readiness deadline passes. A worker that exits or
// never becomes ready is killed and reaped before Start returns, so
// no orphan is left behind.
//
// [Bridge.Call] performs one round trip: it encodes the method and
// arguments, sends them on a fresh connection to the worker's protocol
// endpoint, and blocks until the response arrives or the call timeout
// expires. Calls are serialized. A response carrying an error becomes
// a [*RequestError]; failing to reach the worker at all becomes an
// error wrapping [ErrWorkerUnreachable]. Nothing is retried.
//
// [Bridge.Kill] sends SIGINT and returns; [Bridge.Stop] also waits,
// escalating to SIGKILL after a grace period. The bridge never
// restarts a worker.
package bridge
