// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for syncsocket packages.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with time.After fallback) so that individual
// tests do not need direct time.After calls. [RequireEventually] polls
// for state that can only be observed by asking.
//
// [RunWorkerIfRequested], [WorkerCommand], and [WorkerEnvironment] let
// a test binary act as its own worker process. The bridge and facade
// tests spawn os.Executable() with [WorkerEnv] set; TestMain sees the
// variable and runs the worker entrypoint instead of the tests, so no
// separately built binary is needed.
//
// [StartServer], [StartEchoServer], and [FreePort] provide loopback
// TCP peers for the worker to connect to.
//
// [UniqueID] generates monotonically increasing identifiers for
// payloads that must be distinguishable across a test.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
