// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Syncsocket-worker holds one outbound TCP connection and serves the
// syncsocket request protocol that drives it. It is normally spawned
// by a bridge, which passes --listen-port and waits for the ready
// method to answer. The worker exits after a disconnect request, on
// SIGINT or SIGTERM, or when its parent dies.
package main
