// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Syncsocket connects to a TCP peer through a syncsocket worker, sends
// one message, prints the first reply, and disconnects. It exercises
// the whole stack (config, bridge, worker) from the command line.
package main
