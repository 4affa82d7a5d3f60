// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers shared by the syncsocket
// binaries:
//
//   - [Fatal] reports an error from run() to stderr and exits, for the
//     window before the structured logger exists.
//   - [NewLogger] builds the slog logger every binary uses: text output
//     on a terminal, JSON otherwise.
//   - [SetParentDeathSignal] asks the kernel to signal the worker when
//     the process that spawned it dies, so an abandoned worker does not
//     keep its TCP connection open.
package process
