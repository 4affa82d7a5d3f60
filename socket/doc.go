// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package socket provides Socket, a TCP client whose operations block
// until they complete. The connection itself lives in a worker process
// owned by a [bridge.Bridge]; each method is one bridge call.
//
//	s, err := socket.New(ctx, &bridge.Bridge{WorkerCommand: []string{"syncsocket-worker"}})
//	if err != nil { ... }
//	defer s.Close()
//	if err := s.ConnectTo(ctx, 1337, "127.0.0.1"); err != nil { ... }
//	s.WriteString(ctx, "hello", "")
//	reply, err := s.ReadString(ctx, 0, true)
package socket
