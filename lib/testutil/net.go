// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"errors"
	"io"
	"net"
	"sync"
	"testing"
)

// FreePort returns a loopback TCP port that was free at the time of the
// call. Another process may claim it before the caller binds it; tests
// accept that small window.
func FreePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("finding free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()
	return port
}

// StartServer listens on a loopback port and runs handler in its own
// goroutine for every accepted connection. The connection is closed
// when handler returns. The listener and all live connections are
// closed at test cleanup. Returns the listening port.
func StartServer(t *testing.T, handler func(net.Conn)) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("starting test server: %v", err)
	}

	var (
		mu          sync.Mutex
		connections = map[net.Conn]struct{}{}
		handlers    sync.WaitGroup
	)

	go func() {
		for {
			connection, err := listener.Accept()
			if err != nil {
				if !errors.Is(err, net.ErrClosed) {
					t.Logf("test server accept: %v", err)
				}
				return
			}
			mu.Lock()
			connections[connection] = struct{}{}
			mu.Unlock()

			handlers.Add(1)
			go func() {
				defer handlers.Done()
				defer func() {
					mu.Lock()
					delete(connections, connection)
					mu.Unlock()
					connection.Close()
				}()
				handler(connection)
			}()
		}
	}()

	t.Cleanup(func() {
		listener.Close()
		mu.Lock()
		for connection := range connections {
			connection.Close()
		}
		mu.Unlock()
		handlers.Wait()
	})

	return listener.Addr().(*net.TCPAddr).Port
}

// StartEchoServer starts a server that writes back every byte it
// receives until the peer closes.
func StartEchoServer(t *testing.T) int {
	t.Helper()
	return StartServer(t, func(connection net.Conn) {
		io.Copy(connection, connection)
	})
}
