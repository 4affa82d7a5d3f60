// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package socket

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bureau-foundation/syncsocket/bridge"
	"github.com/bureau-foundation/syncsocket/lib/config"
	"github.com/bureau-foundation/syncsocket/protocol"
)

// Address is an endpoint of the connection as the operating system
// reports it.
type Address struct {
	Family  string `json:"family"`
	Address string `json:"address"`
	Port    int    `json:"port"`
}

// Socket is a blocking TCP client backed by a worker process.
//
// Methods must not be called concurrently with each other except for
// the state accessors (Destroyed, Connecting, Connected, Address,
// LocalAddress), which may be called at any time.
type Socket struct {
	bridge *bridge.Bridge

	mu         sync.Mutex
	destroyed  bool
	connecting bool
	connected  bool
	descriptor protocol.ConnectionDescriptor
}

// New starts b and returns a Socket that uses it. If the worker does
// not become ready, the error wraps [bridge.ErrStartupTimeout] and no
// worker process is left running.
func New(ctx context.Context, b *bridge.Bridge) (*Socket, error) {
	if err := b.Start(ctx); err != nil {
		return nil, err
	}
	return &Socket{bridge: b}, nil
}

// Open is New with a Bridge built from cfg.
func Open(ctx context.Context, cfg *config.Config) (*Socket, error) {
	return New(ctx, bridge.FromConfig(cfg))
}

// Bridge returns the bridge the socket calls through.
func (s *Socket) Bridge() *bridge.Bridge {
	return s.bridge
}

// Connect opens the connection described by options and blocks until
// it is established or fails.
func (s *Socket) Connect(ctx context.Context, options protocol.ConnectOptions) error {
	if err := s.checkUsable(protocol.MethodConnect); err != nil {
		return err
	}

	s.setConnecting(true)
	var descriptor protocol.ConnectionDescriptor
	err := s.bridge.Call(ctx, protocol.MethodConnect, &descriptor, options)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.connecting = false
	if err != nil {
		return err
	}
	s.connected = true
	s.descriptor = descriptor
	return nil
}

// ConnectTo connects to host:port. An empty host means localhost.
func (s *Socket) ConnectTo(ctx context.Context, port int, host string) error {
	return s.Connect(ctx, protocol.ConnectOptions{Port: port, Host: host})
}

// Read returns up to maxBytes buffered bytes; maxBytes <= 0 means the
// worker's chunk size. With blocking false, an empty result means no
// data has arrived. With blocking true, Read waits for data or for the
// connection to end, and returns empty when the call timeout is nearly
// spent with nothing received.
func (s *Socket) Read(ctx context.Context, maxBytes int, blocking bool) ([]byte, error) {
	if err := s.checkUsable(protocol.MethodRead); err != nil {
		return nil, err
	}

	var size any
	if maxBytes > 0 {
		size = maxBytes
	}
	var data []byte
	if err := s.bridge.Call(ctx, protocol.MethodRead, &data, size, blocking); err != nil {
		s.noteFailure(err)
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// ReadString is Read returning the bytes as a string.
func (s *Socket) ReadString(ctx context.Context, maxBytes int, blocking bool) (string, error) {
	data, err := s.Read(ctx, maxBytes, blocking)
	return string(data), err
}

// Write sends data and blocks until the worker has handed it to the
// connection.
func (s *Socket) Write(ctx context.Context, data []byte) error {
	if err := s.checkUsable(protocol.MethodWrite); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	if err := s.bridge.Call(ctx, protocol.MethodWrite, nil, data); err != nil {
		s.noteFailure(err)
		return err
	}
	return nil
}

// WriteString sends data decoded with encoding (utf8 when empty; also
// ascii, latin1, binary, utf16le, ucs2, hex, base64).
func (s *Socket) WriteString(ctx context.Context, data string, encoding string) error {
	if err := s.checkUsable(protocol.MethodWrite); err != nil {
		return err
	}
	var encodingArg any
	if encoding != "" {
		encodingArg = encoding
	}
	if err := s.bridge.Call(ctx, protocol.MethodWrite, nil, data, encodingArg); err != nil {
		s.noteFailure(err)
		return err
	}
	return nil
}

// Disconnect closes the connection and stops the worker. The socket is
// destroyed afterwards whether or not the worker answered; later
// operations fail with [protocol.ErrClosed].
func (s *Socket) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return nil
	}
	s.destroyed = true
	s.connected = false
	s.mu.Unlock()

	err := s.bridge.Call(ctx, protocol.MethodDisconnect, nil)
	s.bridge.Stop()
	if errors.Is(err, bridge.ErrWorkerUnreachable) {
		// The worker is already gone; there is nothing left to close.
		return nil
	}
	return err
}

// Destroy is Disconnect.
func (s *Socket) Destroy(ctx context.Context) error {
	return s.Disconnect(ctx)
}

// Close is Disconnect with a background context.
func (s *Socket) Close() error {
	return s.Disconnect(context.Background())
}

// Address returns the remote endpoint, or the zero Address before a
// successful connect.
func (s *Socket) Address() Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Address{
		Family:  s.descriptor.RemoteFamily,
		Address: s.descriptor.RemoteAddress,
		Port:    s.descriptor.RemotePort,
	}
}

// LocalAddress returns the local endpoint of the connection.
func (s *Socket) LocalAddress() Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Address{
		Family:  s.descriptor.RemoteFamily,
		Address: s.descriptor.LocalAddress,
		Port:    s.descriptor.LocalPort,
	}
}

// Destroyed reports whether Disconnect or Destroy has been called.
func (s *Socket) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// Connecting reports whether a Connect is in progress.
func (s *Socket) Connecting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connecting
}

// Connected reports whether the connection is established and has not
// been observed to end.
func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Socket) setConnecting(connecting bool) {
	s.mu.Lock()
	s.connecting = connecting
	s.mu.Unlock()
}

// checkUsable fails operations on a destroyed socket without a call to
// the stopped worker.
func (s *Socket) checkUsable(method protocol.Method) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return fmt.Errorf("%s: %w", method, protocol.ClosedError())
	}
	return nil
}

// noteFailure clears Connected when err means the connection is gone.
func (s *Socket) noteFailure(err error) {
	if errors.Is(err, protocol.ErrClosed) || errors.Is(err, protocol.ErrTransport) {
		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()
	}
}
