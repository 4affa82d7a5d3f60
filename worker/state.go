// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"github.com/bureau-foundation/syncsocket/protocol"
)

// State is the lifecycle position of the worker's connection.
type State uint8

const (
	StateUninitialized State = iota
	StateListening
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateListening:
		return "listening"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnectionState is everything the worker knows about its one
// connection. It is owned by the event loop and never shared.
type ConnectionState struct {
	State State

	// Ready is set once the protocol endpoint is accepting requests.
	Ready bool

	// Connected becomes true when a connect completes and stays true
	// after the connection closes, so later calls see the closed
	// error rather than the not-connected one.
	Connected bool

	// Closed becomes true once and never reverts.
	Closed bool

	// LastError is sticky: once set, every guarded operation fails
	// with it.
	LastError *protocol.Error

	// Inbound holds received bytes not yet read, oldest first.
	Inbound []byte

	// MaxChunk is the read size used when the caller gives none.
	MaxChunk int

	Descriptor protocol.ConnectionDescriptor
}

// NewConnectionState returns the state of a worker that has not yet
// started listening.
func NewConnectionState(maxChunk int) *ConnectionState {
	if maxChunk <= 0 {
		maxChunk = protocol.DefaultMaxChunk
	}
	return &ConnectionState{MaxChunk: maxChunk}
}

// Guard returns the error an operation must fail with before doing any
// work, or nil if it may run.
func (s *ConnectionState) Guard(method protocol.Method) *protocol.Error {
	if method.BypassesGuards() {
		return nil
	}
	if s.LastError != nil {
		return s.LastError
	}
	if !s.Connected && method != protocol.MethodConnect {
		return protocol.NotConnectedError()
	}
	if s.Closed {
		return protocol.ClosedError()
	}
	if method == protocol.MethodConnect {
		switch {
		case s.Connected:
			return protocol.Errorf(protocol.CodeAlreadyConnected, "already connected to %s:%d",
				s.Descriptor.RemoteAddress, s.Descriptor.RemotePort)
		case s.State == StateConnecting:
			return protocol.Errorf(protocol.CodeAlreadyConnected, "connect already in progress")
		}
	}
	return nil
}

// Take removes up to maxBytes from the front of the inbound buffer and
// returns them. maxBytes <= 0 means MaxChunk. The result is never nil.
func (s *ConnectionState) Take(maxBytes int) []byte {
	if maxBytes <= 0 {
		maxBytes = s.MaxChunk
	}
	count := min(maxBytes, len(s.Inbound))
	chunk := make([]byte, count)
	copy(chunk, s.Inbound)
	s.Inbound = s.Inbound[count:]
	if len(s.Inbound) == 0 {
		s.Inbound = nil
	}
	return chunk
}

// closeError is the error a caller waiting on a closed connection
// receives.
func (s *ConnectionState) closeError() *protocol.Error {
	if s.LastError != nil {
		return s.LastError
	}
	return protocol.ClosedError()
}
