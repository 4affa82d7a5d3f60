// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a failed request. Codes travel on the wire next
// to the human-readable message.
type ErrorCode string

const (
	// CodeTransport is a failure of the real connection: dial, read,
	// or write. The message is the transport's error text.
	CodeTransport ErrorCode = "transport"

	// CodeNotConnected is an operation attempted before a successful
	// connect.
	CodeNotConnected ErrorCode = "not_connected"

	// CodeClosed is an operation attempted after the connection
	// closed.
	CodeClosed ErrorCode = "closed"

	// CodeUnknownMethod is a request naming no known method.
	CodeUnknownMethod ErrorCode = "unknown_method"

	// CodeProtocol is a malformed, oversized, or mis-shaped request.
	CodeProtocol ErrorCode = "protocol"

	// CodeAlreadyConnected is a connect on a worker that is connected
	// or connecting.
	CodeAlreadyConnected ErrorCode = "already_connected"

	// CodeInternal is a worker failure unrelated to the request.
	CodeInternal ErrorCode = "internal"
)

// Sentinels for errors.Is. An [*Error] matches the sentinel for its
// code.
var (
	ErrTransport        = errors.New("transport error")
	ErrNotConnected     = errors.New("not connected")
	ErrClosed           = errors.New("connection closed")
	ErrUnknownMethod    = errors.New("unknown method")
	ErrProtocol         = errors.New("protocol error")
	ErrAlreadyConnected = errors.New("already connected")
	ErrInternal         = errors.New("internal worker error")
)

func (c ErrorCode) sentinel() error {
	switch c {
	case CodeTransport:
		return ErrTransport
	case CodeNotConnected:
		return ErrNotConnected
	case CodeClosed:
		return ErrClosed
	case CodeUnknownMethod:
		return ErrUnknownMethod
	case CodeProtocol:
		return ErrProtocol
	case CodeAlreadyConnected:
		return ErrAlreadyConnected
	default:
		return ErrInternal
	}
}

// Error is a classified request failure. Error() returns Message
// unchanged so transport errors reach the caller verbatim.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is reports whether target is the sentinel for e's code.
func (e *Error) Is(target error) bool {
	return target == e.Code.sentinel()
}

// Errorf builds an [*Error] with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// TransportError wraps a failure of the real connection.
func TransportError(err error) *Error {
	return &Error{Code: CodeTransport, Message: err.Error()}
}

// NotConnectedError is returned for operations before connect.
func NotConnectedError() *Error {
	return &Error{Code: CodeNotConnected, Message: "not connected to a socket yet"}
}

// ClosedError is returned for operations after the connection closed.
func ClosedError() *Error {
	return &Error{Code: CodeClosed, Message: "socket connection closed"}
}

// AsError classifies any error as an [*Error]. Errors that are not
// already classified become [CodeInternal].
func AsError(err error) *Error {
	var protocolError *Error
	if errors.As(err, &protocolError) {
		return protocolError
	}
	return &Error{Code: CodeInternal, Message: err.Error()}
}
