// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/syncsocket/protocol"
)

var (
	// ErrStartupTimeout means the worker did not answer ready before
	// the readiness deadline, or exited before it could.
	ErrStartupTimeout = errors.New("worker did not become ready")

	// ErrWorkerUnreachable means a call got no response from the
	// worker: it could not be dialed, or the call timed out.
	ErrWorkerUnreachable = errors.New("worker unreachable")
)

// RequestError is a failure reported by the worker in its response.
// errors.Is matches it against the protocol sentinels for its code,
// such as [protocol.ErrNotConnected].
type RequestError struct {
	Method  protocol.Method
	Code    protocol.ErrorCode
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, e.Message)
}

func (e *RequestError) Unwrap() error {
	return &protocol.Error{Code: e.Code, Message: e.Message}
}
