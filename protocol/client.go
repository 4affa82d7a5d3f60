// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/bureau-foundation/syncsocket/lib/codec"
	"github.com/bureau-foundation/syncsocket/lib/netutil"
)

// RoundTrip performs one exchange with the worker at address: dial,
// write the request, half-close, read one response. The whole exchange
// is bounded by timeout and by ctx, whichever ends first.
//
// The request carries the remaining time as its budget unless the
// caller set one, so the worker can answer before the caller gives up.
//
// The returned error is non-nil only when no response was received.
// A response that reports a failure is returned as-is; call
// [Response.Err] to inspect it.
func RoundTrip(ctx context.Context, address string, request Request, timeout time.Duration) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if deadline, ok := ctx.Deadline(); ok && request.BudgetMillis == 0 {
		request.BudgetMillis = max(time.Until(deadline).Milliseconds(), 1)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	// Cancellation before the deadline still has to unblock I/O.
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", contextError(ctx, err))
	}

	// CBOR is self-delimiting; the half-close only lets the worker's
	// read side see EOF cleanly.
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.CloseWrite()
	}

	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, MaxResponseSize)).Decode(&response); err != nil {
		return nil, fmt.Errorf("reading response: %w", contextError(ctx, err))
	}
	return &response, nil
}

// contextError reports I/O failures caused by the exchange's deadline
// or cancellation as the context error. The connection deadline can
// fire a moment before the context records its own expiry.
func contextError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w (%v)", ctxErr, err)
	}
	if netutil.IsTimeout(err) {
		return fmt.Errorf("%w (%v)", context.DeadlineExceeded, err)
	}
	return err
}
