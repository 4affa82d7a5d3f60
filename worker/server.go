// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/bureau-foundation/syncsocket/protocol"
)

// requestReadTimeout is how long a protocol connection may take to
// deliver its request. The bridge writes immediately after dialing.
const requestReadTimeout = 10 * time.Second

// responseWriteTimeout bounds writing one response.
const responseWriteTimeout = 10 * time.Second

// lingerLimit and lingerTimeout bound how much of an oversized request
// is discarded after the error response, so the peer can read the
// response before the connection is torn down.
const (
	lingerLimit   = 256 << 10
	lingerTimeout = time.Second
)

// Listen opens the protocol endpoint. Serve calls it when it has not
// been called already; calling it first lets the caller learn the
// bound address (for port 0) before serving.
func (w *Worker) Listen() error {
	if w.listener != nil {
		return nil
	}
	address := net.JoinHostPort(w.config.BindAddress, strconv.Itoa(w.config.ListenPort))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", address, err)
	}
	w.listener = listener
	return nil
}

// Addr returns the protocol endpoint address, or nil before Listen.
func (w *Worker) Addr() net.Addr {
	if w.listener == nil {
		return nil
	}
	return w.listener.Addr()
}

// Serve accepts protocol connections until ctx is cancelled or a
// disconnect stops the event loop. It then closes the listener, waits
// for in-flight responses to be written, and returns nil.
func (w *Worker) Serve(ctx context.Context) error {
	if err := w.Listen(); err != nil {
		return err
	}
	listener := w.listener

	loopContext, cancelLoop := context.WithCancel(ctx)
	defer cancelLoop()
	go w.run(loopContext)

	// Unblock Accept when the loop stops.
	go func() {
		<-w.done
		listener.Close()
	}()

	w.logger.Info("worker listening",
		"address", listener.Addr().String(),
		"max_chunk", w.config.MaxChunk,
	)
	close(w.ready)

	for {
		connection, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || w.stopped() {
				break
			}
			w.logger.Error("accept failed", "error", err)
			continue
		}

		w.activeConnections.Add(1)
		go func() {
			defer w.activeConnections.Done()
			w.handleConnection(connection)
		}()
	}

	cancelLoop()
	<-w.done
	w.activeConnections.Wait()
	return nil
}

// handleConnection processes one request-response exchange.
func (w *Worker) handleConnection(connection net.Conn) {
	defer connection.Close()
	defer func() {
		if recovered := recover(); recovered != nil {
			w.logger.Error("protocol connection panicked", "panic", recovered)
			w.writeResponse(connection, protocol.ErrorResponse(protocol.Errorf(protocol.CodeInternal,
				"internal error: %v", recovered)))
		}
	}()

	connection.SetReadDeadline(time.Now().Add(requestReadTimeout))
	request, err := protocol.ReadRequest(connection, w.config.MaxRequestSize)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		w.logger.Warn("rejecting request", "remote", connection.RemoteAddr().String(), "error", err)
		w.writeResponse(connection, protocol.ErrorResponse(err))
		w.linger(connection)
		return
	}

	operation, err := protocol.DecodeOperation(request)
	if err != nil {
		w.logger.Debug("invalid request", "method", request.Method, "error", err)
		w.writeResponse(connection, protocol.ErrorResponse(err))
		return
	}

	w.logger.Debug("request", "method", operation.Method())
	w.writeResponse(connection, w.submit(operation, request.Budget()))
}

// submit hands an operation to the event loop and waits for its
// response. Once the loop has stopped, callers get the closed error.
func (w *Worker) submit(operation protocol.Operation, budget time.Duration) protocol.Response {
	c := call{operation: operation, reply: make(chan protocol.Response, 1), budget: budget}

	select {
	case w.calls <- c:
	case <-w.done:
		return protocol.ErrorResponse(protocol.ClosedError())
	}

	select {
	case response := <-c.reply:
		return response
	case <-w.done:
		// teardown answers parked calls before done closes.
		select {
		case response := <-c.reply:
			return response
		default:
			return protocol.ErrorResponse(protocol.ClosedError())
		}
	}
}

func (w *Worker) stopped() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func (w *Worker) writeResponse(connection net.Conn, response protocol.Response) {
	connection.SetWriteDeadline(time.Now().Add(responseWriteTimeout))
	if err := protocol.WriteResponse(connection, response); err != nil {
		w.logger.Debug("failed to write response", "error", err)
	}
}

// linger half-closes the connection and discards a bounded amount of
// unread request bytes. Closing with unread input makes the kernel
// reset the connection, which can destroy the response in flight.
func (w *Worker) linger(connection net.Conn) {
	if tcpConnection, ok := connection.(*net.TCPConn); ok {
		tcpConnection.CloseWrite()
	}
	connection.SetReadDeadline(time.Now().Add(lingerTimeout))
	io.Copy(io.Discard, io.LimitReader(connection, lingerLimit))
}
