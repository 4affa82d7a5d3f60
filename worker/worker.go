// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bureau-foundation/syncsocket/lib/netutil"
	"github.com/bureau-foundation/syncsocket/lib/trace"
	"github.com/bureau-foundation/syncsocket/protocol"
)

// readBufferSize is the size of one read from the real connection.
const readBufferSize = 64 << 10

// Worker owns one outbound connection and serves the protocol that
// drives it.
type Worker struct {
	config Config
	logger *slog.Logger
	trace  *trace.Writer

	listener net.Listener
	ready    chan struct{}

	calls  chan call
	events chan event
	done   chan struct{}

	// readExpiries carries the sequence of a parked read whose caller
	// is about to give up.
	readExpiries chan uint64

	// Everything below is owned by the event loop goroutine.
	state         *ConnectionState
	connection    net.Conn
	generation    uint64
	pendingRead   *pendingRead
	readSequence  uint64
	connecting    *call
	writeQueue    []writeJob
	writeInFlight bool

	// activeConnections tracks protocol connections so Serve can drain
	// them before returning.
	activeConnections sync.WaitGroup
}

// New creates a Worker. The listener is not opened until Listen or
// Serve. When config names a trace file it is created here.
func New(config Config, logger *slog.Logger) (*Worker, error) {
	config = config.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	worker := &Worker{
		config: config,
		logger: logger,
		ready:  make(chan struct{}),
		calls:        make(chan call),
		events:       make(chan event, 64),
		done:         make(chan struct{}),
		readExpiries: make(chan uint64),
		state:        NewConnectionState(config.MaxChunk),
	}

	if config.TracePath != "" {
		compression, err := trace.ParseCompression(config.TraceCompression)
		if err != nil {
			return nil, err
		}
		writer, err := trace.Create(config.TracePath, compression, config.Clock)
		if err != nil {
			return nil, err
		}
		worker.trace = writer
	}

	return worker, nil
}

// Ready is closed once the protocol endpoint accepts requests.
func (w *Worker) Ready() <-chan struct{} {
	return w.ready
}

// Done is closed when the event loop has stopped, after a disconnect
// or a cancelled context.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// run is the event loop.
func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	defer w.teardown()

	w.state.Ready = true
	w.state.State = StateListening

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker shutting down", "reason", context.Cause(ctx))
			return

		case c := <-w.calls:
			if stop := w.handle(c); stop {
				return
			}

		case e := <-w.events:
			if e.transportGeneration() != w.generation {
				discardStale(e)
				continue
			}
			w.apply(e)

		case sequence := <-w.readExpiries:
			w.expirePendingRead(sequence)
		}
	}
}

// handle runs one call to completion or to its parking point. It
// reports whether the loop should stop.
func (w *Worker) handle(c call) (stop bool) {
	method := c.operation.Method()

	defer func() {
		if recovered := recover(); recovered != nil {
			w.logger.Error("operation panicked", "method", method, "panic", recovered)
			w.reply(c, protocol.ErrorResponse(protocol.Errorf(protocol.CodeInternal,
				"internal error during %s: %v", method, recovered)))
			stop = false
		}
	}()

	if w.pendingRead != nil {
		w.supersedePendingRead(method)
	}

	if err := w.state.Guard(method); err != nil {
		w.logger.Debug("operation rejected", "method", method, "code", err.Code, "error", err.Message)
		w.reply(c, protocol.ErrorResponse(err))
		return false
	}

	switch operation := c.operation.(type) {
	case protocol.Ready:
		w.replyData(c, operation.Instance == "" || operation.Instance == w.config.Instance)
	case protocol.Connect:
		w.connect(c, operation)
	case protocol.Read:
		w.read(c, operation)
	case protocol.Write:
		w.write(c, operation)
	case protocol.Disconnect:
		w.disconnect(c)
		return true
	default:
		w.reply(c, protocol.ErrorResponse(protocol.Errorf(protocol.CodeInternal,
			"no handler for %s", method)))
	}
	return false
}

func (w *Worker) connect(c call, operation protocol.Connect) {
	options := operation.Options
	w.state.State = StateConnecting
	w.connecting = &c
	w.generation++
	generation := w.generation

	w.logger.Debug("connecting", "network", options.Network(), "address", options.Address())

	dialer := options.Dialer(w.config.ConnectTimeout)
	dialer.Timeout = capToBudget(dialer.Timeout, c.budget)
	go func() {
		connection, err := dialer.Dial(options.Network(), options.Address())
		if err == nil {
			if tcpConnection, ok := connection.(*net.TCPConn); ok {
				err = tcpConnection.SetNoDelay(options.NoDelayEnabled())
				if err != nil {
					connection.Close()
					connection = nil
				}
			}
		}
		w.post(dialEvent{generation: generation, connection: connection, err: err})
	}()
}

// capToBudget shortens timeout so an operation bounded by it finishes
// while a caller with the given budget is still waiting.
func capToBudget(timeout, budget time.Duration) time.Duration {
	answerWithin := protocol.AnswerWithin(budget)
	if answerWithin <= 0 {
		return timeout
	}
	if timeout <= 0 {
		return answerWithin
	}
	return min(timeout, answerWithin)
}

func (w *Worker) read(c call, operation protocol.Read) {
	if operation.Blocking && len(w.state.Inbound) == 0 {
		w.readSequence++
		pending := &pendingRead{
			call:     c,
			maxBytes: operation.MaxBytes,
			sequence: w.readSequence,
			resolved: make(chan struct{}),
		}
		w.pendingRead = pending
		w.logger.Debug("read parked", "sequence", pending.sequence)
		if wait := protocol.AnswerWithin(c.budget); wait > 0 {
			go w.expireAfter(pending, wait)
		}
		return
	}
	w.replyData(c, w.state.Take(operation.MaxBytes))
}

// expireAfter reports the parked read as expired once wait passes,
// unless it has been resolved first.
func (w *Worker) expireAfter(pending *pendingRead, wait time.Duration) {
	select {
	case <-w.config.Clock.After(wait):
	case <-pending.resolved:
		return
	}
	select {
	case w.readExpiries <- pending.sequence:
	case <-pending.resolved:
	case <-w.done:
	}
}

// expirePendingRead answers a parked read with no data, leaving the
// inbound buffer for the next read.
func (w *Worker) expirePendingRead(sequence uint64) {
	if w.pendingRead == nil || w.pendingRead.sequence != sequence {
		return
	}
	pending := w.takePendingRead()
	w.logger.Debug("read expired", "sequence", sequence)
	w.replyData(pending.call, []byte{})
}

// takePendingRead removes the parked read from the loop.
func (w *Worker) takePendingRead() *pendingRead {
	pending := w.pendingRead
	if pending != nil {
		w.pendingRead = nil
		close(pending.resolved)
	}
	return pending
}

func (w *Worker) write(c call, operation protocol.Write) {
	w.writeQueue = append(w.writeQueue, writeJob{call: c, data: operation.Data})
	w.startNextWrite()
}

// startNextWrite hands the head of the queue to the transport. One
// write is in flight at a time so bytes reach the peer in call order.
func (w *Worker) startNextWrite() {
	if w.writeInFlight || len(w.writeQueue) == 0 {
		return
	}
	w.writeInFlight = true
	job := w.writeQueue[0]
	connection := w.connection
	generation := w.generation

	w.recordTrace(func(writer *trace.Writer) error { return writer.Outbound(job.data) })

	go func() {
		_, err := connection.Write(job.data)
		w.post(writeEvent{generation: generation, err: err})
	}()
}

func (w *Worker) disconnect(c call) {
	w.logger.Info("disconnecting", "state", w.state.State)

	w.closeTransport()
	w.state.Closed = true
	w.state.State = StateClosed

	closed := protocol.ClosedError()
	if w.connecting != nil {
		w.reply(*w.connecting, protocol.ErrorResponse(closed))
		w.connecting = nil
	}
	w.failWrites(closed)
	w.recordTrace(func(writer *trace.Writer) error { return writer.Event("disconnect") })

	w.reply(c, protocol.Response{})
}

// apply updates state for a current-generation transport event.
func (w *Worker) apply(e event) {
	switch e := e.(type) {
	case dialEvent:
		w.applyDial(e)
	case dataEvent:
		w.state.Inbound = append(w.state.Inbound, e.data...)
		w.recordTrace(func(writer *trace.Writer) error { return writer.Inbound(e.data) })
		if pending := w.takePendingRead(); pending != nil {
			w.replyData(pending.call, w.state.Take(pending.maxBytes))
		}
	case closeEvent:
		w.applyClose(e)
	case writeEvent:
		w.applyWrite(e)
	}
}

func (w *Worker) applyDial(e dialEvent) {
	pending := w.connecting
	w.connecting = nil

	if e.err != nil {
		w.state.LastError = protocol.TransportError(e.err)
		w.state.State = StateListening
		w.logger.Warn("connect failed", "error", e.err)
		w.recordTrace(func(writer *trace.Writer) error { return writer.Event("connect failed: " + e.err.Error()) })
		if pending != nil {
			w.reply(*pending, protocol.ErrorResponse(w.state.LastError))
		}
		return
	}

	w.connection = e.connection
	w.state.Connected = true
	w.state.State = StateConnected
	w.state.Descriptor = protocol.DescribeConnection(e.connection)

	w.logger.Info("connected",
		"remote_address", w.state.Descriptor.RemoteAddress,
		"remote_port", w.state.Descriptor.RemotePort,
		"local_port", w.state.Descriptor.LocalPort,
	)
	w.recordTrace(func(writer *trace.Writer) error {
		return writer.Event(fmt.Sprintf("connected %s", e.connection.RemoteAddr()))
	})

	go w.readTransport(w.generation, e.connection)

	if pending != nil {
		w.replyData(*pending, w.state.Descriptor)
	}
}

func (w *Worker) applyClose(e closeEvent) {
	if w.state.Closed {
		return
	}

	cleanEnd := errors.Is(e.err, io.EOF) || errors.Is(e.err, net.ErrClosed)
	if !cleanEnd && w.state.LastError == nil {
		w.state.LastError = protocol.TransportError(e.err)
	}
	if netutil.IsExpectedCloseError(e.err) {
		w.logger.Info("connection closed", "reason", e.err)
	} else {
		w.logger.Warn("connection failed", "error", e.err)
	}

	w.closeTransport()
	w.state.Closed = true
	w.state.State = StateClosed
	w.recordTrace(func(writer *trace.Writer) error { return writer.Event("closed: " + e.err.Error()) })

	closeError := w.state.closeError()
	if pending := w.takePendingRead(); pending != nil {
		w.reply(pending.call, protocol.ErrorResponse(closeError))
	}
	w.failWrites(closeError)
}

func (w *Worker) applyWrite(e writeEvent) {
	if len(w.writeQueue) == 0 {
		return
	}
	job := w.writeQueue[0]
	w.writeQueue = w.writeQueue[1:]
	w.writeInFlight = false

	if e.err != nil {
		if w.state.LastError == nil && !w.state.Closed {
			w.state.LastError = protocol.TransportError(e.err)
		}
		failure := w.state.closeError()
		w.logger.Warn("write failed", "error", e.err)
		w.reply(job.call, protocol.ErrorResponse(failure))
		w.failWrites(failure)
		return
	}

	w.reply(job.call, protocol.Response{})
	w.startNextWrite()
}

// failWrites answers every queued write with err. A write already on
// the transport is answered here too; its completion event finds an
// empty queue.
func (w *Worker) failWrites(err *protocol.Error) {
	for _, job := range w.writeQueue {
		w.reply(job.call, protocol.ErrorResponse(err))
	}
	w.writeQueue = nil
	w.writeInFlight = false
}

func (w *Worker) supersedePendingRead(by protocol.Method) {
	pending := w.takePendingRead()
	w.logger.Debug("read superseded", "sequence", pending.sequence, "by", by)
	w.reply(pending.call, protocol.ErrorResponse(protocol.Errorf(protocol.CodeProtocol,
		"blocking read %d superseded by %s", pending.sequence, by)))
}

// closeTransport closes the real connection and retires its
// generation so the reader's final events are dropped.
func (w *Worker) closeTransport() {
	if w.connection != nil {
		w.connection.Close()
		w.connection = nil
	}
	w.generation++
}

// teardown runs when the loop exits for any reason.
func (w *Worker) teardown() {
	w.closeTransport()

	closed := protocol.ClosedError()
	if pending := w.takePendingRead(); pending != nil {
		w.reply(pending.call, protocol.ErrorResponse(closed))
	}
	if w.connecting != nil {
		w.reply(*w.connecting, protocol.ErrorResponse(closed))
		w.connecting = nil
	}
	w.failWrites(closed)

	if w.trace != nil {
		if err := w.trace.Close(); err != nil {
			w.logger.Warn("closing trace", "error", err)
		}
	}
}

// readTransport copies bytes from the connection into data events
// until the connection ends.
func (w *Worker) readTransport(generation uint64, connection net.Conn) {
	buffer := make([]byte, readBufferSize)
	for {
		count, err := connection.Read(buffer)
		if count > 0 {
			data := make([]byte, count)
			copy(data, buffer[:count])
			if !w.post(dataEvent{generation: generation, data: data}) {
				return
			}
		}
		if err != nil {
			w.post(closeEvent{generation: generation, err: err})
			return
		}
	}
}

// post delivers an event to the loop. It returns false once the loop
// has stopped.
func (w *Worker) post(e event) bool {
	select {
	case w.events <- e:
		return true
	case <-w.done:
		discardStale(e)
		return false
	}
}

// discardStale releases resources carried by an event nobody will
// apply.
func discardStale(e event) {
	if dial, ok := e.(dialEvent); ok && dial.connection != nil {
		dial.connection.Close()
	}
}

func (w *Worker) reply(c call, response protocol.Response) {
	select {
	case c.reply <- response:
	default:
		w.logger.Error("dropping second response for call", "method", c.operation.Method())
	}
}

func (w *Worker) replyData(c call, result any) {
	response, err := protocol.SuccessResponse(result)
	if err != nil {
		response = protocol.ErrorResponse(protocol.Errorf(protocol.CodeInternal, "%v", err))
	}
	w.reply(c, response)
}

func (w *Worker) recordTrace(record func(*trace.Writer) error) {
	if w.trace == nil {
		return
	}
	if err := record(w.trace); err != nil {
		w.logger.Warn("trace capture failed", "error", err)
	}
}
