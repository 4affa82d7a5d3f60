// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"net"
	"time"

	"github.com/bureau-foundation/syncsocket/protocol"
)

// call is one operation submitted to the event loop. reply has
// capacity one; the loop never blocks answering. budget is how long
// the caller will wait, zero when it did not say.
type call struct {
	operation protocol.Operation
	reply     chan protocol.Response
	budget    time.Duration
}

// event is a transport notification posted by a helper goroutine.
// generation identifies the transport the goroutine was started for.
type event interface {
	transportGeneration() uint64
}

type dialEvent struct {
	generation uint64
	connection net.Conn
	err        error
}

type dataEvent struct {
	generation uint64
	data       []byte
}

type closeEvent struct {
	generation uint64
	err        error
}

type writeEvent struct {
	generation uint64
	err        error
}

func (e dialEvent) transportGeneration() uint64  { return e.generation }
func (e dataEvent) transportGeneration() uint64  { return e.generation }
func (e closeEvent) transportGeneration() uint64 { return e.generation }
func (e writeEvent) transportGeneration() uint64 { return e.generation }

// pendingRead is a blocking read parked until data, a close, a newer
// call, or its expiry. resolved is closed when it leaves the loop.
type pendingRead struct {
	call     call
	maxBytes int
	sequence uint64
	resolved chan struct{}
}

// writeJob is a write waiting for, or occupying, the transport.
type writeJob struct {
	call call
	data []byte
}
