// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a capture record.
type Kind uint8

const (
	// KindInbound is bytes received from the remote peer.
	KindInbound Kind = iota + 1
	// KindOutbound is bytes handed to the transport by a write.
	KindOutbound
	// KindEvent is a lifecycle event with a name and no payload.
	KindEvent
	// KindSeal terminates a capture and carries the digest.
	KindSeal
)

func (k Kind) String() string {
	switch k {
	case KindInbound:
		return "inbound"
	case KindOutbound:
		return "outbound"
	case KindEvent:
		return "event"
	case KindSeal:
		return "seal"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Record is one entry of a capture.
type Record struct {
	Sequence uint64 `cbor:"seq"`
	// UnixNano is the capture time in nanoseconds since the epoch.
	UnixNano int64  `cbor:"t"`
	Kind     Kind   `cbor:"kind"`
	Data     []byte `cbor:"data,omitempty"`
	Event    string `cbor:"event,omitempty"`
	Digest   []byte `cbor:"digest,omitempty"`
}

// Time returns the record timestamp.
func (r Record) Time() time.Time {
	return time.Unix(0, r.UnixNano)
}

var (
	// ErrDigestMismatch means the seal digest does not match the
	// records that precede it.
	ErrDigestMismatch = errors.New("trace digest mismatch")

	// ErrUnsealed means the capture ended without a seal record.
	ErrUnsealed = errors.New("trace capture is not sealed")

	// ErrBadMagic means the input is not a capture file.
	ErrBadMagic = errors.New("not a syncsocket trace")
)

const magic = "SSTRACE1"
