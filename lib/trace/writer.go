// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"bufio"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"sync"

	"github.com/bureau-foundation/syncsocket/lib/clock"
	"github.com/bureau-foundation/syncsocket/lib/codec"
)

// Writer appends records to a capture. It is safe for concurrent use.
// The first error is sticky: every later call returns it.
type Writer struct {
	mu         sync.Mutex
	clock      clock.Clock
	buffered   *bufio.Writer
	compressor io.WriteCloser
	hasher     hash.Hash
	sequence   uint64
	closer     io.Closer
	err        error
	closed     bool
}

// NewWriter writes the capture header to w and returns a Writer that
// compresses records with compression. Close seals the capture but
// does not close w.
func NewWriter(w io.Writer, compression Compression, clk clock.Clock) (*Writer, error) {
	if clk == nil {
		clk = clock.Real()
	}

	buffered := bufio.NewWriter(w)
	if _, err := buffered.WriteString(magic); err != nil {
		return nil, fmt.Errorf("writing trace header: %w", err)
	}
	if err := buffered.WriteByte(byte(compression)); err != nil {
		return nil, fmt.Errorf("writing trace header: %w", err)
	}

	compressor, err := newCompressor(buffered, compression)
	if err != nil {
		return nil, err
	}

	return &Writer{
		clock:      clk,
		buffered:   buffered,
		compressor: compressor,
		hasher:     newSealHasher(),
	}, nil
}

// Create creates (or truncates) the file at path and returns a Writer
// over it. Close seals the capture and closes the file.
func Create(path string, compression Compression, clk clock.Clock) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating trace file: %w", err)
	}
	writer, err := NewWriter(file, compression, clk)
	if err != nil {
		file.Close()
		return nil, err
	}
	writer.closer = file
	return writer, nil
}

// Inbound records bytes received from the remote peer.
func (w *Writer) Inbound(data []byte) error {
	return w.append(Record{Kind: KindInbound, Data: data})
}

// Outbound records bytes written to the remote peer.
func (w *Writer) Outbound(data []byte) error {
	return w.append(Record{Kind: KindOutbound, Data: data})
}

// Event records a named lifecycle event.
func (w *Writer) Event(name string) error {
	return w.append(Record{Kind: KindEvent, Event: name})
}

func (w *Writer) append(record Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}
	if w.closed {
		return errors.New("trace writer closed")
	}

	w.sequence++
	record.Sequence = w.sequence
	record.UnixNano = w.clock.Now().UnixNano()

	encoded, err := codec.Marshal(record)
	if err != nil {
		w.err = fmt.Errorf("encoding trace record: %w", err)
		return w.err
	}
	w.hasher.Write(encoded)
	if _, err := w.compressor.Write(encoded); err != nil {
		w.err = fmt.Errorf("writing trace record: %w", err)
		return w.err
	}
	return nil
}

// Close writes the seal record, flushes the compressor and closes the
// underlying file when the Writer was made by [Create]. Calling Close
// more than once returns nil.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	if w.err != nil {
		errs = append(errs, w.err)
	} else {
		w.sequence++
		seal := Record{
			Sequence: w.sequence,
			UnixNano: w.clock.Now().UnixNano(),
			Kind:     KindSeal,
			Digest:   w.hasher.Sum(nil),
		}
		encoded, err := codec.Marshal(seal)
		if err == nil {
			_, err = w.compressor.Write(encoded)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("writing trace seal: %w", err))
		}
	}

	if err := w.compressor.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing trace compressor: %w", err))
	}
	if err := w.buffered.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("flushing trace: %w", err))
	}
	if w.closer != nil {
		if err := w.closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing trace file: %w", err))
		}
	}
	return errors.Join(errs...)
}
