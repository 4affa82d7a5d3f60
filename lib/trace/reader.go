// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/bureau-foundation/syncsocket/lib/codec"
)

// Reader decodes a capture and verifies its seal.
type Reader struct {
	compression Compression
	decoder     *codec.Decoder
	release     func()
	hasher      hash.Hash
	done        error
}

// NewReader reads the capture header from r.
func NewReader(r io.Reader) (*Reader, error) {
	buffered := bufio.NewReader(r)

	header := make([]byte, len(magic)+1)
	if _, err := io.ReadFull(buffered, header); err != nil {
		return nil, fmt.Errorf("reading trace header: %w", err)
	}
	if !bytes.Equal(header[:len(magic)], []byte(magic)) {
		return nil, ErrBadMagic
	}
	compression := Compression(header[len(magic)])

	stream, release, err := newDecompressor(buffered, compression)
	if err != nil {
		return nil, err
	}

	return &Reader{
		compression: compression,
		decoder:     codec.NewDecoder(stream),
		release:     release,
		hasher:      newSealHasher(),
	}, nil
}

// Compression returns the compression named in the capture header.
func (r *Reader) Compression() Compression {
	return r.compression
}

// Next returns the next traffic or event record. After the seal is
// verified it returns io.EOF. A capture that ends early returns
// [ErrUnsealed]; a wrong digest returns [ErrDigestMismatch].
func (r *Reader) Next() (Record, error) {
	if r.done != nil {
		return Record{}, r.done
	}

	var raw codec.RawMessage
	if err := r.decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, r.finish(ErrUnsealed)
		}
		return Record{}, r.finish(fmt.Errorf("decoding trace record: %w", err))
	}

	var record Record
	if err := codec.Unmarshal(raw, &record); err != nil {
		return Record{}, r.finish(fmt.Errorf("decoding trace record: %w", err))
	}

	if record.Kind == KindSeal {
		if !bytes.Equal(record.Digest, r.hasher.Sum(nil)) {
			return Record{}, r.finish(ErrDigestMismatch)
		}
		return Record{}, r.finish(io.EOF)
	}

	r.hasher.Write(raw)
	return record, nil
}

func (r *Reader) finish(err error) error {
	r.done = err
	r.release()
	return err
}

// ReadAll returns every record of the capture in r. On a verification
// failure the records decoded so far are returned with the error.
func ReadAll(r io.Reader) ([]Record, error) {
	reader, err := NewReader(r)
	if err != nil {
		return nil, err
	}
	var records []Record
	for {
		record, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, record)
	}
}

// ReadFile is ReadAll over the file at path.
func ReadFile(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadAll(file)
}
