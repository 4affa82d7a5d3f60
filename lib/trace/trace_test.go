// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/syncsocket/lib/clock"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func writeCapture(t *testing.T, compression Compression) []byte {
	t.Helper()
	var buffer bytes.Buffer
	fake := clock.Fake(epoch)

	writer, err := NewWriter(&buffer, compression, fake)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := writer.Event("connected"); err != nil {
		t.Fatalf("Event: %v", err)
	}
	fake.Advance(time.Millisecond)
	if err := writer.Outbound([]byte("hello peer")); err != nil {
		t.Fatalf("Outbound: %v", err)
	}
	fake.Advance(time.Millisecond)
	if err := writer.Inbound([]byte("hello worker")); err != nil {
		t.Fatalf("Inbound: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buffer.Bytes()
}

func TestRoundTripAllCompressions(t *testing.T) {
	for _, compression := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(compression.String(), func(t *testing.T) {
			records, err := ReadAll(bytes.NewReader(writeCapture(t, compression)))
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if len(records) != 3 {
				t.Fatalf("got %d records, want 3", len(records))
			}

			if records[0].Kind != KindEvent || records[0].Event != "connected" {
				t.Errorf("record 0 = %+v, want connected event", records[0])
			}
			if records[1].Kind != KindOutbound || string(records[1].Data) != "hello peer" {
				t.Errorf("record 1 = %+v, want outbound payload", records[1])
			}
			if records[2].Kind != KindInbound || string(records[2].Data) != "hello worker" {
				t.Errorf("record 2 = %+v, want inbound payload", records[2])
			}

			for i, record := range records {
				if record.Sequence != uint64(i+1) {
					t.Errorf("record %d sequence = %d, want %d", i, record.Sequence, i+1)
				}
			}
			if want := epoch.Add(2 * time.Millisecond); !records[2].Time().Equal(want) {
				t.Errorf("record 2 time = %v, want %v", records[2].Time(), want)
			}
		})
	}
}

func TestReaderReportsCompression(t *testing.T) {
	reader, err := NewReader(bytes.NewReader(writeCapture(t, CompressionLZ4)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if reader.Compression() != CompressionLZ4 {
		t.Errorf("Compression() = %v, want lz4", reader.Compression())
	}
}

func TestTamperedCaptureFailsDigest(t *testing.T) {
	capture := writeCapture(t, CompressionNone)
	index := bytes.Index(capture, []byte("hello peer"))
	if index < 0 {
		t.Fatal("payload not found in uncompressed capture")
	}
	capture[index] = 'j'

	records, err := ReadAll(bytes.NewReader(capture))
	if !errors.Is(err, ErrDigestMismatch) {
		t.Fatalf("ReadAll error = %v, want ErrDigestMismatch", err)
	}
	if len(records) != 3 {
		t.Errorf("got %d records before the seal, want 3", len(records))
	}
}

func TestTruncatedCaptureIsUnsealed(t *testing.T) {
	capture := writeCapture(t, CompressionNone)
	truncated := capture[:len(capture)-1]

	records, err := ReadAll(bytes.NewReader(truncated))
	if !errors.Is(err, ErrUnsealed) {
		t.Fatalf("ReadAll error = %v, want ErrUnsealed", err)
	}
	if len(records) != 3 {
		t.Errorf("got %d records, want 3", len(records))
	}
}

func TestBadMagic(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("NOTATRACE")))
	if !errors.Is(err, ErrBadMagic) {
		t.Fatalf("NewReader error = %v, want ErrBadMagic", err)
	}
}

func TestCreateAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.trace")

	writer, err := Create(path, CompressionZstd, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	payload := bytes.Repeat([]byte("0123456789abcdef"), 4096)
	if err := writer.Inbound(payload); err != nil {
		t.Fatalf("Inbound: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := writer.Event("late"); err == nil {
		t.Error("append after Close should fail")
	}

	records, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(records) != 1 || !bytes.Equal(records[0].Data, payload) {
		t.Fatalf("ReadFile returned %d records, want the single payload", len(records))
	}
}

func TestParseCompression(t *testing.T) {
	for name, want := range map[string]Compression{
		"none": CompressionNone,
		"":     CompressionNone,
		"lz4":  CompressionLZ4,
		"zstd": CompressionZstd,
	} {
		got, err := ParseCompression(name)
		if err != nil || got != want {
			t.Errorf("ParseCompression(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Error("ParseCompression(gzip) should fail")
	}
}
