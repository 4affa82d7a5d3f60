// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package trace captures the traffic of a worker's real connection to
// a file for later inspection.
//
// A capture file is an 8-byte magic ("SSTRACE1"), a one-byte
// [Compression] tag, and then a compressed stream of CBOR [Record]
// values. Each record carries a sequence number, a timestamp, a
// [Kind], and either payload bytes (inbound or outbound traffic) or an
// event name (connected, closed, error text).
//
// The last record of a complete capture is a seal: a BLAKE3 keyed
// digest over the encoded bytes of every record before it. [Reader]
// recomputes the digest while decoding and reports [ErrDigestMismatch]
// for tampered or corrupted captures and [ErrUnsealed] for captures
// whose writer never reached Close (a killed worker, for example). The
// records read before the problem are still returned.
package trace
