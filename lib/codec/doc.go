// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration shared by the
// bridge, the worker and the traffic capture format.
//
// The bridge/worker protocol is message-bounded: one CBOR value per
// request and one per response, each on its own connection. CBOR is
// self-delimiting, so no sentinel byte or length prefix is needed.
// The encoder uses Core Deterministic Encoding so the same request
// always produces identical bytes, which keeps captured traffic and
// test fixtures stable.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (protocol connections, trace files):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// # Struct Tag Rules
//
// A `cbor` tag marks a type that is only ever CBOR (wire envelopes,
// trace records). A `json` tag marks a type that is also printed as
// JSON by the helper binary (ConnectOptions, ConnectionDescriptor);
// fxamacker/cbor reads `json` tags when `cbor` tags are absent. Never
// put both tags on one field.
//
// The decoder bounds nesting depth, array length and map size because
// the worker decodes requests from any process that can reach its
// port.
package codec
