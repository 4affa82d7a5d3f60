// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Syncsocket-call sends one request to a running syncsocket-worker and
// prints the response as a JSON object. It lets shell scripts drive a
// worker without linking the bridge:
//
//	syncsocket-call connect '[{"port": 1337, "host": "127.0.0.1"}]'
//	syncsocket-call write '["hello"]'
//	syncsocket-call read '[null, true]'
//
// When the worker cannot be reached it prints
// {"couldNotConnect": true, "error": "..."} and exits 1.
package main
