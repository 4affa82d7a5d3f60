// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the syncsocket
// worker and bridge.
//
// Configuration is loaded from a single file specified by either the
// SYNCSOCKET_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no automatic file search. Binaries
// work without any file at all by starting from [Default]; command-line
// flags are applied on top of whatever was loaded.
//
// Files ending in .json or .jsonc are accepted as well as YAML. Comments
// and trailing commas are stripped with tidwall/jsonc, and the result is
// decoded by the same YAML decoder (JSON is a subset of YAML), so
// durations are written as strings ("5s", "250ms") in both formats.
//
// The file may contain environment-specific sections (development,
// staging, production) that override base values when
// [Config].Environment matches. Production without an explicit section
// binds the worker's protocol endpoint to loopback only.
//
// ${VAR} and ${VAR:-default} patterns are expanded in path fields
// (trace.path and worker_binary) after loading.
package config
