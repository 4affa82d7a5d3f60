// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/syncsocket/lib/config"
)

func TestParseArgs(t *testing.T) {
	opts, done, err := parseArgs([]string{"-m", "hello", "--worker-port", "9100", "1337", "example.test"}, io.Discard)
	if err != nil || done {
		t.Fatalf("parseArgs: done %v err %v", done, err)
	}
	if opts.port != 1337 || opts.host != "example.test" {
		t.Errorf("target = %s:%d", opts.host, opts.port)
	}
	if opts.message != "hello" || opts.workerPort != 9100 {
		t.Errorf("options = %+v", opts)
	}
}

func TestParseArgsRejectsBadPort(t *testing.T) {
	for _, args := range [][]string{{}, {"0"}, {"http"}, {"1", "a", "b"}} {
		if _, _, err := parseArgs(args, io.Discard); err == nil {
			t.Errorf("parseArgs(%q) succeeded", args)
		}
	}
}

func TestParseArgsHelp(t *testing.T) {
	_, done, err := parseArgs([]string{"--help"}, io.Discard)
	if err != nil || !done {
		t.Errorf("--help: done %v err %v", done, err)
	}
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syncsocket.yaml")
	document := `
bridge:
  worker_binary: /opt/syncsocket/bin/syncsocket-worker
  call_timeout: 4s
`
	if err := os.WriteFile(path, []byte(document), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(&options{configPath: path, workerPort: 9200})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Bridge.WorkerBinary != "/opt/syncsocket/bin/syncsocket-worker" {
		t.Errorf("WorkerBinary = %q", cfg.Bridge.WorkerBinary)
	}
	if cfg.Bridge.CallTimeout != 4*time.Second {
		t.Errorf("CallTimeout = %v", cfg.Bridge.CallTimeout)
	}
	if cfg.Bridge.ListenPort != 9200 {
		t.Errorf("ListenPort = %d, want the flag's 9200", cfg.Bridge.ListenPort)
	}
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	cfg, err := loadConfig(&options{workerBinary: "./syncsocket-worker"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Bridge.WorkerBinary != "./syncsocket-worker" || cfg.Bridge.ListenPort != 13354 {
		t.Errorf("bridge = %+v", cfg.Bridge)
	}
}
