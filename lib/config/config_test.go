// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Worker.ListenPort != 13354 {
		t.Errorf("expected worker.listen_port=13354, got %d", cfg.Worker.ListenPort)
	}
	if cfg.Worker.BindAddress != "0.0.0.0" {
		t.Errorf("expected worker.bind_address=0.0.0.0, got %s", cfg.Worker.BindAddress)
	}
	if cfg.Worker.MaxChunk != 16384 {
		t.Errorf("expected worker.max_chunk=16384, got %d", cfg.Worker.MaxChunk)
	}
	if cfg.Bridge.ReadyTimeout != 5*time.Second {
		t.Errorf("expected bridge.ready_timeout=5s, got %v", cfg.Bridge.ReadyTimeout)
	}
	if cfg.Bridge.CallTimeout != time.Second {
		t.Errorf("expected bridge.call_timeout=1s, got %v", cfg.Bridge.CallTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoad_RequiresEnvironmentVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when SYNCSOCKET_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "SYNCSOCKET_CONFIG environment variable not set") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_WithEnvironmentVariable(t *testing.T) {
	path := writeConfig(t, "syncsocket.yaml", `
environment: staging
worker:
  listen_port: 14000
`)
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}
	if cfg.Worker.ListenPort != 14000 {
		t.Errorf("expected worker.listen_port=14000, got %d", cfg.Worker.ListenPort)
	}
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeConfig(t, "syncsocket.yaml", `
worker:
  bind_address: 127.0.0.1
  max_chunk: 4096
  connect_timeout: 250ms
  trace:
    path: /tmp/trace.bin
    compression: lz4
bridge:
  worker_binary: /opt/syncsocket/bin/syncsocket-worker
  ready_timeout: 2s
  ready_interval: 50ms
  call_timeout: 1500ms
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Worker.BindAddress != "127.0.0.1" {
		t.Errorf("expected bind_address=127.0.0.1, got %s", cfg.Worker.BindAddress)
	}
	if cfg.Worker.MaxChunk != 4096 {
		t.Errorf("expected max_chunk=4096, got %d", cfg.Worker.MaxChunk)
	}
	if cfg.Worker.ConnectTimeout != 250*time.Millisecond {
		t.Errorf("expected connect_timeout=250ms, got %v", cfg.Worker.ConnectTimeout)
	}
	if cfg.Worker.Trace.Compression != CompressionLZ4 {
		t.Errorf("expected trace.compression=lz4, got %s", cfg.Worker.Trace.Compression)
	}
	if cfg.Bridge.ReadyInterval != 50*time.Millisecond {
		t.Errorf("expected ready_interval=50ms, got %v", cfg.Bridge.ReadyInterval)
	}
	if cfg.Bridge.CallTimeout != 1500*time.Millisecond {
		t.Errorf("expected call_timeout=1.5s, got %v", cfg.Bridge.CallTimeout)
	}

	// Untouched fields keep their defaults.
	if cfg.Worker.ListenPort != 13354 {
		t.Errorf("expected default listen_port=13354, got %d", cfg.Worker.ListenPort)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	path := writeConfig(t, "syncsocket.jsonc", `{
  // The worker only needs to be reachable from this host.
  "worker": {
    "bind_address": "127.0.0.1",
    "listen_port": 15000,
  },
  "bridge": {
    "ready_timeout": "3s", /* generous for CI */
  },
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Worker.ListenPort != 15000 {
		t.Errorf("expected listen_port=15000, got %d", cfg.Worker.ListenPort)
	}
	if cfg.Worker.BindAddress != "127.0.0.1" {
		t.Errorf("expected bind_address=127.0.0.1, got %s", cfg.Worker.BindAddress)
	}
	if cfg.Bridge.ReadyTimeout != 3*time.Second {
		t.Errorf("expected ready_timeout=3s, got %v", cfg.Bridge.ReadyTimeout)
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "syncsocket.yaml", `
environment: staging
worker:
  listen_port: 14000
bridge:
  call_timeout: 1s
staging:
  worker:
    listen_port: 14100
  bridge:
    call_timeout: 3s
production:
  worker:
    listen_port: 14200
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Worker.ListenPort != 14100 {
		t.Errorf("expected staging listen_port=14100, got %d", cfg.Worker.ListenPort)
	}
	if cfg.Bridge.CallTimeout != 3*time.Second {
		t.Errorf("expected staging call_timeout=3s, got %v", cfg.Bridge.CallTimeout)
	}
}

func TestProductionDefaultsToLoopback(t *testing.T) {
	path := writeConfig(t, "syncsocket.yaml", "environment: production\n")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Worker.BindAddress != "127.0.0.1" {
		t.Errorf("expected production bind_address=127.0.0.1, got %s", cfg.Worker.BindAddress)
	}
}

func TestVariableExpansion(t *testing.T) {
	t.Setenv("SYNCSOCKET_TEST_TRACE_DIR", "/var/tmp/traces")
	path := writeConfig(t, "syncsocket.yaml", `
worker:
  trace:
    path: ${SYNCSOCKET_TEST_TRACE_DIR}/worker.trace
bridge:
  worker_binary: ${SYNCSOCKET_TEST_UNSET_BIN:-/usr/local/bin}/syncsocket-worker
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Worker.Trace.Path != "/var/tmp/traces/worker.trace" {
		t.Errorf("expected expanded trace path, got %s", cfg.Worker.Trace.Path)
	}
	if cfg.Bridge.WorkerBinary != "/usr/local/bin/syncsocket-worker" {
		t.Errorf("expected default-expanded worker binary, got %s", cfg.Bridge.WorkerBinary)
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Environment = "moon"
	cfg.Worker.ListenPort = 70000
	cfg.Worker.MaxChunk = 0
	cfg.Worker.Trace.Compression = "gzip"
	cfg.Bridge.CallTimeout = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		"invalid environment: moon",
		"worker.listen_port",
		"worker.max_chunk",
		"worker.trace.compression",
		"bridge.call_timeout",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("validation error missing %q:\n%v", want, err)
		}
	}
}
