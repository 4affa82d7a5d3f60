// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/bureau-foundation/syncsocket/lib/codec"
	"github.com/bureau-foundation/syncsocket/lib/testutil"
	"github.com/bureau-foundation/syncsocket/protocol"
	"github.com/bureau-foundation/syncsocket/worker"
)

func startWorker(t *testing.T) int {
	t.Helper()
	w, err := worker.New(worker.Config{BindAddress: "127.0.0.1"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("worker.New: %v", err)
	}
	if err := w.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- w.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		testutil.RequireReceive(t, served, 5*time.Second, "worker stopping")
	})
	testutil.RequireClosed(t, w.Ready(), 5*time.Second, "worker ready")
	return w.Addr().(*net.TCPAddr).Port
}

func runCall(t *testing.T, args ...string) (int, map[string]any) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	var printed map[string]any
	if stdout.Len() > 0 {
		if err := json.Unmarshal(stdout.Bytes(), &printed); err != nil {
			t.Fatalf("output is not a JSON object: %q (%v)", stdout.String(), err)
		}
	}
	return code, printed
}

func TestBuildRequestAcceptsJSONC(t *testing.T) {
	request, err := buildRequest("connect", `[
		// target peer
		{"port": 1337, "host": "127.0.0.1",},
	]`)
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}
	if request.Method != "connect" || len(request.Args) != 1 {
		t.Fatalf("request = %+v", request)
	}

	operation, err := protocol.DecodeOperation(request)
	if err != nil {
		t.Fatalf("DecodeOperation: %v", err)
	}
	connect := operation.(protocol.Connect)
	if connect.Options.Port != 1337 || connect.Options.Host != "127.0.0.1" {
		t.Errorf("options = %+v", connect.Options)
	}
}

func TestBuildRequestEncodesIntegers(t *testing.T) {
	request, err := buildRequest("read", `[512, true]`)
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}
	var size any
	if err := codec.Unmarshal(request.Args[0], &size); err != nil {
		t.Fatal(err)
	}
	if _, ok := size.(uint64); !ok {
		t.Errorf("512 decoded as %T, want an unsigned integer", size)
	}
}

func TestBuildRequestRejectsNonArray(t *testing.T) {
	if _, err := buildRequest("write", `{"data": "x"}`); err == nil {
		t.Error("expected an error for a non-array argument list")
	}
}

func TestRenderResponseBytes(t *testing.T) {
	text, _ := protocol.SuccessResponse([]byte("hello"))
	rendered, err := renderResponse(&text)
	if err != nil {
		t.Fatal(err)
	}
	if rendered.Data != "hello" || rendered.DataEncoding != "" {
		t.Errorf("text bytes rendered as %+v", rendered)
	}

	binary, _ := protocol.SuccessResponse([]byte{0xff, 0x00})
	rendered, err = renderResponse(&binary)
	if err != nil {
		t.Fatal(err)
	}
	if rendered.Data != "/wA=" || rendered.DataEncoding != "base64" {
		t.Errorf("binary bytes rendered as %+v", rendered)
	}
}

func TestRenderResponseError(t *testing.T) {
	response := protocol.ErrorResponse(protocol.NotConnectedError())
	rendered, err := renderResponse(&response)
	if err != nil {
		t.Fatal(err)
	}
	if rendered.Code != "not_connected" || !rendered.WorkerNotConnected || rendered.Error == "" {
		t.Errorf("rendered = %+v", rendered)
	}
}

func TestRunPrintsCouldNotConnect(t *testing.T) {
	port := testutil.FreePort(t)
	code, printed := runCall(t, "--port", strconv.Itoa(port), "ready")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if printed["couldNotConnect"] != true {
		t.Errorf("output = %v, want couldNotConnect", printed)
	}
	if message, _ := printed["error"].(string); message == "" {
		t.Error("output carries no error message")
	}
}

func TestRunAgainstWorker(t *testing.T) {
	port := startWorker(t)
	t.Setenv(portEnvironmentVariable, strconv.Itoa(port))

	code, printed := runCall(t, "ready")
	if code != 0 || printed["data"] != true {
		t.Errorf("ready: exit %d output %v", code, printed)
	}

	code, printed = runCall(t, "read")
	if code != 0 {
		t.Errorf("read exit code = %d", code)
	}
	if printed["code"] != "not_connected" || printed["workerNotConnected"] != true {
		t.Errorf("read before connect printed %v", printed)
	}

	code, printed = runCall(t, "explode", "[]")
	if code != 0 || printed["code"] != "unknown_method" {
		t.Errorf("unknown method: exit %d output %v", code, printed)
	}
}

func TestRunUsageErrors(t *testing.T) {
	if code, _ := runCall(t); code != 2 {
		t.Errorf("no method: exit code %d, want 2", code)
	}
	if code, _ := runCall(t, "write", "not json"); code != 2 {
		t.Errorf("bad arguments: exit code %d, want 2", code)
	}
}
