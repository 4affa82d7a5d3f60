// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"
)

func mustRequest(t *testing.T, method Method, args ...any) Request {
	t.Helper()
	request, err := NewRequest(method, args...)
	if err != nil {
		t.Fatalf("NewRequest(%s): %v", method, err)
	}
	return request
}

func TestParseMethod(t *testing.T) {
	for _, method := range []Method{MethodReady, MethodConnect, MethodRead, MethodWrite, MethodDisconnect} {
		parsed, err := ParseMethod(method.String())
		if err != nil {
			t.Fatalf("ParseMethod(%q): %v", method.String(), err)
		}
		if parsed != method {
			t.Errorf("ParseMethod(%q) = %v, want %v", method.String(), parsed, method)
		}
	}

	_, err := ParseMethod("blockingRead")
	if !errors.Is(err, ErrUnknownMethod) {
		t.Fatalf("ParseMethod(blockingRead) error = %v, want ErrUnknownMethod", err)
	}
	if err.Error() != `method "blockingRead" not found` {
		t.Errorf("error message = %q", err.Error())
	}
}

func TestBypassesGuards(t *testing.T) {
	if !MethodReady.BypassesGuards() || !MethodDisconnect.BypassesGuards() {
		t.Error("ready and disconnect must bypass guards")
	}
	for _, method := range []Method{MethodConnect, MethodRead, MethodWrite} {
		if method.BypassesGuards() {
			t.Errorf("%s must not bypass guards", method)
		}
	}
}

func TestDecodeOperationUnknownMethod(t *testing.T) {
	_, err := DecodeOperation(Request{Method: "explode"})
	if !errors.Is(err, ErrUnknownMethod) {
		t.Fatalf("error = %v, want ErrUnknownMethod", err)
	}
}

func TestDecodeReady(t *testing.T) {
	operation, err := DecodeOperation(mustRequest(t, MethodReady))
	if err != nil {
		t.Fatalf("DecodeOperation: %v", err)
	}
	if _, ok := operation.(Ready); !ok {
		t.Fatalf("operation = %T, want Ready", operation)
	}

	operation, err = DecodeOperation(mustRequest(t, MethodReady, "a1b2"))
	if err != nil {
		t.Fatalf("DecodeOperation(ready instance): %v", err)
	}
	if operation.(Ready).Instance != "a1b2" {
		t.Errorf("instance = %q, want a1b2", operation.(Ready).Instance)
	}

	_, err = DecodeOperation(mustRequest(t, MethodReady, 1))
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("ready with a numeric instance: error = %v, want ErrProtocol", err)
	}
	_, err = DecodeOperation(mustRequest(t, MethodReady, "a", "b"))
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("ready with two arguments: error = %v, want ErrProtocol", err)
	}
}

func TestDecodeConnectOptionsMap(t *testing.T) {
	request := mustRequest(t, MethodConnect, map[string]any{
		"port":      1337,
		"host":      "127.0.0.1",
		"noDelay":   false,
		"keepAlive": true,
		"timeout":   250,
	})
	operation, err := DecodeOperation(request)
	if err != nil {
		t.Fatalf("DecodeOperation: %v", err)
	}
	connect, ok := operation.(Connect)
	if !ok {
		t.Fatalf("operation = %T, want Connect", operation)
	}
	options := connect.Options
	if options.Port != 1337 || options.Host != "127.0.0.1" {
		t.Errorf("options = %+v, want port 1337 host 127.0.0.1", options)
	}
	if options.NoDelayEnabled() {
		t.Error("noDelay=false should disable TCP_NODELAY")
	}
	if !options.KeepAlive || options.Timeout != 250 {
		t.Errorf("options = %+v, want keepAlive and timeout 250", options)
	}
	if options.Address() != "127.0.0.1:1337" || options.Network() != "tcp" {
		t.Errorf("dial target = %s %s", options.Network(), options.Address())
	}
}

func TestDecodeConnectFromStruct(t *testing.T) {
	operation, err := DecodeOperation(mustRequest(t, MethodConnect, ConnectOptions{Port: 80}))
	if err != nil {
		t.Fatalf("DecodeOperation: %v", err)
	}
	options := operation.(Connect).Options
	if !options.NoDelayEnabled() {
		t.Error("absent noDelay should default to enabled")
	}
	if options.Address() != "localhost:80" {
		t.Errorf("Address() = %q, want localhost:80", options.Address())
	}
}

func TestDecodeConnectPortAndHost(t *testing.T) {
	operation, err := DecodeOperation(mustRequest(t, MethodConnect, 1337, "::1"))
	if err != nil {
		t.Fatalf("DecodeOperation: %v", err)
	}
	options := operation.(Connect).Options
	if options.Address() != "[::1]:1337" {
		t.Errorf("Address() = %q, want [::1]:1337", options.Address())
	}
}

func TestDecodeConnectRejectsBadShapes(t *testing.T) {
	cases := map[string]Request{
		"no options":      mustRequest(t, MethodConnect),
		"null options":    mustRequest(t, MethodConnect, nil),
		"string options":  mustRequest(t, MethodConnect, "localhost:1337"),
		"zero port":       mustRequest(t, MethodConnect, map[string]any{"host": "localhost"}),
		"port too large":  mustRequest(t, MethodConnect, 70000),
		"bad family":      mustRequest(t, MethodConnect, map[string]any{"port": 1, "family": 5}),
		"map plus extra":  mustRequest(t, MethodConnect, map[string]any{"port": 1}, "host"),
		"numeric host":    mustRequest(t, MethodConnect, 1337, 42),
		"three arguments": mustRequest(t, MethodConnect, 1, "a", "b"),
		"local hostname":  mustRequest(t, MethodConnect, map[string]any{"port": 1, "localAddress": "localhost"}),
		"local garbage":   mustRequest(t, MethodConnect, map[string]any{"port": 1, "localAddress": "10.0.0.300"}),
	}
	for name, request := range cases {
		if _, err := DecodeOperation(request); !errors.Is(err, ErrProtocol) {
			t.Errorf("%s: error = %v, want ErrProtocol", name, err)
		}
	}
}

func TestConnectLocalAddressBindsDialer(t *testing.T) {
	operation, err := DecodeOperation(mustRequest(t, MethodConnect,
		map[string]any{"port": 1337, "localAddress": "127.0.0.2", "localPort": 4000}))
	if err != nil {
		t.Fatalf("DecodeOperation: %v", err)
	}
	dialer := operation.(Connect).Options.Dialer(time.Second)
	local, ok := dialer.LocalAddr.(*net.TCPAddr)
	if !ok {
		t.Fatalf("LocalAddr = %#v, want *net.TCPAddr", dialer.LocalAddr)
	}
	if local.String() != "127.0.0.2:4000" {
		t.Errorf("LocalAddr = %s, want 127.0.0.2:4000", local)
	}
}

func TestDecodeConnectUnixPath(t *testing.T) {
	operation, err := DecodeOperation(mustRequest(t, MethodConnect, map[string]any{"path": "/tmp/peer.sock"}))
	if err != nil {
		t.Fatalf("DecodeOperation: %v", err)
	}
	options := operation.(Connect).Options
	if options.Network() != "unix" || options.Address() != "/tmp/peer.sock" {
		t.Errorf("dial target = %s %s, want unix /tmp/peer.sock", options.Network(), options.Address())
	}
}

func TestDecodeRead(t *testing.T) {
	cases := []struct {
		name string
		args []any
		want Read
	}{
		{"no arguments", nil, Read{}},
		{"max bytes", []any{100}, Read{MaxBytes: 100}},
		{"blocking", []any{nil, true}, Read{Blocking: true}},
		{"both", []any{8, true}, Read{MaxBytes: 8, Blocking: true}},
		{"negative means default", []any{-5}, Read{}},
		{"clamped", []any{1 << 40}, Read{MaxBytes: MaxReadSize}},
		{"trailing nulls", []any{nil, nil}, Read{}},
	}
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			operation, err := DecodeOperation(mustRequest(t, MethodRead, test.args...))
			if err != nil {
				t.Fatalf("DecodeOperation: %v", err)
			}
			if got := operation.(Read); got != test.want {
				t.Errorf("Read = %+v, want %+v", got, test.want)
			}
		})
	}
}

func TestDecodeReadRejectsBadShapes(t *testing.T) {
	for name, args := range map[string][]any{
		"string size":     {"16"},
		"float size":      {1.5},
		"string blocking": {1, "yes"},
		"too many":        {1, true, 3},
	} {
		if _, err := DecodeOperation(mustRequest(t, MethodRead, args...)); !errors.Is(err, ErrProtocol) {
			t.Errorf("%s: error = %v, want ErrProtocol", name, err)
		}
	}
}

func TestDecodeWrite(t *testing.T) {
	cases := []struct {
		name string
		args []any
		want []byte
	}{
		{"text", []any{"This is just a test message"}, []byte("This is just a test message")},
		{"bytes", []any{[]byte{0, 1, 2}}, []byte{0, 1, 2}},
		{"hex", []any{"00ff10", "hex"}, []byte{0x00, 0xff, 0x10}},
		{"base64", []any{"aGVsbG8=", "base64"}, []byte("hello")},
		{"null encoding", []any{"plain", nil}, []byte("plain")},
	}
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			operation, err := DecodeOperation(mustRequest(t, MethodWrite, test.args...))
			if err != nil {
				t.Fatalf("DecodeOperation: %v", err)
			}
			if got := operation.(Write).Data; !bytes.Equal(got, test.want) {
				t.Errorf("Data = %q, want %q", got, test.want)
			}
		})
	}
}

func TestDecodeWriteRejectsBadShapes(t *testing.T) {
	for name, args := range map[string][]any{
		"no data":          nil,
		"null data":        {nil},
		"numeric data":     {42},
		"numeric encoding": {"x", 8},
		"unknown encoding": {"x", "rot13"},
		"bad hex":          {"zz", "hex"},
		"too many":         {"x", "utf8", "extra"},
	} {
		if _, err := DecodeOperation(mustRequest(t, MethodWrite, args...)); !errors.Is(err, ErrProtocol) {
			t.Errorf("%s: error = %v, want ErrProtocol", name, err)
		}
	}
}

func TestDecodeDisconnect(t *testing.T) {
	operation, err := DecodeOperation(mustRequest(t, MethodDisconnect))
	if err != nil {
		t.Fatalf("DecodeOperation: %v", err)
	}
	if operation.Method() != MethodDisconnect {
		t.Errorf("Method() = %v, want disconnect", operation.Method())
	}
	if _, err := DecodeOperation(mustRequest(t, MethodDisconnect, true)); !errors.Is(err, ErrProtocol) {
		t.Errorf("disconnect with argument: error = %v, want ErrProtocol", err)
	}
}
