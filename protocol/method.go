// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

// Method identifies a worker operation.
type Method uint8

const (
	MethodReady Method = iota + 1
	MethodConnect
	MethodRead
	MethodWrite
	MethodDisconnect
)

var methodNames = [...]string{
	MethodReady:      "ready",
	MethodConnect:    "connect",
	MethodRead:       "read",
	MethodWrite:      "write",
	MethodDisconnect: "disconnect",
}

// String returns the wire name of the method.
func (m Method) String() string {
	if m == 0 || int(m) >= len(methodNames) {
		return "unknown"
	}
	return methodNames[m]
}

// ParseMethod maps a wire name to its Method. Unknown names return an
// [*Error] with [CodeUnknownMethod].
func ParseMethod(name string) (Method, error) {
	for method := MethodReady; int(method) < len(methodNames); method++ {
		if methodNames[method] == name {
			return method, nil
		}
	}
	return 0, Errorf(CodeUnknownMethod, "method %q not found", name)
}

// BypassesGuards reports whether the method skips the worker's
// connection-state guards.
func (m Method) BypassesGuards() bool {
	return m == MethodReady || m == MethodDisconnect
}
