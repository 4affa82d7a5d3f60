// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "github.com/bureau-foundation/syncsocket/lib/codec"

// Operation is a decoded, validated request. The concrete types are
// [Ready], [Connect], [Read], [Write], and [Disconnect].
type Operation interface {
	Method() Method
}

// Ready probes the worker's protocol endpoint. Result: true, or false
// when Instance is set and names a different worker.
type Ready struct {
	Instance string
}

// Connect opens the worker's connection. Result: ConnectionDescriptor.
type Connect struct {
	Options ConnectOptions
}

// Read takes buffered bytes from the front of the inbound buffer.
// Result: a byte string, possibly empty.
type Read struct {
	// MaxBytes bounds the result. Zero means the worker's chunk size.
	// Values above MaxReadSize have been clamped.
	MaxBytes int

	// Blocking waits for data when the buffer is empty.
	Blocking bool
}

// Write sends bytes on the connection. No result.
type Write struct {
	Data []byte
}

// Disconnect closes the connection and stops the worker. No result.
type Disconnect struct{}

func (Ready) Method() Method      { return MethodReady }
func (Connect) Method() Method    { return MethodConnect }
func (Read) Method() Method       { return MethodRead }
func (Write) Method() Method      { return MethodWrite }
func (Disconnect) Method() Method { return MethodDisconnect }

// DecodeOperation resolves the request's method and decodes its
// arguments. Argument count and shape errors return an [*Error] with
// [CodeProtocol]; an unknown method returns [CodeUnknownMethod].
//
// Argument shapes:
//
//	ready(instance string?)
//	connect(options map)  or  connect(port int, host string?)
//	read(maxBytes int?, blocking bool?)
//	write(data string|bytes, encoding string?)
//	disconnect()
//
// A trailing argument that is CBOR null counts as absent.
func DecodeOperation(request Request) (Operation, error) {
	method, err := ParseMethod(request.Method)
	if err != nil {
		return nil, err
	}

	args := trimNullArgs(request.Args)

	switch method {
	case MethodReady:
		if err := checkArgCount(method, args, 1); err != nil {
			return nil, err
		}
		var ready Ready
		if len(args) == 1 {
			if err := codec.Unmarshal(args[0], &ready.Instance); err != nil {
				return nil, Errorf(CodeProtocol, "ready instance must be a string")
			}
		}
		return ready, nil

	case MethodConnect:
		return decodeConnect(args)

	case MethodRead:
		return decodeRead(args)

	case MethodWrite:
		return decodeWrite(args)

	case MethodDisconnect:
		if err := checkArgCount(method, args, 0); err != nil {
			return nil, err
		}
		return Disconnect{}, nil
	}

	return nil, Errorf(CodeUnknownMethod, "method %q not found", request.Method)
}

func decodeConnect(args []codec.RawMessage) (Operation, error) {
	if len(args) == 0 {
		return nil, Errorf(CodeProtocol, "connect requires options")
	}
	if err := checkArgCount(MethodConnect, args, 2); err != nil {
		return nil, err
	}

	var first any
	if err := codec.Unmarshal(args[0], &first); err != nil {
		return nil, Errorf(CodeProtocol, "connect: invalid argument: %v", err)
	}

	var options ConnectOptions
	switch first.(type) {
	case map[string]any:
		if len(args) != 1 {
			return nil, Errorf(CodeProtocol, "connect with options takes 1 argument, got %d", len(args))
		}
		if err := codec.Unmarshal(args[0], &options); err != nil {
			return nil, Errorf(CodeProtocol, "connect: invalid options: %v", err)
		}
	case uint64, int64:
		port, err := decodeInt(args[0], "connect port")
		if err != nil {
			return nil, err
		}
		options.Port = int(min(max(port, -1), 65536))
		if len(args) == 2 && !isNull(args[1]) {
			if err := codec.Unmarshal(args[1], &options.Host); err != nil {
				return nil, Errorf(CodeProtocol, "connect: host must be a string")
			}
		}
	default:
		return nil, Errorf(CodeProtocol, "connect: expected options map or port, got %T", first)
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}
	return Connect{Options: options}, nil
}

func decodeRead(args []codec.RawMessage) (Operation, error) {
	if err := checkArgCount(MethodRead, args, 2); err != nil {
		return nil, err
	}

	var read Read
	if len(args) >= 1 && !isNull(args[0]) {
		maxBytes, err := decodeInt(args[0], "read maxBytes")
		if err != nil {
			return nil, err
		}
		read.MaxBytes = int(min(max(maxBytes, 0), MaxReadSize))
	}
	if len(args) == 2 && !isNull(args[1]) {
		if err := codec.Unmarshal(args[1], &read.Blocking); err != nil {
			return nil, Errorf(CodeProtocol, "read: blocking must be a boolean")
		}
	}
	return read, nil
}

func decodeWrite(args []codec.RawMessage) (Operation, error) {
	if len(args) == 0 || isNull(args[0]) {
		return nil, Errorf(CodeProtocol, "write requires data")
	}
	if err := checkArgCount(MethodWrite, args, 2); err != nil {
		return nil, err
	}

	var encoding string
	if len(args) == 2 && !isNull(args[1]) {
		if err := codec.Unmarshal(args[1], &encoding); err != nil {
			return nil, Errorf(CodeProtocol, "write: encoding must be a string")
		}
	}

	var data any
	if err := codec.Unmarshal(args[0], &data); err != nil {
		return nil, Errorf(CodeProtocol, "write: invalid data: %v", err)
	}
	switch value := data.(type) {
	case []byte:
		return Write{Data: value}, nil
	case string:
		decoded, err := DecodeText(value, encoding)
		if err != nil {
			return nil, err
		}
		return Write{Data: decoded}, nil
	default:
		return nil, Errorf(CodeProtocol, "write: data must be a string or bytes, got %T", data)
	}
}

func checkArgCount(method Method, args []codec.RawMessage, maximum int) error {
	if len(args) > maximum {
		return Errorf(CodeProtocol, "%s takes at most %d arguments, got %d", method, maximum, len(args))
	}
	return nil
}

func decodeInt(raw codec.RawMessage, what string) (int64, error) {
	var value int64
	if err := codec.Unmarshal(raw, &value); err != nil {
		return 0, Errorf(CodeProtocol, "%s must be an integer", what)
	}
	return value, nil
}

// isNull reports whether raw is CBOR null or undefined.
func isNull(raw codec.RawMessage) bool {
	return len(raw) == 1 && (raw[0] == 0xf6 || raw[0] == 0xf7)
}

func trimNullArgs(args []codec.RawMessage) []codec.RawMessage {
	for len(args) > 0 && isNull(args[len(args)-1]) {
		args = args[:len(args)-1]
	}
	return args
}
