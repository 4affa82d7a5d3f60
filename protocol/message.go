// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bureau-foundation/syncsocket/lib/codec"
)

// Request is one call on the worker.
type Request struct {
	Method string             `cbor:"method"`
	Args   []codec.RawMessage `cbor:"args,omitempty"`

	// BudgetMillis is how long the caller will wait for the response,
	// in milliseconds. Zero means the caller waits indefinitely.
	BudgetMillis int64 `cbor:"budget_ms,omitempty"`
}

// Budget returns BudgetMillis as a duration, or zero when unset.
func (r Request) Budget() time.Duration {
	if r.BudgetMillis <= 0 {
		return 0
	}
	return time.Duration(r.BudgetMillis) * time.Millisecond
}

// AnswerWithin is how long a worker may hold a request with the given
// budget before it must answer. It leaves a fifth of the budget for
// the response to reach a caller that is still waiting. Zero budget
// means no limit.
func AnswerWithin(budget time.Duration) time.Duration {
	if budget <= 0 {
		return 0
	}
	return budget - budget/5
}

// NewRequest encodes args positionally. A nil argument encodes as CBOR
// null, which the worker treats as absent.
func NewRequest(method Method, args ...any) (Request, error) {
	request := Request{Method: method.String()}
	for index, arg := range args {
		encoded, err := codec.Marshal(arg)
		if err != nil {
			return Request{}, fmt.Errorf("encoding %s argument %d: %w", method, index, err)
		}
		request.Args = append(request.Args, encoded)
	}
	return request, nil
}

// Response is the worker's answer to one Request. Error is empty on
// success; Data is absent for operations without a result.
type Response struct {
	Error string           `cbor:"error,omitempty"`
	Code  ErrorCode        `cbor:"code,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`

	// WorkerNotConnected is set when the worker has no established
	// connection to report on.
	WorkerNotConnected bool `cbor:"worker_not_connected,omitempty"`
}

// Err returns nil for a successful response and an [*Error] otherwise.
// A response with a message but no code is classified as internal.
func (r *Response) Err() error {
	if r.Error == "" && r.Code == "" {
		return nil
	}
	code := r.Code
	if code == "" {
		code = CodeInternal
	}
	return &Error{Code: code, Message: r.Error}
}

// Decode decodes Data into result. Absent data leaves result untouched.
func (r *Response) Decode(result any) error {
	if result == nil || len(r.Data) == 0 {
		return nil
	}
	return codec.Unmarshal(r.Data, result)
}

// SuccessResponse encodes result into a success Response. A nil result
// produces a Response with no data.
func SuccessResponse(result any) (Response, error) {
	if result == nil {
		return Response{}, nil
	}
	data, err := codec.Marshal(result)
	if err != nil {
		return Response{}, fmt.Errorf("encoding response data: %w", err)
	}
	return Response{Data: data}, nil
}

// ErrorResponse builds a failure Response from err, classifying it with
// [AsError].
func ErrorResponse(err error) Response {
	protocolError := AsError(err)
	return Response{
		Error:              protocolError.Message,
		Code:               protocolError.Code,
		WorkerNotConnected: protocolError.Code == CodeNotConnected,
	}
}

// ReadRequest decodes one Request from r, reading at most limit bytes.
// An empty stream returns io.EOF. A request larger than limit, or one
// that is not valid CBOR, returns an [*Error] with [CodeProtocol].
func ReadRequest(r io.Reader, limit int64) (Request, error) {
	limited := &io.LimitedReader{R: r, N: limit}
	var request Request
	if err := codec.NewDecoder(limited).Decode(&request); err != nil {
		if limited.N <= 0 {
			return Request{}, Errorf(CodeProtocol, "request exceeds %d bytes", limit)
		}
		if errors.Is(err, io.EOF) {
			return Request{}, io.EOF
		}
		return Request{}, Errorf(CodeProtocol, "invalid request: %v", err)
	}
	return request, nil
}

// WriteResponse encodes response to w.
func WriteResponse(w io.Writer, response Response) error {
	return codec.NewEncoder(w).Encode(response)
}
