// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/syncsocket/lib/codec"
	"github.com/bureau-foundation/syncsocket/lib/process"
	"github.com/bureau-foundation/syncsocket/lib/version"
	"github.com/bureau-foundation/syncsocket/protocol"
)

// portEnvironmentVariable overrides the default worker port.
const portEnvironmentVariable = "SYNCSOCKET_WORKER_PORT"

// output is the JSON form of a worker response.
type output struct {
	Error              string `json:"error,omitempty"`
	Code               string `json:"code,omitempty"`
	Data               any    `json:"data,omitempty"`
	DataEncoding       string `json:"dataEncoding,omitempty"`
	WorkerNotConnected bool   `json:"workerNotConnected,omitempty"`
}

// failure is printed when no response was received.
type failure struct {
	CouldNotConnect bool   `json:"couldNotConnect"`
	Error           string `json:"error"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("syncsocket-call", pflag.ContinueOnError)
	flags.SetOutput(stderr)

	defaultPort := protocol.DefaultListenPort
	if value := os.Getenv(portEnvironmentVariable); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			fmt.Fprintf(stderr, "error: invalid %s %q\n", portEnvironmentVariable, value)
			return 2
		}
		defaultPort = port
	}

	var (
		port        int
		host        string
		timeout     time.Duration
		diagnose    bool
		showVersion bool
		help        bool
	)
	flags.IntVarP(&port, "port", "p", defaultPort, "worker port (default: $"+portEnvironmentVariable+" or 13354)")
	flags.StringVar(&host, "host", "127.0.0.1", "worker host")
	flags.DurationVar(&timeout, "timeout", time.Second, "round trip timeout")
	flags.BoolVar(&diagnose, "diagnose", false, "print the raw CBOR response in diagnostic notation to stderr")
	flags.BoolVar(&showVersion, "version", false, "print version and exit")
	flags.BoolVarP(&help, "help", "h", false, "show help")

	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printUsage(stderr)
			return 0
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	if help {
		printUsage(stderr)
		return 0
	}
	if showVersion {
		version.Print("syncsocket-call")
		return 0
	}

	positional := flags.Args()
	if len(positional) < 1 || len(positional) > 2 {
		printUsage(stderr)
		return 2
	}
	argumentText := ""
	if len(positional) == 2 {
		argumentText = positional[1]
	}

	request, err := buildRequest(positional[0], argumentText)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	address := net.JoinHostPort(host, strconv.Itoa(port))
	response, err := protocol.RoundTrip(context.Background(), address, request, timeout)
	if err != nil {
		writeJSON(stdout, failure{CouldNotConnect: true, Error: err.Error()})
		return 1
	}

	if diagnose {
		if encoded, err := codec.Marshal(response); err == nil {
			if notation, err := codec.Diagnose(encoded); err == nil {
				fmt.Fprintln(stderr, notation)
			}
		}
	}

	rendered, err := renderResponse(response)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	writeJSON(stdout, rendered)
	return 0
}

// buildRequest turns a method name and a JSON (or JSONC) array of
// arguments into a Request. The method is not checked here so the
// worker's own unknown-method answer is what gets printed.
func buildRequest(method, argumentText string) (protocol.Request, error) {
	request := protocol.Request{Method: method}
	if argumentText == "" {
		return request, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON([]byte(argumentText))))
	decoder.UseNumber()
	var arguments []any
	if err := decoder.Decode(&arguments); err != nil {
		return protocol.Request{}, fmt.Errorf("arguments must be a JSON array: %w", err)
	}

	for index, argument := range arguments {
		encoded, err := codec.Marshal(normalizeNumbers(argument))
		if err != nil {
			return protocol.Request{}, fmt.Errorf("encoding argument %d: %w", index, err)
		}
		request.Args = append(request.Args, encoded)
	}
	return request, nil
}

// normalizeNumbers converts json.Number values to int64 where they are
// integral, so ports and sizes encode as CBOR integers.
func normalizeNumbers(value any) any {
	switch typed := value.(type) {
	case json.Number:
		if integer, err := typed.Int64(); err == nil {
			return integer
		}
		if float, err := typed.Float64(); err == nil {
			return float
		}
		return typed.String()
	case []any:
		for index := range typed {
			typed[index] = normalizeNumbers(typed[index])
		}
		return typed
	case map[string]any:
		for key := range typed {
			typed[key] = normalizeNumbers(typed[key])
		}
		return typed
	default:
		return value
	}
}

// renderResponse converts a response to its JSON form. Byte strings
// print as text when they are valid UTF-8 and as base64 otherwise.
func renderResponse(response *protocol.Response) (output, error) {
	rendered := output{
		Error:              response.Error,
		Code:               string(response.Code),
		WorkerNotConnected: response.WorkerNotConnected,
	}
	if len(response.Data) == 0 {
		return rendered, nil
	}

	var data any
	if err := codec.Unmarshal(response.Data, &data); err != nil {
		return output{}, fmt.Errorf("decoding response data: %w", err)
	}
	if raw, ok := data.([]byte); ok {
		if utf8.Valid(raw) {
			rendered.Data = string(raw)
		} else {
			rendered.Data = base64.StdEncoding.EncodeToString(raw)
			rendered.DataEncoding = "base64"
		}
		return rendered, nil
	}
	rendered.Data = data
	return rendered, nil
}

func writeJSON(w io.Writer, value any) {
	var encoded []byte
	var err error
	if process.IsTerminal(w) {
		encoded, err = json.MarshalIndent(value, "", "  ")
	} else {
		encoded, err = json.Marshal(value)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: encoding output: %v\n", err)
		return
	}
	w.Write(append(encoded, '\n'))
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `syncsocket-call - send one request to a syncsocket worker

USAGE
    syncsocket-call [flags] <method> [json-args]

    <method> is ready, connect, read, write, or disconnect.
    [json-args] is a JSON array; comments and trailing commas are allowed.

EXAMPLES
    syncsocket-call connect '[{"port": 1337, "host": "127.0.0.1"}]'
    syncsocket-call write '["68656c6c6f", "hex"]'
    syncsocket-call read '[null, true]'

FLAGS
    -p, --port <port>     worker port (default: $%s or %d)
        --host <host>     worker host (default: 127.0.0.1)
        --timeout <dur>   round trip timeout (default: 1s)
        --diagnose        print the raw response in CBOR diagnostic notation
        --version         print version and exit
    -h, --help            show this help
`, portEnvironmentVariable, protocol.DefaultListenPort)
}
