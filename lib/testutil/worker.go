// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// WorkerEnv is the environment variable that turns a test binary into
// a worker process. Its value selects the behavior:
//
//   - "run": run the real worker entrypoint with os.Args[1:]
//   - "hang": never become ready, exit on SIGINT or SIGTERM
//   - "exit": exit with status 3 immediately
const WorkerEnv = "SYNCSOCKET_TEST_WORKER"

// Worker modes for [WorkerEnvironment].
const (
	WorkerRun  = "run"
	WorkerHang = "hang"
	WorkerExit = "exit"
)

// RunWorkerIfRequested must be the first statement of TestMain in any
// package that spawns workers. When [WorkerEnv] is unset it returns
// and the tests run normally; otherwise it acts out the requested mode
// and exits the process.
//
//	func TestMain(m *testing.M) {
//	    testutil.RunWorkerIfRequested(worker.RunCommand)
//	    os.Exit(m.Run())
//	}
func RunWorkerIfRequested(run func(ctx context.Context, args []string, stderr io.Writer) error) {
	mode := os.Getenv(WorkerEnv)
	switch mode {
	case "":
		return
	case WorkerHang:
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		<-signals
		os.Exit(0)
	case WorkerExit:
		os.Exit(3)
	case WorkerRun:
		if err := run(context.Background(), os.Args[1:], os.Stderr); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "error: unknown %s mode %q\n", WorkerEnv, mode)
		os.Exit(2)
	}
}

// WorkerCommand returns the argv prefix that re-executes the current
// test binary. Pair it with [WorkerEnvironment].
func WorkerCommand(t TestingT) []string {
	t.Helper()
	executable, err := os.Executable()
	if err != nil {
		t.Fatalf("resolving test executable: %v", err)
	}
	return []string{executable}
}

// WorkerEnvironment returns the current environment with [WorkerEnv]
// set to mode.
func WorkerEnvironment(mode string) []string {
	return append(os.Environ(), WorkerEnv+"="+mode)
}
