// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/bureau-foundation/syncsocket/lib/clock"
	"github.com/bureau-foundation/syncsocket/protocol"
)

// stopGracePeriod is how long Stop waits after SIGINT before killing
// the worker.
const stopGracePeriod = 2 * time.Second

// Bridge spawns and owns one worker process.
type Bridge struct {
	// WorkerCommand is the argv of the worker binary. The listen
	// flags are appended to it.
	WorkerCommand []string

	// Env is the worker's environment. Nil inherits the current one.
	Env []string

	// ListenPort is the worker's protocol port. Default: 13354.
	ListenPort int

	// BindAddress is passed to the worker. Default: 0.0.0.0. Calls go
	// to loopback unless a specific address is bound.
	BindAddress string

	// MaxChunk is passed to the worker when positive.
	MaxChunk int

	// ReadyTimeout bounds the readiness handshake. Default: 5s.
	ReadyTimeout time.Duration

	// ReadyInterval is the pause between readiness probes.
	// Default: 10ms.
	ReadyInterval time.Duration

	// CallTimeout bounds one round trip. Default: 1s.
	CallTimeout time.Duration

	// Stderr receives the worker's log output. Nil means os.Stderr.
	Stderr io.Writer

	// Logger receives structured log output. If nil, slog.Default()
	// is used. Calls are logged at Debug level; process lifecycle at
	// Info.
	Logger *slog.Logger

	// Clock drives the readiness deadline and the stop grace period.
	// Nil means the real clock.
	Clock clock.Clock

	mu       sync.Mutex
	command  *exec.Cmd
	address  string
	instance string
	done     chan struct{}
	waitErr  error
	stopOnce sync.Once
}

func (b *Bridge) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

func (b *Bridge) clock() clock.Clock {
	if b.Clock != nil {
		return b.Clock
	}
	return clock.Real()
}

func (b *Bridge) applyDefaults() {
	if b.ListenPort == 0 {
		b.ListenPort = protocol.DefaultListenPort
	}
	if b.BindAddress == "" {
		b.BindAddress = "0.0.0.0"
	}
	if b.ReadyTimeout <= 0 {
		b.ReadyTimeout = 5 * time.Second
	}
	if b.ReadyInterval <= 0 {
		b.ReadyInterval = 10 * time.Millisecond
	}
	if b.CallTimeout <= 0 {
		b.CallTimeout = time.Second
	}
}

// callAddress is where calls are sent: loopback when the worker binds
// every interface, the bound address otherwise.
func (b *Bridge) callAddress() string {
	host := b.BindAddress
	if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(b.ListenPort))
}

// Start spawns the worker and waits until it answers ready. On any
// failure the worker has been killed and reaped when Start returns.
func (b *Bridge) Start(ctx context.Context) error {
	if len(b.WorkerCommand) == 0 {
		return fmt.Errorf("bridge: WorkerCommand is required")
	}
	if b.done != nil {
		return fmt.Errorf("bridge: already started")
	}
	b.applyDefaults()
	if b.ListenPort < 1 || b.ListenPort > 65535 {
		return fmt.Errorf("bridge: ListenPort must be in 1..65535, got %d", b.ListenPort)
	}

	instance, err := newInstanceToken()
	if err != nil {
		return fmt.Errorf("bridge: %w", err)
	}

	args := append([]string{}, b.WorkerCommand[1:]...)
	args = append(args,
		"--listen-port", strconv.Itoa(b.ListenPort),
		"--bind-address", b.BindAddress,
		"--instance", instance,
	)
	if b.MaxChunk > 0 {
		args = append(args, "--max-chunk", strconv.Itoa(b.MaxChunk))
	}

	command := exec.Command(b.WorkerCommand[0], args...)
	command.Env = b.Env
	command.Stderr = b.Stderr
	if command.Stderr == nil {
		command.Stderr = os.Stderr
	}

	if err := command.Start(); err != nil {
		return fmt.Errorf("bridge: starting worker: %w", err)
	}

	b.command = command
	b.address = b.callAddress()
	b.instance = instance
	b.done = make(chan struct{})

	// Reap in the background so an early exit is noticed while the
	// readiness loop runs.
	go func() {
		err := command.Wait()
		b.waitErr = err
		close(b.done)

		exitCode := 0
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				exitCode = exitErr.ExitCode()
			} else {
				exitCode = -1
			}
		}
		b.logger().Info("worker exited",
			"pid", command.Process.Pid,
			"exit_code", exitCode,
			"error", err,
		)
	}()

	if err := b.waitReady(ctx); err != nil {
		command.Process.Kill()
		<-b.done
		return fmt.Errorf("bridge: worker on %s: %w", b.address, err)
	}

	b.logger().Info("worker ready",
		"pid", command.Process.Pid,
		"address", b.address,
	)
	return nil
}

// newInstanceToken returns the token that tells this bridge's worker
// apart from any other worker answering on the same port.
func newInstanceToken() (string, error) {
	var token [8]byte
	if _, err := rand.Read(token[:]); err != nil {
		return "", fmt.Errorf("generating worker instance token: %w", err)
	}
	return hex.EncodeToString(token[:]), nil
}

// waitReady polls ready until this bridge's own worker answers true,
// the worker exits, ctx is cancelled, or ReadyTimeout passes. Each
// probe is bounded by the call timeout and by the time left. A worker
// from another bridge holding the port answers false.
func (b *Bridge) waitReady(ctx context.Context) error {
	clk := b.clock()
	deadline := clk.Now().Add(b.ReadyTimeout)

	request, err := protocol.NewRequest(protocol.MethodReady, b.instance)
	if err != nil {
		return err
	}

	var lastErr error
	for {
		remaining := deadline.Sub(clk.Now())
		if remaining <= 0 {
			return fmt.Errorf("%w after %v (last probe: %v)", ErrStartupTimeout, b.ReadyTimeout, lastErr)
		}

		response, err := protocol.RoundTrip(ctx, b.address, request, min(b.CallTimeout, remaining))
		if err == nil {
			err = response.Err()
			if err == nil {
				var ready bool
				if err = response.Decode(&ready); err == nil {
					if ready {
						return nil
					}
					err = errors.New("another worker answered on the port")
				}
			}
		}
		lastErr = err

		select {
		case <-b.done:
			return fmt.Errorf("%w: worker exited before becoming ready (%v)", ErrStartupTimeout, b.waitErr)
		case <-ctx.Done():
			return ctx.Err()
		case <-clk.After(b.ReadyInterval):
		}
	}
}

// Call sends method with args to the worker and blocks until it
// answers. When result is non-nil and the response carries data, the
// data is decoded into result.
func (b *Bridge) Call(ctx context.Context, method protocol.Method, result any, args ...any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done == nil {
		return fmt.Errorf("%s: %w: bridge not started", method, ErrWorkerUnreachable)
	}

	request, err := protocol.NewRequest(method, args...)
	if err != nil {
		return err
	}

	started := b.clock().Now()
	response, err := protocol.RoundTrip(ctx, b.address, request, b.CallTimeout)
	if err != nil {
		b.logger().Debug("call failed", "method", method, "error", err)
		return fmt.Errorf("%s: %w: %w", method, ErrWorkerUnreachable, err)
	}
	b.logger().Debug("call",
		"method", method,
		"duration", b.clock().Now().Sub(started),
		"error", response.Error,
	)

	if err := response.Err(); err != nil {
		var protocolError *protocol.Error
		errors.As(err, &protocolError)
		return &RequestError{Method: method, Code: protocolError.Code, Message: protocolError.Message}
	}
	if result != nil {
		if err := response.Decode(result); err != nil {
			return fmt.Errorf("%s: decoding result: %w", method, err)
		}
	}
	return nil
}

// Kill sends SIGINT to the worker and returns without waiting. Calls
// made after the worker exits fail with ErrWorkerUnreachable.
func (b *Bridge) Kill() error {
	if b.command == nil {
		return nil
	}
	err := b.command.Process.Signal(syscall.SIGINT)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// Wait blocks until the worker has been reaped and returns its exit
// error.
func (b *Bridge) Wait() error {
	if b.done == nil {
		return nil
	}
	<-b.done
	return b.waitErr
}

// Done is closed once the worker has been reaped. It is nil before
// Start.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// Stop interrupts the worker and waits for it, killing it if it has
// not exited within a grace period. Stop is idempotent.
func (b *Bridge) Stop() {
	if b.done == nil {
		return
	}
	b.stopOnce.Do(func() {
		if err := b.Kill(); err != nil {
			b.logger().Warn("interrupting worker", "error", err)
		}
		select {
		case <-b.done:
		case <-b.clock().After(stopGracePeriod):
			b.logger().Warn("worker ignored interrupt, killing", "pid", b.command.Process.Pid)
			b.command.Process.Kill()
			<-b.done
		}
	})
}

// Addr returns the worker's protocol address, or nil before Start.
func (b *Bridge) Addr() net.Addr {
	if b.done == nil {
		return nil
	}
	address, err := net.ResolveTCPAddr("tcp", b.address)
	if err != nil {
		return nil
	}
	return address
}

// Pid returns the worker's process ID, or 0 before Start.
func (b *Bridge) Pid() int {
	if b.command == nil {
		return 0
	}
	return b.command.Process.Pid
}
