// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/syncsocket/lib/clock"
	"github.com/bureau-foundation/syncsocket/lib/config"
	"github.com/bureau-foundation/syncsocket/lib/trace"
	"github.com/bureau-foundation/syncsocket/protocol"
)

// Config configures a Worker.
type Config struct {
	// ListenPort is the protocol endpoint port. Zero picks a free port.
	ListenPort int

	// BindAddress is the protocol endpoint address.
	BindAddress string

	// MaxChunk is the read size used when a read gives no maxBytes.
	MaxChunk int

	// MaxRequestSize caps one encoded request.
	MaxRequestSize int64

	// ConnectTimeout applies to connects that carry no timeout.
	ConnectTimeout time.Duration

	// TracePath enables traffic capture to this file.
	TracePath string

	// TraceCompression is "none", "zstd", or "lz4".
	TraceCompression string

	// Instance identifies this worker to the process that spawned it.
	// A ready probe naming a different instance is answered false.
	Instance string

	// Clock timestamps trace records and expires parked reads. Nil
	// means the real clock.
	Clock clock.Clock
}

// DefaultConfig returns the defaults of the config file format.
func DefaultConfig() Config {
	return ConfigFrom(config.Default().Worker)
}

// ConfigFrom converts the worker section of a config file.
func ConfigFrom(file config.WorkerConfig) Config {
	return Config{
		ListenPort:       file.ListenPort,
		BindAddress:      file.BindAddress,
		MaxChunk:         file.MaxChunk,
		MaxRequestSize:   file.MaxRequestSize,
		ConnectTimeout:   file.ConnectTimeout,
		TracePath:        file.Trace.Path,
		TraceCompression: file.Trace.Compression,
	}
}

// withDefaults fills zero fields other than ListenPort, where zero is
// meaningful.
func (c Config) withDefaults() Config {
	if c.BindAddress == "" {
		c.BindAddress = "0.0.0.0"
	}
	if c.MaxChunk <= 0 {
		c.MaxChunk = protocol.DefaultMaxChunk
	}
	if c.MaxRequestSize <= 0 {
		c.MaxRequestSize = protocol.MaxRequestSize
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.TraceCompression == "" {
		c.TraceCompression = config.CompressionZstd
	}
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	return c
}

// Validate reports values a worker cannot start with.
func (c Config) Validate() error {
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return fmt.Errorf("listen port must be in 0..65535, got %d", c.ListenPort)
	}
	if c.MaxChunk < 0 {
		return fmt.Errorf("max chunk must not be negative, got %d", c.MaxChunk)
	}
	if _, err := trace.ParseCompression(c.TraceCompression); err != nil {
		return err
	}
	return nil
}

// AddFlags binds the worker flags to c. Current field values become
// the flag defaults.
func (c *Config) AddFlags(flags *pflag.FlagSet) {
	flags.IntVarP(&c.ListenPort, "listen-port", "p", c.ListenPort, "protocol endpoint port")
	flags.StringVar(&c.BindAddress, "bind-address", c.BindAddress, "protocol endpoint address")
	flags.IntVar(&c.MaxChunk, "max-chunk", c.MaxChunk, "bytes returned by a read that gives no size")
	flags.Int64Var(&c.MaxRequestSize, "max-request-size", c.MaxRequestSize, "largest accepted request in bytes")
	flags.DurationVar(&c.ConnectTimeout, "connect-timeout", c.ConnectTimeout, "dial timeout for connects without one")
	flags.StringVar(&c.TracePath, "trace-file", c.TracePath, "capture connection traffic to this file")
	flags.StringVar(&c.TraceCompression, "trace-compression", c.TraceCompression, "trace compression: none, zstd, lz4")
	flags.StringVar(&c.Instance, "instance", c.Instance, "token a ready probe must name to be answered true")
}
