// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the variable [Load] reads the config path
// from.
const EnvironmentVariable = "SYNCSOCKET_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Trace compression names accepted in trace.compression.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
	CompressionLZ4  = "lz4"
)

// Config is the root configuration document.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// Worker configures the worker process.
	Worker WorkerConfig `yaml:"worker"`

	// Bridge configures the caller side: how the worker is spawned and
	// how long the bridge waits for it.
	Bridge BridgeConfig `yaml:"bridge"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
// Zero values leave the base value in place.
type ConfigOverrides struct {
	Worker *WorkerConfig `yaml:"worker,omitempty"`
	Bridge *BridgeConfig `yaml:"bridge,omitempty"`
}

// WorkerConfig configures the worker process.
type WorkerConfig struct {
	// ListenPort is the TCP port of the worker's protocol endpoint.
	// Default: 13354
	ListenPort int `yaml:"listen_port"`

	// BindAddress is the address the protocol endpoint listens on.
	// Default: 0.0.0.0
	BindAddress string `yaml:"bind_address"`

	// MaxChunk bounds the bytes returned by one read when the caller
	// does not ask for a size.
	// Default: 16384
	MaxChunk int `yaml:"max_chunk"`

	// MaxRequestSize caps one encoded request on the protocol endpoint.
	// Default: 10 MiB
	MaxRequestSize int64 `yaml:"max_request_size"`

	// ConnectTimeout applies to connect calls that do not carry their
	// own timeout.
	// Default: 10s
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// Trace configures capture of the real connection's traffic.
	Trace TraceConfig `yaml:"trace"`
}

// TraceConfig configures traffic capture.
type TraceConfig struct {
	// Path is the capture file. Empty disables capture.
	Path string `yaml:"path"`

	// Compression is one of "none", "zstd", "lz4".
	// Default: zstd
	Compression string `yaml:"compression"`
}

// BridgeConfig configures the caller side of the bridge.
type BridgeConfig struct {
	// WorkerBinary is the path of the syncsocket-worker executable.
	// Default: syncsocket-worker (found in PATH)
	WorkerBinary string `yaml:"worker_binary"`

	// ListenPort is the port the spawned worker is told to listen on.
	// Default: 13354
	ListenPort int `yaml:"listen_port"`

	// ReadyTimeout bounds the readiness handshake.
	// Default: 5s
	ReadyTimeout time.Duration `yaml:"ready_timeout"`

	// ReadyInterval is the pause between readiness probes.
	// Default: 10ms
	ReadyInterval time.Duration `yaml:"ready_interval"`

	// CallTimeout bounds one request/response round trip.
	// Default: 1s
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Environment: Development,
		Worker: WorkerConfig{
			ListenPort:     13354,
			BindAddress:    "0.0.0.0",
			MaxChunk:       16384,
			MaxRequestSize: 10 << 20,
			ConnectTimeout: 10 * time.Second,
			Trace: TraceConfig{
				Compression: CompressionZstd,
			},
		},
		Bridge: BridgeConfig{
			WorkerBinary:  "syncsocket-worker",
			ListenPort:    13354,
			ReadyTimeout:  5 * time.Second,
			ReadyInterval: 10 * time.Millisecond,
			CallTimeout:   time.Second,
		},
	}
}

// Load loads configuration from the file named by SYNCSOCKET_CONFIG.
// It fails if the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of a syncsocket config file, or use --config", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path on top of [Default], applies
// the matching environment overrides and expands path variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &ConfigOverrides{
				Worker: &WorkerConfig{BindAddress: "127.0.0.1"},
			}
		}
	}

	if overrides == nil {
		return
	}

	if worker := overrides.Worker; worker != nil {
		if worker.ListenPort != 0 {
			c.Worker.ListenPort = worker.ListenPort
		}
		if worker.BindAddress != "" {
			c.Worker.BindAddress = worker.BindAddress
		}
		if worker.MaxChunk != 0 {
			c.Worker.MaxChunk = worker.MaxChunk
		}
		if worker.MaxRequestSize != 0 {
			c.Worker.MaxRequestSize = worker.MaxRequestSize
		}
		if worker.ConnectTimeout != 0 {
			c.Worker.ConnectTimeout = worker.ConnectTimeout
		}
		if worker.Trace.Path != "" {
			c.Worker.Trace.Path = worker.Trace.Path
		}
		if worker.Trace.Compression != "" {
			c.Worker.Trace.Compression = worker.Trace.Compression
		}
	}

	if bridge := overrides.Bridge; bridge != nil {
		if bridge.WorkerBinary != "" {
			c.Bridge.WorkerBinary = bridge.WorkerBinary
		}
		if bridge.ListenPort != 0 {
			c.Bridge.ListenPort = bridge.ListenPort
		}
		if bridge.ReadyTimeout != 0 {
			c.Bridge.ReadyTimeout = bridge.ReadyTimeout
		}
		if bridge.ReadyInterval != 0 {
			c.Bridge.ReadyInterval = bridge.ReadyInterval
		}
		if bridge.CallTimeout != 0 {
			c.Bridge.CallTimeout = bridge.CallTimeout
		}
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Worker.Trace.Path = expandVars(c.Worker.Trace.Path, vars)
	c.Bridge.WorkerBinary = expandVars(c.Bridge.WorkerBinary, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, consulting
// vars before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if err := validatePort("worker.listen_port", c.Worker.ListenPort); err != nil {
		errs = append(errs, err)
	}
	if c.Worker.BindAddress == "" {
		errs = append(errs, fmt.Errorf("worker.bind_address is required"))
	}
	if c.Worker.MaxChunk <= 0 {
		errs = append(errs, fmt.Errorf("worker.max_chunk must be positive, got %d", c.Worker.MaxChunk))
	}
	if c.Worker.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Errorf("worker.max_request_size must be positive, got %d", c.Worker.MaxRequestSize))
	}
	if c.Worker.ConnectTimeout < 0 {
		errs = append(errs, fmt.Errorf("worker.connect_timeout must not be negative"))
	}
	switch c.Worker.Trace.Compression {
	case CompressionNone, CompressionZstd, CompressionLZ4:
	default:
		errs = append(errs, fmt.Errorf("worker.trace.compression must be one of: none, zstd, lz4"))
	}

	if c.Bridge.WorkerBinary == "" {
		errs = append(errs, fmt.Errorf("bridge.worker_binary is required"))
	}
	if err := validatePort("bridge.listen_port", c.Bridge.ListenPort); err != nil {
		errs = append(errs, err)
	}
	if c.Bridge.ReadyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("bridge.ready_timeout must be positive"))
	}
	if c.Bridge.ReadyInterval <= 0 {
		errs = append(errs, fmt.Errorf("bridge.ready_interval must be positive"))
	}
	if c.Bridge.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("bridge.call_timeout must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func validatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be in 1..65535, got %d", field, port)
	}
	return nil
}
