// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/syncsocket/bridge"
	"github.com/bureau-foundation/syncsocket/lib/config"
	"github.com/bureau-foundation/syncsocket/lib/process"
	"github.com/bureau-foundation/syncsocket/lib/version"
	"github.com/bureau-foundation/syncsocket/socket"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		process.Fatal(err)
	}
}

type options struct {
	configPath   string
	workerBinary string
	workerPort   int
	message      string
	encoding     string
	verbose      bool
	port         int
	host         string
}

func parseArgs(args []string, stderr io.Writer) (*options, bool, error) {
	var opts options
	var showVersion, help bool

	flags := pflag.NewFlagSet("syncsocket", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&opts.configPath, "config", "", "config file (default: $"+config.EnvironmentVariable+")")
	flags.StringVar(&opts.workerBinary, "worker", "", "worker binary (overrides bridge.worker_binary)")
	flags.IntVar(&opts.workerPort, "worker-port", 0, "worker protocol port (overrides bridge.listen_port)")
	flags.StringVarP(&opts.message, "message", "m", "ping\n", "message to send")
	flags.StringVar(&opts.encoding, "encoding", "", "encoding of --message: utf8, hex, base64, ...")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log each call")
	flags.BoolVar(&showVersion, "version", false, "print version and exit")
	flags.BoolVarP(&help, "help", "h", false, "show help")

	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printUsage(stderr)
			return nil, true, nil
		}
		return nil, false, err
	}
	if help {
		printUsage(stderr)
		return nil, true, nil
	}
	if showVersion {
		version.Print("syncsocket")
		return nil, true, nil
	}

	positional := flags.Args()
	if len(positional) < 1 || len(positional) > 2 {
		printUsage(stderr)
		return nil, false, fmt.Errorf("expected <port> [host]")
	}
	port, err := strconv.Atoi(positional[0])
	if err != nil || port < 1 || port > 65535 {
		return nil, false, fmt.Errorf("invalid port %q", positional[0])
	}
	opts.port = port
	if len(positional) == 2 {
		opts.host = positional[1]
	}
	return &opts, false, nil
}

func loadConfig(opts *options) (*config.Config, error) {
	configPath := opts.configPath
	if configPath == "" {
		configPath = os.Getenv(config.EnvironmentVariable)
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if opts.workerBinary != "" {
		cfg.Bridge.WorkerBinary = opts.workerBinary
	}
	if opts.workerPort != 0 {
		cfg.Bridge.ListenPort = opts.workerPort
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, done, err := parseArgs(args, stderr)
	if err != nil || done {
		return err
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger := process.NewLogger(stderr, opts.verbose)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := bridge.FromConfig(cfg)
	b.Logger = logger
	b.Stderr = stderr

	started := time.Now()
	s, err := socket.New(ctx, b)
	if err != nil {
		return err
	}
	defer s.Close()
	logger.Debug("worker started", "pid", b.Pid(), "elapsed", time.Since(started))

	if err := s.ConnectTo(ctx, opts.port, opts.host); err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	remote := s.Address()
	logger.Info("connected", "family", remote.Family, "address", remote.Address, "port", remote.Port)

	if err := s.WriteString(ctx, opts.message, opts.encoding); err != nil {
		return fmt.Errorf("writing: %w", err)
	}
	// A blocking read comes back empty when nothing arrived within the
	// call timeout.
	var reply []byte
	for len(reply) == 0 {
		reply, err = s.Read(ctx, 0, true)
		if err != nil {
			return fmt.Errorf("reading: %w", err)
		}
	}
	if _, err := stdout.Write(reply); err != nil {
		return err
	}

	return s.Disconnect(ctx)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `syncsocket - send one message over a worker-held TCP connection

USAGE
    syncsocket [flags] <port> [host]

FLAGS
    -m, --message <text>     message to send (default: "ping\n")
        --encoding <name>    encoding of the message: utf8, hex, base64, ...
        --worker <path>      worker binary (default: syncsocket-worker)
        --worker-port <port> worker protocol port (default: 13354)
        --config <path>      config file (default: $SYNCSOCKET_CONFIG)
    -v, --verbose            log each call
        --version            print version and exit
    -h, --help               show this help
`)
}
