// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/syncsocket/lib/config"
	"github.com/bureau-foundation/syncsocket/lib/process"
	"github.com/bureau-foundation/syncsocket/lib/version"
)

// commandOptions are the flags that are not worker configuration.
type commandOptions struct {
	configPath  string
	verbose     bool
	showVersion bool
	help        bool
}

func newFlagSet(workerConfig *Config, options *commandOptions, output io.Writer) *pflag.FlagSet {
	flags := pflag.NewFlagSet("syncsocket-worker", pflag.ContinueOnError)
	flags.SetOutput(output)
	workerConfig.AddFlags(flags)
	flags.StringVar(&options.configPath, "config", "", "config file (default: $"+config.EnvironmentVariable+")")
	flags.BoolVarP(&options.verbose, "verbose", "v", false, "log each request")
	flags.BoolVar(&options.showVersion, "version", false, "print version and exit")
	flags.BoolVarP(&options.help, "help", "h", false, "show help")
	return flags
}

// parseCommandLine resolves the worker configuration from a config
// file and args. Flags override the file; the file overrides the
// defaults. A single positional argument is taken as the listen port
// when --listen-port is not given.
func parseCommandLine(args []string, output io.Writer) (Config, commandOptions, error) {
	// First pass: find --config and the informational flags.
	var scratch Config
	var options commandOptions
	if err := newFlagSet(&scratch, &options, io.Discard).Parse(args); err != nil {
		return Config{}, options, err
	}
	if options.help || options.showVersion {
		return Config{}, options, nil
	}

	base := DefaultConfig()
	configPath := options.configPath
	if configPath == "" {
		configPath = os.Getenv(config.EnvironmentVariable)
	}
	if configPath != "" {
		file, err := config.LoadFile(configPath)
		if err != nil {
			return Config{}, options, err
		}
		if err := file.Validate(); err != nil {
			return Config{}, options, fmt.Errorf("invalid config %s: %w", configPath, err)
		}
		base = ConfigFrom(file.Worker)
	}

	// Second pass: apply flags over the file values.
	flags := newFlagSet(&base, &options, output)
	if err := flags.Parse(args); err != nil {
		return Config{}, options, err
	}

	switch positional := flags.Args(); len(positional) {
	case 0:
	case 1:
		if flags.Changed("listen-port") {
			return Config{}, options, fmt.Errorf("listen port given both as --listen-port and as an argument")
		}
		port, err := strconv.Atoi(positional[0])
		if err != nil {
			return Config{}, options, fmt.Errorf("invalid listen port %q", positional[0])
		}
		base.ListenPort = port
	default:
		return Config{}, options, fmt.Errorf("unexpected arguments: %v", positional[1:])
	}

	if err := base.Validate(); err != nil {
		return Config{}, options, err
	}
	return base, options, nil
}

// RunCommand is the syncsocket-worker entrypoint. It serves until
// SIGINT or SIGTERM, a disconnect request, or cancellation of ctx.
func RunCommand(ctx context.Context, args []string, stderr io.Writer) error {
	workerConfig, options, err := parseCommandLine(args, stderr)
	if err != nil {
		if err == pflag.ErrHelp {
			printUsage(stderr)
			return nil
		}
		return err
	}
	if options.help {
		printUsage(stderr)
		return nil
	}
	if options.showVersion {
		version.Print("syncsocket-worker")
		return nil
	}

	logger := process.NewLogger(stderr, options.verbose)

	if err := process.SetParentDeathSignal(syscall.SIGTERM); err != nil {
		logger.Warn("parent death signal unavailable", "error", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker, err := New(workerConfig, logger)
	if err != nil {
		return err
	}
	if err := worker.Listen(); err != nil {
		return err
	}

	logger.Info("starting worker",
		"version", version.Info(),
		"pid", os.Getpid(),
		"address", worker.Addr().String(),
	)
	return worker.Serve(ctx)
}

func printUsage(output io.Writer) {
	fmt.Fprint(output, `syncsocket-worker - hold one TCP connection for a synchronous bridge

USAGE
    syncsocket-worker [flags] [listen-port]

FLAGS
    -p, --listen-port <port>        protocol endpoint port (default: 13354)
        --bind-address <addr>       protocol endpoint address (default: 0.0.0.0)
        --max-chunk <bytes>         read size when none is given (default: 16384)
        --max-request-size <bytes>  largest accepted request (default: 10485760)
        --connect-timeout <dur>     dial timeout for connects without one (default: 10s)
        --trace-file <path>         capture connection traffic
        --trace-compression <name>  none, zstd, or lz4 (default: zstd)
        --config <path>             config file (default: $SYNCSOCKET_CONFIG)
    -v, --verbose                   log each request
        --version                   print version and exit
    -h, --help                      show this help

The worker exits after a disconnect request or on SIGINT/SIGTERM.
`)
}
