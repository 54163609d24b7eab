// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command echod serves the echo contract over TLS on a well-known port.
// With --parent-pid it exits as soon as that process is gone.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/spf13/pflag"

	echo "github.com/luxfi/grpcecho"
	"github.com/luxfi/grpcecho/supervisor"
)

var logger = loggo.GetLogger("echo.echod")

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("echod", pflag.ContinueOnError)
	var (
		parentPID  = flags.Int("parent-pid", 0, "PID of the parent process to monitor; exit when it is gone")
		configPath = flags.String("config", "", "path to a YAML config file")
		addr       = flags.String("addr", "", "gRPC bind address (default "+echo.DefaultAddr+")")
		certsDir   = flags.String("certs-dir", "", "directory holding private.key and certificate.pem")
		revision   = flags.String("revision", "", "protocol revision: timestamped or plain")
		workers    = flags.Int("workers", 0, "gRPC stream workers")
		reflect    = flags.Bool("reflection", true, "enable gRPC server reflection")
		jsonRPC    = flags.String("jsonrpc-addr", "", "serve JSON-RPC over HTTPS on this address")
		metrics    = flags.String("metrics-addr", "", "serve Prometheus metrics on this address")
		logLevel   = flags.String("log-level", "", "log level (TRACE, DEBUG, INFO, WARNING, ERROR)")
	)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg := echo.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = echo.LoadConfig(*configPath); err != nil {
			return errors.Trace(err)
		}
	}
	overrideString(flags, "addr", &cfg.Addr, *addr)
	overrideString(flags, "certs-dir", &cfg.CertsDir, *certsDir)
	overrideString(flags, "jsonrpc-addr", &cfg.JSONRPCAddr, *jsonRPC)
	overrideString(flags, "metrics-addr", &cfg.MetricsAddr, *metrics)
	overrideString(flags, "log-level", &cfg.LogLevel, *logLevel)
	if flags.Changed("revision") {
		cfg.Revision = echo.Revision(*revision)
	}
	if flags.Changed("workers") {
		cfg.Workers = *workers
	}
	if flags.Changed("reflection") {
		cfg.Reflection = *reflect
	}
	if err := cfg.Validate(); err != nil {
		return errors.Trace(err)
	}
	if cfg.LogLevel != "" {
		if err := loggo.ConfigureLoggers("<root>=" + cfg.LogLevel); err != nil {
			return errors.Annotate(err, "configuring logging")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *parentPID != 0 {
		supervisor.Start(ctx, *parentPID)
	}

	caps, err := cfg.Capabilities()
	if err != nil {
		return errors.Trace(err)
	}
	server, err := echo.NewServer(cfg, echo.NewService(caps, nil))
	if errors.Is(err, echo.ErrAlreadyRunning) {
		logger.Infof("echo server already running on %s; nothing to do", cfg.Addr)
		return nil
	}
	if err != nil {
		return errors.Annotate(err, "starting server")
	}
	return server.Serve(ctx)
}

func overrideString(flags *pflag.FlagSet, name string, dst *string, v string) {
	if flags.Changed(name) {
		*dst = v
	}
}
