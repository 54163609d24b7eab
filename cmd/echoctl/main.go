// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command echoctl calls an echo server the way an embedding host does.
//
//	echoctl [flags] echo <message>
//	echoctl [flags] prettify <json>
//	echoctl [flags] ping
//
// With --spawn, echoctl starts the given echod binary when nothing serves
// the port yet, and stops it again before exiting.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/spf13/pflag"

	echo "github.com/luxfi/grpcecho"
	"github.com/luxfi/grpcecho/launcher"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("echoctl", pflag.ContinueOnError)
	var (
		host      = flags.String("host", echo.DefaultHost, "server address")
		certPath  = flags.String("cert", echo.DefaultClientCertPath, "server certificate (PEM)")
		baseDir   = flags.String("base-dir", echo.ExecutableDir(), "fallback directory for a relative --cert")
		transport = flags.String("transport", echo.DefaultTransport, "transport: "+strings.Join(echo.AvailableTransports(), ", "))
		timeout   = flags.Duration("timeout", 0, "per-call timeout (0 for none)")
		spawn     = flags.String("spawn", "", "echod binary to start when the port is free")
		spawnAddr = flags.String("spawn-addr", echo.DefaultAddr, "bind address checked and polled with --spawn")
		logLevel  = flags.String("log-level", "WARNING", "log level")
	)
	flags.SetInterspersed(false)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if err := loggo.ConfigureLoggers("<root>=" + *logLevel); err != nil {
		return errors.Annotate(err, "configuring logging")
	}
	if !echo.HasTransport(*transport) {
		return errors.NotSupportedf("transport %q", *transport)
	}

	rest := flags.Args()
	if len(rest) == 0 {
		return errors.New("missing command: echo, prettify or ping")
	}

	if *spawn != "" {
		l := &launcher.Launcher{
			Binary:    *spawn,
			Args:      []string{"--addr", *spawnAddr},
			Addr:      *spawnAddr,
			Supervise: true,
			Output:    os.Stderr,
		}
		child, err := l.Ensure(context.Background())
		if err != nil {
			return errors.Annotate(err, "starting echod")
		}
		if child != nil {
			defer child.Stop()
		}
	}

	adapter := &echo.Adapter{BaseDir: *baseDir, Transport: *transport, Timeout: *timeout}
	switch cmd, operands := rest[0], rest[1:]; cmd {
	case "echo":
		message, receivedAt := adapter.EchoOnce(*host, strings.Join(operands, " "), *certPath)
		fmt.Printf("Response: %s (received at: %s)\n", message, receivedAt)
	case "prettify":
		if len(operands) != 1 {
			return errors.New("prettify takes exactly one JSON argument")
		}
		fmt.Println(adapter.PrettifyJSON(*host, operands[0], *certPath))
	case "ping":
		ok, detail := adapter.TestConnection(*host, *certPath)
		if !ok {
			return errors.Errorf("connection failed: %s", detail)
		}
		fmt.Println(detail)
	default:
		return errors.NotSupportedf("command %q", cmd)
	}
	return nil
}
