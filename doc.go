// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package echo implements a small TLS-only RPC service with two unary
// operations: EchoOnce, which returns the caller's message stamped with the
// server receipt time, and PrettifyJson, which validates a JSON document
// and re-indents it.
//
// # Transport Selection
//
// gRPC is the default transport. The same contract can be served as
// JSON-RPC 2.0 over HTTPS by setting Config.JSONRPCAddr:
//
//	client, err := echo.Dial(ctx, "localhost:50051",
//	    echo.WithRootCertFile("certs/certificate.pem"))
//	client, err := echo.Dial(ctx, "localhost:50052",
//	    echo.WithTransport(echo.TransportJSON),
//	    echo.WithRootCertFile("certs/certificate.pem"))
//
// gRPC callers may also pick the JSON codec with
// WithContentSubtype(JSONCodecName).
//
// # Usage
//
// Server usage:
//
//	cfg := echo.DefaultConfig()
//	caps, _ := cfg.Capabilities()
//	server, err := echo.NewServer(cfg, echo.NewService(caps, nil))
//	if errors.Is(err, echo.ErrAlreadyRunning) {
//	    return nil
//	}
//	server.Serve(ctx)
//
// Embedding hosts that cannot handle errors use Adapter, which returns
// plain strings:
//
//	msg, receivedAt := echo.NewAdapter(baseDir).EchoOnce("localhost:50051", "hello", "certs/certificate.pem")
//
// # Architecture
//
//   - contract.go: wire contract, runtime proto descriptors, service descriptor
//   - service.go: operation logic and protocol revisions
//   - server.go, credentials.go, listen.go: TLS listener and lifecycle
//   - interceptors.go, metrics.go: logging, metrics and rate limiting
//   - gateway.go: JSON-RPC gateway
//   - client.go, transport.go, dial.go, dial_grpc.go, json.go: clients
//   - adapter.go: string-only embedding boundary
//
// Process supervision lives in the supervisor package and on-demand
// spawning in the launcher package.
package echo
