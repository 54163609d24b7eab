// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package echo

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc/status"
)

// Defaults used by embedding hosts.
const (
	DefaultHost           = "localhost:50051"
	DefaultClientCertPath = "certs/certificate.pem"

	// ConnectionTestTimeout bounds TestConnection.
	ConnectionTestTimeout = 2 * time.Second

	connectionTestMessage = "ping"
)

// Adapter is the embedding boundary: one synchronous function per
// operation taking plain strings and returning plain strings. Failures
// are reported as a sentinel string in place of the result; no error
// crosses this boundary. Each call opens and closes its own connection.
type Adapter struct {
	// BaseDir is where relative certificate paths are resolved when they
	// do not exist relative to the working directory.
	BaseDir string

	// Transport is the client transport; empty means DefaultTransport.
	Transport string

	// Timeout bounds each call; zero means no deadline.
	Timeout time.Duration
}

// NewAdapter returns an Adapter resolving certificates against baseDir.
func NewAdapter(baseDir string) *Adapter {
	return &Adapter{BaseDir: baseDir, Transport: DefaultTransport}
}

// EchoOnce returns the echoed message and its receipt timestamp. On
// failure the first value is the error string and the second is empty.
func (a *Adapter) EchoOnce(host, message, certPath string) (string, string) {
	var reply *EchoReply
	errText := a.with(context.Background(), host, certPath, a.Timeout, func(ctx context.Context, c Client) (err error) {
		reply, err = c.EchoOnce(ctx, &EchoRequest{Message: message})
		return err
	})
	if errText != "" {
		return errText, ""
	}
	return reply.Message, reply.ReceivedAt
}

// PrettifyJSON returns the prettified document or an error string.
func (a *Adapter) PrettifyJSON(host, jsonText, certPath string) string {
	var resp *PrettifyJSONResponse
	errText := a.with(context.Background(), host, certPath, a.Timeout, func(ctx context.Context, c Client) (err error) {
		resp, err = c.PrettifyJSON(ctx, &PrettifyJSONRequest{JSONText: jsonText})
		return err
	})
	if errText != "" {
		return errText
	}
	return resp.PrettifiedJSONText
}

// TestConnection makes one EchoOnce round trip within
// ConnectionTestTimeout and reports the outcome.
func (a *Adapter) TestConnection(host, certPath string) (bool, string) {
	var reply *EchoReply
	errText := a.with(context.Background(), host, certPath, ConnectionTestTimeout, func(ctx context.Context, c Client) (err error) {
		reply, err = c.EchoOnce(ctx, &EchoRequest{Message: connectionTestMessage})
		return err
	})
	if errText != "" {
		return false, errText
	}
	detail := fmt.Sprintf("Connected to %s. Server replied %q", host, reply.Message)
	if reply.ReceivedAt != "" {
		detail += " at " + reply.ReceivedAt
	}
	return true, detail
}

// with resolves the certificate, dials, runs fn and closes the
// connection. It returns "" on success and the error string otherwise.
func (a *Adapter) with(ctx context.Context, host, certPath string, timeout time.Duration, fn func(context.Context, Client) error) string {
	resolved, err := ResolvePath(certPath, a.BaseDir)
	if err != nil {
		return fmt.Sprintf("Error: Certificate file not found at %s", certPath)
	}
	transport := a.Transport
	if transport == "" {
		transport = DefaultTransport
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	client, err := Dial(ctx, host, WithTransport(transport), WithRootCertFile(resolved))
	if err != nil {
		return describeError(err)
	}
	defer client.Close()

	if err := fn(ctx, client); err != nil {
		return describeError(err)
	}
	return ""
}

// describeError renders an error the way an embedding host displays it.
func describeError(err error) string {
	if st, ok := status.FromError(err); ok {
		return fmt.Sprintf("gRPC Error: %s", st.Message())
	}
	clientLogger.Warningf("unexpected client error: %v", err)
	return fmt.Sprintf("An unexpected error occurred: %v", err)
}
