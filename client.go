// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package echo

import (
	"crypto/tls"
	"io"
	"time"
)

// Client is a connection to an echo server over one of the registered
// transports. Application code should only depend on this interface.
type Client interface {
	Echo
	io.Closer
}

// DialOption configures client connections
type DialOption func(*dialOptions)

type dialOptions struct {
	transport      string // "grpc", "json"
	tlsConfig      *tls.Config
	rootCertFile   string
	contentSubtype string
	timeout        time.Duration
}

// WithTransport explicitly sets the transport type
func WithTransport(t string) DialOption {
	return func(o *dialOptions) { o.transport = t }
}

// WithTLSConfig sets the client TLS configuration.
func WithTLSConfig(cfg *tls.Config) DialOption {
	return func(o *dialOptions) { o.tlsConfig = cfg }
}

// WithRootCertFile trusts the PEM certificate at path. Ignored when
// WithTLSConfig is also given.
func WithRootCertFile(path string) DialOption {
	return func(o *dialOptions) { o.rootCertFile = path }
}

// WithContentSubtype selects the gRPC codec, e.g. JSONCodecName.
func WithContentSubtype(name string) DialOption {
	return func(o *dialOptions) { o.contentSubtype = name }
}

// WithCallTimeout bounds every call made through the client.
func WithCallTimeout(d time.Duration) DialOption {
	return func(o *dialOptions) { o.timeout = d }
}
