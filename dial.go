// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package echo

import (
	"context"

	"github.com/juju/errors"
)

// Dial connects to an echo server using the default transport (gRPC).
// The connection is always TLS: give WithRootCertFile or WithTLSConfig.
func Dial(ctx context.Context, addr string, opts ...DialOption) (Client, error) {
	o := &dialOptions{
		transport: DefaultTransport,
	}
	for _, opt := range opts {
		opt(o)
	}

	dial, ok := transports[o.transport]
	if !ok {
		return nil, errors.NotSupportedf("transport %q", o.transport)
	}
	if o.tlsConfig == nil {
		if o.rootCertFile == "" {
			return nil, errors.NotValidf("dial %s without TLS configuration", addr)
		}
		cfg, err := LoadClientTLS(o.rootCertFile)
		if err != nil {
			return nil, errors.Trace(err)
		}
		o.tlsConfig = cfg
	}
	return dial(ctx, addr, o)
}

// withTimeout applies the client's per-call timeout, if any.
func withTimeout(ctx context.Context, o *dialOptions) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.timeout)
}
