// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package echo

import (
	"context"
	"sort"
)

// Transport types
const (
	TransportGRPC = "grpc" // gRPC over TLS, default
	TransportJSON = "json" // JSON-RPC 2.0 over HTTPS
)

// DefaultTransport is the default transport type (gRPC)
const DefaultTransport = TransportGRPC

type dialFunc func(ctx context.Context, addr string, o *dialOptions) (Client, error)

// transports is read-only after package initialization.
var transports = map[string]dialFunc{
	TransportGRPC: dialGRPC,
	TransportJSON: dialJSON,
}

// AvailableTransports returns the sorted list of transport types
func AvailableTransports() []string {
	result := make([]string, 0, len(transports))
	for name := range transports {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// HasTransport checks if a transport is available
func HasTransport(name string) bool {
	_, ok := transports[name]
	return ok
}
