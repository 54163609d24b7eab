// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package echo

import (
	"net"
	"syscall"
	"time"

	"github.com/juju/errors"
)

// ErrAlreadyRunning is returned when the bind address is already served.
// Callers treat it as success: one instance per port.
const ErrAlreadyRunning = errors.ConstError("echo service already running")

const probeTimeout = 500 * time.Millisecond

// PortInUse reports whether something accepts TCP connections at addr.
// Wildcard hosts are probed on loopback.
func PortInUse(addr string) bool {
	conn, err := net.DialTimeout("tcp", ProbeAddr(addr), probeTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// ProbeAddr maps a bind address to an address a local client can dial.
func ProbeAddr(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	switch host {
	case "", "0.0.0.0":
		host = "127.0.0.1"
	case "::":
		host = "::1"
	}
	return net.JoinHostPort(host, port)
}

// listen binds addr unless it is already being served.
func listen(addr string) (net.Listener, error) {
	if PortInUse(addr) {
		return nil, ErrAlreadyRunning
	}
	ln, err := net.Listen("tcp", addr)
	if errors.Is(err, syscall.EADDRINUSE) {
		return nil, ErrAlreadyRunning
	}
	if err != nil {
		return nil, errors.Annotatef(err, "listening on %s", addr)
	}
	return ln, nil
}
