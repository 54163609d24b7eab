// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

//go:build !windows

package supervisor

import (
	"github.com/juju/errors"
	"golang.org/x/sys/unix"
)

// NewProbe returns the signal based probe.
func NewProbe() Probe { return signalProbe{} }

type signalProbe struct{}

func (signalProbe) Open(pid int) (Process, error) {
	if pid <= 0 {
		return nil, errors.NotValidf("pid %d", pid)
	}
	return signalProcess(pid), nil
}

// signalProcess probes with signal 0, which checks existence and
// permissions without delivering anything.
type signalProcess int

func (p signalProcess) Exited() (bool, error) {
	switch err := unix.Kill(int(p), 0); err {
	case nil, unix.EPERM:
		// EPERM: the process exists but belongs to someone else.
		return false, nil
	case unix.ESRCH:
		return true, nil
	default:
		return false, errors.Annotatef(err, "signalling pid %d", int(p))
	}
}

func (signalProcess) Close() error { return nil }
