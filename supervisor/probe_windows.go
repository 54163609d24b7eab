// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

//go:build windows

package supervisor

import (
	"github.com/juju/errors"
	"golang.org/x/sys/windows"
)

// stillActive is the exit code GetExitCodeProcess reports for a running
// process (STILL_ACTIVE).
const stillActive = 259

// NewProbe returns the handle based probe.
func NewProbe() Probe { return handleProbe{} }

type handleProbe struct{}

func (handleProbe) Open(pid int) (Process, error) {
	if pid <= 0 {
		return nil, errors.NotValidf("pid %d", pid)
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return nil, errors.Annotatef(err, "opening pid %d", pid)
	}
	return handleProcess{h: h}, nil
}

// handleProcess holds the handle for the lifetime of the watch so the pid
// cannot be recycled underneath it.
type handleProcess struct {
	h windows.Handle
}

func (p handleProcess) Exited() (bool, error) {
	var code uint32
	if err := windows.GetExitCodeProcess(p.h, &code); err != nil {
		return false, errors.Annotate(err, "querying exit code")
	}
	return code != stillActive, nil
}

func (p handleProcess) Close() error {
	return windows.CloseHandle(p.h)
}
