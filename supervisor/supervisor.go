// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package supervisor terminates the current process once a watched parent
// process has exited, so a service spawned by a host application does not
// outlive it.
package supervisor

import (
	"context"
	"os"
	"time"

	"github.com/juju/clock"
	"github.com/juju/loggo/v2"
)

var logger = loggo.GetLogger("echo.supervisor")

// DefaultInterval is the liveness polling interval.
const DefaultInterval = 2 * time.Second

// Probe opens processes for liveness checks. The platform implementation
// is returned by NewProbe.
type Probe interface {
	Open(pid int) (Process, error)
}

// Process is an opened handle on a watched process.
type Process interface {
	// Exited reports whether the process is gone.
	Exited() (bool, error)
	Close() error
}

// Supervisor watches one process id.
type Supervisor struct {
	PID      int
	Interval time.Duration
	Clock    clock.Clock
	Probe    Probe

	// Exit terminates the process. It defaults to os.Exit, which skips
	// deferred functions; the service has nothing to flush.
	Exit func(code int)
}

// New returns a Supervisor for pid with the platform probe and defaults.
func New(pid int) *Supervisor {
	return &Supervisor{
		PID:      pid,
		Interval: DefaultInterval,
		Clock:    clock.WallClock,
		Probe:    NewProbe(),
		Exit:     os.Exit,
	}
}

// Start runs a Supervisor for pid on its own goroutine.
func Start(ctx context.Context, pid int) {
	go New(pid).Run(ctx)
}

// Run polls until the watched process exits, then calls Exit(0). It also
// returns when ctx is done. Failing to open or query the process counts
// as the process having exited.
func (s *Supervisor) Run(ctx context.Context) {
	logger.Infof("monitoring parent PID %d", s.PID)

	proc, err := s.Probe.Open(s.PID)
	if err != nil {
		logger.Warningf("could not open parent process %d: %v; shutting down", s.PID, err)
		s.Exit(0)
		return
	}
	defer proc.Close()

	for {
		exited, err := proc.Exited()
		if err != nil {
			logger.Warningf("failed to query parent process %d: %v; shutting down", s.PID, err)
			s.Exit(0)
			return
		}
		if exited {
			logger.Infof("parent process %d terminated; shutting down", s.PID)
			s.Exit(0)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-s.Clock.After(s.Interval):
		}
	}
}
