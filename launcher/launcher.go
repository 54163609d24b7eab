// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package launcher starts the echo service on demand for an embedding
// host. At most one instance serves the well-known port: if the port is
// already taken, nothing is spawned. A spawned instance is owned by the
// returned Child and released through Child.Stop.
package launcher

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/retry"

	echo "github.com/luxfi/grpcecho"
)

var logger = loggo.GetLogger("echo.launcher")

const (
	DefaultReadyTimeout = 10 * time.Second
	DefaultStopTimeout  = 5 * time.Second

	readyPollInterval = 100 * time.Millisecond
)

const errNotReady = errors.ConstError("service not accepting connections yet")

// Launcher spawns the service binary.
type Launcher struct {
	// Binary is the path of the service executable.
	Binary string
	// Args are passed to Binary before any launcher supplied flags.
	Args []string
	// Addr is the address the service binds; it is probed before
	// spawning and polled for readiness afterwards.
	Addr string

	// Supervise passes --parent-pid with this process's pid, so the
	// service exits once this process is gone.
	Supervise bool

	ReadyTimeout time.Duration
	StopTimeout  time.Duration

	// Env is appended to this process's environment for the child.
	Env []string

	// Output receives the child's stdout and stderr. Nil discards them.
	Output io.Writer

	Clock clock.Clock
}

func (l *Launcher) clock() clock.Clock {
	if l.Clock == nil {
		return clock.WallClock
	}
	return l.Clock
}

// Ensure starts the service unless its port is already served. It
// returns a nil Child when an instance was already running.
func (l *Launcher) Ensure(ctx context.Context) (*Child, error) {
	addr := l.Addr
	if addr == "" {
		addr = echo.DefaultAddr
	}
	if echo.PortInUse(addr) {
		logger.Infof("service already running on %s", addr)
		return nil, nil
	}

	args := append([]string(nil), l.Args...)
	if l.Supervise {
		args = append(args, "--parent-pid", strconv.Itoa(os.Getpid()))
	}
	cmd := exec.Command(l.Binary, args...)
	if len(l.Env) > 0 {
		cmd.Env = append(os.Environ(), l.Env...)
	}
	cmd.Stdout = l.Output
	cmd.Stderr = l.Output
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return nil, errors.Annotatef(err, "starting %s", l.Binary)
	}
	logger.Infof("started %s (pid %d)", l.Binary, cmd.Process.Pid)

	stopTimeout := l.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	child := &Child{
		cmd:         cmd,
		done:        make(chan struct{}),
		stopTimeout: stopTimeout,
		clock:       l.clock(),
	}
	go child.wait()

	if err := l.waitReady(ctx, addr, child); err != nil {
		child.Stop()
		return nil, errors.Trace(err)
	}
	select {
	case <-child.done:
		// Lost a race with another instance, which now owns the port.
		logger.Infof("service already running on %s; spawned instance exited", addr)
		return nil, nil
	default:
	}
	return child, nil
}

func (l *Launcher) waitReady(ctx context.Context, addr string, child *Child) error {
	timeout := l.ReadyTimeout
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			if echo.PortInUse(addr) {
				return nil
			}
			select {
			case <-child.done:
				return errors.Errorf("%s exited before listening on %s: %v", l.Binary, addr, child.err)
			default:
				return errNotReady
			}
		},
		IsFatalError: func(err error) bool {
			return !errors.Is(err, errNotReady)
		},
		Attempts:    retry.UnlimitedAttempts,
		Delay:       readyPollInterval,
		MaxDuration: timeout,
		Clock:       l.clock(),
		Stop:        ctx.Done(),
	})
	if retry.IsDurationExceeded(err) {
		return errors.Errorf("%s not listening on %s after %s", l.Binary, addr, timeout)
	}
	if retry.IsRetryStopped(err) {
		return errors.Trace(ctx.Err())
	}
	return err
}

// Child is a service instance spawned by Ensure.
type Child struct {
	cmd         *exec.Cmd
	done        chan struct{}
	err         error
	stopTimeout time.Duration
	clock       clock.Clock
	stopOnce    sync.Once
}

func (c *Child) wait() {
	c.err = c.cmd.Wait()
	close(c.done)
}

// Pid returns the child's process id.
func (c *Child) Pid() int { return c.cmd.Process.Pid }

// Done is closed once the child has exited.
func (c *Child) Done() <-chan struct{} { return c.done }

// Stop asks the child to terminate, waits up to the stop timeout, then
// kills it. It returns once the child has exited. Safe to call more than
// once.
func (c *Child) Stop() {
	c.stopOnce.Do(func() {
		select {
		case <-c.done:
			return
		default:
		}
		if err := terminate(c.cmd.Process); err != nil {
			logger.Debugf("terminating pid %d: %v", c.Pid(), err)
		}
		select {
		case <-c.done:
			logger.Infof("pid %d exited", c.Pid())
			return
		case <-c.clock.After(c.stopTimeout):
		}
		logger.Warningf("pid %d did not exit within %s; killing", c.Pid(), c.stopTimeout)
		if err := c.cmd.Process.Kill(); err != nil {
			logger.Debugf("killing pid %d: %v", c.Pid(), err)
		}
	})
	<-c.done
}
