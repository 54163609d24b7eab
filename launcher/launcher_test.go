// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

//go:build !windows

package launcher

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	echo "github.com/luxfi/grpcecho"
)

const (
	helperModeEnv = "ECHO_LAUNCHER_HELPER"
	helperAddrEnv = "ECHO_LAUNCHER_ADDR"
)

// TestMain doubles as the spawned service when helperModeEnv is set.
func TestMain(m *testing.M) {
	switch os.Getenv(helperModeEnv) {
	case "":
		os.Exit(m.Run())
	case "exit":
		os.Exit(3)
	case "stubborn":
		signal.Ignore(syscall.SIGTERM)
		serveForever()
	default:
		serveForever()
	}
}

func serveForever() {
	ln, err := net.Listen("tcp", os.Getenv(helperAddrEnv))
	if err != nil {
		os.Exit(2)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	for {
		time.Sleep(time.Hour)
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func helperLauncher(addr, mode string) *Launcher {
	return &Launcher{
		Binary:       os.Args[0],
		Args:         []string{"-test.run=^$"},
		Addr:         addr,
		Env:          []string{helperModeEnv + "=" + mode, helperAddrEnv + "=" + addr},
		ReadyTimeout: 10 * time.Second,
		StopTimeout:  200 * time.Millisecond,
	}
}

func stopWithin(t *testing.T, child *Child, d time.Duration) {
	t.Helper()
	stopped := make(chan struct{})
	go func() {
		child.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(d):
		t.Fatalf("pid %d not stopped after %s", child.Pid(), d)
	}
}

func TestEnsureAlreadyRunning(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	l := &Launcher{Binary: "/nonexistent/echod", Addr: ln.Addr().String()}
	child, err := l.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if child != nil {
		t.Errorf("spawned pid %d although the port was served", child.Pid())
	}
}

func TestEnsureSpawnsAndStops(t *testing.T) {
	addr := freeAddr(t)
	child, err := helperLauncher(addr, "serve").Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if child == nil {
		t.Fatal("Ensure returned no child")
	}
	if !echo.PortInUse(addr) {
		t.Errorf("%s not served after Ensure", addr)
	}

	// A second Ensure finds the running instance.
	again, err := helperLauncher(addr, "serve").Ensure(context.Background())
	if err != nil || again != nil {
		t.Errorf("second Ensure: got %v, %v; want nil, nil", again, err)
	}

	stopWithin(t, child, 5*time.Second)
	select {
	case <-child.Done():
	default:
		t.Error("Done not closed after Stop")
	}
	child.Stop()
}

func TestStopKillsStubbornChild(t *testing.T) {
	addr := freeAddr(t)
	child, err := helperLauncher(addr, "stubborn").Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if child == nil {
		t.Fatal("Ensure returned no child")
	}
	stopWithin(t, child, 5*time.Second)
}

func TestEnsureChildExitsEarly(t *testing.T) {
	addr := freeAddr(t)
	child, err := helperLauncher(addr, "exit").Ensure(context.Background())
	if err == nil {
		t.Fatalf("Ensure succeeded; child %v", child)
	}
}

func TestEnsureMissingBinary(t *testing.T) {
	l := &Launcher{Binary: "/nonexistent/echod", Addr: freeAddr(t)}
	if _, err := l.Ensure(context.Background()); err == nil {
		t.Fatal("Ensure succeeded without a binary")
	}
}
