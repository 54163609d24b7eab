// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

//go:build !windows

package supervisor

import (
	"os"
	"os/exec"
	"testing"
)

func exited(t *testing.T, pid int) bool {
	t.Helper()
	proc, err := NewProbe().Open(pid)
	if err != nil {
		t.Fatalf("Open(%d): %v", pid, err)
	}
	defer proc.Close()
	gone, err := proc.Exited()
	if err != nil {
		t.Fatalf("Exited(%d): %v", pid, err)
	}
	return gone
}

func TestProbeSelfAlive(t *testing.T) {
	if exited(t, os.Getpid()) {
		t.Error("own process reported exited")
	}
}

func TestProbeReapedChild(t *testing.T) {
	cmd := exec.Command(os.Args[0], "-test.run=^$")
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !exited(t, cmd.Process.Pid) {
		t.Errorf("reaped child %d reported alive", cmd.Process.Pid)
	}
}

func TestProbeInvalidPID(t *testing.T) {
	if _, err := NewProbe().Open(0); err == nil {
		t.Error("Open(0) succeeded")
	}
}
