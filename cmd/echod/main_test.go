// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/juju/errors"
)

func TestRunHelp(t *testing.T) {
	if err := run([]string{"--help"}); err != nil {
		t.Errorf("got %v, want nil", err)
	}
}

func TestRunInvalidRevision(t *testing.T) {
	err := run([]string{"--addr", "127.0.0.1:0", "--revision", "v9"})
	if !errors.Is(err, errors.NotValid) {
		t.Errorf("got %v, want NotValid", err)
	}
}

func TestRunUnknownFlag(t *testing.T) {
	if err := run([]string{"--no-such-flag"}); err == nil {
		t.Error("unknown flag accepted")
	}
}

func TestRunMissingKeyMaterial(t *testing.T) {
	err := run([]string{"--addr", "127.0.0.1:0", "--certs-dir", filepath.Join(t.TempDir(), "certs")})
	if err == nil {
		t.Fatal("run succeeded without key material")
	}
}

func TestRunConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "echo.yaml")
	if err := os.WriteFile(path, []byte("workers: -1\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := run([]string{"--config", path}); !errors.Is(err, errors.NotValid) {
		t.Errorf("got %v, want NotValid", err)
	}
}
