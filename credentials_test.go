// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package echo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/juju/errors"
)

func TestResolvePath(t *testing.T) {
	dir := writeTestCerts(t)
	abs := testCertPath(dir)
	rel := filepath.Join(DefaultCertsDir, DefaultCertFile)

	got, err := ResolvePath(abs, "")
	if err != nil || got != abs {
		t.Errorf("absolute: got %q, %v", got, err)
	}
	got, err = ResolvePath(rel, dir)
	if err != nil || got != filepath.Join(dir, rel) {
		t.Errorf("base dir fallback: got %q, %v", got, err)
	}
	if _, err := ResolvePath(rel, t.TempDir()); !errors.Is(err, errors.NotFound) {
		t.Errorf("missing: got %v, want NotFound", err)
	}
	if _, err := ResolvePath(filepath.Join(t.TempDir(), "gone.pem"), dir); !errors.Is(err, errors.NotFound) {
		t.Errorf("missing absolute: got %v, want NotFound", err)
	}
}

func TestLoadServerTLS(t *testing.T) {
	dir := writeTestCerts(t)
	certsDir := filepath.Join(dir, DefaultCertsDir)
	keyPath := filepath.Join(certsDir, DefaultKeyFile)
	certPath := filepath.Join(certsDir, DefaultCertFile)

	cfg, err := LoadServerTLS(keyPath, certPath)
	if err != nil {
		t.Fatalf("LoadServerTLS: %v", err)
	}
	if len(cfg.Certificates) != 1 {
		t.Errorf("got %d certificates, want 1", len(cfg.Certificates))
	}

	if _, err := LoadServerTLS(filepath.Join(certsDir, "absent.key"), certPath); err == nil {
		t.Error("missing key accepted")
	}
	// Key and certificate swapped.
	if _, err := LoadServerTLS(certPath, keyPath); err == nil {
		t.Error("swapped key material accepted")
	}
}

func TestLoadClientTLS(t *testing.T) {
	dir := writeTestCerts(t)
	cfg, err := LoadClientTLS(testCertPath(dir))
	if err != nil {
		t.Fatalf("LoadClientTLS: %v", err)
	}
	if cfg.RootCAs == nil {
		t.Error("no root CAs")
	}

	junk := filepath.Join(dir, "junk.pem")
	if err := os.WriteFile(junk, []byte("not pem"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadClientTLS(junk); !errors.Is(err, errors.NotValid) {
		t.Errorf("got %v, want NotValid", err)
	}
}
