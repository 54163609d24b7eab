// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package echo

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTestCerts writes a self-signed key pair for localhost to
// dir/certs/{private.key,certificate.pem} and returns dir.
func writeTestCerts(t testing.TB) string {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "localhost"},
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalPKCS8PrivateKey: %v", err)
	}

	dir := t.TempDir()
	certsDir := filepath.Join(dir, DefaultCertsDir)
	if err := os.MkdirAll(certsDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	writePEM(t, filepath.Join(certsDir, DefaultKeyFile), "PRIVATE KEY", keyDER)
	writePEM(t, filepath.Join(certsDir, DefaultCertFile), "CERTIFICATE", der)
	return dir
}

func writePEM(t testing.TB, path, typ string, der []byte) {
	t.Helper()
	data := pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile %s: %v", path, err)
	}
}

func testCertPath(dir string) string {
	return filepath.Join(dir, DefaultCertsDir, DefaultCertFile)
}

// testConfig serves on an ephemeral loopback port with the key material
// under dir.
func testConfig(dir string) Config {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.CertsDir = filepath.Join(dir, DefaultCertsDir)
	return cfg
}

// startServer runs a server for cfg until the test ends.
func startServer(t *testing.T, cfg Config, svc Echo, opts ...ServerOption) *Server {
	t.Helper()

	server, err := NewServer(cfg, svc, opts...)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve: %v", err)
		}
	})
	return server
}

func timestampedService() *Service {
	caps, _ := RevisionTimestamped.Capabilities()
	return NewService(caps, nil)
}
