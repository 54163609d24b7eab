// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package echo

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"path/filepath"

	"github.com/juju/errors"
)

// ResolvePath returns path if it exists, otherwise baseDir/path if that
// exists. Absolute paths are not joined with baseDir.
func ResolvePath(path, baseDir string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if baseDir != "" && !filepath.IsAbs(path) {
		candidate := filepath.Join(baseDir, path)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errors.NotFoundf("file %q", path)
}

// ExecutableDir is the directory of the running binary, or "" if it cannot
// be determined.
func ExecutableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(exe)
}

// LoadServerTLS reads a PEM private key and certificate chain and returns
// the server side TLS configuration built from them.
func LoadServerTLS(keyPath, certPath string) (*tls.Config, error) {
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, errors.Annotatef(err, "reading private key")
	}
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, errors.Annotatef(err, "reading certificate chain")
	}
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, errors.Annotatef(err, "building key pair from %q and %q", keyPath, certPath)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{pair},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// LoadClientTLS returns a client TLS configuration that trusts the PEM
// certificates in certPath.
func LoadClientTLS(certPath string) (*tls.Config, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, errors.Annotatef(err, "reading certificate")
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(certPEM) {
		return nil, errors.NotValidf("certificate %q", certPath)
	}
	return &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}, nil
}
