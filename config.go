// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package echo

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"gopkg.in/yaml.v3"
)

// Server defaults.
const (
	DefaultAddr     = "0.0.0.0:50051"
	DefaultCertsDir = "certs"
	DefaultKeyFile  = "private.key"
	DefaultCertFile = "certificate.pem"
	DefaultWorkers  = 4
)

// Config configures the echo server.
type Config struct {
	// Addr is the gRPC bind address.
	Addr string `yaml:"addr"`

	// CertsDir holds KeyFile and CertFile. Relative paths are tried
	// against the working directory, then the executable's directory.
	CertsDir string `yaml:"certs_dir"`
	KeyFile  string `yaml:"key_file"`
	CertFile string `yaml:"cert_file"`

	// Workers is the number of gRPC stream workers.
	Workers int `yaml:"workers"`

	// Reflection registers the server reflection service.
	Reflection bool `yaml:"reflection"`

	Revision Revision `yaml:"revision"`
	Prettify bool     `yaml:"prettify"`

	// JSONRPCAddr enables the JSON-RPC gateway when set.
	JSONRPCAddr string `yaml:"jsonrpc_addr"`

	// MetricsAddr enables the Prometheus /metrics listener when set.
	MetricsAddr string `yaml:"metrics_addr"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`

	LogLevel string `yaml:"log_level"`
}

// RateLimitConfig bounds the request rate across all callers. A zero RPS
// disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Addr:       DefaultAddr,
		CertsDir:   DefaultCertsDir,
		KeyFile:    DefaultKeyFile,
		CertFile:   DefaultCertFile,
		Workers:    DefaultWorkers,
		Reflection: true,
		Revision:   RevisionTimestamped,
		Prettify:   true,
		LogLevel:   "INFO",
	}
}

// LoadConfig decodes the YAML file at path over DefaultConfig. Keys absent
// from the file keep their default.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Annotatef(err, "reading config %q", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Annotatef(err, "parsing config %q", path)
	}
	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.NotValidf("empty addr")
	}
	if c.Workers <= 0 {
		return errors.NotValidf("workers %d", c.Workers)
	}
	if _, err := c.Revision.Capabilities(); err != nil {
		return errors.Trace(err)
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return errors.NotValidf("rate limit %v/%d", c.RateLimit.RPS, c.RateLimit.Burst)
	}
	if c.LogLevel != "" {
		if _, ok := loggo.ParseLevel(c.LogLevel); !ok {
			return errors.NotValidf("log level %q", c.LogLevel)
		}
	}
	return nil
}

// Capabilities returns the service capabilities this config selects.
func (c Config) Capabilities() (Capabilities, error) {
	caps, err := c.Revision.Capabilities()
	if err != nil {
		return caps, errors.Trace(err)
	}
	caps.Prettify = c.Prettify
	return caps, nil
}

// KeyPath and CertPath resolve the key material against the working
// directory and then baseDir.
func (c Config) KeyPath(baseDir string) (string, error) {
	return ResolvePath(filepath.Join(c.CertsDir, c.KeyFile), baseDir)
}

func (c Config) CertPath(baseDir string) (string, error) {
	return ResolvePath(filepath.Join(c.CertsDir, c.CertFile), baseDir)
}
