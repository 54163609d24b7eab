// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package echo

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/reflection"
)

var serverLogger = loggo.GetLogger("echo.server")

const shutdownTimeout = 5 * time.Second

// ServerOption configures NewServer.
type ServerOption func(*serverOptions)

type serverOptions struct {
	baseDir   string
	tlsConfig *tls.Config
	metrics   *Metrics
}

// WithBaseDir sets the directory relative key material paths fall back
// to. Defaults to the executable's directory.
func WithBaseDir(dir string) ServerOption {
	return func(o *serverOptions) { o.baseDir = dir }
}

// WithServerTLS uses cfg instead of loading key material from disk.
func WithServerTLS(cfg *tls.Config) ServerOption {
	return func(o *serverOptions) { o.tlsConfig = cfg }
}

// WithMetrics records RPC metrics on m. Without it NewServer creates its
// own collectors.
func WithMetrics(m *Metrics) ServerOption {
	return func(o *serverOptions) { o.metrics = m }
}

// Server is a TLS-only gRPC server for the echo contract, with an optional
// JSON-RPC gateway and metrics endpoint.
type Server struct {
	grpc     *grpc.Server
	listener net.Listener
	metrics  *Metrics

	gateway *Gateway

	metricsServer   *http.Server
	metricsListener net.Listener
}

// NewServer loads credentials, binds cfg.Addr and registers svc. It
// returns ErrAlreadyRunning when the address is already served. It never
// falls back to plaintext.
func NewServer(cfg Config, svc Echo, opts ...ServerOption) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	o := &serverOptions{baseDir: ExecutableDir()}
	for _, opt := range opts {
		opt(o)
	}

	tlsConfig := o.tlsConfig
	if tlsConfig == nil {
		keyPath, err := cfg.KeyPath(o.baseDir)
		if err != nil {
			return nil, errors.Annotate(err, "private key")
		}
		certPath, err := cfg.CertPath(o.baseDir)
		if err != nil {
			return nil, errors.Annotate(err, "certificate chain")
		}
		if tlsConfig, err = LoadServerTLS(keyPath, certPath); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if o.metrics == nil {
		o.metrics = NewMetrics()
	}

	ln, err := listen(cfg.Addr)
	if err != nil {
		return nil, err
	}
	s := &Server{listener: ln, metrics: o.metrics}

	intercept := interceptorChain(cfg, o.metrics)
	s.grpc = grpc.NewServer(
		grpc.Creds(credentials.NewTLS(tlsConfig)),
		grpc.NumStreamWorkers(uint32(cfg.Workers)),
		grpc.UnaryInterceptor(intercept),
	)
	RegisterEchoServer(s.grpc, svc)
	if cfg.Reflection {
		reflection.Register(s.grpc)
	}

	if cfg.JSONRPCAddr != "" {
		if s.gateway, err = NewGateway(cfg.JSONRPCAddr, svc, tlsConfig, intercept); err != nil {
			s.Close()
			return nil, errors.Trace(err)
		}
	}
	if cfg.MetricsAddr != "" {
		if s.metricsListener, err = net.Listen("tcp", cfg.MetricsAddr); err != nil {
			s.Close()
			return nil, errors.Annotatef(err, "listening for metrics on %s", cfg.MetricsAddr)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", o.metrics.Handler())
		s.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	}
	return s, nil
}

// Serve accepts connections until ctx is cancelled, then stops gracefully.
// A listener failure stops everything and is returned.
func (s *Server) Serve(ctx context.Context) error {
	errc := make(chan error, 3)
	go func() {
		errc <- s.grpc.Serve(s.listener)
	}()
	serverLogger.Infof("echo gRPC server listening on %s (secure)", s.Addr())

	if s.gateway != nil {
		go func() {
			errc <- s.gateway.Serve()
		}()
		serverLogger.Infof("JSON-RPC gateway listening on %s (secure)", s.gateway.Addr())
	}
	if s.metricsServer != nil {
		go func() {
			err := s.metricsServer.Serve(s.metricsListener)
			if errors.Is(err, http.ErrServerClosed) {
				err = nil
			}
			errc <- err
		}()
		serverLogger.Infof("metrics listening on %s", s.metricsListener.Addr())
	}

	select {
	case <-ctx.Done():
		s.shutdown()
		return nil
	case err := <-errc:
		s.Close()
		if err != nil {
			return errors.Annotate(err, "serving")
		}
		return nil
	}
}

func (s *Server) shutdown() {
	serverLogger.Infof("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
	}
	// GracefulStop only closes the listener if Serve already took it.
	s.listener.Close()
	if s.gateway != nil {
		s.gateway.Shutdown(ctx)
	}
	if s.metricsServer != nil {
		s.metricsServer.Shutdown(ctx)
	}
}

// Close stops the server immediately.
func (s *Server) Close() error {
	// Listeners are closed directly as well, since Stop and Close only
	// release listeners that were handed to Serve.
	if s.grpc != nil {
		s.grpc.Stop()
	}
	s.listener.Close()
	if s.gateway != nil {
		s.gateway.Close()
	}
	if s.metricsServer != nil {
		s.metricsServer.Close()
	}
	if s.metricsListener != nil {
		s.metricsListener.Close()
	}
	return nil
}

// Addr returns the gRPC listen address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// GatewayAddr returns the JSON-RPC listen address, or "" when disabled.
func (s *Server) GatewayAddr() string {
	if s.gateway == nil {
		return ""
	}
	return s.gateway.Addr()
}

// MetricsAddr returns the metrics listen address, or "" when disabled.
func (s *Server) MetricsAddr() string {
	if s.metricsListener == nil {
		return ""
	}
	return s.metricsListener.Addr().String()
}

// Metrics returns the collectors the server records to.
func (s *Server) Metrics() *Metrics { return s.metrics }
