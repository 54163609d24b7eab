// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package echo

import (
	"context"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// chainUnary folds interceptors into one; the first runs outermost.
func chainUnary(interceptors ...grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		next := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			interceptor, inner := interceptors[i], next
			next = func(ctx context.Context, req any) (any, error) {
				return interceptor(ctx, req, info, inner)
			}
		}
		return next(ctx, req)
	}
}

// loggingInterceptor logs the outcome of every call.
func loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)
	if code == codes.OK || code == codes.InvalidArgument {
		serverLogger.Debugf("%s -> %s in %s", info.FullMethod, code, time.Since(start))
	} else {
		serverLogger.Warningf("%s -> %s: %v", info.FullMethod, code, err)
	}
	return resp, err
}

func metricsInterceptor(m *Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		m.observe(info.FullMethod, status.Code(err), time.Since(start))
		return resp, err
	}
}

// newRateLimiter returns nil when cfg disables limiting.
func newRateLimiter(cfg RateLimitConfig) *rate.Limiter {
	if cfg.RPS <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RPS), burst)
}

func rateLimitInterceptor(l *rate.Limiter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !l.Allow() {
			return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded for %s", info.FullMethod)
		}
		return handler(ctx, req)
	}
}

// interceptorChain builds the chain shared by the gRPC server and the
// JSON-RPC gateway.
func interceptorChain(cfg Config, m *Metrics) grpc.UnaryServerInterceptor {
	chain := []grpc.UnaryServerInterceptor{loggingInterceptor}
	if m != nil {
		chain = append(chain, metricsInterceptor(m))
	}
	if l := newRateLimiter(cfg.RateLimit); l != nil {
		chain = append(chain, rateLimitInterceptor(l))
	}
	return chainUnary(chain...)
}
