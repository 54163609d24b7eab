// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package echo

import (
	"context"

	"github.com/juju/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/protobuf/types/dynamicpb"
)

func dialGRPC(_ context.Context, addr string, o *dialOptions) (Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(credentials.NewTLS(o.tlsConfig)),
	}
	if o.contentSubtype != "" {
		dialOpts = append(dialOpts, grpc.WithDefaultCallOptions(grpc.CallContentSubtype(o.contentSubtype)))
	}
	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, errors.Annotate(err, "grpc dial")
	}
	return &grpcClient{conn: conn, opts: o}, nil
}

type grpcClient struct {
	conn *grpc.ClientConn
	opts *dialOptions
}

func (c *grpcClient) EchoOnce(ctx context.Context, req *EchoRequest) (*EchoReply, error) {
	ctx, cancel := withTimeout(ctx, c.opts)
	defer cancel()

	out := dynamicpb.NewMessage(echoReplyDesc)
	if err := c.conn.Invoke(ctx, EchoOnceMethod, req.toWire(), out); err != nil {
		return nil, err
	}
	reply := &EchoReply{}
	reply.fromWire(out)
	return reply, nil
}

func (c *grpcClient) PrettifyJSON(ctx context.Context, req *PrettifyJSONRequest) (*PrettifyJSONResponse, error) {
	ctx, cancel := withTimeout(ctx, c.opts)
	defer cancel()

	out := dynamicpb.NewMessage(prettifyJSONResponseDesc)
	if err := c.conn.Invoke(ctx, PrettifyJSONMethod, req.toWire(), out); err != nil {
		return nil, err
	}
	resp := &PrettifyJSONResponse{}
	resp.fromWire(out)
	return resp, nil
}

func (c *grpcClient) Close() error {
	return c.conn.Close()
}
