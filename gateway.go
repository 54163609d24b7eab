// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package echo

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	gorillarpc "github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var gatewayLogger = loggo.GetLogger("echo.gateway")

// JSON-RPC names of the contract's operations.
const (
	GatewayPath            = "/rpc"
	JSONRPCService         = "Echo"
	JSONRPCEchoOnce        = JSONRPCService + ".EchoOnce"
	JSONRPCPrettifyJSON    = JSONRPCService + ".PrettifyJson"
	jsonRPCContentType     = "application/json"
	gatewayReadHeaderLimit = 10 * time.Second
)

// Gateway serves the echo contract as JSON-RPC 2.0 over HTTPS.
type Gateway struct {
	server   *http.Server
	listener net.Listener
}

// NewGateway binds addr and serves svc through intercept, the same chain
// the gRPC server uses. A nil intercept calls svc directly.
func NewGateway(addr string, svc Echo, tlsConfig *tls.Config, intercept grpc.UnaryServerInterceptor) (*Gateway, error) {
	if intercept == nil {
		intercept = chainUnary()
	}
	rpcServer := gorillarpc.NewServer()
	rpcServer.RegisterCodec(json2.NewCodec(), jsonRPCContentType)
	if err := rpcServer.RegisterService(&gatewayService{svc: svc, intercept: intercept}, JSONRPCService); err != nil {
		return nil, errors.Annotate(err, "registering JSON-RPC service")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Annotatef(err, "listening for JSON-RPC on %s", addr)
	}
	cfg := tlsConfig.Clone()
	cfg.NextProtos = []string{"http/1.1"}

	mux := http.NewServeMux()
	mux.Handle(GatewayPath, rpcServer)
	return &Gateway{
		server:   &http.Server{Handler: mux, ReadHeaderTimeout: gatewayReadHeaderLimit},
		listener: tls.NewListener(ln, cfg),
	}, nil
}

// Serve blocks until the gateway is shut down.
func (g *Gateway) Serve() error {
	err := g.server.Serve(g.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	return g.server.Shutdown(ctx)
}

func (g *Gateway) Close() error {
	g.server.Close()
	return g.listener.Close()
}

func (g *Gateway) Addr() string {
	return g.listener.Addr().String()
}

// gatewayService is the receiver gorilla/rpc reflects over. Method names
// are the JSON-RPC method names.
type gatewayService struct {
	svc       Echo
	intercept grpc.UnaryServerInterceptor
}

func (g *gatewayService) EchoOnce(r *http.Request, args *EchoRequest, reply *EchoReply) error {
	return invoke(r.Context(), g, EchoOnceMethod, args, reply, g.svc.EchoOnce)
}

func (g *gatewayService) PrettifyJson(r *http.Request, args *PrettifyJSONRequest, reply *PrettifyJSONResponse) error {
	return invoke(r.Context(), g, PrettifyJSONMethod, args, reply, g.svc.PrettifyJSON)
}

func invoke[Req, Resp any](
	ctx context.Context,
	g *gatewayService,
	method string,
	args *Req,
	reply *Resp,
	call func(context.Context, *Req) (*Resp, error),
) error {
	handler := func(ctx context.Context, req any) (any, error) {
		return call(ctx, req.(*Req))
	}
	resp, err := g.intercept(ctx, args, &grpc.UnaryServerInfo{Server: g.svc, FullMethod: method}, handler)
	if err != nil {
		return toJSONRPCError(err)
	}
	*reply = *resp.(*Resp)
	return nil
}

// toJSONRPCError maps a gRPC status onto a JSON-RPC error object. The gRPC
// code travels in the data member so clients can restore it.
func toJSONRPCError(err error) *json2.Error {
	st := status.Convert(err)
	code := json2.E_SERVER
	if st.Code() == codes.InvalidArgument {
		code = json2.E_BAD_PARAMS
	}
	gatewayLogger.Debugf("JSON-RPC error %d (%s): %s", code, st.Code(), st.Message())
	return &json2.Error{Code: code, Message: st.Message(), Data: uint32(st.Code())}
}
