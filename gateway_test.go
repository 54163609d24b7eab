// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package echo

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func startGatewayServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := writeTestCerts(t)
	cfg := testConfig(dir)
	cfg.JSONRPCAddr = "127.0.0.1:0"
	return startServer(t, cfg, timestampedService()), dir
}

func TestGatewayEchoOnce(t *testing.T) {
	server, dir := startGatewayServer(t)
	client := dialTest(t, server.GatewayAddr(), testCertPath(dir), WithTransport(TransportJSON))

	reply, err := client.EchoOnce(context.Background(), &EchoRequest{Message: "hello"})
	if err != nil {
		t.Fatalf("EchoOnce: %v", err)
	}
	if reply.Message != "hello" || reply.ReceivedAt == "" {
		t.Errorf("got %+v", reply)
	}

	_, err = client.EchoOnce(context.Background(), &EchoRequest{})
	if got := status.Code(err); got != codes.InvalidArgument {
		t.Errorf("got code %s, want %s", got, codes.InvalidArgument)
	}
	if msg := status.Convert(err).Message(); msg != detailEmptyMessage {
		t.Errorf("got detail %q, want %q", msg, detailEmptyMessage)
	}
}

func TestGatewayPrettifyJSON(t *testing.T) {
	server, dir := startGatewayServer(t)
	client := dialTest(t, server.GatewayAddr(), testCertPath(dir), WithTransport(TransportJSON))

	resp, err := client.PrettifyJSON(context.Background(), &PrettifyJSONRequest{JSONText: `{"a":1}`})
	if err != nil {
		t.Fatalf("PrettifyJSON: %v", err)
	}
	if want := "{\n    \"a\": 1\n}"; resp.PrettifiedJSONText != want {
		t.Errorf("got %q, want %q", resp.PrettifiedJSONText, want)
	}

	_, err = client.PrettifyJSON(context.Background(), &PrettifyJSONRequest{JSONText: "{not json"})
	if got := status.Code(err); got != codes.InvalidArgument {
		t.Errorf("got code %s, want %s", got, codes.InvalidArgument)
	}
}

func TestGatewaySharesMetrics(t *testing.T) {
	server, dir := startGatewayServer(t)
	client := dialTest(t, server.GatewayAddr(), testCertPath(dir), WithTransport(TransportJSON))

	if _, err := client.EchoOnce(context.Background(), &EchoRequest{Message: "x"}); err != nil {
		t.Fatalf("EchoOnce: %v", err)
	}
	n, err := countSamples(server.Metrics(), "echo_rpc_requests_total")
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if n != 1 {
		t.Errorf("got %d request series, want 1", n)
	}
}

func TestToJSONRPCError(t *testing.T) {
	e := toJSONRPCError(status.Error(codes.InvalidArgument, "bad"))
	if e.Message != "bad" {
		t.Errorf("got %q, want %q", e.Message, "bad")
	}
	// Data round-trips through JSON as a number.
	e.Data = float64(e.Data.(uint32))
	if got := grpcCode(e); got != codes.InvalidArgument {
		t.Errorf("got %s, want %s", got, codes.InvalidArgument)
	}
	if got := grpcCode(toJSONRPCError(status.Error(codes.Internal, "x"))); got != codes.Unknown {
		t.Errorf("undecoded data: got %s, want %s", got, codes.Unknown)
	}
}

func countSamples(m *Metrics, name string) (int, error) {
	families, err := m.Registry().Gather()
	if err != nil {
		return 0, err
	}
	for _, f := range families {
		if f.GetName() == name {
			return len(f.GetMetric()), nil
		}
	}
	return 0, nil
}
