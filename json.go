// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package echo

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/retry"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var clientLogger = loggo.GetLogger("echo.client")

const (
	maxRetries    = 3
	retryBaseWait = 500 * time.Millisecond
)

// newHTTPClient creates an HTTP client with disabled connection reuse:
// one connection per call, like the gRPC adapter.
func newHTTPClient(tlsConfig *tls.Config) *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig:   tlsConfig,
			DisableKeepAlives: true,
		},
	}
}

// CleanlyCloseBody drains and closes an HTTP response body to prevent
// HTTP/2 GOAWAY errors caused by closing bodies with unread data.
// See: https://github.com/golang/go/issues/46071
func CleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

// isRetryableError checks if an error is transient and worth retrying
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	if errors.Is(err, io.EOF) || strings.Contains(errStr, "EOF") {
		return true
	}
	return strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "broken pipe")
}

func dialJSON(_ context.Context, addr string, o *dialOptions) (Client, error) {
	uri := &url.URL{Scheme: "https", Host: addr, Path: GatewayPath}
	return &jsonClient{
		uri:    uri,
		client: newHTTPClient(o.tlsConfig),
		opts:   o,
	}, nil
}

// jsonClient speaks to a Gateway.
type jsonClient struct {
	uri    *url.URL
	client *http.Client
	opts   *dialOptions
}

func (c *jsonClient) EchoOnce(ctx context.Context, req *EchoRequest) (*EchoReply, error) {
	reply := &EchoReply{}
	if err := c.call(ctx, JSONRPCEchoOnce, req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (c *jsonClient) PrettifyJSON(ctx context.Context, req *PrettifyJSONRequest) (*PrettifyJSONResponse, error) {
	resp := &PrettifyJSONResponse{}
	if err := c.call(ctx, JSONRPCPrettifyJSON, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *jsonClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// call returns gRPC status errors so callers handle both transports alike.
func (c *jsonClient) call(ctx context.Context, method string, params, reply any) error {
	ctx, cancel := withTimeout(ctx, c.opts)
	defer cancel()

	err := sendJSONRequest(ctx, c.client, c.uri, method, params, reply)
	if err == nil {
		return nil
	}
	var rpcErr *json2.Error
	if errors.As(err, &rpcErr) {
		return status.Error(grpcCode(rpcErr), rpcErr.Message)
	}
	if ctx.Err() == context.DeadlineExceeded {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Unavailable, err.Error())
}

// grpcCode restores the status code a Gateway put in the error data.
func grpcCode(e *json2.Error) codes.Code {
	if n, ok := e.Data.(float64); ok && n >= 0 {
		return codes.Code(uint32(n))
	}
	if e.Code == json2.E_BAD_PARAMS {
		return codes.InvalidArgument
	}
	return codes.Unknown
}

func sendJSONRequest(
	ctx context.Context,
	client *http.Client,
	uri *url.URL,
	method string,
	params any,
	reply any,
) error {
	clientLogger.Debugf("JSON-RPC request: method=%s uri=%s", method, uri)
	requestBodyBytes, err := json2.EncodeClientRequest(method, params)
	if err != nil {
		return errors.Annotate(err, "failed to encode client params")
	}

	attempt := 0
	err = retry.Call(retry.CallArgs{
		Func: func() error {
			attempt++
			return postJSON(ctx, client, uri, requestBodyBytes, reply)
		},
		IsFatalError: func(err error) bool {
			return !isRetryableError(err)
		},
		NotifyFunc: func(lastErr error, n int) {
			clientLogger.Debugf("request attempt %d failed: %v", n, lastErr)
		},
		Attempts:    maxRetries,
		Delay:       retryBaseWait,
		BackoffFunc: retry.DoubleDelay,
		Clock:       clock.WallClock,
		Stop:        ctx.Done(),
	})
	if err != nil {
		if retry.IsAttemptsExceeded(err) || retry.IsRetryStopped(err) {
			err = retry.LastError(err)
		}
		return err
	}
	if attempt > 1 {
		clientLogger.Debugf("request succeeded on attempt %d", attempt)
	}
	return nil
}

func postJSON(ctx context.Context, client *http.Client, uri *url.URL, body []byte, reply any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, uri.String(), bytes.NewReader(body))
	if err != nil {
		return errors.Annotate(err, "failed to create request")
	}
	request.Header.Set("Content-Type", jsonRPCContentType)

	resp, err := client.Do(request)
	if err != nil {
		return err
	}
	defer CleanlyCloseBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("received status code: %d", resp.StatusCode)
	}
	return json2.DecodeClientResponse(resp.Body, reply)
}
