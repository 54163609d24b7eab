// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package echo

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var serviceLogger = loggo.GetLogger("echo.service")

// Revision names a protocol revision of EchoOnce.
type Revision string

const (
	// RevisionTimestamped requires a non-empty message and stamps the
	// reply with the server receipt time.
	RevisionTimestamped Revision = "timestamped"

	// RevisionPlain accepts any message, including the empty one, and
	// replies with EchoPrefix + message. Replies carry no timestamp.
	RevisionPlain Revision = "plain"
)

// EchoPrefix is prepended to replies under RevisionPlain.
const EchoPrefix = "Echo: "

// ReceivedAtLayout is the ISO-8601 layout of EchoReply.ReceivedAt.
const ReceivedAtLayout = "2006-01-02T15:04:05.000000Z07:00"

// Validation details returned with codes.InvalidArgument.
const (
	detailEmptyMessage = "The 'message' field is required and cannot be empty."
	detailObjectObject = "Received '[object Object]'. A JavaScript object was likely passed " +
		"without serializing it first; send JSON.stringify(value) instead."
)

// objectObject is what a JavaScript caller sends when it string-coerces an
// object instead of serializing it.
const objectObject = "[object Object]"

// Capabilities are the behaviors a Service has switched on.
type Capabilities struct {
	// RequireMessage rejects empty EchoOnce messages.
	RequireMessage bool
	// Timestamp fills EchoReply.ReceivedAt.
	Timestamp bool
	// Prefix is prepended to every echoed message.
	Prefix string
	// Prettify enables PrettifyJSON.
	Prettify bool
}

// Capabilities returns the capability set of a revision, with PrettifyJSON
// enabled.
func (r Revision) Capabilities() (Capabilities, error) {
	switch r {
	case RevisionTimestamped, "":
		return Capabilities{RequireMessage: true, Timestamp: true, Prettify: true}, nil
	case RevisionPlain:
		return Capabilities{Prefix: EchoPrefix, Prettify: true}, nil
	default:
		return Capabilities{}, errors.NotValidf("revision %q", string(r))
	}
}

// Service implements Echo. It holds no mutable state and is safe for
// concurrent use.
type Service struct {
	caps  Capabilities
	clock clock.Clock
}

// NewService returns a Service with the given capabilities. A nil clock
// means the wall clock.
func NewService(caps Capabilities, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Service{caps: caps, clock: clk}
}

// EchoOnce implements Echo.
func (s *Service) EchoOnce(_ context.Context, req *EchoRequest) (*EchoReply, error) {
	serviceLogger.Infof("server got: %q", req.Message)

	if s.caps.RequireMessage && req.Message == "" {
		return &EchoReply{}, status.Error(codes.InvalidArgument, detailEmptyMessage)
	}
	reply := &EchoReply{Message: s.caps.Prefix + req.Message}
	if s.caps.Timestamp {
		reply.ReceivedAt = s.clock.Now().Format(ReceivedAtLayout)
	}
	return reply, nil
}

// PrettifyJSON implements Echo. Object keys keep their source order.
func (s *Service) PrettifyJSON(_ context.Context, req *PrettifyJSONRequest) (*PrettifyJSONResponse, error) {
	serviceLogger.Infof("server got JSON text: %q", req.JSONText)

	if !s.caps.Prettify {
		return &PrettifyJSONResponse{}, status.Error(codes.Unimplemented, "PrettifyJson is not enabled on this server")
	}
	if req.JSONText == objectObject {
		return &PrettifyJSONResponse{}, status.Error(codes.InvalidArgument, detailObjectObject)
	}
	out, err := prettify(req.JSONText)
	if err != nil {
		return &PrettifyJSONResponse{}, status.Errorf(codes.InvalidArgument, "Invalid JSON: %v", err)
	}
	return &PrettifyJSONResponse{PrettifiedJSONText: out}, nil
}

// prettify validates text and re-indents it by four spaces. Compacting
// first drops the caller's whitespace, including any trailing newline.
func prettify(text string) (string, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, []byte(text)); err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "    "); err != nil {
		return "", err
	}
	return out.String(), nil
}
