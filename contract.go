// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package echo

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Names of the wire contract.
const (
	ProtoFile   = "echo.proto"
	ProtoPkg    = "echo"
	ServiceName = ProtoPkg + ".Echo"

	EchoOnceMethod     = "/" + ServiceName + "/EchoOnce"
	PrettifyJSONMethod = "/" + ServiceName + "/PrettifyJson"
)

// Echo is the operation set of the contract. The service implements it,
// and so does every client transport.
type Echo interface {
	// EchoOnce returns the request message, optionally stamped with the
	// server receipt time.
	EchoOnce(ctx context.Context, req *EchoRequest) (*EchoReply, error)

	// PrettifyJSON re-serializes a JSON document with 4-space indentation.
	PrettifyJSON(ctx context.Context, req *PrettifyJSONRequest) (*PrettifyJSONResponse, error)
}

// EchoRequest carries the text to echo.
type EchoRequest struct {
	Message string `json:"message"`
}

// EchoReply is the echoed text. ReceivedAt is empty when the serving
// revision does not stamp replies.
type EchoReply struct {
	Message    string `json:"message"`
	ReceivedAt string `json:"received_at,omitempty"`
}

// PrettifyJSONRequest carries an opaque serialized JSON document.
type PrettifyJSONRequest struct {
	JSONText string `json:"json_text"`
}

// PrettifyJSONResponse is empty when the request failed.
type PrettifyJSONResponse struct {
	PrettifiedJSONText string `json:"prettified_json_text"`
}

var (
	fileDesc = buildFileDescriptor()

	echoRequestDesc          = fileDesc.Messages().ByName("EchoRequest")
	echoReplyDesc            = fileDesc.Messages().ByName("EchoReply")
	prettifyJSONRequestDesc  = fileDesc.Messages().ByName("PrettifyJsonRequest")
	prettifyJSONResponseDesc = fileDesc.Messages().ByName("PrettifyJsonResponse")
)

func buildFileDescriptor() protoreflect.FileDescriptor {
	fd, err := protodesc.NewFile(echoFileProto(), protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("echo: building %s: %v", ProtoFile, err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("echo: registering %s: %v", ProtoFile, err))
	}
	return fd
}

// FileDescriptor returns the descriptor of echo.proto.
func FileDescriptor() protoreflect.FileDescriptor { return fileDesc }

// echoFileProto describes echo.proto. Field numbers are part of the wire
// format and must not change.
func echoFileProto() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String(ProtoFile),
		Package: proto.String(ProtoPkg),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			messageProto("EchoRequest", "message"),
			messageProto("EchoReply", "message", "received_at"),
			messageProto("PrettifyJsonRequest", "json_text"),
			messageProto("PrettifyJsonResponse", "prettified_json_text"),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("Echo"),
			Method: []*descriptorpb.MethodDescriptorProto{
				methodProto("EchoOnce", "EchoRequest", "EchoReply"),
				methodProto("PrettifyJson", "PrettifyJsonRequest", "PrettifyJsonResponse"),
			},
		}},
	}
}

// messageProto builds a message whose fields are all strings, numbered in
// declaration order starting at 1.
func messageProto(name string, fields ...string) *descriptorpb.DescriptorProto {
	msg := &descriptorpb.DescriptorProto{Name: proto.String(name)}
	for i, field := range fields {
		msg.Field = append(msg.Field, &descriptorpb.FieldDescriptorProto{
			Name:     proto.String(field),
			JsonName: proto.String(jsonCamel(field)),
			Number:   proto.Int32(int32(i + 1)),
			Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
			Type:     descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
		})
	}
	return msg
}

func methodProto(name, in, out string) *descriptorpb.MethodDescriptorProto {
	return &descriptorpb.MethodDescriptorProto{
		Name:       proto.String(name),
		InputType:  proto.String("." + ProtoPkg + "." + in),
		OutputType: proto.String("." + ProtoPkg + "." + out),
	}
}

// jsonCamel mirrors protoc's default json_name derivation.
func jsonCamel(field string) string {
	out := make([]byte, 0, len(field))
	upper := false
	for i := 0; i < len(field); i++ {
		c := field[i]
		if c == '_' {
			upper = true
			continue
		}
		if upper && 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper = false
		out = append(out, c)
	}
	return string(out)
}

func getString(m protoreflect.Message, field protoreflect.Name) string {
	return m.Get(m.Descriptor().Fields().ByName(field)).String()
}

func setString(m protoreflect.Message, field protoreflect.Name, v string) {
	if v == "" {
		return
	}
	m.Set(m.Descriptor().Fields().ByName(field), protoreflect.ValueOfString(v))
}

func (r *EchoRequest) toWire() *dynamicpb.Message {
	m := dynamicpb.NewMessage(echoRequestDesc)
	setString(m, "message", r.Message)
	return m
}

func (r *EchoRequest) fromWire(m protoreflect.Message) {
	r.Message = getString(m, "message")
}

func (r *EchoReply) toWire() *dynamicpb.Message {
	m := dynamicpb.NewMessage(echoReplyDesc)
	setString(m, "message", r.Message)
	setString(m, "received_at", r.ReceivedAt)
	return m
}

func (r *EchoReply) fromWire(m protoreflect.Message) {
	r.Message = getString(m, "message")
	r.ReceivedAt = getString(m, "received_at")
}

func (r *PrettifyJSONRequest) toWire() *dynamicpb.Message {
	m := dynamicpb.NewMessage(prettifyJSONRequestDesc)
	setString(m, "json_text", r.JSONText)
	return m
}

func (r *PrettifyJSONRequest) fromWire(m protoreflect.Message) {
	r.JSONText = getString(m, "json_text")
}

func (r *PrettifyJSONResponse) toWire() *dynamicpb.Message {
	m := dynamicpb.NewMessage(prettifyJSONResponseDesc)
	setString(m, "prettified_json_text", r.PrettifiedJSONText)
	return m
}

func (r *PrettifyJSONResponse) fromWire(m protoreflect.Message) {
	r.PrettifiedJSONText = getString(m, "prettified_json_text")
}

// wireValue is implemented by pointers to the contract's message types.
type wireValue[T any] interface {
	*T
	toWire() *dynamicpb.Message
	fromWire(protoreflect.Message)
}

// unaryHandler adapts a typed operation to grpc.MethodHandler. Interceptors
// observe the typed request and reply; conversion to the wire form happens
// after the chain returns.
func unaryHandler[Req, Resp any, PReq wireValue[Req], PResp wireValue[Resp]](
	method string,
	in protoreflect.MessageDescriptor,
	call func(Echo, context.Context, PReq) (PResp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		msg := dynamicpb.NewMessage(in)
		if err := dec(msg); err != nil {
			return nil, err
		}
		req := PReq(new(Req))
		req.fromWire(msg)

		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(Echo), ctx, req.(PReq))
		}
		var (
			resp any
			err  error
		)
		if interceptor == nil {
			resp, err = handler(ctx, req)
		} else {
			resp, err = interceptor(ctx, req, &grpc.UnaryServerInfo{Server: srv, FullMethod: method}, handler)
		}
		if err != nil {
			return nil, err
		}
		return resp.(PResp).toWire(), nil
	}
}

var echoServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Echo)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "EchoOnce",
			Handler: unaryHandler[EchoRequest, EchoReply](EchoOnceMethod, echoRequestDesc,
				func(e Echo, ctx context.Context, req *EchoRequest) (*EchoReply, error) {
					return e.EchoOnce(ctx, req)
				}),
		},
		{
			MethodName: "PrettifyJson",
			Handler: unaryHandler[PrettifyJSONRequest, PrettifyJSONResponse](PrettifyJSONMethod, prettifyJSONRequestDesc,
				func(e Echo, ctx context.Context, req *PrettifyJSONRequest) (*PrettifyJSONResponse, error) {
					return e.PrettifyJSON(ctx, req)
				}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: ProtoFile,
}

// RegisterEchoServer registers impl with a gRPC server.
func RegisterEchoServer(s grpc.ServiceRegistrar, impl Echo) {
	s.RegisterService(&echoServiceDesc, impl)
}
