package protocol

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/GoSim-25-26J-441/simtune/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// The gRPC flavour of the oracle protocol carries the same records as
// google.protobuf.Struct messages through a single unary method.
const (
	OracleServiceName = "simtune.oracle.v1.Oracle"
	evaluateMethod    = "/" + OracleServiceName + "/Evaluate"
)

// OracleServer is the server API of the oracle gRPC service.
type OracleServer interface {
	Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var oracleServiceDesc = grpc.ServiceDesc{
	ServiceName: OracleServiceName,
	HandlerType: (*OracleServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: evaluateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "simtune/oracle/v1/oracle.proto",
}

func evaluateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OracleServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: evaluateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OracleServer).Evaluate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterOracleServer exposes h on s as the oracle gRPC service.
func RegisterOracleServer(s *grpc.Server, h Handler) {
	s.RegisterService(&oracleServiceDesc, &grpcOracle{handler: h})
}

type grpcOracle struct {
	handler Handler
}

func (g *grpcOracle) Evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var resp *Response
	raw, err := json.Marshal(in.AsMap())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	req, err := DecodeRequest(raw)
	if err != nil {
		resp = ErrorResponse("Can't parse request")
	} else {
		resp = g.handler.Handle(ctx, req)
	}
	out, err := toStruct(resp)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// GRPCClient sends requests to the oracle gRPC service, one client
// connection per request.
type GRPCClient struct {
	Target   string
	DialOpts []grpc.DialOption
}

// NewGRPCClient creates a client for target (host:port).
func NewGRPCClient(target string) *GRPCClient {
	return &GRPCClient{
		Target:   target,
		DialOpts: []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())},
	}
}

func (c *GRPCClient) Send(ctx context.Context, req *Request) (*Response, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, &ProtocolError{Reason: "can't encode request", Err: err}
	}

	conn, err := grpc.NewClient(c.Target, c.DialOpts...)
	if err != nil {
		return nil, &TransportError{Addr: c.Target, Op: "dial", Err: err}
	}
	defer conn.Close()

	logger.Debug("invoking oracle over grpc", "target", c.Target)
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, evaluateMethod, in, out); err != nil {
		return nil, &TransportError{Addr: c.Target, Op: fmt.Sprintf("invoke (%s)", status.Code(err)), Err: err}
	}

	raw, err := json.Marshal(out.AsMap())
	if err != nil {
		return nil, &ProtocolError{Reason: "can't read response", Err: err}
	}
	return DecodeResponse(raw)
}

// toStruct converts a JSON-tagged value into a structpb.Struct.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
