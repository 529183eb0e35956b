package daemon

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
	"rcompdb/internal/common"
)

const resolverServiceName = "rcompdb.Resolver"

// ResolverServer is the grpc face of a daemon.
// Messages are protobuf well-known types, so no generated code is needed on either side.
type ResolverServer interface {
	CompileArgs(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
	TranslationUnits(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	PrecompiledArtifacts(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
}

var resolverServiceDesc = grpc.ServiceDesc{
	ServiceName: resolverServiceName,
	HandlerType: (*ResolverServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CompileArgs", Handler: compileArgsHandler},
		{MethodName: "TranslationUnits", Handler: translationUnitsHandler},
		{MethodName: "PrecompiledArtifacts", Handler: precompiledArtifactsHandler},
	},
	Streams: []grpc.StreamDesc{},
}

// ResolverService serves a daemon's resolver over grpc for clients on other hosts.
type ResolverService struct {
	GRPCServer *grpc.Server
	daemon     *Daemon
}

func MakeResolverService(daemon *Daemon, opts ...grpc.ServerOption) *ResolverService {
	s := &ResolverService{
		GRPCServer: grpc.NewServer(opts...),
		daemon:     daemon,
	}
	s.GRPCServer.RegisterService(&resolverServiceDesc, s)
	return s
}

func (s *ResolverService) CompileArgs(ctx context.Context, in *wrapperspb.StringValue) (*structpb.ListValue, error) {
	if in.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "file name expected")
	}
	return stringsToListValue(s.daemon.compileArgs(ctx, in.GetValue())), nil
}

func (s *ResolverService) TranslationUnits(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	return stringsToListValue(s.daemon.translationUnits()), nil
}

func (s *ResolverService) PrecompiledArtifacts(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	list := &structpb.ListValue{}
	for _, pch := range s.daemon.precompiledArtifacts() {
		list.Values = append(list.Values, structpb.NewStructValue(artifactToStruct(pch)))
	}
	return list, nil
}

func artifactToStruct(pch *common.PCHInvocation) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"dependency":       structpb.NewStringValue(pch.Dependency),
		"stdFlag":          structpb.NewStringValue(pch.StdFlag),
		"toolchainVersion": structpb.NewStringValue(pch.ToolchainVersion),
		"inputFile":        structpb.NewStringValue(pch.InputFile),
		"outputFile":       structpb.NewStringValue(pch.OutputFile),
		"args":             structpb.NewListValue(stringsToListValue(pch.Args)),
		"hash":             structpb.NewStringValue(pch.Hash),
		"createdAt":        structpb.NewStringValue(pch.CreatedAt.Format(time.RFC3339Nano)),
	}}
}

func structToArtifact(s *structpb.Struct) *common.PCHInvocation {
	fields := s.GetFields()
	createdAt, _ := time.Parse(time.RFC3339Nano, fields["createdAt"].GetStringValue())
	return &common.PCHInvocation{
		Dependency:       fields["dependency"].GetStringValue(),
		StdFlag:          fields["stdFlag"].GetStringValue(),
		ToolchainVersion: fields["toolchainVersion"].GetStringValue(),
		InputFile:        fields["inputFile"].GetStringValue(),
		OutputFile:       fields["outputFile"].GetStringValue(),
		Args:             listValueToStrings(fields["args"].GetListValue()),
		Hash:             fields["hash"].GetStringValue(),
		CreatedAt:        createdAt,
	}
}

func stringsToListValue(values []string) *structpb.ListValue {
	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(values))}
	for _, v := range values {
		list.Values = append(list.Values, structpb.NewStringValue(v))
	}
	return list
}

func listValueToStrings(list *structpb.ListValue) []string {
	if len(list.GetValues()) == 0 {
		return nil
	}
	values := make([]string, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		values = append(values, v.GetStringValue())
	}
	return values
}

func compileArgsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ResolverServer).CompileArgs(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + resolverServiceName + "/CompileArgs"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ResolverServer).CompileArgs(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func translationUnitsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ResolverServer).TranslationUnits(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + resolverServiceName + "/TranslationUnits"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ResolverServer).TranslationUnits(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func precompiledArtifactsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ResolverServer).PrecompiledArtifacts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + resolverServiceName + "/PrecompiledArtifacts"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ResolverServer).PrecompiledArtifacts(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
