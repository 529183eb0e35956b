package daemon

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/proxy"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// GRPCClient queries a daemon on another host.
type GRPCClient struct {
	remoteHostPort string
	connection     *grpc.ClientConn
}

// MakeGRPCClient doesn't connect: if the remote is not available, it will fail on request.
func MakeGRPCClient(remoteHostPort string, socksProxyAddr string) (*GRPCClient, error) {
	dialOpts := createDialOpts(socksProxyAddr)

	var remoteAddress string
	if socksProxyAddr != "" {
		remoteAddress = fmt.Sprintf("passthrough:%s", remoteHostPort)
	} else {
		remoteAddress = fmt.Sprintf("dns:///%s", remoteHostPort)
	}

	connection, err := grpc.NewClient(remoteAddress, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &GRPCClient{
		remoteHostPort: remoteHostPort,
		connection:     connection,
	}, nil
}

func createDialOpts(socksProxyAddr string) []grpc.DialOption {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}

	if socksProxyAddr != "" {
		dialOpt, err := runInSocks5(socksProxyAddr)
		if err != nil {
			logDaemon.Error("can't use socks proxy", socksProxyAddr, err)
		} else {
			dialOpts = append(dialOpts, dialOpt)
		}
	}
	return dialOpts
}

// runInSocks5 tunnels connections through a SOCKS5 proxy listening on a unix socket.
func runInSocks5(proxyAddr string) (grpc.DialOption, error) {
	dialer, err := proxy.SOCKS5("unix", proxyAddr, nil, proxy.Direct)
	if err != nil {
		return nil, err
	}

	customDialer := func(ctx context.Context, addr string) (net.Conn, error) {
		if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
			return contextDialer.DialContext(ctx, "tcp", addr)
		}
		return dialer.Dial("tcp", addr)
	}

	return grpc.WithContextDialer(customDialer), nil
}

func (c *GRPCClient) invoke(ctx context.Context, method string, in any, out any) error {
	if err := c.connection.Invoke(ctx, "/"+resolverServiceName+"/"+method, in, out); err != nil {
		return fmt.Errorf("%s %s: %w", c.remoteHostPort, method, err)
	}
	return nil
}

func (c *GRPCClient) CompileArgs(ctx context.Context, fileName string) ([]string, error) {
	out := new(structpb.ListValue)
	if err := c.invoke(ctx, "CompileArgs", wrapperspb.String(fileName), out); err != nil {
		return nil, err
	}
	return listValueToStrings(out), nil
}

func (c *GRPCClient) TranslationUnits(ctx context.Context) ([]string, error) {
	out := new(structpb.ListValue)
	if err := c.invoke(ctx, "TranslationUnits", &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return listValueToStrings(out), nil
}

func (c *GRPCClient) PrecompiledArtifacts(ctx context.Context) ([]string, error) {
	out := new(structpb.ListValue)
	if err := c.invoke(ctx, "PrecompiledArtifacts", &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		lines = append(lines, FormatArtifact(structToArtifact(v.GetStructValue())))
	}
	return lines, nil
}

func (c *GRPCClient) Close() error {
	return c.connection.Close()
}
