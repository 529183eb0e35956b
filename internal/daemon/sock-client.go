package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// SockClient sends every request over a new unix socket connection, like the daemon expects.
type SockClient struct {
	SocketPath string
}

func MakeSockClient(socketPath string) *SockClient {
	return &SockClient{SocketPath: socketPath}
}

// QueryDaemon sends one request and waits for the response.
// An error means the daemon is unreachable or the answer is malformed, not that the command failed.
func QueryDaemon(ctx context.Context, socketPath string, req DaemonSockRequest) (DaemonSockResponse, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return DaemonSockResponse{}, err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if strings.ContainsAny(req.Command+req.Arg, "\b\000") {
		return DaemonSockResponse{}, fmt.Errorf("request contains a delimiter: %q %q", req.Command, req.Arg)
	}
	if _, err := conn.Write(fmt.Appendf(nil, "%s\b%s\000", req.Command, req.Arg)); err != nil {
		return DaemonSockResponse{}, err
	}

	slice, err := bufio.NewReaderSize(conn, 128*1024).ReadSlice(0)
	if err != nil {
		return DaemonSockResponse{}, fmt.Errorf("couldn't read from socket: %v", err)
	}
	responseParts := strings.Split(string(slice[0:len(slice)-1]), "\b") // -1 to strip off the trailing '\0'
	if len(responseParts) != 3 {
		return DaemonSockResponse{}, fmt.Errorf("received %d parts in response, expected 3", len(responseParts))
	}
	exitCode, err := strconv.Atoi(responseParts[0])
	if err != nil {
		return DaemonSockResponse{}, err
	}
	return DaemonSockResponse{
		ExitCode: exitCode,
		Stdout:   []byte(responseParts[1]),
		Stderr:   []byte(responseParts[2]),
	}, nil
}

func (c *SockClient) queryLines(ctx context.Context, command string, arg string) ([]string, error) {
	resp, err := QueryDaemon(ctx, c.SocketPath, DaemonSockRequest{Command: command, Arg: arg})
	if err != nil {
		return nil, err
	}
	if resp.ExitCode != 0 {
		return nil, fmt.Errorf("%w: exit code %d: %s", ErrCommandFailed, resp.ExitCode, strings.TrimSpace(string(resp.Stderr)))
	}
	return ParseLines(resp.Stdout), nil
}

func (c *SockClient) CompileArgs(ctx context.Context, fileName string) ([]string, error) {
	return c.queryLines(ctx, CommandArgs, fileName)
}

func (c *SockClient) TranslationUnits(ctx context.Context) ([]string, error) {
	return c.queryLines(ctx, CommandUnits, "")
}

func (c *SockClient) PrecompiledArtifacts(ctx context.Context) ([]string, error) {
	return c.queryLines(ctx, CommandPrecompiled, "")
}

func (c *SockClient) Close() error {
	return nil
}

// ErrCommandFailed means the daemon answered, but with a non-zero exit code.
var ErrCommandFailed = errors.New("daemon command failed")

