// Package daemon keeps a resolver alive between requests of indexers and editors.
// It serves the same resolver through a unix socket (for local `rcompdb` invocations)
// and optionally through grpc (for clients on other hosts).
package daemon

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"rcompdb/internal/common"
)

// ArgsResolver is what the daemon serves; compdb.Resolver implements it.
type ArgsResolver interface {
	CompileArgsForTranslationUnit(ctx context.Context, fileName string) []string
	TranslationUnits() []string
	PrecompiledArtifacts() []*common.PCHInvocation
}

const (
	CommandArgs        = "args"
	CommandUnits       = "units"
	CommandPrecompiled = "precompiled"
)

// Daemon is created once, in a separate process `rcompdb-daemon`.
// Resolution results and precompiled headers are cached inside the resolver, so keeping one process
// alive makes every request after the first one cheap.
// If IdleTimeout is set, the daemon quits after it stops receiving requests.
type Daemon struct {
	startTime      time.Time
	quitDaemonChan chan struct{}
	quitOnce       sync.Once

	resolver    ArgsResolver
	idleTimeout time.Duration

	listener   *DaemonUnixSockListener
	grpcServer *ResolverService

	totalRequests  atomic.Uint32
	activeRequests atomic.Int32
	lastTimeAlive  atomic.Int64 // unix nano
}

func MakeDaemon(resolver ArgsResolver, idleTimeout time.Duration) *Daemon {
	daemon := &Daemon{
		startTime:      time.Now(),
		quitDaemonChan: make(chan struct{}),
		resolver:       resolver,
		idleTimeout:    idleTimeout,
	}
	daemon.lastTimeAlive.Store(time.Now().UnixNano())
	return daemon
}

func (daemon *Daemon) StartListeningUnixSocket(socketPath string) error {
	daemon.listener = MakeDaemonSockListener()
	return daemon.listener.StartListeningUnixSocket(socketPath)
}

// StartListeningGRPC starts serving the resolver on listenAddr in a background goroutine.
func (daemon *Daemon) StartListeningGRPC(listenAddr string) error {
	netListener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	daemon.grpcServer = MakeResolverService(daemon)
	go func() {
		if err := daemon.grpcServer.GRPCServer.Serve(netListener); err != nil {
			logDaemon.Error("grpc serve:", err)
		}
	}()
	logDaemon.Info(0, "grpc listening on", netListener.Addr().String())
	return nil
}

// ServeUntilQuit blocks until the daemon gets SIGTERM, an idle timeout, or QuitDaemonGracefully() is called.
func (daemon *Daemon) ServeUntilQuit() {
	logDaemon.Info(0, "rcompdb-daemon started in", time.Since(daemon.startTime).Milliseconds(), "ms")
	logDaemon.Info(0, "env:", "ulimit -n", openFilesLimit(), "; num cpu", runtime.NumCPU(), "; idle timeout", daemon.idleTimeout, "; version", common.GetVersion())

	go daemon.quitOnSignals()
	go daemon.listener.StartAcceptingConnections(daemon)
	daemon.listener.EnterInfiniteLoopUntilQuit(daemon)
}

func (daemon *Daemon) QuitDaemonGracefully(reason string) {
	daemon.quitOnce.Do(func() {
		logDaemon.Info(0, "daemon quit:", reason, "; served", daemon.totalRequests.Load(), "requests")
		close(daemon.quitDaemonChan)
		if daemon.grpcServer != nil {
			daemon.grpcServer.GRPCServer.GracefulStop()
		}
	})
}

func (daemon *Daemon) quitOnSignals() {
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, os.Interrupt)
	defer signal.Stop(signals)

	select {
	case <-daemon.quitDaemonChan:
	case sig := <-signals:
		daemon.QuitDaemonGracefully("got " + sig.String())
	}
}

// isIdle reports whether nothing has been requested for longer than idleTimeout.
func (daemon *Daemon) isIdle() bool {
	if daemon.idleTimeout <= 0 || daemon.activeRequests.Load() > 0 {
		return false
	}
	return time.Since(time.Unix(0, daemon.lastTimeAlive.Load())) > daemon.idleTimeout
}

// trackRequest is called at the start of every request of any transport; the returned func at its end.
func (daemon *Daemon) trackRequest() func() {
	daemon.totalRequests.Add(1)
	daemon.activeRequests.Add(1)
	daemon.lastTimeAlive.Store(time.Now().UnixNano())
	return func() {
		daemon.lastTimeAlive.Store(time.Now().UnixNano())
		daemon.activeRequests.Add(-1)
	}
}

func (daemon *Daemon) compileArgs(ctx context.Context, fileName string) []string {
	defer daemon.trackRequest()()
	start := time.Now()
	args := daemon.resolver.CompileArgsForTranslationUnit(ctx, fileName)
	logDaemon.Info(1, "resolved", len(args), "args for", fileName, "in", time.Since(start).Milliseconds(), "ms")
	return args
}

func (daemon *Daemon) translationUnits() []string {
	defer daemon.trackRequest()()
	return daemon.resolver.TranslationUnits()
}

func (daemon *Daemon) precompiledArtifacts() []*common.PCHInvocation {
	defer daemon.trackRequest()()
	return daemon.resolver.PrecompiledArtifacts()
}

// HandleRequest executes a command received via the unix socket.
// Lists are sent as lines of stdout; exit code 2 means a malformed request.
func (daemon *Daemon) HandleRequest(ctx context.Context, req DaemonSockRequest) DaemonSockResponse {
	switch req.Command {
	case CommandArgs:
		if req.Arg == "" {
			return errorResponse(2, "%s: file name expected", req.Command)
		}
		return linesResponse(daemon.compileArgs(ctx, req.Arg))

	case CommandUnits:
		return linesResponse(daemon.translationUnits())

	case CommandPrecompiled:
		return linesResponse(formatArtifacts(daemon.precompiledArtifacts()))

	default:
		return errorResponse(2, "unknown command %q", req.Command)
	}
}

// FormatArtifact is a one-line human-readable description of a precompiled header.
func FormatArtifact(pch *common.PCHInvocation) string {
	std := pch.StdFlag
	if std == "" {
		std = "-"
	}
	return strings.Join([]string{pch.Dependency, std, pch.ToolchainVersion, pch.OutputFile}, "\t")
}

func linesResponse(lines []string) DaemonSockResponse {
	var stdout []byte
	for _, line := range lines {
		stdout = append(stdout, line...)
		stdout = append(stdout, '\n')
	}
	return DaemonSockResponse{ExitCode: 0, Stdout: stdout}
}

func errorResponse(exitCode int, format string, args ...any) DaemonSockResponse {
	return DaemonSockResponse{ExitCode: exitCode, Stderr: fmt.Appendf(nil, format+"\n", args...)}
}

// ParseLines is the inverse of the lines format used in responses.
func ParseLines(stdout []byte) []string {
	text := strings.TrimSuffix(string(stdout), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
