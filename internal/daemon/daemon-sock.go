package daemon

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"
)

// DaemonUnixSockListener is created when `rcompdb-daemon` starts.
// It listens to a unix socket from `rcompdb` invocations.
// Request/response transferred via this socket are represented as simple C-style strings with \0 delimiters, see below.
type DaemonUnixSockListener struct {
	netListener net.Listener
}

type DaemonSockRequest struct {
	Command string
	Arg     string
}

type DaemonSockResponse struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

func MakeDaemonSockListener() *DaemonUnixSockListener {
	return &DaemonUnixSockListener{}
}

func (listener *DaemonUnixSockListener) StartListeningUnixSocket(daemonUnixSock string) (err error) {
	_ = os.Remove(daemonUnixSock)
	listener.netListener, err = net.Listen("unix", daemonUnixSock)
	return
}

func (listener *DaemonUnixSockListener) StartAcceptingConnections(daemon *Daemon) {
	for {
		conn, err := listener.netListener.Accept()
		if err != nil {
			select {
			case <-daemon.quitDaemonChan:
				return
			default:
				logDaemon.Error("daemon accept error:", err)
			}
		} else {
			go listener.onRequest(conn, daemon) // `rcompdb` invocation
		}
	}
}

func (listener *DaemonUnixSockListener) EnterInfiniteLoopUntilQuit(daemon *Daemon) {
	checkInterval := 5 * time.Second
	if daemon.idleTimeout > 0 {
		checkInterval = min(checkInterval, max(daemon.idleTimeout/4, 10*time.Millisecond))
	}
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-daemon.quitDaemonChan:
			_ = listener.netListener.Close() // Accept() will return an error immediately
			return

		case <-ticker.C:
			if daemon.isIdle() {
				daemon.QuitDaemonGracefully("no requests receiving anymore")
			}
		}
	}
}

// onRequest parses a string-encoded message from `rcompdb` and calls Daemon.HandleRequest.
// Request message format:
// "{Command}\b{Arg}\0"
// Response message format:
// "{ExitCode}\b{Stdout}\b{Stderr}\0"
func (listener *DaemonUnixSockListener) onRequest(conn net.Conn, daemon *Daemon) {
	slice, err := bufio.NewReaderSize(conn, 64*1024).ReadSlice(0)
	if err != nil {
		logDaemon.Error("couldn't read from socket", err)
		listener.respondErr(conn)
		return
	}
	command, arg, _ := strings.Cut(string(slice[0:len(slice)-1]), "\b") // -1 to strip off the trailing '\0'
	request := DaemonSockRequest{
		Command: command,
		Arg:     arg,
	}

	response := daemon.HandleRequest(context.Background(), request)
	listener.respondOk(conn, &response)
}

func (listener *DaemonUnixSockListener) respondOk(conn net.Conn, resp *DaemonSockResponse) {
	_, _ = conn.Write(fmt.Appendf(nil, "%d\b%s\b%s\000", resp.ExitCode, resp.Stdout, resp.Stderr))
	_ = conn.Close()
}

func (listener *DaemonUnixSockListener) respondErr(conn net.Conn) {
	_, _ = conn.Write([]byte("\000"))
	_ = conn.Close()
}
