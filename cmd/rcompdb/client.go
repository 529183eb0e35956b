package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"rcompdb/internal/common"
	"rcompdb/internal/daemon"
)

// clientFlags are shared by all commands talking to a resolver.
type clientFlags struct {
	socketPath     string
	remote         string
	socksProxyAddr string
	configFileName string
	projectDir     string
	local          bool
}

func (f *clientFlags) register(flags *flag.FlagSet) {
	flags.StringVar(&f.socketPath, "socket", os.Getenv("RCOMPDB_SOCKET"), "unix socket of rcompdb-daemon; default is SocketPath of the configuration. can be set by $RCOMPDB_SOCKET")
	flags.StringVar(&f.remote, "remote", os.Getenv("RCOMPDB_REMOTE"), "host:port of a daemon serving grpc, used instead of the unix socket. can be set by $RCOMPDB_REMOTE")
	flags.StringVar(&f.socksProxyAddr, "socks_proxy", "", "unix socket of a SOCKS5 proxy to reach -remote through; default is SocksProxyAddr of the configuration")
	flags.StringVar(&f.configFileName, "config", envOrDefault("RCOMPDB_CONFIG", daemon.DefaultConfigurationPath), "toml configuration, the same the daemon reads. can be set by $RCOMPDB_CONFIG")
	flags.StringVar(&f.projectDir, "project", "", "R project for in-process resolution; default is ProjectDir of the configuration")
	flags.BoolVar(&f.local, "local", false, "resolve in-process without contacting a daemon")
}

func envOrDefault(envName string, def string) string {
	if v, ok := os.LookupEnv(envName); ok {
		return v
	}
	return def
}

// makeClient connects to a daemon, with in-process resolution as a fallback when it's unreachable.
func (f *clientFlags) makeClient() (daemon.Client, error) {
	config, err := daemon.ParseConfiguration(f.configFileName)
	if err != nil {
		return nil, err
	}
	if f.projectDir != "" {
		config.ProjectDir = f.projectDir
	}

	client := &fallbackClient{
		makeLocal: func() (daemon.Client, error) {
			daemon.SetLoggers(common.MakeStderrLogger(config.LogLevel))
			resolver, err := daemon.MakeResolverFromConfiguration(config)
			if err != nil {
				return nil, err
			}
			return daemon.MakeLocalClient(resolver), nil
		},
	}

	switch {
	case f.local:
	case f.remote != "":
		socksProxyAddr := f.socksProxyAddr
		if socksProxyAddr == "" {
			socksProxyAddr = config.SocksProxyAddr
		}
		if client.primary, err = daemon.MakeGRPCClient(f.remote, socksProxyAddr); err != nil {
			return nil, err
		}
	default:
		socketPath := f.socketPath
		if socketPath == "" {
			socketPath = config.SocketPath
		}
		client.primary = daemon.MakeSockClient(socketPath)
	}
	return client, nil
}

// fallbackClient asks primary first; once primary turns out unreachable, a local resolver serves all further calls.
type fallbackClient struct {
	primary   daemon.Client
	local     daemon.Client
	makeLocal func() (daemon.Client, error)
}

// isUnreachable distinguishes transport failures from answers of a live daemon.
func isUnreachable(err error) bool {
	if errors.Is(err, daemon.ErrCommandFailed) {
		return false
	}
	switch status.Code(err) {
	case codes.Unknown, codes.Unavailable, codes.DeadlineExceeded, codes.Unimplemented:
		return true
	}
	return false
}

func (c *fallbackClient) call(fn func(daemon.Client) ([]string, error)) ([]string, error) {
	if c.primary != nil {
		lines, err := fn(c.primary)
		if err == nil || !isUnreachable(err) {
			return lines, err
		}
		_, _ = fmt.Fprintln(os.Stderr, "[rcompdb] daemon unreachable, resolving in-process:", err)
		_ = c.primary.Close()
		c.primary = nil
	}

	if c.local == nil {
		local, err := c.makeLocal()
		if err != nil {
			return nil, err
		}
		c.local = local
	}
	return fn(c.local)
}

func (c *fallbackClient) CompileArgs(ctx context.Context, fileName string) ([]string, error) {
	return c.call(func(client daemon.Client) ([]string, error) {
		return client.CompileArgs(ctx, fileName)
	})
}

func (c *fallbackClient) TranslationUnits(ctx context.Context) ([]string, error) {
	return c.call(func(client daemon.Client) ([]string, error) {
		return client.TranslationUnits(ctx)
	})
}

func (c *fallbackClient) PrecompiledArtifacts(ctx context.Context) ([]string, error) {
	return c.call(func(client daemon.Client) ([]string, error) {
		return client.PrecompiledArtifacts(ctx)
	})
}

func (c *fallbackClient) Close() error {
	var errs []error
	if c.primary != nil {
		errs = append(errs, c.primary.Close())
	}
	if c.local != nil {
		errs = append(errs, c.local.Close())
	}
	return errors.Join(errs...)
}
