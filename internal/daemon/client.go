package daemon

import (
	"context"

	"rcompdb/internal/common"
)

// Client is how `rcompdb` talks to a resolver: a local daemon via unix socket, a remote one via grpc,
// or a resolver created in-process when no daemon is reachable.
type Client interface {
	CompileArgs(ctx context.Context, fileName string) ([]string, error)
	TranslationUnits(ctx context.Context) ([]string, error)
	PrecompiledArtifacts(ctx context.Context) ([]string, error) // lines of FormatArtifact
	Close() error
}

// LocalClient resolves in the calling process; caches die with it.
type LocalClient struct {
	resolver ArgsResolver
}

func MakeLocalClient(resolver ArgsResolver) *LocalClient {
	return &LocalClient{resolver: resolver}
}

func (c *LocalClient) CompileArgs(ctx context.Context, fileName string) ([]string, error) {
	return c.resolver.CompileArgsForTranslationUnit(ctx, fileName), nil
}

func (c *LocalClient) TranslationUnits(context.Context) ([]string, error) {
	return c.resolver.TranslationUnits(), nil
}

func (c *LocalClient) PrecompiledArtifacts(context.Context) ([]string, error) {
	return formatArtifacts(c.resolver.PrecompiledArtifacts()), nil
}

func (c *LocalClient) Close() error {
	return nil
}

func formatArtifacts(artifacts []*common.PCHInvocation) []string {
	lines := make([]string, 0, len(artifacts))
	for _, pch := range artifacts {
		lines = append(lines, FormatArtifact(pch))
	}
	return lines
}
