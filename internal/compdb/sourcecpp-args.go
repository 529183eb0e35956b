package compdb

import (
	"context"
	"path/filepath"
	"slices"
	"sync"
)

type sourceCppCacheEntry struct {
	fingerprint string
	args        []string
}

// SourceCppArgs caches compile arguments of standalone files, keyed by absolute path.
// An entry is recomputed when the file's dependency annotations change.
type SourceCppArgs struct {
	scheme    *AnnotationScheme
	env       PackageEnvironment
	toolchain Toolchain
	buildTool BuildTool

	mu      sync.Mutex
	entries map[string]sourceCppCacheEntry
}

func MakeSourceCppArgs(scheme *AnnotationScheme, env PackageEnvironment, toolchain Toolchain, buildTool BuildTool) *SourceCppArgs {
	return &SourceCppArgs{
		scheme:    scheme,
		env:       env,
		toolchain: toolchain,
		buildTool: buildTool,
		entries:   make(map[string]sourceCppCacheEntry),
	}
}

// Resolve returns compile arguments of a standalone file; ok is false if there are none.
// A file without recognized annotations is not a standalone source: nothing is invoked for it.
func (s *SourceCppArgs) Resolve(ctx context.Context, srcFile string) (args []string, ok bool) {
	srcFile, err := filepath.Abs(srcFile)
	if err != nil {
		logCompdb.Error("can't resolve path", srcFile, err)
		return nil, false
	}

	fingerprint := s.scheme.FileFingerprint(srcFile)
	if fingerprint == "" {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[srcFile]
	if exists && entry.fingerprint == fingerprint {
		return slices.Clone(entry.args), true
	}

	compileArgs, err := dryRunCompileArgs(ctx, s.buildTool, InvokeSourceCpp, srcFile, s.env.CompilationEnvironment())
	if err != nil {
		logCompdb.Error("can't resolve args of", srcFile, err)
		if exists {
			return slices.Clone(entry.args), true
		}
		return nil, false
	}

	args = slices.Concat(baseArgs(ctx, s.toolchain), compileArgs)
	s.entries[srcFile] = sourceCppCacheEntry{fingerprint: fingerprint, args: args}
	return slices.Clone(args), true
}
