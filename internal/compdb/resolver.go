// Package compdb resolves compiler arguments for semantic analysis of R package sources
// and standalone Rcpp files, and manages precompiled headers of their dependencies.
package compdb

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"rcompdb/internal/common"
	"rcompdb/internal/rsession"
)

// Toolchain provides base flags of the semantic-analysis compiler.
type Toolchain interface {
	CompileArgs(ctx context.Context, isCpp bool) []string
	PlatformArgs() []string
	Version(ctx context.Context) (string, error)
}

// TranslationUnitSaver parses a source with args and serializes the result (a precompiled header) to outFile.
type TranslationUnitSaver interface {
	SaveTranslationUnit(ctx context.Context, srcFile string, args []string, outFile string) error
}

// PackageEnvironment is what the resolver needs to know about the R installation.
type PackageEnvironment interface {
	CompilationEnvironment() []string
	IncludesForLinkingTo(ctx context.Context, linkingTo string) ([]string, error)
	PrecompiledPlatformDir(ctx context.Context, pkg string, toolchainVersion string) (string, error)
}

type Options struct {
	Project     rsession.ProjectContext
	ScratchDir  string
	Environment PackageEnvironment
	Toolchain   Toolchain
	Saver       TranslationUnitSaver
	BuildTool   BuildTool
	Scheme      *AnnotationScheme // nil means RcppScheme
}

// Resolver is an entry point: it decides whether a file belongs to the active package or is standalone,
// asks the matching cache, and appends precompiled header flags.
type Resolver struct {
	project       rsession.ProjectContext
	scheme        *AnnotationScheme
	packageArgs   *PackageArgs
	sourceCppArgs *SourceCppArgs
	precompiled   *PrecompiledHeaders
}

func MakeResolver(opts Options) *Resolver {
	scheme := opts.Scheme
	if scheme == nil {
		scheme = RcppScheme
	}
	return &Resolver{
		project:       opts.Project,
		scheme:        scheme,
		packageArgs:   MakePackageArgs(opts.Project, opts.Environment, opts.Toolchain, opts.BuildTool),
		sourceCppArgs: MakeSourceCppArgs(scheme, opts.Environment, opts.Toolchain, opts.BuildTool),
		precompiled:   MakePrecompiledHeaders(opts.ScratchDir, opts.Environment, opts.Toolchain, opts.Saver, opts.BuildTool),
	}
}

// CompileArgsForTranslationUnit returns arguments to parse fileName with, or an empty list if unknown.
// It never fails: errors of any step are logged.
func (r *Resolver) CompileArgsForTranslationUnit(ctx context.Context, fileName string) []string {
	fileName, err := filepath.Abs(fileName)
	if err != nil {
		logCompdb.Error("can't resolve path", fileName, err)
		return nil
	}

	var args []string
	var pchDependency string
	if r.project.IsPackage() && common.PathIsWithin(fileName, r.project.PackageSrcDir()) {
		args, pchDependency = r.packageArgs.Resolve(ctx)
	} else if sourceCppArgs, ok := r.sourceCppArgs.Resolve(ctx, fileName); ok {
		args, pchDependency = sourceCppArgs, r.scheme.DependencyName
	}

	if len(args) == 0 {
		return nil
	}

	if pchDependency != "" && common.IsCppTranslationUnit(fileName) {
		args = append(args, r.precompiled.Ensure(ctx, pchDependency, ExtractStdArg(args))...)
	}
	return args
}

// TranslationUnits lists sources in src/ of the active package; empty for non-package projects.
func (r *Resolver) TranslationUnits() []string {
	if !r.project.IsPackage() {
		return nil
	}

	srcDir := r.project.PackageSrcDir()
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logCompdb.Error("can't list", srcDir, err)
		}
		return nil
	}

	var units []string
	for _, entry := range entries {
		if !entry.IsDir() && common.IsTranslationUnit(entry.Name()) {
			units = append(units, filepath.Join(srcDir, entry.Name()))
		}
	}
	return units
}

func (r *Resolver) PrecompiledArtifacts() []*common.PCHInvocation {
	return r.precompiled.Artifacts()
}
