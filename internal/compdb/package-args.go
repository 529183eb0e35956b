package compdb

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"rcompdb/internal/common"
	"rcompdb/internal/rsession"
)

type packageCacheEntry struct {
	buildFingerprint string
	args             []string
	pchDependency    string
}

// PackageArgs caches compile arguments shared by all sources of the active package.
// They are recomputed only when DESCRIPTION or src/Makevars[.win] change.
type PackageArgs struct {
	project   rsession.ProjectContext
	env       PackageEnvironment
	toolchain Toolchain
	buildTool BuildTool

	mu    sync.Mutex
	entry packageCacheEntry
}

func MakePackageArgs(project rsession.ProjectContext, env PackageEnvironment, toolchain Toolchain, buildTool BuildTool) *PackageArgs {
	return &PackageArgs{
		project:   project,
		env:       env,
		toolchain: toolchain,
		buildTool: buildTool,
	}
}

// Resolve returns package compile arguments and the dependency whose headers may be precompiled for them.
// If recomputation fails, the previous (possibly empty) result is returned as is.
func (p *PackageArgs) Resolve(ctx context.Context) (args []string, pchDependency string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fingerprint := p.buildFingerprint()
	if fingerprint != p.entry.buildFingerprint {
		if err := p.update(ctx, fingerprint); err != nil {
			logCompdb.Error("can't resolve args of package", p.project.BuildTargetPath, err)
		}
	}
	return slices.Clone(p.entry.args), p.entry.pchDependency
}

// buildFingerprint is built from mtimes of files that affect a package build.
func (p *PackageArgs) buildFingerprint() string {
	parts := []string{common.FileMTimeString(filepath.Join(p.project.BuildTargetPath, "DESCRIPTION"))}
	srcDir := p.project.PackageSrcDir()
	if common.FileExists(srcDir) {
		parts = append(parts,
			common.FileMTimeString(filepath.Join(srcDir, "Makevars")),
			common.FileMTimeString(filepath.Join(srcDir, "Makevars.win")))
	}
	return strings.Join(parts, ";")
}

func (p *PackageArgs) update(ctx context.Context, fingerprint string) error {
	info, err := rsession.ReadPackageInfo(p.project.BuildTargetPath)
	if err != nil {
		return err
	}

	args := baseArgs(ctx, p.toolchain)

	if info.LinkingTo != "" {
		includes, err := p.env.IncludesForLinkingTo(ctx, info.LinkingTo)
		if err != nil {
			logCompdb.Error("can't get includes for LinkingTo", info.LinkingTo, err)
		}
		args = append(args, includes...)
	}

	env := p.env.CompilationEnvironment()
	if strings.Contains(strings.ToLower(info.SystemRequirements), "c++11") {
		env = common.SetEnv(env, "USE_CXX1X", "1")
	}

	srcDir := p.project.PackageSrcDir()
	placeholder := filepath.Join(srcDir, uuid.NewString()+".cpp")
	compileArgs, err := dryRunCompileArgs(ctx, p.buildTool, InvokePackageBuild, placeholder, env)
	if err != nil {
		return err
	}
	for _, arg := range compileArgs {
		args = append(args, rewriteRelativeInclude(arg, srcDir))
	}

	p.entry = packageCacheEntry{
		buildFingerprint: fingerprint,
		args:             args,
		pchDependency:    rsession.PackagePCH(info.LinkingTo),
	}
	logCompdb.Info(1, "package args updated for", info.Name, "pch:", p.entry.pchDependency)
	return nil
}

// rewriteRelativeInclude makes -I paths relative to src/ absolute: "-I../inst/include" -> "-I<pkg>/inst/include".
func rewriteRelativeInclude(arg string, srcDir string) string {
	if !strings.HasPrefix(arg, "-I") {
		return arg
	}
	rel := arg[2:]
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "./") || strings.HasPrefix(rel, "../") {
		return "-I" + filepath.Join(srcDir, rel)
	}
	return arg
}

// dryRunCompileArgs invokes the build tool for srcFile and parses the compile line out of its output.
func dryRunCompileArgs(ctx context.Context, buildTool BuildTool, mode InvokeMode, srcFile string, env []string) ([]string, error) {
	result, err := buildTool.Invoke(ctx, Invocation{Mode: mode, SourceFile: srcFile, Env: env})
	if err != nil {
		return nil, err
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("%v of %s: %w", mode, srcFile, err)
	}
	compileArgs := ParseCompilationResults(srcFile, result.Stdout)
	if len(compileArgs) == 0 {
		return nil, fmt.Errorf("%w: %v of %s", ErrNoFlags, mode, srcFile)
	}
	return compileArgs, nil
}

func baseArgs(ctx context.Context, toolchain Toolchain) []string {
	return slices.Concat(toolchain.CompileArgs(ctx, true), toolchain.PlatformArgs())
}
