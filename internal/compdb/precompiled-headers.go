package compdb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
	"rcompdb/internal/common"
)

// precompiledNamespace is a subdirectory of the scratch dir owned by this store.
const precompiledNamespace = "libclang"

var reDependencyName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9.]*$`)

// PrecompiledHeaders is a store of precompiled umbrella headers of dependencies.
//
// Layout: <scratch>/libclang/precompiled/<dep>/<platformDir>/<dep><std>.{cpp,pch,json}.
// platformDir encodes versions of R, the dependency, and clang. Only one platformDir per dependency is kept:
// when the current one is missing, the whole <dep> dir is removed before rebuilding.
type PrecompiledHeaders struct {
	root      string
	env       PackageEnvironment
	toolchain Toolchain
	saver     TranslationUnitSaver
	buildTool BuildTool

	platformDirs *expirable.LRU[string, string]
	flights      singleflight.Group
}

func MakePrecompiledHeaders(scratchDir string, env PackageEnvironment, toolchain Toolchain, saver TranslationUnitSaver, buildTool BuildTool) *PrecompiledHeaders {
	return &PrecompiledHeaders{
		root:         filepath.Join(scratchDir, precompiledNamespace, "precompiled"),
		env:          env,
		toolchain:    toolchain,
		saver:        saver,
		buildTool:    buildTool,
		platformDirs: expirable.NewLRU[string, string](64, nil, time.Minute),
	}
}

// Ensure makes sure a precompiled header for dependency and stdFlag exists, building it if needed,
// and returns flags to use it. Any failure is logged and results in no flags.
func (p *PrecompiledHeaders) Ensure(ctx context.Context, dependency string, stdFlag string) []string {
	if !reDependencyName.MatchString(dependency) {
		logCompdb.Error("invalid dependency name for a precompiled header:", dependency)
		return nil
	}

	toolchainVersion, err := p.toolchain.Version(ctx)
	if err != nil {
		logCompdb.Error("can't detect toolchain version", err)
		return nil
	}
	platformDir, err := p.platformDir(ctx, dependency, toolchainVersion)
	if err != nil {
		logCompdb.Error("can't get precompiled platform dir for", dependency, err)
		return nil
	}

	platformPath := filepath.Join(p.root, dependency, platformDir)
	pchPath := filepath.Join(platformPath, dependency+stdFlag+".pch")

	_, err, _ = p.flights.Do(pchPath, func() (any, error) {
		unlock, err := common.LockFile(filepath.Join(p.root, dependency+".lock"))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArtifactIO, err)
		}
		defer unlock()

		if err := p.ensurePlatformDir(dependency, platformPath); err != nil {
			return nil, err
		}
		if common.FileExists(pchPath) {
			return nil, nil
		}
		return nil, p.build(ctx, dependency, stdFlag, toolchainVersion, pchPath)
	})
	if err != nil {
		logCompdb.Error("can't create precompiled header", pchPath, err)
	}

	if !common.FileExists(pchPath) {
		return nil
	}
	return []string{"-include-pch", pchPath}
}

func (p *PrecompiledHeaders) platformDir(ctx context.Context, dependency string, toolchainVersion string) (string, error) {
	key := dependency + "@" + toolchainVersion
	if platformDir, ok := p.platformDirs.Get(key); ok {
		return platformDir, nil
	}

	platformDir, err := p.env.PrecompiledPlatformDir(ctx, dependency, toolchainVersion)
	if err != nil {
		return "", err
	}
	if platformDir == "" || platformDir == "." || platformDir == ".." || filepath.Base(platformDir) != platformDir {
		return "", fmt.Errorf("invalid platform dir %q", platformDir)
	}
	p.platformDirs.Add(key, platformDir)
	return platformDir, nil
}

// ensurePlatformDir wipes all artifacts of dependency if platformPath is not the current one yet.
func (p *PrecompiledHeaders) ensurePlatformDir(dependency string, platformPath string) error {
	if common.FileExists(platformPath) {
		return nil
	}
	dependencyRoot := filepath.Join(p.root, dependency)
	logCompdb.Info(0, "dropping outdated precompiled headers in", dependencyRoot)
	if err := os.RemoveAll(dependencyRoot); err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactIO, err)
	}
	if err := os.MkdirAll(platformPath, os.ModePerm); err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactIO, err)
	}
	return nil
}

func (p *PrecompiledHeaders) build(ctx context.Context, dependency string, stdFlag string, toolchainVersion string, pchPath string) error {
	cppPath := common.ReplaceFileExt(pchPath, ".cpp")
	if err := os.WriteFile(cppPath, []byte(fmt.Sprintf("#include <%s.h>\n", dependency)), 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactIO, err)
	}

	args := baseArgs(ctx, p.toolchain)
	if stdFlag != "" {
		args = append(args, stdFlag)
	}

	// generic package build flags (R headers, defines) come from a throwaway R CMD SHLIB
	throwaway := filepath.Join(os.TempDir(), "rcompdb-"+uuid.NewString()+".cpp")
	packageArgs, err := dryRunCompileArgs(ctx, p.buildTool, InvokePackageBuild, throwaway, p.env.CompilationEnvironment())
	if err != nil {
		logCompdb.Error("can't get package build flags for a precompiled header", err)
	}
	args = append(args, packageArgs...)

	includes, err := p.env.IncludesForLinkingTo(ctx, dependency)
	if err != nil {
		logCompdb.Error("can't get includes of", dependency, err)
	}
	args = append(args, includes...)

	start := time.Now()
	if err := p.saver.SaveTranslationUnit(ctx, cppPath, args, pchPath); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSemanticParse, pchPath, err)
	}
	logCompdb.Info(0, "created precompiled header", pchPath, "in", time.Since(start).Round(time.Millisecond))

	manifest := &common.PCHInvocation{
		Dependency:       dependency,
		StdFlag:          stdFlag,
		ToolchainVersion: toolchainVersion,
		InputFile:        cppPath,
		OutputFile:       pchPath,
		Args:             slices.Clone(args),
		Hash:             common.CalcArgsHash(args),
		CreatedAt:        time.Now(),
	}
	if err := manifest.SaveToFile(common.ReplaceFileExt(pchPath, ".json")); err != nil {
		logCompdb.Error("can't save manifest of", pchPath, fmt.Errorf("%w: %v", ErrArtifactIO, err))
	}
	return nil
}

// Artifacts lists manifests of all precompiled headers currently stored, whose artifacts exist.
func (p *PrecompiledHeaders) Artifacts() []*common.PCHInvocation {
	var artifacts []*common.PCHInvocation
	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		manifest, err := common.ParsePchInvocationFile(path)
		if err != nil {
			logCompdb.Warn("skip unreadable manifest", path, err)
			return nil
		}
		if common.FileExists(manifest.OutputFile) {
			artifacts = append(artifacts, manifest)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		logCompdb.Error("can't list precompiled headers in", p.root, err)
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].OutputFile < artifacts[j].OutputFile
	})
	return artifacts
}
