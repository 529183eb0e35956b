package compdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"rcompdb/internal/common"
	"rcompdb/internal/rsession"
)

// fakeBuildTool answers every invocation with a dry-run compile line for the requested file.
type fakeBuildTool struct {
	mu          sync.Mutex
	invocations []Invocation

	flags    string // appended to the compile line
	exitCode int
	launchErr error
	// seenPlaceholder is true if the source file existed while the tool ran
	seenPlaceholder bool
}

func (tool *fakeBuildTool) Invoke(ctx context.Context, invocation Invocation) (*ProcessResult, error) {
	tool.mu.Lock()
	defer tool.mu.Unlock()
	tool.invocations = append(tool.invocations, invocation)
	if tool.launchErr != nil {
		return nil, tool.launchErr
	}
	if invocation.Mode == InvokePackageBuild {
		tool.seenPlaceholder = common.FileExists(invocation.SourceFile)
	}
	base := filepath.Base(invocation.SourceFile)
	stdout := fmt.Sprintf("clang++ -std=gnu++17 -I\"/usr/share/R/include\" -DNDEBUG %s -fpic -g -O2 -c %s -o %s.o\n",
		tool.flags, base, common.FileStem(invocation.SourceFile))
	return &ProcessResult{ExitCode: tool.exitCode, Stdout: stdout, Stderr: "boom"}, nil
}

func (tool *fakeBuildTool) count(mode InvokeMode) int {
	tool.mu.Lock()
	defer tool.mu.Unlock()
	n := 0
	for _, invocation := range tool.invocations {
		if invocation.Mode == mode {
			n++
		}
	}
	return n
}

type fakeToolchain struct {
	version    string
	versionErr error
}

func (tc *fakeToolchain) CompileArgs(ctx context.Context, isCpp bool) []string {
	return []string{"-isystem", "/usr/include"}
}

func (tc *fakeToolchain) PlatformArgs() []string {
	return nil
}

func (tc *fakeToolchain) Version(ctx context.Context) (string, error) {
	if tc.versionErr != nil {
		return "", tc.versionErr
	}
	return tc.version, nil
}

type fakeEnvironment struct {
	mu           sync.Mutex
	platformDir  string
	platformErr  error
	linkingCalls []string
}

func (env *fakeEnvironment) CompilationEnvironment() []string {
	return []string{"PATH=/usr/bin"}
}

func (env *fakeEnvironment) IncludesForLinkingTo(ctx context.Context, linkingTo string) ([]string, error) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.linkingCalls = append(env.linkingCalls, linkingTo)
	var includes []string
	for _, name := range rsession.ParseLinkingTo(linkingTo) {
		includes = append(includes, "-I/R/library/"+name+"/include")
	}
	return includes, nil
}

func (env *fakeEnvironment) PrecompiledPlatformDir(ctx context.Context, pkg string, toolchainVersion string) (string, error) {
	env.mu.Lock()
	defer env.mu.Unlock()
	if env.platformErr != nil {
		return "", env.platformErr
	}
	return env.platformDir + "-" + toolchainVersion, nil
}

func (env *fakeEnvironment) setPlatformDir(platformDir string) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.platformDir = platformDir
}

// fakeSaver writes a small file instead of a real precompiled header.
type fakeSaver struct {
	mu    sync.Mutex
	saves int
	err   error
	args  []string
}

func (saver *fakeSaver) SaveTranslationUnit(ctx context.Context, srcFile string, args []string, outFile string) error {
	saver.mu.Lock()
	defer saver.mu.Unlock()
	saver.saves++
	saver.args = args
	if saver.err != nil {
		return saver.err
	}
	if !common.FileExists(srcFile) {
		return errors.New("no source " + srcFile)
	}
	return os.WriteFile(outFile, []byte("pch"), 0644)
}

func (saver *fakeSaver) count() int {
	saver.mu.Lock()
	defer saver.mu.Unlock()
	return saver.saves
}

// makeTestPackage lays out a package with DESCRIPTION and src/ in a temp dir.
func makeTestPackage(t *testing.T, description string) rsession.ProjectContext {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "DESCRIPTION"), []byte(description), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0755); err != nil {
		t.Fatal(err)
	}
	return rsession.DetectProjectContext(dir)
}

func writeTestFile(t *testing.T, fileName string, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(fileName), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fileName, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
}
