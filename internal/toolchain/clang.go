package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"

	"rcompdb/internal/common"
)

// Clang is the semantic-analysis toolchain: it provides base flags for every translation unit
// and serializes precompiled headers.
// It's driven as an external process, the same binary an indexer would link libclang from.
type Clang struct {
	Path      string
	ExtraArgs []string
	RtoolsDir string

	mu              sync.Mutex
	defaultIncludes map[string][]string // "c" / "c++" -> args; cached once probed successfully
	version         string
}

func MakeClang(path string, extraArgs []string, rtoolsDir string) *Clang {
	if path == "" {
		path = "clang"
	}
	return &Clang{
		Path:            path,
		ExtraArgs:       extraArgs,
		RtoolsDir:       rtoolsDir,
		defaultIncludes: make(map[string][]string, 2),
	}
}

// CompileArgs returns flags every translation unit starts with: configured extra args and default include dirs.
// If default include dirs can't be probed, that's logged and only extra args are returned.
func (c *Clang) CompileArgs(ctx context.Context, isCpp bool) []string {
	lang := "c"
	if isCpp {
		lang = "c++"
	}

	args := make([]string, 0, len(c.ExtraArgs)+16)
	args = append(args, c.ExtraArgs...)

	includes, err := c.defaultIncludeArgs(ctx, lang)
	if err != nil {
		logToolchain.Error("can't detect default include dirs of", c.Path, err)
	}
	return append(args, includes...)
}

func (c *Clang) defaultIncludeArgs(ctx context.Context, lang string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.defaultIncludes[lang]; ok {
		return cached, nil
	}

	launch := &common.ProcessLaunch{
		Name: c.Path,
		Args: []string{"-Wp,-v", "-x", lang, os.DevNull, "-fsyntax-only"},
	}
	exitCode, _, stderr, err := launch.Run(ctx)
	if err != nil {
		return nil, err
	}
	if exitCode != 0 {
		return nil, fmt.Errorf("%s exited with code %d: %s", c.Path, exitCode, strings.TrimSpace(string(stderr)))
	}

	dirs := parseDefaultIncludeDirsFromWpStderr(string(stderr))
	logToolchain.Info(1, "default", lang, "include dirs of", c.Path, dirs.AsCompilerArgs())
	c.defaultIncludes[lang] = dirs.AsCompilerArgs()
	return c.defaultIncludes[lang], nil
}

// PlatformArgs are include dirs of the Rtools compiler on Windows; empty on other platforms.
func (c *Clang) PlatformArgs() []string {
	if runtime.GOOS != "windows" || c.RtoolsDir == "" {
		return nil
	}
	toolchainRoot := filepath.Join(c.RtoolsDir, "x86_64-w64-mingw32.static.posix")
	return []string{
		"-I" + filepath.Join(toolchainRoot, "include"),
		"-I" + filepath.Join(toolchainRoot, "include", "c++"),
	}
}

var reClangVersion = regexp.MustCompile(`clang version (\S+)`)

func parseClangVersion(versionOutput string) (string, error) {
	m := reClangVersion.FindStringSubmatch(versionOutput)
	if m == nil {
		return "", fmt.Errorf("can't find clang version in %q", strings.TrimSpace(versionOutput))
	}
	return m[1], nil
}

// Version returns a version string like "17.0.6"; it's cached once detected.
func (c *Clang) Version(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version != "" {
		return c.version, nil
	}

	launch := &common.ProcessLaunch{Name: c.Path, Args: []string{"--version"}}
	exitCode, stdout, stderr, err := launch.Run(ctx)
	if err != nil {
		return "", err
	}
	if exitCode != 0 {
		return "", fmt.Errorf("%s --version exited with code %d: %s", c.Path, exitCode, strings.TrimSpace(string(stderr)))
	}
	version, err := parseClangVersion(string(stdout))
	if err != nil {
		return "", err
	}
	c.version = version
	return version, nil
}

// SaveTranslationUnit parses srcFile as a C++ header with args and serializes the result to outFile.
// outFile appears atomically: a reader either sees no file or a complete one.
func (c *Clang) SaveTranslationUnit(ctx context.Context, srcFile string, args []string, outFile string) error {
	outFileTmp := outFile + ".tmp"
	cmdLine := make([]string, 0, len(args)+6)
	cmdLine = append(cmdLine, "-x", "c++-header")
	cmdLine = append(cmdLine, args...)
	cmdLine = append(cmdLine, srcFile, "-o", outFileTmp)

	launch := &common.ProcessLaunch{
		Cwd:  filepath.Dir(srcFile),
		Name: c.Path,
		Args: cmdLine,
	}
	logToolchain.Info(1, "save translation unit", launch.String())

	exitCode, stdout, stderr, err := launch.Run(ctx)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		_ = os.Remove(outFileTmp)
		logToolchain.Error("clang exited with code", exitCode,
			"\ncmdLine:", launch.String(),
			"\nstdout:", strings.TrimSpace(string(stdout)),
			"\nstderr:", strings.TrimSpace(string(stderr)))
		return fmt.Errorf("could not save translation unit %s: clang exited with code %d", srcFile, exitCode)
	}
	return os.Rename(outFileTmp, outFile)
}
