package compdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"
	"rcompdb/internal/common"
	"rcompdb/internal/rsession"
)

type InvokeMode int

const (
	// InvokePackageBuild is `R CMD SHLIB --dry-run` on a placeholder source inside a package's src/ dir.
	InvokePackageBuild InvokeMode = iota
	// InvokeSourceCpp is `Rcpp::sourceCpp()` on a standalone file, forced into a dry run.
	InvokeSourceCpp
)

func (mode InvokeMode) String() string {
	switch mode {
	case InvokePackageBuild:
		return "R CMD SHLIB"
	case InvokeSourceCpp:
		return "sourceCpp"
	}
	return fmt.Sprintf("InvokeMode(%d)", int(mode))
}

type Invocation struct {
	Mode       InvokeMode
	SourceFile string   // absolute
	Env        []string // os.Environ format
}

type ProcessResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Err is nil for a successful run, otherwise it wraps ErrProcessExit with the process stderr.
func (result *ProcessResult) Err() error {
	if result.ExitCode == 0 {
		return nil
	}
	return fmt.Errorf("%w: exit code %d: %s", ErrProcessExit, result.ExitCode, strings.TrimSpace(result.Stderr))
}

// BuildTool runs the host build system in dry-run mode to reveal compiler command lines.
// A non-nil error means the process couldn't be launched; a non-zero exit is reported via ProcessResult.
type BuildTool interface {
	Invoke(ctx context.Context, invocation Invocation) (*ProcessResult, error)
}

// RBuildTool is a BuildTool backed by a local R installation.
type RBuildTool struct {
	Session *rsession.Session
}

const placeholderSource = "void foo() {}\n"

// rcppDryRunVersion is the first Rcpp whose sourceCpp() accepts dryRun = TRUE.
const rcppDryRunVersion = "0.11.3"

func (tool *RBuildTool) Invoke(ctx context.Context, invocation Invocation) (*ProcessResult, error) {
	switch invocation.Mode {
	case InvokePackageBuild:
		return tool.invokeRCmdSHLIB(ctx, invocation)
	case InvokeSourceCpp:
		return tool.invokeSourceCpp(ctx, invocation)
	}
	return nil, fmt.Errorf("%w: unknown invoke mode %v", ErrProcessLaunch, invocation.Mode)
}

func (tool *RBuildTool) invokeRCmdSHLIB(ctx context.Context, invocation Invocation) (*ProcessResult, error) {
	if err := os.WriteFile(invocation.SourceFile, []byte(placeholderSource), 0644); err != nil {
		return nil, fmt.Errorf("%w: can't write placeholder: %v", ErrProcessLaunch, err)
	}
	defer func() {
		if err := os.Remove(invocation.SourceFile); err != nil {
			logCompdb.Error("can't remove placeholder", invocation.SourceFile, err)
		}
	}()

	launch := &common.ProcessLaunch{
		Cwd:  filepath.Dir(invocation.SourceFile),
		Name: tool.Session.RPath(),
		Args: []string{"CMD", "SHLIB", "--dry-run", filepath.Base(invocation.SourceFile)},
		Env:  invocation.Env,
	}
	return runLaunch(ctx, launch)
}

func (tool *RBuildTool) invokeSourceCpp(ctx context.Context, invocation Invocation) (*ProcessResult, error) {
	env := invocation.Env
	if env == nil {
		env = os.Environ()
	}

	launch := &common.ProcessLaunch{
		Name: tool.Session.RscriptPath(),
		Args: []string{"--slave"},
	}

	// in packrat mode, the project profile sets up the library; otherwise R_LIBS is propagated
	project := tool.Session.Project
	if project.PackratMode {
		launch.Cwd = project.Directory
		launch.Args = append(launch.Args, "--no-save", "--no-restore")
	} else {
		launch.Args = append(launch.Args, "--vanilla")
		if libPaths := tool.Session.LibPathsString(); libPaths != "" {
			env = common.SetEnv(env, "R_LIBS", libPaths)
		}
	}

	extraParams := ""
	if tool.Session.IsPackageVersionInstalled(ctx, "Rcpp", rcppDryRunVersion) {
		extraParams = ", dryRun = TRUE"
	} else {
		env = common.SetEnv(env, "MAKE", shellquote.Join("make", "--dry-run"))
	}

	expr := fmt.Sprintf("Rcpp::sourceCpp('%s', showOutput = TRUE%s)", escapeRString(invocation.SourceFile), extraParams)
	launch.Args = append(launch.Args, "-e", expr)
	launch.Env = env
	return runLaunch(ctx, launch)
}

func runLaunch(ctx context.Context, launch *common.ProcessLaunch) (*ProcessResult, error) {
	logCompdb.Info(1, "invoke", launch.String())
	exitCode, stdout, stderr, err := launch.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProcessLaunch, launch.Name, err)
	}
	return &ProcessResult{
		ExitCode: exitCode,
		Stdout:   string(stdout),
		Stderr:   string(stderr),
	}, nil
}

// escapeRString makes s safe inside a single-quoted R string literal.
func escapeRString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
