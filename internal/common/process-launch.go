package common

import (
	"bytes"
	"context"
	"errors"
	"os/exec"

	"github.com/kballard/go-shellquote"
)

// ProcessLaunch describes a child process whose output is captured entirely.
// All R and clang invocations go through it, so that one place logs and captures them.
type ProcessLaunch struct {
	Cwd  string
	Name string
	Args []string
	Env  []string // nil means inherit the current environment
}

// Run executes the process and waits for it.
// err is non-nil only if the process could not be started (or was killed by ctx);
// a non-zero exit code is not an error here, callers decide on it.
func (launch *ProcessLaunch) Run(ctx context.Context) (exitCode int, stdout []byte, stderr []byte, err error) {
	var outBuf, errBuf bytes.Buffer
	cmd := exec.CommandContext(ctx, launch.Name, launch.Args...)
	cmd.Dir = launch.Cwd
	cmd.Env = launch.Env
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	stdout = outBuf.Bytes()
	stderr = errBuf.Bytes()

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		exitCode = 0
	case errors.As(runErr, &exitErr) && ctx.Err() == nil:
		exitCode = exitErr.ExitCode()
	default:
		exitCode = -1
		err = runErr
	}
	return
}

// String is a shell-pasteable rendering of the command, for logs.
func (launch *ProcessLaunch) String() string {
	return shellquote.Join(append([]string{launch.Name}, launch.Args...)...)
}
