package tools

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"syscall"
)

// CommandRunner abstracts captured command execution for install steps.
type CommandRunner interface {
	Run(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, []byte, int32, error)
}

// ExecRunner executes commands on the local host.
type ExecRunner struct{}

// Run executes name with args and captures stdout and stderr.
func (r ExecRunner) Run(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, []byte, int32, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = env
	}
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), ExitCode(err), err
}

// ExitStatuser is implemented by errors that carry their own exit status.
type ExitStatuser interface {
	ExitStatus() int32
}

// ExitCode maps a process error to a shell-style exit status.
// A nil error is 0, a missing binary is 127, a signalled child is 128+signal.
func ExitCode(err error) int32 {
	if err == nil {
		return 0
	}
	var coded ExitStatuser
	if errors.As(err, &coded) {
		return coded.ExitStatus()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int32(ws.Signal())
		}
		if code := exitErr.ExitCode(); code >= 0 {
			return int32(code)
		}
		return 1
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return 127
	}
	return 1
}
