package tools

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"
)

var ErrEmptyCommand = errors.New("tools: empty command")

// ProcessSpec describes one foreground process.
type ProcessSpec struct {
	Name   string
	Path   string
	Args   []string
	Env    []string
	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// ProcessExecutor runs a process to completion.
type ProcessExecutor interface {
	Exec(ctx context.Context, spec ProcessSpec) error
}

// OSExecutor runs processes on the local host. Unset streams inherit the
// current process stdio. On cancellation the child gets SIGINT and, after
// GracePeriod, is killed.
type OSExecutor struct {
	GracePeriod time.Duration
}

func (e OSExecutor) Exec(ctx context.Context, spec ProcessSpec) error {
	if spec.Path == "" {
		return ErrEmptyCommand
	}
	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = spec.Env
	}
	cmd.Stdin = spec.Stdin
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	cmd.Stdout = spec.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = spec.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGINT)
	}
	grace := e.GracePeriod
	if grace <= 0 {
		grace = 5 * time.Second
	}
	cmd.WaitDelay = grace
	return cmd.Run()
}
