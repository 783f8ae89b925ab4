package engine

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/ashureev/shsh-voice/internal/domain"
)

// waitDelay bounds how long a killed command's children may hold its
// output pipes open.
const waitDelay = time.Second

// HostRunner runs a command line through a command interpreter.
type HostRunner interface {
	// Run executes line with dir as working directory and returns the
	// combined standard output and error text. A failed command is reported
	// as *domain.HostExecutionError.
	Run(ctx context.Context, dir, line string) (string, error)
}

// ShellRunner runs commands through the local shell: "sh -c" on Unix-like
// systems and "cmd /C" on Windows.
type ShellRunner struct {
	Shell       string
	Flag        string
	OutputLimit int
}

// NewShellRunner returns a runner for the host platform.
func NewShellRunner(outputLimit int) *ShellRunner {
	if runtime.GOOS == "windows" {
		return &ShellRunner{Shell: "cmd", Flag: "/C", OutputLimit: outputLimit}
	}
	return &ShellRunner{Shell: "/bin/sh", Flag: "-c", OutputLimit: outputLimit}
}

// Run implements HostRunner.
func (r *ShellRunner) Run(ctx context.Context, dir, line string) (string, error) {
	out := NewOutputBuffer(r.OutputLimit)

	cmd := exec.CommandContext(ctx, r.Shell, r.Flag, line)
	cmd.Dir = dir
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	output := out.String()
	if err == nil {
		return output, nil
	}

	hostErr := &domain.HostExecutionError{Command: line, Output: strings.TrimSpace(output), Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		hostErr.ExitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		hostErr.Err = ctxErr
		hostErr.ExitCode = 0
	}
	return output, hostErr
}
