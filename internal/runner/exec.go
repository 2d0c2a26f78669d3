package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// CommandSpec specifies how to run a stage command.
type CommandSpec struct {
	// Command is the shell command to execute.
	Command string

	// Dir is the working directory.
	Dir string

	// Environment contains additional environment variables, layered
	// over the ambient environment.
	Environment map[string]string

	// Timeout is the maximum time to wait. 0 means no deadline.
	Timeout time.Duration
}

// CommandResult is the outcome of a command execution.
type CommandResult struct {
	ExitCode int
	Output   string // combined stdout and stderr
	Duration time.Duration
}

// CommandRunner executes stage commands. Implementations must report
// the command's exit code rather than failing on nonzero exits.
type CommandRunner interface {
	Run(ctx context.Context, spec CommandSpec) (*CommandResult, error)
}

// ShellRunner implements CommandRunner by executing a shell command.
type ShellRunner struct {
	// Shell is the shell to use for executing commands.
	// Defaults to "/bin/sh".
	Shell string

	// ShellArg is the argument to pass to the shell before the command.
	// Defaults to "-c".
	ShellArg string
}

// NewShellRunner creates a new ShellRunner.
func NewShellRunner() *ShellRunner {
	return &ShellRunner{
		Shell:    "/bin/sh",
		ShellArg: "-c",
	}
}

// Run executes the command and captures its combined output. A nonzero
// exit is not an error; it is reported in the result. The command runs
// in its own process group so cancellation kills the whole tree.
func (r *ShellRunner) Run(ctx context.Context, spec CommandSpec) (*CommandResult, error) {
	if spec.Command == "" {
		return nil, fmt.Errorf("empty command")
	}

	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}
	shellArg := r.ShellArg
	if shellArg == "" {
		shellArg = "-c"
	}

	cmd := exec.CommandContext(ctx, shell, shellArg, spec.Command)
	cmd.Dir = spec.Dir
	cmd.Env = os.Environ()
	for k, v := range spec.Environment {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var waitErr error
	select {
	case <-ctx.Done():
		// Kill the process group (negative PID), then wait for exit.
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-done
		return nil, fmt.Errorf("command cancelled: %w", ctx.Err())
	case waitErr = <-done:
	}

	exitCode := 0
	if waitErr != nil {
		exitErr, ok := waitErr.(*exec.ExitError)
		if !ok {
			return nil, fmt.Errorf("failed to execute command: %w", waitErr)
		}
		exitCode = exitErr.ExitCode()
	}

	return &CommandResult{
		ExitCode: exitCode,
		Output:   output.String(),
		Duration: time.Since(start),
	}, nil
}
