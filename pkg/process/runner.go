package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/uepipe/uepipe/pkg/logger"
)

// Command describes one external tool invocation
type Command struct {
	// Tool is a short display name used in logs and errors ("AutomationTool")
	Tool string
	Path string
	Args []string
	// Dir is the working directory; empty means the current directory
	Dir string
	// Env entries are appended to the current environment
	Env map[string]string
	// Output, when set, receives stdout and stderr instead of the terminal
	Output io.Writer
}

// String renders the command line the way it is logged
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// ExitError reports a tool that ran but exited with a nonzero code
type ExitError struct {
	Tool string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Tool, e.Code)
}

//go:generate mockgen -destination=../mocks/mock_runner.go -package=mocks github.com/uepipe/uepipe/pkg/process Runner

// Runner executes external commands and reports their exit code. err is
// non-nil only when the process could not be run at all.
type Runner interface {
	Run(ctx context.Context, cmd Command) (exitCode int, err error)
}

// Check converts a Runner result into a single error: start failures are
// wrapped, nonzero exit codes become *ExitError.
func Check(cmd Command, code int, err error) error {
	if err != nil {
		return fmt.Errorf("failed to run %s: %w", cmd.Tool, err)
	}
	if code != 0 {
		return &ExitError{Tool: cmd.Tool, Code: code}
	}
	return nil
}

// RunChecked is Run followed by Check
func RunChecked(ctx context.Context, r Runner, cmd Command) error {
	code, err := r.Run(ctx, cmd)
	return Check(cmd, code, err)
}

// ExecRunner runs commands with os/exec, passing stdout/stderr through to
// the terminal and copying them to an optional log file
type ExecRunner struct {
	Stdout  io.Writer
	Stderr  io.Writer
	LogFile io.Writer
	Logger  logger.Logger
}

// NewExecRunner creates a runner attached to the process stdio
func NewExecRunner(log logger.Logger) *ExecRunner {
	return &ExecRunner{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: log,
	}
}

// Run implements Runner
func (r *ExecRunner) Run(ctx context.Context, c Command) (int, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir

	if len(c.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range c.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	stdout, stderr := r.Stdout, r.Stderr
	if c.Output != nil {
		stdout, stderr = c.Output, c.Output
	}
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	if r.LogFile != nil {
		stdout = io.MultiWriter(stdout, r.LogFile)
		stderr = io.MultiWriter(stderr, r.LogFile)
		fmt.Fprintf(r.LogFile, "\n=== %s started at %s ===\n%s\n",
			c.Tool, time.Now().Format("2006-01-02 15:04:05"), c.String())
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if r.Logger != nil {
		r.Logger.Debug("Executing", logger.WithField("command", c.String()))
	}

	startTime := time.Now()
	err := cmd.Run()
	duration := time.Since(startTime).Round(time.Millisecond)

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		r.logResult(c, 0, duration)
		return 0, nil
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		r.logResult(c, exitErr.ExitCode(), duration)
		return exitErr.ExitCode(), nil
	case ctx.Err() != nil:
		return -1, ctx.Err()
	default:
		return -1, err
	}
}

func (r *ExecRunner) logResult(c Command, code int, duration time.Duration) {
	if r.LogFile != nil {
		fmt.Fprintf(r.LogFile, "=== %s finished with code %d after %s ===\n", c.Tool, code, duration)
	}
	if r.Logger != nil {
		r.Logger.Debug("Process finished",
			logger.WithField("tool", c.Tool),
			logger.WithField("code", code),
			logger.WithField("duration", duration))
	}
}
