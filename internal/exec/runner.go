package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ExitError is returned when a command ran but exited non-zero.
type ExitError struct {
	Name     string
	Args     []string
	Code     int
	Stderr   string
	Underlay error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s %s: exit status %d: %s",
		e.Name, strings.Join(e.Args, " "), e.Code, strings.TrimSpace(e.Stderr))
}

func (e *ExitError) Unwrap() error {
	return e.Underlay
}

// ExecRunner implements CommandRunner using os/exec.
type ExecRunner struct{}

// NewRunner creates a new ExecRunner.
func NewRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes a command and returns stdout.
func (r *ExecRunner) Run(ctx context.Context, workDir string, name string, args ...string) ([]byte, error) {
	return r.RunEnv(ctx, workDir, nil, name, args...)
}

// RunEnv executes a command with additional environment variables.
func (r *ExecRunner) RunEnv(ctx context.Context, workDir string, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if workDir != "" {
		cmd.Dir = workDir
	}
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.Bytes(), &ExitError{
				Name:     name,
				Args:     args,
				Code:     exitErr.ExitCode(),
				Stderr:   stderr.String(),
				Underlay: err,
			}
		}
		return stdout.Bytes(), fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return stdout.Bytes(), nil
}

// Verify ExecRunner implements CommandRunner at compile time.
var _ CommandRunner = (*ExecRunner)(nil)
