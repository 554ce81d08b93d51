// Package exec provides an interface for command execution.
package exec

import (
	"context"
)

// CommandRunner defines the interface for running external commands.
// This abstraction allows mocking command execution in tests.
type CommandRunner interface {
	// Run executes a command and returns its stdout.
	// The working directory is set to workDir if non-empty.
	// On failure the returned error carries stderr.
	Run(ctx context.Context, workDir string, name string, args ...string) (output []byte, err error)

	// RunEnv is Run with extra KEY=VALUE pairs appended to the environment.
	RunEnv(ctx context.Context, workDir string, env []string, name string, args ...string) (output []byte, err error)
}
