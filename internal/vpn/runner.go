package vpn

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner abstracts external command invocation so the session
// client can be tested without spawning processes. Implementations
// capture stdout and surface non-zero exits (with stderr attached) as
// errors.
type CommandRunner interface {
	// Run executes a command to completion and returns its stdout.
	Run(ctx context.Context, name string, args ...string) (string, error)
	// RunWithInput executes a command with the given stdin content.
	RunWithInput(ctx context.Context, input, name string, args ...string) (string, error)
	// StartDetached launches a command without waiting for it to exit.
	// Used for session-start, which blocks until its own authentication
	// flow finishes; progress is observed by polling instead.
	StartDetached(ctx context.Context, name string, args ...string) error
}

// ExecRunner implements CommandRunner using os/exec.
type ExecRunner struct{}

// NewExecRunner creates a new ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command and returns captured stdout. A non-zero exit
// is returned as an error carrying the trimmed stderr text, which is the
// only diagnostic the CLI provides.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	return r.run(ctx, "", name, args...)
}

// RunWithInput is Run with stdin supplied from input.
func (r *ExecRunner) RunWithInput(ctx context.Context, input, name string, args ...string) (string, error) {
	return r.run(ctx, input, name, args...)
}

func (r *ExecRunner) run(ctx context.Context, input, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	if err := cmd.Run(); err != nil {
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			reason = err.Error()
		}
		return stdout.String(), fmt.Errorf("%s: %s", name, reason)
	}

	return stdout.String(), nil
}

// StartDetached launches the command and reaps it in the background.
func (r *ExecRunner) StartDetached(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to execute %s: %w", name, err)
	}

	// Reap the child to avoid leaving a zombie when it eventually exits.
	go func() {
		_ = cmd.Wait()
	}()

	return nil
}
