// Package verify runs the project's test command after a revert to confirm
// the reverted state is healthy. A verification failure never triggers an
// automatic re-revert: the working tree is left reverted-but-unverified and
// manual recovery is up to the caller.
package verify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrVerification marks a failed post-revert test run.
var ErrVerification = errors.New("verification failed")

// Backend runs the health check and returns its captured output.
type Backend interface {
	Verify(ctx context.Context) (string, error)
}

// CommandBackend runs a shell command in the work directory, bounded by a
// timeout, and treats any non-zero exit as a verification failure.
type CommandBackend struct {
	workDir string
	command string
	timeout time.Duration
}

func NewCommandBackend(workDir, command string, timeout time.Duration) *CommandBackend {
	return &CommandBackend{workDir: workDir, command: command, timeout: timeout}
}

func (c *CommandBackend) Verify(ctx context.Context) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", c.command)
	cmd.Dir = c.workDir

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	output := buf.String()
	if err != nil {
		if ctx.Err() != nil {
			return output, fmt.Errorf("%w: %q timed out after %s", ErrVerification, c.command, c.timeout)
		}
		return output, fmt.Errorf("%w: %q: %v", ErrVerification, c.command, err)
	}
	return output, nil
}
