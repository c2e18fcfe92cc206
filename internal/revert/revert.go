// Package revert performs the destructive revert to a resolved rollback
// point. The real backend shells out to git; the operation is all-or-nothing
// at the granularity git provides, with no partial or incremental fallback.
package revert

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrRevert marks a failed revert. The pipeline aborts without touching the
// ledger when it sees this.
var ErrRevert = errors.New("revert failed")

// Backend reverts the working tree to a commit.
type Backend interface {
	Revert(ctx context.Context, commitHash string) error
}

// GitBackend reverts by running `git reset --hard <commit>` in the work
// directory. The call is bounded by the given timeout; on expiry the git
// process is killed and the revert reported as failed.
type GitBackend struct {
	workDir string
	timeout time.Duration
}

func NewGitBackend(workDir string, timeout time.Duration) *GitBackend {
	return &GitBackend{workDir: workDir, timeout: timeout}
}

func (g *GitBackend) Revert(ctx context.Context, commitHash string) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "git", "reset", "--hard", commitHash)
	cmd.Dir = g.workDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: git reset timed out after %s", ErrRevert, g.timeout)
		}
		return fmt.Errorf("%w: git reset --hard %s: %v: %s", ErrRevert, commitHash, err, strings.TrimSpace(string(out)))
	}
	return nil
}
