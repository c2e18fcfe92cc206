package revert

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initGitRepo(t *testing.T) (string, func(args ...string) string) {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) string {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), "GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@test.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@test.com")
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v failed: %s", args, out)
		return strings.TrimSpace(string(out))
	}
	run("init")
	return dir, run
}

func TestRevertToEarlierCommit(t *testing.T) {
	dir, run := initGitRepo(t)
	file := filepath.Join(dir, "file.txt")

	require.NoError(t, os.WriteFile(file, []byte("v1"), 0o644))
	run("add", ".")
	run("commit", "-m", "v1")
	first := run("rev-parse", "HEAD")

	require.NoError(t, os.WriteFile(file, []byte("v2"), 0o644))
	run("add", ".")
	run("commit", "-m", "v2")

	b := NewGitBackend(dir, 30*time.Second)
	require.NoError(t, b.Revert(context.Background(), first))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
	assert.Equal(t, first, run("rev-parse", "HEAD"))
}

func TestRevertUnknownCommitFails(t *testing.T) {
	dir, run := initGitRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("v1"), 0o644))
	run("add", ".")
	run("commit", "-m", "v1")

	b := NewGitBackend(dir, 30*time.Second)
	err := b.Revert(context.Background(), "0123456789abcdef0123456789abcdef01234567")
	assert.ErrorIs(t, err, ErrRevert)
}

func TestRevertOutsideRepoFails(t *testing.T) {
	b := NewGitBackend(t.TempDir(), 30*time.Second)
	err := b.Revert(context.Background(), "abc123")
	assert.ErrorIs(t, err, ErrRevert)
}

func TestRevertHonorsCancelledContext(t *testing.T) {
	dir, run := initGitRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("v1"), 0o644))
	run("add", ".")
	run("commit", "-m", "v1")
	head := run("rev-parse", "HEAD")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewGitBackend(dir, 30*time.Second)
	err := b.Revert(ctx, head)
	assert.ErrorIs(t, err, ErrRevert)
}
