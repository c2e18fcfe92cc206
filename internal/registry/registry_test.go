package registry

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lyndonlyu/ripcord/internal/passport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPoints() []passport.Point {
	return []passport.Point{
		{CommitHash: "ccc333", Description: "checkout flow rewrite", Timestamp: "2026-08-03T10:00:00Z"},
		{CommitHash: "bbb222", Description: "inventory sync fix", Timestamp: "2026-08-02T10:00:00Z"},
		{CommitHash: "abc123", Description: "initial_state", Timestamp: "2026-08-01T10:00:00Z"},
	}
}

func newRegistry(points []passport.Point) *Registry {
	return New(passport.NewMemStore(&passport.Passport{RollbackPoints: points}))
}

func TestResolveLatestReturnsFirst(t *testing.T) {
	r := newRegistry(testPoints())
	pt, err := r.Resolve(Latest)
	require.NoError(t, err)
	assert.Equal(t, "ccc333", pt.CommitHash)
}

func TestResolveExactHash(t *testing.T) {
	r := newRegistry(testPoints())
	pt, err := r.Resolve("abc123")
	require.NoError(t, err)
	assert.Equal(t, "initial_state", pt.Description)
}

func TestResolveDescriptionSubstring(t *testing.T) {
	r := newRegistry(testPoints())
	pt, err := r.Resolve("inventory")
	require.NoError(t, err)
	assert.Equal(t, "bbb222", pt.CommitHash)
}

func TestResolveDescriptionIsCaseSensitive(t *testing.T) {
	r := newRegistry(testPoints())
	_, err := r.Resolve("INVENTORY")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveHashWinsOverDescription(t *testing.T) {
	// A query matching one point's hash and an earlier point's description
	// must resolve to the exact hash match.
	points := []passport.Point{
		{CommitHash: "ddd444", Description: "revert abc123 hotfix"},
		{CommitHash: "abc123", Description: "initial_state"},
	}
	r := newRegistry(points)
	pt, err := r.Resolve("abc123")
	require.NoError(t, err)
	assert.Equal(t, "initial_state", pt.Description)
}

func TestResolveFirstMatchWins(t *testing.T) {
	points := []passport.Point{
		{CommitHash: "ddd444", Description: "fix payments"},
		{CommitHash: "eee555", Description: "fix payments again"},
	}
	r := newRegistry(points)
	pt, err := r.Resolve("payments")
	require.NoError(t, err)
	assert.Equal(t, "ddd444", pt.CommitHash)
}

func TestResolveNotFound(t *testing.T) {
	r := newRegistry(testPoints())
	_, err := r.Resolve("zzz999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadEmptyRegistry(t *testing.T) {
	r := newRegistry(nil)
	_, err := r.Load()
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = r.Resolve(Latest)
	assert.ErrorIs(t, err, ErrEmpty)
}

func initGitRepo(t *testing.T) (string, string) {
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
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("original"), 0o644))
	run("add", ".")
	run("commit", "-m", "initial state")
	return dir, run("rev-parse", "HEAD")
}

func TestValidateExistingCommit(t *testing.T) {
	dir, head := initGitRepo(t)
	err := Validate(dir, passport.Point{CommitHash: head})
	assert.NoError(t, err)
}

func TestValidateUnknownCommit(t *testing.T) {
	dir, _ := initGitRepo(t)
	err := Validate(dir, passport.Point{CommitHash: "0123456789abcdef0123456789abcdef01234567"})
	assert.Error(t, err)
}

func TestCapturePrependsHead(t *testing.T) {
	dir, head := initGitRepo(t)
	store := passport.NewMemStore(&passport.Passport{RollbackPoints: testPoints()})
	r := New(store)

	pt, err := r.Capture(dir, "before refactor")
	require.NoError(t, err)
	assert.Equal(t, head, pt.CommitHash)
	assert.Equal(t, "before refactor", pt.Description)
	assert.NotEmpty(t, pt.Timestamp)

	latest, err := r.Resolve(Latest)
	require.NoError(t, err)
	assert.Equal(t, head, latest.CommitHash)
}

func TestCaptureDefaultsToCommitSubject(t *testing.T) {
	dir, _ := initGitRepo(t)
	store := passport.NewMemStore(&passport.Passport{})
	r := New(store)

	pt, err := r.Capture(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "initial state", pt.Description)
}
