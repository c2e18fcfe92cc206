package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func projectFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write("main.go", "package main")
	write("go.mod", "module example")
	write("src/store/cart.go", "package store")
	write("src/store/order.go", "package store")
	write(".git/HEAD", "ref: refs/heads/main")
	write(".ripcord/passport.json", "{}")
	return root
}

func TestSnapshotCopiesMatchesPreservingRelativePaths(t *testing.T) {
	root := projectFixture(t)
	m := NewManager(root, filepath.Join(root, ".ripcord", "backups"))

	b, err := m.Snapshot([]string{"*.go", "go.mod", "src"})
	require.NoError(t, err)

	for _, rel := range []string{"main.go", "go.mod", "src/store/cart.go", "src/store/order.go"} {
		_, statErr := os.Stat(filepath.Join(b.Dir, rel))
		assert.NoError(t, statErr, "expected %s in backup", rel)
	}
	assert.Equal(t, []string{"go.mod", "main.go", "src/store/cart.go", "src/store/order.go"}, b.Manifest.Files)
}

func TestSnapshotExcludesStateAndVCSDirs(t *testing.T) {
	root := projectFixture(t)
	m := NewManager(root, filepath.Join(root, ".ripcord", "backups"))

	b, err := m.Snapshot([]string{"*"})
	require.NoError(t, err)

	for _, rel := range b.Manifest.Files {
		assert.NotContains(t, rel, ".git")
		assert.NotContains(t, rel, ".ripcord")
	}
	_, err = os.Stat(filepath.Join(b.Dir, ".git"))
	assert.True(t, os.IsNotExist(err))
}

func TestSnapshotWritesManifest(t *testing.T) {
	root := projectFixture(t)
	m := NewManager(root, filepath.Join(root, ".ripcord", "backups"))

	b, err := m.Snapshot([]string{"*.go"})
	require.NoError(t, err)

	man, err := ReadManifest(b.Dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"*.go"}, man.Globs)
	assert.Equal(t, b.Manifest.Files, man.Files)
	_, err = time.Parse(time.RFC3339, man.CreatedAt)
	assert.NoError(t, err)
}

func TestSnapshotPreservesModTime(t *testing.T) {
	root := projectFixture(t)
	src := filepath.Join(root, "main.go")
	old := time.Date(2023, 4, 5, 6, 7, 8, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, old, old))

	m := NewManager(root, filepath.Join(root, ".ripcord", "backups"))
	b, err := m.Snapshot([]string{"main.go"})
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(b.Dir, "main.go"))
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old))
}

func TestSnapshotUniqueDirsPerCall(t *testing.T) {
	root := projectFixture(t)
	m := NewManager(root, filepath.Join(root, ".ripcord", "backups"))

	b1, err := m.Snapshot([]string{"*.go"})
	require.NoError(t, err)
	b2, err := m.Snapshot([]string{"*.go"})
	require.NoError(t, err)
	assert.NotEqual(t, b1.Dir, b2.Dir)
}

func TestSnapshotNoMatchesFails(t *testing.T) {
	root := projectFixture(t)
	m := NewManager(root, filepath.Join(root, ".ripcord", "backups"))

	_, err := m.Snapshot([]string{"*.rb"})
	assert.ErrorIs(t, err, ErrSnapshot)
}

func TestSnapshotCopyFailureRetainsPartialDir(t *testing.T) {
	root := projectFixture(t)
	// Unreadable source file forces a copy failure partway through.
	blocked := filepath.Join(root, "zz_locked.go")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o000))
	if os.Getuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}

	backups := filepath.Join(root, ".ripcord", "backups")
	m := NewManager(root, backups)
	_, err := m.Snapshot([]string{"*.go"})
	require.ErrorIs(t, err, ErrSnapshot)

	// The partial directory stays behind for forensics, without a manifest.
	entries, readErr := os.ReadDir(backups)
	require.NoError(t, readErr)
	require.Len(t, entries, 1)
	_, err = os.Stat(filepath.Join(backups, entries[0].Name(), "manifest.json"))
	assert.True(t, os.IsNotExist(err))
}
