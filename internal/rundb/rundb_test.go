package rundb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBeginAndGet(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Begin("run-1", "abc123"))

	r, err := db.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, "abc123", r.Target)
	assert.Equal(t, StatusRunning, r.Status)
	assert.NotEmpty(t, r.StartedAt)
	assert.Empty(t, r.EndedAt)
}

func TestFinishCompleted(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Begin("run-1", "abc123"))

	require.NoError(t, db.Finish("run-1", StatusCompleted, "LedgerUpdated", "manual rollback", "/tmp/backup"))

	r, err := db.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, r.Status)
	assert.Equal(t, "LedgerUpdated", r.Stage)
	assert.Equal(t, "/tmp/backup", r.BackupLocation)
	assert.NotEmpty(t, r.EndedAt)
}

func TestFinishAborted(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Begin("run-2", "def456"))

	require.NoError(t, db.Finish("run-2", StatusAborted, "Verifying", "tests failed", "/tmp/backup"))

	r, err := db.Get("run-2")
	require.NoError(t, err)
	assert.Equal(t, StatusAborted, r.Status)
	assert.Equal(t, "tests failed", r.Reason)
}

func TestFinishUnknownRun(t *testing.T) {
	db := openTestDB(t)
	err := db.Finish("missing", StatusCompleted, "", "", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetUnknownRun(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirstWithLimit(t *testing.T) {
	db := openTestDB(t)
	for _, id := range []string{"run-1", "run-2", "run-3"} {
		require.NoError(t, db.Begin(id, "latest"))
	}

	runs, err := db.List(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-3", runs[0].ID)

	all, err := db.List(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	db1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db1.Begin("run-1", "latest"))
	require.NoError(t, db1.Close())

	db2, err := Open(path)
	require.NoError(t, err)
	defer db2.Close()
	r, err := db2.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, "latest", r.Target)
}
