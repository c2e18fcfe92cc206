// Package filelock guards the rollback pipeline with an advisory flock held
// for the full run. The Passport file and backup directories are the only
// shared mutable resources; a second concurrent invocation must fail fast
// instead of corrupting them.
package filelock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// LockFileName is the lock file created inside the state directory.
const LockFileName = "pipeline.lock"

// ErrLocked is returned when another process holds the pipeline lock.
var ErrLocked = errors.New("another rollback is already in progress")

// Lock is an acquired pipeline lock.
type Lock struct {
	Path string
	file *os.File
}

// Meta is the on-disk sidecar written next to the lock file so other
// invocations can report who holds it and detect stale locks.
type Meta struct {
	PID        int    `json:"pid"`
	AcquiredAt string `json:"acquired_at"` // RFC3339
}

// Acquire takes the pipeline lock under stateDir without blocking. When the
// lock is already held it returns ErrLocked annotated with the holder's PID.
func Acquire(stateDir string) (*Lock, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("filelock: mkdir: %w", err)
	}
	lockPath := filepath.Join(stateDir, LockFileName)

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("filelock: open: %w", err)
	}

	fd := int(f.Fd())
	if err := syscall.Flock(fd, syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			holderPID := 0
			if meta, metaErr := ReadMeta(lockPath); metaErr == nil {
				holderPID = meta.PID
			}
			return nil, fmt.Errorf("%w (holder PID: %d)", ErrLocked, holderPID)
		}
		return nil, fmt.Errorf("filelock: flock: %w", err)
	}

	meta := Meta{
		PID:        os.Getpid(),
		AcquiredAt: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(meta)
	if err != nil {
		syscall.Flock(fd, syscall.LOCK_UN)
		f.Close()
		return nil, fmt.Errorf("filelock: marshal meta: %w", err)
	}
	if err := os.WriteFile(lockPath+".meta", data, 0o644); err != nil {
		syscall.Flock(fd, syscall.LOCK_UN)
		f.Close()
		return nil, fmt.Errorf("filelock: write meta: %w", err)
	}

	return &Lock{Path: lockPath, file: f}, nil
}

// Release drops the flock, closes the file, and removes the meta sidecar.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	fd := int(l.file.Fd())
	if err := syscall.Flock(fd, syscall.LOCK_UN); err != nil {
		return fmt.Errorf("filelock: unlock: %w", err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("filelock: close: %w", err)
	}
	l.file = nil
	_ = os.Remove(l.Path + ".meta")
	return nil
}

// IsStale reports whether the lock at lockPath belongs to a process that is
// no longer alive. Missing or unreadable meta counts as stale.
func IsStale(lockPath string) bool {
	meta, err := ReadMeta(lockPath)
	if err != nil {
		return true
	}
	proc, err := os.FindProcess(meta.PID)
	if err != nil {
		return true
	}
	// Signal 0 checks process existence without sending anything.
	return proc.Signal(syscall.Signal(0)) != nil
}

// ReadMeta reads the meta sidecar for lockPath.
func ReadMeta(lockPath string) (Meta, error) {
	data, err := os.ReadFile(lockPath + ".meta")
	if err != nil {
		return Meta{}, fmt.Errorf("filelock: read meta: %w", err)
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("filelock: unmarshal meta: %w", err)
	}
	return meta, nil
}
