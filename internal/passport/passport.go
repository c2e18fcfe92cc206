// Package passport defines the persisted process state: the registry of
// known rollback points and the append-only history of rollback attempts
// that completed successfully. The state lives in a single JSON file and
// is read at pipeline start and written back atomically.
package passport

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Point is a named prior state the working tree can be reverted to.
// Points are immutable once created and ordered most-recent-first.
type Point struct {
	CommitHash  string `json:"commit_hash"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"` // RFC3339
}

// Record is one successfully verified rollback. Records are append-only:
// they are never edited or removed.
type Record struct {
	RollbackPoint  string `json:"rollback_point"`
	RollbackTime   string `json:"rollback_time"` // RFC3339
	BackupLocation string `json:"backup_location"`
	Reason         string `json:"reason"`
}

// Passport is the full persisted state.
type Passport struct {
	RollbackPoints  []Point  `json:"rollback_points"`
	RollbackHistory []Record `json:"rollback_history"`
	LastRollback    *string  `json:"last_rollback"`
}

// Store loads and saves Passport state. Implementations must make Save
// atomic: a crashed save never leaves a half-written Passport behind.
type Store interface {
	Load() (*Passport, error)
	Save(p *Passport) error
}

// FileStore persists the Passport as a JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore backed by the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the Passport file path.
func (s *FileStore) Path() string {
	return s.path
}

// Exists reports whether the Passport file is present on disk.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads and parses the Passport file.
func (s *FileStore) Load() (*Passport, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("passport: read %s: %w", s.path, err)
	}
	var p Passport
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("passport: parse %s: %w", s.path, err)
	}
	return &p, nil
}

// Save writes the Passport atomically: marshal to a temp file in the same
// directory, then rename over the target.
func (s *FileStore) Save(p *Passport) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("passport: marshal: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("passport: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".passport-*.json")
	if err != nil {
		return fmt.Errorf("passport: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("passport: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("passport: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("passport: rename: %w", err)
	}
	return nil
}

// MemStore is an in-memory Store for tests. Load returns a deep copy so
// callers cannot mutate the stored state without going through Save.
type MemStore struct {
	mu       sync.Mutex
	passport *Passport

	// FailSave, when set, makes Save return this error without mutating
	// the stored state.
	FailSave error
}

// NewMemStore returns a MemStore seeded with the given Passport.
func NewMemStore(p *Passport) *MemStore {
	return &MemStore{passport: clone(p)}
}

func (s *MemStore) Load() (*Passport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.passport == nil {
		return nil, fmt.Errorf("passport: not initialized")
	}
	return clone(s.passport), nil
}

func (s *MemStore) Save(p *Passport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave != nil {
		return s.FailSave
	}
	s.passport = clone(p)
	return nil
}

func clone(p *Passport) *Passport {
	if p == nil {
		return nil
	}
	c := &Passport{
		RollbackPoints:  append([]Point(nil), p.RollbackPoints...),
		RollbackHistory: append([]Record(nil), p.RollbackHistory...),
	}
	if p.LastRollback != nil {
		v := *p.LastRollback
		c.LastRollback = &v
	}
	return c
}
