// Package backup snapshots the working state before a destructive revert.
// Each snapshot is a uniquely named directory holding copies of every file
// matching the configured globs, relative paths preserved, plus a
// manifest.json describing what was copied.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lyndonlyu/ripcord/internal/config"
)

// ErrSnapshot marks any snapshot failure. A failed snapshot aborts the
// pipeline before the revert; the partial directory is retained on disk for
// forensic inspection, never auto-deleted.
var ErrSnapshot = errors.New("backup snapshot failed")

// Manifest records what a snapshot contains. Written into the backup
// directory as manifest.json once all copies have completed.
type Manifest struct {
	CreatedAt string   `json:"created_at"` // RFC3339
	Globs     []string `json:"globs"`
	Files     []string `json:"files"` // relative paths, sorted
}

// Backup is one completed snapshot.
type Backup struct {
	Dir      string
	Manifest Manifest
}

// Manager copies working-tree files into timestamped backup directories.
type Manager struct {
	root       string
	backupsDir string
}

func NewManager(root, backupsDir string) *Manager {
	return &Manager{root: root, backupsDir: backupsDir}
}

// Snapshot copies every file matching globs (relative to the project root)
// into a fresh backup directory and writes the manifest. The directory is
// fully populated before Snapshot returns, or an ErrSnapshot is returned.
func (m *Manager) Snapshot(globs []string) (*Backup, error) {
	files, err := m.collect(globs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshot, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files matched globs %v", ErrSnapshot, globs)
	}

	name := time.Now().UTC().Format("20060102T150405Z") + "-" + uuid.New().String()[:8]
	dir := filepath.Join(m.backupsDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshot, err)
	}

	for _, rel := range files {
		if err := copyFile(filepath.Join(m.root, rel), filepath.Join(dir, rel)); err != nil {
			return nil, fmt.Errorf("%w: copy %s: %v", ErrSnapshot, rel, err)
		}
	}

	man := Manifest{
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Globs:     globs,
		Files:     files,
	}
	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshot, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o644); err != nil {
		return nil, fmt.Errorf("%w: write manifest: %v", ErrSnapshot, err)
	}

	return &Backup{Dir: dir, Manifest: man}, nil
}

// collect expands globs into a sorted, deduplicated list of relative file
// paths. Directory matches are walked recursively. The VCS directory and
// the tool's own state directory are always excluded.
func (m *Manager) collect(globs []string) ([]string, error) {
	seen := make(map[string]bool)
	for _, g := range globs {
		matches, err := filepath.Glob(filepath.Join(m.root, g))
		if err != nil {
			return nil, fmt.Errorf("bad glob %q: %v", g, err)
		}
		for _, match := range matches {
			rel, err := filepath.Rel(m.root, match)
			if err != nil {
				return nil, err
			}
			if excluded(rel) {
				continue
			}
			info, err := os.Stat(match)
			if err != nil {
				return nil, err
			}
			if !info.IsDir() {
				seen[rel] = true
				continue
			}
			err = filepath.WalkDir(match, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				r, relErr := filepath.Rel(m.root, path)
				if relErr != nil {
					return relErr
				}
				if excluded(r) {
					if d.IsDir() {
						return filepath.SkipDir
					}
					return nil
				}
				if !d.IsDir() {
					seen[r] = true
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}

	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

func excluded(rel string) bool {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, p := range parts {
		if p == ".git" || p == config.StateDirName {
			return true
		}
	}
	return false
}

// copyFile copies src to dst preserving file mode and modification time.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// ReadManifest loads the manifest.json from a backup directory.
func ReadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return Manifest{}, fmt.Errorf("backup: read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("backup: parse manifest: %w", err)
	}
	return m, nil
}
