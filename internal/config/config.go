// Package config loads per-project settings for the rollback pipeline from
// {root}/.ripcord/config.yaml. Missing files fall back to defaults; zero
// values left by a partial file are filled in after unmarshal.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StateDirName is the per-project directory holding the passport, backups,
// logs, run journal and lock files.
const StateDirName = ".ripcord"

// ErrNotProjectRoot is returned when the working directory is not inside a
// git working copy.
var ErrNotProjectRoot = errors.New("not inside a project working copy (no .git found)")

type Config struct {
	// BackupGlobs are the patterns snapshotted before a revert, evaluated
	// relative to the project root. A pattern matching a directory copies
	// the directory recursively.
	BackupGlobs []string `yaml:"backup_globs"`
	// TestCommand is the post-revert verification command, run via sh -c.
	TestCommand string `yaml:"test_command"`
	// RevertTimeout bounds the external revert call, in seconds.
	RevertTimeout int `yaml:"revert_timeout"`
	// TestTimeout bounds the verification run, in seconds.
	TestTimeout int `yaml:"test_timeout"`

	Root string `yaml:"-"`
}

func Default(root string) *Config {
	return &Config{
		BackupGlobs:   []string{"*"},
		TestCommand:   "go test ./...",
		RevertTimeout: 120,
		TestTimeout:   600,
		Root:          root,
	}
}

// Load reads {root}/.ripcord/config.yaml. A missing file yields defaults;
// an unparseable file is an error.
func Load(root string) (*Config, error) {
	cfg := Default(root)

	path := filepath.Join(root, StateDirName, "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	// Ensure defaults for zero values
	if len(cfg.BackupGlobs) == 0 {
		cfg.BackupGlobs = []string{"*"}
	}
	if cfg.TestCommand == "" {
		cfg.TestCommand = "go test ./..."
	}
	if cfg.RevertTimeout == 0 {
		cfg.RevertTimeout = 120
	}
	if cfg.TestTimeout == 0 {
		cfg.TestTimeout = 600
	}
	cfg.Root = root

	return cfg, nil
}

// FindRoot walks upward from dir looking for a .git entry and returns the
// containing directory. The pipeline refuses to run outside a working copy.
func FindRoot(dir string) (string, error) {
	cur, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("config: abs %s: %w", dir, err)
	}
	for {
		if _, err := os.Stat(filepath.Join(cur, ".git")); err == nil {
			return cur, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", ErrNotProjectRoot
		}
		cur = parent
	}
}

func (c *Config) StateDir() string {
	return filepath.Join(c.Root, StateDirName)
}

func (c *Config) PassportPath() string {
	return filepath.Join(c.StateDir(), "passport.json")
}

func (c *Config) BackupsDir() string {
	return filepath.Join(c.StateDir(), "backups")
}

func (c *Config) LogPath() string {
	return filepath.Join(c.StateDir(), "logs", "ripcord.log")
}

func (c *Config) AuditDir() string {
	return filepath.Join(c.StateDir(), "audit")
}

func (c *Config) RunDBPath() string {
	return filepath.Join(c.StateDir(), "runs.db")
}

func (c *Config) EnsureDirs() error {
	dirs := []string{
		c.BackupsDir(),
		filepath.Join(c.StateDir(), "logs"),
		c.AuditDir(),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}
