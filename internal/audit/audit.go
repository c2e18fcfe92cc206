// Package audit keeps a tamper-evident trail of every rollback attempt,
// successful or not. Records are appended to date-named JSONL files and
// chained by SHA-256: each record carries the hash of its predecessor, so
// any edit or deletion breaks the chain and is detectable by Verify.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// dateFileRe matches trail files named YYYY-MM-DD.jsonl
var dateFileRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\.jsonl$`)

func trailFiles(dir string) ([]string, error) {
	all, err := filepath.Glob(filepath.Join(dir, "*.jsonl"))
	if err != nil {
		return nil, err
	}
	var filtered []string
	for _, f := range all {
		if dateFileRe.MatchString(filepath.Base(f)) {
			filtered = append(filtered, f)
		}
	}
	return filtered, nil
}

// Entry describes one rollback attempt as seen by the orchestrator.
type Entry struct {
	Target         string
	Stage          string // pipeline state reached when the run ended
	Outcome        string // success / aborted / dry-run
	Duration       time.Duration
	BackupLocation string
	Error          string
}

// Record is the persisted form of an Entry.
type Record struct {
	Timestamp      string `json:"timestamp"`
	AttemptID      string `json:"attempt_id"`
	Target         string `json:"target"`
	Stage          string `json:"stage"`
	Outcome        string `json:"outcome"`
	DurationMs     int64  `json:"duration_ms"`
	BackupLocation string `json:"backup_location,omitempty"`
	Error          string `json:"error,omitempty"`
	PrevHash       string `json:"prev_hash,omitempty"`
	Hash           string `json:"hash,omitempty"`
}

type Trail struct {
	dir      string
	lastHash string
}

func NewTrail(dir string) (*Trail, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	t := &Trail{dir: dir}
	t.initLastHash()
	return t, nil
}

func (t *Trail) initLastHash() {
	files, err := trailFiles(t.dir)
	if err != nil || len(files) == 0 {
		return
	}
	sort.Strings(files)
	data, err := os.ReadFile(files[len(files)-1])
	if err != nil {
		return
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return
	}
	lines := strings.Split(content, "\n")
	var r Record
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &r); err != nil {
		return
	}
	t.lastHash = r.Hash
}

func computeHash(r Record) string {
	saved := r.Hash
	r.Hash = ""
	data, _ := json.Marshal(r)
	r.Hash = saved
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Append writes one attempt record, linked to the previous one.
func (t *Trail) Append(entry Entry) error {
	record := Record{
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		AttemptID:      uuid.New().String(),
		Target:         entry.Target,
		Stage:          entry.Stage,
		Outcome:        entry.Outcome,
		DurationMs:     entry.Duration.Milliseconds(),
		BackupLocation: entry.BackupLocation,
		Error:          entry.Error,
		PrevHash:       t.lastHash,
	}
	record.Hash = computeHash(record)

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	path := filepath.Join(t.dir, time.Now().Format("2006-01-02")+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err = f.Write(data); err != nil {
		return err
	}
	t.lastHash = record.Hash
	return nil
}

// Recent returns up to n records, newest first.
func (t *Trail) Recent(n int) ([]Record, error) {
	files, err := trailFiles(t.dir)
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	var records []Record
	for _, f := range files {
		if len(records) >= n {
			break
		}
		data, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		for i := len(lines) - 1; i >= 0; i-- {
			if len(records) >= n {
				break
			}
			var r Record
			if err := json.Unmarshal([]byte(lines[i]), &r); err != nil {
				continue
			}
			records = append(records, r)
		}
	}
	return records, nil
}

// Verify walks the full chain in date order. It returns (true, -1) for an
// intact chain, or (false, index) naming the first record whose hash or
// linkage does not hold.
func (t *Trail) Verify() (bool, int, error) {
	files, err := trailFiles(t.dir)
	if err != nil {
		return false, -1, err
	}
	sort.Strings(files)

	var expectedPrev string
	index := 0

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return false, -1, err
		}
		content := strings.TrimSpace(string(data))
		if content == "" {
			continue
		}
		for _, line := range strings.Split(content, "\n") {
			var r Record
			if err := json.Unmarshal([]byte(line), &r); err != nil {
				return false, -1, fmt.Errorf("audit: parse record %d: %w", index, err)
			}
			if computeHash(r) != r.Hash {
				return false, index, nil
			}
			if r.PrevHash != expectedPrev {
				return false, index, nil
			}
			expectedPrev = r.Hash
			index++
		}
	}
	return true, -1, nil
}

func (t *Trail) Dir() string {
	return t.dir
}
