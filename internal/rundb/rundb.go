// Package rundb persists a queryable journal of pipeline invocations in
// SQLite. Unlike the Passport history, which only records verified
// successes, every attempt lands here: a run starts RUNNING and is finalized
// COMPLETED or ABORTED with the stage it reached.
package rundb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("rundb: not found")

// Run statuses.
const (
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusAborted   = "ABORTED"
)

type DB struct {
	db   *sql.DB
	path string
}

type Run struct {
	ID             string `json:"id"`
	Target         string `json:"target"`
	Status         string `json:"status"`
	Stage          string `json:"stage"`  // pipeline state reached
	Reason         string `json:"reason"` // abort reason or rollback reason
	BackupLocation string `json:"backup_location"`
	StartedAt      string `json:"started_at"` // RFC3339
	EndedAt        string `json:"ended_at"`   // RFC3339 or empty
}

// Open creates or opens the journal at path with WAL mode and a busy
// timeout, creating the runs table if needed.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("rundb: open: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("rundb: ping: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("rundb: %s: %w", p, err)
		}
	}

	ddl := `CREATE TABLE IF NOT EXISTS runs (
		id              TEXT PRIMARY KEY,
		target          TEXT NOT NULL,
		status          TEXT NOT NULL DEFAULT 'RUNNING',
		stage           TEXT NOT NULL DEFAULT '',
		reason          TEXT NOT NULL DEFAULT '',
		backup_location TEXT NOT NULL DEFAULT '',
		started_at      TEXT NOT NULL,
		ended_at        TEXT NOT NULL DEFAULT ''
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("rundb: create table: %w", err)
	}

	return &DB{db: db, path: path}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Path() string {
	return d.path
}

// Begin records a new RUNNING attempt.
func (d *DB) Begin(id, target string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := d.db.Exec(
		`INSERT INTO runs (id, target, status, started_at) VALUES (?, ?, ?, ?)`,
		id, target, StatusRunning, now,
	)
	if err != nil {
		return fmt.Errorf("rundb: begin run: %w", err)
	}
	return nil
}

// Finish finalizes an attempt with its terminal status, the pipeline stage
// it reached, and the abort reason or backup location when applicable.
func (d *DB) Finish(id, status, stage, reason, backupLocation string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := d.db.Exec(
		`UPDATE runs SET status = ?, stage = ?, reason = ?, backup_location = ?, ended_at = ? WHERE id = ?`,
		status, stage, reason, backupLocation, now, id,
	)
	if err != nil {
		return fmt.Errorf("rundb: finish run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rundb: rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Get retrieves one attempt by ID.
func (d *DB) Get(id string) (Run, error) {
	var r Run
	err := d.db.QueryRow(
		`SELECT id, target, status, stage, reason, backup_location, started_at, ended_at
		 FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.Target, &r.Status, &r.Stage, &r.Reason, &r.BackupLocation, &r.StartedAt, &r.EndedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, fmt.Errorf("rundb: get run: %w", err)
	}
	return r, nil
}

// List returns attempts ordered by start time descending. A limit of 0
// returns everything.
func (d *DB) List(limit int) ([]Run, error) {
	query := `SELECT id, target, status, stage, reason, backup_location, started_at, ended_at
	          FROM runs ORDER BY started_at DESC, id DESC`

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = d.db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = d.db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("rundb: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Target, &r.Status, &r.Stage, &r.Reason, &r.BackupLocation, &r.StartedAt, &r.EndedAt); err != nil {
			return nil, fmt.Errorf("rundb: scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rundb: rows runs: %w", err)
	}
	return runs, nil
}
