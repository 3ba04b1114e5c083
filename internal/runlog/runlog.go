// Package runlog keeps a history of scan runs in SQLite so operators
// can audit when scans ran, what they produced and where the outputs
// went.
package runlog

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	StatusOK        = "ok"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Run is one recorded scan execution.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Scanned    int
	Candidates int
	Skipped    int
	CSVPath    string
	JSONPath   string
	Detail     string
}

// NewRunID returns a sortable run identifier: the run date plus a
// short random suffix.
func NewRunID(t time.Time) string {
	return fmt.Sprintf("%s-%s", t.UTC().Format("20060102"), uuid.NewString()[:8])
}

// Log persists runs to a SQLite database.
type Log struct {
	db *sql.DB
}

// Open opens (or creates) the run log database and runs migrations.
func Open(dbPath string) (*Log, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	l := &Log{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate run log: %w", err)
	}
	return l, nil
}

func (l *Log) migrate() error {
	stmt := `CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		started_at  INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		status      TEXT NOT NULL,
		scanned     INTEGER DEFAULT 0,
		candidates  INTEGER DEFAULT 0,
		skipped     INTEGER DEFAULT 0,
		csv_path    TEXT,
		json_path   TEXT,
		detail      TEXT
	)`
	if _, err := l.db.Exec(stmt); err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	return nil
}

// Record inserts one finished run.
func (l *Log) Record(r Run) error {
	_, err := l.db.Exec(`INSERT INTO runs
		(id, started_at, finished_at, status, scanned, candidates, skipped, csv_path, json_path, detail)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.StartedAt.Unix(), r.FinishedAt.Unix(), r.Status,
		r.Scanned, r.Candidates, r.Skipped, r.CSVPath, r.JSONPath, r.Detail)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.ID, err)
	}
	log.Printf("[INFO] run %s recorded: status=%s scanned=%d candidates=%d skipped=%d",
		r.ID, r.Status, r.Scanned, r.Candidates, r.Skipped)
	return nil
}

// Recent returns the most recent runs, newest first.
func (l *Log) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := l.db.Query(`SELECT id, started_at, finished_at, status,
		scanned, candidates, skipped, csv_path, json_path, detail
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		if err := rows.Scan(&r.ID, &started, &finished, &r.Status,
			&r.Scanned, &r.Candidates, &r.Skipped, &r.CSVPath, &r.JSONPath, &r.Detail); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(started, 0).UTC()
		r.FinishedAt = time.Unix(finished, 0).UTC()
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func (l *Log) Close() error {
	return l.db.Close()
}
