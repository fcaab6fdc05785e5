// Package db stores a journal of overseer runs in SQLite. The journal is an
// audit trail only: runs never read it back, the labels on the tracker stay
// the source of truth.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB represents the database connection
type DB struct {
	*sql.DB
}

// Run is the start record of one overseer run
type Run struct {
	ID           string
	Organization string
	Strategy     string
	DryRun       bool
	StartedAt    time.Time
}

// RunResult is the end record of one overseer run
type RunResult struct {
	Repositories int
	Internal     int
	Answered     int
	NotAnswered  int
	Requests     int64
	// Error is empty for successful runs.
	Error      string
	FinishedAt time.Time
}

// RepositorySync records the label reconciliation of one repository
type RepositorySync struct {
	Repository    string
	LabelsRemoved int
	LabelsAdded   int
	OpenIssues    int
}

// Classification records the class assigned to one issue
type Classification struct {
	Repository        string
	Number            int
	URL               string
	Title             string
	Class             string
	CommentsTruncated bool
}

// LabelChange records one issue label mutation
type LabelChange struct {
	IssueURL string
	Label    string
	Action   string
	Outcome  string
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Initialize creates the database schema if it doesn't exist
func (db *DB) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		organization TEXT NOT NULL,
		strategy TEXT NOT NULL,
		dry_run BOOLEAN NOT NULL DEFAULT 0,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		repositories INTEGER,
		internal INTEGER,
		answered INTEGER,
		not_answered INTEGER,
		requests INTEGER,
		error TEXT
	);

	CREATE TABLE IF NOT EXISTS repository_syncs (
		run_id TEXT NOT NULL,
		repository TEXT NOT NULL,
		labels_removed INTEGER NOT NULL,
		labels_added INTEGER NOT NULL,
		open_issues INTEGER NOT NULL,
		PRIMARY KEY (run_id, repository),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE TABLE IF NOT EXISTS issue_classifications (
		run_id TEXT NOT NULL,
		repository TEXT NOT NULL,
		number INTEGER NOT NULL,
		url TEXT NOT NULL,
		title TEXT NOT NULL,
		class TEXT NOT NULL,
		comments_truncated BOOLEAN NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, url),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE TABLE IF NOT EXISTS label_changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		issue_url TEXT NOT NULL,
		label TEXT NOT NULL,
		action TEXT NOT NULL,
		outcome TEXT NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// StartRun saves the start record of a run
func (db *DB) StartRun(ctx context.Context, run Run) error {
	query := `
	INSERT INTO runs (id, organization, strategy, dry_run, started_at)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query, run.ID, run.Organization, run.Strategy, run.DryRun, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

// RecordRepository saves the reconciliation result of a repository
func (db *DB) RecordRepository(ctx context.Context, runID string, sync RepositorySync) error {
	query := `
	INSERT INTO repository_syncs (run_id, repository, labels_removed, labels_added, open_issues)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(run_id, repository) DO UPDATE SET
		labels_removed = excluded.labels_removed,
		labels_added = excluded.labels_added,
		open_issues = excluded.open_issues
	`

	_, err := db.ExecContext(ctx, query, runID, sync.Repository, sync.LabelsRemoved, sync.LabelsAdded, sync.OpenIssues)
	if err != nil {
		return fmt.Errorf("failed to save repository sync: %w", err)
	}

	return nil
}

// RecordClassifications saves the classification of every issue of a run in
// a single transaction
func (db *DB) RecordClassifications(ctx context.Context, runID string, classifications []Classification) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO issue_classifications (run_id, repository, number, url, title, class, comments_truncated)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		class = excluded.class,
		comments_truncated = excluded.comments_truncated
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range classifications {
		if _, err := stmt.ExecContext(ctx, runID, c.Repository, c.Number, c.URL, c.Title, c.Class, c.CommentsTruncated); err != nil {
			return fmt.Errorf("failed to save classification of %s: %w", c.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit classifications: %w", err)
	}

	return nil
}

// RecordLabelChange saves one issue label mutation
func (db *DB) RecordLabelChange(ctx context.Context, runID string, change LabelChange) error {
	query := `
	INSERT INTO label_changes (run_id, issue_url, label, action, outcome)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query, runID, change.IssueURL, change.Label, change.Action, change.Outcome)
	if err != nil {
		return fmt.Errorf("failed to save label change: %w", err)
	}

	return nil
}

// FinishRun saves the end record of a run
func (db *DB) FinishRun(ctx context.Context, runID string, result RunResult) error {
	query := `
	UPDATE runs SET
		finished_at = ?,
		repositories = ?,
		internal = ?,
		answered = ?,
		not_answered = ?,
		requests = ?,
		error = ?
	WHERE id = ?
	`

	var runErr sql.NullString
	if result.Error != "" {
		runErr = sql.NullString{String: result.Error, Valid: true}
	}

	res, err := db.ExecContext(ctx, query,
		result.FinishedAt,
		result.Repositories,
		result.Internal,
		result.Answered,
		result.NotAnswered,
		result.Requests,
		runErr,
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to finish run: unknown run %s", runID)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
