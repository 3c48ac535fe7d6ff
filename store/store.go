/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"chainguard.dev/issueagent/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store is a SQLite-backed repository for pipeline state.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies pending
// schema migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	// SQLite allows one writer; the pipeline is sequential but the
	// busy timeout guards against a stray concurrent CLI invocation.
	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA foreign_keys = ON`,
		`PRAGMA busy_timeout = 5000`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %s: %w", pragma, err)
		}
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// UpsertIssue inserts the issue or, when (owner, repo, number) already
// exists, refreshes its mutable fields. The stored row's ID wins, so
// the returned issue carries the canonical ID.
func (s *Store) UpsertIssue(ctx context.Context, iss *models.Issue) (*models.Issue, error) {
	labels, err := json.Marshal(iss.Labels)
	if err != nil {
		return nil, fmt.Errorf("encoding labels: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO issues (id, owner, repo, number, title, body, labels, url, state,
			has_assignees, has_linked_prs, language, stars, created_at, discovered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner, repo, number) DO UPDATE SET
			title = excluded.title,
			body = excluded.body,
			labels = excluded.labels,
			url = excluded.url,
			state = excluded.state,
			has_assignees = excluded.has_assignees,
			has_linked_prs = excluded.has_linked_prs,
			language = excluded.language,
			stars = excluded.stars`,
		iss.ID, iss.Owner, iss.Repo, iss.Number, iss.Title, iss.Body, string(labels),
		iss.URL, iss.State, iss.HasAssignees, iss.HasLinkedPRs, iss.Language, iss.Stars,
		formatTime(iss.CreatedAt), formatTime(iss.DiscoveredAt))
	if err != nil {
		return nil, fmt.Errorf("upserting issue %s: %w", iss.Ref(), err)
	}
	return s.GetIssue(ctx, iss.Owner, iss.Repo, iss.Number)
}

// GetIssue fetches an issue by its (owner, repo, number) reference.
func (s *Store) GetIssue(ctx context.Context, owner, repo string, number int) (*models.Issue, error) {
	row := s.db.QueryRowContext(ctx, issueColumns+` WHERE owner = ? AND repo = ? AND number = ?`,
		owner, repo, number)
	return scanIssue(row)
}

// IssueByID fetches an issue by its primary key.
func (s *Store) IssueByID(ctx context.Context, id string) (*models.Issue, error) {
	row := s.db.QueryRowContext(ctx, issueColumns+` WHERE id = ?`, id)
	return scanIssue(row)
}

// UnattemptedIssues returns open issues with no resolution attempts,
// oldest discovery first, capped at limit.
func (s *Store) UnattemptedIssues(ctx context.Context, limit int) ([]*models.Issue, error) {
	rows, err := s.db.QueryContext(ctx, issueColumns+`
		WHERE state = 'open'
		AND id NOT IN (SELECT DISTINCT issue_id FROM attempts)
		ORDER BY discovered_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing unattempted issues: %w", err)
	}
	defer rows.Close()

	var out []*models.Issue
	for rows.Next() {
		iss, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, iss)
	}
	return out, rows.Err()
}

// InsertAnalysis appends an analysis record.
func (s *Store) InsertAnalysis(ctx context.Context, a *models.Analysis) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analyses (id, issue_id, rating, confidence, complexity, reasoning,
			cost_usd, model, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.IssueID, string(a.Rating), a.Confidence, a.Complexity, a.Reasoning,
		a.CostUSD, a.Model, a.DurationMS, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting analysis for issue %s: %w", a.IssueID, err)
	}
	return nil
}

// LatestAnalysis returns the most recent analysis for the issue, or
// ErrNotFound when the issue has never been analyzed.
func (s *Store) LatestAnalysis(ctx context.Context, issueID string) (*models.Analysis, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, issue_id, rating, confidence, complexity, reasoning,
			cost_usd, model, duration_ms, created_at
		FROM analyses WHERE issue_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`, issueID)

	var a models.Analysis
	var rating, createdAt string
	err := row.Scan(&a.ID, &a.IssueID, &rating, &a.Confidence, &a.Complexity,
		&a.Reasoning, &a.CostUSD, &a.Model, &a.DurationMS, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading latest analysis for %s: %w", issueID, err)
	}
	a.Rating = models.Rating(rating)
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

// InsertAttempt records a freshly created attempt.
func (s *Store) InsertAttempt(ctx context.Context, at *models.Attempt) error {
	if err := at.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attempts (id, issue_id, status, outcome, cost_usd, duration_ms,
			workspace_path, pr_url, pr_number, branch_name, num_turns, model,
			test_output, diff_summary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		at.ID, at.IssueID, string(at.Status), string(at.Outcome), at.CostUSD, at.DurationMS,
		at.WorkspacePath, at.PRURL, at.PRNumber, at.BranchName, at.NumTurns, at.Model,
		at.TestOutput, at.DiffSummary, formatTime(at.CreatedAt), formatTime(at.UpdatedAt))
	if err != nil {
		return fmt.Errorf("inserting attempt for issue %s: %w", at.IssueID, err)
	}
	return nil
}

// UpdateAttempt overwrites the attempt's mutable fields, refreshing its
// updated_at stamp.
func (s *Store) UpdateAttempt(ctx context.Context, at *models.Attempt) error {
	if err := at.Validate(); err != nil {
		return err
	}
	at.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE attempts SET status = ?, outcome = ?, cost_usd = ?, duration_ms = ?,
			workspace_path = ?, pr_url = ?, pr_number = ?, branch_name = ?,
			num_turns = ?, model = ?, test_output = ?, diff_summary = ?, updated_at = ?
		WHERE id = ?`,
		string(at.Status), string(at.Outcome), at.CostUSD, at.DurationMS,
		at.WorkspacePath, at.PRURL, at.PRNumber, at.BranchName,
		at.NumTurns, at.Model, at.TestOutput, at.DiffSummary,
		formatTime(at.UpdatedAt), at.ID)
	if err != nil {
		return fmt.Errorf("updating attempt %s: %w", at.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("updating attempt %s: %w", at.ID, ErrNotFound)
	}
	return nil
}

// AttemptsForIssue returns the issue's attempts, oldest first.
func (s *Store) AttemptsForIssue(ctx context.Context, issueID string) ([]*models.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, issue_id, status, outcome, cost_usd, duration_ms, workspace_path,
			pr_url, pr_number, branch_name, num_turns, model, test_output,
			diff_summary, created_at, updated_at
		FROM attempts WHERE issue_id = ? ORDER BY created_at ASC, rowid ASC`, issueID)
	if err != nil {
		return nil, fmt.Errorf("listing attempts for %s: %w", issueID, err)
	}
	defer rows.Close()

	var out []*models.Attempt
	for rows.Next() {
		var at models.Attempt
		var status, outcome, createdAt, updatedAt string
		if err := rows.Scan(&at.ID, &at.IssueID, &status, &outcome, &at.CostUSD,
			&at.DurationMS, &at.WorkspacePath, &at.PRURL, &at.PRNumber, &at.BranchName,
			&at.NumTurns, &at.Model, &at.TestOutput, &at.DiffSummary,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning attempt: %w", err)
		}
		at.Status = models.AttemptStatus(status)
		at.Outcome = models.Outcome(outcome)
		at.CreatedAt = parseTime(createdAt)
		at.UpdatedAt = parseTime(updatedAt)
		out = append(out, &at)
	}
	return out, rows.Err()
}

const issueColumns = `
	SELECT id, owner, repo, number, title, body, labels, url, state,
		has_assignees, has_linked_prs, language, stars, created_at, discovered_at
	FROM issues`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(row rowScanner) (*models.Issue, error) {
	var iss models.Issue
	var labels, createdAt, discoveredAt string
	err := row.Scan(&iss.ID, &iss.Owner, &iss.Repo, &iss.Number, &iss.Title, &iss.Body,
		&labels, &iss.URL, &iss.State, &iss.HasAssignees, &iss.HasLinkedPRs,
		&iss.Language, &iss.Stars, &createdAt, &discoveredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning issue: %w", err)
	}
	if err := json.Unmarshal([]byte(labels), &iss.Labels); err != nil {
		return nil, fmt.Errorf("decoding labels: %w", err)
	}
	iss.CreatedAt = parseTime(createdAt)
	iss.DiscoveredAt = parseTime(discoveredAt)
	return &iss, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
