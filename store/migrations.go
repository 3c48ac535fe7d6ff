/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chainguard-dev/clog"
)

// migrations apply in order; schema_version records the last applied
// index so existing databases upgrade incrementally.
var migrations = []string{
	`CREATE TABLE issues (
		id            TEXT PRIMARY KEY,
		owner         TEXT NOT NULL,
		repo          TEXT NOT NULL,
		number        INTEGER NOT NULL,
		title         TEXT NOT NULL DEFAULT '',
		body          TEXT NOT NULL DEFAULT '',
		labels        TEXT NOT NULL DEFAULT '[]',
		url           TEXT NOT NULL DEFAULT '',
		state         TEXT NOT NULL DEFAULT 'open',
		has_assignees INTEGER NOT NULL DEFAULT 0,
		has_linked_prs INTEGER NOT NULL DEFAULT 0,
		language      TEXT NOT NULL DEFAULT '',
		stars         INTEGER NOT NULL DEFAULT 0,
		created_at    TEXT NOT NULL DEFAULT '',
		discovered_at TEXT NOT NULL,
		UNIQUE(owner, repo, number)
	);
	CREATE TABLE analyses (
		id          TEXT PRIMARY KEY,
		issue_id    TEXT NOT NULL REFERENCES issues(id),
		rating      TEXT NOT NULL,
		confidence  REAL NOT NULL,
		complexity  TEXT NOT NULL DEFAULT '',
		reasoning   TEXT NOT NULL DEFAULT '',
		cost_usd    REAL NOT NULL DEFAULT 0,
		model       TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX idx_analyses_issue ON analyses(issue_id, created_at);
	CREATE TABLE attempts (
		id             TEXT PRIMARY KEY,
		issue_id       TEXT NOT NULL REFERENCES issues(id),
		status         TEXT NOT NULL,
		outcome        TEXT NOT NULL DEFAULT '',
		cost_usd       REAL NOT NULL DEFAULT 0,
		duration_ms    INTEGER NOT NULL DEFAULT 0,
		workspace_path TEXT NOT NULL DEFAULT '',
		pr_url         TEXT NOT NULL DEFAULT '',
		pr_number      INTEGER NOT NULL DEFAULT 0,
		branch_name    TEXT NOT NULL DEFAULT '',
		num_turns      INTEGER NOT NULL DEFAULT 0,
		model          TEXT NOT NULL DEFAULT '',
		test_output    TEXT NOT NULL DEFAULT '',
		diff_summary   TEXT NOT NULL DEFAULT '',
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL
	);
	CREATE INDEX idx_attempts_issue ON attempts(issue_id, created_at);`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("creating schema_version: %w", err)
	}

	var version int
	err := db.QueryRowContext(ctx, `SELECT version FROM schema_version`).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("seeding schema_version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("reading schema_version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		clog.FromContext(ctx).Infof("Applying schema migration %d", i+1)
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE schema_version SET version = ?`, i+1); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", i+1, err)
		}
	}
	return nil
}
