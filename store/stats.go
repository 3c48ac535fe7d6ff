/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package store

import (
	"context"
	"fmt"

	"chainguard.dev/issueagent/models"
)

// Stats summarizes the pipeline funnel across the whole database.
type Stats struct {
	Issues       int
	Analyzed     int
	Accepted     int
	Attempted    int
	PRsSubmitted int
	TotalCostUSD float64

	// OutcomeCounts maps terminal attempt outcomes to their frequency.
	OutcomeCounts map[models.Outcome]int

	// Languages holds per-language funnel rows, most issues first.
	Languages []LanguageStat
}

// LanguageStat is one language's slice of the funnel.
type LanguageStat struct {
	Language  string
	Issues    int
	Attempted int
	PRs       int
}

// Summarize computes funnel statistics. Accepted counts issues whose
// latest analysis clears the solvability gate.
func (s *Store) Summarize(ctx context.Context) (*Stats, error) {
	st := &Stats{OutcomeCounts: map[models.Outcome]int{}}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM issues`).Scan(&st.Issues); err != nil {
		return nil, fmt.Errorf("counting issues: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT issue_id) FROM analyses`).Scan(&st.Analyzed); err != nil {
		return nil, fmt.Errorf("counting analyzed issues: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT issue_id, rating, confidence,
				ROW_NUMBER() OVER (PARTITION BY issue_id ORDER BY created_at DESC, rowid DESC) AS rn
			FROM analyses
		) WHERE rn = 1 AND rating IN (?, ?) AND confidence >= ?`,
		string(models.RatingSolvable), string(models.RatingLikelySolvable),
		models.AcceptanceConfidence).Scan(&st.Accepted); err != nil {
		return nil, fmt.Errorf("counting accepted issues: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT issue_id) FROM attempts`).Scan(&st.Attempted); err != nil {
		return nil, fmt.Errorf("counting attempted issues: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(cost_usd), 0)
			+ (SELECT COALESCE(SUM(cost_usd), 0) FROM analyses)
		FROM attempts`).Scan(&st.TotalCostUSD); err != nil {
		return nil, fmt.Errorf("summing cost: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*) FROM attempts
		WHERE outcome != '' GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("counting outcomes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scanning outcome count: %w", err)
		}
		st.OutcomeCounts[models.Outcome(outcome)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	st.PRsSubmitted = st.OutcomeCounts[models.OutcomePRSubmitted]

	langs, err := s.db.QueryContext(ctx, `
		SELECT i.language,
			COUNT(DISTINCT i.id),
			COUNT(DISTINCT a.issue_id),
			COUNT(DISTINCT CASE WHEN a.outcome = ? THEN a.issue_id END)
		FROM issues i
		LEFT JOIN attempts a ON a.issue_id = i.id
		WHERE i.language != ''
		GROUP BY i.language
		ORDER BY COUNT(DISTINCT i.id) DESC`,
		string(models.OutcomePRSubmitted))
	if err != nil {
		return nil, fmt.Errorf("per-language stats: %w", err)
	}
	defer langs.Close()
	for langs.Next() {
		var ls LanguageStat
		if err := langs.Scan(&ls.Language, &ls.Issues, &ls.Attempted, &ls.PRs); err != nil {
			return nil, fmt.Errorf("scanning language stats: %w", err)
		}
		st.Languages = append(st.Languages, ls)
	}
	return st, langs.Err()
}
