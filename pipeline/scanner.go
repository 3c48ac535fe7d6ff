/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"

	"chainguard.dev/issueagent/config"
	"chainguard.dev/issueagent/hosting"
	"chainguard.dev/issueagent/models"
	"chainguard.dev/issueagent/store"
)

// IssueSearcher is the hosting surface the scanner needs.
type IssueSearcher interface {
	SearchIssues(ctx context.Context, q hosting.Query) ([]*models.Issue, error)
}

// Scanner discovers candidate issues and persists them. Re-running a
// scan upserts, so discovery is idempotent.
type Scanner struct {
	searcher IssueSearcher
	store    *store.Store
	cfg      config.Scan
}

// NewScanner constructs a Scanner.
func NewScanner(searcher IssueSearcher, st *store.Store, cfg config.Scan) *Scanner {
	return &Scanner{searcher: searcher, store: st, cfg: cfg}
}

// Scan runs one search per (language, label) pair, deduplicates by
// issue reference, and upserts the results. It returns the stored
// issues, including rows that already existed.
func (s *Scanner) Scan(ctx context.Context) ([]*models.Issue, error) {
	log := clog.FromContext(ctx)

	languages := s.cfg.Languages
	if len(languages) == 0 {
		languages = []string{""}
	}
	labels := s.cfg.Labels
	if len(labels) == 0 {
		labels = []string{""}
	}

	seen := map[string]bool{}
	var out []*models.Issue
	for _, language := range languages {
		for _, label := range labels {
			q := hosting.Query{
				Language:   language,
				MinStars:   s.cfg.MinStars,
				MaxAgeDays: s.cfg.MaxAgeDays,
				Repos:      s.cfg.Repos,
				NoAssignee: true,
				NoLinkedPR: true,
				Limit:      s.cfg.PerQuery,
			}
			if label != "" {
				q.Labels = []string{label}
			}

			found, err := s.searcher.SearchIssues(ctx, q)
			if err != nil {
				return nil, fmt.Errorf("scanning language=%q label=%q: %w", language, label, err)
			}
			log.With("language", language, "label", label, "found", len(found)).Info("scan query complete")

			for _, iss := range found {
				if seen[iss.Ref()] {
					continue
				}
				seen[iss.Ref()] = true

				saved, err := s.store.UpsertIssue(ctx, iss)
				if err != nil {
					return nil, err
				}
				out = append(out, saved)
			}
		}
	}
	log.With("total", len(out)).Info("scan complete")
	return out, nil
}
