/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"chainguard.dev/issueagent/config"
	"chainguard.dev/issueagent/models"
	"chainguard.dev/issueagent/store"
)

func TestScanDeduplicatesAcrossQueries(t *testing.T) {
	ctx := context.Background()

	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	// The same issue comes back from both label queries.
	searcher := &fakeSearcher{gen: func() []*models.Issue {
		iss := models.NewIssue("octo", "widget", 5)
		iss.Language = "python"
		return []*models.Issue{iss}
	}}

	s := NewScanner(searcher, st, config.Scan{
		Labels:    []string{"good first issue", "help wanted"},
		Languages: []string{"python"},
		PerQuery:  30,
	})

	got, err := s.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if searcher.calls != 2 {
		t.Errorf("searcher called %d times, want 2", searcher.calls)
	}
	if len(got) != 1 {
		t.Fatalf("Scan returned %d issues, want 1 after dedup", len(got))
	}

	// Scanning again does not duplicate rows.
	again, err := s.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan again: %v", err)
	}
	if len(again) != 1 || again[0].ID != got[0].ID {
		t.Errorf("re-scan produced new identity: %+v vs %+v", again, got)
	}
}
