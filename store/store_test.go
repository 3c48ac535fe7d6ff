/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"chainguard.dev/issueagent/models"
	"chainguard.dev/issueagent/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "issues.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedIssue(t *testing.T, s *store.Store, owner, repo string, number int) *models.Issue {
	t.Helper()
	iss := models.NewIssue(owner, repo, number)
	iss.Title = "widget is broken"
	iss.Labels = []string{"bug", "good first issue"}
	iss.Language = "python"
	saved, err := s.UpsertIssue(context.Background(), iss)
	if err != nil {
		t.Fatalf("UpsertIssue: %v", err)
	}
	return saved
}

func TestUpsertIssueIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	first := seedIssue(t, s, "octo", "widget", 7)

	// A re-scan of the same issue produces a new candidate with a new
	// ID; the stored row must keep its original identity.
	again := models.NewIssue("octo", "widget", 7)
	again.Title = "widget is broken (updated)"
	saved, err := s.UpsertIssue(ctx, again)
	if err != nil {
		t.Fatalf("UpsertIssue again: %v", err)
	}
	if saved.ID != first.ID {
		t.Errorf("upsert changed issue ID: %s != %s", saved.ID, first.ID)
	}
	if saved.Title != "widget is broken (updated)" {
		t.Errorf("title not refreshed: %q", saved.Title)
	}

	got, err := s.GetIssue(ctx, "octo", "widget", 7)
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("GetIssue ID = %s, want %s", got.ID, first.ID)
	}
	if len(got.Labels) != 2 || got.Labels[0] != "bug" {
		t.Errorf("labels round-trip = %v", got.Labels)
	}
}

func TestGetIssueNotFound(t *testing.T) {
	s := openStore(t)
	if _, err := s.GetIssue(context.Background(), "none", "such", 1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetIssue error = %v, want ErrNotFound", err)
	}
}

func TestAnalysesAreAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	iss := seedIssue(t, s, "octo", "widget", 1)

	if _, err := s.LatestAnalysis(ctx, iss.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("LatestAnalysis error = %v, want ErrNotFound", err)
	}

	a1, err := models.NewAnalysis(iss.ID, models.RatingNeedsContext, 0.4)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.InsertAnalysis(ctx, a1); err != nil {
		t.Fatalf("InsertAnalysis: %v", err)
	}

	a2, err := models.NewAnalysis(iss.ID, models.RatingSolvable, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	a2.CreatedAt = a1.CreatedAt.Add(time.Second) // force ordering
	if err := s.InsertAnalysis(ctx, a2); err != nil {
		t.Fatalf("InsertAnalysis: %v", err)
	}

	latest, err := s.LatestAnalysis(ctx, iss.ID)
	if err != nil {
		t.Fatalf("LatestAnalysis: %v", err)
	}
	if latest.ID != a2.ID {
		t.Errorf("latest analysis = %s, want %s", latest.ID, a2.ID)
	}
	if latest.Rating != models.RatingSolvable || latest.Confidence != 0.9 {
		t.Errorf("latest analysis = %s/%v", latest.Rating, latest.Confidence)
	}
}

func TestAttemptLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	iss := seedIssue(t, s, "octo", "widget", 2)

	at := models.NewAttempt(iss.ID)
	if err := s.InsertAttempt(ctx, at); err != nil {
		t.Fatalf("InsertAttempt: %v", err)
	}

	at.Status = models.StatusInProgress
	at.WorkspacePath = "/tmp/ws/octo-widget-abc"
	at.BranchName = "fix/issue-2"
	if err := s.UpdateAttempt(ctx, at); err != nil {
		t.Fatalf("UpdateAttempt in progress: %v", err)
	}

	at.Finish(models.OutcomePRSubmitted)
	at.PRURL = "https://github.com/octo/widget/pull/9"
	at.PRNumber = 9
	at.CostUSD = 1.25
	if err := s.UpdateAttempt(ctx, at); err != nil {
		t.Fatalf("UpdateAttempt terminal: %v", err)
	}

	got, err := s.AttemptsForIssue(ctx, iss.ID)
	if err != nil {
		t.Fatalf("AttemptsForIssue: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("AttemptsForIssue returned %d rows, want 1", len(got))
	}
	if got[0].Status != models.StatusSucceeded || got[0].Outcome != models.OutcomePRSubmitted {
		t.Errorf("attempt = %s/%s", got[0].Status, got[0].Outcome)
	}
	if got[0].PRNumber != 9 || got[0].CostUSD != 1.25 {
		t.Errorf("attempt fields = %+v", got[0])
	}
}

func TestUpdateAttemptUnknownID(t *testing.T) {
	s := openStore(t)
	at := models.NewAttempt("no-such-issue")
	if err := s.UpdateAttempt(context.Background(), at); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("UpdateAttempt error = %v, want ErrNotFound", err)
	}
}

func TestUnattemptedIssues(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	a := seedIssue(t, s, "octo", "widget", 1)
	b := seedIssue(t, s, "octo", "widget", 2)
	_ = b

	at := models.NewAttempt(a.ID)
	if err := s.InsertAttempt(ctx, at); err != nil {
		t.Fatalf("InsertAttempt: %v", err)
	}

	got, err := s.UnattemptedIssues(ctx, 10)
	if err != nil {
		t.Fatalf("UnattemptedIssues: %v", err)
	}
	if len(got) != 1 || got[0].Number != 2 {
		t.Fatalf("UnattemptedIssues = %+v, want only issue #2", got)
	}
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	a := seedIssue(t, s, "octo", "widget", 1)
	b := seedIssue(t, s, "octo", "widget", 2)

	an, err := models.NewAnalysis(a.ID, models.RatingSolvable, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	an.CostUSD = 0.10
	if err := s.InsertAnalysis(ctx, an); err != nil {
		t.Fatal(err)
	}

	at := models.NewAttempt(a.ID)
	if err := s.InsertAttempt(ctx, at); err != nil {
		t.Fatal(err)
	}
	at.Finish(models.OutcomePRSubmitted)
	at.CostUSD = 2.40
	if err := s.UpdateAttempt(ctx, at); err != nil {
		t.Fatal(err)
	}

	at2 := models.NewAttempt(b.ID)
	if err := s.InsertAttempt(ctx, at2); err != nil {
		t.Fatal(err)
	}
	at2.Finish(models.OutcomeTestsFailed)
	if err := s.UpdateAttempt(ctx, at2); err != nil {
		t.Fatal(err)
	}

	st, err := s.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if st.Issues != 2 || st.Analyzed != 1 || st.Accepted != 1 || st.Attempted != 2 {
		t.Errorf("funnel = %+v", st)
	}
	if st.PRsSubmitted != 1 {
		t.Errorf("PRsSubmitted = %d, want 1", st.PRsSubmitted)
	}
	if st.OutcomeCounts[models.OutcomeTestsFailed] != 1 {
		t.Errorf("outcome counts = %v", st.OutcomeCounts)
	}
	if got, want := st.TotalCostUSD, 2.50; got < want-0.001 || got > want+0.001 {
		t.Errorf("TotalCostUSD = %v, want %v", got, want)
	}
	if len(st.Languages) != 1 || st.Languages[0].Language != "python" || st.Languages[0].Issues != 2 {
		t.Errorf("languages = %+v", st.Languages)
	}
}
