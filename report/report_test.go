/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package report_test

import (
	"strings"
	"testing"

	"chainguard.dev/issueagent/models"
	"chainguard.dev/issueagent/pipeline"
	"chainguard.dev/issueagent/report"
	"chainguard.dev/issueagent/store"
)

func TestSession(t *testing.T) {
	t.Parallel()

	issue := models.NewIssue("octo", "widget", 42)
	analysis, err := models.NewAnalysis(issue.ID, models.RatingSolvable, 0.85)
	if err != nil {
		t.Fatal(err)
	}
	attempt := models.NewAttempt(issue.ID)
	attempt.Finish(models.OutcomePRSubmitted)
	attempt.PRURL = "https://github.com/octo/widget/pull/101"
	attempt.CostUSD = 2.25

	res := &pipeline.Result{
		Scanned:    12,
		Considered: 3,
		Attempted:  1,
		Submitted:  1,
		SpentUSD:   2.30,
		Issues: []pipeline.IssueResult{{
			Issue:    issue,
			Analysis: analysis,
			Attempt:  attempt,
		}},
	}

	got := report.Session(res)
	for _, want := range []string{
		"octo/widget#42",
		"solvable (0.85)",
		"pr_submitted",
		"https://github.com/octo/widget/pull/101",
		"$2.25",
		"Spent $2.30",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q:\n%s", want, got)
		}
	}
}

func TestSessionBudgetNotice(t *testing.T) {
	t.Parallel()
	got := report.Session(&pipeline.Result{BudgetExceeded: true})
	if !strings.Contains(got, "budget exhausted") {
		t.Errorf("report missing budget notice:\n%s", got)
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	got := report.Status(&store.Stats{
		Issues:       40,
		Analyzed:     30,
		Accepted:     12,
		Attempted:    10,
		PRsSubmitted: 6,
		TotalCostUSD: 31.70,
		OutcomeCounts: map[models.Outcome]int{
			models.OutcomePRSubmitted: 6,
			models.OutcomeTestsFailed: 3,
			models.OutcomeEmptyDiff:   1,
		},
		Languages: []store.LanguageStat{
			{Language: "python", Issues: 25, Attempted: 7, PRs: 4},
			{Language: "go", Issues: 15, Attempted: 3, PRs: 2},
		},
	})

	for _, want := range []string{
		"Issues discovered",
		"PRs submitted",
		"$31.70",
		"tests_failed",
		"python",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("status missing %q:\n%s", want, got)
		}
	}
	// Outcomes are ordered by count.
	if strings.Index(got, "pr_submitted") > strings.Index(got, "empty_diff") {
		t.Error("outcomes not sorted by frequency")
	}
}
