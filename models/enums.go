/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package models

import "fmt"

// Rating is the agent's assessment of whether an issue can be resolved
// automatically.
type Rating string

const (
	RatingSolvable         Rating = "solvable"
	RatingLikelySolvable   Rating = "likely_solvable"
	RatingUnlikelySolvable Rating = "unlikely_solvable"
	RatingUnsolvable       Rating = "unsolvable"
	RatingNeedsContext     Rating = "needs_context"
)

// ParseRating validates a rating string against the closed set.
func ParseRating(s string) (Rating, error) {
	switch r := Rating(s); r {
	case RatingSolvable, RatingLikelySolvable, RatingUnlikelySolvable,
		RatingUnsolvable, RatingNeedsContext:
		return r, nil
	}
	return "", fmt.Errorf("unknown rating %q", s)
}

// AttemptStatus is the lifecycle state of a resolution attempt.
type AttemptStatus string

const (
	StatusPending    AttemptStatus = "pending"
	StatusInProgress AttemptStatus = "in_progress"
	StatusSucceeded  AttemptStatus = "succeeded"
	StatusFailed     AttemptStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s AttemptStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// ParseAttemptStatus validates a status string against the closed set.
func ParseAttemptStatus(s string) (AttemptStatus, error) {
	switch st := AttemptStatus(s); st {
	case StatusPending, StatusInProgress, StatusSucceeded, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown attempt status %q", s)
}

// Outcome is the terminal classification of a resolution attempt.
type Outcome string

const (
	OutcomePRSubmitted      Outcome = "pr_submitted"
	OutcomeTestsFailed      Outcome = "tests_failed"
	OutcomeEmptyDiff        Outcome = "empty_diff"
	OutcomeResolutionFailed Outcome = "resolution_failed"
	OutcomeAnalysisFailed   Outcome = "analysis_failed"
	OutcomeBudgetExceeded   Outcome = "budget_exceeded"
	OutcomeTimeout          Outcome = "timeout"
	OutcomeParseError       Outcome = "parse_error"
	OutcomeStaleIssue       Outcome = "stale_issue"
	OutcomeUntested         Outcome = "untested"
)

// Publishable reports whether the outcome qualifies the attempt's change
// for PR submission. Untested changes are publishable: a change exists but
// the project offered no way to verify it.
func (o Outcome) Publishable() bool {
	return o == OutcomePRSubmitted || o == OutcomeUntested
}

// ParseOutcome validates an outcome string against the closed set.
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case OutcomePRSubmitted, OutcomeTestsFailed, OutcomeEmptyDiff,
		OutcomeResolutionFailed, OutcomeAnalysisFailed, OutcomeBudgetExceeded,
		OutcomeTimeout, OutcomeParseError, OutcomeStaleIssue, OutcomeUntested:
		return o, nil
	}
	return "", fmt.Errorf("unknown outcome %q", s)
}
