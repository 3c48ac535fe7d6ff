/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Attempt records one resolution attempt for an issue. An Attempt is
// created pending, updated in place as stages complete, and never
// deleted, so a crash mid-resolution leaves an inspectable partial
// record. The outcome is set if and only if the status is terminal.
type Attempt struct {
	ID            string
	IssueID       string
	Status        AttemptStatus
	Outcome       Outcome
	CostUSD       float64
	DurationMS    int64
	WorkspacePath string
	PRURL         string
	PRNumber      int
	BranchName    string
	NumTurns      int
	Model         string
	TestOutput    string
	DiffSummary   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewAttempt constructs a pending Attempt for the given issue.
func NewAttempt(issueID string) *Attempt {
	now := time.Now().UTC()
	return &Attempt{
		ID:        uuid.NewString(),
		IssueID:   issueID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Finish transitions the attempt to a terminal status with its outcome.
// Succeeded or failed is derived from the outcome's publishability.
func (a *Attempt) Finish(outcome Outcome) {
	if outcome.Publishable() {
		a.Status = StatusSucceeded
	} else {
		a.Status = StatusFailed
	}
	a.Outcome = outcome
}

// Validate checks the status/outcome invariant.
func (a *Attempt) Validate() error {
	switch {
	case a.Status.Terminal() && a.Outcome == "":
		return fmt.Errorf("attempt %s is %s but has no outcome", a.ID, a.Status)
	case !a.Status.Terminal() && a.Outcome != "":
		return fmt.Errorf("attempt %s is %s but already has outcome %s", a.ID, a.Status, a.Outcome)
	}
	return nil
}
