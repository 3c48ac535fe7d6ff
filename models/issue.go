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

// Issue is a GitHub issue discovered through scanning. Issues are
// immutable once fetched; re-scanning the same (owner, repo, number)
// upserts rather than duplicates.
type Issue struct {
	ID           string
	Owner        string
	Repo         string
	Number       int
	Title        string
	Body         string
	Labels       []string
	URL          string
	State        string
	HasAssignees bool
	HasLinkedPRs bool
	Language     string
	Stars        int
	CreatedAt    time.Time
	DiscoveredAt time.Time
}

// NewIssue constructs an Issue with a fresh ID and discovery timestamp.
func NewIssue(owner, repo string, number int) *Issue {
	return &Issue{
		ID:           uuid.NewString(),
		Owner:        owner,
		Repo:         repo,
		Number:       number,
		State:        "open",
		DiscoveredAt: time.Now().UTC(),
	}
}

// FullRepo returns the owner/repo slug.
func (i *Issue) FullRepo() string {
	return fmt.Sprintf("%s/%s", i.Owner, i.Repo)
}

// Ref returns the owner/repo#number reference used in logs and reports.
func (i *Issue) Ref() string {
	return fmt.Sprintf("%s/%s#%d", i.Owner, i.Repo, i.Number)
}
