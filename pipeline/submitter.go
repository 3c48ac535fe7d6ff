/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	git "github.com/go-git/go-git/v5"

	"chainguard.dev/issueagent/hosting"
	"chainguard.dev/issueagent/models"
	"chainguard.dev/issueagent/regression"
)

// Submitter publishes a finished fix: fork, push, pull request.
type Submitter struct {
	hosting Hosting
	git     GitOps
}

// NewSubmitter constructs a Submitter.
func NewSubmitter(host Hosting, gitOps GitOps) *Submitter {
	return &Submitter{hosting: host, git: gitOps}
}

// Submit forks the upstream repository, pushes the fix branch to the
// fork, and opens a cross-repository pull request.
func (s *Submitter) Submit(ctx context.Context, issue *models.Issue, repo *git.Repository,
	branch, diffSummary string, verdict regression.Result) (hosting.PullRequest, error) {
	log := clog.FromContext(ctx).With("issue", issue.Ref())

	forkURL, err := s.hosting.Fork(ctx, issue.Owner, issue.Repo)
	if err != nil {
		return hosting.PullRequest{}, fmt.Errorf("forking: %w", err)
	}
	if err := s.git.PushBranch(ctx, repo, forkURL, branch); err != nil {
		return hosting.PullRequest{}, fmt.Errorf("pushing: %w", err)
	}

	login, err := s.hosting.AuthenticatedUser(ctx)
	if err != nil {
		return hosting.PullRequest{}, err
	}

	pr, err := s.hosting.CreatePR(ctx, issue.Owner, issue.Repo, login, branch,
		PRTitle(issue), PRBody(issue, diffSummary, verdict))
	if err != nil {
		return hosting.PullRequest{}, fmt.Errorf("opening pull request: %w", err)
	}
	log.With("pr", pr.URL).Info("pull request submitted")
	return pr, nil
}

// PRTitle renders the pull request title, truncating long issue titles.
func PRTitle(issue *models.Issue) string {
	return fmt.Sprintf("Fix #%d: %s", issue.Number, truncateTitle(issue.Title, 60))
}

// PRBody renders the pull request description.
func PRBody(issue *models.Issue, diffSummary string, verdict regression.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fixes #%d.\n\n", issue.Number)
	fmt.Fprintf(&b, "## Summary\n\nThis change addresses [%s](%s).\n", issue.Ref(), issue.URL)
	if diffSummary != "" {
		fmt.Fprintf(&b, "\n## Changes\n\n%s\n", diffSummary)
	}

	b.WriteString("\n## Testing\n\n")
	switch verdict.Verdict {
	case regression.VerdictPass:
		b.WriteString("The project's test suite passes with no regressions against the pre-change baseline.\n")
	case regression.VerdictUntested:
		b.WriteString("No test runner was detected for this project, so the change could not be verified automatically. Please review carefully.\n")
	}

	b.WriteString("\n---\n*This pull request was generated by an automated issue resolution tool. A human should review it before merging.*\n")
	return b.String()
}
