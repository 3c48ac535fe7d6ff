/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package hosting

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
	"golang.org/x/oauth2"

	"chainguard.dev/issueagent/models"
)

// Client wraps the GitHub REST API for the operations the pipeline
// needs: searching issues, forking, and opening pull requests.
type Client struct {
	gh          *github.Client
	tokenSource oauth2.TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithGitHubClient substitutes the underlying API client, typically for
// tests pointing at a local HTTP server.
func WithGitHubClient(gh *github.Client) Option {
	return func(c *Client) { c.gh = gh }
}

// NewClient constructs a Client authenticated by the token source.
func NewClient(ctx context.Context, tokenSource oauth2.TokenSource, opts ...Option) (*Client, error) {
	if tokenSource == nil {
		return nil, errors.New("token source cannot be nil")
	}
	c := &Client{
		gh:          github.NewClient(oauth2.NewClient(ctx, tokenSource)),
		tokenSource: tokenSource,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TokenSource returns the client's token source, for sharing with git
// transport auth.
func (c *Client) TokenSource() oauth2.TokenSource { return c.tokenSource }

// Query describes an issue search.
type Query struct {
	Labels     []string
	Language   string
	MinStars   int
	MaxAgeDays int
	Repos      []string
	NoAssignee bool
	NoLinkedPR bool
	Limit      int
}

// String renders the query in GitHub search syntax.
func (q Query) String() string {
	parts := []string{"is:issue", "is:open"}
	for _, l := range q.Labels {
		parts = append(parts, fmt.Sprintf("label:%q", l))
	}
	if q.Language != "" {
		parts = append(parts, "language:"+q.Language)
	}
	if q.MinStars > 0 {
		parts = append(parts, "stars:>="+strconv.Itoa(q.MinStars))
	}
	if q.MaxAgeDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -q.MaxAgeDays).Format("2006-01-02")
		parts = append(parts, "created:>="+cutoff)
	}
	for _, r := range q.Repos {
		parts = append(parts, "repo:"+r)
	}
	if q.NoAssignee {
		parts = append(parts, "no:assignee")
	}
	if q.NoLinkedPR {
		parts = append(parts, "-linked:pr")
	}
	return strings.Join(parts, " ")
}

// SearchIssues runs the query and converts the results into models.
// Pagination stops at q.Limit results (default 30).
func (c *Client) SearchIssues(ctx context.Context, q Query) ([]*models.Issue, error) {
	log := clog.FromContext(ctx)
	limit := q.Limit
	if limit <= 0 {
		limit = 30
	}
	query := q.String()
	log.With("query", query).Debug("searching issues")

	opts := &github.SearchOptions{
		Sort:        "created",
		Order:       "desc",
		ListOptions: github.ListOptions{PerPage: min(limit, 100)},
	}

	var out []*models.Issue
	for len(out) < limit {
		result, resp, err := c.gh.Search.Issues(ctx, query, opts)
		if err != nil {
			return nil, fmt.Errorf("searching issues: %w", err)
		}
		for _, it := range result.Issues {
			if it.IsPullRequest() {
				continue
			}
			owner, repo, ok := splitRepositoryURL(it.GetRepositoryURL())
			if !ok {
				continue
			}
			iss := models.NewIssue(owner, repo, it.GetNumber())
			iss.Title = it.GetTitle()
			iss.Body = it.GetBody()
			iss.URL = it.GetHTMLURL()
			iss.State = it.GetState()
			iss.HasAssignees = len(it.Assignees) > 0
			iss.Language = q.Language
			iss.CreatedAt = it.GetCreatedAt().Time
			for _, l := range it.Labels {
				iss.Labels = append(iss.Labels, l.GetName())
			}
			out = append(out, iss)
			if len(out) >= limit {
				break
			}
		}
		if resp.NextPage == 0 || len(out) >= limit {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

// GetIssue fetches a single issue by reference.
func (c *Client) GetIssue(ctx context.Context, owner, repo string, number int) (*models.Issue, error) {
	it, _, err := c.gh.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("getting issue %s/%s#%d: %w", owner, repo, number, err)
	}
	iss := models.NewIssue(owner, repo, number)
	iss.Title = it.GetTitle()
	iss.Body = it.GetBody()
	iss.URL = it.GetHTMLURL()
	iss.State = it.GetState()
	iss.HasAssignees = len(it.Assignees) > 0
	for _, l := range it.Labels {
		iss.Labels = append(iss.Labels, l.GetName())
	}
	return iss, nil
}

// AuthenticatedUser returns the login of the token's user, which is the
// owner side of fork pushes and cross-repo PR heads.
func (c *Client) AuthenticatedUser(ctx context.Context) (string, error) {
	u, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("getting authenticated user: %w", err)
	}
	return u.GetLogin(), nil
}

// Fork creates (or reuses) a fork of owner/repo under the authenticated
// user and returns its clone URL. GitHub forks asynchronously, so the
// call waits until the fork repository answers.
func (c *Client) Fork(ctx context.Context, owner, repo string) (string, error) {
	log := clog.FromContext(ctx).With("repo", owner+"/"+repo)

	fork, _, err := c.gh.Repositories.CreateFork(ctx, owner, repo, nil)
	if err != nil {
		// An AcceptedError means the fork is being created in the
		// background; fall through to polling.
		var accepted *github.AcceptedError
		if !errors.As(err, &accepted) {
			return "", fmt.Errorf("creating fork: %w", err)
		}
	}

	login, err := c.AuthenticatedUser(ctx)
	if err != nil {
		return "", err
	}
	if fork != nil && fork.GetCloneURL() != "" {
		return fork.GetCloneURL(), nil
	}

	for attempt := 0; attempt < 10; attempt++ {
		r, _, err := c.gh.Repositories.Get(ctx, login, repo)
		if err == nil {
			return r.GetCloneURL(), nil
		}
		log.Debugf("fork not ready yet (attempt %d): %v", attempt+1, err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return "", fmt.Errorf("fork of %s/%s never became available", owner, repo)
}

// PullRequest is a submitted pull request.
type PullRequest struct {
	Number int
	URL    string
}

// CreatePR opens a pull request against owner/repo's default branch
// from headOwner's branch.
func (c *Client) CreatePR(ctx context.Context, owner, repo, headOwner, branch, title, body string) (PullRequest, error) {
	r, _, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return PullRequest{}, fmt.Errorf("getting repository: %w", err)
	}
	base := r.GetDefaultBranch()

	head := branch
	if headOwner != owner {
		head = headOwner + ":" + branch
	}
	pr, _, err := c.gh.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title:               github.Ptr(title),
		Body:                github.Ptr(body),
		Head:                github.Ptr(head),
		Base:                github.Ptr(base),
		MaintainerCanModify: github.Ptr(true),
	})
	if err != nil {
		return PullRequest{}, fmt.Errorf("creating pull request: %w", err)
	}
	return PullRequest{Number: pr.GetNumber(), URL: pr.GetHTMLURL()}, nil
}

// RateLimit returns the remaining core API quota and its reset time.
func (c *Client) RateLimit(ctx context.Context) (remaining int, reset time.Time, err error) {
	limits, _, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("getting rate limit: %w", err)
	}
	core := limits.GetCore()
	return core.Remaining, core.Reset.Time, nil
}

// splitRepositoryURL extracts owner and repo from an API repository URL
// like https://api.github.com/repos/octo/widget.
func splitRepositoryURL(u string) (owner, repo string, ok bool) {
	const marker = "/repos/"
	i := strings.Index(u, marker)
	if i < 0 {
		return "", "", false
	}
	rest := strings.Split(u[i+len(marker):], "/")
	if len(rest) < 2 || rest[0] == "" || rest[1] == "" {
		return "", "", false
	}
	return rest[0], rest[1], true
}
