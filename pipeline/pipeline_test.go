/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"golang.org/x/oauth2"

	"chainguard.dev/issueagent/agent"
	"chainguard.dev/issueagent/config"
	"chainguard.dev/issueagent/hosting"
	"chainguard.dev/issueagent/metrics"
	"chainguard.dev/issueagent/models"
	"chainguard.dev/issueagent/store"
	"chainguard.dev/issueagent/workspace"
)

// fakeAgent returns scripted responses in order, optionally running a
// hook against the request first (to simulate edits in the workspace).
type fakeAgent struct {
	responses []agent.Response
	hooks     []func(req agent.Request)
	requests  []agent.Request
}

func (f *fakeAgent) Invoke(_ context.Context, req agent.Request) (agent.Response, error) {
	i := len(f.requests)
	f.requests = append(f.requests, req)
	if i < len(f.hooks) && f.hooks[i] != nil {
		f.hooks[i](req)
	}
	if i >= len(f.responses) {
		return agent.Response{}, fmt.Errorf("unexpected invocation %d", i)
	}
	return f.responses[i], nil
}

// fakeHost is an in-memory Hosting implementation.
type fakeHost struct {
	issue    *models.Issue
	issueErr error
	forkURL  string
	prs      []string
}

func (f *fakeHost) GetIssue(_ context.Context, owner, repo string, number int) (*models.Issue, error) {
	if f.issue != nil || f.issueErr != nil {
		return f.issue, f.issueErr
	}
	// Default to a fresh open, unassigned issue.
	return models.NewIssue(owner, repo, number), nil
}

func (f *fakeHost) AuthenticatedUser(context.Context) (string, error) { return "fixbot", nil }

func (f *fakeHost) Fork(context.Context, string, string) (string, error) {
	return f.forkURL, nil
}

func (f *fakeHost) CreatePR(_ context.Context, _, _, _, branch, title, _ string) (hosting.PullRequest, error) {
	f.prs = append(f.prs, branch+" "+title)
	return hosting.PullRequest{Number: 101, URL: "https://github.com/octo/widget/pull/101"}, nil
}

func successResponse(cost float64) agent.Response {
	return agent.Response{Outcome: agent.OutcomeSuccess, CostUSD: cost, NumTurns: 3, DurationMS: 1200}
}

func analysisResponse(t *testing.T, rating string, confidence float64) agent.Response {
	t.Helper()
	data, err := json.Marshal(agent.AnalysisResponse{
		Rating:     rating,
		Confidence: confidence,
		Reasoning:  "scripted",
	})
	if err != nil {
		t.Fatal(err)
	}
	return agent.Response{Outcome: agent.OutcomeSuccess, ResultText: string(data), CostUSD: 0.05}
}

func initUpstream(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "widget.py"), []byte("def run():\n    return None\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add("widget.py"); err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	}); err != nil {
		t.Fatal(err)
	}
	return dir
}

// initMavenUpstream builds a repository whose test suite is a wrapper
// script under the resolver's control, so post-fix regressions can be
// staged deterministically.
func initMavenUpstream(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pom.xml"), []byte("<project></project>\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "mvnw"),
		[]byte("#!/bin/sh\necho '5 examples, 0 failures'\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{"pom.xml", "mvnw"} {
		if _, err := wt.Add(f); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	}); err != nil {
		t.Fatal(err)
	}
	return dir
}

type harness struct {
	store    *store.Store
	ws       *workspace.Manager
	cfg      *config.Config
	host     *fakeHost
	agent    *fakeAgent
	resolver *Resolver
	issue    *models.Issue
}

func newHarness(t *testing.T, upstream string, ag *fakeAgent) *harness {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	ws, err := workspace.NewManager(filepath.Join(t.TempDir(), "ws"))
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.DryRun = true
	cfg.RateDelay = 0

	issue := models.NewIssue("octo", "widget", 42)
	issue.Title = "run() returns None instead of a result"
	issue.Language = "python"
	issue, err = st.UpsertIssue(ctx, issue)
	if err != nil {
		t.Fatal(err)
	}

	host := &fakeHost{issue: issue}

	gitOps, err := hosting.NewGit(oauth2.StaticTokenSource(&oauth2.Token{}), "issueagent-test")
	if err != nil {
		t.Fatal(err)
	}

	prev := upstreamURL
	upstreamURL = func(*models.Issue) string { return upstream }
	t.Cleanup(func() { upstreamURL = prev })

	m := metrics.NewPipeline("issueagent.test")
	return &harness{
		store:    st,
		ws:       ws,
		cfg:      cfg,
		host:     host,
		agent:    ag,
		resolver: NewResolver(ag, st, ws, host, gitOps, cfg, m),
		issue:    issue,
	}
}

func TestResolveDryRunUntested(t *testing.T) {
	ctx := context.Background()
	upstream := initUpstream(t)

	ag := &fakeAgent{
		responses: []agent.Response{successResponse(1.10)},
		hooks: []func(agent.Request){func(req agent.Request) {
			// Simulate the agent editing but forgetting to commit.
			os.WriteFile(filepath.Join(req.Dir, "widget.py"),
				[]byte("def run():\n    return compute()\n"), 0o644)
		}},
	}
	h := newHarness(t, upstream, ag)

	attempt, err := h.resolver.Resolve(ctx, h.issue)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// No test runner in the project, so the change is publishable but
	// unverified; dry run skips the PR itself.
	if attempt.Outcome != models.OutcomeUntested {
		t.Fatalf("outcome = %s, want %s", attempt.Outcome, models.OutcomeUntested)
	}
	if attempt.Status != models.StatusSucceeded {
		t.Errorf("status = %s", attempt.Status)
	}
	if attempt.CostUSD != 1.10 {
		t.Errorf("cost = %v, want 1.10", attempt.CostUSD)
	}
	if len(h.host.prs) != 0 {
		t.Errorf("dry run opened PRs: %v", h.host.prs)
	}

	req := ag.requests[0]
	if req.PermissionMode != "bypassPermissions" {
		t.Errorf("permission mode = %q", req.PermissionMode)
	}
	if req.MaxBudgetUSD != h.cfg.Budget.ResolutionUSD {
		t.Errorf("budget = %v", req.MaxBudgetUSD)
	}

	// The workspace is cleaned after a publishable outcome.
	if _, err := os.Stat(attempt.WorkspacePath); !os.IsNotExist(err) {
		t.Errorf("workspace %s not cleaned", attempt.WorkspacePath)
	}
}

func TestResolveEmptyDiff(t *testing.T) {
	ctx := context.Background()
	ag := &fakeAgent{responses: []agent.Response{successResponse(0.80)}}
	h := newHarness(t, initUpstream(t), ag)

	attempt, err := h.resolver.Resolve(ctx, h.issue)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if attempt.Outcome != models.OutcomeEmptyDiff {
		t.Fatalf("outcome = %s, want %s", attempt.Outcome, models.OutcomeEmptyDiff)
	}
	if attempt.Status != models.StatusFailed {
		t.Errorf("status = %s", attempt.Status)
	}
	// Failed attempts keep their workspace for inspection.
	if _, err := os.Stat(attempt.WorkspacePath); err != nil {
		t.Errorf("workspace missing after failure: %v", err)
	}
}

func TestResolveTestsFailedRegression(t *testing.T) {
	ctx := context.Background()
	upstream := initMavenUpstream(t)

	ag := &fakeAgent{
		responses: []agent.Response{successResponse(1.40)},
		hooks: []func(agent.Request){func(req agent.Request) {
			// The "fix" breaks the suite.
			os.WriteFile(filepath.Join(req.Dir, "mvnw"),
				[]byte("#!/bin/sh\necho '5 examples, 2 failures'\nexit 1\n"), 0o755)
		}},
	}
	h := newHarness(t, upstream, ag)

	attempt, err := h.resolver.Resolve(ctx, h.issue)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if attempt.Outcome != models.OutcomeTestsFailed {
		t.Fatalf("outcome = %s, want %s", attempt.Outcome, models.OutcomeTestsFailed)
	}
	if attempt.Status != models.StatusFailed {
		t.Errorf("status = %s", attempt.Status)
	}
	if !strings.Contains(attempt.TestOutput, "2 failures") {
		t.Errorf("test output not captured: %q", attempt.TestOutput)
	}
	if len(h.host.prs) != 0 {
		t.Errorf("regressing change was submitted: %v", h.host.prs)
	}
	// Failed attempts keep their workspace for inspection.
	if _, err := os.Stat(attempt.WorkspacePath); err != nil {
		t.Errorf("workspace missing after failure: %v", err)
	}
}

func TestResolveStaleIssue(t *testing.T) {
	ctx := context.Background()
	ag := &fakeAgent{}
	h := newHarness(t, initUpstream(t), ag)

	closed := *h.issue
	closed.State = "closed"
	h.host.issue = &closed

	attempt, err := h.resolver.Resolve(ctx, h.issue)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if attempt.Outcome != models.OutcomeStaleIssue {
		t.Fatalf("outcome = %s, want %s", attempt.Outcome, models.OutcomeStaleIssue)
	}
	if len(ag.requests) != 0 {
		t.Errorf("stale issue still invoked the agent %d times", len(ag.requests))
	}
}

func TestResolveAgentTimeout(t *testing.T) {
	ctx := context.Background()
	ag := &fakeAgent{responses: []agent.Response{{Outcome: agent.OutcomeTimeout, CostUSD: 0.40}}}
	h := newHarness(t, initUpstream(t), ag)

	attempt, err := h.resolver.Resolve(ctx, h.issue)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if attempt.Outcome != models.OutcomeTimeout {
		t.Fatalf("outcome = %s, want %s", attempt.Outcome, models.OutcomeTimeout)
	}
	// Cost is recorded even when the invocation times out.
	if attempt.CostUSD != 0.40 {
		t.Errorf("cost = %v, want 0.40", attempt.CostUSD)
	}
}

func TestResolveSubmitsPR(t *testing.T) {
	ctx := context.Background()
	upstream := initUpstream(t)

	forkDir := t.TempDir()
	if _, err := git.PlainInit(forkDir, true); err != nil {
		t.Fatal(err)
	}

	ag := &fakeAgent{
		responses: []agent.Response{successResponse(2.00)},
		hooks: []func(agent.Request){func(req agent.Request) {
			os.WriteFile(filepath.Join(req.Dir, "widget.py"),
				[]byte("def run():\n    return compute()\n"), 0o644)
		}},
	}
	h := newHarness(t, upstream, ag)
	h.cfg.DryRun = false
	h.host.forkURL = forkDir

	attempt, err := h.resolver.Resolve(ctx, h.issue)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if attempt.Outcome != models.OutcomeUntested {
		t.Fatalf("outcome = %s, want %s (no runner, PR still opened)", attempt.Outcome, models.OutcomeUntested)
	}
	if attempt.PRNumber != 101 || attempt.PRURL == "" {
		t.Errorf("PR not recorded: %+v", attempt)
	}
	if len(h.host.prs) != 1 {
		t.Fatalf("prs = %v", h.host.prs)
	}

	// The branch must exist on the fork.
	fork, err := git.PlainOpen(forkDir)
	if err != nil {
		t.Fatal(err)
	}
	refs, err := fork.References()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	if err := refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Name().Short() == "fix/issue-42" {
			found = true
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Error("fix/issue-42 not pushed to fork")
	}
}
