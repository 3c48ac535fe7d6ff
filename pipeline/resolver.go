/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"chainguard.dev/issueagent/agent"
	"chainguard.dev/issueagent/config"
	"chainguard.dev/issueagent/hosting"
	"chainguard.dev/issueagent/invoke"
	"chainguard.dev/issueagent/metrics"
	"chainguard.dev/issueagent/models"
	"chainguard.dev/issueagent/probe"
	"chainguard.dev/issueagent/regression"
	"chainguard.dev/issueagent/store"
	"chainguard.dev/issueagent/workspace"
)

// Hosting is the GitHub API surface the resolver and submitter need.
type Hosting interface {
	GetIssue(ctx context.Context, owner, repo string, number int) (*models.Issue, error)
	AuthenticatedUser(ctx context.Context) (string, error)
	Fork(ctx context.Context, owner, repo string) (string, error)
	CreatePR(ctx context.Context, owner, repo, headOwner, branch, title, body string) (hosting.PullRequest, error)
}

// GitOps is the local git surface the resolver needs.
type GitOps interface {
	Clone(ctx context.Context, url, dir string) (*git.Repository, error)
	CreateBranch(repo *git.Repository, branchName string) error
	HasChanges(repo *git.Repository) (bool, error)
	CommitAll(repo *git.Repository, message string) error
	PushBranch(ctx context.Context, repo *git.Repository, forkURL, branchName string) error
}

// upstreamURL resolves an issue's repository clone URL. Tests override
// this to point at local repositories.
var upstreamURL = func(issue *models.Issue) string {
	return "https://github.com/" + issue.FullRepo() + ".git"
}

// Resolver drives one issue through workspace setup, the resolution
// agent run, test comparison, and submission. Every attempt is
// persisted at creation, after workspace setup, and at its terminal
// transition, so a crash leaves an inspectable record.
type Resolver struct {
	agent     agent.Interface
	store     *store.Store
	ws        *workspace.Manager
	hosting   Hosting
	git       GitOps
	cfg       *config.Config
	metrics   *metrics.Pipeline
	submitter *Submitter
}

// NewResolver constructs a Resolver.
func NewResolver(ag agent.Interface, st *store.Store, ws *workspace.Manager,
	host Hosting, gitOps GitOps, cfg *config.Config, m *metrics.Pipeline) *Resolver {
	return &Resolver{
		agent:     ag,
		store:     st,
		ws:        ws,
		hosting:   host,
		git:       gitOps,
		cfg:       cfg,
		metrics:   m,
		submitter: NewSubmitter(host, gitOps),
	}
}

// Resolve attempts to fix one accepted issue. The returned attempt is
// always terminal; a non-nil error reports infrastructure trouble
// (storage, workspace), not fix failure, which the outcome carries.
// The one exception is the resolution budget cap: hitting it finishes
// the attempt and also returns a BudgetExceededError, because an agent
// that ran out of money mid-fix means the session should stop spending.
func (r *Resolver) Resolve(ctx context.Context, issue *models.Issue) (*models.Attempt, error) {
	log := clog.FromContext(ctx).With("issue", issue.Ref())

	attempt := models.NewAttempt(issue.ID)
	attempt.Model = r.cfg.Agent.Model
	if err := r.store.InsertAttempt(ctx, attempt); err != nil {
		return nil, err
	}

	finish := func(outcome models.Outcome) (*models.Attempt, error) {
		attempt.Finish(outcome)
		r.metrics.RecordOutcome(ctx, outcome, issue.Language)
		if err := r.store.UpdateAttempt(ctx, attempt); err != nil {
			return attempt, err
		}
		log.With("outcome", outcome, "cost_usd", attempt.CostUSD).Info("attempt finished")
		if outcome.Publishable() {
			if attempt.WorkspacePath != "" {
				if err := r.ws.Remove(attempt.WorkspacePath); err != nil {
					log.Warnf("cleaning workspace: %v", err)
				}
			}
		}
		return attempt, nil
	}

	// Issues can be claimed or closed between scan and resolution.
	if current, err := r.hosting.GetIssue(ctx, issue.Owner, issue.Repo, issue.Number); err != nil {
		log.Warnf("freshness check failed, proceeding: %v", err)
	} else if current.State != "open" || current.HasAssignees {
		log.With("state", current.State, "assigned", current.HasAssignees).Info("issue is stale")
		return finish(models.OutcomeStaleIssue)
	}

	dir, err := r.ws.Create(issue.Owner, issue.Repo)
	if err != nil {
		attempt.Finish(models.OutcomeResolutionFailed)
		if uerr := r.store.UpdateAttempt(ctx, attempt); uerr != nil {
			return attempt, uerr
		}
		return attempt, err
	}
	attempt.WorkspacePath = dir
	attempt.BranchName = fmt.Sprintf("fix/issue-%d", issue.Number)
	attempt.Status = models.StatusInProgress
	if err := r.store.UpdateAttempt(ctx, attempt); err != nil {
		return attempt, err
	}

	repo, err := r.git.Clone(ctx, upstreamURL(issue), dir)
	if err != nil {
		log.Warnf("clone failed: %v", err)
		return finish(models.OutcomeResolutionFailed)
	}

	installer := probe.DetectInstaller(dir)
	if installer != nil {
		res, err := r.runShell(ctx, dir, installer.Command, installer.Timeout)
		if err != nil || res.ExitCode != 0 {
			// A broken install is not fatal; the agent may still
			// manage, and the baseline run captures the damage.
			log.Warnf("dependency install did not complete cleanly (exit=%d err=%v)", res.ExitCode, err)
		}
	}

	runner := probe.DetectRunner(dir)
	var baseline regression.Run
	if runner != nil {
		log.With("runner", runner.Name).Info("running baseline tests")
		res, err := r.runShell(ctx, dir, runner.Command, runner.Timeout)
		if err != nil {
			log.Warnf("baseline test run failed to start: %v", err)
			runner = nil
		} else {
			baseline = regression.Run{ExitCode: res.ExitCode, Output: res.Stdout + res.Stderr}
			log.With("exit_code", baseline.ExitCode).Info("baseline recorded")
		}
	}

	if err := r.git.CreateBranch(repo, attempt.BranchName); err != nil {
		log.Warnf("branch creation failed: %v", err)
		return finish(models.OutcomeResolutionFailed)
	}
	baseHead, err := repo.Head()
	if err != nil {
		return finish(models.OutcomeResolutionFailed)
	}

	rc := resolutionContext(dir, runner, installer)
	resp, err := r.agent.Invoke(ctx, agent.Request{
		Prompt:         agent.BuildResolutionPrompt(issue, rc),
		Model:          r.cfg.Agent.Model,
		MaxTurns:       r.cfg.Agent.MaxTurns,
		PermissionMode: "bypassPermissions",
		MaxBudgetUSD:   r.cfg.Budget.ResolutionUSD,
		Timeout:        r.cfg.Agent.Timeout,
		Dir:            dir,
	})
	if err != nil {
		return finish(models.OutcomeResolutionFailed)
	}
	r.metrics.RecordInvocation(ctx, "resolution", r.cfg.Agent.Model, resp.CostUSD)
	attempt.CostUSD = resp.CostUSD
	attempt.NumTurns = resp.NumTurns
	attempt.DurationMS = resp.DurationMS
	if err := r.store.UpdateAttempt(ctx, attempt); err != nil {
		return attempt, err
	}

	switch resp.Outcome {
	case agent.OutcomeSuccess:
	case agent.OutcomeTimeout:
		return finish(models.OutcomeTimeout)
	case agent.OutcomeBudgetExceeded:
		at, ferr := finish(models.OutcomeBudgetExceeded)
		if ferr != nil {
			return at, ferr
		}
		return at, &BudgetExceededError{SpentUSD: resp.CostUSD, LimitUSD: r.cfg.Budget.ResolutionUSD}
	case agent.OutcomeParseError:
		return finish(models.OutcomeParseError)
	default:
		return finish(models.OutcomeResolutionFailed)
	}

	// The prompt asks the agent to commit; pick up anything it left
	// in the working tree.
	if dirty, err := r.git.HasChanges(repo); err == nil && dirty {
		msg := fmt.Sprintf("Fix #%d: %s", issue.Number, truncateTitle(issue.Title, 60))
		if err := r.git.CommitAll(repo, msg); err != nil {
			log.Warnf("committing leftover changes: %v", err)
		}
	}

	head, err := repo.Head()
	if err != nil || head.Hash() == baseHead.Hash() {
		log.Info("agent produced no commits")
		return finish(models.OutcomeEmptyDiff)
	}

	attempt.DiffSummary = r.diffSummary(ctx, dir, baseHead.Hash(), head.Hash())

	verdict := regression.Result{Verdict: regression.VerdictUntested}
	if runner != nil {
		log.Info("running post-fix tests")
		res, err := r.runShell(ctx, dir, runner.Command, runner.Timeout)
		if err == nil {
			post := regression.Run{ExitCode: res.ExitCode, Output: res.Stdout + res.Stderr}
			attempt.TestOutput = regression.TruncateOutput(post.Output)
			verdict = regression.Classify(runner.Name, baseline, post)
			log.With("verdict", verdict.Verdict, "new_failures", verdict.NewFailures).Info("tests classified")
		}
	}
	if verdict.Verdict == regression.VerdictRegression {
		return finish(models.OutcomeTestsFailed)
	}

	if r.cfg.DryRun {
		log.Info("dry run: skipping push and PR creation")
		if verdict.Verdict == regression.VerdictUntested {
			return finish(models.OutcomeUntested)
		}
		return finish(models.OutcomePRSubmitted)
	}

	pr, err := r.submitter.Submit(ctx, issue, repo, attempt.BranchName, attempt.DiffSummary, verdict)
	if err != nil {
		log.Warnf("submission failed: %v", err)
		return finish(models.OutcomeResolutionFailed)
	}
	attempt.PRURL = pr.URL
	attempt.PRNumber = pr.Number
	if verdict.Verdict == regression.VerdictUntested {
		return finish(models.OutcomeUntested)
	}
	return finish(models.OutcomePRSubmitted)
}

// runShell executes a shell command inside the workspace.
func (r *Resolver) runShell(ctx context.Context, dir, command string, timeout time.Duration) (invoke.Result, error) {
	return invoke.Run(ctx, invoke.Command{
		Argv:    []string{"sh", "-c", command},
		Dir:     dir,
		Timeout: timeout,
	})
}

// diffSummary renders a short description of the change. A failure here
// only costs the PR body some context.
func (r *Resolver) diffSummary(ctx context.Context, dir string, base, head plumbing.Hash) string {
	res, err := r.runShell(ctx, dir,
		fmt.Sprintf("git diff %s %s", base, head), 30*time.Second)
	if err != nil || res.ExitCode != 0 {
		return ""
	}
	summary, err := hosting.SummarizeDiff(res.Stdout)
	if err != nil {
		clog.FromContext(ctx).Debugf("diff summary unavailable: %v", err)
		return ""
	}
	return summary
}

// resolutionContext gathers project material for the resolution prompt.
func resolutionContext(dir string, runner *probe.TestRunner, installer *probe.Installer) agent.ResolutionContext {
	rc := agent.ResolutionContext{}
	if runner != nil {
		rc.TestCommand = runner.Command
	}
	if installer != nil {
		rc.InstallCommand = installer.Command
	}
	if data, err := os.ReadFile(filepath.Join(dir, "CONTRIBUTING.md")); err == nil {
		rc.ContributingMD = string(data)
	}
	for _, p := range []string{
		filepath.Join(dir, ".github", "PULL_REQUEST_TEMPLATE.md"),
		filepath.Join(dir, ".github", "pull_request_template.md"),
		filepath.Join(dir, "PULL_REQUEST_TEMPLATE.md"),
	} {
		if data, err := os.ReadFile(p); err == nil {
			rc.PRTemplate = string(data)
			break
		}
	}
	return rc
}

// truncateTitle trims a title to at most n runes for commit messages
// and PR titles.
func truncateTitle(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n])
}
