/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/chainguard-dev/clog"

	"chainguard.dev/issueagent/config"
	"chainguard.dev/issueagent/models"
	"chainguard.dev/issueagent/store"
)

// Orchestrator runs the full funnel for one session.
type Orchestrator struct {
	scanner  *Scanner
	analyzer *Analyzer
	resolver *Resolver
	store    *store.Store
	cfg      *config.Config

	// sleep is swapped out by tests to avoid real rate delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(scanner *Scanner, analyzer *Analyzer, resolver *Resolver,
	st *store.Store, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		scanner:  scanner,
		analyzer: analyzer,
		resolver: resolver,
		store:    st,
		cfg:      cfg,
		sleep:    sleepCtx,
	}
}

// IssueResult is one issue's passage through the funnel.
type IssueResult struct {
	Issue    *models.Issue
	Analysis *models.Analysis
	Attempt  *models.Attempt
	Rejected bool
	Err      error

	// freshAnalysis marks an analysis paid for in this session, as
	// opposed to one reused from the store.
	freshAnalysis bool
}

// Result summarizes a session.
type Result struct {
	Scanned        int
	Considered     int
	Rejected       int
	Attempted      int
	Submitted      int
	Failed         int
	SpentUSD       float64
	BudgetExceeded bool
	Issues         []IssueResult
}

// Run executes one session: scan (unless skipScan), then walk
// unattempted issues through analysis and resolution until the issue
// cap or the session budget is reached. Analysis rejections are filter
// decisions, not failures; a budget breach ends the session early.
func (o *Orchestrator) Run(ctx context.Context, skipScan bool) (*Result, error) {
	log := clog.FromContext(ctx)
	res := &Result{}

	if !skipScan {
		scanned, err := o.scanner.Scan(ctx)
		if err != nil {
			return res, err
		}
		res.Scanned = len(scanned)
	}

	issues, err := o.store.UnattemptedIssues(ctx, o.cfg.MaxIssuesPerRun)
	if err != nil {
		return res, err
	}
	res.Considered = len(issues)
	log.With("candidates", len(issues)).Info("session starting")

	for i, issue := range issues {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if res.SpentUSD >= o.cfg.Budget.SessionUSD {
			log.With("spent_usd", res.SpentUSD).Warn("session budget exhausted")
			res.BudgetExceeded = true
			return res, &BudgetExceededError{SpentUSD: res.SpentUSD, LimitUSD: o.cfg.Budget.SessionUSD}
		}

		ir := o.runIssue(ctx, issue)
		if ir.Analysis != nil && ir.freshAnalysis {
			res.SpentUSD += ir.Analysis.CostUSD
		}
		if ir.Attempt != nil {
			res.SpentUSD += ir.Attempt.CostUSD
			res.Attempted++
			if ir.Attempt.Outcome.Publishable() {
				res.Submitted++
			} else {
				res.Failed++
			}
		}
		switch {
		case ir.Rejected:
			res.Rejected++
		case ir.Err != nil && ir.Attempt == nil:
			res.Failed++
		}
		res.Issues = append(res.Issues, ir)

		// A resolution that hit its own budget cap ends the session,
		// regardless of how much session budget remains.
		var budgetErr *BudgetExceededError
		if errors.As(ir.Err, &budgetErr) {
			log.With("spent_usd", res.SpentUSD).Warn("resolution budget exhausted, stopping session")
			res.BudgetExceeded = true
			return res, ir.Err
		}

		if i < len(issues)-1 && o.cfg.RateDelay > 0 {
			if err := o.sleep(ctx, o.cfg.RateDelay); err != nil {
				return res, err
			}
		}
	}

	log.With("attempted", res.Attempted, "submitted", res.Submitted,
		"failed", res.Failed, "spent_usd", res.SpentUSD).Info("session complete")
	return res, nil
}

// runIssue takes one issue through analyze-then-resolve.
func (o *Orchestrator) runIssue(ctx context.Context, issue *models.Issue) IssueResult {
	log := clog.FromContext(ctx).With("issue", issue.Ref())
	ir := IssueResult{Issue: issue}

	analysis, err := o.store.LatestAnalysis(ctx, issue.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		analysis, err = o.analyzer.Analyze(ctx, issue)
		ir.Analysis = analysis
		ir.freshAnalysis = true
		if err != nil {
			log.Warnf("analysis failed: %v", err)
			ir.Err = err
			return ir
		}
	case err != nil:
		ir.Err = err
		return ir
	default:
		ir.Analysis = analysis
		log.Debug("reusing stored analysis")
	}

	if !analysis.PassesThreshold() {
		log.With("rating", analysis.Rating, "confidence", analysis.Confidence).Info("analysis rejected issue")
		ir.Rejected = true
		ir.Err = &AnalysisRejectedError{Issue: issue.Ref(), Rating: analysis.Rating, Confidence: analysis.Confidence}
		return ir
	}

	attempt, err := o.resolver.Resolve(ctx, issue)
	ir.Attempt = attempt
	ir.Err = err
	if err != nil {
		log.Warnf("resolution ended with error: %v", err)
	}
	return ir
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
