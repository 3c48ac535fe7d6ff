/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"context"
	"os"

	"github.com/chainguard-dev/clog"

	"chainguard.dev/issueagent/agent"
	"chainguard.dev/issueagent/agent/result"
	"chainguard.dev/issueagent/config"
	"chainguard.dev/issueagent/metrics"
	"chainguard.dev/issueagent/models"
	"chainguard.dev/issueagent/store"
)

// Analyzer runs the cheap single-turn solvability assessment. It never
// touches a clone; the agent answers from the issue text alone, so the
// invocation runs in a scratch directory with default permissions.
type Analyzer struct {
	agent   agent.Interface
	store   *store.Store
	cfg     config.Agent
	budget  config.Budget
	metrics *metrics.Pipeline
}

// NewAnalyzer constructs an Analyzer.
func NewAnalyzer(ag agent.Interface, st *store.Store, cfg config.Agent, budget config.Budget, m *metrics.Pipeline) *Analyzer {
	return &Analyzer{agent: ag, store: st, cfg: cfg, budget: budget, metrics: m}
}

// Analyze assesses one issue and persists the analysis. A failed or
// unparseable invocation still produces a persisted unsolvable analysis
// (so the issue is not retried forever) alongside an AgentError.
func (a *Analyzer) Analyze(ctx context.Context, issue *models.Issue) (*models.Analysis, error) {
	log := clog.FromContext(ctx).With("issue", issue.Ref())
	log.Info("analyzing issue")

	resp, err := a.agent.Invoke(ctx, agent.Request{
		Prompt:       agent.BuildAnalysisPrompt(issue),
		Model:        a.cfg.AnalysisModel,
		MaxTurns:     a.cfg.AnalysisMaxTurns,
		MaxBudgetUSD: a.budget.AnalysisUSD,
		Timeout:      a.cfg.Timeout,
		Dir:          os.TempDir(),
	})
	if err != nil {
		return nil, err
	}
	a.metrics.RecordInvocation(ctx, "analysis", a.cfg.AnalysisModel, resp.CostUSD)

	if resp.Outcome != agent.OutcomeSuccess {
		log.With("outcome", resp.Outcome).Warn("analysis invocation failed")
		return a.record(ctx, failedAnalysis(issue.ID, a.cfg.AnalysisModel, resp, "agent invocation "+string(resp.Outcome)),
			&AgentError{Stage: "analysis", Outcome: resp.Outcome})
	}

	parsed, err := result.Extract[agent.AnalysisResponse](resp.ResultText)
	if err != nil {
		log.Warnf("analysis result not parseable: %v", err)
		return a.record(ctx, failedAnalysis(issue.ID, a.cfg.AnalysisModel, resp, "unparseable analysis response"),
			&AgentError{Stage: "analysis", Outcome: agent.OutcomeParseError})
	}

	rating, err := models.ParseRating(parsed.Rating)
	if err != nil {
		log.Warnf("analysis rating invalid: %v", err)
		return a.record(ctx, failedAnalysis(issue.ID, a.cfg.AnalysisModel, resp, "invalid rating "+parsed.Rating),
			&AgentError{Stage: "analysis", Outcome: agent.OutcomeParseError})
	}

	confidence := min(max(parsed.Confidence, 0), 1)
	analysis, err := models.NewAnalysis(issue.ID, rating, confidence)
	if err != nil {
		return nil, err
	}
	analysis.Complexity = parsed.Complexity
	analysis.Reasoning = parsed.Reasoning
	analysis.CostUSD = resp.CostUSD
	analysis.Model = a.cfg.AnalysisModel
	analysis.DurationMS = resp.DurationMS

	log.With("rating", rating, "confidence", confidence, "cost_usd", resp.CostUSD).Info("analysis complete")
	return a.record(ctx, analysis, nil)
}

// record persists the analysis, preferring a storage error over the
// stage error since losing the record is the more actionable failure.
func (a *Analyzer) record(ctx context.Context, analysis *models.Analysis, stageErr error) (*models.Analysis, error) {
	if err := a.store.InsertAnalysis(ctx, analysis); err != nil {
		return nil, err
	}
	return analysis, stageErr
}

// failedAnalysis builds the unsolvable placeholder recorded when the
// agent could not produce a usable assessment.
func failedAnalysis(issueID, model string, resp agent.Response, reason string) *models.Analysis {
	analysis, err := models.NewAnalysis(issueID, models.RatingUnsolvable, 0)
	if err != nil {
		// Confidence 0 is always in range.
		panic(err)
	}
	analysis.Reasoning = reason
	analysis.Model = model
	analysis.CostUSD = resp.CostUSD
	analysis.DurationMS = resp.DurationMS
	return analysis
}
