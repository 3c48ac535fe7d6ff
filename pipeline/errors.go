/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"fmt"

	"chainguard.dev/issueagent/agent"
	"chainguard.dev/issueagent/models"
)

// BudgetExceededError means a spend cap was reached, either the
// session total or a single resolution's own cap. The orchestrator
// stops the run; remaining issues stay unattempted.
type BudgetExceededError struct {
	SpentUSD float64
	LimitUSD float64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("budget exceeded: spent $%.2f of $%.2f", e.SpentUSD, e.LimitUSD)
}

// AnalysisRejectedError means the issue's latest analysis did not clear
// the solvability gate. This is a filter decision, not a failure.
type AnalysisRejectedError struct {
	Issue      string
	Rating     models.Rating
	Confidence float64
}

func (e *AnalysisRejectedError) Error() string {
	return fmt.Sprintf("analysis rejected %s: rating=%s confidence=%.2f",
		e.Issue, e.Rating, e.Confidence)
}

// AgentError means an agent invocation terminated without a usable
// result.
type AgentError struct {
	Stage   string
	Outcome agent.Outcome
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent %s invocation failed: %s", e.Stage, e.Outcome)
}

// PrerequisiteError means a required external tool is unavailable.
type PrerequisiteError struct {
	Tool   string
	Reason string
}

func (e *PrerequisiteError) Error() string {
	return fmt.Sprintf("prerequisite %s unavailable: %s", e.Tool, e.Reason)
}
