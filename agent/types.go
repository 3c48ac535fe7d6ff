/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agent

import (
	"context"
	"time"
)

// Outcome classifies how an agent invocation terminated.
type Outcome string

const (
	// OutcomeSuccess means the agent completed and produced a result.
	OutcomeSuccess Outcome = "success"
	// OutcomeTimeout means the external timeout killed the process.
	OutcomeTimeout Outcome = "timeout"
	// OutcomeProcessError means the CLI exited non-zero or reported an
	// error without having consumed budget (auth failures, bad flags).
	OutcomeProcessError Outcome = "process_error"
	// OutcomeParseError means stdout was not a single JSON object.
	OutcomeParseError Outcome = "parse_error"
	// OutcomeBudgetExceeded means the agent reported an error after
	// consuming budget, which is how a budget cut-off presents.
	OutcomeBudgetExceeded Outcome = "budget_exceeded"
)

// Request describes one CLI invocation.
type Request struct {
	Prompt         string
	Model          string
	MaxTurns       int
	PermissionMode string
	MaxBudgetUSD   float64
	Timeout        time.Duration
	// Dir is the working directory the agent operates in.
	Dir string
}

// Response is the normalized result of an invocation. Every field is
// populated on every path (numerics default to zero, strings to empty)
// so downstream code never branches on missing fields.
type Response struct {
	Outcome    Outcome
	ResultText string
	CostUSD    float64
	DurationMS int64
	NumTurns   int
	SessionID  string
	IsError    bool
	RawStdout  string
}

// Interface is the contract the pipeline consumes; it allows tests to
// substitute a scripted agent for the real CLI.
type Interface interface {
	Invoke(ctx context.Context, req Request) (Response, error)
}
