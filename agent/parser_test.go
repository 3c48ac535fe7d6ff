/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agent_test

import (
	"context"
	"testing"

	"chainguard.dev/issueagent/agent"
	"chainguard.dev/issueagent/invoke"
)

func TestParse_Classification(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		res  invoke.Result
		want agent.Outcome
	}{{
		name: "timeout wins over everything",
		res:  invoke.Result{Stdout: `{"is_error": false, "cost_usd": 1.0}`, TimedOut: true},
		want: agent.OutcomeTimeout,
	}, {
		name: "non-zero exit",
		res:  invoke.Result{ExitCode: 1, Stderr: "auth error"},
		want: agent.OutcomeProcessError,
	}, {
		name: "malformed stdout",
		res:  invoke.Result{Stdout: "not json at all"},
		want: agent.OutcomeParseError,
	}, {
		name: "json array is not an object",
		res:  invoke.Result{Stdout: `[{"is_error": false}]`},
		want: agent.OutcomeParseError,
	}, {
		name: "success regardless of cost",
		res:  invoke.Result{Stdout: `{"is_error": false, "cost_usd": 4.99, "result": "done"}`},
		want: agent.OutcomeSuccess,
	}, {
		name: "success at zero cost",
		res:  invoke.Result{Stdout: `{"is_error": false, "cost_usd": 0}`},
		want: agent.OutcomeSuccess,
	}, {
		name: "error with spend is a budget cutoff",
		res:  invoke.Result{Stdout: `{"is_error": true, "cost_usd": 2.50}`},
		want: agent.OutcomeBudgetExceeded,
	}, {
		name: "error without spend is a process error",
		res:  invoke.Result{Stdout: `{"is_error": true, "cost_usd": 0}`},
		want: agent.OutcomeProcessError,
	}, {
		name: "error with only total_cost_usd spend",
		res:  invoke.Result{Stdout: `{"is_error": true, "total_cost_usd": 1.25}`},
		want: agent.OutcomeBudgetExceeded,
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := agent.Parse(context.Background(), tt.res)
			if got.Outcome != tt.want {
				t.Errorf("outcome = %s, want %s", got.Outcome, tt.want)
			}
		})
	}
}

func TestParse_CostFieldFallback(t *testing.T) {
	t.Parallel()
	legacy := agent.Parse(context.Background(), invoke.Result{
		Stdout: `{"is_error": false, "cost_usd": 0.42}`,
	})
	modern := agent.Parse(context.Background(), invoke.Result{
		Stdout: `{"is_error": false, "total_cost_usd": 0.42}`,
	})
	if legacy.CostUSD != modern.CostUSD {
		t.Errorf("cost_usd %v != total_cost_usd %v", legacy.CostUSD, modern.CostUSD)
	}
	if legacy.CostUSD != 0.42 {
		t.Errorf("cost = %v, want 0.42", legacy.CostUSD)
	}

	// cost_usd takes precedence when both are present.
	both := agent.Parse(context.Background(), invoke.Result{
		Stdout: `{"is_error": false, "cost_usd": 0.10, "total_cost_usd": 0.99}`,
	})
	if both.CostUSD != 0.10 {
		t.Errorf("cost = %v, want cost_usd value 0.10", both.CostUSD)
	}
}

func TestParse_FullyPopulated(t *testing.T) {
	t.Parallel()
	got := agent.Parse(context.Background(), invoke.Result{
		Stdout: `{"is_error": false, "cost_usd": 1.5, "result": "fixed it",
			"duration_ms": 90000, "num_turns": 12, "session_id": "abc-123"}`,
	})
	if got.ResultText != "fixed it" {
		t.Errorf("result = %q", got.ResultText)
	}
	if got.DurationMS != 90000 {
		t.Errorf("duration_ms = %d", got.DurationMS)
	}
	if got.NumTurns != 12 {
		t.Errorf("num_turns = %d", got.NumTurns)
	}
	if got.SessionID != "abc-123" {
		t.Errorf("session_id = %q", got.SessionID)
	}
}

func TestParse_DefaultsOnEveryBranch(t *testing.T) {
	t.Parallel()
	// Even failure branches return fully populated records: zero
	// numerics, empty strings, never junk.
	for _, res := range []invoke.Result{
		{TimedOut: true},
		{ExitCode: 2},
		{Stdout: "garbage"},
	} {
		got := agent.Parse(context.Background(), res)
		if got.CostUSD != 0 || got.DurationMS != 0 || got.NumTurns != 0 {
			t.Errorf("numeric defaults not zero for %+v: %+v", res, got)
		}
		if got.ResultText != "" || got.SessionID != "" {
			t.Errorf("string defaults not empty for %+v: %+v", res, got)
		}
		if !got.IsError {
			t.Errorf("IsError = false on failure branch for %+v", res)
		}
	}
}
