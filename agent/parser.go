/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agent

import (
	"context"
	"encoding/json"

	"chainguard.dev/issueagent/invoke"
	"github.com/chainguard-dev/clog"
)

// cliOutput mirrors the Claude Code CLI's --output-format json payload.
// Older CLI versions report cost_usd; newer ones total_cost_usd.
type cliOutput struct {
	Result       string   `json:"result"`
	IsError      bool     `json:"is_error"`
	CostUSD      *float64 `json:"cost_usd"`
	TotalCostUSD *float64 `json:"total_cost_usd"`
	DurationMS   int64    `json:"duration_ms"`
	NumTurns     int      `json:"num_turns"`
	SessionID    string   `json:"session_id"`
}

// Parse normalizes a raw invocation result into a Response.
//
// Classification, in priority order: external timeout, non-zero exit,
// unparsable stdout, then the is_error/cost combination. An is_error
// result that consumed budget means the agent was cut off mid-flight;
// one that consumed nothing is a plain process failure.
func Parse(ctx context.Context, res invoke.Result) Response {
	log := clog.FromContext(ctx)

	out := Response{RawStdout: res.Stdout, IsError: true}

	if res.TimedOut {
		out.Outcome = OutcomeTimeout
		return out
	}

	if res.ExitCode != 0 {
		log.With("exit_code", res.ExitCode).
			With("stderr", truncate(res.Stderr, 500)).
			Error("Agent CLI exited non-zero")
		out.Outcome = OutcomeProcessError
		return out
	}

	var data cliOutput
	if err := json.Unmarshal([]byte(res.Stdout), &data); err != nil {
		log.With("error", err).
			With("stdout", truncate(res.Stdout, 500)).
			Error("Agent CLI output is not valid JSON")
		out.Outcome = OutcomeParseError
		return out
	}

	cost := 0.0
	switch {
	case data.CostUSD != nil:
		cost = *data.CostUSD
	case data.TotalCostUSD != nil:
		cost = *data.TotalCostUSD
	}

	out.ResultText = data.Result
	out.CostUSD = cost
	out.DurationMS = data.DurationMS
	out.NumTurns = data.NumTurns
	out.SessionID = data.SessionID
	out.IsError = data.IsError

	switch {
	case data.IsError && cost > 0:
		out.Outcome = OutcomeBudgetExceeded
	case data.IsError:
		out.Outcome = OutcomeProcessError
	default:
		out.Outcome = OutcomeSuccess
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
