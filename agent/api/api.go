/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package api implements the agent contract with a single Anthropic
// Messages API call. It covers the analysis stage, where the prompt
// needs no tools or workspace access and a CLI subprocess per issue
// would be wasteful. Resolution still goes through the CLI backend.
package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/chainguard-dev/clog"

	"chainguard.dev/issueagent/agent"
)

const defaultMaxTokens = 4096

// Client calls the Messages API directly.
type Client struct {
	client    anthropic.Client
	maxTokens int64
}

// Option configures a Client.
type Option func(*Client)

// WithMaxTokens overrides the response token cap.
func WithMaxTokens(n int64) Option {
	return func(c *Client) { c.maxTokens = n }
}

// WithAPIKey authenticates with an explicit key instead of the
// ANTHROPIC_API_KEY environment variable.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.client = anthropic.NewClient(option.WithAPIKey(key))
	}
}

// New creates a Client. Without options it authenticates from the
// environment the way the SDK does by default.
func New(opts ...Option) *Client {
	c := &Client{
		client:    anthropic.NewClient(),
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invoke implements agent.Interface. Tool-oriented request fields
// (MaxTurns, PermissionMode, Dir) have no meaning for a plain API call
// and are ignored.
func (c *Client) Invoke(ctx context.Context, req agent.Request) (agent.Response, error) {
	log := clog.FromContext(ctx)

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	model := resolveModel(req.Model)
	start := time.Now()
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{{
			Role: anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(req.Prompt),
			},
		}},
	})
	elapsed := time.Since(start)
	if err != nil {
		resp := agent.Response{
			Outcome:    agent.OutcomeProcessError,
			IsError:    true,
			DurationMS: elapsed.Milliseconds(),
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			resp.Outcome = agent.OutcomeTimeout
		}
		return resp, nil
	}

	var text string
	for _, content := range message.Content {
		if content.Type == "text" {
			text = content.Text
		}
	}

	cost := estimateCost(model, message.Usage.InputTokens, message.Usage.OutputTokens)
	log.With(
		"model", model,
		"input_tokens", message.Usage.InputTokens,
		"output_tokens", message.Usage.OutputTokens,
		"cost_usd", cost,
	).Debug("Messages API call complete")

	return agent.Response{
		Outcome:    agent.OutcomeSuccess,
		ResultText: text,
		CostUSD:    cost,
		DurationMS: elapsed.Milliseconds(),
		NumTurns:   1,
		SessionID:  message.ID,
	}, nil
}

// resolveModel maps the short aliases the CLI accepts onto API model
// identifiers. Full identifiers pass through untouched.
func resolveModel(model string) string {
	switch model {
	case "haiku":
		return "claude-3-5-haiku-latest"
	case "sonnet":
		return "claude-sonnet-4-5"
	case "opus", "":
		return "claude-opus-4-1"
	}
	return model
}

// pricing is USD per million tokens.
type pricing struct {
	input  float64
	output float64
}

// estimateCost approximates spend from token usage. The API does not
// report cost, so the attempt ledger carries this estimate instead.
func estimateCost(model string, inputTokens, outputTokens int64) float64 {
	p := pricing{input: 3.00, output: 15.00}
	switch {
	case strings.Contains(model, "haiku"):
		p = pricing{input: 1.00, output: 5.00}
	case strings.Contains(model, "opus"):
		p = pricing{input: 15.00, output: 75.00}
	}
	return float64(inputTokens)/1e6*p.input + float64(outputTokens)/1e6*p.output
}
