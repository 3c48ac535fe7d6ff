/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agent

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"chainguard.dev/issueagent/invoke"
	"github.com/chainguard-dev/clog"
)

const defaultBinary = "claude"

// CLI invokes the Claude Code CLI as a subprocess.
type CLI struct {
	binary string
	runner func(context.Context, invoke.Command) (invoke.Result, error)
}

// Option configures a CLI.
type Option func(*CLI) error

// WithBinary overrides the agent binary name, mainly for tests that
// substitute a scripted executable.
func WithBinary(binary string) Option {
	return func(c *CLI) error {
		if binary == "" {
			return fmt.Errorf("binary cannot be empty")
		}
		c.binary = binary
		return nil
	}
}

// NewCLI constructs a CLI invoker.
func NewCLI(opts ...Option) (*CLI, error) {
	c := &CLI{
		binary: defaultBinary,
		runner: invoke.Run,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	return c, nil
}

// CheckInstalled verifies the agent binary is present and responsive.
func (c *CLI) CheckInstalled(ctx context.Context) error {
	res, err := c.runner(ctx, invoke.Command{
		Argv:    []string{c.binary, "--version"},
		Timeout: 10 * time.Second,
	})
	if err != nil || res.ExitCode != 0 || res.TimedOut {
		return fmt.Errorf("%s CLI is not installed or not responding; install with: npm install -g @anthropic-ai/claude-code", c.binary)
	}
	return nil
}

// Invoke runs the agent once and parses its JSON output. Invocations are
// never retried here: agent runs are costly and side-effecting.
func (c *CLI) Invoke(ctx context.Context, req Request) (Response, error) {
	argv := []string{c.binary, "-p", req.Prompt, "--output-format", "json"}
	if req.MaxTurns > 0 {
		argv = append(argv, "--max-turns", strconv.Itoa(req.MaxTurns))
	}
	if req.Model != "" {
		argv = append(argv, "--model", req.Model)
	}
	if req.PermissionMode != "" {
		argv = append(argv, "--permission-mode", req.PermissionMode)
	}
	if req.MaxBudgetUSD > 0 {
		argv = append(argv, "--max-budget-usd", fmt.Sprintf("%.2f", req.MaxBudgetUSD))
	}

	clog.FromContext(ctx).With("model", req.Model).
		With("max_turns", req.MaxTurns).
		With("budget_usd", req.MaxBudgetUSD).
		With("dir", req.Dir).
		Debug("Invoking agent CLI")

	res, err := c.runner(ctx, invoke.Command{
		Argv:    argv,
		Dir:     req.Dir,
		Timeout: req.Timeout,
	})
	if err != nil {
		return Response{}, fmt.Errorf("invoking %s: %w", c.binary, err)
	}
	if res.TimedOut {
		clog.FromContext(ctx).With("timeout", req.Timeout).Warn("Agent CLI timed out")
	}
	return Parse(ctx, res), nil
}
