/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"chainguard.dev/issueagent/models"
	"chainguard.dev/issueagent/pipeline"
	"chainguard.dev/issueagent/store"
)

var (
	resolveForce       bool
	resolveAPIAnalysis bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve owner/repo#number",
	Short: "Attempt a fix for one specific issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		owner, repo, number, err := parseIssueRef(args[0])
		if err != nil {
			return err
		}

		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		d, err := buildDeps(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.checkPrerequisites(ctx); err != nil {
			return err
		}

		iss, err := d.host.GetIssue(ctx, owner, repo, number)
		if err != nil {
			return fmt.Errorf("fetching issue: %w", err)
		}
		iss, err = d.store.UpsertIssue(ctx, iss)
		if err != nil {
			return err
		}

		analysis, err := d.store.LatestAnalysis(ctx, iss.ID)
		if errors.Is(err, store.ErrNotFound) {
			analyzer := pipeline.NewAnalyzer(d.analysisAgent(resolveAPIAnalysis),
				d.store, cfg.Agent, cfg.Budget, d.metrics)
			analysis, err = analyzer.Analyze(ctx, iss)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Analysis: %s (confidence %.2f)\n",
			analysis.Rating, analysis.Confidence)

		if !analysis.PassesThreshold() && !resolveForce {
			return &pipeline.AnalysisRejectedError{
				Issue:      iss.Ref(),
				Rating:     analysis.Rating,
				Confidence: analysis.Confidence,
			}
		}

		resolver := pipeline.NewResolver(d.cli, d.store, d.ws, d.host, d.git, cfg, d.metrics)
		attempt, err := resolver.Resolve(ctx, iss)
		if err != nil {
			return err
		}

		printAttempt(cmd, attempt)
		if attempt.Outcome == models.OutcomeTestsFailed {
			return errTestsFailed
		}
		return nil
	},
}

func printAttempt(cmd *cobra.Command, attempt *models.Attempt) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Outcome: %s (cost $%.2f)\n", attempt.Outcome, attempt.CostUSD)
	if attempt.PRURL != "" {
		fmt.Fprintf(out, "Pull request: %s\n", attempt.PRURL)
	}
	if !attempt.Outcome.Publishable() && attempt.WorkspacePath != "" {
		fmt.Fprintf(out, "Workspace kept for inspection: %s\n", attempt.WorkspacePath)
	}
}

// parseIssueRef parses "owner/repo#number".
func parseIssueRef(ref string) (owner, repo string, number int, err error) {
	slug, num, ok := strings.Cut(ref, "#")
	if ok {
		owner, repo, ok = strings.Cut(slug, "/")
	}
	if !ok || owner == "" || repo == "" {
		return "", "", 0, fmt.Errorf("invalid issue reference %q, want owner/repo#number", ref)
	}
	number, err = strconv.Atoi(num)
	if err != nil || number <= 0 {
		return "", "", 0, fmt.Errorf("invalid issue number in %q", ref)
	}
	return owner, repo, number, nil
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().BoolVar(&resolveForce, "force", false, "Attempt the fix even if analysis rejected the issue")
	resolveCmd.Flags().BoolVar(&resolveAPIAnalysis, "api-analysis", false, "Triage via the Messages API instead of the agent CLI")
}
