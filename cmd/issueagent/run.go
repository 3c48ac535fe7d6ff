/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"chainguard.dev/issueagent/pipeline"
	"chainguard.dev/issueagent/report"
)

var (
	runSkipScan    bool
	runMaxIssues   int
	runAPIAnalysis bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a full session: scan, analyze, fix, submit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		if runMaxIssues > 0 {
			cfg.MaxIssuesPerRun = runMaxIssues
		}

		d, err := buildDeps(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.checkPrerequisites(ctx); err != nil {
			return err
		}

		res, err := d.orchestrator(runAPIAnalysis).Run(ctx, runSkipScan)
		var budgetErr *pipeline.BudgetExceededError
		if err != nil && !errors.As(err, &budgetErr) {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), report.Session(res))
		// A budget stop still gets its report, but the error carries
		// through so the process exits with the budget code.
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runSkipScan, "skip-scan", false, "Work the existing backlog without searching for new issues")
	runCmd.Flags().IntVar(&runMaxIssues, "max-issues", 0, "Override the per-run issue cap")
	runCmd.Flags().BoolVar(&runAPIAnalysis, "api-analysis", false, "Triage via the Messages API instead of the agent CLI")
}
