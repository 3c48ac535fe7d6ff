/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Command issueagent finds open GitHub issues, triages them with an
// LLM, drives an agent to fix the accepted ones, and submits the fixes
// as pull requests.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"chainguard.dev/issueagent/config"
	"chainguard.dev/issueagent/pipeline"
)

var (
	configPath string
	dryRun     bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "issueagent",
	Short: "Automated GitHub issue triage and resolution",
	Long: `Issueagent scans GitHub for approachable open issues, rates their
solvability with a cheap model, lets an agent attempt a fix in a cloned
workspace, verifies the change against the project's own tests, and
submits passing fixes as pull requests from a fork.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		log := clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		cmd.SetContext(clog.WithLogger(cmd.Context(), log))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: discovered)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Stop short of pushing branches and opening PRs")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// Exit codes distinguish failure classes so scripted callers can react
// without parsing output.
const (
	exitGeneralError       = 1
	exitPrerequisiteFailed = 2
	exitBudgetExceeded     = 3
	exitAnalysisRejected   = 4
	exitTestsFailed        = 5
)

// errTestsFailed marks a resolution whose change regressed the
// project's tests.
var errTestsFailed = errors.New("the change introduced test regressions")

func exitCode(err error) int {
	var (
		prereq   *pipeline.PrerequisiteError
		budget   *pipeline.BudgetExceededError
		rejected *pipeline.AnalysisRejectedError
	)
	switch {
	case err == nil:
		return 0
	case errors.As(err, &prereq):
		return exitPrerequisiteFailed
	case errors.As(err, &budget):
		return exitBudgetExceeded
	case errors.As(err, &rejected):
		return exitAnalysisRejected
	case errors.Is(err, errTestsFailed):
		return exitTestsFailed
	}
	return exitGeneralError
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(exitCode(err))
	}
}

// loadConfig builds the effective configuration, with the --dry-run
// flag layered on top.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return nil, err
	}
	if dryRun {
		cfg.DryRun = true
	}
	return cfg, nil
}
