/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chainguard.dev/issueagent/pipeline"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Search GitHub for candidate issues and record them",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		d, err := buildDeps(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer d.Close()

		issues, err := pipeline.NewScanner(d.host, d.store, cfg.Scan).Scan(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Recorded %d candidate issue(s).\n", len(issues))
		for _, iss := range issues {
			fmt.Fprintf(out, "  %s  %s\n", iss.Ref(), iss.Title)
		}

		if remaining, reset, err := d.host.RateLimit(ctx); err == nil {
			fmt.Fprintf(out, "\nSearch rate limit: %d remaining, resets %s\n",
				remaining, reset.Format("15:04:05"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
