/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chainguard.dev/issueagent/report"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the all-time funnel from the local database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		// No token needed to read the local database.
		d, err := buildDeps(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer d.Close()

		stats, err := d.store.Summarize(ctx)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), report.Status(stats))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
