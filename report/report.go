/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package report renders session results and funnel statistics as
// markdown tables for terminal output.
package report

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"chainguard.dev/issueagent/models"
	"chainguard.dev/issueagent/pipeline"
	"chainguard.dev/issueagent/store"
)

// createStandardTable creates a table writer with the formatting used
// across all reports.
func createStandardTable(headers []string, w io.Writer) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		MaxWidth: 100,
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// Session renders one run's results.
func Session(res *pipeline.Result) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "## Session Summary\n\n")
	fmt.Fprintf(&buf, "Scanned %d, considered %d, attempted %d, submitted %d, failed %d, rejected %d. Spent $%.2f.\n",
		res.Scanned, res.Considered, res.Attempted, res.Submitted, res.Failed, res.Rejected, res.SpentUSD)
	if res.BudgetExceeded {
		buf.WriteString("Session stopped early: budget exhausted.\n")
	}
	if len(res.Issues) == 0 {
		return buf.String()
	}
	buf.WriteString("\n")

	table := createStandardTable([]string{"Issue", "Rating", "Outcome", "PR", "Cost"}, &buf)
	for _, ir := range res.Issues {
		rating, outcome, pr, cost := "-", "-", "-", "-"
		if ir.Analysis != nil {
			rating = fmt.Sprintf("%s (%.2f)", ir.Analysis.Rating, ir.Analysis.Confidence)
		}
		switch {
		case ir.Attempt != nil:
			outcome = string(ir.Attempt.Outcome)
			cost = fmt.Sprintf("$%.2f", ir.Attempt.CostUSD)
			if ir.Attempt.PRURL != "" {
				pr = ir.Attempt.PRURL
			}
		case ir.Rejected:
			outcome = "rejected"
		case ir.Err != nil:
			outcome = "error"
		}
		_ = table.Append([]string{ir.Issue.Ref(), rating, outcome, pr, cost})
	}
	_ = table.Render()
	return buf.String()
}

// Status renders the all-time funnel from stored statistics.
func Status(st *store.Stats) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "## Pipeline Status\n\n")
	funnel := createStandardTable([]string{"Stage", "Count"}, &buf)
	for _, row := range [][]string{
		{"Issues discovered", fmt.Sprintf("%d", st.Issues)},
		{"Analyzed", fmt.Sprintf("%d", st.Analyzed)},
		{"Accepted", fmt.Sprintf("%d", st.Accepted)},
		{"Attempted", fmt.Sprintf("%d", st.Attempted)},
		{"PRs submitted", fmt.Sprintf("%d", st.PRsSubmitted)},
	} {
		_ = funnel.Append(row)
	}
	_ = funnel.Render()
	fmt.Fprintf(&buf, "\nTotal spend: $%.2f\n", st.TotalCostUSD)

	if len(st.OutcomeCounts) > 0 {
		buf.WriteString("\n### Outcomes\n\n")
		outcomes := createStandardTable([]string{"Outcome", "Count"}, &buf)
		for _, o := range sortedOutcomes(st.OutcomeCounts) {
			_ = outcomes.Append([]string{string(o), fmt.Sprintf("%d", st.OutcomeCounts[o])})
		}
		_ = outcomes.Render()
	}

	if len(st.Languages) > 0 {
		buf.WriteString("\n### By Language\n\n")
		langs := createStandardTable([]string{"Language", "Issues", "Attempted", "PRs"}, &buf)
		for _, ls := range st.Languages {
			_ = langs.Append([]string{
				ls.Language,
				fmt.Sprintf("%d", ls.Issues),
				fmt.Sprintf("%d", ls.Attempted),
				fmt.Sprintf("%d", ls.PRs),
			})
		}
		_ = langs.Render()
	}
	return buf.String()
}

func sortedOutcomes(counts map[models.Outcome]int) []models.Outcome {
	out := make([]models.Outcome, 0, len(counts))
	for o := range counts {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return strings.Compare(string(out[i]), string(out[j])) < 0
	})
	return out
}
