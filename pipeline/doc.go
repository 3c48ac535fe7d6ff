/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package pipeline wires discovery, analysis, resolution, and
// submission into the issue-fixing flow. The orchestrator walks issues
// through a scan -> analyze -> resolve -> submit funnel, enforcing the
// per-session spend budget and recording every stage in the store.
package pipeline
