/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package agent drives the Claude Code CLI as a black-box coding agent.
// It builds the command line for one-shot JSON invocations, normalizes
// the raw process result into a typed Response, and carries the prompt
// templates for both the cheap solvability analysis and the full
// resolution run.
package agent
