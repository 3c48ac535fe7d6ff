/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package regression compares a project's failing tests before and after
// an agent-authored change. Failing-test identifiers are pulled out of
// runner output by per-ecosystem extractors; the identifiers are a
// best-effort heuristic, so an empty extraction is treated as "unknown",
// never as "no failures". Classification is deliberately permissive when
// the baseline was already broken: the bar is "no worse than baseline",
// not "green suite".
package regression
