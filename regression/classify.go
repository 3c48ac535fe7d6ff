/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package regression

import (
	"chainguard.dev/issueagent/probe"
)

// Run captures one execution of the project's test suite.
type Run struct {
	ExitCode int
	Output   string
}

// Verdict is the outcome of comparing a post-fix test run against the
// baseline.
type Verdict string

const (
	// VerdictPass means the change introduced no new failing tests.
	VerdictPass Verdict = "pass"
	// VerdictUntested means the runner collected zero tests, so the
	// change was never exercised.
	VerdictUntested Verdict = "untested"
	// VerdictRegression means the post-fix run is worse than baseline.
	VerdictRegression Verdict = "regression"
)

// Result pairs a verdict with the newly failing tests, when known.
type Result struct {
	Verdict     Verdict
	NewFailures []string
}

// Classify compares the post-fix run against the baseline run. A clean
// post-fix exit always passes. Otherwise the change passes only when
// every post-fix failure was already failing at baseline; when neither
// run's failures could be extracted, a broken baseline gives the change
// the benefit of the doubt and a clean baseline does not.
func Classify(runnerName string, baseline, post Run) Result {
	if post.ExitCode == 0 {
		return Result{Verdict: VerdictPass}
	}
	if code := probe.NoTestsExitCode(runnerName); code >= 0 && post.ExitCode == code {
		return Result{Verdict: VerdictUntested}
	}

	base := Extract(runnerName, baseline.Output)
	after := Extract(runnerName, post.Output)

	if fresh := after.Diff(base); len(fresh) > 0 {
		return Result{Verdict: VerdictRegression, NewFailures: fresh}
	}
	if len(after) == 0 {
		// Nothing extracted from a failing run. If the baseline was
		// already failing, the signal is no worse than before.
		if baseline.ExitCode != 0 {
			return Result{Verdict: VerdictPass}
		}
		return Result{Verdict: VerdictRegression}
	}
	// Every post-fix failure existed at baseline.
	return Result{Verdict: VerdictPass}
}

const maxOutputLen = 5000

// TruncateOutput trims runner output to its final maxOutputLen bytes,
// keeping the summary end of the log where failures are reported.
func TruncateOutput(s string) string {
	if len(s) <= maxOutputLen {
		return s
	}
	return s[len(s)-maxOutputLen:]
}
