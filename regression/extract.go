/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package regression

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"chainguard.dev/issueagent/probe"
)

// Set holds failing-test identifiers.
type Set map[string]struct{}

// NewSet builds a Set from identifiers.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Diff returns the identifiers present in s but not in other, sorted.
func (s Set) Diff(other Set) []string {
	var out []string
	for id := range s {
		if _, ok := other[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// SubsetOf reports whether every identifier in s is also in other.
func (s Set) SubsetOf(other Set) bool {
	for id := range s {
		if _, ok := other[id]; !ok {
			return false
		}
	}
	return true
}

// Extractor pulls failing-test identifiers out of one runner's output.
type Extractor interface {
	// Runners lists the probe runner names this extractor understands.
	Runners() []string
	// Extract returns the failing-test identifiers found in the output.
	// An empty set means extraction found nothing, which callers must
	// treat as "unknown" rather than "all tests passed".
	Extract(output string) Set
}

var extractors = func() map[string]Extractor {
	m := make(map[string]Extractor)
	for _, e := range []Extractor{
		pytestExtractor{},
		npmExtractor{},
		cargoExtractor{},
		goExtractor{},
		summaryExtractor{},
	} {
		for _, name := range e.Runners() {
			m[name] = e
		}
	}
	return m
}()

// Extract dispatches to the extractor registered for the runner. An
// unrecognized runner yields an empty (unknown) set.
func Extract(runnerName, output string) Set {
	e, ok := extractors[runnerName]
	if !ok {
		return Set{}
	}
	return e.Extract(output)
}

// pytestExtractor matches "FAILED tests/foo.py::test_bar - AssertionError"
// lines, which both pytest and unittest-via-pytest emit.
type pytestExtractor struct{}

func (pytestExtractor) Runners() []string {
	return []string{probe.RunnerPytest, probe.RunnerUnittest}
}

var pytestFailed = regexp.MustCompile(`FAILED\s+(\S+)`)

func (pytestExtractor) Extract(output string) Set {
	s := Set{}
	for _, m := range pytestFailed.FindAllStringSubmatch(output, -1) {
		s[strings.TrimRight(m[1], " -")] = struct{}{}
	}
	return s
}

// npmExtractor matches jest-style "FAIL src/foo.test.js" lines.
type npmExtractor struct{}

func (npmExtractor) Runners() []string { return []string{probe.RunnerNPM} }

var npmFail = regexp.MustCompile(`(?m)^\s*FAIL\s+(\S+)`)

func (npmExtractor) Extract(output string) Set {
	s := Set{}
	for _, m := range npmFail.FindAllStringSubmatch(output, -1) {
		s[m[1]] = struct{}{}
	}
	return s
}

// cargoExtractor matches the "---- test_name stdout ----" headers cargo
// prints for each failing test.
type cargoExtractor struct{}

func (cargoExtractor) Runners() []string { return []string{probe.RunnerCargo} }

var cargoFail = regexp.MustCompile(`----\s+(\S+)\s+stdout\s+----`)

func (cargoExtractor) Extract(output string) Set {
	s := Set{}
	for _, m := range cargoFail.FindAllStringSubmatch(output, -1) {
		s[m[1]] = struct{}{}
	}
	return s
}

// goExtractor matches "--- FAIL: TestName" lines.
type goExtractor struct{}

func (goExtractor) Runners() []string { return []string{probe.RunnerGo} }

var goFail = regexp.MustCompile(`---\s+FAIL:\s+(\S+)`)

func (goExtractor) Extract(output string) Set {
	s := Set{}
	for _, m := range goFail.FindAllStringSubmatch(output, -1) {
		s[m[1]] = struct{}{}
	}
	return s
}

// summaryExtractor covers runners whose output we can only read at the
// summary level (rspec, maven, gradle). It synthesizes one identifier
// per non-zero failure count, enough to notice "failures appeared" even
// when individual test names are unavailable.
type summaryExtractor struct{}

func (summaryExtractor) Runners() []string {
	return []string{probe.RunnerRSpec, probe.RunnerMaven, probe.RunnerGradle}
}

var summaryFailures = regexp.MustCompile(`(\d+)\s+failures?`)

func (summaryExtractor) Extract(output string) Set {
	s := Set{}
	for _, m := range summaryFailures.FindAllStringSubmatch(output, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			s["_unknown_failure_"+m[0]] = struct{}{}
		}
	}
	return s
}
