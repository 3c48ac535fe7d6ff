/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when no parseable JSON object can be found.
var ErrNoJSON = errors.New("no JSON object found in response")

// Extract parses a JSON object of type T out of a free-text response.
// Candidates are tried in priority order: the whole text, a fenced code
// block, the first balanced {...} substring.
func Extract[T any](text string) (T, error) {
	var out T
	for _, candidate := range candidates(text) {
		if json.Unmarshal([]byte(candidate), &out) == nil {
			return out, nil
		}
	}
	var zero T
	return zero, ErrNoJSON
}

// ExtractObject is Extract specialized to a generic JSON object, for
// callers that inspect fields dynamically.
func ExtractObject(text string) (map[string]any, error) {
	return Extract[map[string]any](text)
}

func candidates(text string) []string {
	var out []string
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		out = append(out, trimmed)
	}
	if fenced := fencedBlock(text); fenced != "" {
		out = append(out, fenced)
	}
	if braced := balancedBraces(text); braced != "" {
		out = append(out, braced)
	}
	return out
}

// fencedBlock returns the contents of the first ```json (or bare ```)
// fenced block, or "" when the text has no complete fence.
func fencedBlock(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return ""
	}
	rest := text[start+3:]
	// Skip the language tag up to the end of the opening line.
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		return ""
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// balancedBraces returns the first balanced {...} substring, tracking
// string literals so braces inside JSON strings do not confuse the scan.
func balancedBraces(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
