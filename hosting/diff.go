/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package hosting

import (
	"fmt"
	"strings"

	"github.com/waigani/diffparser"
)

// SummarizeDiff condenses a unified diff into a one-line summary plus
// the list of touched files, suitable for PR bodies and attempt records.
func SummarizeDiff(diffText string) (string, error) {
	diffText = strings.TrimSpace(diffText)
	if diffText == "" {
		return "", nil
	}
	diff, err := diffparser.Parse(diffText)
	if err != nil {
		return "", fmt.Errorf("parsing diff: %w", err)
	}

	var added, removed int
	var files []string
	for _, f := range diff.Files {
		name := f.NewName
		if name == "" {
			name = f.OrigName
		}
		files = append(files, name)
		for _, h := range f.Hunks {
			for _, l := range h.WholeRange.Lines {
				switch l.Mode {
				case diffparser.ADDED:
					added++
				case diffparser.REMOVED:
					removed++
				}
			}
		}
	}
	if len(files) == 0 {
		return "", nil
	}

	noun := "files"
	if len(files) == 1 {
		noun = "file"
	}
	return fmt.Sprintf("%d %s changed (+%d/-%d): %s",
		len(files), noun, added, removed, strings.Join(files, ", ")), nil
}
