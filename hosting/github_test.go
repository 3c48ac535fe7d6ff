/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package hosting

import (
	"strings"
	"testing"
	"time"
)

func TestQueryString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		q    Query
		want []string
		not  []string
	}{{
		name: "defaults",
		q:    Query{},
		want: []string{"is:issue", "is:open"},
		not:  []string{"label:", "language:", "stars:", "no:assignee"},
	}, {
		name: "full query",
		q: Query{
			Labels:     []string{"good first issue", "bug"},
			Language:   "python",
			MinStars:   50,
			Repos:      []string{"octo/widget"},
			NoAssignee: true,
			NoLinkedPR: true,
		},
		want: []string{
			`label:"good first issue"`,
			`label:"bug"`,
			"language:python",
			"stars:>=50",
			"repo:octo/widget",
			"no:assignee",
			"-linked:pr",
		},
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.q.String()
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("query %q missing %q", got, w)
				}
			}
			for _, n := range tt.not {
				if strings.Contains(got, n) {
					t.Errorf("query %q should not contain %q", got, n)
				}
			}
		})
	}
}

func TestQueryStringMaxAge(t *testing.T) {
	t.Parallel()
	got := Query{MaxAgeDays: 90}.String()
	cutoff := time.Now().AddDate(0, 0, -90).Format("2006-01-02")
	if !strings.Contains(got, "created:>="+cutoff) {
		t.Errorf("query %q missing created:>=%s", got, cutoff)
	}
}

func TestSplitRepositoryURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		url         string
		owner, repo string
		ok          bool
	}{
		{"https://api.github.com/repos/octo/widget", "octo", "widget", true},
		{"https://github.example.com/api/v3/repos/a/b", "a", "b", true},
		{"https://api.github.com/users/octo", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		owner, repo, ok := splitRepositoryURL(tt.url)
		if owner != tt.owner || repo != tt.repo || ok != tt.ok {
			t.Errorf("splitRepositoryURL(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.url, owner, repo, ok, tt.owner, tt.repo, tt.ok)
		}
	}
}

func TestSummarizeDiff(t *testing.T) {
	t.Parallel()
	diff := `diff --git a/pkg/auth.py b/pkg/auth.py
index 1234567..89abcde 100644
--- a/pkg/auth.py
+++ b/pkg/auth.py
@@ -1,3 +1,4 @@
 def login():
-    return None
+    token = issue_token()
+    return token
`
	got, err := SummarizeDiff(diff)
	if err != nil {
		t.Fatalf("SummarizeDiff: %v", err)
	}
	for _, want := range []string{"1 file changed", "+2/-1", "pkg/auth.py"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary %q missing %q", got, want)
		}
	}

	empty, err := SummarizeDiff("   \n")
	if err != nil {
		t.Fatalf("SummarizeDiff(empty): %v", err)
	}
	if empty != "" {
		t.Errorf("SummarizeDiff(empty) = %q, want empty", empty)
	}
}
