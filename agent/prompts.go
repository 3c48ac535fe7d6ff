/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"chainguard.dev/issueagent/models"
	"github.com/invopop/jsonschema"
)

// AnalysisResponse is the structured answer the analysis prompt asks
// for. Its reflected JSON schema is embedded in the prompt so the model
// has an exact contract to satisfy.
type AnalysisResponse struct {
	Rating     string  `json:"rating" jsonschema:"enum=solvable,enum=likely_solvable,enum=unlikely_solvable,enum=unsolvable,enum=needs_context"`
	Confidence float64 `json:"confidence" jsonschema:"minimum=0,maximum=1"`
	Complexity string  `json:"complexity,omitempty" jsonschema:"enum=low,enum=medium,enum=high"`
	Reasoning  string  `json:"reasoning"`
}

func analysisSchema() string {
	r := jsonschema.Reflector{
		ExpandedStruct:             true,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	data, err := json.MarshalIndent(r.Reflect(&AnalysisResponse{}), "", "  ")
	if err != nil {
		// Reflection of a static struct cannot fail at runtime.
		panic(err)
	}
	return string(data)
}

// BuildAnalysisPrompt returns the solvability analysis prompt for an
// issue. The model is instructed to answer with a single JSON object.
func BuildAnalysisPrompt(issue *models.Issue) string {
	labels := "none"
	if len(issue.Labels) > 0 {
		labels = strings.Join(issue.Labels, ", ")
	}
	language := issue.Language
	if language == "" {
		language = "unknown"
	}
	body := issue.Body
	if body == "" {
		body = "(no description)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Analyze this GitHub issue for solvability. You are evaluating whether an automated AI coding agent can successfully fix this issue.

## Issue Details

**Repository**: %s
**Issue #%d**: %s
**Labels**: %s
**Language**: %s

**Description**:
%s

## Instructions

Respond with ONLY a JSON object (no markdown, no code blocks) conforming to this schema:

%s

Rating meanings:
- "solvable": Clear bug with reproduction steps, specific error, small scope
- "likely_solvable": Probable fix but some uncertainty
- "unlikely_solvable": Vague, large scope, significant uncertainty
- "unsolvable": Feature request, design discussion, requires maintainer decision
- "needs_context": Cannot be judged without information the issue does not contain

Factors that increase solvability: specific error messages or stack traces, clear reproduction steps, small well-defined scope, maintainer comments pointing to the fix location, existing test cases that fail.

Factors that decrease solvability: vague "doesn't work" descriptions, feature requests or design discussions, deep architectural changes, no reproduction steps, multiple interconnected issues.`,
		issue.FullRepo(), issue.Number, issue.Title, labels, language, body, analysisSchema())
	return b.String()
}

// ResolutionContext carries the optional project material folded into
// the resolution prompt.
type ResolutionContext struct {
	ContributingMD string
	PRTemplate     string
	TestCommand    string
	InstallCommand string
}

// BuildResolutionPrompt returns the full resolution prompt used with the
// multi-turn, bypass-permission agent run.
func BuildResolutionPrompt(issue *models.Issue, rc ResolutionContext) string {
	labels := "none"
	if len(issue.Labels) > 0 {
		labels = strings.Join(issue.Labels, ", ")
	}
	body := issue.Body
	if body == "" {
		body = "(no description)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `You are fixing a GitHub issue. Your goal is to implement a correct fix, ensure tests pass, and commit the changes.

## Issue Details

**Repository**: %s
**Issue #%d**: %s
**Labels**: %s

**Description**:
%s

## Instructions

1. Understand the issue thoroughly — read relevant source files, tests, and related code
2. Implement a minimal, focused fix that addresses the issue
3. Follow the project's coding style and conventions
`, issue.FullRepo(), issue.Number, issue.Title, labels, body)

	if rc.ContributingMD != "" {
		fmt.Fprintf(&b, "\n## Contributing Guidelines\n\n%s\n", truncate(rc.ContributingMD, 3000))
	}

	if rc.TestCommand != "" {
		fmt.Fprintf(&b, "\n## Testing\n\nRun the project's tests to verify your fix:\n```\n%s\n```\n\n- Your fix MUST NOT break existing tests\n- Add new test cases if appropriate\n- If tests fail, investigate and fix your implementation\n", rc.TestCommand)
	} else {
		b.WriteString("\n## Testing\n\nNo test runner was detected for this project. Verify your changes manually by reviewing the code carefully.\n")
	}

	b.WriteString(`
## Commit

After implementing and testing the fix:
1. Stage your changes with ` + "`git add`" + `
2. Commit with a descriptive message: ` + "`git commit -m \"Fix: <concise description>\"`" + `
3. Do NOT push — the tool handles pushing and PR creation

## Quality

- Keep changes minimal and focused on the issue
- Do not refactor unrelated code
- Add comments only where the logic isn't self-evident
- Follow existing code patterns in the repository
`)

	if rc.PRTemplate != "" {
		fmt.Fprintf(&b, "\n## PR Template Reference\n\nUse this as guidance for what information to include in your commit message:\n%s\n", truncate(rc.PRTemplate, 2000))
	}

	return b.String()
}
