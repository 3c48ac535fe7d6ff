/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package result extracts JSON objects from agent responses that may wrap
// the payload in prose or markdown fences. Extraction tries, in order: a
// direct parse of the whole text, the contents of a fenced code block,
// and finally the first balanced {...} substring. All functions are
// stateless and safe for concurrent use.
package result
