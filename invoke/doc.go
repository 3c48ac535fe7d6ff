/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package invoke runs external commands with a timeout and, optionally,
// exponential-backoff retry on rate-limit responses. It has no awareness
// of pipeline semantics: a timeout is reported as a field on the Result,
// never as an error past this boundary, so callers can record whatever
// partial output the process produced.
package invoke
