/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package store persists issues, analyses, and resolution attempts in a
// local SQLite database. Issues upsert on (owner, repo, number) so
// re-scans are idempotent, analyses are append-only, and attempts are
// updated in place as a resolution progresses.
package store
