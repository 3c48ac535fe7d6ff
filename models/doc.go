/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package models defines the domain entities shared across the resolution
// pipeline: discovered Issues, solvability Analyses, and resolution
// Attempts, together with the closed enumerations (rating, status,
// outcome) that classify them. The enumerations are validated at parse
// and persistence boundaries so that no unrecognized value can reach the
// store.
package models
