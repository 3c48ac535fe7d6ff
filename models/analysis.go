/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AcceptanceConfidence is the minimum confidence an analysis must carry,
// in addition to a solvable-side rating, to pass the gate.
const AcceptanceConfidence = 0.7

// Analysis is one solvability assessment for an issue. Analyses are
// append-only; an issue may accumulate several over time and only the
// latest is authoritative for gating.
type Analysis struct {
	ID         string
	IssueID    string
	Rating     Rating
	Confidence float64
	Complexity string
	Reasoning  string
	CostUSD    float64
	Model      string
	DurationMS int64
	CreatedAt  time.Time
}

// NewAnalysis constructs an Analysis with a fresh ID and timestamp.
func NewAnalysis(issueID string, rating Rating, confidence float64) (*Analysis, error) {
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("confidence %v outside [0, 1]", confidence)
	}
	return &Analysis{
		ID:         uuid.NewString(),
		IssueID:    issueID,
		Rating:     rating,
		Confidence: confidence,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// PassesThreshold reports whether the analysis clears the solvability
// gate: a solvable-side rating with sufficient confidence.
func (a *Analysis) PassesThreshold() bool {
	return (a.Rating == RatingSolvable || a.Rating == RatingLikelySolvable) &&
		a.Confidence >= AcceptanceConfidence
}
