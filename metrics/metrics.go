/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package metrics provides OpenTelemetry counters for pipeline activity:
// agent invocations, dollar spend, and attempt outcomes. Counter creation
// degrades gracefully; a failed instrument becomes a no-op rather than
// disabling the pipeline.
package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"chainguard.dev/issueagent/models"
)

// Pipeline records metrics for one pipeline process. Model, stage, and
// outcome are dimensions on the recorded metrics rather than separate
// instruments.
type Pipeline struct {
	meter       metric.Meter
	invocations metric.Int64Counter
	spend       metric.Float64Counter
	outcomes    metric.Int64Counter
}

// NewPipeline creates a Pipeline metrics instance under the given meter
// name.
func NewPipeline(meterName string) *Pipeline {
	meter := otel.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))

	invocations, err := meter.Int64Counter("issueagent.agent.invocations",
		metric.WithDescription("The number of coding agent invocations"),
		metric.WithUnit("{invocations}"))
	if err != nil {
		slog.Warn("Failed to create invocation counter, metrics will be disabled", "error", err, "meter", meterName)
		invocations = noop.Int64Counter{}
	}

	spend, err := meter.Float64Counter("issueagent.agent.spend",
		metric.WithDescription("Agent spend in US dollars"),
		metric.WithUnit("{USD}"))
	if err != nil {
		slog.Warn("Failed to create spend counter, metrics will be disabled", "error", err, "meter", meterName)
		spend = noop.Float64Counter{}
	}

	outcomes, err := meter.Int64Counter("issueagent.attempt.outcomes",
		metric.WithDescription("Terminal resolution attempt outcomes"),
		metric.WithUnit("{attempts}"))
	if err != nil {
		slog.Warn("Failed to create outcome counter, metrics will be disabled", "error", err, "meter", meterName)
		outcomes = noop.Int64Counter{}
	}

	return &Pipeline{
		meter:       meter,
		invocations: invocations,
		spend:       spend,
		outcomes:    outcomes,
	}
}

// RecordInvocation records one agent call and its cost. Stage is
// "analysis" or "resolution".
func (p *Pipeline) RecordInvocation(ctx context.Context, stage, model string, costUSD float64) {
	attrs := metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("model", model),
	)
	p.invocations.Add(ctx, 1, attrs)
	p.spend.Add(ctx, costUSD, attrs)
}

// RecordOutcome records a terminal attempt outcome.
func (p *Pipeline) RecordOutcome(ctx context.Context, outcome models.Outcome, language string) {
	p.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", string(outcome)),
		attribute.String("language", language),
	))
}
