// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/nestready/nestready/pkg/logging"
	"github.com/nestready/nestready/services/finmath"
	"github.com/nestready/nestready/services/llm"
	"github.com/nestready/nestready/services/marketdata"
	"github.com/nestready/nestready/services/orchestrator/datatypes"
)

// =============================================================================
// Pipeline States
// =============================================================================

// state tracks the pipeline's position. Transitions only move forward;
// a completed or failed run never re-enters an earlier phase.
type state int

const (
	stateFetching state = iota
	stateComputing
	stateSynthesizing
	stateComplete
	stateError
)

var stateNames = map[state]string{
	stateFetching:     "fetching",
	stateComputing:    "computing",
	stateSynthesizing: "synthesizing",
	stateComplete:     "complete",
	stateError:        "error",
}

func (s state) String() string { return stateNames[s] }

// =============================================================================
// Pipeline
// =============================================================================

// EmitFunc delivers one stream event to the client. A non-nil error means
// the client is gone and the run must stop.
type EmitFunc func(datatypes.StreamEvent) error

// Config holds the pipeline collaborators.
//
// # Inputs
//
//   - Market: snapshot service. Required.
//   - Calculator: report math. Required.
//   - LLM: summary model. Optional; the template fallback covers its absence.
//   - Logger: defaults to a quiet logger.
//   - SynthesisTimeout: model budget for the summary phase. Defaults to 15s.
type Config struct {
	Market           *marketdata.Service
	Calculator       finmath.Calculator
	LLM              llm.LLMClient
	Logger           *logging.Logger
	SynthesisTimeout time.Duration
}

func applyPipelineDefaults(config Config) Config {
	if config.Logger == nil {
		config.Logger = logging.New(logging.Config{Quiet: true})
	}
	if config.SynthesisTimeout <= 0 {
		config.SynthesisTimeout = 15 * time.Second
	}
	return config
}

// Pipeline runs the phased affordability analysis and streams each phase's
// result as soon as it is ready.
//
// # Thread Safety
//
// Immutable after construction. Each Run call carries its own state, so one
// Pipeline serves concurrent requests.
type Pipeline struct {
	market           *marketdata.Service
	calc             finmath.Calculator
	model            llm.LLMClient
	logger           *logging.Logger
	synthesisTimeout time.Duration
}

// New constructs a Pipeline.
func New(config Config) (*Pipeline, error) {
	config = applyPipelineDefaults(config)
	if config.Market == nil {
		return nil, fmt.Errorf("pipeline requires a market data service")
	}
	if config.Calculator == nil {
		return nil, fmt.Errorf("pipeline requires a calculator")
	}
	return &Pipeline{
		market:           config.Market,
		calc:             config.Calculator,
		model:            config.LLM,
		logger:           config.Logger,
		synthesisTimeout: config.SynthesisTimeout,
	}, nil
}

// disclaimers is attached to every complete event.
var disclaimers = []string{
	"This analysis is for educational purposes only and is not financial advice.",
	"Figures are estimates based on the inputs provided and current market data.",
	"Consult a licensed mortgage professional before making purchase decisions.",
}

// Run executes the full pipeline for one profile.
//
// # Description
//
// Phases run strictly in order: fetch market data, compute the report,
// synthesize the narrative, then emit the terminal complete event. Market
// data failures never abort the run; the snapshot service substitutes
// fallback figures and records which fields degraded. The only error paths
// are an invalid profile (one error event, then stop) and a dead client
// (emit failure, stop silently).
//
// # Outputs
//
//   - *datatypes.ComputedReport: the computed report, nil when the run
//     aborted before the computing phase.
//   - error: non-nil when the run did not reach complete.
func (p *Pipeline) Run(ctx context.Context, profile *datatypes.Profile, traceID string, emit EmitFunc) (*datatypes.ComputedReport, error) {
	start := time.Now()
	current := stateFetching

	if err := profile.Validate(); err != nil {
		current = stateError
		p.logger.Warn("analysis rejected", "state", current.String(), "error", err)
		if emitErr := emit(datatypes.NewErrorEvent(err.Error())); emitErr != nil {
			return nil, emitErr
		}
		return nil, err
	}

	snapshot := p.market.Snapshot(ctx, profile)
	if err := emit(datatypes.StreamEvent{Phase: datatypes.PhaseMarketData, Market: snapshot}); err != nil {
		return nil, err
	}

	current = stateComputing
	report := finmath.Compute(p.calc, profile, snapshot)
	if err := emit(datatypes.StreamEvent{Phase: datatypes.PhaseAnalysis, Report: report}); err != nil {
		return report, err
	}

	current = stateSynthesizing
	summary, usedFallback := p.synthesize(ctx, profile, snapshot, report)
	if err := emit(datatypes.StreamEvent{
		Phase:           datatypes.PhaseSummary,
		Summary:         summary,
		SummaryFallback: usedFallback,
	}); err != nil {
		return report, err
	}

	current = stateComplete
	if err := emit(datatypes.StreamEvent{
		Phase:       datatypes.PhaseComplete,
		Disclaimers: disclaimers,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		TraceID:     traceID,
	}); err != nil {
		return report, err
	}

	p.logger.Info("analysis complete",
		"state", current.String(),
		"duration_ms", time.Since(start).Milliseconds(),
		"fallbacks", len(snapshot.Fallbacks),
		"summary_fallback", usedFallback)
	return report, nil
}
