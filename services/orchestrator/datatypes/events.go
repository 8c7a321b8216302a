// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// =============================================================================
// Analysis Stream Phases
// =============================================================================

// Phase identifies which stage of the analysis pipeline emitted an event.
type Phase string

const (
	// PhaseMarketData carries the market snapshot gathered in phase 1.
	PhaseMarketData Phase = "market_data"

	// PhaseAnalysis carries the computed report from phase 2.
	PhaseAnalysis Phase = "analysis"

	// PhaseSummary carries the narrative summary from phase 3.
	PhaseSummary Phase = "summary"

	// PhaseComplete is the terminal event on every successful stream.
	PhaseComplete Phase = "complete"

	// PhaseError is the terminal event when the pipeline aborts.
	PhaseError Phase = "error"
)

// =============================================================================
// Stream Event
// =============================================================================

// StreamEvent is a single NDJSON line on the analysis stream.
//
// # Description
//
// Exactly one payload field group is populated, selected by Phase:
// Market for market_data, Report for analysis, Summary/SummaryFallback for
// summary, Disclaimers/GeneratedAt/TraceID for complete, and Error for
// error events.
//
// Each event is automatically assigned by the stream writer:
//   - Id: UUID v4 for ordering and deduplication
//   - CreatedAt: Unix timestamp in milliseconds
//   - Hash: SHA-256 hash of event content for integrity
//   - PrevHash: Hash of previous event for chain verification
type StreamEvent struct {
	Phase     Phase  `json:"phase"`
	Id        string `json:"id,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
	Hash      string `json:"hash,omitempty"`
	PrevHash  string `json:"prev_hash,omitempty"`

	// Market is set on market_data events.
	Market *MarketSnapshot `json:"market,omitempty"`

	// Report is set on analysis events.
	Report *ComputedReport `json:"report,omitempty"`

	// Summary is set on summary events. SummaryFallback is true when the
	// narrative came from the deterministic template rather than a model.
	Summary         string `json:"summary,omitempty"`
	SummaryFallback bool   `json:"summary_fallback,omitempty"`

	// Complete-event fields.
	Disclaimers []string `json:"disclaimers,omitempty"`
	GeneratedAt string   `json:"generated_at,omitempty"`
	TraceID     string   `json:"trace_id,omitempty"`

	// Error is set on error events.
	Error string `json:"error,omitempty"`
}

// NewErrorEvent builds a terminal error event with a client-safe message.
func NewErrorEvent(message string) StreamEvent {
	return StreamEvent{Phase: PhaseError, Error: message}
}
