// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package guardrails implements the four-layer safety pipeline around the
// advisor: input screening, prompt hardening, tool-parameter validation,
// and output fact-checking.
package guardrails

// Verdict is the outcome of input screening.
type Verdict struct {
	Allowed bool `json:"allowed"`

	// Reason is a machine-readable denial category: "too_long",
	// "injection", "off_topic". Empty when allowed.
	Reason string `json:"reason,omitempty"`

	// Response is the canned reply to return when denied.
	Response string `json:"response,omitempty"`
}

// Discrepancy records one numeric claim that disagrees with the computed
// report.
type Discrepancy struct {
	Field         string  `json:"field"`
	CitedValue    float64 `json:"cited_value"`
	ExpectedValue float64 `json:"expected_value"`
	DeviationPct  float64 `json:"deviation_pct"`
}

// FactCheckResult is the outcome of output fact-checking. It annotates,
// never blocks.
type FactCheckResult struct {
	Discrepancies []Discrepancy `json:"discrepancies,omitempty"`

	// CorrectionNote is a single footnote listing expected values.
	// Empty when no discrepancies were found.
	CorrectionNote string `json:"correction_note,omitempty"`
}

// Denial reason categories.
const (
	ReasonTooLong   = "too_long"
	ReasonInjection = "injection"
	ReasonOffTopic  = "off_topic"
)
