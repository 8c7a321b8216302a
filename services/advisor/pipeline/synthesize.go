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
	"strings"

	"github.com/nestready/nestready/services/llm"
	"github.com/nestready/nestready/services/orchestrator/datatypes"
)

const summaryPrompt = `You are a home affordability advisor. Write a short plain-language
summary (at most 180 words) of this analysis for the buyer. Lead with the
price range they can afford, mention the monthly payment, name the risk
level, and close with the single most important recommendation. Use only
the numbers given below. Do not invent figures.

%s`

// synthesize produces the narrative summary for the report.
//
// The model call is bounded by the synthesis timeout; on timeout, model
// error, or an unconfigured model the deterministic template takes over.
// The second return value reports whether the template was used.
func (p *Pipeline) synthesize(ctx context.Context, profile *datatypes.Profile, snapshot *datatypes.MarketSnapshot, report *datatypes.ComputedReport) (string, bool) {
	if p.model == nil {
		return templateSummary(snapshot, report), true
	}

	ctx, cancel := context.WithTimeout(ctx, p.synthesisTimeout)
	defer cancel()

	temperature := float32(0.3)
	prompt := fmt.Sprintf(summaryPrompt, reportFacts(profile, snapshot, report))
	text, err := p.model.Generate(ctx, prompt, llm.GenerationParams{Temperature: &temperature})
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			p.logger.Warn("summary synthesis failed, using template", "error", err)
		}
		return templateSummary(snapshot, report), true
	}
	return strings.TrimSpace(text), false
}

// reportFacts renders the numbers the model is allowed to cite.
func reportFacts(profile *datatypes.Profile, snapshot *datatypes.MarketSnapshot, report *datatypes.ComputedReport) string {
	var b strings.Builder
	afford := report.Affordability
	fmt.Fprintf(&b, "Annual income: $%.0f\n", profile.AnnualIncome)
	fmt.Fprintf(&b, "Maximum purchase price: $%.0f\n", afford.MaxPurchasePrice)
	fmt.Fprintf(&b, "Recommended price: $%.0f\n", afford.RecommendedPrice)
	fmt.Fprintf(&b, "Monthly payment at maximum: $%.2f\n", afford.MonthlyPayment)
	fmt.Fprintf(&b, "30-year fixed rate: %.2f%%\n", snapshot.Rates.ThirtyYearFixed*100)
	fmt.Fprintf(&b, "Risk level: %s\n", report.Risk.Level)
	if len(report.Recommendations) > 0 {
		fmt.Fprintf(&b, "Top recommendation: %s\n", report.Recommendations[0].Title)
	}
	if len(snapshot.Fallbacks) > 0 {
		fmt.Fprintf(&b, "Note: default market figures were used for: %s\n", strings.Join(snapshot.Fallbacks, ", "))
	}
	return b.String()
}

// templateSummary is the deterministic fallback narrative.
func templateSummary(snapshot *datatypes.MarketSnapshot, report *datatypes.ComputedReport) string {
	afford := report.Affordability
	var b strings.Builder
	fmt.Fprintf(&b, "Based on your finances, you can afford a home up to $%.0f, with a recommended target of $%.0f. ", afford.MaxPurchasePrice, afford.RecommendedPrice)
	fmt.Fprintf(&b, "At the current 30-year rate of %.2f%%, the monthly payment at your maximum price would be about $%.0f. ", snapshot.Rates.ThirtyYearFixed*100, afford.MonthlyPayment)
	fmt.Fprintf(&b, "Your overall risk level is %s.", report.Risk.Level)
	if len(report.Recommendations) > 0 {
		fmt.Fprintf(&b, " Next step: %s.", strings.TrimSuffix(report.Recommendations[0].Title, "."))
	}
	if len(snapshot.Fallbacks) > 0 {
		b.WriteString(" Some market figures were unavailable, so standard estimates were used.")
	}
	return b.String()
}
