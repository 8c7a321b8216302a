// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package guardrails

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/nestready/nestready/services/orchestrator/datatypes"
)

// DefaultDeviationThreshold is the relative deviation above which a cited
// figure is recorded as a discrepancy.
const DefaultDeviationThreshold = 0.20

// fieldMatcher pairs a report field with a regex that finds the field
// phrase followed by a nearby dollar or percent figure. The last capture
// group is the number.
type fieldMatcher struct {
	field   string
	pattern *regexp.Regexp
	percent bool
	extract func(*datatypes.ComputedReport) float64
}

var fieldMatchers = []fieldMatcher{
	{
		field:   "max_purchase_price",
		pattern: regexp.MustCompile(`(?i)max(?:imum)?\s+purchase\s+price[^$%\d]{0,40}\$\s?([\d,]+(?:\.\d+)?)`),
		extract: func(r *datatypes.ComputedReport) float64 { return r.Affordability.MaxPurchasePrice },
	},
	{
		field:   "recommended_price",
		pattern: regexp.MustCompile(`(?i)recommended\s+(?:purchase\s+)?price[^$%\d]{0,40}\$\s?([\d,]+(?:\.\d+)?)`),
		extract: func(r *datatypes.ComputedReport) float64 { return r.Affordability.RecommendedPrice },
	},
	{
		field:   "monthly_payment",
		pattern: regexp.MustCompile(`(?i)monthly\s+payment[^$%\d]{0,40}\$\s?([\d,]+(?:\.\d+)?)`),
		extract: func(r *datatypes.ComputedReport) float64 { return r.Affordability.MonthlyPayment },
	},
	{
		field:   "front_end_dti",
		pattern: regexp.MustCompile(`(?i)front[- ]end\s+DTI[^%\d]{0,30}([\d.]+)\s?%`),
		percent: true,
		extract: func(r *datatypes.ComputedReport) float64 { return r.Affordability.FrontEndDTI },
	},
	{
		field:   "back_end_dti",
		pattern: regexp.MustCompile(`(?i)back[- ]end\s+DTI[^%\d]{0,30}([\d.]+)\s?%`),
		percent: true,
		extract: func(r *datatypes.ComputedReport) float64 { return r.Affordability.BackEndDTI },
	},
	{
		field:   "thirty_year_rate",
		pattern: regexp.MustCompile(`(?i)30[- ]year(?:\s+fixed)?(?:\s+(?:rate|mortgage))?[^%\d]{0,30}([\d.]+)\s?%`),
		percent: true,
		extract: func(r *datatypes.ComputedReport) float64 { return r.ThirtyYearRate },
	},
}

// =============================================================================
// Fact Checker
// =============================================================================

// FactChecker is the fourth guardrail layer: numeric claims in model
// output are compared against the computed report.
//
// # Description
//
// Matching is phrase-anchored, so stray numbers in unrelated sentences are
// ignored. Discrepancies never block or rewrite the response; they only
// add one correction footnote listing the expected values.
//
// # Thread Safety
//
// Stateless after construction, safe for concurrent use.
type FactChecker struct {
	threshold float64
}

// NewFactChecker builds a checker. threshold <= 0 takes the 0.20 default.
func NewFactChecker(threshold float64) *FactChecker {
	if threshold <= 0 {
		threshold = DefaultDeviationThreshold
	}
	return &FactChecker{threshold: threshold}
}

// Check scans responseText for cited figures that disagree with report.
func (f *FactChecker) Check(responseText string, report *datatypes.ComputedReport) FactCheckResult {
	if report == nil {
		return FactCheckResult{}
	}

	var result FactCheckResult
	for _, matcher := range fieldMatchers {
		match := matcher.pattern.FindStringSubmatch(responseText)
		if match == nil {
			continue
		}

		cited, err := parseNumber(match[len(match)-1])
		if err != nil {
			continue
		}
		if matcher.percent {
			cited /= 100
		}

		expected := matcher.extract(report)
		if expected == 0 {
			continue
		}

		deviation := math.Abs(cited-expected) / math.Abs(expected)
		if deviation > f.threshold {
			result.Discrepancies = append(result.Discrepancies, Discrepancy{
				Field:         matcher.field,
				CitedValue:    cited,
				ExpectedValue: expected,
				DeviationPct:  math.Round(deviation*10000) / 100,
			})
		}
	}

	if len(result.Discrepancies) > 0 {
		result.CorrectionNote = buildCorrectionNote(result.Discrepancies)
	}
	return result
}

// buildCorrectionNote renders the single footnote appended to responses
// with discrepancies.
func buildCorrectionNote(discrepancies []Discrepancy) string {
	var b strings.Builder
	b.WriteString("Correction: the figures in your report are ")
	for i, d := range discrepancies {
		if i > 0 {
			b.WriteString(", ")
		}
		switch d.Field {
		case "front_end_dti", "back_end_dti", "thirty_year_rate":
			b.WriteString(fmt.Sprintf("%s %.2f%%", humanField(d.Field), d.ExpectedValue*100))
		default:
			b.WriteString(fmt.Sprintf("%s $%s", humanField(d.Field), formatDollars(d.ExpectedValue)))
		}
	}
	b.WriteString(".")
	return b.String()
}

func humanField(field string) string {
	switch field {
	case "max_purchase_price":
		return "max purchase price"
	case "recommended_price":
		return "recommended price"
	case "monthly_payment":
		return "monthly payment"
	case "front_end_dti":
		return "front-end DTI"
	case "back_end_dti":
		return "back-end DTI"
	case "thirty_year_rate":
		return "30-year rate"
	default:
		return field
	}
}

func parseNumber(raw string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
}

func formatDollars(v float64) string {
	whole := int64(math.Round(v))
	s := strconv.FormatInt(whole, 10)
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if negative {
		out = "-" + out
	}
	return out
}
