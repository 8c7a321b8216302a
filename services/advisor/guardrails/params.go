// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package guardrails

import (
	"fmt"
	"sort"
	"strings"
)

// ParamRange bounds one named numeric tool parameter, inclusive.
type ParamRange struct {
	Min float64
	Max float64
}

// paramRanges is the closed table of plausible values. Aliases map the
// field spellings different tools use onto one range.
var paramRanges = map[string]ParamRange{
	"income":        {Min: 1, Max: 1e7},
	"homePrice":     {Min: 10_000, Max: 5e7},
	"downPayment":   {Min: 0, Max: 5e7},
	"rate":          {Min: 0.001, Max: 0.30},
	"loanTermYears": {Min: 5, Max: 50},
	"monthlyDebt":   {Min: 0, Max: 1e6},
	"creditScore":   {Min: 300, Max: 850},
	"monthlyRent":   {Min: 1, Max: 1e5},
}

var paramAliases = map[string]string{
	"annualIncome":      "income",
	"targetPrice":       "homePrice",
	"price":             "homePrice",
	"downPaymentAmount": "downPayment",
	"interestRate":      "rate",
	"termYears":         "loanTermYears",
	"rent":              "monthlyRent",
}

func rangeFor(field string) (ParamRange, bool) {
	name := field
	if canonical, ok := paramAliases[field]; ok {
		name = canonical
	}
	r, ok := paramRanges[name]
	return r, ok
}

// =============================================================================
// Parameter Validator
// =============================================================================

// ParamValidator is the third guardrail layer: every numeric tool input is
// checked against the range table before the tool runs.
//
// # Description
//
// Validation recurses into nested objects (scenario comparison inputs),
// prefixing violations with the nested key so the model can see which
// scenario failed. The returned error text is handed back to the model as
// the tool result; the tool itself is never executed on a violation.
//
// # Thread Safety
//
// Stateless, safe for concurrent use.
type ParamValidator struct{}

// NewParamValidator returns the shared validator.
func NewParamValidator() *ParamValidator {
	return &ParamValidator{}
}

// Validate checks every recognized numeric field in input.
//
// # Inputs
//
//   - toolName: included in the error text for model self-correction.
//   - input: decoded tool arguments. Numbers arrive as float64.
//
// # Outputs
//
//   - error: nil when all fields pass; otherwise one error listing every
//     violation.
func (v *ParamValidator) Validate(toolName string, input map[string]any) error {
	violations := v.walk(input, "")
	if len(violations) == 0 {
		return nil
	}
	return fmt.Errorf("invalid parameters for %s: %s", toolName, strings.Join(violations, "; "))
}

func (v *ParamValidator) walk(input map[string]any, prefix string) []string {
	var violations []string

	// Deterministic field order keeps error text stable for the model.
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch value := input[key].(type) {
		case map[string]any:
			nested := v.walk(value, prefix+key+": ")
			violations = append(violations, nested...)
		case float64:
			if r, ok := rangeFor(key); ok {
				if value < r.Min || value > r.Max {
					violations = append(violations, fmt.Sprintf("%s%s=%v is outside the allowed range [%v, %v]", prefix, key, value, r.Min, r.Max))
				}
			}
		case int:
			if r, ok := rangeFor(key); ok {
				f := float64(value)
				if f < r.Min || f > r.Max {
					violations = append(violations, fmt.Sprintf("%s%s=%v is outside the allowed range [%v, %v]", prefix, key, value, r.Min, r.Max))
				}
			}
		}
	}

	// Cross-field rule at each nesting level.
	down, hasDown := numericField(input, "downPayment", "downPaymentAmount")
	price, hasPrice := numericField(input, "homePrice", "targetPrice", "price")
	if hasDown && hasPrice && down > price {
		violations = append(violations, fmt.Sprintf("%sdown payment %v exceeds home price %v", prefix, down, price))
	}

	return violations
}

func numericField(input map[string]any, names ...string) (float64, bool) {
	for _, name := range names {
		switch value := input[name].(type) {
		case float64:
			return value, true
		case int:
			return float64(value), true
		}
	}
	return 0, false
}
