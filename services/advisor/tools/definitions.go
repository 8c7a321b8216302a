// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tools holds the advisor's closed tool set: schema definitions,
// the startup-validated registry, and the caching executor shared by the
// chat loop.
package tools

import "github.com/nestready/nestready/services/llm"

// Tool names. The set is closed; the registry refuses to start if the
// handler table does not cover it exactly.
const (
	ToolRecalculateAffordability = "recalculate_affordability"
	ToolCalculatePayment         = "calculate_payment"
	ToolCompareScenarios         = "compare_scenarios"
	ToolGetCurrentRates          = "get_current_rates"
	ToolSearchAreaInfo           = "search_area_info"
	ToolRentVsBuy                = "rent_vs_buy"
	ToolStressTest               = "stress_test"
	ToolLookupHousingPrograms    = "lookup_housing_programs"
)

func numberProp(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}

var scenarioSchema = map[string]any{
	"type":        "object",
	"description": "One what-if scenario. Omitted fields keep the user's current profile values.",
	"properties": map[string]any{
		"income":      numberProp("Annual gross income in dollars"),
		"monthlyDebt": numberProp("Total monthly debt payments in dollars"),
		"downPayment": numberProp("Down payment in dollars"),
		"homePrice":   numberProp("Target home price in dollars"),
		"creditScore": numberProp("FICO credit score"),
	},
}

// Definitions returns the provider-neutral schemas for the full tool set,
// in stable order.
func Definitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        ToolRecalculateAffordability,
			Description: "Recompute the full affordability report with one or more profile values changed, for what-if questions like a higher income or a bigger down payment.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"income":      numberProp("Annual gross income in dollars"),
					"monthlyDebt": numberProp("Total monthly debt payments in dollars"),
					"downPayment": numberProp("Down payment in dollars"),
					"creditScore": numberProp("FICO credit score"),
				},
			},
		},
		{
			Name:        ToolCalculatePayment,
			Description: "Compute the monthly principal-and-interest payment for a specific home price, down payment, rate, and term.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"homePrice":     numberProp("Home price in dollars"),
					"downPayment":   numberProp("Down payment in dollars; defaults to the user's profile"),
					"rate":          numberProp("Annual interest rate as a fraction, e.g. 0.069; defaults to the current 30-year rate"),
					"loanTermYears": numberProp("Loan term in years; defaults to 30"),
				},
				"required": []string{"homePrice"},
			},
		},
		{
			Name:        ToolCompareScenarios,
			Description: "Compare two what-if scenarios side by side, reporting each affordability outcome and the monthly payment delta.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"scenarioA": scenarioSchema,
					"scenarioB": scenarioSchema,
				},
				"required": []string{"scenarioA", "scenarioB"},
			},
		},
		{
			Name:        ToolGetCurrentRates,
			Description: "Fetch the current mortgage rate survey: 30-year fixed, 15-year fixed, and 5/1 ARM.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        ToolSearchAreaInfo,
			Description: "Look up housing statistics for a location: median price, property tax rate, and insurance estimate.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"location": map[string]any{"type": "string", "description": "City and state, e.g. 'Austin, TX', or a 5-digit ZIP"},
				},
				"required": []string{"location"},
			},
		},
		{
			Name:        ToolRentVsBuy,
			Description: "Compare renting against buying at the recommended price, optionally with a different monthly rent.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"monthlyRent": numberProp("Current or expected monthly rent in dollars"),
				},
			},
		},
		{
			Name:        ToolStressTest,
			Description: "Run the rate-shock and income-drop stress tests against the user's current profile.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        ToolLookupHousingPrograms,
			Description: "Search the housing-assistance program reference (FHA, VA, USDA, first-time buyer and state programs) for passages matching a query.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string", "description": "What to look up, e.g. 'low down payment options for first-time buyers'"},
					"topK":  numberProp("Maximum passages to return, capped at 5"),
				},
				"required": []string{"query"},
			},
		},
	}
}
