// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chatcontext

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// SessionMemory accumulates facts across a conversation. Later facts for
// the same key overwrite earlier ones.
type SessionMemory struct {
	Facts     map[string]string `json:"facts"`
	ToolsUsed []string          `json:"tools_used"`
}

// NewSessionMemory returns empty memory ready for merging.
func NewSessionMemory() *SessionMemory {
	return &SessionMemory{Facts: make(map[string]string)}
}

// Merge records a tool execution: the tool name and any facts extracted
// from its result.
func (m *SessionMemory) Merge(toolName, resultJSON string) {
	m.ToolsUsed = append(m.ToolsUsed, toolName)
	for key, value := range ExtractFacts(toolName, resultJSON) {
		m.Facts[key] = value
	}
}

// Render flattens the fact map into prompt-ready lines, sorted by key so
// the prompt is stable between turns.
func (m *SessionMemory) Render() string {
	if len(m.Facts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m.Facts))
	for key := range m.Facts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		b.WriteString(fmt.Sprintf("- %s: %s\n", key, m.Facts[key]))
	}
	return b.String()
}

// ExtractFacts pulls a small set of named facts out of a parsed tool
// result. Unrecognized tools and malformed JSON contribute nothing.
func ExtractFacts(toolName, resultJSON string) map[string]string {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(resultJSON), &parsed); err != nil {
		return nil
	}

	facts := make(map[string]string)
	switch toolName {
	case "recalculate_affordability":
		if afford, ok := parsed["affordability"].(map[string]any); ok {
			if v, ok := afford["max_purchase_price"].(float64); ok {
				facts["max_price"] = fmt.Sprintf("$%.0f", v)
			}
			if v, ok := afford["recommended_price"].(float64); ok {
				facts["recommended_price"] = fmt.Sprintf("$%.0f", v)
			}
		}
	case "calculate_payment":
		payment, okP := parsed["monthly_payment"].(float64)
		price, okH := parsed["home_price"].(float64)
		if okP && okH {
			facts[fmt.Sprintf("payment_%.0f", price)] = fmt.Sprintf("$%.2f", payment)
		}
	case "get_current_rates":
		if v, ok := parsed["thirty_year_fixed"].(float64); ok {
			facts["rate_30y"] = fmt.Sprintf("%.3f%%", v*100)
		}
		if v, ok := parsed["fifteen_year_fixed"].(float64); ok {
			facts["rate_15y"] = fmt.Sprintf("%.3f%%", v*100)
		}
	case "compare_scenarios":
		if v, ok := parsed["monthly_payment_delta"].(float64); ok {
			facts["comparison_payment_delta"] = fmt.Sprintf("$%.2f", v)
		}
	case "rent_vs_buy":
		if v, ok := parsed["verdict"].(string); ok {
			facts["rent_vs_buy_verdict"] = v
		}
	case "stress_test":
		if v, ok := parsed["rate_shock_passes"].(bool); ok {
			facts["rate_shock_passes"] = fmt.Sprintf("%t", v)
		}
		if v, ok := parsed["income_drop_passes"].(bool); ok {
			facts["income_drop_passes"] = fmt.Sprintf("%t", v)
		}
	}

	if len(facts) == 0 {
		return nil
	}
	return facts
}
