// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/nestready/nestready/services/finmath"
	"github.com/nestready/nestready/services/marketdata"
	"github.com/nestready/nestready/services/orchestrator/datatypes"
)

// Binding carries the per-conversation baseline a tool call modifies.
type Binding struct {
	Profile *datatypes.Profile
	Market  *datatypes.MarketSnapshot
}

// Fingerprint digests the baseline a handler computes against. Cached
// results are keyed on it so two conversations with different profiles or
// market snapshots never share an entry.
func (b *Binding) Fingerprint() string {
	if b == nil {
		return "unbound"
	}
	profileJSON, _ := json.Marshal(b.Profile)
	marketJSON, _ := json.Marshal(b.Market)
	sum := sha256.Sum256(append(profileJSON, marketJSON...))
	return hex.EncodeToString(sum[:16])
}

// Handler executes one tool against a binding with already-validated
// input.
type Handler func(ctx context.Context, binding *Binding, input map[string]any) (string, error)

// Registry is the closed, startup-validated tool table.
//
// # Description
//
// New builds the handler table from its dependencies and cross-checks it
// against Definitions(): a definition without a handler, or a handler
// without a definition, fails construction. A process that boots holds a
// complete, consistent tool set.
//
// # Thread Safety
//
// Immutable after construction, safe for concurrent use.
type Registry struct {
	handlers  map[string]Handler
	retriever *Retriever
}

// New constructs the registry over the calculator, the market provider,
// and the embedded program corpus.
func New(calc finmath.Calculator, provider marketdata.Provider) (*Registry, error) {
	if calc == nil {
		return nil, fmt.Errorf("tool registry requires a calculator")
	}
	if provider == nil {
		return nil, fmt.Errorf("tool registry requires a market data provider")
	}

	retriever, err := NewRetriever()
	if err != nil {
		return nil, fmt.Errorf("tool registry: %w", err)
	}

	r := &Registry{retriever: retriever}
	r.handlers = map[string]Handler{
		ToolRecalculateAffordability: recalculateHandler(calc),
		ToolCalculatePayment:         paymentHandler(calc),
		ToolCompareScenarios:         compareHandler(calc),
		ToolGetCurrentRates:          ratesHandler(provider),
		ToolSearchAreaInfo:           areaHandler(provider),
		ToolRentVsBuy:                rentVsBuyHandler(calc),
		ToolStressTest:               stressTestHandler(calc),
		ToolLookupHousingPrograms:    retrievalHandler(retriever),
	}

	defined := make(map[string]bool, len(Definitions()))
	for _, def := range Definitions() {
		defined[def.Name] = true
		if _, ok := r.handlers[def.Name]; !ok {
			return nil, fmt.Errorf("tool %q is defined but has no handler", def.Name)
		}
	}
	for name := range r.handlers {
		if !defined[name] {
			return nil, fmt.Errorf("handler %q has no tool definition", name)
		}
	}

	return r, nil
}

// Handler looks up a tool handler by name.
func (r *Registry) Handler(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered tool names (test helper, unsorted).
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// =============================================================================
// Handlers
// =============================================================================

// applyOverrides copies the baseline profile with any what-if values from
// the tool input substituted in.
func applyOverrides(base *datatypes.Profile, input map[string]any) *datatypes.Profile {
	p := *base
	if v, ok := input["income"].(float64); ok {
		p.AnnualIncome = v
	}
	if v, ok := input["monthlyDebt"].(float64); ok {
		p.MonthlyDebt = v
	}
	if v, ok := input["downPayment"].(float64); ok {
		p.DownPayment = v
		if p.Savings < v {
			p.Savings = v
		}
	}
	if v, ok := input["creditScore"].(float64); ok {
		p.CreditScore = int(v)
	}
	if v, ok := input["homePrice"].(float64); ok {
		p.TargetPrice = v
	}
	return &p
}

func recalculateHandler(calc finmath.Calculator) Handler {
	return func(ctx context.Context, binding *Binding, input map[string]any) (string, error) {
		profile := applyOverrides(binding.Profile, input)
		afford := calc.Affordability(profile, binding.Market)
		risk := calc.Risk(profile, binding.Market)
		return marshalResult(map[string]any{
			"affordability": afford,
			"risk_level":    risk.Level,
		})
	}
}

func paymentHandler(calc finmath.Calculator) Handler {
	return func(ctx context.Context, binding *Binding, input map[string]any) (string, error) {
		price, ok := input["homePrice"].(float64)
		if !ok {
			return "", fmt.Errorf("calculate_payment requires homePrice")
		}

		down := binding.Profile.DownPayment
		if v, ok := input["downPayment"].(float64); ok {
			down = v
		}
		rate := binding.Market.Rates.ThirtyYearFixed
		if v, ok := input["rate"].(float64); ok {
			rate = v
		}
		years := finmath.LoanTermYears
		if v, ok := input["loanTermYears"].(float64); ok {
			years = int(v)
		}

		loan := price - down
		if loan < 0 {
			loan = 0
		}
		payment := calc.MonthlyPayment(loan, rate, years)
		return marshalResult(map[string]any{
			"home_price":      price,
			"down_payment":    down,
			"rate":            rate,
			"loan_term_years": years,
			"loan_amount":     loan,
			"monthly_payment": payment,
		})
	}
}

func compareHandler(calc finmath.Calculator) Handler {
	return func(ctx context.Context, binding *Binding, input map[string]any) (string, error) {
		scenarioA, okA := input["scenarioA"].(map[string]any)
		scenarioB, okB := input["scenarioB"].(map[string]any)
		if !okA || !okB {
			return "", fmt.Errorf("compare_scenarios requires scenarioA and scenarioB objects")
		}

		affordA := calc.Affordability(applyOverrides(binding.Profile, scenarioA), binding.Market)
		affordB := calc.Affordability(applyOverrides(binding.Profile, scenarioB), binding.Market)

		return marshalResult(map[string]any{
			"scenarioA":             affordA,
			"scenarioB":             affordB,
			"monthly_payment_delta": affordB.MonthlyPayment - affordA.MonthlyPayment,
			"max_price_delta":       affordB.MaxPurchasePrice - affordA.MaxPurchasePrice,
		})
	}
}

func ratesHandler(provider marketdata.Provider) Handler {
	return func(ctx context.Context, binding *Binding, input map[string]any) (string, error) {
		rates, err := provider.Rates(ctx)
		if err != nil {
			return "", fmt.Errorf("rate lookup failed: %w", err)
		}
		return marshalResult(map[string]any{
			"thirty_year_fixed":  rates.ThirtyYearFixed,
			"fifteen_year_fixed": rates.FifteenYearFixed,
			"five_one_arm":       rates.FiveOneARM,
			"as_of":              rates.AsOf,
		})
	}
}

func areaHandler(provider marketdata.Provider) Handler {
	return func(ctx context.Context, binding *Binding, input map[string]any) (string, error) {
		location, ok := input["location"].(string)
		if !ok || location == "" {
			return "", fmt.Errorf("search_area_info requires a location")
		}
		info, err := provider.AreaInfo(ctx, location)
		if err != nil {
			return "", fmt.Errorf("area lookup failed: %w", err)
		}
		return marshalResult(info)
	}
}

func rentVsBuyHandler(calc finmath.Calculator) Handler {
	return func(ctx context.Context, binding *Binding, input map[string]any) (string, error) {
		profile := *binding.Profile
		if v, ok := input["monthlyRent"].(float64); ok {
			profile.MonthlyRent = v
		}
		report := calc.RentVsBuy(&profile, binding.Market)
		return marshalResult(report)
	}
}

func stressTestHandler(calc finmath.Calculator) Handler {
	return func(ctx context.Context, binding *Binding, input map[string]any) (string, error) {
		risk := calc.Risk(binding.Profile, binding.Market)
		return marshalResult(map[string]any{
			"level":              risk.Level,
			"factors":            risk.Factors,
			"rate_shock_payment": risk.RateShockPayment,
			"rate_shock_passes":  risk.RateShockPasses,
			"income_drop_passes": risk.IncomeDropPasses,
		})
	}
}

func retrievalHandler(retriever *Retriever) Handler {
	return func(ctx context.Context, binding *Binding, input map[string]any) (string, error) {
		query, ok := input["query"].(string)
		if !ok || query == "" {
			return "", fmt.Errorf("lookup_housing_programs requires a query")
		}
		topK := 0
		if v, ok := input["topK"].(float64); ok {
			topK = int(v)
		}
		passages := retriever.Search(query, topK)
		return marshalResult(map[string]any{
			"query":    query,
			"passages": passages,
		})
	}
}

func marshalResult(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal tool result: %w", err)
	}
	return string(data), nil
}
