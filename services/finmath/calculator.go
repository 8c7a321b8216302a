// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package finmath holds the deterministic mortgage and affordability math.
// Everything here is a pure function of its inputs so the pipeline, the
// advisor tools, and the fact checker all see identical numbers.
package finmath

import "github.com/nestready/nestready/services/orchestrator/datatypes"

// Calculator produces the deterministic sub-reports from a profile and a
// market snapshot.
//
// # Description
//
// Implementations must be pure: no I/O, no clock, no randomness. The
// pipeline calls every method once per analysis; the advisor tools call
// individual methods on demand with modified inputs.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Calculator interface {
	Affordability(profile *datatypes.Profile, market *datatypes.MarketSnapshot) datatypes.AffordabilityReport
	Risk(profile *datatypes.Profile, market *datatypes.MarketSnapshot) datatypes.RiskReport
	RentVsBuy(profile *datatypes.Profile, market *datatypes.MarketSnapshot) datatypes.RentVsBuyReport
	Investment(profile *datatypes.Profile, market *datatypes.MarketSnapshot) *datatypes.InvestmentReport
	PreApproval(profile *datatypes.Profile, market *datatypes.MarketSnapshot) datatypes.PreApprovalReport
	Recommendations(profile *datatypes.Profile, market *datatypes.MarketSnapshot) []datatypes.Recommendation

	// MonthlyPayment is the standard amortization payment for a loan.
	// annualRate is a fraction (0.069, not 6.9).
	MonthlyPayment(principal, annualRate float64, years int) float64

	// MaxLoanAmount inverts MonthlyPayment: the largest principal whose
	// payment fits inside budget.
	MaxLoanAmount(budget, annualRate float64, years int) float64
}

// Compute runs every Calculator method and assembles the full report.
func Compute(calc Calculator, profile *datatypes.Profile, market *datatypes.MarketSnapshot) *datatypes.ComputedReport {
	report := &datatypes.ComputedReport{
		Affordability:   calc.Affordability(profile, market),
		Risk:            calc.Risk(profile, market),
		Recommendations: calc.Recommendations(profile, market),
		RentVsBuy:       calc.RentVsBuy(profile, market),
		Investment:      calc.Investment(profile, market),
		PreApproval:     calc.PreApproval(profile, market),
		Listing:         market.Listing,
		ThirtyYearRate:  market.Rates.ThirtyYearFixed,
	}
	return report
}
