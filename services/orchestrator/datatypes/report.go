// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// Risk levels, ordered from safest to most exposed.
const (
	RiskLow      = "low"
	RiskModerate = "moderate"
	RiskHigh     = "high"
	RiskVeryHigh = "very_high"
)

// AffordabilityReport holds the core purchasing-power numbers.
type AffordabilityReport struct {
	// MaxPurchasePrice is the income-derived affordability ceiling.
	MaxPurchasePrice float64 `json:"max_purchase_price"`

	// RecommendedPrice is the conservative target (below the ceiling).
	RecommendedPrice float64 `json:"recommended_price"`

	MaxLoanAmount float64 `json:"max_loan_amount"`

	// MonthlyPayment is principal+interest at the recommended price.
	MonthlyPayment float64 `json:"monthly_payment"`

	// MonthlyHousingBudget is the front-end cap on total housing cost.
	MonthlyHousingBudget float64 `json:"monthly_housing_budget"`

	// FrontEndDTI and BackEndDTI are ratios at the recommended price
	// (0.28 = 28%).
	FrontEndDTI float64 `json:"front_end_dti"`
	BackEndDTI  float64 `json:"back_end_dti"`

	DownPayment float64 `json:"down_payment"`

	FHAEligible bool `json:"fha_eligible"`
	VAEligible  bool `json:"va_eligible"`
}

// RiskReport holds the stress-test outcomes and the overall risk level.
type RiskReport struct {
	// Level is one of the Risk* constants.
	Level string `json:"level"`

	Factors []string `json:"factors,omitempty"`

	// RateShockPayment is the monthly payment if rates rise two points.
	RateShockPayment float64 `json:"rate_shock_payment"`
	RateShockPasses  bool    `json:"rate_shock_passes"`

	// IncomeDropPasses reports whether the budget survives a 20% income
	// reduction.
	IncomeDropPasses bool `json:"income_drop_passes"`
}

// Recommendation is a single actionable suggestion in the report.
type Recommendation struct {
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Priority string `json:"priority"` // "high", "medium", "low"
}

// RentVsBuyReport compares continuing to rent against buying at the
// recommended price.
type RentVsBuyReport struct {
	MonthlyRent     float64 `json:"monthly_rent"`
	BuyMonthlyCost  float64 `json:"buy_monthly_cost"`
	BreakEvenYears  float64 `json:"break_even_years"`
	FiveYearRentOut float64 `json:"five_year_rent_outlay"`
	FiveYearBuyNet  float64 `json:"five_year_buy_net_cost"`

	// Verdict is "buy", "rent", or "close_call".
	Verdict string `json:"verdict"`
}

// InvestmentReport holds rental-investment metrics. Present only when the
// profile supplied investment parameters.
type InvestmentReport struct {
	CapRate         float64 `json:"cap_rate"`
	CashOnCash      float64 `json:"cash_on_cash"`
	MonthlyCashFlow float64 `json:"monthly_cash_flow"`
	ProjectedValue  float64 `json:"projected_value"`
}

// PreApprovalReport states whether the profile is ready for lender
// pre-approval and what blocks it if not.
type PreApprovalReport struct {
	Ready    bool     `json:"ready"`
	Blockers []string `json:"blockers,omitempty"`
}

// ComputedReport is the full deterministic output of phase 2.
//
// The advisor core treats this as an opaque value produced by the
// financial-math collaborator: it is carried in stream events, handed to
// the synthesis prompt, and referenced by the chat loop's fact checker and
// persona hints.
type ComputedReport struct {
	Affordability   AffordabilityReport `json:"affordability"`
	Risk            RiskReport          `json:"risk"`
	Recommendations []Recommendation    `json:"recommendations,omitempty"`
	RentVsBuy       RentVsBuyReport     `json:"rent_vs_buy"`
	Investment      *InvestmentReport   `json:"investment,omitempty"`
	PreApproval     PreApprovalReport   `json:"pre_approval"`

	// Listing echoes the analyzed property when one was imported.
	Listing *Listing `json:"listing,omitempty"`

	// ThirtyYearRate is the rate the computation used, kept on the report
	// so chat-time fact checks need no snapshot.
	ThirtyYearRate float64 `json:"thirty_year_rate"`
}
