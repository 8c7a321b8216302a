// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package finmath

import (
	"fmt"
	"math"

	"github.com/nestready/nestready/services/orchestrator/datatypes"
)

// Underwriting constants used by StandardCalculator.
const (
	// FrontEndDTILimit caps housing cost at 28% of gross monthly income.
	FrontEndDTILimit = 0.28

	// BackEndDTILimit caps housing plus existing debt at 36%.
	BackEndDTILimit = 0.36

	// LoanTermYears is the default mortgage term.
	LoanTermYears = 30

	// RecommendedPriceFactor discounts the ceiling to the advised target.
	RecommendedPriceFactor = 0.90

	// RateShockPoints is the stress-test rate increase.
	RateShockPoints = 0.02

	// IncomeDropFactor is the stress-test income reduction.
	IncomeDropFactor = 0.80

	// FHAMinCreditScore and FHAMinDownFraction are the FHA program floor.
	FHAMinCreditScore   = 580
	FHAMinDownFraction  = 0.035
	preApprovalMinScore = 620
	preApprovalMaxDTI   = 0.43

	// maintenanceFraction is the annual upkeep estimate for investors.
	maintenanceFraction = 0.01

	// closingCostFraction approximates buyer closing costs for break-even.
	closingCostFraction = 0.03
)

// StandardCalculator is the reference Calculator using 28/36 DTI
// underwriting, a 30-year term, and the stress tests described on each
// method.
//
// # Thread Safety
//
// Stateless, safe for concurrent use.
type StandardCalculator struct{}

// NewStandardCalculator returns the reference calculator.
func NewStandardCalculator() *StandardCalculator {
	return &StandardCalculator{}
}

var _ Calculator = (*StandardCalculator)(nil)

// MonthlyPayment computes the standard amortization payment.
//
// A zero rate degenerates to straight-line principal division.
func (c *StandardCalculator) MonthlyPayment(principal, annualRate float64, years int) float64 {
	if principal <= 0 || years <= 0 {
		return 0
	}
	n := float64(years * 12)
	if annualRate <= 0 {
		return principal / n
	}
	r := annualRate / 12
	factor := r * math.Pow(1+r, n) / (math.Pow(1+r, n) - 1)
	return principal * factor
}

// MaxLoanAmount inverts MonthlyPayment for a given budget.
func (c *StandardCalculator) MaxLoanAmount(budget, annualRate float64, years int) float64 {
	if budget <= 0 || years <= 0 {
		return 0
	}
	n := float64(years * 12)
	if annualRate <= 0 {
		return budget * n
	}
	r := annualRate / 12
	factor := r * math.Pow(1+r, n) / (math.Pow(1+r, n) - 1)
	return budget / factor
}

// Affordability applies the 28/36 rules against the snapshot's 30-year
// rate and the area's carrying costs.
//
// The price ceiling solves the linear carrying-cost equation: payment on
// (price - down) plus monthly tax and insurance must fit the housing
// budget.
func (c *StandardCalculator) Affordability(profile *datatypes.Profile, market *datatypes.MarketSnapshot) datatypes.AffordabilityReport {
	monthlyIncome := profile.AnnualIncome / 12
	rate := market.Rates.ThirtyYearFixed

	frontBudget := monthlyIncome * FrontEndDTILimit
	backBudget := monthlyIncome*BackEndDTILimit - profile.MonthlyDebt
	housingBudget := math.Min(frontBudget, backBudget)
	if housingBudget < 0 {
		housingBudget = 0
	}

	// payment(price) = (price-down)*f + price*tax/12 + insurance/12
	f := amortFactor(rate, LoanTermYears)
	taxMonthlyRate := market.Area.PropertyTaxRate / 12
	insuranceMonthly := market.Area.AnnualInsurance / 12

	var maxPrice float64
	denom := f + taxMonthlyRate
	if denom > 0 {
		maxPrice = (housingBudget - insuranceMonthly + profile.DownPayment*f) / denom
	}
	if maxPrice < 0 {
		maxPrice = 0
	}

	recommended := maxPrice * RecommendedPriceFactor
	loan := math.Max(recommended-profile.DownPayment, 0)
	payment := c.MonthlyPayment(loan, rate, LoanTermYears)
	carrying := payment + recommended*taxMonthlyRate + insuranceMonthly

	var frontDTI, backDTI float64
	if monthlyIncome > 0 {
		frontDTI = carrying / monthlyIncome
		backDTI = (carrying + profile.MonthlyDebt) / monthlyIncome
	}

	return datatypes.AffordabilityReport{
		MaxPurchasePrice:     round2(maxPrice),
		RecommendedPrice:     round2(recommended),
		MaxLoanAmount:        round2(math.Max(maxPrice-profile.DownPayment, 0)),
		MonthlyPayment:       round2(payment),
		MonthlyHousingBudget: round2(housingBudget),
		FrontEndDTI:          round4(frontDTI),
		BackEndDTI:           round4(backDTI),
		DownPayment:          profile.DownPayment,
		FHAEligible:          profile.CreditScore >= FHAMinCreditScore && recommended > 0 && profile.DownPayment >= recommended*FHAMinDownFraction,
		VAEligible:           profile.VAEligible,
	}
}

// Risk stress-tests the recommended purchase at +2% rate and -20% income.
func (c *StandardCalculator) Risk(profile *datatypes.Profile, market *datatypes.MarketSnapshot) datatypes.RiskReport {
	afford := c.Affordability(profile, market)
	monthlyIncome := profile.AnnualIncome / 12
	taxMonthly := afford.RecommendedPrice * market.Area.PropertyTaxRate / 12
	insuranceMonthly := market.Area.AnnualInsurance / 12

	loan := math.Max(afford.RecommendedPrice-profile.DownPayment, 0)
	shockPayment := c.MonthlyPayment(loan, market.Rates.ThirtyYearFixed+RateShockPoints, LoanTermYears)
	shockCarrying := shockPayment + taxMonthly + insuranceMonthly
	rateShockPasses := monthlyIncome > 0 && shockCarrying/monthlyIncome <= FrontEndDTILimit+0.03

	carrying := afford.MonthlyPayment + taxMonthly + insuranceMonthly
	droppedIncome := monthlyIncome * IncomeDropFactor
	incomeDropPasses := droppedIncome > 0 && (carrying+profile.MonthlyDebt)/droppedIncome <= preApprovalMaxDTI

	var factors []string
	if !rateShockPasses {
		factors = append(factors, "payment becomes unaffordable if rates rise 2 points")
	}
	if !incomeDropPasses {
		factors = append(factors, "budget fails under a 20% income reduction")
	}
	if afford.BackEndDTI > BackEndDTILimit {
		factors = append(factors, fmt.Sprintf("back-end DTI %.0f%% exceeds the 36%% guideline", afford.BackEndDTI*100))
	}
	if afford.RecommendedPrice > 0 && profile.DownPayment/afford.RecommendedPrice < 0.10 {
		factors = append(factors, "down payment under 10% leaves little equity cushion")
	}
	if profile.CreditScore < 640 {
		factors = append(factors, "credit score below 640 raises borrowing costs")
	}

	level := datatypes.RiskLow
	switch {
	case len(factors) >= 3:
		level = datatypes.RiskVeryHigh
	case len(factors) == 2:
		level = datatypes.RiskHigh
	case len(factors) == 1:
		level = datatypes.RiskModerate
	}

	return datatypes.RiskReport{
		Level:            level,
		Factors:          factors,
		RateShockPayment: round2(shockPayment),
		RateShockPasses:  rateShockPasses,
		IncomeDropPasses: incomeDropPasses,
	}
}

// RentVsBuy compares five-year outlays. The buy side nets out principal
// paydown and appreciation at the inflation rate; the rent side grows with
// inflation.
func (c *StandardCalculator) RentVsBuy(profile *datatypes.Profile, market *datatypes.MarketSnapshot) datatypes.RentVsBuyReport {
	afford := c.Affordability(profile, market)
	price := afford.RecommendedPrice

	rent := profile.MonthlyRent
	if rent <= 0 {
		// Rough market-rent estimate from the area median.
		rent = market.Area.MedianPrice * 0.005
	}

	taxMonthly := price * market.Area.PropertyTaxRate / 12
	insuranceMonthly := market.Area.AnnualInsurance / 12
	buyMonthly := afford.MonthlyPayment + taxMonthly + insuranceMonthly

	inflation := market.Inflation.AnnualRate
	loan := math.Max(price-profile.DownPayment, 0)

	var rentOutlay, buyOutlay float64
	balance := loan
	monthlyRate := market.Rates.ThirtyYearFixed / 12
	yearRent := rent * 12
	for year := 0; year < 5; year++ {
		rentOutlay += yearRent
		yearRent *= 1 + inflation
		buyOutlay += buyMonthly * 12
		for m := 0; m < 12; m++ {
			principalPart := afford.MonthlyPayment - balance*monthlyRate
			if principalPart < 0 {
				principalPart = 0
			}
			balance -= principalPart
		}
	}

	equityGained := loan - balance
	appreciation := price*math.Pow(1+inflation, 5) - price
	closing := price * closingCostFraction
	buyNet := buyOutlay + closing - equityGained - appreciation

	// Break-even: years for the owner's equity and appreciation to cover
	// the upfront closing costs plus any monthly premium over renting.
	annualAdvantage := (equityGained+appreciation)/5 - math.Max(buyMonthly-rent, 0)*12
	breakEven := math.Inf(1)
	if annualAdvantage > 0 {
		breakEven = closing / annualAdvantage
	}

	verdict := "close_call"
	switch {
	case buyNet < rentOutlay*0.95:
		verdict = "buy"
	case buyNet > rentOutlay*1.05:
		verdict = "rent"
	}

	report := datatypes.RentVsBuyReport{
		MonthlyRent:     round2(rent),
		BuyMonthlyCost:  round2(buyMonthly),
		FiveYearRentOut: round2(rentOutlay),
		FiveYearBuyNet:  round2(buyNet),
		Verdict:         verdict,
	}
	if !math.IsInf(breakEven, 1) {
		report.BreakEvenYears = math.Round(breakEven*10) / 10
	}
	return report
}

// Investment computes rental metrics when investment parameters are
// present; nil otherwise.
func (c *StandardCalculator) Investment(profile *datatypes.Profile, market *datatypes.MarketSnapshot) *datatypes.InvestmentReport {
	inv := profile.Investment
	if inv == nil {
		return nil
	}

	price := profile.TargetPrice
	if market.Listing != nil && market.Listing.Price > 0 {
		price = market.Listing.Price
	}
	if price <= 0 {
		price = c.Affordability(profile, market).RecommendedPrice
	}
	if price <= 0 {
		return nil
	}

	annualRent := inv.ExpectedMonthlyRent * 12
	operating := price*market.Area.PropertyTaxRate + market.Area.AnnualInsurance + price*maintenanceFraction
	noi := annualRent - operating

	loan := math.Max(price-profile.DownPayment, 0)
	payment := c.MonthlyPayment(loan, market.Rates.ThirtyYearFixed, LoanTermYears)
	annualDebtService := payment * 12

	var capRate, cashOnCash float64
	capRate = noi / price
	if profile.DownPayment > 0 {
		cashOnCash = (noi - annualDebtService) / profile.DownPayment
	}

	holdYears := inv.HoldYears
	if holdYears <= 0 {
		holdYears = 5
	}

	return &datatypes.InvestmentReport{
		CapRate:         round4(capRate),
		CashOnCash:      round4(cashOnCash),
		MonthlyCashFlow: round2(inv.ExpectedMonthlyRent - payment - operating/12),
		ProjectedValue:  round2(price * math.Pow(1+inv.AnnualAppreciation, float64(holdYears))),
	}
}

// PreApproval checks the lender gates: credit, back-end DTI, and minimum
// down payment.
func (c *StandardCalculator) PreApproval(profile *datatypes.Profile, market *datatypes.MarketSnapshot) datatypes.PreApprovalReport {
	afford := c.Affordability(profile, market)

	var blockers []string
	if profile.CreditScore < preApprovalMinScore {
		blockers = append(blockers, fmt.Sprintf("credit score %d is below the %d conventional minimum", profile.CreditScore, preApprovalMinScore))
	}
	if afford.BackEndDTI > preApprovalMaxDTI {
		blockers = append(blockers, fmt.Sprintf("back-end DTI %.0f%% exceeds the %.0f%% lender maximum", afford.BackEndDTI*100, preApprovalMaxDTI*100))
	}
	if afford.RecommendedPrice > 0 && profile.DownPayment < afford.RecommendedPrice*0.03 {
		blockers = append(blockers, "down payment is below 3% of the recommended price")
	}
	if afford.MaxPurchasePrice <= 0 {
		blockers = append(blockers, "no purchasing power at current income and debt levels")
	}

	return datatypes.PreApprovalReport{
		Ready:    len(blockers) == 0,
		Blockers: blockers,
	}
}

// Recommendations derives prioritized suggestions from the other reports.
func (c *StandardCalculator) Recommendations(profile *datatypes.Profile, market *datatypes.MarketSnapshot) []datatypes.Recommendation {
	afford := c.Affordability(profile, market)
	risk := c.Risk(profile, market)

	var recs []datatypes.Recommendation

	if afford.BackEndDTI > BackEndDTILimit {
		recs = append(recs, datatypes.Recommendation{
			Title:    "Reduce monthly debt before buying",
			Detail:   fmt.Sprintf("Paying down existing debt would bring your back-end DTI under the 36%% guideline (currently %.0f%%) and raise your price ceiling.", afford.BackEndDTI*100),
			Priority: "high",
		})
	}
	if profile.CreditScore < 740 && profile.CreditScore >= preApprovalMinScore {
		recs = append(recs, datatypes.Recommendation{
			Title:    "Improve your credit score",
			Detail:   "Scores of 740+ unlock the best rate tiers. Even a quarter point off your rate meaningfully lowers the lifetime cost.",
			Priority: "medium",
		})
	}
	if afford.RecommendedPrice > 0 && profile.DownPayment < afford.RecommendedPrice*0.20 {
		recs = append(recs, datatypes.Recommendation{
			Title:    "Plan for mortgage insurance",
			Detail:   "A down payment under 20% typically adds PMI to the monthly cost. Budget for it or keep saving toward 20%.",
			Priority: "medium",
		})
	}
	if afford.FHAEligible && !profile.VAEligible {
		recs = append(recs, datatypes.Recommendation{
			Title:    "Consider an FHA loan",
			Detail:   "Your credit score and savings meet the FHA floor, which allows down payments as low as 3.5%.",
			Priority: "low",
		})
	}
	if profile.VAEligible {
		recs = append(recs, datatypes.Recommendation{
			Title:    "Use your VA benefit",
			Detail:   "VA loans allow zero down payment with no mortgage insurance, usually the cheapest available financing.",
			Priority: "high",
		})
	}
	if risk.Level == datatypes.RiskHigh || risk.Level == datatypes.RiskVeryHigh {
		recs = append(recs, datatypes.Recommendation{
			Title:    "Shop below the recommended price",
			Detail:   "Your stress tests show limited slack. Targeting a lower price keeps the purchase resilient to rate and income shocks.",
			Priority: "high",
		})
	}
	if market.UsedFallback("rates") {
		recs = append(recs, datatypes.Recommendation{
			Title:    "Verify current mortgage rates",
			Detail:   "This analysis used a national-average fallback rate. Confirm live quotes with a lender before deciding.",
			Priority: "low",
		})
	}

	return recs
}

func amortFactor(annualRate float64, years int) float64 {
	n := float64(years * 12)
	if annualRate <= 0 {
		return 1 / n
	}
	r := annualRate / 12
	return r * math.Pow(1+r, n) / (math.Pow(1+r, n) - 1)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
