// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// Tests for the reference affordability calculator

package finmath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestready/nestready/services/orchestrator/datatypes"
)

func testMarket() *datatypes.MarketSnapshot {
	return &datatypes.MarketSnapshot{
		Rates: datatypes.RateTable{
			ThirtyYearFixed:  0.069,
			FifteenYearFixed: 0.062,
		},
		Inflation: datatypes.InflationSeries{AnnualRate: 0.031},
		Area: datatypes.AreaInfo{
			Location:        "Austin, TX",
			MedianPrice:     412000,
			PropertyTaxRate: 0.011,
			AnnualInsurance: 1800,
		},
	}
}

func testProfile() *datatypes.Profile {
	return &datatypes.Profile{
		AnnualIncome: 120000,
		MonthlyDebt:  500,
		Savings:      80000,
		DownPayment:  60000,
		CreditScore:  740,
		Location:     "Austin, TX",
	}
}

func TestMonthlyPayment_KnownValue(t *testing.T) {
	c := NewStandardCalculator()

	// $300,000 at 6% over 30 years is the textbook $1,798.65.
	payment := c.MonthlyPayment(300000, 0.06, 30)
	assert.InDelta(t, 1798.65, payment, 0.01)
}

func TestMonthlyPayment_ZeroRate(t *testing.T) {
	c := NewStandardCalculator()
	payment := c.MonthlyPayment(360000, 0, 30)
	assert.InDelta(t, 1000, payment, 1e-9)
}

func TestMonthlyPayment_Degenerate(t *testing.T) {
	c := NewStandardCalculator()
	assert.Zero(t, c.MonthlyPayment(0, 0.06, 30))
	assert.Zero(t, c.MonthlyPayment(100000, 0.06, 0))
}

func TestMaxLoanAmount_InvertsMonthlyPayment(t *testing.T) {
	c := NewStandardCalculator()
	payment := c.MonthlyPayment(250000, 0.069, 30)
	principal := c.MaxLoanAmount(payment, 0.069, 30)
	assert.InDelta(t, 250000, principal, 0.01)
}

func TestAffordability_BudgetWithinDTIRules(t *testing.T) {
	c := NewStandardCalculator()
	report := c.Affordability(testProfile(), testMarket())

	monthlyIncome := 120000.0 / 12
	assert.LessOrEqual(t, report.MonthlyHousingBudget, monthlyIncome*FrontEndDTILimit+0.01)
	assert.Greater(t, report.MaxPurchasePrice, 0.0)
	assert.Less(t, report.RecommendedPrice, report.MaxPurchasePrice)
	assert.InDelta(t, report.MaxPurchasePrice*RecommendedPriceFactor, report.RecommendedPrice, 1.0)
}

func TestAffordability_PaymentBelowCeiling(t *testing.T) {
	c := NewStandardCalculator()
	report := c.Affordability(testProfile(), testMarket())

	assert.Less(t, report.MonthlyPayment, report.MonthlyHousingBudget)
	assert.LessOrEqual(t, report.FrontEndDTI, FrontEndDTILimit+0.001)
	assert.LessOrEqual(t, report.BackEndDTI, BackEndDTILimit+0.001)
}

func TestAffordability_BackEndBinding(t *testing.T) {
	c := NewStandardCalculator()
	p := testProfile()
	p.MonthlyDebt = 2500 // debt-heavy profile, back-end rule binds

	report := c.Affordability(p, testMarket())
	monthlyIncome := p.AnnualIncome / 12
	assert.InDelta(t, monthlyIncome*BackEndDTILimit-p.MonthlyDebt, report.MonthlyHousingBudget, 0.01)
}

func TestAffordability_ZeroIncome(t *testing.T) {
	c := NewStandardCalculator()
	p := testProfile()
	p.AnnualIncome = 0
	p.DownPayment = 0
	p.Savings = 0

	report := c.Affordability(p, testMarket())
	assert.Zero(t, report.MonthlyPayment)
	assert.GreaterOrEqual(t, report.MaxPurchasePrice, 0.0)
}

func TestAffordability_FHAEligibility(t *testing.T) {
	c := NewStandardCalculator()

	p := testProfile()
	report := c.Affordability(p, testMarket())
	assert.True(t, report.FHAEligible, "740 score and large down payment qualifies")

	p.CreditScore = 579
	report = c.Affordability(p, testMarket())
	assert.False(t, report.FHAEligible)
}

func TestRisk_HealthyProfileIsLow(t *testing.T) {
	c := NewStandardCalculator()
	report := c.Risk(testProfile(), testMarket())

	assert.Equal(t, datatypes.RiskLow, report.Level)
	assert.True(t, report.RateShockPasses)
	assert.True(t, report.IncomeDropPasses)
	assert.Greater(t, report.RateShockPayment, 0.0)
}

func TestRisk_ShockPaymentExceedsBase(t *testing.T) {
	c := NewStandardCalculator()
	afford := c.Affordability(testProfile(), testMarket())
	risk := c.Risk(testProfile(), testMarket())

	assert.Greater(t, risk.RateShockPayment, afford.MonthlyPayment)
}

func TestRisk_StretchedProfileEscalates(t *testing.T) {
	c := NewStandardCalculator()
	p := testProfile()
	p.MonthlyDebt = 3000
	p.CreditScore = 600
	p.DownPayment = 5000
	p.Savings = 5000

	report := c.Risk(p, testMarket())
	assert.NotEqual(t, datatypes.RiskLow, report.Level)
	assert.NotEmpty(t, report.Factors)
}

func TestRentVsBuy_UsesProfileRent(t *testing.T) {
	c := NewStandardCalculator()
	p := testProfile()
	p.MonthlyRent = 2200

	report := c.RentVsBuy(p, testMarket())
	assert.InDelta(t, 2200, report.MonthlyRent, 1e-9)
	assert.Greater(t, report.BuyMonthlyCost, 0.0)
	assert.Greater(t, report.FiveYearRentOut, 2200*12*4.9)
	assert.Contains(t, []string{"buy", "rent", "close_call"}, report.Verdict)
}

func TestRentVsBuy_EstimatesRentWhenAbsent(t *testing.T) {
	c := NewStandardCalculator()
	report := c.RentVsBuy(testProfile(), testMarket())
	assert.InDelta(t, 412000*0.005, report.MonthlyRent, 0.01)
}

func TestInvestment_NilWithoutParams(t *testing.T) {
	c := NewStandardCalculator()
	assert.Nil(t, c.Investment(testProfile(), testMarket()))
}

func TestInvestment_Metrics(t *testing.T) {
	c := NewStandardCalculator()
	p := testProfile()
	p.TargetPrice = 400000
	p.Investment = &datatypes.InvestmentParams{
		ExpectedMonthlyRent: 2800,
		AnnualAppreciation:  0.03,
		HoldYears:           5,
	}

	report := c.Investment(p, testMarket())
	require.NotNil(t, report)

	// NOI = 33600 - (4400 + 1800 + 4000) = 23400; cap rate 5.85%.
	assert.InDelta(t, 0.0585, report.CapRate, 0.0001)
	assert.Greater(t, report.ProjectedValue, 400000.0)
}

func TestPreApproval_ReadyProfile(t *testing.T) {
	c := NewStandardCalculator()
	report := c.PreApproval(testProfile(), testMarket())
	assert.True(t, report.Ready)
	assert.Empty(t, report.Blockers)
}

func TestPreApproval_LowCreditBlocked(t *testing.T) {
	c := NewStandardCalculator()
	p := testProfile()
	p.CreditScore = 590

	report := c.PreApproval(p, testMarket())
	assert.False(t, report.Ready)
	require.NotEmpty(t, report.Blockers)
	assert.Contains(t, report.Blockers[0], "credit score")
}

func TestRecommendations_VAPriority(t *testing.T) {
	c := NewStandardCalculator()
	p := testProfile()
	p.VAEligible = true

	recs := c.Recommendations(p, testMarket())
	var found bool
	for _, rec := range recs {
		if rec.Title == "Use your VA benefit" {
			found = true
			assert.Equal(t, "high", rec.Priority)
		}
	}
	assert.True(t, found)
}

func TestRecommendations_FallbackRateNote(t *testing.T) {
	c := NewStandardCalculator()
	market := testMarket()
	market.Fallbacks = []string{"rates"}

	recs := c.Recommendations(testProfile(), market)
	var found bool
	for _, rec := range recs {
		if rec.Title == "Verify current mortgage rates" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCompute_AssemblesAllSections(t *testing.T) {
	report := Compute(NewStandardCalculator(), testProfile(), testMarket())

	require.NotNil(t, report)
	assert.Greater(t, report.Affordability.MaxPurchasePrice, 0.0)
	assert.NotEmpty(t, report.Risk.Level)
	assert.NotEmpty(t, report.RentVsBuy.Verdict)
	assert.Nil(t, report.Investment)
	assert.InDelta(t, 0.069, report.ThirtyYearRate, 1e-9)
}
