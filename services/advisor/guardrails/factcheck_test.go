// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// Tests for the output fact checker

package guardrails

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestready/nestready/services/orchestrator/datatypes"
)

func checkerReport() *datatypes.ComputedReport {
	return &datatypes.ComputedReport{
		Affordability: datatypes.AffordabilityReport{
			MaxPurchasePrice: 405000,
			RecommendedPrice: 365000,
			MonthlyPayment:   2010,
			FrontEndDTI:      0.25,
			BackEndDTI:       0.30,
		},
		ThirtyYearRate: 0.069,
	}
}

func TestFactChecker_AccurateResponsePasses(t *testing.T) {
	f := NewFactChecker(0)
	result := f.Check(
		"Your recommended price is $365,000 with a monthly payment of $2,010 at a 30-year rate of 6.9%.",
		checkerReport(),
	)
	assert.Empty(t, result.Discrepancies)
	assert.Empty(t, result.CorrectionNote)
}

func TestFactChecker_PaymentDeviationCaught(t *testing.T) {
	f := NewFactChecker(0)
	result := f.Check(
		"Your monthly payment would be about $3,500.",
		checkerReport(),
	)
	require.Len(t, result.Discrepancies, 1)
	d := result.Discrepancies[0]
	assert.Equal(t, "monthly_payment", d.Field)
	assert.InDelta(t, 3500, d.CitedValue, 1e-9)
	assert.InDelta(t, 2010, d.ExpectedValue, 1e-9)
	assert.NotEmpty(t, result.CorrectionNote)
	assert.Contains(t, result.CorrectionNote, "$2,010")
}

func TestFactChecker_WithinThresholdIgnored(t *testing.T) {
	f := NewFactChecker(0)
	// 2300 is ~14% off 2010, inside the 20% threshold.
	result := f.Check("Your monthly payment is around $2,300.", checkerReport())
	assert.Empty(t, result.Discrepancies)
}

func TestFactChecker_PercentFieldDeviation(t *testing.T) {
	f := NewFactChecker(0)
	result := f.Check("Your back-end DTI is 45% right now.", checkerReport())

	require.Len(t, result.Discrepancies, 1)
	assert.Equal(t, "back_end_dti", result.Discrepancies[0].Field)
	assert.InDelta(t, 0.45, result.Discrepancies[0].CitedValue, 1e-9)
	assert.Contains(t, result.CorrectionNote, "30.00%")
}

func TestFactChecker_RateDeviation(t *testing.T) {
	f := NewFactChecker(0)
	result := f.Check("Rates sit at a 30-year fixed rate of 9.5% today.", checkerReport())

	require.Len(t, result.Discrepancies, 1)
	assert.Equal(t, "thirty_year_rate", result.Discrepancies[0].Field)
}

func TestFactChecker_MultipleDiscrepanciesOneNote(t *testing.T) {
	f := NewFactChecker(0)
	result := f.Check(
		"Your max purchase price is $700,000 and your monthly payment is $4,000.",
		checkerReport(),
	)
	require.Len(t, result.Discrepancies, 2)
	assert.Contains(t, result.CorrectionNote, "max purchase price")
	assert.Contains(t, result.CorrectionNote, "monthly payment")
	assert.Equal(t, 1, strings.Count(result.CorrectionNote, "Correction:"))
}

func TestFactChecker_UnanchoredNumbersIgnored(t *testing.T) {
	f := NewFactChecker(0)
	result := f.Check(
		"Back in 1995 a typical home cost $120,000 and some loans charged 12%.",
		checkerReport(),
	)
	assert.Empty(t, result.Discrepancies)
}

func TestFactChecker_NilReport(t *testing.T) {
	f := NewFactChecker(0)
	result := f.Check("Your monthly payment is $99,999.", nil)
	assert.Empty(t, result.Discrepancies)
}

func TestFactChecker_CustomThreshold(t *testing.T) {
	f := NewFactChecker(0.50)
	// 40% off, allowed under a 50% threshold.
	result := f.Check("Your monthly payment is about $2,800.", checkerReport())
	assert.Empty(t, result.Discrepancies)
}
