// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxMessageContentBytes is the maximum size of a single message content.
	MaxMessageContentBytes = 32 * 1024 // 32KB

	// MaxMessagesPerRequest is the maximum number of history messages in a
	// chat request.
	MaxMessagesPerRequest = 100
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// profileValidate is the validator instance for profile and chat datatypes.
// Initialized in init() with custom validators.
var profileValidate *validator.Validate

func init() {
	profileValidate = validator.New()
	_ = profileValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes enforces the per-message content size limit. Checks byte
// length (not rune count) to prevent memory exhaustion with large payloads.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageContentBytes
}

// =============================================================================
// Profile Types
// =============================================================================

// Profile is the user-submitted financial and location input for one
// analysis run.
//
// # Description
//
// Profile is immutable once submitted and owned by the request that carries
// it. Schema validation of the profile is the only failure that aborts an
// analysis run before phase 1; every later failure is absorbed with
// fallback values.
//
// # Validation
//
// Uses go-playground/validator:
//   - AnnualIncome: required, 1 to 10,000,000
//   - MonthlyDebt: 0 to 1,000,000
//   - Savings: >= 0
//   - CreditScore: required, 300-850
//   - Location: required, "City, ST" or 5-digit ZIP
//   - ListingURL: optional, must be a URL when present
//
// DownPayment is additionally checked against TargetPrice by Validate()
// (cross-field rules are not expressible as tags).
type Profile struct {
	AnnualIncome float64 `json:"annual_income" validate:"required,gt=0,lte=10000000"`
	MonthlyDebt  float64 `json:"monthly_debt" validate:"gte=0,lte=1000000"`
	Savings      float64 `json:"savings" validate:"gte=0"`
	DownPayment  float64 `json:"down_payment" validate:"gte=0"`
	CreditScore  int     `json:"credit_score" validate:"required,gte=300,lte=850"`
	Location     string  `json:"location" validate:"required,min=2,max=80"`

	// TargetPrice is an optional price the user is considering. Zero means
	// no specific target.
	TargetPrice float64 `json:"target_price,omitempty" validate:"gte=0"`

	// ListingURL optionally points at a specific property listing to
	// import during phase 1.
	ListingURL string `json:"listing_url,omitempty" validate:"omitempty,url"`

	VAEligible     bool `json:"va_eligible"`
	FirstTimeBuyer bool `json:"first_time_buyer"`

	// MonthlyRent is the user's current rent, used by the rent-vs-buy
	// comparison. Zero means unknown.
	MonthlyRent float64 `json:"monthly_rent,omitempty" validate:"gte=0,lte=100000"`

	// Investment holds optional investment-analysis parameters. Nil skips
	// the investment sub-report.
	Investment *InvestmentParams `json:"investment,omitempty"`
}

// InvestmentParams are the optional inputs for the investment sub-report.
type InvestmentParams struct {
	ExpectedMonthlyRent float64 `json:"expected_monthly_rent" validate:"required,gt=0,lte=100000"`
	AnnualAppreciation  float64 `json:"annual_appreciation" validate:"gte=-0.2,lte=0.5"`
	HoldYears           int     `json:"hold_years" validate:"gte=1,lte=50"`
}

// Validate checks the profile schema and cross-field constraints.
//
// # Description
//
// Runs tag validation first, then the cross-field rules:
//   - down payment must not exceed savings
//   - down payment must not exceed target price (when a target is set)
//
// # Outputs
//
//   - error: Non-nil if the profile is malformed. This is the
//     FatalRequestError path of an analysis run.
func (p *Profile) Validate() error {
	if err := profileValidate.Struct(p); err != nil {
		return fmt.Errorf("profile schema: %w", err)
	}
	if p.DownPayment > p.Savings {
		return fmt.Errorf("profile schema: down payment %.2f exceeds savings %.2f", p.DownPayment, p.Savings)
	}
	if p.TargetPrice > 0 && p.DownPayment > p.TargetPrice {
		return fmt.Errorf("profile schema: down payment %.2f exceeds target price %.2f", p.DownPayment, p.TargetPrice)
	}
	return nil
}
