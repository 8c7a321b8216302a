// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// RateTable holds current mortgage rates as annual fractions (0.069 = 6.9%).
type RateTable struct {
	ThirtyYearFixed  float64 `json:"thirty_year_fixed"`
	FifteenYearFixed float64 `json:"fifteen_year_fixed"`
	FiveOneARM       float64 `json:"five_one_arm"`

	// AsOf is the source's publication date (YYYY-MM-DD), or "fallback"
	// when the table holds the documented defaults.
	AsOf string `json:"as_of,omitempty"`
}

// InflationSeries holds the inflation context used by long-horizon
// projections.
type InflationSeries struct {
	// AnnualRate is the trailing twelve-month rate as a fraction.
	AnnualRate float64 `json:"annual_rate"`

	// Monthly holds up to twelve trailing month-over-month readings,
	// oldest first. May be empty when only the annual figure is known.
	Monthly []float64 `json:"monthly,omitempty"`
}

// AreaInfo describes the housing market around the profile's location.
type AreaInfo struct {
	Location        string  `json:"location"`
	MedianPrice     float64 `json:"median_price"`
	PropertyTaxRate float64 `json:"property_tax_rate"`
	AnnualInsurance float64 `json:"annual_insurance"`
}

// Listing is an imported property listing.
type Listing struct {
	URL     string  `json:"url"`
	Address string  `json:"address,omitempty"`
	Price   float64 `json:"price"`
	Beds    int     `json:"beds,omitempty"`
	Baths   float64 `json:"baths,omitempty"`
	Sqft    int     `json:"sqft,omitempty"`
}

// MarketSnapshot is the phase-1 output of an analysis run.
//
// # Description
//
// A snapshot is built exactly once per run. Each field populates
// independently: a failed source contributes its documented default value
// instead of failing the snapshot, and the field name is recorded in
// Fallbacks so consumers can tell live data from defaults.
type MarketSnapshot struct {
	Rates     RateTable       `json:"rates"`
	Inflation InflationSeries `json:"inflation"`
	Area      AreaInfo        `json:"area"`

	// Listing is present only when the profile referenced a listing URL
	// and the import succeeded.
	Listing *Listing `json:"listing,omitempty"`

	// Fallbacks names the snapshot fields that hold default values because
	// their source failed: "rates", "inflation", "area", "listing".
	Fallbacks []string `json:"fallbacks,omitempty"`

	FetchedAt time.Time `json:"fetched_at"`
}

// UsedFallback reports whether the named field fell back to its default.
func (m *MarketSnapshot) UsedFallback(field string) bool {
	for _, f := range m.Fallbacks {
		if f == field {
			return true
		}
	}
	return false
}
