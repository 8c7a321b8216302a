// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package marketdata

import "github.com/nestready/nestready/services/orchestrator/datatypes"

// Fallback values used when a live source is unavailable. These track the
// national survey figures and are refreshed with releases, not at runtime.
const (
	FallbackThirtyYearRate  = 0.069
	FallbackFifteenYearRate = 0.062
	FallbackFiveOneARMRate  = 0.066
	FallbackInflationRate   = 0.031
	FallbackMedianPrice     = 412000.0
	FallbackPropertyTaxRate = 0.011
	FallbackAnnualInsurance = 1800.0
)

// fallbackRates returns the national-average rate table.
func fallbackRates() *datatypes.RateTable {
	return &datatypes.RateTable{
		ThirtyYearFixed:  FallbackThirtyYearRate,
		FifteenYearFixed: FallbackFifteenYearRate,
		FiveOneARM:       FallbackFiveOneARMRate,
		AsOf:             "fallback",
	}
}

// fallbackInflation returns the trailing-year CPI estimate.
func fallbackInflation() *datatypes.InflationSeries {
	return &datatypes.InflationSeries{
		AnnualRate: FallbackInflationRate,
	}
}

// fallbackArea returns national-median area statistics for the location.
func fallbackArea(location string) *datatypes.AreaInfo {
	return &datatypes.AreaInfo{
		Location:        location,
		MedianPrice:     FallbackMedianPrice,
		PropertyTaxRate: FallbackPropertyTaxRate,
		AnnualInsurance: FallbackAnnualInsurance,
	}
}
