// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chatcontext

import (
	"fmt"

	"github.com/nestready/nestready/services/orchestrator/datatypes"
)

// PersonaHints derives additive directive strings from the computed
// report. Hints are appended to the system prompt; several can apply at
// once.
func PersonaHints(report *datatypes.ComputedReport) []string {
	if report == nil {
		return nil
	}

	var hints []string

	if report.Affordability.VAEligible {
		hints = append(hints, "The user is VA-eligible. Emphasize VA loan benefits: zero down payment and no mortgage insurance.")
	}
	if report.Affordability.FHAEligible && !report.Affordability.VAEligible {
		hints = append(hints, "The user qualifies for FHA financing. Highlight first-time-buyer programs and low down payment options.")
	}
	if report.Affordability.BackEndDTI > 0.36 {
		hints = append(hints, "The user's back-end DTI exceeds 36%. Frame suggestions around reducing monthly debt before buying.")
	}
	if report.Affordability.BackEndDTI > 0 && report.Affordability.BackEndDTI <= 0.28 {
		hints = append(hints, "The user has comfortable debt ratios. It is reasonable to discuss stretching toward the higher end of their range.")
	}
	if report.Risk.Level == datatypes.RiskHigh || report.Risk.Level == datatypes.RiskVeryHigh {
		hints = append(hints, "The stress tests flag elevated risk. Keep a cautious tone and avoid encouraging a larger purchase.")
	}
	if report.Listing != nil {
		hints = append(hints, fmt.Sprintf("A specific property was analyzed (%s). Reference it directly when relevant.", report.Listing.Address))
	}

	return hints
}
