// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chatcontext

import (
	"encoding/json"
	"time"
)

// Tool result TTLs by data class. Deterministic math can live for an hour;
// anything touching live sources goes stale on the market-data schedule.
const (
	finmathToolTTL = time.Hour
	liveToolTTL    = 5 * time.Minute
	areaToolTTL    = 30 * time.Minute
)

var toolTTLs = map[string]time.Duration{
	"recalculate_affordability": finmathToolTTL,
	"calculate_payment":         finmathToolTTL,
	"compare_scenarios":         finmathToolTTL,
	"rent_vs_buy":               finmathToolTTL,
	"stress_test":               finmathToolTTL,
	"lookup_housing_programs":   finmathToolTTL,
	"get_current_rates":         liveToolTTL,
	"search_area_info":          areaToolTTL,
}

// ToolCacheKey builds the shared-cache key for a tool call:
// "tool:<scope>:<name>:<canonical JSON>". The scope is the caller's
// binding fingerprint, so conversations with different baselines never
// collide on the process-wide cache. encoding/json sorts map keys, so
// logically equal inputs collapse to one key.
func ToolCacheKey(scope, name string, input map[string]any) string {
	canonical, err := json.Marshal(input)
	if err != nil {
		canonical = []byte("{}")
	}
	return "tool:" + scope + ":" + name + ":" + string(canonical)
}

// ToolTTL returns the cache TTL for a tool's results. Unknown tools get
// the conservative live-data TTL.
func ToolTTL(name string) time.Duration {
	if ttl, ok := toolTTLs[name]; ok {
		return ttl
	}
	return liveToolTTL
}
