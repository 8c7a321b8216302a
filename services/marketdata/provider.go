// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package marketdata gathers mortgage rates, inflation, area statistics and
// property listings from upstream providers, with caching and deterministic
// fallbacks so the analysis pipeline never blocks on a flaky source.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/nestready/nestready/pkg/cache"
	"github.com/nestready/nestready/pkg/validation"
	"github.com/nestready/nestready/services/orchestrator/datatypes"
)

// HTTPClient interface allows injecting mock HTTP clients for testing
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Provider fetches live market inputs. Implementations return an error when
// the upstream is unreachable or returns garbage; callers decide whether to
// fall back.
type Provider interface {
	Rates(ctx context.Context) (*datatypes.RateTable, error)
	Inflation(ctx context.Context) (*datatypes.InflationSeries, error)
	AreaInfo(ctx context.Context, location string) (*datatypes.AreaInfo, error)
	Listing(ctx context.Context, listingURL string) (*datatypes.Listing, error)
}

// Cache TTLs per data class. Live rates and listings go stale fast, area
// statistics are slower moving, inflation is monthly data.
const (
	ratesTTL     = 5 * time.Minute
	listingTTL   = 5 * time.Minute
	areaTTL      = 30 * time.Minute
	inflationTTL = time.Hour
)

// =============================================================================
// HTTP Provider
// =============================================================================

// HTTPProvider is the production Provider backed by JSON APIs.
//
// # Description
//
// Each fetch checks the shared TTL cache first, then issues a GET against
// the configured upstream and decodes its JSON body. Responses are stored
// back in the cache under an "md:" key prefix.
//
// # Thread Safety
//
// Safe for concurrent use. The underlying cache and http.Client are both
// concurrency-safe and the provider itself holds no mutable state.
type HTTPProvider struct {
	client HTTPClient
	cache  *cache.TTLCache

	ratesURL     string
	inflationURL string
	areaURL      string
}

// NewHTTPProvider builds a provider from environment configuration.
//
// # Inputs
//
//   - c: shared TTL cache. Must not be nil.
//
// Environment:
//
//   - RATES_API_URL: mortgage rate survey endpoint
//   - INFLATION_API_URL: CPI endpoint
//   - AREA_API_URL: area statistics endpoint, queried with ?location=
//
// Unset URLs disable that fetch; the snapshot layer substitutes fallbacks.
func NewHTTPProvider(c *cache.TTLCache) *HTTPProvider {
	return &HTTPProvider{
		client:       &http.Client{Timeout: 10 * time.Second},
		cache:        c,
		ratesURL:     os.Getenv("RATES_API_URL"),
		inflationURL: os.Getenv("INFLATION_API_URL"),
		areaURL:      os.Getenv("AREA_API_URL"),
	}
}

// --- Upstream wire structs ---

type rateSurveyResponse struct {
	ThirtyYearFixed  float64 `json:"thirty_year_fixed"`
	FifteenYearFixed float64 `json:"fifteen_year_fixed"`
	FiveOneARM       float64 `json:"five_one_arm"`
	AsOf             string  `json:"as_of"`
}

type cpiResponse struct {
	AnnualRate float64   `json:"annual_rate"`
	Monthly    []float64 `json:"monthly"`
}

type areaResponse struct {
	Location        string  `json:"location"`
	MedianPrice     float64 `json:"median_price"`
	PropertyTaxRate float64 `json:"property_tax_rate"`
	AnnualInsurance float64 `json:"annual_insurance"`
}

type listingResponse struct {
	Address string  `json:"address"`
	Price   float64 `json:"price"`
	Beds    int     `json:"beds"`
	Baths   float64 `json:"baths"`
	Sqft    int     `json:"sqft"`
}

// Rates fetches the current mortgage rate survey.
func (p *HTTPProvider) Rates(ctx context.Context) (*datatypes.RateTable, error) {
	if cached, ok := p.cache.Get("md:rates"); ok {
		return cached.(*datatypes.RateTable), nil
	}

	var resp rateSurveyResponse
	if err := p.getJSON(ctx, p.ratesURL, &resp); err != nil {
		return nil, fmt.Errorf("rate survey fetch: %w", err)
	}
	if resp.ThirtyYearFixed <= 0 || resp.ThirtyYearFixed > 0.30 {
		return nil, fmt.Errorf("rate survey returned implausible 30y rate %v", resp.ThirtyYearFixed)
	}

	table := &datatypes.RateTable{
		ThirtyYearFixed:  resp.ThirtyYearFixed,
		FifteenYearFixed: resp.FifteenYearFixed,
		FiveOneARM:       resp.FiveOneARM,
		AsOf:             resp.AsOf,
	}
	p.cache.Set("md:rates", table, ratesTTL)
	return table, nil
}

// Inflation fetches the CPI series.
func (p *HTTPProvider) Inflation(ctx context.Context) (*datatypes.InflationSeries, error) {
	if cached, ok := p.cache.Get("md:inflation"); ok {
		return cached.(*datatypes.InflationSeries), nil
	}

	var resp cpiResponse
	if err := p.getJSON(ctx, p.inflationURL, &resp); err != nil {
		return nil, fmt.Errorf("inflation fetch: %w", err)
	}

	series := &datatypes.InflationSeries{
		AnnualRate: resp.AnnualRate,
		Monthly:    resp.Monthly,
	}
	p.cache.Set("md:inflation", series, inflationTTL)
	return series, nil
}

// AreaInfo fetches housing statistics for a location. The location is
// sanitized before it reaches the upstream or a cache key.
func (p *HTTPProvider) AreaInfo(ctx context.Context, location string) (*datatypes.AreaInfo, error) {
	safeLoc, err := validation.SanitizeLocation(location)
	if err != nil {
		return nil, fmt.Errorf("area info fetch: %w", err)
	}

	cacheKey := "md:area:" + strings.ToLower(safeLoc)
	if cached, ok := p.cache.Get(cacheKey); ok {
		return cached.(*datatypes.AreaInfo), nil
	}

	target := p.areaURL
	if target != "" {
		target += "?location=" + url.QueryEscape(safeLoc)
	}

	var resp areaResponse
	if err := p.getJSON(ctx, target, &resp); err != nil {
		return nil, fmt.Errorf("area info fetch: %w", err)
	}

	info := &datatypes.AreaInfo{
		Location:        safeLoc,
		MedianPrice:     resp.MedianPrice,
		PropertyTaxRate: resp.PropertyTaxRate,
		AnnualInsurance: resp.AnnualInsurance,
	}
	p.cache.Set(cacheKey, info, areaTTL)
	return info, nil
}

// Listing fetches a property listing by URL.
func (p *HTTPProvider) Listing(ctx context.Context, listingURL string) (*datatypes.Listing, error) {
	if err := validation.ValidateListingURL(listingURL); err != nil {
		return nil, fmt.Errorf("listing fetch: %w", err)
	}

	cacheKey := "md:listing:" + listingURL
	if cached, ok := p.cache.Get(cacheKey); ok {
		return cached.(*datatypes.Listing), nil
	}

	var resp listingResponse
	if err := p.getJSON(ctx, listingURL, &resp); err != nil {
		return nil, fmt.Errorf("listing fetch: %w", err)
	}
	if resp.Price <= 0 {
		return nil, fmt.Errorf("listing at %s has no price", listingURL)
	}

	listing := &datatypes.Listing{
		URL:     listingURL,
		Address: resp.Address,
		Price:   resp.Price,
		Beds:    resp.Beds,
		Baths:   resp.Baths,
		Sqft:    resp.Sqft,
	}
	p.cache.Set(cacheKey, listing, listingTTL)
	return listing, nil
}

// getJSON issues a GET and decodes the JSON body into out.
func (p *HTTPProvider) getJSON(ctx context.Context, target string, out any) error {
	if target == "" {
		return fmt.Errorf("no upstream configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

var _ Provider = (*HTTPProvider)(nil)
