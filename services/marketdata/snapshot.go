// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package marketdata

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nestready/nestready/pkg/logging"
	"github.com/nestready/nestready/services/orchestrator/datatypes"
)

// Service assembles full market snapshots from a Provider, substituting
// fallbacks for any source that fails.
//
// # Description
//
// Snapshot never returns an error: a dead upstream degrades that one field
// to its fallback value and records the degradation in Fallbacks, so the
// analysis pipeline always has numbers to work with.
//
// # Thread Safety
//
// Safe for concurrent use.
type Service struct {
	provider Provider
	logger   *logging.Logger
}

// NewService wires a snapshot service over the given provider.
func NewService(provider Provider, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{provider: provider, logger: logger}
}

// Snapshot gathers rates, inflation, area statistics, and optionally a
// listing, fanning the fetches out concurrently.
//
// # Inputs
//
//   - ctx: cancels all in-flight fetches.
//   - profile: supplies the location and optional listing URL.
//
// # Outputs
//
//   - *datatypes.MarketSnapshot: always non-nil. Fallbacks lists the field
//     names ("rates", "inflation", "area", "listing") that degraded.
func (s *Service) Snapshot(ctx context.Context, profile *datatypes.Profile) *datatypes.MarketSnapshot {
	snap := &datatypes.MarketSnapshot{FetchedAt: time.Now().UTC()}

	// Each goroutine writes a disjoint snapshot field; the shared
	// Fallbacks slice needs the mutex.
	var mu sync.Mutex
	degrade := func(field string) {
		mu.Lock()
		defer mu.Unlock()
		snap.Fallbacks = append(snap.Fallbacks, field)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rates, err := s.provider.Rates(gctx)
		if err != nil {
			s.logger.Warn("rate fetch failed, using fallback", "error", err)
			snap.Rates = *fallbackRates()
			degrade("rates")
			return nil
		}
		snap.Rates = *rates
		return nil
	})

	g.Go(func() error {
		inflation, err := s.provider.Inflation(gctx)
		if err != nil {
			s.logger.Warn("inflation fetch failed, using fallback", "error", err)
			snap.Inflation = *fallbackInflation()
			degrade("inflation")
			return nil
		}
		snap.Inflation = *inflation
		return nil
	})

	g.Go(func() error {
		area, err := s.provider.AreaInfo(gctx, profile.Location)
		if err != nil {
			s.logger.Warn("area fetch failed, using fallback", "location", profile.Location, "error", err)
			snap.Area = *fallbackArea(profile.Location)
			degrade("area")
			return nil
		}
		snap.Area = *area
		return nil
	})

	if profile.ListingURL != "" {
		g.Go(func() error {
			listing, err := s.provider.Listing(gctx, profile.ListingURL)
			if err != nil {
				// No sensible fallback for a specific property. The
				// analysis proceeds on the profile's target price.
				s.logger.Warn("listing fetch failed", "url", profile.ListingURL, "error", err)
				degrade("listing")
				return nil
			}
			snap.Listing = listing
			return nil
		})
	}

	// Goroutines never return errors; errgroup bounds their lifetime to
	// this call.
	_ = g.Wait()

	return snap
}
