// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that are forwarded
// to external data providers or used in cache keys. Using these validators
// prevents injection via crafted location strings and listing URLs.
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// locationPattern matches "City, ST" style locations and free-form area
// names. Allows letters, digits, spaces, commas, periods, apostrophes and
// hyphens (St. Paul, Coeur d'Alene, Winston-Salem).
var locationPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 ,.'\-]{0,79}$`)

// zipPattern matches 5-digit US ZIP codes, optionally with a +4 suffix.
var zipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// ValidateLocation validates a location string before it reaches a data
// provider or a cache key.
//
// Valid locations:
//   - 1-80 characters
//   - Letters, digits, spaces
//   - Commas, periods, apostrophes, hyphens
//   - Or a 5-digit ZIP code (with optional +4)
//
// Returns an error if the location is invalid.
//
// Example:
//
//	if err := validation.ValidateLocation(loc); err != nil {
//	    return nil, fmt.Errorf("invalid location: %w", err)
//	}
//	// Safe to use in a provider query
func ValidateLocation(location string) error {
	if location == "" {
		return fmt.Errorf("location cannot be empty")
	}

	if zipPattern.MatchString(location) {
		return nil
	}

	if !locationPattern.MatchString(location) {
		return fmt.Errorf("invalid location format: %q (must be 1-80 chars of letters, digits, spaces, commas, periods, apostrophes, or hyphens)", location)
	}

	return nil
}

// SanitizeLocation normalizes and validates a location string.
// Returns the trimmed location with collapsed internal whitespace if valid.
//
// Use this when you need both validation and normalization:
//
//	safeLoc, err := validation.SanitizeLocation(userInput)
//	if err != nil {
//	    return err
//	}
func SanitizeLocation(location string) (string, error) {
	normalized := strings.Join(strings.Fields(location), " ")
	if err := ValidateLocation(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// ValidateListingURL validates a property listing URL.
//
// Only absolute http and https URLs with a host are accepted. The URL is
// fetched server-side, so anything else (file, ftp, scheme-relative) is
// rejected outright.
func ValidateListingURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("listing URL cannot be empty")
	}
	if len(raw) > 2048 {
		return fmt.Errorf("listing URL exceeds 2048 characters")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid listing URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("listing URL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("listing URL missing host")
	}
	return nil
}
