// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLocation_Valid(t *testing.T) {
	valid := []string{
		"Austin, TX",
		"St. Paul, MN",
		"Coeur d'Alene, ID",
		"Winston-Salem, NC",
		"78704",
		"78704-1234",
		"Queens",
	}
	for _, loc := range valid {
		assert.NoError(t, ValidateLocation(loc), "location %q", loc)
	}
}

func TestValidateLocation_Invalid(t *testing.T) {
	invalid := []string{
		"",
		"Austin; DROP TABLE listings",
		"a{b}",
		strings.Repeat("x", 81),
		"<script>",
	}
	for _, loc := range invalid {
		assert.Error(t, ValidateLocation(loc), "location %q", loc)
	}
}

func TestSanitizeLocation_CollapsesWhitespace(t *testing.T) {
	got, err := SanitizeLocation("  Austin,   TX  ")
	require.NoError(t, err)
	assert.Equal(t, "Austin, TX", got)
}

func TestSanitizeLocation_Invalid(t *testing.T) {
	_, err := SanitizeLocation("$$$")
	assert.Error(t, err)
}

func TestValidateListingURL(t *testing.T) {
	assert.NoError(t, ValidateListingURL("https://listings.example.com/home/123"))
	assert.NoError(t, ValidateListingURL("http://example.com/a"))

	assert.Error(t, ValidateListingURL(""))
	assert.Error(t, ValidateListingURL("file:///etc/passwd"))
	assert.Error(t, ValidateListingURL("ftp://example.com/x"))
	assert.Error(t, ValidateListingURL("//example.com/x"))
	assert.Error(t, ValidateListingURL("https://"+strings.Repeat("a", 2100)))
}
