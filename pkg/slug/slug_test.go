// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

package slug_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/propvault/propvault/pkg/slug"
)

/*
TestFrom covers the normalization pipeline on representative titles.
*/
func TestFrom(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "Marina Heights Tower 2", "marina-heights-tower-2"},
		{"accents", "Résidence Élysée", "residence-elysee"},
		{"punctuation", "Penthouse #1 (Sea View!)", "penthouse-1-sea-view"},
		{"multiple_spaces", "Old   Town    Loft", "old-town-loft"},
		{"leading_trailing", "  The Docks  ", "the-docks"},
		{"already_slug", "the-docks", "the-docks"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, slug.From(tt.input))
		})
	}
}
