// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

package pagination_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/propvault/propvault/pkg/pagination"
)

/*
TestFromRequest verifies query parsing and clamping.
*/
func TestFromRequest(t *testing.T) {
	tests := []struct {
		name          string
		query         string
		expectedPage  int
		expectedLimit int
	}{
		{"defaults", "", 1, 20},
		{"explicit", "?page=3&limit=50", 3, 50},
		{"negative_page", "?page=-1", 1, 20},
		{"zero_limit", "?limit=0", 1, 20},
		{"excessive_limit", "?limit=1000", 1, 20},
		{"garbage", "?page=abc&limit=xyz", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest("GET", "/listings"+tt.query, nil)
			params := pagination.FromRequest(request)

			assert.Equal(t, tt.expectedPage, params.Page)
			assert.Equal(t, tt.expectedLimit, params.Limit)
		})
	}
}

/*
TestOffset verifies the SQL offset derivation.
*/
func TestOffset(t *testing.T) {
	assert.Equal(t, 0, pagination.Params{Page: 1, Limit: 20}.Offset())
	assert.Equal(t, 20, pagination.Params{Page: 2, Limit: 20}.Offset())
	assert.Equal(t, 0, pagination.Params{Page: 0, Limit: 20}.Offset())
}

/*
TestNewMeta verifies total page math including the partial last page.
*/
func TestNewMeta(t *testing.T) {
	meta := pagination.NewMeta(2, 20, 45)

	assert.Equal(t, 2, meta.Page)
	assert.Equal(t, 20, meta.Limit)
	assert.Equal(t, 45, meta.Total)
	assert.Equal(t, 3, meta.TotalPages)

	assert.Equal(t, 0, pagination.NewMeta(1, 20, 0).TotalPages)
}
