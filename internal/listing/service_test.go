// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

package listing_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propvault/propvault/internal/listing"
	"github.com/propvault/propvault/internal/platform/apperr"
	"github.com/propvault/propvault/internal/platform/sec"
	"github.com/propvault/propvault/pkg/pagination"
)

type fakeRepository struct {
	bySlug map[string]*listing.Listing
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{bySlug: map[string]*listing.Listing{}}
}

func (repo *fakeRepository) Create(ctx context.Context, record *listing.Listing) (*listing.Listing, error) {
	if _, exists := repo.bySlug[record.Slug]; exists {
		return nil, apperr.Conflict("A listing with this slug already exists")
	}
	stored := *record
	stored.ID = "id-" + record.Slug
	repo.bySlug[record.Slug] = &stored
	clone := stored
	return &clone, nil
}

func (repo *fakeRepository) FindBySlug(ctx context.Context, slug string) (*listing.Listing, error) {
	stored, ok := repo.bySlug[slug]
	if !ok {
		return nil, apperr.NotFound("Listing")
	}
	clone := *stored
	return &clone, nil
}

func (repo *fakeRepository) List(ctx context.Context, params pagination.Params) ([]*listing.Listing, int, error) {
	all := make([]*listing.Listing, 0, len(repo.bySlug))
	for _, stored := range repo.bySlug {
		clone := *stored
		all = append(all, &clone)
	}
	return all, len(all), nil
}

func (repo *fakeRepository) Delete(ctx context.Context, slug string) error {
	if _, ok := repo.bySlug[slug]; !ok {
		return apperr.NotFound("Listing")
	}
	delete(repo.bySlug, slug)
	return nil
}

func newService(repo *fakeRepository) *listing.Service {
	return listing.NewService(repo, slog.New(slog.DiscardHandler))
}

func staffClaims() *sec.AuthClaims {
	return &sec.AuthClaims{UserID: "superadmin_ops", Role: "super_admin"}
}

func validInput() listing.CreateInput {
	return listing.CreateInput{
		Title:           "Marina Heights Tower 2",
		Description:     "Waterfront apartment, tokenized in 1000 shares.",
		City:            "Dubai",
		Country:         "AE",
		ContractAddress: "0x52908400098527886e0f7030069857d2e4169ee7",
		TokenID:         "42",
		PriceCents:      125_000_00,
	}
}

/*
TestCreate_DerivesSlug verifies the slug comes from the title and the caller
is recorded as publisher.
*/
func TestCreate_DerivesSlug(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	stored, err := service.Create(context.Background(), staffClaims(), validInput())
	require.NoError(t, err)

	assert.Equal(t, "marina-heights-tower-2", stored.Slug)
	assert.Equal(t, listing.StatusActive, stored.Status)
	assert.Equal(t, "superadmin_ops", stored.CreatedBy)
}

/*
TestCreate_SlugCollision verifies a duplicate title surfaces as a conflict.
*/
func TestCreate_SlugCollision(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)
	ctx := context.Background()

	_, err := service.Create(ctx, staffClaims(), validInput())
	require.NoError(t, err)

	duplicate, err := service.Create(ctx, staffClaims(), validInput())
	assert.Nil(t, duplicate)
	assert.Equal(t, "CONFLICT", apperr.As(err).Code)
}

/*
TestCreate_Validation covers the field rules in one pass.
*/
func TestCreate_Validation(t *testing.T) {
	service := newService(newFakeRepository())

	tests := []struct {
		name   string
		mutate func(*listing.CreateInput)
		field  string
	}{
		{"missing_title", func(in *listing.CreateInput) { in.Title = "" }, "title"},
		{"bad_contract", func(in *listing.CreateInput) { in.ContractAddress = "not-hex" }, "contract_address"},
		{"zero_price", func(in *listing.CreateInput) { in.PriceCents = 0 }, "price_cents"},
		{"missing_city", func(in *listing.CreateInput) { in.City = "" }, "city"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)

			stored, err := service.Create(context.Background(), staffClaims(), input)
			assert.Nil(t, stored)

			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, "VALIDATION_ERROR", ae.Code)
			assert.Equal(t, tt.field, ae.Details[0].Field)
		})
	}
}

/*
TestGetBySlug covers lookup, slug validation, and the not-found path.
*/
func TestGetBySlug(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)
	ctx := context.Background()

	created, err := service.Create(ctx, staffClaims(), validInput())
	require.NoError(t, err)

	stored, err := service.GetBySlug(ctx, created.Slug)
	require.NoError(t, err)
	assert.Equal(t, created.ID, stored.ID)

	_, err = service.GetBySlug(ctx, "no-such-listing")
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)

	_, err = service.GetBySlug(ctx, "Bad Slug!")
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
}

/*
TestList verifies the pagination metadata matches the page parameters.
*/
func TestList(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)
	ctx := context.Background()

	_, err := service.Create(ctx, staffClaims(), validInput())
	require.NoError(t, err)

	listings, meta, err := service.List(ctx, pagination.Params{Page: 1, Limit: 20})
	require.NoError(t, err)

	assert.Len(t, listings, 1)
	assert.Equal(t, 1, meta.Total)
	assert.Equal(t, 1, meta.TotalPages)
	assert.Equal(t, 20, meta.Limit)
}

/*
TestDelete covers removal and the not-found path.
*/
func TestDelete(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)
	ctx := context.Background()

	created, err := service.Create(ctx, staffClaims(), validInput())
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, staffClaims(), created.Slug))
	assert.Empty(t, repo.bySlug)

	err = service.Delete(ctx, staffClaims(), created.Slug)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}
