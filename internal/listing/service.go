// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

package listing

import (
	"context"
	"log/slog"

	"github.com/propvault/propvault/internal/platform/sec"
	"github.com/propvault/propvault/internal/platform/validate"
	"github.com/propvault/propvault/pkg/pagination"
	"github.com/propvault/propvault/pkg/slug"
)

// Service implements the marketplace listing operations.
type Service struct {
	repository Repository
	logger     *slog.Logger
}

// NewService creates the listing [Service].
func NewService(repository Repository, logger *slog.Logger) *Service {
	return &Service{repository: repository, logger: logger}
}

// CreateInput carries the fields required to publish a listing.
type CreateInput struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	City            string `json:"city"`
	Country         string `json:"country"`
	ContractAddress string `json:"contract_address"`
	TokenID         string `json:"token_id"`
	PriceCents      int64  `json:"price_cents"`
}

/*
Create validates and publishes a new listing.

The slug is derived from the title; a collision with an existing listing
surfaces as a conflict rather than silently renaming.

Parameters:
  - ctx: Request context
  - claims: The authenticated staff caller
  - input: The listing fields

Returns:
  - *Listing: The stored listing
  - error: Validation failure, apperr.Conflict, or storage failure
*/
func (service *Service) Create(ctx context.Context, claims *sec.AuthClaims, input CreateInput) (*Listing, error) {

	// ── 1. Validation ─────────────────────────────────────────────────────
	validator := &validate.Validator{}
	err := validator.
		Required("title", input.Title).MaxLen("title", input.Title, 200).
		MaxLen("description", input.Description, 5000).
		Required("city", input.City).
		Required("country", input.Country).
		Required("contract_address", input.ContractAddress).WalletAddress("contract_address", input.ContractAddress).
		Required("token_id", input.TokenID).
		Custom("price_cents", input.PriceCents <= 0, "Must be a positive amount").
		Err()
	if err != nil {
		return nil, err
	}

	// ── 2. Persistence ────────────────────────────────────────────────────
	stored, err := service.repository.Create(ctx, &Listing{
		Slug:            slug.From(input.Title),
		Title:           input.Title,
		Description:     input.Description,
		City:            input.City,
		Country:         input.Country,
		ContractAddress: input.ContractAddress,
		TokenID:         input.TokenID,
		PriceCents:      input.PriceCents,
		Status:          StatusActive,
		CreatedBy:       claims.UserID,
	})
	if err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "listing_created",
		slog.String("slug", stored.Slug),
		slog.String("created_by", stored.CreatedBy),
	)

	return stored, nil
}

/*
GetBySlug returns a single listing by its slug.
*/
func (service *Service) GetBySlug(ctx context.Context, listingSlug string) (*Listing, error) {
	validator := &validate.Validator{}
	if err := validator.Required("slug", listingSlug).Slug("slug", listingSlug).Err(); err != nil {
		return nil, err
	}

	return service.repository.FindBySlug(ctx, listingSlug)
}

/*
List returns a page of browsable listings.
*/
func (service *Service) List(ctx context.Context, params pagination.Params) ([]*Listing, pagination.Meta, error) {
	listings, total, err := service.repository.List(ctx, params)
	if err != nil {
		return nil, pagination.Meta{}, err
	}

	return listings, pagination.NewMeta(params.Page, params.Limit, total), nil
}

/*
Delete removes a listing by slug.
*/
func (service *Service) Delete(ctx context.Context, claims *sec.AuthClaims, listingSlug string) error {
	validator := &validate.Validator{}
	if err := validator.Required("slug", listingSlug).Slug("slug", listingSlug).Err(); err != nil {
		return err
	}

	if err := service.repository.Delete(ctx, listingSlug); err != nil {
		return err
	}

	service.logger.InfoContext(ctx, "listing_deleted",
		slog.String("slug", listingSlug),
		slog.String("deleted_by", claims.UserID),
	)

	return nil
}
