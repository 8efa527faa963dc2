// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

/*
Package listing manages tokenized property listings on the marketplace.

Reads are public: anyone can browse listings without a session. Writes sit
behind the fine-grained permission gate, so even a staff role that reaches
the admin surface needs an explicit marketplace grant to create or remove a
listing.
*/
package listing

import (
	"context"
	"time"

	"github.com/propvault/propvault/pkg/pagination"
)

// Listing statuses.
const (
	StatusDraft  = "draft"
	StatusActive = "active"
	StatusSold   = "sold"
)

// Listing is a tokenized property offered on the marketplace.
type Listing struct {
	// ID is the surrogate primary key (UUIDv7).
	ID string `json:"id"`

	// Slug is the URL-safe identifier derived from the title.
	Slug string `json:"slug"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	// City and Country locate the underlying property.
	City    string `json:"city"`
	Country string `json:"country"`

	// ContractAddress and TokenID identify the NFT backing this listing.
	ContractAddress string `json:"contract_address"`
	TokenID         string `json:"token_id"`

	// PriceCents is the asking price in USD cents.
	PriceCents int64 `json:"price_cents"`

	Status string `json:"status"`

	// CreatedBy is the canonical identity ID of the staff member who
	// published the listing.
	CreatedBy string `json:"created_by"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository persists marketplace listings.
type Repository interface {
	// Create inserts a new listing. A slug collision surfaces as
	// apperr.Conflict.
	Create(ctx context.Context, record *Listing) (*Listing, error)

	// FindBySlug returns the listing for a slug, or apperr.NotFound.
	FindBySlug(ctx context.Context, slug string) (*Listing, error)

	// List returns a page of active listings ordered by creation time
	// descending, plus the total count.
	List(ctx context.Context, params pagination.Params) ([]*Listing, int, error)

	// Delete removes a listing by slug. Returns apperr.NotFound when no
	// listing matches.
	Delete(ctx context.Context, slug string) error
}
