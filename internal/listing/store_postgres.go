// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

package listing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/propvault/propvault/internal/platform/apperr"
	"github.com/propvault/propvault/pkg/pagination"
	"github.com/propvault/propvault/pkg/uuid"
)

// uniqueViolationCode is the PostgreSQL error code for unique constraint violations.
const uniqueViolationCode = "23505"

// PostgresRepository is the pgx-backed implementation of [Repository].
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a [PostgresRepository] on the given pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// listingColumns is the shared SELECT column list for marketplace.listing.
const listingColumns = `
	id, slug, title, description, city, country,
	contract_address, token_id, price_cents, status, created_by,
	created_at, updated_at`

/*
Create inserts a new listing row.

Returns:
  - *Listing: The stored row
  - error: apperr.Conflict on a slug collision, wrapped driver error otherwise
*/
func (repo *PostgresRepository) Create(ctx context.Context, record *Listing) (*Listing, error) {
	query := `
		INSERT INTO marketplace.listing (
			id, slug, title, description, city, country,
			contract_address, token_id, price_cents, status, created_by,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		RETURNING ` + listingColumns

	row := repo.pool.QueryRow(ctx, query,
		uuid.Must(),
		record.Slug,
		record.Title,
		record.Description,
		record.City,
		record.Country,
		record.ContractAddress,
		record.TokenID,
		record.PriceCents,
		record.Status,
		record.CreatedBy,
	)

	stored, err := scanListing(row)
	if err != nil {
		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == uniqueViolationCode {
			return nil, apperr.Conflict("A listing with this slug already exists")
		}
		return nil, fmt.Errorf("listing: create failed: %w", err)
	}

	return stored, nil
}

/*
FindBySlug fetches a single listing by its slug.
*/
func (repo *PostgresRepository) FindBySlug(ctx context.Context, slug string) (*Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM marketplace.listing WHERE slug = $1`

	stored, err := scanListing(repo.pool.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Listing")
		}
		return nil, fmt.Errorf("listing: find failed: %w", err)
	}

	return stored, nil
}

/*
List returns a page of non-draft listings plus the total count.
*/
func (repo *PostgresRepository) List(ctx context.Context, params pagination.Params) ([]*Listing, int, error) {

	// 1. Total count for the pagination metadata
	var total int
	countQuery := `SELECT count(*) FROM marketplace.listing WHERE status <> $1`
	if err := repo.pool.QueryRow(ctx, countQuery, StatusDraft).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("listing: count failed: %w", err)
	}

	// 2. Fetch the requested page
	query := `
		SELECT ` + listingColumns + `
		FROM marketplace.listing
		WHERE status <> $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := repo.pool.Query(ctx, query, StatusDraft, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("listing: list failed: %w", err)
	}
	defer rows.Close()

	listings := make([]*Listing, 0, params.Limit)
	for rows.Next() {
		stored, err := scanListing(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("listing: list scan failed: %w", err)
		}
		listings = append(listings, stored)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("listing: list iteration failed: %w", err)
	}

	return listings, total, nil
}

/*
Delete removes a listing by slug.
*/
func (repo *PostgresRepository) Delete(ctx context.Context, slug string) error {
	tag, err := repo.pool.Exec(ctx, `DELETE FROM marketplace.listing WHERE slug = $1`, slug)
	if err != nil {
		return fmt.Errorf("listing: delete failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Listing")
	}

	return nil
}

// scanListing maps one marketplace.listing row onto the entity.
func scanListing(row pgx.Row) (*Listing, error) {
	var stored Listing
	err := row.Scan(
		&stored.ID,
		&stored.Slug,
		&stored.Title,
		&stored.Description,
		&stored.City,
		&stored.Country,
		&stored.ContractAddress,
		&stored.TokenID,
		&stored.PriceCents,
		&stored.Status,
		&stored.CreatedBy,
		&stored.CreatedAt,
		&stored.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}
