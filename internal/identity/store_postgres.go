// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/propvault/propvault/internal/platform/apperr"
	"github.com/propvault/propvault/pkg/pagination"
	"github.com/propvault/propvault/pkg/uuid"
)

// PostgresRepository is the pgx-backed implementation of [Repository].
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a [PostgresRepository] on the given pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// accountColumns is the shared SELECT column list for auth.account.
const accountColumns = `
	id, canonical_id, source, address, email, name, social_provider,
	role, kyc_verified, whitelisted, smart_account,
	created_at, updated_at, last_login_at`

/*
Upsert inserts or refreshes the identity matched by canonical_id.

The conflict branch keeps the row's role and kyc_verified untouched: those are
granted out-of-band (staff roles) or by the KYC flow, and a routine login must
never reset them. Profile fields and the whitelist flag from the latest flow
win, and last_login_at is always bumped.

Parameters:
  - ctx: Request context
  - record: The identity produced by a login flow

Returns:
  - *Identity: The stored row after the upsert
  - error: Wrapped driver error on failure
*/
func (repo *PostgresRepository) Upsert(ctx context.Context, record *Identity) (*Identity, error) {
	query := `
		INSERT INTO auth.account (
			id, canonical_id, source, address, email, name, social_provider,
			role, kyc_verified, whitelisted, smart_account,
			created_at, updated_at, last_login_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now(), now())
		ON CONFLICT (canonical_id) DO UPDATE SET
			address         = COALESCE(NULLIF(EXCLUDED.address, ''), auth.account.address),
			email           = COALESCE(NULLIF(EXCLUDED.email, ''), auth.account.email),
			name            = COALESCE(NULLIF(EXCLUDED.name, ''), auth.account.name),
			social_provider = COALESCE(NULLIF(EXCLUDED.social_provider, ''), auth.account.social_provider),
			whitelisted     = EXCLUDED.whitelisted,
			updated_at      = now(),
			last_login_at   = now()
		RETURNING ` + accountColumns

	row := repo.pool.QueryRow(ctx, query,
		uuid.Must(),
		record.CanonicalID,
		record.Source,
		record.Address,
		record.Email,
		record.Name,
		record.SocialProvider,
		record.Role,
		record.KYCVerified,
		record.Whitelisted,
		record.SmartAccount,
	)

	stored, err := scanIdentity(row)
	if err != nil {
		return nil, fmt.Errorf("identity: upsert failed: %w", err)
	}

	return stored, nil
}

/*
FindByCanonicalID fetches a single identity by its canonical ID.

Returns:
  - *Identity: The matching row
  - error: apperr.NotFound when no row matches, wrapped driver error otherwise
*/
func (repo *PostgresRepository) FindByCanonicalID(ctx context.Context, canonicalID string) (*Identity, error) {
	query := `SELECT ` + accountColumns + ` FROM auth.account WHERE canonical_id = $1`

	stored, err := scanIdentity(repo.pool.QueryRow(ctx, query, canonicalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Identity")
		}
		return nil, fmt.Errorf("identity: find failed: %w", err)
	}

	return stored, nil
}

/*
SetKYCVerified updates the KYC flag and returns the refreshed row.
*/
func (repo *PostgresRepository) SetKYCVerified(ctx context.Context, canonicalID string, verified bool) (*Identity, error) {
	query := `
		UPDATE auth.account
		SET kyc_verified = $2, updated_at = now()
		WHERE canonical_id = $1
		RETURNING ` + accountColumns

	stored, err := scanIdentity(repo.pool.QueryRow(ctx, query, canonicalID, verified))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Identity")
		}
		return nil, fmt.Errorf("identity: kyc update failed: %w", err)
	}

	return stored, nil
}

/*
SetSmartAccount attaches a smart-contract account address and returns the
refreshed row.
*/
func (repo *PostgresRepository) SetSmartAccount(ctx context.Context, canonicalID, smartAccount string) (*Identity, error) {
	query := `
		UPDATE auth.account
		SET smart_account = $2, updated_at = now()
		WHERE canonical_id = $1
		RETURNING ` + accountColumns

	stored, err := scanIdentity(repo.pool.QueryRow(ctx, query, canonicalID, smartAccount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Identity")
		}
		return nil, fmt.Errorf("identity: smart account update failed: %w", err)
	}

	return stored, nil
}

/*
List returns a page of identities ordered by creation time descending.

Returns:
  - []*Identity: The page of rows
  - int: Total row count for pagination metadata
  - error: Wrapped driver error on failure
*/
func (repo *PostgresRepository) List(ctx context.Context, params pagination.Params) ([]*Identity, int, error) {

	// 1. Total count for the pagination metadata
	var total int
	if err := repo.pool.QueryRow(ctx, `SELECT count(*) FROM auth.account`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("identity: count failed: %w", err)
	}

	// 2. Fetch the requested page
	query := `
		SELECT ` + accountColumns + `
		FROM auth.account
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := repo.pool.Query(ctx, query, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("identity: list failed: %w", err)
	}
	defer rows.Close()

	identities := make([]*Identity, 0, params.Limit)
	for rows.Next() {
		stored, err := scanIdentity(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("identity: list scan failed: %w", err)
		}
		identities = append(identities, stored)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("identity: list iteration failed: %w", err)
	}

	return identities, total, nil
}

// scanIdentity maps one auth.account row onto the entity.
func scanIdentity(row pgx.Row) (*Identity, error) {
	var stored Identity
	err := row.Scan(
		&stored.ID,
		&stored.CanonicalID,
		&stored.Source,
		&stored.Address,
		&stored.Email,
		&stored.Name,
		&stored.SocialProvider,
		&stored.Role,
		&stored.KYCVerified,
		&stored.Whitelisted,
		&stored.SmartAccount,
		&stored.CreatedAt,
		&stored.UpdatedAt,
		&stored.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}
