// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

package identity

import (
	"context"

	"github.com/propvault/propvault/pkg/pagination"
)

// # Storage & Collaborator Ports
//
// The service depends on these small interfaces rather than concrete
// adapters. Postgres, Redis, and the external identity providers each plug in
// behind one of them, and tests swap in in-memory fakes.

// Repository persists unified identities.
type Repository interface {
	// Upsert inserts the identity or refreshes the existing row matched by
	// CanonicalID. Login timestamps and profile fields from the latest flow
	// win; role and verification flags on an existing row are preserved.
	Upsert(ctx context.Context, record *Identity) (*Identity, error)

	// FindByCanonicalID returns the identity for a canonical ID, or
	// apperr.NotFound when no such identity exists.
	FindByCanonicalID(ctx context.Context, canonicalID string) (*Identity, error)

	// SetKYCVerified flips the KYC flag for a canonical ID.
	SetKYCVerified(ctx context.Context, canonicalID string, verified bool) (*Identity, error)

	// SetSmartAccount attaches a smart-contract account address.
	SetSmartAccount(ctx context.Context, canonicalID, smartAccount string) (*Identity, error)

	// List returns a page of identities ordered by creation time descending.
	List(ctx context.Context, params pagination.Params) ([]*Identity, int, error)
}

// AllowlistChecker answers whether a wallet address may trade on the marketplace.
type AllowlistChecker interface {
	// IsAllowed reports allow-list membership for a lowercase wallet address.
	IsAllowed(ctx context.Context, address string) (bool, error)
}

// StateRepository stores one-time OAuth state nonces.
//
// A nonce is written at flow start and must be consumed exactly once at the
// callback; replaying a state is a CSRF attempt and must fail.
type StateRepository interface {
	// Save stores the nonce with the standard OAuth state TTL.
	Save(ctx context.Context, state string) error

	// Consume atomically checks and deletes the nonce. It returns false when
	// the nonce is unknown, expired, or already used.
	Consume(ctx context.Context, state string) (bool, error)
}

// SocialProfile is the normalized result of an OAuth userinfo exchange.
type SocialProfile struct {
	// Subject is the provider's stable user identifier.
	Subject string
	Email   string
	Name    string
}

// OAuthProvider exchanges an authorization code for a user profile.
type OAuthProvider interface {
	// Name returns the provider tag used in canonical IDs (e.g. "google").
	Name() string

	// AuthorizeURL builds the provider's consent URL for the given state.
	AuthorizeURL(state string) string

	// Exchange trades an authorization code for the user's profile. Network
	// failures and provider rejections surface as apperr.UpstreamAuth.
	Exchange(ctx context.Context, code string) (*SocialProfile, error)
}

// EmailSession is the result of a delegated email/password authentication.
type EmailSession struct {
	// Token is the session token minted by the delegated auth service.
	Token string
	// UserID is the delegated service's identifier for the account.
	UserID string
	Email  string
	Name   string
}

// EmailAuthenticator delegates email/password verification to an external service.
type EmailAuthenticator interface {
	// Authenticate verifies the credential pair upstream. Wrong credentials
	// surface as apperr.Unauthorized; an unreachable or misbehaving service
	// surfaces as apperr.UpstreamAuth.
	Authenticate(ctx context.Context, email, password string) (*EmailSession, error)
}
