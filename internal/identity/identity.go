// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

/*
Package identity unifies every login flow into one canonical identity model.

Wallet signatures, delegated email/password, social OAuth, and superadmin
credential pairs all converge here: each flow derives a deterministic
canonical ID, upserts one account row, and leaves with a signed session token
carrying the same claims shape.

Canonical ID scheme:

  - wallet:     "wallet_" + lowercase(address)
  - email:      "email_" + lowercase(email)
  - social:     "<provider>_" + subject
  - superadmin: "superadmin_" + username

The prefix encodes the source, so two flows can never collide on the same ID
and the source of any stored identity is recoverable from the ID alone.
*/
package identity

import (
	"strings"
	"time"

	"github.com/propvault/propvault/internal/platform/sec"
)

// # Identity Sources

// Source identifies which login flow produced an identity.
//
// The set is closed: a token whose provider claim is not one of these values
// was not minted by any PropVault login flow.
type Source string

const (
	SourceWallet     Source = "wallet"
	SourceEmail      Source = "email"
	SourceSocial     Source = "social"
	SourceSuperadmin Source = "superadmin"
)

// IsValid checks if the source is one of the predefined login flows.
func (s Source) IsValid() bool {
	switch s {
	case SourceWallet, SourceEmail, SourceSocial, SourceSuperadmin:
		return true
	default:
		return false
	}
}

// # Canonical ID Derivation

// WalletID derives the canonical identity ID for a wallet address.
//
// Addresses are case-insensitive on chain, so the ID is always lowercased:
// 0xAbC and 0xabc must map to the SAME identity.
func WalletID(address string) string {
	return "wallet_" + strings.ToLower(address)
}

// EmailID derives the canonical identity ID for an email login.
func EmailID(email string) string {
	return "email_" + strings.ToLower(email)
}

// SocialID derives the canonical identity ID for a social OAuth login.
//
// The provider's stable subject identifier is used as-is; only the provider
// tag is normalized. Different providers never collide because the tag is
// part of the ID.
func SocialID(provider, subject string) string {
	return strings.ToLower(provider) + "_" + subject
}

// SuperadminID derives the canonical identity ID for an operator login.
func SuperadminID(username string) string {
	return "superadmin_" + username
}

// # Entity

// Identity is the unified account record behind every login flow.
type Identity struct {
	// ID is the surrogate primary key (UUIDv7).
	ID string `json:"id"`

	// CanonicalID is the deterministic source-prefixed identifier. It is the
	// value carried as the token subject and the unique key for upserts.
	CanonicalID string `json:"canonical_id"`

	// Source is the login flow that first created this identity.
	Source Source `json:"source"`

	// Address is the wallet address, when known (wallet logins, or attached later).
	Address string `json:"address,omitempty"`

	// Email is the login or profile email, when known.
	Email string `json:"email,omitempty"`

	// Name is the display name, when the flow supplies one.
	Name string `json:"name,omitempty"`

	// SocialProvider is the OAuth provider tag for social identities.
	SocialProvider string `json:"social_provider,omitempty"`

	// Role is the coarse access level. Every self-service flow assigns
	// [sec.RoleUser]; staff roles are granted out-of-band.
	Role sec.UserRole `json:"role"`

	// KYCVerified reports whether the identity passed KYC review.
	KYCVerified bool `json:"kyc_verified"`

	// Whitelisted reports whether the wallet is on the marketplace allow-list.
	Whitelisted bool `json:"whitelisted"`

	// SmartAccount is the attached smart-contract account address, if any.
	SmartAccount string `json:"smart_account,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	LastLoginAt time.Time `json:"last_login_at"`
}

// Claims builds the session token payload for this identity.
//
// The token embeds the full authorization state (role, permissions, flags) so
// the route guard never needs a database round-trip. Superusers with the
// super_admin role carry the full wildcard permission set.
func (identity *Identity) Claims(permissions []sec.Permission) sec.AuthClaims {
	return sec.AuthClaims{
		UserID:         identity.CanonicalID,
		Address:        identity.Address,
		Email:          identity.Email,
		Name:           identity.Name,
		Provider:       string(identity.Source),
		SocialProvider: identity.SocialProvider,
		Role:           string(identity.Role),
		Permissions:    permissions,
		KYCVerified:    identity.KYCVerified,
		Whitelisted:    identity.Whitelisted,
		SmartAccount:   identity.SmartAccount,
	}
}
