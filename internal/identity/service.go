// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/propvault/propvault/internal/platform/apperr"
	"github.com/propvault/propvault/internal/platform/constants"
	"github.com/propvault/propvault/internal/platform/sec"
	"github.com/propvault/propvault/internal/platform/validate"
	"github.com/propvault/propvault/pkg/pagination"
)

// TokenIssuer mints signed session tokens.
//
// Defined here so the service depends on the capability, not on the concrete
// [sec.TokenService].
type TokenIssuer interface {
	Issue(claims sec.AuthClaims, timeToLive time.Duration) (string, error)
}

// SuperadminConfig holds the operator credential pair loaded from the
// environment. The password side is a bcrypt hash.
type SuperadminConfig struct {
	Username     string
	PasswordHash string
}

// Demo operator pair for local environments where no operator credentials are
// configured. The password side is compared in constant time like the real one.
// TODO: drop the demo pair once the staging seed script provisions a real
// operator credential via SUPERADMIN_USERNAME / SUPERADMIN_PASSWORD_HASH.
const (
	demoSuperadminUsername = "superadmin"
	demoSuperadminPassword = "propvault-demo"
)

// Session is the result of every successful login flow: one signed token and
// the unified identity behind it.
type Session struct {
	Token    string    `json:"token"`
	Identity *Identity `json:"identity"`
}

// Service implements the login flows and identity lifecycle operations.
type Service struct {
	repository Repository
	allowlist  AllowlistChecker
	states     StateRepository
	oauth      OAuthProvider
	emailAuth  EmailAuthenticator
	tokens     TokenIssuer
	superadmin SuperadminConfig
	logger     *slog.Logger
}

// NewService wires the identity service with its collaborators.
func NewService(
	repository Repository,
	allowlist AllowlistChecker,
	states StateRepository,
	oauth OAuthProvider,
	emailAuth EmailAuthenticator,
	tokens TokenIssuer,
	superadmin SuperadminConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		repository: repository,
		allowlist:  allowlist,
		states:     states,
		oauth:      oauth,
		emailAuth:  emailAuth,
		tokens:     tokens,
		superadmin: superadmin,
		logger:     logger,
	}
}

/*
WalletLogin authenticates a wallet holder and returns a fresh session.

Flow:
 1. Validate the address format.
 2. Check the marketplace allow-list to stamp the Whitelisted claim.
 3. Upsert the unified identity under the canonical wallet ID.
 4. Issue a session token with the standard TTL.

Parameters:
  - ctx: Request context
  - address: 0x-prefixed wallet address, any casing

Returns:
  - *Session: Signed token plus the stored identity
  - error: Validation, storage, or signing failure
*/
func (service *Service) WalletLogin(ctx context.Context, address string) (*Session, error) {

	// ── 1. Validation ─────────────────────────────────────────────────────
	validator := &validate.Validator{}
	if err := validator.Required("address", address).WalletAddress("address", address).Err(); err != nil {
		return nil, err
	}

	normalized := strings.ToLower(address)

	// ── 2. Allow-list Check ───────────────────────────────────────────────
	whitelisted, err := service.allowlist.IsAllowed(ctx, normalized)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	// ── 3. Identity Upsert ────────────────────────────────────────────────
	stored, err := service.repository.Upsert(ctx, &Identity{
		CanonicalID: WalletID(normalized),
		Source:      SourceWallet,
		Address:     normalized,
		Role:        sec.RoleUser,
		Whitelisted: whitelisted,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	// ── 4. Token Issuance ─────────────────────────────────────────────────
	return service.issueSession(ctx, stored)
}

/*
EmailLogin authenticates an email/password pair via the delegated service.

The delegated service both verifies the credentials and mints the session
token. PropVault records the unified identity but forwards the upstream token
unchanged, so the claims inside it are the delegated service's responsibility.

Returns:
  - *Session: The delegated token plus the stored identity
  - error: apperr.Unauthorized on rejected credentials, apperr.UpstreamAuth
    when the service is unreachable
*/
func (service *Service) EmailLogin(ctx context.Context, email, password string) (*Session, error) {

	// ── 1. Validation ─────────────────────────────────────────────────────
	validator := &validate.Validator{}
	err := validator.
		Required("email", email).Email("email", email).
		Required("password", password).
		Err()
	if err != nil {
		return nil, err
	}

	// ── 2. Delegated Verification ─────────────────────────────────────────
	upstream, err := service.emailAuth.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	// ── 3. Identity Upsert ────────────────────────────────────────────────
	stored, err := service.repository.Upsert(ctx, &Identity{
		CanonicalID: EmailID(email),
		Source:      SourceEmail,
		Email:       strings.ToLower(email),
		Name:        upstream.Name,
		Role:        sec.RoleUser,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	service.logger.InfoContext(ctx, "email_login_succeeded",
		slog.String("canonical_id", stored.CanonicalID),
	)

	return &Session{Token: upstream.Token, Identity: stored}, nil
}

/*
OAuthStart begins a social login: it mints a one-time state nonce and returns
the provider's consent URL.

Returns:
  - string: The provider authorize URL including the state
  - error: Nonce generation or storage failure
*/
func (service *Service) OAuthStart(ctx context.Context) (string, error) {
	state, err := sec.GenerateSecureToken(constants.OAuthStateLength)
	if err != nil {
		return "", apperr.Internal(err)
	}

	if err := service.states.Save(ctx, state); err != nil {
		return "", apperr.Internal(err)
	}

	return service.oauth.AuthorizeURL(state), nil
}

// OAuthProviderName returns the configured social provider tag.
func (service *Service) OAuthProviderName() string {
	return service.oauth.Name()
}

/*
OAuthCallback completes a social login.

Flow:
 1. Consume the state nonce; an unknown or replayed state aborts the flow.
 2. Exchange the authorization code for the provider profile.
 3. Upsert the unified identity under "<provider>_<subject>".
 4. Issue a session token with the standard TTL.

Returns:
  - *Session: Signed token plus the stored identity
  - error: apperr.Unauthorized on a bad state, apperr.UpstreamAuth on a
    failed exchange
*/
func (service *Service) OAuthCallback(ctx context.Context, state, code string) (*Session, error) {

	// ── 1. State Verification ─────────────────────────────────────────────
	if state == "" || code == "" {
		return nil, apperr.Unauthorized("Invalid login attempt")
	}

	consumed, err := service.states.Consume(ctx, state)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !consumed {
		service.logger.WarnContext(ctx, "oauth_state_rejected")
		return nil, apperr.Unauthorized("Invalid login attempt")
	}

	// ── 2. Code Exchange ──────────────────────────────────────────────────
	profile, err := service.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	// ── 3. Identity Upsert ────────────────────────────────────────────────
	stored, err := service.repository.Upsert(ctx, &Identity{
		CanonicalID:    SocialID(service.oauth.Name(), profile.Subject),
		Source:         SourceSocial,
		Email:          strings.ToLower(profile.Email),
		Name:           profile.Name,
		SocialProvider: service.oauth.Name(),
		Role:           sec.RoleUser,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	// ── 4. Token Issuance ─────────────────────────────────────────────────
	return service.issueSession(ctx, stored)
}

/*
SuperadminLogin authenticates an operator credential pair.

Two pairs are accepted: the configured operator pair (bcrypt hash from the
environment) and the built-in demo pair. Every rejection, wrong username or
wrong password, returns the IDENTICAL error so the response shape never
reveals which side failed.

Returns:
  - *Session: Signed token with the super_admin role and full permission set
  - error: apperr.Unauthorized with a constant message on any mismatch
*/
func (service *Service) SuperadminLogin(ctx context.Context, username, password string) (*Session, error) {
	if !service.matchSuperadmin(username, password) {
		service.logger.WarnContext(ctx, "superadmin_login_rejected")
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	stored, err := service.repository.Upsert(ctx, &Identity{
		CanonicalID: SuperadminID(username),
		Source:      SourceSuperadmin,
		Name:        username,
		Role:        sec.RoleSuperAdmin,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	service.logger.InfoContext(ctx, "superadmin_login_succeeded",
		slog.String("canonical_id", stored.CanonicalID),
	)

	return service.issueSession(ctx, stored)
}

// matchSuperadmin checks the pair against the operator and demo credentials.
// Both checks always run so timing does not reveal which pair was tried.
func (service *Service) matchSuperadmin(username, password string) bool {
	operatorMatch := false
	if service.superadmin.Username != "" && service.superadmin.PasswordHash != "" {
		usernameOK := sec.ConstantTimeEquals(username, service.superadmin.Username)
		passwordOK := sec.CheckPasswordHash(password, service.superadmin.PasswordHash)
		operatorMatch = usernameOK && passwordOK
	}

	demoMatch := sec.ConstantTimeEquals(username, demoSuperadminUsername) &&
		sec.ConstantTimeEquals(password, demoSuperadminPassword)

	return operatorMatch || demoMatch
}

/*
SubmitKYC records a KYC submission for the current caller and reissues the
session so the kyc claim reflects the new state immediately.

TODO: replace instant verification with the pending/verified/rejected
lifecycle once the compliance review queue ships; until then every
submission verifies on the spot.

Returns:
  - *Session: Reissued token with KYCVerified set
  - error: apperr.NotFound when the identity vanished, storage failure otherwise
*/
func (service *Service) SubmitKYC(ctx context.Context, claims *sec.AuthClaims) (*Session, error) {
	stored, err := service.repository.SetKYCVerified(ctx, claims.UserID, true)
	if err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "kyc_verified",
		slog.String("canonical_id", stored.CanonicalID),
	)

	return service.reissueSession(ctx, stored, claims)
}

/*
AttachSmartAccount links a smart-contract account address to the caller and
reissues the session so the sca claim is present immediately.

Returns:
  - *Session: Reissued token with SmartAccount set
  - error: Validation failure, apperr.NotFound, or storage failure
*/
func (service *Service) AttachSmartAccount(ctx context.Context, claims *sec.AuthClaims, smartAccount string) (*Session, error) {
	validator := &validate.Validator{}
	if err := validator.Required("smart_account", smartAccount).WalletAddress("smart_account", smartAccount).Err(); err != nil {
		return nil, err
	}

	stored, err := service.repository.SetSmartAccount(ctx, claims.UserID, strings.ToLower(smartAccount))
	if err != nil {
		return nil, err
	}

	return service.reissueSession(ctx, stored, claims)
}

/*
Me returns the stored identity behind the current session.
*/
func (service *Service) Me(ctx context.Context, claims *sec.AuthClaims) (*Identity, error) {
	return service.repository.FindByCanonicalID(ctx, claims.UserID)
}

/*
ListUsers returns a page of identities for the staff console.

Returns:
  - []*Identity: The page of identities
  - pagination.Meta: Metadata for the response envelope
  - error: Storage failure
*/
func (service *Service) ListUsers(ctx context.Context, params pagination.Params) ([]*Identity, pagination.Meta, error) {
	identities, total, err := service.repository.List(ctx, params)
	if err != nil {
		return nil, pagination.Meta{}, apperr.Internal(err)
	}

	return identities, pagination.NewMeta(params.Page, params.Limit, total), nil
}

// issueSession signs a fresh token for the identity with the standard TTL.
func (service *Service) issueSession(ctx context.Context, stored *Identity) (*Session, error) {
	token, err := service.tokens.Issue(stored.Claims(service.grantsFor(stored.Role)), constants.SessionTokenTTL)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("identity: token issuance failed: %w", err))
	}

	service.logger.InfoContext(ctx, "session_issued",
		slog.String("canonical_id", stored.CanonicalID),
		slog.String("role", string(stored.Role)),
	)

	return &Session{Token: token, Identity: stored}, nil
}

// reissueSession signs a replacement token after a claims-changing operation.
// The caller's existing permission grants are carried over unchanged.
func (service *Service) reissueSession(ctx context.Context, stored *Identity, previous *sec.AuthClaims) (*Session, error) {
	token, err := service.tokens.Issue(stored.Claims(previous.Permissions), constants.SessionTokenTTL)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("identity: token reissue failed: %w", err))
	}

	return &Session{Token: token, Identity: stored}, nil
}

// grantsFor maps a role to its default permission grants at login time.
//
// Only super_admin carries the wildcard set. Every other role, admin
// included, gets no grants by default: an admin passes the role-based route
// guard broadly but still needs out-of-band grants for permission-gated
// actions.
func (service *Service) grantsFor(role sec.UserRole) []sec.Permission {
	if role == sec.RoleSuperAdmin {
		return sec.FullPermissionSet()
	}
	return nil
}
