// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

package identity_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propvault/propvault/internal/identity"
	"github.com/propvault/propvault/internal/platform/apperr"
	"github.com/propvault/propvault/internal/platform/sec"
	"github.com/propvault/propvault/pkg/pagination"
)

// # In-Memory Fakes

type fakeRepository struct {
	rows map[string]*identity.Identity
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{rows: map[string]*identity.Identity{}}
}

func (repo *fakeRepository) Upsert(ctx context.Context, record *identity.Identity) (*identity.Identity, error) {
	if existing, ok := repo.rows[record.CanonicalID]; ok {
		// Profile fields refresh; role and KYC state survive the login.
		if record.Address != "" {
			existing.Address = record.Address
		}
		if record.Email != "" {
			existing.Email = record.Email
		}
		if record.Name != "" {
			existing.Name = record.Name
		}
		existing.Whitelisted = record.Whitelisted
		clone := *existing
		return &clone, nil
	}

	stored := *record
	stored.ID = "id-" + record.CanonicalID
	repo.rows[record.CanonicalID] = &stored
	clone := stored
	return &clone, nil
}

func (repo *fakeRepository) FindByCanonicalID(ctx context.Context, canonicalID string) (*identity.Identity, error) {
	stored, ok := repo.rows[canonicalID]
	if !ok {
		return nil, apperr.NotFound("Identity")
	}
	clone := *stored
	return &clone, nil
}

func (repo *fakeRepository) SetKYCVerified(ctx context.Context, canonicalID string, verified bool) (*identity.Identity, error) {
	stored, ok := repo.rows[canonicalID]
	if !ok {
		return nil, apperr.NotFound("Identity")
	}
	stored.KYCVerified = verified
	clone := *stored
	return &clone, nil
}

func (repo *fakeRepository) SetSmartAccount(ctx context.Context, canonicalID, smartAccount string) (*identity.Identity, error) {
	stored, ok := repo.rows[canonicalID]
	if !ok {
		return nil, apperr.NotFound("Identity")
	}
	stored.SmartAccount = smartAccount
	clone := *stored
	return &clone, nil
}

func (repo *fakeRepository) List(ctx context.Context, params pagination.Params) ([]*identity.Identity, int, error) {
	all := make([]*identity.Identity, 0, len(repo.rows))
	for _, stored := range repo.rows {
		clone := *stored
		all = append(all, &clone)
	}
	return all, len(all), nil
}

type fakeAllowlist struct {
	members map[string]bool
	err     error
}

func (allowlist *fakeAllowlist) IsAllowed(ctx context.Context, address string) (bool, error) {
	if allowlist.err != nil {
		return false, allowlist.err
	}
	return allowlist.members[address], nil
}

type fakeStates struct {
	saved map[string]bool
}

func newFakeStates() *fakeStates { return &fakeStates{saved: map[string]bool{}} }

func (states *fakeStates) Save(ctx context.Context, state string) error {
	states.saved[state] = true
	return nil
}

func (states *fakeStates) Consume(ctx context.Context, state string) (bool, error) {
	if !states.saved[state] {
		return false, nil
	}
	delete(states.saved, state)
	return true, nil
}

type fakeOAuth struct {
	profile   *identity.SocialProfile
	err       error
	exchanged int
}

func (oauth *fakeOAuth) Name() string { return "google" }

func (oauth *fakeOAuth) AuthorizeURL(state string) string {
	return "https://accounts.example.com/authorize?state=" + state
}

func (oauth *fakeOAuth) Exchange(ctx context.Context, code string) (*identity.SocialProfile, error) {
	oauth.exchanged++
	if oauth.err != nil {
		return nil, oauth.err
	}
	return oauth.profile, nil
}

type fakeEmailAuth struct {
	session *identity.EmailSession
	err     error
}

func (auth *fakeEmailAuth) Authenticate(ctx context.Context, email, password string) (*identity.EmailSession, error) {
	if auth.err != nil {
		return nil, auth.err
	}
	return auth.session, nil
}

// # Harness

type harness struct {
	service   *identity.Service
	repo      *fakeRepository
	allowlist *fakeAllowlist
	states    *fakeStates
	oauth     *fakeOAuth
	emailAuth *fakeEmailAuth
	tokens    *sec.TokenService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	tokens, err := sec.NewTokenService("identity-test-secret", "propvault.io")
	require.NoError(t, err)

	passwordHash, err := sec.HashPassword("operator-pass")
	require.NoError(t, err)

	h := &harness{
		repo:      newFakeRepository(),
		allowlist: &fakeAllowlist{members: map[string]bool{}},
		states:    newFakeStates(),
		oauth:     &fakeOAuth{profile: &identity.SocialProfile{Subject: "108234", Email: "inv@example.com", Name: "Investor"}},
		emailAuth: &fakeEmailAuth{session: &identity.EmailSession{Token: "upstream-token", UserID: "ext-1", Email: "inv@example.com"}},
		tokens:    tokens,
	}

	h.service = identity.NewService(
		h.repo,
		h.allowlist,
		h.states,
		h.oauth,
		h.emailAuth,
		tokens,
		identity.SuperadminConfig{Username: "ops", PasswordHash: passwordHash},
		slog.New(slog.DiscardHandler),
	)
	return h
}

// # Wallet Login

/*
TestWalletLogin_Deterministic verifies two casings of the same address land
on the same identity with a verifiable token.
*/
func TestWalletLogin_Deterministic(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	address := "0x52908400098527886E0F7030069857D2E4169EE7"

	first, err := h.service.WalletLogin(ctx, address)
	require.NoError(t, err)

	second, err := h.service.WalletLogin(ctx, "0x52908400098527886e0f7030069857d2e4169ee7")
	require.NoError(t, err)

	assert.Equal(t, first.Identity.CanonicalID, second.Identity.CanonicalID)
	assert.Len(t, h.repo.rows, 1)

	claims, err := h.tokens.Verify(second.Token)
	require.NoError(t, err)
	assert.Equal(t, first.Identity.CanonicalID, claims.UserID)
	assert.Equal(t, "wallet", claims.Provider)
	assert.Equal(t, "user", claims.Role)
}

/*
TestWalletLogin_Whitelisted verifies the allow-list result is stamped into
the stored identity and its token.
*/
func TestWalletLogin_Whitelisted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	address := "0x52908400098527886e0f7030069857d2e4169ee7"
	h.allowlist.members[address] = true

	result, err := h.service.WalletLogin(ctx, address)
	require.NoError(t, err)
	assert.True(t, result.Identity.Whitelisted)

	claims, err := h.tokens.Verify(result.Token)
	require.NoError(t, err)
	assert.True(t, claims.Whitelisted)
}

/*
TestWalletLogin_InvalidAddress verifies format validation short-circuits the flow.
*/
func TestWalletLogin_InvalidAddress(t *testing.T) {
	h := newHarness(t)

	tests := []string{"", "0x123", "52908400098527886e0f7030069857d2e4169ee7", "0xZZ908400098527886e0f7030069857d2e4169ee7"}
	for _, address := range tests {
		result, err := h.service.WalletLogin(context.Background(), address)
		assert.Nil(t, result)
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
	}

	assert.Empty(t, h.repo.rows)
}

// # Email Login

/*
TestEmailLogin_ForwardsUpstreamToken verifies the delegated token is returned
unchanged and the identity is recorded under the email canonical ID.
*/
func TestEmailLogin_ForwardsUpstreamToken(t *testing.T) {
	h := newHarness(t)

	result, err := h.service.EmailLogin(context.Background(), "Investor@Example.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, "upstream-token", result.Token)
	assert.Equal(t, "email_investor@example.com", result.Identity.CanonicalID)
	assert.Equal(t, identity.SourceEmail, result.Identity.Source)
}

/*
TestEmailLogin_RejectedCredentials verifies the constant-shape 401 propagates.
*/
func TestEmailLogin_RejectedCredentials(t *testing.T) {
	h := newHarness(t)
	h.emailAuth.err = apperr.Unauthorized("Invalid login credentials")

	result, err := h.service.EmailLogin(context.Background(), "a@b.com", "wrong")
	assert.Nil(t, result)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "UNAUTHORIZED", ae.Code)
	assert.Equal(t, "Invalid login credentials", ae.Message)
}

/*
TestEmailLogin_UpstreamFailure verifies an unreachable delegated service maps
to the upstream auth error.
*/
func TestEmailLogin_UpstreamFailure(t *testing.T) {
	h := newHarness(t)
	h.emailAuth.err = apperr.UpstreamAuth(errors.New("connection refused"))

	result, err := h.service.EmailLogin(context.Background(), "a@b.com", "secret")
	assert.Nil(t, result)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "UPSTREAM_AUTH_ERROR", ae.Code)
	assert.Equal(t, "Authentication failed", ae.Message)
	assert.Equal(t, 500, ae.HTTPStatus)
}

// # Social Login

/*
TestOAuthFlow verifies the happy path end to end: start mints a consumable
state, the callback exchanges it for a provider-tagged identity.
*/
func TestOAuthFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	authorizeURL, err := h.service.OAuthStart(ctx)
	require.NoError(t, err)
	require.Len(t, h.states.saved, 1)

	var state string
	for saved := range h.states.saved {
		state = saved
	}
	assert.Contains(t, authorizeURL, state)

	result, err := h.service.OAuthCallback(ctx, state, "auth-code")
	require.NoError(t, err)

	assert.Equal(t, "google_108234", result.Identity.CanonicalID)
	assert.Equal(t, identity.SourceSocial, result.Identity.Source)
	assert.Equal(t, "google", result.Identity.SocialProvider)

	claims, err := h.tokens.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "google", claims.SocialProvider)
}

/*
TestOAuthCallback_StateReplay verifies a consumed state cannot be reused.
*/
func TestOAuthCallback_StateReplay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.service.OAuthStart(ctx)
	require.NoError(t, err)
	var state string
	for saved := range h.states.saved {
		state = saved
	}

	_, err = h.service.OAuthCallback(ctx, state, "auth-code")
	require.NoError(t, err)

	result, err := h.service.OAuthCallback(ctx, state, "auth-code")
	assert.Nil(t, result)
	require.NotNil(t, apperr.As(err))
	assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
}

/*
TestOAuthCallback_UnknownState verifies a forged state never reaches the
provider exchange.
*/
func TestOAuthCallback_UnknownState(t *testing.T) {
	h := newHarness(t)

	result, err := h.service.OAuthCallback(context.Background(), "forged-state", "auth-code")
	assert.Nil(t, result)
	assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
	assert.Zero(t, h.oauth.exchanged)
}

/*
TestOAuthCallback_ExchangeFailure verifies a failed provider exchange maps to
the upstream auth error and no identity is stored.
*/
func TestOAuthCallback_ExchangeFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.oauth.err = apperr.UpstreamAuth(errors.New("token endpoint 502"))

	_, err := h.service.OAuthStart(ctx)
	require.NoError(t, err)
	var state string
	for saved := range h.states.saved {
		state = saved
	}

	result, err := h.service.OAuthCallback(ctx, state, "auth-code")
	assert.Nil(t, result)
	assert.Equal(t, "UPSTREAM_AUTH_ERROR", apperr.As(err).Code)
	assert.Empty(t, h.repo.rows)
}

// # Superadmin Login

/*
TestSuperadminLogin_Pairs verifies both credential pairs succeed and every
mismatch yields the identical error shape.
*/
func TestSuperadminLogin_Pairs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		succeeds bool
	}{
		{"operator_pair", "ops", "operator-pass", true},
		{"demo_pair", "superadmin", "propvault-demo", true},
		{"wrong_password", "ops", "wrong", false},
		{"wrong_username", "nobody", "operator-pass", false},
		{"crossed_pairs", "ops", "propvault-demo", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.service.SuperadminLogin(ctx, tt.username, tt.password)

			if tt.succeeds {
				require.NoError(t, err)
				assert.Equal(t, sec.RoleSuperAdmin, result.Identity.Role)

				claims, err := h.tokens.Verify(result.Token)
				require.NoError(t, err)
				assert.Equal(t, "super_admin", claims.Role)
				// Wildcard grants over every domain.
				assert.Len(t, claims.Permissions, 16)
				return
			}

			assert.Nil(t, result)
			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, "UNAUTHORIZED", ae.Code)
			assert.Equal(t, "Invalid login credentials", ae.Message)
		})
	}
}

/*
TestLoginGrants_AdminCarriesNone verifies only super_admin receives the
wildcard permission set at login; an admin identity logs in with an empty
grant list.
*/
func TestLoginGrants_AdminCarriesNone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	address := "0x52908400098527886e0f7030069857d2e4169ee7"
	h.repo.rows[identity.WalletID(address)] = &identity.Identity{
		ID:          "id-admin",
		CanonicalID: identity.WalletID(address),
		Source:      identity.SourceWallet,
		Address:     address,
		Role:        sec.RoleAdmin,
	}

	result, err := h.service.WalletLogin(ctx, address)
	require.NoError(t, err)
	assert.Equal(t, sec.RoleAdmin, result.Identity.Role)

	claims, err := h.tokens.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)
	assert.Empty(t, claims.Permissions)
}

// # Claims-Changing Operations

/*
TestSubmitKYC verifies instant verification flips the flag and the reissued
token keeps the wallet address.
*/
func TestSubmitKYC(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	login, err := h.service.WalletLogin(ctx, "0x52908400098527886e0f7030069857d2e4169ee7")
	require.NoError(t, err)
	assert.False(t, login.Identity.KYCVerified)

	claims, err := h.tokens.Verify(login.Token)
	require.NoError(t, err)

	result, err := h.service.SubmitKYC(ctx, claims)
	require.NoError(t, err)
	assert.True(t, result.Identity.KYCVerified)

	reissued, err := h.tokens.Verify(result.Token)
	require.NoError(t, err)
	assert.True(t, reissued.KYCVerified)
	assert.Equal(t, claims.Address, reissued.Address)
	assert.Equal(t, claims.UserID, reissued.UserID)
}

/*
TestAttachSmartAccount verifies attachment lowercases the address and shows
up in the reissued token.
*/
func TestAttachSmartAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	login, err := h.service.WalletLogin(ctx, "0x52908400098527886e0f7030069857d2e4169ee7")
	require.NoError(t, err)

	claims, err := h.tokens.Verify(login.Token)
	require.NoError(t, err)

	result, err := h.service.AttachSmartAccount(ctx, claims, "0xDE709F2102306220921060314715629080E2FB77")
	require.NoError(t, err)
	assert.Equal(t, "0xde709f2102306220921060314715629080e2fb77", result.Identity.SmartAccount)

	reissued, err := h.tokens.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "0xde709f2102306220921060314715629080e2fb77", reissued.SmartAccount)

	// Garbage address never reaches storage.
	bad, err := h.service.AttachSmartAccount(ctx, claims, "not-an-address")
	assert.Nil(t, bad)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
}
