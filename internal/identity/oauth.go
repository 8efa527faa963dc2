// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/propvault/propvault/internal/platform/apperr"
)

// OAuthConfig holds a social provider's endpoints and client credentials.
type OAuthConfig struct {
	// Provider is the tag used in canonical IDs (e.g. "google").
	Provider     string
	ClientID     string
	ClientSecret string
	// AuthorizeURL is the provider's consent page.
	AuthorizeURL string
	// TokenURL is the authorization-code exchange endpoint.
	TokenURL string
	// UserinfoURL returns the authenticated user's profile.
	UserinfoURL string
	// RedirectURL is our registered callback.
	RedirectURL string
}

// HTTPOAuthProvider is the HTTP implementation of [OAuthProvider].
//
// It speaks plain OAuth 2.0 authorization-code flow: form-encoded token
// exchange followed by a bearer-authenticated userinfo fetch. Both legs are
// subject to the standard upstream call discipline.
type HTTPOAuthProvider struct {
	config OAuthConfig
}

// NewHTTPOAuthProvider creates an [HTTPOAuthProvider] for the given config.
func NewHTTPOAuthProvider(config OAuthConfig) *HTTPOAuthProvider {
	return &HTTPOAuthProvider{config: config}
}

// Name returns the provider tag used in canonical IDs.
func (provider *HTTPOAuthProvider) Name() string {
	return strings.ToLower(provider.config.Provider)
}

// AuthorizeURL builds the provider's consent URL for the given state nonce.
func (provider *HTTPOAuthProvider) AuthorizeURL(state string) string {
	query := url.Values{}
	query.Set("response_type", "code")
	query.Set("client_id", provider.config.ClientID)
	query.Set("redirect_uri", provider.config.RedirectURL)
	query.Set("scope", "openid email profile")
	query.Set("state", state)

	return provider.config.AuthorizeURL + "?" + query.Encode()
}

// tokenResponse is the provider's token endpoint payload.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// userinfoResponse is the provider's userinfo endpoint payload.
type userinfoResponse struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

/*
Exchange trades an authorization code for the user's normalized profile.

Flow:
 1. POST the code to the token endpoint (form-encoded).
 2. GET the userinfo endpoint with the returned bearer token.

Parameters:
  - ctx: Request context
  - code: The authorization code from the provider callback

Returns:
  - *SocialProfile: Normalized subject, email, and display name
  - error: apperr.UpstreamAuth on transport failure, non-2xx status, or a
    profile without a stable subject
*/
func (provider *HTTPOAuthProvider) Exchange(ctx context.Context, code string) (*SocialProfile, error) {

	// ── 1. Authorization Code Exchange ────────────────────────────────────
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", provider.config.ClientID)
	form.Set("client_secret", provider.config.ClientSecret)
	form.Set("redirect_uri", provider.config.RedirectURL)
	encodedForm := form.Encode()

	tokenResp, err := doWithRetry(ctx, func(attemptCtx context.Context) (*http.Request, error) {
		request, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, provider.config.TokenURL, strings.NewReader(encodedForm))
		if err != nil {
			return nil, fmt.Errorf("identity: build token request: %w", err)
		}
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		request.Header.Set("Accept", "application/json")
		return request, nil
	})
	if err != nil {
		return nil, apperr.UpstreamAuth(fmt.Errorf("identity: token exchange unreachable: %w", err))
	}
	defer func() { _ = tokenResp.Body.Close() }()

	if tokenResp.StatusCode != http.StatusOK {
		return nil, apperr.UpstreamAuth(fmt.Errorf("identity: token exchange returned status %d", tokenResp.StatusCode))
	}

	var token tokenResponse
	if err := json.NewDecoder(tokenResp.Body).Decode(&token); err != nil {
		return nil, apperr.UpstreamAuth(fmt.Errorf("identity: token exchange payload: %w", err))
	}
	if token.AccessToken == "" {
		return nil, apperr.UpstreamAuth(fmt.Errorf("identity: token exchange returned no access token"))
	}

	// ── 2. Userinfo Fetch ─────────────────────────────────────────────────
	userResp, err := doWithRetry(ctx, func(attemptCtx context.Context) (*http.Request, error) {
		request, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, provider.config.UserinfoURL, nil)
		if err != nil {
			return nil, fmt.Errorf("identity: build userinfo request: %w", err)
		}
		request.Header.Set("Authorization", "Bearer "+token.AccessToken)
		request.Header.Set("Accept", "application/json")
		return request, nil
	})
	if err != nil {
		return nil, apperr.UpstreamAuth(fmt.Errorf("identity: userinfo unreachable: %w", err))
	}
	defer func() { _ = userResp.Body.Close() }()

	if userResp.StatusCode != http.StatusOK {
		return nil, apperr.UpstreamAuth(fmt.Errorf("identity: userinfo returned status %d", userResp.StatusCode))
	}

	var userinfo userinfoResponse
	if err := json.NewDecoder(userResp.Body).Decode(&userinfo); err != nil {
		return nil, apperr.UpstreamAuth(fmt.Errorf("identity: userinfo payload: %w", err))
	}
	if userinfo.Subject == "" {
		return nil, apperr.UpstreamAuth(fmt.Errorf("identity: userinfo returned no subject"))
	}

	return &SocialProfile{
		Subject: userinfo.Subject,
		Email:   userinfo.Email,
		Name:    userinfo.Name,
	}, nil
}
