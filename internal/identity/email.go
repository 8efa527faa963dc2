// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/propvault/propvault/internal/platform/apperr"
)

// HTTPEmailAuthenticator is the HTTP implementation of [EmailAuthenticator].
//
// Email/password verification is fully delegated: the external auth service
// checks the credential pair and mints the session token itself. PropVault
// never sees or stores the password hash for these accounts.
type HTTPEmailAuthenticator struct {
	baseURL string
}

// NewHTTPEmailAuthenticator creates an authenticator against the given base URL.
func NewHTTPEmailAuthenticator(baseURL string) *HTTPEmailAuthenticator {
	return &HTTPEmailAuthenticator{baseURL: baseURL}
}

// emailAuthRequest is the delegated service's login payload.
type emailAuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// emailAuthResponse is the delegated service's login result.
type emailAuthResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

/*
Authenticate verifies an email/password pair against the delegated service.

Parameters:
  - ctx: Request context
  - email: Login email
  - password: Plain-text password, forwarded over TLS only

Returns:
  - *EmailSession: The delegated service's token and account profile
  - error: apperr.Unauthorized on rejected credentials (constant shape),
    apperr.UpstreamAuth when the service is unreachable or misbehaving
*/
func (authenticator *HTTPEmailAuthenticator) Authenticate(ctx context.Context, email, password string) (*EmailSession, error) {
	payload, err := json.Marshal(emailAuthRequest{Email: email, Password: password})
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("identity: email auth payload: %w", err))
	}

	response, err := doWithRetry(ctx, func(attemptCtx context.Context) (*http.Request, error) {
		request, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, authenticator.baseURL+"/v1/login", bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("identity: build email auth request: %w", err)
		}
		request.Header.Set("Content-Type", "application/json")
		request.Header.Set("Accept", "application/json")
		return request, nil
	})
	if err != nil {
		return nil, apperr.UpstreamAuth(fmt.Errorf("identity: email auth unreachable: %w", err))
	}
	defer func() { _ = response.Body.Close() }()

	switch {
	case response.StatusCode == http.StatusOK:
		// Fall through to decode below.
	case response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden:
		// Rejected credentials always produce the same client-facing error,
		// regardless of whether the email exists.
		return nil, apperr.Unauthorized("Invalid login credentials")
	default:
		return nil, apperr.UpstreamAuth(fmt.Errorf("identity: email auth returned status %d", response.StatusCode))
	}

	var session emailAuthResponse
	if err := json.NewDecoder(response.Body).Decode(&session); err != nil {
		return nil, apperr.UpstreamAuth(fmt.Errorf("identity: email auth payload: %w", err))
	}
	if session.Token == "" {
		return nil, apperr.UpstreamAuth(fmt.Errorf("identity: email auth returned no token"))
	}

	return &EmailSession{
		Token:  session.Token,
		UserID: session.UserID,
		Email:  session.Email,
		Name:   session.Name,
	}, nil
}
