// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propvault/propvault/internal/platform/authz"
	"github.com/propvault/propvault/internal/platform/middleware"
	"github.com/propvault/propvault/internal/platform/sec"
	"github.com/propvault/propvault/internal/platform/session"
)

// guardedApp builds the Authenticate + RouteGuard chain around a handler that
// echoes a fixed payload, mirroring the production middleware order.
func guardedApp(t *testing.T, tokens *sec.TokenService) http.Handler {
	t.Helper()

	final := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(http.StatusOK)
		_, _ = writer.Write([]byte(`{"report":"quarterly","volume":12345}`))
	})

	sessions := session.NewStore(false)
	chain := middleware.Authenticate(tokens, sessions)(
		middleware.RouteGuard(authz.Default())(final),
	)
	return chain
}

func newTokens(t *testing.T) *sec.TokenService {
	t.Helper()
	tokens, err := sec.NewTokenService("middleware-test-secret", "propvault.io")
	require.NoError(t, err)
	return tokens
}

func issueFor(t *testing.T, tokens *sec.TokenService, role sec.UserRole) string {
	t.Helper()
	token, err := tokens.Issue(sec.AuthClaims{
		UserID:   "wallet_0xtest",
		Provider: "wallet",
		Role:     string(role),
	}, time.Hour)
	require.NoError(t, err)
	return token
}

/*
TestRouteGuard_AnonymousOnGuardedPath verifies a guarded path without a token
answers 401 with the standard envelope.
*/
func TestRouteGuard_AnonymousOnGuardedPath(t *testing.T) {
	app := guardedApp(t, newTokens(t))

	request := httptest.NewRequest(http.MethodGet, "/admin/analytics", nil)
	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "Unauthorized", body["error"])
	assert.Equal(t, "UNAUTHORIZED", body["code"])
}

/*
TestRouteGuard_RoleMatrix runs every role against the guarded analytics path.
*/
func TestRouteGuard_RoleMatrix(t *testing.T) {
	tokens := newTokens(t)
	app := guardedApp(t, tokens)

	tests := []struct {
		role   sec.UserRole
		status int
	}{
		{sec.RoleUser, http.StatusForbidden},
		{sec.RoleAccountManager, http.StatusOK},
		{sec.RolePropertyLawyer, http.StatusForbidden},
		{sec.RoleAuditor, http.StatusForbidden},
		{sec.RoleCompliance, http.StatusForbidden},
		{sec.RoleFrontOffice, http.StatusOK},
		{sec.RoleAdmin, http.StatusOK},
		{sec.RoleSuperAdmin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/admin/analytics", nil)
			request.Header.Set("Authorization", "Bearer "+issueFor(t, tokens, tt.role))
			recorder := httptest.NewRecorder()
			app.ServeHTTP(recorder, request)

			assert.Equal(t, tt.status, recorder.Code)

			if tt.status == http.StatusForbidden {
				var body map[string]any
				require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
				assert.Equal(t, "Insufficient permissions", body["error"])
			}
		})
	}
}

/*
TestRouteGuard_PayloadUnchanged verifies an authorized request receives the
handler payload byte-for-byte: the guard adds nothing on the success path.
*/
func TestRouteGuard_PayloadUnchanged(t *testing.T) {
	tokens := newTokens(t)
	app := guardedApp(t, tokens)

	request := httptest.NewRequest(http.MethodGet, "/admin/analytics", nil)
	request.Header.Set("Authorization", "Bearer "+issueFor(t, tokens, sec.RoleAdmin))
	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"report":"quarterly","volume":12345}`, recorder.Body.String())
}

/*
TestRouteGuard_LoginLiteralPassesThrough verifies the public login literal is
reachable anonymously even under the guarded prefix.
*/
func TestRouteGuard_LoginLiteralPassesThrough(t *testing.T) {
	app := guardedApp(t, newTokens(t))

	request := httptest.NewRequest(http.MethodPost, "/admin/login", nil)
	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestAuthenticate_BadTokens verifies expired and tampered tokens both collapse
to the same 401 response.
*/
func TestAuthenticate_BadTokens(t *testing.T) {
	tokens := newTokens(t)
	app := guardedApp(t, tokens)

	expired, err := tokens.Issue(sec.AuthClaims{UserID: "u", Role: "admin"}, -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"garbage", "not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/admin/analytics", nil)
			request.Header.Set("Authorization", "Bearer "+tt.token)
			recorder := httptest.NewRecorder()
			app.ServeHTTP(recorder, request)

			assert.Equal(t, http.StatusUnauthorized, recorder.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
			assert.Equal(t, "Invalid or expired token", body["error"])
		})
	}
}

/*
TestAuthenticate_StaleCookie verifies a cookie signed under a rotated secret
never blocks the public login literals: the middleware clears it and the
request continues as anonymous.
*/
func TestAuthenticate_StaleCookie(t *testing.T) {
	tokens := newTokens(t)
	app := guardedApp(t, tokens)

	rotatedOut, err := sec.NewTokenService("retired-signing-secret", "propvault.io")
	require.NoError(t, err)
	staleToken, err := rotatedOut.Issue(sec.AuthClaims{UserID: "u", Role: "admin"}, time.Hour)
	require.NoError(t, err)

	t.Run("login_literal_reachable", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodPost, "/admin/login", nil)
		request.AddCookie(&http.Cookie{Name: "auth-token", Value: staleToken})
		recorder := httptest.NewRecorder()
		app.ServeHTTP(recorder, request)

		// The handler behind the literal runs; the stale cookie is dropped.
		assert.Equal(t, http.StatusOK, recorder.Code)

		cookies := recorder.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "auth-token", cookies[0].Name)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})

	t.Run("guarded_path_anonymous", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/admin/analytics", nil)
		request.AddCookie(&http.Cookie{Name: "auth-token", Value: staleToken})
		recorder := httptest.NewRecorder()
		app.ServeHTTP(recorder, request)

		// The route guard still denies the now-anonymous caller.
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
		assert.Equal(t, "Unauthorized", body["error"])
	})

	t.Run("header_token_still_rejected", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/admin/analytics", nil)
		request.Header.Set("Authorization", "Bearer "+staleToken)
		recorder := httptest.NewRecorder()
		app.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
		assert.Equal(t, "Invalid or expired token", body["error"])
	})
}

/*
TestAuthenticate_MalformedHeader verifies a broken Authorization header is an
error, not anonymous access.
*/
func TestAuthenticate_MalformedHeader(t *testing.T) {
	app := guardedApp(t, newTokens(t))

	request := httptest.NewRequest(http.MethodGet, "/listings", nil)
	request.Header.Set("Authorization", "Token abc")
	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

/*
TestAuthenticate_CookieFallback verifies the session cookie authenticates a
request without an Authorization header.
*/
func TestAuthenticate_CookieFallback(t *testing.T) {
	tokens := newTokens(t)
	app := guardedApp(t, tokens)

	request := httptest.NewRequest(http.MethodGet, "/admin/analytics", nil)
	request.AddCookie(&http.Cookie{Name: "auth-token", Value: issueFor(t, tokens, sec.RoleAdmin)})
	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestViewGuard covers both deny behaviors: the fixed denied response and the
configured redirect.
*/
func TestViewGuard(t *testing.T) {
	tokens := newTokens(t)
	policy := authz.Default()
	sessions := session.NewStore(false)

	protected := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})

	t.Run("denied_fixed_response", func(t *testing.T) {
		app := middleware.Authenticate(tokens, sessions)(
			middleware.ViewGuard(policy, middleware.GuardOptions{}, protected),
		)

		request := httptest.NewRequest(http.MethodGet, "/super-admin/system", nil)
		request.Header.Set("Authorization", "Bearer "+issueFor(t, tokens, sec.RoleFrontOffice))
		recorder := httptest.NewRecorder()
		app.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusForbidden, recorder.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
		assert.Equal(t, "This area requires elevated staff access", body["error"])
	})

	t.Run("denied_redirect", func(t *testing.T) {
		app := middleware.Authenticate(tokens, sessions)(
			middleware.ViewGuard(policy, middleware.GuardOptions{
				RedirectOnDeny: true,
				FallbackPath:   "/listings",
			}, protected),
		)

		request := httptest.NewRequest(http.MethodGet, "/super-admin/system", nil)
		recorder := httptest.NewRecorder()
		app.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusSeeOther, recorder.Code)
		assert.Equal(t, "/listings", recorder.Header().Get("Location"))
	})

	t.Run("allowed", func(t *testing.T) {
		app := middleware.Authenticate(tokens, sessions)(
			middleware.ViewGuard(policy, middleware.GuardOptions{}, protected),
		)

		request := httptest.NewRequest(http.MethodGet, "/super-admin/system", nil)
		request.Header.Set("Authorization", "Bearer "+issueFor(t, tokens, sec.RoleSuperAdmin))
		recorder := httptest.NewRecorder()
		app.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}

/*
TestRequirePermission verifies the orthogonal permission gate: passing the
role guard is not enough without the specific grant.
*/
func TestRequirePermission(t *testing.T) {
	tokens := newTokens(t)
	sessions := session.NewStore(false)

	protected := middleware.Authenticate(tokens, sessions)(
		middleware.RequirePermission("marketplace", "listings", "create")(
			http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				writer.WriteHeader(http.StatusCreated)
			}),
		),
	)

	issue := func(role string, grants []sec.Permission) string {
		token, err := tokens.Issue(sec.AuthClaims{
			UserID:      "u",
			Role:        role,
			Permissions: grants,
		}, time.Hour)
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"no_token", "", http.StatusUnauthorized},
		{"no_grants", issue("front_office", nil), http.StatusForbidden},
		// The admin role alone carries no grants; the permission gate is
		// independent of the role guard.
		{"admin_without_grants", issue("admin", nil), http.StatusForbidden},
		{"wrong_action", issue("front_office", []sec.Permission{{Domain: "marketplace", Resource: "listings", Action: "read"}}), http.StatusForbidden},
		{"exact_grant", issue("front_office", []sec.Permission{{Domain: "marketplace", Resource: "listings", Action: "create"}}), http.StatusCreated},
		{"wildcard_grant", issue("front_office", []sec.Permission{{Domain: "marketplace", Resource: sec.WildcardResource, Action: "create"}}), http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodPost, "/listings", nil)
			if tt.token != "" {
				request.Header.Set("Authorization", "Bearer "+tt.token)
			}
			recorder := httptest.NewRecorder()
			protected.ServeHTTP(recorder, request)

			assert.Equal(t, tt.status, recorder.Code)
		})
	}
}
