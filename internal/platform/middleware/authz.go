// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

// Package middleware provides the HTTP middleware chain for the PropVault API server.
//
// # Authorization Model
//
// Two cooperating enforcement points share one [authz.Policy]:
//
//   - [RouteGuard] is the boundary interceptor. It prefix-matches every
//     request path against the route policy table before any protected
//     handler runs.
//   - [ViewGuard] wraps an individual protected handler, for routes composed
//     outside the guarded prefixes or needing a redirect-on-deny behavior.
//
// Both must agree by construction because neither carries its own role table.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/propvault/propvault/internal/platform/apperr"
	"github.com/propvault/propvault/internal/platform/authz"
	"github.com/propvault/propvault/internal/platform/constants"
	"github.com/propvault/propvault/internal/platform/ctxkey"
	"github.com/propvault/propvault/internal/platform/ctxutil"
	"github.com/propvault/propvault/internal/platform/respond"
	"github.com/propvault/propvault/internal/platform/sec"
	"github.com/propvault/propvault/internal/platform/session"
)

// TokenVerifier defines the interface needed to verify session tokens in middleware.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from the concrete
// [sec.TokenService], allowing us to easily inject mocks during unit testing.
type TokenVerifier interface {
	Verify(tokenStr string) (*sec.AuthClaims, error)
}

// Authenticate extracts and verifies the session token from the request.
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header.
//  2. Fall back to the auth-token session cookie.
//  3. If neither is present, the request proceeds as anonymous.
//  4. A header token that fails verification aborts with HTTP 401.
//     Expired and tampered tokens produce the SAME client response; only
//     the internal log line distinguishes them.
//  5. A cookie token that fails verification is cleared and the request
//     proceeds as anonymous. The browser attaches the cookie to every
//     request, so rejecting here would lock a stale session out of the
//     public login and logout endpoints; the route guard still denies
//     guarded paths for the now-anonymous caller.
//  6. On success, inject [*sec.AuthClaims] into the request context.
func Authenticate(verifier TokenVerifier, sessions *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. Token Extraction ───────────────────────────────────────────
			tokenStr, fromCookie, formatErr := extractToken(request, sessions)
			if formatErr != nil {
				respond.Error(writer, request, formatErr)
				return
			}

			// ── 2. Anonymous Access ───────────────────────────────────────────
			if tokenStr == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 3. Token Verification ─────────────────────────────────────────
			claims, err := verifier.Verify(tokenStr)
			if err != nil {
				// Telemetry wants tamper vs. expiry; the client never sees it.
				logger := ctxutil.GetLogger(request.Context())
				if errors.Is(err, sec.ErrTokenExpired) {
					logger.WarnContext(request.Context(), "session_token_expired")
				} else {
					logger.WarnContext(request.Context(), "session_token_rejected",
						slog.String("reason", err.Error()),
					)
				}

				// A stale cookie (rotated secret, long-expired session) must
				// not block re-authentication. Clear it and continue as
				// anonymous so the login literals stay reachable.
				if fromCookie {
					if sessions != nil {
						sessions.Clear(writer)
					}
					next.ServeHTTP(writer, request)
					return
				}

				respond.Error(writer, request, apperr.Unauthorized("Invalid or expired token"))
				return
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			ctx := context.WithValue(request.Context(), ctxkey.KeyUser, claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// extractToken pulls the bearer token from the Authorization header, falling
// back to the session cookie. The second result reports whether the token
// came from the cookie. A malformed Authorization header is an error; a
// missing token is not.
func extractToken(request *http.Request, sessions *session.Store) (string, bool, error) {
	authHeader := request.Header.Get(constants.HeaderAuthorization)
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return "", false, apperr.Unauthorized("Invalid authorization format")
		}
		return parts[1], false, nil
	}

	if sessions != nil {
		return sessions.Load(request), true, nil
	}
	return "", false, nil
}

// RouteGuard is the boundary interceptor enforcing the route policy table.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
//
// # Flow
//  1. Explicit public literals (the login pages) pass through untouched.
//  2. Paths matching no guarded prefix pass through (public by default).
//  3. Guarded path without an authenticated caller: HTTP 401 Unauthorized.
//  4. Guarded path with a role outside the allowed set: HTTP 403.
func RouteGuard(policy *authz.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			path := request.URL.Path

			// ── 1. Public and Unguarded Paths ─────────────────────────────────
			if policy.Match(path) == nil {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Authentication Check ───────────────────────────────────────
			claims := GetUser(request.Context())
			if claims == nil {
				respond.Error(writer, request, apperr.Unauthorized("Unauthorized"))
				return
			}

			// ── 3. Authorization Check ────────────────────────────────────────
			if !policy.IsAllowed(path, sec.UserRole(claims.Role)) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// GuardOptions controls how [ViewGuard] reacts to a denied access attempt.
type GuardOptions struct {
	// RedirectOnDeny sends the caller to FallbackPath instead of rendering
	// the fixed access-denied response.
	RedirectOnDeny bool

	// FallbackPath is the redirect target when RedirectOnDeny is set.
	FallbackPath string
}

// ViewGuard wraps a single protected handler with the shared policy check.
//
// The wrapped handler NEVER runs in the denied case: the guard either
// redirects (when configured) or renders a fixed access-denied response that
// names no entries of the policy table.
func ViewGuard(policy *authz.Policy, opts GuardOptions, next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		claims := GetUser(request.Context())

		denied := claims == nil || !policy.IsAllowed(request.URL.Path, sec.UserRole(claims.Role))
		if denied {
			if opts.RedirectOnDeny {
				fallback := opts.FallbackPath
				if fallback == "" {
					fallback = "/"
				}
				http.Redirect(writer, request, fallback, http.StatusSeeOther)
				return
			}
			if claims == nil {
				respond.Error(writer, request, apperr.Unauthorized("Unauthorized"))
				return
			}
			respond.Error(writer, request, apperr.Forbidden("This area requires elevated staff access"))
			return
		}

		next.ServeHTTP(writer, request)
	})
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		claims := GetUser(request.Context())
		if claims == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequirePermission blocks requests whose caller lacks a fine-grained
// (domain, resource, action) grant.
//
// # Usage
//
// Must be registered AFTER [Authenticate]. It implies [RequireAuth]. This is
// the second, orthogonal gate: a caller may pass the role-based [RouteGuard]
// and still be rejected here for a destructive action.
func RequirePermission(domain, resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := GetUser(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if claims == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			// ── 2. Permission Check ───────────────────────────────────────────
			if !sec.HasPermission(claims.Permissions, domain, resource, action) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// GetUser retrieves the [*sec.AuthClaims] from the [context.Context].
//
// # Returns
//   - A pointer to [*sec.AuthClaims] if the caller is authenticated.
//   - nil if the caller is anonymous.
func GetUser(ctx context.Context) *sec.AuthClaims {
	claims, ok := ctx.Value(ctxkey.KeyUser).(*sec.AuthClaims)
	if !ok {
		return nil
	}
	return claims
}
