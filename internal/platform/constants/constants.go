// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Security: JWT issuers and session cookie configuration.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "propvault-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in session tokens.
	AuthIssuer = "propvault.io"

	// SessionTokenTTL is the lifetime of a session token and its cookie.
	// Every normal login issues a token that expires exactly this far from
	// its issued-at timestamp.
	SessionTokenTTL = 7 * 24 * time.Hour

	// SessionCookieName is the name of the cookie carrying the session token.
	SessionCookieName = "auth-token"

	// SessionCookiePath scopes the session cookie to the whole site.
	SessionCookiePath = "/"
)

// # Upstream Identity Providers

const (
	// UpstreamTimeout bounds every call to an external identity collaborator
	// (OAuth token/userinfo exchange, delegated email auth, allow-list check).
	UpstreamTimeout = 5 * time.Second

	// UpstreamRetryLimit is the number of retries after a transient network
	// failure before the call surfaces an upstream auth error.
	UpstreamRetryLimit = 1

	// OAuthStateTTL is how long a one-time OAuth state nonce remains valid.
	OAuthStateTTL = 10 * time.Minute

	// OAuthStateLength is the byte length of the random state nonce.
	OAuthStateLength = 32
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldMeta    = "meta"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderAuthorization = "Authorization"
)

// # Database Schemas

const (
	SchemaAuth        = "auth"
	SchemaMarketplace = "marketplace"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixOAuthState = "auth:oauth_state:"
	RedisKeyAllowlist     = "auth:wallet_allowlist"
)
