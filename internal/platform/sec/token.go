// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

// Package sec provides cryptographic primitives and session token management.
//
// # Architecture
//
// This package isolates security-sensitive code (credential hashing, JWT
// signing) from the domain logic. It acts as an Infrastructure service
// injected into the Application layer via small provider interfaces.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// # Error Taxonomy
//
// Callers outside this package must never forward these errors verbatim to a
// client. The HTTP boundary collapses both verification failures into a
// generic 401; the distinction only feeds internal telemetry.
var (
	// ErrMissingSecret means the signing secret is not configured. Fatal:
	// the process must not issue tokens without it.
	ErrMissingSecret = errors.New("sec: signing secret is not configured")

	// ErrTokenInvalid covers signature mismatches and malformed tokens.
	ErrTokenInvalid = errors.New("sec: invalid token")

	// ErrTokenExpired means the token was well-formed and correctly signed
	// but its expiry is in the past.
	ErrTokenExpired = errors.New("sec: token expired")
)

// AuthClaims represents the payload embedded inside a session token.
//
// # Why custom claims?
//
// By embedding the full canonical identity (role, permissions, verification
// flags) directly inside the JWT, the route guard can authorize a request
// WITHOUT querying the database. The trade-off is that a privilege change
// only takes effect when the token is reissued, which is why every
// claims-changing operation overwrites the session cookie.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID         string       `json:"uid"`
	Address        string       `json:"adr,omitempty"`
	Email          string       `json:"eml,omitempty"`
	Name           string       `json:"nam,omitempty"`
	Provider       string       `json:"prv"`
	SocialProvider string       `json:"sop,omitempty"`
	Role           string       `json:"rol"`
	Permissions    []Permission `json:"prm,omitempty"`
	KYCVerified    bool         `json:"kyc"`
	Whitelisted    bool         `json:"wht"`
	SmartAccount   string       `json:"sca,omitempty"`
}

// TokenService handles generation and verification of session tokens using HS256.
type TokenService struct {
	secret []byte
	issuer string
}

// NewTokenService creates a new TokenService signing with the given shared secret.
//
// It fails with [ErrMissingSecret] when the secret is empty, so a
// misconfigured process can never mint unsigned sessions.
func NewTokenService(secret, issuer string) (*TokenService, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}

	return &TokenService{
		secret: []byte(secret),
		issuer: issuer,
	}, nil
}

// Issue creates a signed session token from the given claims.
//
// The registered claims (sub, iss, iat, exp) are always overwritten here:
// expiry is exactly issued-at + timeToLive regardless of what the caller
// placed in the struct.
func (service *TokenService) Issue(claims AuthClaims, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()

	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		Issuer:    service.issuer,
		IssuedAt:  jwt.NewNumericDate(currentTime),
		ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks the signature and validity window of a token string.
//
// # Returns
//   - *AuthClaims when the token is authentic and unexpired.
//   - [ErrTokenExpired] when the signature is valid but the token aged out.
//   - [ErrTokenInvalid] for every other failure (tamper, wrong alg, garbage).
func (service *TokenService) Verify(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	})

	if err != nil {
		// Expiry is the one failure worth distinguishing internally: an
		// expired token is a routine re-login, a bad signature is tampering.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// Decode parses a token WITHOUT verifying its signature or expiry.
//
// # Trust
//
// The result must only be used for non-trust-sensitive reads (e.g. showing
// the login hint on an expired-session page). Authorization decisions must
// always go through [TokenService.Verify].
func (service *TokenService) Decode(tokenString string) *AuthClaims {
	claims := &AuthClaims{}
	parser := jwt.NewParser()

	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil
	}

	return claims
}
