// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, token codec) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the PropVault API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis): wallet allow-list and OAuth state nonces.
	RedisURL string `env:"REDIS_URL,required"`

	// TokenSecret signs every session token. The process must refuse to
	// issue tokens when this is missing, hence 'required'.
	TokenSecret string `env:"AUTH_TOKEN_SECRET,required"`

	// Superadmin operator credential pair. The password is stored as a
	// bcrypt hash so the real value never touches the environment.
	SuperadminUsername     string `env:"SUPERADMIN_USERNAME"`
	SuperadminPasswordHash string `env:"SUPERADMIN_PASSWORD_HASH"`

	// Delegated email/password authentication service.
	EmailAuthURL string `env:"EMAIL_AUTH_URL"`

	// Social OAuth provider endpoints and credentials.
	OAuthProvider     string `env:"OAUTH_PROVIDER"      envDefault:"google"`
	OAuthClientID     string `env:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string `env:"OAUTH_CLIENT_SECRET"`
	OAuthAuthorizeURL string `env:"OAUTH_AUTHORIZE_URL"`
	OAuthTokenURL     string `env:"OAUTH_TOKEN_URL"`
	OAuthUserinfoURL  string `env:"OAUTH_USERINFO_URL"`
	OAuthRedirectURL  string `env:"OAUTH_REDIRECT_URL"`

	// Cross-Origin Resource Sharing: comma-separated extra allowed origins
	// on top of the first-party domains.
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	// The provider tag prefixes social canonical IDs, so the built-in
	// source prefixes are reserved: OAUTH_PROVIDER=email would let a social
	// identity collide with an email identity.
	switch strings.ToLower(cfg.OAuthProvider) {
	case "wallet", "email", "superadmin":
		return nil, fmt.Errorf("config: OAUTH_PROVIDER %q collides with a reserved identity source", cfg.OAuthProvider)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigins returns the extra CORS origins configured via EXTRA_ORIGINS.
func (c *Config) AllowedOrigins() []string {
	if c.ExtraOrigins == "" {
		return nil
	}

	parts := strings.Split(c.ExtraOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
