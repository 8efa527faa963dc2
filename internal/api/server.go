// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

/*
Package api assembles the HTTP surface of the PropVault API server.

It owns the router composition: the middleware chain order, the mount points
of every domain handler, and the health endpoints. Nothing here contains
business logic; the package only wires the pieces built elsewhere.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/propvault/propvault/internal/admin"
	"github.com/propvault/propvault/internal/identity"
	"github.com/propvault/propvault/internal/listing"
	"github.com/propvault/propvault/internal/platform/authz"
	"github.com/propvault/propvault/internal/platform/config"
	"github.com/propvault/propvault/internal/platform/constants"
	"github.com/propvault/propvault/internal/platform/middleware"
	"github.com/propvault/propvault/internal/platform/session"
)

// Server bundles everything needed to build the HTTP handler tree.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	pool     *pgxpool.Pool
	redis    *goredis.Client
	policy   *authz.Policy
	sessions *session.Store
	tokens   middleware.TokenVerifier

	identityHandler *identity.Handler
	listingHandler  *listing.Handler
	adminHandler    *admin.Handler
}

// NewServer creates the [Server] composition root.
func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	pool *pgxpool.Pool,
	redisClient *goredis.Client,
	policy *authz.Policy,
	sessions *session.Store,
	tokens middleware.TokenVerifier,
	identityHandler *identity.Handler,
	listingHandler *listing.Handler,
	adminHandler *admin.Handler,
) *Server {
	return &Server{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		redis:           redisClient,
		policy:          policy,
		sessions:        sessions,
		tokens:          tokens,
		identityHandler: identityHandler,
		listingHandler:  listingHandler,
		adminHandler:    adminHandler,
	}
}

// Router builds the full middleware chain and route tree.
//
// # Middleware Order
//
// Order matters: tracing and logging first so every later step is
// observable, rate limiting before any expensive work, authentication
// before the route guard, and the route guard before every mounted domain
// router so no guarded handler can be reached unchecked.
func (server *Server) Router(ctx context.Context) http.Handler {
	router := chi.NewRouter()

	// ── 1. Cross-Cutting Chain ────────────────────────────────────────────
	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger(server.logger))
	router.Use(chimiddleware.CleanPath)
	router.Use(chimiddleware.Timeout(constants.GlobalRequestTimeout))
	router.Use(middleware.RateLimit(ctx))
	router.Use(middleware.PanicRecovery(server.logger))
	router.Use(middleware.CORS(server.cfg))

	// ── 2. Authentication & Authorization ─────────────────────────────────
	router.Use(middleware.Authenticate(server.tokens, server.sessions))
	router.Use(middleware.RouteGuard(server.policy))

	// ── 3. Health Probes ──────────────────────────────────────────────────
	router.Get("/health", server.Health)
	router.Get("/ready", server.Ready)

	// ── 4. Public Login Literals ──────────────────────────────────────────
	// These sit under guarded prefixes but are carved out by the policy's
	// public path set; the guard never blocks them.
	router.Post("/admin/login", server.identityHandler.EmailLogin)
	router.Post("/super-admin/login", server.identityHandler.SuperadminLogin)

	// ── 5. Domain Mounts ──────────────────────────────────────────────────
	router.Mount("/auth", server.identityHandler.Routes())
	router.Mount("/listings", server.listingHandler.Routes())
	router.Mount("/admin", server.adminHandler.Routes())
	router.Mount("/super-admin", server.adminHandler.SuperRoutes())

	return router
}

// HTTPServer wraps the router in a tuned [http.Server].
func (server *Server) HTTPServer(ctx context.Context) *http.Server {
	return &http.Server{
		Addr:              ":" + server.cfg.ServerPort,
		Handler:           server.Router(ctx),
		ReadTimeout:       constants.DefaultReadTimeout,
		ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		WriteTimeout:      constants.DefaultWriteTimeout,
		IdleTimeout:       constants.DefaultIdleTimeout,
	}
}
