// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

// Command api starts the PropVault marketplace API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/propvault/propvault/internal/admin"
	"github.com/propvault/propvault/internal/api"
	"github.com/propvault/propvault/internal/identity"
	"github.com/propvault/propvault/internal/listing"
	"github.com/propvault/propvault/internal/platform/authz"
	"github.com/propvault/propvault/internal/platform/config"
	"github.com/propvault/propvault/internal/platform/constants"
	"github.com/propvault/propvault/internal/platform/migration"
	"github.com/propvault/propvault/internal/platform/postgres"
	"github.com/propvault/propvault/internal/platform/redis"
	"github.com/propvault/propvault/internal/platform/sec"
	"github.com/propvault/propvault/internal/platform/session"
)

func main() {
	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// ── 1. Configuration & Logging ────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		slog.Error("startup_config_failed", slog.Any("error", err))
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	logger.Info("starting",
		slog.String("app", constants.AppName),
		slog.String("version", constants.AppVersion),
		slog.String("environment", cfg.Environment),
	)

	// ── 2. Token Codec ────────────────────────────────────────────────────
	// Refusing to start without a signing secret is deliberate: a process
	// that cannot sign tokens must never serve logins.
	tokenService, err := sec.NewTokenService(cfg.TokenSecret, constants.AuthIssuer)
	if err != nil {
		logger.Error("startup_token_codec_failed", slog.Any("error", err))
		os.Exit(1)
	}

	// ── 3. Storage ────────────────────────────────────────────────────────
	pool, err := postgres.NewPool(rootCtx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("startup_postgres_failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := redis.NewClient(rootCtx, cfg.RedisURL, logger)
	if err != nil {
		logger.Error("startup_redis_failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	// ── 4. Migrations ─────────────────────────────────────────────────────
	if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, logger); err != nil {
		logger.Error("startup_migration_failed", slog.Any("error", err))
		os.Exit(1)
	}

	// ── 5. Domain Wiring ──────────────────────────────────────────────────
	sessions := session.NewStore(cfg.IsProduction())
	allowlist := identity.NewRedisAllowlist(redisClient)

	identityService := identity.NewService(
		identity.NewPostgresRepository(pool),
		allowlist,
		identity.NewRedisStateRepository(redisClient),
		identity.NewHTTPOAuthProvider(identity.OAuthConfig{
			Provider:     cfg.OAuthProvider,
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			AuthorizeURL: cfg.OAuthAuthorizeURL,
			TokenURL:     cfg.OAuthTokenURL,
			UserinfoURL:  cfg.OAuthUserinfoURL,
			RedirectURL:  cfg.OAuthRedirectURL,
		}),
		identity.NewHTTPEmailAuthenticator(cfg.EmailAuthURL),
		tokenService,
		identity.SuperadminConfig{
			Username:     cfg.SuperadminUsername,
			PasswordHash: cfg.SuperadminPasswordHash,
		},
		logger,
	)

	listingService := listing.NewService(listing.NewPostgresRepository(pool), logger)

	server := api.NewServer(
		cfg,
		logger,
		pool,
		redisClient,
		authz.Default(),
		sessions,
		tokenService,
		identity.NewHandler(identityService, sessions),
		listing.NewHandler(listingService),
		admin.NewHandler(
			identityService,
			admin.StaticAnalytics{},
			admin.InMemoryDistributions{},
			admin.InMemoryPayments{},
			allowlist,
		),
	)

	// ── 6. Serve & Graceful Shutdown ──────────────────────────────────────
	httpServer := server.HTTPServer(rootCtx)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("http_server_listening", slog.String("addr", httpServer.Addr))
		serverErrors <- httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_failed", slog.Any("error", err))
			os.Exit(1)
		}

	case sig := <-shutdown:
		logger.Info("shutdown_started", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancelShutdown()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown_forced", slog.Any("error", err))
			_ = httpServer.Close()
		}

		// Stop background goroutines (rate limiter cleanup).
		cancelRoot()

		logger.Info("shutdown_complete")
	}
}
