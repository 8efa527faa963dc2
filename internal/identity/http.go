// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

package identity

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/propvault/propvault/internal/platform/apperr"
	"github.com/propvault/propvault/internal/platform/middleware"
	requestutil "github.com/propvault/propvault/internal/platform/request"
	"github.com/propvault/propvault/internal/platform/respond"
	"github.com/propvault/propvault/internal/platform/session"
)

// Handler exposes the authentication endpoints.
type Handler struct {
	service  *Service
	sessions *session.Store
}

// NewHandler creates the authentication [Handler].
func NewHandler(service *Service, sessions *session.Store) *Handler {
	return &Handler{service: service, sessions: sessions}
}

// Routes returns the router for everything under /auth.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Login flows (anonymous)
	router.Post("/wallet", handler.WalletLogin)
	router.Post("/login", handler.EmailLogin)
	router.Get("/oauth/{provider}/start", handler.OAuthStart)
	router.Get("/oauth/{provider}/callback", handler.OAuthCallback)

	// Session lifecycle (authenticated)
	router.Group(func(authenticated chi.Router) {
		authenticated.Use(middleware.RequireAuth)
		authenticated.Get("/me", handler.Me)
		authenticated.Post("/kyc", handler.SubmitKYC)
		authenticated.Post("/smart-account", handler.AttachSmartAccount)
	})

	router.Post("/logout", handler.Logout)

	return router
}

// # Request Payloads

type walletLoginRequest struct {
	Address string `json:"address"`
}

type emailLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type superadminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type smartAccountRequest struct {
	SmartAccount string `json:"smart_account"`
}

// # Login Flows

// WalletLogin handles POST /auth/wallet.
func (handler *Handler) WalletLogin(writer http.ResponseWriter, request *http.Request) {
	var payload walletLoginRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.WalletLogin(request.Context(), payload.Address)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.sessions.Save(writer, result.Token)
	respond.OK(writer, result)
}

// EmailLogin handles POST /auth/login.
//
// The delegated service mints the token; the cookie is written WITHOUT
// HttpOnly because the web client still reads it directly (see
// [session.Store.SaveBrowserReadable]).
func (handler *Handler) EmailLogin(writer http.ResponseWriter, request *http.Request) {
	var payload emailLoginRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.EmailLogin(request.Context(), payload.Email, payload.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.sessions.SaveBrowserReadable(writer, result.Token)
	respond.OK(writer, result)
}

// OAuthStart handles GET /auth/oauth/{provider}/start.
//
// It redirects the browser to the provider's consent page with a one-time
// state nonce.
func (handler *Handler) OAuthStart(writer http.ResponseWriter, request *http.Request) {
	if err := handler.checkProvider(request); err != nil {
		respond.Error(writer, request, err)
		return
	}

	authorizeURL, err := handler.service.OAuthStart(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	http.Redirect(writer, request, authorizeURL, http.StatusFound)
}

// OAuthCallback handles GET /auth/oauth/{provider}/callback.
func (handler *Handler) OAuthCallback(writer http.ResponseWriter, request *http.Request) {
	if err := handler.checkProvider(request); err != nil {
		respond.Error(writer, request, err)
		return
	}

	query := request.URL.Query()

	// A provider error (user denied consent, misconfigured client) must
	// short-circuit BEFORE the state or code is touched: no token may ever
	// be issued on an errored callback.
	if providerError := query.Get("error"); providerError != "" {
		respond.Error(writer, request, apperr.Unauthorized("Login was cancelled or rejected"))
		return
	}

	result, err := handler.service.OAuthCallback(request.Context(), query.Get("state"), query.Get("code"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.sessions.Save(writer, result.Token)
	respond.OK(writer, result)
}

// SuperadminLogin handles POST /super-admin/login.
func (handler *Handler) SuperadminLogin(writer http.ResponseWriter, request *http.Request) {
	var payload superadminLoginRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.SuperadminLogin(request.Context(), payload.Username, payload.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.sessions.Save(writer, result.Token)
	respond.OK(writer, result)
}

// # Session Lifecycle

// Me handles GET /auth/me.
func (handler *Handler) Me(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	stored, err := handler.service.Me(request.Context(), claims)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, stored)
}

// SubmitKYC handles POST /auth/kyc. The refreshed token overwrites the cookie
// so the kyc claim takes effect on the very next request.
func (handler *Handler) SubmitKYC(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.SubmitKYC(request.Context(), claims)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.sessions.Save(writer, result.Token)
	respond.OK(writer, result)
}

// AttachSmartAccount handles POST /auth/smart-account.
func (handler *Handler) AttachSmartAccount(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload smartAccountRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.AttachSmartAccount(request.Context(), claims, payload.SmartAccount)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.sessions.Save(writer, result.Token)
	respond.OK(writer, result)
}

// Logout handles POST /auth/logout. Logging out is idempotent: clearing an
// absent cookie succeeds the same way.
func (handler *Handler) Logout(writer http.ResponseWriter, request *http.Request) {
	handler.sessions.Clear(writer)
	respond.NoContent(writer)
}

// checkProvider rejects OAuth routes for any provider other than the
// configured one.
func (handler *Handler) checkProvider(request *http.Request) error {
	provider := requestutil.Param(request, "provider")
	if provider != handler.service.OAuthProviderName() {
		return apperr.NotFound("OAuth provider")
	}
	return nil
}
