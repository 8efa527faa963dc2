// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/propvault/propvault/internal/identity"
	requestutil "github.com/propvault/propvault/internal/platform/request"
	"github.com/propvault/propvault/internal/platform/respond"
	"github.com/propvault/propvault/internal/platform/validate"
	"github.com/propvault/propvault/pkg/pagination"
)

// Handler exposes the staff console endpoints.
//
// Role gating happens in the route guard before any of these run; the
// handlers only add the fine-grained permission checks where an action is
// destructive.
type Handler struct {
	identities    *identity.Service
	analytics     AnalyticsProvider
	distributions DistributionEngine
	payments      PaymentProcessor
	allowlist     AllowlistManager
}

// NewHandler creates the staff console [Handler].
func NewHandler(
	identities *identity.Service,
	analytics AnalyticsProvider,
	distributions DistributionEngine,
	payments PaymentProcessor,
	allowlist AllowlistManager,
) *Handler {
	return &Handler{
		identities:    identities,
		analytics:     analytics,
		distributions: distributions,
		payments:      payments,
		allowlist:     allowlist,
	}
}

// Routes returns the router for everything under /admin.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/analytics", handler.Analytics)
	router.Get("/users", handler.ListUsers)
	router.Post("/distributions", handler.ScheduleDistribution)
	router.Get("/payments/{id}", handler.PaymentStatus)

	return router
}

// SuperRoutes returns the router for everything under /super-admin.
func (handler *Handler) SuperRoutes() chi.Router {
	router := chi.NewRouter()

	router.Post("/allowlist", handler.AllowlistAdd)
	router.Delete("/allowlist/{address}", handler.AllowlistRemove)

	return router
}

// Analytics handles GET /admin/analytics.
//
// The provider's payload is forwarded unchanged inside the standard envelope.
func (handler *Handler) Analytics(writer http.ResponseWriter, request *http.Request) {
	snapshot, err := handler.analytics.Snapshot(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, snapshot)
}

// ListUsers handles GET /admin/users.
func (handler *Handler) ListUsers(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	identities, meta, err := handler.identities.ListUsers(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, identities, meta)
}

// distributionRequest is the payload for scheduling a distribution.
type distributionRequest struct {
	ListingSlug string `json:"listing_slug"`
	AmountCents int64  `json:"amount_cents"`
}

// ScheduleDistribution handles POST /admin/distributions.
func (handler *Handler) ScheduleDistribution(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload distributionRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	err = validator.
		Required("listing_slug", payload.ListingSlug).Slug("listing_slug", payload.ListingSlug).
		Custom("amount_cents", payload.AmountCents <= 0, "Must be a positive amount").
		Err()
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	scheduled, err := handler.distributions.Schedule(request.Context(), payload.ListingSlug, payload.AmountCents, claims.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, scheduled)
}

// PaymentStatus handles GET /admin/payments/{id}.
func (handler *Handler) PaymentStatus(writer http.ResponseWriter, request *http.Request) {
	paymentID := requestutil.Param(request, "id")

	validator := &validate.Validator{}
	if err := validator.Required("id", paymentID).UUID("id", paymentID).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	payment, err := handler.payments.Status(request.Context(), paymentID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, payment)
}

// allowlistRequest is the payload for allow-list changes.
type allowlistRequest struct {
	Address string `json:"address"`
}

// AllowlistAdd handles POST /super-admin/allowlist.
func (handler *Handler) AllowlistAdd(writer http.ResponseWriter, request *http.Request) {
	var payload allowlistRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if err := validator.Required("address", payload.Address).WalletAddress("address", payload.Address).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.allowlist.Add(request.Context(), payload.Address); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// AllowlistRemove handles DELETE /super-admin/allowlist/{address}.
func (handler *Handler) AllowlistRemove(writer http.ResponseWriter, request *http.Request) {
	address := requestutil.Param(request, "address")

	validator := &validate.Validator{}
	if err := validator.Required("address", address).WalletAddress("address", address).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.allowlist.Remove(request.Context(), address); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
