// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

package listing

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/propvault/propvault/internal/platform/middleware"
	requestutil "github.com/propvault/propvault/internal/platform/request"
	"github.com/propvault/propvault/internal/platform/respond"
	"github.com/propvault/propvault/pkg/pagination"
)

// Handler exposes the marketplace listing endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates the listing [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for everything under /listings.
//
// Reads are public. Writes require the marketplace listings grant on top of
// authentication; holding a staff role alone is not enough.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.List)
	router.Get("/{slug}", handler.GetBySlug)

	router.Group(func(guarded chi.Router) {
		guarded.Use(middleware.RequirePermission("marketplace", "listings", "create"))
		guarded.Post("/", handler.Create)
	})

	router.Group(func(guarded chi.Router) {
		guarded.Use(middleware.RequirePermission("marketplace", "listings", "delete"))
		guarded.Delete("/{slug}", handler.Delete)
	})

	return router
}

// List handles GET /listings.
func (handler *Handler) List(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	listings, meta, err := handler.service.List(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, listings, meta)
}

// GetBySlug handles GET /listings/{slug}.
func (handler *Handler) GetBySlug(writer http.ResponseWriter, request *http.Request) {
	stored, err := handler.service.GetBySlug(request.Context(), requestutil.Param(request, "slug"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, stored)
}

// Create handles POST /listings.
func (handler *Handler) Create(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input CreateInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	stored, err := handler.service.Create(request.Context(), claims, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, stored)
}

// Delete handles DELETE /listings/{slug}.
func (handler *Handler) Delete(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Delete(request.Context(), claims, requestutil.Param(request, "slug")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
