// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

package api

import (
	"net/http"

	"github.com/propvault/propvault/internal/platform/constants"
	"github.com/propvault/propvault/internal/platform/postgres"
	"github.com/propvault/propvault/internal/platform/redis"
	"github.com/propvault/propvault/internal/platform/respond"
)

// Health handles GET /health (liveness).
//
// It answers 200 as long as the process is serving; no dependency is touched.
func (server *Server) Health(writer http.ResponseWriter, request *http.Request) {
	respond.JSON(writer, http.StatusOK, map[string]string{
		constants.FieldStatus:  "ok",
		constants.FieldApp:     constants.AppName,
		constants.FieldVersion: constants.AppVersion,
	})
}

// Ready handles GET /ready (readiness).
//
// It pings PostgreSQL and Redis and reports per-dependency status. Any
// failing check turns the response into a 503 so the load balancer stops
// routing traffic here.
func (server *Server) Ready(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	checks := map[string]string{}
	healthy := true

	if err := postgres.Ping(ctx, server.pool); err != nil {
		checks["postgres"] = "unreachable"
		healthy = false
	} else {
		checks["postgres"] = "ok"
	}

	if err := redis.Ping(ctx, server.redis); err != nil {
		checks["redis"] = "unreachable"
		healthy = false
	} else {
		checks["redis"] = "ok"
	}

	status := http.StatusOK
	overall := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	respond.JSON(writer, status, map[string]any{
		constants.FieldStatus: overall,
		constants.FieldChecks: checks,
	})
}
