// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package v1 contains the connector REST API handlers.
package v1

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/connector/executor"
	"github.com/GeoRetina/arion-connectors/pkg/logger"
)

// ExecuteRouter creates the router for capability execution.
func ExecuteRouter(service *executor.Service) http.Handler {
	routes := &executeRoutes{service: service}
	r := chi.NewRouter()
	r.Post("/", routes.execute)
	return r
}

type executeRoutes struct {
	service *executor.Service
}

// execute
//
// @Summary      Execute a connector capability
// @Description  Run one capability request through policy, routing, and the attempt loop.
// @Tags         execute
// @Accept       json
// @Produce      json
// @Param        request  body      connector.ExecutionRequest  true  "Execution request"
// @Success      200      {object}  connector.Result
// @Failure      400      {string}  string  "Bad Request"
// @Router       /api/v1/execute [post]
func (e *executeRoutes) execute(w http.ResponseWriter, r *http.Request) {
	var req connector.ExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Integration.Valid() {
		http.Error(w, "Unknown integrationId", http.StatusBadRequest)
		return
	}
	if req.Capability == "" {
		http.Error(w, "capability is required", http.StatusBadRequest)
		return
	}

	result := e.service.Execute(r.Context(), &req)

	// Failures are still HTTP 200: the result envelope carries the error
	// taxonomy, and transport-level statuses are reserved for malformed
	// requests.
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("failed to encode response: %v", err)
	}
}
