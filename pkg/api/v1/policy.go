// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GeoRetina/arion-connectors/pkg/connector/executor"
	"github.com/GeoRetina/arion-connectors/pkg/connector/policy"
	"github.com/GeoRetina/arion-connectors/pkg/logger"
)

// PolicyRouter creates the router for the connector policy document.
func PolicyRouter(service *executor.Service) http.Handler {
	routes := &policyRoutes{service: service}
	r := chi.NewRouter()
	r.Get("/", routes.getPolicy)
	r.Put("/", routes.setPolicy)
	return r
}

type policyRoutes struct {
	service *executor.Service
}

// getPolicy
//
// @Summary      Get the connector policy
// @Description  Returns the stored policy document, normalised.
// @Tags         policy
// @Produce      json
// @Success      200  {object}  policy.Config
// @Router       /api/v1/policy [get]
func (p *policyRoutes) getPolicy(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, p.service.Policy().GetConfig())
}

// setPolicy
//
// @Summary      Replace the connector policy
// @Description  Normalises and persists the supplied policy document.
// @Tags         policy
// @Accept       json
// @Produce      json
// @Param        policy  body      policy.Config  true  "Policy document"
// @Success      200     {object}  policy.Config
// @Failure      400     {string}  string  "Bad Request"
// @Router       /api/v1/policy [put]
func (p *policyRoutes) setPolicy(w http.ResponseWriter, r *http.Request) {
	var cfg policy.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "Invalid policy document", http.StatusBadRequest)
		return
	}
	if err := p.service.Policy().SetConfig(&cfg); err != nil {
		logger.Errorf("failed to persist connector policy: %v", err)
		http.Error(w, "Failed to persist policy", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p.service.Policy().GetConfig())
}
