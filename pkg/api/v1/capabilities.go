// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GeoRetina/arion-connectors/pkg/connector/executor"
	"github.com/GeoRetina/arion-connectors/pkg/connector/registry"
)

// CapabilitiesRouter creates the router for capability discovery.
func CapabilitiesRouter(service *executor.Service) http.Handler {
	routes := &capabilityRoutes{service: service}
	r := chi.NewRouter()
	r.Get("/", routes.listCapabilities)
	return r
}

type capabilityRoutes struct {
	service *executor.Service
}

type capabilityListResponse struct {
	Capabilities []registry.CapabilityInfo `json:"capabilities"`
}

// listCapabilities
//
// @Summary      List registered capabilities
// @Description  Returns one aggregate per (integration, capability) routing key.
// @Tags         capabilities
// @Produce      json
// @Success      200  {object}  capabilityListResponse
// @Router       /api/v1/capabilities [get]
func (c *capabilityRoutes) listCapabilities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, capabilityListResponse{
		Capabilities: c.service.GetCapabilities(),
	})
}
