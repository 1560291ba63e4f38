// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/connector/executor"
)

// RunsRouter creates the router for the run log.
func RunsRouter(service *executor.Service) http.Handler {
	routes := &runRoutes{service: service}
	r := chi.NewRouter()
	r.Get("/", routes.listRuns)
	r.Delete("/", routes.clearRuns)
	return r
}

type runRoutes struct {
	service *executor.Service
}

type runListResponse struct {
	Runs []connector.RunRecord `json:"runs"`
}

// listRuns
//
// @Summary      List run records
// @Description  Returns the newest-first run records, optionally limited.
// @Tags         runs
// @Produce      json
// @Param        limit  query     int  false  "Maximum records to return"
// @Success      200    {object}  runListResponse
// @Router       /api/v1/runs [get]
func (rr *runRoutes) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	writeJSON(w, http.StatusOK, runListResponse{Runs: rr.service.GetRunLogs(limit)})
}

// clearRuns
//
// @Summary      Clear run records
// @Tags         runs
// @Success      204  {string}  string  "No Content"
// @Router       /api/v1/runs [delete]
func (rr *runRoutes) clearRuns(w http.ResponseWriter, _ *http.Request) {
	rr.service.ClearRunLogs()
	w.WriteHeader(http.StatusNoContent)
}
