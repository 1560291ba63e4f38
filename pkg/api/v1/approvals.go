// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/connector/executor"
	"github.com/GeoRetina/arion-connectors/pkg/connector/policy"
)

// ApprovalsRouter creates the router for approval grants.
func ApprovalsRouter(service *executor.Service) http.Handler {
	routes := &approvalRoutes{service: service}
	r := chi.NewRouter()
	r.Post("/", routes.grantApproval)
	r.Delete("/", routes.clearApprovals)
	return r
}

type approvalRoutes struct {
	service *executor.Service
}

type approvalRequest struct {
	Mode        policy.ApprovalMode     `json:"mode"`
	Integration connector.IntegrationID `json:"integrationId"`
	Capability  connector.Capability    `json:"capability"`
	ChatID      string                  `json:"chatId,omitempty"`
}

// grantApproval
//
// @Summary      Grant an approval
// @Description  Records a session or one-shot approval for a capability. Mode "always" is a no-op.
// @Tags         approvals
// @Accept       json
// @Param        approval  body      approvalRequest  true  "Approval grant"
// @Success      204       {string}  string  "No Content"
// @Failure      400       {string}  string  "Bad Request"
// @Router       /api/v1/approvals [post]
func (a *approvalRoutes) grantApproval(w http.ResponseWriter, r *http.Request) {
	var req approvalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Mode != policy.ApprovalAlways && req.Mode != policy.ApprovalSession && req.Mode != policy.ApprovalOnce {
		http.Error(w, "Unknown approval mode", http.StatusBadRequest)
		return
	}
	if !req.Integration.Valid() || req.Capability == "" {
		http.Error(w, "integrationId and capability are required", http.StatusBadRequest)
		return
	}

	a.service.GrantApproval(req.Mode, req.Integration, req.Capability, req.ChatID)
	w.WriteHeader(http.StatusNoContent)
}

// clearApprovals
//
// @Summary      Clear approvals
// @Description  Clears approvals for a chat, or everything when chatId is absent.
// @Tags         approvals
// @Param        chatId  query     string  false  "Chat to clear"
// @Success      204     {string}  string  "No Content"
// @Router       /api/v1/approvals [delete]
func (a *approvalRoutes) clearApprovals(w http.ResponseWriter, r *http.Request) {
	a.service.ClearApprovals(r.URL.Query().Get("chatId"))
	w.WriteHeader(http.StatusNoContent)
}
