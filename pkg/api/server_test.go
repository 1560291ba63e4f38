// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GeoRetina/arion-connectors/pkg/api"
	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/connector/executor"
	"github.com/GeoRetina/arion-connectors/pkg/connector/policy"
	"github.com/GeoRetina/arion-connectors/pkg/connector/registry"
	"github.com/GeoRetina/arion-connectors/pkg/connector/runlog"
	"github.com/GeoRetina/arion-connectors/pkg/telemetry"
)

type memStore struct {
	doc json.RawMessage
}

func (m *memStore) GetConnectorPolicyConfig() (json.RawMessage, error) { return m.doc, nil }

func (m *memStore) SetConnectorPolicyConfig(doc json.RawMessage) error {
	m.doc = doc
	return nil
}

type okAdapter struct{}

func (okAdapter) ID() string                           { return "native" }
func (okAdapter) Backend() connector.Backend           { return connector.BackendNative }
func (okAdapter) Supports(_ connector.RoutingKey) bool { return true }

func (okAdapter) Execute(
	_ context.Context, _ *connector.ExecutionRequest, _ connector.ExecInfo,
) (*connector.AdapterResult, error) {
	return connector.Succeed(map[string]any{"returned": 0}), nil
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	reg := registry.NewRegistry()
	reg.Register(registry.Registration{
		Integration: connector.IntegrationSTAC,
		Capability:  connector.CapabilityCatalogSearch,
		Adapter:     okAdapter{},
		Description: "Search the configured STAC catalog",
	})

	promRegistry := prometheus.NewRegistry()
	service := executor.New(reg, policy.NewService(&memStore{}), runlog.NewLogger(0),
		executor.WithMetrics(telemetry.NewMetrics(promRegistry)))
	return api.Router(service, promRegistry)
}

func TestExecuteEndpoint(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	body := `{"integrationId":"stac","capability":"catalog.search","input":{"limit":5}}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/execute", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var result connector.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, connector.BackendNative, result.Backend)
	assert.NotEmpty(t, result.RunID)
}

func TestExecuteEndpointRejectsUnknownIntegration(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	body := `{"integrationId":"mystery","capability":"catalog.search"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/execute", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExecuteEndpointFailureStillOK(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	// No adapter serves this key; the error rides in the envelope.
	body := `{"integrationId":"s3","capability":"storage.list"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/execute", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var result connector.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, "UNSUPPORTED_CAPABILITY", result.Error.Code)
}

func TestCapabilitiesEndpoint(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/capabilities", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var response struct {
		Capabilities []registry.CapabilityInfo `json:"capabilities"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response.Capabilities, 1)
	assert.Equal(t, connector.IntegrationSTAC, response.Capabilities[0].Integration)
}

func TestRunsEndpoint(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)

	body := `{"integrationId":"stac","capability":"catalog.search"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/execute", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var runs struct {
		Runs []connector.RunRecord `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs.Runs, 1)
	assert.Equal(t, connector.OutcomeSuccess, runs.Runs[0].Outcome)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/runs", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPolicyEndpointRoundTrip(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/policy",
		strings.NewReader(`{"strictMode":true,"defaultTimeoutMs":5}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var cfg policy.Config
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.True(t, cfg.StrictMode)
	assert.Equal(t, int64(policy.MinTimeoutMs), int64(cfg.DefaultTimeoutMs), "timeout clamps on write")
}

func TestApprovalsEndpoint(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/approvals",
		strings.NewReader(`{"mode":"session","integrationId":"stac","capability":"catalog.search","chatId":"chat-1"}`)))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/approvals",
		strings.NewReader(`{"mode":"sometimes","integrationId":"stac","capability":"catalog.search"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/approvals?chatId=chat-1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
