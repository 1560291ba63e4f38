// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package native_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/connector/native"
	"github.com/GeoRetina/arion-connectors/pkg/errors"
)

func stacRequest(input map[string]any) *connector.ExecutionRequest {
	return &connector.ExecutionRequest{
		Integration: connector.IntegrationSTAC,
		Capability:  connector.CapabilityCatalogSearch,
		Input:       input,
	}
}

func TestCatalogSearchShapesBody(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/geo+json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"features":      []any{map[string]any{"id": "item-1"}},
			"links":         []any{},
			"numberMatched": 42,
		})
	}))
	t.Cleanup(server.Close)

	configs := fakeConfigs{
		connector.IntegrationSTAC: {"url": server.URL + "/stac/v1/"},
	}
	adapter := native.New(configs, nil, native.WithHTTPClient(server.Client()))

	result, err := adapter.Execute(context.Background(), stacRequest(map[string]any{
		"limit":       float64(9999),
		"collections": []any{"sentinel-2-l2a", ""},
		"bbox":        []any{float64(-10), float64(35), float64(5), float64(45)},
		"datetime":    "2024-01-01/2024-12-31",
	}), connector.ExecInfo{})
	require.NoError(t, err)
	require.True(t, result.Success, "error: %v", result.Error)

	assert.Equal(t, "/stac/v1/search", gotPath)
	assert.Equal(t, float64(500), gotBody["limit"], "limit clamps to the maximum")
	assert.Equal(t, []any{"sentinel-2-l2a"}, gotBody["collections"])
	assert.Len(t, gotBody["bbox"], 4)
	assert.Equal(t, "2024-01-01/2024-12-31", gotBody["datetime"])

	data := result.Data.(map[string]any)
	assert.Equal(t, 1, data["returned"])
	assert.Equal(t, float64(42), data["matched"])
}

func TestCatalogSearchKeepsSearchSuffix(t *testing.T) {
	t.Parallel()

	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{"features": []any{}})
	}))
	t.Cleanup(server.Close)

	configs := fakeConfigs{
		connector.IntegrationSTAC: {"url": server.URL + "/search"},
	}
	adapter := native.New(configs, nil, native.WithHTTPClient(server.Client()))

	result, err := adapter.Execute(context.Background(), stacRequest(nil), connector.ExecInfo{})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, "/search", gotPath)
}

func TestCatalogSearchMatchedFromContext(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"features": []any{},
			"context":  map[string]any{"matched": 7},
		})
	}))
	t.Cleanup(server.Close)

	configs := fakeConfigs{connector.IntegrationSTAC: {"url": server.URL}}
	adapter := native.New(configs, nil, native.WithHTTPClient(server.Client()))

	result, err := adapter.Execute(context.Background(), stacRequest(nil), connector.ExecInfo{})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, float64(7), result.Data.(map[string]any)["matched"])
}

func TestCatalogSearchServerErrorIsRetryable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	configs := fakeConfigs{connector.IntegrationSTAC: {"url": server.URL}}
	adapter := native.New(configs, nil, native.WithHTTPClient(server.Client()))

	result, err := adapter.Execute(context.Background(), stacRequest(nil), connector.ExecInfo{})
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.Equal(t, errors.CodeExecutionFailed, result.Error.Code)
	assert.True(t, result.Error.Retryable)
	assert.Contains(t, result.Error.Message, "502")
}

func TestCatalogSearchClientErrorIsNotRetryable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(server.Close)

	configs := fakeConfigs{connector.IntegrationSTAC: {"url": server.URL}}
	adapter := native.New(configs, nil, native.WithHTTPClient(server.Client()))

	result, err := adapter.Execute(context.Background(), stacRequest(nil), connector.ExecInfo{})
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.False(t, result.Error.Retryable)
}
