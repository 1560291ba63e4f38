// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package networking_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GeoRetina/arion-connectors/pkg/networking"
)

type echoPayload struct {
	Message string `json:"message"`
}

func TestFetchJSONDefaults(t *testing.T) {
	t.Parallel()

	var captured *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(r.Context())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(echoPayload{Message: "hello"})
	}))
	t.Cleanup(server.Close)

	result, err := networking.FetchJSON[echoPayload](context.Background(), server.Client(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Data.Message)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, http.MethodGet, captured.Method)
	assert.Equal(t, networking.ContentTypeJSON, captured.Header.Get("Accept"))
}

func TestFetchJSONPostWithBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, networking.ContentTypeJSON, r.Header.Get("Content-Type"))
		var in echoPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(echoPayload{Message: "got " + in.Message})
	}))
	t.Cleanup(server.Close)

	result, err := networking.FetchJSON[echoPayload](context.Background(), server.Client(), server.URL,
		networking.WithMethod(http.MethodPost),
		networking.WithJSONBody(echoPayload{Message: "ping"}),
	)
	require.NoError(t, err)
	assert.Equal(t, "got ping", result.Data.Message)
}

func TestFetchJSONHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	t.Cleanup(server.Close)

	_, err := networking.FetchJSON[echoPayload](context.Background(), server.Client(), server.URL)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, networking.StatusOf(err))
	assert.True(t, networking.IsServerError(err))
	assert.True(t, networking.IsHTTPError(err, http.StatusBadGateway))

	var httpErr *networking.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "upstream down", httpErr.Body)
}

func TestFetchJSONCustomErrorHandler(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad token"})
	}))
	t.Cleanup(server.Close)

	_, err := networking.FetchJSON[echoPayload](context.Background(), server.Client(), server.URL,
		networking.WithErrorHandler(func(_ *http.Response, body []byte) error {
			var payload map[string]string
			if json.Unmarshal(body, &payload) == nil && payload["error"] != "" {
				return fmt.Errorf("rejected: %s", payload["error"])
			}
			return nil
		}),
	)
	require.Error(t, err)
	assert.EqualError(t, err, "rejected: bad token")
	assert.Equal(t, 0, networking.StatusOf(err), "custom errors are not HTTPErrors")
}

func TestFetchBytesRespectsMaxResponseSize(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(make([]byte, 1024))
	}))
	t.Cleanup(server.Close)

	result, err := networking.FetchBytes(context.Background(), server.Client(), server.URL,
		networking.WithMaxResponseSize(16))
	require.NoError(t, err)
	assert.Len(t, result.Body, 16)
}

func TestPostForm(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, networking.ContentTypeFormURLEncoded, r.Header.Get("Content-Type"))
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": r.PostForm.Get("key")})
	}))
	t.Cleanup(server.Close)

	result, err := networking.PostForm[map[string]string](
		context.Background(), server.Client(), server.URL, "key=value")
	require.NoError(t, err)
	assert.Equal(t, "value", result.Data["echo"])
}
