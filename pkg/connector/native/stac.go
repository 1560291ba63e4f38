// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package native

import (
	"context"
	"net/http"
	"strings"

	"github.com/GeoRetina/arion-connectors/pkg/config"
	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/errors"
	"github.com/GeoRetina/arion-connectors/pkg/networking"
)

const (
	defaultSearchLimit = 25
	maxSearchLimit     = 500
)

// searchEndpoint normalises a STAC base URL to its POST /search endpoint.
func searchEndpoint(base string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.HasSuffix(trimmed, "/search") {
		return trimmed
	}
	return trimmed + "/search"
}

// buildSearchBody forwards the well-formed search parameters from the input.
func buildSearchBody(input map[string]any) map[string]any {
	body := map[string]any{
		"limit": clampInt(input, "limit", defaultSearchLimit, 1, maxSearchLimit),
	}

	if raw, ok := input["collections"].([]any); ok && len(raw) > 0 {
		collections := make([]string, 0, len(raw))
		for _, item := range raw {
			if s, ok := item.(string); ok && s != "" {
				collections = append(collections, s)
			}
		}
		if len(collections) > 0 {
			body["collections"] = collections
		}
	}

	if bbox, ok := input["bbox"].([]any); ok && len(bbox) >= 4 {
		body["bbox"] = bbox
	}
	if datetime, ok := inputString(input, "datetime"); ok && datetime != "" {
		body["datetime"] = datetime
	}
	if query, ok := input["query"].(map[string]any); ok && len(query) > 0 {
		body["query"] = query
	}
	if intersects, ok := input["intersects"].(map[string]any); ok && len(intersects) > 0 {
		body["intersects"] = intersects
	}
	return body
}

// executeCatalogSearch POSTs a shaped search to the configured STAC API.
func (a *Adapter) executeCatalogSearch(ctx context.Context, req *connector.ExecutionRequest) *connector.AdapterResult {
	cfgMap, cfgErr := a.integrationConfig(connector.IntegrationSTAC)
	if cfgErr != nil {
		return connector.Fail(cfgErr)
	}
	cfg, err := config.Decode[config.STACConfig](cfgMap)
	if err != nil || cfg.URL == "" {
		return connector.Fail(errors.New(errors.CodeNotConfigured, "STAC catalog URL is not configured"))
	}

	endpoint := searchEndpoint(cfg.URL)
	body := buildSearchBody(req.Input)

	result, err := networking.FetchJSON[map[string]any](ctx, a.client, endpoint,
		networking.WithMethod(http.MethodPost),
		networking.WithJSONBody(body),
		networking.WithHeader("Accept", "application/geo+json, application/json"),
	)
	if err != nil {
		if httpStatus := networking.StatusOf(err); httpStatus != 0 {
			e := errors.Newf(errors.CodeExecutionFailed, "STAC search failed with status %d", httpStatus)
			e.Retryable = httpStatus >= 500
			return connector.Fail(e.WithCause(err))
		}
		return connector.Fail(errors.NewExecutionFailed("STAC search request failed", err).AsRetryable())
	}

	data := result.Data
	if data == nil {
		return connector.Fail(errors.New(errors.CodeExecutionFailed, "STAC search returned a non-object response"))
	}

	features, _ := data["features"].([]any)
	response := map[string]any{
		"returned": len(features),
		"features": features,
		"links":    data["links"],
	}
	if matched, ok := data["numberMatched"]; ok {
		response["matched"] = matched
	} else if context_, ok := data["context"].(map[string]any); ok {
		if matched, ok := context_["matched"]; ok {
			response["matched"] = matched
		}
	}

	return connector.Succeed(response)
}
