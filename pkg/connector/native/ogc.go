// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package native

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/GeoRetina/arion-connectors/pkg/config"
	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/errors"
	"github.com/GeoRetina/arion-connectors/pkg/networking"
)

const (
	defaultWMSVersion  = "1.3.0"
	defaultWMTSVersion = "1.0.0"

	maxSampleLayers  = 25
	maxSnippetLength = 4000
)

var (
	serviceException = regexp.MustCompile(`ServiceException|ExceptionReport|ows:ExceptionReport`)

	wmsLayerName = regexp.MustCompile(`(?s)<Layer[^>]*>.*?<Name>(.*?)</Name>`)

	wmtsLayerBlock = regexp.MustCompile(`(?s)<(?:wmts:)?Layer[ >].*?</(?:wmts:)?Layer>`)
	wmtsIdentifier = regexp.MustCompile(`(?s)<(?:ows:)?Identifier>(.*?)</(?:ows:)?Identifier>`)
)

// decodeXMLEntities reverses the five predefined XML entities. Numeric
// references are deliberately left alone; layer names in the wild only use
// the predefined set.
func decodeXMLEntities(s string) string {
	replacer := strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&amp;", "&",
	)
	return replacer.Replace(s)
}

// extractLayerNames scrapes layer names out of a capabilities document.
// WMS uses <Layer>…<Name>, WMTS uses <Layer>…<ows:Identifier>. Tolerant
// regex scraping is used on purpose: real capability documents routinely
// carry undeclared namespaces that strict XML parsing rejects.
func extractLayerNames(body string, wmts bool) []string {
	var raw []string
	if wmts {
		for _, block := range wmtsLayerBlock.FindAllString(body, -1) {
			if m := wmtsIdentifier.FindStringSubmatch(block); m != nil {
				raw = append(raw, m[1])
			}
		}
	} else {
		for _, m := range wmsLayerName.FindAllStringSubmatch(body, -1) {
			raw = append(raw, m[1])
		}
	}

	seen := make(map[string]bool, len(raw))
	names := make([]string, 0, len(raw))
	for _, name := range raw {
		name = decodeXMLEntities(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// executeGetCapabilities fetches and summarises a WMS or WMTS
// GetCapabilities document.
func (a *Adapter) executeGetCapabilities(ctx context.Context, req *connector.ExecutionRequest) *connector.AdapterResult {
	wmts := req.Integration == connector.IntegrationWMTS
	service := "WMS"
	defaultVersion := defaultWMSVersion
	if wmts {
		service = "WMTS"
		defaultVersion = defaultWMTSVersion
	}

	cfgMap, cfgErr := a.integrationConfig(req.Integration)
	if cfgErr != nil {
		return connector.Fail(cfgErr)
	}
	cfg, err := config.Decode[config.OGCConfig](cfgMap)
	if err != nil || cfg.URL == "" {
		return connector.Fail(errors.Newf(errors.CodeNotConfigured, "%s service URL is not configured", service))
	}

	version := cfg.Version
	if v, ok := inputString(req.Input, "version"); ok && v != "" {
		version = v
	}
	if version == "" {
		version = defaultVersion
	}

	endpoint, err := url.Parse(cfg.URL)
	if err != nil {
		return connector.Fail(errors.New(errors.CodeNotConfigured, "configured service URL is malformed").WithCause(err))
	}
	query := endpoint.Query()
	query.Set("service", service)
	query.Set("request", "GetCapabilities")
	query.Set("version", version)
	endpoint.RawQuery = query.Encode()

	result, err := networking.FetchBytes(ctx, a.client, endpoint.String())
	if err != nil {
		if httpStatus := networking.StatusOf(err); httpStatus != 0 {
			e := errors.Newf(errors.CodeExecutionFailed,
				"%s GetCapabilities failed with status %d", service, httpStatus)
			e.Retryable = httpStatus >= 500
			return connector.Fail(e.WithCause(err))
		}
		return connector.Fail(errors.NewExecutionFailed("GetCapabilities request failed", err).AsRetryable())
	}

	body := string(result.Body)
	if serviceException.MatchString(body) {
		return connector.Fail(errors.Newf(errors.CodeExecutionFailed,
			"%s server returned a service exception", service))
	}

	names := extractLayerNames(body, wmts)
	sample := names
	if len(sample) > maxSampleLayers {
		sample = sample[:maxSampleLayers]
	}

	snippet := body
	if len(snippet) > maxSnippetLength {
		snippet = snippet[:maxSnippetLength]
	}

	return connector.Succeed(map[string]any{
		"service":      service,
		"version":      version,
		"url":          endpoint.String(),
		"layerCount":   len(names),
		"sampleLayers": sample,
		"snippet":      snippet,
	})
}
