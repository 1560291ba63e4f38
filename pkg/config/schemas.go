// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
)

// Timeout bounds accepted in integration configs, in milliseconds.
const (
	MinTimeoutMs = 1_000
	MaxTimeoutMs = 600_000
)

// Diagnostic is one flat validation finding.
type Diagnostic struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Path, d.Message)
}

// integrationSchemas declares, per integration, the JSON Schema its merged
// config must satisfy. The schemas are the single source of required fields
// and ranges.
var integrationSchemas = map[connector.IntegrationID]string{
	connector.IntegrationPostgreSQLPostGIS: `{
		"type": "object",
		"required": ["host", "port", "database", "user", "password"],
		"properties": {
			"host": {"type": "string", "minLength": 1},
			"port": {"type": "integer", "minimum": 1, "maximum": 65535},
			"database": {"type": "string", "minLength": 1},
			"user": {"type": "string", "minLength": 1},
			"password": {"type": "string", "minLength": 1},
			"ssl": {"type": "boolean"}
		}
	}`,
	connector.IntegrationSTAC: `{
		"type": "object",
		"required": ["url"],
		"properties": {
			"url": {"type": "string", "pattern": "^https?://"},
			"timeoutMs": {"type": "integer", "minimum": 1000, "maximum": 600000}
		}
	}`,
	connector.IntegrationCOG: `{
		"type": "object",
		"required": ["url"],
		"properties": {
			"url": {"type": "string", "pattern": "^https?://"},
			"timeoutMs": {"type": "integer", "minimum": 1000, "maximum": 600000}
		}
	}`,
	connector.IntegrationPMTiles: `{
		"type": "object",
		"required": ["url"],
		"properties": {
			"url": {"type": "string", "pattern": "^https?://"},
			"timeoutMs": {"type": "integer", "minimum": 1000, "maximum": 600000}
		}
	}`,
	connector.IntegrationWMS: `{
		"type": "object",
		"required": ["url"],
		"properties": {
			"url": {"type": "string", "pattern": "^https?://"},
			"version": {"type": "string"},
			"timeoutMs": {"type": "integer", "minimum": 1000, "maximum": 600000}
		}
	}`,
	connector.IntegrationWMTS: `{
		"type": "object",
		"required": ["url"],
		"properties": {
			"url": {"type": "string", "pattern": "^https?://"},
			"version": {"type": "string"},
			"timeoutMs": {"type": "integer", "minimum": 1000, "maximum": 600000}
		}
	}`,
	connector.IntegrationS3: `{
		"type": "object",
		"required": ["bucket", "region", "accessKeyId", "secretAccessKey"],
		"properties": {
			"bucket": {"type": "string", "minLength": 3},
			"region": {"type": "string", "minLength": 1},
			"endpoint": {"type": "string", "pattern": "^https?://"},
			"accessKeyId": {"type": "string", "minLength": 1},
			"secretAccessKey": {"type": "string", "minLength": 1},
			"sessionToken": {"type": "string"},
			"forcePathStyle": {"type": "boolean"}
		}
	}`,
	connector.IntegrationGoogleEarthEngine: `{
		"type": "object",
		"required": ["serviceAccountJson", "projectId"],
		"properties": {
			"serviceAccountJson": {"type": "string", "minLength": 2},
			"projectId": {"type": "string", "minLength": 1}
		}
	}`,
}

// secretFields marks, per integration, the config fields that must be stored
// in the secrets store rather than the public row.
var secretFields = map[connector.IntegrationID][]string{
	connector.IntegrationPostgreSQLPostGIS: {"password"},
	connector.IntegrationS3:                {"accessKeyId", "secretAccessKey", "sessionToken"},
	connector.IntegrationGoogleEarthEngine: {"serviceAccountJson"},
}

// SecretFields returns the secret field names for an integration.
func SecretFields(id connector.IntegrationID) []string {
	return secretFields[id]
}

// ValidateIntegrationConfig validates a merged config against the
// integration's schema and returns a flat list of diagnostics. An unknown
// integration yields a single diagnostic.
func ValidateIntegrationConfig(id connector.IntegrationID, cfg map[string]any) []Diagnostic {
	schema, ok := integrationSchemas[id]
	if !ok {
		return []Diagnostic{{Path: "(root)", Message: fmt.Sprintf("unknown integration %q", id)}}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(cfg),
	)
	if err != nil {
		return []Diagnostic{{Path: "(root)", Message: err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	diags := make([]Diagnostic, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		diags = append(diags, Diagnostic{Path: e.Field(), Message: e.Description()})
	}
	return diags
}

// SplitIntegrationConfig splits a validated config into its public and
// secret parts for separate persistence. Fields not marked secret, including
// unknown extras, stay public.
func SplitIntegrationConfig(id connector.IntegrationID, cfg map[string]any) (public, secret map[string]any) {
	secretSet := make(map[string]bool)
	for _, field := range secretFields[id] {
		secretSet[field] = true
	}

	public = make(map[string]any)
	secret = make(map[string]any)
	for key, value := range cfg {
		if secretSet[key] {
			secret[key] = value
		} else {
			public[key] = value
		}
	}
	return public, secret
}

// MergeIntegrationConfig reunites the public and secret parts. Secret fields
// win on key collision, so a stale public copy of a rotated credential can
// never shadow the stored secret.
func MergeIntegrationConfig(public, secret map[string]any) map[string]any {
	merged := make(map[string]any, len(public)+len(secret))
	for key, value := range public {
		merged[key] = value
	}
	for key, value := range secret {
		merged[key] = value
	}
	return merged
}
