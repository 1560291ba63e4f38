// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
)

// Typed views of the per-integration config maps. Adapters decode the merged
// map into the variant they need; field names match the stored JSON keys.

// PostgresConfig configures the postgresql-postgis integration.
type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
	SSL      bool   `json:"ssl,omitempty"`
}

// STACConfig configures the stac integration.
type STACConfig struct {
	URL       string `json:"url"`
	TimeoutMs int64  `json:"timeoutMs,omitempty"`
}

// ArchiveConfig configures remote single-file archives (cog, pmtiles).
type ArchiveConfig struct {
	URL       string `json:"url"`
	TimeoutMs int64  `json:"timeoutMs,omitempty"`
}

// OGCConfig configures the wms and wmts integrations.
type OGCConfig struct {
	URL       string `json:"url"`
	Version   string `json:"version,omitempty"`
	TimeoutMs int64  `json:"timeoutMs,omitempty"`
}

// S3Config configures the s3 integration.
type S3Config struct {
	Bucket          string `json:"bucket"`
	Region          string `json:"region"`
	Endpoint        string `json:"endpoint,omitempty"`
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	SessionToken    string `json:"sessionToken,omitempty"`
	ForcePathStyle  *bool  `json:"forcePathStyle,omitempty"`
}

// PathStyle reports whether path-style addressing applies; the default is true.
func (c *S3Config) PathStyle() bool {
	return c.ForcePathStyle == nil || *c.ForcePathStyle
}

// GEEConfig configures the google-earth-engine integration.
type GEEConfig struct {
	ServiceAccountJSON string `json:"serviceAccountJson"`
	ProjectID          string `json:"projectId"`
}

// Decode converts a merged config map into a typed view via JSON.
func Decode[T any](m map[string]any) (*T, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config map: %w", err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &out, nil
}
