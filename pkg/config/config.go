// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config implements the persisted connector configuration: the
// per-integration rows (status, public config), the connector policy
// document, and the public/secret split of integration configs.
package config

import (
	"time"
)

// IntegrationStatus tracks the lifecycle state of one integration.
type IntegrationStatus string

// Integration statuses.
const (
	StatusNotConfigured IntegrationStatus = "not-configured"
	StatusDisconnected  IntegrationStatus = "disconnected"
	StatusConnected     IntegrationStatus = "connected"
	StatusError         IntegrationStatus = "error"
)

// IntegrationRow is the persisted record for one integration. Secret config
// fields never appear here; they live in the secrets store.
type IntegrationRow struct {
	Status       IntegrationStatus `yaml:"status"`
	LastUsed     *time.Time        `yaml:"last_used,omitempty"`
	Message      string            `yaml:"message,omitempty"`
	CheckedAt    *time.Time        `yaml:"checked_at,omitempty"`
	HasConfig    bool              `yaml:"has_config"`
	PublicConfig string            `yaml:"public_config,omitempty"` // JSON
}

// SQLCredential is the legacy PostgreSQL credential row kept for backward
// compatibility. Stored fields on the integration config win over it.
type SQLCredential struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Database string `yaml:"database,omitempty"`
	User     string `yaml:"user,omitempty"`
	SSL      bool   `yaml:"ssl,omitempty"`
}

// Settings holds well-known settings documents.
type Settings struct {
	// ConnectorPolicy is the JSON-encoded policy document.
	ConnectorPolicy string `yaml:"connector_policy,omitempty"`
}

// MCPServer describes one remote MCP server the tool bus dials at startup.
type MCPServer struct {
	ID        string `yaml:"id"`
	URL       string `yaml:"url"`
	Transport string `yaml:"transport,omitempty"`
}

// Config is the root of the persisted configuration file.
type Config struct {
	Version             string                     `yaml:"version"`
	Integrations        map[string]*IntegrationRow `yaml:"integrations,omitempty"`
	MCPServers          []MCPServer                `yaml:"mcp_servers,omitempty"`
	Settings            Settings                   `yaml:"settings,omitempty"`
	LegacySQLCredential *SQLCredential             `yaml:"legacy_sql_credential,omitempty"`
}

func createNewConfigWithDefaults() Config {
	return Config{
		Version:      "v1",
		Integrations: make(map[string]*IntegrationRow),
	}
}
