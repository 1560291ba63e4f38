// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package connector

import (
	"fmt"
	"time"

	"github.com/GeoRetina/arion-connectors/pkg/errors"
)

// This file contains the shared domain types used across the connector
// subpackages (registry, policy, executor, adapters).

// IntegrationID identifies an external service family. Only values from the
// closed set below are accepted at any boundary.
type IntegrationID string

// Known integrations.
const (
	IntegrationPostgreSQLPostGIS IntegrationID = "postgresql-postgis"
	IntegrationSTAC              IntegrationID = "stac"
	IntegrationCOG               IntegrationID = "cog"
	IntegrationPMTiles           IntegrationID = "pmtiles"
	IntegrationWMS               IntegrationID = "wms"
	IntegrationWMTS              IntegrationID = "wmts"
	IntegrationS3                IntegrationID = "s3"
	IntegrationGoogleEarthEngine IntegrationID = "google-earth-engine"
)

// AllIntegrations returns the closed set of integration identifiers.
func AllIntegrations() []IntegrationID {
	return []IntegrationID{
		IntegrationPostgreSQLPostGIS,
		IntegrationSTAC,
		IntegrationCOG,
		IntegrationPMTiles,
		IntegrationWMS,
		IntegrationWMTS,
		IntegrationS3,
		IntegrationGoogleEarthEngine,
	}
}

// Valid reports whether the identifier belongs to the closed set.
func (i IntegrationID) Valid() bool {
	for _, known := range AllIntegrations() {
		if i == known {
			return true
		}
	}
	return false
}

// Capability names an action an integration exposes, as a dotted string
// (e.g. "catalog.search").
type Capability string

// Capabilities served by the native adapter family.
const (
	CapabilitySQLQuery              Capability = "sql.query"
	CapabilityCatalogSearch         Capability = "catalog.search"
	CapabilityRasterInspectMetadata Capability = "raster.inspectMetadata"
	CapabilityTilesInspectArchive   Capability = "tiles.inspectArchive"
	CapabilityTilesGetCapabilities  Capability = "tiles.getCapabilities"
	CapabilityStorageList           Capability = "storage.list"
	CapabilityGEEListAlgorithms     Capability = "gee.listAlgorithms"
)

// RoutingKey is the (integration, capability) pair routes are registered under.
type RoutingKey struct {
	Integration IntegrationID
	Capability  Capability
}

// String renders the key in its wire form, e.g. "stac/catalog.search".
func (k RoutingKey) String() string {
	return fmt.Sprintf("%s/%s", k.Integration, k.Capability)
}

// Backend identifies the mechanism implementing a capability.
type Backend string

// Known backends.
const (
	BackendNative Backend = "native"
	BackendMCP    Backend = "mcp"
	BackendPlugin Backend = "plugin"
)

// DefaultBackendOrder returns the default backend preference order.
func DefaultBackendOrder() []Backend {
	return []Backend{BackendNative, BackendMCP, BackendPlugin}
}

// AllBackends returns the closed set of backends.
func AllBackends() []Backend {
	return DefaultBackendOrder()
}

// Valid reports whether the backend belongs to the closed set.
func (b Backend) Valid() bool {
	return b == BackendNative || b == BackendMCP || b == BackendPlugin
}

// Sensitivity classifies a route for approval purposes.
type Sensitivity string

// Sensitivity values.
const (
	SensitivityNormal    Sensitivity = "normal"
	SensitivitySensitive Sensitivity = "sensitive"
)

// ExecutionRequest is one capability invocation handed to the execution service.
type ExecutionRequest struct {
	Integration IntegrationID  `json:"integrationId"`
	Capability  Capability     `json:"capability"`
	Input       map[string]any `json:"input"`

	// ChatID scopes session approvals; empty means no chat context.
	ChatID  string `json:"chatId,omitempty"`
	AgentID string `json:"agentId,omitempty"`

	// TimeoutMs overrides the policy timeout when > 0.
	TimeoutMs int64 `json:"timeoutMs,omitempty"`

	// MaxRetries overrides the policy retry budget when non-nil and >= 0.
	MaxRetries *int `json:"maxRetries,omitempty"`

	// PreferredBackends reorders routing; entries outside the policy's
	// allowed set are ignored.
	PreferredBackends []Backend `json:"preferredBackends,omitempty"`
}

// Key returns the request's routing key.
func (r *ExecutionRequest) Key() RoutingKey {
	return RoutingKey{Integration: r.Integration, Capability: r.Capability}
}

// Attempt records one adapter attempt inside a failed execution.
type Attempt struct {
	Backend   Backend `json:"backend"`
	ErrorCode string  `json:"errorCode"`
	Message   string  `json:"message"`
	Attempt   int     `json:"attempt"`
}

// Result is the terminal outcome of one execute call. Exactly one of Data or
// Error is meaningful depending on Success.
type Result struct {
	Success     bool           `json:"success"`
	RunID       string         `json:"runId"`
	Integration IntegrationID  `json:"integrationId"`
	Capability  Capability     `json:"capability"`
	Backend     Backend        `json:"backend,omitempty"`
	DurationMs  int64          `json:"durationMs"`
	Data        any            `json:"data,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	Error       *errors.Error  `json:"error,omitempty"`
	Attempts    []Attempt      `json:"attempts,omitempty"`
}

// Outcome classifies a run record.
type Outcome string

// Run record outcomes.
const (
	OutcomeSuccess      Outcome = "success"
	OutcomeError        Outcome = "error"
	OutcomeTimeout      Outcome = "timeout"
	OutcomePolicyDenied Outcome = "policy_denied"
)

// RunRecord is the telemetry artifact emitted once per execute call.
type RunRecord struct {
	RunID       string        `json:"runId"`
	StartedAt   time.Time     `json:"startedAt"`
	FinishedAt  time.Time     `json:"finishedAt"`
	DurationMs  int64         `json:"durationMs"`
	ChatID      string        `json:"chatId,omitempty"`
	AgentID     string        `json:"agentId,omitempty"`
	Integration IntegrationID `json:"integrationId"`
	Capability  Capability    `json:"capability"`
	Backend     Backend       `json:"backend,omitempty"`
	Outcome     Outcome       `json:"outcome"`
	Message     string        `json:"message"`
	ErrorCode   string        `json:"errorCode,omitempty"`
}
