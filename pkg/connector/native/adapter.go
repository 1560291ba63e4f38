// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package native implements the in-process backend adapters: read-only SQL,
// STAC search, TIFF and PMTiles header inspection, OGC capabilities, S3
// listing, and Earth Engine algorithm discovery.
package native

import (
	"context"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/errors"
	"github.com/GeoRetina/arion-connectors/pkg/networking"
)

// ConfigStore is the narrow configuration collaborator the adapter consumes.
// It returns the merged (public + secret) config, or nil when the
// integration is not configured.
type ConfigStore interface {
	GetIntegrationConfig(id connector.IntegrationID) (map[string]any, error)
}

// ConnectionInfo describes the state of an externally-owned SQL pool.
type ConnectionInfo struct {
	Connected bool
	Config    map[string]any
}

// QueryResult is the SQL pool collaborator's result shape.
type QueryResult struct {
	Success         bool
	Rows            []map[string]any
	RowCount        int
	Fields          []string
	ExecutionTimeMs int64
	Message         string
}

// SQLPool is the externally-owned database pool collaborator. The adapter
// never opens or closes connections itself.
type SQLPool interface {
	GetConnectionInfo(ctx context.Context, id connector.IntegrationID) (*ConnectionInfo, error)
	ExecuteQuery(ctx context.Context, id connector.IntegrationID, query string, params []any) (*QueryResult, error)
}

// Adapter is the native backend. It holds collaborator handles for its
// process lifetime and is stateless per call.
type Adapter struct {
	configs ConfigStore
	pool    SQLPool
	client  networking.HTTPClient
}

// Option configures the native adapter.
type Option func(*Adapter)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(client networking.HTTPClient) Option {
	return func(a *Adapter) {
		a.client = client
	}
}

// New creates the native adapter. pool may be nil when no SQL collaborator
// is wired; sql.query then reports NOT_CONFIGURED.
func New(configs ConfigStore, pool SQLPool, opts ...Option) *Adapter {
	a := &Adapter{
		configs: configs,
		pool:    pool,
		client:  networking.NewHTTPClient(0),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ID implements connector.Adapter.
func (*Adapter) ID() string { return "native" }

// Backend implements connector.Adapter.
func (*Adapter) Backend() connector.Backend { return connector.BackendNative }

// supportedKeys is the closed set of routing keys the native adapter serves.
var supportedKeys = map[connector.RoutingKey]bool{
	{Integration: connector.IntegrationPostgreSQLPostGIS, Capability: connector.CapabilitySQLQuery}:     true,
	{Integration: connector.IntegrationSTAC, Capability: connector.CapabilityCatalogSearch}:             true,
	{Integration: connector.IntegrationCOG, Capability: connector.CapabilityRasterInspectMetadata}:      true,
	{Integration: connector.IntegrationPMTiles, Capability: connector.CapabilityTilesInspectArchive}:    true,
	{Integration: connector.IntegrationWMS, Capability: connector.CapabilityTilesGetCapabilities}:       true,
	{Integration: connector.IntegrationWMTS, Capability: connector.CapabilityTilesGetCapabilities}:      true,
	{Integration: connector.IntegrationS3, Capability: connector.CapabilityStorageList}:                 true,
	{Integration: connector.IntegrationGoogleEarthEngine, Capability: connector.CapabilityGEEListAlgorithms}: true,
}

// Supports implements connector.Adapter.
func (*Adapter) Supports(key connector.RoutingKey) bool {
	return supportedKeys[key]
}

// Execute implements connector.Adapter by dispatching to the per-capability
// implementation.
func (a *Adapter) Execute(
	ctx context.Context,
	req *connector.ExecutionRequest,
	_ connector.ExecInfo,
) (*connector.AdapterResult, error) {
	switch req.Key() {
	case connector.RoutingKey{Integration: connector.IntegrationPostgreSQLPostGIS, Capability: connector.CapabilitySQLQuery}:
		return a.executeSQLQuery(ctx, req), nil
	case connector.RoutingKey{Integration: connector.IntegrationSTAC, Capability: connector.CapabilityCatalogSearch}:
		return a.executeCatalogSearch(ctx, req), nil
	case connector.RoutingKey{Integration: connector.IntegrationCOG, Capability: connector.CapabilityRasterInspectMetadata}:
		return a.executeInspectTIFF(ctx, req), nil
	case connector.RoutingKey{Integration: connector.IntegrationPMTiles, Capability: connector.CapabilityTilesInspectArchive}:
		return a.executeInspectPMTiles(ctx, req), nil
	case connector.RoutingKey{Integration: connector.IntegrationWMS, Capability: connector.CapabilityTilesGetCapabilities}:
		return a.executeGetCapabilities(ctx, req), nil
	case connector.RoutingKey{Integration: connector.IntegrationWMTS, Capability: connector.CapabilityTilesGetCapabilities}:
		return a.executeGetCapabilities(ctx, req), nil
	case connector.RoutingKey{Integration: connector.IntegrationS3, Capability: connector.CapabilityStorageList}:
		return a.executeStorageList(ctx, req), nil
	case connector.RoutingKey{Integration: connector.IntegrationGoogleEarthEngine, Capability: connector.CapabilityGEEListAlgorithms}:
		return a.executeListAlgorithms(ctx, req), nil
	default:
		return connector.Fail(errors.Newf(errors.CodeUnsupportedCapability,
			"native adapter does not support %s", req.Key())), nil
	}
}

// integrationConfig loads the merged config for an integration, mapping
// absence and load failures to NOT_CONFIGURED.
func (a *Adapter) integrationConfig(id connector.IntegrationID) (map[string]any, *errors.Error) {
	cfg, err := a.configs.GetIntegrationConfig(id)
	if err != nil {
		return nil, errors.Newf(errors.CodeNotConfigured,
			"failed to load %s configuration", id).WithCause(err)
	}
	if len(cfg) == 0 {
		return nil, errors.Newf(errors.CodeNotConfigured, "Integration %s is not configured", id)
	}
	return cfg, nil
}
