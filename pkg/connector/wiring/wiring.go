// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package wiring holds the static capability table and registers the backend
// adapters against it at startup. Registrations are append-only.
package wiring

import (
	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/connector/registry"
)

// NativePriority and RemotePriority order the backends within a routing key:
// native is the default primary, mcp the fallback.
const (
	NativePriority = 10
	RemotePriority = 80
)

// Entry describes one routing key in the static capability table.
type Entry struct {
	Integration       connector.IntegrationID
	Capability        connector.Capability
	NativeDescription string
	MCPDescription    string
	Sensitivity       connector.Sensitivity
}

// Table is the closed capability table. sql.query is sensitive because it
// reaches into user databases.
var Table = []Entry{
	{
		Integration:       connector.IntegrationPostgreSQLPostGIS,
		Capability:        connector.CapabilitySQLQuery,
		NativeDescription: "Run a read-only SQL query against the connected PostGIS database",
		MCPDescription:    "Run a read-only SQL query via a remote PostGIS tool",
		Sensitivity:       connector.SensitivitySensitive,
	},
	{
		Integration:       connector.IntegrationSTAC,
		Capability:        connector.CapabilityCatalogSearch,
		NativeDescription: "Search the configured STAC catalog",
		MCPDescription:    "Search a STAC catalog via a remote tool",
	},
	{
		Integration:       connector.IntegrationCOG,
		Capability:        connector.CapabilityRasterInspectMetadata,
		NativeDescription: "Inspect the TIFF header of the configured cloud-optimized GeoTIFF",
		MCPDescription:    "Inspect GeoTIFF metadata via a remote tool",
	},
	{
		Integration:       connector.IntegrationPMTiles,
		Capability:        connector.CapabilityTilesInspectArchive,
		NativeDescription: "Inspect the header of the configured PMTiles archive",
		MCPDescription:    "Inspect a PMTiles archive via a remote tool",
	},
	{
		Integration:       connector.IntegrationWMS,
		Capability:        connector.CapabilityTilesGetCapabilities,
		NativeDescription: "Fetch and summarise the WMS GetCapabilities document",
		MCPDescription:    "Fetch WMS capabilities via a remote tool",
	},
	{
		Integration:       connector.IntegrationWMTS,
		Capability:        connector.CapabilityTilesGetCapabilities,
		NativeDescription: "Fetch and summarise the WMTS GetCapabilities document",
		MCPDescription:    "Fetch WMTS capabilities via a remote tool",
	},
	{
		Integration:       connector.IntegrationS3,
		Capability:        connector.CapabilityStorageList,
		NativeDescription: "List objects in the configured S3 bucket",
		MCPDescription:    "List S3 objects via a remote tool",
	},
	{
		Integration:       connector.IntegrationGoogleEarthEngine,
		Capability:        connector.CapabilityGEEListAlgorithms,
		NativeDescription: "List Earth Engine algorithms for the configured project",
		MCPDescription:    "List Earth Engine algorithms via a remote tool",
	},
}

// RegisterAll registers the native and remote adapters for every table entry.
// Either adapter may be nil to skip its backend.
func RegisterAll(reg *registry.Registry, native, remote connector.Adapter) {
	for _, entry := range Table {
		if native != nil {
			reg.Register(registry.Registration{
				Integration: entry.Integration,
				Capability:  entry.Capability,
				Adapter:     native,
				Description: entry.NativeDescription,
				Sensitivity: entry.Sensitivity,
				Priority:    NativePriority,
			})
		}
		if remote != nil {
			reg.Register(registry.Registration{
				Integration: entry.Integration,
				Capability:  entry.Capability,
				Adapter:     remote,
				Description: entry.MCPDescription,
				Sensitivity: entry.Sensitivity,
				Priority:    RemotePriority,
			})
		}
	}
}
