// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package remote implements the mcp backend adapter. It maps each routing
// key onto a named tool and dispatches through the shared tool bus.
package remote

import (
	"context"
	"strings"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/errors"
)

// DiscoveredTool is a tool currently exposed by a connected MCP server.
type DiscoveredTool struct {
	Name     string
	ServerID string
}

// ToolBus is the discovery and dispatch collaborator. The adapter never
// manages server connections itself.
type ToolBus interface {
	GetDiscoveredTools() []DiscoveredTool
	CallTool(ctx context.Context, serverID, toolName string, input map[string]any) (any, error)
}

// BlockedTools reports tool names the policy configuration has blocked.
// A nil function blocks nothing.
type BlockedTools func() map[string]bool

// toolBinding names the remote tool serving a routing key. ServerID pins a
// specific server; empty means any single server exposing the tool.
type toolBinding struct {
	ToolName string
	ServerID string
}

// toolTable is the static routing-key-to-tool mapping. Append-only.
var toolTable = map[connector.RoutingKey]toolBinding{
	{Integration: connector.IntegrationPostgreSQLPostGIS, Capability: connector.CapabilitySQLQuery}:          {ToolName: "postgis_query"},
	{Integration: connector.IntegrationSTAC, Capability: connector.CapabilityCatalogSearch}:                  {ToolName: "stac_search_catalog"},
	{Integration: connector.IntegrationCOG, Capability: connector.CapabilityRasterInspectMetadata}:           {ToolName: "cog_inspect_metadata"},
	{Integration: connector.IntegrationPMTiles, Capability: connector.CapabilityTilesInspectArchive}:         {ToolName: "pmtiles_inspect_archive"},
	{Integration: connector.IntegrationWMS, Capability: connector.CapabilityTilesGetCapabilities}:            {ToolName: "wms_get_capabilities"},
	{Integration: connector.IntegrationWMTS, Capability: connector.CapabilityTilesGetCapabilities}:           {ToolName: "wmts_get_capabilities"},
	{Integration: connector.IntegrationS3, Capability: connector.CapabilityStorageList}:                      {ToolName: "s3_list_objects"},
	{Integration: connector.IntegrationGoogleEarthEngine, Capability: connector.CapabilityGEEListAlgorithms}: {ToolName: "gee_list_algorithms"},
}

// ToolNameFor returns the remote tool name bound to a routing key.
func ToolNameFor(key connector.RoutingKey) (string, bool) {
	binding, ok := toolTable[key]
	return binding.ToolName, ok
}

// Adapter is the mcp backend.
type Adapter struct {
	bus     ToolBus
	blocked BlockedTools
}

// Option configures the remote adapter.
type Option func(*Adapter)

// WithBlockedTools wires the policy blocklist of remote tool names.
func WithBlockedTools(blocked BlockedTools) Option {
	return func(a *Adapter) {
		a.blocked = blocked
	}
}

// New creates the remote adapter around a tool bus.
func New(bus ToolBus, opts ...Option) *Adapter {
	a := &Adapter{bus: bus}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ID implements connector.Adapter.
func (*Adapter) ID() string { return "mcp" }

// Backend implements connector.Adapter.
func (*Adapter) Backend() connector.Backend { return connector.BackendMCP }

// Supports implements connector.Adapter.
func (*Adapter) Supports(key connector.RoutingKey) bool {
	_, ok := toolTable[key]
	return ok
}

// Execute implements connector.Adapter. It resolves the bound tool against
// the currently-discovered tools and dispatches the call.
func (a *Adapter) Execute(
	ctx context.Context,
	req *connector.ExecutionRequest,
	_ connector.ExecInfo,
) (*connector.AdapterResult, error) {
	binding, ok := toolTable[req.Key()]
	if !ok {
		return connector.Fail(errors.Newf(errors.CodeRemoteToolUnavailable,
			"no remote tool is mapped for %s", req.Key())), nil
	}
	if a.isBlocked(binding.ToolName) {
		return connector.Fail(errors.Newf(errors.CodeRemoteToolUnavailable,
			"remote tool %s is blocked by policy", binding.ToolName)), nil
	}

	serverID, resolveErr := a.resolveServer(binding)
	if resolveErr != nil {
		return connector.Fail(resolveErr), nil
	}

	output, err := a.bus.CallTool(ctx, serverID, binding.ToolName, req.Input)
	if err != nil {
		return connector.Fail(errors.Newf(errors.CodeExecutionFailed,
			"remote tool %s failed", binding.ToolName).WithCause(err).AsRetryable()), nil
	}

	data, ok := output.(map[string]any)
	if !ok {
		data = map[string]any{"result": output}
	}
	return connector.SucceedWithDetails(data, map[string]any{
		"toolName": binding.ToolName,
		"serverId": serverID,
	}), nil
}

func (a *Adapter) isBlocked(toolName string) bool {
	if a.blocked == nil {
		return false
	}
	return a.blocked()[toolName]
}

// resolveServer selects the single server that will receive the call.
func (a *Adapter) resolveServer(binding toolBinding) (string, *errors.Error) {
	var candidates []string
	seen := make(map[string]bool)
	for _, tool := range a.bus.GetDiscoveredTools() {
		if tool.Name != binding.ToolName || seen[tool.ServerID] {
			continue
		}
		seen[tool.ServerID] = true
		candidates = append(candidates, tool.ServerID)
	}

	if binding.ServerID != "" {
		if seen[binding.ServerID] {
			return binding.ServerID, nil
		}
		return "", errors.Newf(errors.CodeRemoteServerUnavailable,
			"server %s does not expose tool %s", binding.ServerID, binding.ToolName)
	}

	switch len(candidates) {
	case 0:
		return "", errors.Newf(errors.CodeRemoteToolUnavailable,
			"no connected server exposes tool %s", binding.ToolName)
	case 1:
		return candidates[0], nil
	default:
		return "", errors.Newf(errors.CodeRemoteToolUnavailable,
			"Multiple servers expose tool %s (%s); pin a serverId",
			binding.ToolName, strings.Join(candidates, ", ")).
			WithDetails(map[string]any{"candidateServerIds": candidates})
	}
}
