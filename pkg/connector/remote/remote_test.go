// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package remote_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/connector/remote"
	"github.com/GeoRetina/arion-connectors/pkg/errors"
)

// fakeBus is a scripted tool bus.
type fakeBus struct {
	tools  []remote.DiscoveredTool
	output any
	err    error

	gotServerID string
	gotToolName string
	gotInput    map[string]any
	calls       int
}

func (b *fakeBus) GetDiscoveredTools() []remote.DiscoveredTool { return b.tools }

func (b *fakeBus) CallTool(_ context.Context, serverID, toolName string, input map[string]any) (any, error) {
	b.calls++
	b.gotServerID = serverID
	b.gotToolName = toolName
	b.gotInput = input
	return b.output, b.err
}

func stacSearchRequest() *connector.ExecutionRequest {
	return &connector.ExecutionRequest{
		Integration: connector.IntegrationSTAC,
		Capability:  connector.CapabilityCatalogSearch,
		Input:       map[string]any{"limit": float64(5)},
	}
}

func TestExecuteDispatchesToSingleServer(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{
		tools:  []remote.DiscoveredTool{{Name: "stac_search_catalog", ServerID: "geo-tools"}},
		output: map[string]any{"returned": float64(0)},
	}
	adapter := remote.New(bus)

	result, err := adapter.Execute(context.Background(), stacSearchRequest(), connector.ExecInfo{})
	require.NoError(t, err)
	require.True(t, result.Success, "error: %v", result.Error)

	assert.Equal(t, "geo-tools", bus.gotServerID)
	assert.Equal(t, "stac_search_catalog", bus.gotToolName)
	assert.Equal(t, map[string]any{"limit": float64(5)}, bus.gotInput)
	assert.Equal(t, "stac_search_catalog", result.Details["toolName"])
	assert.Equal(t, "geo-tools", result.Details["serverId"])
}

func TestExecuteWrapsNonObjectOutput(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{
		tools:  []remote.DiscoveredTool{{Name: "stac_search_catalog", ServerID: "geo-tools"}},
		output: "plain text answer",
	}
	adapter := remote.New(bus)

	result, err := adapter.Execute(context.Background(), stacSearchRequest(), connector.ExecInfo{})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, map[string]any{"result": "plain text answer"}, result.Data)
}

func TestExecuteAmbiguousServers(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{tools: []remote.DiscoveredTool{
		{Name: "stac_search_catalog", ServerID: "server-a"},
		{Name: "stac_search_catalog", ServerID: "server-b"},
	}}
	adapter := remote.New(bus)

	result, err := adapter.Execute(context.Background(), stacSearchRequest(), connector.ExecInfo{})
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.Equal(t, errors.CodeRemoteToolUnavailable, result.Error.Code)
	assert.Contains(t, result.Error.Message, "Multiple servers expose tool stac_search_catalog")
	assert.Contains(t, result.Error.Message, "pin a serverId")
	assert.Equal(t, []string{"server-a", "server-b"}, result.Error.Details["candidateServerIds"])
	assert.Zero(t, bus.calls)
}

func TestExecuteNoServerExposesTool(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{tools: []remote.DiscoveredTool{
		{Name: "some_other_tool", ServerID: "server-a"},
	}}
	adapter := remote.New(bus)

	result, err := adapter.Execute(context.Background(), stacSearchRequest(), connector.ExecInfo{})
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.Equal(t, errors.CodeRemoteToolUnavailable, result.Error.Code)
	assert.Contains(t, result.Error.Message, "no connected server exposes tool stac_search_catalog")
}

func TestExecuteCallToolFailureIsRetryable(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{
		tools: []remote.DiscoveredTool{{Name: "stac_search_catalog", ServerID: "geo-tools"}},
		err:   fmt.Errorf("stream closed"),
	}
	adapter := remote.New(bus)

	result, err := adapter.Execute(context.Background(), stacSearchRequest(), connector.ExecInfo{})
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.Equal(t, errors.CodeExecutionFailed, result.Error.Code)
	assert.True(t, result.Error.Retryable)
}

func TestExecuteBlockedTool(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{
		tools: []remote.DiscoveredTool{{Name: "stac_search_catalog", ServerID: "geo-tools"}},
	}
	adapter := remote.New(bus, remote.WithBlockedTools(func() map[string]bool {
		return map[string]bool{"stac_search_catalog": true}
	}))

	result, err := adapter.Execute(context.Background(), stacSearchRequest(), connector.ExecInfo{})
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.Equal(t, errors.CodeRemoteToolUnavailable, result.Error.Code)
	assert.Contains(t, result.Error.Message, "blocked by policy")
	assert.Zero(t, bus.calls)
}

func TestSupportsMappedKeysOnly(t *testing.T) {
	t.Parallel()

	adapter := remote.New(&fakeBus{})
	assert.True(t, adapter.Supports(connector.RoutingKey{
		Integration: connector.IntegrationS3,
		Capability:  connector.CapabilityStorageList,
	}))
	assert.False(t, adapter.Supports(connector.RoutingKey{
		Integration: connector.IntegrationS3,
		Capability:  connector.CapabilitySQLQuery,
	}))
}

func TestToolNameFor(t *testing.T) {
	t.Parallel()

	name, ok := remote.ToolNameFor(connector.RoutingKey{
		Integration: connector.IntegrationPostgreSQLPostGIS,
		Capability:  connector.CapabilitySQLQuery,
	})
	require.True(t, ok)
	assert.Equal(t, "postgis_query", name)

	_, ok = remote.ToolNameFor(connector.RoutingKey{Integration: "nope", Capability: "nope"})
	assert.False(t, ok)
}
