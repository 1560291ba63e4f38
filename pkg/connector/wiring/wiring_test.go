// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package wiring_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/connector/native"
	"github.com/GeoRetina/arion-connectors/pkg/connector/registry"
	"github.com/GeoRetina/arion-connectors/pkg/connector/remote"
	"github.com/GeoRetina/arion-connectors/pkg/connector/wiring"
)

type nilConfigs struct{}

func (nilConfigs) GetIntegrationConfig(connector.IntegrationID) (map[string]any, error) {
	return nil, nil
}

type stubBus struct{}

func (stubBus) GetDiscoveredTools() []remote.DiscoveredTool { return nil }

func (stubBus) CallTool(_ context.Context, _, _ string, _ map[string]any) (any, error) {
	return nil, nil
}

func TestRegisterAllCoversTable(t *testing.T) {
	t.Parallel()

	reg := registry.NewRegistry()
	nativeAdapter := native.New(nilConfigs{}, nil)
	remoteAdapter := remote.New(stubBus{})
	wiring.RegisterAll(reg, nativeAdapter, remoteAdapter)

	infos := reg.ListCapabilities()
	require.Len(t, infos, len(wiring.Table))

	byKey := make(map[connector.RoutingKey]registry.CapabilityInfo, len(infos))
	for _, info := range infos {
		byKey[connector.RoutingKey{Integration: info.Integration, Capability: info.Capability}] = info
	}

	for _, entry := range wiring.Table {
		key := connector.RoutingKey{Integration: entry.Integration, Capability: entry.Capability}
		info, ok := byKey[key]
		require.True(t, ok, "missing capability for %s", key)
		assert.Equal(t, []connector.Backend{connector.BackendNative, connector.BackendMCP}, info.Backends,
			"native must list first for %s", key)
		assert.Equal(t, entry.NativeDescription, info.Description)
	}

	sql := byKey[connector.RoutingKey{
		Integration: connector.IntegrationPostgreSQLPostGIS,
		Capability:  connector.CapabilitySQLQuery,
	}]
	assert.Equal(t, connector.SensitivitySensitive, sql.Sensitivity)

	search := byKey[connector.RoutingKey{
		Integration: connector.IntegrationSTAC,
		Capability:  connector.CapabilityCatalogSearch,
	}]
	assert.Equal(t, connector.SensitivityNormal, search.Sensitivity)
}

func TestRegisterAllToleratesNilAdapters(t *testing.T) {
	t.Parallel()

	reg := registry.NewRegistry()
	wiring.RegisterAll(reg, native.New(nilConfigs{}, nil), nil)

	infos := reg.ListCapabilities()
	require.Len(t, infos, len(wiring.Table))
	for _, info := range infos {
		assert.Equal(t, []connector.Backend{connector.BackendNative}, info.Backends)
	}
}
