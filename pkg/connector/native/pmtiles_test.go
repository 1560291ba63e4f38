// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package native_test

import (
	"context"
	"encoding/binary"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/connector/native"
	"github.com/GeoRetina/arion-connectors/pkg/errors"
)

// pmtilesV3Header builds a synthetic 127-byte v3 header with a world extent
// and zoom range 0..12 centred at 3.
func pmtilesV3Header() []byte {
	header := make([]byte, 127)
	copy(header, "PMTiles")
	header[7] = 3

	putSection := func(offset int, sectionOffset, sectionLength uint64) {
		binary.LittleEndian.PutUint64(header[offset:], sectionOffset)
		binary.LittleEndian.PutUint64(header[offset+8:], sectionLength)
	}
	putSection(8, 127, 2048)    // root directory
	putSection(24, 2175, 512)   // metadata
	putSection(40, 2687, 0)     // leaf directories
	putSection(56, 2687, 90000) // tile data

	binary.LittleEndian.PutUint64(header[72:], 1365) // addressed tiles
	binary.LittleEndian.PutUint64(header[80:], 1200) // tile entries
	binary.LittleEndian.PutUint64(header[88:], 1100) // tile contents

	header[96] = 1 // clustered
	header[97] = 2 // internal compression gzip
	header[98] = 2 // tile compression gzip
	header[99] = 1 // tile type mvt

	header[100] = 0  // min zoom
	header[101] = 12 // max zoom

	putCoord := func(offset int, degrees float64) {
		binary.LittleEndian.PutUint32(header[offset:], uint32(int32(degrees*1e7)))
	}
	putCoord(102, -180) // min lon
	putCoord(106, -85)  // min lat
	putCoord(110, 180)  // max lon
	putCoord(114, 85)   // max lat

	header[118] = 3 // center zoom
	putCoord(119, 0)
	putCoord(123, 0)
	return header
}

func pmtilesAdapter(t *testing.T, server *httptest.Server) *native.Adapter {
	t.Helper()
	configs := fakeConfigs{
		connector.IntegrationPMTiles: {"url": server.URL + "/basemap.pmtiles"},
	}
	return native.New(configs, nil, native.WithHTTPClient(server.Client()))
}

func pmtilesRequest() *connector.ExecutionRequest {
	return &connector.ExecutionRequest{
		Integration: connector.IntegrationPMTiles,
		Capability:  connector.CapabilityTilesInspectArchive,
	}
}

func TestInspectPMTilesFullHeader(t *testing.T) {
	t.Parallel()

	server := byteServer(t, pmtilesV3Header())
	adapter := pmtilesAdapter(t, server)

	result, err := adapter.Execute(context.Background(), pmtilesRequest(), connector.ExecInfo{})
	require.NoError(t, err)
	require.True(t, result.Success, "error: %v", result.Error)

	data := result.Data.(map[string]any)
	assert.Equal(t, uint8(3), data["version"])
	assert.Equal(t, true, data["clustered"])
	assert.Equal(t, "mvt", data["tileType"])

	compression := data["compression"].(map[string]any)
	assert.Equal(t, "gzip", compression["internal"])
	assert.Equal(t, "gzip", compression["tile"])

	zoom := data["zoom"].(map[string]any)
	assert.Equal(t, uint8(0), zoom["min"])
	assert.Equal(t, uint8(12), zoom["max"])
	assert.Equal(t, uint8(3), zoom["center"])

	bounds := data["bounds"].(map[string]any)
	assert.InDelta(t, -180.0, bounds["minLon"], 1e-6)
	assert.InDelta(t, -85.0, bounds["minLat"], 1e-6)
	assert.InDelta(t, 180.0, bounds["maxLon"], 1e-6)
	assert.InDelta(t, 85.0, bounds["maxLat"], 1e-6)

	layout := data["layout"].(map[string]any)
	root := layout["rootDirectory"].(map[string]any)
	assert.Equal(t, uint64(127), root["offset"])
	assert.Equal(t, uint64(2048), root["length"])

	counts := data["counts"].(map[string]any)
	assert.Equal(t, uint64(1365), counts["addressedTiles"])
}

func TestInspectPMTilesShortHeader(t *testing.T) {
	t.Parallel()

	// Magic plus version only; too short for the full v3 layout.
	server := byteServer(t, append([]byte("PMTiles"), 3, 0, 0))
	adapter := pmtilesAdapter(t, server)

	result, err := adapter.Execute(context.Background(), pmtilesRequest(), connector.ExecInfo{})
	require.NoError(t, err)
	require.True(t, result.Success)

	data := result.Data.(map[string]any)
	assert.Equal(t, uint8(3), data["version"])
	assert.Contains(t, data, "note")
	assert.NotContains(t, data, "bounds")
}

func TestInspectPMTilesBadMagic(t *testing.T) {
	t.Parallel()

	server := byteServer(t, []byte("NOTPMTILESDATA"))
	adapter := pmtilesAdapter(t, server)

	result, err := adapter.Execute(context.Background(), pmtilesRequest(), connector.ExecInfo{})
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.Equal(t, errors.CodeValidationFailed, result.Error.Code)
	assert.Contains(t, result.Error.Message, "PMTiles magic")
}
