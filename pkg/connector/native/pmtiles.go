// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package native

import (
	"context"
	"encoding/binary"

	"github.com/GeoRetina/arion-connectors/pkg/config"
	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/errors"
)

const (
	defaultPMTilesHeaderBytes = 4096
	minPMTilesHeaderBytes     = 8

	// pmtilesV3HeaderSize is the fixed size of the PMTiles v3 header.
	pmtilesV3HeaderSize = 127

	// coordScale converts the header's 1e7-scaled int32 degrees.
	coordScale = 1e7
)

var pmtilesMagic = []byte("PMTiles")

var compressionNames = map[byte]string{
	0: "unknown",
	1: "none",
	2: "gzip",
	3: "brotli",
	4: "zstd",
}

var tileTypeNames = map[byte]string{
	0: "unknown",
	1: "mvt",
	2: "png",
	3: "jpeg",
	4: "webp",
	5: "avif",
}

func enumName(names map[byte]string, value byte) string {
	if name, ok := names[value]; ok {
		return name
	}
	return "unknown"
}

func section(header []byte, offset int) map[string]any {
	return map[string]any{
		"offset": binary.LittleEndian.Uint64(header[offset:]),
		"length": binary.LittleEndian.Uint64(header[offset+8:]),
	}
}

func coord(header []byte, offset int) float64 {
	return float64(int32(binary.LittleEndian.Uint32(header[offset:]))) / coordScale
}

// executeInspectPMTiles probes the configured archive URL and parses the
// PMTiles v3 header.
func (a *Adapter) executeInspectPMTiles(ctx context.Context, req *connector.ExecutionRequest) *connector.AdapterResult {
	cfgMap, cfgErr := a.integrationConfig(connector.IntegrationPMTiles)
	if cfgErr != nil {
		return connector.Fail(cfgErr)
	}
	cfg, err := config.Decode[config.ArchiveConfig](cfgMap)
	if err != nil || cfg.URL == "" {
		return connector.Fail(errors.New(errors.CodeNotConfigured, "PMTiles archive URL is not configured"))
	}

	headerBytes := clampInt(req.Input, "headerBytes", defaultPMTilesHeaderBytes, minPMTilesHeaderBytes, maxHeaderBytes)

	probe, probeErr := probeHeader(ctx, a.client, cfg.URL, headerBytes)
	if probeErr != nil {
		return connector.Fail(probeErr)
	}
	header := probe.Bytes
	if len(header) < minPMTilesHeaderBytes {
		return connector.Fail(errors.Newf(errors.CodeValidationFailed,
			"remote file returned only %d header bytes; not a PMTiles archive", len(header)))
	}
	for i, b := range pmtilesMagic {
		if header[i] != b {
			return connector.Fail(errors.New(errors.CodeValidationFailed,
				"missing PMTiles magic in archive header"))
		}
	}

	version := header[7]
	data := map[string]any{
		"url":     cfg.URL,
		"version": version,
	}

	if len(header) < pmtilesV3HeaderSize {
		data["note"] = "header too short for full v3 field parse"
		return connector.SucceedWithDetails(data, probe.details())
	}

	data["layout"] = map[string]any{
		"rootDirectory":   section(header, 8),
		"metadata":        section(header, 24),
		"leafDirectories": section(header, 40),
		"tileData":        section(header, 56),
	}
	data["counts"] = map[string]any{
		"addressedTiles": binary.LittleEndian.Uint64(header[72:]),
		"tileEntries":    binary.LittleEndian.Uint64(header[80:]),
		"tileContents":   binary.LittleEndian.Uint64(header[88:]),
	}
	data["clustered"] = header[96] == 1
	data["compression"] = map[string]any{
		"internal": enumName(compressionNames, header[97]),
		"tile":     enumName(compressionNames, header[98]),
	}
	data["tileType"] = enumName(tileTypeNames, header[99])
	data["zoom"] = map[string]any{
		"min":    header[100],
		"max":    header[101],
		"center": header[118],
	}
	data["bounds"] = map[string]any{
		"minLon": coord(header, 102),
		"minLat": coord(header, 106),
		"maxLon": coord(header, 110),
		"maxLat": coord(header, 114),
	}
	data["center"] = map[string]any{
		"lon": coord(header, 119),
		"lat": coord(header, 123),
	}

	return connector.SucceedWithDetails(data, probe.details())
}
