// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package native

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"strconv"

	"github.com/GeoRetina/arion-connectors/pkg/config"
	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/errors"
)

const (
	defaultTIFFHeaderBytes = 4096
	minTIFFHeaderBytes     = 16
	maxHeaderBytes         = 65536

	classicTIFFMagic = 42
	bigTIFFMagic     = 43

	// maxSafeInteger is the largest integer representable exactly in a
	// JSON number (2^53 - 1); larger offsets go out as decimal strings.
	maxSafeInteger = 1<<53 - 1

	hexPreviewBytes = 128
)

// executeInspectTIFF probes the configured COG URL and parses the TIFF or
// BigTIFF header.
func (a *Adapter) executeInspectTIFF(ctx context.Context, req *connector.ExecutionRequest) *connector.AdapterResult {
	cfgMap, cfgErr := a.integrationConfig(connector.IntegrationCOG)
	if cfgErr != nil {
		return connector.Fail(cfgErr)
	}
	cfg, err := config.Decode[config.ArchiveConfig](cfgMap)
	if err != nil || cfg.URL == "" {
		return connector.Fail(errors.New(errors.CodeNotConfigured, "COG URL is not configured"))
	}

	headerBytes := clampInt(req.Input, "headerBytes", defaultTIFFHeaderBytes, minTIFFHeaderBytes, maxHeaderBytes)

	probe, probeErr := probeHeader(ctx, a.client, cfg.URL, headerBytes)
	if probeErr != nil {
		return connector.Fail(probeErr)
	}
	header := probe.Bytes
	if len(header) < 8 {
		return connector.Fail(errors.Newf(errors.CodeValidationFailed,
			"remote file returned only %d header bytes; not a TIFF", len(header)))
	}

	var order binary.ByteOrder
	var byteOrder string
	switch {
	case header[0] == 'I' && header[1] == 'I':
		order = binary.LittleEndian
		byteOrder = "little-endian"
	case header[0] == 'M' && header[1] == 'M':
		order = binary.BigEndian
		byteOrder = "big-endian"
	default:
		return connector.Fail(errors.New(errors.CodeValidationFailed,
			"missing TIFF byte-order signature (expected II or MM)"))
	}

	data := map[string]any{
		"url":       cfg.URL,
		"byteOrder": byteOrder,
	}

	magic := order.Uint16(header[2:4])
	switch magic {
	case classicTIFFMagic:
		data["format"] = "ClassicTIFF"
		data["firstIfdOffset"] = order.Uint32(header[4:8])
	case bigTIFFMagic:
		if len(header) < 16 {
			return connector.Fail(errors.New(errors.CodeValidationFailed,
				"BigTIFF header truncated before first IFD offset"))
		}
		data["format"] = "BigTIFF"
		data["bigTiffOffsetSize"] = order.Uint16(header[4:6])
		offset := order.Uint64(header[8:16])
		if offset <= maxSafeInteger {
			data["firstIfdOffset"] = offset
		} else {
			data["firstIfdOffset"] = strconv.FormatUint(offset, 10)
		}
	default:
		return connector.Fail(errors.Newf(errors.CodeValidationFailed,
			"unexpected TIFF magic number %d", magic))
	}

	preview := header
	if len(preview) > hexPreviewBytes {
		preview = preview[:hexPreviewBytes]
	}
	data["headerHex"] = hex.EncodeToString(preview)

	return connector.SucceedWithDetails(data, probe.details())
}
