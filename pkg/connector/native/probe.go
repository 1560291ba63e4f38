// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package native

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/GeoRetina/arion-connectors/pkg/errors"
	"github.com/GeoRetina/arion-connectors/pkg/networking"
)

// probeResult captures the outcome of a remote byte-range header probe.
type probeResult struct {
	Bytes []byte

	HeadStatus           int
	RangeStatus          int
	ContentLength        string
	ContentType          string
	AcceptRanges         string
	ContentRange         string
	RequestedHeaderBytes int
	ReceivedHeaderBytes  int
	Warnings             []string
}

// details renders the probe metadata for the adapter result.
func (p *probeResult) details() map[string]any {
	d := map[string]any{
		"headStatus":           p.HeadStatus,
		"rangeStatus":          p.RangeStatus,
		"requestedHeaderBytes": p.RequestedHeaderBytes,
		"receivedHeaderBytes":  p.ReceivedHeaderBytes,
	}
	if p.ContentLength != "" {
		d["contentLength"] = p.ContentLength
	}
	if p.ContentType != "" {
		d["contentType"] = p.ContentType
	}
	if p.AcceptRanges != "" {
		d["acceptRanges"] = p.AcceptRanges
	}
	if p.ContentRange != "" {
		d["contentRange"] = p.ContentRange
	}
	if len(p.Warnings) > 0 {
		d["warnings"] = p.Warnings
	}
	return d
}

// probeHeader issues a HEAD (tolerating failures with a warning) followed by
// a ranged GET for the first headerBytes bytes of the remote file.
func probeHeader(ctx context.Context, client networking.HTTPClient, url string, headerBytes int) (*probeResult, *errors.Error) {
	probe := &probeResult{RequestedHeaderBytes: headerBytes}

	headReq, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, errors.NewExecutionFailed("failed to build HEAD request", err)
	}
	headResp, err := client.Do(headReq)
	if err != nil {
		probe.Warnings = append(probe.Warnings, fmt.Sprintf("HEAD request failed: %v", err))
	} else {
		_, _ = io.Copy(io.Discard, headResp.Body)
		_ = headResp.Body.Close()
		probe.HeadStatus = headResp.StatusCode
		probe.ContentLength = headResp.Header.Get("Content-Length")
		probe.ContentType = headResp.Header.Get("Content-Type")
		probe.AcceptRanges = headResp.Header.Get("Accept-Ranges")
		if headResp.StatusCode < 200 || headResp.StatusCode > 299 {
			// 405 is common for servers that only allow GET; keep going.
			probe.Warnings = append(probe.Warnings,
				fmt.Sprintf("HEAD returned status %d", headResp.StatusCode))
		}
	}

	rangeReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewExecutionFailed("failed to build range request", err)
	}
	rangeReq.Header.Set("Range", fmt.Sprintf("bytes=0-%d", headerBytes-1))

	rangeResp, err := client.Do(rangeReq)
	if err != nil {
		return nil, errors.NewExecutionFailed("range request failed", err).AsRetryable()
	}
	defer func() { _ = rangeResp.Body.Close() }()

	probe.RangeStatus = rangeResp.StatusCode
	probe.ContentRange = rangeResp.Header.Get("Content-Range")
	if probe.ContentType == "" {
		probe.ContentType = rangeResp.Header.Get("Content-Type")
	}
	if probe.AcceptRanges == "" {
		probe.AcceptRanges = rangeResp.Header.Get("Accept-Ranges")
	}

	if rangeResp.StatusCode < 200 || rangeResp.StatusCode > 299 {
		e := errors.Newf(errors.CodeExecutionFailed,
			"range request failed with status %d", rangeResp.StatusCode)
		e.Retryable = rangeResp.StatusCode >= 500
		return nil, e
	}

	body, err := io.ReadAll(io.LimitReader(rangeResp.Body, int64(headerBytes)))
	if err != nil {
		return nil, errors.NewExecutionFailed("failed to read range response", err).AsRetryable()
	}
	probe.Bytes = body
	probe.ReceivedHeaderBytes = len(body)
	return probe, nil
}
