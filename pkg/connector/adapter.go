// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package connector

import (
	"context"

	"github.com/GeoRetina/arion-connectors/pkg/errors"
)

// ExecInfo carries per-attempt metadata into an adapter call.
type ExecInfo struct {
	// TimeoutMs is the deadline applied to this attempt.
	TimeoutMs int64

	// Attempt is the zero-based retry index within the current route.
	Attempt int

	// MaxRetries is the retry budget for the current route.
	MaxRetries int
}

// AdapterResult is the tagged result every adapter produces. On success Data
// (and optionally Details) is set; on failure Error carries the classified
// connector error.
type AdapterResult struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Error   *errors.Error  `json:"error,omitempty"`
}

// Succeed builds a successful adapter result.
func Succeed(data any) *AdapterResult {
	return &AdapterResult{Success: true, Data: data}
}

// SucceedWithDetails builds a successful adapter result with details.
func SucceedWithDetails(data any, details map[string]any) *AdapterResult {
	return &AdapterResult{Success: true, Data: data, Details: details}
}

// Fail builds a failed adapter result from a classified error.
func Fail(err *errors.Error) *AdapterResult {
	return &AdapterResult{Success: false, Error: err}
}

// Adapter is one backend implementation of one or more capabilities.
// Adapters are stateless per call and may hold collaborator handles for their
// process lifetime.
type Adapter interface {
	// ID uniquely names the adapter for diagnostics.
	ID() string

	// Backend reports which backend the adapter implements.
	Backend() Backend

	// Supports reports whether the adapter can serve the routing key.
	Supports(key RoutingKey) bool

	// Execute performs one attempt. A returned error (as opposed to a failed
	// AdapterResult) is reclassified by the execution service as
	// EXECUTION_FAILED with retryable=true.
	Execute(ctx context.Context, req *ExecutionRequest, info ExecInfo) (*AdapterResult, error)
}
