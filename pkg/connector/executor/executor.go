// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package executor drives one capability request through policy evaluation,
// route resolution, and the per-route attempt loop, emitting exactly one run
// record per call.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/connector/policy"
	"github.com/GeoRetina/arion-connectors/pkg/connector/registry"
	"github.com/GeoRetina/arion-connectors/pkg/connector/runlog"
	"github.com/GeoRetina/arion-connectors/pkg/errors"
	"github.com/GeoRetina/arion-connectors/pkg/logger"
	"github.com/GeoRetina/arion-connectors/pkg/telemetry"
)

// Service is the connector execution service.
type Service struct {
	registry *registry.Registry
	policy   *policy.Service
	runs     *runlog.Logger
	metrics  *telemetry.Metrics
}

// Option configures the service.
type Option func(*Service)

// WithMetrics wires Prometheus instrumentation.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New creates the execution service. runs may be nil, in which case a logger
// with the default capacity is created.
func New(reg *registry.Registry, pol *policy.Service, runs *runlog.Logger, opts ...Option) *Service {
	if runs == nil {
		runs = runlog.NewLogger(0)
	}
	s := &Service{registry: reg, policy: pol, runs: runs}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs one capability request to completion.
func (s *Service) Execute(ctx context.Context, req *connector.ExecutionRequest) *connector.Result {
	start := time.Now()
	runID := uuid.NewString()

	// Evaluating.
	decision := s.policy.Evaluate(policy.EvaluateRequest{
		Integration: req.Integration,
		Capability:  req.Capability,
		ChatID:      req.ChatID,
	})
	if !decision.Allowed {
		code := errors.CodePolicyDenied
		if strings.Contains(strings.ToLower(decision.Reason), "approval required") {
			code = errors.CodeApprovalRequired
		}
		return s.finishFailure(req, runID, start, "", nil,
			errors.New(code, decision.Reason), connector.OutcomePolicyDenied)
	}

	// Routing.
	denied := subtract(connector.AllBackends(), decision.AllowedBackends)
	preferred := decision.AllowedBackends
	if len(req.PreferredBackends) > 0 {
		preferred = intersectOrdered(req.PreferredBackends, decision.AllowedBackends)
	}
	routes := s.registry.Resolve(req.Integration, req.Capability, preferred, denied)
	if len(routes) == 0 {
		return s.finishFailure(req, runID, start, "", nil,
			errors.Newf(errors.CodeUnsupportedCapability,
				"no connector backend serves %s", req.Key()), connector.OutcomeError)
	}

	// Attempting.
	timeoutMs := decision.TimeoutMs
	if req.TimeoutMs > 0 {
		timeoutMs = clampTimeout(req.TimeoutMs)
	}
	maxRetries := decision.MaxRetries
	if req.MaxRetries != nil && *req.MaxRetries >= 0 {
		maxRetries = clampRetries(*req.MaxRetries)
	}

	var attempts []connector.Attempt
	var lastErr *errors.Error
	var lastBackend connector.Backend

routing:
	for _, route := range routes {
		backend := route.Adapter.Backend()
		for attempt := 0; attempt <= maxRetries; attempt++ {
			s.metrics.RecordAttempt(string(backend))
			lastBackend = backend

			result, attemptErr := s.runWithTimeout(ctx, route.Adapter, req, connector.ExecInfo{
				TimeoutMs:  timeoutMs,
				Attempt:    attempt,
				MaxRetries: maxRetries,
			}, timeoutMs)
			if attemptErr == nil {
				return s.finishSuccess(req, runID, start, backend, result, attempts)
			}

			lastErr = attemptErr
			attempts = append(attempts, connector.Attempt{
				Backend:   backend,
				ErrorCode: attemptErr.Code,
				Message:   attemptErr.Message,
				Attempt:   attempt,
			})

			// The caller gave up; no further attempt can help.
			if ctx.Err() != nil {
				break routing
			}
			// Timeouts and retryable errors stay on this route; anything
			// else moves on to the next one.
			if attemptErr.Code == errors.CodeTimeout || attemptErr.Retryable {
				continue
			}
			break
		}
	}

	if lastErr == nil {
		lastErr = errors.New(errors.CodeExecutionFailed, "all connector attempts failed")
	}
	outcome := connector.OutcomeError
	if lastErr.Code == errors.CodeTimeout {
		outcome = connector.OutcomeTimeout
	}
	return s.finishFailure(req, runID, start, lastBackend, attempts, lastErr, outcome)
}

// runWithTimeout races the adapter call against the per-attempt deadline.
// On timeout the adapter goroutine is left to resolve on its own; the
// buffered channel keeps it from leaking.
func (s *Service) runWithTimeout(
	ctx context.Context,
	adapter connector.Adapter,
	req *connector.ExecutionRequest,
	info connector.ExecInfo,
	timeoutMs int64,
) (*connector.AdapterResult, *errors.Error) {
	attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	type outcome struct {
		result *connector.AdapterResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("adapter panic: %v", r)}
			}
		}()
		result, err := adapter.Execute(attemptCtx, req, info)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-attemptCtx.Done():
		// Only the attempt deadline counts as a timeout. A cancelled or
		// expired caller context is a cancellation, not retryable.
		if ctx.Err() != nil {
			return nil, errors.NewExecutionFailed(
				fmt.Sprintf("request cancelled while adapter %s was running", adapter.ID()), ctx.Err())
		}
		return nil, errors.NewTimeout(fmt.Sprintf("adapter %s timed out after %dms", adapter.ID(), timeoutMs))
	case o := <-done:
		if o.err != nil {
			// Adapter throws are transient by contract.
			return nil, errors.AsError(o.err)
		}
		if o.result == nil {
			return nil, errors.NewRetryable(errors.CodeExecutionFailed,
				fmt.Sprintf("adapter %s returned no result", adapter.ID()))
		}
		if o.result.Success {
			return o.result, nil
		}
		if o.result.Error == nil {
			return nil, errors.New(errors.CodeExecutionFailed,
				fmt.Sprintf("adapter %s failed without a classified error", adapter.ID()))
		}
		return nil, o.result.Error
	}
}

func (s *Service) finishSuccess(
	req *connector.ExecutionRequest,
	runID string,
	start time.Time,
	backend connector.Backend,
	result *connector.AdapterResult,
	attempts []connector.Attempt,
) *connector.Result {
	finished := time.Now()
	duration := finished.Sub(start)

	s.runs.Log(connector.RunRecord{
		RunID:       runID,
		StartedAt:   start,
		FinishedAt:  finished,
		DurationMs:  duration.Milliseconds(),
		ChatID:      req.ChatID,
		AgentID:     req.AgentID,
		Integration: req.Integration,
		Capability:  req.Capability,
		Backend:     backend,
		Outcome:     connector.OutcomeSuccess,
		Message:     "completed",
	})
	s.metrics.RecordExecution(string(req.Integration), string(req.Capability),
		string(connector.OutcomeSuccess), duration.Seconds())
	logger.Debugw("connector execution succeeded",
		"runId", runID, "key", req.Key().String(), "backend", backend)

	return &connector.Result{
		Success:     true,
		RunID:       runID,
		Integration: req.Integration,
		Capability:  req.Capability,
		Backend:     backend,
		DurationMs:  duration.Milliseconds(),
		Data:        result.Data,
		Details:     result.Details,
		Attempts:    attempts,
	}
}

func (s *Service) finishFailure(
	req *connector.ExecutionRequest,
	runID string,
	start time.Time,
	backend connector.Backend,
	attempts []connector.Attempt,
	failure *errors.Error,
	outcome connector.Outcome,
) *connector.Result {
	finished := time.Now()
	duration := finished.Sub(start)

	s.runs.Log(connector.RunRecord{
		RunID:       runID,
		StartedAt:   start,
		FinishedAt:  finished,
		DurationMs:  duration.Milliseconds(),
		ChatID:      req.ChatID,
		AgentID:     req.AgentID,
		Integration: req.Integration,
		Capability:  req.Capability,
		Backend:     backend,
		Outcome:     outcome,
		Message:     failure.Message,
		ErrorCode:   failure.Code,
	})
	s.metrics.RecordExecution(string(req.Integration), string(req.Capability),
		string(outcome), duration.Seconds())
	logger.Debugw("connector execution failed",
		"runId", runID, "key", req.Key().String(), "errorCode", failure.Code)

	return &connector.Result{
		Success:     false,
		RunID:       runID,
		Integration: req.Integration,
		Capability:  req.Capability,
		Backend:     backend,
		DurationMs:  duration.Milliseconds(),
		Error:       failure,
		Attempts:    attempts,
	}
}

// GetCapabilities lists the registered capability aggregates.
func (s *Service) GetCapabilities() []registry.CapabilityInfo {
	return s.registry.ListCapabilities()
}

// GetRunLogs returns the newest-first run records, clamped to limit.
func (s *Service) GetRunLogs(limit int) []connector.RunRecord {
	return s.runs.List(limit)
}

// ClearRunLogs drops every retained run record.
func (s *Service) ClearRunLogs() {
	s.runs.Clear()
}

// GrantApproval records an approval grant. Mode "always" is a no-op since no
// gate exists to satisfy.
func (s *Service) GrantApproval(mode policy.ApprovalMode, integration connector.IntegrationID, capability connector.Capability, chatID string) {
	switch mode {
	case policy.ApprovalSession:
		s.policy.GrantSessionApproval(chatID, integration, capability)
	case policy.ApprovalOnce:
		s.policy.GrantOneTimeApproval(chatID, integration, capability)
	case policy.ApprovalAlways:
	}
}

// ClearApprovals drops approvals for a chat, or everything when chatID is empty.
func (s *Service) ClearApprovals(chatID string) {
	s.policy.ClearSessionApprovals(chatID)
}

// Policy exposes the policy service for configuration surfaces.
func (s *Service) Policy() *policy.Service {
	return s.policy
}

// LifecycleEvent describes a connection lifecycle action on an integration.
type LifecycleEvent struct {
	Event       string
	Integration connector.IntegrationID
	Success     bool
	Message     string
	DurationMs  int64
	ChatID      string
}

// Lifecycle event names.
const (
	LifecycleTestConnection = "testConnection"
	LifecycleConnect        = "connect"
	LifecycleDisconnect     = "disconnect"
)

// LogIntegrationLifecycleEvent synthesises a run record for a connection
// lifecycle action.
func (s *Service) LogIntegrationLifecycleEvent(event LifecycleEvent) {
	outcome := connector.OutcomeSuccess
	if !event.Success {
		outcome = connector.OutcomeError
	}
	finished := time.Now()
	s.runs.Log(connector.RunRecord{
		RunID:       uuid.NewString(),
		StartedAt:   finished.Add(-time.Duration(event.DurationMs) * time.Millisecond),
		FinishedAt:  finished,
		DurationMs:  event.DurationMs,
		ChatID:      event.ChatID,
		Integration: event.Integration,
		Capability:  connector.Capability("lifecycle." + event.Event),
		Outcome:     outcome,
		Message:     event.Message,
	})
}

func clampTimeout(ms int64) int64 {
	if ms < policy.MinTimeoutMs {
		return policy.MinTimeoutMs
	}
	if ms > policy.MaxTimeoutMs {
		return policy.MaxTimeoutMs
	}
	return ms
}

func clampRetries(n int) int {
	if n < 0 {
		return 0
	}
	if n > policy.MaxRetriesBound {
		return policy.MaxRetriesBound
	}
	return n
}

func subtract(from, remove []connector.Backend) []connector.Backend {
	removeSet := make(map[connector.Backend]bool, len(remove))
	for _, b := range remove {
		removeSet[b] = true
	}
	out := make([]connector.Backend, 0, len(from))
	for _, b := range from {
		if !removeSet[b] {
			out = append(out, b)
		}
	}
	return out
}

// intersectOrdered keeps entries of ordered that appear in allowed,
// preserving the order of ordered.
func intersectOrdered(ordered, allowed []connector.Backend) []connector.Backend {
	allowedSet := make(map[connector.Backend]bool, len(allowed))
	for _, b := range allowed {
		allowedSet[b] = true
	}
	out := make([]connector.Backend, 0, len(ordered))
	seen := make(map[connector.Backend]bool)
	for _, b := range ordered {
		if allowedSet[b] && !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return allowed
	}
	return out
}
