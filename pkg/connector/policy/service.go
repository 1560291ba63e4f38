// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"encoding/json"
	"fmt"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/logger"
)

// Store persists the policy document. Implemented by the configuration
// provider; the document is always stored normalised.
type Store interface {
	// GetConnectorPolicyConfig returns the stored JSON policy document, or
	// nil when none has been saved yet.
	GetConnectorPolicyConfig() (json.RawMessage, error)

	// SetConnectorPolicyConfig replaces the stored JSON policy document.
	SetConnectorPolicyConfig(doc json.RawMessage) error
}

// EvaluateRequest identifies the capability request being gated.
type EvaluateRequest struct {
	Integration connector.IntegrationID
	Capability  connector.Capability
	ChatID      string
}

// Decision is the outcome of a policy evaluation. Denials for approval-gated
// capabilities still carry the resolved backends and timings so the caller
// can prompt the user and retry.
type Decision struct {
	Allowed         bool
	Reason          string
	AllowedBackends []connector.Backend
	ApprovalMode    ApprovalMode
	TimeoutMs       int64
	MaxRetries      int
}

// Service evaluates the connector policy and owns the approval store.
// One Service exists per process; test harnesses instantiate their own.
type Service struct {
	store     Store
	approvals *ApprovalStore
}

// NewService creates a policy service backed by the given document store.
func NewService(store Store) *Service {
	return &Service{
		store:     store,
		approvals: NewApprovalStore(),
	}
}

// GetConfig returns the stored policy, normalised and defensively copied.
// Load or decode errors fall back to the normalised defaults.
func (s *Service) GetConfig() *Config {
	raw, err := s.store.GetConnectorPolicyConfig()
	if err != nil {
		logger.Warnf("failed to load connector policy, using defaults: %v", err)
		return DefaultConfig()
	}
	if len(raw) == 0 {
		return DefaultConfig()
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		logger.Warnf("failed to decode connector policy, using defaults: %v", err)
		return DefaultConfig()
	}
	return Normalize(&cfg)
}

// SetConfig normalises and persists the policy document.
func (s *Service) SetConfig(cfg *Config) error {
	normalized := Normalize(cfg)
	doc, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("failed to encode connector policy: %w", err)
	}
	return s.store.SetConnectorPolicyConfig(doc)
}

// Evaluate runs the decision algorithm for one request.
func (s *Service) Evaluate(req EvaluateRequest) Decision {
	cfg := s.GetConfig()

	timeoutMs := cfg.DefaultTimeoutMs
	maxRetries := *cfg.DefaultMaxRetries

	// 1. A disabled policy allows everything with the full backend set.
	if !cfg.IsEnabled() {
		return Decision{
			Allowed:         true,
			AllowedBackends: connector.AllBackends(),
			ApprovalMode:    ApprovalAlways,
			TimeoutMs:       timeoutMs,
			MaxRetries:      maxRetries,
		}
	}

	ip := cfg.IntegrationPolicies[req.Integration]

	// 2. Integration explicitly disabled.
	if ip != nil && ip.Enabled != nil && !*ip.Enabled {
		return Decision{
			Allowed:      false,
			Reason:       fmt.Sprintf("Integration %s is disabled by policy", req.Integration),
			ApprovalMode: ApprovalAlways,
			TimeoutMs:    timeoutMs,
			MaxRetries:   maxRetries,
		}
	}

	var cp *CapabilityPolicy
	if ip != nil {
		if p, ok := ip.Capabilities[req.Capability]; ok {
			cp = &p
		}
	}

	// 3. Capability explicitly disabled.
	if cp != nil && cp.Enabled != nil && !*cp.Enabled {
		return Decision{
			Allowed:      false,
			Reason:       fmt.Sprintf("Capability %s is disabled by policy", req.Capability),
			ApprovalMode: ApprovalAlways,
			TimeoutMs:    timeoutMs,
			MaxRetries:   maxRetries,
		}
	}

	if cp != nil && cp.TimeoutMs > 0 {
		timeoutMs = cp.TimeoutMs
	}
	if cp != nil && cp.MaxRetries != nil {
		maxRetries = *cp.MaxRetries
	}

	// 4. Resolve the allowed backend set.
	capabilityExplicit := cp != nil && len(cp.AllowedBackends) > 0
	allowed := cfg.DefaultAllowedBackends
	if capabilityExplicit {
		allowed = cp.AllowedBackends
	}
	allowed = subtractBackends(allowed, cfg.BackendDenylist)
	if cfg.StrictMode && !capabilityExplicit {
		allowed = intersectBackends(allowed, []connector.Backend{connector.BackendNative})
	}
	if len(allowed) == 0 {
		return Decision{
			Allowed:      false,
			Reason:       fmt.Sprintf("No connector backend is allowed for %s/%s by policy", req.Integration, req.Capability),
			ApprovalMode: ApprovalAlways,
			TimeoutMs:    timeoutMs,
			MaxRetries:   maxRetries,
		}
	}

	// 5. Determine the approval mode.
	mode := ApprovalAlways
	if cp != nil && cp.ApprovalMode != "" {
		mode = cp.ApprovalMode
	} else if containsCapability(cfg.SensitiveCapabilities, req.Capability) {
		mode = cfg.DefaultApprovalMode
	}

	// 6. Consult the approval store for gated modes.
	if mode != ApprovalAlways {
		granted := false
		switch mode {
		case ApprovalSession:
			granted = s.approvals.HasSession(req.ChatID, req.Integration, req.Capability)
		case ApprovalOnce:
			granted = s.approvals.ConsumeOnce(req.ChatID, req.Integration, req.Capability)
		}
		if !granted {
			return Decision{
				Allowed:         false,
				Reason:          fmt.Sprintf("Approval required for %s/%s (mode: %s)", req.Integration, req.Capability, mode),
				AllowedBackends: allowed,
				ApprovalMode:    mode,
				TimeoutMs:       timeoutMs,
				MaxRetries:      maxRetries,
			}
		}
	}

	// 7. Allowed.
	return Decision{
		Allowed:         true,
		AllowedBackends: allowed,
		ApprovalMode:    mode,
		TimeoutMs:       timeoutMs,
		MaxRetries:      maxRetries,
	}
}

// GrantSessionApproval records an idempotent approval for the chat session.
func (s *Service) GrantSessionApproval(chatID string, integration connector.IntegrationID, capability connector.Capability) {
	s.approvals.GrantSession(chatID, integration, capability)
}

// GrantOneTimeApproval records an approval consumed by the next evaluation.
func (s *Service) GrantOneTimeApproval(chatID string, integration connector.IntegrationID, capability connector.Capability) {
	s.approvals.GrantOnce(chatID, integration, capability)
}

// ClearSessionApprovals drops approvals for one chat, or every approval when
// chatID is empty.
func (s *Service) ClearSessionApprovals(chatID string) {
	s.approvals.Clear(chatID)
}

func subtractBackends(from, remove []connector.Backend) []connector.Backend {
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

func intersectBackends(from, keep []connector.Backend) []connector.Backend {
	keepSet := make(map[connector.Backend]bool, len(keep))
	for _, b := range keep {
		keepSet[b] = true
	}
	out := make([]connector.Backend, 0, len(from))
	for _, b := range from {
		if keepSet[b] {
			out = append(out, b)
		}
	}
	return out
}

func containsCapability(list []connector.Capability, cap connector.Capability) bool {
	for _, c := range list {
		if c == cap {
			return true
		}
	}
	return false
}
