// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package policy evaluates per-integration and per-capability connector
// rules, including the sensitive-capability approval flow with session and
// one-shot grants.
package policy

import (
	"sort"
	"strings"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
)

// Bounds applied during normalisation.
const (
	// MinTimeoutMs is the smallest per-attempt timeout policy may set.
	MinTimeoutMs int64 = 1_000

	// MaxTimeoutMs is the largest per-attempt timeout policy may set.
	MaxTimeoutMs int64 = 600_000

	// DefaultTimeoutMs applies when no timeout is configured.
	DefaultTimeoutMs int64 = 30_000

	// MaxRetriesBound caps the per-route retry budget.
	MaxRetriesBound = 5

	// DefaultMaxRetries applies when no retry budget is configured.
	DefaultMaxRetries = 1
)

// ApprovalMode controls how a capability request is gated.
type ApprovalMode string

// Approval modes.
const (
	// ApprovalAlways means no approval gate: requests pass straight through.
	ApprovalAlways ApprovalMode = "always"

	// ApprovalSession requires one grant per chat session.
	ApprovalSession ApprovalMode = "session"

	// ApprovalOnce requires a grant that is consumed on use.
	ApprovalOnce ApprovalMode = "once"
)

func (m ApprovalMode) valid() bool {
	return m == ApprovalAlways || m == ApprovalSession || m == ApprovalOnce
}

// CapabilityPolicy overrides policy for one capability of one integration.
// Nil / zero fields inherit from the integration or the defaults.
type CapabilityPolicy struct {
	Enabled         *bool               `json:"enabled,omitempty"`
	ApprovalMode    ApprovalMode        `json:"approvalMode,omitempty"`
	TimeoutMs       int64               `json:"timeoutMs,omitempty"`
	MaxRetries      *int                `json:"maxRetries,omitempty"`
	AllowedBackends []connector.Backend `json:"allowedBackends,omitempty"`
}

// IntegrationPolicy overrides policy for one integration.
type IntegrationPolicy struct {
	Enabled      *bool                                     `json:"enabled,omitempty"`
	Capabilities map[connector.Capability]CapabilityPolicy `json:"capabilities,omitempty"`
}

// Config is the connector policy document. It is persisted as a single JSON
// document and is always normalised before use.
type Config struct {
	Enabled                *bool                                          `json:"enabled,omitempty"`
	StrictMode             bool                                           `json:"strictMode,omitempty"`
	DefaultApprovalMode    ApprovalMode                                   `json:"defaultApprovalMode,omitempty"`
	DefaultTimeoutMs       int64                                          `json:"defaultTimeoutMs,omitempty"`
	DefaultMaxRetries      *int                                           `json:"defaultMaxRetries,omitempty"`
	DefaultAllowedBackends []connector.Backend                            `json:"defaultAllowedBackends,omitempty"`
	BackendDenylist        []connector.Backend                            `json:"backendDenylist,omitempty"`
	SensitiveCapabilities  []connector.Capability                         `json:"sensitiveCapabilities,omitempty"`
	BlockedRemoteToolNames []string                                       `json:"blockedRemoteToolNames,omitempty"`
	IntegrationPolicies    map[connector.IntegrationID]*IntegrationPolicy `json:"integrationPolicies,omitempty"`
}

// IsEnabled reports whether the whole policy is active. An absent flag means
// enabled.
func (c *Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

// DefaultConfig returns the normalised defaults used when no policy document
// has been stored, or when the stored document cannot be loaded.
func DefaultConfig() *Config {
	return Normalize(&Config{})
}

func clampTimeout(ms int64) int64 {
	if ms < MinTimeoutMs {
		return MinTimeoutMs
	}
	if ms > MaxTimeoutMs {
		return MaxTimeoutMs
	}
	return ms
}

func clampRetries(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxRetriesBound {
		return MaxRetriesBound
	}
	return n
}

// normalizeBackends drops unknown backends and duplicates, preserving order.
// When fallback is non-nil it is returned for an empty result.
func normalizeBackends(in []connector.Backend, fallback []connector.Backend) []connector.Backend {
	out := make([]connector.Backend, 0, len(in))
	seen := make(map[connector.Backend]bool, len(in))
	for _, b := range in {
		b = connector.Backend(strings.TrimSpace(string(b)))
		if !b.Valid() || seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	if len(out) == 0 && fallback != nil {
		return fallback
	}
	return out
}

// Normalize returns a defensively-copied config with every field trimmed,
// clamped to the permitted ranges, and defaulted. Normalisation is
// idempotent: Normalize(Normalize(c)) == Normalize(c).
func Normalize(in *Config) *Config {
	if in == nil {
		in = &Config{}
	}

	out := &Config{
		Enabled:    boolPtr(in.IsEnabled()),
		StrictMode: in.StrictMode,
	}

	out.DefaultApprovalMode = in.DefaultApprovalMode
	if !out.DefaultApprovalMode.valid() {
		out.DefaultApprovalMode = ApprovalAlways
	}

	out.DefaultTimeoutMs = in.DefaultTimeoutMs
	if out.DefaultTimeoutMs == 0 {
		out.DefaultTimeoutMs = DefaultTimeoutMs
	}
	out.DefaultTimeoutMs = clampTimeout(out.DefaultTimeoutMs)

	if in.DefaultMaxRetries != nil {
		out.DefaultMaxRetries = intPtr(clampRetries(*in.DefaultMaxRetries))
	} else {
		out.DefaultMaxRetries = intPtr(DefaultMaxRetries)
	}

	out.DefaultAllowedBackends = normalizeBackends(in.DefaultAllowedBackends, connector.AllBackends())
	out.BackendDenylist = normalizeBackends(in.BackendDenylist, []connector.Backend{})

	// Sensitive capabilities and blocked tool names are deduplicated and
	// sorted so the stored document is canonical.
	sensitiveSeen := make(map[connector.Capability]bool)
	out.SensitiveCapabilities = make([]connector.Capability, 0, len(in.SensitiveCapabilities))
	for _, cap := range in.SensitiveCapabilities {
		cap = connector.Capability(strings.TrimSpace(string(cap)))
		if cap == "" || sensitiveSeen[cap] {
			continue
		}
		sensitiveSeen[cap] = true
		out.SensitiveCapabilities = append(out.SensitiveCapabilities, cap)
	}
	sort.Slice(out.SensitiveCapabilities, func(i, j int) bool {
		return out.SensitiveCapabilities[i] < out.SensitiveCapabilities[j]
	})

	blockedSeen := make(map[string]bool)
	out.BlockedRemoteToolNames = make([]string, 0, len(in.BlockedRemoteToolNames))
	for _, name := range in.BlockedRemoteToolNames {
		name = strings.TrimSpace(name)
		if name == "" || blockedSeen[name] {
			continue
		}
		blockedSeen[name] = true
		out.BlockedRemoteToolNames = append(out.BlockedRemoteToolNames, name)
	}
	sort.Strings(out.BlockedRemoteToolNames)

	out.IntegrationPolicies = make(map[connector.IntegrationID]*IntegrationPolicy)
	for id, ip := range in.IntegrationPolicies {
		id = connector.IntegrationID(strings.TrimSpace(string(id)))
		if !id.Valid() || ip == nil {
			continue
		}
		normalized := &IntegrationPolicy{
			Enabled: boolPtr(ip.Enabled == nil || *ip.Enabled),
		}
		if len(ip.Capabilities) > 0 {
			normalized.Capabilities = make(map[connector.Capability]CapabilityPolicy, len(ip.Capabilities))
			for cap, cp := range ip.Capabilities {
				cap = connector.Capability(strings.TrimSpace(string(cap)))
				if cap == "" {
					continue
				}
				normalized.Capabilities[cap] = normalizeCapabilityPolicy(cp)
			}
		}
		out.IntegrationPolicies[id] = normalized
	}

	return out
}

func normalizeCapabilityPolicy(in CapabilityPolicy) CapabilityPolicy {
	out := CapabilityPolicy{
		Enabled: boolPtr(in.Enabled == nil || *in.Enabled),
	}
	if in.ApprovalMode.valid() {
		out.ApprovalMode = in.ApprovalMode
	}
	if in.TimeoutMs != 0 {
		out.TimeoutMs = clampTimeout(in.TimeoutMs)
	}
	if in.MaxRetries != nil {
		out.MaxRetries = intPtr(clampRetries(*in.MaxRetries))
	}
	// No fallback here: an empty list means "inherit", which strict mode
	// distinguishes from an explicit list.
	out.AllowedBackends = normalizeBackends(in.AllowedBackends, nil)
	return out
}
