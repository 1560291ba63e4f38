// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package policy_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/connector/policy"
)

// memStore keeps the policy document in memory.
type memStore struct {
	doc json.RawMessage
}

func (m *memStore) GetConnectorPolicyConfig() (json.RawMessage, error) {
	return m.doc, nil
}

func (m *memStore) SetConnectorPolicyConfig(doc json.RawMessage) error {
	m.doc = doc
	return nil
}

func newService(t *testing.T, cfg *policy.Config) *policy.Service {
	t.Helper()
	service := policy.NewService(&memStore{})
	if cfg != nil {
		require.NoError(t, service.SetConfig(cfg))
	}
	return service
}

func TestEvaluateDefaultAllows(t *testing.T) {
	t.Parallel()

	service := newService(t, nil)
	decision := service.Evaluate(policy.EvaluateRequest{
		Integration: connector.IntegrationSTAC,
		Capability:  connector.CapabilityCatalogSearch,
	})

	assert.True(t, decision.Allowed)
	assert.Equal(t, connector.AllBackends(), decision.AllowedBackends)
	assert.Equal(t, policy.DefaultTimeoutMs, decision.TimeoutMs)
	assert.Equal(t, policy.DefaultMaxRetries, decision.MaxRetries)
}

func TestEvaluateDisabledIntegration(t *testing.T) {
	t.Parallel()

	service := newService(t, &policy.Config{
		IntegrationPolicies: map[connector.IntegrationID]*policy.IntegrationPolicy{
			connector.IntegrationSTAC: {Enabled: boolPtr(false)},
		},
	})
	decision := service.Evaluate(policy.EvaluateRequest{
		Integration: connector.IntegrationSTAC,
		Capability:  connector.CapabilityCatalogSearch,
	})

	require.False(t, decision.Allowed)
	assert.Equal(t, "Integration stac is disabled by policy", decision.Reason)
}

func TestEvaluateDisabledCapability(t *testing.T) {
	t.Parallel()

	service := newService(t, &policy.Config{
		IntegrationPolicies: map[connector.IntegrationID]*policy.IntegrationPolicy{
			connector.IntegrationS3: {
				Capabilities: map[connector.Capability]policy.CapabilityPolicy{
					connector.CapabilityStorageList: {Enabled: boolPtr(false)},
				},
			},
		},
	})
	decision := service.Evaluate(policy.EvaluateRequest{
		Integration: connector.IntegrationS3,
		Capability:  connector.CapabilityStorageList,
	})

	require.False(t, decision.Allowed)
	assert.Equal(t, "Capability storage.list is disabled by policy", decision.Reason)
}

func TestEvaluateEmptyBackendSet(t *testing.T) {
	t.Parallel()

	service := newService(t, &policy.Config{
		DefaultAllowedBackends: []connector.Backend{connector.BackendNative},
		BackendDenylist:        []connector.Backend{connector.BackendNative},
	})
	decision := service.Evaluate(policy.EvaluateRequest{
		Integration: connector.IntegrationSTAC,
		Capability:  connector.CapabilityCatalogSearch,
	})

	require.False(t, decision.Allowed)
	assert.Equal(t, "No connector backend is allowed for stac/catalog.search by policy", decision.Reason)
}

func TestEvaluateStrictModeRestrictsToNative(t *testing.T) {
	t.Parallel()

	service := newService(t, &policy.Config{StrictMode: true})
	decision := service.Evaluate(policy.EvaluateRequest{
		Integration: connector.IntegrationSTAC,
		Capability:  connector.CapabilityCatalogSearch,
	})

	require.True(t, decision.Allowed)
	assert.Equal(t, []connector.Backend{connector.BackendNative}, decision.AllowedBackends)
}

func TestEvaluateStrictModeHonoursExplicitCapabilityBackends(t *testing.T) {
	t.Parallel()

	service := newService(t, &policy.Config{
		StrictMode: true,
		IntegrationPolicies: map[connector.IntegrationID]*policy.IntegrationPolicy{
			connector.IntegrationSTAC: {
				Capabilities: map[connector.Capability]policy.CapabilityPolicy{
					connector.CapabilityCatalogSearch: {
						AllowedBackends: []connector.Backend{connector.BackendMCP},
					},
				},
			},
		},
	})
	decision := service.Evaluate(policy.EvaluateRequest{
		Integration: connector.IntegrationSTAC,
		Capability:  connector.CapabilityCatalogSearch,
	})

	require.True(t, decision.Allowed)
	assert.Equal(t, []connector.Backend{connector.BackendMCP}, decision.AllowedBackends)
}

func TestEvaluateApprovalRequired(t *testing.T) {
	t.Parallel()

	service := newService(t, &policy.Config{
		DefaultApprovalMode:   policy.ApprovalSession,
		SensitiveCapabilities: []connector.Capability{connector.CapabilitySQLQuery},
	})
	req := policy.EvaluateRequest{
		Integration: connector.IntegrationPostgreSQLPostGIS,
		Capability:  connector.CapabilitySQLQuery,
		ChatID:      "chat-1",
	}

	decision := service.Evaluate(req)
	require.False(t, decision.Allowed)
	assert.Equal(t, "Approval required for postgresql-postgis/sql.query (mode: session)", decision.Reason)
	// Denial still carries the resolved backends and timings so the caller
	// can prompt and retry.
	assert.Equal(t, connector.AllBackends(), decision.AllowedBackends)
	assert.Equal(t, policy.DefaultTimeoutMs, decision.TimeoutMs)

	service.GrantSessionApproval("chat-1", req.Integration, req.Capability)
	decision = service.Evaluate(req)
	assert.True(t, decision.Allowed)

	// Session approvals are scoped to the chat.
	other := req
	other.ChatID = "chat-2"
	assert.False(t, service.Evaluate(other).Allowed)
}

func TestEvaluateOnceApprovalIsConsumed(t *testing.T) {
	t.Parallel()

	service := newService(t, &policy.Config{
		IntegrationPolicies: map[connector.IntegrationID]*policy.IntegrationPolicy{
			connector.IntegrationS3: {
				Capabilities: map[connector.Capability]policy.CapabilityPolicy{
					connector.CapabilityStorageList: {ApprovalMode: policy.ApprovalOnce},
				},
			},
		},
	})
	req := policy.EvaluateRequest{
		Integration: connector.IntegrationS3,
		Capability:  connector.CapabilityStorageList,
		ChatID:      "chat-1",
	}

	assert.False(t, service.Evaluate(req).Allowed)

	service.GrantOneTimeApproval("chat-1", req.Integration, req.Capability)
	assert.True(t, service.Evaluate(req).Allowed)
	assert.False(t, service.Evaluate(req).Allowed, "one-shot approval must be consumed")
}

func TestEvaluateDisabledPolicyAllowsEverything(t *testing.T) {
	t.Parallel()

	service := newService(t, &policy.Config{
		Enabled: boolPtr(false),
		IntegrationPolicies: map[connector.IntegrationID]*policy.IntegrationPolicy{
			connector.IntegrationSTAC: {Enabled: boolPtr(false)},
		},
	})
	decision := service.Evaluate(policy.EvaluateRequest{
		Integration: connector.IntegrationSTAC,
		Capability:  connector.CapabilityCatalogSearch,
	})

	assert.True(t, decision.Allowed)
	assert.Equal(t, connector.AllBackends(), decision.AllowedBackends)
}

func TestGetConfigFallsBackOnCorruptDocument(t *testing.T) {
	t.Parallel()

	service := policy.NewService(&memStore{doc: json.RawMessage(`{nope`)})
	cfg := service.GetConfig()
	require.NotNil(t, cfg)
	assert.True(t, cfg.IsEnabled())
}

func TestSetConfigPersistsNormalised(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	service := policy.NewService(store)
	require.NoError(t, service.SetConfig(&policy.Config{DefaultTimeoutMs: 1}))

	var stored policy.Config
	require.NoError(t, json.Unmarshal(store.doc, &stored))
	assert.Equal(t, policy.MinTimeoutMs, stored.DefaultTimeoutMs)
}
