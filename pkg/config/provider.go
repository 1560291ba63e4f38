// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/secrets"
)

// ValidationError carries the flat diagnostics produced by schema validation.
type ValidationError struct {
	Integration connector.IntegrationID
	Diagnostics []Diagnostic
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		parts = append(parts, d.String())
	}
	return fmt.Sprintf("invalid %s config: %s", e.Integration, strings.Join(parts, "; "))
}

// Provider exposes the configuration operations the connector core consumes:
// the policy document, merged integration configs, and lifecycle rows.
type Provider struct {
	store   Store
	secrets secrets.Manager
}

// NewProvider creates a configuration provider over a store and a secrets
// manager.
func NewProvider(store Store, secretsMgr secrets.Manager) *Provider {
	return &Provider{store: store, secrets: secretsMgr}
}

// GetConnectorPolicyConfig returns the stored policy document, or nil when
// none has been saved.
func (p *Provider) GetConnectorPolicyConfig() (json.RawMessage, error) {
	cfg, err := p.store.Load(context.Background())
	if err != nil {
		return nil, err
	}
	if cfg.Settings.ConnectorPolicy == "" {
		return nil, nil
	}
	return json.RawMessage(cfg.Settings.ConnectorPolicy), nil
}

// SetConnectorPolicyConfig replaces the stored policy document.
func (p *Provider) SetConnectorPolicyConfig(doc json.RawMessage) error {
	return p.store.Update(context.Background(), func(cfg *Config) {
		cfg.Settings.ConnectorPolicy = string(doc)
	})
}

// GetIntegrationConfig returns the merged public+secret config for an
// integration, layered over the legacy SQL credential row where applicable.
// It returns nil (and no error) when no meaningful fields remain.
func (p *Provider) GetIntegrationConfig(id connector.IntegrationID) (map[string]any, error) {
	cfg, err := p.store.Load(context.Background())
	if err != nil {
		return nil, err
	}

	public := map[string]any{}
	if row := cfg.Integrations[string(id)]; row != nil && row.PublicConfig != "" {
		if err := json.Unmarshal([]byte(row.PublicConfig), &public); err != nil {
			return nil, fmt.Errorf("corrupt public config for %s: %w", id, err)
		}
	}

	secret := map[string]any{}
	raw, err := p.secrets.GetSecret(secrets.IntegrationSecretName(id))
	if err != nil && !errors.Is(err, secrets.ErrSecretNotFound) {
		return nil, err
	}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &secret); err != nil {
			return nil, fmt.Errorf("corrupt secret config for %s: %w", id, err)
		}
	}

	merged := MergeIntegrationConfig(public, secret)

	if id == connector.IntegrationPostgreSQLPostGIS && cfg.LegacySQLCredential != nil {
		applyLegacySQLFallback(merged, cfg.LegacySQLCredential)
	}

	if len(merged) == 0 {
		return nil, nil
	}
	return merged, nil
}

// applyLegacySQLFallback fills fields the stored config left empty from the
// legacy credential row. Stored non-empty fields always win.
func applyLegacySQLFallback(merged map[string]any, legacy *SQLCredential) {
	fallbackString := func(key, value string) {
		if value == "" {
			return
		}
		if current, ok := merged[key].(string); !ok || current == "" {
			merged[key] = value
		}
	}
	fallbackString("host", legacy.Host)
	fallbackString("database", legacy.Database)
	fallbackString("user", legacy.User)
	if legacy.Port != 0 {
		if _, ok := merged["port"]; !ok {
			merged["port"] = legacy.Port
		}
	}
	if legacy.SSL {
		if _, ok := merged["ssl"]; !ok {
			merged["ssl"] = true
		}
	}
}

// SetIntegrationConfig validates a full integration config, splits it, and
// persists the public part in the config row and the secret part in the
// secrets store.
func (p *Provider) SetIntegrationConfig(id connector.IntegrationID, cfg map[string]any) error {
	if !id.Valid() {
		return fmt.Errorf("unknown integration %q", id)
	}
	if diags := ValidateIntegrationConfig(id, cfg); len(diags) > 0 {
		return &ValidationError{Integration: id, Diagnostics: diags}
	}

	public, secret := SplitIntegrationConfig(id, cfg)

	publicJSON, err := json.Marshal(public)
	if err != nil {
		return fmt.Errorf("failed to encode public config: %w", err)
	}

	secretName := secrets.IntegrationSecretName(id)
	if len(secret) > 0 {
		secretJSON, err := json.Marshal(secret)
		if err != nil {
			return fmt.Errorf("failed to encode secret config: %w", err)
		}
		if err := p.secrets.SetSecret(secretName, string(secretJSON)); err != nil {
			return err
		}
	} else if err := p.secrets.DeleteSecret(secretName); err != nil && !errors.Is(err, secrets.ErrSecretNotFound) {
		return err
	}

	return p.store.Update(context.Background(), func(c *Config) {
		row := c.Integrations[string(id)]
		if row == nil {
			row = &IntegrationRow{Status: StatusDisconnected}
			c.Integrations[string(id)] = row
		}
		if row.Status == StatusNotConfigured || row.Status == "" {
			row.Status = StatusDisconnected
		}
		row.HasConfig = true
		row.PublicConfig = string(publicJSON)
	})
}

// DeleteIntegrationConfig removes both halves of an integration config and
// resets its row.
func (p *Provider) DeleteIntegrationConfig(id connector.IntegrationID) error {
	if err := p.secrets.DeleteSecret(secrets.IntegrationSecretName(id)); err != nil &&
		!errors.Is(err, secrets.ErrSecretNotFound) {
		return err
	}
	return p.store.Update(context.Background(), func(c *Config) {
		c.Integrations[string(id)] = &IntegrationRow{Status: StatusNotConfigured}
	})
}

// GetIntegrationRow returns a copy of the lifecycle row for an integration,
// or a default not-configured row.
func (p *Provider) GetIntegrationRow(id connector.IntegrationID) (IntegrationRow, error) {
	cfg, err := p.store.Load(context.Background())
	if err != nil {
		return IntegrationRow{}, err
	}
	if row := cfg.Integrations[string(id)]; row != nil {
		return *row, nil
	}
	return IntegrationRow{Status: StatusNotConfigured}, nil
}

// SetIntegrationStatus updates the lifecycle state of an integration row.
func (p *Provider) SetIntegrationStatus(id connector.IntegrationID, status IntegrationStatus, message string) error {
	now := time.Now()
	return p.store.Update(context.Background(), func(c *Config) {
		row := c.Integrations[string(id)]
		if row == nil {
			row = &IntegrationRow{}
			c.Integrations[string(id)] = row
		}
		row.Status = status
		row.Message = message
		row.CheckedAt = &now
	})
}

// TouchIntegrationLastUsed stamps the row after a successful execution.
func (p *Provider) TouchIntegrationLastUsed(id connector.IntegrationID) error {
	now := time.Now()
	return p.store.Update(context.Background(), func(c *Config) {
		row := c.Integrations[string(id)]
		if row == nil {
			row = &IntegrationRow{Status: StatusNotConfigured}
			c.Integrations[string(id)] = row
		}
		row.LastUsed = &now
	})
}
