// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package config_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GeoRetina/arion-connectors/pkg/config"
	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/secrets"
)

func newProvider(t *testing.T) (*config.Provider, *config.LocalStore, secrets.Manager) {
	t.Helper()
	store := config.NewLocalStore(filepath.Join(t.TempDir(), "config.yaml"))
	manager := secrets.NewMemoryManager()
	return config.NewProvider(store, manager), store, manager
}

func TestIntegrationConfigRoundTrip(t *testing.T) {
	t.Parallel()

	provider, store, manager := newProvider(t)

	cfg := map[string]any{
		"host":     "db.internal",
		"port":     float64(5432),
		"database": "gis",
		"user":     "reader",
		"password": "hunter2",
	}
	require.NoError(t, provider.SetIntegrationConfig(connector.IntegrationPostgreSQLPostGIS, cfg))

	merged, err := provider.GetIntegrationConfig(connector.IntegrationPostgreSQLPostGIS)
	require.NoError(t, err)
	assert.Equal(t, cfg, merged)

	// The password never lands in the config file.
	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	row := stored.Integrations[string(connector.IntegrationPostgreSQLPostGIS)]
	require.NotNil(t, row)
	assert.True(t, row.HasConfig)
	assert.Equal(t, config.StatusDisconnected, row.Status)
	assert.NotContains(t, row.PublicConfig, "hunter2")

	// It lands in the secrets store instead.
	raw, err := manager.GetSecret(secrets.IntegrationSecretName(connector.IntegrationPostgreSQLPostGIS))
	require.NoError(t, err)
	var secret map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &secret))
	assert.Equal(t, "hunter2", secret["password"])
}

func TestSetIntegrationConfigRejectsInvalid(t *testing.T) {
	t.Parallel()

	provider, _, _ := newProvider(t)
	err := provider.SetIntegrationConfig(connector.IntegrationSTAC, map[string]any{
		"url": "not a url",
	})
	require.Error(t, err)

	var validationErr *config.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, connector.IntegrationSTAC, validationErr.Integration)
	assert.NotEmpty(t, validationErr.Diagnostics)
}

func TestGetIntegrationConfigUnconfigured(t *testing.T) {
	t.Parallel()

	provider, _, _ := newProvider(t)
	merged, err := provider.GetIntegrationConfig(connector.IntegrationSTAC)
	require.NoError(t, err)
	assert.Nil(t, merged)
}

func TestLegacySQLCredentialFallback(t *testing.T) {
	t.Parallel()

	provider, store, _ := newProvider(t)
	require.NoError(t, store.Update(context.Background(), func(c *config.Config) {
		c.LegacySQLCredential = &config.SQLCredential{
			Host: "legacy-db", Port: 5433, Database: "old", User: "legacy", SSL: true,
		}
	}))

	merged, err := provider.GetIntegrationConfig(connector.IntegrationPostgreSQLPostGIS)
	require.NoError(t, err)
	require.NotNil(t, merged)
	assert.Equal(t, "legacy-db", merged["host"])
	assert.Equal(t, 5433, merged["port"])
	assert.Equal(t, true, merged["ssl"])

	// Stored fields beat the legacy row.
	require.NoError(t, provider.SetIntegrationConfig(connector.IntegrationPostgreSQLPostGIS, map[string]any{
		"host": "new-db", "port": float64(5432), "database": "gis",
		"user": "reader", "password": "hunter2",
	}))
	merged, err = provider.GetIntegrationConfig(connector.IntegrationPostgreSQLPostGIS)
	require.NoError(t, err)
	assert.Equal(t, "new-db", merged["host"])
	assert.Equal(t, float64(5432), merged["port"])
}

func TestDeleteIntegrationConfigResetsRow(t *testing.T) {
	t.Parallel()

	provider, _, manager := newProvider(t)
	require.NoError(t, provider.SetIntegrationConfig(connector.IntegrationS3, map[string]any{
		"bucket": "tiles", "region": "us-east-1",
		"accessKeyId": "AKIA", "secretAccessKey": "secret",
	}))

	require.NoError(t, provider.DeleteIntegrationConfig(connector.IntegrationS3))

	merged, err := provider.GetIntegrationConfig(connector.IntegrationS3)
	require.NoError(t, err)
	assert.Nil(t, merged)

	row, err := provider.GetIntegrationRow(connector.IntegrationS3)
	require.NoError(t, err)
	assert.Equal(t, config.StatusNotConfigured, row.Status)
	assert.False(t, row.HasConfig)

	_, err = manager.GetSecret(secrets.IntegrationSecretName(connector.IntegrationS3))
	assert.ErrorIs(t, err, secrets.ErrSecretNotFound)
}

func TestPolicyDocumentPassthrough(t *testing.T) {
	t.Parallel()

	provider, _, _ := newProvider(t)

	doc, err := provider.GetConnectorPolicyConfig()
	require.NoError(t, err)
	assert.Nil(t, doc)

	want := json.RawMessage(`{"strictMode":true}`)
	require.NoError(t, provider.SetConnectorPolicyConfig(want))

	doc, err = provider.GetConnectorPolicyConfig()
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(doc))
}

func TestIntegrationStatusAndLastUsed(t *testing.T) {
	t.Parallel()

	provider, _, _ := newProvider(t)
	require.NoError(t, provider.SetIntegrationStatus(connector.IntegrationWMS, config.StatusError, "handshake failed"))

	row, err := provider.GetIntegrationRow(connector.IntegrationWMS)
	require.NoError(t, err)
	assert.Equal(t, config.StatusError, row.Status)
	assert.Equal(t, "handshake failed", row.Message)
	require.NotNil(t, row.CheckedAt)

	require.NoError(t, provider.TouchIntegrationLastUsed(connector.IntegrationWMS))
	row, err = provider.GetIntegrationRow(connector.IntegrationWMS)
	require.NoError(t, err)
	require.NotNil(t, row.LastUsed)
}
