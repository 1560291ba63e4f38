// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package secrets contains the secret storage used for the private halves of
// integration configs. Secrets are opaque string values addressed by name;
// the connector core stores one JSON document per integration.
package secrets

import (
	"errors"
	"fmt"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
)

// ErrSecretNotFound is returned when a named secret does not exist.
var ErrSecretNotFound = errors.New("secret not found")

// Manager describes a type which can manage secrets.
type Manager interface {
	GetSecret(name string) (string, error)
	SetSecret(name, value string) error
	DeleteSecret(name string) error
	ListSecrets() ([]string, error)
	Cleanup() error
}

// IntegrationSecretName returns the well-known secret name holding the
// secret config document for an integration.
func IntegrationSecretName(id connector.IntegrationID) string {
	return fmt.Sprintf("integration/%s", id)
}
