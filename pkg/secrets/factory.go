// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package secrets

import (
	"fmt"
	"os"

	"github.com/GeoRetina/arion-connectors/pkg/logger"
)

// ProviderEnvVar is the environment variable used to specify the secrets provider type.
const ProviderEnvVar = "ARION_SECRETS_PROVIDER"

// ProviderType represents an enum of the types of available secrets providers.
type ProviderType string

const (
	// KeyringType stores secrets in the OS keyring.
	KeyringType ProviderType = "keyring"

	// MemoryType stores secrets in process memory only.
	MemoryType ProviderType = "memory"
)

// ErrUnknownManagerType is returned when an invalid value for ProviderType is specified.
var ErrUnknownManagerType = fmt.Errorf("unknown secrets provider type")

// CreateSecretManager creates the specified secrets manager.
func CreateSecretManager(providerType ProviderType) (Manager, error) {
	switch providerType {
	case KeyringType:
		return NewKeyringManager()
	case MemoryType:
		return NewMemoryManager(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownManagerType, providerType)
	}
}

// NewDefaultManager creates the manager named by ARION_SECRETS_PROVIDER,
// defaulting to the OS keyring with an in-memory fallback when no keyring
// backend is available.
func NewDefaultManager() Manager {
	if explicit := os.Getenv(ProviderEnvVar); explicit != "" {
		manager, err := CreateSecretManager(ProviderType(explicit))
		if err == nil {
			return manager
		}
		logger.Warnf("secrets provider %q unavailable, falling back to memory: %v", explicit, err)
		return NewMemoryManager()
	}

	manager, err := NewKeyringManager()
	if err != nil {
		logger.Warnf("OS keyring unavailable, secrets will not be persisted: %v", err)
		return NewMemoryManager()
	}
	return manager
}
