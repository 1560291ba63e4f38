// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package secrets

import (
	"fmt"
	"sort"
	"sync"
)

// MemoryManager keeps secrets in process memory. It backs tests and
// environments without a usable keyring; nothing is persisted.
type MemoryManager struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemoryManager creates an empty in-memory secrets manager.
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{secrets: make(map[string]string)}
}

// GetSecret retrieves a secret.
func (m *MemoryManager) GetSecret(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.secrets[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	return value, nil
}

// SetSecret stores a secret.
func (m *MemoryManager) SetSecret(name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[name] = value
	return nil
}

// DeleteSecret removes a secret.
func (m *MemoryManager) DeleteSecret(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.secrets[name]; !ok {
		return fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	delete(m.secrets, name)
	return nil
}

// ListSecrets returns the sorted names of stored secrets.
func (m *MemoryManager) ListSecrets() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.secrets))
	for name := range m.secrets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Cleanup drops every stored secret.
func (m *MemoryManager) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets = make(map[string]string)
	return nil
}
