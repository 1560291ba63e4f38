// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "arion-connectors"

	// indexEntry tracks the names of stored secrets, since the OS keyring
	// has no native enumeration.
	indexEntry = "__index__"
)

// KeyringManager stores secrets in the OS keyring (Keychain, Secret Service,
// Credential Manager) via zalando/go-keyring.
type KeyringManager struct {
	mu sync.Mutex
}

// NewKeyringManager creates a keyring-backed secrets manager. It fails when
// no keyring backend is usable so the caller can fall back.
func NewKeyringManager() (*KeyringManager, error) {
	m := &KeyringManager{}
	if _, err := m.loadIndex(); err != nil {
		return nil, fmt.Errorf("keyring is not available: %w", err)
	}
	return m, nil
}

func (*KeyringManager) loadIndex() (map[string]bool, error) {
	raw, err := keyring.Get(keyringService, indexEntry)
	if errors.Is(err, keyring.ErrNotFound) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, err
	}
	index := map[string]bool{}
	if err := json.Unmarshal([]byte(raw), &index); err != nil {
		// A corrupt index is replaced; the individual entries stay intact.
		return map[string]bool{}, nil
	}
	return index, nil
}

func (*KeyringManager) saveIndex(index map[string]bool) error {
	raw, err := json.Marshal(index)
	if err != nil {
		return err
	}
	return keyring.Set(keyringService, indexEntry, string(raw))
}

// GetSecret retrieves a secret from the keyring.
func (m *KeyringManager) GetSecret(name string) (string, error) {
	value, err := keyring.Get(keyringService, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read secret %s: %w", name, err)
	}
	return value, nil
}

// SetSecret stores a secret in the keyring and records it in the index.
func (m *KeyringManager) SetSecret(name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := keyring.Set(keyringService, name, value); err != nil {
		return fmt.Errorf("failed to store secret %s: %w", name, err)
	}
	index, err := m.loadIndex()
	if err != nil {
		return err
	}
	index[name] = true
	return m.saveIndex(index)
}

// DeleteSecret removes a secret from the keyring and the index.
func (m *KeyringManager) DeleteSecret(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := keyring.Delete(keyringService, name)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete secret %s: %w", name, err)
	}
	index, loadErr := m.loadIndex()
	if loadErr != nil {
		return loadErr
	}
	delete(index, name)
	if saveErr := m.saveIndex(index); saveErr != nil {
		return saveErr
	}
	if errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	return nil
}

// ListSecrets returns the sorted names of stored secrets.
func (m *KeyringManager) ListSecrets() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	index, err := m.loadIndex()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(index))
	for name := range index {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Cleanup is a no-op for the keyring manager.
func (*KeyringManager) Cleanup() error {
	return nil
}
