// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"strings"
	"sync"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
)

// GlobalScope keys approvals granted outside any chat session.
const GlobalScope = "__global__"

// ApprovalStore tracks session approvals (idempotent within a chat) and
// one-shot approvals (consumed on use). Mutations are compact critical
// sections; evaluation reads a single key.
type ApprovalStore struct {
	mu      sync.Mutex
	session map[string]bool
	once    map[string]int
}

// NewApprovalStore creates an empty approval store.
func NewApprovalStore() *ApprovalStore {
	return &ApprovalStore{
		session: make(map[string]bool),
		once:    make(map[string]int),
	}
}

func approvalKey(scope string, integration connector.IntegrationID, capability connector.Capability) string {
	return fmt.Sprintf("%s:%s:%s", scope, integration, capability)
}

// GrantSession records a session approval. No-op when chatID is empty or
// whitespace, since there is no session to scope the grant to.
func (s *ApprovalStore) GrantSession(chatID string, integration connector.IntegrationID, capability connector.Capability) {
	if strings.TrimSpace(chatID) == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session[approvalKey(chatID, integration, capability)] = true
}

// HasSession reports whether a session approval exists. Lookups never consume.
func (s *ApprovalStore) HasSession(chatID string, integration connector.IntegrationID, capability connector.Capability) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session[approvalKey(chatID, integration, capability)]
}

// GrantOnce increments the one-shot counter for the key. An empty chatID
// scopes the grant globally.
func (s *ApprovalStore) GrantOnce(chatID string, integration connector.IntegrationID, capability connector.Capability) {
	scope := chatID
	if strings.TrimSpace(scope) == "" {
		scope = GlobalScope
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.once[approvalKey(scope, integration, capability)]++
}

// ConsumeOnce decrements the one-shot counter for the key and reports whether
// a grant was available. The entry is removed when the counter reaches zero.
func (s *ApprovalStore) ConsumeOnce(chatID string, integration connector.IntegrationID, capability connector.Capability) bool {
	scope := chatID
	if strings.TrimSpace(scope) == "" {
		scope = GlobalScope
	}
	key := approvalKey(scope, integration, capability)

	s.mu.Lock()
	defer s.mu.Unlock()
	count := s.once[key]
	if count <= 0 {
		return false
	}
	if count == 1 {
		delete(s.once, key)
	} else {
		s.once[key] = count - 1
	}
	return true
}

// Clear removes approvals. With an empty chatID every session and one-shot
// approval is dropped; otherwise only keys scoped to that chat are removed.
func (s *ApprovalStore) Clear(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(chatID) == "" {
		s.session = make(map[string]bool)
		s.once = make(map[string]int)
		return
	}

	prefix := chatID + ":"
	for key := range s.session {
		if strings.HasPrefix(key, prefix) {
			delete(s.session, key)
		}
	}
	for key := range s.once {
		if strings.HasPrefix(key, prefix) {
			delete(s.once, key)
		}
	}
}
