// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package registry implements the capability routing table: an ordered list
// of adapter registrations per (integration, capability) key with stable,
// deterministic tie-breaks.
package registry

import (
	"sort"
	"sync"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
)

// DefaultPriority is assigned to registrations that do not set one.
const DefaultPriority = 100

// Route is one adapter registration for a routing key.
type Route struct {
	Integration connector.IntegrationID
	Capability  connector.Capability
	Adapter     connector.Adapter
	Description string
	Sensitivity connector.Sensitivity
	Priority    int
}

// Key returns the route's routing key.
func (r Route) Key() connector.RoutingKey {
	return connector.RoutingKey{Integration: r.Integration, Capability: r.Capability}
}

// Registration is the input to Register. Zero values get defaults: priority
// 100, sensitivity "normal".
type Registration struct {
	Integration connector.IntegrationID
	Capability  connector.Capability
	Adapter     connector.Adapter
	Description string
	Sensitivity connector.Sensitivity
	Priority    int
}

// CapabilityInfo is the per-key aggregate returned by ListCapabilities.
type CapabilityInfo struct {
	Integration connector.IntegrationID `json:"integrationId"`
	Capability  connector.Capability    `json:"capability"`
	Backends    []connector.Backend     `json:"backends"`
	Sensitivity connector.Sensitivity   `json:"sensitivity"`
	Description string                  `json:"description,omitempty"`
}

// Registry is the append-only routing table. Reads may run concurrently with
// appends; the per-key ordered list is maintained under a read-write lock.
type Registry struct {
	mu     sync.RWMutex
	routes map[connector.RoutingKey][]Route
}

// NewRegistry creates an empty routing table.
func NewRegistry() *Registry {
	return &Registry{routes: make(map[connector.RoutingKey][]Route)}
}

// backendRank positions a backend within the default preference order.
// Unknown backends sort last.
func backendRank(b connector.Backend) int {
	for i, known := range connector.DefaultBackendOrder() {
		if b == known {
			return i
		}
	}
	return len(connector.DefaultBackendOrder())
}

// Register appends a route and re-sorts its key's list by the default
// backend order, then ascending priority. Registration order is the final
// tie-break. Duplicate (adapter, key) pairs are allowed; callers are
// responsible for not registering logical duplicates.
func (r *Registry) Register(reg Registration) {
	route := Route{
		Integration: reg.Integration,
		Capability:  reg.Capability,
		Adapter:     reg.Adapter,
		Description: reg.Description,
		Sensitivity: reg.Sensitivity,
		Priority:    reg.Priority,
	}
	if route.Priority == 0 {
		route.Priority = DefaultPriority
	}
	if route.Sensitivity == "" {
		route.Sensitivity = connector.SensitivityNormal
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := route.Key()
	routes := append(r.routes[key], route)
	sort.SliceStable(routes, func(i, j int) bool {
		ri, rj := backendRank(routes[i].Adapter.Backend()), backendRank(routes[j].Adapter.Backend())
		if ri != rj {
			return ri < rj
		}
		return routes[i].Priority < routes[j].Priority
	})
	r.routes[key] = routes
}

// Resolve returns the ordered routes for a key. Routes whose backend is in
// denied, and routes whose adapter does not support the key, are dropped.
// When preferred is non-empty, routes whose backend appears there precede
// the rest, in the listed order; everything else keeps the default backend
// order then ascending priority.
func (r *Registry) Resolve(
	integration connector.IntegrationID,
	capability connector.Capability,
	preferred []connector.Backend,
	denied []connector.Backend,
) []Route {
	key := connector.RoutingKey{Integration: integration, Capability: capability}

	deniedSet := make(map[connector.Backend]bool, len(denied))
	for _, b := range denied {
		deniedSet[b] = true
	}

	r.mu.RLock()
	candidates := r.routes[key]
	filtered := make([]Route, 0, len(candidates))
	for _, route := range candidates {
		if deniedSet[route.Adapter.Backend()] {
			continue
		}
		if !route.Adapter.Supports(key) {
			continue
		}
		filtered = append(filtered, route)
	}
	r.mu.RUnlock()

	if len(preferred) > 0 {
		prefRank := make(map[connector.Backend]int, len(preferred))
		for i, b := range preferred {
			if _, seen := prefRank[b]; !seen {
				prefRank[b] = i
			}
		}
		rank := func(route Route) int {
			if i, ok := prefRank[route.Adapter.Backend()]; ok {
				return i
			}
			return len(preferred)
		}
		sort.SliceStable(filtered, func(i, j int) bool {
			return rank(filtered[i]) < rank(filtered[j])
		})
	}

	return filtered
}

// ListCapabilities returns one aggregate per routing key: the distinct
// backends in route order, "sensitive" iff any route is sensitive, and the
// first non-empty description. Output is sorted by integration then
// capability for stable listings.
func (r *Registry) ListCapabilities() []CapabilityInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]CapabilityInfo, 0, len(r.routes))
	for key, routes := range r.routes {
		info := CapabilityInfo{
			Integration: key.Integration,
			Capability:  key.Capability,
			Sensitivity: connector.SensitivityNormal,
		}
		seen := make(map[connector.Backend]bool)
		for _, route := range routes {
			backend := route.Adapter.Backend()
			if !seen[backend] {
				seen[backend] = true
				info.Backends = append(info.Backends, backend)
			}
			if route.Sensitivity == connector.SensitivitySensitive {
				info.Sensitivity = connector.SensitivitySensitive
			}
			if info.Description == "" && route.Description != "" {
				info.Description = route.Description
			}
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Integration != infos[j].Integration {
			return infos[i].Integration < infos[j].Integration
		}
		return infos[i].Capability < infos[j].Capability
	})
	return infos
}
