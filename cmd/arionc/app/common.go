// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/GeoRetina/arion-connectors/pkg/config"
	"github.com/GeoRetina/arion-connectors/pkg/connector/executor"
	"github.com/GeoRetina/arion-connectors/pkg/connector/native"
	"github.com/GeoRetina/arion-connectors/pkg/connector/policy"
	"github.com/GeoRetina/arion-connectors/pkg/connector/registry"
	"github.com/GeoRetina/arion-connectors/pkg/connector/remote"
	"github.com/GeoRetina/arion-connectors/pkg/connector/runlog"
	"github.com/GeoRetina/arion-connectors/pkg/connector/wiring"
	"github.com/GeoRetina/arion-connectors/pkg/logger"
	"github.com/GeoRetina/arion-connectors/pkg/mcpbus"
	"github.com/GeoRetina/arion-connectors/pkg/secrets"
	"github.com/GeoRetina/arion-connectors/pkg/telemetry"
)

// serviceBundle holds everything a command needs to execute capabilities.
type serviceBundle struct {
	Service  *executor.Service
	Provider *config.Provider
	Bus      *mcpbus.Bus
	Registry *prometheus.Registry
}

// Close tears down remote connections.
func (b *serviceBundle) Close() {
	if b.Bus != nil {
		b.Bus.Close()
	}
}

// buildService wires the execution service the way the serve and run
// commands need it. dialRemote controls whether configured MCP servers are
// connected; one-shot inspection commands skip it.
func buildService(ctx context.Context, dialRemote bool) (*serviceBundle, error) {
	store := config.NewLocalStore("")
	provider := config.NewProvider(store, secrets.NewDefaultManager())
	policyService := policy.NewService(provider)

	bus := mcpbus.NewBus()
	if dialRemote {
		cfg, err := store.Load(ctx)
		if err != nil {
			return nil, err
		}
		for _, server := range cfg.MCPServers {
			if err := bus.Connect(ctx, mcpbus.ServerConfig{
				ID:        server.ID,
				URL:       server.URL,
				Transport: server.Transport,
			}); err != nil {
				logger.Warnf("skipping MCP server %s: %v", server.ID, err)
			}
		}
	}

	blocked := func() map[string]bool {
		names := policyService.GetConfig().BlockedRemoteToolNames
		set := make(map[string]bool, len(names))
		for _, name := range names {
			set[name] = true
		}
		return set
	}

	reg := registry.NewRegistry()
	wiring.RegisterAll(reg,
		native.New(provider, nil),
		remote.New(bus, remote.WithBlockedTools(blocked)),
	)

	promRegistry := prometheus.NewRegistry()
	service := executor.New(reg, policyService, runlog.NewLogger(0),
		executor.WithMetrics(telemetry.NewMetrics(promRegistry)))

	return &serviceBundle{
		Service:  service,
		Provider: provider,
		Bus:      bus,
		Registry: promRegistry,
	}, nil
}
