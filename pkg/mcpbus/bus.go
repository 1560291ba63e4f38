// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package mcpbus maintains connections to remote MCP servers and exposes
// their tools to the mcp backend adapter.
package mcpbus

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/GeoRetina/arion-connectors/pkg/connector/remote"
	"github.com/GeoRetina/arion-connectors/pkg/logger"
	"github.com/GeoRetina/arion-connectors/pkg/versions"
)

// ServerConfig describes one remote MCP server.
type ServerConfig struct {
	// ID is the stable identifier used in tool routing.
	ID string `json:"id" yaml:"id"`

	// URL is the server's base URL.
	URL string `json:"url" yaml:"url"`

	// Transport selects the client transport: "streamable-http" (default)
	// or "sse".
	Transport string `json:"transport,omitempty" yaml:"transport,omitempty"`
}

type serverConn struct {
	config ServerConfig
	client *mcpclient.Client
	tools  []string
}

// Bus connects to configured MCP servers and serves tool discovery and
// dispatch. It satisfies the remote adapter's ToolBus contract.
type Bus struct {
	mu      sync.RWMutex
	servers map[string]*serverConn
}

// NewBus creates an empty bus. Servers are attached with Connect.
func NewBus() *Bus {
	return &Bus{servers: make(map[string]*serverConn)}
}

// Connect dials a server, runs the Initialize handshake, and caches its
// tool list. Reconnecting an already-connected ID replaces the connection.
func (b *Bus) Connect(ctx context.Context, cfg ServerConfig) error {
	if cfg.ID == "" || cfg.URL == "" {
		return fmt.Errorf("server id and url are required")
	}

	client, err := newMCPClient(cfg)
	if err != nil {
		return err
	}
	if err := client.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start client for %s: %w", cfg.ID, err)
	}

	if _, err := client.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: mcp.Implementation{
				Name:    "arion-connectors",
				Version: versions.Version,
			},
		},
	}); err != nil {
		_ = client.Close()
		return fmt.Errorf("initialize failed for %s: %w", cfg.ID, err)
	}

	tools, err := listToolNames(ctx, client)
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("tool discovery failed for %s: %w", cfg.ID, err)
	}

	b.mu.Lock()
	if existing, ok := b.servers[cfg.ID]; ok {
		_ = existing.client.Close()
	}
	b.servers[cfg.ID] = &serverConn{config: cfg, client: client, tools: tools}
	b.mu.Unlock()

	logger.Infow("connected MCP server", "serverId", cfg.ID, "tools", len(tools))
	return nil
}

func newMCPClient(cfg ServerConfig) (*mcpclient.Client, error) {
	switch strings.ToLower(cfg.Transport) {
	case "", "streamable-http", "streamable":
		client, err := mcpclient.NewStreamableHttpClient(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create streamable-http client for %s: %w", cfg.ID, err)
		}
		return client, nil
	case "sse":
		client, err := mcpclient.NewSSEMCPClient(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create sse client for %s: %w", cfg.ID, err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported transport %q for %s (supported: streamable-http, sse)",
			cfg.Transport, cfg.ID)
	}
}

func listToolNames(ctx context.Context, client *mcpclient.Client) ([]string, error) {
	result, err := client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	return names, nil
}

// RefreshTools re-queries a connected server's tool list.
func (b *Bus) RefreshTools(ctx context.Context, serverID string) error {
	b.mu.RLock()
	conn, ok := b.servers[serverID]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("server %s is not connected", serverID)
	}

	tools, err := listToolNames(ctx, conn.client)
	if err != nil {
		return fmt.Errorf("tool discovery failed for %s: %w", serverID, err)
	}

	b.mu.Lock()
	if current, ok := b.servers[serverID]; ok {
		current.tools = tools
	}
	b.mu.Unlock()
	return nil
}

// Disconnect closes and removes a server connection.
func (b *Bus) Disconnect(serverID string) error {
	b.mu.Lock()
	conn, ok := b.servers[serverID]
	delete(b.servers, serverID)
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("server %s is not connected", serverID)
	}
	return conn.client.Close()
}

// Close tears down every server connection.
func (b *Bus) Close() {
	b.mu.Lock()
	servers := b.servers
	b.servers = make(map[string]*serverConn)
	b.mu.Unlock()

	for id, conn := range servers {
		if err := conn.client.Close(); err != nil {
			logger.Warnf("failed to close MCP server %s: %v", id, err)
		}
	}
}

// GetDiscoveredTools implements the remote adapter's ToolBus contract.
func (b *Bus) GetDiscoveredTools() []remote.DiscoveredTool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var discovered []remote.DiscoveredTool
	for id, conn := range b.servers {
		for _, name := range conn.tools {
			discovered = append(discovered, remote.DiscoveredTool{Name: name, ServerID: id})
		}
	}
	sort.Slice(discovered, func(i, j int) bool {
		if discovered[i].ServerID != discovered[j].ServerID {
			return discovered[i].ServerID < discovered[j].ServerID
		}
		return discovered[i].Name < discovered[j].Name
	})
	return discovered
}

// CallTool implements the remote adapter's ToolBus contract. It prefers a
// tool's structured content and falls back to concatenated text content.
func (b *Bus) CallTool(ctx context.Context, serverID, toolName string, input map[string]any) (any, error) {
	b.mu.RLock()
	conn, ok := b.servers[serverID]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("server %s is not connected", serverID)
	}

	result, err := conn.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: input,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("tool %q call failed on server %s: %w", toolName, serverID, err)
	}
	if result.IsError {
		return nil, fmt.Errorf("tool %q reported an error on server %s: %s",
			toolName, serverID, textContent(result.Content))
	}

	if structured, ok := result.StructuredContent.(map[string]any); ok && structured != nil {
		return structured, nil
	}
	return map[string]any{"content": textContent(result.Content)}, nil
}

func textContent(content []mcp.Content) string {
	var parts []string
	for _, item := range content {
		if text, ok := mcp.AsTextContent(item); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}
