// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package mcptoolset exposes the tools of a remote MCP server as a
// tool.Toolset.
//
// The connection uses the streamable HTTP transport and is established
// lazily, the first time Tools is called.
package mcptoolset

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kadirpekel/shopwatch/pkg/tool"
)

// Config configures an MCP toolset.
type Config struct {
	// Name identifies this toolset.
	Name string

	// URL is the streamable HTTP endpoint, e.g. http://localhost:8081/mcp.
	URL string

	// Headers are sent with every request.
	Headers map[string]string

	// Filter limits which tools are exposed. Empty exposes all.
	Filter []string

	// ClientName and ClientVersion are reported during initialisation.
	ClientName    string
	ClientVersion string
}

// Toolset is an MCP-backed toolset with lazy initialization.
type Toolset struct {
	cfg       Config
	filterSet map[string]bool
	logger    *slog.Logger

	mu        sync.Mutex
	client    *client.Client
	tools     []tool.Tool
	connected bool
}

// New creates a new MCP toolset. No connection is made.
func New(cfg Config) (*Toolset, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("mcp url is required")
	}
	if cfg.Name == "" {
		cfg.Name = cfg.URL
	}
	if cfg.ClientName == "" {
		cfg.ClientName = "shopwatch"
	}
	if cfg.ClientVersion == "" {
		cfg.ClientVersion = "dev"
	}

	var filterSet map[string]bool
	if len(cfg.Filter) > 0 {
		filterSet = make(map[string]bool, len(cfg.Filter))
		for _, name := range cfg.Filter {
			filterSet[name] = true
		}
	}

	return &Toolset{cfg: cfg, filterSet: filterSet, logger: slog.Default()}, nil
}

// Name returns the toolset name.
func (t *Toolset) Name() string {
	return t.cfg.Name
}

// Tools returns the available tools, connecting if needed. A failed
// connection is retried on the next call.
func (t *Toolset) Tools(ctx context.Context) ([]tool.Tool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		if err := t.connect(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to MCP server %s: %w", t.cfg.URL, err)
		}
	}
	return t.tools, nil
}

// WithFilter returns a view of this toolset restricted to the named tools.
// The view shares the underlying connection.
func (t *Toolset) WithFilter(filter []string) tool.Toolset {
	filterSet := make(map[string]bool, len(filter))
	for _, name := range filter {
		filterSet[name] = true
	}
	return &filteredToolset{parent: t, filterSet: filterSet}
}

type filteredToolset struct {
	parent    *Toolset
	filterSet map[string]bool
}

func (f *filteredToolset) Name() string {
	return f.parent.Name()
}

func (f *filteredToolset) Tools(ctx context.Context) ([]tool.Tool, error) {
	tools, err := f.parent.Tools(ctx)
	if err != nil {
		return nil, err
	}
	var filtered []tool.Tool
	for _, t := range tools {
		if f.filterSet[t.Name()] {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

func (t *Toolset) connect(ctx context.Context) error {
	var opts []transport.StreamableHTTPCOption
	if len(t.cfg.Headers) > 0 {
		opts = append(opts, transport.WithHTTPHeaders(t.cfg.Headers))
	}

	c, err := client.NewStreamableHttpClient(t.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("failed to create MCP client: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return fmt.Errorf("failed to start MCP client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    t.cfg.ClientName,
		Version: t.cfg.ClientVersion,
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		_ = c.Close()
		return fmt.Errorf("failed to initialize MCP: %w", err)
	}

	listResp, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		_ = c.Close()
		return fmt.Errorf("failed to list tools: %w", err)
	}

	var tools []tool.Tool
	for _, mt := range listResp.Tools {
		if t.filterSet != nil && !t.filterSet[mt.Name] {
			continue
		}
		tools = append(tools, &mcpTool{
			toolset: t,
			name:    mt.Name,
			desc:    mt.Description,
			schema:  convertSchema(mt.InputSchema),
		})
	}

	t.client = c
	t.tools = tools
	t.connected = true

	t.logger.Info("Connected to MCP server", "name", t.cfg.Name, "url", t.cfg.URL, "tools", len(tools))
	return nil
}

func (t *Toolset) currentClient() *client.Client {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client
}

// Close closes the MCP connection. The toolset reconnects on next use.
func (t *Toolset) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var err error
	if t.client != nil {
		err = t.client.Close()
	}
	t.client = nil
	t.tools = nil
	t.connected = false
	return err
}

// mcpTool wraps a remote MCP tool as a tool.CallableTool.
type mcpTool struct {
	toolset *Toolset
	name    string
	desc    string
	schema  map[string]any
}

func (w *mcpTool) Name() string           { return w.name }
func (w *mcpTool) Description() string    { return w.desc }
func (w *mcpTool) Schema() map[string]any { return w.schema }

// Call invokes the remote tool. A tool-level error is returned as an
// "error" entry, not as a Go error, so the LLM can react to it.
func (w *mcpTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	c := w.toolset.currentClient()
	if c == nil {
		return nil, fmt.Errorf("MCP client not connected")
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = w.name
	req.Params.Arguments = args

	resp, err := c.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("MCP call %s failed: %w", w.name, err)
	}
	return parseToolResponse(resp), nil
}

func parseToolResponse(resp *mcp.CallToolResult) map[string]any {
	var texts []string
	for _, content := range resp.Content {
		switch c := content.(type) {
		case mcp.TextContent:
			texts = append(texts, c.Text)
		case *mcp.TextContent:
			texts = append(texts, c.Text)
		}
	}

	result := make(map[string]any)
	if resp.IsError {
		result["error"] = "unknown error"
		if len(texts) > 0 {
			result["error"] = texts[0]
		}
		return result
	}
	switch len(texts) {
	case 0:
	case 1:
		result["result"] = texts[0]
	default:
		result["results"] = texts
	}
	return result
}

func convertSchema(schema mcp.ToolInputSchema) map[string]any {
	out := map[string]any{"type": schema.Type}
	if out["type"] == "" {
		out["type"] = "object"
	}
	props := schema.Properties
	if props == nil {
		props = map[string]any{}
	}
	out["properties"] = props
	if len(schema.Required) > 0 {
		out["required"] = schema.Required
	}
	return out
}

var (
	_ tool.Toolset      = (*Toolset)(nil)
	_ tool.CallableTool = (*mcpTool)(nil)
)
