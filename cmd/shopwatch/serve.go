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

package main

import (
	"context"
	"fmt"

	"github.com/kadirpekel/shopwatch"
	"github.com/kadirpekel/shopwatch/pkg/agent"
	"github.com/kadirpekel/shopwatch/pkg/config"
	"github.com/kadirpekel/shopwatch/pkg/delegation"
	"github.com/kadirpekel/shopwatch/pkg/model/providers"
	"github.com/kadirpekel/shopwatch/pkg/registry"
	"github.com/kadirpekel/shopwatch/pkg/remote"
	"github.com/kadirpekel/shopwatch/pkg/roster"
	"github.com/kadirpekel/shopwatch/pkg/server"
	"github.com/kadirpekel/shopwatch/pkg/tool"
	"github.com/kadirpekel/shopwatch/pkg/tool/mcptoolset"
)

// ServeCmd runs an A2A agent server.
type ServeCmd struct {
	Host       ServeHostCmd       `cmd:"" help:"Run the host orchestrator."`
	Specialist ServeSpecialistCmd `cmd:"" help:"Run a specialist agent."`
}

// BindFlags override the configured bind address.
type BindFlags struct {
	Host string `help:"Bind host."`
	Port int    `help:"Bind port."`
}

func (b BindFlags) apply(sc config.ServerConfig) config.ServerConfig {
	if b.Host != "" {
		sc.Host = b.Host
	}
	if b.Port != 0 {
		sc.Port = b.Port
	}
	return sc
}

// ServeHostCmd runs the orchestrator.
type ServeHostCmd struct {
	BindFlags `embed:""`
}

// Run implements the serve host command.
func (c *ServeHostCmd) Run(cli *CLI) error {
	e, err := setup(cli)
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.cfg.ValidatePeers(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	if err := e.observe(ctx, "host"); err != nil {
		return err
	}

	reg, err := registry.New(e.cfg.PeerURLs())
	if err != nil {
		return err
	}
	inv, err := newInvoker(e, "")
	if err != nil {
		return err
	}
	d := delegation.New(delegation.ConfigFrom(e.cfg.Delegation), reg, inv,
		delegation.WithLogger(e.logger),
		delegation.WithMetrics(e.metrics),
	)
	tools, err := delegation.Tools(d, inv, reg)
	if err != nil {
		return err
	}

	def := roster.Host()
	a, err := newAgent(e, def, tools, nil)
	if err != nil {
		return err
	}

	bind := c.apply(e.cfg.Host)
	e.logger.Info("Starting host agent", "address", bind.Address(), "peers", reg.Names())
	return serveAgent(ctx, e, def, bind, a)
}

// ServeSpecialistCmd runs one specialist.
type ServeSpecialistCmd struct {
	Kind      string `arg:"" enum:"price,review,stock" help:"Specialist kind (price, review, stock)."`
	BindFlags `embed:""`
	MCPURL    string `name:"mcp-url" help:"MCP server endpoint." env:"MCP_SERVER_URL"`
}

// Run implements the serve specialist command.
func (c *ServeSpecialistCmd) Run(cli *CLI) error {
	e, err := setup(cli)
	if err != nil {
		return err
	}
	defer e.close()

	def, err := roster.Specialist(c.Kind)
	if err != nil {
		return err
	}
	sc, err := e.cfg.Specialist(c.Kind)
	if err != nil {
		return err
	}
	if c.MCPURL != "" {
		sc.MCPURL = c.MCPURL
	}
	if sc.MCPURL == "" {
		return fmt.Errorf("no MCP server url for %s (set specialists.%s.mcp_url or --mcp-url)", c.Kind, c.Kind)
	}

	ctx, cancel := signalContext()
	defer cancel()
	if err := e.observe(ctx, c.Kind); err != nil {
		return err
	}

	ts, err := mcptoolset.New(mcptoolset.Config{
		Name:          c.Kind + "_scraper",
		URL:           sc.MCPURL,
		Filter:        def.Tools,
		ClientName:    def.Name,
		ClientVersion: shopwatch.GetVersion().Version,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := ts.Close(); err != nil {
			e.logger.Warn("Failed to close MCP toolset", "error", err)
		}
	}()

	a, err := newAgent(e, def, nil, []tool.Toolset{ts})
	if err != nil {
		return err
	}

	bind := c.apply(sc.Server())
	e.logger.Info("Starting specialist agent", "agent", def.Name, "address", bind.Address(), "mcp", sc.MCPURL)
	return serveAgent(ctx, e, def, bind, a)
}

// newInvoker builds the remote invocation client. A non-empty selection
// overrides the configured strategy.
func newInvoker(e *env, selection string) (*remote.Invoker, error) {
	if selection == "" {
		selection = e.cfg.Delegation.Selection
	}
	sel, err := remote.ParseSelection(selection)
	if err != nil {
		return nil, err
	}
	return remote.New(
		remote.WithSelection(sel),
		remote.WithStripCodeFences(e.cfg.Delegation.StripFences),
		remote.WithLogger(e.logger),
	), nil
}

func newAgent(e *env, def roster.Definition, tools []tool.Tool, toolsets []tool.Toolset) (*agent.Agent, error) {
	llm, err := providers.New(e.cfg.LLM, e.metrics)
	if err != nil {
		return nil, err
	}
	return agent.New(agent.Config{
		Name:        def.Name,
		Description: def.Description,
		Instruction: def.Instruction,
		Model:       llm,
		Tools:       tools,
		Toolsets:    toolsets,
		MaxSteps:    e.cfg.LLM.MaxSteps,
		Logger:      e.logger,
		Metrics:     e.metrics,
	})
}

func serveAgent(ctx context.Context, e *env, def roster.Definition, bind config.ServerConfig, a *agent.Agent) error {
	srv, err := server.New(server.Config{
		Address:     bind.Address(),
		Card:        def.Card(bind.PublicURL(), shopwatch.GetVersion().Version),
		Executor:    server.NewExecutor(a, e.logger),
		Metrics:     e.metrics,
		MetricsPath: e.metricsPath(),
		Logger:      e.logger,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
