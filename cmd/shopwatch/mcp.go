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
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kadirpekel/shopwatch"
	"github.com/kadirpekel/shopwatch/pkg/mcpserver"
	"github.com/kadirpekel/shopwatch/pkg/scraper"
)

const mcpShutdownTimeout = 5 * time.Second

// MCPCmd runs the scraper MCP server for one specialist kind.
type MCPCmd struct {
	Kind string `arg:"" enum:"price,review,stock" help:"Tool set to serve (price, review, stock)."`
	Host string `help:"Bind host."`
	Port int    `help:"Bind port." env:"PORT"`
}

// Run implements the mcp command.
func (c *MCPCmd) Run(cli *CLI) error {
	e, err := setup(cli)
	if err != nil {
		return err
	}
	defer e.close()

	bind, err := e.cfg.MCPServer(c.Kind)
	if err != nil {
		return err
	}
	if c.Host != "" {
		bind.Host = c.Host
	}
	if c.Port != 0 {
		bind.Port = c.Port
	}

	ctx, cancel := signalContext()
	defer cancel()
	if err := e.observe(ctx, "mcp-"+c.Kind); err != nil {
		return err
	}

	if e.cfg.Scraper.APIKey == "" {
		e.logger.Warn("No scraper API key configured; every lookup will come back empty")
	}
	sc, err := scraper.New(e.cfg.Scraper, scraper.WithLogger(e.logger), scraper.WithMetrics(e.metrics))
	if err != nil {
		return err
	}
	defer sc.Close()

	mcp, err := mcpserver.New(c.Kind, shopwatch.GetVersion().Version, sc, e.logger)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	if path := e.metricsPath(); path != "" {
		r.Handle(path, e.metrics.Handler())
	}
	r.Mount("/", mcpserver.Router(mcp, e.metrics))

	ln, err := net.Listen("tcp", bind.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", bind.Address(), err)
	}
	e.logger.Info("Starting MCP server", "kind", c.Kind, "endpoint", bind.PublicURL()+mcpserver.EndpointPath)

	srv := &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	e.logger.Info("Shutting down MCP server", "kind", c.Kind)
	shutdownCtx, done := context.WithTimeout(context.Background(), mcpShutdownTimeout)
	defer done()
	return srv.Shutdown(shutdownCtx)
}
