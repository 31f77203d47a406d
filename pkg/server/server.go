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

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kadirpekel/shopwatch/pkg/observability"
)

// LegacyAgentCardPath is the card location used by older A2A clients.
const LegacyAgentCardPath = "/.well-known/agent.json"

const shutdownTimeout = 5 * time.Second

// Config configures a Server.
type Config struct {
	// Address is the listen address (host:port).
	Address string
	Card    *a2a.AgentCard
	// Executor runs tasks.
	Executor a2asrv.AgentExecutor
	// Metrics is optional. Its handler is mounted at MetricsPath.
	Metrics     *observability.Metrics
	MetricsPath string
	Logger      *slog.Logger
}

// Server is an A2A HTTP server for one agent.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	handler http.Handler
	server  *http.Server
}

// New builds the server and its routes. It does not listen.
func New(cfg Config) (*Server, error) {
	if cfg.Card == nil {
		return nil, fmt.Errorf("agent card is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, logger: logger}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	requestHandler := a2asrv.NewHandler(s.cfg.Executor)
	jsonrpc := a2asrv.NewJSONRPCHandler(requestHandler)
	card := a2asrv.NewStaticAgentCardHandler(s.cfg.Card)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(observability.HTTPMiddleware(s.cfg.Metrics))

	r.Handle(a2asrv.WellKnownAgentCardPath, card)
	r.Handle(LegacyAgentCardPath, card)
	r.Post("/", jsonrpc.ServeHTTP)
	r.Get("/", card.ServeHTTP)
	r.Get("/health", s.handleHealth)
	if s.cfg.Metrics != nil && s.cfg.MetricsPath != "" {
		r.Handle(s.cfg.MetricsPath, s.cfg.Metrics.Handler())
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "agent": s.cfg.Card.Name})
}

// Run listens on Config.Address until ctx is done, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("A2A server starting",
		"agent", s.cfg.Card.Name, "address", ln.Addr().String(), "url", s.cfg.Card.URL)
	for _, skill := range s.cfg.Card.Skills {
		s.logger.Info("Skill", "id", skill.ID, "name", skill.Name, "tags", skill.Tags)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	s.logger.Info("A2A server shutting down", "agent", s.cfg.Card.Name)
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP shutdown error: %w", err)
	}
	return nil
}
