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

// Package config loads and validates shopwatch configuration.
//
// Values are layered in this order, later layers winning:
//
//  1. built-in defaults
//  2. YAML file (optional), with ${VAR}, ${VAR:-default} and $VAR expanded
//  3. well-known environment variables (PRICE_A2A_SERVER_URL, RAPID_API_KEY, ...)
//  4. SHOPWATCH_ prefixed variables, "__" separating nested keys
//     (SHOPWATCH_DELEGATION__CALL_TIMEOUT=30s)
//
// A .env file in the working directory is read first and never overrides
// variables that are already set.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Peer agent names known to the host.
const (
	PriceAgent  = "price_scraper_agent"
	ReviewAgent = "review_analyser_agent"
	StockAgent  = "stock_tracker_agent"
)

// RequiredPeers lists the peers the host cannot start without, in a stable order.
var RequiredPeers = []string{PriceAgent, ReviewAgent, StockAgent}

// peerEnvVars maps each required peer to the environment variable that
// historically carried its URL.
var peerEnvVars = map[string]string{
	PriceAgent:  "PRICE_A2A_SERVER_URL",
	ReviewAgent: "REVIEW_A2A_SERVER_URL",
	StockAgent:  "STOCK_A2A_SERVER_URL",
}

// ErrMissingPeerURL is returned when a required peer has no base URL.
var ErrMissingPeerURL = errors.New("missing peer url")

// Selection strategies for picking the final chunk of a streamed response.
const (
	SelectionLastAnswer  = "last_answer"
	SelectionPenultimate = "penultimate"
)

// Delegation modes.
const (
	ModeInline   = "inline"
	ModeDetached = "detached"
)

// Specialist kinds.
const (
	KindPrice  = "price"
	KindReview = "review"
	KindStock  = "stock"
)

// Kinds lists the specialist kinds in a stable order.
var Kinds = []string{KindPrice, KindReview, KindStock}

// Config is the root configuration.
type Config struct {
	Log           LogConfig                   `koanf:"log" yaml:"log"`
	LLM           LLMConfig                   `koanf:"llm" yaml:"llm"`
	Host          ServerConfig                `koanf:"host" yaml:"host"`
	Delegation    DelegationConfig            `koanf:"delegation" yaml:"delegation"`
	Agents        map[string]PeerConfig       `koanf:"agents" yaml:"agents"`
	Specialists   map[string]SpecialistConfig `koanf:"specialists" yaml:"specialists"`
	Scraper       ScraperConfig               `koanf:"scraper" yaml:"scraper"`
	MCP           map[string]ServerConfig     `koanf:"mcp" yaml:"mcp"`
	Observability ObservabilityConfig         `koanf:"observability" yaml:"observability"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"` // simple, verbose, json
	File   string `koanf:"file" yaml:"file,omitempty"`
}

// LLMConfig selects and configures the language model.
type LLMConfig struct {
	Provider    string  `koanf:"provider" yaml:"provider"` // openai, anthropic, gemini
	Model       string  `koanf:"model" yaml:"model"`       // empty selects the provider default
	APIKey      string  `koanf:"api_key" yaml:"api_key,omitempty"`
	BaseURL     string  `koanf:"base_url" yaml:"base_url,omitempty"`
	Temperature float64 `koanf:"temperature" yaml:"temperature"`
	MaxTokens   int     `koanf:"max_tokens" yaml:"max_tokens"`
	MaxSteps    int     `koanf:"max_steps" yaml:"max_steps"`
}

// ServerConfig is a bind address.
type ServerConfig struct {
	Host string `koanf:"host" yaml:"host"`
	Port int    `koanf:"port" yaml:"port"`
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// PublicURL returns the URL peers use to reach this server. Wildcard hosts
// are advertised as localhost.
func (s ServerConfig) PublicURL() string {
	host := s.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(s.Port))
}

// DelegationConfig tunes the host's delegation adapter.
type DelegationConfig struct {
	// CallTimeout bounds a single remote invocation.
	CallTimeout time.Duration `koanf:"call_timeout" yaml:"call_timeout"`
	// WaitTimeout bounds how long a detached delegation is awaited.
	WaitTimeout time.Duration `koanf:"wait_timeout" yaml:"wait_timeout"`
	// MaxDetached caps detached workers in flight, abandoned ones included.
	MaxDetached int    `koanf:"max_detached" yaml:"max_detached"`
	Mode        string `koanf:"mode" yaml:"mode"`
	Selection   string `koanf:"selection" yaml:"selection"`
	StripFences bool   `koanf:"strip_fences" yaml:"strip_fences"`
}

// PeerConfig locates a remote agent.
type PeerConfig struct {
	URL string `koanf:"url" yaml:"url"`
}

// SpecialistConfig configures a specialist A2A server.
type SpecialistConfig struct {
	Host   string `koanf:"host" yaml:"host"`
	Port   int    `koanf:"port" yaml:"port"`
	MCPURL string `koanf:"mcp_url" yaml:"mcp_url"`
}

// Server returns the bind address of the specialist.
func (s SpecialistConfig) Server() ServerConfig {
	return ServerConfig{Host: s.Host, Port: s.Port}
}

// ScraperConfig configures the upstream scraping API.
type ScraperConfig struct {
	BaseURL    string        `koanf:"base_url" yaml:"base_url"`
	APIKey     string        `koanf:"api_key" yaml:"api_key,omitempty"`
	APIHost    string        `koanf:"api_host" yaml:"api_host"`
	Timeout    time.Duration `koanf:"timeout" yaml:"timeout"`
	MaxRetries int           `koanf:"max_retries" yaml:"max_retries"`
	CacheTTL   time.Duration `koanf:"cache_ttl" yaml:"cache_ttl"`
	SearchGeo  string        `koanf:"search_geo" yaml:"search_geo"`
	ProductGeo string        `koanf:"product_geo" yaml:"product_geo"`
	Domain     string        `koanf:"domain" yaml:"domain"`
}

// ObservabilityConfig configures metrics and tracing.
type ObservabilityConfig struct {
	ServiceName string        `koanf:"service_name" yaml:"service_name"`
	Metrics     MetricsConfig `koanf:"metrics" yaml:"metrics"`
	Tracing     TracingConfig `koanf:"tracing" yaml:"tracing"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Path    string `koanf:"path" yaml:"path"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled      bool          `koanf:"enabled" yaml:"enabled"`
	Exporter     string        `koanf:"exporter" yaml:"exporter"` // otlp, stdout
	Endpoint     string        `koanf:"endpoint" yaml:"endpoint"`
	Insecure     bool          `koanf:"insecure" yaml:"insecure"`
	SamplingRate float64       `koanf:"sampling_rate" yaml:"sampling_rate"`
	Timeout      time.Duration `koanf:"timeout" yaml:"timeout"`
}

// Validate checks invariants that hold for every command.
func (c *Config) Validate() error {
	var errs []error

	d := c.Delegation
	if d.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("delegation.call_timeout must be positive"))
	}
	if d.WaitTimeout <= d.CallTimeout {
		errs = append(errs, fmt.Errorf("delegation.wait_timeout (%s) must exceed call_timeout (%s)", d.WaitTimeout, d.CallTimeout))
	}
	if d.MaxDetached < 1 {
		errs = append(errs, fmt.Errorf("delegation.max_detached must be at least 1"))
	}
	switch d.Mode {
	case ModeInline, ModeDetached:
	default:
		errs = append(errs, fmt.Errorf("delegation.mode %q is not one of %s, %s", d.Mode, ModeInline, ModeDetached))
	}
	switch d.Selection {
	case SelectionLastAnswer, SelectionPenultimate:
	default:
		errs = append(errs, fmt.Errorf("delegation.selection %q is not one of %s, %s", d.Selection, SelectionLastAnswer, SelectionPenultimate))
	}

	switch c.LLM.Provider {
	case "openai", "anthropic", "gemini":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider))
	}
	if c.LLM.MaxSteps < 1 {
		errs = append(errs, fmt.Errorf("llm.max_steps must be at least 1"))
	}

	if c.Observability.Tracing.Enabled {
		switch c.Observability.Tracing.Exporter {
		case "otlp", "stdout":
		default:
			errs = append(errs, fmt.Errorf("observability.tracing.exporter %q is not supported", c.Observability.Tracing.Exporter))
		}
	}

	return errors.Join(errs...)
}

// ValidatePeers reports every required peer without a URL. The host cannot
// run without all of them.
func (c *Config) ValidatePeers() error {
	var errs []error
	for _, name := range RequiredPeers {
		if c.Agents[name].URL == "" {
			errs = append(errs, fmt.Errorf("%w: agent %s (set agents.%s.url or %s)", ErrMissingPeerURL, name, name, peerEnvVars[name]))
		}
	}
	return errors.Join(errs...)
}

// PeerURLs returns the configured peer table.
func (c *Config) PeerURLs() map[string]string {
	peers := make(map[string]string, len(c.Agents))
	for name, peer := range c.Agents {
		if peer.URL != "" {
			peers[name] = peer.URL
		}
	}
	return peers
}

// Specialist returns the configuration for a specialist kind.
func (c *Config) Specialist(kind string) (SpecialistConfig, error) {
	sc, ok := c.Specialists[kind]
	if !ok {
		return SpecialistConfig{}, fmt.Errorf("unknown specialist kind %q", kind)
	}
	return sc, nil
}

// MCPServer returns the bind address of the MCP server for a kind.
func (c *Config) MCPServer(kind string) (ServerConfig, error) {
	sc, ok := c.MCP[kind]
	if !ok {
		return ServerConfig{}, fmt.Errorf("unknown mcp server kind %q", kind)
	}
	return sc, nil
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	c.LLM.APIKey = mask(c.LLM.APIKey)
	c.Scraper.APIKey = mask(c.Scraper.APIKey)
	return c
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}
