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

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"PRICE_A2A_SERVER_URL", "REVIEW_A2A_SERVER_URL", "STOCK_A2A_SERVER_URL",
		"A2A_HOST_HOST", "A2A_HOST_PORT", "RAPID_API_KEY",
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY",
	} {
		t.Setenv(name, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shopwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.Delegation.CallTimeout)
	assert.Equal(t, 90*time.Second, cfg.Delegation.WaitTimeout)
	assert.Equal(t, 8, cfg.Delegation.MaxDetached)
	assert.Equal(t, ModeInline, cfg.Delegation.Mode)
	assert.Equal(t, SelectionLastAnswer, cfg.Delegation.Selection)
	assert.Equal(t, 8001, cfg.Host.Port)
	assert.Equal(t, 10000, cfg.Specialists[KindPrice].Port)
	assert.Equal(t, "http://localhost:8082/mcp", cfg.Specialists[KindReview].MCPURL)
	assert.Equal(t, 8083, cfg.MCP[KindStock].Port)
	assert.Equal(t, "60607", cfg.Scraper.SearchGeo)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileWithExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("PRICE_HOST", "price.internal")

	path := writeFile(t, `
delegation:
  call_timeout: 5s
  wait_timeout: 7s
  mode: detached
agents:
  price_scraper_agent:
    url: http://${PRICE_HOST}:10000
  review_analyser_agent:
    url: ${REVIEW_URL:-http://localhost:10001}
  stock_tracker_agent:
    url: http://localhost:10002
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Delegation.CallTimeout)
	assert.Equal(t, 7*time.Second, cfg.Delegation.WaitTimeout)
	assert.Equal(t, ModeDetached, cfg.Delegation.Mode)
	assert.Equal(t, "http://price.internal:10000", cfg.Agents[PriceAgent].URL)
	assert.Equal(t, "http://localhost:10001", cfg.Agents[ReviewAgent].URL)
	assert.NoError(t, cfg.ValidatePeers())
	assert.Len(t, cfg.PeerURLs(), 3)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PRICE_A2A_SERVER_URL", "http://localhost:10000")
	t.Setenv("A2A_HOST_PORT", "9001")
	t.Setenv("SHOPWATCH_DELEGATION__CALL_TIMEOUT", "30s")
	t.Setenv("SHOPWATCH_AGENTS__STOCK_TRACKER_AGENT__URL", "http://stock:10002")
	t.Setenv("SHOPWATCH_LLM__PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:10000", cfg.Agents[PriceAgent].URL)
	assert.Equal(t, "http://stock:10002", cfg.Agents[StockAgent].URL)
	assert.Equal(t, 9001, cfg.Host.Port)
	assert.Equal(t, 30*time.Second, cfg.Delegation.CallTimeout)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "sk-ant-secret", cfg.LLM.APIKey)
}

func TestLoad_EmptyEnvKeepsFileValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHOPWATCH_DELEGATION__MODE", "")
	t.Setenv("SHOPWATCH_LLM__API_KEY", "")

	path := writeFile(t, `
delegation:
  mode: detached
llm:
  api_key: sk-from-yaml
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ModeDetached, cfg.Delegation.Mode)
	assert.Equal(t, "sk-from-yaml", cfg.LLM.APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidatePeers(t *testing.T) {
	clearEnv(t)
	t.Setenv("PRICE_A2A_SERVER_URL", "http://localhost:10000")

	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.ValidatePeers()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingPeerURL))
	assert.Contains(t, err.Error(), ReviewAgent)
	assert.Contains(t, err.Error(), "REVIEW_A2A_SERVER_URL")
	assert.Contains(t, err.Error(), StockAgent)
	assert.NotContains(t, err.Error(), PriceAgent)
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"wait below call", func(c *Config) { c.Delegation.WaitTimeout = c.Delegation.CallTimeout }, "wait_timeout"},
		{"bad mode", func(c *Config) { c.Delegation.Mode = "threaded" }, "delegation.mode"},
		{"bad selection", func(c *Config) { c.Delegation.Selection = "first" }, "delegation.selection"},
		{"bad provider", func(c *Config) { c.LLM.Provider = "ollama" }, "llm.provider"},
		{"bad exporter", func(c *Config) {
			c.Observability.Tracing.Enabled = true
			c.Observability.Tracing.Exporter = "jaeger"
		}, "exporter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SW_SET", "value")
	t.Setenv("SW_EMPTY", "")

	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"${SW_SET}", "value"},
		{"$SW_SET/path", "value/path"},
		{"${SW_EMPTY:-fallback}", "fallback"},
		{"${SW_SET:-fallback}", "value"},
		{"${SW_UNSET_VAR}", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, expandEnvVars(tt.in), tt.in)
	}
}

func TestRedacted(t *testing.T) {
	cfg := Config{}
	cfg.LLM.APIKey = "sk-1234567890"
	cfg.Scraper.APIKey = "short"

	r := cfg.Redacted()
	assert.Equal(t, "sk-1****", r.LLM.APIKey)
	assert.Equal(t, "****", r.Scraper.APIKey)
	assert.Equal(t, "sk-1234567890", cfg.LLM.APIKey)
}

func TestServerConfig_PublicURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8001", ServerConfig{Host: "0.0.0.0", Port: 8001}.PublicURL())
	assert.Equal(t, "http://agents.local:10000", ServerConfig{Host: "agents.local", Port: 10000}.PublicURL())
	assert.Equal(t, "0.0.0.0:8001", ServerConfig{Host: "0.0.0.0", Port: 8001}.Address())
}
