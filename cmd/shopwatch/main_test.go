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
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/shopwatch/pkg/config"
	"github.com/kadirpekel/shopwatch/pkg/registry"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shopwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestSetup_CLIOverridesLogConfig(t *testing.T) {
	path := writeConfig(t, "log:\n  level: warn\n")
	logFile := filepath.Join(t.TempDir(), "shopwatch.log")

	e, err := setup(&CLI{ConfigFile: path, LogLevel: "debug", LogFile: logFile, LogFormat: "json"})
	require.NoError(t, err)
	defer e.close()

	assert.Equal(t, "debug", e.cfg.Log.Level)
	assert.Equal(t, "json", e.cfg.Log.Format)
	assert.FileExists(t, logFile)
}

func TestSetup_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "delegation:\n  mode: sideways\n")
	_, err := setup(&CLI{ConfigFile: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delegation.mode")
}

func TestSetup_InvalidLogLevel(t *testing.T) {
	_, err := setup(&CLI{LogLevel: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestPrintConfig_MasksSecrets(t *testing.T) {
	for _, name := range []string{"OPENAI_API_KEY", "RAPID_API_KEY", "SHOPWATCH_LLM__API_KEY"} {
		t.Setenv(name, "")
	}
	path := writeConfig(t, "llm:\n  api_key: sk-very-secret-key\nscraper:\n  api_key: rapid-secret-key\n")
	e, err := setup(&CLI{ConfigFile: path})
	require.NoError(t, err)
	defer e.close()

	var buf bytes.Buffer
	require.NoError(t, printConfig(&buf, e))

	out := buf.String()
	assert.Contains(t, out, "delegation:")
	assert.Contains(t, out, "call_timeout: 1m0s")
	assert.Contains(t, out, "sk-v****")
	assert.NotContains(t, out, "sk-very-secret-key")
	assert.NotContains(t, out, "rapid-secret-key")
}

func TestBindFlags_Apply(t *testing.T) {
	base := config.ServerConfig{Host: "0.0.0.0", Port: 8001}

	assert.Equal(t, base, BindFlags{}.apply(base))
	assert.Equal(t, config.ServerConfig{Host: "127.0.0.1", Port: 8001}, BindFlags{Host: "127.0.0.1"}.apply(base))
	assert.Equal(t, config.ServerConfig{Host: "0.0.0.0", Port: 9000}, BindFlags{Port: 9000}.apply(base))
}

func TestNewInvoker_Selection(t *testing.T) {
	e, err := setup(&CLI{})
	require.NoError(t, err)
	defer e.close()

	_, err = newInvoker(e, "")
	require.NoError(t, err)
	_, err = newInvoker(e, "penultimate")
	require.NoError(t, err)
	_, err = newInvoker(e, "first")
	require.Error(t, err)
}

func TestPrintDescriptors(t *testing.T) {
	var buf bytes.Buffer
	printDescriptors(&buf, []registry.Descriptor{{
		Name:     "price_scraper_agent",
		URL:      "http://localhost:10000",
		CardName: "Price Scraper Agent",
		Skills:   []registry.Skill{{ID: "get_product_price", Name: "Get product price"}},
	}}, 3)

	out := buf.String()
	assert.Contains(t, out, "1 of 3 agents reachable")
	assert.Contains(t, out, "price_scraper_agent (http://localhost:10000)")
	assert.Contains(t, out, "- get_product_price: Get product price")
}
