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
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every structured environment override.
const EnvPrefix = "SHOPWATCH_"

var defaults = map[string]any{
	"log.level":  "info",
	"log.format": "simple",

	"llm.provider":    "openai",
	"llm.temperature": 0.2,
	"llm.max_tokens":  4096,
	"llm.max_steps":   8,

	"host.host": "0.0.0.0",
	"host.port": 8001,

	"delegation.call_timeout": 60 * time.Second,
	"delegation.wait_timeout": 90 * time.Second,
	"delegation.max_detached": 8,
	"delegation.mode":         ModeInline,
	"delegation.selection":    SelectionLastAnswer,
	"delegation.strip_fences": true,

	"specialists.price.host":     "0.0.0.0",
	"specialists.price.port":     10000,
	"specialists.price.mcp_url":  "http://localhost:8081/mcp",
	"specialists.review.host":    "0.0.0.0",
	"specialists.review.port":    10001,
	"specialists.review.mcp_url": "http://localhost:8082/mcp",
	"specialists.stock.host":     "0.0.0.0",
	"specialists.stock.port":     10002,
	"specialists.stock.mcp_url":  "http://localhost:8083/mcp",

	"mcp.price.host":  "0.0.0.0",
	"mcp.price.port":  8081,
	"mcp.review.host": "0.0.0.0",
	"mcp.review.port": 8082,
	"mcp.stock.host":  "0.0.0.0",
	"mcp.stock.port":  8083,

	"scraper.base_url":    "https://amazon-data-scraper-api3.p.rapidapi.com",
	"scraper.api_host":    "amazon-data-scraper-api3.p.rapidapi.com",
	"scraper.timeout":     30 * time.Second,
	"scraper.max_retries": 2,
	"scraper.cache_ttl":   5 * time.Minute,
	"scraper.search_geo":  "60607",
	"scraper.product_geo": "90210",
	"scraper.domain":      "com",

	"observability.service_name":          "shopwatch",
	"observability.metrics.enabled":       true,
	"observability.metrics.path":          "/metrics",
	"observability.tracing.enabled":       false,
	"observability.tracing.exporter":      "otlp",
	"observability.tracing.endpoint":      "localhost:4317",
	"observability.tracing.insecure":      true,
	"observability.tracing.sampling_rate": 1.0,
	"observability.tracing.timeout":       10 * time.Second,
}

// Load builds the configuration from defaults, the optional YAML file at
// path and the environment. It does not validate.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if path != "" {
		fk := koanf.New(".")
		if err := fk.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		for key, val := range fk.All() {
			if s, ok := val.(string); ok {
				val = expandEnvVars(s)
			}
			if err := k.Set(key, val); err != nil {
				return nil, fmt.Errorf("failed to set %s: %w", key, err)
			}
		}
	}

	if err := applyLegacyEnv(k); err != nil {
		return nil, err
	}

	// SHOPWATCH_DELEGATION__CALL_TIMEOUT -> delegation.call_timeout.
	// Empty variables are skipped like the legacy ones.
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		if value == "" {
			return "", nil
		}
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "__", "."), value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = firstEnv(providerKeyEnv[cfg.LLM.Provider]...)
	}
	return &cfg, nil
}

func applyLegacyEnv(k *koanf.Koanf) error {
	for _, le := range legacyEnv {
		if v := firstEnv(le.vars...); v != "" {
			if err := k.Set(le.key, v); err != nil {
				return fmt.Errorf("failed to set %s: %w", le.key, err)
			}
		}
	}
	return nil
}
