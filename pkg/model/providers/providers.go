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

// Package providers builds a model.LLM from configuration.
package providers

import (
	"fmt"

	"github.com/kadirpekel/shopwatch/pkg/config"
	"github.com/kadirpekel/shopwatch/pkg/model"
	"github.com/kadirpekel/shopwatch/pkg/model/anthropic"
	"github.com/kadirpekel/shopwatch/pkg/model/gemini"
	"github.com/kadirpekel/shopwatch/pkg/model/openai"
	"github.com/kadirpekel/shopwatch/pkg/observability"
)

// New creates the configured LLM, instrumented with spans and metrics.
// metrics may be nil.
func New(cfg config.LLMConfig, metrics *observability.Metrics) (model.LLM, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: no API key for provider %s", cfg.Provider)
	}
	temperature := cfg.Temperature

	var (
		llm model.LLM
		err error
	)
	switch model.Provider(cfg.Provider) {
	case model.ProviderOpenAI:
		llm, err = openai.New(openai.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: &temperature,
			MaxTokens:   cfg.MaxTokens,
		})
	case model.ProviderAnthropic:
		llm, err = anthropic.New(anthropic.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: &temperature,
			MaxTokens:   cfg.MaxTokens,
		})
	case model.ProviderGemini:
		llm, err = gemini.New(gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: &temperature,
			MaxTokens:   cfg.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model: %w", cfg.Provider, err)
	}
	return model.Instrument(llm, metrics), nil
}
