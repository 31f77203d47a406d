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
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
)

var envVarPatterns = struct {
	withDefault *regexp.Regexp
	braced      *regexp.Regexp
	simple      *regexp.Regexp
}{
	withDefault: regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*):-(.*?)\}`),
	braced:      regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`),
	simple:      regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`),
}

// expandEnvVars resolves ${VAR:-default}, ${VAR} and $VAR against the
// process environment. Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}

	s = envVarPatterns.withDefault.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarPatterns.withDefault.FindStringSubmatch(match)
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		return parts[2]
	})
	s = envVarPatterns.braced.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPatterns.braced.FindStringSubmatch(match)[1])
	})
	s = envVarPatterns.simple.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPatterns.simple.FindStringSubmatch(match)[1])
	})
	return s
}

// LoadDotEnv reads .env.local and .env from the working directory. Variables
// already present in the environment are left untouched.
func LoadDotEnv() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// legacyEnv maps the variable names the agents were historically deployed
// with onto configuration keys.
var legacyEnv = []struct {
	key  string
	vars []string
}{
	{"agents." + PriceAgent + ".url", []string{"PRICE_A2A_SERVER_URL"}},
	{"agents." + ReviewAgent + ".url", []string{"REVIEW_A2A_SERVER_URL"}},
	{"agents." + StockAgent + ".url", []string{"STOCK_A2A_SERVER_URL"}},
	{"host.host", []string{"A2A_HOST_HOST"}},
	{"host.port", []string{"A2A_HOST_PORT"}},
	{"scraper.api_key", []string{"RAPID_API_KEY"}},
}

// providerKeyEnv lists the API key variables for each LLM provider.
var providerKeyEnv = map[string][]string{
	"openai":    {"OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
