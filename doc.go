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

// Package shopwatch is a small multi-agent shopping assistant.
//
// A host orchestrator delegates natural-language tasks over A2A to three
// specialist agents (price, reviews, stock). Each specialist calls MCP tools
// that wrap an Amazon scraping API.
//
// # Quick Start
//
// Start the MCP servers, the specialists and the host:
//
//	shopwatch mcp price &
//	shopwatch mcp review &
//	shopwatch mcp stock &
//	shopwatch serve specialist price &
//	shopwatch serve specialist review &
//	shopwatch serve specialist stock &
//	PRICE_A2A_SERVER_URL=http://localhost:10000 \
//	REVIEW_A2A_SERVER_URL=http://localhost:10001 \
//	STOCK_A2A_SERVER_URL=http://localhost:10002 \
//	shopwatch serve host
//
// Delegate a task without the host model:
//
//	shopwatch delegate price_scraper_agent "price of wireless headphones"
//
// # Packages
//
//   - pkg/registry: static agent name to URL table
//   - pkg/remote: A2A invocation client and result selection
//   - pkg/delegation: tool-facing delegation with timeouts
//   - pkg/agent: LLM tool-calling loop
//   - pkg/server: A2A server for an agent
//   - pkg/scraper, pkg/mcpserver: the scraping API and its MCP tools
//   - pkg/config, pkg/logger, pkg/observability: ambient plumbing
package shopwatch
