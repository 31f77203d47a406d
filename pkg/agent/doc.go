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

// Package agent runs an LLM tool-calling loop.
//
// An Agent alternates between the model and its tools until the model
// answers without calling a tool:
//
//	a, _ := agent.New(agent.Config{
//	    Name:        "price_scraper_agent",
//	    Model:       llm,
//	    Instruction: "You are a price scraper...",
//	    Toolsets:    []tool.Toolset{mcp},
//	})
//	for ev, err := range a.Run(ctx, "price of B0TESTASIN") {
//	    ...
//	}
//
// Run yields a progress event per tool call and per tool result, then one
// answer event. The server package translates them to A2A events.
package agent
