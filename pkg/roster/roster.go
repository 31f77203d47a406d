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

// Package roster holds the static definitions of the host and specialist
// agents: their cards, skills and system prompts.
package roster

import (
	"fmt"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/shopwatch/pkg/config"
	"github.com/kadirpekel/shopwatch/pkg/mcpserver"
)

// HostAgent is the logical name of the orchestrator.
const HostAgent = "host_agent_orchestrator"

// Definition describes one agent.
type Definition struct {
	// Name is the logical name peers use in delegate_task.
	Name string
	// Kind is the specialist kind, empty for the host.
	Kind string
	// DisplayName is the card name.
	DisplayName string
	// Description is the card description.
	Description string
	// Instruction is the system prompt.
	Instruction string
	Skills      []a2a.AgentSkill
	// Tools lists the MCP tools a specialist may call.
	Tools []string
}

// Card builds the A2A card served at url.
func (d Definition) Card(url, version string) *a2a.AgentCard {
	if !strings.HasSuffix(url, "/") {
		url += "/"
	}
	return &a2a.AgentCard{
		Name:               d.DisplayName,
		Description:        d.Description,
		URL:                url,
		Version:            version,
		ProtocolVersion:    "1.0",
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills:             d.Skills,
		Capabilities: a2a.AgentCapabilities{
			Streaming: true,
		},
		PreferredTransport: a2a.TransportProtocolJSONRPC,
	}
}

// Host returns the orchestrator definition.
func Host() Definition {
	return Definition{
		Name:        HostAgent,
		DisplayName: "Host Agent Orchestrator",
		Description: "Orchestrates Price Scraper, Review Analyzer, and Stock Tracker agents via A2A protocol for e-commerce competitive intelligence.",
		Instruction: hostPrompt,
		Skills: []a2a.AgentSkill{{
			ID:          "orchestrate_ecommerce_agents",
			Name:        "Orchestrate E-commerce Intelligence Workflows",
			Description: "Coordinates Price Scraper, Review Analyzer, and Stock Tracker agents to perform competitive intelligence tasks.",
			Tags:        []string{"orchestration", "workflow", "coordination", "multi-agent", "ecommerce"},
			Examples: []string{
				"Find the current price, availability, and top review highlights for the Logitech MX Master 3 mouse.",
				"Retrieve stock status and customer sentiment for the Kindle Paperwhite.",
				"Compare prices and review summaries for three different external SSDs.",
			},
		}},
	}
}

var searchSkill = a2a.AgentSkill{
	ID:          mcpserver.ToolSearch,
	Name:        "Search Amazon Products Tool",
	Description: "Can search Amazon for products and obtain details",
	Tags:        []string{"Amazon search"},
	Examples:    []string{"Search Adidas sneakers in Amazon"},
}

// Specialist returns the definition of a specialist kind.
func Specialist(kind string) (Definition, error) {
	switch kind {
	case config.KindPrice:
		return Definition{
			Name:        config.PriceAgent,
			Kind:        kind,
			DisplayName: "Price Scraper Agent",
			Description: "Can search Amazon and get prices of products",
			Instruction: pricePrompt,
			Skills: []a2a.AgentSkill{searchSkill, {
				ID:          mcpserver.ToolPrice,
				Name:        "Get product price",
				Description: "Can get the price of a product given the ASIN",
				Tags:        []string{"Get Amazon price"},
				Examples:    []string{"What is the price of ASIN = B0CRXK7WVM?"},
			}},
			Tools: []string{mcpserver.ToolSearch, mcpserver.ToolPrice},
		}, nil
	case config.KindReview:
		return Definition{
			Name:        config.ReviewAgent,
			Kind:        kind,
			DisplayName: "Review Analyser Agent",
			Description: "Can get product reviews from Amazon",
			Instruction: reviewPrompt,
			Skills: []a2a.AgentSkill{{
				ID:          mcpserver.ToolReviews,
				Name:        "Get product reviews",
				Description: "Can get the reviews of a product given the ASIN",
				Tags:        []string{"Get Amazon reviews"},
				Examples:    []string{"What are the reviews of product ASIN = B0CRXK7WVM?"},
			}},
			Tools: []string{mcpserver.ToolReviews},
		}, nil
	case config.KindStock:
		return Definition{
			Name:        config.StockAgent,
			Kind:        kind,
			DisplayName: "Stock Tracker Agent",
			Description: "Can search Amazon and get stock availability of products",
			Instruction: stockPrompt,
			Skills: []a2a.AgentSkill{searchSkill, {
				ID:          mcpserver.ToolStock,
				Name:        "Get product stock",
				Description: "Can get the stock availability of a product given the ASIN",
				Tags:        []string{"Get Amazon stock"},
				Examples:    []string{"Is product ASIN = B0CRXK7WVM in stock?"},
			}},
			Tools: []string{mcpserver.ToolSearch, mcpserver.ToolStock},
		}, nil
	}
	return Definition{}, fmt.Errorf("unknown specialist kind %q (valid: %s)", kind, strings.Join(config.Kinds, ", "))
}
