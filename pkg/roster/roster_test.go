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

package roster

import (
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/shopwatch/pkg/config"
	"github.com/kadirpekel/shopwatch/pkg/mcpserver"
)

func TestSpecialist(t *testing.T) {
	tests := []struct {
		kind        string
		name        string
		displayName string
		skills      []string
	}{
		{config.KindPrice, config.PriceAgent, "Price Scraper Agent", []string{"search_amazon_products", "get_product_price"}},
		{config.KindReview, config.ReviewAgent, "Review Analyser Agent", []string{"get_product_reviews"}},
		{config.KindStock, config.StockAgent, "Stock Tracker Agent", []string{"search_amazon_products", "get_product_stock"}},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			def, err := Specialist(tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.name, def.Name)
			assert.Equal(t, tt.displayName, def.DisplayName)
			assert.NotEmpty(t, def.Instruction)

			var ids []string
			for _, s := range def.Skills {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tt.skills, ids)

			served, err := mcpserver.ToolsFor(tt.kind)
			require.NoError(t, err)
			assert.Equal(t, served, def.Tools)
		})
	}
}

func TestSpecialist_Unknown(t *testing.T) {
	_, err := Specialist("weather")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price, review, stock")
}

func TestHostCard(t *testing.T) {
	def := Host()
	card := def.Card("http://localhost:8001", "1.2.3")

	assert.Equal(t, "Host Agent Orchestrator", card.Name)
	assert.Equal(t, "http://localhost:8001/", card.URL)
	assert.Equal(t, "1.2.3", card.Version)
	assert.Equal(t, a2a.TransportProtocolJSONRPC, card.PreferredTransport)
	assert.True(t, card.Capabilities.Streaming)
	require.Len(t, card.Skills, 1)
	assert.Equal(t, "orchestrate_ecommerce_agents", card.Skills[0].ID)
	assert.Contains(t, def.Instruction, "delegate_task")
	assert.Contains(t, def.Instruction, "list_agents")
}
