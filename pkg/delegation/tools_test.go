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

package delegation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/shopwatch/pkg/registry"
	"github.com/kadirpekel/shopwatch/pkg/remote"
	"github.com/kadirpekel/shopwatch/pkg/testutils"
	"github.com/kadirpekel/shopwatch/pkg/tool"
)

func TestTools(t *testing.T) {
	price := testutils.NewStubPeer(t, priceAgent, testutils.StandardAnswer("$42.00"))
	reg, err := registry.New(map[string]string{
		priceAgent:            price.URL,
		"stock_tracker_agent": testutils.UnreachableURL(t),
	})
	require.NoError(t, err)

	inv := remote.New(remote.WithLogger(quiet))
	tools, err := Tools(New(DefaultConfig(), reg, inv, WithLogger(quiet)), inv, reg)
	require.NoError(t, err)

	byName, err := tool.Collect(context.Background(), tools, nil)
	require.NoError(t, err)
	require.Contains(t, byName, DelegateToolName)
	require.Contains(t, byName, ListAgentsToolName)

	t.Run("delegate_task", func(t *testing.T) {
		delegate := byName[DelegateToolName]
		assert.Contains(t, delegate.Description(), "price_scraper_agent, stock_tracker_agent")
		assert.ElementsMatch(t, []any{"agent_name", "task_description"}, delegate.Schema()["required"])

		out, err := delegate.Call(context.Background(), map[string]any{
			"agent_name":       priceAgent,
			"task_description": "price of X",
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"result": "$42.00"}, out)
	})

	t.Run("delegate_task unknown agent", func(t *testing.T) {
		out, err := byName[DelegateToolName].Call(context.Background(), map[string]any{
			"agent_name":       "nobody",
			"task_description": "x",
		})
		require.NoError(t, err)
		assert.Contains(t, out["result"], "Available agents are: [price_scraper_agent, stock_tracker_agent]")
	})

	t.Run("list_agents skips unreachable peers", func(t *testing.T) {
		out, err := byName[ListAgentsToolName].Call(context.Background(), map[string]any{})
		require.NoError(t, err)

		agents, ok := out["agents"].([]map[string]any)
		require.True(t, ok)
		require.Len(t, agents, 1)
		assert.Equal(t, priceAgent, agents[0]["name"])
		assert.Equal(t, price.URL, agents[0]["url"])
		assert.Equal(t, []string{"price_scraper_agent skill"}, agents[0]["skills"])
	})
}
