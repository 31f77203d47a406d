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

package agent_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/shopwatch/pkg/agent"
	"github.com/kadirpekel/shopwatch/pkg/model"
	"github.com/kadirpekel/shopwatch/pkg/model/modeltest"
	"github.com/kadirpekel/shopwatch/pkg/tool"
	"github.com/kadirpekel/shopwatch/pkg/tool/functiontool"
)

type priceArgs struct {
	ProductID string `json:"product_id" jsonschema:"required"`
}

func priceTool(t *testing.T, calls *int) tool.Tool {
	t.Helper()
	pt, err := functiontool.New(
		functiontool.Config{Name: "get_product_price", Description: "Get the price of a product"},
		func(_ context.Context, args priceArgs) (map[string]any, error) {
			*calls++
			if args.ProductID == "broken" {
				return nil, errors.New("upstream down")
			}
			return map[string]any{"asin": args.ProductID, "price": 19.99}, nil
		},
	)
	require.NoError(t, err)
	return pt
}

func collect(t *testing.T, a *agent.Agent, input string) ([]*agent.Event, error) {
	t.Helper()
	var events []*agent.Event
	for ev, err := range a.Run(t.Context(), input) {
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func TestRun_ToolThenAnswer(t *testing.T) {
	var calls int
	llm := modeltest.New(
		modeltest.Call("c1", "get_product_price", map[string]any{"product_id": "B0TESTASIN"}),
		modeltest.Text("It costs $19.99."),
	)
	a, err := agent.New(agent.Config{
		Name:        "price_scraper_agent",
		Instruction: "You scrape prices.",
		Model:       llm,
		Tools:       []tool.Tool{priceTool(t, &calls)},
	})
	require.NoError(t, err)

	events, err := collect(t, a, "price of B0TESTASIN")
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, agent.EventToolCall, events[0].Kind)
	assert.Equal(t, "get_product_price", events[0].ToolCall.Name)
	assert.Equal(t, agent.EventToolResult, events[1].Kind)
	assert.False(t, events[1].ToolResult.IsError)
	assert.JSONEq(t, `{"asin":"B0TESTASIN","price":19.99}`, events[1].ToolResult.Content)
	assert.True(t, events[2].IsFinal())
	assert.Equal(t, "It costs $19.99.", events[2].Text)
	assert.Equal(t, "price_scraper_agent", events[2].Author)
	assert.Equal(t, 1, calls)

	reqs := llm.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "You scrape prices.", reqs[0].SystemInstruction)
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, "get_product_price", reqs[0].Tools[0].Name)

	second := reqs[1].Messages
	require.Len(t, second, 3)
	assert.Equal(t, model.RoleAssistant, second[1].Role)
	assert.Equal(t, model.RoleTool, second[2].Role)
	assert.Equal(t, "c1", second[2].ToolResults[0].ToolCallID)
}

func TestRun_ToolErrorsGoBackToModel(t *testing.T) {
	var calls int
	llm := modeltest.New(
		modeltest.Call("c1", "get_product_price", map[string]any{"product_id": "broken"}),
		modeltest.Call("c2", "no_such_tool", nil),
		modeltest.Text("Sorry, no price available."),
	)
	a, err := agent.New(agent.Config{Name: "price", Model: llm, Tools: []tool.Tool{priceTool(t, &calls)}})
	require.NoError(t, err)

	events, err := collect(t, a, "price of broken")
	require.NoError(t, err)
	require.Len(t, events, 5)

	assert.True(t, events[1].ToolResult.IsError)
	assert.Equal(t, "Error: upstream down", events[1].ToolResult.Content)
	assert.True(t, events[3].ToolResult.IsError)
	assert.Contains(t, events[3].ToolResult.Content, `"no_such_tool" not found`)
	assert.Equal(t, "Sorry, no price available.", events[4].Text)
}

func TestRun_MaxSteps(t *testing.T) {
	var calls int
	args := map[string]any{"product_id": "B0"}
	llm := modeltest.New(
		modeltest.Call("c1", "get_product_price", args),
		modeltest.Call("c2", "get_product_price", args),
	)
	a, err := agent.New(agent.Config{Name: "price", Model: llm, MaxSteps: 2, Tools: []tool.Tool{priceTool(t, &calls)}})
	require.NoError(t, err)

	_, err = collect(t, a, "loop")
	require.ErrorIs(t, err, agent.ErrMaxSteps)
	assert.Equal(t, 2, calls)
}

func TestRun_ModelError(t *testing.T) {
	a, err := agent.New(agent.Config{Name: "price", Model: modeltest.New(modeltest.Turn{Err: errors.New("rate limited")})})
	require.NoError(t, err)

	events, err := collect(t, a, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Empty(t, events)
}

func TestRun_GeneratesMissingCallIDs(t *testing.T) {
	var calls int
	llm := modeltest.New(
		modeltest.Call("", "get_product_price", map[string]any{"product_id": "B0"}),
		modeltest.Text("done"),
	)
	a, err := agent.New(agent.Config{Name: "price", Model: llm, Tools: []tool.Tool{priceTool(t, &calls)}})
	require.NoError(t, err)

	events, err := collect(t, a, "x")
	require.NoError(t, err)
	id := events[0].ToolCall.ID
	assert.True(t, strings.HasPrefix(id, "call-"))
	assert.Equal(t, id, events[1].ToolResult.ToolCallID)
}

func TestRun_ConsumerStops(t *testing.T) {
	var calls int
	llm := modeltest.New(
		modeltest.Call("c1", "get_product_price", map[string]any{"product_id": "B0"}),
		modeltest.Text("done"),
	)
	a, err := agent.New(agent.Config{Name: "price", Model: llm, Tools: []tool.Tool{priceTool(t, &calls)}})
	require.NoError(t, err)

	for range a.Run(t.Context(), "x") {
		break
	}
	assert.Equal(t, 0, calls)
	assert.Len(t, llm.Requests(), 1)
}

func TestNew_Validation(t *testing.T) {
	_, err := agent.New(agent.Config{Model: modeltest.New()})
	assert.Error(t, err)

	_, err = agent.New(agent.Config{Name: "x"})
	assert.Error(t, err)

	a, err := agent.New(agent.Config{Name: "x", Description: "d", Model: modeltest.New()})
	require.NoError(t, err)
	assert.Equal(t, "x", a.Name())
	assert.Equal(t, "d", a.Description())
}
