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

package mcptoolset

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/shopwatch/pkg/tool"
)

func newTestServer(t *testing.T) string {
	t.Helper()

	s := server.NewMCPServer("test-scraper", "1.0.0")
	s.AddTool(mcp.NewTool("get_product_price",
		mcp.WithDescription("Get product price"),
		mcp.WithString("product_id", mcp.Required(), mcp.Description("ASIN")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := req.GetString("product_id", "")
		if id == "" {
			return mcp.NewToolResultError("product_id is required"), nil
		}
		return mcp.NewToolResultText(`{"asin":"` + id + `","price":"$10"}`), nil
	})
	s.AddTool(mcp.NewTool("get_product_reviews",
		mcp.WithDescription("Get product reviews"),
		mcp.WithString("product_id", mcp.Required()),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("[]"), nil
	})

	ts := server.NewTestStreamableHTTPServer(s)
	t.Cleanup(ts.Close)
	return ts.URL + "/mcp"
}

func TestToolset_ListAndCall(t *testing.T) {
	ts, err := New(Config{Name: "price", URL: newTestServer(t)})
	require.NoError(t, err)
	defer ts.Close()

	tools, err := ts.Tools(t.Context())
	require.NoError(t, err)
	require.Len(t, tools, 2)

	byName, err := tool.Collect(t.Context(), nil, []tool.Toolset{ts})
	require.NoError(t, err)
	price := byName["get_product_price"]
	require.NotNil(t, price)
	assert.Equal(t, "Get product price", price.Description())
	assert.Equal(t, "object", price.Schema()["type"])
	assert.Equal(t, []string{"product_id"}, price.Schema()["required"])

	out, err := price.Call(t.Context(), map[string]any{"product_id": "B0CRXK7WVM"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"asin":"B0CRXK7WVM","price":"$10"}`, out["result"].(string))

	out, err = price.Call(t.Context(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "product_id is required", out["error"])
}

func TestToolset_Filter(t *testing.T) {
	ts, err := New(Config{URL: newTestServer(t), Filter: []string{"get_product_reviews"}})
	require.NoError(t, err)
	defer ts.Close()

	tools, err := ts.Tools(t.Context())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "get_product_reviews", tools[0].Name())
}

func TestToolset_WithFilterSharesConnection(t *testing.T) {
	ts, err := New(Config{URL: newTestServer(t)})
	require.NoError(t, err)
	defer ts.Close()

	view := ts.WithFilter([]string{"get_product_price"})
	tools, err := view.Tools(t.Context())
	require.NoError(t, err)
	require.Len(t, tools, 1)

	all, err := ts.Tools(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestToolset_ConnectFailure(t *testing.T) {
	ts, err := New(Config{URL: "http://127.0.0.1:1/mcp"})
	require.NoError(t, err)

	_, err = ts.Tools(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
