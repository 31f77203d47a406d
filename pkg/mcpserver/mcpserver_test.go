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

package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/shopwatch/pkg/config"
	"github.com/kadirpekel/shopwatch/pkg/scraper"
	"github.com/kadirpekel/shopwatch/pkg/testutils"
	"github.com/kadirpekel/shopwatch/pkg/tool"
	"github.com/kadirpekel/shopwatch/pkg/tool/mcptoolset"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// serve starts the MCP server for kind behind Router and returns its
// tools as seen by an MCP client.
func serve(t *testing.T, kind string) map[string]tool.CallableTool {
	t.Helper()

	api := testutils.NewScraperAPI(t)
	sc, err := scraper.New(config.ScraperConfig{
		BaseURL:    api.URL,
		APIKey:     testutils.ScraperAPIKey,
		Timeout:    5 * time.Second,
		SearchGeo:  "60607",
		ProductGeo: "90210",
		Domain:     "com",
	}, scraper.WithLogger(quiet))
	require.NoError(t, err)
	t.Cleanup(sc.Close)

	s, err := New(kind, "test", sc, quiet)
	require.NoError(t, err)

	srv := httptest.NewServer(Router(s, nil))
	t.Cleanup(srv.Close)

	ts, err := mcptoolset.New(mcptoolset.Config{Name: kind, URL: srv.URL + EndpointPath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ts.Close() })

	tools, err := tool.Collect(context.Background(), nil, []tool.Toolset{ts})
	require.NoError(t, err)
	return tools
}

func names(tools map[string]tool.CallableTool) []string {
	out := make([]string, 0, len(tools))
	for name := range tools {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func TestToolsFor(t *testing.T) {
	tests := []struct {
		kind string
		want []string
	}{
		{config.KindPrice, []string{ToolSearch, ToolPrice}},
		{config.KindReview, []string{ToolReviews}},
		{config.KindStock, []string{ToolSearch, ToolStock}},
	}
	for _, tt := range tests {
		got, err := ToolsFor(tt.kind)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ToolsFor("weather")
	assert.Error(t, err)
	_, err = New("weather", "test", nil, nil)
	assert.Error(t, err)
}

func TestPriceServer(t *testing.T) {
	tools := serve(t, config.KindPrice)
	require.Equal(t, []string{ToolPrice, ToolSearch}, names(tools))
	ctx := context.Background()

	assert.Equal(t, []any{"product_id"}, anySlice(tools[ToolPrice].Schema()["required"]))

	out, err := tools[ToolPrice].Call(ctx, map[string]any{"product_id": testutils.KnownASIN})
	require.NoError(t, err)
	assert.JSONEq(t, `{"asin":"B0TESTASIN","title":"Test Headphones","price":59.99}`, out["result"].(string))

	out, err = tools[ToolPrice].Call(ctx, map[string]any{"product_id": testutils.PricelessASIN})
	require.NoError(t, err)
	assert.Equal(t, "null", out["result"])

	out, err = tools[ToolSearch].Call(ctx, map[string]any{"query": testutils.KnownSearchTerm})
	require.NoError(t, err)
	assert.Contains(t, out["result"], `"url":"https://www.amazon.com/dp/B0TESTASIN"`)

	out, err = tools[ToolSearch].Call(ctx, map[string]any{"query": "no such thing"})
	require.NoError(t, err)
	assert.Equal(t, "[]", out["result"])
}

func TestReviewServer(t *testing.T) {
	tools := serve(t, config.KindReview)
	require.Equal(t, []string{ToolReviews}, names(tools))

	out, err := tools[ToolReviews].Call(context.Background(), map[string]any{"product_id": testutils.KnownASIN})
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"asin":"B0TESTASIN","title":"Great","rating":5,"content":"Loud and clear"},
		{"asin":"B0TESTASIN","title":"Meh","rating":3,"content":"Ear cups are small"}
	]`, out["result"].(string))

	out, err = tools[ToolReviews].Call(context.Background(), map[string]any{"product_id": testutils.BrokenASIN})
	require.NoError(t, err)
	assert.Equal(t, "[]", out["result"])
}

func TestStockServer(t *testing.T) {
	tools := serve(t, config.KindStock)
	require.Equal(t, []string{ToolStock, ToolSearch}, names(tools))

	out, err := tools[ToolStock].Call(context.Background(), map[string]any{"product_id": testutils.KnownASIN})
	require.NoError(t, err)
	assert.JSONEq(t, `{"asin":"B0TESTASIN","title":"Test Headphones","stock":"In Stock"}`, out["result"].(string))

	out, err = tools[ToolStock].Call(context.Background(), map[string]any{"product_id": testutils.BrokenASIN})
	require.NoError(t, err)
	assert.Equal(t, "null", out["result"])
}

func TestMissingArgument(t *testing.T) {
	tools := serve(t, config.KindStock)

	out, err := tools[ToolStock].Call(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Contains(t, out["error"], "product_id")
}

func TestRouter_Health(t *testing.T) {
	s, err := New(config.KindReview, "test", nil, quiet)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	Router(s, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func anySlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	}
	return nil
}
