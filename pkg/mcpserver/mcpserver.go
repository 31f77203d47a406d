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

// Package mcpserver exposes scraper capabilities as MCP tools, one server
// per specialist kind.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kadirpekel/shopwatch/pkg/config"
	"github.com/kadirpekel/shopwatch/pkg/observability"
	"github.com/kadirpekel/shopwatch/pkg/scraper"
)

// Tool names.
const (
	ToolSearch  = "search_amazon_products"
	ToolPrice   = "get_product_price"
	ToolReviews = "get_product_reviews"
	ToolStock   = "get_product_stock"
)

// EndpointPath is where the streamable HTTP transport is mounted.
const EndpointPath = "/mcp"

// ToolsFor lists the tools served for kind.
func ToolsFor(kind string) ([]string, error) {
	switch kind {
	case config.KindPrice:
		return []string{ToolSearch, ToolPrice}, nil
	case config.KindReview:
		return []string{ToolReviews}, nil
	case config.KindStock:
		return []string{ToolSearch, ToolStock}, nil
	default:
		return nil, fmt.Errorf("unknown specialist kind %q", kind)
	}
}

// Scraper is the set of lookups the tools are built on.
type Scraper interface {
	Search(ctx context.Context, query string) []scraper.Product
	Price(ctx context.Context, asin string) *scraper.Price
	Reviews(ctx context.Context, asin string) []scraper.Review
	Stock(ctx context.Context, asin string) *scraper.Stock
}

// New builds the MCP server for kind.
func New(kind, version string, sc Scraper, logger *slog.Logger) (*server.MCPServer, error) {
	names, err := ToolsFor(kind)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := server.NewMCPServer(kind+"-scraper", version, server.WithToolCapabilities(false))
	for _, name := range names {
		def, handler := toolFor(name, sc, logger)
		s.AddTool(def, handler)
	}
	return s, nil
}

func toolFor(name string, sc Scraper, logger *slog.Logger) (mcp.Tool, server.ToolHandlerFunc) {
	productID := mcp.WithString("product_id", mcp.Required(), mcp.Description("The ASIN of the product"))

	switch name {
	case ToolSearch:
		return mcp.NewTool(ToolSearch,
				mcp.WithDescription("Searches Amazon for products matching the query. Returns a list with asin, title, price, url and image for each product."),
				mcp.WithString("query", mcp.Required(), mcp.Description("The search term")),
			), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				q, err := req.RequireString("query")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				return jsonResult(logger, name, sc.Search(ctx, q))
			}
	case ToolPrice:
		return mcp.NewTool(ToolPrice,
				mcp.WithDescription("Fetches the title and price of an Amazon product by ASIN. Returns null when either is unknown."),
				productID,
			), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id, err := req.RequireString("product_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				return jsonResult(logger, name, sc.Price(ctx, id))
			}
	case ToolReviews:
		return mcp.NewTool(ToolReviews,
				mcp.WithDescription("Fetches customer reviews of an Amazon product by ASIN. Returns a list with asin, title, rating and content for each review."),
				productID,
			), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id, err := req.RequireString("product_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				return jsonResult(logger, name, sc.Reviews(ctx, id))
			}
	default:
		return mcp.NewTool(ToolStock,
				mcp.WithDescription("Fetches the stock status of an Amazon product by ASIN. Returns asin, title and stock, or null when the product cannot be retrieved."),
				productID,
			), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id, err := req.RequireString("product_id")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				return jsonResult(logger, name, sc.Stock(ctx, id))
			}
	}
}

// jsonResult renders v as JSON text. Nil pointers render as null.
func jsonResult(logger *slog.Logger, tool string, v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Warn("Failed to encode tool result", "tool", tool, "error", err)
		return mcp.NewToolResultError("failed to encode result"), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// Router mounts the streamable HTTP transport at EndpointPath next to a
// health check.
func Router(s *server.MCPServer, metrics *observability.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(observability.HTTPMiddleware(metrics))

	r.Handle(EndpointPath, server.NewStreamableHTTPServer(s))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return r
}
