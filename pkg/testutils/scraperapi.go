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

package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Fixtures served by the fake scraper API.
const (
	ScraperAPIKey   = "test-rapidapi-key"
	KnownASIN       = "B0TESTASIN"
	PricelessASIN   = "B0NOPRICE1"
	BrokenASIN      = "B0BROKEN01"
	KnownSearchTerm = "wireless headphones"
)

// ScraperAPI is a fake RapidAPI Amazon scraper.
type ScraperAPI struct {
	URL string

	mu      sync.Mutex
	queries []map[string]any
}

// NewScraperAPI starts the fake. It is closed when the test ends.
//
// Requests without the expected key get 401. BrokenASIN answers 500 and
// unknown queries answer with an empty result list.
func NewScraperAPI(t testing.TB) *ScraperAPI {
	t.Helper()
	api := &ScraperAPI{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/queries" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("x-rapidapi-key") != ScraperAPIKey || r.Header.Get("x-rapidapi-host") == "" {
			http.Error(w, `{"message":"invalid key"}`, http.StatusUnauthorized)
			return
		}

		var q map[string]any
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		api.mu.Lock()
		api.queries = append(api.queries, q)
		api.mu.Unlock()

		source, _ := q["source"].(string)
		term, _ := q["query"].(string)

		var content any
		switch {
		case source == "amazon_search" && term == KnownSearchTerm:
			content = map[string]any{"results": map[string]any{"organic": []any{
				map[string]any{"asin": KnownASIN, "title": "Test Headphones", "price": 59.99, "url": "/dp/" + KnownASIN, "url_image": "https://img.example/1.jpg"},
				map[string]any{"asin": "B0OTHER001", "title": "Other Headphones", "price": 19.5, "url": "/dp/B0OTHER001", "url_image": "https://img.example/2.jpg"},
			}}}
		case source == "amazon_product" && term == KnownASIN:
			content = map[string]any{
				"title": "Test Headphones",
				"price": 59.99,
				"stock": "In Stock",
				"reviews": []any{
					map[string]any{"title": "Great", "rating": 5, "content": "Loud and clear"},
					map[string]any{"title": "Meh", "rating": 3, "content": "Ear cups are small"},
				},
			}
		case source == "amazon_product" && term == PricelessASIN:
			content = map[string]any{"title": "Mystery Box"}
		case term == BrokenASIN:
			http.Error(w, "upstream exploded", http.StatusInternalServerError)
			return
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{map[string]any{"content": content}}})
	}))
	t.Cleanup(srv.Close)

	api.URL = srv.URL
	return api
}

// Queries returns the request bodies received so far.
func (a *ScraperAPI) Queries() []map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]map[string]any(nil), a.queries...)
}
