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

package scraper

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/shopwatch/pkg/config"
	"github.com/kadirpekel/shopwatch/pkg/testutils"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig(baseURL string) config.ScraperConfig {
	return config.ScraperConfig{
		BaseURL:    baseURL,
		APIKey:     testutils.ScraperAPIKey,
		Timeout:    5 * time.Second,
		MaxRetries: 0,
		SearchGeo:  "60607",
		ProductGeo: "90210",
		Domain:     "com",
	}
}

func newClient(t *testing.T, cfg config.ScraperConfig) *Client {
	t.Helper()
	c, err := New(cfg, WithLogger(quiet))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(config.ScraperConfig{BaseURL: "http://x"})
	assert.ErrorIs(t, err, ErrAPIKeyMissing)

	_, err = New(config.ScraperConfig{APIKey: "k"})
	assert.Error(t, err)

	c, err := New(config.ScraperConfig{APIKey: "k", BaseURL: "https://amazon-data-scraper-api3.p.rapidapi.com/"})
	require.NoError(t, err)
	assert.Equal(t, "amazon-data-scraper-api3.p.rapidapi.com", c.cfg.APIHost)
	assert.Equal(t, "https://amazon-data-scraper-api3.p.rapidapi.com", c.cfg.BaseURL)
}

func TestSearch(t *testing.T) {
	api := testutils.NewScraperAPI(t)
	c := newClient(t, testConfig(api.URL))

	products := c.Search(context.Background(), testutils.KnownSearchTerm)

	require.Len(t, products, 2)
	assert.Equal(t, Product{
		ASIN:  testutils.KnownASIN,
		Title: "Test Headphones",
		Price: 59.99,
		URL:   "https://www.amazon.com/dp/" + testutils.KnownASIN,
		Image: "https://img.example/1.jpg",
	}, products[0])

	queries := api.Queries()
	require.Len(t, queries, 1)
	assert.Equal(t, map[string]any{
		"source":       "amazon_search",
		"query":        testutils.KnownSearchTerm,
		"geo_location": "60607",
		"domain":       "com",
		"parse":        true,
	}, queries[0])
}

func TestSearch_DegradesToEmpty(t *testing.T) {
	api := testutils.NewScraperAPI(t)
	c := newClient(t, testConfig(api.URL))

	got := c.Search(context.Background(), "nothing matches this")
	assert.NotNil(t, got)
	assert.Empty(t, got)

	bad := testConfig(api.URL)
	bad.APIKey = "wrong"
	got = newClient(t, bad).Search(context.Background(), testutils.KnownSearchTerm)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPrice(t *testing.T) {
	api := testutils.NewScraperAPI(t)
	c := newClient(t, testConfig(api.URL))
	ctx := context.Background()

	assert.Equal(t, &Price{ASIN: testutils.KnownASIN, Title: "Test Headphones", Price: 59.99}, c.Price(ctx, testutils.KnownASIN))
	assert.Nil(t, c.Price(ctx, testutils.PricelessASIN), "title without price is no data")
	assert.Nil(t, c.Price(ctx, testutils.BrokenASIN))
	assert.Nil(t, c.Price(ctx, "B0UNKNOWN0"))
	assert.Nil(t, c.Price(ctx, "  "))

	queries := api.Queries()
	require.NotEmpty(t, queries)
	assert.Equal(t, map[string]any{
		"source":       "amazon_product",
		"query":        testutils.KnownASIN,
		"geo_location": "90210",
		"parse":        true,
	}, queries[0])
}

func TestReviews(t *testing.T) {
	api := testutils.NewScraperAPI(t)
	c := newClient(t, testConfig(api.URL))
	ctx := context.Background()

	reviews := c.Reviews(ctx, testutils.KnownASIN)
	require.Len(t, reviews, 2)
	assert.Equal(t, Review{ASIN: testutils.KnownASIN, Title: "Great", Rating: float64(5), Content: "Loud and clear"}, reviews[0])

	empty := c.Reviews(ctx, testutils.BrokenASIN)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestStock(t *testing.T) {
	api := testutils.NewScraperAPI(t)
	c := newClient(t, testConfig(api.URL))
	ctx := context.Background()

	assert.Equal(t, &Stock{ASIN: testutils.KnownASIN, Title: "Test Headphones", Stock: "In Stock"}, c.Stock(ctx, testutils.KnownASIN))
	assert.Equal(t, &Stock{ASIN: testutils.PricelessASIN, Title: "Mystery Box"}, c.Stock(ctx, testutils.PricelessASIN))
	assert.Nil(t, c.Stock(ctx, testutils.BrokenASIN))
}

func TestProductCache(t *testing.T) {
	api := testutils.NewScraperAPI(t)
	cfg := testConfig(api.URL)
	cfg.CacheTTL = time.Minute
	c := newClient(t, cfg)
	ctx := context.Background()

	require.NotNil(t, c.Price(ctx, testutils.KnownASIN))
	require.NotNil(t, c.Stock(ctx, testutils.KnownASIN))
	require.Len(t, c.Reviews(ctx, testutils.KnownASIN), 2)

	assert.Len(t, api.Queries(), 1, "product lookups should share one upstream call")
}

func TestProductCache_Disabled(t *testing.T) {
	api := testutils.NewScraperAPI(t)
	c := newClient(t, testConfig(api.URL))
	ctx := context.Background()

	c.Price(ctx, testutils.KnownASIN)
	c.Stock(ctx, testutils.KnownASIN)

	assert.Len(t, api.Queries(), 2)
}
