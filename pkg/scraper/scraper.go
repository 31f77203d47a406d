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

// Package scraper is a client for the RapidAPI Amazon data scraper.
//
// Lookups never fail: upstream errors are logged and reported as a nil
// value or an empty slice, which callers treat as "no data". Product
// lookups for the same ASIN share one cached upstream response.
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kadirpekel/shopwatch/pkg/config"
	"github.com/kadirpekel/shopwatch/pkg/httpclient"
	"github.com/kadirpekel/shopwatch/pkg/observability"
)

// Upstream sources.
const (
	SourceSearch  = "amazon_search"
	SourceProduct = "amazon_product"
)

const (
	amazonBaseURL = "https://www.amazon.com"
	cacheMaxCost  = 16 << 20
)

// ErrAPIKeyMissing is returned by New when no key is configured.
var ErrAPIKeyMissing = errors.New("scraper api key is not set")

// Product is one search hit.
type Product struct {
	ASIN  string `json:"asin"`
	Title string `json:"title"`
	Price any    `json:"price"`
	URL   string `json:"url"`
	Image string `json:"image"`
}

// Price is the current price of a product.
type Price struct {
	ASIN  string `json:"asin"`
	Title string `json:"title"`
	Price any    `json:"price"`
}

// Review is one customer review.
type Review struct {
	ASIN    string `json:"asin"`
	Title   string `json:"title"`
	Rating  any    `json:"rating"`
	Content string `json:"content"`
}

// Stock is the availability of a product.
type Stock struct {
	ASIN  string `json:"asin"`
	Title string `json:"title"`
	Stock any    `json:"stock"`
}

// query is the request body accepted by the /queries endpoint.
type query struct {
	Source      string `json:"source"`
	Query       string `json:"query"`
	GeoLocation string `json:"geo_location"`
	Domain      string `json:"domain,omitempty"`
	Parse       bool   `json:"parse"`
}

type envelope struct {
	Results []struct {
		Content json.RawMessage `json:"content"`
	} `json:"results"`
}

type searchContent struct {
	Results struct {
		Organic []struct {
			ASIN     string `json:"asin"`
			Title    string `json:"title"`
			Price    any    `json:"price"`
			URL      string `json:"url"`
			URLImage string `json:"url_image"`
		} `json:"organic"`
	} `json:"results"`
}

type productContent struct {
	Title   *string `json:"title"`
	Price   any     `json:"price"`
	Stock   any     `json:"stock"`
	Reviews []struct {
		Title   string `json:"title"`
		Rating  any    `json:"rating"`
		Content string `json:"content"`
	} `json:"reviews"`
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics counts upstream requests.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithHTTPClient replaces the transport-level client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// Client calls the scraper API. It is safe for concurrent use.
type Client struct {
	cfg        config.ScraperConfig
	httpClient *http.Client
	retrying   *httpclient.Client
	cache      *ristretto.Cache[string, []byte]
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a client. A zero CacheTTL disables caching.
func New(cfg config.ScraperConfig, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyMissing
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("scraper base url is not set")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.APIHost == "" {
		cfg.APIHost = hostOf(cfg.BaseURL)
	}

	c := &Client{
		cfg:    cfg,
		logger: slog.Default(),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.retrying = httpclient.New(
		httpclient.WithHTTPClient(c.httpClient),
		httpclient.WithMaxRetries(cfg.MaxRetries),
		httpclient.WithHeaderParser(httpclient.ParseRapidAPIHeaders),
		httpclient.WithLogger(c.logger),
	)

	if cfg.CacheTTL > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
			NumCounters: cacheMaxCost / 100 * 10,
			MaxCost:     cacheMaxCost,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create scraper cache: %w", err)
		}
		c.cache = cache
	}

	return c, nil
}

// Close releases the cache.
func (c *Client) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
}

// Search returns the organic results for query, or an empty slice.
func (c *Client) Search(ctx context.Context, q string) []Product {
	products := []Product{}

	raw, err := c.fetch(ctx, query{
		Source:      SourceSearch,
		Query:       q,
		GeoLocation: c.cfg.SearchGeo,
		Domain:      c.cfg.Domain,
		Parse:       true,
	})
	if err != nil {
		c.logger.Warn("Product search failed", "query", q, "error", err)
		return products
	}

	var content searchContent
	if err := json.Unmarshal(raw, &content); err != nil {
		c.logger.Warn("Unexpected search response", "query", q, "error", err)
		return products
	}
	for _, item := range content.Results.Organic {
		products = append(products, Product{
			ASIN:  item.ASIN,
			Title: item.Title,
			Price: item.Price,
			URL:   amazonBaseURL + item.URL,
			Image: item.URLImage,
		})
	}
	return products
}

// Price returns the title and price of asin, or nil unless both are known.
func (c *Client) Price(ctx context.Context, asin string) *Price {
	p, ok := c.product(ctx, asin)
	if !ok || p.Title == nil || p.Price == nil {
		return nil
	}
	return &Price{ASIN: asin, Title: *p.Title, Price: p.Price}
}

// Reviews returns the reviews of asin, or an empty slice.
func (c *Client) Reviews(ctx context.Context, asin string) []Review {
	reviews := []Review{}
	p, ok := c.product(ctx, asin)
	if !ok {
		return reviews
	}
	for _, r := range p.Reviews {
		reviews = append(reviews, Review{ASIN: asin, Title: r.Title, Rating: r.Rating, Content: r.Content})
	}
	return reviews
}

// Stock returns the availability of asin, or nil when the product could
// not be fetched.
func (c *Client) Stock(ctx context.Context, asin string) *Stock {
	p, ok := c.product(ctx, asin)
	if !ok {
		return nil
	}
	s := &Stock{ASIN: asin, Stock: p.Stock}
	if p.Title != nil {
		s.Title = *p.Title
	}
	return s
}

func (c *Client) product(ctx context.Context, asin string) (productContent, bool) {
	var p productContent

	asin = strings.TrimSpace(asin)
	if asin == "" {
		c.logger.Warn("Product lookup without an ASIN")
		return p, false
	}

	raw, ok := c.cached(asin)
	if !ok {
		var err error
		raw, err = c.fetch(ctx, query{
			Source:      SourceProduct,
			Query:       asin,
			GeoLocation: c.cfg.ProductGeo,
			Parse:       true,
		})
		if err != nil {
			c.logger.Warn("Product lookup failed", "asin", asin, "error", err)
			return p, false
		}
		c.store(asin, raw)
	}

	if err := json.Unmarshal(raw, &p); err != nil {
		c.logger.Warn("Unexpected product response", "asin", asin, "error", err)
		return p, false
	}
	return p, true
}

// fetch posts q and returns the content of the first result.
func (c *Client) fetch(ctx context.Context, q query) (json.RawMessage, error) {
	start := time.Now()
	raw, err := c.doFetch(ctx, q)

	outcome := observability.Outcome(err)
	if errors.Is(err, context.DeadlineExceeded) {
		outcome = observability.OutcomeTimeout
	}
	c.metrics.RecordScraperRequest(ctx, q.Source, outcome)
	c.logger.Debug("Scraper request", "source", q.Source, "query", q.Query, "duration", time.Since(start), "outcome", outcome)
	return raw, err
}

func (c *Client) doFetch(ctx context.Context, q query) (json.RawMessage, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/queries", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-rapidapi-key", c.cfg.APIKey)
	req.Header.Set("x-rapidapi-host", c.cfg.APIHost)

	resp, err := c.retrying.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", q.Source, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", q.Source, err)
	}
	if len(env.Results) == 0 || len(env.Results[0].Content) == 0 || string(env.Results[0].Content) == "null" {
		return nil, fmt.Errorf("%s response has no results", q.Source)
	}
	return env.Results[0].Content, nil
}

func (c *Client) cached(asin string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(asin)
}

func (c *Client) store(asin string, raw []byte) {
	if c.cache == nil {
		return
	}
	c.cache.SetWithTTL(asin, raw, int64(len(raw)), c.cfg.CacheTTL)
	c.cache.Wait()
}

func hostOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return u.Host
}
