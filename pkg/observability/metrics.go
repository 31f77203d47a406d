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

// Package observability wires OpenTelemetry metrics and tracing.
//
// Metrics are exported through a private Prometheus registry so that each
// process (and each test) owns its own set of collectors. Every recording
// method is safe on a nil *Metrics.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kadirpekel/shopwatch/pkg/config"
)

// Metrics holds the shopwatch instruments.
type Metrics struct {
	provider *sdkmetric.MeterProvider
	handler  http.Handler

	delegations        metric.Int64Counter
	delegationDuration metric.Float64Histogram
	toolCalls          metric.Int64Counter
	toolDuration       metric.Float64Histogram
	llmRequests        metric.Int64Counter
	llmDuration        metric.Float64Histogram
	scraperRequests    metric.Int64Counter
	httpRequests       metric.Int64Counter
	httpDuration       metric.Float64Histogram
}

// InitMetrics creates the instruments. Disabled metrics yield an empty,
// nil-safe value whose handler answers 404.
func InitMetrics(cfg config.MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{}, nil
	}

	registry := promclient.NewRegistry()
	promExporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(promExporter))
	meter := provider.Meter(meterName)

	m := &Metrics{
		provider: provider,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.delegations, "shopwatch_delegations_total", "Delegations to peer agents"},
		{&m.toolCalls, "shopwatch_tool_calls_total", "Tool calls made by agents"},
		{&m.llmRequests, "shopwatch_llm_requests_total", "LLM requests"},
		{&m.scraperRequests, "shopwatch_scraper_requests_total", "Upstream scraper requests"},
		{&m.httpRequests, "shopwatch_http_requests_total", "HTTP requests served"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
	}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&m.delegationDuration, "shopwatch_delegation_duration_seconds", "Delegation duration in seconds"},
		{&m.toolDuration, "shopwatch_tool_duration_seconds", "Tool call duration in seconds"},
		{&m.llmDuration, "shopwatch_llm_request_duration_seconds", "LLM request duration in seconds"},
		{&m.httpDuration, "shopwatch_http_request_duration_seconds", "HTTP request duration in seconds"},
	}
	for _, h := range histograms {
		if *h.dst, err = meter.Float64Histogram(h.name, metric.WithDescription(h.desc)); err != nil {
			return nil, fmt.Errorf("failed to create %s histogram: %w", h.name, err)
		}
	}

	return m, nil
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.handler == nil {
		return http.NotFoundHandler()
	}
	return m.handler
}

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

// RecordDelegation records one delegation.
func (m *Metrics) RecordDelegation(ctx context.Context, agent, mode, outcome string, d time.Duration) {
	if m == nil || m.delegations == nil {
		return
	}
	m.delegations.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrAgent, agent),
		attribute.String(AttrMode, mode),
		attribute.String(AttrOutcome, outcome),
	))
	m.delegationDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String(AttrAgent, agent),
		attribute.String(AttrMode, mode),
	))
}

// RecordToolCall records one tool execution.
func (m *Metrics) RecordToolCall(ctx context.Context, tool string, d time.Duration, err error) {
	if m == nil || m.toolCalls == nil {
		return
	}
	m.toolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrTool, tool),
		attribute.String(AttrOutcome, Outcome(err)),
	))
	m.toolDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(AttrTool, tool)))
}

// RecordLLMRequest records one model call.
func (m *Metrics) RecordLLMRequest(ctx context.Context, provider, model string, d time.Duration, err error) {
	if m == nil || m.llmRequests == nil {
		return
	}
	m.llmRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrProvider, provider),
		attribute.String(AttrModel, model),
		attribute.String(AttrOutcome, Outcome(err)),
	))
	m.llmDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String(AttrProvider, provider),
		attribute.String(AttrModel, model),
	))
}

// RecordScraperRequest records one upstream scraper request.
func (m *Metrics) RecordScraperRequest(ctx context.Context, source, outcome string) {
	if m == nil || m.scraperRequests == nil {
		return
	}
	m.scraperRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrSource, source),
		attribute.String(AttrOutcome, outcome),
	))
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method string, status int, d time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	m.httpRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", strconv.Itoa(status)),
	))
	m.httpDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("method", method)))
}
