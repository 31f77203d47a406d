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

// Package httpclient provides an HTTP client that retries rate-limited and
// transient upstream failures.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"
)

// RetryStrategy decides whether and how a failed response is retried.
type RetryStrategy int

const (
	// NoRetry returns the failure immediately.
	NoRetry RetryStrategy = iota
	// ConservativeRetry makes at most two quick retries for server errors.
	ConservativeRetry
	// SmartRetry honours rate-limit headers and otherwise backs off
	// exponentially.
	SmartRetry
)

// RateLimitInfo is what an upstream said about its limits.
type RateLimitInfo struct {
	RetryAfter        time.Duration
	ResetTime         int64
	RequestsRemaining int
}

// RateLimitHeaderParser extracts rate-limit hints from response headers.
type RateLimitHeaderParser func(http.Header) RateLimitInfo

// RetryStrategyFunc maps a status code to a strategy.
type RetryStrategyFunc func(int) RetryStrategy

// Client wraps an *http.Client with retries. Only 2xx responses are
// returned; every other outcome is an error and the body is closed.
type Client struct {
	client       *http.Client
	maxRetries   int
	baseDelay    time.Duration
	headerParser RateLimitHeaderParser
	strategyFunc RetryStrategyFunc
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

func WithMaxRetries(max int) Option {
	return func(c *Client) {
		c.maxRetries = max
	}
}

func WithBaseDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = delay
	}
}

func WithHeaderParser(parser RateLimitHeaderParser) Option {
	return func(c *Client) {
		c.headerParser = parser
	}
}

func WithRetryStrategy(strategyFunc RetryStrategyFunc) Option {
	return func(c *Client) {
		c.strategyFunc = strategyFunc
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(opts ...Option) *Client {
	client := &Client{
		client:       &http.Client{Timeout: 60 * time.Second},
		maxRetries:   3,
		baseDelay:    time.Second,
		strategyFunc: DefaultRetryStrategy,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

func DefaultRetryStrategy(statusCode int) RetryStrategy {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusServiceUnavailable:
		return SmartRetry
	case http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusGatewayTimeout:
		return ConservativeRetry
	default:
		return NoRetry
	}
}

// Do sends req, retrying according to the strategy for the response status.
// Waits between attempts end early when the request context is done.
// Transport errors are not retried.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	for attempt := 0; ; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to recreate request body for retry: %w", err)
			}
			req.Body = body
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		var info RateLimitInfo
		if c.headerParser != nil {
			info = c.headerParser(resp.Header)
		}
		statusErr := newStatusError(resp)

		strategy := c.strategyFunc(resp.StatusCode)
		if strategy == NoRetry {
			return nil, statusErr
		}

		delay := c.calculateDelay(strategy, attempt, info)
		if attempt >= c.maxRetries || delay <= 0 {
			return nil, &RetryableError{
				StatusCode: statusErr.StatusCode,
				Message:    fmt.Sprintf("giving up after %d attempts", attempt+1),
				RetryAfter: delay,
				Err:        statusErr,
			}
		}

		c.logRetry(strategy, delay, attempt, statusErr.StatusCode)
		if err := sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("retry of HTTP %d interrupted: %w", statusErr.StatusCode, err)
		}
	}
}

func (c *Client) calculateDelay(strategy RetryStrategy, attempt int, info RateLimitInfo) time.Duration {
	switch strategy {
	case SmartRetry:
		if info.RetryAfter > 0 {
			return info.RetryAfter
		}

		if info.ResetTime > 0 {
			delay := time.Until(time.Unix(info.ResetTime, 0))
			if delay > 0 {
				return delay
			}
		}

		exponentialDelay := time.Duration(math.Pow(2, float64(attempt))) * c.baseDelay
		jitter := time.Duration(float64(exponentialDelay) * 0.1)
		return exponentialDelay + jitter

	case ConservativeRetry:
		if attempt >= 2 {
			return 0
		}
		return time.Duration(1+attempt) * c.baseDelay

	default:
		return 0
	}
}

func (c *Client) logRetry(strategy RetryStrategy, delay time.Duration, attempt, statusCode int) {
	switch strategy {
	case SmartRetry:
		c.logger.Warn("Rate limited, retrying", "status", statusCode, "delay", delay, "attempt", attempt+1, "max_retries", c.maxRetries)
	case ConservativeRetry:
		c.logger.Warn("Server error, retrying", "status", statusCode, "delay", delay, "attempt", attempt+1)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

const maxErrorBody = 512

// newStatusError reads a bounded prefix of the body and closes it.
func newStatusError(resp *http.Response) *StatusError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_, _ = io.Copy(io.Discard, resp.Body)
	return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
}
