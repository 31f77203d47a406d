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
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/shopwatch/pkg/config"
	"github.com/kadirpekel/shopwatch/pkg/observability"
	"github.com/kadirpekel/shopwatch/pkg/registry"
	"github.com/kadirpekel/shopwatch/pkg/remote"
	"github.com/kadirpekel/shopwatch/pkg/testutils"
)

const priceAgent = "price_scraper_agent"

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// newRegistry registers url as the price agent and placeholders for the
// other two specialists.
func newRegistry(t *testing.T, url string) *registry.Registry {
	t.Helper()
	reg, err := registry.New(map[string]string{
		priceAgent:              url,
		"review_analyser_agent": "http://127.0.0.1:1",
		"stock_tracker_agent":   "http://127.0.0.1:2",
	})
	require.NoError(t, err)
	return reg
}

func newDelegator(t *testing.T, url string, cfg Config) *Delegator {
	t.Helper()
	return New(cfg, newRegistry(t, url), remote.New(remote.WithLogger(quiet)), WithLogger(quiet))
}

// invokerFunc adapts a function to Invoker.
type invokerFunc func(ctx context.Context, address, instruction string) *remote.TaskResult

func (f invokerFunc) Invoke(ctx context.Context, address, instruction string) *remote.TaskResult {
	return f(ctx, address, instruction)
}

func TestDelegate_EndToEndFinalAnswer(t *testing.T) {
	peer := testutils.NewStubPeer(t, priceAgent, testutils.StandardAnswer("final-answer"))
	d := newDelegator(t, peer.URL, DefaultConfig())

	got := d.Delegate(context.Background(), priceAgent, "price of X")

	assert.Equal(t, "final-answer", got)
	assert.Equal(t, []string{"price of X"}, peer.Received())
}

func TestDelegate_PositionalSelection(t *testing.T) {
	peer := testutils.NewStubPeer(t, priceAgent, testutils.StandardAnswer("final-answer"))
	inv := remote.New(remote.WithLogger(quiet), remote.WithSelection(remote.SelectPenultimate))
	d := New(DefaultConfig(), newRegistry(t, peer.URL), inv, WithLogger(quiet))

	assert.Equal(t, "final-answer", d.Delegate(context.Background(), priceAgent, "price of X"))
}

func TestDelegate_InlineAndDetachedAgree(t *testing.T) {
	tests := []struct {
		name  string
		agent string
		steps []testutils.Step
		check func(t *testing.T, got string)
	}{
		{
			name:  "answer",
			agent: priceAgent,
			steps: testutils.StandardAnswer(`{"asin":"B0TEST","price":"$19.99"}`),
			check: func(t *testing.T, got string) {
				assert.Equal(t, `{"asin":"B0TEST","price":"$19.99"}`, got)
			},
		},
		{
			name:  "peer failure",
			agent: priceAgent,
			steps: []testutils.Step{testutils.Progress("searching"), testutils.Fail("upstream quota exceeded")},
			check: func(t *testing.T, got string) {
				assert.True(t, strings.HasPrefix(got, "Error from price_scraper_agent: "), got)
				assert.Contains(t, got, "upstream quota exceeded")
			},
		},
		{
			name:  "unknown agent",
			agent: "weather_agent",
			steps: testutils.StandardAnswer("unused"),
			check: func(t *testing.T, got string) {
				assert.Equal(t, "Error: Agent 'weather_agent' is not a known agent. Available agents are: "+
					"[price_scraper_agent, review_analyser_agent, stock_tracker_agent]", got)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peer := testutils.NewStubPeer(t, priceAgent, tt.steps)
			d := newDelegator(t, peer.URL, DefaultConfig())
			ctx := context.Background()

			inline := d.DelegateInline(ctx, tt.agent, "check")
			detached := d.DelegateDetached(ctx, tt.agent, "check")

			assert.Equal(t, inline, detached)
			tt.check(t, inline)
		})
	}
}

func TestDelegate_ModeDispatch(t *testing.T) {
	peer := testutils.NewStubPeer(t, priceAgent, testutils.StandardAnswer("ok"))
	cfg := DefaultConfig()
	cfg.Mode = ModeDetached
	d := newDelegator(t, peer.URL, cfg)

	assert.Equal(t, "ok", d.Delegate(context.Background(), priceAgent, "x"))
	assert.Equal(t, ModeDetached, d.Config().Mode)
}

func TestDelegateDetached_SecondaryTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	// Ignores its context so that only the outer wait can end the call.
	stuck := invokerFunc(func(context.Context, string, string) *remote.TaskResult {
		<-release
		return &remote.TaskResult{Payload: "too late"}
	})

	cfg := Config{CallTimeout: 50 * time.Millisecond, WaitTimeout: 150 * time.Millisecond, MaxDetached: 2}
	d := New(cfg, newRegistry(t, "http://peer.invalid"), stuck, WithLogger(quiet))

	start := time.Now()
	got := d.DelegateDetached(context.Background(), priceAgent, "price of X")

	assert.Equal(t, "Error in sync wrapper: timed out after 150ms waiting for price_scraper_agent", got)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDelegateDetached_CallerCancellationNotPropagated(t *testing.T) {
	var sawCancel atomic.Bool
	inv := invokerFunc(func(ctx context.Context, _, _ string) *remote.TaskResult {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.Canceled {
				sawCancel.Store(true)
			}
		case <-time.After(100 * time.Millisecond):
		}
		return &remote.TaskResult{Payload: "done"}
	})

	d := New(DefaultConfig(), newRegistry(t, "http://peer.invalid"), inv, WithLogger(quiet))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	got := d.DelegateDetached(ctx, priceAgent, "x")
	assert.Equal(t, "Error in sync wrapper: canceled while waiting for price_scraper_agent", got)

	require.Eventually(t, func() bool {
		return d.slots.TryAcquire(int64(d.cfg.MaxDetached))
	}, time.Second, 10*time.Millisecond, "abandoned worker should finish and release its slot")
	assert.False(t, sawCancel.Load(), "worker must not see the caller's cancellation")
}

func TestDelegateInline_CallTimeout(t *testing.T) {
	peer := testutils.NewStubPeer(t, priceAgent, []testutils.Step{
		testutils.Progress("searching"),
		testutils.Pause(5 * time.Second),
		testutils.Answer("never"),
	})
	cfg := Config{CallTimeout: 200 * time.Millisecond, WaitTimeout: time.Second}
	d := newDelegator(t, peer.URL, cfg)

	got := d.DelegateInline(context.Background(), priceAgent, "x")
	assert.Equal(t, "Error delegating to price_scraper_agent: timed out after 200ms", got)
}

func TestDelegateInline_CallerDeadline(t *testing.T) {
	peer := testutils.NewStubPeer(t, priceAgent, []testutils.Step{
		testutils.Progress("searching"),
		testutils.Pause(5 * time.Second),
		testutils.Answer("never"),
	})
	d := newDelegator(t, peer.URL, Config{CallTimeout: 5 * time.Second, WaitTimeout: 10 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	got := d.DelegateInline(ctx, priceAgent, "x")
	assert.Equal(t, "Error delegating to price_scraper_agent: caller deadline exceeded", got)
}

func TestDelegateDetached_CallerDeadline(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	stuck := invokerFunc(func(context.Context, string, string) *remote.TaskResult {
		<-release
		return &remote.TaskResult{Payload: "too late"}
	})

	cfg := Config{CallTimeout: time.Minute, WaitTimeout: 90 * time.Second, MaxDetached: 2}
	d := New(cfg, newRegistry(t, "http://peer.invalid"), stuck, WithLogger(quiet))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	got := d.DelegateDetached(ctx, priceAgent, "x")
	assert.Equal(t, "Error in sync wrapper: caller deadline exceeded while waiting for price_scraper_agent", got)
}

func TestDelegateDetached_CanceledWaitingForSlot(t *testing.T) {
	m, err := observability.InitMetrics(config.MetricsConfig{Enabled: true})
	require.NoError(t, err)

	d := New(Config{CallTimeout: time.Second, WaitTimeout: 2 * time.Second, MaxDetached: 1},
		newRegistry(t, "http://peer.invalid"), invokerFunc(func(context.Context, string, string) *remote.TaskResult {
			return &remote.TaskResult{Payload: "ok"}
		}), WithLogger(quiet), WithMetrics(m))
	require.True(t, d.slots.TryAcquire(1))
	defer d.slots.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := d.DelegateDetached(ctx, priceAgent, "x")
	assert.Equal(t, "Error in sync wrapper: no worker available for price_scraper_agent: canceled", got)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `outcome="error"`)
	assert.NotContains(t, rec.Body.String(), `outcome="timeout"`)
}

func TestDelegate_UnreachablePeer(t *testing.T) {
	url := testutils.UnreachableURL(t)
	d := newDelegator(t, url, DefaultConfig())

	for _, mode := range []Mode{ModeInline, ModeDetached} {
		t.Run(string(mode), func(t *testing.T) {
			var got string
			if mode == ModeInline {
				got = d.DelegateInline(context.Background(), priceAgent, "x")
			} else {
				got = d.DelegateDetached(context.Background(), priceAgent, "x")
			}
			assert.True(t, strings.HasPrefix(got, "Error from price_scraper_agent: "), got)
			assert.Contains(t, got, url)
		})
	}
}

func TestDelegate_UnreachablePeerNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "gone", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	d := newDelegator(t, srv.URL, DefaultConfig())
	got := d.Delegate(context.Background(), priceAgent, "x")

	assert.Contains(t, got, srv.URL)
	assert.Equal(t, int32(1), hits.Load())
}

func TestDelegate_DegenerateResults(t *testing.T) {
	tests := []struct {
		name string
		inv  invokerFunc
		want string
	}{
		{
			name: "empty payload",
			inv: func(context.Context, string, string) *remote.TaskResult {
				return &remote.TaskResult{}
			},
			want: "Error delegating to price_scraper_agent: empty result",
		},
		{
			name: "nil result",
			inv: func(context.Context, string, string) *remote.TaskResult {
				return nil
			},
			want: "Error delegating to price_scraper_agent: no result",
		},
		{
			name: "panic",
			inv: func(context.Context, string, string) *remote.TaskResult {
				panic("boom")
			},
			want: "Error delegating to price_scraper_agent: panic: boom",
		},
		{
			name: "error payload",
			inv: func(context.Context, string, string) *remote.TaskResult {
				return &remote.TaskResult{Err: fmt.Errorf("%w: no answer in 2 chunks", remote.ErrMalformedResponse)}
			},
			want: "Error from price_scraper_agent: malformed response: no answer in 2 chunks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(DefaultConfig(), newRegistry(t, "http://peer.invalid"), tt.inv, WithLogger(quiet))
			ctx := context.Background()

			assert.Equal(t, tt.want, d.DelegateInline(ctx, priceAgent, "x"))
			assert.Equal(t, tt.want, d.DelegateDetached(ctx, priceAgent, "x"))
		})
	}
}

func TestNew_NormalisesConfig(t *testing.T) {
	noop := invokerFunc(func(context.Context, string, string) *remote.TaskResult { return nil })
	reg := newRegistry(t, "http://peer.invalid")

	d := New(Config{}, reg, noop, WithLogger(quiet))
	assert.Equal(t, DefaultConfig(), d.Config())

	d = New(Config{CallTimeout: 10 * time.Second, WaitTimeout: 5 * time.Second}, reg, noop, WithLogger(quiet))
	assert.Equal(t, 15*time.Second, d.Config().WaitTimeout)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.DelegationConfig{
		CallTimeout: time.Second,
		WaitTimeout: 2 * time.Second,
		MaxDetached: 3,
		Mode:        config.ModeDetached,
	})
	assert.Equal(t, Config{CallTimeout: time.Second, WaitTimeout: 2 * time.Second, MaxDetached: 3, Mode: ModeDetached}, cfg)
}

func TestDelegate_RecordsMetrics(t *testing.T) {
	m, err := observability.InitMetrics(config.MetricsConfig{Enabled: true})
	require.NoError(t, err)

	peer := testutils.NewStubPeer(t, priceAgent, testutils.StandardAnswer("ok"))
	d := New(DefaultConfig(), newRegistry(t, peer.URL), remote.New(remote.WithLogger(quiet)),
		WithLogger(quiet), WithMetrics(m))

	require.Equal(t, "ok", d.Delegate(context.Background(), priceAgent, "x"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `shopwatch_delegations_total{agent="price_scraper_agent"`)
	assert.Contains(t, rec.Body.String(), `outcome="success"`)
}
