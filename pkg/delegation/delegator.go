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

// Package delegation bridges tool calls to remote agents.
//
// A Delegator turns every outcome of a remote invocation into a string, the
// only thing an LLM tool call can consume. It runs the invocation either
// inline on the caller's goroutine or on a detached worker that the caller
// waits for with a second, longer deadline.
package delegation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/kadirpekel/shopwatch/pkg/config"
	"github.com/kadirpekel/shopwatch/pkg/observability"
	"github.com/kadirpekel/shopwatch/pkg/registry"
	"github.com/kadirpekel/shopwatch/pkg/remote"
)

var tracer = otel.Tracer("github.com/kadirpekel/shopwatch/pkg/delegation")

// Causes attached to the timers armed here, so that an expired context can
// be told apart from the caller's own deadline.
var (
	errCallTimeout = errors.New("call timeout")
	errWaitTimeout = errors.New("wait timeout")
)

// Mode selects how a delegation is executed.
type Mode string

const (
	ModeInline   Mode = config.ModeInline
	ModeDetached Mode = config.ModeDetached
)

// Default timeouts.
const (
	DefaultCallTimeout = 60 * time.Second
	DefaultWaitTimeout = 90 * time.Second
	DefaultMaxDetached = 8
)

// Resolver maps agent names to base URLs.
type Resolver interface {
	Resolve(name string) (string, error)
}

// Invoker sends one instruction to a peer. Implementations report failures
// on the result and never panic across the call.
type Invoker interface {
	Invoke(ctx context.Context, address, instruction string) *remote.TaskResult
}

// Config tunes a Delegator.
type Config struct {
	// CallTimeout bounds one remote invocation.
	CallTimeout time.Duration
	// WaitTimeout bounds how long a detached delegation is awaited. It must
	// exceed CallTimeout.
	WaitTimeout time.Duration
	// MaxDetached caps detached workers in flight, including abandoned ones.
	MaxDetached int
	Mode        Mode
}

// DefaultConfig returns the stock timeouts in inline mode.
func DefaultConfig() Config {
	return Config{
		CallTimeout: DefaultCallTimeout,
		WaitTimeout: DefaultWaitTimeout,
		MaxDetached: DefaultMaxDetached,
		Mode:        ModeInline,
	}
}

// ConfigFrom converts the delegation section of the process configuration.
func ConfigFrom(c config.DelegationConfig) Config {
	return Config{
		CallTimeout: c.CallTimeout,
		WaitTimeout: c.WaitTimeout,
		MaxDetached: c.MaxDetached,
		Mode:        Mode(c.Mode),
	}
}

// Option configures a Delegator.
type Option func(*Delegator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Delegator) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics records delegation counts and durations.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Delegator) {
		d.metrics = m
	}
}

// Delegator forwards tasks to peers and always answers with a string.
type Delegator struct {
	cfg      Config
	resolver Resolver
	invoker  Invoker
	slots    *semaphore.Weighted
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New creates a Delegator. Zero config values take the defaults; a wait
// timeout that does not exceed the call timeout is raised to one and a half
// times the call timeout.
func New(cfg Config, resolver Resolver, invoker Invoker, opts ...Option) *Delegator {
	d := &Delegator{
		resolver: resolver,
		invoker:  invoker,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	if cfg.WaitTimeout <= cfg.CallTimeout {
		raised := cfg.CallTimeout * 3 / 2
		d.logger.Warn("Wait timeout must exceed call timeout, raising it",
			"wait_timeout", cfg.WaitTimeout, "call_timeout", cfg.CallTimeout, "raised_to", raised)
		cfg.WaitTimeout = raised
	}
	if cfg.MaxDetached < 1 {
		cfg.MaxDetached = DefaultMaxDetached
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeInline
	}

	d.cfg = cfg
	d.slots = semaphore.NewWeighted(int64(cfg.MaxDetached))
	return d
}

// Config returns the effective configuration.
func (d *Delegator) Config() Config {
	return d.cfg
}

// Delegate forwards task to agentName using the configured mode.
func (d *Delegator) Delegate(ctx context.Context, agentName, task string) string {
	if d.cfg.Mode == ModeDetached {
		return d.DelegateDetached(ctx, agentName, task)
	}
	return d.DelegateInline(ctx, agentName, task)
}

// DelegateInline runs the invocation on the calling goroutine, bounded by
// the call timeout.
func (d *Delegator) DelegateInline(ctx context.Context, agentName, task string) string {
	start := time.Now()
	ctx, span := tracer.Start(ctx, observability.SpanDelegate, trace.WithAttributes(
		attribute.String(observability.AttrAgent, agentName),
		attribute.String(observability.AttrMode, string(ModeInline)),
	))
	defer span.End()

	out, outcome := d.run(ctx, agentName, task)
	d.finish(ctx, span, agentName, ModeInline, outcome, start)
	return out
}

// DelegateDetached runs the invocation on a worker goroutine that does not
// inherit the caller's cancellation. The caller waits at most WaitTimeout;
// a worker still running after that is abandoned and ends on its own call
// timeout.
func (d *Delegator) DelegateDetached(ctx context.Context, agentName, task string) string {
	start := time.Now()
	ctx, span := tracer.Start(ctx, observability.SpanDelegate, trace.WithAttributes(
		attribute.String(observability.AttrAgent, agentName),
		attribute.String(observability.AttrMode, string(ModeDetached)),
	))
	defer span.End()

	out, outcome := d.detach(ctx, agentName, task)
	d.finish(ctx, span, agentName, ModeDetached, outcome, start)
	return out
}

type result struct {
	out     string
	outcome string
}

func (d *Delegator) detach(ctx context.Context, agentName, task string) (string, string) {
	waitCtx, cancel := context.WithTimeoutCause(ctx, d.cfg.WaitTimeout, errWaitTimeout)
	defer cancel()

	if err := d.slots.Acquire(waitCtx, 1); err != nil {
		reason, outcome := stopReason(waitCtx, errWaitTimeout, d.cfg.WaitTimeout)
		return wrapperError(fmt.Errorf("no worker available for %s: %s", agentName, reason)), outcome
	}

	done := make(chan result, 1)
	workerCtx := context.WithoutCancel(ctx)
	go func() {
		defer d.slots.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- result{wrapperError(fmt.Errorf("worker panicked: %v", r)), observability.OutcomeError}
			}
		}()
		out, outcome := d.run(workerCtx, agentName, task)
		done <- result{out, outcome}
	}()

	select {
	case r := <-done:
		return r.out, r.outcome
	case <-waitCtx.Done():
		go d.drain(agentName, done)
		reason, outcome := stopReason(waitCtx, errWaitTimeout, d.cfg.WaitTimeout)
		if errors.Is(context.Cause(waitCtx), errWaitTimeout) {
			return wrapperError(fmt.Errorf("%s waiting for %s", reason, agentName)), outcome
		}
		return wrapperError(fmt.Errorf("%s while waiting for %s", reason, agentName)), outcome
	}
}

// stopReason reports why ctx ended: the timer armed here with own, the
// caller's deadline, or the caller's cancellation.
func stopReason(ctx context.Context, own error, limit time.Duration) (reason, outcome string) {
	switch cause := context.Cause(ctx); {
	case errors.Is(cause, own):
		return fmt.Sprintf("timed out after %s", limit), observability.OutcomeTimeout
	case errors.Is(cause, context.DeadlineExceeded):
		return "caller deadline exceeded", observability.OutcomeTimeout
	default:
		return "canceled", observability.OutcomeError
	}
}

// drain logs and discards the result of an abandoned worker.
func (d *Delegator) drain(agentName string, done <-chan result) {
	r := <-done
	d.logger.Warn("Discarding late delegation result", "agent", agentName, "outcome", r.outcome, "result", truncate(r.out, 200))
}

// run resolves and invokes. It never panics.
func (d *Delegator) run(ctx context.Context, agentName, task string) (out, outcome string) {
	address, err := d.resolver.Resolve(agentName)
	if err != nil {
		d.logger.Warn("Delegation to unknown agent", "agent", agentName)
		return unknownAgentError(err), observability.OutcomeError
	}

	defer func() {
		if r := recover(); r != nil {
			out = delegateError(agentName, fmt.Errorf("panic: %v", r))
			outcome = observability.OutcomeError
		}
	}()

	callCtx, cancel := context.WithTimeoutCause(ctx, d.cfg.CallTimeout, errCallTimeout)
	defer cancel()

	d.logger.Info("Delegating task", "agent", agentName, "address", address)
	res := d.invoker.Invoke(callCtx, address, task)

	switch {
	case res == nil:
		return delegateError(agentName, errors.New("no result")), observability.OutcomeError
	case callCtx.Err() != nil && (res.Err != nil || res.Payload == ""):
		reason, outcome := stopReason(callCtx, errCallTimeout, d.cfg.CallTimeout)
		return delegateError(agentName, errors.New(reason)), outcome
	case res.Err != nil:
		d.logger.Warn("Peer returned an error", "agent", agentName, "error", res.Err)
		return fmt.Sprintf("Error from %s: %v", agentName, res.Err), observability.OutcomeError
	case res.Payload == "":
		return delegateError(agentName, errors.New("empty result")), observability.OutcomeEmpty
	}
	return res.Payload, observability.OutcomeSuccess
}

func (d *Delegator) finish(ctx context.Context, span trace.Span, agentName string, mode Mode, outcome string, start time.Time) {
	span.SetAttributes(attribute.String(observability.AttrOutcome, outcome))
	if outcome != observability.OutcomeSuccess {
		span.SetStatus(codes.Error, outcome)
	}
	d.metrics.RecordDelegation(ctx, agentName, string(mode), outcome, time.Since(start))
}

func delegateError(agentName string, err error) string {
	return fmt.Sprintf("Error delegating to %s: %v", agentName, err)
}

// unknownAgentError keeps the wording the host prompt was written against.
func unknownAgentError(err error) string {
	var unknown *registry.UnknownAgentError
	if !errors.As(err, &unknown) {
		return "Error: " + err.Error()
	}
	return fmt.Sprintf("Error: Agent '%s' is not a known agent. Available agents are: [%s]",
		unknown.Name, strings.Join(unknown.Known, ", "))
}

func wrapperError(err error) string {
	return fmt.Sprintf("Error in sync wrapper: %v", err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
