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

// Package model defines the LLM interface used by shopwatch agents.
//
// Providers live in subpackages (openai, anthropic, gemini). They translate
// the provider-neutral Request into their SDK's message format and back.
// A conversation is a flat list of messages: user text, assistant turns
// that may carry tool calls, and tool turns carrying the results.
package model

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/shopwatch/pkg/observability"
	"github.com/kadirpekel/shopwatch/pkg/tool"
)

// LLM is a language model that can call tools.
type LLM interface {
	// Name returns the model identifier.
	Name() string

	// Provider returns the provider type.
	Provider() Provider

	// GenerateContent produces the next assistant turn for req.
	GenerateContent(ctx context.Context, req *Request) (*Response, error)

	// Close releases any resources held by the LLM.
	Close() error
}

// Provider identifies the LLM provider.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleTool messages carry ToolResults for the preceding assistant turn.
	RoleTool Role = "tool"
)

// Message is one conversation turn.
type Message struct {
	Role        Role
	Content     string
	ToolCalls   []tool.ToolCall
	ToolResults []tool.ToolResult
}

// UserMessage returns a user turn.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// Request contains the input for an LLM call.
type Request struct {
	SystemInstruction string
	Messages          []Message
	Tools             []tool.Definition
	Config            *GenerateConfig
}

// GenerateConfig overrides provider defaults for one request.
type GenerateConfig struct {
	Temperature *float64
	MaxTokens   *int
}

// FinishReason says why generation stopped.
type FinishReason string

const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonToolCalls FinishReason = "tool_calls"
	FinishReasonLength    FinishReason = "length"
	FinishReasonOther     FinishReason = "other"
)

// Usage is the token accounting of one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response is one assistant turn.
type Response struct {
	Content      string
	ToolCalls    []tool.ToolCall
	FinishReason FinishReason
	Usage        Usage
}

// Message converts the response into the assistant turn to append to the
// conversation.
func (r *Response) Message() Message {
	return Message{Role: RoleAssistant, Content: r.Content, ToolCalls: r.ToolCalls}
}

// ErrEmptyResponse is returned by providers when the model produced no
// candidate at all.
var ErrEmptyResponse = errors.New("empty response from model")

// Instrument wraps llm with a span and request metrics per call.
func Instrument(llm LLM, metrics *observability.Metrics) LLM {
	return &instrumented{LLM: llm, metrics: metrics, tracer: otel.Tracer("github.com/kadirpekel/shopwatch/pkg/model")}
}

type instrumented struct {
	LLM
	metrics *observability.Metrics
	tracer  trace.Tracer
}

func (m *instrumented) GenerateContent(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	ctx, span := m.tracer.Start(ctx, observability.SpanLLMGenerate, trace.WithAttributes(
		attribute.String(observability.AttrProvider, string(m.Provider())),
		attribute.String(observability.AttrModel, m.Name()),
		attribute.Int("messages", len(req.Messages)),
		attribute.Int("tools", len(req.Tools)),
	))
	defer span.End()

	resp, err := m.LLM.GenerateContent(ctx, req)
	m.metrics.RecordLLMRequest(ctx, string(m.Provider()), m.Name(), time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("tool_calls", len(resp.ToolCalls)),
		attribute.Int("input_tokens", resp.Usage.InputTokens),
		attribute.Int("output_tokens", resp.Usage.OutputTokens),
		attribute.String("finish_reason", string(resp.FinishReason)),
	)
	return resp, nil
}
