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

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/shopwatch/pkg/model"
	"github.com/kadirpekel/shopwatch/pkg/observability"
	"github.com/kadirpekel/shopwatch/pkg/tool"
)

// DefaultMaxSteps bounds model calls per run when Config.MaxSteps is unset.
const DefaultMaxSteps = 8

// callIDPrefix marks tool call IDs generated here rather than by the model.
const callIDPrefix = "call-"

// ErrMaxSteps is returned when the model keeps calling tools past the limit.
var ErrMaxSteps = errors.New("agent exceeded max steps")

var tracer = otel.Tracer("github.com/kadirpekel/shopwatch/pkg/agent")

// Config configures an Agent.
type Config struct {
	// Name identifies the agent in events, logs and spans.
	Name string

	Description string

	// Instruction is the system prompt.
	Instruction string

	// Model is required.
	Model model.LLM

	Tools    []tool.Tool
	Toolsets []tool.Toolset

	// MaxSteps bounds model calls per run. Defaults to DefaultMaxSteps.
	MaxSteps int

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Agent is an LLM agent with tools.
type Agent struct {
	cfg    Config
	logger *slog.Logger
}

// New validates cfg and creates an Agent.
func New(cfg Config) (*Agent, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if cfg.Model == nil {
		return nil, fmt.Errorf("agent %s: model is required", cfg.Name)
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{cfg: cfg, logger: logger.With("agent", cfg.Name)}, nil
}

// Name returns the agent name.
func (a *Agent) Name() string {
	return a.cfg.Name
}

// Description returns the agent description.
func (a *Agent) Description() string {
	return a.cfg.Description
}

// Run answers input. The last event of a successful run is an answer event.
// A model error or ErrMaxSteps ends the run with an error instead.
func (a *Agent) Run(ctx context.Context, input string) iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		ctx, span := tracer.Start(ctx, observability.SpanAgentRun,
			trace.WithAttributes(attribute.String(observability.AttrAgent, a.cfg.Name)))
		defer span.End()

		err := a.run(ctx, input, yield)
		if err != nil && !errors.Is(err, errStopped) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
}

// errStopped signals that the consumer stopped iterating.
var errStopped = errors.New("stopped")

func (a *Agent) run(ctx context.Context, input string, yield func(*Event, error) bool) error {
	fail := func(err error) error {
		yield(nil, err)
		return err
	}

	tools, err := tool.Collect(ctx, a.cfg.Tools, a.cfg.Toolsets)
	if err != nil {
		return fail(fmt.Errorf("agent %s: %w", a.cfg.Name, err))
	}

	req := &model.Request{
		SystemInstruction: a.cfg.Instruction,
		Messages:          []model.Message{model.UserMessage(input)},
		Tools:             definitions(tools),
	}

	for step := 0; step < a.cfg.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		resp, err := a.cfg.Model.GenerateContent(ctx, req)
		if err != nil {
			return fail(fmt.Errorf("agent %s: model call failed: %w", a.cfg.Name, err))
		}
		populateToolCallIDs(resp)

		if len(resp.ToolCalls) == 0 {
			a.logger.Debug("Agent answered", "steps", step+1)
			if !yield(newEvent(a.cfg.Name, EventAnswer, resp.Content), nil) {
				return errStopped
			}
			return nil
		}

		req.Messages = append(req.Messages, resp.Message())
		results := make([]tool.ToolResult, 0, len(resp.ToolCalls))
		for _, tc := range resp.ToolCalls {
			if !yield(toolCallEvent(a.cfg.Name, tc), nil) {
				return errStopped
			}
			tr := a.callTool(ctx, tools, tc)
			if !yield(toolResultEvent(a.cfg.Name, tr), nil) {
				return errStopped
			}
			results = append(results, tr)
		}
		req.Messages = append(req.Messages, model.Message{Role: model.RoleTool, ToolResults: results})
	}

	return fail(fmt.Errorf("agent %s: %w (%d)", a.cfg.Name, ErrMaxSteps, a.cfg.MaxSteps))
}

// callTool runs one tool call. Failures become error results for the model.
func (a *Agent) callTool(ctx context.Context, tools map[string]tool.CallableTool, tc tool.ToolCall) tool.ToolResult {
	tr := tool.ToolResult{ToolCallID: tc.ID, Name: tc.Name}

	t, ok := tools[tc.Name]
	if !ok {
		tr.Content = fmt.Sprintf("Error: tool %q not found", tc.Name)
		tr.IsError = true
		return tr
	}

	ctx, span := tracer.Start(ctx, observability.SpanToolCall,
		trace.WithAttributes(
			attribute.String(observability.AttrAgent, a.cfg.Name),
			attribute.String(observability.AttrTool, tc.Name),
		))
	defer span.End()

	start := time.Now()
	result, err := t.Call(ctx, tc.Args)
	a.cfg.Metrics.RecordToolCall(ctx, tc.Name, time.Since(start), err)

	if err != nil {
		a.logger.Warn("Tool call failed", "tool", tc.Name, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		tr.Content = fmt.Sprintf("Error: %v", err)
		tr.IsError = true
		return tr
	}
	tr.Content = formatToolResult(result)
	return tr
}

// formatToolResult renders a tool result for the model. A lone "result"
// string is passed through as is.
func formatToolResult(result map[string]any) string {
	if result == nil {
		return "null"
	}
	if len(result) == 1 {
		if s, ok := result["result"].(string); ok {
			return s
		}
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(data)
}

// definitions returns tool definitions sorted by name so requests are
// stable across runs.
func definitions(tools map[string]tool.CallableTool) []tool.Definition {
	defs := make([]tool.Definition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, tool.ToDefinition(t))
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// populateToolCallIDs assigns IDs to tool calls the model left unnamed so
// results can be paired with calls.
func populateToolCallIDs(resp *model.Response) {
	for i := range resp.ToolCalls {
		if resp.ToolCalls[i].ID == "" {
			resp.ToolCalls[i].ID = callIDPrefix + uuid.NewString()
		}
	}
}
