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

// Package anthropic implements model.LLM on the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kadirpekel/shopwatch/pkg/model"
	"github.com/kadirpekel/shopwatch/pkg/tool"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 4096
)

// Config configures the Anthropic client.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature *float64
	BaseURL     string
	MaxRetries  *int
	HTTPClient  *http.Client
}

// Client is an Anthropic LLM implementation.
type Client struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature *float64
}

// New creates a new Anthropic client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultModel
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries != nil {
		opts = append(opts, option.WithMaxRetries(*cfg.MaxRetries))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		client:      anthropic.NewClient(opts...),
		model:       modelName,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Name returns the model name.
func (c *Client) Name() string {
	return c.model
}

// Provider returns the provider type.
func (c *Client) Provider() model.Provider {
	return model.ProviderAnthropic
}

// Close releases resources.
func (c *Client) Close() error {
	return nil
}

// GenerateContent sends one Messages request.
func (c *Client) GenerateContent(ctx context.Context, req *model.Request) (*model.Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages:  buildMessages(req.Messages),
	}
	if req.SystemInstruction != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemInstruction}}
	}

	temperature := c.temperature
	if req.Config != nil {
		if req.Config.Temperature != nil {
			temperature = req.Config.Temperature
		}
		if req.Config.MaxTokens != nil {
			params.MaxTokens = int64(*req.Config.MaxTokens)
		}
	}
	if temperature != nil {
		params.Temperature = anthropic.Float(*temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}
	return parseResponse(message)
}

// buildMessages converts the conversation. Anthropic requires tool results
// to be sent as user messages.
func buildMessages(messages []model.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.ToolCalls)+1)
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				args := tc.Args
				if args == nil {
					args = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, args, tc.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		case model.RoleTool:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.ToolResults))
			for _, tr := range msg.ToolResults {
				blocks = append(blocks, anthropic.NewToolResultBlock(tr.ToolCallID, tr.Content, tr.IsError))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewUserMessage(blocks...))
			}
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return out
}

func buildTools(defs []tool.Definition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		schema := anthropic.ToolInputSchemaParam{}
		if props, ok := def.Parameters["properties"]; ok {
			schema.Properties = props
		}
		schema.Required = requiredFields(def.Parameters["required"])

		t := anthropic.ToolUnionParamOfTool(schema, def.Name)
		if def.Description != "" {
			t.OfTool.Description = anthropic.String(def.Description)
		}
		tools = append(tools, t)
	}
	return tools
}

func requiredFields(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		var out []string
		for _, e := range list {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func parseResponse(message *anthropic.Message) (*model.Response, error) {
	if message == nil || len(message.Content) == 0 {
		return nil, model.ErrEmptyResponse
	}

	resp := &model.Response{
		FinishReason: mapStopReason(string(message.StopReason)),
		Usage: model.Usage{
			InputTokens:  int(message.Usage.InputTokens),
			OutputTokens: int(message.Usage.OutputTokens),
		},
	}

	var text strings.Builder
	for _, block := range message.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			args := map[string]any{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					return nil, fmt.Errorf("tool_use %s has invalid input: %w", block.Name, err)
				}
			}
			resp.ToolCalls = append(resp.ToolCalls, tool.ToolCall{ID: block.ID, Name: block.Name, Args: args})
		}
	}
	resp.Content = text.String()
	return resp, nil
}

func mapStopReason(reason string) model.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence":
		return model.FinishReasonStop
	case "tool_use":
		return model.FinishReasonToolCalls
	case "max_tokens":
		return model.FinishReasonLength
	default:
		return model.FinishReasonOther
	}
}

var _ model.LLM = (*Client)(nil)
