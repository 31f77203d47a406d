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

// Package openai implements model.LLM on the OpenAI Chat Completions API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/kadirpekel/shopwatch/pkg/model"
	"github.com/kadirpekel/shopwatch/pkg/tool"
)

const (
	defaultModel     = openai.ChatModelGPT4oMini
	defaultMaxTokens = 4096
)

// Config configures the OpenAI client.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature *float64
	MaxTokens   int
	MaxRetries  *int
	HTTPClient  *http.Client
}

// Client implements model.LLM.
type Client struct {
	client    openai.Client
	modelName string
	cfg       Config
}

// New creates an OpenAI model.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
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

	return &Client{client: openai.NewClient(opts...), modelName: cfg.Model, cfg: cfg}, nil
}

func (c *Client) Name() string             { return c.modelName }
func (c *Client) Provider() model.Provider { return model.ProviderOpenAI }
func (c *Client) Close() error             { return nil }

// GenerateContent sends one chat completion request.
func (c *Client) GenerateContent(ctx context.Context, req *model.Request) (*model.Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:               c.modelName,
		Messages:            buildMessages(req),
		MaxCompletionTokens: openai.Int(int64(c.maxTokens(req))),
	}
	if t := c.temperature(req); t != nil {
		params.Temperature = openai.Float(*t)
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, model.ErrEmptyResponse
	}

	choice := resp.Choices[0]
	out := &model.Response{
		Content:      choice.Message.Content,
		FinishReason: mapFinishReason(choice.FinishReason),
		Usage: model.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		args, err := parseArguments(tc.Function.Arguments)
		if err != nil {
			return nil, fmt.Errorf("openai: tool call %s has invalid arguments: %w", tc.Function.Name, err)
		}
		out.ToolCalls = append(out.ToolCalls, tool.ToolCall{ID: tc.ID, Name: tc.Function.Name, Args: args})
	}
	return out, nil
}

func (c *Client) maxTokens(req *model.Request) int {
	if req.Config != nil && req.Config.MaxTokens != nil {
		return *req.Config.MaxTokens
	}
	return c.cfg.MaxTokens
}

func (c *Client) temperature(req *model.Request) *float64 {
	if req.Config != nil && req.Config.Temperature != nil {
		return req.Config.Temperature
	}
	return c.cfg.Temperature
}

func buildMessages(req *model.Request) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemInstruction != "" {
		messages = append(messages, openai.SystemMessage(req.SystemInstruction))
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case model.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(msg.Content))
				continue
			}
			assistant := &openai.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				assistant.Content.OfString = openai.String(msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				args, _ := json.Marshal(tc.Args)
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: assistant})
		case model.RoleTool:
			for _, tr := range msg.ToolResults {
				messages = append(messages, openai.ToolMessage(tr.Content, tr.ToolCallID))
			}
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	return messages
}

func buildTools(defs []tool.Definition) []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, len(defs))
	for i, def := range defs {
		params := def.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		tools[i] = openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  openai.FunctionParameters(params),
			},
		}
	}
	return tools
}

func parseArguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if raw == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	return args, nil
}

func mapFinishReason(reason string) model.FinishReason {
	switch reason {
	case "stop":
		return model.FinishReasonStop
	case "tool_calls", "function_call":
		return model.FinishReasonToolCalls
	case "length":
		return model.FinishReasonLength
	default:
		return model.FinishReasonOther
	}
}

var _ model.LLM = (*Client)(nil)
