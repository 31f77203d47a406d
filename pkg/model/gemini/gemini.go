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

// Package gemini implements model.LLM for Google Gemini models on the
// google.golang.org/genai SDK.
package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/kadirpekel/shopwatch/pkg/model"
	"github.com/kadirpekel/shopwatch/pkg/tool"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

const (
	defaultModel     = "gemini-2.0-flash"
	defaultMaxTokens = 4096
)

// Config contains configuration for the Gemini model.
type Config struct {
	// APIKey is the Google AI API key.
	APIKey string

	// Model is the model name (e.g., "gemini-2.0-flash", "gemini-1.5-pro").
	Model string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls randomness (0-2). Nil leaves the model default.
	Temperature *float64

	HTTPClient *http.Client
}

// geminiModel implements model.LLM for Gemini.
type geminiModel struct {
	client *genai.Client
	name   string
	config Config
}

// New creates a new Gemini model instance.
func New(cfg Config) (model.LLM, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	// Constructors shouldn't require a context.
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &geminiModel{
		client: client,
		name:   cfg.Model,
		config: cfg,
	}, nil
}

// Name returns the model identifier.
func (m *geminiModel) Name() string {
	return m.name
}

// Provider returns the provider type.
func (m *geminiModel) Provider() model.Provider {
	return model.ProviderGemini
}

// Close is a no-op; the genai client holds no connections of its own.
func (m *geminiModel) Close() error {
	return nil
}

// GenerateContent produces the next model turn.
func (m *geminiModel) GenerateContent(ctx context.Context, req *model.Request) (*model.Response, error) {
	contents := buildContents(req.Messages)
	config := m.buildConfig(req)

	genResp, err := m.client.Models.GenerateContent(ctx, m.name, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini api error: %w", err)
	}
	return parseResponse(genResp)
}

// buildContents converts the conversation to Gemini contents. Tool results
// travel as function responses in a user turn.
func buildContents(messages []model.Message) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleAssistant:
			var parts []*genai.Part
			if msg.Content != "" {
				parts = append(parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: tc.Args},
				})
			}
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{Role: roleModel, Parts: parts})
			}
		case model.RoleTool:
			parts := make([]*genai.Part, 0, len(msg.ToolResults))
			for _, tr := range msg.ToolResults {
				response := map[string]any{"output": tr.Content}
				if tr.IsError {
					response = map[string]any{"error": tr.Content}
				}
				parts = append(parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{ID: tr.ToolCallID, Name: tr.Name, Response: response},
				})
			}
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{Role: roleUser, Parts: parts})
			}
		default:
			contents = append(contents, &genai.Content{Role: roleUser, Parts: []*genai.Part{{Text: msg.Content}}})
		}
	}
	return contents
}

func (m *geminiModel) buildConfig(req *model.Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(m.config.MaxTokens),
	}
	if req.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemInstruction}},
		}
	}

	temperature := m.config.Temperature
	if req.Config != nil {
		if req.Config.Temperature != nil {
			temperature = req.Config.Temperature
		}
		if req.Config.MaxTokens != nil {
			config.MaxOutputTokens = int32(*req.Config.MaxTokens)
		}
	}
	if temperature != nil {
		config.Temperature = genai.Ptr(float32(*temperature))
	}

	if len(req.Tools) > 0 {
		config.Tools = buildTools(req.Tools)
	}
	return config
}

// buildTools declares every tool on a single genai.Tool.
func buildTools(tools []tool.Definition) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  toGenaiSchema(t.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// toGenaiSchema converts a JSON schema to Gemini schema.
func toGenaiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}

	s := &genai.Schema{}

	if t, ok := schema["type"].(string); ok {
		s.Type = genai.Type(strings.ToUpper(t))
	}
	if desc, ok := schema["description"].(string); ok {
		s.Description = desc
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema)
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				s.Properties[name] = toGenaiSchema(propMap)
			}
		}
	}
	s.Required = stringList(schema["required"])
	if items, ok := schema["items"].(map[string]any); ok {
		s.Items = toGenaiSchema(items)
	}
	s.Enum = stringList(schema["enum"])

	return s
}

// stringList accepts both decoded JSON ([]any) and Go-built ([]string) lists.
func stringList(v any) []string {
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

func parseResponse(genResp *genai.GenerateContentResponse) (*model.Response, error) {
	if genResp == nil || len(genResp.Candidates) == 0 {
		return nil, model.ErrEmptyResponse
	}

	candidate := genResp.Candidates[0]
	resp := &model.Response{FinishReason: mapFinishReason(candidate.FinishReason)}

	if candidate.Content != nil {
		var text strings.Builder
		for _, part := range candidate.Content.Parts {
			if part.Text != "" && !part.Thought {
				text.WriteString(part.Text)
			}
			if part.FunctionCall != nil {
				id := part.FunctionCall.ID
				if id == "" {
					id = stableCallID(part.FunctionCall.Name, part.FunctionCall.Args)
				}
				resp.ToolCalls = append(resp.ToolCalls, tool.ToolCall{
					ID:   id,
					Name: part.FunctionCall.Name,
					Args: part.FunctionCall.Args,
				})
			}
		}
		resp.Content = text.String()
	}
	// Gemini reports STOP even when it calls functions.
	if len(resp.ToolCalls) > 0 {
		resp.FinishReason = model.FinishReasonToolCalls
	}

	if genResp.UsageMetadata != nil {
		resp.Usage = model.Usage{
			InputTokens:  int(genResp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(genResp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return resp, nil
}

// stableCallID derives an ID from name and args, since Gemini often leaves
// function call IDs empty.
func stableCallID(name string, args map[string]any) string {
	data, _ := json.Marshal(map[string]any{"name": name, "args": args})
	hash := sha256.Sum256(data)
	return fmt.Sprintf("call-%x", hash[:12])
}

func mapFinishReason(reason genai.FinishReason) model.FinishReason {
	switch reason {
	case genai.FinishReasonStop, "":
		return model.FinishReasonStop
	case genai.FinishReasonMaxTokens:
		return model.FinishReasonLength
	default:
		return model.FinishReasonOther
	}
}

var _ model.LLM = (*geminiModel)(nil)
