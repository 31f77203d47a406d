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

// Package functiontool creates tools from typed Go functions. The parameter
// schema is generated from the argument struct's json and jsonschema tags.
//
//	type DelegateArgs struct {
//	    AgentName string `json:"agent_name" jsonschema:"required,description=Agent to delegate to"`
//	    Task      string `json:"task_description" jsonschema:"required,description=What the agent should do"`
//	}
//
//	delegate, err := functiontool.New(
//	    functiontool.Config{Name: "delegate_task", Description: "Delegate a task to a specialist"},
//	    func(ctx context.Context, args DelegateArgs) (map[string]any, error) {
//	        return map[string]any{"result": d.Delegate(ctx, args.AgentName, args.Task)}, nil
//	    },
//	)
package functiontool

import (
	"context"
	"fmt"

	"github.com/kadirpekel/shopwatch/pkg/tool"
)

// Config defines a function tool.
type Config struct {
	// Name is the unique identifier for this tool (required).
	Name string

	// Description is shown to the LLM (required).
	Description string
}

// New creates a CallableTool from a typed function.
func New[Args any](cfg Config, fn func(context.Context, Args) (map[string]any, error)) (tool.CallableTool, error) {
	return NewWithValidation(cfg, fn, nil)
}

// NewWithValidation is New with an argument check that runs before fn.
func NewWithValidation[Args any](
	cfg Config,
	fn func(context.Context, Args) (map[string]any, error),
	validate func(Args) error,
) (tool.CallableTool, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	if cfg.Description == "" {
		return nil, fmt.Errorf("tool description is required")
	}
	if fn == nil {
		return nil, fmt.Errorf("tool %s has no function", cfg.Name)
	}

	schema, err := generateSchema[Args]()
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema for %s: %w", cfg.Name, err)
	}

	return &functionTool[Args]{config: cfg, fn: fn, validate: validate, schema: schema}, nil
}

type functionTool[Args any] struct {
	config   Config
	fn       func(context.Context, Args) (map[string]any, error)
	validate func(Args) error
	schema   map[string]any
}

func (t *functionTool[Args]) Name() string           { return t.config.Name }
func (t *functionTool[Args]) Description() string    { return t.config.Description }
func (t *functionTool[Args]) Schema() map[string]any { return t.schema }

// Call decodes args into Args, validates them and runs the function.
func (t *functionTool[Args]) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	var typed Args
	if err := decodeArgs(args, &typed); err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", t.config.Name, err)
	}
	if t.validate != nil {
		if err := t.validate(typed); err != nil {
			return nil, fmt.Errorf("validation failed for %s: %w", t.config.Name, err)
		}
	}
	return t.fn(ctx, typed)
}

var _ tool.CallableTool = (*functionTool[struct{}])(nil)
