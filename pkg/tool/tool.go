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

// Package tool defines the tools an agent can call.
//
//	Tool (base)
//	  └── CallableTool - synchronous execution with a JSON schema
//	Toolset          - lazily resolved group of tools (e.g. an MCP server)
//
// Use the constructors in the sub-packages:
//
//	// Typed Go function
//	t, _ := functiontool.New(functiontool.Config{Name: "delegate_task"}, fn)
//
//	// Remote MCP server (lazy connection)
//	ts, _ := mcptoolset.New(mcptoolset.Config{URL: "http://localhost:8081/mcp"})
package tool

import (
	"context"
	"fmt"
)

// Tool is the base interface of every tool.
type Tool interface {
	// Name returns the unique name of the tool.
	Name() string

	// Description tells the LLM when to use the tool.
	Description() string
}

// CallableTool is a tool that executes synchronously.
type CallableTool interface {
	Tool

	// Call executes the tool. The result is returned to the LLM as JSON.
	Call(ctx context.Context, args map[string]any) (map[string]any, error)

	// Schema returns the JSON schema of the parameters, or nil.
	Schema() map[string]any
}

// Toolset groups tools that are resolved on demand.
type Toolset interface {
	// Name returns the name of this toolset.
	Name() string

	// Tools returns the available tools.
	Tools(ctx context.Context) ([]Tool, error)
}

// Predicate determines whether a tool is exposed to the LLM.
type Predicate func(t Tool) bool

// StringPredicate allows only the named tools.
func StringPredicate(allowedTools []string) Predicate {
	allowed := make(map[string]bool, len(allowedTools))
	for _, name := range allowedTools {
		allowed[name] = true
	}
	return func(t Tool) bool {
		return allowed[t.Name()]
	}
}

// AllowAll allows every tool.
func AllowAll() Predicate {
	return func(Tool) bool { return true }
}

// Combine joins predicates with AND logic.
func Combine(predicates ...Predicate) Predicate {
	return func(t Tool) bool {
		for _, p := range predicates {
			if !p(t) {
				return false
			}
		}
		return true
	}
}

// Not negates a predicate.
func Not(p Predicate) Predicate {
	return func(t Tool) bool { return !p(t) }
}

// Definition describes a tool for LLM function calling.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToDefinition converts a tool to a Definition.
func ToDefinition(t Tool) Definition {
	def := Definition{
		Name:        t.Name(),
		Description: t.Description(),
	}
	if ct, ok := t.(CallableTool); ok {
		def.Parameters = ct.Schema()
	}
	return def
}

// ToolCall is an LLM's request to invoke a tool.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResult is the outcome of a tool invocation, fed back to the LLM.
type ToolResult struct {
	ToolCallID string
	Name       string
	Content    string
	IsError    bool
}

// Collect resolves toolsets and merges them with tools into a name-indexed
// set of callable tools. Duplicate names are an error.
func Collect(ctx context.Context, tools []Tool, toolsets []Toolset) (map[string]CallableTool, error) {
	out := make(map[string]CallableTool)
	add := func(t Tool, source string) error {
		ct, ok := t.(CallableTool)
		if !ok {
			return fmt.Errorf("tool %s from %s is not callable", t.Name(), source)
		}
		if _, dup := out[ct.Name()]; dup {
			return fmt.Errorf("duplicate tool name %s from %s", ct.Name(), source)
		}
		out[ct.Name()] = ct
		return nil
	}

	for _, t := range tools {
		if err := add(t, "agent"); err != nil {
			return nil, err
		}
	}
	for _, ts := range toolsets {
		resolved, err := ts.Tools(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve toolset %s: %w", ts.Name(), err)
		}
		for _, t := range resolved {
			if err := add(t, ts.Name()); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
