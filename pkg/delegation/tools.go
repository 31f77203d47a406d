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
	"strings"

	"github.com/kadirpekel/shopwatch/pkg/registry"
	"github.com/kadirpekel/shopwatch/pkg/remote"
	"github.com/kadirpekel/shopwatch/pkg/tool"
	"github.com/kadirpekel/shopwatch/pkg/tool/functiontool"
)

// Tool names exposed to the host agent.
const (
	DelegateToolName   = "delegate_task"
	ListAgentsToolName = "list_agents"
)

// DelegateArgs are the arguments of delegate_task.
type DelegateArgs struct {
	AgentName string `json:"agent_name" jsonschema:"required,description=Name of the agent to delegate to"`
	Task      string `json:"task_description" jsonschema:"required,description=Complete natural-language task for the agent"`
}

// Discoverer fetches the descriptors of configured peers.
type Discoverer interface {
	Discover(ctx context.Context, peers remote.Peers) []registry.Descriptor
}

// NewDelegateTool returns delegate_task. The tool never fails: every
// outcome is reported in the "result" string.
func NewDelegateTool(d *Delegator, known []string) (tool.CallableTool, error) {
	desc := "Send a task to a remote specialist agent and return its answer."
	if len(known) > 0 {
		desc += fmt.Sprintf(" Available agents: %s.", strings.Join(known, ", "))
	}
	return functiontool.New(
		functiontool.Config{Name: DelegateToolName, Description: desc},
		func(ctx context.Context, args DelegateArgs) (map[string]any, error) {
			return map[string]any{"result": d.Delegate(ctx, args.AgentName, args.Task)}, nil
		},
	)
}

type listAgentsArgs struct{}

// NewListAgentsTool returns list_agents, which fetches every peer's card
// and skips peers that cannot be reached.
func NewListAgentsTool(disc Discoverer, peers remote.Peers) (tool.CallableTool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        ListAgentsToolName,
			Description: "List the remote agents that can be delegated to, with their skills.",
		},
		func(ctx context.Context, _ listAgentsArgs) (map[string]any, error) {
			descriptors := disc.Discover(ctx, peers)
			agents := make([]map[string]any, 0, len(descriptors))
			for _, d := range descriptors {
				skills := make([]string, 0, len(d.Skills))
				for _, s := range d.Skills {
					skills = append(skills, s.Name)
				}
				agents = append(agents, map[string]any{
					"name":        d.Name,
					"url":         d.URL,
					"description": d.Description,
					"skills":      skills,
				})
			}
			return map[string]any{"agents": agents}, nil
		},
	)
}

// Tools returns delegate_task and list_agents backed by reg.
func Tools(d *Delegator, disc Discoverer, reg *registry.Registry) ([]tool.Tool, error) {
	delegate, err := NewDelegateTool(d, reg.Names())
	if err != nil {
		return nil, err
	}
	list, err := NewListAgentsTool(disc, reg)
	if err != nil {
		return nil, err
	}
	return []tool.Tool{delegate, list}, nil
}
