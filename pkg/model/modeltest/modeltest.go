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

// Package modeltest provides a scripted model.LLM for tests.
package modeltest

import (
	"context"
	"fmt"
	"sync"

	"github.com/kadirpekel/shopwatch/pkg/model"
	"github.com/kadirpekel/shopwatch/pkg/tool"
)

// Turn is one scripted model reply. Err, when set, is returned instead.
type Turn struct {
	Content   string
	ToolCalls []tool.ToolCall
	Err       error
}

// Text returns a final answer turn.
func Text(content string) Turn {
	return Turn{Content: content}
}

// Call returns a turn requesting a single tool call.
func Call(id, name string, args map[string]any) Turn {
	return Turn{ToolCalls: []tool.ToolCall{{ID: id, Name: name, Args: args}}}
}

// LLM replays turns in order and records every request it receives.
type LLM struct {
	mu       sync.Mutex
	turns    []Turn
	requests []*model.Request
}

// New returns an LLM that replays turns.
func New(turns ...Turn) *LLM {
	return &LLM{turns: turns}
}

func (l *LLM) Name() string             { return "scripted" }
func (l *LLM) Provider() model.Provider { return "scripted" }
func (l *LLM) Close() error             { return nil }

// GenerateContent returns the next turn. Running out of turns is an error.
func (l *LLM) GenerateContent(_ context.Context, req *model.Request) (*model.Response, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := *req
	snapshot.Messages = append([]model.Message(nil), req.Messages...)
	l.requests = append(l.requests, &snapshot)

	if len(l.turns) == 0 {
		return nil, fmt.Errorf("modeltest: no scripted turn left (call %d)", len(l.requests))
	}
	turn := l.turns[0]
	l.turns = l.turns[1:]
	if turn.Err != nil {
		return nil, turn.Err
	}

	reason := model.FinishReasonStop
	if len(turn.ToolCalls) > 0 {
		reason = model.FinishReasonToolCalls
	}
	return &model.Response{Content: turn.Content, ToolCalls: turn.ToolCalls, FinishReason: reason}, nil
}

// Requests returns the requests received so far.
func (l *LLM) Requests() []*model.Request {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*model.Request(nil), l.requests...)
}

var _ model.LLM = (*LLM)(nil)
