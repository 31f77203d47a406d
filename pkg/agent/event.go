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
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/shopwatch/pkg/tool"
)

// EventKind classifies events yielded by Agent.Run.
type EventKind string

const (
	// EventToolCall is emitted before a tool is invoked.
	EventToolCall EventKind = "tool_call"
	// EventToolResult is emitted after a tool returns.
	EventToolResult EventKind = "tool_result"
	// EventAnswer carries the final answer. It is always the last event.
	EventAnswer EventKind = "answer"
)

// Event is one step of an agent run.
type Event struct {
	ID        string
	Timestamp time.Time
	// Author is the name of the agent that produced the event.
	Author string
	Kind   EventKind
	// Text is the answer, or a short human-readable progress line.
	Text       string
	ToolCall   *tool.ToolCall
	ToolResult *tool.ToolResult
}

// IsFinal reports whether the event ends the run.
func (e *Event) IsFinal() bool {
	return e != nil && e.Kind == EventAnswer
}

func newEvent(author string, kind EventKind, text string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Author:    author,
		Kind:      kind,
		Text:      text,
	}
}

func toolCallEvent(author string, tc tool.ToolCall) *Event {
	ev := newEvent(author, EventToolCall, fmt.Sprintf("Calling %s", tc.Name))
	ev.ToolCall = &tc
	return ev
}

func toolResultEvent(author string, tr tool.ToolResult) *Event {
	text := fmt.Sprintf("%s returned", tr.Name)
	if tr.IsError {
		text = fmt.Sprintf("%s failed", tr.Name)
	}
	ev := newEvent(author, EventToolResult, text)
	ev.ToolResult = &tr
	return ev
}
