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

package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
)

var (
	// ErrMalformedResponse is returned when a stream carries no usable payload.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrTaskFailed is returned when the peer ends the task as failed,
	// canceled or rejected.
	ErrTaskFailed = errors.New("task failed")
)

// ChunkKind classifies one event of a response stream.
type ChunkKind int

const (
	// ChunkProgress is an intermediate status update.
	ChunkProgress ChunkKind = iota
	// ChunkAnswer carries answer content (artifact or agent message).
	ChunkAnswer
	// ChunkStatus is the terminal status marker.
	ChunkStatus
)

func (k ChunkKind) String() string {
	switch k {
	case ChunkProgress:
		return "progress"
	case ChunkAnswer:
		return "answer"
	case ChunkStatus:
		return "status"
	default:
		return fmt.Sprintf("ChunkKind(%d)", int(k))
	}
}

// Chunk is one incremental unit of a response.
type Chunk struct {
	Kind       ChunkKind
	Text       string
	State      a2a.TaskState
	ArtifactID string
}

// Selection picks the final payload out of a chunk sequence.
type Selection int

const (
	// SelectLastAnswer returns the last answer chunk, honouring the explicit
	// terminal status marker.
	SelectLastAnswer Selection = iota
	// SelectPenultimate returns the second-to-last chunk, assuming the last
	// one is a closing status marker.
	SelectPenultimate
)

// ParseSelection maps a configuration value to a Selection.
func ParseSelection(s string) (Selection, error) {
	switch s {
	case "", "last_answer":
		return SelectLastAnswer, nil
	case "penultimate":
		return SelectPenultimate, nil
	default:
		return SelectLastAnswer, fmt.Errorf("unknown selection strategy %q", s)
	}
}

func (s Selection) String() string {
	if s == SelectPenultimate {
		return "penultimate"
	}
	return "last_answer"
}

// Select applies the strategy to chunks.
func (s Selection) Select(chunks []Chunk) (string, error) {
	if s == SelectPenultimate {
		return selectPenultimate(chunks)
	}
	return selectLastAnswer(chunks)
}

func selectPenultimate(chunks []Chunk) (string, error) {
	var picked Chunk
	switch n := len(chunks); n {
	case 0:
		return "", fmt.Errorf("%w: empty response stream", ErrMalformedResponse)
	case 1:
		picked = chunks[0]
	default:
		picked = chunks[n-2]
	}
	if picked.Text == "" {
		return "", fmt.Errorf("%w: selected %s chunk has no text", ErrMalformedResponse, picked.Kind)
	}
	return picked.Text, nil
}

func selectLastAnswer(chunks []Chunk) (string, error) {
	var (
		answer   string
		terminal *Chunk
	)
	for i := range chunks {
		switch chunks[i].Kind {
		case ChunkAnswer:
			if chunks[i].Text != "" {
				answer = chunks[i].Text
			}
		case ChunkStatus:
			terminal = &chunks[i]
		}
	}

	if terminal != nil && unsuccessful(terminal.State) {
		reason := terminal.Text
		if reason == "" {
			reason = "no reason given"
		}
		return "", fmt.Errorf("%w: %s: %s", ErrTaskFailed, terminal.State, reason)
	}
	if answer != "" {
		return answer, nil
	}
	if terminal != nil && terminal.Text != "" {
		return terminal.Text, nil
	}
	return "", fmt.Errorf("%w: no answer in %d chunks", ErrMalformedResponse, len(chunks))
}

func unsuccessful(state a2a.TaskState) bool {
	switch state {
	case a2a.TaskStateFailed, a2a.TaskStateCanceled, a2a.TaskStateRejected:
		return true
	}
	return false
}

// chunker classifies events in arrival order, concatenating appended
// artifact content.
type chunker struct {
	artifacts map[a2a.ArtifactID]string
	taskID    a2a.TaskID
	contextID string
	state     a2a.TaskState
}

func newChunker() *chunker {
	return &chunker{artifacts: make(map[a2a.ArtifactID]string)}
}

func (c *chunker) add(event a2a.Event) Chunk {
	switch ev := event.(type) {
	case *a2a.TaskStatusUpdateEvent:
		c.track(ev.TaskID, ev.ContextID)
		c.state = ev.Status.State
		chunk := Chunk{Kind: ChunkProgress, State: ev.Status.State, Text: messageText(ev.Status.Message)}
		if ev.Final || ev.Status.State.Terminal() {
			chunk.Kind = ChunkStatus
		}
		return chunk

	case *a2a.TaskArtifactUpdateEvent:
		c.track(ev.TaskID, ev.ContextID)
		if ev.Artifact == nil {
			return Chunk{Kind: ChunkAnswer, State: c.state}
		}
		text := partsText(ev.Artifact.Parts)
		if ev.Append {
			text = c.artifacts[ev.Artifact.ID] + text
		}
		c.artifacts[ev.Artifact.ID] = text
		return Chunk{Kind: ChunkAnswer, Text: text, State: c.state, ArtifactID: string(ev.Artifact.ID)}

	case *a2a.Message:
		c.track(ev.TaskID, ev.ContextID)
		return Chunk{Kind: ChunkAnswer, Text: partsText(ev.Parts), State: c.state}

	case *a2a.Task:
		c.track(ev.ID, ev.ContextID)
		c.state = ev.Status.State
		if !ev.Status.State.Terminal() {
			return Chunk{Kind: ChunkProgress, State: ev.Status.State, Text: messageText(ev.Status.Message)}
		}
		text := ""
		if n := len(ev.Artifacts); n > 0 && ev.Artifacts[n-1] != nil {
			text = partsText(ev.Artifacts[n-1].Parts)
		}
		if text == "" || unsuccessful(ev.Status.State) {
			text = messageText(ev.Status.Message)
		}
		return Chunk{Kind: ChunkStatus, State: ev.Status.State, Text: text}

	default:
		return Chunk{Kind: ChunkProgress, State: c.state}
	}
}

func (c *chunker) track(taskID a2a.TaskID, contextID string) {
	if taskID != "" {
		c.taskID = taskID
	}
	if contextID != "" {
		c.contextID = contextID
	}
}

func messageText(msg *a2a.Message) string {
	if msg == nil {
		return ""
	}
	return partsText(msg.Parts)
}

// partsText joins text parts and renders data parts as JSON.
func partsText(parts []a2a.Part) string {
	var texts []string
	for _, part := range parts {
		switch p := part.(type) {
		case a2a.TextPart:
			texts = append(texts, p.Text)
		case *a2a.TextPart:
			texts = append(texts, p.Text)
		case a2a.DataPart:
			texts = append(texts, dataText(p.Data))
		case *a2a.DataPart:
			texts = append(texts, dataText(p.Data))
		}
	}
	return strings.Join(texts, "")
}

func dataText(data map[string]any) string {
	b, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return string(b)
}

var codeFence = regexp.MustCompile("(?s)^```([A-Za-z0-9_+-]*)\\s*(.*?)\\s*```$")

// StripCodeFence removes a Markdown code fence wrapping the whole text,
// such as the ```json blocks models like to emit.
func StripCodeFence(s string) string {
	m := codeFence.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return s
	}
	return m[2]
}
