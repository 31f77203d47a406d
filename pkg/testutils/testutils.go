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

// Package testutils provides stub A2A peers and a fake scraper API for tests.
package testutils

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/a2aproject/a2a-go/a2asrv/eventqueue"
)

type stepKind int

const (
	stepProgress stepKind = iota
	stepAnswer
	stepAppend
	stepFail
	stepPause
	stepCrash
)

// Step is one scripted action of a stub peer.
type Step struct {
	kind  stepKind
	text  string
	pause time.Duration
}

// Progress emits a working status update carrying text.
func Progress(text string) Step { return Step{kind: stepProgress, text: text} }

// Answer emits a new artifact carrying text.
func Answer(text string) Step { return Step{kind: stepAnswer, text: text} }

// Append appends text to the most recent artifact.
func Append(text string) Step { return Step{kind: stepAppend, text: text} }

// Fail ends the task in the failed state with reason.
func Fail(reason string) Step { return Step{kind: stepFail, text: reason} }

// Pause blocks for d or until the request is cancelled.
func Pause(d time.Duration) Step { return Step{kind: stepPause, pause: d} }

// Crash makes the executor return an error.
func Crash(reason string) Step { return Step{kind: stepCrash, text: reason} }

// StubPeer is an A2A server that replays a script for every request.
type StubPeer struct {
	URL  string
	Card *a2a.AgentCard

	server *httptest.Server
	steps  []Step

	mu       sync.Mutex
	received []string
}

// PeerOption customises a stub peer.
type PeerOption func(*a2a.AgentCard)

// NonStreaming makes the card advertise no streaming support.
func NonStreaming() PeerOption {
	return func(c *a2a.AgentCard) { c.Capabilities.Streaming = false }
}

// NewStubPeer starts a stub peer named name. It is closed when the test ends.
func NewStubPeer(t testing.TB, name string, steps []Step, opts ...PeerOption) *StubPeer {
	t.Helper()

	p := &StubPeer{steps: steps}
	p.server = httptest.NewUnstartedServer(nil)
	p.URL = "http://" + p.server.Listener.Addr().String()
	p.Card = &a2a.AgentCard{
		Name:               name,
		Description:        "stub " + name,
		URL:                p.URL,
		Version:            "test",
		ProtocolVersion:    "1.0",
		PreferredTransport: a2a.TransportProtocolJSONRPC,
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"text/plain"},
		Capabilities:       a2a.AgentCapabilities{Streaming: true},
		Skills: []a2a.AgentSkill{{
			ID:          name + "_skill",
			Name:        name + " skill",
			Description: "scripted",
			Tags:        []string{"test"},
		}},
	}
	for _, opt := range opts {
		opt(p.Card)
	}

	mux := http.NewServeMux()
	mux.Handle(a2asrv.WellKnownAgentCardPath, a2asrv.NewStaticAgentCardHandler(p.Card))
	mux.Handle("/", a2asrv.NewJSONRPCHandler(a2asrv.NewHandler(&scriptedExecutor{peer: p})))
	p.server.Config.Handler = mux
	p.server.Start()
	t.Cleanup(p.server.Close)

	return p
}

// Received returns the instructions the peer has been sent.
func (p *StubPeer) Received() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.received...)
}

func (p *StubPeer) record(msg *a2a.Message) {
	var b strings.Builder
	if msg != nil {
		for _, part := range msg.Parts {
			if tp, ok := part.(a2a.TextPart); ok {
				b.WriteString(tp.Text)
			}
		}
	}
	p.mu.Lock()
	p.received = append(p.received, b.String())
	p.mu.Unlock()
}

type scriptedExecutor struct {
	peer *StubPeer
}

func (e *scriptedExecutor) Execute(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	e.peer.record(reqCtx.Message)

	if reqCtx.StoredTask == nil {
		if err := queue.Write(ctx, a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateSubmitted, nil)); err != nil {
			return err
		}
	}

	var artifactID a2a.ArtifactID
	for _, step := range e.peer.steps {
		var ev a2a.Event
		switch step.kind {
		case stepProgress:
			msg := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: step.text})
			ev = a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateWorking, msg)
		case stepAnswer:
			art := a2a.NewArtifactEvent(reqCtx, a2a.TextPart{Text: step.text})
			artifactID = art.Artifact.ID
			ev = art
		case stepAppend:
			ev = a2a.NewArtifactUpdateEvent(reqCtx, artifactID, a2a.TextPart{Text: step.text})
		case stepFail:
			msg := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: step.text})
			failed := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateFailed, msg)
			failed.Final = true
			return queue.Write(ctx, failed)
		case stepPause:
			select {
			case <-time.After(step.pause):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		case stepCrash:
			return errors.New(step.text)
		}
		if err := queue.Write(ctx, ev); err != nil {
			return err
		}
	}

	done := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCompleted, nil)
	done.Final = true
	return queue.Write(ctx, done)
}

func (e *scriptedExecutor) Cancel(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	ev := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCanceled, nil)
	ev.Final = true
	return queue.Write(ctx, ev)
}

var _ a2asrv.AgentExecutor = (*scriptedExecutor)(nil)

// UnreachableURL returns a base URL nothing listens on.
func UnreachableURL(t testing.TB) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return "http://" + addr
}

// StandardAnswer is the script used by most delegation tests: two progress
// updates, one answer and the closing status.
func StandardAnswer(answer string) []Step {
	return []Step{Progress("searching"), Progress("parsing"), Answer(answer)}
}
