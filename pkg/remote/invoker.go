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

// Package remote invokes peer agents over A2A.
//
// Every invocation opens a fresh client from the peer's agent card, sends a
// single user message and reduces the response stream to one payload. Errors
// never escape as Go errors: they are carried on the returned TaskResult.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2aclient"
	"github.com/a2aproject/a2a-go/a2aclient/agentcard"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/kadirpekel/shopwatch/pkg/remote")

// TaskRequest is one instruction sent to a peer.
type TaskRequest struct {
	Instruction string
	MessageID   string
	TaskID      string
	ContextID   string
}

// NewTaskRequest returns a request with a fresh message ID.
func NewTaskRequest(instruction string) TaskRequest {
	return TaskRequest{Instruction: instruction, MessageID: uuid.NewString()}
}

// TaskResult is the outcome of one invocation: either Payload or Err.
type TaskResult struct {
	Address   string
	Payload   string
	Err       error
	TaskID    string
	ContextID string
	State     a2a.TaskState
	Chunks    int
}

// OK reports whether the invocation produced a payload.
func (r *TaskResult) OK() bool {
	return r.Err == nil
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithHTTPClient sets the HTTP client used for card fetches and calls.
func WithHTTPClient(c *http.Client) Option {
	return func(inv *Invoker) {
		if c != nil {
			inv.httpClient = c
		}
	}
}

// WithSelection sets the chunk selection strategy.
func WithSelection(s Selection) Option {
	return func(inv *Invoker) {
		inv.selection = s
	}
}

// WithStripCodeFences removes a surrounding Markdown code fence from payloads.
func WithStripCodeFences(strip bool) Option {
	return func(inv *Invoker) {
		inv.stripFences = strip
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(inv *Invoker) {
		if l != nil {
			inv.logger = l
		}
	}
}

// Invoker sends tasks to peers. It holds no per-call state and is safe for
// concurrent use.
type Invoker struct {
	httpClient  *http.Client
	selection   Selection
	stripFences bool
	logger      *slog.Logger
}

// New creates an Invoker. Requests are never retried.
func New(opts ...Option) *Invoker {
	inv := &Invoker{
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		selection:  SelectLastAnswer,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Invoke sends instruction to the peer at address.
func (inv *Invoker) Invoke(ctx context.Context, address, instruction string) *TaskResult {
	return inv.InvokeRequest(ctx, address, NewTaskRequest(instruction))
}

// InvokeRequest sends req to the peer at address and waits for the result.
// The connection is closed before it returns.
func (inv *Invoker) InvokeRequest(ctx context.Context, address string, req TaskRequest) (res *TaskResult) {
	res = &TaskResult{Address: address}

	ctx, span := tracer.Start(ctx, "remote.invoke", trace.WithAttributes(attribute.String("address", address)))
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("invocation of %s panicked: %v", address, r)
		}
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
		}
		span.SetAttributes(attribute.Int("chunks", res.Chunks))
		span.End()
	}()

	card, err := inv.FetchCard(ctx, address)
	if err != nil {
		res.Err = err
		return res
	}

	client, err := a2aclient.NewFromCard(ctx, card, a2aclient.WithJSONRPCTransport(inv.httpClient))
	if err != nil {
		res.Err = fmt.Errorf("failed to create client for %s: %w", address, err)
		return res
	}
	defer func() {
		if err := client.Destroy(); err != nil {
			inv.logger.Debug("Failed to close a2a client", "address", address, "error", err)
		}
	}()

	msg := a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: req.Instruction})
	if req.MessageID != "" {
		msg.ID = req.MessageID
	}
	if req.TaskID != "" {
		msg.TaskID = a2a.TaskID(req.TaskID)
	}
	if req.ContextID != "" {
		msg.ContextID = req.ContextID
	}
	params := &a2a.MessageSendParams{Message: msg}

	chunks, tracked, err := inv.collect(ctx, client, card.Capabilities.Streaming, params)
	res.Chunks = len(chunks)
	res.TaskID = string(tracked.taskID)
	res.ContextID = tracked.contextID
	res.State = tracked.state
	if err != nil {
		res.Err = fmt.Errorf("request to %s failed: %w", address, err)
		return res
	}

	payload, err := inv.selection.Select(chunks)
	if err != nil {
		res.Err = err
		return res
	}
	if inv.stripFences {
		payload = StripCodeFence(payload)
	}
	res.Payload = payload

	inv.logger.Debug("Remote invocation completed",
		"address", address, "task_id", res.TaskID, "state", res.State, "chunks", res.Chunks)
	return res
}

func (inv *Invoker) collect(ctx context.Context, client *a2aclient.Client, streaming bool, params *a2a.MessageSendParams) ([]Chunk, *chunker, error) {
	c := newChunker()
	var chunks []Chunk

	if !streaming {
		result, err := client.SendMessage(ctx, params)
		if err != nil {
			return nil, c, err
		}
		switch v := result.(type) {
		case *a2a.Task:
			chunks = append(chunks, c.add(v))
		case *a2a.Message:
			chunks = append(chunks, c.add(v))
		default:
			return nil, c, fmt.Errorf("%w: unexpected result type %T", ErrMalformedResponse, result)
		}
		return chunks, c, nil
	}

	for event, err := range client.SendStreamingMessage(ctx, params) {
		if err != nil {
			return chunks, c, err
		}
		if event == nil {
			continue
		}
		chunks = append(chunks, c.add(event))
	}
	return chunks, c, nil
}

// FetchCard resolves the agent card published at address. It is not retried.
func (inv *Invoker) FetchCard(ctx context.Context, address string) (*a2a.AgentCard, error) {
	card, err := agentcard.NewResolver(inv.httpClient).Resolve(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch agent card from %s: %w", address, err)
	}
	if card == nil {
		return nil, fmt.Errorf("failed to fetch agent card from %s: %w", address, errors.New("empty card"))
	}
	return card, nil
}
