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

package server

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/a2aproject/a2a-go/a2asrv/eventqueue"

	"github.com/kadirpekel/shopwatch/pkg/agent"
)

// Runner is the agent behind an Executor.
type Runner interface {
	Name() string
	Run(ctx context.Context, input string) iter.Seq2[*agent.Event, error]
}

// Executor translates agent runs into A2A task events.
//
// A run produces: submitted (new tasks only), one working status per tool
// call and result, an artifact carrying the answer, then a final completed
// status. A failed run ends with a final failed status whose message holds
// the error.
type Executor struct {
	runner Runner
	logger *slog.Logger
}

// NewExecutor wraps runner. A nil logger uses slog.Default().
func NewExecutor(runner Runner, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{runner: runner, logger: logger.With("agent", runner.Name())}
}

// Execute implements a2asrv.AgentExecutor.
func (e *Executor) Execute(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	input := messageText(reqCtx.Message)
	e.logger.Info("Task received", "task_id", reqCtx.TaskID, "context_id", reqCtx.ContextID)

	if reqCtx.StoredTask == nil {
		if err := queue.Write(ctx, a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateSubmitted, nil)); err != nil {
			return fmt.Errorf("failed to write submitted status: %w", err)
		}
	}

	if strings.TrimSpace(input) == "" {
		return e.fail(ctx, reqCtx, queue, fmt.Errorf("message has no text"))
	}

	answered := false
	for ev, err := range e.runner.Run(ctx, input) {
		if err != nil {
			return e.fail(ctx, reqCtx, queue, err)
		}
		var out a2a.Event
		switch ev.Kind {
		case agent.EventAnswer:
			out = a2a.NewArtifactEvent(reqCtx, a2a.TextPart{Text: ev.Text})
			answered = true
		default:
			msg := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: ev.Text})
			out = a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateWorking, msg)
		}
		if err := queue.Write(ctx, out); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
	}
	if !answered {
		return e.fail(ctx, reqCtx, queue, fmt.Errorf("agent produced no answer"))
	}

	done := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCompleted, nil)
	done.Final = true
	if err := queue.Write(ctx, done); err != nil {
		return fmt.Errorf("failed to write completed status: %w", err)
	}
	e.logger.Info("Task completed", "task_id", reqCtx.TaskID)
	return nil
}

// Cancel implements a2asrv.AgentExecutor.
func (e *Executor) Cancel(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	e.logger.Info("Task canceled", "task_id", reqCtx.TaskID)
	ev := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCanceled, nil)
	ev.Final = true
	return queue.Write(ctx, ev)
}

func (e *Executor) fail(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue, cause error) error {
	e.logger.Warn("Task failed", "task_id", reqCtx.TaskID, "error", cause)
	msg := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: "Error: " + cause.Error()})
	ev := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateFailed, msg)
	ev.Final = true
	// The caller's context may be what failed; the terminal event must still go out.
	if err := queue.Write(context.WithoutCancel(ctx), ev); err != nil {
		return fmt.Errorf("failed to write failed status: %w", err)
	}
	return nil
}

// messageText joins the text parts of msg.
func messageText(msg *a2a.Message) string {
	if msg == nil {
		return ""
	}
	var parts []string
	for _, part := range msg.Parts {
		if tp, ok := part.(a2a.TextPart); ok && tp.Text != "" {
			parts = append(parts, tp.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var _ a2asrv.AgentExecutor = (*Executor)(nil)
