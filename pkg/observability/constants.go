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

package observability

// Span names.
const (
	SpanHTTPRequest = "http.request"
	SpanDelegate    = "delegation.delegate"
	SpanInvoke      = "remote.invoke"
	SpanAgentRun    = "agent.run"
	SpanToolCall    = "tool.call"
	SpanLLMGenerate = "llm.generate"
)

// Span and metric attribute keys.
const (
	AttrAgent      = "agent"
	AttrMode       = "mode"
	AttrOutcome    = "outcome"
	AttrAddress    = "address"
	AttrTool       = "tool"
	AttrProvider   = "provider"
	AttrModel      = "model"
	AttrSource     = "source"
	AttrHTTPMethod = "http.method"
	AttrHTTPPath   = "http.path"
	AttrHTTPStatus = "http.status_code"
	AttrHTTPSize   = "http.response_size"
	AttrErrorType  = "error.type"
)

// Outcomes used as metric labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
	OutcomeEmpty   = "empty"
)

const (
	DefaultServiceName = "shopwatch"
	meterName          = "github.com/kadirpekel/shopwatch"
)

// Outcome maps an error to a metric label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
