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

// Package server exposes an agent as an A2A service.
//
// Routes:
//
//	GET  /.well-known/agent-card.json  agent card
//	GET  /.well-known/agent.json       agent card (legacy path)
//	POST /                             JSON-RPC (message/send, message/stream, tasks/*)
//	GET  /health                       liveness
//	GET  <metrics path>                Prometheus metrics, when enabled
package server
