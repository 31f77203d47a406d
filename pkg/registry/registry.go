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

// Package registry maps logical agent names to their base URLs.
package registry

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultNames are the specialists the host delegates to.
var DefaultNames = []string{
	"price_scraper_agent",
	"review_analyser_agent",
	"stock_tracker_agent",
}

// UnknownAgentError is returned by Resolve for names outside the registry.
type UnknownAgentError struct {
	Name  string
	Known []string
}

func (e *UnknownAgentError) Error() string {
	return fmt.Sprintf("agent '%s' is not a known agent. Available agents are: [%s]",
		e.Name, strings.Join(e.Known, ", "))
}

// Entry is a configured peer.
type Entry struct {
	Name string
	URL  string
}

// Skill is a capability advertised on a peer's agent card.
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Descriptor is what is known about a peer after fetching its card.
type Descriptor struct {
	Name        string  `json:"name"`
	URL         string  `json:"url"`
	CardName    string  `json:"card_name,omitempty"`
	Description string  `json:"description,omitempty"`
	Version     string  `json:"version,omitempty"`
	Streaming   bool    `json:"streaming"`
	Skills      []Skill `json:"skills,omitempty"`
}

// Registry is an immutable name to URL table. It is safe for concurrent use.
type Registry struct {
	peers map[string]string
	names []string
}

// New builds a registry from a name to base URL table. Empty names or
// URLs are rejected; trailing slashes are trimmed from URLs.
func New(peers map[string]string) (*Registry, error) {
	r := &Registry{peers: make(map[string]string, len(peers))}
	for name, url := range peers {
		name = strings.TrimSpace(name)
		url = strings.TrimRight(strings.TrimSpace(url), "/")
		if name == "" {
			return nil, fmt.Errorf("agent name cannot be empty")
		}
		if url == "" {
			return nil, fmt.Errorf("agent '%s' has an empty url", name)
		}
		r.peers[name] = url
		r.names = append(r.names, name)
	}
	slices.Sort(r.names)
	return r, nil
}

// Resolve returns the base URL for name.
func (r *Registry) Resolve(name string) (string, error) {
	if url, ok := r.peers[name]; ok {
		return url, nil
	}
	return "", &UnknownAgentError{Name: name, Known: r.Names()}
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// Entries returns every peer, sorted by name.
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, 0, len(r.names))
	for _, name := range r.names {
		entries = append(entries, Entry{Name: name, URL: r.peers[name]})
	}
	return entries
}

// Len reports the number of peers.
func (r *Registry) Len() int {
	return len(r.names)
}
