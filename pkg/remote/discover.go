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
	"context"

	"github.com/a2aproject/a2a-go/a2a"
	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/shopwatch/pkg/registry"
)

const discoveryConcurrency = 4

// Peers lists configured peers.
type Peers interface {
	Entries() []registry.Entry
}

// Discover fetches every peer's agent card concurrently. Peers that cannot
// be reached are logged and skipped. Results follow the order of Entries.
func (inv *Invoker) Discover(ctx context.Context, peers Peers) []registry.Descriptor {
	entries := peers.Entries()
	found := make([]*registry.Descriptor, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(discoveryConcurrency)
	for i, entry := range entries {
		g.Go(func() error {
			card, err := inv.FetchCard(gctx, entry.URL)
			if err != nil {
				inv.logger.Warn("Skipping unreachable agent", "agent", entry.Name, "error", err)
				return nil
			}
			d := Describe(entry, card)
			found[i] = &d
			return nil
		})
	}
	_ = g.Wait()

	out := make([]registry.Descriptor, 0, len(found))
	for _, d := range found {
		if d != nil {
			out = append(out, *d)
		}
	}
	return out
}

// Describe converts an agent card into a descriptor for entry.
func Describe(entry registry.Entry, card *a2a.AgentCard) registry.Descriptor {
	d := registry.Descriptor{
		Name:        entry.Name,
		URL:         entry.URL,
		CardName:    card.Name,
		Description: card.Description,
		Version:     card.Version,
		Streaming:   card.Capabilities.Streaming,
	}
	for _, s := range card.Skills {
		d.Skills = append(d.Skills, registry.Skill{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Tags:        s.Tags,
		})
	}
	return d
}
