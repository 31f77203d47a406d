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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kadirpekel/shopwatch"
	"github.com/kadirpekel/shopwatch/pkg/delegation"
	"github.com/kadirpekel/shopwatch/pkg/registry"
)

// DelegateCmd delegates one task from the command line.
type DelegateCmd struct {
	Agent     string `arg:"" help:"Peer agent name (e.g. price_scraper_agent)."`
	Task      string `arg:"" help:"Natural-language task."`
	Detached  bool   `help:"Run in a background worker bounded by the wait timeout."`
	Selection string `help:"Result selection (last_answer, penultimate)."`
}

// Run implements the delegate command. Failures are printed, not returned:
// the output is the same string a model would receive.
func (c *DelegateCmd) Run(cli *CLI) error {
	e, err := setup(cli)
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.cfg.ValidatePeers(); err != nil {
		return err
	}
	reg, err := registry.New(e.cfg.PeerURLs())
	if err != nil {
		return err
	}
	inv, err := newInvoker(e, c.Selection)
	if err != nil {
		return err
	}
	d := delegation.New(delegation.ConfigFrom(e.cfg.Delegation), reg, inv, delegation.WithLogger(e.logger))

	ctx, cancel := signalContext()
	defer cancel()

	var out string
	if c.Detached {
		out = d.DelegateDetached(ctx, c.Agent, c.Task)
	} else {
		out = d.DelegateInline(ctx, c.Agent, c.Task)
	}
	fmt.Fprintln(os.Stdout, out)
	return nil
}

// AgentsCmd prints the descriptors of reachable peers.
type AgentsCmd struct {
	JSON bool `help:"Print JSON instead of a summary."`
}

// Run implements the agents command.
func (c *AgentsCmd) Run(cli *CLI) error {
	e, err := setup(cli)
	if err != nil {
		return err
	}
	defer e.close()

	reg, err := registry.New(e.cfg.PeerURLs())
	if err != nil {
		return err
	}
	inv, err := newInvoker(e, "")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Delegation.CallTimeout)
	defer cancel()
	found := inv.Discover(ctx, reg)
	if c.JSON {
		return printJSON(os.Stdout, found)
	}
	printDescriptors(os.Stdout, found, reg.Len())
	return nil
}

func printDescriptors(w io.Writer, found []registry.Descriptor, configured int) {
	fmt.Fprintf(w, "%d of %d agents reachable\n", len(found), configured)
	for _, d := range found {
		fmt.Fprintf(w, "\n%s (%s)\n  %s\n", d.Name, d.URL, d.CardName)
		if d.Description != "" {
			fmt.Fprintf(w, "  %s\n", d.Description)
		}
		for _, s := range d.Skills {
			fmt.Fprintf(w, "  - %s: %s\n", s.ID, s.Name)
		}
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ConfigCmd prints the effective configuration.
type ConfigCmd struct{}

// Run implements the config command.
func (c *ConfigCmd) Run(cli *CLI) error {
	e, err := setup(cli)
	if err != nil {
		return err
	}
	defer e.close()
	return printConfig(os.Stdout, e)
}

func printConfig(w io.Writer, e *env) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(e.cfg.Redacted()); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

// VersionCmd shows version information.
type VersionCmd struct {
	JSON bool `help:"Print JSON."`
}

// Run implements the version command.
func (c *VersionCmd) Run() error {
	info := shopwatch.GetVersion()
	if c.JSON {
		return printJSON(os.Stdout, info)
	}
	fmt.Println(info.String())
	return nil
}
