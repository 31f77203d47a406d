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

// Command shopwatch runs the shopping intelligence agents.
//
// Usage:
//
//	shopwatch mcp price                      # scraper MCP server on :8081
//	shopwatch serve specialist price         # Price Scraper Agent on :10000
//	shopwatch serve host                     # Host Agent Orchestrator on :8001
//	shopwatch delegate price_scraper_agent "price of wireless headphones"
//	shopwatch agents
//	shopwatch config
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/shopwatch/pkg/config"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Run an A2A agent server."`
	MCP      MCPCmd      `cmd:"" name:"mcp" help:"Run a scraper MCP server."`
	Delegate DelegateCmd `cmd:"" help:"Delegate one task to a peer agent and print the result."`
	Agents   AgentsCmd   `cmd:"" help:"Print the cards of the configured peer agents."`
	Config   ConfigCmd   `cmd:"" help:"Print the effective configuration."`

	ConfigFile string `name:"config" short:"c" help:"Path to config file." type:"path" env:"SHOPWATCH_CONFIG"`
	LogLevel   string `help:"Log level (debug, info, warn, error)." env:"LOG_LEVEL"`
	LogFile    string `help:"Log file path (empty = stderr)." env:"LOG_FILE"`
	LogFormat  string `help:"Log format (simple, verbose, json)." env:"LOG_FORMAT"`
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("shopwatch"),
		kong.Description("Multi-agent Amazon price, review and stock intelligence over A2A."),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
