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
	"fmt"
	"log/slog"
	"os"

	"github.com/kadirpekel/shopwatch"
	"github.com/kadirpekel/shopwatch/pkg/config"
	"github.com/kadirpekel/shopwatch/pkg/logger"
	"github.com/kadirpekel/shopwatch/pkg/observability"
)

// env is what every command starts from: validated config, logger and
// observability.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	closers []func(context.Context) error
}

// setup loads configuration and initialises logging. CLI log flags win over
// the config file.
func setup(cli *CLI) (*env, error) {
	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		return nil, err
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.LogFile != "" {
		cfg.Log.File = cli.LogFile
	}
	if cli.LogFormat != "" {
		cfg.Log.Format = cli.LogFormat
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	e := &env{cfg: cfg}
	output := os.Stderr
	if cfg.Log.File != "" {
		file, cleanup, err := logger.OpenLogFile(cfg.Log.File)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		e.closers = append(e.closers, func(context.Context) error { cleanup(); return nil })
	}
	e.logger = logger.Init(level, output, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return e, nil
}

// observe starts metrics and tracing for a long-running server.
func (e *env) observe(ctx context.Context, component string) error {
	obs := e.cfg.Observability

	metrics, err := observability.InitMetrics(obs.Metrics)
	if err != nil {
		return fmt.Errorf("failed to initialise metrics: %w", err)
	}
	e.metrics = metrics
	e.closers = append(e.closers, metrics.Shutdown)

	serviceName := obs.ServiceName
	if serviceName == "" {
		serviceName = observability.DefaultServiceName
	}
	shutdown, err := observability.InitTracing(ctx, obs.Tracing, serviceName+"-"+component, shopwatch.GetVersion().Version)
	if err != nil {
		return fmt.Errorf("failed to initialise tracing: %w", err)
	}
	e.closers = append(e.closers, shutdown)

	if obs.Tracing.Enabled {
		e.logger.Info("Tracing enabled", "exporter", obs.Tracing.Exporter, "endpoint", obs.Tracing.Endpoint)
	}
	if obs.Metrics.Enabled {
		e.logger.Info("Metrics enabled", "path", obs.Metrics.Path)
	}
	return nil
}

// metricsPath is where the metrics handler is mounted, empty when disabled.
func (e *env) metricsPath() string {
	if !e.cfg.Observability.Metrics.Enabled {
		return ""
	}
	return e.cfg.Observability.Metrics.Path
}

// close runs closers in reverse order.
func (e *env) close() {
	ctx := context.Background()
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](ctx); err != nil {
			e.logger.Warn("Shutdown error", "error", err)
		}
	}
}
