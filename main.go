/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/metroresponder/internal/config"
	"github.com/cloudwego/metroresponder/internal/incident"
	"github.com/cloudwego/metroresponder/internal/pipeline"
	"github.com/cloudwego/metroresponder/llm"
	"github.com/cloudwego/metroresponder/llm/agent"
	"github.com/cloudwego/metroresponder/llm/log"
	"github.com/cloudwego/metroresponder/llm/prompt"
	"github.com/cloudwego/metroresponder/llm/tool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagConfig    string
	flagVerbose   bool
	flagLogFormat string
	flagModel     string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "metro",
	Short: "Metro disruption incident responder",
	Long: `metro runs the response to a metro train disruption as a fixed sequence of
responders: incident logging, driver coordination, depot readiness, public
communication, resolution check, internal notification and public update.
When no model is reachable it answers with a deterministic fallback trail.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagModel != "" {
			c.Model.APIType = llm.NewModelType(flagModel)
			if err := c.Validate(); err != nil {
				return err
			}
		}
		if flagVerbose {
			c.Log.Level = "debug"
		}
		cfg = c
		return setupLogger(c.Log.Level, flagLogFormat)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "json", "log format: json or console")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "override model.type, e.g. simulated")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogger installs a zap logger on stderr, so stdout stays clean for
// command output and the MCP stdio transport.
func setupLogger(level, format string) error {
	log.SetLogLevel(log.ParseLevel(level))
	var zc zap.Config
	switch format {
	case "json", "":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	zc.Level = log.AtomicLevel()
	zc.Sampling = nil
	zc.OutputPaths = []string{"stderr"}
	l, err := zc.Build()
	if err != nil {
		return err
	}
	log.SetLogger(l)
	return nil
}

// app wires the responder stack for one process.
type app struct {
	cfg      *config.Config
	registry *incident.Registry
	handle   *llm.Handle
	prompts  *prompt.Store
	metrics  *pipeline.Metrics
	gatherer *prometheus.Registry
	reporter *pipeline.Reporter
	clients  []*tool.MCPClient
}

func newApp(ctx context.Context, c *config.Config) (*app, error) {
	prompts, err := prompt.NewStore(c.Prompts.Dir)
	if err != nil {
		return nil, err
	}

	extra, clients, err := tool.LoadMCPTools(ctx, c.MCPTools)
	if err != nil {
		// responders still work with the metro tools alone
		log.Warn("mcp tools disabled: %v", err)
		extra, clients = nil, nil
	}

	handle := agent.NewHandle(c.Model)
	builder, err := agent.NewBuilder(agent.BuilderOptions{
		Handle:     handle,
		Prompts:    prompts,
		ExtraTools: extra,
		MaxSteps:   c.Pipeline.MaxSteps,
		Retries:    c.Pipeline.Retries,
		Timeout:    c.Model.Timeout,
	})
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := pipeline.NewMetrics(reg)

	registry := incident.DefaultRegistry()
	seq := &pipeline.Sequencer{
		Registry:        registry,
		Factory:         builder,
		MinParticipants: c.Pipeline.MinParticipants,
		StepTimeout:     c.Pipeline.StepTimeout,
		Metrics:         metrics,
	}
	return &app{
		cfg:      c,
		registry: registry,
		handle:   handle,
		prompts:  prompts,
		metrics:  metrics,
		gatherer: reg,
		reporter: pipeline.NewReporter(seq, incident.NewFallback(c.Pipeline.FallbackCache)),
		clients:  clients,
	}, nil
}

func (a *app) Close() {
	for _, c := range a.clients {
		if err := c.Close(); err != nil {
			log.Warn("close mcp client: %v", err)
		}
	}
}
