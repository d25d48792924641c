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

package mcp

import (
	"context"

	"github.com/cloudwego/metroresponder/internal/incident"
	"github.com/cloudwego/metroresponder/llm/log"
	"github.com/cloudwego/metroresponder/llm/prompt"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Runner executes one incident report.
type Runner interface {
	Run(ctx context.Context, text string) (incident.RunResult, error)
}

type ServerOptions struct {
	ServerName    string
	ServerVersion string
	Verbose       bool
	Runner        Runner
	Registry      *incident.Registry // nil uses the default registry
	Prompts       *prompt.Store      // nil uses the built-in prompts
	// MetroTools also exposes the simulated tools individually.
	MetroTools bool
}

type Server struct {
	*server.MCPServer
}

func NewServer(opts ServerOptions) *Server {
	if opts.Registry == nil {
		opts.Registry = incident.DefaultRegistry()
	}
	if opts.Verbose {
		log.SetLogLevel(log.DebugLevel)
	}
	svr := server.NewMCPServer(opts.ServerName, opts.ServerVersion,
		server.WithToolCapabilities(false),
		server.WithPromptCapabilities(false),
		server.WithRecovery(),
	)

	tools := []Tool{listStepsTool(opts.Registry)}
	if opts.Runner != nil {
		tools = append(tools, respondTool(opts.Runner))
	}
	if opts.MetroTools {
		tools = append(tools, getMetroTools()...)
	}
	svr.AddTools(tools...)

	svr.AddPrompt(mcp.NewPrompt(PromptStep,
		mcp.WithPromptDescription("System prompt of a response step"),
		mcp.WithArgument("step", mcp.ArgumentDescription("step name or key, e.g. TrainBreakdownAgent"), mcp.RequiredArgument()),
	), stepPromptHandler(opts.Registry, opts.Prompts))

	log.Debug("mcp server %s: %d tools", opts.ServerName, len(tools))
	return &Server{MCPServer: svr}
}

func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.MCPServer)
}
