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
	"github.com/cloudwego/metroresponder/llm/mcp"
	"github.com/cloudwego/metroresponder/version"
	"github.com/spf13/cobra"
)

var flagMetroTools bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the responder as an MCP server over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		svr := mcp.NewServer(mcp.ServerOptions{
			ServerName:    "metro-responder",
			ServerVersion: version.Version,
			Verbose:       flagVerbose,
			Runner:        a.reporter,
			Registry:      a.registry,
			Prompts:       a.prompts,
			MetroTools:    flagMetroTools,
		})
		return svr.ServeStdio()
	},
}

func init() {
	mcpCmd.Flags().BoolVar(&flagMetroTools, "metro-tools", false, "also expose the simulated metro tools")
	rootCmd.AddCommand(mcpCmd)
}
