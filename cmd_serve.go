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
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/metroresponder/internal/server"
	"github.com/cloudwego/metroresponder/llm/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		addr := cfg.Server.Addr
		if flagAddr != "" {
			addr = flagAddr
		}
		srv := &server.Server{
			Runner:   a.reporter,
			Registry: a.registry,
			Gatherer: a.gatherer,
			Ready:    a.handle.Ready,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Info("serving with model %s", cfg.Model.Label())
			return server.ListenAndServe(gctx, addr, srv.Handler(), cfg.Server.ShutdownTimeout)
		})
		if cfg.Prompts.Watch && cfg.Prompts.Dir != "" {
			g.Go(func() error {
				if err := a.prompts.Watch(gctx); err != nil && gctx.Err() == nil {
					log.Warn("prompt watcher stopped: %v", err)
				}
				return nil
			})
		}
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address, overrides server.addr")
	rootCmd.AddCommand(serveCmd)
}
