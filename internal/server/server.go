// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cloudwego/metroresponder/internal/incident"
	"github.com/cloudwego/metroresponder/internal/utils"
	"github.com/cloudwego/metroresponder/llm/log"
	"github.com/cloudwego/metroresponder/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const clientErrorMessage = "Missing or empty 'input' field."

// maxBodyBytes bounds the incident report request body.
const maxBodyBytes = 1 << 20

// Runner executes one incident report.
type Runner interface {
	Run(ctx context.Context, text string) (incident.RunResult, error)
}

// Server exposes the responder over HTTP.
type Server struct {
	Runner   Runner
	Registry *incident.Registry
	Gatherer prometheus.Gatherer
	// Ready reports whether the shared model is built; nil means unknown.
	Ready func() bool
}

type runRequest struct {
	Input string `json:"input"`
}

type errorResponse struct {
	Status  incident.Status `json:"status"`
	Message string          `json:"message"`
}

type stepsResponse struct {
	Initiator string          `json:"initiator"`
	Steps     []incident.Step `json:"steps"`
}

// Handler returns the chi router of the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api/metro_task", func(r chi.Router) {
		r.Post("/run", s.handleRun)
		r.Get("/steps", s.handleSteps)
	})
	r.Get("/healthz", s.handleHealth)
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var body runRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		log.Warn("run: invalid request body: %v", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: incident.StatusError, Message: clientErrorMessage})
		return
	}

	res, err := s.Runner.Run(r.Context(), body.Input)
	if err != nil {
		status := http.StatusInternalServerError
		msg := "Internal error: " + err.Error()
		if errors.Is(err, incident.ErrClientInput) {
			status, msg = http.StatusBadRequest, clientErrorMessage
		}
		writeJSON(w, status, errorResponse{Status: incident.StatusError, Message: msg})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSteps(w http.ResponseWriter, _ *http.Request) {
	reg := s.Registry
	if reg == nil {
		reg = incident.DefaultRegistry()
	}
	writeJSON(w, http.StatusOK, stepsResponse{Initiator: incident.InitiatorName, Steps: reg.Steps()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"status": "ok", "version": version.Version}
	if s.Ready != nil {
		resp["model_ready"] = s.Ready()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	bs, err := utils.MarshalJSONBytes(v)
	if err != nil {
		log.Error("encode response: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(bs); err != nil {
		log.Warn("write response: %v", err)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Info("%s %s %d %s [%s]", r.Method, r.URL.Path, ww.Status(), time.Since(start), middleware.GetReqID(r.Context()))
	})
}

// ListenAndServe serves h on addr until ctx is done, then shuts down
// gracefully within shutdownTimeout.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return utils.WrapError(err, "serve %s", addr)
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return utils.WrapError(err, "shutdown")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
