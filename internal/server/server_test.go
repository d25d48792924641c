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
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/metroresponder/internal/incident"
	"github.com/cloudwego/metroresponder/internal/pipeline"
	"github.com/cloudwego/metroresponder/llm"
	"github.com/cloudwego/metroresponder/llm/agent"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runnerFunc func(ctx context.Context, text string) (incident.RunResult, error)

func (f runnerFunc) Run(ctx context.Context, text string) (incident.RunResult, error) {
	return f(ctx, text)
}

func newTestServer(t *testing.T, model llm.ModelConfig) (*httptest.Server, *llm.Handle) {
	t.Helper()
	reg := prometheus.NewRegistry()
	h := agent.NewHandle(model)
	b, err := agent.NewBuilder(agent.BuilderOptions{Handle: h, MaxSteps: 6})
	require.NoError(t, err)
	seq := &pipeline.Sequencer{
		Registry:    incident.DefaultRegistry(),
		Factory:     b,
		StepTimeout: 10 * time.Second,
		Metrics:     pipeline.NewMetrics(reg),
	}
	s := &Server{
		Runner:   pipeline.NewReporter(seq, nil),
		Registry: incident.DefaultRegistry(),
		Gatherer: reg,
		Ready:    h.Ready,
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, h
}

func post(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url+"/api/metro_task/run", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	bs, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, bs
}

func TestRun_Completed(t *testing.T) {
	ts, h := newTestServer(t, llm.ModelConfig{APIType: llm.ModelTypeSimulated})

	resp, body := post(t, ts.URL, `{"input": "Train breakdown at Redhill Station"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var res incident.RunResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, incident.StatusCompleted, res.Status)
	require.Len(t, res.Steps, 7)
	assert.Equal(t, "TrainBreakdownAgent", res.Steps[0].Name)
	assert.Contains(t, res.Steps[0].Content, "Redhill Station")
	assert.True(t, h.Ready())
}

func TestRun_Degraded(t *testing.T) {
	ts, _ := newTestServer(t, llm.ModelConfig{APIType: llm.ModelTypeAzure})

	resp, body := post(t, ts.URL, `{"input": "Points failure near Camden Town on the Northern Line"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res incident.RunResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, incident.StatusError, res.Status)
	assert.NotEmpty(t, res.Message)
	require.Len(t, res.Steps, 7)
	assert.Contains(t, res.Steps[3].Content, "Camden Town")
	assert.Contains(t, res.Steps[3].Content, "Northern Line")
}

func TestRun_ClientError(t *testing.T) {
	ts, _ := newTestServer(t, llm.ModelConfig{APIType: llm.ModelTypeSimulated})

	for _, body := range []string{`{"input": ""}`, `{"input": "   "}`, `{}`, ``, `not json`} {
		resp, got := post(t, ts.URL, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.JSONEq(t, `{"status":"error","message":"Missing or empty 'input' field."}`, string(got), body)
	}
}

func TestRun_InternalError(t *testing.T) {
	s := &Server{Runner: runnerFunc(func(context.Context, string) (incident.RunResult, error) {
		return incident.RunResult{}, errors.New("boom")
	})}
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, body := post(t, ts.URL, `{"input": "x"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"status":"error","message":"Internal error: boom"}`, string(body))
}

func TestSteps(t *testing.T) {
	ts, _ := newTestServer(t, llm.ModelConfig{APIType: llm.ModelTypeSimulated})
	resp, err := http.Get(ts.URL + "/api/metro_task/steps")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got stepsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "UserProxyAgent", got.Initiator)
	require.Len(t, got.Steps, 7)
	assert.Equal(t, "PublicUpdateAgent", got.Steps[6].Name)
	assert.Equal(t, []string{"notify_driver", "confirm_driver_ack"}, got.Steps[1].Tools)
}

func TestHealthAndMetrics(t *testing.T) {
	ts, _ := newTestServer(t, llm.ModelConfig{APIType: llm.ModelTypeSimulated})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, false, health["model_ready"])

	post(t, ts.URL, `{"input": "Train breakdown at Redhill Station"}`)
	post(t, ts.URL, `{"input": ""}`)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	bs, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(bs), `metro_runs_total{status="completed"} 1`)
	assert.Contains(t, string(bs), `metro_client_errors_total 1`)
}

func TestListenAndServe_Shutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ListenAndServe(ctx, "127.0.0.1:0", http.NotFoundHandler(), time.Second)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
