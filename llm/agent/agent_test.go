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

package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloudwego/metroresponder/internal/incident"
	"github.com/cloudwego/metroresponder/llm"
	"github.com/cloudwego/metroresponder/llm/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	out string
	err error
}

func (g stubGenerator) Call(context.Context, string) (string, error) {
	return g.out, g.err
}

func mustContext(t *testing.T, text string) incident.Context {
	t.Helper()
	c, err := incident.NewContext(text)
	require.NoError(t, err)
	return c
}

func step(t *testing.T, name string) incident.Step {
	t.Helper()
	st, ok := incident.DefaultRegistry().Lookup(name)
	require.True(t, ok, name)
	return st
}

func TestRealResponder_Marker(t *testing.T) {
	c := mustContext(t, "Train breakdown at Central Station")
	st := step(t, "PublicUpdateAgent")

	tests := []struct {
		name string
		out  string
		want string
	}{
		{"plain", "Service restored.", "📢 Service restored."},
		{"already marked", "📢 Service restored.", "📢 Service restored."},
		{"empty uses tools", "  ", st.Run(c)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRealResponder(st, stubGenerator{out: tt.out}, "PublicUpdateAgent@test")
			res, err := r.Respond(context.Background(), c)
			require.NoError(t, err)
			assert.Equal(t, "PublicUpdateAgent@test", res.Name)
			assert.Equal(t, tt.want, res.Content)
		})
	}
}

func TestRealResponder_Failure(t *testing.T) {
	boom := errors.New("model unavailable")
	r := NewRealResponder(step(t, "TrainBreakdownAgent"), stubGenerator{err: boom}, "")
	assert.Equal(t, "TrainBreakdownAgent", r.Actor())

	_, err := r.Respond(context.Background(), mustContext(t, "x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, incident.ErrExecution)
	assert.ErrorIs(t, err, boom)
}

func TestAbsentResponder(t *testing.T) {
	cause := errors.New("no credentials")
	a := NewAbsentResponder(step(t, "DepotMaintenanceAgent"), cause)
	assert.False(t, a.Available())
	assert.Equal(t, "DepotMaintenanceAgent", a.Step().Name)

	_, err := a.Respond(context.Background(), mustContext(t, "x"))
	assert.ErrorIs(t, err, incident.ErrExecution)
	assert.ErrorIs(t, err, cause)
}

func TestBuilder_Simulated(t *testing.T) {
	h := NewHandle(llm.ModelConfig{APIType: llm.ModelTypeSimulated})
	b, err := NewBuilder(BuilderOptions{Handle: h, MaxSteps: 6})
	require.NoError(t, err)

	reg := incident.DefaultRegistry()
	rs := b.BuildAll(context.Background(), reg)
	require.Len(t, rs, reg.Len())

	c := mustContext(t, "Train breakdown at Central Station on the Red Line")
	for i, r := range rs {
		require.True(t, r.Available(), r.Step().Name)
		res, err := r.Respond(context.Background(), c)
		require.NoError(t, err, r.Step().Name)

		st, ok := reg.Canonical(res.Name)
		require.True(t, ok, res.Name)
		assert.Equal(t, i+1, st.Ordinal)
		assert.Equal(t, st.Name+"@simulated", res.Name)
		assert.True(t, strings.HasPrefix(res.Content, st.Marker), res.Content)
		assert.Equal(t, 1, strings.Count(res.Content, st.Marker), res.Content)
	}

	first, err := rs[0].Respond(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "🚨 Disruption recorded successfully at: Central Station. Further response steps initiated.", first.Content)

	again, err := b.Build(context.Background(), reg.Steps()[0])
	require.NoError(t, err)
	assert.Same(t, rs[0].(*RealResponder).gen, again.(*RealResponder).gen)
}

func TestBuilder_HandleFailure(t *testing.T) {
	h := llm.NewHandleWith(llm.ModelConfig{APIType: llm.ModelTypeAzure}, func(context.Context, llm.ModelConfig) (llm.ChatModel, error) {
		return nil, errors.New("missing api_key")
	})
	b, err := NewBuilder(BuilderOptions{Handle: h})
	require.NoError(t, err)

	st := step(t, "TrainBreakdownAgent")
	r, err := b.Build(context.Background(), st)
	require.Error(t, err)
	assert.ErrorIs(t, err, incident.ErrConfiguration)
	assert.False(t, r.Available())

	rs := b.BuildAll(context.Background(), incident.DefaultRegistry())
	for _, r := range rs {
		assert.IsType(t, &AbsentResponder{}, r)
	}

	_, err = NewBuilder(BuilderOptions{})
	assert.ErrorIs(t, err, incident.ErrConfiguration)
}

func TestBuilder_PromptOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "incident_logging.md"), []byte("log it"), 0o644))
	store, err := prompt.NewStore(dir)
	require.NoError(t, err)

	b, err := NewBuilder(BuilderOptions{Handle: NewHandle(llm.ModelConfig{APIType: llm.ModelTypeSimulated}), Prompts: store})
	require.NoError(t, err)
	st := step(t, "TrainBreakdownAgent")

	r1, err := b.Build(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, "log it", b.agents[st.Name].prompt)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "incident_logging.md"), []byte("log it now"), 0o644))
	store, err = prompt.NewStore(dir)
	require.NoError(t, err)
	b.opts.Prompts = store

	r2, err := b.Build(context.Background(), st)
	require.NoError(t, err)
	assert.NotSame(t, r1.(*RealResponder).gen, r2.(*RealResponder).gen)
}

func TestToolResolver(t *testing.T) {
	args, ok := ToolResolver("log_incident", "Fire near Oxford Circus")
	require.True(t, ok)
	assert.JSONEq(t, `{"location":"Oxford Circus"}`, args)

	_, ok = ToolResolver("unknown", "Fire near Oxford Circus")
	assert.False(t, ok)
	_, ok = ToolResolver("log_incident", "   ")
	assert.False(t, ok)
}
