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

package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/metroresponder/internal/incident"
	"github.com/cloudwego/metroresponder/llm"
	"github.com/cloudwego/metroresponder/llm/agent"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// started by an init of a model provider dependency
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

const report = "Train breakdown at Central Station on the Red Line"

// fakeResponder answers with a fixed content under a decorated actor id.
type fakeResponder struct {
	step    incident.Step
	actor   string
	content string
	err     error
	block   bool // wait for the context
	sleep   time.Duration
	panics  bool
	calls   *atomic.Int32
}

func (f *fakeResponder) Step() incident.Step { return f.step }
func (f *fakeResponder) Available() bool     { return true }

func (f *fakeResponder) Respond(ctx context.Context, c incident.Context) (incident.StepResult, error) {
	if f.calls != nil {
		f.calls.Add(1)
	}
	switch {
	case f.panics:
		panic("responder exploded")
	case f.block:
		<-ctx.Done()
		return incident.StepResult{}, ctx.Err()
	case f.sleep > 0:
		time.Sleep(f.sleep)
	}
	if f.err != nil {
		return incident.StepResult{}, f.err
	}
	actor := f.actor
	if actor == "" {
		actor = f.step.Name + "@fake"
	}
	content := f.content
	if content == "" {
		content = f.step.Title + " done for " + c.Place()
	}
	return incident.StepResult{Name: actor, Content: content}, nil
}

type fakeFactory struct {
	make  func(i int, st incident.Step) agent.Responder
	calls atomic.Int32
}

func (f *fakeFactory) BuildAll(_ context.Context, reg *incident.Registry) []agent.Responder {
	f.calls.Add(1)
	var out []agent.Responder
	for i, st := range reg.Steps() {
		out = append(out, f.make(i, st))
	}
	return out
}

func allReal(calls *atomic.Int32) *fakeFactory {
	return &fakeFactory{make: func(_ int, st incident.Step) agent.Responder {
		return &fakeResponder{step: st, calls: calls}
	}}
}

func newReporter(f ResponderFactory, timeout time.Duration) (*Reporter, *Metrics) {
	m := NewMetrics(prometheus.NewRegistry())
	seq := &Sequencer{
		Registry:    incident.DefaultRegistry(),
		Factory:     f,
		StepTimeout: timeout,
		Metrics:     m,
	}
	return NewReporter(seq, incident.NewFallback(8)), m
}

func names(steps []incident.StepResult) []string {
	var ret []string
	for _, s := range steps {
		ret = append(ret, s.Name)
	}
	return ret
}

var canonicalOrder = []string{
	"TrainBreakdownAgent",
	"DriverCoordinationAgent",
	"DepotMaintenanceAgent",
	"PublicCommunicationAgent",
	"IncidentResolutionAgent",
	"InternalNotificationAgent",
	"PublicUpdateAgent",
}

func TestSequencer_Completed(t *testing.T) {
	var calls atomic.Int32
	seq := &Sequencer{Registry: incident.DefaultRegistry(), Factory: allReal(&calls)}
	c, err := incident.NewContext(report)
	require.NoError(t, err)

	st, err := seq.Run(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, st.Phase)
	assert.Equal(t, 8, st.Participants)
	assert.NotEmpty(t, st.RunID)
	assert.EqualValues(t, 7, calls.Load())

	steps := st.Trail.Steps()
	assert.Equal(t, canonicalOrder, names(steps))
	assert.Equal(t, "Incident logging done for Central Station", steps[0].Content)

	var phases []string
	for _, h := range st.History {
		if h.Status == StepPhase {
			phases = append(phases, h.StepName)
		}
	}
	assert.Equal(t, []string{"building", "running", "completed"}, phases)
}

func TestSequencer_ActorNormalization(t *testing.T) {
	decorations := []string{"%s@gpt-4o", "%s#3", "%s (azure)", "%s"}
	f := &fakeFactory{make: func(i int, st incident.Step) agent.Responder {
		return &fakeResponder{step: st, actor: strings.Replace(decorations[i%len(decorations)], "%s", st.Name, 1)}
	}}
	seq := &Sequencer{Registry: incident.DefaultRegistry(), Factory: f}
	c, _ := incident.NewContext(report)

	st, err := seq.Run(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, canonicalOrder, names(st.Trail.Steps()))
	assert.Equal(t, "TrainBreakdownAgent@gpt-4o", st.History[2].Actor)
}

func TestSequencer_UnexpectedActor(t *testing.T) {
	f := &fakeFactory{make: func(i int, st incident.Step) agent.Responder {
		if i == 1 {
			return &fakeResponder{step: st, actor: "PublicUpdateAgent@fake"}
		}
		return &fakeResponder{step: st}
	}}
	seq := &Sequencer{Registry: incident.DefaultRegistry(), Factory: f}
	c, _ := incident.NewContext(report)

	st, err := seq.Run(context.Background(), c)
	require.Error(t, err)
	assert.ErrorIs(t, err, incident.ErrExecution)
	assert.Equal(t, PhaseFailed, st.Phase)
	assert.Equal(t, 1, st.Trail.Len())
}

func TestSequencer_Threshold(t *testing.T) {
	tests := []struct {
		name      string
		available int
		wantErr   error
		wantCalls int32
	}{
		{"initiator only", 0, incident.ErrInsufficientParticipants, 0},
		{"one real step", 1, incident.ErrInsufficientParticipants, 0},
		// enough participants to start, the first absent step fails the run
		{"two real steps", 2, incident.ErrExecution, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			f := &fakeFactory{make: func(i int, st incident.Step) agent.Responder {
				if i < tt.available {
					return &fakeResponder{step: st, calls: &calls}
				}
				return agent.NewAbsentResponder(st, errors.New("no model"))
			}}
			seq := &Sequencer{Registry: incident.DefaultRegistry(), Factory: f, MinParticipants: 3}
			c, _ := incident.NewContext(report)

			st, err := seq.Run(context.Background(), c)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, PhaseFailed, st.Phase)
			assert.Equal(t, tt.available+1, st.Participants)
			assert.Equal(t, tt.wantCalls, calls.Load())
			assert.Equal(t, int(tt.wantCalls), st.Trail.Len())
		})
	}
}

func TestSequencer_MissingResponders(t *testing.T) {
	f := &fakeFactory{make: func(i int, st incident.Step) agent.Responder {
		if i == 0 {
			return &fakeResponder{step: st}
		}
		return nil
	}}
	seq := &Sequencer{Registry: incident.DefaultRegistry(), Factory: f}
	c, _ := incident.NewContext(report)
	st, err := seq.Run(context.Background(), c)
	assert.ErrorIs(t, err, incident.ErrInsufficientParticipants)
	assert.Equal(t, 2, st.Participants)
}

func TestReporter_Completed(t *testing.T) {
	r, m := newReporter(allReal(nil), time.Second)
	res, err := r.Run(context.Background(), report)
	require.NoError(t, err)
	assert.Equal(t, incident.StatusCompleted, res.Status)
	assert.Empty(t, res.Message)
	assert.Equal(t, canonicalOrder, names(res.Steps))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("completed")))
	assert.Equal(t, 7, testutil.CollectAndCount(m.StepDuration, "metro_step_duration_seconds"))
}

func TestReporter_FallbackOnFailure(t *testing.T) {
	boom := errors.New("model returned 500")
	tests := []struct {
		name   string
		make   func(i int, st incident.Step) agent.Responder
		reason string
	}{
		{
			name: "execution error mid run",
			make: func(i int, st incident.Step) agent.Responder {
				if i == 3 {
					return &fakeResponder{step: st, err: boom}
				}
				return &fakeResponder{step: st}
			},
			reason: "execution",
		},
		{
			name: "panic",
			make: func(i int, st incident.Step) agent.Responder {
				return &fakeResponder{step: st, panics: i == 0}
			},
			reason: "execution",
		},
		{
			name: "timeout",
			make: func(i int, st incident.Step) agent.Responder {
				return &fakeResponder{step: st, block: i == 5}
			},
			reason: "timeout",
		},
		{
			name: "responder ignores its deadline",
			make: func(i int, st incident.Step) agent.Responder {
				if i == 0 {
					return &fakeResponder{step: st, sleep: 200 * time.Millisecond}
				}
				return &fakeResponder{step: st}
			},
			reason: "timeout",
		},
		{
			name: "no responders",
			make: func(i int, st incident.Step) agent.Responder {
				return agent.NewAbsentResponder(st, incident.ErrConfiguration)
			},
			reason: "insufficient_participants",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, m := newReporter(&fakeFactory{make: tt.make}, 30*time.Millisecond)
			res, err := r.Run(context.Background(), report)
			require.NoError(t, err)
			assert.Equal(t, incident.StatusError, res.Status)
			assert.NotEmpty(t, res.Message)

			want := incident.NewFallback(0).Run(report)
			if diff := cmp.Diff(want, res.Steps); diff != "" {
				t.Errorf("steps mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbackTotal.WithLabelValues(tt.reason)))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("error")))
		})
	}
}

func TestReporter_ClientInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t"} {
		f := allReal(nil)
		r, m := newReporter(f, time.Second)
		res, err := r.Run(context.Background(), in)
		assert.ErrorIs(t, err, incident.ErrClientInput)
		assert.Empty(t, res.Steps)
		assert.Zero(t, f.calls.Load())
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ClientErrors))
		assert.Zero(t, testutil.CollectAndCount(m.FallbackTotal))
	}
}

type panicFactory struct{}

func (panicFactory) BuildAll(context.Context, *incident.Registry) []agent.Responder {
	panic("factory exploded")
}

func TestReporter_RecoversPanic(t *testing.T) {
	r, _ := newReporter(panicFactory{}, time.Second)
	res, err := r.Run(context.Background(), report)
	require.NoError(t, err)
	assert.Equal(t, incident.StatusError, res.Status)
	assert.Contains(t, res.Message, "factory exploded")
	assert.Len(t, res.Steps, 7)

	res, err = NewReporter(nil, nil).Run(context.Background(), report)
	require.NoError(t, err)
	assert.Equal(t, incident.StatusError, res.Status)
	assert.Len(t, res.Steps, 7)
}

func TestReporter_Simulated(t *testing.T) {
	h := agent.NewHandle(llm.ModelConfig{APIType: llm.ModelTypeSimulated})
	b, err := agent.NewBuilder(agent.BuilderOptions{Handle: h, MaxSteps: 6})
	require.NoError(t, err)
	r, _ := newReporter(b, 10*time.Second)

	res, err := r.Run(context.Background(), report)
	require.NoError(t, err)
	require.Equal(t, incident.StatusCompleted, res.Status, res.Message)
	assert.Equal(t, canonicalOrder, names(res.Steps))
	reg := incident.DefaultRegistry()
	for i, s := range res.Steps {
		assert.True(t, strings.HasPrefix(s.Content, reg.Steps()[i].Marker), s.Content)
	}
	assert.Equal(t, "🚨 Disruption recorded successfully at: Central Station. Further response steps initiated.", res.Steps[0].Content)
	assert.Contains(t, res.Steps[1].Content, "All 10 drivers have acknowledged")
	assert.Contains(t, res.Steps[3].Content, "affecting Red Line")
}

func TestReporter_HandleAlwaysFails(t *testing.T) {
	h := llm.NewHandleWith(llm.ModelConfig{APIType: llm.ModelTypeAzure}, func(context.Context, llm.ModelConfig) (llm.ChatModel, error) {
		return nil, errors.New("missing api_key")
	})
	b, err := agent.NewBuilder(agent.BuilderOptions{Handle: h})
	require.NoError(t, err)
	r, m := newReporter(b, time.Second)

	for i := 0; i < 3; i++ {
		res, err := r.Run(context.Background(), "Signal failure near Baker Street")
		require.NoError(t, err)
		assert.Equal(t, incident.StatusError, res.Status)
		assert.Len(t, res.Steps, 7)
		assert.Contains(t, res.Steps[0].Content, "Baker Street")
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.FallbackTotal.WithLabelValues("insufficient_participants")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.AbsentTotal.WithLabelValues("TrainBreakdownAgent")))
}
