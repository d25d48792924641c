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
	"fmt"
	"time"

	"github.com/cloudwego/metroresponder/internal/incident"
	"github.com/cloudwego/metroresponder/internal/utils"
	"github.com/cloudwego/metroresponder/llm/agent"
	"github.com/cloudwego/metroresponder/llm/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultMinParticipants is the initiator plus two real steps.
	DefaultMinParticipants = 3
	DefaultStepTimeout     = 60 * time.Second
)

// ResponderFactory builds one responder per registry step, in order.
// Construction failures come back as absent responders.
type ResponderFactory interface {
	BuildAll(ctx context.Context, reg *incident.Registry) []agent.Responder
}

// Sequencer drives the registry steps in order against one incident.
type Sequencer struct {
	Registry        *incident.Registry
	Factory         ResponderFactory
	MinParticipants int
	StepTimeout     time.Duration
	Metrics         *Metrics
	Tracer          trace.Tracer
}

// Run executes a full sequence. On success the returned state is
// PhaseCompleted. Otherwise the error wraps ErrInsufficientParticipants or
// ErrExecution, and the state carries the partial trail for diagnostics.
func (s *Sequencer) Run(ctx context.Context, c incident.Context) (*RunState, error) {
	st := &RunState{RunID: uuid.NewString(), Phase: PhaseIdle, Context: c}
	ctx, span := s.tracer().Start(ctx, "sequencer.Run", trace.WithAttributes(attribute.String("run.id", st.RunID)))
	defer span.End()

	log.Info("[run %s] building responders", st.RunID)
	st.transition(PhaseBuilding)
	responders := s.build(ctx, st)
	if want := s.minParticipants(); st.Participants < want {
		err := utils.WrapError(incident.ErrInsufficientParticipants, "%d of %d participants available", st.Participants, want)
		return s.failed(span, st, err)
	}

	st.transition(PhaseRunning)
	steps := s.Registry.Steps()
	for i, r := range responders {
		res, err := s.runStep(ctx, st, steps[i], r)
		if err != nil {
			return s.failed(span, st, err)
		}
		st.Trail.Append(res)
	}

	st.transition(PhaseCompleted)
	log.Info("[run %s] completed with %d steps", st.RunID, st.Trail.Len())
	return st, nil
}

func (s *Sequencer) failed(span trace.Span, st *RunState, err error) (*RunState, error) {
	st.fail(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, "run failed")
	log.Warn("[run %s] failed after %d steps: %v", st.RunID, st.Trail.Len(), err)
	return st, err
}

// build returns one responder per registry step and counts the participants.
func (s *Sequencer) build(ctx context.Context, st *RunState) []agent.Responder {
	steps := s.Registry.Steps()
	byName := make(map[string]agent.Responder, len(steps))
	if s.Factory != nil {
		for _, r := range s.Factory.BuildAll(ctx, s.Registry) {
			if r != nil {
				byName[r.Step().Name] = r
			}
		}
	}

	out := make([]agent.Responder, len(steps))
	st.Participants = 1 // initiator
	for i, step := range steps {
		r, ok := byName[step.Name]
		if !ok {
			r = agent.NewAbsentResponder(step, fmt.Errorf("no responder built for %s", step.Name))
		}
		if r.Available() {
			st.Participants++
		} else if s.Metrics != nil {
			s.Metrics.AbsentTotal.WithLabelValues(step.Name).Inc()
		}
		out[i] = r
	}
	log.Debug("[run %s] %d participants including %s", st.RunID, st.Participants, incident.InitiatorName)
	return out
}

type respondResult struct {
	res incident.StepResult
	err error
}

// runStep invokes one responder under the step timeout and maps the actor
// it reports back to the canonical step.
func (s *Sequencer) runStep(ctx context.Context, st *RunState, step incident.Step, r agent.Responder) (_ incident.StepResult, err error) {
	ctx, span := s.tracer().Start(ctx, "sequencer.Step", trace.WithAttributes(attribute.String("step", step.Name)))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.stepTimeout())
	defer cancel()

	var actor string
	start := time.Now()
	log.Info("[run %s] step %d %s started", st.RunID, step.Ordinal, step.Name)
	defer func() {
		rec := StepRecord{StepName: step.Name, Actor: actor, Status: StepOK, Error: errStr(err), Duration: time.Since(start), Time: start}
		if err != nil {
			rec.Status = StepFailed
			span.RecordError(err)
			span.SetStatus(codes.Error, "step failed")
		}
		st.History = append(st.History, rec)
		if s.Metrics != nil {
			s.Metrics.StepDuration.WithLabelValues(step.Name).Observe(rec.Duration.Seconds())
		}
		log.Info("[run %s] step %d %s finished in %s: %s", st.RunID, step.Ordinal, step.Name, rec.Duration, rec.Status)
	}()

	c := st.Context
	done := make(chan respondResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- respondResult{err: fmt.Errorf("%w: panic in %s: %v", incident.ErrExecution, step.Name, p)}
			}
		}()
		res, err := r.Respond(ctx, c)
		done <- respondResult{res, err}
	}()

	var out respondResult
	select {
	case <-ctx.Done():
		return incident.StepResult{}, utils.WrapError(fmt.Errorf("%w: %w", incident.ErrExecution, ctx.Err()), "step %s", step.Name)
	case out = <-done:
	}
	actor = out.res.Name
	if out.err != nil {
		if !errors.Is(out.err, incident.ErrExecution) {
			out.err = fmt.Errorf("%w: %w", incident.ErrExecution, out.err)
		}
		return incident.StepResult{}, utils.WrapError(out.err, "step %s", step.Name)
	}

	canon, ok := s.Registry.Canonical(out.res.Name)
	if !ok || canon.Ordinal != step.Ordinal {
		return incident.StepResult{}, utils.WrapError(incident.ErrExecution, "step %s answered as unexpected actor %q", step.Name, out.res.Name)
	}
	return incident.StepResult{Name: canon.Name, Content: out.res.Content}, nil
}

func (s *Sequencer) minParticipants() int {
	if s.MinParticipants <= 0 {
		return DefaultMinParticipants
	}
	return s.MinParticipants
}

func (s *Sequencer) stepTimeout() time.Duration {
	if s.StepTimeout <= 0 {
		return DefaultStepTimeout
	}
	return s.StepTimeout
}

func (s *Sequencer) tracer() trace.Tracer {
	if s.Tracer != nil {
		return s.Tracer
	}
	return otel.Tracer("github.com/cloudwego/metroresponder/internal/pipeline")
}
