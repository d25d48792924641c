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
	"fmt"
	"strings"

	"github.com/cloudwego/metroresponder/internal/incident"
	"github.com/cloudwego/metroresponder/internal/utils"
	"github.com/cloudwego/metroresponder/llm"
)

// Responder executes one step of the response against an incident.
// The two implementations are RealResponder and AbsentResponder.
type Responder interface {
	Step() incident.Step
	// Available is false for a responder whose construction failed.
	Available() bool
	// Respond returns the step output named after the executing actor.
	Respond(ctx context.Context, c incident.Context) (incident.StepResult, error)
}

var (
	_ Responder = (*RealResponder)(nil)
	_ Responder = (*AbsentResponder)(nil)
)

// RealResponder runs its step through a model-backed generator.
type RealResponder struct {
	step  incident.Step
	gen   llm.Generator
	actor string
}

func NewRealResponder(step incident.Step, gen llm.Generator, actor string) *RealResponder {
	if actor == "" {
		actor = step.Name
	}
	return &RealResponder{step: step, gen: gen, actor: actor}
}

func (r *RealResponder) Step() incident.Step { return r.step }

func (r *RealResponder) Available() bool { return true }

// Actor is the decorated identifier reported in results, `<StepName>@<model>`.
func (r *RealResponder) Actor() string { return r.actor }

func (r *RealResponder) Respond(ctx context.Context, c incident.Context) (incident.StepResult, error) {
	out, err := r.gen.Call(ctx, c.Text())
	if err != nil {
		return incident.StepResult{}, utils.WrapError(fmt.Errorf("%w: %w", incident.ErrExecution, err), "respond %s", r.actor)
	}
	if strings.TrimSpace(out) == "" {
		// the model answered without text, report what its tools produce
		out = r.step.Run(c)
	}
	return incident.StepResult{Name: r.actor, Content: r.step.WithMarker(out)}, nil
}

// AbsentResponder stands for a step whose responder could not be built.
type AbsentResponder struct {
	step incident.Step
	Err  error
}

func NewAbsentResponder(step incident.Step, err error) *AbsentResponder {
	return &AbsentResponder{step: step, Err: err}
}

func (a *AbsentResponder) Step() incident.Step { return a.step }

func (a *AbsentResponder) Available() bool { return false }

func (a *AbsentResponder) Respond(context.Context, incident.Context) (incident.StepResult, error) {
	return incident.StepResult{}, utils.WrapError(fmt.Errorf("%w: %w", incident.ErrExecution, a.Err), "step %s has no responder", a.step.Name)
}
