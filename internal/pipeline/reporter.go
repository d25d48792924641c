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
	"runtime/debug"

	"github.com/cloudwego/metroresponder/internal/incident"
	"github.com/cloudwego/metroresponder/llm/log"
)

// Reporter turns a sequencer run into the caller-facing RunResult. Only
// incident.ErrClientInput is returned as an error; every other failure
// yields status "error" with the complete fallback trail.
type Reporter struct {
	Sequencer *Sequencer
	Fallback  *incident.Fallback
	Metrics   *Metrics
}

func NewReporter(seq *Sequencer, fb *incident.Fallback) *Reporter {
	if fb == nil {
		fb = incident.NewFallback(0)
	}
	var m *Metrics
	if seq != nil {
		m = seq.Metrics
	}
	return &Reporter{Sequencer: seq, Fallback: fb, Metrics: m}
}

// Run handles one incident report.
func (r *Reporter) Run(ctx context.Context, text string) (res incident.RunResult, err error) {
	c, err := incident.NewContext(text)
	if err != nil {
		if r.Metrics != nil {
			r.Metrics.ClientErrors.Inc()
		}
		return incident.RunResult{}, err
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error("incident run panicked: %v\n%s", p, debug.Stack())
			res = r.degraded(c, "panic", fmt.Errorf("internal error: %v", p))
			err = nil
		}
	}()

	if r.Sequencer == nil {
		return r.degraded(c, "configuration", incident.ErrConfiguration), nil
	}
	st, runErr := r.Sequencer.Run(ctx, c)
	if runErr != nil {
		return r.degraded(c, reasonOf(runErr), runErr), nil
	}
	r.count(incident.StatusCompleted)
	return incident.RunResult{Status: incident.StatusCompleted, Steps: st.Trail.Steps()}, nil
}

func (r *Reporter) degraded(c incident.Context, reason string, cause error) incident.RunResult {
	if r.Metrics != nil {
		r.Metrics.FallbackTotal.WithLabelValues(reason).Inc()
	}
	r.count(incident.StatusError)
	log.Warn("using fallback trail (%s): %v", reason, cause)
	return incident.RunResult{
		Status:  incident.StatusError,
		Message: cause.Error(),
		Steps:   r.Fallback.Run(c.Text()),
	}
}

func (r *Reporter) count(s incident.Status) {
	if r.Metrics != nil {
		r.Metrics.RunsTotal.WithLabelValues(string(s)).Inc()
	}
}

func reasonOf(err error) string {
	switch {
	case errors.Is(err, incident.ErrInsufficientParticipants):
		return "insufficient_participants"
	case errors.Is(err, incident.ErrConfiguration):
		return "configuration"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, incident.ErrExecution):
		return "execution"
	default:
		return "unknown"
	}
}
