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
	"time"

	"github.com/cloudwego/metroresponder/internal/incident"
)

// Phase is the position of a run in the sequencer state machine:
// Idle -> Building -> Running -> Completed, or Building/Running -> Failed.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseBuilding  Phase = "building"
	PhaseRunning   Phase = "running"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// RunState is the single source of truth of one sequencer run. It is owned
// by that run and discarded once the caller has its result.
type RunState struct {
	RunID   string
	Phase   Phase
	Context incident.Context

	// Participants counts the initiator and every available responder.
	Participants int
	Trail        incident.Trail
	// Reason is set when Phase is PhaseFailed.
	Reason error

	History []StepRecord
}

func (st *RunState) transition(p Phase) {
	st.History = append(st.History, StepRecord{StepName: string(p), Status: StepPhase, Time: time.Now()})
	st.Phase = p
}

func (st *RunState) fail(err error) {
	st.Reason = err
	st.transition(PhaseFailed)
}

// StepRecord is an immutable log entry for a phase change or one step execution.
type StepRecord struct {
	StepName string
	Actor    string
	Status   StepStatus
	Error    string
	Duration time.Duration
	Time     time.Time
}

// StepStatus is the outcome of a step run.
type StepStatus string

const (
	StepOK     StepStatus = "ok"
	StepFailed StepStatus = "failed"
	StepPhase  StepStatus = "phase"
)

func errStr(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
