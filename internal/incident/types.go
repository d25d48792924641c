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

package incident

import (
	"strings"
)

// Context is the read-only incident description shared by every step of a
// run. Place and line are extracted once at construction.
type Context struct {
	text  string
	place string
	line  string
}

// NewContext trims text and rejects empty input with ErrClientInput.
func NewContext(text string) (Context, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Context{}, ErrClientInput
	}
	return Context{
		text:  text,
		place: ExtractPlace(text),
		line:  ExtractLine(text),
	}, nil
}

func (c Context) Text() string  { return c.text }
func (c Context) Place() string { return c.place }
func (c Context) Line() string  { return c.line }

// StepResult is the output of one step.
type StepResult struct {
	Name    string `json:"name" yaml:"name"`
	Content string `json:"content" yaml:"content"`
}

// Trail collects step results in execution order. It is append-only.
type Trail struct {
	steps []StepResult
}

func (t *Trail) Append(r StepResult) {
	t.steps = append(t.steps, r)
}

func (t *Trail) Len() int {
	return len(t.steps)
}

// Steps returns a copy of the collected results.
func (t *Trail) Steps() []StepResult {
	return append([]StepResult(nil), t.steps...)
}

type Status string

const (
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// RunResult is the response handed back to callers.
type RunResult struct {
	Status  Status       `json:"status" yaml:"status"`
	Message string       `json:"message,omitempty" yaml:"message,omitempty"`
	Steps   []StepResult `json:"steps" yaml:"steps"`
}
