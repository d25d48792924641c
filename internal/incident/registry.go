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
	"fmt"
	"strings"

	"github.com/cloudwego/metroresponder/llm/tool"
)

// InitiatorName is the placeholder participant representing the system that
// submits the incident. It counts towards participants but never produces output.
const InitiatorName = "UserProxyAgent"

// Step is one stage of the response sequence.
type Step struct {
	Name    string   `json:"name"`
	Key     string   `json:"key"`
	Ordinal int      `json:"ordinal"`
	Marker  string   `json:"marker"`
	Title   string   `json:"title"`
	Tools   []string `json:"tools"`
}

// WithMarker prefixes content with the step marker unless it already starts
// with it. Applying it twice yields the same string.
func (s Step) WithMarker(content string) string {
	if s.Marker == "" {
		return content
	}
	if strings.HasPrefix(content, s.Marker) || strings.HasPrefix(content, strings.TrimSuffix(s.Marker, "\ufe0f")) {
		return content
	}
	return s.Marker + " " + content
}

// Run invokes the step's tools directly with arguments derived from c and
// joins their outputs. It is deterministic and never fails.
func (s Step) Run(c Context) string {
	parts := make([]string, 0, len(s.Tools))
	for _, name := range s.Tools {
		if b, ok := bindings[name]; ok {
			_, out := b(c)
			parts = append(parts, out)
		}
	}
	return s.WithMarker(strings.Join(parts, " "))
}

var canonicalSteps = []Step{
	{Name: "TrainBreakdownAgent", Key: "incident_logging", Ordinal: 1, Marker: "🚨", Title: "Incident logging", Tools: []string{tool.ToolLogIncident}},
	{Name: "DriverCoordinationAgent", Key: "driver_coordination", Ordinal: 2, Marker: "📣", Title: "Driver coordination", Tools: []string{tool.ToolNotifyDriver, tool.ToolConfirmDriverAck}},
	{Name: "DepotMaintenanceAgent", Key: "depot_readiness", Ordinal: 3, Marker: "🛠️", Title: "Depot and bus readiness", Tools: []string{tool.ToolNotifyDepot, tool.ToolConfirmBusReadiness}},
	{Name: "PublicCommunicationAgent", Key: "public_communication", Ordinal: 4, Marker: "⚠️", Title: "Public communication draft", Tools: []string{tool.ToolDraftSocialPost}},
	{Name: "IncidentResolutionAgent", Key: "resolution_check", Ordinal: 5, Marker: "✅", Title: "Incident resolution check", Tools: []string{tool.ToolCheckIncidentStatus}},
	{Name: "InternalNotificationAgent", Key: "internal_notification", Ordinal: 6, Marker: "📨", Title: "Internal notification", Tools: []string{tool.ToolSendInternalNotification}},
	{Name: "PublicUpdateAgent", Key: "public_update", Ordinal: 7, Marker: "📢", Title: "Public update post", Tools: []string{tool.ToolPostPublicUpdate}},
}

// Registry is the ordered, immutable step catalogue together with the table
// that maps actor identifiers back to steps.
type Registry struct {
	steps []Step
	ids   map[string]int
}

// DefaultRegistry returns the seven canonical steps.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(canonicalSteps...)
	if err != nil {
		panic(err)
	}
	return r
}

// NewRegistry validates steps (unique names and keys, ordinals 1..n in order)
// and builds the identifier table.
func NewRegistry(steps ...Step) (*Registry, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("registry needs at least one step")
	}
	r := &Registry{
		steps: make([]Step, len(steps)),
		ids:   make(map[string]int, len(steps)*3),
	}
	for i, s := range steps {
		if s.Name == "" {
			return nil, fmt.Errorf("step %d has no name", i+1)
		}
		if s.Ordinal != i+1 {
			return nil, fmt.Errorf("step %s has ordinal %d, want %d", s.Name, s.Ordinal, i+1)
		}
		if s.Name == InitiatorName {
			return nil, fmt.Errorf("step name %s is reserved", s.Name)
		}
		s.Tools = append([]string(nil), s.Tools...)
		r.steps[i] = s
		for _, id := range []string{s.Name, strings.ToLower(s.Name), s.Key} {
			if id == "" {
				continue
			}
			if j, dup := r.ids[id]; dup && j != i {
				return nil, fmt.Errorf("step identifier %q is not unique", id)
			}
			r.ids[id] = i
		}
	}
	return r, nil
}

// Steps returns the steps in sequence order.
func (r *Registry) Steps() []Step {
	ret := make([]Step, len(r.steps))
	copy(ret, r.steps)
	return ret
}

func (r *Registry) Len() int {
	return len(r.steps)
}

// Lookup finds a step by exact name or key.
func (r *Registry) Lookup(name string) (Step, bool) {
	i, ok := r.ids[name]
	if !ok {
		return Step{}, false
	}
	return r.steps[i], true
}

// actorQualifiers separate a step name from runtime decoration, as in
// "TrainBreakdownAgent@gpt-4o", "DepotMaintenanceAgent#2" or
// "assistant:TrainBreakdownAgent".
const actorQualifiers = "@#:/ ()"

// Canonical maps a raw actor identifier to its step. When the whole
// identifier is unknown, each qualifier-separated token is tried in order.
func (r *Registry) Canonical(actor string) (Step, bool) {
	actor = strings.TrimSpace(actor)
	if s, ok := r.canonical(actor); ok {
		return s, true
	}
	tokens := strings.FieldsFunc(actor, func(c rune) bool {
		return strings.ContainsRune(actorQualifiers, c)
	})
	for _, tok := range tokens {
		if s, ok := r.canonical(tok); ok {
			return s, true
		}
	}
	return Step{}, false
}

func (r *Registry) canonical(id string) (Step, bool) {
	if i, ok := r.ids[id]; ok {
		return r.steps[i], true
	}
	if i, ok := r.ids[strings.ToLower(id)]; ok {
		return r.steps[i], true
	}
	return Step{}, false
}
