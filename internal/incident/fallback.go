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
	lru "github.com/hashicorp/golang-lru/v2"
)

// fallbackTemplates hold one message per canonical step, in step order. Each
// receives the extracted place and line; the constant ones ignore them.
var fallbackTemplates = []func(place, line string) string{
	func(place, _ string) string {
		return fmt.Sprintf("Incident logged: service disruption reported at %s. Response team activated and further response steps initiated.", place)
	},
	func(_, _ string) string {
		return fmt.Sprintf("Driver coordination: %d standby drivers notified to report to the depot. %d of %d drivers have acknowledged and are ready.", tool.StandbyFleet, tool.StandbyFleet, tool.StandbyFleet)
	},
	func(_, _ string) string {
		return fmt.Sprintf("Depot maintenance: depot notified to prepare %d standby buses. %d of %d buses are confirmed ready for deployment.", tool.StandbyFleet, tool.StandbyFleet, tool.StandbyFleet)
	},
	func(place, line string) string {
		return fmt.Sprintf("Service Alert: disruption at %s affecting %s. Shuttle buses have been deployed. We apologize for the inconvenience. #MetroUpdate", place, line)
	},
	func(place, _ string) string {
		return fmt.Sprintf("Incident resolution: normal train service has resumed at %s.", place)
	},
	func(_, _ string) string {
		return "Internal notification sent: service restored. Control Room, Depot, and Bus Operations teams have been informed."
	},
	func(place, _ string) string {
		return fmt.Sprintf("Public update posted: train service at %s has been fully restored. Thank you for your patience. #MetroServiceResumed", place)
	},
}

const defaultFallbackCacheSize = 256

// Fallback synthesizes the full canonical trail from raw incident text. It
// never fails and returns the same trail for the same text.
type Fallback struct {
	cache *lru.Cache[string, []StepResult]
}

// NewFallback creates a generator keeping up to cacheSize trails. A
// non-positive size uses the default.
func NewFallback(cacheSize int) *Fallback {
	if cacheSize <= 0 {
		cacheSize = defaultFallbackCacheSize
	}
	cache, err := lru.New[string, []StepResult](cacheSize)
	if err != nil {
		panic(err)
	}
	return &Fallback{cache: cache}
}

// Run returns exactly one result per canonical step. The text need not be
// valid client input: empty text yields the default place and line.
func (f *Fallback) Run(text string) []StepResult {
	text = strings.TrimSpace(text)
	if f != nil && f.cache != nil {
		if steps, ok := f.cache.Get(text); ok {
			return append([]StepResult(nil), steps...)
		}
	}
	steps := buildFallback(text)
	if f != nil && f.cache != nil {
		f.cache.Add(text, steps)
	}
	return append([]StepResult(nil), steps...)
}

func buildFallback(text string) []StepResult {
	place, line := ExtractPlace(text), ExtractLine(text)
	steps := make([]StepResult, len(canonicalSteps))
	for i, s := range canonicalSteps {
		steps[i] = StepResult{
			Name:    s.Name,
			Content: s.WithMarker(fallbackTemplates[i](place, line)),
		}
	}
	return steps
}
