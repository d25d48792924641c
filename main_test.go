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

package main

import (
	"encoding/json"
	"testing"

	"github.com/cloudwego/metroresponder/internal/incident"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var sampleResult = incident.RunResult{
	Status: incident.StatusCompleted,
	Steps: []incident.StepResult{
		{Name: "TrainBreakdownAgent", Content: "🚨 Incident logged"},
		{Name: "DriverCoordinationAgent", Content: "📣 Driver notified"},
	},
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]outputFormat{
		"text": formatText, "JSON": formatJSON, "yml": formatYAML, "md": formatMarkdown,
	} {
		got, err := parseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseFormat("xml")
	assert.Error(t, err)
}

func TestFormatResult_Text(t *testing.T) {
	out, err := formatResult(sampleResult, formatText)
	require.NoError(t, err)
	assert.Equal(t, "1. [TrainBreakdownAgent]\n🚨 Incident logged\n\n2. [DriverCoordinationAgent]\n📣 Driver notified\n\n", out)

	degraded := sampleResult
	degraded.Status = incident.StatusError
	degraded.Message = "timeout"
	out, err = formatResult(degraded, formatText)
	require.NoError(t, err)
	assert.Contains(t, out, "status: error (timeout)")
}

func TestFormatResult_JSONAndYAML(t *testing.T) {
	out, err := formatResult(sampleResult, formatJSON)
	require.NoError(t, err)
	var got incident.RunResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, sampleResult, got)
	assert.Contains(t, out, "🚨", "emoji must not be escaped")

	out, err = formatResult(sampleResult, formatYAML)
	require.NoError(t, err)
	got = incident.RunResult{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, sampleResult, got)
}

func TestResultMarkdown(t *testing.T) {
	md := resultMarkdown(sampleResult)
	assert.Contains(t, md, "## 1. TrainBreakdownAgent")
	assert.Contains(t, md, "## 2. DriverCoordinationAgent")
	assert.NotContains(t, md, "> ")
}

func TestFormatSteps(t *testing.T) {
	reg := incident.DefaultRegistry()
	out, err := formatSteps(reg, formatText)
	require.NoError(t, err)
	assert.Contains(t, out, "1. TrainBreakdownAgent\n")
	assert.Contains(t, out, "7. PublicUpdateAgent\n")

	out, err = formatSteps(reg, formatJSON)
	require.NoError(t, err)
	var steps []incident.Step
	require.NoError(t, json.Unmarshal([]byte(out), &steps))
	assert.Len(t, steps, reg.Len())
}
