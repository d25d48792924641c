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
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/cloudwego/metroresponder/internal/incident"
	"github.com/cloudwego/metroresponder/internal/utils"
	"gopkg.in/yaml.v3"
)

type outputFormat string

const (
	formatText     outputFormat = "text"
	formatJSON     outputFormat = "json"
	formatYAML     outputFormat = "yaml"
	formatMarkdown outputFormat = "markdown"
)

func parseFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(s)); f {
	case formatText, formatJSON, formatYAML, formatMarkdown:
		return f, nil
	case "md":
		return formatMarkdown, nil
	case "yml":
		return formatYAML, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

func formatResult(res incident.RunResult, f outputFormat) (string, error) {
	switch f {
	case formatJSON:
		s, err := utils.MarshalJSONIndent(res)
		return s + "\n", err
	case formatYAML:
		b, err := yaml.Marshal(res)
		return string(b), err
	case formatMarkdown:
		return renderMarkdown(resultMarkdown(res))
	}
	var sb strings.Builder
	if res.Status != incident.StatusCompleted {
		fmt.Fprintf(&sb, "status: %s (%s)\n\n", res.Status, res.Message)
	}
	for i, s := range res.Steps {
		fmt.Fprintf(&sb, "%d. [%s]\n%s\n\n", i+1, s.Name, s.Content)
	}
	return sb.String(), nil
}

func resultMarkdown(res incident.RunResult) string {
	var sb strings.Builder
	sb.WriteString("# Incident response\n\n")
	fmt.Fprintf(&sb, "**Status:** %s\n\n", res.Status)
	if res.Message != "" {
		fmt.Fprintf(&sb, "> %s\n\n", res.Message)
	}
	for i, s := range res.Steps {
		fmt.Fprintf(&sb, "## %d. %s\n\n%s\n\n", i+1, s.Name, s.Content)
	}
	return sb.String()
}

func formatSteps(reg *incident.Registry, f outputFormat) (string, error) {
	steps := reg.Steps()
	switch f {
	case formatJSON:
		s, err := utils.MarshalJSONIndent(steps)
		return s + "\n", err
	case formatYAML:
		b, err := yaml.Marshal(steps)
		return string(b), err
	case formatMarkdown:
		var sb strings.Builder
		sb.WriteString("| # | Step | Key |\n|---|---|---|\n")
		for i, s := range steps {
			fmt.Fprintf(&sb, "| %d | %s | %s |\n", i+1, s.Name, s.Key)
		}
		return renderMarkdown(sb.String())
	}
	var sb strings.Builder
	for i, s := range steps {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, s.Name)
	}
	return sb.String(), nil
}

func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
