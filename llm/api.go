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

package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	etool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/metroresponder/llm/prompt"
	"github.com/cloudwego/metroresponder/llm/tool"
)

type ModelConfig struct {
	Name        string        `json:"name"` // alias of the config, not endpoint!
	APIType     ModelType     `json:"type"`
	BaseURL     string        `json:"base_url"`
	APIKey      string        `json:"api_key"`
	APIVersion  string        `json:"api_version"` // azure only
	ModelName   string        `json:"model_name"`  // the model or azure deployment, like `gpt-4o`
	Temperature *float32      `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Timeout     time.Duration `json:"timeout"` // HTTP request timeout, default: 120s
	Retries     int           `json:"retries"` // Number of retries on retryable failures
	// Probe sends a one-message test completion when the handle is built.
	Probe bool `json:"probe"`
	// Resolver supplies tool arguments to the simulated model.
	Resolver ArgResolver `json:"-"`
}

// Label identifies the model in actor ids and logs.
func (m ModelConfig) Label() string {
	if m.Name != "" {
		return m.Name
	}
	if m.ModelName != "" {
		return string(m.APIType) + ":" + m.ModelName
	}
	return string(m.APIType)
}

type ModelType string

func NewModelType(t string) ModelType {
	switch strings.ToLower(t) {
	case "ollama":
		return ModelTypeOllama
	case "ark", "doubao":
		return ModelTypeARK
	case "openai", "gpt":
		return ModelTypeOpenAI
	case "azure", "azure-openai", "azure_openai":
		return ModelTypeAzure
	case "claude", "anthropic":
		return ModelTypeClaude
	case "dashscope", "qwen", "tongyi":
		return ModelTypeDashScope
	case "deepseek":
		return ModelTypeDeepSeek
	case "simulated", "sim", "offline":
		return ModelTypeSimulated
	}
	return ModelTypeUnknown
}

const (
	ModelTypeUnknown   ModelType = ""
	ModelTypeOllama    ModelType = "ollama"
	ModelTypeARK       ModelType = "ark"
	ModelTypeOpenAI    ModelType = "openai"
	ModelTypeAzure     ModelType = "azure"
	ModelTypeClaude    ModelType = "claude"
	ModelTypeDashScope ModelType = "dashscope"
	ModelTypeDeepSeek  ModelType = "deepseek"
	ModelTypeSimulated ModelType = "simulated" // deterministic, no network
)

type AgentConfig struct {
	MaxSteps int           `json:"max_steps"`
	Retries  int           `json:"retries"`
	Timeout  time.Duration `json:"timeout"`
	Prompt   prompt.Prompt `json:"-"`
}

// Generator is the interface for calling
type Generator interface {
	// Call calls the LLM with the input.
	Call(ctx context.Context, input string) (string, error)
}

// ChatModel is the interface for making LLM backend.
type ChatModel interface {
	model.ToolCallingChatModel
}

// MakeAgent builds a react agent named name over the given model and tools.
func MakeAgent(name string, chat ChatModel, tools []tool.Tool, cfg AgentConfig) (Generator, error) {
	if chat == nil {
		return nil, fmt.Errorf("agent %s: no model", name)
	}
	if cfg.Prompt == nil {
		return nil, fmt.Errorf("agent %s: no system prompt", name)
	}
	tcfg := compose.ToolsNodeConfig{}
	for _, t := range tools {
		tcfg.Tools = append(tcfg.Tools, etool.BaseTool(t))
	}
	return NewReactAgent(name, ReactAgentOptions{
		SysPrompt: cfg.Prompt,
		AgentConfig: &react.AgentConfig{
			ToolCallingModel: chat,
			ToolsConfig:      tcfg,
			MaxStep:          cfg.MaxSteps,
		},
		Retries: cfg.Retries,
		Timeout: cfg.Timeout,
	})
}
