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

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/metroresponder/internal/incident"
	"github.com/cloudwego/metroresponder/internal/utils"
	"github.com/cloudwego/metroresponder/llm"
	"github.com/cloudwego/metroresponder/llm/tool"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "METRO_"

// Config is the complete runtime configuration.
type Config struct {
	Model    llm.ModelConfig `json:"model"`
	Pipeline PipelineConfig  `json:"pipeline"`
	Server   ServerConfig    `json:"server"`
	Log      LogConfig       `json:"log"`
	Prompts  PromptConfig    `json:"prompts"`
	// MCPTools are extra tool servers attached to every responder.
	MCPTools []tool.MCPConfig `json:"mcp_tools"`
}

type PipelineConfig struct {
	StepTimeout     time.Duration `json:"step_timeout"`
	MinParticipants int           `json:"min_participants"`
	MaxSteps        int           `json:"max_steps"` // react iterations per step
	Retries         int           `json:"retries"`
	FallbackCache   int           `json:"fallback_cache"`
}

type ServerConfig struct {
	Addr            string        `json:"addr"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `json:"level"`
}

type PromptConfig struct {
	Dir   string `json:"dir"`
	Watch bool   `json:"watch"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Model: llm.ModelConfig{
			APIType:    llm.ModelTypeAzure,
			APIVersion: llm.DefaultAzureAPIVersion,
			Retries:    1,
		},
		Pipeline: PipelineConfig{
			StepTimeout:     60 * time.Second,
			MinParticipants: 3,
			MaxSteps:        6,
			Retries:         1,
			FallbackCache:   256,
		},
		Server: ServerConfig{
			Addr:            ":8000",
			ShutdownTimeout: 10 * time.Second,
		},
		Log:     LogConfig{Level: "info"},
		Prompts: PromptConfig{Watch: true},
	}
}

// azureEnv maps the variables of an Azure OpenAI deployment onto model keys.
var azureEnv = map[string]string{
	"AZURE_OPENAI_API_KEY":         "model.api_key",
	"AZURE_OPENAI_ENDPOINT":        "model.base_url",
	"AZURE_OPENAI_DEPLOYMENT_NAME": "model.model_name",
	"AZURE_OPENAI_API_VERSION":     "model.api_version",
}

// envKey turns METRO_MODEL_API_KEY into model.api_key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// Load layers defaults, the optional YAML file at path, the Azure OpenAI
// variables and METRO_* variables, in that order, and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, utils.WrapError(fmt.Errorf("%w: %w", incident.ErrConfiguration, err), "load config %s", path)
		}
	}
	if err := k.Load(env.Provider("AZURE_OPENAI_", ".", func(s string) string {
		return azureEnv[s]
	}), nil); err != nil {
		return nil, utils.WrapError(err, "load azure env")
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, utils.WrapError(err, "load env")
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, utils.WrapError(fmt.Errorf("%w: %w", incident.ErrConfiguration, err), "parse config")
	}
	cfg.Model.APIType = llm.NewModelType(string(cfg.Model.APIType))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would make every run fail. Missing model
// credentials are not checked here: runs degrade to the fallback trail.
func (c *Config) Validate() error {
	var errs []string
	if c.Model.APIType == llm.ModelTypeUnknown {
		errs = append(errs, "model.type is not a supported provider")
	}
	if c.Pipeline.StepTimeout <= 0 {
		errs = append(errs, "pipeline.step_timeout must be positive")
	}
	if n := c.Pipeline.MinParticipants; n < 1 || n > incident.DefaultRegistry().Len()+1 {
		errs = append(errs, fmt.Sprintf("pipeline.min_participants must be between 1 and %d, got %d", incident.DefaultRegistry().Len()+1, n))
	}
	if c.Pipeline.MaxSteps < 0 || c.Pipeline.Retries < 0 {
		errs = append(errs, "pipeline.max_steps and pipeline.retries must not be negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "server.shutdown_timeout must be positive")
	}
	for i, m := range c.MCPTools {
		if m.Name == "" {
			errs = append(errs, fmt.Sprintf("mcp_tools[%d].name is empty", i))
		}
	}
	if len(errs) > 0 {
		return utils.WrapError(incident.ErrConfiguration, "invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}
