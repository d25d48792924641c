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
	"sync"
	"time"

	"github.com/cloudwego/metroresponder/internal/incident"
	"github.com/cloudwego/metroresponder/internal/utils"
	"github.com/cloudwego/metroresponder/llm"
	"github.com/cloudwego/metroresponder/llm/log"
	"github.com/cloudwego/metroresponder/llm/prompt"
	"github.com/cloudwego/metroresponder/llm/tool"
)

// ToolResolver derives metro tool arguments from the incident text. It feeds
// the simulated model.
func ToolResolver(name, input string) (string, bool) {
	c, err := incident.NewContext(input)
	if err != nil {
		return "", false
	}
	return incident.ToolArguments(name, c)
}

// NewHandle returns the shared model handle for cfg, wiring the metro
// argument resolver into the simulated provider.
func NewHandle(cfg llm.ModelConfig) *llm.Handle {
	if cfg.Resolver == nil {
		cfg.Resolver = ToolResolver
	}
	return llm.NewHandle(cfg)
}

type BuilderOptions struct {
	Handle  *llm.Handle
	Prompts *prompt.Store // nil uses the built-in prompts
	// ExtraTools are attached to every responder, e.g. tools of MCP servers.
	ExtraTools []tool.Tool
	MaxSteps   int
	Retries    int
	Timeout    time.Duration // per model request
}

// Builder binds registry steps to responders over the shared model handle.
// Agents are cached per step and rebuilt when the step prompt or the model changes.
type Builder struct {
	opts   BuilderOptions
	metro  *tool.MetroTools
	mu     sync.RWMutex
	agents map[string]cachedAgent
}

type cachedAgent struct {
	chat   llm.ChatModel
	prompt string
	gen    llm.Generator
}

func NewBuilder(opts BuilderOptions) (*Builder, error) {
	if opts.Handle == nil {
		return nil, utils.WrapError(incident.ErrConfiguration, "builder needs a model handle")
	}
	return &Builder{
		opts:   opts,
		metro:  tool.NewMetroTools(),
		agents: make(map[string]cachedAgent),
	}, nil
}

// Build returns the responder of step. On failure it returns an
// AbsentResponder together with the construction error.
func (b *Builder) Build(ctx context.Context, step incident.Step) (Responder, error) {
	gen, err := b.getOrCreateAgent(ctx, step)
	if err != nil {
		err = utils.WrapError(fmt.Errorf("%w: %w", incident.ErrConfiguration, err), "build responder %s", step.Name)
		return NewAbsentResponder(step, err), err
	}
	return NewRealResponder(step, gen, step.Name+"@"+b.opts.Handle.Config().Label()), nil
}

// BuildAll builds one responder per step, in registry order. Construction
// failures are logged and represented by absent responders.
func (b *Builder) BuildAll(ctx context.Context, reg *incident.Registry) []Responder {
	steps := reg.Steps()
	out := make([]Responder, 0, len(steps))
	for _, st := range steps {
		r, err := b.Build(ctx, st)
		if err != nil {
			log.Warn("responder %s unavailable: %v", st.Name, err)
		}
		out = append(out, r)
	}
	return out
}

func (b *Builder) getOrCreateAgent(ctx context.Context, step incident.Step) (llm.Generator, error) {
	chat, err := b.opts.Handle.Get(ctx)
	if err != nil {
		return nil, err
	}
	p := b.opts.Prompts.Get(step.Key)
	if p == nil {
		return nil, fmt.Errorf("no prompt for step %s", step.Key)
	}
	sys := p.String()

	b.mu.RLock()
	c, ok := b.agents[step.Name]
	b.mu.RUnlock()
	if ok && c.chat == chat && c.prompt == sys {
		return c.gen, nil
	}

	tools, err := b.stepTools(step)
	if err != nil {
		return nil, err
	}
	gen, err := llm.MakeAgent(step.Name, chat, tools, llm.AgentConfig{
		MaxSteps: b.opts.MaxSteps,
		Retries:  b.opts.Retries,
		Timeout:  b.opts.Timeout,
		Prompt:   prompt.NewTextPrompt(sys),
	})
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.agents[step.Name] = cachedAgent{chat: chat, prompt: sys, gen: gen}
	b.mu.Unlock()
	return gen, nil
}

func (b *Builder) stepTools(step incident.Step) ([]tool.Tool, error) {
	tools := make([]tool.Tool, 0, len(step.Tools)+len(b.opts.ExtraTools))
	for _, name := range step.Tools {
		t := b.metro.GetTool(name)
		if t == nil {
			return nil, fmt.Errorf("step %s: unknown tool %s", step.Name, name)
		}
		tools = append(tools, t)
	}
	return append(tools, b.opts.ExtraTools...), nil
}
