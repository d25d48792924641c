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

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"github.com/cloudwego/metroresponder/internal/utils"
	"github.com/cloudwego/metroresponder/llm/log"
	"github.com/cloudwego/metroresponder/llm/prompt"
)

var _ Generator = (*ReactAgent)(nil)

type ReactAgent struct {
	name string
	opts ReactAgentOptions
	*react.Agent
	retries int           // Number of retries on failure
	timeout time.Duration // Request timeout
}

type ReactAgentOptions struct {
	SysPrompt prompt.Prompt `json:"-"`
	*react.AgentConfig
	Retries int           `json:"retries"` // Number of retries on retryable errors
	Timeout time.Duration `json:"timeout"` // Request timeout, default: 600s
}

const iterationLimitMessage = "The iteration limit is reached. Give your final answer now and do not call any more tools."

func NewReactAgent(name string, opts ReactAgentOptions) (*ReactAgent, error) {
	if opts.AgentConfig == nil {
		return nil, fmt.Errorf("react agent %s: no agent config", name)
	}
	if opts.AgentConfig.MessageModifier == nil {
		opts.AgentConfig.MessageModifier = newMessageModifier(opts.SysPrompt.String(), name, opts.AgentConfig.MaxStep)
	}
	ag, err := react.NewAgent(context.Background(), opts.AgentConfig)
	if err != nil {
		return nil, utils.WrapError(err, "build react agent %s", name)
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 600 * time.Second // Default: 600 seconds
	}
	return &ReactAgent{
		name:    name,
		opts:    opts,
		Agent:   ag,
		retries: retries,
		timeout: timeout,
	}, nil
}

func newMessageModifier(sysPrompt string, name string, limit int) func(ctx context.Context, input []*schema.Message) []*schema.Message {
	return func(ctx context.Context, input []*schema.Message) []*schema.Message {
		log.Debug("newMessageModifier, name: %v, limit: %d, input: %v", name, limit, len(input))
		if limit > 0 && len(input) >= limit-1 {
			input = append(input, schema.UserMessage(iterationLimitMessage))
		}
		return appendSysPrompt(sysPrompt, input)
	}
}

func appendSysPrompt(sysPrompt string, input []*schema.Message) []*schema.Message {
	res := make([]*schema.Message, 0, len(input)+1)
	res = append(res, schema.SystemMessage(sysPrompt))
	res = append(res, input...)
	return res
}

func isRetryable(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "operation timed out") ||
		strings.Contains(errStr, "context deadline exceeded") ||
		strings.Contains(errStr, "read tcp") ||
		strings.Contains(errStr, "write tcp") ||
		strings.Contains(errStr, "status code: 429") ||
		strings.Contains(errStr, "status code: 5")
}

func backoff(attempt int) time.Duration {
	// 1s, 2s, 4s... capped at 10s
	wait := time.Duration(1<<uint(attempt-1)) * time.Second
	if wait > 10*time.Second {
		wait = 10 * time.Second
	}
	return wait
}

func (p *ReactAgent) Call(ctx context.Context, input string) (string, error) {
	log.Debug("[%s] user: %s", p.name, input)
	inputMsgs := []*schema.Message{schema.UserMessage(input)}

	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			log.Info("[%s] retrying LLM call (attempt %d/%d)...", p.name, attempt+1, p.retries+1)
			select {
			case <-ctx.Done():
				return "", utils.WrapError(ctx.Err(), "ReactAgent %s aborted", p.name)
			case <-time.After(backoff(attempt)):
			}
		}

		out, err := p.generate(ctx, inputMsgs)
		if err == nil {
			return out.Content, nil
		}
		lastErr = err

		// the caller's own deadline or cancellation is final
		if ctx.Err() != nil {
			return "", utils.WrapError(err, "ReactAgent %s RoundTrip error", p.name)
		}
		if !isRetryable(err) {
			log.Error("[%s] non-retryable error occurred: %v", p.name, err)
			return "", utils.WrapError(err, "ReactAgent %s RoundTrip error", p.name)
		}
		log.Info("[%s] retryable error occurred (attempt %d/%d): %v", p.name, attempt+1, p.retries+1, err)
	}

	return "", utils.WrapError(fmt.Errorf("failed after %d attempts: %w", p.retries+1, lastErr), "ReactAgent %s RoundTrip error", p.name)
}

func (p *ReactAgent) generate(ctx context.Context, msgs []*schema.Message) (*schema.Message, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.Generate(attemptCtx, msgs, agent.WithComposeOptions(compose.WithCallbacks(CallbackHandler{})))
}

type CallbackHandler struct{}

func runName(info *callbacks.RunInfo) string {
	if info == nil {
		return "?"
	}
	return fmt.Sprintf("%s/%s", info.Component, info.Name)
}

var _ callbacks.Handler = (*CallbackHandler)(nil)

func (h CallbackHandler) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	log.Debug("<OnStart> %s", runName(info))
	return ctx
}

func (h CallbackHandler) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	log.Debug("<OnEnd> %s OUTPUT: %v", runName(info), output)
	return ctx
}

func (h CallbackHandler) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	log.Error("<OnError> %s ERROR: %v", runName(info), err)
	return ctx
}

func (h CallbackHandler) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo,
	input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	return ctx
}

func (h CallbackHandler) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo,
	output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	output.Close()
	return ctx
}
