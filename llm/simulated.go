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
	"sync/atomic"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ArgResolver returns the JSON arguments a tool should be called with for
// the given user input, or false when the tool does not apply.
type ArgResolver func(toolName, input string) (args string, ok bool)

var _ model.ToolCallingChatModel = (*SimulatedChatModel)(nil)

// SimulatedChatModel is a deterministic chat model that needs no network.
// On its first turn it calls every bound tool the resolver knows, then it
// answers with the tool outputs joined by newlines.
type SimulatedChatModel struct {
	resolve  ArgResolver
	tools    []*schema.ToolInfo
	delay    time.Duration
	requests *atomic.Int64
	fail     error
}

type SimulatedOption func(*SimulatedChatModel)

// WithThinkingDelay makes every turn take d, or until the context is done.
func WithThinkingDelay(d time.Duration) SimulatedOption {
	return func(m *SimulatedChatModel) {
		m.delay = d
	}
}

// WithFailure makes every turn return err.
func WithFailure(err error) SimulatedOption {
	return func(m *SimulatedChatModel) {
		m.fail = err
	}
}

func NewSimulatedChatModel(resolve ArgResolver, opts ...SimulatedOption) *SimulatedChatModel {
	m := &SimulatedChatModel{resolve: resolve, requests: new(atomic.Int64)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Requests counts the turns served by this model and every copy made by WithTools.
func (m *SimulatedChatModel) Requests() int64 {
	return m.requests.Load()
}

func (m *SimulatedChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	cp := *m
	cp.tools = tools
	return &cp, nil
}

func (m *SimulatedChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.requests.Add(1)
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.fail != nil {
		return nil, m.fail
	}
	if outs := toolOutputs(input); outs != nil {
		return schema.AssistantMessage(strings.Join(outs, "\n"), nil), nil
	}
	return schema.AssistantMessage("", m.toolCalls(userInput(input))), nil
}

func (m *SimulatedChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *SimulatedChatModel) toolCalls(text string) []schema.ToolCall {
	if m.resolve == nil {
		return nil
	}
	var calls []schema.ToolCall
	for _, t := range m.tools {
		args, ok := m.resolve(t.Name, text)
		if !ok {
			continue
		}
		calls = append(calls, schema.ToolCall{
			ID:   fmt.Sprintf("call_%d", len(calls)+1),
			Type: "function",
			Function: schema.FunctionCall{
				Name:      t.Name,
				Arguments: args,
			},
		})
	}
	return calls
}

// userInput is the first user message of the conversation.
func userInput(msgs []*schema.Message) string {
	for _, msg := range msgs {
		if msg.Role == schema.User {
			return msg.Content
		}
	}
	return ""
}

// toolOutputs collects the tool results that follow the last assistant turn,
// or nil when the conversation does not end with tool results.
func toolOutputs(msgs []*schema.Message) []string {
	if len(msgs) == 0 || msgs[len(msgs)-1].Role != schema.Tool {
		return nil
	}
	var outs []string
	for i := len(msgs) - 1; i >= 0 && msgs[i].Role == schema.Tool; i-- {
		outs = append([]string{msgs[i].Content}, outs...)
	}
	return outs
}
