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

package tool

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
)

// MetroTools holds the eino wrappers of the simulated metro tools.
type MetroTools struct {
	tools map[string]tool.InvokableTool
	order []string
}

func NewMetroTools() *MetroTools {
	ret := &MetroTools{
		tools: map[string]tool.InvokableTool{},
	}
	ret.add(mustInfer(ToolLogIncident, DescLogIncident, LogIncident))
	ret.add(mustInfer(ToolNotifyDriver, DescNotifyDriver, NotifyDriver))
	ret.add(mustInfer(ToolConfirmDriverAck, DescConfirmDriverAck, ConfirmDriverAck))
	ret.add(mustInfer(ToolNotifyDepot, DescNotifyDepot, NotifyDepot))
	ret.add(mustInfer(ToolConfirmBusReadiness, DescConfirmBusReadiness, ConfirmBusReadiness))
	ret.add(mustInfer(ToolDraftSocialPost, DescDraftSocialPost, DraftSocialPost))
	ret.add(mustInfer(ToolCheckIncidentStatus, DescCheckIncidentStatus, CheckIncidentStatus))
	ret.add(mustInfer(ToolSendInternalNotification, DescSendInternalNotification, SendInternalNotification))
	ret.add(mustInfer(ToolPostPublicUpdate, DescPostPublicUpdate, PostPublicUpdate))
	return ret
}

func (t *MetroTools) add(name string, tt tool.InvokableTool) {
	t.tools[name] = tt
	t.order = append(t.order, name)
}

// mustInfer wraps fn as an eino tool whose output is the response's Text.
// Inference only fails on a malformed request struct, which is a programming error.
func mustInfer[T any, D Texter](name, desc string, fn func(context.Context, T) (D, error)) (string, tool.InvokableTool) {
	tt, err := utils.InferTool(name, desc, fn, utils.WithMarshalOutput(marshalText))
	if err != nil {
		panic(fmt.Sprintf("infer tool %s: %v", name, err))
	}
	return name, tt
}

func marshalText(_ context.Context, output interface{}) (string, error) {
	if t, ok := output.(Texter); ok {
		return t.Text(), nil
	}
	return fmt.Sprint(output), nil
}

// GetTools returns the tools in catalogue order.
func (t *MetroTools) GetTools() []Tool {
	ret := make([]Tool, 0, len(t.order))
	for _, name := range t.order {
		ret = append(ret, t.tools[name])
	}
	return ret
}

// GetTool returns the named tool, or nil.
func (t *MetroTools) GetTool(name string) Tool {
	tt, ok := t.tools[name]
	if !ok {
		return nil
	}
	return tt
}

// Names lists tool names in catalogue order.
func (t *MetroTools) Names() []string {
	return append([]string(nil), t.order...)
}
