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

package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/metroresponder/internal/incident"
	"github.com/cloudwego/metroresponder/internal/utils"
	"github.com/cloudwego/metroresponder/llm/prompt"
	"github.com/cloudwego/metroresponder/llm/tool"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type Tool = server.ServerTool

const (
	ToolRespondToIncident = "respond_to_incident"
	DescRespondToIncident = "Run the full metro disruption response for an incident report. Returns the status and the ordered steps taken by every responder."
	ToolListSteps         = "list_steps"
	DescListSteps         = "List the response steps in execution order with their markers and tools."
	PromptStep            = "step_prompt"
)

type RespondReq struct {
	Input string `json:"input" jsonschema:"description=free text describing the disruption, e.g. 'Train breakdown at Redhill Station'"`
}

type ListStepsReq struct{}

type ListStepsResp struct {
	Initiator string          `json:"initiator"`
	Steps     []incident.Step `json:"steps"`
}

func NewTool[R any, T any](name string, desc string, schema json.RawMessage, handler func(ctx context.Context, req R) (*T, error)) Tool {
	return Tool{
		Tool: mcp.NewToolWithRawSchema(name, desc, schema),
		Handler: func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var req R
			if err := request.BindArguments(&req); err != nil {
				return nil, err
			}
			var final string
			var isError bool
			if resp, err := handler(ctx, req); err != nil {
				isError = true
				final = err.Error()
			} else if js, err := utils.MarshalJSONBytes(resp); err != nil {
				isError = true
				final = err.Error()
			} else {
				final = string(js)
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(final),
				},
				IsError: isError,
			}, nil
		},
	}
}

func respondTool(r Runner) Tool {
	return NewTool(ToolRespondToIncident, DescRespondToIncident, tool.GetJSONSchema(RespondReq{}),
		func(ctx context.Context, req RespondReq) (*incident.RunResult, error) {
			res, err := r.Run(ctx, req.Input)
			if err != nil {
				return nil, err
			}
			return &res, nil
		})
}

func listStepsTool(reg *incident.Registry) Tool {
	return NewTool(ToolListSteps, DescListSteps, tool.GetJSONSchema(ListStepsReq{}),
		func(_ context.Context, _ ListStepsReq) (*ListStepsResp, error) {
			return &ListStepsResp{Initiator: incident.InitiatorName, Steps: reg.Steps()}, nil
		})
}

// getMetroTools exposes the simulated tools one by one.
func getMetroTools() []Tool {
	return []Tool{
		NewTool(tool.ToolLogIncident, tool.DescLogIncident, tool.GetJSONSchema(tool.LogIncidentReq{}), tool.LogIncident),
		NewTool(tool.ToolNotifyDriver, tool.DescNotifyDriver, tool.GetJSONSchema(tool.NotifyDriverReq{}), tool.NotifyDriver),
		NewTool(tool.ToolConfirmDriverAck, tool.DescConfirmDriverAck, tool.GetJSONSchema(tool.ConfirmDriverAckReq{}), tool.ConfirmDriverAck),
		NewTool(tool.ToolNotifyDepot, tool.DescNotifyDepot, tool.GetJSONSchema(tool.NotifyDepotReq{}), tool.NotifyDepot),
		NewTool(tool.ToolConfirmBusReadiness, tool.DescConfirmBusReadiness, tool.GetJSONSchema(tool.ConfirmBusReadinessReq{}), tool.ConfirmBusReadiness),
		NewTool(tool.ToolDraftSocialPost, tool.DescDraftSocialPost, tool.GetJSONSchema(tool.DraftSocialPostReq{}), tool.DraftSocialPost),
		NewTool(tool.ToolCheckIncidentStatus, tool.DescCheckIncidentStatus, tool.GetJSONSchema(tool.CheckIncidentStatusReq{}), tool.CheckIncidentStatus),
		NewTool(tool.ToolSendInternalNotification, tool.DescSendInternalNotification, tool.GetJSONSchema(tool.SendInternalNotificationReq{}), tool.SendInternalNotification),
		NewTool(tool.ToolPostPublicUpdate, tool.DescPostPublicUpdate, tool.GetJSONSchema(tool.PostPublicUpdateReq{}), tool.PostPublicUpdate),
	}
}

func stepPromptHandler(reg *incident.Registry, store *prompt.Store) server.PromptHandlerFunc {
	return func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		name := request.Params.Arguments["step"]
		st, ok := reg.Canonical(name)
		if !ok {
			return nil, fmt.Errorf("unknown step %q", name)
		}
		p := store.Get(st.Key)
		if p == nil {
			return nil, fmt.Errorf("no prompt for step %s", st.Name)
		}
		return &mcp.GetPromptResult{
			Description: fmt.Sprintf("System prompt of %s", st.Name),
			Messages: []mcp.PromptMessage{
				{
					Role: mcp.RoleUser,
					Content: mcp.TextContent{
						Type: "text",
						Text: p.String(),
					},
				},
			},
		}, nil
	}
}
