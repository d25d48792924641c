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
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/metroresponder/llm/tool"
)

// binding derives a tool request from the incident and runs the tool.
type binding func(c Context) (req any, out string)

var bindings = map[string]binding{
	tool.ToolLogIncident: func(c Context) (any, string) {
		req := tool.LogIncidentReq{Location: c.Place()}
		out, _ := tool.LogIncident(context.Background(), req)
		return req, out.Text()
	},
	tool.ToolNotifyDriver: func(c Context) (any, string) {
		req := tool.NotifyDriverReq{Message: fmt.Sprintf("Report to the depot for rail replacement service at %s", c.Place())}
		out, _ := tool.NotifyDriver(context.Background(), req)
		return req, out.Text()
	},
	tool.ToolConfirmDriverAck: func(c Context) (any, string) {
		req := tool.ConfirmDriverAckReq{Expected: tool.StandbyFleet}
		out, _ := tool.ConfirmDriverAck(context.Background(), req)
		return req, out.Text()
	},
	tool.ToolNotifyDepot: func(c Context) (any, string) {
		req := tool.NotifyDepotReq{Operation: fmt.Sprintf("rail replacement at %s", c.Place())}
		out, _ := tool.NotifyDepot(context.Background(), req)
		return req, out.Text()
	},
	tool.ToolConfirmBusReadiness: func(c Context) (any, string) {
		req := tool.ConfirmBusReadinessReq{Expected: tool.StandbyFleet}
		out, _ := tool.ConfirmBusReadiness(context.Background(), req)
		return req, out.Text()
	},
	tool.ToolDraftSocialPost: func(c Context) (any, string) {
		req := tool.DraftSocialPostReq{DisruptionInfo: fmt.Sprintf("Disruption at %s affecting %s", c.Place(), c.Line())}
		out, _ := tool.DraftSocialPost(context.Background(), req)
		return req, out.Text()
	},
	tool.ToolCheckIncidentStatus: func(c Context) (any, string) {
		req := tool.CheckIncidentStatusReq{Location: c.Place()}
		out, _ := tool.CheckIncidentStatus(context.Background(), req)
		return req, out.Text()
	},
	tool.ToolSendInternalNotification: func(c Context) (any, string) {
		req := tool.SendInternalNotificationReq{Summary: fmt.Sprintf("Service restored at %s", c.Place())}
		out, _ := tool.SendInternalNotification(context.Background(), req)
		return req, out.Text()
	},
	tool.ToolPostPublicUpdate: func(c Context) (any, string) {
		req := tool.PostPublicUpdateReq{Summary: fmt.Sprintf("Train service at %s has been fully restored", c.Place())}
		out, _ := tool.PostPublicUpdate(context.Background(), req)
		return req, out.Text()
	},
}

// ToolArguments returns the JSON arguments a responder would pass to the
// named metro tool for this incident. ok is false for tools outside the
// metro catalogue.
func ToolArguments(name string, c Context) (args string, ok bool) {
	b, ok := bindings[name]
	if !ok {
		return "", false
	}
	req, _ := b(c)
	bs, err := json.Marshal(req)
	if err != nil {
		return "", false
	}
	return string(bs), true
}
