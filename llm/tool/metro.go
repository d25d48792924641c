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
	"unicode/utf8"
)

// The functions in this file simulate the metro operations systems. They are
// pure and total: no I/O, no failure, same output for the same input.

const (
	ToolLogIncident              = "log_incident"
	DescLogIncident              = "Logs a metro train breakdown at a specified location."
	ToolNotifyDriver             = "notify_driver"
	DescNotifyDriver             = "Sends a dispatch message to 10 standby bus drivers."
	ToolConfirmDriverAck         = "confirm_driver_ack"
	DescConfirmDriverAck         = "Checks how many drivers have acknowledged the request."
	ToolNotifyDepot              = "notify_depot"
	DescNotifyDepot              = "Notifies the depot to prepare 10 standby buses."
	ToolConfirmBusReadiness      = "confirm_bus_readiness"
	DescConfirmBusReadiness      = "Checks how many standby buses the depot has ready."
	ToolDraftSocialPost          = "draft_social_post"
	DescDraftSocialPost          = "Creates a social media post (max 280 characters) about the train service disruption."
	ToolCheckIncidentStatus      = "check_incident_status"
	DescCheckIncidentStatus      = "Checks whether normal train service has resumed at a location."
	ToolSendInternalNotification = "send_internal_notification"
	DescSendInternalNotification = "Notifies Control Room, Depot and Bus Operations that service is restored."
	ToolPostPublicUpdate         = "post_public_update"
	DescPostPublicUpdate         = "Posts the final public message confirming full service restoration."
)

// StandbyFleet is the number of drivers and buses the depot keeps on standby.
const StandbyFleet = 10

// MaxSocialPostLen is the character limit of a public social post.
const MaxSocialPostLen = 280

// Texter is implemented by every tool response; Text is what the agent sees.
type Texter interface {
	Text() string
}

type Notice struct {
	Message string `json:"message"`
}

func (n *Notice) Text() string { return n.Message }

type LogIncidentReq struct {
	Location string `json:"location" jsonschema:"description=the station or line where the train breakdown occurred"`
}

func LogIncident(_ context.Context, req LogIncidentReq) (*Notice, error) {
	return &Notice{
		Message: fmt.Sprintf("🚨 Disruption recorded successfully at: %s. Further response steps initiated.", req.Location),
	}, nil
}

type NotifyDriverReq struct {
	Message string `json:"message" jsonschema:"description=the dispatch message to send to the standby drivers"`
}

func NotifyDriver(_ context.Context, req NotifyDriverReq) (*Notice, error) {
	return &Notice{
		Message: fmt.Sprintf("📣 Notification sent to %d standby drivers: '%s'. Awaiting acknowledgments.", StandbyFleet, req.Message),
	}, nil
}

type ConfirmDriverAckReq struct {
	Expected int `json:"expected" jsonschema:"description=the number of drivers expected to acknowledge (e.g. 10)"`
}

type DriverAck struct {
	AckCount int    `json:"ack_count"`
	Message  string `json:"message"`
}

func (a *DriverAck) Text() string { return a.Message }

// ConfirmDriverAck reports a full acknowledgment: every expected driver answers.
func ConfirmDriverAck(_ context.Context, req ConfirmDriverAckReq) (*DriverAck, error) {
	return &DriverAck{
		AckCount: req.Expected,
		Message:  fmt.Sprintf("✅ All %d drivers have acknowledged and are ready.", req.Expected),
	}, nil
}

type NotifyDepotReq struct {
	Operation string `json:"operation" jsonschema:"description=the disruption or location requiring bus dispatch"`
}

func NotifyDepot(_ context.Context, req NotifyDepotReq) (*Notice, error) {
	return &Notice{
		Message: fmt.Sprintf("🛠️ Depot has been notified to prepare %d standby buses for: %s.", StandbyFleet, req.Operation),
	}, nil
}

type ConfirmBusReadinessReq struct {
	Expected int `json:"expected" jsonschema:"description=the number of buses expected to be ready (e.g. 10)"`
}

type BusReadiness struct {
	ReadyCount int    `json:"ready_count"`
	Message    string `json:"message"`
}

func (b *BusReadiness) Text() string { return b.Message }

func ConfirmBusReadiness(_ context.Context, req ConfirmBusReadinessReq) (*BusReadiness, error) {
	return &BusReadiness{
		ReadyCount: req.Expected,
		Message:    fmt.Sprintf("🚍 %d out of %d buses are confirmed ready by the depot.", req.Expected, req.Expected),
	}, nil
}

type DraftSocialPostReq struct {
	DisruptionInfo string `json:"disruption_info" jsonschema:"description=summary of the disruption including location, delay and shuttle availability"`
}

// DraftSocialPost builds a public alert no longer than MaxSocialPostLen runes.
func DraftSocialPost(_ context.Context, req DraftSocialPostReq) (*Notice, error) {
	msg := fmt.Sprintf("⚠️ Service Alert: %s. Shuttle buses have been deployed. We apologize for the inconvenience. #MetroUpdate", req.DisruptionInfo)
	if utf8.RuneCountInString(msg) > MaxSocialPostLen {
		msg = string([]rune(msg)[:MaxSocialPostLen-3]) + "..."
	}
	return &Notice{Message: msg}, nil
}

type CheckIncidentStatusReq struct {
	Location string `json:"location" jsonschema:"description=the affected station or location to check"`
}

type IncidentStatus struct {
	Resolved bool   `json:"resolved"`
	Message  string `json:"message"`
}

func (s *IncidentStatus) Text() string { return s.Message }

func CheckIncidentStatus(_ context.Context, req CheckIncidentStatusReq) (*IncidentStatus, error) {
	return &IncidentStatus{
		Resolved: true,
		Message:  fmt.Sprintf("✅ Normal train service has resumed at %s.", req.Location),
	}, nil
}

type SendInternalNotificationReq struct {
	Summary string `json:"summary" jsonschema:"description=a brief resolution message for internal teams"`
}

func SendInternalNotification(_ context.Context, req SendInternalNotificationReq) (*Notice, error) {
	return &Notice{
		Message: fmt.Sprintf("📨 Internal notification sent: '%s'. Control Room, Depot, and Bus Operations teams have been informed.", req.Summary),
	}, nil
}

type PostPublicUpdateReq struct {
	Summary string `json:"summary" jsonschema:"description=final commuter-friendly message confirming service restoration"`
}

func PostPublicUpdate(_ context.Context, req PostPublicUpdateReq) (*Notice, error) {
	return &Notice{
		Message: fmt.Sprintf("📢 Public update posted: '%s'. Thank you for your patience. #MetroServiceResumed", req.Summary),
	}, nil
}
