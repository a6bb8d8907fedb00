// Copyright 2025-2026 The evently Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dispatch

import (
	"encoding/json"
	"time"

	"github.com/evently/evently/models"
	"github.com/go-playground/validator/v10"
)

// Broadcast topics. Every connection auto-subscribes to both on open;
// there is no per-client topic filtering.
const (
	// TopicEvents carries event mutation notifications
	TopicEvents = "events"
	// TopicRSVPs carries RSVP mutation notifications
	TopicRSVPs = "rsvps"
)

// DefaultTopics the fixed topic set every new connection is placed under
func DefaultTopics() []string {
	return []string{TopicEvents, TopicRSVPs}
}

// NotificationKind tag selecting the notification variant
type NotificationKind string

// The closed set of notification kinds
const (
	KindEventCreated  NotificationKind = "EVENT_CREATED"
	KindEventUpdated  NotificationKind = "EVENT_UPDATED"
	KindEventDeleted  NotificationKind = "EVENT_DELETED"
	KindEventApproved NotificationKind = "EVENT_APPROVED"
	KindRSVPCreated   NotificationKind = "RSVP_CREATED"
	KindRSVPUpdated   NotificationKind = "RSVP_UPDATED"
	KindRSVPDeleted   NotificationKind = "RSVP_DELETED"
	KindPing          NotificationKind = "PING"
	KindPong          NotificationKind = "PONG"
	KindConnected     NotificationKind = "CONNECTED"
)

// NotificationPayload data section of one notification.
//
// Created / updated / approved kinds carry the full entity; deleted kinds
// carry only the identifying keys.
type NotificationPayload struct {
	// EventID ID of the affected event
	EventID string `json:"eventId,omitempty"`
	// UserID ID of the responding user, for RSVP kinds
	UserID string `json:"userId,omitempty"`
	// Status short status string, where the kind carries one
	Status string `json:"status,omitempty"`
	// Event the full event entity, for event created / updated / approved
	Event *models.Event `json:"event,omitempty"`
	// RSVP the full RSVP entity, for RSVP created / updated
	RSVP *models.RSVP `json:"rsvp,omitempty"`
	// Topics subscribed topic list, only on the CONNECTED ack
	Topics []string `json:"topics,omitempty"`
	// Timestamp server-generated mutation timestamp
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Notification one wire message, transmitted as a single text frame
type Notification struct {
	// Kind the notification variant tag
	Kind NotificationKind `json:"kind" validate:"required,oneof=EVENT_CREATED EVENT_UPDATED EVENT_DELETED EVENT_APPROVED RSVP_CREATED RSVP_UPDATED RSVP_DELETED PING PONG CONNECTED"`
	// Data the variant payload
	Data NotificationPayload `json:"data"`
}

// Topic the broadcast topic this notification publishes on.
// Control kinds (PING, PONG, CONNECTED) carry no topic.
func (n Notification) Topic() string {
	switch n.Kind {
	case KindEventCreated, KindEventUpdated, KindEventDeleted, KindEventApproved:
		return TopicEvents
	case KindRSVPCreated, KindRSVPUpdated, KindRSVPDeleted:
		return TopicRSVPs
	default:
		return ""
	}
}

// Serialize marshal the notification into one wire frame
func (n Notification) Serialize() ([]byte, error) {
	return json.Marshal(&n)
}

// ParseNotification unmarshal one wire frame, rejecting unknown kinds
func ParseNotification(frame []byte, validate *validator.Validate) (Notification, error) {
	var parsed Notification
	if err := json.Unmarshal(frame, &parsed); err != nil {
		return parsed, err
	}
	if err := validate.Struct(&parsed); err != nil {
		return parsed, err
	}
	return parsed, nil
}
