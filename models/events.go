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

package models

import "time"

// Event lifecycle states
const (
	// EventStatusPending event awaiting moderator approval
	EventStatusPending = "pending"
	// EventStatusApproved event visible to all users
	EventStatusApproved = "approved"
)

// RSVP attendance states
const (
	// RSVPStatusGoing user plans to attend
	RSVPStatusGoing = "going"
	// RSVPStatusMaybe user may attend
	RSVPStatusMaybe = "maybe"
	// RSVPStatusDeclined user will not attend
	RSVPStatusDeclined = "declined"
)

// RSVP is one user's attendance record against an event.
//
// At most one RSVP exists per (EventID, UserID) pair.
type RSVP struct {
	// EventID ID of the event this RSVP belongs to
	EventID string `json:"eventId" validate:"required"`
	// UserID ID of the responding user
	UserID string `json:"userId" validate:"required"`
	// Status attendance status
	Status string `json:"status" validate:"required,oneof=going maybe declined"`
	// GuestCount number of additional guests the user brings
	GuestCount int `json:"guestCount" validate:"gte=0"`
	// CreatedAt when the RSVP was first recorded
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt when the RSVP was last changed
	UpdatedAt time.Time `json:"updatedAt"`
}

// Event is one listed event, possibly carrying its RSVP list.
type Event struct {
	// ID unique event ID
	ID string `json:"id"`
	// Title short event title
	Title string `json:"title" validate:"required"`
	// Description free-form event description
	Description string `json:"description"`
	// Location where the event takes place
	Location string `json:"location"`
	// StartTime when the event starts
	StartTime time.Time `json:"startTime" validate:"required"`
	// EndTime when the event ends
	EndTime time.Time `json:"endTime"`
	// Status approval status
	Status string `json:"status" validate:"omitempty,oneof=pending approved"`
	// HostID ID of the user hosting the event
	HostID string `json:"hostId"`
	// RSVPs attendance records nested under this event
	RSVPs []RSVP `json:"rsvps,omitempty"`
	// CreatedAt when the event was created
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt when the event was last changed
	UpdatedAt time.Time `json:"updatedAt"`
}

// FindRSVP locate the RSVP for a user within the event. Returns the index,
// or -1 if the user has no RSVP recorded.
func (e *Event) FindRSVP(userID string) int {
	for idx, entry := range e.RSVPs {
		if entry.UserID == userID {
			return idx
		}
	}
	return -1
}
