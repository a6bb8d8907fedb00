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

package storage

import (
	"context"
	"fmt"

	"github.com/evently/evently/models"
)

// ErrEventNotFound returned when an event ID resolves to nothing
type ErrEventNotFound struct {
	// EventID the ID that failed to resolve
	EventID string
}

func (e ErrEventNotFound) Error() string {
	return fmt.Sprintf("event '%s' not found", e.EventID)
}

// ErrRSVPNotFound returned when a (event, user) pair has no RSVP recorded
type ErrRSVPNotFound struct {
	// EventID the owning event
	EventID string
	// UserID the responding user
	UserID string
}

func (e ErrRSVPNotFound) Error() string {
	return fmt.Sprintf("no RSVP by user '%s' on event '%s'", e.UserID, e.EventID)
}

// ListEventsFilter optional filters for event listing
type ListEventsFilter struct {
	// Status restrict to events in this approval status
	Status string
	// HostID restrict to events hosted by this user
	HostID string
}

// EventStore server side event persistence.
//
// Mutating operations return the entity as committed, with server
// assigned IDs and timestamps, so callers can broadcast the exact state
// that was stored.
type EventStore interface {
	// CreateEvent persist a new event, assigning its ID and timestamps
	CreateEvent(ctxt context.Context, event models.Event) (models.Event, error)
	// GetEvent fetch one event with its RSVP list
	GetEvent(ctxt context.Context, eventID string) (models.Event, error)
	// ListEvents fetch events matching the filter, newest first
	ListEvents(ctxt context.Context, filter ListEventsFilter) ([]models.Event, error)
	// UpdateEvent replace an event's mutable fields
	UpdateEvent(ctxt context.Context, eventID string, event models.Event) (models.Event, error)
	// DeleteEvent remove an event and its RSVPs
	DeleteEvent(ctxt context.Context, eventID string) error
	// ApproveEvent transition an event into approved status
	ApproveEvent(ctxt context.Context, eventID string) (models.Event, error)
	// UpsertRSVP record or replace a user's RSVP against an event. The bool
	// result is true when the RSVP was newly created.
	UpsertRSVP(ctxt context.Context, eventID string, rsvp models.RSVP) (models.RSVP, bool, error)
	// DeleteRSVP remove a user's RSVP from an event
	DeleteRSVP(ctxt context.Context, eventID, userID string) error
}
