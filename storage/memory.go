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
	"sort"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/evently/evently/common"
	"github.com/evently/evently/models"
	"github.com/google/uuid"
)

// inMemoryEventStoreImpl implements EventStore against process memory
type inMemoryEventStoreImpl struct {
	common.Component
	lock   *sync.RWMutex
	events map[string]*models.Event
}

// GetInMemoryEventStoreInstance create new in-memory event store instance
func GetInMemoryEventStoreInstance(instance string) (EventStore, error) {
	logTags := log.Fields{
		"module": "storage", "component": "in-memory-event-store", "instance": instance,
	}
	return &inMemoryEventStoreImpl{
		Component: common.Component{LogTags: logTags},
		lock:      &sync.RWMutex{},
		events:    map[string]*models.Event{},
	}, nil
}

// copyOf deep enough copy for handing entities outside the lock
func copyOf(event *models.Event) models.Event {
	result := *event
	if event.RSVPs != nil {
		result.RSVPs = make([]models.RSVP, len(event.RSVPs))
		copy(result.RSVPs, event.RSVPs)
	}
	return result
}

// CreateEvent persist a new event
func (s *inMemoryEventStoreImpl) CreateEvent(
	ctxt context.Context, event models.Event,
) (models.Event, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	now := time.Now().UTC()
	event.ID = uuid.New().String()
	if event.Status == "" {
		event.Status = models.EventStatusPending
	}
	event.CreatedAt = now
	event.UpdatedAt = now
	event.RSVPs = nil
	s.events[event.ID] = &event
	log.WithFields(s.LogTags).Infof("Created event %s", event.ID)
	return copyOf(&event), nil
}

// GetEvent fetch one event
func (s *inMemoryEventStoreImpl) GetEvent(
	ctxt context.Context, eventID string,
) (models.Event, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	entry, ok := s.events[eventID]
	if !ok {
		return models.Event{}, ErrEventNotFound{EventID: eventID}
	}
	return copyOf(entry), nil
}

// ListEvents fetch events matching the filter, newest first
func (s *inMemoryEventStoreImpl) ListEvents(
	ctxt context.Context, filter ListEventsFilter,
) ([]models.Event, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	result := make([]models.Event, 0, len(s.events))
	for _, entry := range s.events {
		if filter.Status != "" && entry.Status != filter.Status {
			continue
		}
		if filter.HostID != "" && entry.HostID != filter.HostID {
			continue
		}
		result = append(result, copyOf(entry))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// UpdateEvent replace an event's mutable fields
func (s *inMemoryEventStoreImpl) UpdateEvent(
	ctxt context.Context, eventID string, event models.Event,
) (models.Event, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	entry, ok := s.events[eventID]
	if !ok {
		return models.Event{}, ErrEventNotFound{EventID: eventID}
	}
	entry.Title = event.Title
	entry.Description = event.Description
	entry.Location = event.Location
	entry.StartTime = event.StartTime
	entry.EndTime = event.EndTime
	entry.UpdatedAt = time.Now().UTC()
	log.WithFields(s.LogTags).Infof("Updated event %s", eventID)
	return copyOf(entry), nil
}

// DeleteEvent remove an event and its RSVPs
func (s *inMemoryEventStoreImpl) DeleteEvent(ctxt context.Context, eventID string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.events[eventID]; !ok {
		return ErrEventNotFound{EventID: eventID}
	}
	delete(s.events, eventID)
	log.WithFields(s.LogTags).Infof("Deleted event %s", eventID)
	return nil
}

// ApproveEvent transition an event into approved status
func (s *inMemoryEventStoreImpl) ApproveEvent(
	ctxt context.Context, eventID string,
) (models.Event, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	entry, ok := s.events[eventID]
	if !ok {
		return models.Event{}, ErrEventNotFound{EventID: eventID}
	}
	entry.Status = models.EventStatusApproved
	entry.UpdatedAt = time.Now().UTC()
	log.WithFields(s.LogTags).Infof("Approved event %s", eventID)
	return copyOf(entry), nil
}

// UpsertRSVP record or replace a user's RSVP against an event
func (s *inMemoryEventStoreImpl) UpsertRSVP(
	ctxt context.Context, eventID string, rsvp models.RSVP,
) (models.RSVP, bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	entry, ok := s.events[eventID]
	if !ok {
		return models.RSVP{}, false, ErrEventNotFound{EventID: eventID}
	}
	now := time.Now().UTC()
	rsvp.EventID = eventID
	rsvp.UpdatedAt = now
	if at := entry.FindRSVP(rsvp.UserID); at >= 0 {
		rsvp.CreatedAt = entry.RSVPs[at].CreatedAt
		entry.RSVPs[at] = rsvp
		entry.UpdatedAt = now
		return rsvp, false, nil
	}
	rsvp.CreatedAt = now
	entry.RSVPs = append(entry.RSVPs, rsvp)
	entry.UpdatedAt = now
	return rsvp, true, nil
}

// DeleteRSVP remove a user's RSVP from an event
func (s *inMemoryEventStoreImpl) DeleteRSVP(
	ctxt context.Context, eventID, userID string,
) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	entry, ok := s.events[eventID]
	if !ok {
		return ErrEventNotFound{EventID: eventID}
	}
	at := entry.FindRSVP(userID)
	if at < 0 {
		return ErrRSVPNotFound{EventID: eventID, UserID: userID}
	}
	entry.RSVPs = append(entry.RSVPs[:at], entry.RSVPs[at+1:]...)
	entry.UpdatedAt = time.Now().UTC()
	return nil
}
