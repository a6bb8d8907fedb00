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

package client

import (
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/evently/evently/common"
	"github.com/evently/evently/dispatch"
	"github.com/evently/evently/models"
)

// ReconciliationStore the session's mirror of visible events.
//
// The mirror is a cache, not the source of truth: it merges REST-fetched
// snapshots, optimistic local writes, and inbound broadcast notifications
// into one ordered, id-keyed collection. A missed CREATED broadcast is
// healed when the following UPDATED arrives; a missed DELETED leaves a
// stale entry until the next snapshot refresh.
type ReconciliationStore interface {
	// ReplaceSnapshot replace the mirror with a freshly fetched list,
	// de-duplicating by id and keeping the last occurrence
	ReplaceSnapshot(events []models.Event)
	// ApplyLocalCreate optimistic insert after a successful create call
	ApplyLocalCreate(event models.Event)
	// ApplyLocalUpdate optimistic replace after a successful update call
	ApplyLocalUpdate(event models.Event)
	// ApplyLocalDelete optimistic removal after a successful delete call
	ApplyLocalDelete(eventID string)
	// ApplyLocalRSVP optimistic RSVP upsert after a successful RSVP call
	ApplyLocalRSVP(eventID string, rsvp models.RSVP)
	// ApplyLocalRSVPDelete optimistic RSVP removal
	ApplyLocalRSVPDelete(eventID, userID string)
	// ApplyBroadcast merge one inbound mutation notification
	ApplyBroadcast(note dispatch.Notification)
	// All snapshot of the full mirror
	All() []models.Event
	// ApprovedOnly events in approved status
	ApprovedOnly() []models.Event
	// UpcomingOnly events starting at or after the reference time
	UpcomingOnly(ref time.Time) []models.Event
	// PastOnly events starting before the reference time
	PastOnly(ref time.Time) []models.Event
}

// reconciliationStoreImpl implements ReconciliationStore
type reconciliationStoreImpl struct {
	common.Component
	lock   *sync.Mutex
	events []models.Event
}

// GetReconciliationStoreInstance create new reconciliation store instance
func GetReconciliationStoreInstance(instance string) (ReconciliationStore, error) {
	logTags := log.Fields{
		"module": "client", "component": "reconciliation-store", "instance": instance,
	}
	return &reconciliationStoreImpl{
		Component: common.Component{LogTags: logTags},
		lock:      &sync.Mutex{},
		events:    nil,
	}, nil
}

// indexOf locate an event by ID. Caller must hold the lock.
func (s *reconciliationStoreImpl) indexOf(eventID string) int {
	for idx, entry := range s.events {
		if entry.ID == eventID {
			return idx
		}
	}
	return -1
}

// insertFront place a new entry at the front of the mirror. Caller must
// hold the lock.
func (s *reconciliationStoreImpl) insertFront(event models.Event) {
	s.events = append([]models.Event{event}, s.events...)
}

// removeAt drop one entry. Caller must hold the lock.
func (s *reconciliationStoreImpl) removeAt(idx int) {
	s.events = append(s.events[:idx], s.events[idx+1:]...)
}

// ReplaceSnapshot replace the mirror with a freshly fetched list
func (s *reconciliationStoreImpl) ReplaceSnapshot(events []models.Event) {
	s.lock.Lock()
	defer s.lock.Unlock()
	// Overlapping paginated fetches may repeat an id; the last occurrence wins
	deduped := make([]models.Event, 0, len(events))
	position := map[string]int{}
	for _, entry := range events {
		if at, seen := position[entry.ID]; seen {
			deduped[at] = entry
			continue
		}
		position[entry.ID] = len(deduped)
		deduped = append(deduped, entry)
	}
	s.events = deduped
	log.WithFields(s.LogTags).Debugf("Snapshot replaced mirror with %d events", len(deduped))
}

// ApplyLocalCreate optimistic insert after a successful create call
func (s *reconciliationStoreImpl) ApplyLocalCreate(event models.Event) {
	s.lock.Lock()
	defer s.lock.Unlock()
	// The broadcast of this same creation may have arrived first
	if s.indexOf(event.ID) >= 0 {
		return
	}
	s.insertFront(event)
}

// ApplyLocalUpdate optimistic replace after a successful update call
func (s *reconciliationStoreImpl) ApplyLocalUpdate(event models.Event) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if idx := s.indexOf(event.ID); idx >= 0 {
		s.events[idx] = event
	}
}

// ApplyLocalDelete optimistic removal after a successful delete call
func (s *reconciliationStoreImpl) ApplyLocalDelete(eventID string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if idx := s.indexOf(eventID); idx >= 0 {
		s.removeAt(idx)
	}
}

// ApplyLocalRSVP optimistic RSVP upsert after a successful RSVP call
func (s *reconciliationStoreImpl) ApplyLocalRSVP(eventID string, rsvp models.RSVP) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.upsertRSVP(eventID, rsvp)
}

// ApplyLocalRSVPDelete optimistic RSVP removal
func (s *reconciliationStoreImpl) ApplyLocalRSVPDelete(eventID, userID string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.removeRSVP(eventID, userID)
}

// upsertRSVP at most one RSVP per (event, user) pair. Caller must hold the
// lock.
func (s *reconciliationStoreImpl) upsertRSVP(eventID string, rsvp models.RSVP) {
	idx := s.indexOf(eventID)
	if idx < 0 {
		// The owning event never reached this mirror; the next snapshot heals it
		log.WithFields(s.LogTags).Debugf("RSVP for unknown event %s ignored", eventID)
		return
	}
	event := &s.events[idx]
	if at := event.FindRSVP(rsvp.UserID); at >= 0 {
		event.RSVPs[at] = rsvp
		return
	}
	event.RSVPs = append(event.RSVPs, rsvp)
}

// removeRSVP drop a user's RSVP if recorded. Caller must hold the lock.
func (s *reconciliationStoreImpl) removeRSVP(eventID, userID string) {
	idx := s.indexOf(eventID)
	if idx < 0 {
		return
	}
	event := &s.events[idx]
	if at := event.FindRSVP(userID); at >= 0 {
		event.RSVPs = append(event.RSVPs[:at], event.RSVPs[at+1:]...)
	}
}

// ApplyBroadcast merge one inbound mutation notification
func (s *reconciliationStoreImpl) ApplyBroadcast(note dispatch.Notification) {
	s.lock.Lock()
	defer s.lock.Unlock()
	switch note.Kind {
	case dispatch.KindEventCreated:
		if note.Data.Event == nil {
			log.WithFields(s.LogTags).Warnf("%s without entity ignored", note.Kind)
			return
		}
		// The optimistic path may have inserted this event already
		if s.indexOf(note.Data.Event.ID) < 0 {
			s.insertFront(*note.Data.Event)
		}
	case dispatch.KindEventUpdated, dispatch.KindEventApproved:
		if note.Data.Event == nil {
			log.WithFields(s.LogTags).Warnf("%s without entity ignored", note.Kind)
			return
		}
		// A missed creation is healed by treating the update as an insert
		if idx := s.indexOf(note.Data.Event.ID); idx >= 0 {
			s.events[idx] = *note.Data.Event
		} else {
			s.insertFront(*note.Data.Event)
		}
	case dispatch.KindEventDeleted:
		if idx := s.indexOf(note.Data.EventID); idx >= 0 {
			s.removeAt(idx)
		}
	case dispatch.KindRSVPCreated, dispatch.KindRSVPUpdated:
		if note.Data.RSVP == nil {
			log.WithFields(s.LogTags).Warnf("%s without entity ignored", note.Kind)
			return
		}
		s.upsertRSVP(note.Data.EventID, *note.Data.RSVP)
	case dispatch.KindRSVPDeleted:
		s.removeRSVP(note.Data.EventID, note.Data.UserID)
	default:
		// Control kinds carry no mirror changes
	}
}

// All snapshot of the full mirror
func (s *reconciliationStoreImpl) All() []models.Event {
	s.lock.Lock()
	defer s.lock.Unlock()
	result := make([]models.Event, len(s.events))
	copy(result, s.events)
	return result
}

// filtered derived view helper
func (s *reconciliationStoreImpl) filtered(keep func(models.Event) bool) []models.Event {
	s.lock.Lock()
	defer s.lock.Unlock()
	var result []models.Event
	for _, entry := range s.events {
		if keep(entry) {
			result = append(result, entry)
		}
	}
	return result
}

// ApprovedOnly events in approved status
func (s *reconciliationStoreImpl) ApprovedOnly() []models.Event {
	return s.filtered(func(e models.Event) bool {
		return e.Status == models.EventStatusApproved
	})
}

// UpcomingOnly events starting at or after the reference time
func (s *reconciliationStoreImpl) UpcomingOnly(ref time.Time) []models.Event {
	return s.filtered(func(e models.Event) bool {
		return !e.StartTime.Before(ref)
	})
}

// PastOnly events starting before the reference time
func (s *reconciliationStoreImpl) PastOnly(ref time.Time) []models.Event {
	return s.filtered(func(e models.Event) bool {
		return e.StartTime.Before(ref)
	})
}
