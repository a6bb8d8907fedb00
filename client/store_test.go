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
	"testing"
	"time"

	"github.com/evently/evently/dispatch"
	"github.com/evently/evently/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func testEvent(id, title string) models.Event {
	return models.Event{
		ID:        id,
		Title:     title,
		Status:    models.EventStatusApproved,
		StartTime: time.Now().UTC().Add(time.Hour),
	}
}

func TestReconciliationStoreSnapshot(t *testing.T) {
	assert := assert.New(t)

	uut, err := GetReconciliationStoreInstance("ut-store-snapshot")
	assert.Nil(err)

	id1 := uuid.New().String()
	id2 := uuid.New().String()

	// Case 0: duplicate ids keep the last occurrence, at the first position
	uut.ReplaceSnapshot([]models.Event{
		testEvent(id1, "stale title"),
		testEvent(id2, "second"),
		testEvent(id1, "fresh title"),
	})
	mirror := uut.All()
	assert.Len(mirror, 2)
	assert.Equal(id1, mirror[0].ID)
	assert.Equal("fresh title", mirror[0].Title)
	assert.Equal(id2, mirror[1].ID)

	// Case 1: a later snapshot fully replaces the mirror
	uut.ReplaceSnapshot([]models.Event{testEvent(id2, "only survivor")})
	mirror = uut.All()
	assert.Len(mirror, 1)
	assert.Equal(id2, mirror[0].ID)
}

func TestReconciliationStoreLocalMutations(t *testing.T) {
	assert := assert.New(t)

	uut, err := GetReconciliationStoreInstance("ut-store-local")
	assert.Nil(err)

	id1 := uuid.New().String()
	userID := uuid.New().String()

	// Case 0: optimistic create inserts at the front
	uut.ReplaceSnapshot([]models.Event{testEvent(uuid.New().String(), "existing")})
	uut.ApplyLocalCreate(testEvent(id1, "new event"))
	mirror := uut.All()
	assert.Len(mirror, 2)
	assert.Equal(id1, mirror[0].ID)

	// Case 1: optimistic update replaces in place
	updated := testEvent(id1, "renamed")
	uut.ApplyLocalUpdate(updated)
	assert.Equal("renamed", uut.All()[0].Title)

	// Case 2: RSVP upsert is keyed by (event, user)
	uut.ApplyLocalRSVP(id1, models.RSVP{UserID: userID, Status: models.RSVPStatusGoing})
	uut.ApplyLocalRSVP(id1, models.RSVP{UserID: userID, Status: models.RSVPStatusMaybe})
	mirror = uut.All()
	assert.Len(mirror[0].RSVPs, 1)
	assert.Equal(models.RSVPStatusMaybe, mirror[0].RSVPs[0].Status)

	// Case 3: RSVP removal, then a repeat removal is a no-op
	uut.ApplyLocalRSVPDelete(id1, userID)
	assert.Empty(uut.All()[0].RSVPs)
	uut.ApplyLocalRSVPDelete(id1, userID)

	// Case 4: delete removes the entry, repeating it changes nothing
	uut.ApplyLocalDelete(id1)
	assert.Len(uut.All(), 1)
	uut.ApplyLocalDelete(id1)
	assert.Len(uut.All(), 1)
}

func TestReconciliationStoreBroadcastMerge(t *testing.T) {
	assert := assert.New(t)

	uut, err := GetReconciliationStoreInstance("ut-store-broadcast")
	assert.Nil(err)

	id1 := uuid.New().String()
	userID := uuid.New().String()

	// Case 0: a created broadcast after the optimistic insert does not duplicate
	created := testEvent(id1, "once only")
	uut.ApplyLocalCreate(created)
	uut.ApplyBroadcast(dispatch.Notification{
		Kind: dispatch.KindEventCreated,
		Data: dispatch.NotificationPayload{EventID: id1, Event: &created},
	})
	assert.Len(uut.All(), 1)

	// Case 1: created followed by deleted leaves no entry
	uut.ApplyBroadcast(dispatch.Notification{
		Kind: dispatch.KindEventDeleted,
		Data: dispatch.NotificationPayload{EventID: id1},
	})
	assert.Empty(uut.All())

	// Case 2: deleting an absent event is a no-op
	uut.ApplyBroadcast(dispatch.Notification{
		Kind: dispatch.KindEventDeleted,
		Data: dispatch.NotificationPayload{EventID: id1},
	})
	assert.Empty(uut.All())

	// Case 3: an updated broadcast heals a missed created
	healed := testEvent(id1, "resurfaced")
	uut.ApplyBroadcast(dispatch.Notification{
		Kind: dispatch.KindEventUpdated,
		Data: dispatch.NotificationPayload{EventID: id1, Event: &healed},
	})
	mirror := uut.All()
	assert.Len(mirror, 1)
	assert.Equal("resurfaced", mirror[0].Title)

	// Case 4: RSVP broadcasts upsert by (event, user)
	uut.ApplyBroadcast(dispatch.Notification{
		Kind: dispatch.KindRSVPCreated,
		Data: dispatch.NotificationPayload{
			EventID: id1,
			RSVP:    &models.RSVP{UserID: userID, Status: models.RSVPStatusGoing},
		},
	})
	uut.ApplyBroadcast(dispatch.Notification{
		Kind: dispatch.KindRSVPUpdated,
		Data: dispatch.NotificationPayload{
			EventID: id1,
			RSVP:    &models.RSVP{UserID: userID, Status: models.RSVPStatusDeclined},
		},
	})
	mirror = uut.All()
	assert.Len(mirror[0].RSVPs, 1)
	assert.Equal(models.RSVPStatusDeclined, mirror[0].RSVPs[0].Status)

	// Case 5: RSVP for an event this mirror never saw is ignored
	uut.ApplyBroadcast(dispatch.Notification{
		Kind: dispatch.KindRSVPCreated,
		Data: dispatch.NotificationPayload{
			EventID: uuid.New().String(),
			RSVP:    &models.RSVP{UserID: userID, Status: models.RSVPStatusGoing},
		},
	})
	assert.Len(uut.All(), 1)
}

func TestReconciliationStoreDerivedViews(t *testing.T) {
	assert := assert.New(t)

	uut, err := GetReconciliationStoreInstance("ut-store-views")
	assert.Nil(err)

	ref := time.Now().UTC()
	pending := testEvent(uuid.New().String(), "pending one")
	pending.Status = models.EventStatusPending
	pending.StartTime = ref.Add(time.Hour)
	upcoming := testEvent(uuid.New().String(), "upcoming")
	upcoming.StartTime = ref.Add(time.Hour * 2)
	past := testEvent(uuid.New().String(), "already done")
	past.StartTime = ref.Add(-time.Hour)

	uut.ReplaceSnapshot([]models.Event{pending, upcoming, past})

	approved := uut.ApprovedOnly()
	assert.Len(approved, 2)
	for _, entry := range approved {
		assert.Equal(models.EventStatusApproved, entry.Status)
	}

	future := uut.UpcomingOnly(ref)
	assert.Len(future, 2)
	for _, entry := range future {
		assert.False(entry.StartTime.Before(ref))
	}

	done := uut.PastOnly(ref)
	assert.Len(done, 1)
	assert.Equal(past.ID, done[0].ID)
}
