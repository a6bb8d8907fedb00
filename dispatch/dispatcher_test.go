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
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/evently/evently/models"
	"github.com/evently/evently/registry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type mockSubscriber struct {
	id       string
	received [][]byte
	fail     bool
}

func (s *mockSubscriber) ID() string { return s.id }

func (s *mockSubscriber) Deliver(ctxt context.Context, frame []byte) error {
	if s.fail {
		return fmt.Errorf("transport already closed")
	}
	s.received = append(s.received, frame)
	return nil
}

func TestNotificationTopicMapping(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(TopicEvents, Notification{Kind: KindEventCreated}.Topic())
	assert.Equal(TopicEvents, Notification{Kind: KindEventUpdated}.Topic())
	assert.Equal(TopicEvents, Notification{Kind: KindEventDeleted}.Topic())
	assert.Equal(TopicEvents, Notification{Kind: KindEventApproved}.Topic())
	assert.Equal(TopicRSVPs, Notification{Kind: KindRSVPCreated}.Topic())
	assert.Equal(TopicRSVPs, Notification{Kind: KindRSVPUpdated}.Topic())
	assert.Equal(TopicRSVPs, Notification{Kind: KindRSVPDeleted}.Topic())
	assert.Equal("", Notification{Kind: KindPing}.Topic())
	assert.Equal("", Notification{Kind: KindConnected}.Topic())
}

func TestNotificationParsing(t *testing.T) {
	assert := assert.New(t)
	validate := validator.New()

	// Case 0: well-formed frame round trips
	{
		original := Notification{
			Kind: KindEventCreated,
			Data: NotificationPayload{
				EventID:   uuid.NewString(),
				Event:     &models.Event{ID: "id-1", Title: "launch party"},
				Timestamp: time.Now().UTC(),
			},
		}
		frame, err := original.Serialize()
		assert.Nil(err)
		parsed, err := ParseNotification(frame, validate)
		assert.Nil(err)
		assert.Equal(original.Kind, parsed.Kind)
		assert.Equal(original.Data.EventID, parsed.Data.EventID)
		assert.Equal("launch party", parsed.Data.Event.Title)
	}

	// Case 1: non-JSON frame is rejected
	{
		_, err := ParseNotification([]byte("not really json"), validate)
		assert.NotNil(err)
	}

	// Case 2: unknown kind is rejected
	{
		_, err := ParseNotification([]byte(`{"kind":"SOMETHING_ELSE","data":{}}`), validate)
		assert.NotNil(err)
	}
}

func TestBroadcastDispatch(t *testing.T) {
	assert := assert.New(t)

	utCtxt := context.Background()
	subscriptions, err := registry.GetTopicRegistryInstance("ut-dispatch")
	assert.Nil(err)
	uut, err := GetBroadcastDispatcherInstance(subscriptions, "ut-dispatch")
	assert.Nil(err)

	sub1 := &mockSubscriber{id: uuid.NewString()}
	sub2 := &mockSubscriber{id: uuid.NewString()}
	assert.Nil(subscriptions.Subscribe(utCtxt, sub1, TopicEvents))
	assert.Nil(subscriptions.Subscribe(utCtxt, sub2, TopicEvents))
	assert.Nil(subscriptions.Subscribe(utCtxt, sub2, TopicRSVPs))

	// Case 0: event notification reaches only the events topic
	note := Notification{
		Kind: KindEventUpdated,
		Data: NotificationPayload{EventID: "ev-1", Timestamp: time.Now().UTC()},
	}
	assert.Nil(uut.Dispatch(utCtxt, note))
	assert.Len(sub1.received, 1)
	assert.Len(sub2.received, 1)

	// Case 1: RSVP notification reaches only the rsvps subscriber
	assert.Nil(uut.Dispatch(utCtxt, Notification{
		Kind: KindRSVPDeleted,
		Data: NotificationPayload{EventID: "ev-1", UserID: "user-1"},
	}))
	assert.Len(sub1.received, 1)
	assert.Len(sub2.received, 2)

	// Case 2: control kinds are not dispatchable
	assert.NotNil(uut.Dispatch(utCtxt, Notification{Kind: KindPing}))
}

func TestBroadcastDispatchIsolatesFailures(t *testing.T) {
	assert := assert.New(t)

	utCtxt := context.Background()
	subscriptions, err := registry.GetTopicRegistryInstance("ut-dispatch-failure")
	assert.Nil(err)
	uut, err := GetBroadcastDispatcherInstance(subscriptions, "ut-dispatch-failure")
	assert.Nil(err)

	live1 := &mockSubscriber{id: uuid.NewString()}
	dead := &mockSubscriber{id: uuid.NewString(), fail: true}
	live2 := &mockSubscriber{id: uuid.NewString()}
	assert.Nil(subscriptions.Subscribe(utCtxt, live1, TopicEvents))
	assert.Nil(subscriptions.Subscribe(utCtxt, dead, TopicEvents))
	assert.Nil(subscriptions.Subscribe(utCtxt, live2, TopicEvents))

	note := Notification{
		Kind: KindEventCreated,
		Data: NotificationPayload{EventID: "ev-2", Timestamp: time.Now().UTC()},
	}
	assert.Nil(uut.Dispatch(utCtxt, note))

	// Both live subscribers still received the frame
	assert.Len(live1.received, 1)
	assert.Len(live2.received, 1)
	assert.Empty(dead.received)

	// The dead subscriber was dropped from the registry
	remaining := map[string]bool{}
	for _, sub := range subscriptions.SubscribersOf(utCtxt, TopicEvents) {
		remaining[sub.ID()] = true
	}
	assert.Len(remaining, 2)
	assert.False(remaining[dead.ID()])
}
