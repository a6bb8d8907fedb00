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
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/evently/evently/common"
	"github.com/evently/evently/models"
)

// MutationNotifier boundary consumed by the CRUD controllers.
//
// Call only after the underlying write has committed. Dispatch runs
// fire-and-forget; the controller's own response never waits on it.
type MutationNotifier interface {
	NotifyEventCreated(ctxt context.Context, event models.Event) error
	NotifyEventUpdated(ctxt context.Context, event models.Event) error
	NotifyEventApproved(ctxt context.Context, event models.Event) error
	NotifyEventDeleted(ctxt context.Context, eventID string) error
	NotifyRSVPCreated(ctxt context.Context, eventID, userID string, rsvp models.RSVP) error
	NotifyRSVPUpdated(ctxt context.Context, eventID, userID string, rsvp models.RSVP) error
	NotifyRSVPDeleted(ctxt context.Context, eventID, userID string) error
}

// mutationNotifierImpl implements MutationNotifier
type mutationNotifierImpl struct {
	common.Component
	dispatcher  BroadcastDispatcher
	rootContext context.Context
	wg          *sync.WaitGroup
}

// GetMutationNotifierInstance create new mutation notifier instance
func GetMutationNotifierInstance(
	dispatcher BroadcastDispatcher,
	instance string,
	rootCtxt context.Context,
	wg *sync.WaitGroup,
) (MutationNotifier, error) {
	logTags := log.Fields{
		"module": "dispatch", "component": "mutation-notifier", "instance": instance,
	}
	return &mutationNotifierImpl{
		Component:   common.Component{LogTags: logTags},
		dispatcher:  dispatcher,
		rootContext: rootCtxt,
		wg:          wg,
	}, nil
}

// send fan the notification out without blocking the caller
func (n *mutationNotifierImpl) send(note Notification) error {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.dispatcher.Dispatch(n.rootContext, note); err != nil {
			log.WithError(err).WithFields(n.LogTags).Errorf(
				"Failed to broadcast %s", note.Kind,
			)
		}
	}()
	return nil
}

// NotifyEventCreated broadcast a newly created event
func (n *mutationNotifierImpl) NotifyEventCreated(
	ctxt context.Context, event models.Event,
) error {
	return n.send(Notification{
		Kind: KindEventCreated,
		Data: NotificationPayload{
			EventID:   event.ID,
			Status:    event.Status,
			Event:     &event,
			Timestamp: time.Now().UTC(),
		},
	})
}

// NotifyEventUpdated broadcast an updated event
func (n *mutationNotifierImpl) NotifyEventUpdated(
	ctxt context.Context, event models.Event,
) error {
	return n.send(Notification{
		Kind: KindEventUpdated,
		Data: NotificationPayload{
			EventID:   event.ID,
			Status:    event.Status,
			Event:     &event,
			Timestamp: time.Now().UTC(),
		},
	})
}

// NotifyEventApproved broadcast an event approval
func (n *mutationNotifierImpl) NotifyEventApproved(
	ctxt context.Context, event models.Event,
) error {
	return n.send(Notification{
		Kind: KindEventApproved,
		Data: NotificationPayload{
			EventID:   event.ID,
			Status:    event.Status,
			Event:     &event,
			Timestamp: time.Now().UTC(),
		},
	})
}

// NotifyEventDeleted broadcast an event deletion. Only the identifying key
// is carried; the entity no longer exists.
func (n *mutationNotifierImpl) NotifyEventDeleted(
	ctxt context.Context, eventID string,
) error {
	return n.send(Notification{
		Kind: KindEventDeleted,
		Data: NotificationPayload{
			EventID:   eventID,
			Timestamp: time.Now().UTC(),
		},
	})
}

// NotifyRSVPCreated broadcast a newly created RSVP
func (n *mutationNotifierImpl) NotifyRSVPCreated(
	ctxt context.Context, eventID, userID string, rsvp models.RSVP,
) error {
	return n.send(Notification{
		Kind: KindRSVPCreated,
		Data: NotificationPayload{
			EventID:   eventID,
			UserID:    userID,
			Status:    rsvp.Status,
			RSVP:      &rsvp,
			Timestamp: time.Now().UTC(),
		},
	})
}

// NotifyRSVPUpdated broadcast an updated RSVP
func (n *mutationNotifierImpl) NotifyRSVPUpdated(
	ctxt context.Context, eventID, userID string, rsvp models.RSVP,
) error {
	return n.send(Notification{
		Kind: KindRSVPUpdated,
		Data: NotificationPayload{
			EventID:   eventID,
			UserID:    userID,
			Status:    rsvp.Status,
			RSVP:      &rsvp,
			Timestamp: time.Now().UTC(),
		},
	})
}

// NotifyRSVPDeleted broadcast an RSVP removal
func (n *mutationNotifierImpl) NotifyRSVPDeleted(
	ctxt context.Context, eventID, userID string,
) error {
	return n.send(Notification{
		Kind: KindRSVPDeleted,
		Data: NotificationPayload{
			EventID:   eventID,
			UserID:    userID,
			Timestamp: time.Now().UTC(),
		},
	})
}
