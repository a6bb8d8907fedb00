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

	"github.com/apex/log"
	"github.com/evently/evently/common"
	"github.com/evently/evently/registry"
)

// BroadcastDispatcher publishes mutation notifications to every subscriber
// of the notification's topic.
//
// Delivery is at-most-once: a failed delivery is not retried, the failed
// connection is dropped from the registry, and dispatch continues with the
// remaining subscribers.
type BroadcastDispatcher interface {
	// Dispatch serialize and publish one notification
	Dispatch(ctxt context.Context, note Notification) error
}

// broadcastDispatcherImpl implements BroadcastDispatcher
type broadcastDispatcherImpl struct {
	common.Component
	subscriptions registry.TopicRegistry
}

// GetBroadcastDispatcherInstance create new broadcast dispatcher instance
func GetBroadcastDispatcherInstance(
	subscriptions registry.TopicRegistry, instance string,
) (BroadcastDispatcher, error) {
	logTags := log.Fields{
		"module": "dispatch", "component": "broadcast-dispatcher", "instance": instance,
	}
	return &broadcastDispatcherImpl{
		Component:     common.Component{LogTags: logTags},
		subscriptions: subscriptions,
	}, nil
}

// Dispatch serialize and publish one notification
func (d *broadcastDispatcherImpl) Dispatch(ctxt context.Context, note Notification) error {
	topic := note.Topic()
	if topic == "" {
		err := fmt.Errorf("notification kind %s carries no topic", note.Kind)
		log.WithError(err).WithFields(d.LogTags).Error("Unable to dispatch")
		return err
	}

	frame, err := note.Serialize()
	if err != nil {
		log.WithError(err).WithFields(d.LogTags).Errorf(
			"Failed to serialize %s notification", note.Kind,
		)
		return err
	}

	targets := d.subscriptions.SubscribersOf(ctxt, topic)
	log.WithFields(d.LogTags).Debugf(
		"Dispatching %s to %d subscribers of %s", note.Kind, len(targets), topic,
	)
	for _, target := range targets {
		if err := target.Deliver(ctxt, frame); err != nil {
			// One dead subscriber must not abort delivery to the rest
			log.WithError(err).WithFields(d.LogTags).Warnf(
				"Dropping connection %s after failed delivery", target.ID(),
			)
			if err := d.subscriptions.UnsubscribeAll(ctxt, target); err != nil {
				log.WithError(err).WithFields(d.LogTags).Errorf(
					"Failed to deregister connection %s", target.ID(),
				)
			}
		}
	}
	return nil
}
