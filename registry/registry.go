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

package registry

import (
	"context"
	"sync"

	"github.com/apex/log"
	"github.com/evently/evently/common"
)

// Subscriber one live connection able to receive broadcast frames.
//
// Implemented by the connection supervisor; the registry holds only this
// non-owning reference, never the transport itself.
type Subscriber interface {
	// ID unique ID of this connection
	ID() string
	// Deliver push one serialized frame to the connection
	Deliver(ctxt context.Context, frame []byte) error
}

// TopicRegistry tracks which connections are subscribed to which topics
type TopicRegistry interface {
	// Subscribe add a connection under a topic. Repeated subscribe is a no-op.
	Subscribe(ctxt context.Context, sub Subscriber, topic string) error
	// Unsubscribe remove a connection from a topic. Removing a connection
	// which is not subscribed is a no-op.
	Unsubscribe(ctxt context.Context, sub Subscriber, topic string) error
	// UnsubscribeAll remove a connection from every topic. Idempotent.
	UnsubscribeAll(ctxt context.Context, sub Subscriber) error
	// SubscribersOf fetch the current subscriber set of a topic.
	// No ordering guarantee among the returned subscribers.
	SubscribersOf(ctxt context.Context, topic string) []Subscriber
	// SubscribedTopics fetch the topics a connection is currently under
	SubscribedTopics(ctxt context.Context, sub Subscriber) []string
}

// topicRegistryImpl implements TopicRegistry
type topicRegistryImpl struct {
	common.Component
	lock    *sync.RWMutex
	byTopic map[string]map[string]Subscriber
}

// GetTopicRegistryInstance create new topic registry instance
func GetTopicRegistryInstance(instance string) (TopicRegistry, error) {
	logTags := log.Fields{
		"module": "registry", "component": "topic-registry", "instance": instance,
	}
	return &topicRegistryImpl{
		Component: common.Component{LogTags: logTags},
		lock:      &sync.RWMutex{},
		byTopic:   make(map[string]map[string]Subscriber),
	}, nil
}

// Subscribe add a connection under a topic
func (r *topicRegistryImpl) Subscribe(
	ctxt context.Context, sub Subscriber, topic string,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	members, ok := r.byTopic[topic]
	if !ok {
		members = make(map[string]Subscriber)
		r.byTopic[topic] = members
	}
	members[sub.ID()] = sub
	log.WithFields(r.LogTags).Debugf("Connection %s subscribed to %s", sub.ID(), topic)
	return nil
}

// Unsubscribe remove a connection from a topic
func (r *topicRegistryImpl) Unsubscribe(
	ctxt context.Context, sub Subscriber, topic string,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	members, ok := r.byTopic[topic]
	if !ok {
		return nil
	}
	if _, present := members[sub.ID()]; present {
		delete(members, sub.ID())
		log.WithFields(r.LogTags).Debugf("Connection %s unsubscribed from %s", sub.ID(), topic)
	}
	if len(members) == 0 {
		delete(r.byTopic, topic)
	}
	return nil
}

// UnsubscribeAll remove a connection from every topic
func (r *topicRegistryImpl) UnsubscribeAll(ctxt context.Context, sub Subscriber) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	for topic, members := range r.byTopic {
		delete(members, sub.ID())
		if len(members) == 0 {
			delete(r.byTopic, topic)
		}
	}
	log.WithFields(r.LogTags).Debugf("Connection %s unsubscribed from all topics", sub.ID())
	return nil
}

// SubscribersOf fetch the current subscriber set of a topic
func (r *topicRegistryImpl) SubscribersOf(ctxt context.Context, topic string) []Subscriber {
	r.lock.RLock()
	defer r.lock.RUnlock()
	members, ok := r.byTopic[topic]
	if !ok {
		return nil
	}
	result := make([]Subscriber, 0, len(members))
	for _, sub := range members {
		result = append(result, sub)
	}
	return result
}

// SubscribedTopics fetch the topics a connection is currently under
func (r *topicRegistryImpl) SubscribedTopics(ctxt context.Context, sub Subscriber) []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	var result []string
	for topic, members := range r.byTopic {
		if _, present := members[sub.ID()]; present {
			result = append(result, topic)
		}
	}
	return result
}
