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

package session

import (
	"context"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/evently/evently/common"
	"github.com/evently/evently/dispatch"
	"github.com/evently/evently/registry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ConnectionSupervisor owns one live websocket connection: subscription on
// open, heartbeat driven liveness tracking, and idempotent teardown.
//
// Liveness follows a two-strike cycle. Each heartbeat tick first checks the
// liveness flag: a connection which has not acknowledged the previous probe
// is terminated; otherwise the flag is cleared and a new probe is sent. A
// native websocket pong, or an in-band PING / PONG frame, restores the flag.
type ConnectionSupervisor interface {
	registry.Subscriber
	// Start auto-subscribe to the default topics, send the connected
	// acknowledgment, and begin the heartbeat and read loops
	Start() error
	// Close tear the connection down: unsubscribe from all topics, cancel
	// the heartbeat timer, close the transport. Safe to call repeatedly.
	Close() error
}

// connectionSupervisorImpl implements ConnectionSupervisor
type connectionSupervisorImpl struct {
	common.Component
	id                string
	conn              *websocket.Conn
	subscriptions     registry.TopicRegistry
	heartbeat         common.IntervalTimer
	heartbeatInterval time.Duration
	writeTimeout      time.Duration
	writeLock         *sync.Mutex
	aliveLock         *sync.Mutex
	alive             bool
	closeOnce         *sync.Once
	operationContext  context.Context
	contextCancel     context.CancelFunc
	wg                *sync.WaitGroup
	validate          *validator.Validate
}

// GetConnectionSupervisorInstance create supervisor around a live websocket
func GetConnectionSupervisorInstance(
	conn *websocket.Conn,
	subscriptions registry.TopicRegistry,
	heartbeatInterval time.Duration,
	writeTimeout time.Duration,
	rootCtxt context.Context,
	wg *sync.WaitGroup,
) (ConnectionSupervisor, error) {
	id := uuid.NewString()
	logTags := log.Fields{
		"module": "session", "component": "connection-supervisor", "instance": id,
	}
	timer, err := common.GetIntervalTimerInstance(id, rootCtxt, wg)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define heartbeat timer")
		return nil, err
	}
	ctxt, cancel := context.WithCancel(rootCtxt)
	return &connectionSupervisorImpl{
		Component:         common.Component{LogTags: logTags},
		id:                id,
		conn:              conn,
		subscriptions:     subscriptions,
		heartbeat:         timer,
		heartbeatInterval: heartbeatInterval,
		writeTimeout:      writeTimeout,
		writeLock:         &sync.Mutex{},
		aliveLock:         &sync.Mutex{},
		alive:             true,
		closeOnce:         &sync.Once{},
		operationContext:  ctxt,
		contextCancel:     cancel,
		wg:                wg,
		validate:          validator.New(),
	}, nil
}

// ID unique ID of this connection
func (s *connectionSupervisorImpl) ID() string {
	return s.id
}

// Start auto-subscribe, acknowledge, and begin the heartbeat and read loops
func (s *connectionSupervisorImpl) Start() error {
	for _, topic := range dispatch.DefaultTopics() {
		if err := s.subscriptions.Subscribe(s.operationContext, s, topic); err != nil {
			log.WithError(err).WithFields(s.LogTags).Errorf("Unable to subscribe to %s", topic)
			return err
		}
	}

	// A pong for a native ping probe restores liveness
	s.conn.SetPongHandler(func(string) error {
		s.markAlive()
		return nil
	})

	// One-time connected acknowledgment listing the subscribed topics
	if err := s.sendNotification(dispatch.Notification{
		Kind: dispatch.KindConnected,
		Data: dispatch.NotificationPayload{
			Topics:    dispatch.DefaultTopics(),
			Timestamp: time.Now().UTC(),
		},
	}); err != nil {
		log.WithError(err).WithFields(s.LogTags).Error("Unable to send connected ACK")
		return err
	}

	if err := s.heartbeat.Start(s.heartbeatInterval, s.onHeartbeat, false); err != nil {
		log.WithError(err).WithFields(s.LogTags).Error("Unable to start heartbeat")
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.readLoop()
	}()

	// Server shutdown tears the connection down
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-s.operationContext.Done()
		_ = s.Close()
	}()

	log.WithFields(s.LogTags).Info("Connection accepted")
	return nil
}

// Deliver push one serialized frame to the connection
func (s *connectionSupervisorImpl) Deliver(ctxt context.Context, frame []byte) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

// sendNotification serialize and push one notification
func (s *connectionSupervisorImpl) sendNotification(note dispatch.Notification) error {
	frame, err := note.Serialize()
	if err != nil {
		return err
	}
	return s.Deliver(s.operationContext, frame)
}

// markAlive record a liveness acknowledgment from the peer
func (s *connectionSupervisorImpl) markAlive() {
	s.aliveLock.Lock()
	defer s.aliveLock.Unlock()
	s.alive = true
}

// consumeAlive fetch the liveness flag and clear it for the next cycle
func (s *connectionSupervisorImpl) consumeAlive() bool {
	s.aliveLock.Lock()
	defer s.aliveLock.Unlock()
	wasAlive := s.alive
	s.alive = false
	return wasAlive
}

// onHeartbeat one liveness probe cycle
func (s *connectionSupervisorImpl) onHeartbeat() error {
	if !s.consumeAlive() {
		log.WithFields(s.LogTags).Warn("No liveness ACK since last probe, terminating")
		return s.Close()
	}
	return s.conn.WriteControl(
		websocket.PingMessage, []byte{}, time.Now().Add(s.writeTimeout),
	)
}

// readLoop consume inbound frames until the transport closes
func (s *connectionSupervisorImpl) readLoop() {
	defer func() {
		_ = s.Close()
	}()
	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			log.WithError(err).WithFields(s.LogTags).Debug("Read loop ending")
			return
		}
		note, err := dispatch.ParseNotification(frame, s.validate)
		if err != nil {
			// Only this frame is discarded; the connection stays open
			log.WithError(err).WithFields(s.LogTags).Warn("Discarding malformed frame")
			continue
		}
		switch note.Kind {
		case dispatch.KindPing:
			s.markAlive()
			if err := s.sendNotification(dispatch.Notification{
				Kind: dispatch.KindPong,
				Data: dispatch.NotificationPayload{Timestamp: time.Now().UTC()},
			}); err != nil {
				log.WithError(err).WithFields(s.LogTags).Debug("Unable to answer PING")
				return
			}
		case dispatch.KindPong:
			s.markAlive()
		default:
			log.WithFields(s.LogTags).Debugf("Ignoring inbound %s frame", note.Kind)
		}
	}
}

// Close tear the connection down. Safe to call repeatedly.
func (s *connectionSupervisorImpl) Close() error {
	var result error
	s.closeOnce.Do(func() {
		log.WithFields(s.LogTags).Info("Releasing connection")
		if err := s.heartbeat.Stop(); err != nil {
			log.WithError(err).WithFields(s.LogTags).Error("Unable to stop heartbeat")
		}
		if err := s.subscriptions.UnsubscribeAll(context.Background(), s); err != nil {
			log.WithError(err).WithFields(s.LogTags).Error("Unable to deregister connection")
		}
		s.contextCancel()
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(s.writeTimeout),
		)
		result = s.conn.Close()
	})
	return result
}
