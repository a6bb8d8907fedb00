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
	"context"
	"fmt"
	"net/url"
	"reflect"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/evently/evently/common"
	"github.com/evently/evently/dispatch"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
)

// ConnectionState observable state of the connection manager
type ConnectionState string

// Connection manager states
const (
	// StateDisconnected no transport and no retry pending (initial, or
	// after a manual disconnect)
	StateDisconnected ConnectionState = "disconnected"
	// StateConnecting transport being established or a retry pending
	StateConnecting ConnectionState = "connecting"
	// StateConnected transport open and heartbeat running
	StateConnected ConnectionState = "connected"
	// StateOffline retry ceiling exhausted; only a manual connect leaves
	// this state. The application keeps working through REST alone.
	StateOffline ConnectionState = "offline"
)

// MessageHandler local callback receiving inbound mutation notifications
type MessageHandler func(note dispatch.Notification)

// ConnectionManager client side of the sync layer: owns the websocket,
// runs its own heartbeat, and reconnects with capped exponential backoff.
//
// Transport failures never surface to callers; they drive the backoff
// policy until the ceiling is reached, after which the manager parks in
// offline state until Connect is called again.
type ConnectionManager interface {
	// Connect open the transport. No-op while already connected; a stale
	// transport is closed first.
	Connect(ctxt context.Context) error
	// Disconnect cancel any pending retry, reset the backoff state, and
	// close the transport cleanly
	Disconnect() error
	// AddMessageHandler register a named handler. Handlers run in
	// registration order; re-registering a name replaces the handler in place.
	AddMessageHandler(name string, handler MessageHandler) error
	// RemoveMessageHandler drop a named handler
	RemoveMessageHandler(name string) error
	// State the current observable connection state
	State() ConnectionState
}

// ConnectParams connection manager parameters
type ConnectParams struct {
	// EndpointURL base URL of the REST API this sync session accompanies.
	// The websocket scheme mirrors this URL's scheme.
	EndpointURL string `validate:"required,url"`
	// SyncPath path of the websocket accept endpoint
	SyncPath string
	// HeartbeatInterval time between liveness probe cycles
	HeartbeatInterval time.Duration
	// WriteTimeout max duration for pushing one frame
	WriteTimeout time.Duration
	// HandshakeTimeout max duration for the websocket handshake
	HandshakeTimeout time.Duration
	// ReconnectCeiling max reconnect attempts before going offline
	ReconnectCeiling int
	// ReconnectBaseDelay delay before the first reconnect attempt
	ReconnectBaseDelay time.Duration
	// ReconnectMaxDelay cap on the delay between reconnect attempts
	ReconnectMaxDelay time.Duration
	// OnResync optional callback run after a successful reconnection, so
	// the application can refetch a full snapshot to heal the mirror
	OnResync func(ctxt context.Context)
}

// applyDefaults fill unset parameters
func (p *ConnectParams) applyDefaults() {
	if p.SyncPath == "" {
		p.SyncPath = "/v1/sync"
	}
	if p.HeartbeatInterval == 0 {
		p.HeartbeatInterval = time.Second * 30
	}
	if p.WriteTimeout == 0 {
		p.WriteTimeout = time.Second * 5
	}
	if p.HandshakeTimeout == 0 {
		p.HandshakeTimeout = time.Second * 5
	}
	if p.ReconnectCeiling == 0 {
		p.ReconnectCeiling = 5
	}
	if p.ReconnectBaseDelay == 0 {
		p.ReconnectBaseDelay = time.Second * 2
	}
	if p.ReconnectMaxDelay == 0 {
		p.ReconnectMaxDelay = time.Second * 10
	}
}

// namedHandler handler with its registration name
type namedHandler struct {
	name    string
	handler MessageHandler
}

// connectionManagerImpl implements ConnectionManager
type connectionManagerImpl struct {
	common.Component
	params       ConnectParams
	wsURL        string
	lock         *sync.Mutex
	conn         *websocket.Conn
	state        ConnectionState
	manualClose  bool
	backoff      *RetryBackoff
	retryTimer   *time.Timer
	heartbeat    common.IntervalTimer
	aliveLock    *sync.Mutex
	alive        bool
	handlerLock  *sync.Mutex
	handlers     []namedHandler
	tasks        common.TaskProcessor
	tasksRunning bool
	rootContext  context.Context
	wg           *sync.WaitGroup
	validate     *validator.Validate
}

// GetConnectionManagerInstance create new connection manager instance
func GetConnectionManagerInstance(
	params ConnectParams, instance string, rootCtxt context.Context, wg *sync.WaitGroup,
) (ConnectionManager, error) {
	logTags := log.Fields{
		"module": "client", "component": "connection-manager", "instance": instance,
	}
	params.applyDefaults()
	validate := validator.New()
	if err := validate.Struct(&params); err != nil {
		log.WithError(err).WithFields(logTags).Error("Invalid connect params")
		return nil, err
	}
	wsURL, err := syncEndpointURL(params.EndpointURL, params.SyncPath)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to derive sync endpoint")
		return nil, err
	}
	timer, err := common.GetIntervalTimerInstance(instance, rootCtxt, wg)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define heartbeat timer")
		return nil, err
	}
	tasks, err := common.GetNewTaskProcessorInstance(instance, 64)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define task processor")
		return nil, err
	}
	manager := &connectionManagerImpl{
		Component: common.Component{LogTags: logTags},
		params:    params,
		wsURL:     wsURL,
		lock:      &sync.Mutex{},
		state:     StateDisconnected,
		backoff: NewRetryBackoff(
			params.ReconnectBaseDelay, params.ReconnectMaxDelay, params.ReconnectCeiling,
		),
		heartbeat:   timer,
		aliveLock:   &sync.Mutex{},
		handlerLock: &sync.Mutex{},
		tasks:       tasks,
		rootContext: rootCtxt,
		wg:          wg,
		validate:    validate,
	}
	// All notification fan-out runs serialized on the task processor loop
	if err := manager.tasks.AddToTaskExecutionMap(
		reflect.TypeOf(dispatch.Notification{}), manager.processInboundNotification,
	); err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to install task handler")
		return nil, err
	}
	return manager, nil
}

// processInboundNotification task handler for one inbound notification
func (m *connectionManagerImpl) processInboundNotification(taskParam interface{}) error {
	note, ok := taskParam.(dispatch.Notification)
	if !ok {
		return fmt.Errorf("can not process task of type %s", reflect.TypeOf(taskParam))
	}
	m.fanOut(note)
	return nil
}

// syncEndpointURL derive the websocket URL from the REST base URL. The
// websocket scheme mirrors the REST scheme: http -> ws, https -> wss.
func syncEndpointURL(endpoint, syncPath string) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported endpoint scheme '%s'", parsed.Scheme)
	}
	parsed.Path = syncPath
	return parsed.String(), nil
}

// State the current observable connection state
func (m *connectionManagerImpl) State() ConnectionState {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state
}

// AddMessageHandler register a named handler
func (m *connectionManagerImpl) AddMessageHandler(name string, handler MessageHandler) error {
	m.handlerLock.Lock()
	defer m.handlerLock.Unlock()
	for idx, entry := range m.handlers {
		if entry.name == name {
			m.handlers[idx].handler = handler
			return nil
		}
	}
	m.handlers = append(m.handlers, namedHandler{name: name, handler: handler})
	return nil
}

// RemoveMessageHandler drop a named handler
func (m *connectionManagerImpl) RemoveMessageHandler(name string) error {
	m.handlerLock.Lock()
	defer m.handlerLock.Unlock()
	for idx, entry := range m.handlers {
		if entry.name == name {
			m.handlers = append(m.handlers[:idx], m.handlers[idx+1:]...)
			return nil
		}
	}
	return nil
}

// Connect open the transport
func (m *connectionManagerImpl) Connect(ctxt context.Context) error {
	m.lock.Lock()
	if m.state == StateConnected && m.conn != nil {
		m.lock.Unlock()
		log.WithFields(m.LogTags).Debug("Already connected")
		return nil
	}
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	stale := m.conn
	m.conn = nil
	m.manualClose = false
	m.state = StateConnecting
	m.lock.Unlock()

	if stale != nil {
		log.WithFields(m.LogTags).Warn("Closing stale transport before reconnect")
		_ = stale.Close()
	}

	dialer := websocket.Dialer{HandshakeTimeout: m.params.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctxt, m.wsURL, nil)
	if err != nil {
		// Transport errors never surface to the application; they feed backoff
		log.WithError(err).WithFields(m.LogTags).Warnf("Unable to reach %s", m.wsURL)
		m.scheduleReconnect()
		return nil
	}

	m.lock.Lock()
	reconnected := m.backoff.Attempts() > 0
	m.backoff.Reset()
	m.conn = conn
	m.state = StateConnected
	startLoop := !m.tasksRunning
	m.tasksRunning = true
	m.lock.Unlock()
	m.markAlive()

	if startLoop {
		if err := m.tasks.StartEventLoop(m.wg); err != nil {
			log.WithError(err).WithFields(m.LogTags).Error("Unable to start task processor")
		}
	}

	// Server-initiated native pings confirm liveness; keep the protocol
	// mandated pong reply in place.
	conn.SetPingHandler(func(appData string) error {
		m.markAlive()
		return conn.WriteControl(
			websocket.PongMessage, []byte(appData), time.Now().Add(m.params.WriteTimeout),
		)
	})
	conn.SetPongHandler(func(string) error {
		m.markAlive()
		return nil
	})

	_ = m.heartbeat.Stop()
	if err := m.heartbeat.Start(m.params.HeartbeatInterval, m.onHeartbeat, false); err != nil {
		log.WithError(err).WithFields(m.LogTags).Error("Unable to start heartbeat")
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.receiveLoop(conn)
	}()

	log.WithFields(m.LogTags).Infof("Connected to %s", m.wsURL)

	if reconnected && m.params.OnResync != nil {
		// Broadcasts lost while disconnected are healed by a snapshot refetch
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.params.OnResync(m.rootContext)
		}()
	}
	return nil
}

// Disconnect clean manual close
func (m *connectionManagerImpl) Disconnect() error {
	m.lock.Lock()
	m.manualClose = true
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	m.backoff.Reset()
	conn := m.conn
	m.conn = nil
	m.state = StateDisconnected
	stopLoop := m.tasksRunning
	m.tasksRunning = false
	m.lock.Unlock()

	_ = m.heartbeat.Stop()
	if stopLoop {
		if err := m.tasks.StopEventLoop(); err != nil {
			log.WithError(err).WithFields(m.LogTags).Error("Unable to stop task processor")
		}
	}
	if conn != nil {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(m.params.WriteTimeout),
		)
		_ = conn.Close()
	}
	log.WithFields(m.LogTags).Info("Disconnected")
	return nil
}

// markAlive record a liveness confirmation from the peer
func (m *connectionManagerImpl) markAlive() {
	m.aliveLock.Lock()
	defer m.aliveLock.Unlock()
	m.alive = true
}

// consumeAlive fetch the liveness flag and clear it for the next cycle
func (m *connectionManagerImpl) consumeAlive() bool {
	m.aliveLock.Lock()
	defer m.aliveLock.Unlock()
	wasAlive := m.alive
	m.alive = false
	return wasAlive
}

// onHeartbeat one client-side liveness probe cycle
func (m *connectionManagerImpl) onHeartbeat() error {
	m.lock.Lock()
	conn := m.conn
	m.lock.Unlock()
	if conn == nil {
		return nil
	}
	if !m.consumeAlive() {
		// Half-dead transport; closing it pushes the receive loop into the
		// reconnect path
		log.WithFields(m.LogTags).Warn("No liveness ACK since last probe, dropping transport")
		return conn.Close()
	}
	frame, err := dispatch.Notification{
		Kind: dispatch.KindPing,
		Data: dispatch.NotificationPayload{Timestamp: time.Now().UTC()},
	}.Serialize()
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(m.params.WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// receiveLoop consume inbound frames until the transport closes
func (m *connectionManagerImpl) receiveLoop(conn *websocket.Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			log.WithError(err).WithFields(m.LogTags).Debug("Receive loop ending")
			break
		}
		// Any inbound traffic proves the transport is alive
		m.markAlive()
		note, err := dispatch.ParseNotification(frame, m.validate)
		if err != nil {
			// Only this frame is discarded; the connection stays open
			log.WithError(err).WithFields(m.LogTags).Warn("Discarding malformed frame")
			continue
		}
		switch note.Kind {
		case dispatch.KindPing:
			if err := m.answerPing(conn); err != nil {
				log.WithError(err).WithFields(m.LogTags).Debug("Unable to answer PING")
			}
		case dispatch.KindPong:
			// Already consumed as a liveness confirmation
		case dispatch.KindConnected:
			log.WithFields(m.LogTags).Infof(
				"Sync session established on topics %v", note.Data.Topics,
			)
		default:
			if err := m.tasks.Submit(note); err != nil {
				log.WithError(err).WithFields(m.LogTags).Error("Unable to queue notification")
			}
		}
	}

	_ = m.heartbeat.Stop()
	m.lock.Lock()
	if m.conn == conn {
		m.conn = nil
	}
	wasManual := m.manualClose
	m.lock.Unlock()
	if !wasManual {
		m.scheduleReconnect()
	}
}

// answerPing reply to an in-band liveness probe
func (m *connectionManagerImpl) answerPing(conn *websocket.Conn) error {
	frame, err := dispatch.Notification{
		Kind: dispatch.KindPong,
		Data: dispatch.NotificationPayload{Timestamp: time.Now().UTC()},
	}.Serialize()
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(m.params.WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// fanOut hand one notification to every registered handler, in
// registration order, isolating handler panics
func (m *connectionManagerImpl) fanOut(note dispatch.Notification) {
	m.handlerLock.Lock()
	targets := make([]namedHandler, len(m.handlers))
	copy(targets, m.handlers)
	m.handlerLock.Unlock()
	for _, entry := range targets {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(m.LogTags).Errorf(
						"Handler %s panicked on %s: %v", entry.name, note.Kind, r,
					)
				}
			}()
			entry.handler(note)
		}()
	}
}

// scheduleReconnect arm the retry timer per the backoff policy
func (m *connectionManagerImpl) scheduleReconnect() {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.manualClose {
		return
	}
	delay, ok := m.backoff.Next()
	if !ok {
		// Terminal until a manual connect; REST remains fully usable
		log.WithFields(m.LogTags).Warnf(
			"Retry ceiling of %d reached, entering offline mode", m.params.ReconnectCeiling,
		)
		m.state = StateOffline
		return
	}
	m.state = StateConnecting
	log.WithFields(m.LogTags).Infof(
		"Scheduling reconnect attempt %d in %s", m.backoff.Attempts(), delay,
	)
	m.retryTimer = time.AfterFunc(delay, func() {
		_ = m.Connect(m.rootContext)
	})
}
