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
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/evently/evently/dispatch"
	"github.com/evently/evently/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

// startSyncTestServer minimal sync endpoint: each accepted connection is
// announced on the channel and greeted with a CONNECTED ACK
func startSyncTestServer(t *testing.T, accepted chan *websocket.Conn) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sync" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %s", err)
			return
		}
		ack, err := dispatch.Notification{
			Kind: dispatch.KindConnected,
			Data: dispatch.NotificationPayload{Topics: dispatch.DefaultTopics()},
		}.Serialize()
		if err != nil {
			t.Errorf("serialize failed: %s", err)
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, ack); err != nil {
			t.Errorf("write failed: %s", err)
			return
		}
		accepted <- conn
	}))
}

func TestConnectionManagerReceivesBroadcasts(t *testing.T) {
	assert := assert.New(t)

	wg := sync.WaitGroup{}
	defer wg.Wait()
	utCtxt, utCtxtCancel := context.WithCancel(context.Background())
	defer utCtxtCancel()

	accepted := make(chan *websocket.Conn, 4)
	server := startSyncTestServer(t, accepted)
	defer server.Close()

	uut, err := GetConnectionManagerInstance(ConnectParams{
		EndpointURL:       server.URL,
		HeartbeatInterval: time.Hour,
	}, "ut-conn-receive", utCtxt, &wg)
	assert.Nil(err)
	defer func() {
		assert.Nil(uut.Disconnect())
	}()

	// Feed broadcasts into a reconciliation store, as a real session would
	mirror, err := GetReconciliationStoreInstance("ut-conn-receive")
	assert.Nil(err)
	assert.Nil(uut.AddMessageHandler("mirror", mirror.ApplyBroadcast))

	received := make(chan dispatch.Notification, 16)
	assert.Nil(uut.AddMessageHandler("collector", func(note dispatch.Notification) {
		received <- note
	}))

	assert.Nil(uut.Connect(utCtxt))
	var serverConn *websocket.Conn
	select {
	case serverConn = <-accepted:
	case <-time.After(time.Second):
		t.Fatal("manager never dialed the server")
	}
	assert.Equal(StateConnected, uut.State())

	// A malformed frame is discarded without dropping the connection
	assert.Nil(serverConn.WriteMessage(websocket.TextMessage, []byte("not a frame")))

	eventID := uuid.New().String()
	entity := models.Event{
		ID:        eventID,
		Title:     "launch party",
		Status:    models.EventStatusApproved,
		StartTime: time.Now().UTC().Add(time.Hour),
	}
	frame, err := dispatch.Notification{
		Kind: dispatch.KindEventCreated,
		Data: dispatch.NotificationPayload{EventID: eventID, Event: &entity},
	}.Serialize()
	assert.Nil(err)
	assert.Nil(serverConn.WriteMessage(websocket.TextMessage, frame))

	select {
	case note := <-received:
		assert.Equal(dispatch.KindEventCreated, note.Kind)
		assert.NotNil(note.Data.Event)
		assert.Equal(eventID, note.Data.Event.ID)
	case <-time.After(time.Second):
		t.Fatal("broadcast never reached the handler")
	}
	assert.Equal(StateConnected, uut.State())

	// The mirror handler ran first and absorbed the broadcast
	events := mirror.All()
	assert.Len(events, 1)
	assert.Equal(eventID, events[0].ID)
}

func TestConnectionManagerHandlerFanOut(t *testing.T) {
	assert := assert.New(t)

	wg := sync.WaitGroup{}
	defer wg.Wait()
	utCtxt, utCtxtCancel := context.WithCancel(context.Background())
	defer utCtxtCancel()

	accepted := make(chan *websocket.Conn, 4)
	server := startSyncTestServer(t, accepted)
	defer server.Close()

	uut, err := GetConnectionManagerInstance(ConnectParams{
		EndpointURL:       server.URL,
		HeartbeatInterval: time.Hour,
	}, "ut-conn-fanout", utCtxt, &wg)
	assert.Nil(err)
	defer func() {
		assert.Nil(uut.Disconnect())
	}()

	// A panicking handler must not starve the one registered after it
	assert.Nil(uut.AddMessageHandler("faulty", func(dispatch.Notification) {
		panic("handler blew up")
	}))
	survived := make(chan dispatch.Notification, 4)
	assert.Nil(uut.AddMessageHandler("steady", func(note dispatch.Notification) {
		survived <- note
	}))

	assert.Nil(uut.Connect(utCtxt))
	var serverConn *websocket.Conn
	select {
	case serverConn = <-accepted:
	case <-time.After(time.Second):
		t.Fatal("manager never dialed the server")
	}

	frame, err := dispatch.Notification{
		Kind: dispatch.KindEventDeleted,
		Data: dispatch.NotificationPayload{EventID: uuid.New().String()},
	}.Serialize()
	assert.Nil(err)
	assert.Nil(serverConn.WriteMessage(websocket.TextMessage, frame))

	select {
	case note := <-survived:
		assert.Equal(dispatch.KindEventDeleted, note.Kind)
	case <-time.After(time.Second):
		t.Fatal("second handler never ran")
	}
}

func TestConnectionManagerReconnects(t *testing.T) {
	assert := assert.New(t)

	wg := sync.WaitGroup{}
	defer wg.Wait()
	utCtxt, utCtxtCancel := context.WithCancel(context.Background())
	defer utCtxtCancel()

	accepted := make(chan *websocket.Conn, 4)
	server := startSyncTestServer(t, accepted)
	defer server.Close()

	resynced := make(chan bool, 4)
	uut, err := GetConnectionManagerInstance(ConnectParams{
		EndpointURL:        server.URL,
		HeartbeatInterval:  time.Hour,
		ReconnectBaseDelay: time.Millisecond * 50,
		ReconnectMaxDelay:  time.Millisecond * 100,
		ReconnectCeiling:   5,
		OnResync: func(context.Context) {
			resynced <- true
		},
	}, "ut-conn-reconnect", utCtxt, &wg)
	assert.Nil(err)
	defer func() {
		assert.Nil(uut.Disconnect())
	}()

	received := make(chan dispatch.Notification, 16)
	assert.Nil(uut.AddMessageHandler("collector", func(note dispatch.Notification) {
		received <- note
	}))

	assert.Nil(uut.Connect(utCtxt))
	var firstConn *websocket.Conn
	select {
	case firstConn = <-accepted:
	case <-time.After(time.Second):
		t.Fatal("manager never dialed the server")
	}

	// Abnormal termination triggers the backoff driven reconnect
	assert.Nil(firstConn.Close())

	var secondConn *websocket.Conn
	select {
	case secondConn = <-accepted:
	case <-time.After(time.Second * 2):
		t.Fatal("manager never reconnected")
	}
	select {
	case <-resynced:
	case <-time.After(time.Second):
		t.Fatal("resync hook never fired after reconnection")
	}
	assert.Equal(StateConnected, uut.State())

	// The new transport carries broadcasts again
	frame, err := dispatch.Notification{
		Kind: dispatch.KindEventDeleted,
		Data: dispatch.NotificationPayload{EventID: uuid.New().String()},
	}.Serialize()
	assert.Nil(err)
	assert.Nil(secondConn.WriteMessage(websocket.TextMessage, frame))
	select {
	case note := <-received:
		assert.Equal(dispatch.KindEventDeleted, note.Kind)
	case <-time.After(time.Second):
		t.Fatal("broadcast never arrived on the new transport")
	}
}

func TestConnectionManagerGoesOffline(t *testing.T) {
	assert := assert.New(t)

	wg := sync.WaitGroup{}
	defer wg.Wait()
	utCtxt, utCtxtCancel := context.WithCancel(context.Background())
	defer utCtxtCancel()

	// Point at a server that is already gone
	accepted := make(chan *websocket.Conn, 4)
	server := startSyncTestServer(t, accepted)
	endpoint := server.URL
	server.Close()

	uut, err := GetConnectionManagerInstance(ConnectParams{
		EndpointURL:        endpoint,
		HeartbeatInterval:  time.Hour,
		ReconnectBaseDelay: time.Millisecond * 10,
		ReconnectMaxDelay:  time.Millisecond * 20,
		ReconnectCeiling:   3,
	}, "ut-conn-offline", utCtxt, &wg)
	assert.Nil(err)

	// Connect reports no error even though the dial fails
	assert.Nil(uut.Connect(utCtxt))

	// Three attempts at most 20ms apart, then the manager parks offline
	deadline := time.Now().Add(time.Second * 2)
	for time.Now().Before(deadline) {
		if uut.State() == StateOffline {
			break
		}
		time.Sleep(time.Millisecond * 10)
	}
	assert.Equal(StateOffline, uut.State())

	assert.Nil(uut.Disconnect())
	assert.Equal(StateDisconnected, uut.State())
}
