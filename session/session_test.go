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
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/evently/evently/dispatch"
	"github.com/evently/evently/registry"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

// startSupervisorServer websocket accept endpoint wrapping each connection
// in a supervisor
func startSupervisorServer(
	t *testing.T,
	subscriptions registry.TopicRegistry,
	heartbeatInterval time.Duration,
	rootCtxt context.Context,
	wg *sync.WaitGroup,
) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %s", err)
			return
		}
		uut, err := GetConnectionSupervisorInstance(
			conn, subscriptions, heartbeatInterval, time.Second, rootCtxt, wg,
		)
		if err != nil {
			t.Errorf("supervisor definition failed: %s", err)
			return
		}
		if err := uut.Start(); err != nil {
			t.Errorf("supervisor start failed: %s", err)
		}
	}))
}

func dialTestServer(t *testing.T, server *httptest.Server) *websocket.Conn {
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %s", err)
	}
	return conn
}

func TestConnectionSupervisorHandshake(t *testing.T) {
	assert := assert.New(t)
	validate := validator.New()

	wg := sync.WaitGroup{}
	defer wg.Wait()
	utCtxt, utCtxtCancel := context.WithCancel(context.Background())
	defer utCtxtCancel()

	subscriptions, err := registry.GetTopicRegistryInstance("ut-session-handshake")
	assert.Nil(err)
	server := startSupervisorServer(t, subscriptions, time.Hour, utCtxt, &wg)
	defer server.Close()

	conn := dialTestServer(t, server)
	defer func() {
		_ = conn.Close()
	}()

	// The connected ACK arrives first and lists the default topics
	assert.Nil(conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, frame, err := conn.ReadMessage()
	assert.Nil(err)
	note, err := dispatch.ParseNotification(frame, validate)
	assert.Nil(err)
	assert.Equal(dispatch.KindConnected, note.Kind)
	assert.ElementsMatch(dispatch.DefaultTopics(), note.Data.Topics)

	// The connection now appears under both default topics
	time.Sleep(time.Millisecond * 50)
	assert.Len(subscriptions.SubscribersOf(utCtxt, dispatch.TopicEvents), 1)
	assert.Len(subscriptions.SubscribersOf(utCtxt, dispatch.TopicRSVPs), 1)
}

func TestConnectionSupervisorReapsDeadPeer(t *testing.T) {
	assert := assert.New(t)

	wg := sync.WaitGroup{}
	defer wg.Wait()
	utCtxt, utCtxtCancel := context.WithCancel(context.Background())
	defer utCtxtCancel()

	subscriptions, err := registry.GetTopicRegistryInstance("ut-session-reap")
	assert.Nil(err)
	server := startSupervisorServer(t, subscriptions, time.Millisecond*100, utCtxt, &wg)
	defer server.Close()

	conn := dialTestServer(t, server)
	defer func() {
		_ = conn.Close()
	}()

	// Suppress the dialer's automatic pong reply so the peer looks dead
	conn.SetPingHandler(func(string) error { return nil })

	// Keep the client read loop running so control frames are processed
	readDone := make(chan bool)
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// First tick sends a probe, second tick finds no ACK and terminates
	select {
	case <-readDone:
	case <-time.After(time.Second * 2):
		t.Fatal("server did not terminate the dead connection")
	}

	assert.Empty(subscriptions.SubscribersOf(utCtxt, dispatch.TopicEvents))
	assert.Empty(subscriptions.SubscribersOf(utCtxt, dispatch.TopicRSVPs))
}

func TestConnectionSupervisorInBandLiveness(t *testing.T) {
	assert := assert.New(t)
	validate := validator.New()

	wg := sync.WaitGroup{}
	defer wg.Wait()
	utCtxt, utCtxtCancel := context.WithCancel(context.Background())
	defer utCtxtCancel()

	subscriptions, err := registry.GetTopicRegistryInstance("ut-session-inband")
	assert.Nil(err)
	server := startSupervisorServer(t, subscriptions, time.Millisecond*150, utCtxt, &wg)
	defer server.Close()

	conn := dialTestServer(t, server)
	defer func() {
		_ = conn.Close()
	}()

	// No native pong replies; liveness comes only from in-band frames
	conn.SetPingHandler(func(string) error { return nil })

	received := make(chan dispatch.Notification, 16)
	go func() {
		defer close(received)
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if note, err := dispatch.ParseNotification(frame, validate); err == nil {
				received <- note
			}
		}
	}()

	// A malformed frame is discarded without closing the connection
	assert.Nil(conn.WriteMessage(websocket.TextMessage, []byte("{{{ not json")))

	// Keep the connection alive across several ticks with in-band pings
	deadline := time.Now().Add(time.Millisecond * 600)
	pongs := 0
	for time.Now().Before(deadline) {
		ping, err := dispatch.Notification{Kind: dispatch.KindPing}.Serialize()
		assert.Nil(err)
		assert.Nil(conn.WriteMessage(websocket.TextMessage, ping))
		select {
		case note, ok := <-received:
			if !ok {
				t.Fatal("connection closed while sending in-band pings")
			}
			if note.Kind == dispatch.KindPong {
				pongs++
			}
		case <-time.After(time.Millisecond * 500):
			t.Fatal("no PONG reply to in-band PING")
		}
		time.Sleep(time.Millisecond * 50)
	}

	assert.Greater(pongs, 0)
	assert.Len(subscriptions.SubscribersOf(utCtxt, dispatch.TopicEvents), 1)
}
