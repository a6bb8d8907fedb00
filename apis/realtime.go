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

package apis

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/evently/evently/common"
	"github.com/evently/evently/registry"
	"github.com/evently/evently/session"
	"github.com/gorilla/websocket"
)

// APIRestRealtimeHandler handler for the websocket sync endpoint.
//
// Each accepted connection is handed to its own supervisor; the handler
// itself holds no per-connection state.
type APIRestRealtimeHandler struct {
	goutils.RestAPIHandler
	subscriptions     registry.TopicRegistry
	upgrader          websocket.Upgrader
	heartbeatInterval time.Duration
	writeTimeout      time.Duration
	rootContext       context.Context
	wg                *sync.WaitGroup
}

// GetAPIRestRealtimeHandler define APIRestRealtimeHandler
func GetAPIRestRealtimeHandler(
	subscriptions registry.TopicRegistry,
	realtimeConfig *common.RealtimeConfig,
	httpConfig *common.HTTPConfig,
	rootCtxt context.Context,
	wg *sync.WaitGroup,
) (APIRestRealtimeHandler, error) {
	logTags := log.Fields{
		"module":    "apis",
		"component": "realtime-sync",
	}
	return APIRestRealtimeHandler{
		RestAPIHandler: goutils.RestAPIHandler{
			Component: goutils.Component{
				LogTags: logTags,
				LogTagModifiers: []goutils.LogMetadataModifier{
					goutils.ModifyLogMetadataByRestRequestParam,
				},
			},
			CallRequestIDHeaderField: &httpConfig.Logging.RequestIDHeader,
			DoNotLogHeaders: func() map[string]bool {
				result := map[string]bool{}
				for _, v := range httpConfig.Logging.DoNotLogHeaders {
					result[v] = true
				}
				return result
			}(),
		},
		subscriptions:     subscriptions,
		upgrader:          websocket.Upgrader{},
		heartbeatInterval: time.Second * time.Duration(realtimeConfig.HeartbeatInterval),
		writeTimeout:      time.Second * time.Duration(realtimeConfig.WriteTimeout),
		rootContext:       rootCtxt,
		wg:                wg,
	}, nil
}

// Sync godoc
// @Summary Open a sync session
// @Description Upgrade the request to a websocket carrying mutation broadcasts
// @tags Realtime
// @Success 101 {string} string "protocol switch"
// @Failure 400 {string} string "error"
// @Router /v1/sync [get]
func (h APIRestRealtimeHandler) Sync(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())

	// The upgrader writes its own error response on failure
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).WithFields(localLogTags).Error("Websocket upgrade failed")
		return
	}

	supervisor, err := session.GetConnectionSupervisorInstance(
		conn, h.subscriptions, h.heartbeatInterval, h.writeTimeout, h.rootContext, h.wg,
	)
	if err != nil {
		log.WithError(err).WithFields(localLogTags).Error("Unable to define supervisor")
		_ = conn.Close()
		return
	}
	if err := supervisor.Start(); err != nil {
		log.WithError(err).WithFields(localLogTags).Error("Unable to start supervisor")
		_ = supervisor.Close()
	}
}

// SyncHandler Wrapper around Sync
func (h APIRestRealtimeHandler) SyncHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Sync(w, r)
	}
}
