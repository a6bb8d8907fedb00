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

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/evently/evently/apis"
	"github.com/evently/evently/common"
	"github.com/evently/evently/dispatch"
	"github.com/evently/evently/registry"
	"github.com/evently/evently/storage"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// RunServer run the combined REST and realtime sync server
func RunServer(
	runTimeContext context.Context,
	config *common.SystemConfig,
	instance string,
	wg *sync.WaitGroup,
) error {
	logTags := log.Fields{
		"module":    "cmd",
		"component": "server",
		"instance":  instance,
	}

	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		log.WithError(err).WithFields(logTags).Error("Invalid server config")
		return err
	}

	localCtxt, lclCancel := context.WithCancel(runTimeContext)
	defer lclCancel()

	// -------------------------------------------------------------------
	// Assemble the broadcast layer

	subscriptions, err := registry.GetTopicRegistryInstance(instance)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define topic registry")
		return err
	}

	dispatcher, err := dispatch.GetBroadcastDispatcherInstance(subscriptions, instance)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define dispatcher")
		return err
	}

	notifier, err := dispatch.GetMutationNotifierInstance(dispatcher, instance, localCtxt, wg)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define notifier")
		return err
	}

	store, err := storage.GetInMemoryEventStoreInstance(instance)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define event store")
		return err
	}

	// -------------------------------------------------------------------
	// Define the HTTP handlers

	eventHandler, err := apis.GetAPIRestEventHandler(store, notifier, &config.API)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define event HTTP handler")
		return err
	}

	realtimeHandler, err := apis.GetAPIRestRealtimeHandler(
		subscriptions, &config.Realtime, &config.API, localCtxt, wg,
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define sync HTTP handler")
		return err
	}

	// -------------------------------------------------------------------
	// Start the HTTP server

	router := mux.NewRouter()
	mainRouter := apis.RegisterPathPrefix(router, "/", nil)

	// Event CRUD
	eventAPIRouter := apis.RegisterPathPrefix(
		mainRouter, "/v1/event", map[string]http.HandlerFunc{
			"post": eventHandler.CreateEventHandler(),
			"get":  eventHandler.ListEventsHandler(),
		},
	)

	// Per event routes
	perEventAPIRouter := apis.RegisterPathPrefix(
		eventAPIRouter, "/{eventID}", map[string]http.HandlerFunc{
			"get":    eventHandler.GetEventHandler(),
			"put":    eventHandler.UpdateEventHandler(),
			"delete": eventHandler.DeleteEventHandler(),
		},
	)
	_ = apis.RegisterPathPrefix(perEventAPIRouter, "/approve", map[string]http.HandlerFunc{
		"put": eventHandler.ApproveEventHandler(),
	})
	_ = apis.RegisterPathPrefix(perEventAPIRouter, "/rsvp/{userID}", map[string]http.HandlerFunc{
		"put":    eventHandler.UpsertRSVPHandler(),
		"delete": eventHandler.DeleteRSVPHandler(),
	})

	// Realtime sync
	_ = apis.RegisterPathPrefix(mainRouter, "/v1/sync", map[string]http.HandlerFunc{
		"get": realtimeHandler.SyncHandler(),
	})

	// Health check
	_ = apis.RegisterPathPrefix(mainRouter, "/alive", map[string]http.HandlerFunc{
		"get": eventHandler.AliveHandler(),
	})
	_ = apis.RegisterPathPrefix(mainRouter, "/ready", map[string]http.HandlerFunc{
		"get": eventHandler.ReadyHandler(),
	})

	// Add logging
	router.Use(func(next http.Handler) http.Handler {
		return handlers.CombinedLoggingHandler(eventHandler, next)
	})

	serverListen := fmt.Sprintf(
		"%s:%d", config.API.Server.ListenOn, config.API.Server.Port,
	)
	httpSrv := &http.Server{
		Addr:         serverListen,
		WriteTimeout: time.Second * time.Duration(config.API.Server.WriteTimeout),
		ReadTimeout:  time.Second * time.Duration(config.API.Server.ReadTimeout),
		IdleTimeout:  time.Second * time.Duration(config.API.Server.IdleTimeout),
		Handler:      h2c.NewHandler(router, &http2.Server{}),
	}

	// Cancel runtime context on shutdown
	httpSrv.RegisterOnShutdown(lclCancel)

	// Start the server
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("HTTP Server Failure")
		}
	}()

	log.WithFields(logTags).Infof("Started HTTP server on http://%s", serverListen)

	// ============================================================================

	<-runTimeContext.Done()

	// Stop the HTTP server
	{
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			log.WithError(err).Error("Failure during HTTP shutdown")
		}
	}

	return nil
}
