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
	"encoding/json"
	"net/http"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/evently/evently/common"
	"github.com/evently/evently/dispatch"
	"github.com/evently/evently/models"
	"github.com/evently/evently/storage"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// APIRestEventHandler REST handler for event and RSVP management
type APIRestEventHandler struct {
	goutils.RestAPIHandler
	store    storage.EventStore
	notifier dispatch.MutationNotifier
	validate *validator.Validate
}

// GetAPIRestEventHandler define APIRestEventHandler
func GetAPIRestEventHandler(
	store storage.EventStore,
	notifier dispatch.MutationNotifier,
	httpConfig *common.HTTPConfig,
) (APIRestEventHandler, error) {
	logTags := log.Fields{
		"module":    "apis",
		"component": "event-management",
	}
	return APIRestEventHandler{
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
		}, store: store, notifier: notifier, validate: validator.New(),
	}, nil
}

// APIRestRespOneEvent response carrying one event
type APIRestRespOneEvent struct {
	goutils.RestAPIBaseResponse
	// Event the event entity
	Event models.Event `json:"event"`
}

// APIRestRespEventList response carrying a list of events
type APIRestRespEventList struct {
	goutils.RestAPIBaseResponse
	// Events the matched events, newest first
	Events []models.Event `json:"events"`
}

// APIRestRespOneRSVP response carrying one RSVP
type APIRestRespOneRSVP struct {
	goutils.RestAPIBaseResponse
	// RSVP the attendance record as committed
	RSVP models.RSVP `json:"rsvp"`
}

// errorCodeForStorage map storage errors to HTTP status codes
func errorCodeForStorage(err error) int {
	switch err.(type) {
	case storage.ErrEventNotFound, storage.ErrRSVPNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// =======================================================================
// Event CRUD

// -----------------------------------------------------------------------

// CreateEvent godoc
// @Summary Create new event
// @Description Create a new event in pending status and broadcast it
// @tags Events
// @Accept json
// @Produce json
// @Param Evently-Request-ID header string false "User provided request ID to match against logs"
// @Param event body models.Event true "Event parameters"
// @Success 200 {object} APIRestRespOneEvent "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/event [post]
func (h APIRestEventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	// Parse the parameters
	var params models.Event
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		msg := "Unable to parse request body"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}
	if err := h.validate.Struct(&params); err != nil {
		msg := "Invalid event parameters"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}

	created, err := h.store.CreateEvent(r.Context(), params)
	if err != nil {
		msg := "Failed to create new event"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = errorCodeForStorage(err)
		respBody = h.GetStdRESTErrorMsg(r.Context(), respCode, msg, err.Error())
		return
	}

	// Broadcast only after the write committed
	if err := h.notifier.NotifyEventCreated(r.Context(), created); err != nil {
		log.WithError(err).WithFields(localLogTags).Error("Broadcast submission failed")
	}

	respCode = http.StatusOK
	respBody = APIRestRespOneEvent{
		RestAPIBaseResponse: goutils.RestAPIBaseResponse{
			Success: true, RequestID: h.ReadRequestIDFromContext(r.Context()),
		}, Event: created,
	}
}

// CreateEventHandler Wrapper around CreateEvent
func (h APIRestEventHandler) CreateEventHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.CreateEvent(w, r)
	}
}

// -----------------------------------------------------------------------

// ListEvents godoc
// @Summary List events
// @Description List events, optionally filtered by status or hosting user
// @tags Events
// @Produce json
// @Param Evently-Request-ID header string false "User provided request ID to match against logs"
// @Param status query string false "Restrict to events in this approval status"
// @Param host query string false "Restrict to events hosted by this user"
// @Success 200 {object} APIRestRespEventList "success"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/event [get]
func (h APIRestEventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	filter := storage.ListEventsFilter{
		Status: r.URL.Query().Get("status"),
		HostID: r.URL.Query().Get("host"),
	}
	events, err := h.store.ListEvents(r.Context(), filter)
	if err != nil {
		msg := "Failed to list events"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = errorCodeForStorage(err)
		respBody = h.GetStdRESTErrorMsg(r.Context(), respCode, msg, err.Error())
		return
	}

	respCode = http.StatusOK
	respBody = APIRestRespEventList{
		RestAPIBaseResponse: goutils.RestAPIBaseResponse{
			Success: true, RequestID: h.ReadRequestIDFromContext(r.Context()),
		}, Events: events,
	}
}

// ListEventsHandler Wrapper around ListEvents
func (h APIRestEventHandler) ListEventsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.ListEvents(w, r)
	}
}

// -----------------------------------------------------------------------

// GetEvent godoc
// @Summary Fetch one event
// @Description Fetch one event together with its RSVP list
// @tags Events
// @Produce json
// @Param Evently-Request-ID header string false "User provided request ID to match against logs"
// @Param eventID path string true "Event ID"
// @Success 200 {object} APIRestRespOneEvent "success"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/event/{eventID} [get]
func (h APIRestEventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	vars := mux.Vars(r)
	eventID, ok := vars["eventID"]
	if !ok {
		msg := "No event ID provided"
		log.WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, msg)
		return
	}

	event, err := h.store.GetEvent(r.Context(), eventID)
	if err != nil {
		msg := "Failed to fetch event"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = errorCodeForStorage(err)
		respBody = h.GetStdRESTErrorMsg(r.Context(), respCode, msg, err.Error())
		return
	}

	respCode = http.StatusOK
	respBody = APIRestRespOneEvent{
		RestAPIBaseResponse: goutils.RestAPIBaseResponse{
			Success: true, RequestID: h.ReadRequestIDFromContext(r.Context()),
		}, Event: event,
	}
}

// GetEventHandler Wrapper around GetEvent
func (h APIRestEventHandler) GetEventHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.GetEvent(w, r)
	}
}

// -----------------------------------------------------------------------

// UpdateEvent godoc
// @Summary Update one event
// @Description Replace an event's mutable fields and broadcast the new state
// @tags Events
// @Accept json
// @Produce json
// @Param Evently-Request-ID header string false "User provided request ID to match against logs"
// @Param eventID path string true "Event ID"
// @Param event body models.Event true "New event parameters"
// @Success 200 {object} APIRestRespOneEvent "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/event/{eventID} [put]
func (h APIRestEventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	vars := mux.Vars(r)
	eventID, ok := vars["eventID"]
	if !ok {
		msg := "No event ID provided"
		log.WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, msg)
		return
	}

	var params models.Event
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		msg := "Unable to parse request body"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}
	if err := h.validate.Struct(&params); err != nil {
		msg := "Invalid event parameters"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}

	updated, err := h.store.UpdateEvent(r.Context(), eventID, params)
	if err != nil {
		msg := "Failed to update event"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = errorCodeForStorage(err)
		respBody = h.GetStdRESTErrorMsg(r.Context(), respCode, msg, err.Error())
		return
	}

	if err := h.notifier.NotifyEventUpdated(r.Context(), updated); err != nil {
		log.WithError(err).WithFields(localLogTags).Error("Broadcast submission failed")
	}

	respCode = http.StatusOK
	respBody = APIRestRespOneEvent{
		RestAPIBaseResponse: goutils.RestAPIBaseResponse{
			Success: true, RequestID: h.ReadRequestIDFromContext(r.Context()),
		}, Event: updated,
	}
}

// UpdateEventHandler Wrapper around UpdateEvent
func (h APIRestEventHandler) UpdateEventHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.UpdateEvent(w, r)
	}
}

// -----------------------------------------------------------------------

// DeleteEvent godoc
// @Summary Delete one event
// @Description Remove an event with its RSVPs and broadcast the removal
// @tags Events
// @Produce json
// @Param Evently-Request-ID header string false "User provided request ID to match against logs"
// @Param eventID path string true "Event ID"
// @Success 200 {object} goutils.RestAPIBaseResponse "success"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/event/{eventID} [delete]
func (h APIRestEventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	vars := mux.Vars(r)
	eventID, ok := vars["eventID"]
	if !ok {
		msg := "No event ID provided"
		log.WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, msg)
		return
	}

	if err := h.store.DeleteEvent(r.Context(), eventID); err != nil {
		msg := "Failed to delete event"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = errorCodeForStorage(err)
		respBody = h.GetStdRESTErrorMsg(r.Context(), respCode, msg, err.Error())
		return
	}

	// The entity is gone; only the key is broadcast
	if err := h.notifier.NotifyEventDeleted(r.Context(), eventID); err != nil {
		log.WithError(err).WithFields(localLogTags).Error("Broadcast submission failed")
	}

	respCode = http.StatusOK
	respBody = h.GetStdRESTSuccessMsg(r.Context())
}

// DeleteEventHandler Wrapper around DeleteEvent
func (h APIRestEventHandler) DeleteEventHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.DeleteEvent(w, r)
	}
}

// -----------------------------------------------------------------------

// ApproveEvent godoc
// @Summary Approve one event
// @Description Transition an event into approved status and broadcast it
// @tags Events
// @Produce json
// @Param Evently-Request-ID header string false "User provided request ID to match against logs"
// @Param eventID path string true "Event ID"
// @Success 200 {object} APIRestRespOneEvent "success"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/event/{eventID}/approve [put]
func (h APIRestEventHandler) ApproveEvent(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	vars := mux.Vars(r)
	eventID, ok := vars["eventID"]
	if !ok {
		msg := "No event ID provided"
		log.WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, msg)
		return
	}

	approved, err := h.store.ApproveEvent(r.Context(), eventID)
	if err != nil {
		msg := "Failed to approve event"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = errorCodeForStorage(err)
		respBody = h.GetStdRESTErrorMsg(r.Context(), respCode, msg, err.Error())
		return
	}

	if err := h.notifier.NotifyEventApproved(r.Context(), approved); err != nil {
		log.WithError(err).WithFields(localLogTags).Error("Broadcast submission failed")
	}

	respCode = http.StatusOK
	respBody = APIRestRespOneEvent{
		RestAPIBaseResponse: goutils.RestAPIBaseResponse{
			Success: true, RequestID: h.ReadRequestIDFromContext(r.Context()),
		}, Event: approved,
	}
}

// ApproveEventHandler Wrapper around ApproveEvent
func (h APIRestEventHandler) ApproveEventHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.ApproveEvent(w, r)
	}
}

// =======================================================================
// RSVP management

// -----------------------------------------------------------------------

// UpsertRSVP godoc
// @Summary Record an RSVP
// @Description Record or replace a user's RSVP against an event and broadcast it
// @tags RSVPs
// @Accept json
// @Produce json
// @Param Evently-Request-ID header string false "User provided request ID to match against logs"
// @Param eventID path string true "Event ID"
// @Param userID path string true "Responding user ID"
// @Param rsvp body models.RSVP true "RSVP parameters"
// @Success 200 {object} APIRestRespOneRSVP "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/event/{eventID}/rsvp/{userID} [put]
func (h APIRestEventHandler) UpsertRSVP(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	vars := mux.Vars(r)
	eventID, ok := vars["eventID"]
	if !ok {
		msg := "No event ID provided"
		log.WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, msg)
		return
	}
	userID, ok := vars["userID"]
	if !ok {
		msg := "No user ID provided"
		log.WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, msg)
		return
	}

	var params models.RSVP
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		msg := "Unable to parse request body"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}
	params.EventID = eventID
	params.UserID = userID
	if err := h.validate.Struct(&params); err != nil {
		msg := "Invalid RSVP parameters"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, err.Error())
		return
	}

	committed, created, err := h.store.UpsertRSVP(r.Context(), eventID, params)
	if err != nil {
		msg := "Failed to record RSVP"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = errorCodeForStorage(err)
		respBody = h.GetStdRESTErrorMsg(r.Context(), respCode, msg, err.Error())
		return
	}

	if created {
		err = h.notifier.NotifyRSVPCreated(r.Context(), eventID, userID, committed)
	} else {
		err = h.notifier.NotifyRSVPUpdated(r.Context(), eventID, userID, committed)
	}
	if err != nil {
		log.WithError(err).WithFields(localLogTags).Error("Broadcast submission failed")
	}

	respCode = http.StatusOK
	respBody = APIRestRespOneRSVP{
		RestAPIBaseResponse: goutils.RestAPIBaseResponse{
			Success: true, RequestID: h.ReadRequestIDFromContext(r.Context()),
		}, RSVP: committed,
	}
}

// UpsertRSVPHandler Wrapper around UpsertRSVP
func (h APIRestEventHandler) UpsertRSVPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.UpsertRSVP(w, r)
	}
}

// -----------------------------------------------------------------------

// DeleteRSVP godoc
// @Summary Remove an RSVP
// @Description Remove a user's RSVP from an event and broadcast the removal
// @tags RSVPs
// @Produce json
// @Param Evently-Request-ID header string false "User provided request ID to match against logs"
// @Param eventID path string true "Event ID"
// @Param userID path string true "Responding user ID"
// @Success 200 {object} goutils.RestAPIBaseResponse "success"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/event/{eventID}/rsvp/{userID} [delete]
func (h APIRestEventHandler) DeleteRSVP(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	vars := mux.Vars(r)
	eventID, ok := vars["eventID"]
	if !ok {
		msg := "No event ID provided"
		log.WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, msg)
		return
	}
	userID, ok := vars["userID"]
	if !ok {
		msg := "No user ID provided"
		log.WithFields(localLogTags).Error(msg)
		respCode = http.StatusBadRequest
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, msg)
		return
	}

	if err := h.store.DeleteRSVP(r.Context(), eventID, userID); err != nil {
		msg := "Failed to remove RSVP"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = errorCodeForStorage(err)
		respBody = h.GetStdRESTErrorMsg(r.Context(), respCode, msg, err.Error())
		return
	}

	if err := h.notifier.NotifyRSVPDeleted(r.Context(), eventID, userID); err != nil {
		log.WithError(err).WithFields(localLogTags).Error("Broadcast submission failed")
	}

	respCode = http.StatusOK
	respBody = h.GetStdRESTSuccessMsg(r.Context())
}

// DeleteRSVPHandler Wrapper around DeleteRSVP
func (h APIRestEventHandler) DeleteRSVPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.DeleteRSVP(w, r)
	}
}

// =======================================================================
// Health Checks

// -----------------------------------------------------------------------

// Alive godoc
// @Summary For event REST API liveness check
// @Description Will return success to indicate event REST API module is live
// @tags Events
// @Produce json
// @Success 200 {object} goutils.RestAPIBaseResponse "success"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /alive [get]
func (h APIRestEventHandler) Alive(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	if err := h.WriteRESTResponse(
		w, http.StatusOK, h.GetStdRESTSuccessMsg(r.Context()), nil,
	); err != nil {
		log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
	}
}

// AliveHandler Wrapper around Alive
func (h APIRestEventHandler) AliveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Alive(w, r)
	}
}

// -----------------------------------------------------------------------

// Ready godoc
// @Summary For event REST API readiness check
// @Description Will return success if event REST API module is ready for use
// @tags Events
// @Produce json
// @Success 200 {object} goutils.RestAPIBaseResponse "success"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /ready [get]
func (h APIRestEventHandler) Ready(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	if _, err := h.store.ListEvents(r.Context(), storage.ListEventsFilter{}); err != nil {
		respCode = http.StatusInternalServerError
		respBody = h.GetStdRESTErrorMsg(
			r.Context(), http.StatusInternalServerError, "not ready", err.Error(),
		)
	} else {
		respCode = http.StatusOK
		respBody = h.GetStdRESTSuccessMsg(r.Context())
	}
}

// ReadyHandler Wrapper around Ready
func (h APIRestEventHandler) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Ready(w, r)
	}
}

// -----------------------------------------------------------------------

// Write logging support
func (h APIRestEventHandler) Write(p []byte) (n int, err error) {
	log.WithFields(h.LogTags).Infof("%s", p)
	return len(p), nil
}
