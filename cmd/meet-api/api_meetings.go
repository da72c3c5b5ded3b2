// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/cmd/meet-api/service"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

// meetingUID reads the {uid} path parameter and adds it to the log context.
func meetingUID(r *http.Request) (string, *http.Request) {
	uid := chi.URLParam(r, "uid")
	ctx := logging.AppendCtx(r.Context(), slog.String("meeting_uid", uid))
	return uid, r.WithContext(ctx)
}

// CreateMeeting creates a meeting and its calendar event.
func (s *MeetAPI) CreateMeeting(w http.ResponseWriter, r *http.Request) {
	var payload service.CreateMeetingPayload
	if err := decodeBody(r, &payload); err != nil {
		s.handleError(w, r, err)
		return
	}
	record, err := service.ConvertCreateMeetingPayloadToDomain(&payload)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	created, err := s.meetings.Create(r.Context(), record)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}

// GetMeeting returns a meeting with its revision in the ETag header.
func (s *MeetAPI) GetMeeting(w http.ResponseWriter, r *http.Request) {
	uid, r := meetingUID(r)

	record, revision, err := s.meetings.Get(r.Context(), uid)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	setEtag(w, revision)
	writeJSON(w, r, http.StatusOK, record)
}

// UpdateMeeting applies a partial update guarded by the If-Match revision.
func (s *MeetAPI) UpdateMeeting(w http.ResponseWriter, r *http.Request) {
	uid, r := meetingUID(r)

	revision, err := service.EtagValidator(r.Header.Get(constants.IfMatchHeader))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	var update models.MeetingRecordUpdate
	if err := decodeBody(r, &update); err != nil {
		s.handleError(w, r, err)
		return
	}

	updated, err := s.meetings.Update(r.Context(), uid, revision, &update)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, updated)
}

// DeleteMeeting deletes a meeting. The If-Match header is optional.
func (s *MeetAPI) DeleteMeeting(w http.ResponseWriter, r *http.Request) {
	uid, r := meetingUID(r)

	var revision uint64
	if etag := r.Header.Get(constants.IfMatchHeader); etag != "" {
		var err error
		if revision, err = service.EtagValidator(etag); err != nil {
			s.handleError(w, r, err)
			return
		}
	}

	if err := s.meetings.Delete(r.Context(), uid, revision); err != nil {
		s.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FetchTranscript schedules an immediate transcript fetch.
func (s *MeetAPI) FetchTranscript(w http.ResponseWriter, r *http.Request) {
	uid, r := meetingUID(r)

	if err := s.meetings.FetchTranscriptNow(r.Context(), uid); err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, models.DispatchResult{
		Status:  models.DispatchStatusOK,
		Message: "transcript fetch scheduled",
	})
}

// CreateMeetingSubscription subscribes to the Meet space of a meeting.
func (s *MeetAPI) CreateMeetingSubscription(w http.ResponseWriter, r *http.Request) {
	uid, r := meetingUID(r)

	record, err := s.meetings.CreateSubscription(r.Context(), uid)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, record)
}

// GetMeetingSubscription refreshes and returns the subscription state of a meeting.
func (s *MeetAPI) GetMeetingSubscription(w http.ResponseWriter, r *http.Request) {
	uid, r := meetingUID(r)

	status, err := s.meetings.SubscriptionStatus(r.Context(), uid)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}
