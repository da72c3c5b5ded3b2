// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"net/http"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/cmd/meet-api/service"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

// GetSettings returns the integration settings with their revision in the ETag header.
func (s *MeetAPI) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, revision, err := s.settings.Get(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	setEtag(w, revision)
	writeJSON(w, r, http.StatusOK, service.ConvertSettingsToResponse(settings))
}

// UpdateSettings replaces the editable settings. The If-Match header is optional.
func (s *MeetAPI) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var revision uint64
	if etag := r.Header.Get(constants.IfMatchHeader); etag != "" {
		var err error
		if revision, err = service.EtagValidator(etag); err != nil {
			s.handleError(w, r, err)
			return
		}
	}
	var update models.IntegrationSettings
	if err := decodeBody(r, &update); err != nil {
		s.handleError(w, r, err)
		return
	}

	updated, err := s.settings.Update(r.Context(), &update, revision)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, service.ConvertSettingsToResponse(updated))
}

// CreateUserSubscription subscribes to every conference of the organizer.
func (s *MeetAPI) CreateUserSubscription(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.CreateUserSubscription(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, service.ConvertSettingsToResponse(settings))
}

// GetUserSubscription refreshes and returns the state of the user subscription.
func (s *MeetAPI) GetUserSubscription(w http.ResponseWriter, r *http.Request) {
	status, err := s.settings.CheckUserSubscription(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

func (s *MeetAPI) DeleteUserSubscription(w http.ResponseWriter, r *http.Request) {
	if err := s.settings.DeleteUserSubscription(r.Context()); err != nil {
		s.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSubscriptions lists the Meet subscriptions of the calendar account.
func (s *MeetAPI) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subscriptions, err := s.settings.ListSubscriptions(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if subscriptions == nil {
		subscriptions = []*models.Subscription{}
	}
	writeJSON(w, r, http.StatusOK, subscriptions)
}

// WatchCalendar registers the calendar push channel.
func (s *MeetAPI) WatchCalendar(w http.ResponseWriter, r *http.Request) {
	watch, err := s.calendarSync.WatchCalendar(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, service.ConvertWatchToResponse(watch))
}

func (s *MeetAPI) StopCalendarWatch(w http.ResponseWriter, r *http.Request) {
	if err := s.calendarSync.StopWatch(r.Context()); err != nil {
		s.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConnectCredential stores the refresh credential of a calendar account.
func (s *MeetAPI) ConnectCredential(w http.ResponseWriter, r *http.Request) {
	var payload service.ConnectCredentialPayload
	if err := decodeBody(r, &payload); err != nil {
		s.handleError(w, r, err)
		return
	}
	credential, err := service.ConvertCredentialPayloadToDomain(&payload)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if err := s.settings.ConnectAccount(r.Context(), credential); err != nil {
		s.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DisconnectCredential removes the credential named by the account_ref query parameter.
func (s *MeetAPI) DisconnectCredential(w http.ResponseWriter, r *http.Request) {
	if err := s.settings.DisconnectAccount(r.Context(), r.URL.Query().Get("account_ref")); err != nil {
		s.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
