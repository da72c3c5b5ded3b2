// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

// CalendarWebhook receives Google Calendar push notifications. Google only
// looks at the status code, so the response is always 200.
func (s *MeetAPI) CalendarWebhook(w http.ResponseWriter, r *http.Request) {
	notification := models.CalendarNotification{
		ChannelID:     r.Header.Get(constants.GoogChannelIDHeader),
		ChannelToken:  r.Header.Get(constants.GoogChannelTokenHeader),
		ResourceID:    r.Header.Get(constants.GoogResourceIDHeader),
		ResourceState: r.Header.Get(constants.GoogResourceStateHeader),
		ResourceURI:   r.Header.Get(constants.GoogResourceURIHeader),
	}

	result := s.calendarSync.HandleNotification(r.Context(), notification)
	writeJSON(w, r, http.StatusOK, result)
}

// EventsWebhook receives Workspace Events delivered by Pub/Sub push. Every
// request is acknowledged with 200 so Pub/Sub does not redeliver it; the
// outcome is carried in the body.
func (s *MeetAPI) EventsWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.pushVerifier != nil {
		if err := s.pushVerifier.Verify(ctx, r.Header.Get(constants.AuthorizationHeader)); err != nil {
			slog.WarnContext(ctx, "unauthenticated push request dropped", logging.ErrKey, err)
			writeJSON(w, r, http.StatusOK, models.DispatchResult{
				Status:  models.DispatchStatusError,
				Message: "unauthenticated push request",
			})
			return
		}
	}

	if err := middleware.GetBodyErrorFromContext(ctx); err != nil {
		message := "unreadable body"
		if middleware.IsBodyTooLarge(err) {
			message = "payload too large"
		}
		writeJSON(w, r, http.StatusOK, s.dispatcher.Reject(ctx, message, err))
		return
	}

	body, ok := middleware.GetRawBodyFromContext(ctx)
	if !ok {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			writeJSON(w, r, http.StatusOK, s.dispatcher.Reject(ctx, "unreadable body", err))
			return
		}
	}

	result := s.dispatcher.Dispatch(ctx, body)
	writeJSON(w, r, http.StatusOK, result)
}
