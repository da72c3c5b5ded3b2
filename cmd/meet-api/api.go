// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/cmd/meet-api/service"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
	internalsvc "github.com/linuxfoundation/lfx-v2-google-meet-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

// MeetAPI serves the interactive API and the Google push webhooks.
type MeetAPI struct {
	meetings     *internalsvc.MeetingController
	settings     *internalsvc.SettingsService
	calendarSync *internalsvc.CalendarSyncService
	dispatcher   *internalsvc.EventDispatcher
	// pushVerifier is nil when Pub/Sub push authentication is disabled.
	pushVerifier domain.PushVerifier
}

// NewMeetAPI creates a new MeetAPI.
func NewMeetAPI(
	meetings *internalsvc.MeetingController,
	settings *internalsvc.SettingsService,
	calendarSync *internalsvc.CalendarSyncService,
	dispatcher *internalsvc.EventDispatcher,
	pushVerifier domain.PushVerifier,
) *MeetAPI {
	return &MeetAPI{
		meetings:     meetings,
		settings:     settings,
		calendarSync: calendarSync,
		dispatcher:   dispatcher,
		pushVerifier: pushVerifier,
	}
}

// ServiceReady reports whether every service behind the API is initialized.
func (s *MeetAPI) ServiceReady() bool {
	return s.meetings != nil && s.meetings.ServiceReady() &&
		s.settings != nil && s.settings.ServiceReady() &&
		s.calendarSync != nil && s.calendarSync.ServiceReady() &&
		s.dispatcher != nil && s.dispatcher.ServiceReady()
}

// Readyz checks if the service is able to take inbound requests.
func (s *MeetAPI) Readyz(w http.ResponseWriter, r *http.Request) {
	if !s.ServiceReady() {
		s.handleError(w, r, domain.ErrServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("OK\n"))
}

// Livez checks if the service is alive.
func (s *MeetAPI) Livez(w http.ResponseWriter, _ *http.Request) {
	// This always returns as long as the service is still running. As this
	// endpoint is expected to be used as a Kubernetes liveness check, this
	// service must likewise self-detect non-recoverable errors and
	// self-terminate.
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("OK\n"))
}

// writeJSON encodes body with the given status code.
func writeJSON(w http.ResponseWriter, r *http.Request, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", logging.ErrKey, err)
	}
}

// handleError writes the error response matching the domain error type.
func (s *MeetAPI) handleError(w http.ResponseWriter, r *http.Request, err error) {
	code, body := service.ConvertErrorToResponse(err)
	if code >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", logging.ErrKey, err, "status", code)
	} else {
		slog.DebugContext(r.Context(), "request rejected", logging.ErrKey, err, "status", code)
	}
	writeJSON(w, r, code, body)
}

// decodeBody decodes a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return domain.NewValidationError("request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.NewValidationError("invalid request body: "+err.Error(), domain.ErrValidationFailed)
	}
	return nil
}

func setEtag(w http.ResponseWriter, revision uint64) {
	w.Header().Set(constants.EtagHeader, service.EtagValue(revision))
}
