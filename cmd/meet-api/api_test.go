// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

const testToken = "Bearer valid-token"

type stubPrincipalParser struct{}

func (stubPrincipalParser) ParsePrincipal(_ context.Context, token string, _ *slog.Logger) (string, error) {
	if token != "valid-token" {
		return "", errors.New("invalid token")
	}
	return "project-admin", nil
}

type apiMocks struct {
	meetings    *mocks.MockMeetingRecordRepository
	eventLog    *mocks.MockEventLogRepository
	settings    *mocks.MockSettingsRepository
	credentials *mocks.MockCredentialStore
	calendar    *mocks.MockCalendarClient
	scheduler   *mocks.MockJobScheduler
	verifier    *mocks.MockPushVerifier
}

// setupAPIForTesting builds the router on top of real services wired to mocks.
func setupAPIForTesting(withVerifier bool) (http.Handler, *apiMocks) {
	m := &apiMocks{
		meetings:    new(mocks.MockMeetingRecordRepository),
		eventLog:    new(mocks.MockEventLogRepository),
		settings:    new(mocks.MockSettingsRepository),
		credentials: new(mocks.MockCredentialStore),
		calendar:    new(mocks.MockCalendarClient),
		scheduler:   new(mocks.MockJobScheduler),
		verifier:    new(mocks.MockPushVerifier),
	}
	config := service.ServiceConfig{}
	subscriptions := service.NewSubscriptionManager(new(mocks.MockSubscriptionClient))

	controller := service.NewMeetingController(m.meetings, m.eventLog, m.settings, m.calendar, subscriptions, m.scheduler, config)
	retriever := service.NewTranscriptRetriever(m.meetings, m.settings, m.scheduler, config,
		&service.MeetEntriesSource{Conferences: new(mocks.MockConferenceClient)})
	calendarSync := service.NewCalendarSyncService(m.meetings, m.settings, m.calendar, m.scheduler, config)
	lookup := service.NewMeetingLookup(m.meetings, 10, nil)
	reconciler := service.NewLifecycleReconciler(m.meetings, m.scheduler, lookup, retriever, config)
	dispatcher := service.NewEventDispatcher(m.eventLog, m.meetings, m.settings, reconciler)
	settingsService := service.NewSettingsService(m.settings, m.credentials, new(mocks.MockCredentialProvider), subscriptions)

	var verifier domain.PushVerifier
	if withVerifier {
		verifier = m.verifier
	}
	api := NewMeetAPI(controller, settingsService, calendarSync, dispatcher, verifier)
	return newRouter(api, stubPrincipalParser{}), m
}

func serve(handler http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) models.DispatchResult {
	t.Helper()
	var result models.DispatchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	return result
}

func TestMeetAPI_Probes(t *testing.T) {
	handler, _ := setupAPIForTesting(false)

	rec := serve(handler, http.MethodGet, constants.LivezPath, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())

	rec = serve(handler, http.MethodGet, constants.ReadyzPath, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	notReady := newRouter(NewMeetAPI(nil, nil, nil, nil, nil), stubPrincipalParser{})
	rec = serve(notReady, http.MethodGet, constants.ReadyzPath, "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMeetAPI_RequiresBearerToken(t *testing.T) {
	handler, m := setupAPIForTesting(false)

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{name: "missing header"},
		{name: "invalid token", headers: map[string]string{"Authorization": "Bearer forged"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(handler, http.MethodGet, "/meetings/meeting-1", "", tt.headers)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			m.meetings.AssertNotCalled(t, "GetWithRevision", mock.Anything, mock.Anything)
		})
	}
}

func TestMeetAPI_GetMeeting(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(m *apiMocks)
		wantCode   int
		wantEtag   string
	}{
		{
			name: "found",
			setupMocks: func(m *apiMocks) {
				m.meetings.On("GetWithRevision", mock.Anything, "meeting-1").
					Return(&models.MeetingRecord{UID: "meeting-1", Title: "Weekly sync"}, uint64(7), nil)
			},
			wantCode: http.StatusOK,
			wantEtag: `"7"`,
		},
		{
			name: "not found",
			setupMocks: func(m *apiMocks) {
				m.meetings.On("GetWithRevision", mock.Anything, "meeting-1").
					Return(nil, uint64(0), domain.NewNotFoundError("meeting not found", domain.ErrMeetingNotFound))
			},
			wantCode: http.StatusNotFound,
		},
		{
			name: "storage failure hides details",
			setupMocks: func(m *apiMocks) {
				m.meetings.On("GetWithRevision", mock.Anything, "meeting-1").
					Return(nil, uint64(0), errors.New("nats: timeout"))
			},
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, m := setupAPIForTesting(false)
			tt.setupMocks(m)

			rec := serve(handler, http.MethodGet, "/meetings/meeting-1", "", map[string]string{"Authorization": testToken})
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantEtag, rec.Header().Get(constants.EtagHeader))
			assert.NotContains(t, rec.Body.String(), "nats: timeout")
			m.meetings.AssertExpectations(t)
		})
	}
}

func TestMeetAPI_MeetingRequestValidation(t *testing.T) {
	handler, m := setupAPIForTesting(false)
	auth := map[string]string{"Authorization": testToken}

	rec := serve(handler, http.MethodPut, "/meetings/meeting-1", `{"title":"Renamed"}`, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "If-Match is required")

	rec = serve(handler, http.MethodPost, "/meetings", `{"title":`, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(handler, http.MethodPost, "/meetings", `{"meeting_date":"2026-01-01","start_time":"10:00","end_time":"11:00"}`, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	m.meetings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.calendar.AssertNotCalled(t, "InsertEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMeetAPI_GetSettingsRedactsChannelToken(t *testing.T) {
	handler, m := setupAPIForTesting(false)
	m.settings.On("GetWithRevision", mock.Anything).Return(&models.IntegrationSettings{
		CalendarAccount: "calendar@example.org",
		CalendarWatch:   &models.CalendarWatch{ChannelID: "channel-1", Token: "secret-token"},
	}, uint64(3), nil)

	rec := serve(handler, http.MethodGet, "/settings", "", map[string]string{"Authorization": testToken})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"3"`, rec.Header().Get(constants.EtagHeader))
	assert.Contains(t, rec.Body.String(), "channel-1")
	assert.NotContains(t, rec.Body.String(), "secret-token")
}

func TestMeetAPI_DisconnectCredentialRequiresAccount(t *testing.T) {
	handler, m := setupAPIForTesting(false)

	rec := serve(handler, http.MethodDelete, "/settings/credential", "", map[string]string{"Authorization": testToken})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	m.credentials.AssertNotCalled(t, "DeleteCredential", mock.Anything, mock.Anything)
}

func watchedAPISettings() *models.IntegrationSettings {
	return &models.IntegrationSettings{
		CalendarWatch: &models.CalendarWatch{ChannelID: "channel-1", ResourceID: "resource-1", Token: "secret-token"},
	}
}

func TestMeetAPI_CalendarWebhook(t *testing.T) {
	tests := []struct {
		name        string
		state       string
		setupMocks  func(m *apiMocks)
		wantStatus  string
		wantMessage string
	}{
		{
			name:  "sync handshake",
			state: constants.ResourceStateSync,
			setupMocks: func(m *apiMocks) {
				m.settings.On("GetWithRevision", mock.Anything).Return(watchedAPISettings(), uint64(1), nil)
			},
			wantStatus:  models.DispatchStatusOK,
			wantMessage: "Sync acknowledged",
		},
		{
			name:  "change is scheduled",
			state: constants.ResourceStateExists,
			setupMocks: func(m *apiMocks) {
				m.settings.On("GetWithRevision", mock.Anything).Return(watchedAPISettings(), uint64(1), nil)
				m.scheduler.On("Enqueue", mock.Anything, mock.MatchedBy(func(job *models.Job) bool {
					return job.Name == models.JobProcessCalendarChange
				})).Return(nil)
			},
			wantStatus:  models.DispatchStatusOK,
			wantMessage: "Processing change",
		},
		{
			name:  "change without a registered channel is not scheduled",
			state: constants.ResourceStateExists,
			setupMocks: func(m *apiMocks) {
				m.settings.On("GetWithRevision", mock.Anything).Return(&models.IntegrationSettings{}, uint64(1), nil)
			},
			wantStatus:  models.DispatchStatusOK,
			wantMessage: "No active channel",
		},
		{
			name:  "settings failure is still acknowledged",
			state: constants.ResourceStateExists,
			setupMocks: func(m *apiMocks) {
				m.settings.On("GetWithRevision", mock.Anything).Return(nil, uint64(0), errors.New("kv unavailable"))
			},
			wantStatus: models.DispatchStatusError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, m := setupAPIForTesting(false)
			tt.setupMocks(m)

			rec := serve(handler, http.MethodPost, constants.CalendarWebhookPath, "", map[string]string{
				constants.GoogChannelIDHeader:     "channel-1",
				constants.GoogChannelTokenHeader:  "secret-token",
				constants.GoogResourceIDHeader:    "resource-1",
				constants.GoogResourceStateHeader: tt.state,
			})
			require.Equal(t, http.StatusOK, rec.Code)
			result := decodeResult(t, rec)
			assert.Equal(t, tt.wantStatus, result.Status)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, result.Message)
			}
			m.scheduler.AssertExpectations(t)
			if tt.wantMessage != "Processing change" {
				m.scheduler.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestMeetAPI_EventsWebhook(t *testing.T) {
	t.Run("undecodable envelope is acknowledged with an error", func(t *testing.T) {
		handler, m := setupAPIForTesting(false)
		m.eventLog.On("Create", mock.Anything, mock.MatchedBy(func(entry *models.EventLogEntry) bool {
			return entry.Status == models.EventLogStatusError && entry.RawPayload == "not json"
		})).Return(nil)

		rec := serve(handler, http.MethodPost, constants.EventsWebhookPath, "not json", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.DispatchStatusError, decodeResult(t, rec).Status)
		m.eventLog.AssertExpectations(t)
	})

	t.Run("oversized push is acknowledged with an error", func(t *testing.T) {
		handler, m := setupAPIForTesting(false)
		m.eventLog.On("Create", mock.Anything, mock.MatchedBy(func(entry *models.EventLogEntry) bool {
			return entry.Status == models.EventLogStatusError && strings.Contains(entry.Error, "payload too large")
		})).Return(nil).Once()

		body := `{"message":{"data":"` + strings.Repeat("a", middleware.MaxWebhookBodyBytes) + `"}}`
		rec := serve(handler, http.MethodPost, constants.EventsWebhookPath, body, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		result := decodeResult(t, rec)
		assert.Equal(t, models.DispatchStatusError, result.Status)
		assert.Equal(t, "payload too large", result.Message)
		m.eventLog.AssertExpectations(t)
		m.meetings.AssertNotCalled(t, "ListByConferenceID", mock.Anything, mock.Anything)
	})

	t.Run("unauthenticated push is not dispatched", func(t *testing.T) {
		handler, m := setupAPIForTesting(true)
		m.verifier.On("Verify", mock.Anything, "Bearer forged").
			Return(domain.NewAuthError("push token is not valid for this endpoint"))

		rec := serve(handler, http.MethodPost, constants.EventsWebhookPath, `{"message":{}}`, map[string]string{
			"Authorization": "Bearer forged",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		result := decodeResult(t, rec)
		assert.Equal(t, models.DispatchStatusError, result.Status)
		assert.Equal(t, "unauthenticated push request", result.Message)
		m.eventLog.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("events webhook does not require a JWT", func(t *testing.T) {
		handler, m := setupAPIForTesting(true)
		m.verifier.On("Verify", mock.Anything, "").Return(domain.NewAuthError("push request carries no bearer token"))

		rec := serve(handler, http.MethodPost, constants.EventsWebhookPath, `{}`, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		m.verifier.AssertExpectations(t)
	})
}
