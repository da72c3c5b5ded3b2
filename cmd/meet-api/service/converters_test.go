// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
)

func TestConvertCreateMeetingPayloadToDomain(t *testing.T) {
	record, err := ConvertCreateMeetingPayloadToDomain(&CreateMeetingPayload{
		Title:       "  Weekly sync ",
		Attendees:   []string{"a@example.org", " ", " b@example.org "},
		MeetingDate: "2026-01-01",
		StartTime:   "09:00",
		EndTime:     "10:30",
		Recurrence:  " RRULE:FREQ=WEEKLY;COUNT=4 ",
	})
	require.NoError(t, err)

	assert.Equal(t, "Weekly sync", record.Title)
	assert.Equal(t, []string{"a@example.org", "b@example.org"}, record.Attendees)
	assert.Equal(t, "RRULE:FREQ=WEEKLY;COUNT=4", record.Recurrence)
	assert.Empty(t, record.UID)
	assert.Empty(t, record.Status)

	_, err = ConvertCreateMeetingPayloadToDomain(nil)
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
}

func TestConvertCredentialPayloadToDomain(t *testing.T) {
	credential, err := ConvertCredentialPayloadToDomain(&ConnectCredentialPayload{
		AccountRef:   " calendar@example.org ",
		RefreshToken: " refresh ",
	})
	require.NoError(t, err)
	assert.Equal(t, "calendar@example.org", credential.AccountRef)
	assert.Equal(t, "refresh", credential.RefreshToken)
	assert.Equal(t, "calendar@example.org", credential.Email, "email defaults to the account")

	_, err = ConvertCredentialPayloadToDomain(nil)
	assert.Error(t, err)
}

func TestConvertSettingsToResponse(t *testing.T) {
	response := ConvertSettingsToResponse(&models.IntegrationSettings{WebhookBaseURL: "https://meet.example.org/"})
	assert.Equal(t, "https://meet.example.org/webhooks/google/calendar", response.CalendarWebhookURL)
	assert.Equal(t, "https://meet.example.org/webhooks/google/events", response.EventsWebhookURL)

	empty := ConvertSettingsToResponse(&models.IntegrationSettings{})
	assert.Empty(t, empty.CalendarWebhookURL)

	stored := &models.IntegrationSettings{CalendarWatch: &models.CalendarWatch{ChannelID: "channel-1", Token: "secret"}}
	redacted := ConvertSettingsToResponse(stored)
	assert.Equal(t, "channel-1", redacted.CalendarWatch.ChannelID)
	assert.Empty(t, redacted.CalendarWatch.Token)
	assert.Equal(t, "secret", stored.CalendarWatch.Token)

	assert.Nil(t, ConvertWatchToResponse(nil))
}

func TestConvertErrorToResponse(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    int
		wantMessage string
	}{
		{name: "validation", err: domain.NewValidationError("title is required"), wantCode: http.StatusBadRequest, wantMessage: "title is required"},
		{name: "not found", err: domain.NewNotFoundError("meeting not found"), wantCode: http.StatusNotFound, wantMessage: "meeting not found"},
		{name: "conflict", err: domain.NewConflictError("revision mismatch"), wantCode: http.StatusConflict, wantMessage: "revision mismatch"},
		{name: "unavailable", err: domain.ErrServiceUnavailable, wantCode: http.StatusServiceUnavailable},
		{name: "unauthorized", err: domain.NewAuthError("reconnect the calendar account"), wantCode: http.StatusUnauthorized, wantMessage: "reconnect the calendar account"},
		{name: "internal hides details", err: errors.New("kv: connection reset"), wantCode: http.StatusInternalServerError, wantMessage: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := ConvertErrorToResponse(tt.err)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantMessage != "" {
				assert.Contains(t, body.Message, tt.wantMessage)
			}
		})
	}
}
