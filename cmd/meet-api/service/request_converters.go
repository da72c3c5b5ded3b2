// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package service holds the request and response shapes of the HTTP API and
// their conversion to domain models.
package service

import (
	"strings"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/utils"
)

// CreateMeetingPayload is the body of POST /meetings.
type CreateMeetingPayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
	MeetingDate string   `json:"meeting_date"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	Timezone    string   `json:"timezone,omitempty"`
	Recurrence  string   `json:"recurrence,omitempty"`
}

// ConnectCredentialPayload is the body of PUT /settings/credential.
type ConnectCredentialPayload struct {
	AccountRef   string   `json:"account_ref"`
	RefreshToken string   `json:"refresh_token"`
	Email        string   `json:"email,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
}

// ConvertCreateMeetingPayloadToDomain builds the meeting record to create.
// Status, links and identifiers are owned by the service and never taken from the caller.
func ConvertCreateMeetingPayloadToDomain(payload *CreateMeetingPayload) (*models.MeetingRecord, error) {
	if payload == nil {
		return nil, domain.NewValidationError("payload is empty")
	}

	var attendees []string
	for _, attendee := range payload.Attendees {
		if trimmed := strings.TrimSpace(attendee); trimmed != "" {
			attendees = append(attendees, trimmed)
		}
	}

	return &models.MeetingRecord{
		Title:       strings.TrimSpace(payload.Title),
		Description: payload.Description,
		Attendees:   attendees,
		MeetingDate: strings.TrimSpace(payload.MeetingDate),
		StartTime:   strings.TrimSpace(payload.StartTime),
		EndTime:     strings.TrimSpace(payload.EndTime),
		Timezone:    strings.TrimSpace(payload.Timezone),
		Recurrence:  strings.TrimSpace(payload.Recurrence),
	}, nil
}

// ConvertCredentialPayloadToDomain builds the credential to store.
func ConvertCredentialPayloadToDomain(payload *ConnectCredentialPayload) (*models.OAuthCredential, error) {
	if payload == nil {
		return nil, domain.NewValidationError("payload is empty")
	}
	return &models.OAuthCredential{
		AccountRef:   strings.TrimSpace(payload.AccountRef),
		RefreshToken: strings.TrimSpace(payload.RefreshToken),
		Email:        utils.CoalesceString(strings.TrimSpace(payload.Email), strings.TrimSpace(payload.AccountRef)),
		Scopes:       payload.Scopes,
	}, nil
}
