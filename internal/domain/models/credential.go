// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// OAuthCredential is the stored grant of a connected calendar account.
type OAuthCredential struct {
	AccountRef   string     `json:"account_ref"`
	RefreshToken string     `json:"refresh_token"`
	Email        string     `json:"email,omitempty"`
	Scopes       []string   `json:"scopes,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// CalendarEvent is the subset of a Google Calendar event the service works with.
type CalendarEvent struct {
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
	Attendees   []string
	Recurrence  []string
	MeetLink    string
	Status      string
	Updated     time.Time
}

// CalendarChannel is a calendar push notification channel.
type CalendarChannel struct {
	ID         string
	ResourceID string
	Address    string
	Token      string
	Expiration time.Time
}

// CalendarNotification is the header set of a calendar push request.
type CalendarNotification struct {
	ChannelID     string
	ChannelToken  string
	ResourceID    string
	ResourceState string
	ResourceURI   string
}

// TranscriptInfo describes one transcript of a conference.
type TranscriptInfo struct {
	Name       string
	State      string
	DocumentID string
	ExportURI  string
}

// TranscriptEntry is one attributed utterance of a transcript.
type TranscriptEntry struct {
	Participant  string
	Text         string
	StartTime    string
	LanguageCode string
}

// DriveFile is the metadata of a Drive file.
type DriveFile struct {
	ID       string
	Name     string
	MimeType string
}
