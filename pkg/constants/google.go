// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

import "time"

// Workspace Events types for Google Meet.
const (
	EventTypeConferenceStarted = "google.workspace.meet.conference.v2.started"
	EventTypeConferenceEnded   = "google.workspace.meet.conference.v2.ended"
	EventTypeParticipantJoined = "google.workspace.meet.participant.v2.joined"
	EventTypeParticipantLeft   = "google.workspace.meet.participant.v2.left"
	EventTypeRecordingReady    = "google.workspace.meet.recording.v2.fileGenerated"
	EventTypeTranscriptReady   = "google.workspace.meet.transcript.v2.fileGenerated"
)

// MeetEventTypes is the set of event types requested when subscribing.
var MeetEventTypes = []string{
	EventTypeConferenceStarted,
	EventTypeConferenceEnded,
	EventTypeParticipantJoined,
	EventTypeParticipantLeft,
	EventTypeRecordingReady,
	EventTypeTranscriptReady,
}

// OAuth scopes required by the integration.
const (
	ScopeCalendar          = "https://www.googleapis.com/auth/calendar"
	ScopeMeetSpaceReadonly = "https://www.googleapis.com/auth/meetings.space.readonly"
	ScopeDriveReadonly     = "https://www.googleapis.com/auth/drive.readonly"
)

// DefaultScopes is the scope set requested for every token exchange.
var DefaultScopes = []string{
	ScopeCalendar,
	ScopeMeetSpaceReadonly,
	ScopeDriveReadonly,
}

// GoogleTokenURL is the OAuth token endpoint used for the refresh-token grant.
const GoogleTokenURL = "https://oauth2.googleapis.com/token"

// Resource name prefixes.
const (
	ConferenceRecordsPrefix = "conferenceRecords"
	MeetSpaceTargetPrefix   = "//meet.googleapis.com/spaces/"
	UserTargetPrefix        = "//cloudidentity.googleapis.com/users/"
	DriveFileViewURLFormat  = "https://drive.google.com/file/d/%s/view"
)

// Subscription states reported by the Workspace Events API.
const (
	SubscriptionStateActive    = "ACTIVE"
	SubscriptionStateSuspended = "SUSPENDED"
	SubscriptionStateDeleted   = "DELETED"
	SubscriptionStateUnknown   = "UNKNOWN"
)

// Timing defaults.
const (
	DefaultTranscriptDelay          = 10 * time.Minute
	DefaultTranscriptRetryBaseDelay = 5 * time.Minute
	DefaultTranscriptRetryMaxDelay  = 60 * time.Minute
	DefaultTranscriptMaxAttempts    = 8
	DefaultJobTimeout               = 600 * time.Second
	DefaultLinkSyncPolls            = 10
	DefaultLinkSyncInterval         = time.Second
	CalendarWatchTTL                = 7 * 24 * time.Hour
	CalendarWatchRenewBefore        = 24 * time.Hour
	CalendarChangeWindow            = time.Hour
	CalendarChangeMaxResults        = 50
	PendingTranscriptWindow         = 2 * time.Hour
	DefaultMaintenanceInterval      = 15 * time.Minute
)

// DefaultCalendarID is the calendar used when none is configured.
const DefaultCalendarID = "primary"
