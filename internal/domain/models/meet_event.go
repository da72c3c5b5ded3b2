// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"encoding/json"
	"time"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

// EventKind is the closed set of event kinds the reconciler understands.
// Decoding happens once at the boundary; handlers switch on the kind.
type EventKind int

const (
	EventKindUnknown EventKind = iota
	EventKindConferenceStarted
	EventKindConferenceEnded
	EventKindParticipantJoined
	EventKindParticipantLeft
	EventKindRecordingReady
	EventKindTranscriptReady
)

// ParseEventKind maps a raw event type string onto its kind.
func ParseEventKind(eventType string) EventKind {
	switch eventType {
	case constants.EventTypeConferenceStarted:
		return EventKindConferenceStarted
	case constants.EventTypeConferenceEnded:
		return EventKindConferenceEnded
	case constants.EventTypeParticipantJoined:
		return EventKindParticipantJoined
	case constants.EventTypeParticipantLeft:
		return EventKindParticipantLeft
	case constants.EventTypeRecordingReady:
		return EventKindRecordingReady
	case constants.EventTypeTranscriptReady:
		return EventKindTranscriptReady
	default:
		return EventKindUnknown
	}
}

func (k EventKind) String() string {
	switch k {
	case EventKindConferenceStarted:
		return "conference_started"
	case EventKindConferenceEnded:
		return "conference_ended"
	case EventKindParticipantJoined:
		return "participant_joined"
	case EventKindParticipantLeft:
		return "participant_left"
	case EventKindRecordingReady:
		return "recording_ready"
	case EventKindTranscriptReady:
		return "transcript_ready"
	default:
		return "unknown"
	}
}

// PushEnvelope is the body of a Pub/Sub push request.
type PushEnvelope struct {
	Message      *PushMessage `json:"message"`
	Subscription string       `json:"subscription,omitempty"`
}

// PushMessage is the inner Pub/Sub message.
type PushMessage struct {
	Data        string            `json:"data,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	MessageID   string            `json:"messageId,omitempty"`
	PublishTime string            `json:"publishTime,omitempty"`
}

// EventBody is the decoded payload of a Workspace event.
type EventBody struct {
	EventType          string                     `json:"eventType,omitempty"`
	Type               string                     `json:"type,omitempty"`
	ConferenceRecord   *ConferenceRecordPayload   `json:"conferenceRecord,omitempty"`
	ParticipantSession *ParticipantSessionPayload `json:"participantSession,omitempty"`
	Recording          *RecordingPayload          `json:"recording,omitempty"`
	Transcript         *TranscriptPayload         `json:"transcript,omitempty"`
}

// ConferenceRecordPayload is carried by conference started/ended events.
type ConferenceRecordPayload struct {
	Name      string `json:"name"`
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
	Space     string `json:"space,omitempty"`
}

// ParticipantSessionPayload is carried by participant joined/left events.
type ParticipantSessionPayload struct {
	Name      string `json:"name"`
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
}

// DriveDestination points at a Drive file produced by Meet.
type DriveDestination struct {
	File      string `json:"file,omitempty"`
	ExportURI string `json:"exportUri,omitempty"`
}

// DocsDestination points at a Google Docs document produced by Meet.
type DocsDestination struct {
	Document  string `json:"document,omitempty"`
	ExportURI string `json:"exportUri,omitempty"`
}

// RecordingPayload is carried by recording fileGenerated events.
type RecordingPayload struct {
	Name             string            `json:"name"`
	ConferenceRecord string            `json:"conferenceRecord,omitempty"`
	DriveDestination *DriveDestination `json:"driveDestination,omitempty"`
}

// TranscriptPayload is carried by transcript fileGenerated events.
type TranscriptPayload struct {
	Name             string            `json:"name"`
	ConferenceRecord string            `json:"conferenceRecord,omitempty"`
	DocsDestination  *DocsDestination  `json:"docsDestination,omitempty"`
	DriveDestination *DriveDestination `json:"driveDestination,omitempty"`
}

// NormalizedEvent is the decoder output consumed by the dispatcher.
type NormalizedEvent struct {
	Kind   EventKind
	Type   string
	ID     string
	Source string
	Body   EventBody
	// Data is the decoded JSON body as received.
	Data json.RawMessage
	// Raw is the undecoded request envelope.
	Raw string
}

// ParseEventTime parses an RFC 3339 timestamp from an event payload.
// It returns nil for empty or malformed input.
func ParseEventTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil
	}
	return &t
}

// DispatchResult is the acknowledgement returned to the push transport.
type DispatchResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Dispatch statuses.
const (
	DispatchStatusOK    = "ok"
	DispatchStatusError = "error"
)
