// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// EventLogStatus is the processing status of an inbound notification.
type EventLogStatus string

const (
	EventLogStatusReceived  EventLogStatus = "Received"
	EventLogStatusProcessed EventLogStatus = "Processed"
	EventLogStatusError     EventLogStatus = "Error"
)

// EventLogEntry is the audit record of one inbound push notification.
//
// Entries are written once per notification. The only later mutations are the
// final status, the resolved meeting reference and clearing that reference
// when the meeting is deleted.
type EventLogEntry struct {
	UID            string         `json:"uid"`
	EventType      string         `json:"event_type"`
	EventID        string         `json:"event_id,omitempty"`
	SubscriptionID string         `json:"subscription_id,omitempty"`
	ReceivedAt     time.Time      `json:"received_at"`
	Status         EventLogStatus `json:"status"`
	SpaceID        string         `json:"space_id,omitempty"`
	ConferenceID   string         `json:"conference_id,omitempty"`
	// MeetingUID is an optional reference; it is set to nil when the meeting is deleted.
	MeetingUID *string `json:"meeting_uid,omitempty"`
	RawPayload string  `json:"raw_payload,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// ClearMeetingReference drops the meeting reference. It returns true if the
// entry changed.
func (e *EventLogEntry) ClearMeetingReference() bool {
	if e.MeetingUID == nil {
		return false
	}
	e.MeetingUID = nil
	return true
}

// Finalize records the outcome of dispatch. Only a Received entry can be finalized.
func (e *EventLogEntry) Finalize(status EventLogStatus, errMsg string) bool {
	if e.Status != EventLogStatusReceived {
		return false
	}
	e.Status = status
	e.Error = errMsg
	return true
}
