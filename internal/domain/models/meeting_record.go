// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Layouts used by the scheduling fields of a meeting record.
const (
	MeetingDateLayout = "2006-01-02"
	MeetingTimeLayout = "15:04"
)

// MeetingStatus is the lifecycle status of a meeting record.
type MeetingStatus string

// Meeting statuses, in lifecycle order.
const (
	MeetingStatusScheduled           MeetingStatus = "Scheduled"
	MeetingStatusInProgress          MeetingStatus = "In Progress"
	MeetingStatusCompleted           MeetingStatus = "Completed"
	MeetingStatusTranscriptRetrieved MeetingStatus = "Transcript Retrieved"
)

// Rank returns the position of the status in the lifecycle, or -1 when the
// status is unknown.
func (s MeetingStatus) Rank() int {
	switch s {
	case MeetingStatusScheduled:
		return 0
	case MeetingStatusInProgress:
		return 1
	case MeetingStatusCompleted:
		return 2
	case MeetingStatusTranscriptRetrieved:
		return 3
	default:
		return -1
	}
}

// IsValid reports whether the status is one of the known statuses.
func (s MeetingStatus) IsValid() bool {
	return s.Rank() >= 0
}

// CanTransitionTo reports whether moving from s to next keeps the lifecycle
// monotonic. Re-applying the current status is allowed.
func (s MeetingStatus) CanTransitionTo(next MeetingStatus) bool {
	if !next.IsValid() {
		return false
	}
	return next.Rank() >= s.Rank()
}

// TranscriptState tracks the transcript retry chain of a meeting record.
type TranscriptState string

const (
	TranscriptStateNone    TranscriptState = ""
	TranscriptStatePending TranscriptState = "pending"
	TranscriptStateFailed  TranscriptState = "failed"
)

// MeetingRecord is the key-value store representation of a Google Meet backed meeting.
type MeetingRecord struct {
	UID         string   `json:"uid"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
	MeetingDate string   `json:"meeting_date"` // YYYY-MM-DD
	StartTime   string   `json:"start_time"`   // HH:MM
	EndTime     string   `json:"end_time"`     // HH:MM
	Timezone    string   `json:"timezone,omitempty"`
	Duration    int      `json:"duration"` // minutes, computed
	Recurrence  string   `json:"recurrence,omitempty"`

	Status          MeetingStatus `json:"status"`
	MeetLink        string        `json:"meet_link,omitempty"`
	CalendarEventID string        `json:"calendar_event_id,omitempty"`
	ConferenceID    string        `json:"conference_id,omitempty"`
	SpaceID         string        `json:"space_id,omitempty"`

	Transcript            *string         `json:"transcript,omitempty"`
	TranscriptFileID      string          `json:"transcript_file_id,omitempty"`
	TranscriptURL         string          `json:"transcript_url,omitempty"`
	TranscriptRetrievedAt *time.Time      `json:"transcript_retrieved_at,omitempty"`
	TranscriptAttempts    int             `json:"transcript_attempts,omitempty"`
	TranscriptState       TranscriptState `json:"transcript_state,omitempty"`

	SubscriptionID    *string `json:"subscription_id,omitempty"`
	SubscriptionState string  `json:"subscription_state,omitempty"`

	ActualStartTime *time.Time `json:"actual_start_time,omitempty"`
	ActualEndTime   *time.Time `json:"actual_end_time,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// ComputeDuration returns the number of minutes between two HH:MM clock
// times. An end time earlier than the start time is treated as the next day.
func ComputeDuration(startTime, endTime string) (int, error) {
	start, err := time.Parse(MeetingTimeLayout, startTime)
	if err != nil {
		return 0, fmt.Errorf("invalid start time %q: %w", startTime, err)
	}
	end, err := time.Parse(MeetingTimeLayout, endTime)
	if err != nil {
		return 0, fmt.Errorf("invalid end time %q: %w", endTime, err)
	}
	if end.Before(start) {
		end = end.Add(24 * time.Hour)
	}
	return int(end.Sub(start).Minutes()), nil
}

// CalculateDuration recomputes the Duration field from the start and end times.
func (m *MeetingRecord) CalculateDuration() error {
	if m.StartTime == "" || m.EndTime == "" {
		return nil
	}
	d, err := ComputeDuration(m.StartTime, m.EndTime)
	if err != nil {
		return err
	}
	m.Duration = d
	return nil
}

// Location returns the meeting's time zone, falling back to UTC.
func (m *MeetingRecord) Location() *time.Location {
	if m.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ScheduledWindow returns the scheduled start and end instants. An overnight
// meeting ends on the day after MeetingDate.
func (m *MeetingRecord) ScheduledWindow() (time.Time, time.Time, error) {
	loc := m.Location()
	start, err := time.ParseInLocation(MeetingDateLayout+" "+MeetingTimeLayout, m.MeetingDate+" "+m.StartTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %w", err)
	}
	end, err := time.ParseInLocation(MeetingDateLayout+" "+MeetingTimeLayout, m.MeetingDate+" "+m.EndTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %w", err)
	}
	if end.Before(start) {
		end = end.Add(24 * time.Hour)
	}
	return start, end, nil
}

// HasEnded reports whether the scheduled end has passed at now.
func (m *MeetingRecord) HasEnded(now time.Time) bool {
	_, end, err := m.ScheduledWindow()
	if err != nil {
		return false
	}
	return !now.Before(end)
}

// Validate checks the fields an external caller must supply.
func (m *MeetingRecord) Validate() error {
	var errs []error
	if strings.TrimSpace(m.Title) == "" {
		errs = append(errs, errors.New("title is required"))
	}
	if _, err := time.Parse(MeetingDateLayout, m.MeetingDate); err != nil {
		errs = append(errs, fmt.Errorf("meeting_date must be YYYY-MM-DD: %q", m.MeetingDate))
	}
	if _, err := time.Parse(MeetingTimeLayout, m.StartTime); err != nil {
		errs = append(errs, fmt.Errorf("start_time must be HH:MM: %q", m.StartTime))
	}
	if _, err := time.Parse(MeetingTimeLayout, m.EndTime); err != nil {
		errs = append(errs, fmt.Errorf("end_time must be HH:MM: %q", m.EndTime))
	}
	if m.Timezone != "" {
		if _, err := time.LoadLocation(m.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("unknown timezone %q", m.Timezone))
		}
	}
	for _, attendee := range m.Attendees {
		if _, err := mail.ParseAddress(attendee); err != nil {
			errs = append(errs, fmt.Errorf("invalid attendee email %q", attendee))
		}
	}
	if m.Recurrence != "" {
		if _, err := rrule.StrToRRule(strings.TrimPrefix(m.Recurrence, "RRULE:")); err != nil {
			errs = append(errs, fmt.Errorf("invalid recurrence: %w", err))
		}
	}
	if m.Status != "" && !m.Status.IsValid() {
		errs = append(errs, fmt.Errorf("unknown status %q", m.Status))
	}
	return errors.Join(errs...)
}

// RecurrenceRules returns the recurrence in the form the calendar API expects.
func (m *MeetingRecord) RecurrenceRules() []string {
	if m.Recurrence == "" {
		return nil
	}
	if strings.HasPrefix(m.Recurrence, "RRULE:") {
		return []string{m.Recurrence}
	}
	return []string{"RRULE:" + m.Recurrence}
}

// ApplyStatus moves the record to next if doing so keeps the lifecycle
// monotonic. It returns false and leaves the record untouched otherwise.
func (m *MeetingRecord) ApplyStatus(next MeetingStatus) bool {
	current := m.Status
	if current == "" {
		current = MeetingStatusScheduled
	}
	if !current.CanTransitionTo(next) {
		return false
	}
	m.Status = next
	return true
}

// SetConferenceID fills the conference id. A non-empty id is never replaced
// by an empty one.
func (m *MeetingRecord) SetConferenceID(id string) bool {
	if id == "" || m.ConferenceID != "" {
		return false
	}
	m.ConferenceID = id
	return true
}

// SetSpaceID fills the space id. A non-empty id is never replaced by an empty one.
func (m *MeetingRecord) SetSpaceID(id string) bool {
	if id == "" || m.SpaceID != "" {
		return false
	}
	m.SpaceID = id
	return true
}

// HasSubscription reports whether a Workspace Events subscription is recorded.
func (m *MeetingRecord) HasSubscription() bool {
	return m.SubscriptionID != nil && *m.SubscriptionID != ""
}

// HasTranscript reports whether transcript text has been stored.
func (m *MeetingRecord) HasTranscript() bool {
	return m.Transcript != nil && *m.Transcript != ""
}

// CalendarFieldsChanged reports whether any field mirrored on the calendar
// event differs between m and other.
func (m *MeetingRecord) CalendarFieldsChanged(other *MeetingRecord) bool {
	if other == nil {
		return true
	}
	return m.Title != other.Title ||
		m.Description != other.Description ||
		m.MeetingDate != other.MeetingDate ||
		m.StartTime != other.StartTime ||
		m.EndTime != other.EndTime
}

// MeetingRecordUpdate carries the caller-editable fields of a meeting record.
type MeetingRecordUpdate struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
	MeetingDate *string  `json:"meeting_date,omitempty"`
	StartTime   *string  `json:"start_time,omitempty"`
	EndTime     *string  `json:"end_time,omitempty"`
	Timezone    *string  `json:"timezone,omitempty"`
	Recurrence  *string  `json:"recurrence,omitempty"`
}

// ApplyTo copies the set fields of the update onto record.
func (u *MeetingRecordUpdate) ApplyTo(record *MeetingRecord) {
	if u == nil || record == nil {
		return
	}
	if u.Title != nil {
		record.Title = *u.Title
	}
	if u.Description != nil {
		record.Description = *u.Description
	}
	if u.Attendees != nil {
		record.Attendees = u.Attendees
	}
	if u.MeetingDate != nil {
		record.MeetingDate = *u.MeetingDate
	}
	if u.StartTime != nil {
		record.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		record.EndTime = *u.EndTime
	}
	if u.Timezone != nil {
		record.Timezone = *u.Timezone
	}
	if u.Recurrence != nil {
		record.Recurrence = *u.Recurrence
	}
}
