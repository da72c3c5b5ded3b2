// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// JobName identifies a deferred job. The set of names is closed.
type JobName string

const (
	JobSyncMeetLink          JobName = "sync_meet_link"
	JobFetchTranscript       JobName = "fetch_transcript"
	JobProcessCalendarChange JobName = "process_calendar_change"
)

// IsValid reports whether the job name is known.
func (n JobName) IsValid() bool {
	switch n {
	case JobSyncMeetLink, JobFetchTranscript, JobProcessCalendarChange:
		return true
	}
	return false
}

// Job queues.
const (
	QueueShort   = "short"
	QueueDefault = "default"
)

// Job is one deferred invocation carried on the job stream.
type Job struct {
	ID         string         `msgpack:"id"`
	Name       JobName        `msgpack:"name"`
	Args       map[string]any `msgpack:"args"`
	Queue      string         `msgpack:"queue"`
	NotBefore  time.Time      `msgpack:"not_before"`
	EnqueuedAt time.Time      `msgpack:"enqueued_at"`
	Timeout    time.Duration  `msgpack:"timeout"`
	Attempt    int            `msgpack:"attempt"`
}

// NewJob builds a job that becomes runnable after delay.
func NewJob(name JobName, args map[string]any, delay time.Duration) *Job {
	now := time.Now().UTC()
	job := &Job{
		Name:       name,
		Args:       args,
		Queue:      QueueDefault,
		EnqueuedAt: now,
	}
	if delay > 0 {
		job.NotBefore = now.Add(delay)
	}
	return job
}

// Due returns how long the job must still wait at now. Zero means runnable.
func (j *Job) Due(now time.Time) time.Duration {
	if j.NotBefore.IsZero() || !j.NotBefore.After(now) {
		return 0
	}
	return j.NotBefore.Sub(now)
}

// DecodeArgs decodes the job arguments into out, a pointer to one of the
// *Args structs. Numeric widths changed by the wire codec are tolerated.
func (j *Job) DecodeArgs(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(j.Args); err != nil {
		return fmt.Errorf("invalid %s arguments: %w", j.Name, err)
	}
	return nil
}

// SyncMeetLinkArgs are the arguments of the sync_meet_link job.
type SyncMeetLinkArgs struct {
	MeetingUID string `mapstructure:"meeting_uid"`
}

// Map returns the job argument map.
func (a SyncMeetLinkArgs) Map() map[string]any {
	return map[string]any{"meeting_uid": a.MeetingUID}
}

// FetchTranscriptArgs are the arguments of the fetch_transcript job.
type FetchTranscriptArgs struct {
	MeetingUID   string `mapstructure:"meeting_uid"`
	ConferenceID string `mapstructure:"conference_id"`
	DocumentID   string `mapstructure:"document_id"`
}

// Map returns the job argument map.
func (a FetchTranscriptArgs) Map() map[string]any {
	args := map[string]any{"meeting_uid": a.MeetingUID, "conference_id": a.ConferenceID}
	if a.DocumentID != "" {
		args["document_id"] = a.DocumentID
	}
	return args
}

// ProcessCalendarChangeArgs are the arguments of the process_calendar_change job.
type ProcessCalendarChangeArgs struct {
	ChannelID  string `mapstructure:"channel_id"`
	ResourceID string `mapstructure:"resource_id"`
}

// Map returns the job argument map.
func (a ProcessCalendarChangeArgs) Map() map[string]any {
	return map[string]any{"channel_id": a.ChannelID, "resource_id": a.ResourceID}
}
