// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/utils"
)

var (
	startedPreciseStatuses  = []models.MeetingStatus{models.MeetingStatusScheduled, models.MeetingStatusInProgress}
	startedFallbackStatuses = []models.MeetingStatus{models.MeetingStatusScheduled}

	endedPreciseStatuses = []models.MeetingStatus{
		models.MeetingStatusScheduled,
		models.MeetingStatusInProgress,
		models.MeetingStatusCompleted,
	}
	endedFallbackStatuses = []models.MeetingStatus{models.MeetingStatusScheduled, models.MeetingStatusInProgress}
)

// LifecycleReconciler applies conference lifecycle events to meeting records.
type LifecycleReconciler struct {
	MeetingRepository domain.MeetingRecordRepository
	JobScheduler      domain.JobScheduler
	Lookup            *MeetingLookup
	Retriever         *TranscriptRetriever
	Config            ServiceConfig

	now func() time.Time
}

// NewLifecycleReconciler creates a LifecycleReconciler.
func NewLifecycleReconciler(
	meetingRepository domain.MeetingRecordRepository,
	jobScheduler domain.JobScheduler,
	lookup *MeetingLookup,
	retriever *TranscriptRetriever,
	config ServiceConfig,
) *LifecycleReconciler {
	return &LifecycleReconciler{
		MeetingRepository: meetingRepository,
		JobScheduler:      jobScheduler,
		Lookup:            lookup,
		Retriever:         retriever,
		Config:            config.WithDefaults(),
		now:               time.Now,
	}
}

// ServiceReady checks if the service is ready for use.
func (r *LifecycleReconciler) ServiceReady() bool {
	return r.MeetingRepository != nil &&
		r.JobScheduler != nil &&
		r.Lookup != nil &&
		r.Retriever != nil
}

// Reconcile handles one decoded event. Every matched record is processed
// even when another fails; the failures are joined.
func (r *LifecycleReconciler) Reconcile(ctx context.Context, event *models.NormalizedEvent, settings *models.IntegrationSettings) error {
	if !r.ServiceReady() {
		slog.ErrorContext(ctx, "lifecycle reconciler not initialized", logging.PriorityCritical())
		return domain.ErrServiceUnavailable
	}
	ctx = logging.AppendCtx(ctx, slog.String("event_kind", event.Kind.String()))

	switch event.Kind {
	case models.EventKindConferenceStarted:
		return r.conferenceStarted(ctx, event)
	case models.EventKindConferenceEnded:
		return r.conferenceEnded(ctx, event, settings)
	case models.EventKindParticipantJoined, models.EventKindParticipantLeft:
		return r.participantChanged(ctx, event)
	case models.EventKindRecordingReady:
		return r.recordingReady(ctx, event)
	case models.EventKindTranscriptReady:
		return r.transcriptReady(ctx, event)
	case models.EventKindUnknown:
		slog.InfoContext(ctx, "unhandled event type", "event_type", event.Type)
		return nil
	default:
		slog.WarnContext(ctx, "event kind has no handler", "event_type", event.Type)
		return nil
	}
}

func (r *LifecycleReconciler) conferenceStarted(ctx context.Context, event *models.NormalizedEvent) error {
	conference := event.Body.ConferenceRecord
	if conference == nil {
		slog.WarnContext(ctx, "conference started event without conference record")
		return nil
	}
	conferenceID := utils.ConferenceIDFromResourceName(conference.Name)

	result, err := r.Lookup.ByConference(ctx, event.Kind, conferenceID, startedPreciseStatuses, startedFallbackStatuses)
	if err != nil {
		return err
	}
	if len(result.Records) == 0 {
		slog.InfoContext(ctx, "no meeting matches started conference", "conference_id", conferenceID)
		return nil
	}

	startedAt := r.eventTime(conference.StartTime)
	var errs []error
	for _, match := range result.Records {
		record, changed, err := mutateRecord(ctx, r.MeetingRepository, match.UID, r.now().UTC(), func(m *models.MeetingRecord) bool {
			if !m.ApplyStatus(models.MeetingStatusInProgress) {
				return false
			}
			m.ActualStartTime = &startedAt
			m.SetConferenceID(conferenceID)
			return true
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to mark meeting in progress", "meeting_uid", match.UID, logging.ErrKey, err)
			errs = append(errs, err)
			continue
		}
		if changed {
			slog.InfoContext(ctx, "meeting in progress",
				"meeting_uid", record.UID,
				"conference_id", conferenceID,
				"lookup_tier", string(result.Tier))
		}
	}
	return errors.Join(errs...)
}

func (r *LifecycleReconciler) conferenceEnded(ctx context.Context, event *models.NormalizedEvent, settings *models.IntegrationSettings) error {
	conference := event.Body.ConferenceRecord
	if conference == nil {
		slog.WarnContext(ctx, "conference ended event without conference record")
		return nil
	}
	conferenceID := utils.ConferenceIDFromResourceName(conference.Name)

	result, err := r.Lookup.ByConference(ctx, event.Kind, conferenceID, endedPreciseStatuses, endedFallbackStatuses)
	if err != nil {
		return err
	}
	if len(result.Records) == 0 {
		slog.InfoContext(ctx, "no meeting matches ended conference", "conference_id", conferenceID)
		return nil
	}

	endedAt := r.eventTime(conference.EndTime)
	delay := settings.TranscriptDelay()
	var errs []error
	for _, match := range result.Records {
		record, changed, err := mutateRecord(ctx, r.MeetingRepository, match.UID, r.now().UTC(), func(m *models.MeetingRecord) bool {
			if !m.ApplyStatus(models.MeetingStatusCompleted) {
				return false
			}
			m.ActualEndTime = &endedAt
			m.SetConferenceID(conferenceID)
			return true
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to mark meeting completed", "meeting_uid", match.UID, logging.ErrKey, err)
			errs = append(errs, err)
			continue
		}
		if !changed {
			continue
		}

		args := models.FetchTranscriptArgs{MeetingUID: record.UID, ConferenceID: record.ConferenceID}
		if err := enqueue(ctx, r.JobScheduler, r.Config, models.JobFetchTranscript, args.Map(), delay, ""); err != nil {
			slog.ErrorContext(ctx, "failed to schedule transcript fetch", "meeting_uid", record.UID, logging.ErrKey, err)
			errs = append(errs, err)
			continue
		}
		slog.InfoContext(ctx, "meeting completed, transcript fetch scheduled",
			"meeting_uid", record.UID,
			"conference_id", record.ConferenceID,
			"lookup_tier", string(result.Tier),
			"delay", delay.String())
	}
	return errors.Join(errs...)
}

// participantChanged only records the event; attendance is not tracked.
func (r *LifecycleReconciler) participantChanged(ctx context.Context, event *models.NormalizedEvent) error {
	session := event.Body.ParticipantSession
	if session == nil {
		slog.DebugContext(ctx, "participant event without session")
		return nil
	}
	conferenceID := utils.ConferenceIDFromSessionName(session.Name)

	result, err := r.Lookup.ByConference(ctx, event.Kind, conferenceID, nil, nil)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "participant session changed",
		"conference_id", conferenceID,
		"session", session.Name,
		"meeting_count", len(result.Records))
	return nil
}

// recordingReady only records the event; the recording file is not stored.
func (r *LifecycleReconciler) recordingReady(ctx context.Context, event *models.NormalizedEvent) error {
	recording := event.Body.Recording
	if recording == nil {
		slog.DebugContext(ctx, "recording event without recording")
		return nil
	}
	conferenceID := utils.ConferenceIDFromResourceName(recording.ConferenceRecord)
	if conferenceID == "" {
		conferenceID = utils.ConferenceIDFromResourceName(recording.Name)
	}
	var fileID string
	if recording.DriveDestination != nil {
		fileID = utils.LastSegment(recording.DriveDestination.File)
	}

	result, err := r.Lookup.ByConferenceOrLink(ctx, conferenceID)
	if err != nil {
		return err
	}
	for _, record := range result.Records {
		slog.InfoContext(ctx, "recording ready",
			"meeting_uid", record.UID,
			"conference_id", conferenceID,
			"recording_file_id", fileID)
	}
	if len(result.Records) == 0 {
		slog.InfoContext(ctx, "no meeting matches recording", "conference_id", conferenceID, "recording_file_id", fileID)
	}
	return nil
}

func (r *LifecycleReconciler) transcriptReady(ctx context.Context, event *models.NormalizedEvent) error {
	transcript := event.Body.Transcript
	if transcript == nil {
		slog.DebugContext(ctx, "transcript event without transcript")
		return nil
	}
	conferenceID := utils.ConferenceIDFromResourceName(transcript.ConferenceRecord)
	if conferenceID == "" {
		conferenceID = utils.ConferenceIDFromTranscriptName(transcript.Name)
	}
	var documentID string
	if transcript.DocsDestination != nil {
		documentID = utils.LastSegment(transcript.DocsDestination.Document)
	}

	result, err := r.Lookup.ByConferenceOrLink(ctx, conferenceID)
	if err != nil {
		return err
	}
	if len(result.Records) == 0 {
		slog.InfoContext(ctx, "no meeting matches transcript", "conference_id", conferenceID)
		return nil
	}

	var errs []error
	for _, record := range result.Records {
		err := r.Retriever.Fetch(ctx, FetchTranscriptRequest{
			MeetingUID:   record.UID,
			ConferenceID: conferenceID,
			DocumentID:   documentID,
			Force:        true,
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// eventTime parses a payload timestamp, falling back to the current time.
func (r *LifecycleReconciler) eventTime(value string) time.Time {
	if t := models.ParseEventTime(value); t != nil {
		return t.UTC()
	}
	return r.now().UTC()
}
