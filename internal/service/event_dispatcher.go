// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/utils"
)

// EventDispatcher receives Pub/Sub push bodies, records each one in the event
// log and hands the decoded event to the lifecycle reconciler.
//
// Dispatch never fails at the transport level. Processing failures are only
// visible in the event log and the service logs.
type EventDispatcher struct {
	EventLogRepository domain.EventLogRepository
	MeetingRepository  domain.MeetingRecordRepository
	SettingsRepository domain.SettingsRepository
	Reconciler         *LifecycleReconciler

	now func() time.Time
}

// NewEventDispatcher creates an EventDispatcher.
func NewEventDispatcher(
	eventLogRepository domain.EventLogRepository,
	meetingRepository domain.MeetingRecordRepository,
	settingsRepository domain.SettingsRepository,
	reconciler *LifecycleReconciler,
) *EventDispatcher {
	return &EventDispatcher{
		EventLogRepository: eventLogRepository,
		MeetingRepository:  meetingRepository,
		SettingsRepository: settingsRepository,
		Reconciler:         reconciler,
		now:                time.Now,
	}
}

// ServiceReady checks if the service is ready for use.
func (d *EventDispatcher) ServiceReady() bool {
	return d.EventLogRepository != nil &&
		d.MeetingRepository != nil &&
		d.SettingsRepository != nil &&
		d.Reconciler != nil
}

// Dispatch processes one push body and returns the acknowledgement.
func (d *EventDispatcher) Dispatch(ctx context.Context, body []byte) models.DispatchResult {
	logger := slog.With("component", "event_dispatcher")

	event, err := DecodeEnvelope(body)
	if err != nil {
		logger.WarnContext(ctx, "undecodable push envelope", logging.ErrKey, err)
		d.recordRejected(ctx, string(body), err.Error())
		return models.DispatchResult{Status: models.DispatchStatusError, Message: err.Error()}
	}

	ctx = logging.AppendCtx(ctx, slog.String("event_type", event.Type))
	ctx = logging.AppendCtx(ctx, slog.String("event_id", event.ID))

	if !d.ServiceReady() {
		logger.ErrorContext(ctx, "event dispatcher not initialized", logging.PriorityCritical())
		return models.DispatchResult{Status: models.DispatchStatusOK, Message: "not processed"}
	}

	entry := d.recordEvent(ctx, event)

	handleErr := d.handle(ctx, event)

	status := models.EventLogStatusProcessed
	var errMsg string
	if handleErr != nil {
		status = models.EventLogStatusError
		errMsg = handleErr.Error()
		logger.ErrorContext(ctx, "failed to process event", logging.ErrKey, handleErr)
	}
	d.finalize(ctx, entry, status, errMsg)

	if event.Kind == models.EventKindUnknown {
		return models.DispatchResult{Status: models.DispatchStatusOK, Message: "unhandled event type"}
	}
	return models.DispatchResult{Status: models.DispatchStatusOK}
}

// Reject acknowledges a push whose body could not be read and records it as
// an errored event.
func (d *EventDispatcher) Reject(ctx context.Context, message string, cause error) models.DispatchResult {
	slog.WarnContext(ctx, "push request rejected", "component", "event_dispatcher",
		"reason", message, logging.ErrKey, cause)
	errMsg := message
	if cause != nil {
		errMsg = message + ": " + cause.Error()
	}
	d.recordRejected(ctx, "", errMsg)
	return models.DispatchResult{Status: models.DispatchStatusError, Message: message}
}

// recordRejected stores an errored event log entry for a push that never
// produced an event.
func (d *EventDispatcher) recordRejected(ctx context.Context, rawPayload, errMsg string) {
	if d.EventLogRepository == nil {
		return
	}
	entry := &models.EventLogEntry{
		UID:        uuid.NewString(),
		EventType:  "unknown",
		ReceivedAt: d.now().UTC(),
		Status:     models.EventLogStatusError,
		RawPayload: rawPayload,
		Error:      errMsg,
	}
	if err := d.EventLogRepository.Create(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "failed to record rejected push", logging.ErrKey, err)
	}
}

// handle loads the settings and runs the reconciler, converting a panic into
// an error.
func (d *EventDispatcher) handle(ctx context.Context, event *models.NormalizedEvent) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			slog.ErrorContext(ctx, "event handler panicked",
				"panic", recovered,
				"stack", string(debug.Stack()),
				logging.PriorityCritical())
			err = fmt.Errorf("handler panic: %v", recovered)
		}
	}()

	if event.Kind == models.EventKindUnknown {
		slog.InfoContext(ctx, "unhandled event type")
		return nil
	}

	settings, _, err := loadSettings(ctx, d.SettingsRepository)
	if err != nil {
		return err
	}
	return d.Reconciler.Reconcile(ctx, event, settings)
}

// recordEvent writes the Received entry. A failure is logged and dispatch
// continues; the returned entry is then nil.
func (d *EventDispatcher) recordEvent(ctx context.Context, event *models.NormalizedEvent) *models.EventLogEntry {
	conferenceID := eventConferenceID(event)
	entry := &models.EventLogEntry{
		UID:            uuid.NewString(),
		EventType:      event.Type,
		EventID:        event.ID,
		SubscriptionID: event.Source,
		ReceivedAt:     d.now().UTC(),
		Status:         models.EventLogStatusReceived,
		ConferenceID:   conferenceID,
		RawPayload:     event.Raw,
	}
	if entry.EventType == "" {
		entry.EventType = "unknown"
	}
	if conference := event.Body.ConferenceRecord; conference != nil && conference.Space != "" {
		entry.SpaceID = utils.LastSegment(conference.Space)
	}

	if conferenceID != "" {
		records, err := d.MeetingRepository.ListByConferenceID(ctx, conferenceID)
		if err != nil {
			slog.WarnContext(ctx, "failed to resolve meeting for event log", logging.ErrKey, err)
		} else if len(records) > 0 {
			uid := records[0].UID
			entry.MeetingUID = &uid
		}
	}

	if err := d.EventLogRepository.Create(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "failed to record event", logging.ErrKey, err)
		return nil
	}
	return entry
}

func (d *EventDispatcher) finalize(ctx context.Context, entry *models.EventLogEntry, status models.EventLogStatus, errMsg string) {
	if entry == nil {
		return
	}
	current, revision, err := d.EventLogRepository.GetWithRevision(ctx, entry.UID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load event log entry", "event_log_uid", entry.UID, logging.ErrKey, err)
		return
	}
	if !current.Finalize(status, errMsg) {
		return
	}
	if err := d.EventLogRepository.Update(ctx, current, revision); err != nil {
		slog.ErrorContext(ctx, "failed to finalize event log entry", "event_log_uid", entry.UID, logging.ErrKey, err)
	}
}

// eventConferenceID returns the conference the event belongs to, if any.
func eventConferenceID(event *models.NormalizedEvent) string {
	body := event.Body
	switch {
	case body.ConferenceRecord != nil:
		return utils.ConferenceIDFromResourceName(body.ConferenceRecord.Name)
	case body.ParticipantSession != nil:
		return utils.ConferenceIDFromSessionName(body.ParticipantSession.Name)
	case body.Transcript != nil:
		if id := utils.ConferenceIDFromResourceName(body.Transcript.ConferenceRecord); id != "" {
			return id
		}
		return utils.ConferenceIDFromTranscriptName(body.Transcript.Name)
	case body.Recording != nil:
		if id := utils.ConferenceIDFromResourceName(body.Recording.ConferenceRecord); id != "" {
			return id
		}
		return utils.ConferenceIDFromResourceName(body.Recording.Name)
	}
	return ""
}
