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
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

// CalendarSyncService handles calendar push notifications and owns the
// calendar watch channel.
type CalendarSyncService struct {
	MeetingRepository  domain.MeetingRecordRepository
	SettingsRepository domain.SettingsRepository
	Calendar           domain.CalendarClient
	JobScheduler       domain.JobScheduler
	Config             ServiceConfig

	now func() time.Time
}

// NewCalendarSyncService creates a CalendarSyncService.
func NewCalendarSyncService(
	meetingRepository domain.MeetingRecordRepository,
	settingsRepository domain.SettingsRepository,
	calendar domain.CalendarClient,
	jobScheduler domain.JobScheduler,
	config ServiceConfig,
) *CalendarSyncService {
	return &CalendarSyncService{
		MeetingRepository:  meetingRepository,
		SettingsRepository: settingsRepository,
		Calendar:           calendar,
		JobScheduler:       jobScheduler,
		Config:             config.WithDefaults(),
		now:                time.Now,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *CalendarSyncService) ServiceReady() bool {
	return s.MeetingRepository != nil &&
		s.SettingsRepository != nil &&
		s.Calendar != nil &&
		s.JobScheduler != nil
}

// HandleNotification acknowledges a calendar push notification and schedules
// the change processing. The result is always returned with HTTP 200.
func (s *CalendarSyncService) HandleNotification(ctx context.Context, notification models.CalendarNotification) models.DispatchResult {
	logger := slog.With("component", "calendar_sync",
		"channel_id", notification.ChannelID,
		"resource_state", notification.ResourceState)

	if !s.ServiceReady() {
		logger.ErrorContext(ctx, "calendar sync service not initialized", logging.PriorityCritical())
		return models.DispatchResult{Status: models.DispatchStatusError, Message: "service unavailable"}
	}

	settings, _, err := loadSettings(ctx, s.SettingsRepository)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load settings", logging.ErrKey, err)
		return models.DispatchResult{Status: models.DispatchStatusError, Message: err.Error()}
	}
	watch := settings.CalendarWatch
	if watch == nil {
		logger.InfoContext(ctx, "notification without a registered channel ignored")
		return models.DispatchResult{Status: models.DispatchStatusOK, Message: "No active channel"}
	}
	if watch.ChannelID != notification.ChannelID {
		logger.InfoContext(ctx, "notification for an inactive channel ignored")
		return models.DispatchResult{Status: models.DispatchStatusOK, Message: "Unknown channel"}
	}
	if !utils.ChannelTokenMatches(watch.Token, notification.ChannelToken) {
		logger.WarnContext(ctx, "calendar notification with invalid channel token")
		return models.DispatchResult{Status: models.DispatchStatusError, Message: "invalid channel token"}
	}

	switch notification.ResourceState {
	case constants.ResourceStateSync:
		logger.InfoContext(ctx, "calendar watch sync received")
		return models.DispatchResult{Status: models.DispatchStatusOK, Message: "Sync acknowledged"}
	case constants.ResourceStateExists:
		args := models.ProcessCalendarChangeArgs{ChannelID: notification.ChannelID, ResourceID: notification.ResourceID}
		if err := enqueue(ctx, s.JobScheduler, s.Config, models.JobProcessCalendarChange, args.Map(), 0, ""); err != nil {
			logger.ErrorContext(ctx, "failed to schedule calendar change processing", logging.ErrKey, err)
			return models.DispatchResult{Status: models.DispatchStatusError, Message: err.Error()}
		}
		logger.InfoContext(ctx, "calendar change scheduled")
		return models.DispatchResult{Status: models.DispatchStatusOK, Message: "Processing change"}
	default:
		logger.DebugContext(ctx, "calendar notification ignored")
		return models.DispatchResult{Status: models.DispatchStatusOK}
	}
}

// ProcessCalendarChange reconciles the events updated in the last hour with
// their meeting records.
func (s *CalendarSyncService) ProcessCalendarChange(ctx context.Context) error {
	if !s.ServiceReady() {
		return domain.ErrServiceUnavailable
	}
	settings, _, err := loadSettings(ctx, s.SettingsRepository)
	if err != nil {
		return err
	}
	if settings.CalendarAccount == "" {
		slog.WarnContext(ctx, "no calendar account configured, skipping calendar change")
		return nil
	}

	now := s.now().UTC()
	events, err := s.Calendar.ListUpdatedEvents(ctx, settings.CalendarAccount, settings.Calendar(),
		now.Add(-constants.CalendarChangeWindow), constants.CalendarChangeMaxResults)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list updated calendar events", logging.ErrKey, err)
		return err
	}

	var errs []error
	for _, event := range events {
		records, err := s.MeetingRepository.ListByCalendarEventID(ctx, event.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, record := range records {
			if err := s.applyEvent(ctx, settings, record.UID, event, now); err != nil {
				slog.ErrorContext(ctx, "failed to apply calendar event",
					"meeting_uid", record.UID,
					"calendar_event_id", event.ID,
					logging.ErrKey, err)
				errs = append(errs, err)
			}
		}
	}
	slog.DebugContext(ctx, "calendar change processed", "event_count", len(events))
	return errors.Join(errs...)
}

// applyEvent fills a missing Meet link and completes a meeting whose end has
// passed while still scheduled.
func (s *CalendarSyncService) applyEvent(ctx context.Context, settings *models.IntegrationSettings, uid string, event *models.CalendarEvent, now time.Time) error {
	var linkAdded, completed bool
	record, _, err := mutateRecord(ctx, s.MeetingRepository, uid, now, func(m *models.MeetingRecord) bool {
		linkAdded, completed = false, false
		if m.MeetLink == "" && event.MeetLink != "" {
			m.MeetLink = event.MeetLink
			code, _ := utils.SpaceCodeFromLink(event.MeetLink)
			m.SetSpaceID(code)
			linkAdded = true
		}
		ended := m.HasEnded(now)
		if !event.End.IsZero() {
			ended = !now.Before(event.End)
		}
		if ended && (m.Status == models.MeetingStatusScheduled || m.Status == "") {
			m.ApplyStatus(models.MeetingStatusCompleted)
			completed = true
		}
		return linkAdded || completed
	})
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil
		}
		return err
	}

	if linkAdded && settings.EnableMeetEvents {
		args := models.SyncMeetLinkArgs{MeetingUID: uid}
		if err := enqueue(ctx, s.JobScheduler, s.Config, models.JobSyncMeetLink, args.Map(), 0, models.QueueShort); err != nil {
			return err
		}
	}
	if completed {
		args := models.FetchTranscriptArgs{MeetingUID: uid, ConferenceID: record.ConferenceID}
		if err := enqueue(ctx, s.JobScheduler, s.Config, models.JobFetchTranscript, args.Map(), 0, ""); err != nil {
			return err
		}
		slog.InfoContext(ctx, "meeting completed from calendar, transcript fetch scheduled", "meeting_uid", uid)
	}
	return nil
}

// WatchCalendar registers a push channel on the configured calendar,
// replacing the current one.
func (s *CalendarSyncService) WatchCalendar(ctx context.Context) (*models.CalendarWatch, error) {
	if !s.ServiceReady() {
		return nil, domain.ErrServiceUnavailable
	}
	settings, revision, err := loadSettings(ctx, s.SettingsRepository)
	if err != nil {
		return nil, err
	}
	if settings.CalendarAccount == "" {
		return nil, domain.NewAuthError("no Google calendar account is configured; connect one in the integration settings")
	}
	if settings.WebhookBaseURL == "" {
		return nil, domain.NewValidationError("webhook_base_url must be set before watching the calendar")
	}

	token, err := utils.NewChannelToken()
	if err != nil {
		return nil, domain.NewInternalError("failed to generate channel token", err)
	}
	now := s.now().UTC()
	requested := &models.CalendarChannel{
		ID:         utils.NewChannelID(),
		Address:    settings.CalendarWebhookURL(),
		Token:      token,
		Expiration: now.Add(constants.CalendarWatchTTL),
	}
	channel, err := s.Calendar.Watch(ctx, settings.CalendarAccount, settings.Calendar(), requested)
	if err != nil {
		slog.ErrorContext(ctx, "failed to watch calendar", logging.ErrKey, err)
		return nil, err
	}

	previous := settings.CalendarWatch
	expiration := channel.Expiration
	if expiration.IsZero() {
		expiration = requested.Expiration
	}
	settings.CalendarWatch = &models.CalendarWatch{
		ChannelID:  requested.ID,
		ResourceID: channel.ResourceID,
		Expiration: expiration,
		Token:      token,
	}
	settings.UpdatedAt = &now
	if err := s.SettingsRepository.Put(ctx, settings, revision); err != nil {
		slog.ErrorContext(ctx, "failed to store calendar watch, stopping new channel", logging.ErrKey, err)
		if stopErr := s.Calendar.StopChannel(ctx, settings.CalendarAccount, requested.ID, channel.ResourceID); stopErr != nil {
			slog.WarnContext(ctx, "failed to stop unsaved channel", logging.ErrKey, stopErr)
		}
		return nil, err
	}
	slog.InfoContext(ctx, "calendar watch registered",
		"channel_id", requested.ID,
		"expiration", expiration)

	if previous != nil {
		if err := s.Calendar.StopChannel(ctx, settings.CalendarAccount, previous.ChannelID, previous.ResourceID); err != nil {
			slog.WarnContext(ctx, "failed to stop previous calendar channel",
				"channel_id", previous.ChannelID,
				logging.ErrKey, err)
		}
	}
	return settings.CalendarWatch, nil
}

// StopWatch stops the active calendar channel.
func (s *CalendarSyncService) StopWatch(ctx context.Context) error {
	if !s.ServiceReady() {
		return domain.ErrServiceUnavailable
	}
	settings, revision, err := loadSettings(ctx, s.SettingsRepository)
	if err != nil {
		return err
	}
	watch := settings.CalendarWatch
	if watch == nil {
		return domain.NewNotFoundError("no calendar watch is active")
	}
	if err := s.Calendar.StopChannel(ctx, settings.CalendarAccount, watch.ChannelID, watch.ResourceID); err != nil {
		slog.ErrorContext(ctx, "failed to stop calendar channel", logging.ErrKey, err)
		return err
	}

	now := s.now().UTC()
	settings.CalendarWatch = nil
	settings.UpdatedAt = &now
	if err := s.SettingsRepository.Put(ctx, settings, revision); err != nil {
		return err
	}
	slog.InfoContext(ctx, "calendar watch stopped", "channel_id", watch.ChannelID)
	return nil
}

// RenewWatchIfNeeded keeps the calendar channel alive while the calendar
// webhook is enabled.
func (s *CalendarSyncService) RenewWatchIfNeeded(ctx context.Context) error {
	if !s.ServiceReady() {
		return domain.ErrServiceUnavailable
	}
	settings, _, err := loadSettings(ctx, s.SettingsRepository)
	if err != nil {
		return err
	}
	if !settings.EnableCalendarWebhook {
		return nil
	}
	if settings.CalendarWatch != nil && !settings.CalendarWatch.NeedsRenewal(s.now().UTC(), constants.CalendarWatchRenewBefore) {
		return nil
	}
	_, err = s.WatchCalendar(ctx)
	return err
}
