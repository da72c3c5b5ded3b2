// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/utils"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
	pkgutils "github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/utils"
)

const deleteCascadeWorkers = 3

var errMeetLinkPending = errors.New("meet link not assigned yet")

// MeetingController owns the meeting record boundary: creation with a
// conferencing-enabled calendar event, calendar mirroring on update, the
// delete cascade and the per-meeting subscription.
type MeetingController struct {
	MeetingRepository  domain.MeetingRecordRepository
	EventLogRepository domain.EventLogRepository
	SettingsRepository domain.SettingsRepository
	Calendar           domain.CalendarClient
	Subscriptions      *SubscriptionManager
	JobScheduler       domain.JobScheduler
	Config             ServiceConfig

	pool *concurrent.WorkerPool
	now  func() time.Time
}

// NewMeetingController creates a MeetingController.
func NewMeetingController(
	meetingRepository domain.MeetingRecordRepository,
	eventLogRepository domain.EventLogRepository,
	settingsRepository domain.SettingsRepository,
	calendar domain.CalendarClient,
	subscriptions *SubscriptionManager,
	jobScheduler domain.JobScheduler,
	config ServiceConfig,
) *MeetingController {
	return &MeetingController{
		MeetingRepository:  meetingRepository,
		EventLogRepository: eventLogRepository,
		SettingsRepository: settingsRepository,
		Calendar:           calendar,
		Subscriptions:      subscriptions,
		JobScheduler:       jobScheduler,
		Config:             config.WithDefaults(),
		pool:               concurrent.NewWorkerPool(deleteCascadeWorkers),
		now:                time.Now,
	}
}

// ServiceReady checks if the service is ready for use.
func (c *MeetingController) ServiceReady() bool {
	return c.MeetingRepository != nil &&
		c.EventLogRepository != nil &&
		c.SettingsRepository != nil &&
		c.Calendar != nil &&
		c.Subscriptions != nil &&
		c.JobScheduler != nil
}

// Create validates the record, creates its calendar event and stores it.
// The Meet link is synced by a background job when Google has not assigned
// it yet.
func (c *MeetingController) Create(ctx context.Context, record *models.MeetingRecord) (*models.MeetingRecord, error) {
	if !c.ServiceReady() {
		slog.ErrorContext(ctx, "meeting controller not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}
	if record == nil {
		return nil, domain.NewValidationError("meeting is required")
	}
	if err := record.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error(), domain.ErrValidationFailed)
	}
	if err := record.CalculateDuration(); err != nil {
		return nil, domain.NewValidationError(err.Error(), domain.ErrValidationFailed)
	}

	settings, _, err := loadSettings(ctx, c.SettingsRepository)
	if err != nil {
		return nil, err
	}
	if settings.CalendarAccount == "" {
		return nil, domain.NewAuthError("no Google calendar account is configured; connect one in the integration settings")
	}

	event, err := calendarEventFrom(record)
	if err != nil {
		return nil, err
	}
	created, err := c.Calendar.InsertEvent(ctx, settings.CalendarAccount, settings.Calendar(), event)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create calendar event", logging.ErrKey, err)
		return nil, err
	}

	now := c.now().UTC()
	record.UID = uuid.NewString()
	record.Status = models.MeetingStatusScheduled
	record.CalendarEventID = created.ID
	record.MeetLink = created.MeetLink
	if code, ok := utils.SpaceCodeFromLink(created.MeetLink); ok {
		record.SpaceID = code
	}
	record.CreatedAt = &now
	record.UpdatedAt = &now

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", record.UID))
	if err := c.MeetingRepository.Create(ctx, record); err != nil {
		slog.ErrorContext(ctx, "failed to store meeting, removing calendar event", logging.ErrKey, err)
		if delErr := c.Calendar.DeleteEvent(ctx, settings.CalendarAccount, settings.Calendar(), created.ID); delErr != nil {
			slog.ErrorContext(ctx, "failed to remove orphaned calendar event",
				"calendar_event_id", created.ID,
				logging.ErrKey, delErr)
		}
		return nil, err
	}
	slog.InfoContext(ctx, "meeting created",
		"calendar_event_id", record.CalendarEventID,
		"meet_link", record.MeetLink)

	if record.MeetLink != "" {
		if updated := c.ensureSubscription(ctx, settings, record.UID); updated != nil {
			record = updated
		}
		return record, nil
	}

	args := models.SyncMeetLinkArgs{MeetingUID: record.UID}
	if err := enqueue(ctx, c.JobScheduler, c.Config, models.JobSyncMeetLink, args.Map(), 0, models.QueueShort); err != nil {
		slog.ErrorContext(ctx, "failed to schedule meet link sync", logging.ErrKey, err)
	}
	return record, nil
}

// SyncMeetLink waits for Google to assign the Meet link of the meeting's
// calendar event, stores it and subscribes to the space.
func (c *MeetingController) SyncMeetLink(ctx context.Context, uid string) error {
	if !c.ServiceReady() {
		return domain.ErrServiceUnavailable
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", uid))

	record, err := c.MeetingRepository.Get(ctx, uid)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			slog.InfoContext(ctx, "meeting deleted before link sync")
			return nil
		}
		return err
	}
	settings, _, err := loadSettings(ctx, c.SettingsRepository)
	if err != nil {
		return err
	}

	link := record.MeetLink
	if link == "" {
		if record.CalendarEventID == "" {
			slog.WarnContext(ctx, "meeting has no calendar event, cannot sync link")
			return nil
		}
		link, err = c.pollMeetLink(ctx, settings, record.CalendarEventID)
		if err != nil {
			if errors.Is(err, errMeetLinkPending) {
				slog.ErrorContext(ctx, "meet link not assigned after polling",
					"polls", c.Config.LinkSyncPolls,
					"calendar_event_id", record.CalendarEventID)
				return nil
			}
			return err
		}
	}

	code, _ := utils.SpaceCodeFromLink(link)
	_, changed, err := mutateRecord(ctx, c.MeetingRepository, uid, c.now().UTC(), func(m *models.MeetingRecord) bool {
		changed := false
		if m.MeetLink == "" {
			m.MeetLink = link
			changed = true
		}
		if m.SetSpaceID(code) {
			changed = true
		}
		return changed
	})
	if err != nil {
		return err
	}
	if changed {
		slog.InfoContext(ctx, "meet link synced", "meet_link", link, "space_id", code)
	}

	c.ensureSubscription(ctx, settings, uid)
	return nil
}

func (c *MeetingController) pollMeetLink(ctx context.Context, settings *models.IntegrationSettings, eventID string) (string, error) {
	poll := func() (string, error) {
		event, err := c.Calendar.GetEvent(ctx, settings.CalendarAccount, settings.Calendar(), eventID)
		if err != nil {
			if domain.IsAuthError(err) || domain.GetErrorType(err) == domain.ErrorTypeNotFound {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		if event.MeetLink == "" {
			return "", errMeetLinkPending
		}
		return event.MeetLink, nil
	}
	return backoff.Retry(ctx, poll,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.Config.LinkSyncInterval)),
		backoff.WithMaxTries(uint(c.Config.LinkSyncPolls)),
	)
}

// ensureSubscription subscribes to the meeting's space when Meet events are
// enabled and no subscription is recorded. Failures are logged only; the
// meeting stays usable without a subscription.
func (c *MeetingController) ensureSubscription(ctx context.Context, settings *models.IntegrationSettings, uid string) *models.MeetingRecord {
	if !settings.EnableMeetEvents || settings.PubSubTopic == "" {
		return nil
	}
	record, err := c.MeetingRepository.Get(ctx, uid)
	if err != nil {
		slog.WarnContext(ctx, "failed to load meeting for subscription", logging.ErrKey, err)
		return nil
	}
	if record.HasSubscription() {
		return nil
	}
	code := record.SpaceID
	if code == "" {
		code, _ = utils.SpaceCodeFromLink(record.MeetLink)
	}
	if code == "" {
		return nil
	}

	subscription, err := c.Subscriptions.Create(ctx, settings.CalendarAccount, models.SpaceTarget{Code: code}, constants.MeetEventTypes, settings.PubSubTopic)
	if err != nil {
		slog.ErrorContext(ctx, "meeting continues without a space subscription", logging.ErrKey, err)
		return nil
	}
	updated, err := c.storeSubscription(ctx, uid, subscription)
	if err != nil {
		slog.ErrorContext(ctx, "failed to store space subscription",
			"subscription_id", subscription.Name,
			logging.ErrKey, err)
		return nil
	}
	return updated
}

func (c *MeetingController) storeSubscription(ctx context.Context, uid string, subscription *models.Subscription) (*models.MeetingRecord, error) {
	record, _, err := mutateRecord(ctx, c.MeetingRepository, uid, c.now().UTC(), func(m *models.MeetingRecord) bool {
		if pkgutils.StringValue(m.SubscriptionID) == subscription.Name {
			return false
		}
		m.SubscriptionID = pkgutils.StringPtr(subscription.Name)
		m.SubscriptionState = subscription.State
		return true
	})
	return record, err
}

// Get returns a meeting record and its revision.
func (c *MeetingController) Get(ctx context.Context, uid string) (*models.MeetingRecord, uint64, error) {
	if !c.ServiceReady() {
		return nil, 0, domain.ErrServiceUnavailable
	}
	return c.MeetingRepository.GetWithRevision(ctx, uid)
}

// Update applies the update under optimistic concurrency. A revision of 0
// skips the check. Scheduling changes are pushed to the calendar event.
func (c *MeetingController) Update(ctx context.Context, uid string, revision uint64, update *models.MeetingRecordUpdate) (*models.MeetingRecord, error) {
	if !c.ServiceReady() {
		return nil, domain.ErrServiceUnavailable
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", uid))

	record, current, err := c.MeetingRepository.GetWithRevision(ctx, uid)
	if err != nil {
		return nil, err
	}
	if revision != 0 && revision != current {
		return nil, domain.NewConflictError("meeting has been modified", domain.ErrRevisionMismatch)
	}

	previous := *record
	update.ApplyTo(record)
	if err := record.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error(), domain.ErrValidationFailed)
	}
	if err := record.CalculateDuration(); err != nil {
		return nil, domain.NewValidationError(err.Error(), domain.ErrValidationFailed)
	}

	if record.CalendarEventID != "" && record.CalendarFieldsChanged(&previous) {
		settings, _, err := loadSettings(ctx, c.SettingsRepository)
		if err != nil {
			return nil, err
		}
		event, err := calendarEventFrom(record)
		if err != nil {
			return nil, err
		}
		event.ID = record.CalendarEventID
		if _, err := c.Calendar.PatchEvent(ctx, settings.CalendarAccount, settings.Calendar(), event); err != nil {
			slog.ErrorContext(ctx, "failed to update calendar event", logging.ErrKey, err)
			return nil, err
		}
		slog.DebugContext(ctx, "calendar event updated", "calendar_event_id", record.CalendarEventID)
	}

	now := c.now().UTC()
	record.UpdatedAt = &now
	if err := c.MeetingRepository.Update(ctx, record, current); err != nil {
		return nil, err
	}
	return record, nil
}

// Delete removes the meeting after running the cascade. Each cascade step
// runs independently and its failure is only logged.
func (c *MeetingController) Delete(ctx context.Context, uid string, revision uint64) error {
	if !c.ServiceReady() {
		return domain.ErrServiceUnavailable
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", uid))

	record, current, err := c.MeetingRepository.GetWithRevision(ctx, uid)
	if err != nil {
		return err
	}
	if revision != 0 && revision != current {
		return domain.NewConflictError("meeting has been modified", domain.ErrRevisionMismatch)
	}

	settings, _, err := loadSettings(ctx, c.SettingsRepository)
	if err != nil {
		slog.WarnContext(ctx, "settings unavailable, skipping external cleanup", logging.ErrKey, err)
		settings = nil
	}

	steps := []concurrent.Step{
		{
			Name: "event_log_references",
			Run: func(ctx context.Context) error {
				cleared, err := c.EventLogRepository.ClearMeetingReference(ctx, uid)
				if err == nil && cleared > 0 {
					slog.DebugContext(ctx, "event log references cleared", "count", cleared)
				}
				return err
			},
		},
	}
	if settings != nil && record.CalendarEventID != "" {
		steps = append(steps, concurrent.Step{
			Name: "calendar_event",
			Run: func(ctx context.Context) error {
				return c.Calendar.DeleteEvent(ctx, settings.CalendarAccount, settings.Calendar(), record.CalendarEventID)
			},
		})
	}
	if settings != nil && record.HasSubscription() {
		subscriptionID := pkgutils.StringValue(record.SubscriptionID)
		steps = append(steps, concurrent.Step{
			Name: "subscription",
			Run: func(ctx context.Context) error {
				return c.Subscriptions.Delete(ctx, settings.CalendarAccount, subscriptionID)
			},
		})
	}

	for _, stepErr := range c.pool.RunAll(ctx, steps...) {
		slog.ErrorContext(ctx, "meeting delete cascade step failed",
			"step", stepErr.Step,
			logging.ErrKey, stepErr.Err)
	}

	if err := c.MeetingRepository.Delete(ctx, uid, current); err != nil {
		slog.ErrorContext(ctx, "failed to delete meeting", logging.ErrKey, err)
		return err
	}
	slog.InfoContext(ctx, "meeting deleted")
	return nil
}

// FetchTranscriptNow restarts the transcript retry chain immediately.
func (c *MeetingController) FetchTranscriptNow(ctx context.Context, uid string) error {
	if !c.ServiceReady() {
		return domain.ErrServiceUnavailable
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", uid))

	record, _, err := mutateRecord(ctx, c.MeetingRepository, uid, c.now().UTC(), func(m *models.MeetingRecord) bool {
		m.TranscriptAttempts = 0
		m.TranscriptState = models.TranscriptStateNone
		return true
	})
	if err != nil {
		return err
	}
	if record.ConferenceID == "" && record.MeetLink == "" {
		return domain.NewValidationError("meeting has no conference to fetch a transcript from")
	}

	args := models.FetchTranscriptArgs{MeetingUID: uid, ConferenceID: record.ConferenceID}
	if err := enqueue(ctx, c.JobScheduler, c.Config, models.JobFetchTranscript, args.Map(), 0, ""); err != nil {
		slog.ErrorContext(ctx, "failed to schedule transcript fetch", logging.ErrKey, err)
		return domain.NewUnavailableError("could not schedule the transcript fetch", err)
	}
	slog.InfoContext(ctx, "transcript fetch scheduled")
	return nil
}

// CreateSubscription subscribes to the meeting's space on request.
func (c *MeetingController) CreateSubscription(ctx context.Context, uid string) (*models.MeetingRecord, error) {
	if !c.ServiceReady() {
		return nil, domain.ErrServiceUnavailable
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", uid))

	record, err := c.MeetingRepository.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if record.HasSubscription() {
		return nil, domain.NewConflictError("meeting already has a subscription")
	}
	settings, _, err := loadSettings(ctx, c.SettingsRepository)
	if err != nil {
		return nil, err
	}
	if settings.PubSubTopic == "" {
		return nil, domain.NewValidationError("configure a Pub/Sub topic in the integration settings first")
	}
	code := record.SpaceID
	if code == "" {
		code, _ = utils.SpaceCodeFromLink(record.MeetLink)
	}
	if code == "" {
		return nil, domain.NewValidationError("meeting has no Meet link yet")
	}

	subscription, err := c.Subscriptions.Create(ctx, settings.CalendarAccount, models.SpaceTarget{Code: code}, constants.MeetEventTypes, settings.PubSubTopic)
	if err != nil {
		return nil, err
	}
	return c.storeSubscription(ctx, uid, subscription)
}

// SubscriptionStatus refreshes and returns the state of the meeting's
// subscription. Lookup failures other than authorization report UNKNOWN.
func (c *MeetingController) SubscriptionStatus(ctx context.Context, uid string) (*models.SubscriptionStatus, error) {
	if !c.ServiceReady() {
		return nil, domain.ErrServiceUnavailable
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", uid))

	record, err := c.MeetingRepository.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !record.HasSubscription() {
		return nil, domain.NewNotFoundError("no subscription found for this meeting")
	}
	settings, _, err := loadSettings(ctx, c.SettingsRepository)
	if err != nil {
		return nil, err
	}

	subscriptionID := pkgutils.StringValue(record.SubscriptionID)
	state, err := c.Subscriptions.Status(ctx, settings.CalendarAccount, subscriptionID)
	if err != nil {
		if domain.IsAuthError(err) {
			return nil, err
		}
		slog.WarnContext(ctx, "failed to get subscription state", logging.ErrKey, err)
		state = constants.SubscriptionStateUnknown
	}

	if state != record.SubscriptionState {
		if _, _, err := mutateRecord(ctx, c.MeetingRepository, uid, c.now().UTC(), func(m *models.MeetingRecord) bool {
			m.SubscriptionState = state
			return true
		}); err != nil {
			slog.WarnContext(ctx, "failed to store subscription state", logging.ErrKey, err)
		}
	}
	return &models.SubscriptionStatus{SubscriptionID: subscriptionID, State: state}, nil
}

// calendarEventFrom builds the calendar event mirrored from a record.
func calendarEventFrom(record *models.MeetingRecord) (*models.CalendarEvent, error) {
	start, end, err := record.ScheduledWindow()
	if err != nil {
		return nil, domain.NewValidationError(err.Error(), domain.ErrValidationFailed)
	}
	timezone := record.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	return &models.CalendarEvent{
		Summary:     record.Title,
		Description: record.Description,
		Start:       start,
		End:         end,
		TimeZone:    timezone,
		Attendees:   record.Attendees,
		Recurrence:  record.RecurrenceRules(),
	}, nil
}
