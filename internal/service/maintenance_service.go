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
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
	pkgutils "github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/utils"
)

const maintenanceWorkers = 3

// MaintenanceService runs the periodic sweeps that catch up on missed
// notifications.
type MaintenanceService struct {
	MeetingRepository  domain.MeetingRecordRepository
	SettingsRepository domain.SettingsRepository
	JobScheduler       domain.JobScheduler
	CalendarSync       *CalendarSyncService
	Config             ServiceConfig

	pool *concurrent.WorkerPool
	now  func() time.Time
}

// NewMaintenanceService creates a MaintenanceService.
func NewMaintenanceService(
	meetingRepository domain.MeetingRecordRepository,
	settingsRepository domain.SettingsRepository,
	jobScheduler domain.JobScheduler,
	calendarSync *CalendarSyncService,
	config ServiceConfig,
) *MaintenanceService {
	return &MaintenanceService{
		MeetingRepository:  meetingRepository,
		SettingsRepository: settingsRepository,
		JobScheduler:       jobScheduler,
		CalendarSync:       calendarSync,
		Config:             config.WithDefaults(),
		pool:               concurrent.NewWorkerPool(maintenanceWorkers),
		now:                time.Now,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *MaintenanceService) ServiceReady() bool {
	return s.MeetingRepository != nil &&
		s.SettingsRepository != nil &&
		s.JobScheduler != nil &&
		s.CalendarSync != nil
}

// Start runs the sweeps every interval until ctx is done.
func (s *MaintenanceService) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = constants.DefaultMaintenanceInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "maintenance sweeps started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "maintenance sweeps stopped")
			return
		case <-ticker.C:
			if err := s.Run(ctx); err != nil {
				slog.WarnContext(ctx, "maintenance sweep finished with errors", logging.ErrKey, err)
			}
		}
	}
}

// Run executes every sweep once. The sweeps are independent.
func (s *MaintenanceService) Run(ctx context.Context) error {
	if !s.ServiceReady() {
		return domain.ErrServiceUnavailable
	}
	ctx = logging.AppendCtx(ctx, slog.String("component", "maintenance"))

	failed := s.pool.RunAll(ctx,
		concurrent.Step{Name: "complete_ended_meetings", Run: s.CompleteEndedMeetings},
		concurrent.Step{Name: "pending_transcripts", Run: s.CheckPendingTranscripts},
		concurrent.Step{Name: "calendar_watch_renewal", Run: s.CalendarSync.RenewWatchIfNeeded},
	)
	errs := make([]error, 0, len(failed))
	for _, stepErr := range failed {
		slog.ErrorContext(ctx, "maintenance step failed", "step", stepErr.Step, logging.ErrKey, stepErr.Err)
		errs = append(errs, stepErr)
	}
	return errors.Join(errs...)
}

// CompleteEndedMeetings completes scheduled meetings whose end has passed and
// schedules their transcript fetch.
func (s *MaintenanceService) CompleteEndedMeetings(ctx context.Context) error {
	now := s.now().UTC()
	records, err := s.MeetingRepository.ListByStatus(ctx, models.MeetingStatusScheduled)
	if err != nil {
		return err
	}

	var errs []error
	completed := 0
	for _, candidate := range records {
		if !candidate.HasEnded(now) {
			continue
		}
		record, changed, err := mutateRecord(ctx, s.MeetingRepository, candidate.UID, now, func(m *models.MeetingRecord) bool {
			if m.Status != models.MeetingStatusScheduled || !m.HasEnded(now) {
				return false
			}
			return m.ApplyStatus(models.MeetingStatusCompleted)
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !changed {
			continue
		}
		completed++
		args := models.FetchTranscriptArgs{MeetingUID: record.UID, ConferenceID: record.ConferenceID}
		if err := enqueue(ctx, s.JobScheduler, s.Config, models.JobFetchTranscript, args.Map(), 0, ""); err != nil {
			errs = append(errs, err)
		}
	}
	if completed > 0 {
		slog.InfoContext(ctx, "ended meetings completed", "count", completed)
	}
	return errors.Join(errs...)
}

// CheckPendingTranscripts schedules a fetch for recently completed meetings
// that have no transcript and no retry chain running. Meetings still inside
// the initial transcript delay are left to the fetch scheduled on end.
func (s *MaintenanceService) CheckPendingTranscripts(ctx context.Context) error {
	settings, _, err := loadSettings(ctx, s.SettingsRepository)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	oldest := now.Add(-constants.PendingTranscriptWindow)
	newest := now.Add(-settings.TranscriptDelay())

	records, err := s.MeetingRepository.ListByStatus(ctx, models.MeetingStatusCompleted)
	if err != nil {
		return err
	}

	var errs []error
	scheduled := 0
	for _, record := range records {
		if record.HasTranscript() || record.TranscriptState != models.TranscriptStateNone {
			continue
		}
		updatedAt := pkgutils.TimeValue(record.UpdatedAt)
		if updatedAt.IsZero() || updatedAt.Before(oldest) || updatedAt.After(newest) {
			continue
		}
		args := models.FetchTranscriptArgs{MeetingUID: record.UID, ConferenceID: record.ConferenceID}
		if err := enqueue(ctx, s.JobScheduler, s.Config, models.JobFetchTranscript, args.Map(), 0, ""); err != nil {
			errs = append(errs, err)
			continue
		}
		scheduled++
	}
	if scheduled > 0 {
		slog.InfoContext(ctx, "pending transcript fetches scheduled", "count", scheduled)
	}
	return errors.Join(errs...)
}
