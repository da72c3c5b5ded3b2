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
	pkgutils "github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/utils"
)

// RetryDelay returns the wait before retry number attempt (1-based): base
// doubled per previous attempt, capped at maxDelay.
func RetryDelay(base, maxDelay time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

// FetchTranscriptRequest describes one fetch attempt.
type FetchTranscriptRequest struct {
	MeetingUID   string
	ConferenceID string
	// DocumentID is known when the attempt is triggered by a transcript-ready event.
	DocumentID string
	// Force runs the attempt even when the retry chain is marked failed.
	Force bool
}

// TranscriptRetriever fetches transcript content after a conference ends and
// drives the capped retry chain of each meeting.
type TranscriptRetriever struct {
	MeetingRepository  domain.MeetingRecordRepository
	SettingsRepository domain.SettingsRepository
	JobScheduler       domain.JobScheduler
	Sources            []TranscriptSource
	Config             ServiceConfig

	now func() time.Time
}

// NewTranscriptRetriever creates a TranscriptRetriever. Sources are tried in order.
func NewTranscriptRetriever(
	meetingRepository domain.MeetingRecordRepository,
	settingsRepository domain.SettingsRepository,
	jobScheduler domain.JobScheduler,
	config ServiceConfig,
	sources ...TranscriptSource,
) *TranscriptRetriever {
	return &TranscriptRetriever{
		MeetingRepository:  meetingRepository,
		SettingsRepository: settingsRepository,
		JobScheduler:       jobScheduler,
		Sources:            sources,
		Config:             config.WithDefaults(),
		now:                time.Now,
	}
}

// ServiceReady checks if the service is ready for use.
func (r *TranscriptRetriever) ServiceReady() bool {
	return r.MeetingRepository != nil &&
		r.SettingsRepository != nil &&
		r.JobScheduler != nil &&
		len(r.Sources) > 0
}

// Fetch runs one attempt. A failed attempt schedules the next one until the
// attempt cap is reached; the returned error is nil in that case because the
// failure is owned by the retry chain.
func (r *TranscriptRetriever) Fetch(ctx context.Context, req FetchTranscriptRequest) error {
	if !r.ServiceReady() {
		slog.ErrorContext(ctx, "transcript retriever not initialized", logging.PriorityCritical())
		return domain.ErrServiceUnavailable
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", req.MeetingUID))

	record, err := r.MeetingRepository.Get(ctx, req.MeetingUID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			slog.InfoContext(ctx, "meeting deleted, stopping transcript retries")
			return nil
		}
		return err
	}
	if record.HasTranscript() && record.Status == models.MeetingStatusTranscriptRetrieved {
		slog.DebugContext(ctx, "transcript already stored")
		return nil
	}
	if record.TranscriptState == models.TranscriptStateFailed && !req.Force {
		slog.InfoContext(ctx, "transcript retries exhausted, skipping",
			"attempts", record.TranscriptAttempts)
		return nil
	}

	settings, _, err := loadSettings(ctx, r.SettingsRepository)
	if err != nil {
		return err
	}

	conferenceID := req.ConferenceID
	if conferenceID == "" {
		conferenceID = record.ConferenceID
	}
	meetCode, _ := utils.SpaceCodeFromLink(record.MeetLink)
	sourceReq := TranscriptRequest{
		ConferenceID: conferenceID,
		MeetCode:     meetCode,
		DocumentID:   req.DocumentID,
	}

	content, fetchErr := r.fetchContent(ctx, settings.CalendarAccount, sourceReq)
	if fetchErr == nil {
		return r.store(ctx, record.UID, conferenceID, content)
	}

	if domain.IsAuthError(fetchErr) {
		slog.ErrorContext(ctx, "transcript fetch not authorized, giving up",
			logging.ErrKey, fetchErr,
			logging.PriorityCritical())
		_, _, err := mutateRecord(ctx, r.MeetingRepository, record.UID, r.now().UTC(), func(m *models.MeetingRecord) bool {
			m.TranscriptState = models.TranscriptStateFailed
			return true
		})
		return err
	}

	return r.scheduleRetry(ctx, record.UID, conferenceID, req.DocumentID, fetchErr)
}

// fetchContent tries each source in turn and returns the first content found.
// An authorization failure stops the walk.
func (r *TranscriptRetriever) fetchContent(ctx context.Context, accountRef string, req TranscriptRequest) (*TranscriptContent, error) {
	var errs []error
	for _, source := range r.Sources {
		content, err := source.Fetch(ctx, accountRef, req)
		if err == nil {
			return content, nil
		}
		if domain.IsAuthError(err) {
			return nil, err
		}
		if errors.Is(err, domain.ErrTranscriptNotReady) {
			slog.DebugContext(ctx, "transcript source has nothing yet",
				"source", source.Name(),
				"reason", err.Error())
		} else {
			slog.WarnContext(ctx, "transcript source failed",
				"source", source.Name(),
				logging.ErrKey, err)
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

func (r *TranscriptRetriever) store(ctx context.Context, uid, conferenceID string, content *TranscriptContent) error {
	now := r.now().UTC()
	_, _, err := mutateRecord(ctx, r.MeetingRepository, uid, now, func(m *models.MeetingRecord) bool {
		m.Transcript = pkgutils.StringPtr(content.Text)
		m.TranscriptFileID = content.FileID
		m.TranscriptURL = content.URL
		m.TranscriptRetrievedAt = pkgutils.TimePtr(now)
		m.TranscriptState = models.TranscriptStateNone
		m.SetConferenceID(conferenceID)
		m.ApplyStatus(models.MeetingStatusTranscriptRetrieved)
		return true
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to store transcript", logging.ErrKey, err)
		return err
	}
	slog.InfoContext(ctx, "transcript stored",
		"source", content.Source,
		"transcript_file_id", content.FileID,
		"length", len(content.Text))
	return nil
}

// scheduleRetry counts the failed attempt and enqueues the next one, or marks
// the chain failed once the cap is reached. The meeting status is left as is.
func (r *TranscriptRetriever) scheduleRetry(ctx context.Context, uid, conferenceID, documentID string, cause error) error {
	record, _, err := mutateRecord(ctx, r.MeetingRepository, uid, r.now().UTC(), func(m *models.MeetingRecord) bool {
		m.TranscriptAttempts++
		if m.TranscriptAttempts >= r.Config.TranscriptMaxAttempts {
			m.TranscriptState = models.TranscriptStateFailed
		} else {
			m.TranscriptState = models.TranscriptStatePending
		}
		return true
	})
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			slog.InfoContext(ctx, "meeting deleted during transcript fetch, stopping retries")
			return nil
		}
		slog.ErrorContext(ctx, "failed to record transcript attempt", logging.ErrKey, err)
		return err
	}

	if record.TranscriptState == models.TranscriptStateFailed {
		slog.ErrorContext(ctx, "transcript retries exhausted",
			"attempts", record.TranscriptAttempts,
			logging.ErrKey, cause,
			logging.PriorityCritical())
		return nil
	}

	delay := RetryDelay(r.Config.TranscriptRetryBaseDelay, r.Config.TranscriptRetryMaxDelay, record.TranscriptAttempts)
	args := models.FetchTranscriptArgs{MeetingUID: uid, ConferenceID: conferenceID, DocumentID: documentID}
	if err := enqueue(ctx, r.JobScheduler, r.Config, models.JobFetchTranscript, args.Map(), delay, ""); err != nil {
		slog.ErrorContext(ctx, "failed to schedule transcript retry", logging.ErrKey, err)
		return err
	}
	slog.InfoContext(ctx, "transcript not available, retry scheduled",
		"attempt", record.TranscriptAttempts,
		"delay", delay.String(),
		"reason", cause.Error())
	return nil
}
