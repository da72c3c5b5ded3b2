// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

type Service interface {
	ServiceReady() bool
}

// ServiceConfig is the configuration for the Services.
type ServiceConfig struct {
	// TranscriptMaxAttempts caps the transcript retry chain of one meeting.
	TranscriptMaxAttempts int
	// TranscriptRetryBaseDelay is the wait before the first retry; each retry doubles it.
	TranscriptRetryBaseDelay time.Duration
	// TranscriptRetryMaxDelay caps the wait between two retries.
	TranscriptRetryMaxDelay time.Duration
	// LinkSyncPolls and LinkSyncInterval bound the wait for the Meet link of a new event.
	LinkSyncPolls    int
	LinkSyncInterval time.Duration
	// FallbackScanLimit bounds how many records a fallback lookup may touch.
	FallbackScanLimit int
	// JobTimeout is the execution timeout attached to enqueued jobs.
	JobTimeout time.Duration
}

// DefaultServiceConfig returns the configuration used when nothing is overridden.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		TranscriptMaxAttempts:    constants.DefaultTranscriptMaxAttempts,
		TranscriptRetryBaseDelay: constants.DefaultTranscriptRetryBaseDelay,
		TranscriptRetryMaxDelay:  constants.DefaultTranscriptRetryMaxDelay,
		LinkSyncPolls:            constants.DefaultLinkSyncPolls,
		LinkSyncInterval:         constants.DefaultLinkSyncInterval,
		FallbackScanLimit:        defaultFallbackScanLimit,
		JobTimeout:               constants.DefaultJobTimeout,
	}
}

// WithDefaults fills every unset field from DefaultServiceConfig.
func (c ServiceConfig) WithDefaults() ServiceConfig {
	d := DefaultServiceConfig()
	if c.TranscriptMaxAttempts <= 0 {
		c.TranscriptMaxAttempts = d.TranscriptMaxAttempts
	}
	if c.TranscriptRetryBaseDelay <= 0 {
		c.TranscriptRetryBaseDelay = d.TranscriptRetryBaseDelay
	}
	if c.TranscriptRetryMaxDelay <= 0 {
		c.TranscriptRetryMaxDelay = d.TranscriptRetryMaxDelay
	}
	if c.LinkSyncPolls <= 0 {
		c.LinkSyncPolls = d.LinkSyncPolls
	}
	if c.LinkSyncInterval <= 0 {
		c.LinkSyncInterval = d.LinkSyncInterval
	}
	if c.FallbackScanLimit <= 0 {
		c.FallbackScanLimit = d.FallbackScanLimit
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = d.JobTimeout
	}
	return c
}

// loadSettings fetches the settings document. A missing document yields the
// zero configuration, which keeps every optional integration disabled.
func loadSettings(ctx context.Context, repo domain.SettingsRepository) (*models.IntegrationSettings, uint64, error) {
	settings, revision, err := repo.GetWithRevision(ctx)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			slog.DebugContext(ctx, "integration settings not configured, using defaults")
			return &models.IntegrationSettings{}, 0, nil
		}
		return nil, 0, err
	}
	return settings, revision, nil
}

// enqueue builds and schedules a job carrying the configured timeout.
func enqueue(ctx context.Context, jobs domain.JobScheduler, config ServiceConfig, name models.JobName, args map[string]any, delay time.Duration, queue string) error {
	job := models.NewJob(name, args, delay)
	job.Timeout = config.JobTimeout
	if queue != "" {
		job.Queue = queue
	}
	return jobs.Enqueue(ctx, job)
}
