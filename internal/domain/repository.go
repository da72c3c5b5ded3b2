// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
)

// MeetingRecordRepository defines the interface for meeting record storage operations.
// This interface can be implemented by different storage backends (NATS, PostgreSQL, etc.)
type MeetingRecordRepository interface {
	Create(ctx context.Context, record *models.MeetingRecord) error
	Exists(ctx context.Context, uid string) (bool, error)
	Get(ctx context.Context, uid string) (*models.MeetingRecord, error)
	GetWithRevision(ctx context.Context, uid string) (*models.MeetingRecord, uint64, error)
	Update(ctx context.Context, record *models.MeetingRecord, revision uint64) error
	Delete(ctx context.Context, uid string, revision uint64) error

	// Lookups
	ListAll(ctx context.Context) ([]*models.MeetingRecord, error)
	ListByConferenceID(ctx context.Context, conferenceID string) ([]*models.MeetingRecord, error)
	ListByStatus(ctx context.Context, statuses ...models.MeetingStatus) ([]*models.MeetingRecord, error)
	ListByCalendarEventID(ctx context.Context, eventID string) ([]*models.MeetingRecord, error)
	ListByLinkContains(ctx context.Context, fragment string) ([]*models.MeetingRecord, error)
}

// EventLogRepository stores the audit trail of inbound notifications.
type EventLogRepository interface {
	Create(ctx context.Context, entry *models.EventLogEntry) error
	GetWithRevision(ctx context.Context, uid string) (*models.EventLogEntry, uint64, error)
	Update(ctx context.Context, entry *models.EventLogEntry, revision uint64) error
	ListByMeetingUID(ctx context.Context, meetingUID string) ([]*models.EventLogEntry, error)
	// ClearMeetingReference sets the meeting reference of every entry pointing
	// at meetingUID to nil and returns how many entries changed.
	ClearMeetingReference(ctx context.Context, meetingUID string) (int, error)
}

// SettingsRepository stores the single integration settings document.
type SettingsRepository interface {
	GetWithRevision(ctx context.Context) (*models.IntegrationSettings, uint64, error)
	// Put creates the document when revision is 0 and updates it otherwise.
	Put(ctx context.Context, settings *models.IntegrationSettings, revision uint64) error
}

// CredentialStore stores refresh credentials of connected calendar accounts.
type CredentialStore interface {
	GetCredential(ctx context.Context, accountRef string) (*models.OAuthCredential, error)
	PutCredential(ctx context.Context, credential *models.OAuthCredential) error
	DeleteCredential(ctx context.Context, accountRef string) error
}
