// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
)

// MockMeetingRecordRepository implements MeetingRecordRepository for testing
type MockMeetingRecordRepository struct {
	mock.Mock
}

func (m *MockMeetingRecordRepository) Create(ctx context.Context, record *models.MeetingRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockMeetingRecordRepository) Exists(ctx context.Context, uid string) (bool, error) {
	args := m.Called(ctx, uid)
	return args.Bool(0), args.Error(1)
}

func (m *MockMeetingRecordRepository) Get(ctx context.Context, uid string) (*models.MeetingRecord, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MeetingRecord), args.Error(1)
}

func (m *MockMeetingRecordRepository) GetWithRevision(ctx context.Context, uid string) (*models.MeetingRecord, uint64, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Get(1).(uint64), args.Error(2)
	}
	return args.Get(0).(*models.MeetingRecord), args.Get(1).(uint64), args.Error(2)
}

func (m *MockMeetingRecordRepository) Update(ctx context.Context, record *models.MeetingRecord, revision uint64) error {
	args := m.Called(ctx, record, revision)
	return args.Error(0)
}

func (m *MockMeetingRecordRepository) Delete(ctx context.Context, uid string, revision uint64) error {
	args := m.Called(ctx, uid, revision)
	return args.Error(0)
}

func (m *MockMeetingRecordRepository) ListAll(ctx context.Context) ([]*models.MeetingRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MeetingRecord), args.Error(1)
}

func (m *MockMeetingRecordRepository) ListByConferenceID(ctx context.Context, conferenceID string) ([]*models.MeetingRecord, error) {
	args := m.Called(ctx, conferenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MeetingRecord), args.Error(1)
}

func (m *MockMeetingRecordRepository) ListByStatus(ctx context.Context, statuses ...models.MeetingStatus) ([]*models.MeetingRecord, error) {
	args := m.Called(ctx, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MeetingRecord), args.Error(1)
}

func (m *MockMeetingRecordRepository) ListByCalendarEventID(ctx context.Context, eventID string) ([]*models.MeetingRecord, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MeetingRecord), args.Error(1)
}

func (m *MockMeetingRecordRepository) ListByLinkContains(ctx context.Context, fragment string) ([]*models.MeetingRecord, error) {
	args := m.Called(ctx, fragment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MeetingRecord), args.Error(1)
}

// MockEventLogRepository implements EventLogRepository for testing
type MockEventLogRepository struct {
	mock.Mock
}

func (m *MockEventLogRepository) Create(ctx context.Context, entry *models.EventLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockEventLogRepository) GetWithRevision(ctx context.Context, uid string) (*models.EventLogEntry, uint64, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Get(1).(uint64), args.Error(2)
	}
	return args.Get(0).(*models.EventLogEntry), args.Get(1).(uint64), args.Error(2)
}

func (m *MockEventLogRepository) Update(ctx context.Context, entry *models.EventLogEntry, revision uint64) error {
	args := m.Called(ctx, entry, revision)
	return args.Error(0)
}

func (m *MockEventLogRepository) ListByMeetingUID(ctx context.Context, meetingUID string) ([]*models.EventLogEntry, error) {
	args := m.Called(ctx, meetingUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.EventLogEntry), args.Error(1)
}

func (m *MockEventLogRepository) ClearMeetingReference(ctx context.Context, meetingUID string) (int, error) {
	args := m.Called(ctx, meetingUID)
	return args.Int(0), args.Error(1)
}

// MockSettingsRepository implements SettingsRepository for testing
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) GetWithRevision(ctx context.Context) (*models.IntegrationSettings, uint64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Get(1).(uint64), args.Error(2)
	}
	return args.Get(0).(*models.IntegrationSettings), args.Get(1).(uint64), args.Error(2)
}

func (m *MockSettingsRepository) Put(ctx context.Context, settings *models.IntegrationSettings, revision uint64) error {
	args := m.Called(ctx, settings, revision)
	return args.Error(0)
}

// MockCredentialStore implements CredentialStore for testing
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) GetCredential(ctx context.Context, accountRef string) (*models.OAuthCredential, error) {
	args := m.Called(ctx, accountRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OAuthCredential), args.Error(1)
}

func (m *MockCredentialStore) PutCredential(ctx context.Context, credential *models.OAuthCredential) error {
	args := m.Called(ctx, credential)
	return args.Error(0)
}

func (m *MockCredentialStore) DeleteCredential(ctx context.Context, accountRef string) error {
	args := m.Called(ctx, accountRef)
	return args.Error(0)
}
