// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"golang.org/x/oauth2"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
)

// MockCredentialProvider implements CredentialProvider for testing
type MockCredentialProvider struct {
	mock.Mock
}

func (m *MockCredentialProvider) AccessToken(ctx context.Context, accountRef string, scopes ...string) (*oauth2.Token, error) {
	args := m.Called(ctx, accountRef, scopes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.Token), args.Error(1)
}

func (m *MockCredentialProvider) TokenSource(ctx context.Context, accountRef string, scopes ...string) (oauth2.TokenSource, error) {
	args := m.Called(ctx, accountRef, scopes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(oauth2.TokenSource), args.Error(1)
}

// MockCalendarClient implements CalendarClient for testing
type MockCalendarClient struct {
	mock.Mock
}

func (m *MockCalendarClient) InsertEvent(ctx context.Context, accountRef, calendarID string, event *models.CalendarEvent) (*models.CalendarEvent, error) {
	args := m.Called(ctx, accountRef, calendarID, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CalendarEvent), args.Error(1)
}

func (m *MockCalendarClient) GetEvent(ctx context.Context, accountRef, calendarID, eventID string) (*models.CalendarEvent, error) {
	args := m.Called(ctx, accountRef, calendarID, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CalendarEvent), args.Error(1)
}

func (m *MockCalendarClient) PatchEvent(ctx context.Context, accountRef, calendarID string, event *models.CalendarEvent) (*models.CalendarEvent, error) {
	args := m.Called(ctx, accountRef, calendarID, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CalendarEvent), args.Error(1)
}

func (m *MockCalendarClient) DeleteEvent(ctx context.Context, accountRef, calendarID, eventID string) error {
	args := m.Called(ctx, accountRef, calendarID, eventID)
	return args.Error(0)
}

func (m *MockCalendarClient) ListUpdatedEvents(ctx context.Context, accountRef, calendarID string, updatedMin time.Time, maxResults int) ([]*models.CalendarEvent, error) {
	args := m.Called(ctx, accountRef, calendarID, updatedMin, maxResults)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CalendarEvent), args.Error(1)
}

func (m *MockCalendarClient) Watch(ctx context.Context, accountRef, calendarID string, channel *models.CalendarChannel) (*models.CalendarChannel, error) {
	args := m.Called(ctx, accountRef, calendarID, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CalendarChannel), args.Error(1)
}

func (m *MockCalendarClient) StopChannel(ctx context.Context, accountRef, channelID, resourceID string) error {
	args := m.Called(ctx, accountRef, channelID, resourceID)
	return args.Error(0)
}

// MockConferenceClient implements ConferenceClient for testing
type MockConferenceClient struct {
	mock.Mock
}

func (m *MockConferenceClient) ListTranscripts(ctx context.Context, accountRef, conferenceID string) ([]*models.TranscriptInfo, error) {
	args := m.Called(ctx, accountRef, conferenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TranscriptInfo), args.Error(1)
}

func (m *MockConferenceClient) ListTranscriptEntries(ctx context.Context, accountRef, transcriptName string) ([]*models.TranscriptEntry, error) {
	args := m.Called(ctx, accountRef, transcriptName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TranscriptEntry), args.Error(1)
}

// MockDriveClient implements DriveClient for testing
type MockDriveClient struct {
	mock.Mock
}

func (m *MockDriveClient) FindFiles(ctx context.Context, accountRef, query string) ([]*models.DriveFile, error) {
	args := m.Called(ctx, accountRef, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DriveFile), args.Error(1)
}

func (m *MockDriveClient) DownloadFile(ctx context.Context, accountRef, fileID string) ([]byte, error) {
	args := m.Called(ctx, accountRef, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockDriveClient) ExportDocument(ctx context.Context, accountRef, documentID, mimeType string) ([]byte, error) {
	args := m.Called(ctx, accountRef, documentID, mimeType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockSubscriptionClient implements SubscriptionClient for testing
type MockSubscriptionClient struct {
	mock.Mock
}

func (m *MockSubscriptionClient) CreateSubscription(ctx context.Context, accountRef string, subscription *models.Subscription) (*models.Subscription, error) {
	args := m.Called(ctx, accountRef, subscription)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionClient) DeleteSubscription(ctx context.Context, accountRef, name string) error {
	args := m.Called(ctx, accountRef, name)
	return args.Error(0)
}

func (m *MockSubscriptionClient) GetSubscription(ctx context.Context, accountRef, name string) (*models.Subscription, error) {
	args := m.Called(ctx, accountRef, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionClient) ListSubscriptions(ctx context.Context, accountRef, filter string) ([]*models.Subscription, error) {
	args := m.Called(ctx, accountRef, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}
