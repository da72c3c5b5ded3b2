// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
)

// CredentialProvider exchanges the stored refresh credential of a calendar
// account for access tokens. Tokens are not cached across calls.
type CredentialProvider interface {
	AccessToken(ctx context.Context, accountRef string, scopes ...string) (*oauth2.Token, error)
	TokenSource(ctx context.Context, accountRef string, scopes ...string) (oauth2.TokenSource, error)
}

// CalendarClient is the subset of the Google Calendar API the service uses.
type CalendarClient interface {
	InsertEvent(ctx context.Context, accountRef, calendarID string, event *models.CalendarEvent) (*models.CalendarEvent, error)
	GetEvent(ctx context.Context, accountRef, calendarID, eventID string) (*models.CalendarEvent, error)
	PatchEvent(ctx context.Context, accountRef, calendarID string, event *models.CalendarEvent) (*models.CalendarEvent, error)
	DeleteEvent(ctx context.Context, accountRef, calendarID, eventID string) error
	ListUpdatedEvents(ctx context.Context, accountRef, calendarID string, updatedMin time.Time, maxResults int) ([]*models.CalendarEvent, error)
	Watch(ctx context.Context, accountRef, calendarID string, channel *models.CalendarChannel) (*models.CalendarChannel, error)
	StopChannel(ctx context.Context, accountRef, channelID, resourceID string) error
}

// ConferenceClient is the subset of the Google Meet REST API the service uses.
type ConferenceClient interface {
	ListTranscripts(ctx context.Context, accountRef, conferenceID string) ([]*models.TranscriptInfo, error)
	ListTranscriptEntries(ctx context.Context, accountRef, transcriptName string) ([]*models.TranscriptEntry, error)
}

// DriveClient is the subset of the Google Drive API the service uses.
type DriveClient interface {
	FindFiles(ctx context.Context, accountRef, query string) ([]*models.DriveFile, error)
	DownloadFile(ctx context.Context, accountRef, fileID string) ([]byte, error)
	ExportDocument(ctx context.Context, accountRef, documentID, mimeType string) ([]byte, error)
}

// SubscriptionClient is the subset of the Workspace Events API the service uses.
type SubscriptionClient interface {
	CreateSubscription(ctx context.Context, accountRef string, subscription *models.Subscription) (*models.Subscription, error)
	DeleteSubscription(ctx context.Context, accountRef, name string) error
	GetSubscription(ctx context.Context, accountRef, name string) (*models.Subscription, error)
	ListSubscriptions(ctx context.Context, accountRef, filter string) ([]*models.Subscription, error)
}
