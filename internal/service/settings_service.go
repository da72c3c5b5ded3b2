// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

// SettingsService manages the integration settings document, the connected
// calendar account and the user-level subscription.
type SettingsService struct {
	SettingsRepository domain.SettingsRepository
	CredentialStore    domain.CredentialStore
	Credentials        domain.CredentialProvider
	Subscriptions      *SubscriptionManager

	now func() time.Time
}

// NewSettingsService creates a SettingsService.
func NewSettingsService(
	settingsRepository domain.SettingsRepository,
	credentialStore domain.CredentialStore,
	credentials domain.CredentialProvider,
	subscriptions *SubscriptionManager,
) *SettingsService {
	return &SettingsService{
		SettingsRepository: settingsRepository,
		CredentialStore:    credentialStore,
		Credentials:        credentials,
		Subscriptions:      subscriptions,
		now:                time.Now,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *SettingsService) ServiceReady() bool {
	return s.SettingsRepository != nil &&
		s.CredentialStore != nil &&
		s.Credentials != nil &&
		s.Subscriptions != nil
}

// Get returns the settings document and its revision. A missing document
// is returned empty with revision 0.
func (s *SettingsService) Get(ctx context.Context) (*models.IntegrationSettings, uint64, error) {
	if !s.ServiceReady() {
		return nil, 0, domain.ErrServiceUnavailable
	}
	return loadSettings(ctx, s.SettingsRepository)
}

// Update replaces the editable settings. The subscription and calendar watch
// fields are managed by the service and kept from the stored document.
func (s *SettingsService) Update(ctx context.Context, update *models.IntegrationSettings, revision uint64) (*models.IntegrationSettings, error) {
	if !s.ServiceReady() {
		return nil, domain.ErrServiceUnavailable
	}
	if update == nil {
		return nil, domain.NewValidationError("settings are required")
	}

	current, currentRevision, err := loadSettings(ctx, s.SettingsRepository)
	if err != nil {
		return nil, err
	}
	if revision != 0 && revision != currentRevision {
		return nil, domain.NewConflictError("settings have been modified", domain.ErrRevisionMismatch)
	}

	update.SubscriptionID = current.SubscriptionID
	update.SubscriptionState = current.SubscriptionState
	update.SubscriptionTarget = current.SubscriptionTarget
	update.CalendarWatch = current.CalendarWatch
	if err := update.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error(), domain.ErrValidationFailed)
	}

	now := s.now().UTC()
	update.UpdatedAt = &now
	if err := s.SettingsRepository.Put(ctx, update, currentRevision); err != nil {
		slog.ErrorContext(ctx, "failed to store settings", logging.ErrKey, err)
		return nil, err
	}
	slog.InfoContext(ctx, "integration settings updated",
		"enable_meet_events", update.EnableMeetEvents,
		"enable_calendar_webhook", update.EnableCalendarWebhook)
	return update, nil
}

// CreateUserSubscription subscribes to every conference of the organizer.
func (s *SettingsService) CreateUserSubscription(ctx context.Context) (*models.IntegrationSettings, error) {
	if !s.ServiceReady() {
		return nil, domain.ErrServiceUnavailable
	}
	settings, revision, err := loadSettings(ctx, s.SettingsRepository)
	if err != nil {
		return nil, err
	}
	if settings.SubscriptionID != "" {
		return nil, domain.NewConflictError("a user subscription already exists; delete it first")
	}
	if settings.OrganizerEmail == "" || settings.PubSubTopic == "" {
		return nil, domain.NewValidationError("organizer_email and pubsub_topic are required to subscribe")
	}

	target := models.UserTarget{Email: settings.OrganizerEmail}
	subscription, err := s.Subscriptions.Create(ctx, settings.CalendarAccount, target, constants.MeetEventTypes, settings.PubSubTopic)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	settings.SubscriptionID = subscription.Name
	settings.SubscriptionState = subscription.State
	settings.SubscriptionTarget = target.ResourceName()
	settings.UpdatedAt = &now
	if err := s.SettingsRepository.Put(ctx, settings, revision); err != nil {
		slog.ErrorContext(ctx, "subscription created but not stored",
			"subscription_id", subscription.Name,
			logging.ErrKey, err,
			logging.PriorityCritical())
		return nil, err
	}
	return settings, nil
}

// CheckUserSubscription refreshes the stored state of the user subscription.
func (s *SettingsService) CheckUserSubscription(ctx context.Context) (*models.SubscriptionStatus, error) {
	if !s.ServiceReady() {
		return nil, domain.ErrServiceUnavailable
	}
	settings, revision, err := loadSettings(ctx, s.SettingsRepository)
	if err != nil {
		return nil, err
	}
	if settings.SubscriptionID == "" {
		return nil, domain.NewNotFoundError("no subscription found")
	}

	state, err := s.Subscriptions.Status(ctx, settings.CalendarAccount, settings.SubscriptionID)
	if err != nil {
		if domain.IsAuthError(err) {
			return nil, err
		}
		slog.WarnContext(ctx, "failed to get user subscription state", logging.ErrKey, err)
		state = constants.SubscriptionStateUnknown
	}

	if state != settings.SubscriptionState {
		now := s.now().UTC()
		settings.SubscriptionState = state
		settings.UpdatedAt = &now
		if err := s.SettingsRepository.Put(ctx, settings, revision); err != nil {
			slog.WarnContext(ctx, "failed to store user subscription state", logging.ErrKey, err)
		}
	}
	return &models.SubscriptionStatus{SubscriptionID: settings.SubscriptionID, State: state}, nil
}

// DeleteUserSubscription deletes the user subscription and forgets it.
func (s *SettingsService) DeleteUserSubscription(ctx context.Context) error {
	if !s.ServiceReady() {
		return domain.ErrServiceUnavailable
	}
	settings, revision, err := loadSettings(ctx, s.SettingsRepository)
	if err != nil {
		return err
	}
	if settings.SubscriptionID == "" {
		return domain.NewNotFoundError("no subscription found")
	}
	if err := s.Subscriptions.Delete(ctx, settings.CalendarAccount, settings.SubscriptionID); err != nil {
		return err
	}

	now := s.now().UTC()
	settings.ClearSubscription()
	settings.UpdatedAt = &now
	return s.SettingsRepository.Put(ctx, settings, revision)
}

// ListSubscriptions lists the Meet subscriptions visible to the calendar account.
func (s *SettingsService) ListSubscriptions(ctx context.Context) ([]*models.Subscription, error) {
	if !s.ServiceReady() {
		return nil, domain.ErrServiceUnavailable
	}
	settings, _, err := loadSettings(ctx, s.SettingsRepository)
	if err != nil {
		return nil, err
	}
	return s.Subscriptions.List(ctx, settings.CalendarAccount)
}

// ConnectAccount stores the refresh credential of a calendar account after
// checking that Google accepts it. The first connected account becomes the
// configured calendar account.
func (s *SettingsService) ConnectAccount(ctx context.Context, credential *models.OAuthCredential) error {
	if !s.ServiceReady() {
		return domain.ErrServiceUnavailable
	}
	if credential == nil || strings.TrimSpace(credential.AccountRef) == "" || strings.TrimSpace(credential.RefreshToken) == "" {
		return domain.NewValidationError("account_ref and refresh_token are required")
	}
	ctx = logging.AppendCtx(ctx, slog.String("account_ref", credential.AccountRef))

	now := s.now().UTC()
	credential.UpdatedAt = &now
	if err := s.CredentialStore.PutCredential(ctx, credential); err != nil {
		return err
	}
	if _, err := s.Credentials.AccessToken(ctx, credential.AccountRef, constants.DefaultScopes...); err != nil {
		slog.WarnContext(ctx, "credential rejected, removing it", logging.ErrKey, err)
		if delErr := s.CredentialStore.DeleteCredential(ctx, credential.AccountRef); delErr != nil {
			slog.ErrorContext(ctx, "failed to remove rejected credential", logging.ErrKey, delErr)
		}
		return err
	}

	settings, revision, err := loadSettings(ctx, s.SettingsRepository)
	if err != nil {
		return err
	}
	if settings.CalendarAccount == "" {
		settings.CalendarAccount = credential.AccountRef
		settings.UpdatedAt = &now
		if err := s.SettingsRepository.Put(ctx, settings, revision); err != nil {
			return err
		}
	}
	slog.InfoContext(ctx, "calendar account connected")
	return nil
}

// DisconnectAccount removes the stored credential of an account.
func (s *SettingsService) DisconnectAccount(ctx context.Context, accountRef string) error {
	if !s.ServiceReady() {
		return domain.ErrServiceUnavailable
	}
	if strings.TrimSpace(accountRef) == "" {
		return domain.NewValidationError("account_ref is required")
	}
	ctx = logging.AppendCtx(ctx, slog.String("account_ref", accountRef))

	if err := s.CredentialStore.DeleteCredential(ctx, accountRef); err != nil {
		return err
	}
	settings, revision, err := loadSettings(ctx, s.SettingsRepository)
	if err != nil {
		return err
	}
	if settings.CalendarAccount == accountRef {
		now := s.now().UTC()
		settings.CalendarAccount = ""
		settings.UpdatedAt = &now
		if err := s.SettingsRepository.Put(ctx, settings, revision); err != nil {
			return err
		}
	}
	slog.InfoContext(ctx, "calendar account disconnected")
	return nil
}
