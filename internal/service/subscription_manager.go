// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

// Subscription operations reported in SubscriptionError.
const (
	subscriptionOpCreate = "create"
	subscriptionOpDelete = "delete"
	subscriptionOpStatus = "status"
	subscriptionOpList   = "list"
)

// SubscriptionManager manages Workspace Events subscriptions. It keeps no
// state; callers persist the returned subscription names.
type SubscriptionManager struct {
	Client domain.SubscriptionClient
}

// NewSubscriptionManager creates a SubscriptionManager.
func NewSubscriptionManager(client domain.SubscriptionClient) *SubscriptionManager {
	return &SubscriptionManager{Client: client}
}

// ServiceReady checks if the service is ready for use.
func (m *SubscriptionManager) ServiceReady() bool {
	return m.Client != nil
}

// Create subscribes topic to eventTypes on target. It is not idempotent.
func (m *SubscriptionManager) Create(
	ctx context.Context,
	accountRef string,
	target models.SubscriptionTarget,
	eventTypes []string,
	topic string,
) (*models.Subscription, error) {
	if target == nil {
		return nil, domain.NewValidationError("subscription target is required")
	}
	resource := target.ResourceName()
	if !m.ServiceReady() {
		return nil, domain.NewSubscriptionError(subscriptionOpCreate, resource, domain.ErrServiceUnavailable)
	}
	if strings.TrimSpace(topic) == "" {
		return nil, domain.NewSubscriptionError(subscriptionOpCreate, resource,
			domain.NewValidationError("a Pub/Sub topic is required"))
	}
	if len(eventTypes) == 0 {
		eventTypes = constants.MeetEventTypes
	}

	created, err := m.Client.CreateSubscription(ctx, accountRef, &models.Subscription{
		TargetResource: resource,
		EventTypes:     eventTypes,
		PubSubTopic:    topic,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create subscription",
			"target_resource", resource,
			logging.ErrKey, err)
		return nil, domain.NewSubscriptionError(subscriptionOpCreate, resource, err)
	}
	slog.InfoContext(ctx, "subscription created",
		"subscription_id", created.Name,
		"target_resource", resource,
		"state", created.State)
	return created, nil
}

// Delete removes a subscription. A missing subscription is not an error.
func (m *SubscriptionManager) Delete(ctx context.Context, accountRef, name string) error {
	if !m.ServiceReady() {
		return domain.NewSubscriptionError(subscriptionOpDelete, name, domain.ErrServiceUnavailable)
	}
	if err := m.Client.DeleteSubscription(ctx, accountRef, name); err != nil {
		return domain.NewSubscriptionError(subscriptionOpDelete, name, err)
	}
	slog.InfoContext(ctx, "subscription deleted", "subscription_id", name)
	return nil
}

// Status returns the current state of a subscription.
func (m *SubscriptionManager) Status(ctx context.Context, accountRef, name string) (string, error) {
	if !m.ServiceReady() {
		return "", domain.NewSubscriptionError(subscriptionOpStatus, name, domain.ErrServiceUnavailable)
	}
	subscription, err := m.Client.GetSubscription(ctx, accountRef, name)
	if err != nil {
		return "", domain.NewSubscriptionError(subscriptionOpStatus, name, err)
	}
	if subscription.State == "" {
		return constants.SubscriptionStateUnknown, nil
	}
	return subscription.State, nil
}

// List returns the subscriptions of the account that carry any Meet event type.
func (m *SubscriptionManager) List(ctx context.Context, accountRef string) ([]*models.Subscription, error) {
	if !m.ServiceReady() {
		return nil, domain.NewSubscriptionError(subscriptionOpList, "", domain.ErrServiceUnavailable)
	}
	subscriptions, err := m.Client.ListSubscriptions(ctx, accountRef, EventTypesFilter(constants.MeetEventTypes))
	if err != nil {
		return nil, domain.NewSubscriptionError(subscriptionOpList, "", err)
	}
	return subscriptions, nil
}

// EventTypesFilter builds the list filter matching any of eventTypes.
func EventTypesFilter(eventTypes []string) string {
	terms := make([]string, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		terms = append(terms, fmt.Sprintf("event_types:%q", eventType))
	}
	return strings.Join(terms, " OR ")
}
