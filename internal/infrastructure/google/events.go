// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"google.golang.org/api/workspaceevents/v1"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
)

const (
	// DefaultOperationPolls bounds how often a pending long-running operation is polled
	DefaultOperationPolls = 10
	// DefaultOperationPollInterval is the wait between two polls
	DefaultOperationPollInterval = time.Second
)

var errOperationPending = errors.New("operation still running")

// SubscriptionClient implements domain.SubscriptionClient on the Workspace Events v1 API
type SubscriptionClient struct {
	*Client
	pollInterval time.Duration
	maxPolls     int
}

// Ensure that SubscriptionClient implements domain.SubscriptionClient
var _ domain.SubscriptionClient = (*SubscriptionClient)(nil)

// NewSubscriptionClient creates a new Workspace Events client
func NewSubscriptionClient(client *Client) *SubscriptionClient {
	return &SubscriptionClient{
		Client:       client,
		pollInterval: DefaultOperationPollInterval,
		maxPolls:     DefaultOperationPolls,
	}
}

func (c *SubscriptionClient) service(ctx context.Context, accountRef string) (*workspaceevents.Service, error) {
	opts, err := c.options(ctx, accountRef)
	if err != nil {
		return nil, err
	}
	return workspaceevents.NewService(ctx, opts...)
}

// CreateSubscription creates the subscription and waits for the create
// operation to finish.
func (c *SubscriptionClient) CreateSubscription(ctx context.Context, accountRef string, subscription *models.Subscription) (*models.Subscription, error) {
	svc, err := c.service(ctx, accountRef)
	if err != nil {
		return nil, err
	}
	body := &workspaceevents.Subscription{
		TargetResource: subscription.TargetResource,
		EventTypes:     subscription.EventTypes,
		NotificationEndpoint: &workspaceevents.NotificationEndpoint{
			PubsubTopic: subscription.PubSubTopic,
		},
		PayloadOptions: &workspaceevents.PayloadOptions{
			IncludeResource: true,
		},
	}
	op, err := call(ctx, c.Client, "workspaceevents.subscriptions.create", func() (*workspaceevents.Operation, error) {
		return svc.Subscriptions.Create(body).Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	op, err = c.waitOperation(ctx, svc, op)
	if err != nil {
		return nil, err
	}

	var created workspaceevents.Subscription
	if len(op.Response) > 0 {
		if err := json.Unmarshal(op.Response, &created); err != nil {
			return nil, domain.NewInternalError("invalid subscription in create response", err)
		}
	}
	result := fromAPISubscription(&created)
	if result.TargetResource == "" {
		result.TargetResource = subscription.TargetResource
	}
	if result.PubSubTopic == "" {
		result.PubSubTopic = subscription.PubSubTopic
	}
	slog.InfoContext(ctx, "workspace events subscription created",
		"subscription_id", result.Name,
		"target_resource", result.TargetResource,
		"state", result.State)
	return result, nil
}

// waitOperation polls a long-running operation until it is done.
func (c *SubscriptionClient) waitOperation(ctx context.Context, svc *workspaceevents.Service, op *workspaceevents.Operation) (*workspaceevents.Operation, error) {
	if !op.Done {
		poll := func() (*workspaceevents.Operation, error) {
			current, err := svc.Operations.Get(op.Name).Context(ctx).Do()
			if err != nil {
				if !shouldRetry(err) {
					return nil, backoff.Permanent(err)
				}
				return nil, err
			}
			if !current.Done {
				return nil, errOperationPending
			}
			return current, nil
		}
		done, err := backoff.Retry(ctx, poll,
			backoff.WithBackOff(backoff.NewConstantBackOff(c.pollInterval)),
			backoff.WithMaxTries(uint(c.maxPolls)),
		)
		if err != nil {
			if errors.Is(err, errOperationPending) {
				return nil, domain.NewUnavailableError(fmt.Sprintf("operation %s did not finish", op.Name), err)
			}
			return nil, translateError("workspaceevents.operations.get", err)
		}
		op = done
	}
	if op.Error != nil {
		return nil, domain.NewUnavailableError(fmt.Sprintf("operation %s failed: %d %s", op.Name, op.Error.Code, op.Error.Message))
	}
	return op, nil
}

// DeleteSubscription deletes a subscription. A subscription that no longer
// exists counts as deleted.
func (c *SubscriptionClient) DeleteSubscription(ctx context.Context, accountRef, name string) error {
	svc, err := c.service(ctx, accountRef)
	if err != nil {
		return err
	}
	_, err = call(ctx, c.Client, "workspaceevents.subscriptions.delete", func() (*workspaceevents.Operation, error) {
		return svc.Subscriptions.Delete(name).Context(ctx).Do()
	})
	if err != nil && isNotFound(err) {
		slog.DebugContext(ctx, "workspace events subscription already deleted", "subscription_id", name)
		return nil
	}
	return err
}

// GetSubscription fetches one subscription.
func (c *SubscriptionClient) GetSubscription(ctx context.Context, accountRef, name string) (*models.Subscription, error) {
	svc, err := c.service(ctx, accountRef)
	if err != nil {
		return nil, err
	}
	subscription, err := call(ctx, c.Client, "workspaceevents.subscriptions.get", func() (*workspaceevents.Subscription, error) {
		return svc.Subscriptions.Get(name).Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	return fromAPISubscription(subscription), nil
}

// ListSubscriptions lists the subscriptions matching filter. The API
// requires a filter on event_types.
func (c *SubscriptionClient) ListSubscriptions(ctx context.Context, accountRef, filter string) ([]*models.Subscription, error) {
	svc, err := c.service(ctx, accountRef)
	if err != nil {
		return nil, err
	}
	return call(ctx, c.Client, "workspaceevents.subscriptions.list", func() ([]*models.Subscription, error) {
		var result []*models.Subscription
		err := svc.Subscriptions.List().Filter(filter).Pages(ctx, func(page *workspaceevents.ListSubscriptionsResponse) error {
			for _, subscription := range page.Subscriptions {
				result = append(result, fromAPISubscription(subscription))
			}
			return nil
		})
		return result, err
	})
}

func fromAPISubscription(subscription *workspaceevents.Subscription) *models.Subscription {
	result := &models.Subscription{
		Name:           subscription.Name,
		TargetResource: subscription.TargetResource,
		EventTypes:     subscription.EventTypes,
		State:          subscription.State,
	}
	if subscription.NotificationEndpoint != nil {
		result.PubSubTopic = subscription.NotificationEndpoint.PubsubTopic
	}
	if expire, err := time.Parse(time.RFC3339Nano, subscription.ExpireTime); err == nil {
		result.ExpireTime = &expire
	}
	return result
}
