// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

func TestEventTypesFilter(t *testing.T) {
	assert.Equal(t,
		`event_types:"google.workspace.meet.conference.v2.started" OR event_types:"google.workspace.meet.conference.v2.ended"`,
		EventTypesFilter([]string{constants.EventTypeConferenceStarted, constants.EventTypeConferenceEnded}))
	assert.Empty(t, EventTypesFilter(nil))
}

func TestSubscriptionManager_Create(t *testing.T) {
	tests := []struct {
		name       string
		target     models.SubscriptionTarget
		eventTypes []string
		topic      string
		resource   string
		wantTypes  []string
	}{
		{
			name:       "space target with explicit types",
			target:     models.SpaceTarget{Code: "abc-defg-hij"},
			eventTypes: []string{constants.EventTypeConferenceEnded},
			topic:      "projects/lfx/topics/meet-events",
			resource:   "//meet.googleapis.com/spaces/abc-defg-hij",
			wantTypes:  []string{constants.EventTypeConferenceEnded},
		},
		{
			name:      "user target defaults to every meet type",
			target:    models.UserTarget{Email: "organizer@example.org"},
			topic:     "projects/lfx/topics/meet-events",
			resource:  "//cloudidentity.googleapis.com/users/organizer@example.org",
			wantTypes: constants.MeetEventTypes,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mocks.MockSubscriptionClient{}
			client.On("CreateSubscription", mock.Anything, "calendar@example.org", &models.Subscription{
				TargetResource: tt.resource,
				EventTypes:     tt.wantTypes,
				PubSubTopic:    tt.topic,
			}).Return(&models.Subscription{Name: "subscriptions/s-1", State: constants.SubscriptionStateActive}, nil)

			created, err := NewSubscriptionManager(client).Create(context.Background(), "calendar@example.org", tt.target, tt.eventTypes, tt.topic)
			require.NoError(t, err)
			assert.Equal(t, "subscriptions/s-1", created.Name)
			client.AssertExpectations(t)
		})
	}
}

func TestSubscriptionManager_CreateErrors(t *testing.T) {
	client := &mocks.MockSubscriptionClient{}
	client.On("CreateSubscription", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("permission denied"))
	manager := NewSubscriptionManager(client)

	_, err := manager.Create(context.Background(), "calendar@example.org", nil, nil, "projects/p/topics/t")
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))

	_, err = manager.Create(context.Background(), "calendar@example.org", models.SpaceTarget{Code: "abc-defg-hij"}, nil, " ")
	var subErr *domain.SubscriptionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "create", subErr.Op)
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))

	_, err = manager.Create(context.Background(), "calendar@example.org", models.SpaceTarget{Code: "abc-defg-hij"}, nil, "projects/p/topics/t")
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "//meet.googleapis.com/spaces/abc-defg-hij", subErr.Target)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
}

func TestSubscriptionManager_Status(t *testing.T) {
	tests := []struct {
		name      string
		returned  *models.Subscription
		err       error
		wantState string
		wantErr   bool
	}{
		{name: "active", returned: &models.Subscription{State: constants.SubscriptionStateActive}, wantState: constants.SubscriptionStateActive},
		{name: "empty state", returned: &models.Subscription{}, wantState: constants.SubscriptionStateUnknown},
		{name: "lookup failure", err: errors.New("not found"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mocks.MockSubscriptionClient{}
			if tt.err != nil {
				client.On("GetSubscription", mock.Anything, mock.Anything, "subscriptions/s-1").Return(nil, tt.err)
			} else {
				client.On("GetSubscription", mock.Anything, mock.Anything, "subscriptions/s-1").Return(tt.returned, nil)
			}

			state, err := NewSubscriptionManager(client).Status(context.Background(), "calendar@example.org", "subscriptions/s-1")
			if tt.wantErr {
				var subErr *domain.SubscriptionError
				require.ErrorAs(t, err, &subErr)
				assert.Equal(t, "status", subErr.Op)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, state)
		})
	}
}

func TestSubscriptionManager_NotReady(t *testing.T) {
	manager := NewSubscriptionManager(nil)

	err := manager.Delete(context.Background(), "calendar@example.org", "subscriptions/s-1")
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)

	_, err = manager.List(context.Background(), "calendar@example.org")
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}
