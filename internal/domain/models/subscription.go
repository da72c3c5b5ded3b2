// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"time"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

// SubscriptionTarget is the resource a Workspace Events subscription watches.
// It is either a SpaceTarget or a UserTarget.
type SubscriptionTarget interface {
	// ResourceName is the full target resource name sent to the API.
	ResourceName() string
	isSubscriptionTarget()
}

// SpaceTarget watches one Meet space, addressed by its meeting code.
type SpaceTarget struct {
	Code string
}

// ResourceName implements SubscriptionTarget.
func (t SpaceTarget) ResourceName() string {
	return constants.MeetSpaceTargetPrefix + t.Code
}

func (SpaceTarget) isSubscriptionTarget() {}

// UserTarget watches every conference organized by one user.
type UserTarget struct {
	Email string
}

// ResourceName implements SubscriptionTarget.
func (t UserTarget) ResourceName() string {
	return constants.UserTargetPrefix + t.Email
}

func (UserTarget) isSubscriptionTarget() {}

// Subscription is a standing Workspace Events registration.
type Subscription struct {
	Name           string     `json:"name"`
	TargetResource string     `json:"target_resource"`
	EventTypes     []string   `json:"event_types,omitempty"`
	State          string     `json:"state"`
	ExpireTime     *time.Time `json:"expire_time,omitempty"`
	PubSubTopic    string     `json:"pubsub_topic,omitempty"`
}

// SubscriptionStatus is returned by the status endpoints.
type SubscriptionStatus struct {
	SubscriptionID string `json:"subscription_id"`
	State          string `json:"state"`
}
