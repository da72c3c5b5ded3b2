// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
)

// JobScheduler enqueues deferred work. Delivery is at-least-once; jobs carry
// their own not-before time.
type JobScheduler interface {
	Enqueue(ctx context.Context, job *models.Job) error
}

// JobHandler defines how the service handles jobs taken off the queue
type JobHandler interface {
	HandleJob(ctx context.Context, job *models.Job) error
	HandlerReady() bool
}

// PushVerifier authenticates inbound Pub/Sub push requests.
type PushVerifier interface {
	Verify(ctx context.Context, authorizationHeader string) error
}
