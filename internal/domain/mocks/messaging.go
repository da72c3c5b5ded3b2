// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
)

// MockJobScheduler implements JobScheduler for testing
type MockJobScheduler struct {
	mock.Mock
}

func (m *MockJobScheduler) Enqueue(ctx context.Context, job *models.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// MockJobHandler implements JobHandler for testing
type MockJobHandler struct {
	mock.Mock
}

func (m *MockJobHandler) HandleJob(ctx context.Context, job *models.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobHandler) HandlerReady() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockPushVerifier implements PushVerifier for testing
type MockPushVerifier struct {
	mock.Mock
}

func (m *MockPushVerifier) Verify(ctx context.Context, authorizationHeader string) error {
	args := m.Called(ctx, authorizationHeader)
	return args.Error(0)
}
