// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

// MockJetStream is a mock of IJetStreamPublisher
type MockJetStream struct {
	mock.Mock
}

func (m *MockJetStream) Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	args := m.Called(ctx, subject, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jetstream.PubAck), args.Error(1)
}

func TestJobPublisher_Enqueue(t *testing.T) {
	js := new(MockJetStream)
	publisher := NewJobPublisher(js)

	var published []byte
	js.On("Publish", mock.Anything, "lfx.google-meet.jobs.fetch_transcript", mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(2).([]byte) }).
		Return(&jetstream.PubAck{Stream: models.JobStreamName, Sequence: 1}, nil)

	job := models.NewJob(models.JobFetchTranscript,
		models.FetchTranscriptArgs{MeetingUID: "m-1", ConferenceID: "c-1"}.Map(), 10*time.Minute)
	require.NoError(t, publisher.Enqueue(context.Background(), job))

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, constants.DefaultJobTimeout, job.Timeout)

	decoded, err := DecodeJob(published)
	require.NoError(t, err)
	assert.Equal(t, job.ID, decoded.ID)
	assert.Equal(t, models.JobFetchTranscript, decoded.Name)
	assert.True(t, decoded.NotBefore.Equal(job.NotBefore))

	var args models.FetchTranscriptArgs
	require.NoError(t, decoded.DecodeArgs(&args))
	assert.Equal(t, "m-1", args.MeetingUID)
	assert.Equal(t, "c-1", args.ConferenceID)
	js.AssertExpectations(t)
}

func TestJobPublisher_EnqueueErrors(t *testing.T) {
	t.Run("unknown job", func(t *testing.T) {
		publisher := NewJobPublisher(new(MockJetStream))
		err := publisher.Enqueue(context.Background(), &models.Job{Name: "send_email"})
		assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
	})

	t.Run("no stream", func(t *testing.T) {
		publisher := NewJobPublisher(nil)
		err := publisher.Enqueue(context.Background(), models.NewJob(models.JobSyncMeetLink, nil, 0))
		assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
	})

	t.Run("publish failure", func(t *testing.T) {
		js := new(MockJetStream)
		js.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("nats: no responders"))
		err := NewJobPublisher(js).Enqueue(context.Background(), models.NewJob(models.JobSyncMeetLink, nil, 0))
		assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
	})
}

func TestJobStreamAndConsumerConfig(t *testing.T) {
	stream := JobStreamConfig()
	assert.Equal(t, []string{"lfx.google-meet.jobs.>"}, stream.Subjects)
	assert.Equal(t, jetstream.WorkQueuePolicy, stream.Retention)

	consumer := JobConsumerConfig()
	assert.Equal(t, models.JobConsumerName, consumer.Durable)
	assert.Equal(t, 600*time.Second, consumer.AckWait)
	assert.Equal(t, jetstream.AckExplicitPolicy, consumer.AckPolicy)
}
