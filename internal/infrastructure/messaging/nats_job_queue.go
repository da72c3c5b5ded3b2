// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

// IJetStreamPublisher is the subset of jetstream.JetStream used to enqueue jobs.
// It allows for mocking in tests.
type IJetStreamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// EncodeJob serializes a job for the job stream.
func EncodeJob(job *models.Job) ([]byte, error) {
	return msgpack.Marshal(job)
}

// DecodeJob deserializes a job read from the job stream.
func DecodeJob(data []byte) (*models.Job, error) {
	var job models.Job
	if err := msgpack.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// JobPublisher enqueues jobs on the JetStream job stream.
type JobPublisher struct {
	js IJetStreamPublisher
}

// NewJobPublisher creates a JobPublisher.
func NewJobPublisher(js IJetStreamPublisher) *JobPublisher {
	return &JobPublisher{js: js}
}

// Enqueue publishes job. The job id doubles as the JetStream message id so a
// retried publish is deduplicated by the stream.
func (p *JobPublisher) Enqueue(ctx context.Context, job *models.Job) error {
	if p.js == nil {
		return domain.NewUnavailableError("job queue is not available")
	}
	if !job.Name.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("unknown job %q", job.Name))
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Queue == "" {
		job.Queue = models.QueueDefault
	}
	if job.Timeout <= 0 {
		job.Timeout = constants.DefaultJobTimeout
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	data, err := EncodeJob(job)
	if err != nil {
		slog.ErrorContext(ctx, "error encoding job", logging.ErrKey, err, "job", job.Name)
		return domain.NewInternalError("failed to encode job", err)
	}

	subject := models.JobSubject(job.Name)
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(job.ID)); err != nil {
		slog.ErrorContext(ctx, "error publishing job", logging.ErrKey, err, "subject", subject, "job_id", job.ID)
		return domain.NewUnavailableError("failed to enqueue job", err)
	}

	slog.DebugContext(ctx, "enqueued job",
		"job", job.Name,
		"job_id", job.ID,
		"not_before", job.NotBefore,
	)
	return nil
}

// JobStreamConfig is the stream holding queued jobs. Work-queue retention
// removes a job once it is acknowledged.
func JobStreamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        models.JobStreamName,
		Description: "deferred jobs of the Google Meet integration",
		Subjects:    []string{models.JobSubjectWildcard},
		Retention:   jetstream.WorkQueuePolicy,
		Storage:     jetstream.FileStorage,
		Duplicates:  2 * time.Minute,
	}
}

// JobConsumerConfig is the durable pull consumer shared by every replica.
func JobConsumerConfig() jetstream.ConsumerConfig {
	return jetstream.ConsumerConfig{
		Durable:       models.JobConsumerName,
		Description:   "Google Meet job worker",
		FilterSubject: models.JobSubjectWildcard,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       constants.DefaultJobTimeout,
		MaxDeliver:    models.JobMaxDeliveries,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	}
}
