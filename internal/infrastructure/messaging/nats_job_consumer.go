// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

const tracerName = "github.com/linuxfoundation/lfx-v2-google-meet-service/internal/infrastructure/messaging"

// jobMessage is the subset of jetstream.Msg the consumer needs.
type jobMessage interface {
	Data() []byte
	Subject() string
	Ack() error
	NakWithDelay(delay time.Duration) error
	Term() error
	Metadata() (*jetstream.MsgMetadata, error)
}

// JobConsumer takes jobs off the job stream and hands them to a domain.JobHandler.
type JobConsumer struct {
	handler domain.JobHandler
	now     func() time.Time
}

// NewJobConsumer creates a JobConsumer.
func NewJobConsumer(handler domain.JobHandler) *JobConsumer {
	return &JobConsumer{
		handler: handler,
		now:     time.Now,
	}
}

// Start begins consuming. The returned context stops the subscription.
func (c *JobConsumer) Start(ctx context.Context, consumer jetstream.Consumer) (jetstream.ConsumeContext, error) {
	return consumer.Consume(func(msg jetstream.Msg) {
		c.HandleMessage(ctx, msg)
	})
}

// HandleMessage runs one delivery of a job and settles the message:
//   - undecodable or unknown jobs are terminated;
//   - jobs whose not_before lies ahead are redelivered when due;
//   - unavailable dependencies are redelivered after JobErrorRetryDelay;
//   - anything else is acknowledged, failed or not.
func (c *JobConsumer) HandleMessage(ctx context.Context, msg jobMessage) {
	job, err := DecodeJob(msg.Data())
	if err != nil {
		slog.ErrorContext(ctx, "dropping undecodable job", logging.ErrKey, err, "subject", msg.Subject())
		_ = msg.Term()
		return
	}
	if !job.Name.IsValid() {
		slog.ErrorContext(ctx, "dropping unknown job", "job", job.Name, "subject", msg.Subject())
		_ = msg.Term()
		return
	}

	ctx = logging.AppendCtx(ctx, slog.String("job", string(job.Name)))
	ctx = logging.AppendCtx(ctx, slog.String("job_id", job.ID))

	if wait := job.Due(c.now()); wait > 0 {
		slog.DebugContext(ctx, "job not due yet", "wait", wait.String())
		if err := msg.NakWithDelay(wait); err != nil {
			slog.WarnContext(ctx, "failed to defer job", logging.ErrKey, err)
		}
		return
	}

	if meta, err := msg.Metadata(); err == nil {
		job.Attempt = int(meta.NumDelivered)
	}

	if c.handler == nil || !c.handler.HandlerReady() {
		slog.WarnContext(ctx, "job handler not ready, deferring job")
		_ = msg.NakWithDelay(models.JobErrorRetryDelay)
		return
	}

	err = c.run(ctx, job)
	if err == nil {
		_ = msg.Ack()
		return
	}

	if domain.GetErrorType(err) == domain.ErrorTypeUnavailable && job.Attempt < models.JobMaxDeliveries {
		slog.WarnContext(ctx, "job failed on an unavailable dependency, redelivering", logging.ErrKey, err)
		_ = msg.NakWithDelay(models.JobErrorRetryDelay)
		return
	}

	slog.ErrorContext(ctx, "job failed", logging.ErrKey, err, "attempt", job.Attempt)
	_ = msg.Ack()
}

func (c *JobConsumer) run(ctx context.Context, job *models.Job) (err error) {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultJobTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "job."+string(job.Name),
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "nats"),
			attribute.String("job.id", job.ID),
			attribute.Int("job.attempt", job.Attempt),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "job handler panicked", "panic", r, logging.PriorityCritical())
			err = domain.NewInternalError("job handler panicked")
		}
	}()

	start := time.Now()
	err = c.handler.HandleJob(ctx, job)
	slog.DebugContext(ctx, "job finished", "duration", time.Since(start).String())
	return err
}
