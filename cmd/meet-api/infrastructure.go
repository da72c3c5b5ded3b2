// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/infrastructure/auth"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/infrastructure/google"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
)

const (
	gracefulShutdownSeconds = 25
	kvHistory               = 5
	meterName               = "github.com/linuxfoundation/lfx-v2-google-meet-service"
)

// setupJWTAuth configures JWT authentication for the interactive API
func setupJWTAuth(env environment) (*auth.JWTAuth, error) {
	jwtAuthConfig := auth.JWTAuthConfig{
		JWKSURL:            env.JWKSURL,
		Audience:           env.JWTAudience,
		MockLocalPrincipal: env.MockLocalPrincipal,
	}
	return auth.NewJWTAuth(jwtAuthConfig)
}

// setupNATS connects to NATS. A closed connection signals done so the
// process shuts down instead of serving without persistence.
func setupNATS(ctx context.Context, env environment, gracefulCloseWG *sync.WaitGroup, done chan os.Signal) (*nats.Conn, error) {
	slog.With("nats_url", env.NatsURL).Info("attempting to connect to NATS")

	natsConn, err := nats.Connect(
		env.NatsURL,
		nats.DrainTimeout(gracefulShutdownSeconds*time.Second),
		nats.ConnectHandler(func(_ *nats.Conn) {
			slog.With("nats_url", env.NatsURL).Info("NATS connection established")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, s *nats.Subscription, err error) {
			if s != nil {
				slog.With(logging.ErrKey, err, "subject", s.Subject, "queue", s.Queue).Error("async NATS error")
			} else {
				slog.With(logging.ErrKey, err).Error("async NATS error outside subscription")
			}
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if ctx.Err() != nil {
				// The context is cancelled during graceful shutdown
				gracefulCloseWG.Done()
				return
			}
			slog.Error("NATS connection closed unexpectedly", logging.PriorityCritical())
			select {
			case done <- os.Interrupt:
			default:
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	gracefulCloseWG.Add(1)

	return natsConn, nil
}

// repositories are the KV-backed stores of the service.
type repositories struct {
	Meetings    *store.NatsMeetingRecordRepository
	EventLogs   *store.NatsEventLogRepository
	Settings    *store.NatsSettingsRepository
	Credentials *store.NatsCredentialRepository
}

// getKeyValueStores opens (creating when absent) the KV buckets of the service.
func getKeyValueStores(ctx context.Context, js jetstream.JetStream) (*repositories, error) {
	open := func(bucket string) (jetstream.KeyValue, error) {
		kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:  bucket,
			History: kvHistory,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open key-value bucket %s: %w", bucket, err)
		}
		return kv, nil
	}

	meetings, err := open(store.KVStoreNameMeetingRecords)
	if err != nil {
		return nil, err
	}
	eventLogs, err := open(store.KVStoreNameEventLogs)
	if err != nil {
		return nil, err
	}
	settings, err := open(store.KVStoreNameSettings)
	if err != nil {
		return nil, err
	}
	credentials, err := open(store.KVStoreNameCredentials)
	if err != nil {
		return nil, err
	}

	return &repositories{
		Meetings:    store.NewNatsMeetingRecordRepository(meetings),
		EventLogs:   store.NewNatsEventLogRepository(eventLogs),
		Settings:    store.NewNatsSettingsRepository(settings),
		Credentials: store.NewNatsCredentialRepository(credentials),
	}, nil
}

// setupJobStream declares the job stream and the durable consumer shared by
// every replica. The ack wait matches the job timeout.
func setupJobStream(ctx context.Context, js jetstream.JetStream, jobTimeout time.Duration) (jetstream.Consumer, error) {
	stream, err := js.CreateOrUpdateStream(ctx, messaging.JobStreamConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create job stream: %w", err)
	}

	consumerConfig := messaging.JobConsumerConfig()
	consumerConfig.AckWait = jobTimeout
	consumer, err := stream.CreateOrUpdateConsumer(ctx, consumerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create job consumer: %w", err)
	}
	return consumer, nil
}

// googleClients are the Google API adapters sharing one credential provider.
type googleClients struct {
	Credentials   *google.CredentialProvider
	Calendar      *google.CalendarClient
	Conferences   *google.ConferenceClient
	Drive         *google.DriveClient
	Subscriptions *google.SubscriptionClient
}

func setupGoogleClients(env environment, credentialStore domain.CredentialStore) *googleClients {
	credentials := google.NewCredentialProvider(credentialStore, google.CredentialConfig{
		ClientID:     env.GoogleClientID,
		ClientSecret: env.GoogleClientSecret,
		TokenURL:     env.GoogleTokenURL,
	})
	client := google.NewClient(google.Config{Endpoint: env.GoogleAPIEndpoint}, credentials)

	return &googleClients{
		Credentials:   credentials,
		Calendar:      google.NewCalendarClient(client),
		Conferences:   google.NewConferenceClient(client),
		Drive:         google.NewDriveClient(client),
		Subscriptions: google.NewSubscriptionClient(client),
	}
}

// setupPushVerifier returns nil when Pub/Sub push authentication is not configured.
func setupPushVerifier(ctx context.Context, env environment) (domain.PushVerifier, error) {
	if env.PubSubAudience == "" {
		slog.Warn("PUBSUB_AUDIENCE not set, Pub/Sub push requests are not authenticated")
		return nil, nil
	}
	verifier, err := google.NewPushVerifier(ctx, env.PubSubAudience, env.PubSubServiceAccount)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pub/Sub push verifier: %w", err)
	}
	return verifier, nil
}

// gracefulShutdown stops the HTTP server, the job consumer and the NATS
// connection, and waits for them within the shutdown budget.
func gracefulShutdown(httpServer *http.Server, consumeCtx jetstream.ConsumeContext, natsConn *nats.Conn, otelShutdown func(context.Context) error, gracefulCloseWG *sync.WaitGroup, cancel context.CancelFunc) {
	slog.Info("graceful shutdown in progress")

	// Cancel the background context first so the NATS closed handler sees a deliberate shutdown.
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownSeconds*time.Second)
	defer shutdownCancel()

	go func() {
		if err := httpServer.Shutdown(ctx); err != nil {
			slog.With(logging.ErrKey, err).Error("http shutdown error")
		}
		gracefulCloseWG.Done()
	}()

	if consumeCtx != nil {
		consumeCtx.Stop()
	}

	if natsConn != nil && !natsConn.IsClosed() && !natsConn.IsDraining() {
		slog.Info("draining NATS connections")
		if err := natsConn.Drain(); err != nil {
			slog.With(logging.ErrKey, err).Error("error draining NATS connection")
			// Drain failed so the closed handler will never run
			natsConn.Close()
		}
	}

	waitDone := make(chan struct{})
	go func() {
		gracefulCloseWG.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-ctx.Done():
		slog.Warn("graceful shutdown timed out")
	}

	if otelShutdown != nil {
		otelCtx, otelCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer otelCancel()
		if err := otelShutdown(otelCtx); err != nil && !errors.Is(err, context.Canceled) {
			slog.With(logging.ErrKey, err).Error("error shutting down OpenTelemetry")
		}
	}

	slog.Info("graceful shutdown complete")
}

// serviceMeter returns the meter of the global provider installed by the OTel setup.
func serviceMeter() metric.Meter {
	return otel.GetMeterProvider().Meter(meterName)
}
