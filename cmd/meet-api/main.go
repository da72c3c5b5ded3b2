// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package main is the Google Meet integration service. It serves the
// meeting and settings API, receives the Google push webhooks and runs the
// deferred jobs queued on NATS JetStream.
package main

import (
	"context"
	_ "expvar"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/utils"
)

func main() {
	env := parseEnv()
	flags := parseFlags(env.Port)

	logging.InitStructureLogConfig()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	gracefulCloseWG := sync.WaitGroup{}

	otelShutdown, err := utils.SetupOTelSDK(ctx)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up OpenTelemetry")
		return
	}

	// Set up JWT validator needed by the authorization middleware.
	jwtAuth, err := setupJWTAuth(env)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up JWT authentication")
		os.Exit(1)
	}

	pushVerifier, err := setupPushVerifier(ctx, env)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up Pub/Sub push verification")
		os.Exit(1)
	}

	// Setup NATS connection
	natsConn, err := setupNATS(ctx, env, &gracefulCloseWG, done)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up NATS")
		return
	}
	js, err := jetstream.New(natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error creating JetStream context")
		return
	}

	// Get the key-value stores for the service.
	repos, err := getKeyValueStores(ctx, js)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error getting key-value stores")
		return
	}
	jobConsumer, err := setupJobStream(ctx, js, env.ServiceConfig.JobTimeout)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up job stream")
		return
	}

	clients := setupGoogleClients(env, repos.Credentials)
	scheduler := messaging.NewJobPublisher(js)
	serviceConfig := env.ServiceConfig

	// Initialize services
	subscriptionManager := service.NewSubscriptionManager(clients.Subscriptions)
	meetingController := service.NewMeetingController(
		repos.Meetings,
		repos.EventLogs,
		repos.Settings,
		clients.Calendar,
		subscriptionManager,
		scheduler,
		serviceConfig,
	)
	transcriptRetriever := service.NewTranscriptRetriever(
		repos.Meetings,
		repos.Settings,
		scheduler,
		serviceConfig,
		&service.MeetEntriesSource{Conferences: clients.Conferences},
		&service.DriveDocumentSource{Drive: clients.Drive},
	)
	calendarSync := service.NewCalendarSyncService(
		repos.Meetings,
		repos.Settings,
		clients.Calendar,
		scheduler,
		serviceConfig,
	)
	lookup := service.NewMeetingLookup(repos.Meetings, serviceConfig.FallbackScanLimit, serviceMeter())
	reconciler := service.NewLifecycleReconciler(
		repos.Meetings,
		scheduler,
		lookup,
		transcriptRetriever,
		serviceConfig,
	)
	dispatcher := service.NewEventDispatcher(
		repos.EventLogs,
		repos.Meetings,
		repos.Settings,
		reconciler,
	)
	settingsService := service.NewSettingsService(
		repos.Settings,
		repos.Credentials,
		clients.Credentials,
		subscriptionManager,
	)
	maintenance := service.NewMaintenanceService(
		repos.Meetings,
		repos.Settings,
		scheduler,
		calendarSync,
		serviceConfig,
	)

	// Initialize handlers
	jobHandler := handlers.NewJobHandler(meetingController, transcriptRetriever, calendarSync)
	consumeCtx, err := messaging.NewJobConsumer(jobHandler).Start(ctx, jobConsumer)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error starting job consumer")
		return
	}

	go maintenance.Start(ctx, env.MaintenanceInterval)

	svc := NewMeetAPI(meetingController, settingsService, calendarSync, dispatcher, pushVerifier)
	httpServer := setupHTTPServer(flags, svc, jwtAuth, &gracefulCloseWG)

	// This next line blocks until SIGINT or SIGTERM is received.
	<-done

	gracefulShutdown(httpServer, consumeCtx, natsConn, otelShutdown, &gracefulCloseWG, cancel)
}
