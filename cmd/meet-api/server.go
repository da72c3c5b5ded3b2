// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

const serverName = "lfx-v2-google-meet-service"

// newRouter mounts the webhooks, the probes and the JWT-protected API.
func newRouter(svc *MeetAPI, parser middleware.PrincipalParser) http.Handler {
	r := chi.NewRouter()

	// Note: Order matters - the request ID must be set before the request logger reads it.
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RequestLoggerMiddleware())
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.WebhookBodyCaptureMiddleware(constants.EventsWebhookPath))

	r.Get(constants.LivezPath, svc.Livez)
	r.Get(constants.ReadyzPath, svc.Readyz)

	// Google authenticates its own requests, so the webhooks sit outside the JWT group.
	r.Post(constants.CalendarWebhookPath, svc.CalendarWebhook)
	r.Post(constants.EventsWebhookPath, svc.EventsWebhook)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthorizationMiddleware(parser))

		r.Route("/meetings", func(r chi.Router) {
			r.Post("/", svc.CreateMeeting)
			r.Get("/{uid}", svc.GetMeeting)
			r.Put("/{uid}", svc.UpdateMeeting)
			r.Delete("/{uid}", svc.DeleteMeeting)
			r.Post("/{uid}/transcript", svc.FetchTranscript)
			r.Post("/{uid}/subscription", svc.CreateMeetingSubscription)
			r.Get("/{uid}/subscription", svc.GetMeetingSubscription)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", svc.GetSettings)
			r.Put("/", svc.UpdateSettings)
			r.Post("/subscription", svc.CreateUserSubscription)
			r.Get("/subscription", svc.GetUserSubscription)
			r.Delete("/subscription", svc.DeleteUserSubscription)
			r.Post("/calendar-watch", svc.WatchCalendar)
			r.Delete("/calendar-watch", svc.StopCalendarWatch)
			r.Put("/credential", svc.ConnectCredential)
			r.Delete("/credential", svc.DisconnectCredential)
		})

		r.Get("/subscriptions", svc.ListSubscriptions)
	})

	return r
}

// setupHTTPServer configures and starts the HTTP server
func setupHTTPServer(flags flags, svc *MeetAPI, parser middleware.PrincipalParser, gracefulCloseWG *sync.WaitGroup) *http.Server {
	handler := otelhttp.NewHandler(newRouter(svc, parser), serverName,
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != constants.LivezPath && r.URL.Path != constants.ReadyzPath
		}),
	)

	// Set up http listener in a goroutine using provided command line parameters.
	var addr string
	if flags.Bind == "*" {
		addr = ":" + flags.Port
	} else {
		addr = flags.Bind + ":" + flags.Port
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 3 * time.Second,
	}
	gracefulCloseWG.Add(1)
	go func() {
		slog.With("addr", addr).Debug("starting http server, listening on port " + flags.Port)
		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			slog.With(logging.ErrKey, err).Error("http listener error")
			os.Exit(1)
		}
		// ErrServerClosed is returned as soon as Shutdown is called, so the
		// wait group is released by gracefulShutdown instead.
	}()

	return httpServer
}
