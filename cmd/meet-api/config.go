// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

// flags are the command line flags for the service.
type flags struct {
	Debug bool
	Port  string
	Bind  string
}

// environment are the environment variables for the service.
type environment struct {
	Port    string
	NatsURL string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleTokenURL     string
	GoogleAPIEndpoint  string

	// PubSubAudience enables OIDC verification of Pub/Sub push requests.
	PubSubAudience       string
	PubSubServiceAccount string

	JWKSURL            string
	JWTAudience        string
	MockLocalPrincipal string

	MaintenanceInterval time.Duration
	ServiceConfig       service.ServiceConfig
}

// parseFlags parses command line flags for the service
func parseFlags(defaultPort string) flags {
	var debug = flag.Bool("d", false, "enable debug logging")
	var port = flag.String("p", defaultPort, "listen port")
	var bind = flag.String("bind", "*", "interface to bind on")

	flag.Usage = func() {
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	// Based on the debug flag, set the log level environment variable used by [logging.InitStructureLogConfig]
	if *debug {
		err := os.Setenv("LOG_LEVEL", "debug")
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error setting log level")
			os.Exit(1)
		}
	}

	return flags{
		Debug: *debug,
		Port:  *port,
		Bind:  *bind,
	}
}

// parseEnv parses environment variables for the service
func parseEnv() environment {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	tokenURL := os.Getenv("GOOGLE_TOKEN_URL")
	if tokenURL == "" {
		tokenURL = constants.GoogleTokenURL
	}

	return environment{
		Port:                 port,
		NatsURL:              natsURL,
		GoogleClientID:       os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:   os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleTokenURL:       tokenURL,
		GoogleAPIEndpoint:    os.Getenv("GOOGLE_API_ENDPOINT"),
		PubSubAudience:       os.Getenv("PUBSUB_AUDIENCE"),
		PubSubServiceAccount: os.Getenv("PUBSUB_SERVICE_ACCOUNT"),
		JWKSURL:              os.Getenv("JWKS_URL"),
		JWTAudience:          os.Getenv("JWT_AUDIENCE"),
		MockLocalPrincipal:   os.Getenv("JWT_AUTH_DISABLED_MOCK_LOCAL_PRINCIPAL"),
		MaintenanceInterval:  envDuration("MAINTENANCE_INTERVAL", constants.DefaultMaintenanceInterval),
		ServiceConfig: service.ServiceConfig{
			TranscriptMaxAttempts:    envInt("TRANSCRIPT_MAX_ATTEMPTS", constants.DefaultTranscriptMaxAttempts),
			TranscriptRetryBaseDelay: envDuration("TRANSCRIPT_RETRY_BASE_DELAY", constants.DefaultTranscriptRetryBaseDelay),
			TranscriptRetryMaxDelay:  envDuration("TRANSCRIPT_RETRY_MAX_DELAY", constants.DefaultTranscriptRetryMaxDelay),
			JobTimeout:               envDuration("JOB_TIMEOUT", constants.DefaultJobTimeout),
		}.WithDefaults(),
	}
}

// envInt reads a positive integer, falling back on missing or invalid values.
func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		slog.With(logging.ErrKey, err, "key", key, "value", raw).Warn("invalid integer environment variable, using default")
		return fallback
	}
	return value
}

// envDuration reads a positive Go duration ("90s", "5m"), falling back on missing or invalid values.
func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		slog.With(logging.ErrKey, err, "key", key, "value", raw).Warn("invalid duration environment variable, using default")
		return fallback
	}
	return value
}
