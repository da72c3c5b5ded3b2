// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

const (
	// DefaultClientTimeout is the default HTTP client timeout for Google API requests
	DefaultClientTimeout = 30 * time.Second
	// Default retry configuration
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = 1 * time.Second
	DefaultMaxBackoff     = 30 * time.Second
)

// Config holds the configuration shared by the Google API clients
type Config struct {
	// Optional: override the API endpoint of every service (testing)
	Endpoint string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
	// Optional: retry configuration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// Optional: base transport, wrapped with otelhttp. nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// Client is the shared plumbing of the Calendar, Meet, Drive and Workspace
// Events clients: per-call credentials, instrumented transport and retries.
type Client struct {
	config      Config
	credentials domain.CredentialProvider
	transport   http.RoundTripper
}

// NewClient creates a new Google API client
func NewClient(config Config, credentials domain.CredentialProvider) *Client {
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = DefaultInitialBackoff
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = DefaultMaxBackoff
	}
	base := config.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &Client{
		config:      config,
		credentials: credentials,
		transport:   otelhttp.NewTransport(base),
	}
}

// options builds the client options of one API call. A fresh token is
// obtained on every call.
func (c *Client) options(ctx context.Context, accountRef string) ([]option.ClientOption, error) {
	ts, err := c.credentials.TokenSource(ctx, accountRef, constants.DefaultScopes...)
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{
		Timeout: c.config.Timeout,
		Transport: &oauth2.Transport{
			Base:   c.transport,
			Source: ts,
		},
	}
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.config.Endpoint))
	}
	return opts, nil
}

// shouldRetry determines if an API error should be retried
func shouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// statusCode extracts the HTTP status of a Google API error, or 0.
func statusCode(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// isNotFound reports whether the API answered 404 or 410.
func isNotFound(err error) bool {
	code := statusCode(err)
	return code == http.StatusNotFound || code == http.StatusGone
}

// call runs fn with exponential backoff on rate limiting, server errors and
// network failures. Other errors are returned immediately.
func call[T any](ctx context.Context, c *Client, op string, fn func() (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !shouldRetry(err) {
			return result, backoff.Permanent(err)
		}
		slog.WarnContext(ctx, "Google API request failed, retrying",
			"operation", op,
			"status", statusCode(err),
			"attempt", attempt,
			"max_retries", c.config.MaxRetries,
			logging.ErrKey, err)
		return result, err
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = c.config.InitialBackoff
	expBackoff.MaxInterval = c.config.MaxBackoff

	start := time.Now()
	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(uint(c.config.MaxRetries+1)),
	)
	if err != nil {
		slog.ErrorContext(ctx, "Google API request failed",
			"operation", op,
			"status", statusCode(err),
			"attempts", attempt,
			"duration", time.Since(start).String(),
			logging.ErrKey, err)
		return result, translateError(op, err)
	}
	slog.DebugContext(ctx, "Google API request completed",
		"operation", op,
		"attempts", attempt,
		"duration", time.Since(start).String(),
	)
	return result, nil
}

// translateError maps a Google API failure onto the domain error family.
func translateError(op string, err error) error {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	msg := fmt.Sprintf("google api %s failed", op)
	switch code := statusCode(err); {
	case code == http.StatusUnauthorized:
		return domain.NewAuthError("Google rejected the request credentials; reconnect the Google account", err)
	case code == http.StatusNotFound || code == http.StatusGone:
		return domain.NewNotFoundError(msg, err)
	case code == http.StatusConflict:
		return domain.NewConflictError(msg, err)
	case code == http.StatusBadRequest || code == http.StatusForbidden:
		return domain.NewValidationError(msg, err)
	default:
		return domain.NewUnavailableError(msg, err)
	}
}
