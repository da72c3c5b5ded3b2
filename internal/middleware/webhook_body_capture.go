// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
)

// MaxWebhookBodyBytes bounds the size of a captured webhook body.
const MaxWebhookBodyBytes = 1 << 20

// WebhookBodyContextKey is the context key for storing raw webhook body
type WebhookBodyContextKey struct{}

// WebhookBodyErrorContextKey is the context key for storing the error raised
// while reading a webhook body
type WebhookBodyErrorContextKey struct{}

// WebhookBodyCaptureMiddleware captures the raw request body of the given
// webhook paths and stores it in the request context. The body stays readable
// by the next handler. A body that cannot be read, or exceeds
// MaxWebhookBodyBytes, is not rejected here: the error is stored in the
// context and the webhook handler decides how to acknowledge it.
func WebhookBodyCaptureMiddleware(paths ...string) func(http.Handler) http.Handler {
	capture := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		capture[path] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := capture[r.URL.Path]; ok {
				body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBodyBytes))
				if err != nil {
					slog.WarnContext(r.Context(), "failed to read webhook body", logging.ErrKey, err)
					_ = r.Body.Close()
					r.Body = http.NoBody
					r = r.WithContext(context.WithValue(r.Context(), WebhookBodyErrorContextKey{}, err))
					next.ServeHTTP(w, r)
					return
				}
				_ = r.Body.Close()

				r.Body = io.NopCloser(bytes.NewReader(body))
				ctx := context.WithValue(r.Context(), WebhookBodyContextKey{}, body)
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetRawBodyFromContext extracts the raw body from the context
func GetRawBodyFromContext(ctx context.Context) ([]byte, bool) {
	body, ok := ctx.Value(WebhookBodyContextKey{}).([]byte)
	return body, ok
}

// GetBodyErrorFromContext returns the error raised while capturing the body, if any
func GetBodyErrorFromContext(ctx context.Context) error {
	err, _ := ctx.Value(WebhookBodyErrorContextKey{}).(error)
	return err
}

// IsBodyTooLarge reports whether err comes from a body over MaxWebhookBodyBytes.
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
