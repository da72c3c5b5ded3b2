// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })
	return buf
}

func TestRequestLoggerMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		status     int
		wantLogged bool
	}{
		{name: "logs api requests", path: "/meetings/abc", status: http.StatusNotFound, wantLogged: true},
		{name: "logs webhooks", path: constants.EventsWebhookPath, status: http.StatusOK, wantLogged: true},
		{name: "skips liveness", path: constants.LivezPath, status: http.StatusOK},
		{name: "skips readiness", path: constants.ReadyzPath, status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureLogs(t)
			handler := RequestLoggerMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, w.Code)
			if tt.wantLogged {
				assert.Contains(t, logs.String(), "HTTP response")
				assert.Contains(t, logs.String(), `"status":`)
			} else {
				assert.Empty(t, logs.String())
			}
		})
	}
}
