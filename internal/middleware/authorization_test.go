// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

type stubParser struct {
	principal string
	err       error
	token     string
}

func (s *stubParser) ParsePrincipal(_ context.Context, token string, _ *slog.Logger) (string, error) {
	s.token = token
	return s.principal, s.err
}

func TestAuthorizationMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		header        string
		parser        *stubParser
		wantStatus    int
		wantPrincipal string
		wantToken     string
	}{
		{
			name:          "valid bearer token",
			header:        "Bearer token-1",
			parser:        &stubParser{principal: "user-1"},
			wantStatus:    http.StatusOK,
			wantPrincipal: "user-1",
			wantToken:     "token-1",
		},
		{
			name:          "scheme is case insensitive",
			header:        "bearer token-2",
			parser:        &stubParser{principal: "user-2"},
			wantStatus:    http.StatusOK,
			wantPrincipal: "user-2",
			wantToken:     "token-2",
		},
		{
			name:       "missing header",
			parser:     &stubParser{principal: "user-1"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "basic auth",
			header:     "Basic dXNlcjpwYXNz",
			parser:     &stubParser{principal: "user-1"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "rejected token",
			header:     "Bearer expired",
			parser:     &stubParser{err: errors.New("token expired")},
			wantStatus: http.StatusUnauthorized,
			wantToken:  "expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var principal string
			handler := AuthorizationMiddleware(tt.parser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				principal = PrincipalFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/settings", nil)
			if tt.header != "" {
				req.Header.Set(constants.AuthorizationHeader, tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantPrincipal, principal)
			assert.Equal(t, tt.wantToken, tt.parser.token)

			if tt.wantStatus == http.StatusUnauthorized {
				var body map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, "401", body["code"])
				assert.NotEmpty(t, body["message"])
			}
		})
	}
}
