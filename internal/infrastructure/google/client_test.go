// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
)

// staticCredentials hands out a fixed token for every account.
type staticCredentials struct {
	err error
}

func (s staticCredentials) AccessToken(ctx context.Context, accountRef string, scopes ...string) (*oauth2.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &oauth2.Token{AccessToken: "test-token", TokenType: "Bearer"}, nil
}

func (s staticCredentials) TokenSource(ctx context.Context, accountRef string, scopes ...string) (oauth2.TokenSource, error) {
	token, err := s.AccessToken(ctx, accountRef, scopes...)
	if err != nil {
		return nil, err
	}
	return oauth2.StaticTokenSource(token), nil
}

// newTestClient points a client at an httptest server.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		Endpoint:       server.URL + "/",
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}, staticCredentials{})
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func writeAPIError(t *testing.T, w http.ResponseWriter, status int) {
	writeJSON(t, w, status, map[string]any{
		"error": map[string]any{"code": status, "message": http.StatusText(status)},
	})
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{}, staticCredentials{})

	assert.Equal(t, DefaultClientTimeout, client.config.Timeout)
	assert.Equal(t, DefaultMaxRetries, client.config.MaxRetries)
	assert.Equal(t, DefaultInitialBackoff, client.config.InitialBackoff)
	assert.Equal(t, DefaultMaxBackoff, client.config.MaxBackoff)
	assert.NotNil(t, client.transport)
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "rate limited", err: &googleapi.Error{Code: http.StatusTooManyRequests}, want: true},
		{name: "server error", err: &googleapi.Error{Code: http.StatusBadGateway}, want: true},
		{name: "not found", err: &googleapi.Error{Code: http.StatusNotFound}, want: false},
		{name: "forbidden", err: &googleapi.Error{Code: http.StatusForbidden}, want: false},
		{name: "cancelled", err: context.Canceled, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldRetry(tt.err))
		})
	}
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		code int
		want domain.ErrorType
	}{
		{name: "unauthorized", code: http.StatusUnauthorized, want: domain.ErrorTypeUnauthorized},
		{name: "not found", code: http.StatusNotFound, want: domain.ErrorTypeNotFound},
		{name: "gone", code: http.StatusGone, want: domain.ErrorTypeNotFound},
		{name: "conflict", code: http.StatusConflict, want: domain.ErrorTypeConflict},
		{name: "bad request", code: http.StatusBadRequest, want: domain.ErrorTypeValidation},
		{name: "server error", code: http.StatusInternalServerError, want: domain.ErrorTypeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translateError("op", &googleapi.Error{Code: tt.code})
			assert.Equal(t, tt.want, domain.GetErrorType(err))
			assert.Equal(t, tt.code, statusCode(err))
		})
	}

	authErr := domain.NewAuthError("reconnect")
	assert.Same(t, authErr, translateError("op", authErr))
}

func TestCall_RetriesServerErrors(t *testing.T) {
	client := NewClient(Config{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}, staticCredentials{})

	attempts := 0
	result, err := call(context.Background(), client, "test", func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", &googleapi.Error{Code: http.StatusServiceUnavailable}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attempts)
}

func TestCall_StopsOnClientErrors(t *testing.T) {
	client := NewClient(Config{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}, staticCredentials{})

	attempts := 0
	_, err := call(context.Background(), client, "test", func() (string, error) {
		attempts++
		return "", &googleapi.Error{Code: http.StatusNotFound}
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}

func TestCall_GivesUpAfterMaxRetries(t *testing.T) {
	client := NewClient(Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}, staticCredentials{})

	attempts := 0
	_, err := call(context.Background(), client, "test", func() (string, error) {
		attempts++
		return "", &googleapi.Error{Code: http.StatusInternalServerError}
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
}

func TestClient_CredentialFailureSurfaces(t *testing.T) {
	client := NewClient(Config{}, staticCredentials{err: domain.NewAuthError("connect the account")})

	_, err := client.options(context.Background(), "ops@example.com")

	require.Error(t, err)
	assert.True(t, domain.IsAuthError(err))
}
