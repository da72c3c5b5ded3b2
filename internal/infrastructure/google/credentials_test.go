// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

func newTokenServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server.URL
}

func TestCredentialProvider_AccessToken(t *testing.T) {
	tokenURL := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "stored-refresh", r.Form.Get("refresh_token"))
		assert.Equal(t, "client-id", r.Form.Get("client_id"))
		assert.Equal(t, strings.Join(constants.DefaultScopes, " "), r.Form.Get("scope"))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"access_token": "fresh-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})

	store := &mocks.MockCredentialStore{}
	store.On("GetCredential", mock.Anything, "ops@example.com").
		Return(&models.OAuthCredential{AccountRef: "ops@example.com", RefreshToken: "stored-refresh"}, nil)

	provider := NewCredentialProvider(store, CredentialConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURL:     tokenURL,
	})

	token, err := provider.AccessToken(context.Background(), "ops@example.com")

	require.NoError(t, err)
	assert.Equal(t, "fresh-access", token.AccessToken)
	store.AssertExpectations(t)
}

func TestCredentialProvider_NoCaching(t *testing.T) {
	exchanges := 0
	tokenURL := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		exchanges++
		writeJSON(t, w, http.StatusOK, map[string]any{"access_token": "a", "token_type": "Bearer", "expires_in": 3600})
	})

	store := &mocks.MockCredentialStore{}
	store.On("GetCredential", mock.Anything, "ops@example.com").
		Return(&models.OAuthCredential{AccountRef: "ops@example.com", RefreshToken: "r"}, nil)
	provider := NewCredentialProvider(store, CredentialConfig{ClientID: "id", TokenURL: tokenURL})

	_, err := provider.TokenSource(context.Background(), "ops@example.com")
	require.NoError(t, err)
	_, err = provider.TokenSource(context.Background(), "ops@example.com")
	require.NoError(t, err)

	assert.Equal(t, 2, exchanges)
}

func TestCredentialProvider_AuthErrors(t *testing.T) {
	rejecting := func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusBadRequest, map[string]any{
			"error":             "invalid_grant",
			"error_description": "Token has been expired or revoked.",
		})
	}

	tests := []struct {
		name       string
		accountRef string
		setupMock  func(*mocks.MockCredentialStore)
		wantInMsg  string
	}{
		{
			name:       "no account configured",
			accountRef: "",
			setupMock:  func(*mocks.MockCredentialStore) {},
			wantInMsg:  "no Google calendar account is configured",
		},
		{
			name:       "no stored credential",
			accountRef: "ops@example.com",
			setupMock: func(store *mocks.MockCredentialStore) {
				store.On("GetCredential", mock.Anything, "ops@example.com").
					Return(nil, domain.NewNotFoundError("credential not found", domain.ErrCredentialNotFound))
			},
			wantInMsg: "is not connected",
		},
		{
			name:       "empty refresh token",
			accountRef: "ops@example.com",
			setupMock: func(store *mocks.MockCredentialStore) {
				store.On("GetCredential", mock.Anything, "ops@example.com").
					Return(&models.OAuthCredential{AccountRef: "ops@example.com"}, nil)
			},
			wantInMsg: "no stored refresh token",
		},
		{
			name:       "revoked credential",
			accountRef: "ops@example.com",
			setupMock: func(store *mocks.MockCredentialStore) {
				store.On("GetCredential", mock.Anything, "ops@example.com").
					Return(&models.OAuthCredential{AccountRef: "ops@example.com", RefreshToken: "revoked"}, nil)
			},
			wantInMsg: "rejected the stored credential",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mocks.MockCredentialStore{}
			tt.setupMock(store)
			provider := NewCredentialProvider(store, CredentialConfig{
				ClientID: "id",
				TokenURL: newTokenServer(t, rejecting),
			})

			_, err := provider.AccessToken(context.Background(), tt.accountRef)

			require.Error(t, err)
			assert.True(t, domain.IsAuthError(err))
			assert.Contains(t, err.Error(), tt.wantInMsg)
		})
	}
}

func TestCredentialProvider_StoreFailurePropagates(t *testing.T) {
	store := &mocks.MockCredentialStore{}
	store.On("GetCredential", mock.Anything, "ops@example.com").
		Return(nil, domain.NewUnavailableError("kv down"))
	provider := NewCredentialProvider(store, CredentialConfig{})

	_, err := provider.AccessToken(context.Background(), "ops@example.com")

	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
}
