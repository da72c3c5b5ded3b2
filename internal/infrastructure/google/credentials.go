// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package google

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

// CredentialConfig identifies the OAuth client the stored grants were issued to.
type CredentialConfig struct {
	ClientID     string
	ClientSecret string
	// Optional: override the token endpoint (testing)
	TokenURL string
	// Optional: base transport for the token exchange
	Transport http.RoundTripper
}

// CredentialProvider exchanges the stored refresh token of a calendar account
// for an access token. Every call performs a fresh exchange.
type CredentialProvider struct {
	store      domain.CredentialStore
	config     CredentialConfig
	httpClient *http.Client
}

// Ensure that CredentialProvider implements domain.CredentialProvider
var _ domain.CredentialProvider = (*CredentialProvider)(nil)

// NewCredentialProvider creates a new credential provider
func NewCredentialProvider(store domain.CredentialStore, config CredentialConfig) *CredentialProvider {
	if config.TokenURL == "" {
		config.TokenURL = googleoauth.Endpoint.TokenURL
	}
	base := config.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &CredentialProvider{
		store:  store,
		config: config,
		httpClient: &http.Client{
			Timeout:   DefaultClientTimeout,
			Transport: otelhttp.NewTransport(base),
		},
	}
}

// refreshConfig builds a refresh-token grant that carries an explicit scope
// string. The grant type is overridden the same way as for non-standard
// client credential flows.
func (p *CredentialProvider) refreshConfig(refreshToken string, scopes []string) *clientcredentials.Config {
	if len(scopes) == 0 {
		scopes = constants.DefaultScopes
	}
	return &clientcredentials.Config{
		ClientID:     p.config.ClientID,
		ClientSecret: p.config.ClientSecret,
		TokenURL:     p.config.TokenURL,
		Scopes:       scopes,
		EndpointParams: url.Values{
			"grant_type":    []string{"refresh_token"},
			"refresh_token": []string{refreshToken},
		},
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// AccessToken performs the refresh-token grant for accountRef.
func (p *CredentialProvider) AccessToken(ctx context.Context, accountRef string, scopes ...string) (*oauth2.Token, error) {
	if strings.TrimSpace(accountRef) == "" {
		return nil, domain.NewAuthError("no Google calendar account is configured; connect one in the integration settings")
	}

	credential, err := p.store.GetCredential(ctx, accountRef)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, domain.NewAuthError("Google account "+accountRef+" is not connected; authorize it again in the integration settings", err)
		}
		return nil, err
	}
	if credential.RefreshToken == "" {
		return nil, domain.NewAuthError("Google account " + accountRef + " has no stored refresh token; authorize it again in the integration settings")
	}

	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.refreshConfig(credential.RefreshToken, scopes).Token(exchangeCtx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			slog.WarnContext(ctx, "token endpoint rejected the refresh token",
				"account_ref", accountRef,
				"error_code", retrieveErr.ErrorCode,
				logging.ErrKey, err)
			return nil, domain.NewAuthError("Google rejected the stored credential for "+accountRef+"; authorize the account again", err)
		}
		slog.ErrorContext(ctx, "token exchange failed", "account_ref", accountRef, logging.ErrKey, err)
		return nil, domain.NewAuthError("could not reach Google to refresh the credential for "+accountRef+"; try again later", err)
	}
	return token, nil
}

// TokenSource returns a token source seeded with a freshly exchanged token.
// The exchange happens eagerly so credential problems surface as AuthError.
func (p *CredentialProvider) TokenSource(ctx context.Context, accountRef string, scopes ...string) (oauth2.TokenSource, error) {
	token, err := p.AccessToken(ctx, accountRef, scopes...)
	if err != nil {
		return nil, err
	}
	return oauth2.StaticTokenSource(token), nil
}
