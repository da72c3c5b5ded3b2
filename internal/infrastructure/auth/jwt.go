// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package auth parses the principal of bearer tokens issued by Heimdall.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
)

const (
	// PS256 is the signing algorithm of Heimdall tokens.
	PS256 = validator.PS256

	defaultIssuer   = "heimdall"
	defaultAudience = "lfx-v2-google-meet-service"
	defaultJWKSURL  = "http://heimdall:4457/.well-known/jwks"

	jwksCacheTTL = 5 * time.Minute
	clockSkew    = 5 * time.Second
)

// HeimdallClaims are the custom claims Heimdall adds to the tokens it mints.
type HeimdallClaims struct {
	Principal string `json:"principal"`
	Email     string `json:"email,omitempty"`
}

// Validate implements validator.CustomClaims.
func (c *HeimdallClaims) Validate(_ context.Context) error {
	if c.Principal == "" {
		return errors.New("principal must be provided")
	}
	return nil
}

// JWTAuthConfig configures token validation. Empty fields take the in-cluster defaults.
type JWTAuthConfig struct {
	JWKSURL  string
	Audience string
	// MockLocalPrincipal disables validation and returns this principal for every token.
	MockLocalPrincipal string
}

// JWTAuth validates bearer tokens against the Heimdall JWKS.
type JWTAuth struct {
	validator *validator.Validator
	config    JWTAuthConfig
}

// NewJWTAuth creates a JWTAuth. The JWKS is fetched lazily on the first validation.
func NewJWTAuth(config JWTAuthConfig) (*JWTAuth, error) {
	if config.JWKSURL == "" {
		config.JWKSURL = defaultJWKSURL
	}
	if config.Audience == "" {
		config.Audience = defaultAudience
	}

	jwksURL, err := url.Parse(config.JWKSURL)
	if err != nil {
		return nil, err
	}
	issuer, err := url.Parse(defaultIssuer)
	if err != nil {
		return nil, err
	}

	provider := jwks.NewCachingProvider(issuer, jwksCacheTTL, jwks.WithCustomJWKSURI(jwksURL))

	customClaims := func() validator.CustomClaims {
		return &HeimdallClaims{}
	}

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		PS256,
		issuer.String(),
		[]string{config.Audience},
		validator.WithCustomClaims(customClaims),
		validator.WithAllowedClockSkew(clockSkew),
	)
	if err != nil {
		return nil, err
	}

	return &JWTAuth{
		validator: jwtValidator,
		config:    config,
	}, nil
}

// ParsePrincipal validates the token and returns its Heimdall principal.
func (j *JWTAuth) ParsePrincipal(ctx context.Context, token string, logger *slog.Logger) (string, error) {
	if j.config.MockLocalPrincipal != "" {
		logger.WarnContext(ctx, "JWT validation is disabled, using mock principal",
			"principal", j.config.MockLocalPrincipal)
		return j.config.MockLocalPrincipal, nil
	}

	if j.validator == nil {
		return "", errors.New("JWT validator is not set up")
	}

	parsed, err := j.validator.ValidateToken(ctx, token)
	if err != nil {
		logger.WarnContext(ctx, "bearer token rejected", logging.ErrKey, err)
		return "", jwtmiddleware.ErrJWTInvalid
	}

	claims, ok := parsed.(*validator.ValidatedClaims)
	if !ok {
		return "", errors.New("failed to get validated authorization claims")
	}
	heimdall, ok := claims.CustomClaims.(*HeimdallClaims)
	if !ok {
		return "", errors.New("failed to get custom authorization claims")
	}

	return heimdall.Principal, nil
}
