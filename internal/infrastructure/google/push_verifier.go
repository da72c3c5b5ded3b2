// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package google

import (
	"context"
	"log/slog"
	"strings"

	"google.golang.org/api/idtoken"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
)

// TokenValidator validates a Google-signed OIDC token for an audience.
type TokenValidator interface {
	Validate(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

// PushVerifier authenticates Pub/Sub push requests by their OIDC bearer token.
type PushVerifier struct {
	audience            string
	serviceAccountEmail string
	validator           TokenValidator
}

// Ensure that PushVerifier implements domain.PushVerifier
var _ domain.PushVerifier = (*PushVerifier)(nil)

// NewPushVerifier creates a verifier for tokens minted for audience. When
// serviceAccountEmail is set the token must also carry that email.
func NewPushVerifier(ctx context.Context, audience, serviceAccountEmail string) (*PushVerifier, error) {
	validator, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, err
	}
	return NewPushVerifierWithValidator(audience, serviceAccountEmail, validator), nil
}

// NewPushVerifierWithValidator creates a verifier on top of an existing validator
func NewPushVerifierWithValidator(audience, serviceAccountEmail string, validator TokenValidator) *PushVerifier {
	return &PushVerifier{
		audience:            audience,
		serviceAccountEmail: serviceAccountEmail,
		validator:           validator,
	}
}

// Verify checks the Authorization header of a push request.
func (v *PushVerifier) Verify(ctx context.Context, authorizationHeader string) error {
	token, ok := strings.CutPrefix(authorizationHeader, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return domain.NewAuthError("push request carries no bearer token")
	}

	payload, err := v.validator.Validate(ctx, strings.TrimSpace(token), v.audience)
	if err != nil {
		slog.WarnContext(ctx, "push token rejected", "audience", v.audience, logging.ErrKey, err)
		return domain.NewAuthError("push token is not valid for this endpoint", err)
	}

	if v.serviceAccountEmail != "" {
		email, _ := payload.Claims["email"].(string)
		verified, _ := payload.Claims["email_verified"].(bool)
		if email != v.serviceAccountEmail || !verified {
			return domain.NewAuthError("push token was issued to an unexpected service account")
		}
	}
	return nil
}
