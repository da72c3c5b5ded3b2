// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"time"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
)

// NatsCredentialRepository stores the refresh credentials of connected calendar accounts.
type NatsCredentialRepository struct {
	*NatsBaseRepository[models.OAuthCredential]
	keyBuilder *KeyBuilder
}

// NewNatsCredentialRepository creates a new NATS KV store repository for OAuth credentials.
func NewNatsCredentialRepository(kvStore INatsKeyValue) *NatsCredentialRepository {
	return &NatsCredentialRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.OAuthCredential](kvStore, "credential"),
		keyBuilder:         NewKeyBuilder(""),
	}
}

func (r *NatsCredentialRepository) key(accountRef string) string {
	return r.keyBuilder.EntityKey(KeyPrefixCredential, accountRef)
}

// GetCredential returns the stored credential of accountRef.
func (r *NatsCredentialRepository) GetCredential(ctx context.Context, accountRef string) (*models.OAuthCredential, error) {
	credential, err := r.NatsBaseRepository.Get(ctx, r.key(accountRef))
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, domain.NewNotFoundError("no credential stored for "+accountRef, domain.ErrCredentialNotFound)
		}
		return nil, err
	}
	return credential, nil
}

// PutCredential stores or replaces a credential.
func (r *NatsCredentialRepository) PutCredential(ctx context.Context, credential *models.OAuthCredential) error {
	if credential.AccountRef == "" {
		return domain.NewValidationError("credential account reference is required")
	}
	now := time.Now().UTC()
	credential.UpdatedAt = &now
	return r.NatsBaseRepository.Create(ctx, r.key(credential.AccountRef), credential)
}

// DeleteCredential removes a credential. Deleting a missing credential is not an error.
func (r *NatsCredentialRepository) DeleteCredential(ctx context.Context, accountRef string) error {
	_, revision, err := r.NatsBaseRepository.GetWithRevision(ctx, r.key(accountRef))
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil
		}
		return err
	}
	return r.NatsBaseRepository.Delete(ctx, r.key(accountRef), revision)
}
