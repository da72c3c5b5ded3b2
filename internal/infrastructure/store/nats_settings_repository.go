// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
)

// NatsSettingsRepository stores the single integration settings document.
type NatsSettingsRepository struct {
	*NatsBaseRepository[models.IntegrationSettings]
	keyBuilder *KeyBuilder
}

// NewNatsSettingsRepository creates a new NATS KV store repository for the integration settings.
func NewNatsSettingsRepository(kvStore INatsKeyValue) *NatsSettingsRepository {
	return &NatsSettingsRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.IntegrationSettings](kvStore, "integration settings"),
		keyBuilder:         NewKeyBuilder(""),
	}
}

// GetWithRevision returns the settings document and its revision.
func (r *NatsSettingsRepository) GetWithRevision(ctx context.Context) (*models.IntegrationSettings, uint64, error) {
	settings, revision, err := r.NatsBaseRepository.GetWithRevision(ctx, r.keyBuilder.CompoundKey(KeySettings))
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, 0, domain.NewNotFoundError("integration settings have not been configured", domain.ErrSettingsNotFound)
		}
		return nil, 0, err
	}
	return settings, revision, nil
}

// Put creates the document when revision is 0 and updates it otherwise.
func (r *NatsSettingsRepository) Put(ctx context.Context, settings *models.IntegrationSettings, revision uint64) error {
	key := r.keyBuilder.CompoundKey(KeySettings)
	if revision == 0 {
		return r.NatsBaseRepository.Create(ctx, key, settings)
	}
	return r.NatsBaseRepository.Update(ctx, key, settings, revision)
}
