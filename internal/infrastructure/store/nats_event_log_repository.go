// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
)

// maxConflictRetries bounds the re-read loop on revision conflicts.
const maxConflictRetries = 3

// NatsEventLogRepository is the NATS KV store repository for event log entries.
type NatsEventLogRepository struct {
	*NatsBaseRepository[models.EventLogEntry]
	keyBuilder *KeyBuilder
}

// NewNatsEventLogRepository creates a new NATS KV store repository for event log entries.
func NewNatsEventLogRepository(kvStore INatsKeyValue) *NatsEventLogRepository {
	return &NatsEventLogRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.EventLogEntry](kvStore, "event log entry"),
		keyBuilder:         NewKeyBuilder(""),
	}
}

func (r *NatsEventLogRepository) key(uid string) string {
	return r.keyBuilder.EntityKey(KeyPrefixEventLog, uid)
}

func (r *NatsEventLogRepository) meetingIndexKey(entry *models.EventLogEntry) string {
	if entry == nil || entry.MeetingUID == nil || *entry.MeetingUID == "" {
		return ""
	}
	return r.keyBuilder.IndexKey(KeyPrefixIndexMeeting, *entry.MeetingUID, entry.UID)
}

func indexSet(keys ...string) []string {
	var set []string
	for _, key := range keys {
		if key != "" {
			set = append(set, key)
		}
	}
	return set
}

// Create stores a new event log entry
func (r *NatsEventLogRepository) Create(ctx context.Context, entry *models.EventLogEntry) error {
	if entry.UID == "" {
		entry.UID = uuid.New().String()
	}
	if err := r.NatsBaseRepository.Create(ctx, r.key(entry.UID), entry); err != nil {
		return err
	}
	if err := r.SyncIndexes(ctx, nil, indexSet(r.meetingIndexKey(entry))); err != nil {
		slog.WarnContext(ctx, "failed to create event log index", logging.ErrKey, err, "event_log_uid", entry.UID)
	}
	return nil
}

// GetWithRevision retrieves an event log entry and its revision
func (r *NatsEventLogRepository) GetWithRevision(ctx context.Context, uid string) (*models.EventLogEntry, uint64, error) {
	return r.NatsBaseRepository.GetWithRevision(ctx, r.key(uid))
}

// Update writes the entry if revision is still current
func (r *NatsEventLogRepository) Update(ctx context.Context, entry *models.EventLogEntry, revision uint64) error {
	previous, err := r.NatsBaseRepository.Get(ctx, r.key(entry.UID))
	if err != nil {
		return err
	}
	if err := r.NatsBaseRepository.Update(ctx, r.key(entry.UID), entry, revision); err != nil {
		return err
	}
	before := indexSet(r.meetingIndexKey(previous))
	after := indexSet(r.meetingIndexKey(entry))
	if err := r.SyncIndexes(ctx, before, after); err != nil {
		slog.WarnContext(ctx, "failed to update event log index", logging.ErrKey, err, "event_log_uid", entry.UID)
	}
	return nil
}

// ListByMeetingUID returns the entries that reference a meeting
func (r *NatsEventLogRepository) ListByMeetingUID(ctx context.Context, meetingUID string) ([]*models.EventLogEntry, error) {
	if meetingUID == "" {
		return nil, nil
	}
	uids, err := r.ListIndexedUIDs(ctx, r.keyBuilder.IndexPrefix(KeyPrefixIndexMeeting, meetingUID))
	if err != nil {
		return nil, err
	}

	var entries []*models.EventLogEntry
	for _, segment := range uids {
		uid, err := DecodeSegment(segment)
		if err != nil {
			continue
		}
		entry, _, err := r.GetWithRevision(ctx, uid)
		if err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
				continue
			}
			return nil, err
		}
		if entry.MeetingUID != nil && *entry.MeetingUID == meetingUID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// ClearMeetingReference detaches every entry from a deleted meeting. Entries
// themselves are kept.
func (r *NatsEventLogRepository) ClearMeetingReference(ctx context.Context, meetingUID string) (int, error) {
	entries, err := r.ListByMeetingUID(ctx, meetingUID)
	if err != nil {
		return 0, err
	}

	cleared := 0
	for _, entry := range entries {
		changed, err := r.clearOne(ctx, entry.UID)
		if err != nil {
			return cleared, err
		}
		if changed {
			cleared++
		}
	}
	return cleared, nil
}

func (r *NatsEventLogRepository) clearOne(ctx context.Context, uid string) (bool, error) {
	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		entry, revision, err := r.GetWithRevision(ctx, uid)
		if err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
				return false, nil
			}
			return false, err
		}
		if !entry.ClearMeetingReference() {
			return false, nil
		}
		lastErr = r.Update(ctx, entry, revision)
		if lastErr == nil {
			return true, nil
		}
		if domain.GetErrorType(lastErr) != domain.ErrorTypeConflict {
			return false, lastErr
		}
	}
	return false, lastErr
}
