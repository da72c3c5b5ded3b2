// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
)

// NatsMeetingRecordRepository is the NATS KV store repository for meeting records.
// Records are stored under "meeting/<uid>" with secondary indexes on the
// conference id, the status and the calendar event id.
type NatsMeetingRecordRepository struct {
	*NatsBaseRepository[models.MeetingRecord]
	keyBuilder *KeyBuilder
}

// NewNatsMeetingRecordRepository creates a new NATS KV store repository for meeting records.
func NewNatsMeetingRecordRepository(kvStore INatsKeyValue) *NatsMeetingRecordRepository {
	return &NatsMeetingRecordRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.MeetingRecord](kvStore, "meeting record"),
		keyBuilder:         NewKeyBuilder(""),
	}
}

func (r *NatsMeetingRecordRepository) key(uid string) string {
	return r.keyBuilder.EntityKey(KeyPrefixMeetingRecord, uid)
}

// indexKeys returns every index key the record should be reachable through.
func (r *NatsMeetingRecordRepository) indexKeys(record *models.MeetingRecord) []string {
	if record == nil {
		return nil
	}
	var keys []string
	if record.ConferenceID != "" {
		keys = append(keys, r.keyBuilder.IndexKey(KeyPrefixIndexConference, record.ConferenceID, record.UID))
	}
	status := record.Status
	if status == "" {
		status = models.MeetingStatusScheduled
	}
	keys = append(keys, r.keyBuilder.IndexKey(KeyPrefixIndexStatus, StatusSlug(string(status)), record.UID))
	if record.CalendarEventID != "" {
		keys = append(keys, r.keyBuilder.IndexKey(KeyPrefixIndexCalendarEvent, record.CalendarEventID, record.UID))
	}
	return keys
}

// Create stores a new meeting record and its indexes. A missing uid is generated.
func (r *NatsMeetingRecordRepository) Create(ctx context.Context, record *models.MeetingRecord) error {
	if record.UID == "" {
		record.UID = uuid.New().String()
	}

	if err := r.NatsBaseRepository.Create(ctx, r.key(record.UID), record); err != nil {
		return err
	}

	if err := r.SyncIndexes(ctx, nil, r.indexKeys(record)); err != nil {
		slog.WarnContext(ctx, "failed to create meeting record indexes",
			logging.ErrKey, err, "meeting_uid", record.UID)
	}
	return nil
}

// Exists checks if a meeting record exists
func (r *NatsMeetingRecordRepository) Exists(ctx context.Context, uid string) (bool, error) {
	return r.NatsBaseRepository.Exists(ctx, r.key(uid))
}

// Get retrieves a meeting record by uid
func (r *NatsMeetingRecordRepository) Get(ctx context.Context, uid string) (*models.MeetingRecord, error) {
	record, _, err := r.GetWithRevision(ctx, uid)
	return record, err
}

// GetWithRevision retrieves a meeting record and its revision by uid
func (r *NatsMeetingRecordRepository) GetWithRevision(ctx context.Context, uid string) (*models.MeetingRecord, uint64, error) {
	record, revision, err := r.NatsBaseRepository.GetWithRevision(ctx, r.key(uid))
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, 0, domain.NewNotFoundError("meeting record not found", domain.ErrMeetingNotFound, err)
		}
		return nil, 0, err
	}
	return record, revision, nil
}

// Update writes the record if revision is still current and moves its indexes
// to follow changed conference id, status or calendar event id.
func (r *NatsMeetingRecordRepository) Update(ctx context.Context, record *models.MeetingRecord, revision uint64) error {
	previous, err := r.NatsBaseRepository.Get(ctx, r.key(record.UID))
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return domain.NewNotFoundError("meeting record not found", domain.ErrMeetingNotFound, err)
		}
		return err
	}

	if err := r.NatsBaseRepository.Update(ctx, r.key(record.UID), record, revision); err != nil {
		return err
	}

	if err := r.SyncIndexes(ctx, r.indexKeys(previous), r.indexKeys(record)); err != nil {
		slog.WarnContext(ctx, "failed to update meeting record indexes",
			logging.ErrKey, err, "meeting_uid", record.UID)
	}
	return nil
}

// Delete removes a meeting record and its indexes
func (r *NatsMeetingRecordRepository) Delete(ctx context.Context, uid string, revision uint64) error {
	record, err := r.Get(ctx, uid)
	if err != nil {
		return err
	}

	if err := r.NatsBaseRepository.Delete(ctx, r.key(uid), revision); err != nil {
		return err
	}

	if err := r.SyncIndexes(ctx, r.indexKeys(record), nil); err != nil {
		slog.WarnContext(ctx, "failed to delete meeting record indexes",
			logging.ErrKey, err, "meeting_uid", uid)
	}
	return nil
}

// ListAll lists every meeting record
func (r *NatsMeetingRecordRepository) ListAll(ctx context.Context) ([]*models.MeetingRecord, error) {
	return r.ListEntities(ctx, r.keyBuilder.EntityPrefix(KeyPrefixMeetingRecord))
}

// listIndexed loads the records an index prefix points at. Dangling index
// entries are skipped.
func (r *NatsMeetingRecordRepository) listIndexed(ctx context.Context, indexPrefix string) ([]*models.MeetingRecord, error) {
	uids, err := r.ListIndexedUIDs(ctx, indexPrefix)
	if err != nil {
		return nil, err
	}

	records := make([]*models.MeetingRecord, 0, len(uids))
	for _, segment := range uids {
		uid, err := DecodeSegment(segment)
		if err != nil {
			slog.WarnContext(ctx, "skipping malformed index entry", logging.ErrKey, err, "index_prefix", indexPrefix)
			continue
		}
		record, err := r.Get(ctx, uid)
		if err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
				slog.DebugContext(ctx, "skipping dangling index entry", "meeting_uid", uid, "index_prefix", indexPrefix)
				continue
			}
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// ListByConferenceID returns the records carrying conferenceID
func (r *NatsMeetingRecordRepository) ListByConferenceID(ctx context.Context, conferenceID string) ([]*models.MeetingRecord, error) {
	if conferenceID == "" {
		return nil, nil
	}
	records, err := r.listIndexed(ctx, r.keyBuilder.IndexPrefix(KeyPrefixIndexConference, conferenceID))
	if err != nil {
		return nil, err
	}
	// The index can lag behind an update; trust only the record itself.
	matching := records[:0]
	for _, record := range records {
		if record.ConferenceID == conferenceID {
			matching = append(matching, record)
		}
	}
	return matching, nil
}

// ListByStatus returns the records whose status is one of statuses
func (r *NatsMeetingRecordRepository) ListByStatus(ctx context.Context, statuses ...models.MeetingStatus) ([]*models.MeetingRecord, error) {
	var result []*models.MeetingRecord
	seen := make(map[string]bool)
	for _, status := range statuses {
		records, err := r.listIndexed(ctx, r.keyBuilder.IndexPrefix(KeyPrefixIndexStatus, StatusSlug(string(status))))
		if err != nil {
			return nil, err
		}
		for _, record := range records {
			current := record.Status
			if current == "" {
				current = models.MeetingStatusScheduled
			}
			if current != status || seen[record.UID] {
				continue
			}
			seen[record.UID] = true
			result = append(result, record)
		}
	}
	return result, nil
}

// ListByCalendarEventID returns the records linked to a calendar event
func (r *NatsMeetingRecordRepository) ListByCalendarEventID(ctx context.Context, eventID string) ([]*models.MeetingRecord, error) {
	if eventID == "" {
		return nil, nil
	}
	records, err := r.listIndexed(ctx, r.keyBuilder.IndexPrefix(KeyPrefixIndexCalendarEvent, eventID))
	if err != nil {
		return nil, err
	}
	matching := records[:0]
	for _, record := range records {
		if record.CalendarEventID == eventID {
			matching = append(matching, record)
		}
	}
	return matching, nil
}

// ListByLinkContains returns the records whose meet link contains fragment.
// It scans every record and returns nothing for an empty fragment.
func (r *NatsMeetingRecordRepository) ListByLinkContains(ctx context.Context, fragment string) ([]*models.MeetingRecord, error) {
	if fragment == "" {
		return nil, nil
	}
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var matching []*models.MeetingRecord
	for _, record := range all {
		if record.MeetLink != "" && strings.Contains(record.MeetLink, fragment) {
			matching = append(matching, record)
		}
	}
	return matching, nil
}
