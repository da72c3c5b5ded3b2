// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
)

// maxConflictRetries bounds how often a revision conflict is retried by re-reading.
const maxConflictRetries = 3

// mutateRecord re-reads a meeting record, applies mutate and writes the result
// with a revision-checked update. mutate returns false when the record needs
// no write; the record is then returned unchanged.
func mutateRecord(
	ctx context.Context,
	repo domain.MeetingRecordRepository,
	uid string,
	now time.Time,
	mutate func(record *models.MeetingRecord) bool,
) (*models.MeetingRecord, bool, error) {
	var lastErr error
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		record, revision, err := repo.GetWithRevision(ctx, uid)
		if err != nil {
			return nil, false, err
		}
		if !mutate(record) {
			return record, false, nil
		}
		record.UpdatedAt = &now

		err = repo.Update(ctx, record, revision)
		if err == nil {
			return record, true, nil
		}
		if domain.GetErrorType(err) != domain.ErrorTypeConflict {
			return nil, false, err
		}
		lastErr = err
		slog.DebugContext(ctx, "meeting record changed concurrently, retrying",
			"meeting_uid", uid,
			"attempt", attempt)
	}
	return nil, false, lastErr
}
