// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
)

func newTestMeetingRecord(uid string) *models.MeetingRecord {
	return &models.MeetingRecord{
		UID:         uid,
		Title:       "Weekly sync",
		MeetingDate: "2026-03-02",
		StartTime:   "09:00",
		EndTime:     "10:00",
		Status:      models.MeetingStatusScheduled,
	}
}

func TestNatsMeetingRecordRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	kv := newMockNatsKeyValue()
	repo := NewNatsMeetingRecordRepository(kv)

	record := newTestMeetingRecord("")
	record.ConferenceID = "conf-1"
	record.CalendarEventID = "evt_1"
	require.NoError(t, repo.Create(ctx, record))
	require.NotEmpty(t, record.UID, "uid is generated")

	got, revision, err := repo.GetWithRevision(ctx, record.UID)
	require.NoError(t, err)
	assert.NotZero(t, revision)
	assert.Equal(t, "Weekly sync", got.Title)

	assert.True(t, kv.has("index/conference/conf-1/"+record.UID))
	assert.True(t, kv.has("index/status/scheduled/"+record.UID))
	assert.True(t, kv.has("index/calendar-event/evt_1/"+record.UID))

	exists, err := repo.Exists(ctx, record.UID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestNatsMeetingRecordRepository_GetNotFound(t *testing.T) {
	repo := NewNatsMeetingRecordRepository(newMockNatsKeyValue())

	_, err := repo.Get(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrMeetingNotFound)
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}

func TestNatsMeetingRecordRepository_UpdateMovesIndexes(t *testing.T) {
	ctx := context.Background()
	kv := newMockNatsKeyValue()
	repo := NewNatsMeetingRecordRepository(kv)

	record := newTestMeetingRecord("m-1")
	require.NoError(t, repo.Create(ctx, record))

	stored, revision, err := repo.GetWithRevision(ctx, "m-1")
	require.NoError(t, err)
	stored.ConferenceID = "conf-9"
	stored.Status = models.MeetingStatusInProgress
	require.NoError(t, repo.Update(ctx, stored, revision))

	assert.False(t, kv.has("index/status/scheduled/m-1"))
	assert.True(t, kv.has("index/status/in-progress/m-1"))
	assert.True(t, kv.has("index/conference/conf-9/m-1"))

	byConference, err := repo.ListByConferenceID(ctx, "conf-9")
	require.NoError(t, err)
	require.Len(t, byConference, 1)
	assert.Equal(t, "m-1", byConference[0].UID)

	scheduled, err := repo.ListByStatus(ctx, models.MeetingStatusScheduled)
	require.NoError(t, err)
	assert.Empty(t, scheduled)
}

func TestNatsMeetingRecordRepository_UpdateConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsMeetingRecordRepository(newMockNatsKeyValue())
	require.NoError(t, repo.Create(ctx, newTestMeetingRecord("m-1")))

	stored, revision, err := repo.GetWithRevision(ctx, "m-1")
	require.NoError(t, err)

	err = repo.Update(ctx, stored, revision+100)

	assert.ErrorIs(t, err, domain.ErrRevisionMismatch)
}

func TestNatsMeetingRecordRepository_Delete(t *testing.T) {
	ctx := context.Background()
	kv := newMockNatsKeyValue()
	repo := NewNatsMeetingRecordRepository(kv)

	record := newTestMeetingRecord("m-1")
	record.ConferenceID = "conf-1"
	require.NoError(t, repo.Create(ctx, record))
	_, revision, err := repo.GetWithRevision(ctx, "m-1")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "m-1", revision))

	assert.False(t, kv.has("meeting/m-1"))
	assert.False(t, kv.has("index/conference/conf-1/m-1"))
	assert.False(t, kv.has("index/status/scheduled/m-1"))

	records, err := repo.ListByConferenceID(ctx, "conf-1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNatsMeetingRecordRepository_Lookups(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsMeetingRecordRepository(newMockNatsKeyValue())

	a := newTestMeetingRecord("a")
	a.MeetLink = "https://meet.google.com/abc-defg-hij"
	a.CalendarEventID = "evt_a"
	b := newTestMeetingRecord("b")
	b.Status = models.MeetingStatusInProgress
	b.MeetLink = "https://meet.google.com/xyz-wxyz-xyz"
	c := newTestMeetingRecord("c")
	c.Status = models.MeetingStatusCompleted
	for _, record := range []*models.MeetingRecord{a, b, c} {
		require.NoError(t, repo.Create(ctx, record))
	}

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active, err := repo.ListByStatus(ctx, models.MeetingStatusScheduled, models.MeetingStatusInProgress)
	require.NoError(t, err)
	var uids []string
	for _, record := range active {
		uids = append(uids, record.UID)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, uids)

	byLink, err := repo.ListByLinkContains(ctx, "abc-defg-hij")
	require.NoError(t, err)
	require.Len(t, byLink, 1)
	assert.Equal(t, "a", byLink[0].UID)

	none, err := repo.ListByLinkContains(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, none)

	byEvent, err := repo.ListByCalendarEventID(ctx, "evt_a")
	require.NoError(t, err)
	require.Len(t, byEvent, 1)
	assert.Equal(t, "a", byEvent[0].UID)
}

func TestNatsMeetingRecordRepository_NotReady(t *testing.T) {
	repo := NewNatsMeetingRecordRepository(nil)

	err := repo.Create(context.Background(), newTestMeetingRecord("m-1"))

	assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
}
