// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
)

var maintenanceNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newMaintenanceHarness(settings *models.IntegrationSettings, records ...*models.MeetingRecord) (*MaintenanceService, *memoryMeetings, *capturedJobs) {
	meetings := newMemoryMeetings(records...)
	jobs := &capturedJobs{}
	scheduler := jobs.scheduler(nil)
	repo := settingsRepo(settings)

	calendarSync := NewCalendarSyncService(meetings, repo, &mocks.MockCalendarClient{}, scheduler, testConfig())
	calendarSync.now = fixedClock(maintenanceNow)
	service := NewMaintenanceService(meetings, repo, scheduler, calendarSync, testConfig())
	service.now = fixedClock(maintenanceNow)
	return service, meetings, jobs
}

func completedAt(uid string, updatedAt time.Time) *models.MeetingRecord {
	record := scheduledRecord(uid, "conf-"+uid, models.MeetingStatusCompleted)
	record.UpdatedAt = &updatedAt
	return record
}

func TestMaintenance_CompleteEndedMeetings(t *testing.T) {
	ended := scheduledRecord("ended", "", models.MeetingStatusScheduled)
	upcoming := scheduledRecord("upcoming", "", models.MeetingStatusScheduled)
	upcoming.MeetingDate = "2026-01-02"
	running := scheduledRecord("running", "conf-running", models.MeetingStatusInProgress)

	service, meetings, jobs := newMaintenanceHarness(testSettings(), ended, upcoming, running)

	require.NoError(t, service.CompleteEndedMeetings(context.Background()))

	assert.Equal(t, models.MeetingStatusCompleted, meetings.record(t, "ended").Status)
	assert.Equal(t, models.MeetingStatusScheduled, meetings.record(t, "upcoming").Status)
	assert.Equal(t, models.MeetingStatusInProgress, meetings.record(t, "running").Status)

	scheduled := jobs.all()
	require.Len(t, scheduled, 1)
	assert.Equal(t, models.JobFetchTranscript, scheduled[0].Name)
	assert.Equal(t, "ended", scheduled[0].Args["meeting_uid"])
}

func TestMaintenance_CheckPendingTranscripts(t *testing.T) {
	text := "stored"
	withTranscript := completedAt("with-transcript", maintenanceNow.Add(-time.Hour))
	withTranscript.Transcript = &text
	pending := completedAt("pending-chain", maintenanceNow.Add(-time.Hour))
	pending.TranscriptState = models.TranscriptStatePending
	failed := completedAt("failed-chain", maintenanceNow.Add(-time.Hour))
	failed.TranscriptState = models.TranscriptStateFailed

	service, _, jobs := newMaintenanceHarness(testSettings(),
		completedAt("missed", maintenanceNow.Add(-time.Hour)),
		completedAt("inside-delay", maintenanceNow.Add(-5*time.Minute)),
		completedAt("too-old", maintenanceNow.Add(-3*time.Hour)),
		withTranscript,
		pending,
		failed,
	)

	require.NoError(t, service.CheckPendingTranscripts(context.Background()))

	scheduled := jobs.all()
	require.Len(t, scheduled, 1)
	assert.Equal(t, models.JobFetchTranscript, scheduled[0].Name)
	assert.Equal(t, "missed", scheduled[0].Args["meeting_uid"])
	assert.Equal(t, "conf-missed", scheduled[0].Args["conference_id"])
	assert.True(t, scheduled[0].NotBefore.IsZero())
}

func TestMaintenance_CheckPendingTranscriptsHonorsConfiguredDelay(t *testing.T) {
	settings := testSettings()
	settings.TranscriptDelayMinutes = 2

	service, _, jobs := newMaintenanceHarness(settings, completedAt("recent", maintenanceNow.Add(-5*time.Minute)))

	require.NoError(t, service.CheckPendingTranscripts(context.Background()))
	require.Len(t, jobs.all(), 1)
}

func TestMaintenance_Run(t *testing.T) {
	ended := scheduledRecord("ended", "", models.MeetingStatusScheduled)
	service, meetings, jobs := newMaintenanceHarness(testSettings(), ended, completedAt("missed", maintenanceNow.Add(-time.Hour)))

	require.NoError(t, service.Run(context.Background()))

	assert.Equal(t, models.MeetingStatusCompleted, meetings.record(t, "ended").Status)
	uids := map[any]bool{}
	for _, job := range jobs.all() {
		uids[job.Args["meeting_uid"]] = true
	}
	assert.Equal(t, map[any]bool{"ended": true, "missed": true}, uids)
}

func TestMaintenance_StartStopsWithContext(t *testing.T) {
	service, meetings, jobs := newMaintenanceHarness(testSettings(), scheduledRecord("ended", "", models.MeetingStatusScheduled))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		service.Start(ctx, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(jobs.all()) > 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("maintenance loop did not stop")
	}
	assert.Equal(t, models.MeetingStatusCompleted, meetings.record(t, "ended").Status)
}
